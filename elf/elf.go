// Package elf loads a 32-bit RISC-V ELF executable's PT_LOAD segments
// and initial stack into the simulator's MMU.
package elf

import (
	stdelf "debug/elf"

	"rv32isim/hierarchy"
	"rv32isim/simerr"
)

// Program is a parsed ELF image ready to be loaded into memory: an
// entry point and the list of loadable segments.
type Program struct {
	Entry    uint32
	Segments []Segment
}

// Segment is one PT_LOAD region: its virtual address, the bytes stored
// in the file, and its in-memory size. LoadIntoMMU zero-fills the bytes
// past Data up to MemSize (covers .bss).
type Segment struct {
	VAddr  uint32
	Data   []byte
	MemSize uint32
}

// Load parses path as an ELF32 RISC-V executable.
func Load(path string) (*Program, error) {
	f, err := stdelf.Open(path)
	if err != nil {
		return nil, simerr.WrapElfLoadError(path, err)
	}
	defer f.Close()

	if f.Class != stdelf.ELFCLASS32 {
		return nil, simerr.NewElfLoadError(path, "not a 32-bit ELF")
	}
	if f.Machine != stdelf.EM_RISCV {
		return nil, simerr.NewElfLoadError(path, "not a RISC-V ELF")
	}

	prog := &Program{Entry: uint32(f.Entry)}
	for _, p := range f.Progs {
		if p.Type != stdelf.PT_LOAD {
			continue
		}
		if p.Vaddr+p.Memsz > 1<<32 {
			return nil, simerr.NewElfLoadError(path, "segment virtual address range overflows 32 bits")
		}
		data := make([]byte, p.Filesz)
		if _, err := p.ReadAt(data, 0); err != nil {
			return nil, simerr.WrapElfLoadError(path, err)
		}
		prog.Segments = append(prog.Segments, Segment{
			VAddr:   uint32(p.Vaddr),
			Data:    data,
			MemSize: uint32(p.Memsz),
		})
	}
	return prog, nil
}

// LoadIntoMMU writes every loadable segment directly into mem's MMU,
// bypassing the cache hierarchy, allocating pages as needed and
// zero-filling the bytes between Filesz and Memsz.
func LoadIntoMMU(prog *Program, mem *hierarchy.Hierarchy) error {
	for _, seg := range prog.Segments {
		for i := uint32(0); i < seg.MemSize; i++ {
			addr := seg.VAddr + i
			mem.MMU.AllocatePage(addr)
			var b byte
			if i < uint32(len(seg.Data)) {
				b = seg.Data[i]
			}
			if err := mem.MMU.Set8(addr, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// SetStack allocates and zero-fills the guest stack region
// [stackBase-stackSize, stackBase) directly in the MMU.
func SetStack(mem *hierarchy.Hierarchy, stackBase, stackSize uint32) error {
	for addr := stackBase - stackSize; addr != stackBase; addr++ {
		mem.MMU.AllocatePage(addr)
		if err := mem.MMU.Set8(addr, 0); err != nil {
			return err
		}
	}
	return nil
}
