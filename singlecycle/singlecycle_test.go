package singlecycle_test

import (
	"bufio"
	"bytes"
	"testing"

	"rv32isim/cpu"
	"rv32isim/hierarchy"
	"rv32isim/singlecycle"
	"rv32isim/syscall"
)

func encR(funct7, rs2, rs1, funct3, rd, opcode uint32) uint32 {
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func encI(imm, rs1, funct3, rd, opcode uint32) uint32 {
	return (imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

func newTestHierarchy() *hierarchy.Hierarchy {
	return hierarchy.NewInclusive(hierarchy.DefaultPolicies(), hierarchy.WriteBack, hierarchy.WriteAllocate, 10, false)
}

func loadProgram(mem *hierarchy.Hierarchy, base uint32, words []uint32) {
	for i, w := range words {
		addr := base + uint32(i*4)
		mem.MMU.AllocatePage(addr)
		_, _ = mem.Set32(addr, w)
	}
}

func TestSingleCycleArithmeticAndExit(t *testing.T) {
	mem := newTestHierarchy()
	base := uint32(0x1000)

	program := []uint32{
		encI(5, 0, 0, 1, 0x13),    // addi x1, x0, 5
		encI(7, 0, 0, 2, 0x13),    // addi x2, x0, 7
		encR(0, 2, 1, 0, 3, 0x33), // add x3, x1, x2
		encI(0, 3, 0, 10, 0x13),   // addi x10, x3, 0   (a0 = result)
		encI(3, 0, 0, 17, 0x13),   // addi x17, x0, 3   (a7 = Exit)
		0x73,                      // ecall
	}
	loadProgram(mem, base, program)

	state := cpu.New(cpu.Policy{Implement: cpu.SingleCycle, MaxCycles: 1000})
	state.PC = cpu.NewRegister(base)

	var out bytes.Buffer
	io := syscall.IO{In: bufio.NewReader(&bytes.Buffer{}), Out: &out}

	exitPC, err := singlecycle.Run(state, mem, io)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exitPC != base+5*4 {
		t.Errorf("expected exit at the ecall's PC %#x, got %#x", base+5*4, exitPC)
	}
	if got := state.ReadReg(10); got != 12 {
		t.Errorf("expected x10=12, got %d", got)
	}
	if got := state.ReadReg(3); got != 12 {
		t.Errorf("expected x3=12, got %d", got)
	}
}

func TestSingleCycleLoadStore(t *testing.T) {
	mem := newTestHierarchy()
	base := uint32(0x2000)
	dataAddr := uint32(0x5000)
	mem.MMU.AllocatePage(dataAddr)

	// dataAddr doesn't fit a 12-bit immediate, so materialize it with
	// lui+addi before using it as the store/load base.
	program := []uint32{
		lui(dataAddr>>12, 1),                    // lui x1, hi(dataAddr)
		encI(dataAddr&0xfff, 1, 0, 1, 0x13),      // addi x1, x1, lo(dataAddr)
		encI(-1000&0xfff, 0, 0, 2, 0x13),          // addi x2, x0, -1000
		sw(0, 2, 1),                              // sw x2, 0(x1)
		lh(0, 1, 3),                              // lh x3, 0(x1)
		encI(3, 0, 0, 17, 0x13),                  // addi x17, x0, 3 (Exit)
		0x73,                                     // ecall
	}
	loadProgram(mem, base, program)

	state := cpu.New(cpu.Policy{Implement: cpu.SingleCycle, MaxCycles: 1000})
	state.PC = cpu.NewRegister(base)

	var out bytes.Buffer
	io := syscall.IO{In: bufio.NewReader(&bytes.Buffer{}), Out: &out}

	if _, err := singlecycle.Run(state, mem, io); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := state.ReadReg(3); got != -1000 {
		t.Errorf("expected x3=-1000 (sign-extended LH), got %d", got)
	}
}

func lui(imm20 uint32, rd uint32) uint32 {
	return (imm20 << 12) | rd<<7 | 0x37
}

func sw(imm, rs2, rs1 uint32) uint32 {
	return (imm&0xfe0)<<20 | rs2<<20 | rs1<<15 | 0b010<<12 | (imm&0x1f)<<7 | 0x23
}

func lh(imm, rs1, rd uint32) uint32 {
	return encI(imm, rs1, 0b001, rd, 0x03)
}
