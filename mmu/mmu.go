// Package mmu implements a lazily-allocated two-level page table over
// the full 32-bit byte-addressed space.
package mmu

import "rv32isim/simerr"

const (
	wordWidth        = 32
	firstLevelWidth  = 10
	secondLevelWidth = 10
	pageWidth        = 12

	firstLevelSize  = 1 << firstLevelWidth
	secondLevelSize = 1 << secondLevelWidth
	pageSize        = 1 << pageWidth
)

type page = [pageSize]byte

// MMU is a two-level page table: top index = high 10 bits, mid index
// = next 10 bits, offset = low 12 bits. A page is either unallocated
// or a full 4 KiB region, zero-filled on allocation.
type MMU struct {
	data []([]*page)
}

// New creates an MMU with no pages allocated.
func New() *MMU {
	return &MMU{data: make([]([]*page), firstLevelSize)}
}

func firstIndex(address uint32) int {
	return int(address >> (wordWidth - firstLevelWidth))
}

func secondIndex(address uint32) int {
	return int((address >> (wordWidth - firstLevelWidth - secondLevelWidth)) & (secondLevelSize - 1))
}

func pageOffset(address uint32) int {
	return int(address & (pageSize - 1))
}

// PageExists reports whether a page backing address has been allocated.
func (m *MMU) PageExists(address uint32) bool {
	i, j := firstIndex(address), secondIndex(address)
	return m.data[i] != nil && m.data[i][j] != nil
}

// AllocatePage allocates the page backing address if absent. Returns
// true if a new page was allocated, false if one already existed.
func (m *MMU) AllocatePage(address uint32) bool {
	i, j := firstIndex(address), secondIndex(address)
	if m.data[i] == nil {
		m.data[i] = make([]*page, secondLevelSize)
	}
	if m.data[i][j] == nil {
		m.data[i][j] = &page{}
		return true
	}
	return false
}

// Set8 writes a byte at address. Fails with MemoryError if the
// backing page is not allocated.
func (m *MMU) Set8(address uint32, value byte) error {
	i, j, k := firstIndex(address), secondIndex(address), pageOffset(address)
	if m.data[i] != nil && m.data[i][j] != nil {
		m.data[i][j][k] = value
		return nil
	}
	return simerr.NewMemoryError(address, "write to unallocated page")
}

// Get8 reads a byte at address. Fails with MemoryError if the backing
// page is not allocated.
func (m *MMU) Get8(address uint32) (byte, error) {
	i, j, k := firstIndex(address), secondIndex(address), pageOffset(address)
	if m.data[i] != nil && m.data[i][j] != nil {
		return m.data[i][j][k], nil
	}
	return 0, simerr.NewMemoryError(address, "read from unallocated page")
}

// Set16 writes a little-endian halfword. Fails with MemoryError if
// address is not 2-byte aligned.
func (m *MMU) Set16(address uint32, value uint16) error {
	if address%2 != 0 {
		return simerr.NewMemoryError(address, "misaligned 16-bit access")
	}
	if err := m.Set8(address, byte(value)); err != nil {
		return err
	}
	return m.Set8(address+1, byte(value>>8))
}

// Get16 reads a little-endian halfword. Fails with MemoryError if
// address is not 2-byte aligned.
func (m *MMU) Get16(address uint32) (uint16, error) {
	if address%2 != 0 {
		return 0, simerr.NewMemoryError(address, "misaligned 16-bit access")
	}
	low, err := m.Get8(address)
	if err != nil {
		return 0, err
	}
	high, err := m.Get8(address + 1)
	if err != nil {
		return 0, err
	}
	return uint16(low) | uint16(high)<<8, nil
}

// Set32 writes a little-endian word. Fails with MemoryError if
// address is not 4-byte aligned.
func (m *MMU) Set32(address uint32, value uint32) error {
	if address%4 != 0 {
		return simerr.NewMemoryError(address, "misaligned 32-bit access")
	}
	if err := m.Set16(address, uint16(value)); err != nil {
		return err
	}
	return m.Set16(address+2, uint16(value>>16))
}

// Get32 reads a little-endian word. Fails with MemoryError if address
// is not 4-byte aligned.
func (m *MMU) Get32(address uint32) (uint32, error) {
	if address%4 != 0 {
		return 0, simerr.NewMemoryError(address, "misaligned 32-bit access")
	}
	low, err := m.Get16(address)
	if err != nil {
		return 0, err
	}
	high, err := m.Get16(address + 2)
	if err != nil {
		return 0, err
	}
	return uint32(low) | uint32(high)<<16, nil
}
