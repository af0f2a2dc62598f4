// Package cache implements a generic set-associative cache with LRU
// replacement, parameterized by policy so the same structure serves
// every level of a multi-level storage hierarchy.
package cache

import "rv32isim/simerr"

// AccessType distinguishes a read from a write for hit/miss accounting
// and dirty-bit handling.
type AccessType uint8

const (
	Read AccessType = iota
	Write
)

// Policy describes the geometry of one cache level. CacheSize,
// BlockSize and BlockNum are all in bytes/blocks; BlockNum must equal
// CacheSize/BlockSize, and Associativity must divide BlockNum.
type Policy struct {
	CacheSize     int
	BlockSize     int
	BlockNum      int
	Associativity int
	HitLatency    int32
}

func isPow2(n int) bool { return n > 0 && n&(n-1) == 0 }

func getLog2(n int) int {
	log := 0
	for n > 1 {
		n >>= 1
		log++
	}
	return log
}

// IsValid checks the divisibility and power-of-two invariants a
// policy must satisfy to decompose an address into tag/index/offset.
func (p Policy) IsValid() bool {
	if p.CacheSize <= 0 || p.BlockSize <= 0 || p.BlockNum <= 0 || p.Associativity <= 0 {
		return false
	}
	if !isPow2(p.BlockSize) || !isPow2(p.BlockNum) || !isPow2(p.Associativity) {
		return false
	}
	if p.CacheSize != p.BlockSize*p.BlockNum {
		return false
	}
	return p.BlockNum%p.Associativity == 0
}

// Block is one cache line's metadata; byte contents live in a
// parallel data slice owned by Cache.
type Block struct {
	Valid  bool
	Dirty  bool
	Tag    uint32
	Index  int
	PrvRef int32
}

// History accumulates hit/miss counts for a single cache level.
type History struct {
	NumHit  int32
	NumMiss int32
}

// Cache is one level of a set-associative hierarchy: a policy, its
// blocks (grouped implicitly into sets of Associativity), and the
// backing byte storage for each block.
type Cache struct {
	Policy  Policy
	Blocks  []Block
	Data    [][]byte
	History History

	offsetBits int
	indexBits  int
	refCounter int32
}

// New creates a cache level under policy. It does not validate policy
// and may panic on an invalid one: callers must check policy.IsValid()
// first.
func New(policy Policy) *Cache {
	c := &Cache{
		Policy:     policy,
		Blocks:     make([]Block, policy.BlockNum),
		Data:       make([][]byte, policy.BlockNum),
		offsetBits: getLog2(policy.BlockSize),
		indexBits:  getLog2(policy.BlockNum / policy.Associativity),
	}
	for i := range c.Data {
		c.Data[i] = make([]byte, policy.BlockSize)
	}
	return c
}

func (c *Cache) getIndex(address uint32) int {
	return int((address >> c.offsetBits) & uint32((1<<c.indexBits)-1))
}

func (c *Cache) getTag(address uint32) uint32 {
	return address >> (c.offsetBits + c.indexBits)
}

func (c *Cache) getOffset(address uint32) int {
	return int(address & uint32(c.Policy.BlockSize-1))
}

// GetAddress reconstructs the base address of a block from its tag
// and set index.
func (c *Cache) GetAddress(tag uint32, index int) uint32 {
	return (tag << (c.offsetBits + c.indexBits)) | uint32(index<<c.offsetBits)
}

// setRange returns the slice bounds of the set containing address.
func (c *Cache) setRange(address uint32) (int, int) {
	index := c.getIndex(address)
	start := index * c.Policy.Associativity
	return start, start + c.Policy.Associativity
}

// Lookup returns the slot index of the block holding address, or -1
// if address is not resident.
func (c *Cache) Lookup(address uint32) int {
	tag := c.getTag(address)
	start, end := c.setRange(address)
	for i := start; i < end; i++ {
		if c.Blocks[i].Valid && c.Blocks[i].Tag == tag {
			return i
		}
	}
	return -1
}

// IndexToReplace picks the LRU victim within address's set: the first
// invalid slot, else the slot with the smallest PrvRef.
func (c *Cache) IndexToReplace(address uint32) int {
	start, end := c.setRange(address)
	victim := start
	for i := start; i < end; i++ {
		if !c.Blocks[i].Valid {
			return i
		}
		if c.Blocks[i].PrvRef < c.Blocks[victim].PrvRef {
			victim = i
		}
	}
	return victim
}

// FixBlock installs a fresh tag/index at slot, marking it valid and
// clean, ready to receive data.
func (c *Cache) FixBlock(slot int, address uint32) {
	c.Blocks[slot] = Block{
		Valid:  true,
		Dirty:  false,
		Tag:    c.getTag(address),
		Index:  c.getIndex(address),
		PrvRef: c.Blocks[slot].PrvRef,
	}
}

// ResetBlock invalidates slot and zeroes its backing bytes, used by
// the exclusive variant to punch a hole after pushing a block down.
func (c *Cache) ResetBlock(slot int) {
	c.Blocks[slot] = Block{}
	for i := range c.Data[slot] {
		c.Data[slot][i] = 0
	}
}

// Touch bumps slot's recency counter and, on a write, marks it dirty.
func (c *Cache) Touch(slot int, accessType AccessType) {
	c.refCounter++
	c.Blocks[slot].PrvRef = c.refCounter
	if accessType == Write {
		c.Blocks[slot].Dirty = true
	}
}

// RecordHit/RecordMiss update this level's hit/miss history.
func (c *Cache) RecordHit()  { c.History.NumHit++ }
func (c *Cache) RecordMiss() { c.History.NumMiss++ }

// MissRate returns NumMiss/(NumHit+NumMiss), or 0 with no accesses.
func (c *Cache) MissRate() float64 {
	total := c.History.NumHit + c.History.NumMiss
	if total == 0 {
		return 0
	}
	return float64(c.History.NumMiss) / float64(total)
}

// GetByte/SetByte read and write a single byte within the block at
// slot, at the offset address falls into.
func (c *Cache) GetByte(slot int, address uint32) byte {
	return c.Data[slot][c.getOffset(address)]
}

func (c *Cache) SetByte(slot int, address uint32, value byte) {
	c.Data[slot][c.getOffset(address)] = value
}

// CopyBlock overwrites slot's full block contents, used when fetching
// a block from the next level down.
func (c *Cache) CopyBlock(slot int, data []byte) {
	copy(c.Data[slot], data)
}

// BlockBytes returns the full backing bytes for slot.
func (c *Cache) BlockBytes(slot int) []byte {
	return c.Data[slot]
}

var errNotResident = simerr.NewMemoryError(0, "cache: slot not resident")

// ValidateSlot validates that idx addresses an allocated block, returning
// errNotResident otherwise.
func (c *Cache) ValidateSlot(idx int) error {
	if idx < 0 || idx >= len(c.Blocks) {
		return errNotResident
	}
	return nil
}
