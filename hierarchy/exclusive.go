package hierarchy

import (
	"rv32isim/cache"
	"rv32isim/mmu"
	"rv32isim/simerr"
)

// exclusiveVariant enforces mutual exclusion: an address resident in
// level k is never simultaneously resident in any other level.
type exclusiveVariant struct{}

// NewExclusive builds an exclusive hierarchy; exclusive hierarchies
// never use a victim cache.
func NewExclusive(policies []cache.Policy, missPenalty int32) *Hierarchy {
	h := &Hierarchy{
		MMU:             mmu.New(),
		MissPenalty:     missPenalty,
		WriteHitPolicy:  WriteBack,
		WriteMissPolicy: WriteAllocate,
		Variant:         exclusiveVariant{},
	}
	for _, p := range policies {
		h.Caches = append(h.Caches, cache.New(p))
	}
	return h
}

// DefaultExclusive mirrors the Rust reference's ExclusiveCache::default(),
// the same 3-level geometry as the inclusive default.
func DefaultExclusive() *Hierarchy {
	return NewExclusive(DefaultPolicies(), defaultMissPenalty)
}

func (exclusiveVariant) HandleHit(h *Hierarchy, level int, slot int, address uint32, accessType cache.AccessType) {
	// No write-through propagation: a hit at level k means the block
	// lives only at k, by exclusion.
}

// HandleMiss allocates a fresh slot at level, pulls the block up from
// level+1 (recursively), and — when the next level actually holds a
// cache (not the MMU) — punches a hole there and, if the evicted slot
// at level was valid, pushes it down to keep mutual exclusion intact.
func (exclusiveVariant) HandleMiss(h *Hierarchy, level int, address uint32, accessType cache.AccessType) int {
	c := h.Caches[level]
	blockSize := c.Policy.BlockSize
	baseAddr := address &^ uint32(blockSize-1)

	newSlot := c.IndexToReplace(address)
	evictedValid := c.Blocks[newSlot].Valid
	evictedBaseAddr := c.GetAddress(c.Blocks[newSlot].Tag, c.Blocks[newSlot].Index)
	evictedData := append([]byte(nil), c.BlockBytes(newSlot)...)

	data := h.fetchFromNextLevel(level, baseAddr, blockSize)

	if level+1 < h.N() {
		nextSlot := h.Caches[level+1].Lookup(baseAddr)
		if nextSlot >= 0 {
			h.Caches[level+1].ResetBlock(nextSlot)
		}
		if evictedValid {
			h.writeToNextLevel(level+1, evictedBaseAddr, evictedData)
		}
	}

	c.CopyBlock(newSlot, data)
	c.FixBlock(newSlot, address)
	return newSlot
}

// VerifyCoherence checks that no address is valid in more than one
// level simultaneously.
func (exclusiveVariant) VerifyCoherence(h *Hierarchy) error {
	for k := 0; k < h.N(); k++ {
		for _, b := range h.Caches[k].Blocks {
			if !b.Valid {
				continue
			}
			addr := h.Caches[k].GetAddress(b.Tag, b.Index)
			for j := 0; j < h.N(); j++ {
				if j == k {
					continue
				}
				if h.Caches[j].Lookup(addr) >= 0 {
					return simerr.NewMemoryError(addr, "exclusive hierarchy violated: block resident in more than one level")
				}
			}
		}
	}
	return nil
}
