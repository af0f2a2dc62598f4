package hierarchy

import (
	"rv32isim/cache"
	"rv32isim/mmu"
	"rv32isim/simerr"
)

// inclusiveVariant implements multi-level inclusion: a block is filled
// into every level on its way up to level 0, so a block resident at
// level k is also resident at the deeper levels k+1..N-1. An eviction
// at a deeper level does not invalidate copies above it. An optional
// victim cache sits between level 0 and level 1.
type inclusiveVariant struct{}

// DefaultPolicies returns the 3-level L1/L2/L3 geometry used
// throughout the cache-bench harness: 16KiB/64B/assoc1/hit1,
// 128KiB/64B/assoc8/hit8, 2MiB/64B/assoc16/hit20.
func DefaultPolicies() []cache.Policy {
	return []cache.Policy{
		{CacheSize: 16 * 1024, BlockSize: 64, BlockNum: 16 * 1024 / 64, Associativity: 1, HitLatency: 1},
		{CacheSize: 128 * 1024, BlockSize: 64, BlockNum: 128 * 1024 / 64, Associativity: 8, HitLatency: 8},
		{CacheSize: 2 * 1024 * 1024, BlockSize: 64, BlockNum: 2 * 1024 * 1024 / 64, Associativity: 16, HitLatency: 20},
	}
}

// SingleLevelPolicy returns the flat single-cache geometry used by the
// "Single-level" row of the cache-bench CSV.
func SingleLevelPolicy() cache.Policy {
	return cache.Policy{CacheSize: 16 * 1024, BlockSize: 64, BlockNum: 16 * 1024 / 64, Associativity: 1, HitLatency: 1}
}

const defaultMissPenalty = 100

// NewInclusive builds an inclusive hierarchy from policies (outermost
// first), with an optional direct-mapped victim cache beside level 0
// that is probed on a level-0 miss.
func NewInclusive(policies []cache.Policy, writeHit WriteHitPolicy, writeMiss WriteMissPolicy, missPenalty int32, useVictimCache bool) *Hierarchy {
	h := &Hierarchy{
		MMU:             mmu.New(),
		MissPenalty:     missPenalty,
		WriteHitPolicy:  writeHit,
		WriteMissPolicy: writeMiss,
		UseVictimCache:  useVictimCache,
		Variant:         inclusiveVariant{},
	}
	for _, p := range policies {
		h.Caches = append(h.Caches, cache.New(p))
	}
	if useVictimCache && len(policies) > 0 {
		blockSize := policies[0].BlockSize
		vcPolicy := cache.Policy{
			CacheSize:     8 * blockSize,
			BlockSize:     blockSize,
			BlockNum:      8,
			Associativity: 1,
			HitLatency:    0,
		}
		h.VictimCache = cache.New(vcPolicy)
	}
	return h
}

// DefaultInclusive mirrors the Rust reference's InclusiveCache::default(),
// a 3-level hierarchy with no victim cache and miss penalty 100.
func DefaultInclusive() *Hierarchy {
	return NewInclusive(DefaultPolicies(), WriteBack, WriteAllocate, defaultMissPenalty, false)
}

func (inclusiveVariant) HandleHit(h *Hierarchy, level int, slot int, address uint32, accessType cache.AccessType) {
	if accessType == cache.Write && h.WriteHitPolicy == WriteThrough {
		c := h.Caches[level]
		b := c.GetByte(slot, address)
		h.writeToNextLevel(level+1, address, []byte{b})
	}
}

func (inclusiveVariant) HandleMiss(h *Hierarchy, level int, address uint32, accessType cache.AccessType) int {
	if accessType == cache.Write && h.WriteMissPolicy == WriteNoAllocate {
		h.writeToNextLevel(level+1, address, []byte{0})
		return -1
	}

	c := h.Caches[level]
	blockSize := c.Policy.BlockSize
	baseAddr := address &^ uint32(blockSize-1)

	if level == 0 && h.UseVictimCache && h.VictimCache != nil {
		if vcSlot := h.VictimCache.Lookup(address); vcSlot >= 0 {
			h.VictimCache.RecordHit()
			victimData := append([]byte(nil), h.VictimCache.BlockBytes(vcSlot)...)

			c0Slot := c.IndexToReplace(address)
			evictedValid := c.Blocks[c0Slot].Valid
			evictedDirty := c.Blocks[c0Slot].Dirty
			evictedBaseAddr := c.GetAddress(c.Blocks[c0Slot].Tag, c.Blocks[c0Slot].Index)
			evictedData := append([]byte(nil), c.BlockBytes(c0Slot)...)

			c.CopyBlock(c0Slot, victimData)
			c.FixBlock(c0Slot, address)

			if evictedValid {
				h.VictimCache.CopyBlock(vcSlot, evictedData)
				h.VictimCache.FixBlock(vcSlot, evictedBaseAddr)
				if evictedDirty && h.WriteHitPolicy == WriteBack {
					h.writeToNextLevel(level+1, evictedBaseAddr, evictedData)
				}
			}
			return c0Slot
		}
		h.VictimCache.RecordMiss()
	}

	data := h.fetchFromNextLevel(level, baseAddr, blockSize)
	newSlot := c.IndexToReplace(address)
	evictedValid := c.Blocks[newSlot].Valid
	evictedDirty := c.Blocks[newSlot].Dirty
	evictedBaseAddr := c.GetAddress(c.Blocks[newSlot].Tag, c.Blocks[newSlot].Index)
	evictedData := append([]byte(nil), c.BlockBytes(newSlot)...)

	if level == 0 && h.UseVictimCache && h.VictimCache != nil && evictedValid {
		vcSlot := h.VictimCache.IndexToReplace(evictedBaseAddr)
		vcEvictedValid := h.VictimCache.Blocks[vcSlot].Valid
		vcEvictedDirty := h.VictimCache.Blocks[vcSlot].Dirty
		vcEvictedBaseAddr := h.VictimCache.GetAddress(h.VictimCache.Blocks[vcSlot].Tag, h.VictimCache.Blocks[vcSlot].Index)
		vcEvictedData := append([]byte(nil), h.VictimCache.BlockBytes(vcSlot)...)
		if vcEvictedValid && vcEvictedDirty && h.WriteHitPolicy == WriteBack {
			h.writeToNextLevel(level+1, vcEvictedBaseAddr, vcEvictedData)
		}
		h.VictimCache.CopyBlock(vcSlot, evictedData)
		h.VictimCache.FixBlock(vcSlot, evictedBaseAddr)
	} else if evictedValid && evictedDirty && h.WriteHitPolicy == WriteBack {
		h.writeToNextLevel(level+1, evictedBaseAddr, evictedData)
	}

	c.CopyBlock(newSlot, data)
	c.FixBlock(newSlot, address)
	return newSlot
}

// VerifyCoherence checks that every valid block at level k (k starts
// at 1 when a victim cache is in play, since the victim cache sits
// outside the inclusion chain by design) also has its address
// resident at every deeper level. This is an intentional contract of
// the inclusive variant, not a property to weaken.
func (inclusiveVariant) VerifyCoherence(h *Hierarchy) error {
	start := 0
	if h.UseVictimCache {
		start = 1
	}
	for k := start; k < h.N()-1; k++ {
		c := h.Caches[k]
		for _, b := range c.Blocks {
			if !b.Valid {
				continue
			}
			addr := c.GetAddress(b.Tag, b.Index)
			for j := k + 1; j < h.N(); j++ {
				if h.Caches[j].Lookup(addr) < 0 {
					return simerr.NewMemoryError(addr, "inclusive hierarchy violated: block absent from a deeper level")
				}
			}
		}
	}
	return nil
}
