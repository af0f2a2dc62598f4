// Package hierarchy composes cache levels and an MMU into a single
// multi-level storage hierarchy, with pluggable inclusive/exclusive
// coherence policies.
package hierarchy

import (
	"rv32isim/cache"
	"rv32isim/mmu"
)

// WriteHitPolicy selects what happens to a cache hit on a write.
type WriteHitPolicy uint8

const (
	WriteBack WriteHitPolicy = iota
	WriteThrough
)

// WriteMissPolicy selects what happens on a write miss.
type WriteMissPolicy uint8

const (
	WriteAllocate WriteMissPolicy = iota
	WriteNoAllocate
)

// Variant implements the coherence behavior that differs between an
// inclusive and an exclusive hierarchy: what happens on a hit and on
// a miss at a given level.
type Variant interface {
	HandleHit(h *Hierarchy, level int, slot int, address uint32, accessType cache.AccessType)
	HandleMiss(h *Hierarchy, level int, address uint32, accessType cache.AccessType) int
	VerifyCoherence(h *Hierarchy) error
}

// Hierarchy is N cache levels backed by an MMU, with a pluggable
// Variant implementing inclusive or exclusive coherence.
type Hierarchy struct {
	Caches      []*cache.Cache
	MMU         *mmu.MMU
	Variant     Variant
	MissPenalty int32

	RefCounter        int32
	TotalPenalty      int32
	TotalWorstPenalty int32

	VictimCache    *cache.Cache
	UseVictimCache bool

	WriteHitPolicy  WriteHitPolicy
	WriteMissPolicy WriteMissPolicy
}

// N is the number of cache levels (not counting the MMU).
func (h *Hierarchy) N() int { return len(h.Caches) }

func (h *Hierarchy) penalizeWorst() {
	h.TotalWorstPenalty += h.MissPenalty
}

// accessInner implements the recursive level-k access shared by both
// variants: k == N means the access falls through to the MMU;
// otherwise look up the block in level k, record a hit or miss, and
// on either outcome touch the resulting slot if one was determined.
// It is also used internally to fill and write back whole blocks
// (writeToNextLevel/fetchFromNextLevel), so it must not itself charge
// the worst-case penalty — that's the outer entry points' job, once
// per logical access.
func (h *Hierarchy) accessInner(level int, address uint32, accessType cache.AccessType, value byte, stall *int32) (byte, error) {
	if level == h.N() {
		if stall != nil {
			*stall += h.MissPenalty
		}
		if accessType == cache.Write {
			return 0, h.MMU.Set8(address, value)
		}
		v, err := h.MMU.Get8(address)
		return v, err
	}

	c := h.Caches[level]
	slot := c.Lookup(address)
	if slot >= 0 {
		c.RecordHit()
		h.Variant.HandleHit(h, level, slot, address, accessType)
		c.Touch(slot, accessType)
		if accessType == cache.Write {
			c.SetByte(slot, address, value)
			return 0, nil
		}
		return c.GetByte(slot, address), nil
	}

	c.RecordMiss()
	if stall != nil {
		*stall += h.MissPenalty
	}
	newSlot := h.Variant.HandleMiss(h, level, address, accessType)
	if newSlot < 0 {
		// No-allocate write miss: nothing resident at this level.
		return 0, nil
	}
	c.Touch(newSlot, accessType)
	if accessType == cache.Write {
		c.SetByte(newSlot, address, value)
		return 0, nil
	}
	return c.GetByte(newSlot, address), nil
}

// writeToNextLevel writes data byte by byte into nextLevel (the level
// below the caller's, or N for the MMU), used when evicting a dirty
// write-back block or propagating a write down.
func (h *Hierarchy) writeToNextLevel(nextLevel int, baseAddr uint32, data []byte) {
	for i, b := range data {
		_, _ = h.accessInner(nextLevel, baseAddr+uint32(i), cache.Write, b, nil)
	}
}

// fetchFromNextLevel reads a full block's worth of bytes starting at
// baseAddr from level+1, used to service a miss by pulling the block
// up from the next level (or the MMU).
func (h *Hierarchy) fetchFromNextLevel(level int, baseAddr uint32, blockSize int) []byte {
	data := make([]byte, blockSize)
	for i := range data {
		v, _ := h.accessInner(level+1, baseAddr+uint32(i), cache.Read, 0, nil)
		data[i] = v
	}
	return data
}

// Get8/Set8 are the outer entry points: they bump the global
// reference counter exactly once per outermost access and return the
// stall charged at level 0; the block-fill and write-back sub-accesses
// it triggers run without a stall sink and add nothing to it.
func (h *Hierarchy) Get8(address uint32) (byte, int32, error) {
	h.RefCounter++
	h.penalizeWorst()
	var stall int32
	v, err := h.accessInner(0, address, cache.Read, 0, &stall)
	return v, stall, err
}

func (h *Hierarchy) Set8(address uint32, value byte) (int32, error) {
	h.RefCounter++
	h.penalizeWorst()
	var stall int32
	_, err := h.accessInner(0, address, cache.Write, value, &stall)
	return stall, err
}

// sizedGet/sizedSet decompose a multi-byte access into byte accesses;
// only the first byte's call receives the live stall pointer. The
// worst-case penalty is charged once per logical access, same as Get8/Set8.
func (h *Hierarchy) sizedGet(address uint32, n int) (uint32, int32, error) {
	h.RefCounter++
	h.penalizeWorst()
	var stall int32
	var result uint32
	for i := 0; i < n; i++ {
		var s *int32
		if i == 0 {
			s = &stall
		}
		v, err := h.accessInner(0, address+uint32(i), cache.Read, 0, s)
		if err != nil {
			return 0, stall, err
		}
		result |= uint32(v) << (8 * i)
	}
	return result, stall, nil
}

func (h *Hierarchy) sizedSet(address uint32, n int, value uint32) (int32, error) {
	h.RefCounter++
	h.penalizeWorst()
	var stall int32
	for i := 0; i < n; i++ {
		var s *int32
		if i == 0 {
			s = &stall
		}
		b := byte(value >> (8 * i))
		if _, err := h.accessInner(0, address+uint32(i), cache.Write, b, s); err != nil {
			return stall, err
		}
	}
	return stall, nil
}

func (h *Hierarchy) Get16(address uint32) (uint16, int32, error) {
	v, s, err := h.sizedGet(address, 2)
	return uint16(v), s, err
}

func (h *Hierarchy) Set16(address uint32, value uint16) (int32, error) {
	return h.sizedSet(address, 2, uint32(value))
}

func (h *Hierarchy) Get32(address uint32) (uint32, int32, error) {
	return h.sizedGet(address, 4)
}

func (h *Hierarchy) Set32(address uint32, value uint32) (int32, error) {
	return h.sizedSet(address, 4, value)
}

// Get/Set are sized convenience wrappers that report no stall: the
// worst-case stall is always the flat miss penalty, regardless of step
// size.
func (h *Hierarchy) Get(address uint32, size int) (uint32, error) {
	h.RefCounter++
	h.penalizeWorst()
	var result uint32
	for i := 0; i < size; i++ {
		v, err := h.accessInner(0, address+uint32(i), cache.Read, 0, nil)
		if err != nil {
			return 0, err
		}
		result |= uint32(v) << (8 * i)
	}
	return result, nil
}

func (h *Hierarchy) Set(address uint32, size int, value uint32) error {
	h.RefCounter++
	h.penalizeWorst()
	for i := 0; i < size; i++ {
		b := byte(value >> (8 * i))
		if _, err := h.accessInner(0, address+uint32(i), cache.Write, b, nil); err != nil {
			return err
		}
	}
	return nil
}

// GetAMAT computes the bottom-up average memory access time: starting
// from the MMU's flat miss penalty, each level contributes
// hit_latency + miss_rate * AMAT(next).
func (h *Hierarchy) GetAMAT() float64 {
	amat := float64(h.MissPenalty)
	for i := h.N() - 1; i >= 0; i-- {
		if h.UseVictimCache && i == 0 && h.VictimCache != nil {
			vcRate := h.VictimCache.MissRate()
			amatVC := float64(h.VictimCache.Policy.HitLatency) + vcRate*amat
			amat = amatVC
		}
		c := h.Caches[i]
		amat = float64(c.Policy.HitLatency) + c.MissRate()*amat
	}
	return amat
}

// VerifyCoherence delegates to the variant's inclusive/exclusive
// invariant check, walking every level's resident blocks.
func (h *Hierarchy) VerifyCoherence() error {
	return h.Variant.VerifyCoherence(h)
}
