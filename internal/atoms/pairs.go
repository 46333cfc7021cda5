package atoms

import (
	"context"
	"sync/atomic"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/htable"
	"github.com/Voskan/assoc-engine/internal/pool"
	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
)

// CanonicalPairKey implements spec.md §3 invariant 5: "Pair canonical key =
// (min << 32) | max". wa and wb may arrive in either order.
func CanonicalPairKey(wa, wb uint32) uint64 {
	lo, hi := wa, wb
	if lo > hi {
		lo, hi = hi, lo
	}
	return uint64(lo)<<32 | uint64(hi)
}

// Pairs is the Pair pool of spec.md §3: an unordered binary relation
// between two words, canonically ordered so word-a <= word-b.
type Pairs struct {
	table *htable.Table
	alloc *pool.Allocator

	WordA []uint32  // canonical min endpoint
	WordB []uint32  // canonical max endpoint
	Count []float64 // co-occurrence count
	MI    []float64 // mutual information, 0 until computed
	Dirty []uint32  // 1 = MI stale since last count update
}

// NewPairs constructs a Pair pool sized for poolCapacity live pairs backed
// by a hash table of tableCapacity slots.
func NewPairs(ar *arena.Arena, tableCapacity uint64, poolCapacity uint32) *Pairs {
	return &Pairs{
		table: htable.New(ar, tableCapacity),
		alloc: pool.NewAllocator(poolCapacity),
		WordA: arena.MakeSlice[uint32](ar, int(poolCapacity)),
		WordB: arena.MakeSlice[uint32](ar, int(poolCapacity)),
		Count: arena.MakeSlice[float64](ar, int(poolCapacity)),
		MI:    arena.MakeSlice[float64](ar, int(poolCapacity)),
		Dirty: arena.MakeSlice[uint32](ar, int(poolCapacity)),
	}
}

// FindOrCreateOne resolves a single (word-a, word-b) occurrence to a pair
// index. Exported so the counting pipeline (C4) and class-substitution
// pipeline (C8) can call it per-worker without going through the batch
// fork-join wrapper a second time.
func (p *Pairs) FindOrCreateOne(wa, wb uint32) uint32 { return p.findOrCreateOne(wa, wb) }

func (p *Pairs) findOrCreateOne(wa, wb uint32) uint32 {
	lo, hi := wa, wb
	if lo > hi {
		lo, hi = hi, lo
	}
	key := remapKeySentinel(CanonicalPairKey(lo, hi))
	return findOrCreate(p.table, p.alloc, key, func(idx uint32) {
		p.WordA[idx] = lo
		p.WordB[idx] = hi
		// Count, MI, Dirty start zero.
	})
}

// FindOrCreate resolves parallel word-a/word-b batches to pair indices
// (spec.md §6 FindOrCreatePairs). The two input slices must have equal
// length.
func (p *Pairs) FindOrCreate(ctx context.Context, wa, wb []uint32) ([]uint32, error) {
	out := make([]uint32, len(wa))
	return out, batchLaunch(ctx, len(wa), func(i int) {
		out[i] = p.findOrCreateOne(wa[i], wb[i])
	})
}

// Len reports the number of live pairs allocated so far.
func (p *Pairs) Len() uint32 { return p.alloc.Len() }

// Capacity returns the pool's fixed entry capacity.
func (p *Pairs) Capacity() uint32 { return p.alloc.Capacity() }

// AddCount atomically adds delta to pair idx's count and marks it dirty —
// the counting pipeline's per-pair update (spec.md §4.4 step 5).
func (p *Pairs) AddCount(idx uint32, delta float64) {
	unsafehelpers.AddFloat64(&p.Count[idx], delta)
	atomic.StoreUint32(&p.Dirty[idx], 1)
}

// Rebuild clears the hash table and re-inserts every live pair under its
// current canonical key, merging duplicates that have collapsed onto the
// same key. Used exclusively by the class-substitution pipeline (C8 stage
// 3); see internal/substitution.
func (p *Pairs) Rebuild(ctx context.Context) (merged uint32, err error) {
	p.table.Reset()
	n := int(p.Len())
	var mergedCount atomic.Uint32
	err = batchLaunch(ctx, n, func(i int) {
		if p.Count[i] < 0.5 {
			return
		}
		key := remapKeySentinel(CanonicalPairKey(p.WordA[i], p.WordB[i]))
		slot, status := p.table.Claim(key)
		if status == htable.StatusFull {
			return
		}
		if status == htable.StatusWon {
			p.table.Publish(slot, uint32(i))
			return
		}
		primary := p.table.WaitValue(slot)
		if htable.IsFailed(primary) || primary == uint32(i) {
			return
		}
		// Non-primary: fold this pair's count into the primary and zero
		// itself out (spec.md §4.8 stage 3).
		unsafehelpers.AddFloat64(&p.Count[primary], p.Count[i])
		atomic.StoreUint32(&p.Dirty[primary], 1)
		p.Count[i] = 0
		p.MI[i] = 0
		atomic.StoreUint32(&p.Dirty[i], 0)
		mergedCount.Add(1)
	})
	return mergedCount.Load(), err
}

// Reset refills the hash table with sentinels, zeroes the columns of every
// allocated entry and rewinds the bump pointer, discarding every live pair.
// A per-stage reset primitive exposed by the host orchestrator (spec.md
// §4.9) between experiments.
func (p *Pairs) Reset() {
	for i := uint32(0); i < p.alloc.Len(); i++ {
		p.WordA[i], p.WordB[i], p.Count[i], p.MI[i], p.Dirty[i] = 0, 0, 0, 0, 0
	}
	p.table.Reset()
	p.alloc.Reset()
}
