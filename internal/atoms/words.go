package atoms

import (
	"context"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/htable"
	"github.com/Voskan/assoc-engine/internal/pool"
	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
)

// Words is the Word pool of spec.md §3: an atomic symbol referenced by a
// stable 32-bit index, keyed on a caller-supplied 64-bit content hash.
// Columns are struct-of-arrays, each backed by the session arena.
type Words struct {
	table *htable.Table
	alloc *pool.Allocator

	Hash   []uint64  // content hash, verbatim from the find-or-create key
	Count  []float64 // observation count (marginal), spec.md §4.4
	Class  []uint32  // class id; 0 = unclassified
	NormSq []float64 // squared L2 norm over the word's disjunct vector (C7)
}

// NewWords constructs a Word pool sized for poolCapacity live words backed
// by a hash table of tableCapacity slots (must be a power of two).
func NewWords(ar *arena.Arena, tableCapacity uint64, poolCapacity uint32) *Words {
	return &Words{
		table:  htable.New(ar, tableCapacity),
		alloc:  pool.NewAllocator(poolCapacity),
		Hash:   arena.MakeSlice[uint64](ar, int(poolCapacity)),
		Count:  arena.MakeSlice[float64](ar, int(poolCapacity)),
		Class:  arena.MakeSlice[uint32](ar, int(poolCapacity)),
		NormSq: arena.MakeSlice[float64](ar, int(poolCapacity)),
	}
}

// remapKeySentinel replaces a caller-supplied key that happens to equal
// EmptyKey with 0, per spec.md §6: "callers must ensure no domain hash
// equals the key sentinel (use value 0 as a replacement)". Applied
// defensively here rather than trusted to every caller.
func remapKeySentinel(k uint64) uint64 {
	if k == htable.EmptyKey {
		return 0
	}
	return k
}

// findOrCreateOne resolves a single content hash to a pool index.
func (w *Words) findOrCreateOne(hash uint64) uint32 {
	key := remapKeySentinel(hash)
	return findOrCreate(w.table, w.alloc, key, func(idx uint32) {
		w.Hash[idx] = key
		// Count, Class, NormSq start zero — the arena zero-initialises the
		// backing slice, satisfying spec.md §4.2's "zero-initialised...
		// before any reader can observe a live index" requirement.
	})
}

// FindOrCreate resolves a batch of content hashes to word indices,
// fanning the work out across the fork-join worker pool (spec.md §6
// FindOrCreateWords).
func (w *Words) FindOrCreate(ctx context.Context, hashes []uint64) ([]uint32, error) {
	return findOrCreateBatch(ctx, hashes, w.findOrCreateOne)
}

// Len reports the number of live words allocated so far.
func (w *Words) Len() uint32 { return w.alloc.Len() }

// Capacity returns the pool's fixed entry capacity.
func (w *Words) Capacity() uint32 { return w.alloc.Capacity() }

// AddMarginal atomically adds delta to word idx's observation count —
// called by the counting pipeline (C4) once per pair endpoint occurrence.
func (w *Words) AddMarginal(idx uint32, delta float64) {
	unsafehelpers.AddFloat64(&w.Count[idx], delta)
}

// AddNormSq atomically adds delta to word idx's squared-norm accumulator —
// called by the cosine engine's ComputeWordNorms stage (C7 stage 1).
func (w *Words) AddNormSq(idx uint32, delta float64) {
	unsafehelpers.AddFloat64(&w.NormSq[idx], delta)
}

// SetClass writes a class id for word idx. Used by AssignClasses (C8).
func (w *Words) SetClass(idx, classID uint32) {
	w.Class[idx] = classID
}

// Reset refills the hash table with sentinels, zeroes the columns of every
// allocated entry and rewinds the bump pointer, discarding every live word.
// A per-stage reset primitive exposed by the host orchestrator (spec.md
// §4.9) between experiments.
func (w *Words) Reset() {
	for i := uint32(0); i < w.alloc.Len(); i++ {
		w.Hash[i], w.Count[i], w.Class[i], w.NormSq[i] = 0, 0, 0, 0
	}
	w.table.Reset()
	w.alloc.Reset()
}
