package atoms

import (
	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/htable"
	"github.com/Voskan/assoc-engine/internal/pool"
	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
)

// Candidates is the transient CandidatePair pool used only by the cosine
// engine's AccumulateDotProducts stage (C7 stage 3 / spec.md §3). It is
// rebuilt from scratch on every CosineBuild call, so it carries no
// session-reset concerns of its own beyond being re-created per call.
type Candidates struct {
	table *htable.Table
	alloc *pool.Allocator

	WordA  []uint32
	WordB  []uint32
	Dot    []float64
	Cosine []float64
}

// NewCandidates constructs a Candidate pool sized for poolCapacity entries
// backed by a hash table of tableCapacity slots.
func NewCandidates(ar *arena.Arena, tableCapacity uint64, poolCapacity uint32) *Candidates {
	return &Candidates{
		table:  htable.New(ar, tableCapacity),
		alloc:  pool.NewAllocator(poolCapacity),
		WordA:  arena.MakeSlice[uint32](ar, int(poolCapacity)),
		WordB:  arena.MakeSlice[uint32](ar, int(poolCapacity)),
		Dot:    arena.MakeSlice[float64](ar, int(poolCapacity)),
		Cosine: arena.MakeSlice[float64](ar, int(poolCapacity)),
	}
}

// FindOrCreate resolves an ordered (self, peer) word-index pair — with
// self < peer already guaranteed by the cosine engine's chain-walk
// ordering — to a candidate index. Safe to call concurrently from many
// chain-walking workers (spec.md §5 "four call sites" for the
// duplicate-publication race, of which this is one).
func (c *Candidates) FindOrCreate(wordA, wordB uint32) uint32 {
	key := remapKeySentinel(CanonicalPairKey(wordA, wordB))
	return findOrCreate(c.table, c.alloc, key, func(idx uint32) {
		lo, hi := wordA, wordB
		if lo > hi {
			lo, hi = hi, lo
		}
		c.WordA[idx] = lo
		c.WordB[idx] = hi
	})
}

// Len reports the number of live candidates allocated so far.
func (c *Candidates) Len() uint32 { return c.alloc.Len() }

// Capacity returns the pool's fixed entry capacity.
func (c *Candidates) Capacity() uint32 { return c.alloc.Capacity() }

// AddDot atomically adds delta to candidate idx's accumulated dot product
// (C7 stage 3).
func (c *Candidates) AddDot(idx uint32, delta float64) {
	unsafehelpers.AddFloat64(&c.Dot[idx], delta)
}

// Reset zeroes the columns of every allocated candidate and clears the
// table and bump pointer, ready for the next CosineBuild.
func (c *Candidates) Reset() {
	for i := uint32(0); i < c.alloc.Len(); i++ {
		c.WordA[i], c.WordB[i], c.Dot[i], c.Cosine[i] = 0, 0, 0, 0
	}
	c.table.Reset()
	c.alloc.Reset()
}
