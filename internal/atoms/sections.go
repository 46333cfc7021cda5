package atoms

import (
	"context"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/htable"
	"github.com/Voskan/assoc-engine/internal/pool"
	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
)

// goldenRatioConstant64 is the fixed mixing constant from spec.md §3
// invariant 5 ("head-word × a fixed golden constant"). This is the
// well-known 64-bit golden-ratio fractional constant used throughout
// splitmix/fibonacci-hashing schemes.
const goldenRatioConstant64 uint64 = 0x9e3779b97f4a7c15

// SectionKey implements spec.md §4.3's Section pool key: disjunct-hash xor
// (head-word × golden-ratio-constant), remapped to 0 if it would collide
// with EmptyKey.
func SectionKey(headWord uint32, disjunctHash uint64) uint64 {
	mixed := disjunctHash ^ (uint64(headWord) * goldenRatioConstant64)
	return remapKeySentinel(mixed)
}

// Sections is the Section pool of spec.md §3: a head word together with a
// disjunct (hashed multiset of typed connectors) and an observation count.
// NextInChain backs the cosine engine's disjunct reverse-index chains (C7
// stage 2) and is otherwise unused.
type Sections struct {
	table *htable.Table
	alloc *pool.Allocator

	HeadWord     []uint32
	DisjunctHash []uint64
	Count        []float64
	NextInChain  []uint32 // pool.SentinelIndex when not part of a chain
}

// NewSections constructs a Section pool sized for poolCapacity live
// sections backed by a hash table of tableCapacity slots.
func NewSections(ar *arena.Arena, tableCapacity uint64, poolCapacity uint32) *Sections {
	s := &Sections{
		table:        htable.New(ar, tableCapacity),
		alloc:        pool.NewAllocator(poolCapacity),
		HeadWord:     arena.MakeSlice[uint32](ar, int(poolCapacity)),
		DisjunctHash: arena.MakeSlice[uint64](ar, int(poolCapacity)),
		Count:        arena.MakeSlice[float64](ar, int(poolCapacity)),
		NextInChain:  arena.MakeSlice[uint32](ar, int(poolCapacity)),
	}
	for i := range s.NextInChain {
		s.NextInChain[i] = pool.SentinelIndex
	}
	return s
}

// FindOrCreateOne resolves a single (head word, disjunct hash) pair to a
// section index. Exported for the section extractor's per-worker use.
func (s *Sections) FindOrCreateOne(headWord uint32, disjunctHash uint64) uint32 {
	return s.findOrCreateOne(headWord, disjunctHash)
}

func (s *Sections) findOrCreateOne(headWord uint32, disjunctHash uint64) uint32 {
	key := SectionKey(headWord, disjunctHash)
	return findOrCreate(s.table, s.alloc, key, func(idx uint32) {
		s.HeadWord[idx] = headWord
		s.DisjunctHash[idx] = disjunctHash
		s.NextInChain[idx] = pool.SentinelIndex
	})
}

// FindOrCreate resolves parallel head-word/disjunct-hash batches to
// section indices.
func (s *Sections) FindOrCreate(ctx context.Context, headWords []uint32, disjunctHashes []uint64) ([]uint32, error) {
	out := make([]uint32, len(headWords))
	return out, batchLaunch(ctx, len(headWords), func(i int) {
		out[i] = s.findOrCreateOne(headWords[i], disjunctHashes[i])
	})
}

// Len reports the number of live sections allocated so far.
func (s *Sections) Len() uint32 { return s.alloc.Len() }

// Capacity returns the pool's fixed entry capacity.
func (s *Sections) Capacity() uint32 { return s.alloc.Capacity() }

// AddCount atomically adds delta to section idx's observation count.
func (s *Sections) AddCount(idx uint32, delta float64) {
	unsafehelpers.AddFloat64(&s.Count[idx], delta)
}

// SetHeadWord overwrites section idx's head word. Used only by the class
// substitution pipeline's SubstituteSectionWords stage (C8 stage 4).
func (s *Sections) SetHeadWord(idx, headWord uint32) {
	s.HeadWord[idx] = headWord
}

// Reset refills the hash table with sentinels, zeroes the columns of every
// allocated entry and rewinds the bump pointer, discarding every live
// section. A per-stage reset primitive exposed by the host orchestrator
// (spec.md §4.9) between experiments.
func (s *Sections) Reset() {
	for i := uint32(0); i < s.alloc.Len(); i++ {
		s.HeadWord[i], s.DisjunctHash[i], s.Count[i] = 0, 0, 0
	}
	s.table.Reset()
	s.alloc.Reset()
	for i := range s.NextInChain {
		s.NextInChain[i] = pool.SentinelIndex
	}
}
