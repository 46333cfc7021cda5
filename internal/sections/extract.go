// Package sections implements the section extractor of spec.md §4.5 (C5):
// from parse edges over a token batch, build each token's sorted connector
// set, hash it into a disjunct, and insert the (head word, disjunct hash)
// pair into the Section pool.
package sections

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/Voskan/assoc-engine/internal/atoms"
	"github.com/Voskan/assoc-engine/internal/htable"
	"github.com/Voskan/assoc-engine/internal/workers"
)

// ErrInputMalformed mirrors counting.ErrInputMalformed for this stage's own
// offset/length validation.
var ErrInputMalformed = errors.New("sections: offset+length exceeds flat token array")

// MaxConnectors is the fixed per-token connector cap of spec.md §4.5 step 2
// ("up to a fixed maximum (design constant, e.g. 32)"). Parse planarity
// bounds degree in well-formed inputs, so the cap is not expected to bind;
// when it does, the surplus connectors are silently dropped and counted in
// Result.DroppedConnectors (spec.md §9 open question (a)).
const MaxConnectors = 32

// connector is (partner word index, direction bit): direction 0 = left
// (partner position < self position), 1 = right.
type connector struct {
	partner uint32
	dir     uint8
}

// Result summarises the batch (spec.md §6 ExtractSections).
type Result struct {
	NewSections      uint32
	DroppedConnectors uint64
}

// Edges describes the parse-edge batch accompanying a token batch:
// edgeP1[e]/edgeP2[e] are *global* flat-token positions (not word indices,
// and not positions relative to their sentence) the e-th edge connects;
// edgeOffsets[s]/edgeCounts[s] delimit sentence s's slice of the edge
// arrays, mirroring offsets/lengths for tokens.
type Edges struct {
	P1          []uint32
	P2          []uint32
	EdgeOffsets []uint32
	EdgeCounts  []uint32
}

// ExtractSections runs the section extractor over a token batch and its
// accompanying edge list.
func ExtractSections(
	ctx context.Context,
	secs *atoms.Sections,
	tokens []uint32,
	offsets []uint32,
	lengths []uint32,
	edges Edges,
) (Result, error) {
	if len(offsets) != len(lengths) || len(edges.EdgeOffsets) != len(edges.EdgeCounts) {
		return Result{}, ErrInputMalformed
	}
	total := len(tokens)
	for s, off := range offsets {
		if int(off)+int(lengths[s]) > total {
			return Result{}, ErrInputMalformed
		}
	}

	before := secs.Len()
	var dropped atomic.Uint64

	sentenceOf := buildSentenceIndex(offsets, lengths, total)

	err := workers.Launch(ctx, total, func(t int) error {
		s := sentenceOf[t]
		if s < 0 {
			return nil
		}
		eOff := int(edges.EdgeOffsets[s])
		eCount := int(edges.EdgeCounts[s])

		var conns [MaxConnectors]connector
		n := 0
		for e := eOff; e < eOff+eCount; e++ {
			p1, p2 := int(edges.P1[e]), int(edges.P2[e])
			var partnerPos int
			switch t {
			case p1:
				partnerPos = p2
			case p2:
				partnerPos = p1
			default:
				continue // edge doesn't touch this position
			}
			if n >= MaxConnectors {
				dropped.Add(1)
				continue
			}
			dir := uint8(1) // right: partner position >= self
			if partnerPos < t {
				dir = 0 // left
			}
			conns[n] = connector{partner: tokens[partnerPos], dir: dir}
			n++
		}
		if n == 0 {
			return nil // spec.md §4.5 step 3: no connectors, no section
		}

		insertionSort(conns[:n])
		disjunctHash := hashConnectors(conns[:n])

		idx := secs.FindOrCreateOne(tokens[t], disjunctHash)
		if idx >= secs.Capacity() {
			return nil
		}
		secs.AddCount(idx, 1.0)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	after := secs.Len()
	return Result{NewSections: after - before, DroppedConnectors: dropped.Load()}, nil
}

// buildSentenceIndex maps every token position to its owning sentence
// index (or -1 for positions outside any declared sentence), once, so each
// of the `total` per-position workers does O(1) lookup instead of its own
// scan or binary search.
func buildSentenceIndex(offsets, lengths []uint32, total int) []int {
	idx := make([]int, total)
	for i := range idx {
		idx[i] = -1
	}
	for s, off := range offsets {
		o := int(off)
		l := int(lengths[s])
		for t := o; t < o+l && t < total; t++ {
			idx[t] = s
		}
	}
	return idx
}

// insertionSort orders connectors by direction bit ascending (left before
// right), then partner word index ascending — spec.md §4.5 step 4. Adequate
// given the small typical connector count.
func insertionSort(c []connector) {
	for i := 1; i < len(c); i++ {
		v := c[i]
		j := i - 1
		for j >= 0 && less(v, c[j]) {
			c[j+1] = c[j]
			j--
		}
		c[j+1] = v
	}
}

func less(a, b connector) bool {
	if a.dir != b.dir {
		return a.dir < b.dir
	}
	return a.partner < b.partner
}

// fnvOffset64 and fnvPrime64 are the standard FNV-1a 64-bit constants.
const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// hashConnectors computes FNV-1a over the sorted sequence's 64-bit
// encodings (partner << 1) | direction, per spec.md §4.5 step 5, remapped
// to 0 if it would collide with htable.EmptyKey.
func hashConnectors(c []connector) uint64 {
	h := fnvOffset64
	for _, conn := range c {
		enc := (uint64(conn.partner) << 1) | uint64(conn.dir)
		for shift := 0; shift < 64; shift += 8 {
			h ^= (enc >> shift) & 0xff
			h *= fnvPrime64
		}
	}
	if h == htable.EmptyKey {
		return 0
	}
	return h
}
