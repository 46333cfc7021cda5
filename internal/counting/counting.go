// Package counting implements the sliding-window pair enumeration pipeline
// of spec.md §4.4 (C4): one worker per token position, emitting co-occurring
// pairs within a window and accumulating counts and word marginals.
package counting

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"github.com/Voskan/assoc-engine/internal/atoms"
	"github.com/Voskan/assoc-engine/internal/workers"
)

// ErrInputMalformed is spec.md §7's InputMalformed kind: an offset plus
// length that exceeds the flat token array. The stage rejects the launch
// without mutating any pool.
var ErrInputMalformed = errors.New("counting: offset+length exceeds flat token array")

// linearScanThreshold is the cutover point between the two sentence-locate
// strategies spec.md §4.4 step 1 names: "linear scan for batches with few
// sentences, binary search over offsets for larger batches".
const linearScanThreshold = 64

// Result summarises the batch's effect, per spec.md §6 CountSentences.
type Result struct {
	NewPairs  uint32
	NewEvents uint64
}

// CountSentences runs the counting pipeline over a flat sentence batch.
// tokens holds word-pool indices; offsets[s]/lengths[s] delimit sentence s
// within tokens. window is clamped per-sentence as spec.md §4.4 specifies.
func CountSentences(
	ctx context.Context,
	words *atoms.Words,
	pairs *atoms.Pairs,
	tokens []uint32,
	offsets []uint32,
	lengths []uint32,
	window int,
) (Result, error) {
	if window < 1 {
		window = 1
	}
	if len(offsets) != len(lengths) {
		return Result{}, ErrInputMalformed
	}
	total := len(tokens)
	for s, off := range offsets {
		if int(off)+int(lengths[s]) > total {
			return Result{}, ErrInputMalformed
		}
	}

	before := pairs.Len()
	var events atomic.Uint64

	locate := newLocator(offsets, lengths)

	err := workers.Launch(ctx, total, func(t int) error {
		s, posInSentence, ok := locate(t)
		if !ok {
			return nil
		}
		sentenceLen := int(lengths[s])
		maxJ := window
		if remaining := sentenceLen - 1 - posInSentence; remaining < maxJ {
			maxJ = remaining
		}
		for j := 1; j <= maxJ; j++ {
			other := t + j
			wa, wb := tokens[t], tokens[other]
			if wa == wb {
				continue // spec.md §4.4 step 3: self-pairs dropped
			}
			idx := pairs.FindOrCreateOne(wa, wb)
			if idx >= pairs.Capacity() {
				continue // CapacityExceeded/ProbeExhausted: sentinel, skip silently
			}
			pairs.AddCount(idx, 1.0)
			words.AddMarginal(wa, 1.0)
			words.AddMarginal(wb, 1.0)
			events.Add(1)
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	after := pairs.Len()
	return Result{NewPairs: after - before, NewEvents: events.Load()}, nil
}

// locator resolves a global token position to (sentence index, position
// within that sentence), choosing linear scan or binary search by batch
// size per spec.md §4.4 step 1.
func newLocator(offsets, lengths []uint32) func(t int) (sentence, posInSentence int, ok bool) {
	if len(offsets) <= linearScanThreshold {
		return func(t int) (int, int, bool) {
			for s, off := range offsets {
				o := int(off)
				l := int(lengths[s])
				if t >= o && t < o+l {
					return s, t - o, true
				}
			}
			return 0, 0, false
		}
	}
	return func(t int) (int, int, bool) {
		// Largest offset <= t.
		s := sort.Search(len(offsets), func(i int) bool { return int(offsets[i]) > t }) - 1
		if s < 0 || s >= len(offsets) {
			return 0, 0, false
		}
		o := int(offsets[s])
		l := int(lengths[s])
		if t < o || t >= o+l {
			return 0, 0, false
		}
		return s, t - o, true
	}
}
