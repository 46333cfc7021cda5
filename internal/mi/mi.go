// Package mi implements the mutual-information engine of spec.md §4.6 (C6):
// per-pair MI from counts and marginals, incremental dirty-only recompute,
// threshold stats, and a compacting filter.
package mi

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/Voskan/assoc-engine/internal/atoms"
	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
	"github.com/Voskan/assoc-engine/internal/workers"
)

// epsilon floors denominator factors to avoid infinities when marginals are
// transiently zero (spec.md §4.6 "Numerics").
const epsilon = 1e-10

// countFloor is the "count below a half is treated as empty" threshold of
// spec.md §3 invariant 3.
const countFloor = 0.5

// log2 computes log base 2 via natural log, per spec.md §4.6.
func log2(x float64) float64 { return math.Log(x) * (1 / math.Ln2) }

// Compute returns the mutual information for a single pair given its count
// and the two endpoint marginals, against a caller-supplied total event
// count N. Pairs below countFloor receive 0 — spec.md §4.6 ComputeAll.
func Compute(count, marginalA, marginalB, n float64) float64 {
	if count < countFloor {
		return 0
	}
	denom := marginalA * marginalB
	if denom < epsilon {
		denom = epsilon
	}
	ratio := (count * n) / denom
	if ratio < epsilon {
		ratio = epsilon
	}
	return log2(ratio)
}

// ComputeAll recomputes MI for every pair, regardless of dirty state
// (spec.md §6 ComputeMI mode "all").
func ComputeAll(ctx context.Context, words *atoms.Words, pairs *atoms.Pairs, n float64) error {
	return workers.Launch(ctx, int(pairs.Len()), func(i int) error {
		mi := Compute(pairs.Count[i], words.Count[pairs.WordA[i]], words.Count[pairs.WordB[i]], n)
		unsafehelpers.StoreFloat64(&pairs.MI[i], mi)
		return nil
	})
}

// ComputeDirty recomputes MI only for pairs whose dirty flag is set,
// clearing the flag afterward (spec.md §6 ComputeMI mode "dirty").
func ComputeDirty(ctx context.Context, words *atoms.Words, pairs *atoms.Pairs, n float64) error {
	return workers.Launch(ctx, int(pairs.Len()), func(i int) error {
		if atomic.LoadUint32(&pairs.Dirty[i]) != 1 {
			return nil
		}
		mi := Compute(pairs.Count[i], words.Count[pairs.WordA[i]], words.Count[pairs.WordB[i]], n)
		unsafehelpers.StoreFloat64(&pairs.MI[i], mi)
		atomic.StoreUint32(&pairs.Dirty[i], 0)
		return nil
	})
}

// Stats holds the three threshold counters of spec.md §4.6 Stats.
type Stats struct {
	WithCount      uint64
	WithPositiveMI uint64
	AboveThreshold uint64
}

// ComputeStats scans every pair and tallies the three counters against
// threshold. Initial zeroing is this function's own responsibility, since
// it always starts a fresh Stats value (spec.md §4.6 "Initial zeroing of
// counters is the caller's responsibility" is satisfied by never reusing
// one across calls).
func ComputeStats(ctx context.Context, pairs *atoms.Pairs, threshold float64) (Stats, error) {
	var withCount, withPositive, above atomic.Uint64
	err := workers.Launch(ctx, int(pairs.Len()), func(i int) error {
		if pairs.Count[i] >= countFloor {
			withCount.Add(1)
		}
		mi := pairs.MI[i]
		if mi > 0 {
			withPositive.Add(1)
		}
		if mi > threshold {
			above.Add(1)
		}
		return nil
	})
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		WithCount:      withCount.Load(),
		WithPositiveMI: withPositive.Load(),
		AboveThreshold: above.Load(),
	}, nil
}

// FilterResult is the compact (index, MI) output of spec.md §4.6 Filter.
type FilterResult struct {
	Indices []uint32
	MI      []float64
}

// Filter compacts pairs passing both the count (> 0.5) and MI (> threshold)
// tests into output arrays, capped by maxOutput.
func Filter(ctx context.Context, pairs *atoms.Pairs, threshold float64, maxOutput int) (FilterResult, error) {
	indices := make([]uint32, maxOutput)
	mis := make([]float64, maxOutput)
	var count atomic.Int64

	err := workers.Launch(ctx, int(pairs.Len()), func(i int) error {
		if pairs.Count[i] <= countFloor || pairs.MI[i] <= threshold {
			return nil
		}
		slot := count.Add(1) - 1
		if int(slot) >= maxOutput {
			return nil
		}
		indices[slot] = uint32(i)
		mis[slot] = pairs.MI[i]
		return nil
	})
	if err != nil {
		return FilterResult{}, err
	}
	n := int(count.Load())
	if n > maxOutput {
		n = maxOutput
	}
	return FilterResult{Indices: indices[:n], MI: mis[:n]}, nil
}
