// Package atoms implements the three atom pools of spec.md §4.3 — Word,
// Pair, Section — each a hash table (internal/htable) paired with a
// bump-pointer pool (internal/pool). All three share one algorithm,
// factored here exactly as spec.md §9 suggests: "factor the algorithm
// generically over a capability set {canonicalise, initialise,
// read-payload}, instantiated once per pool".
package atoms

import (
	"context"

	"github.com/Voskan/assoc-engine/internal/htable"
	"github.com/Voskan/assoc-engine/internal/pool"
	"github.com/Voskan/assoc-engine/internal/workers"
)

// findOrCreate is the shared two-phase claim/alloc/publish algorithm. init
// is called exactly once per newly allocated index, before the value is
// published — this is the "initialise, fence, publish" ordering of
// spec.md §4.3. It returns pool.SentinelIndex on table or pool exhaustion.
func findOrCreate(table *htable.Table, alloc *pool.Allocator, key uint64, init func(idx uint32)) uint32 {
	slot, status := table.Claim(key)
	switch status {
	case htable.StatusFull:
		return pool.SentinelIndex
	case htable.StatusExisted:
		v := table.WaitValue(slot)
		if htable.IsFailed(v) {
			return pool.SentinelIndex
		}
		return v
	default: // htable.StatusWon
		idx, ok := alloc.Alloc()
		if !ok {
			table.PublishFailed(slot)
			return pool.SentinelIndex
		}
		init(idx)
		table.Publish(slot, idx)
		return idx
	}
}

// findOrCreateBatch fans a batch of keys out across the fork-join worker
// pool, writing the resulting index for key i into out[i].
func findOrCreateBatch(ctx context.Context, keys []uint64, one func(key uint64) uint32) ([]uint32, error) {
	out := make([]uint32, len(keys))
	err := batchLaunch(ctx, len(keys), func(i int) {
		out[i] = one(keys[i])
	})
	return out, err
}

// batchLaunch adapts the fork-join worker pool to callbacks that cannot
// themselves fail — every atom-pool find-or-create call is total over its
// input, so there is nothing for an individual worker to report besides the
// sentinel index already threaded through findOrCreate.
func batchLaunch(ctx context.Context, n int, fn func(i int)) error {
	return workers.Launch(ctx, n, func(i int) error {
		fn(i)
		return nil
	})
}
