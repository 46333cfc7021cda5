// Package workers provides the fork-join primitive every pipeline stage in
// assoc-engine is built from: a deterministic sequence of barriered parallel
// launches, each launch being a fork-join over a 1-D index space (spec.md
// §2, §5). Go has no GPU kernel-launch model, so a "launch" here is a bounded
// pool of goroutines partitioning [0, n) into contiguous chunks; the "fence"
// between stages is simply the errgroup barrier returning.
package workers

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Launch runs fn(i) for every i in [0, n), fanned out across
// runtime.GOMAXPROCS(0) goroutines (capped at n). It returns the first
// non-nil error reported by any worker, cancelling the shared context so
// sibling workers can observe it — though per spec.md §5 "Cancellation and
// timeouts", no stage relies on mid-flight cancellation for correctness;
// this only stops wasted work after a malformed-input rejection.
func Launch(ctx context.Context, n int, fn func(i int) error) error {
	if n <= 0 {
		return nil
	}
	workerCount := runtime.GOMAXPROCS(0)
	if workerCount > n {
		workerCount = n
	}
	if workerCount < 1 {
		workerCount = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workerCount - 1) / workerCount

	for w := 0; w < workerCount; w++ {
		start := w * chunk
		if start >= n {
			break
		}
		end := start + chunk
		if end > n {
			end = n
		}
		g.Go(func() error {
			for i := start; i < end; i++ {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				if err := fn(i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return g.Wait()
}
