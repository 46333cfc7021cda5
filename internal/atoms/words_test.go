package atoms

import (
	"context"
	"sync"
	"testing"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/pool"
)

func newTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	ar := arena.New()
	t.Cleanup(ar.Free)
	return ar
}

func TestWordsFindOrCreateDedup(t *testing.T) {
	w := NewWords(newTestArena(t), 64, 32)
	ctx := context.Background()

	out, err := w.FindOrCreate(ctx, []uint64{10, 20, 10, 30, 20})
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if out[0] != out[2] {
		t.Fatalf("hash 10 should resolve to the same index both times, got %d and %d", out[0], out[2])
	}
	if out[1] != out[4] {
		t.Fatalf("hash 20 should resolve to the same index both times, got %d and %d", out[1], out[4])
	}
	if out[0] == out[1] || out[0] == out[3] || out[1] == out[3] {
		t.Fatalf("distinct hashes must resolve to distinct indices: %v", out)
	}
	if w.Len() != 3 {
		t.Fatalf("want 3 live words, got %d", w.Len())
	}
	for i, hash := range []uint64{10, 20, 30} {
		idx := out[0]
		if i == 1 {
			idx = out[1]
		} else if i == 2 {
			idx = out[3]
		}
		if w.Hash[idx] != hash {
			t.Fatalf("word %d should carry hash %d, got %d", idx, hash, w.Hash[idx])
		}
	}
}

func TestWordsConcurrentFindOrCreateSameHash(t *testing.T) {
	w := NewWords(newTestArena(t), 64, 32)
	const n = 16
	results := make([]uint32, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = w.findOrCreateOne(555)
		}(i)
	}
	wg.Wait()

	first := results[0]
	for i, r := range results {
		if r != first {
			t.Fatalf("all concurrent find-or-create calls for the same hash must agree: result[%d]=%d != result[0]=%d", i, r, first)
		}
	}
	if w.Len() != 1 {
		t.Fatalf("want exactly one live word after racing find-or-create, got %d", w.Len())
	}
}

func TestWordsCapacityExceededSentinel(t *testing.T) {
	w := NewWords(newTestArena(t), 4, 1)
	ctx := context.Background()
	out, err := w.FindOrCreate(ctx, []uint64{1, 2})
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	// The two inputs are resolved concurrently, so either may take the
	// single slot; exactly one must fit and the other must overflow.
	fits, overflows := out[0], out[1]
	if fits == pool.SentinelIndex {
		fits, overflows = overflows, fits
	}
	if fits != 0 {
		t.Fatalf("one word should fit within capacity 1 at index 0, got %v", out)
	}
	if overflows != pool.SentinelIndex {
		t.Fatalf("the other word should overflow the pool and return SentinelIndex, got %d", overflows)
	}
}

func TestWordsReset(t *testing.T) {
	w := NewWords(newTestArena(t), 64, 32)
	ctx := context.Background()
	w.FindOrCreate(ctx, []uint64{1, 2, 3})
	if w.Len() != 3 {
		t.Fatalf("want 3 before reset, got %d", w.Len())
	}
	w.Reset()
	if w.Len() != 0 {
		t.Fatalf("want 0 after reset, got %d", w.Len())
	}
	out, _ := w.FindOrCreate(ctx, []uint64{1})
	if out[0] != 0 {
		t.Fatalf("after reset, first allocated index should be 0 again, got %d", out[0])
	}
}
