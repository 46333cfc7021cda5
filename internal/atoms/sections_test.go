package atoms

import (
	"context"
	"testing"

	"github.com/Voskan/assoc-engine/internal/pool"
)

func TestSectionsFindOrCreateDedup(t *testing.T) {
	s := NewSections(newTestArena(t), 64, 32)
	ctx := context.Background()

	out, err := s.FindOrCreate(ctx, []uint32{1, 1, 2}, []uint64{0xABC, 0xABC, 0xABC})
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if out[0] != out[1] {
		t.Fatalf("identical (head, disjunct) pairs must dedup, got %d and %d", out[0], out[1])
	}
	if out[0] == out[2] {
		t.Fatal("different head words with the same disjunct must not collide")
	}
	if s.NextInChain[out[0]] != pool.SentinelIndex {
		t.Fatalf("a fresh section's NextInChain should start as SentinelIndex, got %d", s.NextInChain[out[0]])
	}
}

func TestSectionsResetClearsChainLinks(t *testing.T) {
	s := NewSections(newTestArena(t), 64, 32)
	idx := s.FindOrCreateOne(1, 0xDEAD)
	s.NextInChain[idx] = 7

	s.Reset()
	for i, v := range s.NextInChain {
		if v != pool.SentinelIndex {
			t.Fatalf("NextInChain[%d] should be reset to SentinelIndex, got %d", i, v)
		}
	}
}
