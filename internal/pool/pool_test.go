package pool

import "testing"

func TestAllocSequential(t *testing.T) {
	a := NewAllocator(4)
	for i := uint32(0); i < 4; i++ {
		idx, ok := a.Alloc()
		if !ok || idx != i {
			t.Fatalf("alloc %d: got (%d, %v), want (%d, true)", i, idx, ok, i)
		}
	}
}

func TestAllocExhaustion(t *testing.T) {
	a := NewAllocator(2)
	a.Alloc()
	a.Alloc()
	idx, ok := a.Alloc()
	if ok || idx != SentinelIndex {
		t.Fatalf("exhausted alloc: got (%d, %v), want (SentinelIndex, false)", idx, ok)
	}
	if !a.Exhausted() {
		t.Fatal("want Exhausted() true after overshooting capacity")
	}
}

func TestLenClampedToCapacity(t *testing.T) {
	a := NewAllocator(2)
	a.Alloc()
	a.Alloc()
	a.Alloc() // overshoots
	if got := a.Len(); got != 2 {
		t.Fatalf("Len() should clamp to capacity 2, got %d", got)
	}
}

func TestReset(t *testing.T) {
	a := NewAllocator(2)
	a.Alloc()
	a.Reset()
	idx, ok := a.Alloc()
	if !ok || idx != 0 {
		t.Fatalf("after reset, first alloc should be 0, got (%d, %v)", idx, ok)
	}
}
