package unsafehelpers

import (
	"sync"
	"sync/atomic"
	"testing"
	"unsafe"
)

func TestBytesToStringRoundTrip(t *testing.T) {
	b := []byte("the quick brown fox")
	s := BytesToString(b)
	if s != "the quick brown fox" {
		t.Fatalf("got %q", s)
	}
	b[0] = 'T'
	if s[0] != 'T' {
		t.Fatal("BytesToString must alias the backing array, not copy it")
	}
}

func TestStringToBytesRoundTrip(t *testing.T) {
	s := "disjunct-section-pair"
	b := StringToBytes(s)
	if string(b) != s {
		t.Fatalf("got %q", b)
	}
	if len(b) != len(s) {
		t.Fatalf("len mismatch: %d vs %d", len(b), len(s))
	}
}

func TestPtrSliceViewsUnderlyingMemory(t *testing.T) {
	arr := [5]uint32{10, 20, 30, 40, 50}
	s := PtrSlice(&arr[0], len(arr))
	if len(s) != 5 {
		t.Fatalf("len = %d, want 5", len(s))
	}
	for i, v := range arr {
		if s[i] != v {
			t.Fatalf("s[%d] = %d, want %d", i, s[i], v)
		}
	}
	s[2] = 999
	if arr[2] != 999 {
		t.Fatal("PtrSlice must view the same memory, not a copy")
	}
}

func TestByteSliceFromLength(t *testing.T) {
	arr := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	b := ByteSliceFrom(unsafe.Pointer(&arr[0]), 8)
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	for i := range arr {
		if b[i] != arr[i] {
			t.Fatalf("b[%d] = %d, want %d", i, b[i], arr[i])
		}
	}
}

func TestAlignUp(t *testing.T) {
	cases := []struct{ x, align, want uintptr }{
		{0, 8, 0},
		{1, 8, 8},
		{7, 8, 8},
		{8, 8, 8},
		{9, 8, 16},
		{3, 4, 4},
	}
	for _, c := range cases {
		if got := AlignUp(c.x, c.align); got != c.want {
			t.Fatalf("AlignUp(%d, %d) = %d, want %d", c.x, c.align, got, c.want)
		}
	}
}

func TestIsPowerOfTwo(t *testing.T) {
	yes := []uintptr{1, 2, 4, 8, 1024, 1 << 20}
	no := []uintptr{0, 3, 5, 6, 100, 1023}
	for _, v := range yes {
		if !IsPowerOfTwo(v) {
			t.Fatalf("IsPowerOfTwo(%d) = false, want true", v)
		}
	}
	for _, v := range no {
		if IsPowerOfTwo(v) {
			t.Fatalf("IsPowerOfTwo(%d) = true, want false", v)
		}
	}
}

func TestAddFloat64Accumulates(t *testing.T) {
	var acc float64
	if got := AddFloat64(&acc, 2.5); got != 2.5 {
		t.Fatalf("first add returned %v, want 2.5", got)
	}
	if got := AddFloat64(&acc, 1.5); got != 4.0 {
		t.Fatalf("second add returned %v, want 4.0", got)
	}
	if acc != 4.0 {
		t.Fatalf("acc = %v, want 4.0", acc)
	}
}

func TestAddFloat64ConcurrentSumsExactly(t *testing.T) {
	var acc float64
	const goroutines = 64
	const perGoroutine = 200
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for g := 0; g < goroutines; g++ {
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				AddFloat64(&acc, 1.0)
			}
		}()
	}
	wg.Wait()
	want := float64(goroutines * perGoroutine)
	if LoadFloat64(&acc) != want {
		t.Fatalf("acc = %v, want %v (lost update under concurrent AddFloat64)", acc, want)
	}
}

func TestStoreFloat64AndLoad(t *testing.T) {
	var v float64
	StoreFloat64(&v, 3.14159)
	if LoadFloat64(&v) != 3.14159 {
		t.Fatalf("LoadFloat64 = %v, want 3.14159", v)
	}
}

func TestLoadFloat64AgreesWithAtomicBitPattern(t *testing.T) {
	var v float64
	StoreFloat64(&v, 42.0)
	bits := atomic.LoadUint64((*uint64)(unsafe.Pointer(&v)))
	if bits == 0 {
		t.Fatal("expected non-zero bit pattern for 42.0")
	}
	if LoadFloat64(&v) != 42.0 {
		t.Fatal("LoadFloat64 must reinterpret the same bit pattern written by StoreFloat64")
	}
}
