//go:build goexperiment.arenas
// +build goexperiment.arenas

package arena

import "testing"

func TestNewValueIsZeroed(t *testing.T) {
	a := New()
	defer a.Free()
	p := NewValue[uint64](a)
	if *p != 0 {
		t.Fatalf("*p = %d, want 0", *p)
	}
	*p = 42
	if *p != 42 {
		t.Fatalf("*p = %d, want 42", *p)
	}
}

func TestMakeSliceLengthAndCapacity(t *testing.T) {
	a := New()
	defer a.Free()
	s := MakeSlice[uint32](a, 16)
	if len(s) != 16 || cap(s) != 16 {
		t.Fatalf("len=%d cap=%d, want 16/16", len(s), cap(s))
	}
	s[0] = 1
	s[15] = 2
	if s[0] != 1 || s[15] != 2 {
		t.Fatal("slice contents not writable/readable as expected")
	}
}

func TestAllocBytesCopiesNotAliases(t *testing.T) {
	a := New()
	defer a.Free()
	src := []byte("hash-chain")
	dst := AllocBytes(a, src)
	if string(dst) != string(src) {
		t.Fatalf("got %q, want %q", dst, src)
	}
	src[0] = 'X'
	if dst[0] == 'X' {
		t.Fatal("AllocBytes must copy, not alias, the source buffer")
	}
}
