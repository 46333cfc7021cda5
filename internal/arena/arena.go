//go:build goexperiment.arenas
// +build goexperiment.arenas

// Package arena wraps Go's experimental `arena` package and hides its
// verbose low-level API behind a tiny, stable surface suited to the needs of
// assoc-engine's pools. We expose only the primitives required:
//   • `New()` – construct an arena.
//   • `Free()` – release all memory at once (O(1)).
//   • `NewValue[T]()` – allocate a single value of type T.
//   • `MakeSlice[T]()` – allocate a slice of T with length==cap.
//
// The wrapper is intentionally minimal: **no pooling, no stats, no GC hooks**
// — such concerns belong to upper layers (internal/pool, pkg/engine).
// Keeping it thin also simplifies future migration should the upstream
// `arena` API change.
//
// Concurrency
// -----------
// arena.Arena is *not* thread-safe for allocation; in assoc-engine the
// bump-pointer allocator in internal/pool claims an index atomically and
// only the claiming worker writes into the slot, so concurrent callers never
// race on the same memory word. Growing or freeing an Arena, however, is
// exclusively a host-orchestrator operation run between stages.
//
// ⚠️  DISCLAIMER  ----------------------------------------------
// Using arenas bypasses the garbage collector; ensure objects allocated
// inside never escape to the heap **after** Free() is called. In
// assoc-engine this is safe because a session's pool arrays are read only
// through weak index handles (spec §3 "Lifecycle"); once CloseSession or a
// session reset frees the arena, those handles are no longer valid anyway.
// -------------------------------------------------------------

package arena

import (
	"arena" // standard library experimental package
	"unsafe"
)

// Arena is a thin new-type wrapper that prevents external packages from
// directly depending on `arena.Arena`, giving us the freedom to switch to a
// different allocator if needed.
type Arena struct{ ar arena.Arena }

// New constructs an empty arena ready for allocations.
func New() *Arena {
	return &Arena{ar: *arena.NewArena()}
}

// Free releases **all** memory allocated in the arena. After the call, any
// pointer previously returned from New/MakeSlice becomes invalid.
func (a *Arena) Free() {
	a.ar.Free()
}

// NewValue allocates zero-initialised T inside the arena and returns a
// pointer to it. The pointer is valid until Free() on the arena.
func NewValue[T any](a *Arena) *T { return arena.New[T](&a.ar) }

// MakeSlice allocates a slice of length==cap==n inside the arena and returns
// it. The backing array is owned by the arena and released on Free(). This
// is the primitive the pool layer uses to build each entity pool's
// struct-of-arrays columns.
func MakeSlice[T any](a *Arena, n int) []T { return arena.MakeSlice[T](&a.ar, n, n) }

// AllocBytes copies buf into the arena and returns a reference to the new
// memory. The section extractor does not use it: its connector scratch
// space is a fixed-size per-worker array.
func AllocBytes(a *Arena, buf []byte) []byte {
	dst := arena.MakeSlice[byte](&a.ar, len(buf), len(buf))
	copy(dst, buf)
	return dst
}

// UnsafePointer converts an arena-backed pointer to unsafe.Pointer so it can
// be stored inside generic pool bookkeeping. Usage is rare; provided for
// completeness.
func UnsafePointer[T any](p *T) unsafe.Pointer { return unsafe.Pointer(p) }
