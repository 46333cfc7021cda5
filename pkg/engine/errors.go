package engine

// errors.go collects the session-level error values for the error kinds of
// spec.md §7 that are surfaced synchronously rather than flowing through as
// sentinel output values: BuildOption (missing or invalid device-code
// constant, detected at session open and fatal) and InputMalformed (already
// returned by the per-stage packages as their own sentinel errors, and
// re-exported here so callers of pkg/engine need import only this package).
//
// CapacityExceeded, ProbeExhausted, and NumericDegenerate never become Go
// errors: per spec.md §7 they flow through as sentinel indices
// (pool.SentinelIndex) or numeric defaults (0 for MI, 0 for cosine), exactly
// as the per-worker propagation policy requires.

import (
	"errors"

	"github.com/Voskan/assoc-engine/internal/counting"
	"github.com/Voskan/assoc-engine/internal/sections"
)

var (
	// ErrInvalidCapacity is the BuildOption kind: a pool or hash-table
	// capacity was zero or not a power of two.
	ErrInvalidCapacity = errors.New("engine: capacity must be a power of two and > 0")

	// ErrSessionClosed is returned by any session method called after
	// CloseSession.
	ErrSessionClosed = errors.New("engine: session is closed")

	// ErrCountingInputMalformed re-exports counting.ErrInputMalformed.
	ErrCountingInputMalformed = counting.ErrInputMalformed

	// ErrSectionsInputMalformed re-exports sections.ErrInputMalformed.
	ErrSectionsInputMalformed = sections.ErrInputMalformed
)
