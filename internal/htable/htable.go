// Package htable implements the lock-free, fixed-capacity, open-addressing
// hash table described in spec.md §4.1: 64-bit keys, 32-bit values, linear
// probing, a splitmix-style finalizer, and the two-phase claim/publish
// protocol that lets concurrent find-or-create callers race safely on the
// same key (spec.md §4.3, §5 "Duplicate-publication race").
//
// Every operation below is wait-free except a contended Claim, which is
// lock-free: some worker always makes progress, though an individual caller
// can in principle be starved by the probe cap.
package htable

import (
	"math"
	"sync/atomic"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
)

// EmptyKey and EmptyValue are the sentinel bit patterns from spec.md §6:
// "empty-key sentinel is 0xFFFFFFFFFFFFFFFF, empty-value sentinel is
// 0xFFFFFFFF". Callers must never insert EmptyKey as a domain key.
const (
	EmptyKey   uint64 = math.MaxUint64
	EmptyValue uint32 = math.MaxUint32
)

// Status reports the outcome of a Claim or Lookup call.
type Status int

const (
	// StatusWon means this call's compare-and-swap placed the key; the
	// caller owns publication of the value at the returned slot.
	StatusWon Status = iota
	// StatusExisted means the key was already present (either fully
	// published or observed mid-publication). Claim returns the slot
	// without waiting for the value; the caller uses WaitValue for that.
	StatusExisted
	// StatusMiss is returned by Lookup when the key is absent.
	StatusMiss
	// StatusFull means linear probing exhausted the table without
	// finding a slot — spec.md §7 ProbeExhausted / CapacityExceeded.
	StatusFull
)

// Table is a fixed-capacity open-addressed map from uint64 to uint32. The
// capacity must be a power of two; callers are responsible for sizing it so
// the load factor stays at or below 0.5 (spec.md §3 invariant 6).
type Table struct {
	keys []uint64
	vals []uint32
	mask uint64
}

// New allocates a table of the given power-of-two capacity inside ar,
// filling keys with EmptyKey and values with EmptyValue per spec.md §3
// "Lifecycle".
func New(ar *arena.Arena, capacity uint64) *Table {
	if !unsafehelpers.IsPowerOfTwo(uintptr(capacity)) {
		panic("htable: capacity must be a power of two")
	}
	t := &Table{
		keys: arena.MakeSlice[uint64](ar, int(capacity)),
		vals: arena.MakeSlice[uint32](ar, int(capacity)),
		mask: capacity - 1,
	}
	t.Reset()
	return t
}

// Reset refills the table with sentinels. Only safe between sessions or
// stages, never concurrently with other operations.
func (t *Table) Reset() {
	for i := range t.keys {
		t.keys[i] = EmptyKey
		t.vals[i] = EmptyValue
	}
}

// Capacity returns the table's fixed slot count.
func (t *Table) Capacity() int { return len(t.keys) }

// finalize is the splitmix64 finalizer: three xor-shift-multiply rounds,
// exactly as spec.md §4.1 specifies.
func finalize(k uint64) uint64 {
	k ^= k >> 30
	k *= 0xbf58476d1ce4e5b9
	k ^= k >> 27
	k *= 0x94d049bb133111eb
	k ^= k >> 31
	return k
}

func (t *Table) startSlot(key uint64) uint64 { return finalize(key) & t.mask }

// Lookup returns the value for key, or (0, StatusMiss) if absent. Probing
// stops at the first EMPTY_KEY slot in the chain. A present key whose value
// is EmptyValue (tombstoned by Delete, or claimed but not yet published) is
// reported as (EmptyValue, StatusExisted) without waiting.
func (t *Table) Lookup(key uint64) (uint32, Status) {
	slot := t.startSlot(key)
	cap64 := uint64(len(t.keys))
	for i := uint64(0); i < cap64; i++ {
		s := (slot + i) & t.mask
		k := atomic.LoadUint64(&t.keys[s])
		if k == EmptyKey {
			return 0, StatusMiss
		}
		if k == key {
			return atomic.LoadUint32(&t.vals[s]), StatusExisted
		}
	}
	return 0, StatusMiss
}

// waitValue spins on slot until a non-sentinel value is published. Bounded
// by construction: the creator follows bump → initialise → fence → publish
// (spec.md §4.3), so the spin always terminates.
func (t *Table) waitValue(slot uint64) uint32 {
	for {
		v := atomic.LoadUint32(&t.vals[slot])
		if v != EmptyValue {
			return v
		}
	}
}

// Claim attempts to atomically place key in the table. If this call wins
// the compare-and-swap on an EMPTY_KEY slot, it returns (slot, StatusWon)
// and the caller MUST call Publish(slot, value) (or PublishFailed) soon
// after — other callers racing on the same key will block in WaitValue
// until that happens. If the key already existed (claimed by this call or
// a concurrent one), Claim returns (slot, StatusExisted) immediately
// without waiting; the caller must then call WaitValue(slot) itself if it
// needs the published index, per spec.md §5's duplicate-publication race.
func (t *Table) Claim(key uint64) (slot uint64, status Status) {
	if key == EmptyKey {
		panic("htable: EmptyKey must never be inserted")
	}
	start := t.startSlot(key)
	cap64 := uint64(len(t.keys))
	for i := uint64(0); i < cap64; i++ {
		s := (start + i) & t.mask
		k := atomic.LoadUint64(&t.keys[s])
		if k == key {
			return s, StatusExisted
		}
		if k == EmptyKey {
			if atomic.CompareAndSwapUint64(&t.keys[s], EmptyKey, key) {
				return s, StatusWon
			}
			// Lost the race for this slot: re-read what landed there.
			k = atomic.LoadUint64(&t.keys[s])
			if k == key {
				return s, StatusExisted
			}
			// Someone else's key claimed this slot; keep probing.
		}
	}
	return 0, StatusFull
}

// Publish stores value into slot. Must only be called by the winner of the
// Claim that returned that slot. value must never equal EmptyValue or
// createFailed — use PublishFailed to signal a failed creation instead.
func (t *Table) Publish(slot uint64, value uint32) {
	atomic.StoreUint32(&t.vals[slot], value)
}

// createFailed is a second, distinct sentinel a Claim winner publishes when
// it could not actually allocate a pool entry for the key it claimed (e.g.
// the pool, as opposed to the table, is exhausted). It must differ from
// EmptyValue so that WaitValue's spin — which only loops while it observes
// EmptyValue — terminates instead of waiting forever for a publication that
// will never carry a real index.
const createFailed uint32 = EmptyValue - 1

// PublishFailed marks slot as claimed-but-uncreatable. Waiters unblock
// immediately and IsFailed reports true for the value they observe.
func (t *Table) PublishFailed(slot uint64) {
	atomic.StoreUint32(&t.vals[slot], createFailed)
}

// IsFailed reports whether a value observed via WaitValue/Lookup represents
// a failed creation rather than a real pool index.
func IsFailed(v uint32) bool { return v == createFailed }

// WaitValue exposes waitValue for callers that received StatusExisted from
// Claim and need the value (it may still be mid-publication).
func (t *Table) WaitValue(slot uint64) uint32 { return t.waitValue(slot) }

// Exchange atomically stores newValue at slot and returns the prior value.
// Unlike Publish/Claim, Exchange carries no ownership precondition: any
// caller holding a valid slot (from Claim, regardless of StatusWon or
// StatusExisted) may call it. This is the primitive behind the cosine
// engine's disjunct chains (spec.md §4.7 stage 2, §9): every exchange swaps
// in a consistent new head and hands back a consistent old one, so a chain
// built purely from exchanges is always valid, with no compare-and-swap
// retry loop needed.
func (t *Table) Exchange(slot uint64, newValue uint32) uint32 {
	return atomic.SwapUint32(&t.vals[slot], newValue)
}

// Insert is the spec.md §4.1 Insert primitive: place v at key's slot,
// creating the slot if absent. Returns StatusFull on probe exhaustion.
func (t *Table) Insert(key, v uint64) Status {
	slot, status := t.Claim(key)
	if status == StatusFull {
		return StatusFull
	}
	t.Publish(slot, uint32(v))
	return status
}

// Delete tombstones key: the key is retained so later probes over the same
// chain still succeed, but the value becomes EMPTY_VALUE.
func (t *Table) Delete(key uint64) bool {
	slot := t.startSlot(key)
	cap64 := uint64(len(t.keys))
	for i := uint64(0); i < cap64; i++ {
		s := (slot + i) & t.mask
		k := atomic.LoadUint64(&t.keys[s])
		if k == EmptyKey {
			return false
		}
		if k == key {
			atomic.StoreUint32(&t.vals[s], EmptyValue)
			return true
		}
	}
	return false
}

// InsertOrIncrement implements spec.md §4.1 InsertOrIncrement: like Insert,
// but the value is atomically incremented rather than assigned. Value slots
// must have been initialised to zero rather than EmptyValue for this table
// to be used this way; callers needing both semantics on the same table
// must not mix Insert/Claim-Publish with InsertOrIncrement.
func (t *Table) InsertOrIncrement(key uint64, delta uint32) (uint32, Status) {
	slot, status := t.Claim(key)
	if status == StatusFull {
		return 0, StatusFull
	}
	if status == StatusWon {
		t.Publish(slot, 0)
	}
	return atomic.AddUint32(&t.vals[slot], delta), status
}

// Pair is a (key, value) tuple returned by Iterate.
type Pair struct {
	Key   uint64
	Value uint32
}

// Iterate walks every slot exactly once and appends non-empty,
// non-tombstoned entries to out via a single pass. Workers in the original
// design each own one slot and append through a shared atomic counter; a
// sequential scan is the direct, observably-equivalent Go translation since
// Iterate is always run host-side between stages, never concurrently with
// mutation.
func (t *Table) Iterate(out []Pair) []Pair {
	for i, k := range t.keys {
		if k == EmptyKey {
			continue
		}
		v := t.vals[i]
		if v == EmptyValue {
			continue
		}
		out = append(out, Pair{Key: k, Value: v})
	}
	return out
}

// IterateParallel is the fork-join variant used when the host wants to
// drain a large table without a host round-trip per slot. Each worker owns
// a disjoint slot range and appends through counter, matching spec.md §4.1's
// "one worker per slot... through an atomic counter" description exactly.
func (t *Table) IterateParallel(launch func(n int, fn func(i int) error) error) ([]Pair, error) {
	var counter atomic.Int64
	cap := len(t.keys)
	buf := make([]Pair, cap)
	err := launch(cap, func(i int) error {
		k := atomic.LoadUint64(&t.keys[i])
		if k == EmptyKey {
			return nil
		}
		v := atomic.LoadUint32(&t.vals[i])
		if v == EmptyValue {
			return nil
		}
		idx := counter.Add(1) - 1
		buf[idx] = Pair{Key: k, Value: v}
		return nil
	})
	if err != nil {
		return nil, err
	}
	n := counter.Load()
	return buf[:n], nil
}
