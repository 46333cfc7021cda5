package htable

import (
	"sync"
	"testing"

	"github.com/Voskan/assoc-engine/internal/arena"
)

func newTestArena(t *testing.T) *arena.Arena {
	t.Helper()
	ar := arena.New()
	t.Cleanup(ar.Free)
	return ar
}

func TestClaimPublishLookup(t *testing.T) {
	tab := New(newTestArena(t), 16)

	slot, status := tab.Claim(42)
	if status != StatusWon {
		t.Fatalf("first claim: got status %v, want StatusWon", status)
	}
	tab.Publish(slot, 7)

	v, status := tab.Lookup(42)
	if status != StatusExisted || v != 7 {
		t.Fatalf("lookup after publish: got (%d, %v), want (7, StatusExisted)", v, status)
	}
}

func TestClaimExisting(t *testing.T) {
	tab := New(newTestArena(t), 16)
	slot, status := tab.Claim(1)
	if status != StatusWon {
		t.Fatalf("want StatusWon, got %v", status)
	}
	tab.Publish(slot, 100)

	slot2, status2 := tab.Claim(1)
	if status2 != StatusExisted {
		t.Fatalf("want StatusExisted on re-claim, got %v", status2)
	}
	if v := tab.WaitValue(slot2); v != 100 {
		t.Fatalf("want 100, got %d", v)
	}
}

func TestLookupMiss(t *testing.T) {
	tab := New(newTestArena(t), 16)
	if _, status := tab.Lookup(99); status != StatusMiss {
		t.Fatalf("want StatusMiss, got %v", status)
	}
}

func TestProbeExhaustion(t *testing.T) {
	tab := New(newTestArena(t), 4)
	for i := uint64(0); i < 4; i++ {
		slot, status := tab.Claim(i + 1)
		if status != StatusWon {
			t.Fatalf("claim %d: want StatusWon, got %v", i, status)
		}
		tab.Publish(slot, uint32(i))
	}
	if _, status := tab.Claim(999); status != StatusFull {
		t.Fatalf("want StatusFull once every slot is taken, got %v", status)
	}
}

func TestDeleteTombstones(t *testing.T) {
	tab := New(newTestArena(t), 16)
	slot, _ := tab.Claim(5)
	tab.Publish(slot, 55)

	if !tab.Delete(5) {
		t.Fatal("delete of present key should report true")
	}
	if _, status := tab.Lookup(5); status != StatusExisted {
		t.Fatalf("tombstoned key should still report StatusExisted with EmptyValue, got %v", status)
	}
	if !tab.Delete(5) {
		t.Fatal("deleting an already-tombstoned value should still find the key")
	}
}

func TestExchangeReturnsPriorValue(t *testing.T) {
	tab := New(newTestArena(t), 16)
	slot, _ := tab.Claim(3)
	tab.Publish(slot, 1)

	old := tab.Exchange(slot, 2)
	if old != 1 {
		t.Fatalf("want prior value 1, got %d", old)
	}
	if v := tab.WaitValue(slot); v != 2 {
		t.Fatalf("want new value 2, got %d", v)
	}
}

func TestInsertOrIncrement(t *testing.T) {
	tab := New(newTestArena(t), 16)
	v, status := tab.InsertOrIncrement(10, 1)
	if status != StatusWon || v != 1 {
		t.Fatalf("first increment: got (%d, %v), want (1, StatusWon)", v, status)
	}
	v, status = tab.InsertOrIncrement(10, 1)
	if status != StatusExisted || v != 2 {
		t.Fatalf("second increment: got (%d, %v), want (2, StatusExisted)", v, status)
	}
}

func TestConcurrentClaimSameKeyHasOneWinner(t *testing.T) {
	tab := New(newTestArena(t), 64)
	const n = 32
	var wg sync.WaitGroup
	wins := make([]bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, status := tab.Claim(777)
			wins[i] = status == StatusWon
		}(i)
	}
	wg.Wait()

	var winCount int
	for _, w := range wins {
		if w {
			winCount++
		}
	}
	if winCount != 1 {
		t.Fatalf("expected exactly one StatusWon among %d concurrent claims, got %d", n, winCount)
	}
}

func TestIterate(t *testing.T) {
	tab := New(newTestArena(t), 16)
	for i := uint64(1); i <= 3; i++ {
		slot, _ := tab.Claim(i)
		tab.Publish(slot, uint32(i*10))
	}
	pairs := tab.Iterate(nil)
	if len(pairs) != 3 {
		t.Fatalf("want 3 entries, got %d", len(pairs))
	}
}
