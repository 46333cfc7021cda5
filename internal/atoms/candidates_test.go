package atoms

import "testing"

func TestCandidatesFindOrCreateCanonicalises(t *testing.T) {
	c := NewCandidates(newTestArena(t), 64, 32)

	i1 := c.FindOrCreate(5, 9)
	i2 := c.FindOrCreate(9, 5)
	if i1 != i2 {
		t.Fatalf("(5,9) and (9,5) must resolve to the same candidate, got %d and %d", i1, i2)
	}
	if c.WordA[i1] != 5 || c.WordB[i1] != 9 {
		t.Fatalf("want canonical (5,9), got (%d,%d)", c.WordA[i1], c.WordB[i1])
	}

	c.AddDot(i1, 2.5)
	c.AddDot(i1, 1.5)
	if c.Dot[i1] != 4.0 {
		t.Fatalf("want accumulated dot 4.0, got %v", c.Dot[i1])
	}
}
