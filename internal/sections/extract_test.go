package sections

import (
	"context"
	"testing"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/atoms"
)

func newFixture(t *testing.T) *atoms.Sections {
	t.Helper()
	ar := arena.New()
	t.Cleanup(ar.Free)
	return atoms.NewSections(ar, 64, 32)
}

// TestExtractThreeWordChain builds one section per token of a three-token
// sentence connected left-to-right (a chain parse), verifying each middle
// token gets two connectors (one left, one right) and the endpoints get one.
func TestExtractThreeWordChain(t *testing.T) {
	secs := newFixture(t)
	tokens := []uint32{10, 20, 30}
	offsets := []uint32{0}
	lengths := []uint32{3}
	edges := Edges{
		P1:          []uint32{0, 1},
		P2:          []uint32{1, 2},
		EdgeOffsets: []uint32{0},
		EdgeCounts:  []uint32{2},
	}

	res, err := ExtractSections(context.Background(), secs, tokens, offsets, lengths, edges)
	if err != nil {
		t.Fatalf("ExtractSections: %v", err)
	}
	if res.NewSections != 3 {
		t.Fatalf("want 3 sections (one per token, each with a distinct disjunct), got %d", res.NewSections)
	}
	if res.DroppedConnectors != 0 {
		t.Fatalf("want 0 dropped connectors, got %d", res.DroppedConnectors)
	}
}

func TestExtractNoConnectorsProducesNoSection(t *testing.T) {
	secs := newFixture(t)
	tokens := []uint32{10}
	offsets := []uint32{0}
	lengths := []uint32{1}
	edges := Edges{EdgeOffsets: []uint32{0}, EdgeCounts: []uint32{0}}

	res, err := ExtractSections(context.Background(), secs, tokens, offsets, lengths, edges)
	if err != nil {
		t.Fatalf("ExtractSections: %v", err)
	}
	if res.NewSections != 0 {
		t.Fatalf("a token with no parse edges should produce no section, got %d", res.NewSections)
	}
}

func TestExtractConnectorCapDropsSurplus(t *testing.T) {
	secs := newFixture(t)
	n := MaxConnectors + 5
	tokens := make([]uint32, n+1)
	for i := range tokens {
		tokens[i] = uint32(i + 1)
	}
	var p1, p2 []uint32
	for i := 1; i <= n; i++ {
		p1 = append(p1, 0)
		p2 = append(p2, uint32(i))
	}
	edges := Edges{P1: p1, P2: p2, EdgeOffsets: []uint32{0}, EdgeCounts: []uint32{uint32(n)}}

	res, err := ExtractSections(context.Background(), secs, tokens, []uint32{0}, []uint32{uint32(len(tokens))}, edges)
	if err != nil {
		t.Fatalf("ExtractSections: %v", err)
	}
	if res.DroppedConnectors != uint64(n-MaxConnectors) {
		t.Fatalf("want %d dropped connectors, got %d", n-MaxConnectors, res.DroppedConnectors)
	}
}

func TestExtractInputMalformed(t *testing.T) {
	secs := newFixture(t)
	tokens := []uint32{1, 2}
	_, err := ExtractSections(context.Background(), secs, tokens, []uint32{0}, []uint32{10}, Edges{EdgeOffsets: []uint32{0}, EdgeCounts: []uint32{0}})
	if err != ErrInputMalformed {
		t.Fatalf("want ErrInputMalformed, got %v", err)
	}
}
