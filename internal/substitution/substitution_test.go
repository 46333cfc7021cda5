package substitution

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/atoms"
)

func newFixture(t *testing.T) (*atoms.Words, *atoms.Pairs, *atoms.Sections) {
	t.Helper()
	ar := arena.New()
	t.Cleanup(ar.Free)
	return atoms.NewWords(ar, 64, 32), atoms.NewPairs(ar, 64, 32), atoms.NewSections(ar, 64, 32)
}

// TestSubstituteAndRebuildMergesClasses reproduces the canonical class
// substitution scenario: words 10 and 20 both map to class 100; pairs
// (10,30) count 5 and (20,30) count 3 must collapse into one pair
// (30,100) with merged count 8.
func TestSubstituteAndRebuildMergesClasses(t *testing.T) {
	words, pairs, secs := newFixture(t)
	ctx := context.Background()

	wordIdx, err := words.FindOrCreate(ctx, []uint64{10, 20, 30})
	require.NoError(t, err)
	w10, w20, w30 := wordIdx[0], wordIdx[1], wordIdx[2]

	p1 := pairs.FindOrCreateOne(w10, w30)
	pairs.AddCount(p1, 5)
	p2 := pairs.FindOrCreateOne(w20, w30)
	pairs.AddCount(p2, 3)

	require.NoError(t, AssignClasses(ctx, words, []uint32{w10, w20}, []uint32{100, 100}))

	result, err := SubstituteAndRebuild(ctx, words, pairs, secs)
	require.NoError(t, err)

	assert.EqualValues(t, 2, result.Changed, "both pairs substitute class 100 for one endpoint")
	assert.EqualValues(t, 0, result.Eliminated)
	assert.EqualValues(t, 1, result.Merged)

	var survivors int
	var total float64
	for i := 0; i < int(pairs.Len()); i++ {
		if pairs.Count[i] >= 0.5 {
			survivors++
			total = pairs.Count[i]
			assert.ElementsMatch(t, []uint32{w30, 100}, []uint32{pairs.WordA[i], pairs.WordB[i]})
		}
	}
	assert.Equal(t, 1, survivors)
	assert.Equal(t, 8.0, total)
}

func TestSubstitutePairsEliminatesSelfCollapse(t *testing.T) {
	words, pairs, _ := newFixture(t)
	ctx := context.Background()
	wordIdx, err := words.FindOrCreate(ctx, []uint64{1, 2})
	require.NoError(t, err)

	idx := pairs.FindOrCreateOne(wordIdx[0], wordIdx[1])
	pairs.AddCount(idx, 5)

	require.NoError(t, AssignClasses(ctx, words, wordIdx, []uint32{50, 50}))

	changed, eliminated, err := SubstitutePairs(ctx, words, pairs)
	require.NoError(t, err)
	assert.EqualValues(t, 0, changed)
	assert.EqualValues(t, 1, eliminated)
	assert.Equal(t, 0.0, pairs.Count[idx])
	assert.Equal(t, 0.0, pairs.MI[idx])
}

func TestSubstituteSectionWordsRewritesHead(t *testing.T) {
	words, _, secs := newFixture(t)
	ctx := context.Background()
	_, err := words.FindOrCreate(ctx, []uint64{1})
	require.NoError(t, err)

	idx := secs.FindOrCreateOne(0, 0xF00D)
	require.NoError(t, AssignClasses(ctx, words, []uint32{0}, []uint32{99}))

	changed, err := SubstituteSectionWords(ctx, words, secs)
	require.NoError(t, err)
	assert.EqualValues(t, 1, changed)
	assert.EqualValues(t, 99, secs.HeadWord[idx])
}

func TestAssignClassesZeroMeansUnclassified(t *testing.T) {
	words, _, _ := newFixture(t)
	ctx := context.Background()
	_, err := words.FindOrCreate(ctx, []uint64{1})
	require.NoError(t, err)
	require.NoError(t, AssignClasses(ctx, words, []uint32{0}, []uint32{0}))
	assert.EqualValues(t, 0, words.Class[0])
}
