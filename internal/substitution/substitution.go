// Package substitution implements the class-substitution pipeline of
// spec.md §4.8 (C8): batch class assignment, in-place pair endpoint
// rewriting with recanonicalisation, hash-table rebuild merging collapsed
// duplicates, and section head-word rewrite.
package substitution

import (
	"context"
	"sync/atomic"

	"github.com/Voskan/assoc-engine/internal/atoms"
	"github.com/Voskan/assoc-engine/internal/workers"
)

// AssignClasses is C8 stage 1: one worker per (word index, class id)
// assignment, writing class_id[word_idx] = new_class_id. A zero class id
// means unclassified.
func AssignClasses(ctx context.Context, words *atoms.Words, wordIndices []uint32, classIDs []uint32) error {
	return workers.Launch(ctx, len(wordIndices), func(i int) error {
		words.SetClass(wordIndices[i], classIDs[i])
		return nil
	})
}

// substituteEndpoint is the (word index, class id) -> effective index used
// by SubstitutePairs (SubstituteSectionWords applies the same rule to the
// head word inline, reading words.Class directly): a non-zero class id
// for a word stands in for that word as a synthetic index in pair and
// section keys, per spec.md §4.8's "treated as a synthetic word index in a
// reserved higher range".
func substituteEndpoint(words *atoms.Words, wordIdx uint32) uint32 {
	if class := words.Class[wordIdx]; class != 0 {
		return class
	}
	return wordIdx
}

// SubstitutePairs is C8 stage 2: one worker per pair, substituting each
// endpoint with its class id (if non-zero) and recanonicalising. Pairs that
// collapse to a self-pair are logically eliminated (count and MI zeroed,
// dirty cleared); pairs whose endpoints actually changed are marked dirty.
// The pair hash table is stale afterward until Rebuild runs.
func SubstitutePairs(ctx context.Context, words *atoms.Words, pairs *atoms.Pairs) (changed, eliminated uint64, err error) {
	var changedCount, eliminatedCount atomic.Uint64
	err = workers.Launch(ctx, int(pairs.Len()), func(i int) error {
		origA, origB := pairs.WordA[i], pairs.WordB[i]
		subA := substituteEndpoint(words, origA)
		subB := substituteEndpoint(words, origB)
		if subA == origA && subB == origB {
			return nil
		}

		lo, hi := subA, subB
		if lo > hi {
			lo, hi = hi, lo
		}

		if lo == hi {
			pairs.WordA[i] = lo
			pairs.WordB[i] = hi
			pairs.Count[i] = 0
			pairs.MI[i] = 0
			atomic.StoreUint32(&pairs.Dirty[i], 0)
			eliminatedCount.Add(1)
			return nil
		}

		pairs.WordA[i] = lo
		pairs.WordB[i] = hi
		atomic.StoreUint32(&pairs.Dirty[i], 1)
		changedCount.Add(1)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return changedCount.Load(), eliminatedCount.Load(), nil
}

// SubstituteSectionWords is C8 stage 4: one worker per section, replacing
// the head word with its class id when non-zero and different from the
// current head. Connector words inside disjuncts are left untouched —
// sections are expected to be re-extracted from fresh input after
// substitution (spec.md §4.8 stage 4).
func SubstituteSectionWords(ctx context.Context, words *atoms.Words, secs *atoms.Sections) (changed uint64, err error) {
	var changedCount atomic.Uint64
	err = workers.Launch(ctx, int(secs.Len()), func(i int) error {
		head := secs.HeadWord[i]
		class := words.Class[head]
		if class == 0 || class == head {
			return nil
		}
		secs.SetHeadWord(uint32(i), class)
		changedCount.Add(1)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return changedCount.Load(), nil
}

// Result is the SubstituteAndRebuild summary of spec.md §6: "summary
// counters: changed, eliminated, merged".
type Result struct {
	Changed         uint64
	Eliminated      uint64
	Merged          uint32
	SectionsChanged uint64
}

// SubstituteAndRebuild runs C8 stages 2-4 against the class assignments
// already written by a prior AssignClasses call: substitute pair endpoints,
// rebuild the pair hash table to merge collapsed duplicates, then rewrite
// section head words.
func SubstituteAndRebuild(ctx context.Context, words *atoms.Words, pairs *atoms.Pairs, secs *atoms.Sections) (Result, error) {
	changed, eliminated, err := SubstitutePairs(ctx, words, pairs)
	if err != nil {
		return Result{}, err
	}
	merged, err := pairs.Rebuild(ctx)
	if err != nil {
		return Result{}, err
	}
	sectionsChanged, err := SubstituteSectionWords(ctx, words, secs)
	if err != nil {
		return Result{}, err
	}
	return Result{
		Changed:         changed,
		Eliminated:      eliminated,
		Merged:          merged,
		SectionsChanged: sectionsChanged,
	}, nil
}
