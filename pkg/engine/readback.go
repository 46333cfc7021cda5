package engine

// readback.go implements spec.md §6 ReadbackPool: "pool identifier, range
// -> SoA columns into host-provided buffers". Each pool gets its own typed
// snapshot method rather than one interface{}-returning call, matching the
// teacher's preference for concrete, allocation-obvious accessors over
// reflection-driven generality.

// WordsSnapshot is a copy of a slice of the Word pool's SoA columns.
type WordsSnapshot struct {
	Hash   []uint64
	Count  []float64
	Class  []uint32
	NormSq []float64
}

// ReadbackWords copies the Word pool's columns for indices [start, end)
// into a fresh snapshot. end is clamped to the pool's live length.
func (s *Session) ReadbackWords(start, end int) WordsSnapshot {
	end = clampEnd(end, int(s.words.Len()))
	if start < 0 || start >= end {
		return WordsSnapshot{}
	}
	return WordsSnapshot{
		Hash:   append([]uint64(nil), s.words.Hash[start:end]...),
		Count:  append([]float64(nil), s.words.Count[start:end]...),
		Class:  append([]uint32(nil), s.words.Class[start:end]...),
		NormSq: append([]float64(nil), s.words.NormSq[start:end]...),
	}
}

// PairsSnapshot is a copy of a slice of the Pair pool's SoA columns.
type PairsSnapshot struct {
	WordA []uint32
	WordB []uint32
	Count []float64
	MI    []float64
	Dirty []uint32
}

// ReadbackPairs copies the Pair pool's columns for indices [start, end).
func (s *Session) ReadbackPairs(start, end int) PairsSnapshot {
	end = clampEnd(end, int(s.pairs.Len()))
	if start < 0 || start >= end {
		return PairsSnapshot{}
	}
	return PairsSnapshot{
		WordA: append([]uint32(nil), s.pairs.WordA[start:end]...),
		WordB: append([]uint32(nil), s.pairs.WordB[start:end]...),
		Count: append([]float64(nil), s.pairs.Count[start:end]...),
		MI:    append([]float64(nil), s.pairs.MI[start:end]...),
		Dirty: append([]uint32(nil), s.pairs.Dirty[start:end]...),
	}
}

// SectionsSnapshot is a copy of a slice of the Section pool's SoA columns.
type SectionsSnapshot struct {
	HeadWord     []uint32
	DisjunctHash []uint64
	Count        []float64
}

// ReadbackSections copies the Section pool's columns for indices
// [start, end). NextInChain is a cosine-engine-internal navigational field
// and is deliberately not part of the public snapshot.
func (s *Session) ReadbackSections(start, end int) SectionsSnapshot {
	end = clampEnd(end, int(s.sections.Len()))
	if start < 0 || start >= end {
		return SectionsSnapshot{}
	}
	return SectionsSnapshot{
		HeadWord:     append([]uint32(nil), s.sections.HeadWord[start:end]...),
		DisjunctHash: append([]uint64(nil), s.sections.DisjunctHash[start:end]...),
		Count:        append([]float64(nil), s.sections.Count[start:end]...),
	}
}

// CandidatesSnapshot is a copy of a slice of the candidate pool's SoA
// columns, populated by the most recent CosineBuild call.
type CandidatesSnapshot struct {
	WordA  []uint32
	WordB  []uint32
	Dot    []float64
	Cosine []float64
}

// ReadbackCandidates copies the candidate pool's columns for indices
// [start, end).
func (s *Session) ReadbackCandidates(start, end int) CandidatesSnapshot {
	c := s.cosine.Candidates()
	end = clampEnd(end, int(c.Len()))
	if start < 0 || start >= end {
		return CandidatesSnapshot{}
	}
	return CandidatesSnapshot{
		WordA:  append([]uint32(nil), c.WordA[start:end]...),
		WordB:  append([]uint32(nil), c.WordB[start:end]...),
		Dot:    append([]float64(nil), c.Dot[start:end]...),
		Cosine: append([]float64(nil), c.Cosine[start:end]...),
	}
}

func clampEnd(end, liveLen int) int {
	if end > liveLen {
		return liveLen
	}
	return end
}
