// Package engine is the host orchestrator of spec.md §4.9 (C9): it owns
// buffer lifecycle, build-option propagation, and the sequencing of
// stages for a session, exposing exactly the batch command interface of
// spec.md §6 to callers. No stage in this package touches device state
// outside the Session it was called on (spec.md §9 "no stage reads state
// outside the handle").
package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/atoms"
	"github.com/Voskan/assoc-engine/internal/cosine"
	"github.com/Voskan/assoc-engine/internal/counting"
	"github.com/Voskan/assoc-engine/internal/mi"
	"github.com/Voskan/assoc-engine/internal/pool"
	"github.com/Voskan/assoc-engine/internal/sections"
	"github.com/Voskan/assoc-engine/internal/substitution"
)

// MIMode selects ComputeMI's recompute scope (spec.md §6 ComputeMI).
type MIMode int

const (
	// MIModeAll recomputes mutual information for every pair.
	MIModeAll MIMode = iota
	// MIModeDirty recomputes only pairs whose dirty flag is set.
	MIModeDirty
)

// Session is an open engine session: every pool and table it owns, plus
// the event counter that ComputeMI's N parameter is derived from. A Session
// is safe for concurrent use by multiple callers issuing stage calls, but
// stage calls against the same pool must not themselves overlap in time
// (spec.md §5 "between stages, the host inserts a device-side fence" — in
// this single-process translation, the caller is that fence).
type Session struct {
	mu     sync.Mutex
	closed bool

	ar *arena.Arena

	words    *atoms.Words
	pairs    *atoms.Pairs
	sections *atoms.Sections
	cosine   *cosine.Engine

	totalEvents uint64

	logger  *zap.Logger
	metrics metricsSink
}

// OpenSession allocates device buffers and hash tables for a new session,
// per spec.md §6 OpenSession. Capacities default to a small fixed size and
// are overridden via With*Capacity options; an invalid (zero, or non-power-
// of-two for a hash table) capacity is a BuildOption error, detected here
// and fatal to the call (spec.md §7).
func OpenSession(opts ...Option) (*Session, error) {
	cfg := defaultConfig()
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	ar := arena.New()
	s := &Session{
		ar:       ar,
		words:    atoms.NewWords(ar, cfg.wordTableCapacity, cfg.wordPoolCapacity),
		pairs:    atoms.NewPairs(ar, cfg.pairTableCapacity, cfg.pairPoolCapacity),
		sections: atoms.NewSections(ar, cfg.sectionTableCapacity, cfg.sectionPoolCapacity),
		logger:   cfg.logger,
		metrics:  newMetricsSink(cfg.registry),
	}
	s.cosine = cosine.NewEngine(ar, cfg.chainTableCapacity, cfg.candidatePoolCapacity, cfg.candidateTableCapacity, cosine.Config{
		MinNormSq:             cfg.cosineMinNormSq,
		MaxChainLen:           cfg.cosineMaxChainLen,
		DisableRareWordFilter: cfg.cosineDisableRareFilter,
	})

	s.logger.Debug("session opened",
		zap.Uint64("word_table_capacity", cfg.wordTableCapacity),
		zap.Uint64("pair_table_capacity", cfg.pairTableCapacity),
		zap.Uint64("section_table_capacity", cfg.sectionTableCapacity),
	)
	return s, nil
}

func (s *Session) checkOpen() error {
	if s.closed {
		return ErrSessionClosed
	}
	return nil
}

// FindOrCreateWords resolves a batch of 64-bit content hashes to word
// indices (spec.md §6 FindOrCreateWords).
func (s *Session) FindOrCreateWords(ctx context.Context, hashes []uint64) ([]uint32, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.metrics.incStage("find_or_create_words")
	out, err := s.words.FindOrCreate(ctx, hashes)
	if err != nil {
		return nil, err
	}
	s.countSentinels("words", out)
	s.metrics.setPoolLive("words", float64(s.words.Len()))
	return out, nil
}

// FindOrCreatePairs resolves parallel word-index arrays to pair indices
// (spec.md §6 FindOrCreatePairs).
func (s *Session) FindOrCreatePairs(ctx context.Context, wa, wb []uint32) ([]uint32, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.metrics.incStage("find_or_create_pairs")
	out, err := s.pairs.FindOrCreate(ctx, wa, wb)
	if err != nil {
		return nil, err
	}
	s.countSentinels("pairs", out)
	s.metrics.setPoolLive("pairs", float64(s.pairs.Len()))
	return out, nil
}

// CountSentences runs the counting pipeline (C4) over a flat sentence batch
// (spec.md §6 CountSentences), folding its new-event count into the
// session's running total event counter used by ComputeMI's N.
func (s *Session) CountSentences(ctx context.Context, tokens, offsets, lengths []uint32, window int) (counting.Result, error) {
	if err := s.checkOpen(); err != nil {
		return counting.Result{}, err
	}
	s.metrics.incStage("count_sentences")
	res, err := counting.CountSentences(ctx, s.words, s.pairs, tokens, offsets, lengths, window)
	if err != nil {
		s.logger.Error("count_sentences failed", zap.Error(err))
		return counting.Result{}, err
	}
	s.mu.Lock()
	s.totalEvents += res.NewEvents
	s.mu.Unlock()
	s.metrics.setPoolLive("pairs", float64(s.pairs.Len()))
	s.metrics.setPoolLive("words", float64(s.words.Len()))
	return res, nil
}

// ExtractSections runs the section extractor (C5) over a token batch and
// its accompanying edge list (spec.md §6 ExtractSections).
func (s *Session) ExtractSections(ctx context.Context, tokens, offsets, lengths []uint32, edges sections.Edges) (sections.Result, error) {
	if err := s.checkOpen(); err != nil {
		return sections.Result{}, err
	}
	s.metrics.incStage("extract_sections")
	res, err := sections.ExtractSections(ctx, s.sections, tokens, offsets, lengths, edges)
	if err != nil {
		s.logger.Error("extract_sections failed", zap.Error(err))
		return sections.Result{}, err
	}
	s.metrics.setPoolLive("sections", float64(s.sections.Len()))
	return res, nil
}

// TotalEvents returns the running total event counter accumulated by every
// CountSentences call so far — the N that ComputeMI expects.
func (s *Session) TotalEvents() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalEvents
}

// ComputeMI recomputes pair mutual information per mode, against the
// session's running total event count (spec.md §6 ComputeMI).
func (s *Session) ComputeMI(ctx context.Context, mode MIMode) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	n := float64(s.TotalEvents())
	switch mode {
	case MIModeDirty:
		s.metrics.incStage("compute_mi_dirty")
		return mi.ComputeDirty(ctx, s.words, s.pairs, n)
	default:
		s.metrics.incStage("compute_mi_all")
		return mi.ComputeAll(ctx, s.words, s.pairs, n)
	}
}

// MIStats scans every pair and tallies threshold counters (spec.md §6
// MIStats).
func (s *Session) MIStats(ctx context.Context, threshold float64) (mi.Stats, error) {
	if err := s.checkOpen(); err != nil {
		return mi.Stats{}, err
	}
	s.metrics.incStage("mi_stats")
	return mi.ComputeStats(ctx, s.pairs, threshold)
}

// MIFilter compacts pairs passing the count and MI thresholds (spec.md §6
// MIFilter).
func (s *Session) MIFilter(ctx context.Context, threshold float64, maxOutput int) (mi.FilterResult, error) {
	if err := s.checkOpen(); err != nil {
		return mi.FilterResult{}, err
	}
	s.metrics.incStage("mi_filter")
	return mi.Filter(ctx, s.pairs, threshold, maxOutput)
}

// CosineBuild runs cosine pipeline stages 1-4 (C7) against the current word
// and section pools (spec.md §6 CosineBuild); stage 5 is CosineFilter.
func (s *Session) CosineBuild(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.metrics.incStage("cosine_build")
	if err := s.cosine.Build(ctx, s.words, s.sections); err != nil {
		s.logger.Error("cosine_build failed", zap.Error(err))
		return err
	}
	s.metrics.setPoolLive("candidates", float64(s.cosine.Candidates().Len()))
	return nil
}

// CosineFilter compacts candidates whose cosine exceeds threshold (spec.md
// §6 CosineFilter).
func (s *Session) CosineFilter(ctx context.Context, threshold float64, maxOutput int) (cosine.FilterResult, error) {
	if err := s.checkOpen(); err != nil {
		return cosine.FilterResult{}, err
	}
	s.metrics.incStage("cosine_filter")
	return s.cosine.Filter(ctx, threshold, maxOutput)
}

// AssignClasses writes class ids for a batch of words (spec.md §6
// AssignClasses).
func (s *Session) AssignClasses(ctx context.Context, wordIndices, classIDs []uint32) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	s.metrics.incStage("assign_classes")
	return substitution.AssignClasses(ctx, s.words, wordIndices, classIDs)
}

// SubstituteAndRebuild runs C8 stages 2-4 against the class assignments
// written by a prior AssignClasses call (spec.md §6 SubstituteAndRebuild).
func (s *Session) SubstituteAndRebuild(ctx context.Context) (substitution.Result, error) {
	if err := s.checkOpen(); err != nil {
		return substitution.Result{}, err
	}
	s.metrics.incStage("substitute_and_rebuild")
	res, err := substitution.SubstituteAndRebuild(ctx, s.words, s.pairs, s.sections)
	if err != nil {
		return substitution.Result{}, err
	}
	s.metrics.setPoolLive("pairs", float64(s.pairs.Len()))
	return res, nil
}

// ResetWords, ResetPairs, and ResetSections are the per-stage reset
// primitives of spec.md §4.9, used between experiments without tearing
// down the whole session.
func (s *Session) ResetWords()    { s.words.Reset() }
func (s *Session) ResetPairs()    { s.pairs.Reset() }
func (s *Session) ResetSections() { s.sections.Reset() }

// countSentinels tallies how many entries in out equal the CapacityExceeded
// sentinel and reports it through metrics, per spec.md §7's propagation
// policy ("per-worker errors become sentinel output values").
func (s *Session) countSentinels(poolName string, out []uint32) {
	var n uint64
	for _, v := range out {
		if v == pool.SentinelIndex {
			n++
		}
	}
	if n > 0 {
		s.metrics.incCapacityExceeded(poolName, n)
	}
}

// CloseSession releases the session's arena in one O(1) call (spec.md §6
// CloseSession). The session must not be used afterward.
func (s *Session) CloseSession() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.ar.Free()
	s.logger.Debug("session closed")
}
