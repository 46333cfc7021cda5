// Package cosine implements the cosine-similarity engine of spec.md §4.7
// (C7): word-norm reduction, disjunct reverse-index chains, dot-product
// accumulation and cosine computation, without ever materialising the full
// O(W²) word-word matrix.
package cosine

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/Voskan/assoc-engine/internal/arena"
	"github.com/Voskan/assoc-engine/internal/atoms"
	"github.com/Voskan/assoc-engine/internal/htable"
	"github.com/Voskan/assoc-engine/internal/pool"
	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
	"github.com/Voskan/assoc-engine/internal/workers"
)

// Defaults for the two build-time tunables spec.md §9 open question (b)
// calls out as configurable: "a single MIN-NORM-SQ constant (50.0) and
// MAX-CHAIN-LEN (200) tuned for one workload; both should be configurable
// at session open".
const (
	DefaultMinNormSq   = 50.0
	DefaultMaxChainLen = 200
)

// Config holds the cosine engine's build-time tunables.
type Config struct {
	MinNormSq   float64 // rare-word floor; cosine forced to 0 below this
	MaxChainLen int     // disjuncts shared by more sections than this are skipped
	// DisableRareWordFilter is spec.md §9 open question (c): a build option
	// not exposed in the original source, added here without changing any
	// invariant — when true, MinNormSq is not applied.
	DisableRareWordFilter bool
}

// Engine owns the transient structures CosineBuild populates: the disjunct
// reverse index (C7 stage 2) and the candidate pool (C7 stages 3-5).
type Engine struct {
	cfg        Config
	chainTable *htable.Table
	candidates *atoms.Candidates
}

// NewEngine allocates the cosine engine's structures inside ar, sized for
// chainTableCapacity unique disjuncts and candidatePoolCapacity candidate
// pairs (backed by a hash table of candidateTableCapacity slots).
func NewEngine(ar *arena.Arena, chainTableCapacity uint64, candidatePoolCapacity uint32, candidateTableCapacity uint64, cfg Config) *Engine {
	if cfg.MinNormSq == 0 {
		cfg.MinNormSq = DefaultMinNormSq
	}
	if cfg.MaxChainLen == 0 {
		cfg.MaxChainLen = DefaultMaxChainLen
	}
	return &Engine{
		cfg:        cfg,
		chainTable: htable.New(ar, chainTableCapacity),
		candidates: atoms.NewCandidates(ar, candidateTableCapacity, candidatePoolCapacity),
	}
}

// Candidates exposes the candidate pool for readback.
func (e *Engine) Candidates() *atoms.Candidates { return e.candidates }

// Build runs stages 1-4 of the pipeline of spec.md §4.7 (norms, chains, dot
// products, cosines) against the current contents of words and secs,
// replacing any previous candidate set. Stage 5 is Filter, called
// separately.
func (e *Engine) Build(ctx context.Context, words *atoms.Words, secs *atoms.Sections) error {
	e.candidates.Reset()
	e.chainTable.Reset()

	if err := zeroNorms(ctx, words); err != nil {
		return err
	}
	if err := computeWordNorms(ctx, words, secs); err != nil {
		return err
	}
	if err := e.buildDisjunctChains(ctx, secs); err != nil {
		return err
	}
	if err := e.accumulateDotProducts(ctx, secs); err != nil {
		return err
	}
	return e.computeCosines(ctx, words)
}

// countFloor mirrors internal/mi's "count below a half is empty" invariant
// (spec.md §3 invariant 3), applied uniformly across pipelines.
const countFloor = 0.5

// zeroNorms clears every live word's norm-squared accumulator so repeated
// CosineBuild calls recompute from the current section pool rather than
// accumulating across calls.
func zeroNorms(ctx context.Context, words *atoms.Words) error {
	return workers.Launch(ctx, int(words.Len()), func(i int) error {
		unsafehelpers.StoreFloat64(&words.NormSq[i], 0)
		return nil
	})
}

// computeWordNorms is C7 stage 1: one worker per section, accumulating
// count² into the head word's squared L2 norm.
func computeWordNorms(ctx context.Context, words *atoms.Words, secs *atoms.Sections) error {
	return workers.Launch(ctx, int(secs.Len()), func(i int) error {
		count := secs.Count[i]
		if count < countFloor {
			return nil
		}
		words.AddNormSq(secs.HeadWord[i], count*count)
		return nil
	})
}

// buildDisjunctChains is C7 stage 2: one worker per section, prepending
// itself onto the disjunct-hash's chain via atomic exchange. Every exchange
// produces a valid list regardless of interleaving (spec.md §9), so no
// compare-and-swap retry loop is needed here.
func (e *Engine) buildDisjunctChains(ctx context.Context, secs *atoms.Sections) error {
	return workers.Launch(ctx, int(secs.Len()), func(i int) error {
		self := uint32(i)
		if secs.Count[self] < countFloor {
			return nil
		}
		slot, status := e.chainTable.Claim(secs.DisjunctHash[self])
		if status == htable.StatusFull {
			return nil
		}
		old := e.chainTable.Exchange(slot, self)
		if old == htable.EmptyValue || htable.IsFailed(old) {
			secs.NextInChain[self] = pool.SentinelIndex
		} else {
			secs.NextInChain[self] = old
		}
		return nil
	})
}

// accumulateDotProducts is C7 stage 3: one worker per section (self),
// walking self's disjunct chain and, for every peer whose head word is
// strictly greater than self's, accumulating self.count * peer.count into
// that (self, peer) candidate's dot product.
func (e *Engine) accumulateDotProducts(ctx context.Context, secs *atoms.Sections) error {
	return workers.Launch(ctx, int(secs.Len()), func(i int) error {
		self := uint32(i)
		if secs.Count[self] < countFloor {
			return nil
		}
		head, status := e.chainTable.Lookup(secs.DisjunctHash[self])
		if status != htable.StatusExisted {
			return nil
		}

		length := 0
		for cur := head; cur != pool.SentinelIndex; cur = secs.NextInChain[cur] {
			length++
			if length > e.cfg.MaxChainLen {
				return nil // stopword-like disjunct, suppressed
			}
		}

		for cur := head; cur != pool.SentinelIndex; cur = secs.NextInChain[cur] {
			if secs.HeadWord[cur] <= secs.HeadWord[self] {
				continue
			}
			idx := e.candidates.FindOrCreate(secs.HeadWord[self], secs.HeadWord[cur])
			if idx >= e.candidates.Capacity() {
				continue
			}
			e.candidates.AddDot(idx, secs.Count[self]*secs.Count[cur])
		}
		return nil
	})
}

// computeCosines is C7 stage 4: one worker per candidate, turning its
// accumulated dot product and the two endpoints' norms into a cosine,
// clamped to [-1, 1] and zeroed for rare words.
func (e *Engine) computeCosines(ctx context.Context, words *atoms.Words) error {
	return workers.Launch(ctx, int(e.candidates.Len()), func(i int) error {
		wa, wb := e.candidates.WordA[i], e.candidates.WordB[i]
		normA, normB := words.NormSq[wa], words.NormSq[wb]
		if !e.cfg.DisableRareWordFilter && (normA < e.cfg.MinNormSq || normB < e.cfg.MinNormSq) {
			e.candidates.Cosine[i] = 0
			return nil
		}
		denom := math.Sqrt(normA) * math.Sqrt(normB)
		if denom < 1e-10 {
			e.candidates.Cosine[i] = 0
			return nil
		}
		c := e.candidates.Dot[i] / denom
		if c > 1 {
			c = 1
		} else if c < -1 {
			c = -1
		}
		e.candidates.Cosine[i] = c
		return nil
	})
}

// FilterResult is the compact (word-a, word-b, cosine) output of spec.md
// §6 CosineFilter.
type FilterResult struct {
	WordA  []uint32
	WordB  []uint32
	Cosine []float64
}

// Filter compacts candidates whose cosine exceeds threshold into output
// arrays, via an atomic compaction counter, capped by maxOutput.
func (e *Engine) Filter(ctx context.Context, threshold float64, maxOutput int) (FilterResult, error) {
	wa := make([]uint32, maxOutput)
	wb := make([]uint32, maxOutput)
	cos := make([]float64, maxOutput)
	var count atomic.Int64

	err := workers.Launch(ctx, int(e.candidates.Len()), func(i int) error {
		c := e.candidates.Cosine[i]
		if c <= threshold {
			return nil
		}
		slot := count.Add(1) - 1
		if int(slot) >= maxOutput {
			return nil
		}
		wa[slot] = e.candidates.WordA[i]
		wb[slot] = e.candidates.WordB[i]
		cos[slot] = c
		return nil
	})
	if err != nil {
		return FilterResult{}, err
	}
	n := int(count.Load())
	if n > maxOutput {
		n = maxOutput
	}
	return FilterResult{WordA: wa[:n], WordB: wb[:n], Cosine: cos[:n]}, nil
}
