package engine

// config.go defines the session configuration object and the functional
// options passed to OpenSession, in the same shape as the teacher's
// pkg/config.go: sensible defaults in defaultConfig(), options that only
// capture values (never allocate), and a struct kept unexported so callers
// can only influence behaviour through Option.

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/assoc-engine/internal/cosine"
)

// Option configures a session at OpenSession time.
type Option func(*config)

type config struct {
	wordTableCapacity    uint64
	wordPoolCapacity     uint32
	pairTableCapacity    uint64
	pairPoolCapacity     uint32
	sectionTableCapacity uint64
	sectionPoolCapacity  uint32

	chainTableCapacity      uint64
	candidateTableCapacity  uint64
	candidatePoolCapacity   uint32
	cosineMinNormSq         float64
	cosineMaxChainLen       int
	cosineDisableRareFilter bool

	logger   *zap.Logger
	registry *prometheus.Registry
}

// defaultConfig seeds every capacity at a small-but-usable size; real
// deployments are expected to override every capacity via options sized for
// their corpus (spec.md §4.1 invariant 6: load factor at or below 0.5).
func defaultConfig() *config {
	return &config{
		wordTableCapacity:    1 << 16,
		wordPoolCapacity:     1 << 15,
		pairTableCapacity:    1 << 17,
		pairPoolCapacity:     1 << 16,
		sectionTableCapacity: 1 << 17,
		sectionPoolCapacity:  1 << 16,

		chainTableCapacity:     1 << 16,
		candidateTableCapacity: 1 << 17,
		candidatePoolCapacity:  1 << 16,
		cosineMinNormSq:        cosine.DefaultMinNormSq,
		cosineMaxChainLen:      cosine.DefaultMaxChainLen,

		logger: zap.NewNop(),
	}
}

// WithWordCapacity sets the word pool's entry capacity and backing
// hash-table capacity (must be a power of two).
func WithWordCapacity(tableCapacity uint64, poolCapacity uint32) Option {
	return func(c *config) {
		c.wordTableCapacity = tableCapacity
		c.wordPoolCapacity = poolCapacity
	}
}

// WithPairCapacity sets the pair pool's entry capacity and backing
// hash-table capacity (must be a power of two).
func WithPairCapacity(tableCapacity uint64, poolCapacity uint32) Option {
	return func(c *config) {
		c.pairTableCapacity = tableCapacity
		c.pairPoolCapacity = poolCapacity
	}
}

// WithSectionCapacity sets the section pool's entry capacity and backing
// hash-table capacity (must be a power of two).
func WithSectionCapacity(tableCapacity uint64, poolCapacity uint32) Option {
	return func(c *config) {
		c.sectionTableCapacity = tableCapacity
		c.sectionPoolCapacity = poolCapacity
	}
}

// WithCosineCapacity sets the cosine engine's disjunct reverse-index table,
// candidate hash table, and candidate pool capacities.
func WithCosineCapacity(chainTableCapacity, candidateTableCapacity uint64, candidatePoolCapacity uint32) Option {
	return func(c *config) {
		c.chainTableCapacity = chainTableCapacity
		c.candidateTableCapacity = candidateTableCapacity
		c.candidatePoolCapacity = candidatePoolCapacity
	}
}

// WithMinNormSq overrides the cosine engine's rare-word norm floor
// (spec.md §9 open question (b), default 50.0).
func WithMinNormSq(v float64) Option {
	return func(c *config) { c.cosineMinNormSq = v }
}

// WithMaxChainLen overrides the cosine engine's disjunct chain-length cap
// (spec.md §9 open question (b), default 200).
func WithMaxChainLen(n int) Option {
	return func(c *config) { c.cosineMaxChainLen = n }
}

// WithDisableRareWordFilter turns off the min-norm floor entirely
// (spec.md §9 open question (c), a build option the source never exposed).
func WithDisableRareWordFilter() Option {
	return func(c *config) { c.cosineDisableRareFilter = true }
}

// WithLogger plugs an external zap.Logger. The engine never logs on a
// worker's hot path; only session lifecycle events and stage errors are
// emitted, mirroring the teacher's logging discipline.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for the session.
// Passing nil disables metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

func isPowerOfTwo(v uint64) bool { return v != 0 && v&(v-1) == 0 }

// applyOptions copies user-supplied options into cfg and validates the
// BuildOption invariants (spec.md §7): every capacity must be non-zero and,
// for hash tables, a power of two.
func applyOptions(cfg *config, opts []Option) error {
	for _, opt := range opts {
		opt(cfg)
	}

	tableCaps := []uint64{
		cfg.wordTableCapacity, cfg.pairTableCapacity, cfg.sectionTableCapacity,
		cfg.chainTableCapacity, cfg.candidateTableCapacity,
	}
	for _, tc := range tableCaps {
		if !isPowerOfTwo(tc) {
			return ErrInvalidCapacity
		}
	}
	if cfg.wordPoolCapacity == 0 || cfg.pairPoolCapacity == 0 || cfg.sectionPoolCapacity == 0 || cfg.candidatePoolCapacity == 0 {
		return ErrInvalidCapacity
	}
	return nil
}
