// assoc-engine-inspect runs a full pipeline over a synthetic corpus (as
// produced by tools/corpus-gen) through an in-process engine session and
// prints a summary: pool sizes, MI stats, and the top filtered pairs and
// cosine candidates. It exists to exercise every stage of the engine from
// the command line without writing a Go program against pkg/engine first.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Voskan/assoc-engine/internal/sections"
	"github.com/Voskan/assoc-engine/pkg/engine"
)

var version = "dev"

func main() {
	opts := parseFlags()
	if opts.version {
		fmt.Println(version)
		return
	}
	if opts.input == "" {
		fatal(fmt.Errorf("--input is required"))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		cancel()
	}()

	batch, err := loadCorpus(opts.input)
	if err != nil {
		fatal(err)
	}

	var reg *prometheus.Registry
	if opts.metricsAddr != "" {
		reg = prometheus.NewRegistry()
		srv := startMetricsServer(opts.metricsAddr, reg)
		defer srv.Close()
	}

	summary, err := run(ctx, batch, opts, reg)
	if err != nil {
		fatal(err)
	}

	if opts.json {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(summary); err != nil {
			fatal(err)
		}
		return
	}
	printSummary(summary)
}

// sentenceBatch is the flat token/offset/length triple every stage expects,
// plus a parallel chain-parse edge list synthesized from sentence order
// (consecutive tokens connected left-to-right) since the corpus format
// carries no real parser output.
type sentenceBatch struct {
	hashes  []uint64
	offsets []uint32
	lengths []uint32
	edges   sections.Edges
}

func loadCorpus(path string) (*sentenceBatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	batch := &sentenceBatch{}
	var edgeP1, edgeP2, edgeOffsets, edgeCounts []uint32

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1<<20), 1<<24)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		offset := uint32(len(batch.hashes))
		edgeOffset := uint32(len(edgeP1))

		for _, f := range fields {
			h, err := strconv.ParseUint(f, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("corpus: malformed hash %q: %w", f, err)
			}
			batch.hashes = append(batch.hashes, h)
		}
		// ExtractSections compares edge positions against the *global*
		// flat-token index, so edges here must carry offset+i, not i.
		n := len(fields)
		for i := 0; i+1 < n; i++ {
			edgeP1 = append(edgeP1, offset+uint32(i))
			edgeP2 = append(edgeP2, offset+uint32(i+1))
		}

		batch.offsets = append(batch.offsets, offset)
		batch.lengths = append(batch.lengths, uint32(n))
		edgeOffsets = append(edgeOffsets, edgeOffset)
		edgeCounts = append(edgeCounts, uint32(len(edgeP1))-edgeOffset)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	batch.edges = sections.Edges{P1: edgeP1, P2: edgeP2, EdgeOffsets: edgeOffsets, EdgeCounts: edgeCounts}
	return batch, nil
}

// Summary is the JSON/text report emitted after one full pipeline pass.
type Summary struct {
	Words           uint32         `json:"words"`
	Pairs           uint32         `json:"pairs"`
	Sections        uint32         `json:"sections"`
	DroppedConnectors uint64       `json:"dropped_connectors"`
	TotalEvents     uint64         `json:"total_events"`
	MIStats         miStatsJSON    `json:"mi_stats"`
	TopPairs        []pairRow      `json:"top_pairs"`
	TopCandidates   []candidateRow `json:"top_candidates"`
}

type miStatsJSON struct {
	WithCount      uint64 `json:"with_count"`
	WithPositiveMI uint64 `json:"with_positive_mi"`
	AboveThreshold uint64 `json:"above_threshold"`
}

type pairRow struct {
	Index uint32  `json:"index"`
	MI    float64 `json:"mi"`
}

type candidateRow struct {
	WordA  uint32  `json:"word_a"`
	WordB  uint32  `json:"word_b"`
	Cosine float64 `json:"cosine"`
}

func run(ctx context.Context, batch *sentenceBatch, opts *options, reg *prometheus.Registry) (*Summary, error) {
	sessOpts := []engine.Option{}
	if reg != nil {
		sessOpts = append(sessOpts, engine.WithMetrics(reg))
	}
	sess, err := engine.OpenSession(sessOpts...)
	if err != nil {
		return nil, err
	}
	defer sess.CloseSession()

	tokens, err := sess.FindOrCreateWords(ctx, batch.hashes)
	if err != nil {
		return nil, err
	}

	if _, err := sess.CountSentences(ctx, tokens, batch.offsets, batch.lengths, opts.window); err != nil {
		return nil, err
	}
	sectionResult, err := sess.ExtractSections(ctx, tokens, batch.offsets, batch.lengths, batch.edges)
	if err != nil {
		return nil, err
	}
	if err := sess.ComputeMI(ctx, engine.MIModeAll); err != nil {
		return nil, err
	}
	stats, err := sess.MIStats(ctx, opts.miThreshold)
	if err != nil {
		return nil, err
	}
	miFiltered, err := sess.MIFilter(ctx, opts.miThreshold, opts.maxOutput)
	if err != nil {
		return nil, err
	}
	if err := sess.CosineBuild(ctx); err != nil {
		return nil, err
	}
	cosineFiltered, err := sess.CosineFilter(ctx, opts.cosineThreshold, opts.maxOutput)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalEvents:       sess.TotalEvents(),
		DroppedConnectors: sectionResult.DroppedConnectors,
		MIStats: miStatsJSON{
			WithCount:      stats.WithCount,
			WithPositiveMI: stats.WithPositiveMI,
			AboveThreshold: stats.AboveThreshold,
		},
	}
	words := sess.ReadbackWords(0, 1<<30)
	pairs := sess.ReadbackPairs(0, 1<<30)
	secs := sess.ReadbackSections(0, 1<<30)
	summary.Words = uint32(len(words.Hash))
	summary.Pairs = uint32(len(pairs.WordA))
	summary.Sections = uint32(len(secs.HeadWord))

	for i, idx := range miFiltered.Indices {
		summary.TopPairs = append(summary.TopPairs, pairRow{Index: idx, MI: miFiltered.MI[i]})
	}
	for i := range cosineFiltered.WordA {
		summary.TopCandidates = append(summary.TopCandidates, candidateRow{
			WordA:  cosineFiltered.WordA[i],
			WordB:  cosineFiltered.WordB[i],
			Cosine: cosineFiltered.Cosine[i],
		})
	}
	return summary, nil
}

func printSummary(s *Summary) {
	fmt.Printf("words:    %d\n", s.Words)
	fmt.Printf("pairs:    %d\n", s.Pairs)
	fmt.Printf("sections: %d (dropped connectors: %d)\n", s.Sections, s.DroppedConnectors)
	fmt.Printf("events:   %d\n", s.TotalEvents)
	fmt.Printf("MI stats: with_count=%d with_positive_mi=%d above_threshold=%d\n",
		s.MIStats.WithCount, s.MIStats.WithPositiveMI, s.MIStats.AboveThreshold)
	fmt.Printf("top pairs (%d):\n", len(s.TopPairs))
	for _, p := range s.TopPairs {
		fmt.Printf("  pair#%d mi=%.4f\n", p.Index, p.MI)
	}
	fmt.Printf("top candidates (%d):\n", len(s.TopCandidates))
	for _, c := range s.TopCandidates {
		fmt.Printf("  (%d, %d) cosine=%.4f\n", c.WordA, c.WordB, c.Cosine)
	}
}

func startMetricsServer(addr string, reg *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		_ = srv.ListenAndServe()
	}()
	return srv
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "assoc-engine-inspect:", err)
	os.Exit(1)
}
