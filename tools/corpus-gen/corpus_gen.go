// corpus_gen.go is a standalone helper that generates deterministic
// synthetic sentence corpora for exercising assoc-engine outside `go test`:
// a vocabulary of synthetic words, hashed via FNV-1a into the 64-bit content
// hashes the engine's word pool expects, sampled into sentences under a
// uniform or Zipf frequency distribution.
//
// Usage:
//
//	go run ./tools/corpus-gen -n 100000 --vocab 5000 --dist zipf --seed 42 --out corpus.txt
//
// Output is newline-delimited sentences, each a space-separated list of
// decimal uint64 content hashes — the exact token format
// cmd/assoc-engine-inspect's --input flag expects.
package main

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"

	"github.com/spf13/pflag"

	"github.com/Voskan/assoc-engine/internal/unsafehelpers"
)

const (
	fnvOffset64 uint64 = 14695981039346656037
	fnvPrime64  uint64 = 1099511628211
)

// hashWord computes FNV-1a over a synthetic vocabulary word's bytes without
// allocating a new backing array, via unsafehelpers.StringToBytes.
func hashWord(word string) uint64 {
	b := unsafehelpers.StringToBytes(word)
	h := fnvOffset64
	for _, c := range b {
		h ^= uint64(c)
		h *= fnvPrime64
	}
	return h
}

func main() {
	var (
		sentences = pflag.IntP("n", "n", 10_000, "number of sentences to generate")
		vocabSize = pflag.Int("vocab", 2_000, "vocabulary size")
		dist      = pflag.String("dist", "zipf", "word-frequency distribution: uniform or zipf")
		zipfS     = pflag.Float64("zipfs", 1.3, "zipf s parameter (>1)")
		zipfV     = pflag.Float64("zipfv", 1.0, "zipf v parameter (>0)")
		minLen    = pflag.Int("min-len", 3, "minimum sentence length")
		maxLen    = pflag.Int("max-len", 12, "maximum sentence length")
		seedVal   = pflag.Int64("seed", 1, "PRNG seed")
		outPath   = pflag.StringP("out", "o", "", "output file (default stdout)")
	)
	pflag.Parse()

	if *minLen < 1 || *maxLen < *minLen {
		fmt.Fprintln(os.Stderr, "corpus-gen: min-len must be >=1 and <= max-len")
		os.Exit(1)
	}

	rnd := rand.New(rand.NewSource(*seedVal))

	vocab := make([]uint64, *vocabSize)
	for i := range vocab {
		vocab[i] = hashWord(fmt.Sprintf("w%d", i))
	}

	var pick func() int
	switch *dist {
	case "uniform":
		pick = func() int { return rnd.Intn(*vocabSize) }
	case "zipf":
		if *zipfS <= 1.0 || *zipfV <= 0 {
			fmt.Fprintln(os.Stderr, "corpus-gen: zipfs must be >1 and zipfv >0")
			os.Exit(1)
		}
		z := rand.NewZipf(rnd, *zipfS, *zipfV, uint64(*vocabSize-1))
		pick = func() int { return int(z.Uint64()) }
	default:
		fmt.Fprintln(os.Stderr, "corpus-gen: unknown dist:", *dist)
		os.Exit(1)
	}

	var out *os.File
	if *outPath == "" {
		out = os.Stdout
	} else {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "corpus-gen: cannot create file:", err)
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	w := bufio.NewWriterSize(out, 1<<20)
	defer w.Flush()

	span := *maxLen - *minLen + 1
	var sb strings.Builder
	for s := 0; s < *sentences; s++ {
		length := *minLen + rnd.Intn(span)
		sb.Reset()
		for t := 0; t < length; t++ {
			if t > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d", vocab[pick()])
		}
		sb.WriteByte('\n')
		w.WriteString(sb.String())
	}
}
