package main

import (
	"github.com/spf13/pflag"
)

// options bundles every CLI knob for assoc-engine-inspect. Kept as one flat
// struct and parsed once in parseFlags, mirroring the teacher CLI's
// flags-into-struct shape.
type options struct {
	input           string
	window          int
	miThreshold     float64
	cosineThreshold float64
	maxOutput       int
	json            bool
	metricsAddr     string
	version         bool
}

func parseFlags() *options {
	opts := &options{}
	pflag.StringVarP(&opts.input, "input", "i", "", "corpus file: one sentence per line, space-separated decimal content hashes (required)")
	pflag.IntVarP(&opts.window, "window", "w", 2, "co-occurrence window size")
	pflag.Float64Var(&opts.miThreshold, "mi-threshold", 0, "MI threshold for the stats and filter stages")
	pflag.Float64Var(&opts.cosineThreshold, "cosine-threshold", 0.5, "cosine threshold for CosineFilter")
	pflag.IntVar(&opts.maxOutput, "max-output", 1000, "max rows returned by MIFilter/CosineFilter")
	pflag.BoolVar(&opts.json, "json", false, "emit the summary as JSON instead of text")
	pflag.StringVar(&opts.metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address until the run completes")
	pflag.BoolVar(&opts.version, "version", false, "print version and exit")
	pflag.Parse()
	return opts
}
