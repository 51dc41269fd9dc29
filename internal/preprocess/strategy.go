// Package preprocess turns a resolved repository tree into the normalized
// tree the conversion service consumes.
//
// Strategies are selected by a Dispatcher from a closed registry keyed by
// generator tag, resource category and input format. Unknown combinations
// fall back to a straight copy.
package preprocess

import (
	"context"

	"git.home.luguber.info/inful/txbridge/internal/manifest"
)

// Result summarizes one strategy run.
type Result struct {
	Success bool
	// Files lists written paths relative to the output dir, sorted.
	Files []string
	// Warnings records skipped or malformed input.
	Warnings []string
	// Fingerprints maps markdown outputs to their content fingerprint.
	Fingerprints map[string]string
}

// Strategy transforms the bound input tree into the bound output tree.
// Missing or malformed input files are skipped with a warning; only output
// failures are returned as errors.
type Strategy interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// Binding is what every strategy is constructed with.
type Binding struct {
	Manifest *manifest.Manifest
	InDir    string
	OutDir   string
}

// Constructor builds a strategy for a binding.
type Constructor func(b Binding) Strategy
