// Package analyzer defines the contract shared by all analysis passes.
package analyzer

import (
	"context"

	"github.com/pythia-sh/pythia/pkg/source"
)

// IndexAnalyzer is the interface implemented by every analysis pass. An
// analyzer consumes already-loaded source files and returns its result;
// it never mutates the index.
type IndexAnalyzer[T any] interface {
	// Analyze processes the given files and returns the analysis result.
	// The context can be used for cancellation.
	Analyze(ctx context.Context, files []*source.File) (T, error)
}
