// Package fileproc provides concurrent per-file processing utilities.
package fileproc

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/pythia-sh/pythia/pkg/parser"
	"github.com/sourcegraph/conc/pool"
)

// ProcessingError represents an error that occurred while processing a file.
type ProcessingError struct {
	Path string
	Err  error
}

func (e ProcessingError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// ProcessingErrors collects multiple file processing errors.
type ProcessingErrors struct {
	Errors []ProcessingError
	mu     sync.Mutex
}

// Add appends an error to the collection (thread-safe).
func (e *ProcessingErrors) Add(path string, err error) {
	e.mu.Lock()
	e.Errors = append(e.Errors, ProcessingError{Path: path, Err: err})
	e.mu.Unlock()
}

// HasErrors returns true if any errors were collected.
func (e *ProcessingErrors) HasErrors() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.Errors) > 0
}

// Error implements the error interface.
func (e *ProcessingErrors) Error() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.Errors) == 0 {
		return "no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("%d files failed to process (first: %v)", len(e.Errors), e.Errors[0])
}

// DefaultWorkerMultiplier is the multiplier applied to NumCPU for worker count.
// 2x is optimal for mixed I/O and CGO workloads.
const DefaultWorkerMultiplier = 2

// Keyed is implemented by inputs that identify the file they describe, so
// errors can be attributed to a path.
type Keyed interface {
	Key() string
}

// pathKey adapts a plain path string to Keyed.
type pathKey string

func (p pathKey) Key() string { return string(p) }

// MapPaths processes file paths in parallel, calling fn for each path with a
// dedicated parser. Results are collected in arbitrary order; individual
// failures are accumulated, never aborting the batch.
func MapPaths[T any](ctx context.Context, paths []string, fn func(*parser.Parser, string) (T, error)) ([]T, *ProcessingErrors) {
	keyed := make([]pathKey, len(paths))
	for i, p := range paths {
		keyed[i] = pathKey(p)
	}
	return Map(ctx, keyed, func(psr *parser.Parser, k pathKey) (T, error) {
		return fn(psr, string(k))
	})
}

// Map processes inputs in parallel with a per-worker parser. Each worker
// writes only into the shared result slice under a mutex; no other state is
// shared. If maxWorkers would be <= 0 it defaults to 2x NumCPU.
func Map[IN Keyed, T any](ctx context.Context, items []IN, fn func(*parser.Parser, IN) (T, error)) ([]T, *ProcessingErrors) {
	if len(items) == 0 {
		return nil, nil
	}

	maxWorkers := runtime.NumCPU() * DefaultWorkerMultiplier
	results := make([]T, 0, len(items))
	errs := &ProcessingErrors{}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for _, item := range items {
		p.Go(func(ctx context.Context) error {
			// Stop scheduling work once the context is done; in-flight
			// single-file analyses are cheap and run to completion.
			select {
			case <-ctx.Done():
				errs.Add(item.Key(), ctx.Err())
				return ctx.Err()
			default:
			}

			psr := parser.New()
			defer psr.Close()

			result, err := fn(psr, item)
			if err != nil {
				errs.Add(item.Key(), err)
				return nil // individual file errors don't stop the pool
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait() // context errors are already captured in errs

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}

// ForEach processes inputs in parallel without a parser; use this for
// passes that operate on already-parsed trees or raw text.
func ForEach[IN Keyed, T any](ctx context.Context, items []IN, fn func(IN) (T, error)) ([]T, *ProcessingErrors) {
	if len(items) == 0 {
		return nil, nil
	}

	maxWorkers := runtime.NumCPU() * DefaultWorkerMultiplier
	results := make([]T, 0, len(items))
	errs := &ProcessingErrors{}
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(maxWorkers).WithContext(ctx)
	for _, item := range items {
		p.Go(func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				errs.Add(item.Key(), ctx.Err())
				return ctx.Err()
			default:
			}

			result, err := fn(item)
			if err != nil {
				errs.Add(item.Key(), err)
				return nil
			}

			mu.Lock()
			results = append(results, result)
			mu.Unlock()
			return nil
		})
	}
	_ = p.Wait()

	if !errs.HasErrors() {
		return results, nil
	}
	return results, errs
}
