// Package engine wires the scanner, the source index and the analyzers
// into a single checkup run over a Python codebase.
package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/pythia-sh/pythia/internal/scanner"
	"github.com/pythia-sh/pythia/pkg/analyzer/complexity"
	"github.com/pythia-sh/pythia/pkg/analyzer/duplicates"
	"github.com/pythia-sh/pythia/pkg/analyzer/imports"
	"github.com/pythia-sh/pythia/pkg/config"
	"github.com/pythia-sh/pythia/pkg/models"
	"github.com/pythia-sh/pythia/pkg/source"
)

// Report is the combined result of one analysis run.
type Report struct {
	Root        string               `json:"root"`
	GeneratedAt time.Time            `json:"generated_at"`
	Duplicates  *duplicates.Analysis `json:"duplicates"`
	Imports     *imports.Analysis    `json:"imports"`
	Complexity  *complexity.Analysis `json:"complexity"`
	// Findings merges every analyzer's findings plus read and parse
	// failures, sorted deterministically.
	Findings []models.Finding `json:"findings"`
	Metrics  models.Metrics   `json:"metrics"`
}

// Engine runs the full analysis pipeline.
type Engine struct {
	config *config.Config
	src    source.ContentSource
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithConfig sets the configuration for the run.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg != nil {
			e.config = cfg
		}
	}
}

// WithSource overrides where file content is read from.
func WithSource(src source.ContentSource) Option {
	return func(e *Engine) {
		e.src = src
	}
}

// New creates an engine with default configuration reading from the
// filesystem.
func New(opts ...Option) *Engine {
	e := &Engine{
		config: config.DefaultConfig(),
		src:    source.NewFilesystem(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run scans root for Python files and analyzes them.
func (e *Engine) Run(ctx context.Context, root string) (*Report, error) {
	paths, err := scanner.New(e.config).ScanDir(root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return e.AnalyzePaths(ctx, root, paths)
}

// AnalyzePaths analyzes an explicit set of files, loading them once and
// feeding the shared index to every analyzer. The analyzers run
// concurrently; each parallelizes its own per-file work internally.
func (e *Engine) AnalyzePaths(ctx context.Context, root string, paths []string) (*Report, error) {
	idx, err := source.Load(ctx, paths, e.src)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Root:        root,
		GeneratedAt: time.Now().UTC(),
	}

	parsed := idx.Parsed()
	all := idx.All()

	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		analysis, err := duplicates.New(duplicates.WithThresholds(e.config.Thresholds)).Analyze(ctx, parsed)
		report.Duplicates = analysis
		return err
	})
	p.Go(func(ctx context.Context) error {
		analysis, err := imports.New(imports.WithRoot(root)).Analyze(ctx, parsed)
		report.Imports = analysis
		return err
	})
	p.Go(func(ctx context.Context) error {
		// Length checks still work without a tree, so this one sees
		// every file including parse failures.
		analysis, err := complexity.New(complexity.WithThresholds(e.config.Thresholds)).Analyze(ctx, all)
		report.Complexity = analysis
		return err
	})
	if err := p.Wait(); err != nil {
		return nil, err
	}

	report.Findings = append(report.Findings, report.Duplicates.Findings...)
	report.Findings = append(report.Findings, report.Imports.Findings...)
	report.Findings = append(report.Findings, report.Complexity.Findings...)
	report.Findings = append(report.Findings, failureFindings(idx)...)
	models.SortFindings(report.Findings)

	report.Metrics = buildMetrics(idx, report)
	return report, nil
}

// failureFindings surfaces files that could not be read or parsed so
// they show up in the report instead of silently vanishing. A parse
// failure means real syntax errors, so it rates high severity; a read
// failure may just be an encoding or permission quirk, so it is
// recorded with low confidence.
func failureFindings(idx *source.Index) []models.Finding {
	var findings []models.Finding
	for _, f := range idx.Failed {
		severity := models.SeverityHigh
		confidence := 1.0
		category := models.CategoryParseError
		message := "File could not be parsed"
		suggestion := "Fix the syntax errors or exclude the file from analysis."
		if strings.HasPrefix(f.Err.Error(), "read:") {
			severity = models.SeverityLow
			confidence = 0.5
			category = models.CategoryReadError
			message = "File could not be read"
			suggestion = "Check the file's permissions or exclude it from analysis."
		}
		findings = append(findings, models.Finding{
			File:        f.Path,
			Line:        1,
			Severity:    severity,
			Category:    category,
			Message:     message,
			Description: f.Err.Error(),
			Suggestion:  suggestion,
			Confidence:  confidence,
		})
	}
	return findings
}

func buildMetrics(idx *source.Index, report *Report) models.Metrics {
	return models.Metrics{
		FilesScanned:     len(idx.Files),
		FilesSkipped:     len(idx.Failed),
		DuplicateBlocks:  report.Duplicates.Summary.DuplicateBlocks,
		DuplicatedLines:  report.Duplicates.Summary.DuplicatedLines,
		UnusedImports:    report.Imports.Summary.UnusedImports,
		CircularImports:  report.Imports.Summary.CircularCycles,
		OrphanedModules:  report.Imports.Summary.OrphanedModules,
		ComplexityIssues: report.Complexity.Summary.ComplexityIssues,
		NestingIssues:    report.Complexity.Summary.NestingIssues,
		LengthIssues:     report.Complexity.Summary.LengthIssues,
	}
}
