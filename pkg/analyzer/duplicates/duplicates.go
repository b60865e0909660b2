// Package duplicates detects exact and near-duplicate code blocks across
// a set of Python source files.
package duplicates

import (
	"context"
	"fmt"
	"sort"

	"github.com/pythia-sh/pythia/internal/fileproc"
	"github.com/pythia-sh/pythia/pkg/analyzer"
	"github.com/pythia-sh/pythia/pkg/config"
	"github.com/pythia-sh/pythia/pkg/models"
	"github.com/pythia-sh/pythia/pkg/source"
	"github.com/pythia-sh/pythia/pkg/stats"
)

// Ensure Analyzer implements analyzer.IndexAnalyzer.
var _ analyzer.IndexAnalyzer[*Analysis] = (*Analyzer)(nil)

// Analyzer detects duplicated code by exact fingerprint grouping followed
// by pairwise similarity clustering of the remainder.
type Analyzer struct {
	config Config
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithMinLines sets the minimum block length in lines.
func WithMinLines(minLines int) Option {
	return func(a *Analyzer) {
		a.config.MinLines = minLines
	}
}

// WithSimilarityThreshold sets the similarity threshold for near-duplicate
// clustering.
func WithSimilarityThreshold(threshold float64) Option {
	return func(a *Analyzer) {
		a.config.SimilarityThreshold = threshold
	}
}

// WithThresholds applies duplicate settings from a threshold config.
func WithThresholds(t config.ThresholdConfig) Option {
	return func(a *Analyzer) {
		a.config.MinLines = t.DuplicateMinLines
		a.config.SimilarityThreshold = t.DuplicateSimilarity
	}
}

// New creates a new duplicate analyzer with default config.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{config: DefaultConfig()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze detects duplicate groups across the given files. Block extraction
// runs per file in parallel; grouping is a single-threaded aggregation over
// the complete block set because clustering needs global knowledge.
func (a *Analyzer) Analyze(ctx context.Context, files []*source.File) (*Analysis, error) {
	perFile, _ := fileproc.ForEach(ctx, files, func(f *source.File) ([]CodeBlock, error) {
		return extractBlocks(f, a.config.MinLines), nil
	})

	var blocks []CodeBlock
	for _, bs := range perFile {
		blocks = append(blocks, bs...)
	}
	blocks = dedupeByLocation(blocks)

	// Deterministic ordering before grouping keeps results reproducible.
	sort.Slice(blocks, func(i, j int) bool {
		a, b := blocks[i], blocks[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		if a.EndLine != b.EndLine {
			return a.EndLine < b.EndLine
		}
		return a.Kind < b.Kind
	})

	exact, rest := a.groupExact(blocks)
	similar := a.groupSimilar(rest)

	groups := append(exact, similar...)
	analysis := &Analysis{
		Groups:   groups,
		Findings: make([]models.Finding, 0, len(groups)),
	}
	analysis.Summary.TotalBlocks = len(blocks)
	analysis.Summary.TotalGroups = len(groups)
	analysis.Summary.ExactGroups = len(exact)
	analysis.Summary.SimilarGroups = len(similar)

	var sims []float64
	for _, g := range groups {
		analysis.Summary.DuplicateBlocks += g.Count
		analysis.Summary.DuplicatedLines += g.TotalLines
		sims = append(sims, g.Similarity)
		analysis.Findings = append(analysis.Findings, a.finding(g))
	}
	sort.Float64s(sims)
	analysis.Summary.AvgSimilarity = stats.Mean(sims)
	analysis.Summary.P50Similarity = stats.Percentile(sims, 50)
	analysis.Summary.P95Similarity = stats.Percentile(sims, 95)

	models.SortFindings(analysis.Findings)
	return analysis, nil
}

// dedupeByLocation removes blocks that share a file and exact line span, so
// a group can never contain the same location twice.
func dedupeByLocation(blocks []CodeBlock) []CodeBlock {
	seen := make(map[string]struct{}, len(blocks))
	out := blocks[:0]
	for _, b := range blocks {
		key := fmt.Sprintf("%s:%d-%d:%s", b.File, b.StartLine, b.EndLine, b.Kind)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, b)
	}
	return out
}

// groupExact buckets blocks by fingerprint. Buckets with at least two
// non-overlapping locations become groups with similarity exactly 1.0; all
// other blocks are returned for similarity clustering. The overlap check
// matters because a named block and a window can fingerprint-match over
// the same span, and a block must never count as a duplicate of itself.
func (a *Analyzer) groupExact(blocks []CodeBlock) ([]Group, []CodeBlock) {
	buckets := make(map[uint64][]int)
	for i, b := range blocks {
		buckets[b.Fingerprint] = append(buckets[b.Fingerprint], i)
	}

	grouped := make(map[int]bool)
	var groups []Group

	// Iterate in block order so group order follows file/line order.
	handled := make(map[uint64]bool)
	for _, b := range blocks {
		if handled[b.Fingerprint] {
			continue
		}
		handled[b.Fingerprint] = true

		idxs := buckets[b.Fingerprint]
		if len(idxs) < 2 {
			continue
		}

		g := Group{Similarity: 1.0}
		var taken []int
		for _, idx := range idxs {
			overlapping := false
			for _, prev := range taken {
				if blocks[idx].overlaps(&blocks[prev]) {
					overlapping = true
					break
				}
			}
			if overlapping {
				continue
			}
			taken = append(taken, idx)
		}
		if len(taken) < 2 {
			continue
		}
		for _, idx := range taken {
			g.Blocks = append(g.Blocks, blocks[idx])
			g.TotalLines += blocks[idx].Lines()
		}
		// The whole bucket is consumed, including skipped overlapping
		// blocks; re-clustering them would just restate this group.
		for _, idx := range idxs {
			grouped[idx] = true
		}
		g.Count = len(g.Blocks)
		groups = append(groups, g)
	}

	var rest []CodeBlock
	for i, b := range blocks {
		if !grouped[i] {
			rest = append(rest, b)
		}
	}
	return groups, rest
}

// groupSimilar clusters the remaining blocks by pairwise line-sequence
// similarity. Each unprocessed block is compared against every later
// unprocessed block; a block is consumed by at most one group. Blocks from
// the same file with overlapping spans are never compared, so a block
// cannot duplicate itself or its containing block.
func (a *Analyzer) groupSimilar(blocks []CodeBlock) []Group {
	used := make([]bool, len(blocks))
	var groups []Group

	for i := range blocks {
		if used[i] {
			continue
		}

		g := Group{Blocks: []CodeBlock{blocks[i]}}
		var pairSims []float64

		for j := i + 1; j < len(blocks); j++ {
			if used[j] {
				continue
			}
			if blocks[i].overlaps(&blocks[j]) {
				continue
			}

			sim := sequenceRatio(blocks[i].normLines, blocks[j].normLines)
			if sim >= a.config.SimilarityThreshold {
				g.Blocks = append(g.Blocks, blocks[j])
				pairSims = append(pairSims, sim)
				used[j] = true
			}
		}

		if len(g.Blocks) < 2 {
			continue
		}
		used[i] = true

		// Mean pairwise similarity of the accepted comparisons; a single
		// comparison degenerates to its own value, and an empty set would
		// be identity-safe at 1.0.
		g.Similarity = 1.0
		if len(pairSims) > 0 {
			g.Similarity = stats.Mean(pairSims)
		}
		for _, b := range g.Blocks {
			g.TotalLines += b.Lines()
		}
		g.Count = len(g.Blocks)
		groups = append(groups, g)
	}

	return groups
}

// finding converts one group into a Finding anchored at its first block.
func (a *Analyzer) finding(g Group) models.Finding {
	rep := g.Blocks[0]
	pattern := scanContentPattern(rep.normalized)
	severity := scoreSeverity(g, rep)
	confidence := scoreConfidence(g, rep, pattern)

	locations := make([]string, 0, len(g.Blocks))
	for _, b := range g.Blocks {
		locations = append(locations, fmt.Sprintf("%s:%d-%d", b.File, b.StartLine, b.EndLine))
	}

	exact := g.Similarity >= 1.0
	kindLabel := "code blocks"
	switch rep.Kind {
	case KindFunction:
		kindLabel = "functions"
	case KindClass:
		kindLabel = "classes"
	}

	return models.Finding{
		File:     rep.File,
		Line:     rep.StartLine,
		Severity: severity,
		Category: models.CategoryDuplicateCode,
		Message:  fmt.Sprintf("%d duplicated %s (similarity %.0f%%)", g.Count, kindLabel, g.Similarity*100),
		Description: fmt.Sprintf("%d blocks totalling %d lines are duplicates of each other: %v",
			g.Count, g.TotalLines, locations),
		Suggestion: suggest(rep.Kind, exact, pattern),
		Confidence: confidence,
		Details: map[string]any{
			"duplicate_count":  g.Count,
			"total_lines":      g.TotalLines,
			"similarity_score": g.Similarity,
			"locations":        locations,
			"block_kind":       string(rep.Kind),
		},
	}
}

// scoreSeverity computes the weighted severity tier for a group.
func scoreSeverity(g Group, rep CodeBlock) models.Severity {
	score := 0

	switch lines := rep.Lines(); {
	case lines >= 50:
		score += 3
	case lines >= 20:
		score += 2
	case lines >= 10:
		score += 1
	}

	switch {
	case g.Count >= 5:
		score += 3
	case g.Count >= 3:
		score += 2
	default:
		score += 1
	}

	switch {
	case g.Similarity >= 0.95:
		score += 2
	case g.Similarity >= 0.8:
		score += 1
	}

	switch {
	case score >= 6:
		return models.SeverityCritical
	case score >= 4:
		return models.SeverityHigh
	case score >= 2:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// scoreConfidence starts from the group similarity and boosts it by signals
// that make the group more actionable.
func scoreConfidence(g Group, rep CodeBlock, pattern string) float64 {
	confidence := g.Similarity

	if g.Similarity >= 1.0 {
		confidence += 0.10
	}
	if g.Count >= 3 {
		confidence += 0.05
	}
	if rep.Lines() >= 20 {
		confidence += 0.05
	}
	if rep.Kind == KindFunction || rep.Kind == KindClass {
		confidence += 0.10
	}
	if pattern != "" {
		confidence += 0.05
	}

	return models.Clamp01(confidence)
}
