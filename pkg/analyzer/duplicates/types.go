package duplicates

import "github.com/pythia-sh/pythia/pkg/models"

// BlockKind classifies the unit a code block was derived from.
type BlockKind string

const (
	KindFunction BlockKind = "function"
	KindClass    BlockKind = "class"
	KindWindow   BlockKind = "window"
)

// CodeBlock is a contiguous line range of one file treated as a unit for
// duplicate comparison. Derived and read-only; two blocks are
// fingerprint-equal iff their normalized content is identical.
type CodeBlock struct {
	File        string    `json:"file"`
	StartLine   uint32    `json:"start_line"` // 1-based, inclusive
	EndLine     uint32    `json:"end_line"`   // 1-based, inclusive
	Kind        BlockKind `json:"kind"`
	Name        string    `json:"name,omitempty"`
	Fingerprint uint64    `json:"fingerprint"`

	normalized string
	normLines  []string
}

// Lines returns the block's line count.
func (b *CodeBlock) Lines() int {
	return int(b.EndLine - b.StartLine + 1)
}

// overlaps reports whether two blocks from the same file intersect. Blocks
// from different files never overlap.
func (b *CodeBlock) overlaps(other *CodeBlock) bool {
	if b.File != other.File {
		return false
	}
	return b.StartLine <= other.EndLine && other.StartLine <= b.EndLine
}

// Group is an ordered set of two or more blocks considered duplicates of
// one another. Groups are produced once per run and not mutated afterward.
type Group struct {
	Blocks     []CodeBlock `json:"blocks"`
	Similarity float64     `json:"similarity"` // [0,1], 1.0 = exact
	TotalLines int         `json:"total_lines"`
	Count      int         `json:"count"`
}

// Analysis is the full duplicate detection result.
type Analysis struct {
	Groups   []Group          `json:"groups"`
	Findings []models.Finding `json:"findings"`
	Summary  Summary          `json:"summary"`
}

// Summary provides aggregate statistics.
type Summary struct {
	TotalBlocks     int     `json:"total_blocks"`
	TotalGroups     int     `json:"total_groups"`
	ExactGroups     int     `json:"exact_groups"`
	SimilarGroups   int     `json:"similar_groups"`
	DuplicateBlocks int     `json:"duplicate_blocks"`
	DuplicatedLines int     `json:"duplicated_lines"`
	AvgSimilarity   float64 `json:"avg_similarity"`
	P50Similarity   float64 `json:"p50_similarity"`
	P95Similarity   float64 `json:"p95_similarity"`
}

// Config holds duplicate detection configuration.
type Config struct {
	MinLines            int
	SimilarityThreshold float64
}

// DefaultConfig returns the default detection configuration.
func DefaultConfig() Config {
	return Config{
		MinLines:            5,
		SimilarityThreshold: 0.8,
	}
}
