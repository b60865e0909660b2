// Package models defines the shared result types produced by analyzers.
package models

import "sort"

// Severity ranks how urgently a finding should be addressed.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight returns a numeric rank for sorting and aggregation.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Category identifies which analysis produced a finding.
type Category string

const (
	CategoryDuplicateCode  Category = "duplicate_code"
	CategoryUnusedImport   Category = "unused_import"
	CategoryCircularImport Category = "circular_import"
	CategoryOrphanedModule Category = "orphaned_module"
	CategoryComplexity     Category = "complexity"
	CategoryNesting        Category = "nesting"
	CategoryLength         Category = "length"
	CategoryReadError      Category = "read_error"
	CategoryParseError     Category = "parse_error"
)

// Finding is one actionable issue located in the analyzed codebase.
type Finding struct {
	File        string         `json:"file"`
	Line        uint32         `json:"line"`
	Severity    Severity       `json:"severity"`
	Category    Category       `json:"category"`
	Message     string         `json:"message"`
	Description string         `json:"description,omitempty"`
	Suggestion  string         `json:"suggestion,omitempty"`
	Confidence  float64        `json:"confidence"`
	Details     map[string]any `json:"details,omitempty"`
}

// SortFindings orders findings deterministically by category, file, line
// and message so repeated runs over the same input produce identical
// output.
func SortFindings(findings []Finding) {
	sort.Slice(findings, func(i, j int) bool {
		a, b := findings[i], findings[j]
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Message < b.Message
	})
}

// Metrics aggregates counts across a full analysis run.
type Metrics struct {
	FilesScanned     int `json:"files_scanned"`
	FilesSkipped     int `json:"files_skipped"`
	DuplicateBlocks  int `json:"duplicate_blocks"`
	DuplicatedLines  int `json:"duplicated_lines"`
	UnusedImports    int `json:"unused_imports"`
	CircularImports  int `json:"circular_imports"`
	OrphanedModules  int `json:"orphaned_modules"`
	ComplexityIssues int `json:"complexity_issues"`
	NestingIssues    int `json:"nesting_issues"`
	LengthIssues     int `json:"length_issues"`
}

// Clamp01 bounds v to the [0, 1] confidence range.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
