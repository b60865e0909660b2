package complexity

import (
	"github.com/pythia-sh/pythia/pkg/config"
	"github.com/pythia-sh/pythia/pkg/models"
)

// FunctionMetrics holds the computed metrics for one function or method.
type FunctionMetrics struct {
	File            string  `json:"file"`
	Name            string  `json:"name"`
	StartLine       uint32  `json:"start_line"`
	EndLine         uint32  `json:"end_line"`
	Lines           int     `json:"lines"`
	Cyclomatic      int     `json:"cyclomatic"`
	Cognitive       int     `json:"cognitive"`
	MaxNesting      int     `json:"max_nesting"`
	Maintainability float64 `json:"maintainability"`
}

// ClassMetrics holds the size metrics for one class definition.
type ClassMetrics struct {
	File      string `json:"file"`
	Name      string `json:"name"`
	StartLine uint32 `json:"start_line"`
	EndLine   uint32 `json:"end_line"`
	Lines     int    `json:"lines"`
	Methods   int    `json:"methods"`
}

// Summary aggregates complexity statistics across the run.
type Summary struct {
	TotalFunctions     int     `json:"total_functions"`
	TotalClasses       int     `json:"total_classes"`
	AvgCyclomatic      float64 `json:"avg_cyclomatic"`
	MaxCyclomatic      int     `json:"max_cyclomatic"`
	P95Cyclomatic      float64 `json:"p95_cyclomatic"`
	AvgCognitive       float64 `json:"avg_cognitive"`
	AvgMaintainability float64 `json:"avg_maintainability"`
	ComplexityIssues   int     `json:"complexity_issues"`
	NestingIssues      int     `json:"nesting_issues"`
	LengthIssues       int     `json:"length_issues"`
}

// Analysis is the full complexity analysis result.
type Analysis struct {
	Functions []FunctionMetrics `json:"functions"`
	Classes   []ClassMetrics    `json:"classes"`
	Findings  []models.Finding  `json:"findings"`
	Summary   Summary           `json:"summary"`
}

// Config carries the thresholds the analyzer reports against.
type Config struct {
	MaxCyclomatic        int
	MaxCognitive         int
	MaxNesting           int
	MaxFunctionLines     int
	MaxClassLines        int
	MaintainabilityFloor float64
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	t := config.DefaultConfig().Thresholds
	return Config{
		MaxCyclomatic:        t.CyclomaticComplexity,
		MaxCognitive:         t.CognitiveComplexity,
		MaxNesting:           t.MaxNesting,
		MaxFunctionLines:     t.MaxFunctionLines,
		MaxClassLines:        t.MaxClassLines,
		MaintainabilityFloor: t.MaintainabilityFloor,
	}
}
