// Package complexity measures cyclomatic and cognitive complexity,
// maintainability, nesting depth and definition length for Python code.
package complexity

import (
	"context"
	"fmt"
	"sort"

	"github.com/pythia-sh/pythia/internal/fileproc"
	"github.com/pythia-sh/pythia/pkg/analyzer"
	"github.com/pythia-sh/pythia/pkg/config"
	"github.com/pythia-sh/pythia/pkg/models"
	"github.com/pythia-sh/pythia/pkg/parser"
	"github.com/pythia-sh/pythia/pkg/source"
	"github.com/pythia-sh/pythia/pkg/stats"
)

// Ensure Analyzer implements analyzer.IndexAnalyzer.
var _ analyzer.IndexAnalyzer[*Analysis] = (*Analyzer)(nil)

// Analyzer measures per-function and per-class complexity metrics.
type Analyzer struct {
	config Config
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithThresholds applies complexity settings from a threshold config.
func WithThresholds(t config.ThresholdConfig) Option {
	return func(a *Analyzer) {
		a.config = Config{
			MaxCyclomatic:        t.CyclomaticComplexity,
			MaxCognitive:         t.CognitiveComplexity,
			MaxNesting:           t.MaxNesting,
			MaxFunctionLines:     t.MaxFunctionLines,
			MaxClassLines:        t.MaxClassLines,
			MaintainabilityFloor: t.MaintainabilityFloor,
		}
	}
}

// New creates a new complexity analyzer with default thresholds.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{config: DefaultConfig()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// fileMetrics is the per-file measurement result.
type fileMetrics struct {
	functions []FunctionMetrics
	classes   []ClassMetrics
	estimated bool
}

// Analyze measures every function and class in the given files in
// parallel and reports threshold violations. Files without a parse tree
// fall back to an indentation scan that only supports length checks.
func (a *Analyzer) Analyze(ctx context.Context, files []*source.File) (*Analysis, error) {
	perFile, _ := fileproc.ForEach(ctx, files, func(f *source.File) (fileMetrics, error) {
		return measureFile(f), nil
	})

	analysis := &Analysis{}
	estimated := make(map[string]bool)
	for _, fm := range perFile {
		analysis.Functions = append(analysis.Functions, fm.functions...)
		analysis.Classes = append(analysis.Classes, fm.classes...)
		if fm.estimated {
			for _, fn := range fm.functions {
				estimated[fn.File] = true
			}
			for _, c := range fm.classes {
				estimated[c.File] = true
			}
		}
	}

	sort.Slice(analysis.Functions, func(i, j int) bool {
		a, b := analysis.Functions[i], analysis.Functions[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.StartLine < b.StartLine
	})
	sort.Slice(analysis.Classes, func(i, j int) bool {
		a, b := analysis.Classes[i], analysis.Classes[j]
		if a.File != b.File {
			return a.File < b.File
		}
		return a.StartLine < b.StartLine
	})

	for _, fn := range analysis.Functions {
		analysis.Findings = append(analysis.Findings, a.functionFindings(fn, estimated[fn.File])...)
	}
	for _, c := range analysis.Classes {
		if f := a.classFinding(c, estimated[c.File]); f != nil {
			analysis.Findings = append(analysis.Findings, *f)
		}
	}

	a.summarize(analysis)
	models.SortFindings(analysis.Findings)
	return analysis, nil
}

// measureFile computes metrics for every definition in one file.
func measureFile(f *source.File) fileMetrics {
	if f.Tree == nil {
		return estimateFile(f)
	}

	var fm fileMetrics
	result := &parser.ParseResult{Tree: f.Tree, Source: f.Raw, Path: f.Path}

	for _, fn := range parser.GetFunctions(result) {
		if fn.Body == nil {
			continue
		}
		cc := cyclomatic(fn.Body, f.Raw)
		fm.functions = append(fm.functions, FunctionMetrics{
			File:            f.Path,
			Name:            fn.Name,
			StartLine:       fn.StartLine,
			EndLine:         fn.EndLine,
			Lines:           int(fn.EndLine-fn.StartLine) + 1,
			Cyclomatic:      cc,
			Cognitive:       cognitive(fn.Body, f.Raw),
			MaxNesting:      maxNesting(fn.Body, f.Raw),
			Maintainability: maintainability(fn.Body, f.Raw, cc),
		})
	}

	for _, cls := range parser.GetClasses(result) {
		methods := 0
		if cls.Body != nil {
			methods = len(parser.FindNodesByType(cls.Body, f.Raw, "function_definition"))
		}
		fm.classes = append(fm.classes, ClassMetrics{
			File:      f.Path,
			Name:      cls.Name,
			StartLine: cls.StartLine,
			EndLine:   cls.EndLine,
			Lines:     int(cls.EndLine-cls.StartLine) + 1,
			Methods:   methods,
		})
	}
	return fm
}

// functionFindings reports every threshold the function exceeds. The
// indentation fallback yields only a name and a line span, so estimated
// functions are checked for length alone; their branch and volume
// metrics are zero-valued, not measured.
func (a *Analyzer) functionFindings(fn FunctionMetrics, estimated bool) []models.Finding {
	if estimated {
		if fn.Lines > a.config.MaxFunctionLines {
			return []models.Finding{*lengthFinding("Function", fn.Name, fn.File, fn.StartLine,
				fn.Lines, a.config.MaxFunctionLines, true)}
		}
		return nil
	}

	var findings []models.Finding

	if fn.Cyclomatic > a.config.MaxCyclomatic {
		severity := models.SeverityMedium
		if fn.Cyclomatic > 2*a.config.MaxCyclomatic {
			severity = models.SeverityHigh
		}
		findings = append(findings, models.Finding{
			File:        fn.File,
			Line:        fn.StartLine,
			Severity:    severity,
			Category:    models.CategoryComplexity,
			Message:     fmt.Sprintf("Function %q has cyclomatic complexity %d (limit %d)", fn.Name, fn.Cyclomatic, a.config.MaxCyclomatic),
			Description: fmt.Sprintf("%d independent paths flow through %s; each one needs a test case.", fn.Cyclomatic, fn.Name),
			Suggestion:  "Split the function along its branches: extract condition groups into helpers or replace branch ladders with a dispatch table.",
			Confidence:  1,
			Details: map[string]any{
				"metric": "cyclomatic",
				"value":  fn.Cyclomatic,
				"limit":  a.config.MaxCyclomatic,
			},
		})
	}

	if fn.Cognitive > a.config.MaxCognitive {
		severity := models.SeverityMedium
		if fn.Cognitive > 2*a.config.MaxCognitive {
			severity = models.SeverityHigh
		}
		findings = append(findings, models.Finding{
			File:        fn.File,
			Line:        fn.StartLine,
			Severity:    severity,
			Category:    models.CategoryComplexity,
			Message:     fmt.Sprintf("Function %q has cognitive complexity %d (limit %d)", fn.Name, fn.Cognitive, a.config.MaxCognitive),
			Description: fmt.Sprintf("Nested control flow makes %s hard to follow.", fn.Name),
			Suggestion:  "Flatten nesting with early returns and extract the innermost loops or branches into named helpers.",
			Confidence:  1,
			Details: map[string]any{
				"metric": "cognitive",
				"value":  fn.Cognitive,
				"limit":  a.config.MaxCognitive,
			},
		})
	}

	if fn.Maintainability < a.config.MaintainabilityFloor {
		severity := models.SeverityMedium
		if fn.Maintainability < a.config.MaintainabilityFloor/2 {
			severity = models.SeverityHigh
		}
		findings = append(findings, models.Finding{
			File:        fn.File,
			Line:        fn.StartLine,
			Severity:    severity,
			Category:    models.CategoryComplexity,
			Message:     fmt.Sprintf("Function %q has maintainability index %.0f (floor %.0f)", fn.Name, fn.Maintainability, a.config.MaintainabilityFloor),
			Description: fmt.Sprintf("The combination of size and branching puts %s below the maintainability floor.", fn.Name),
			Suggestion:  "Reduce the function's volume: extract logical steps into smaller functions with descriptive names.",
			Confidence:  0.9,
			Details: map[string]any{
				"metric": "maintainability",
				"value":  fn.Maintainability,
				"limit":  a.config.MaintainabilityFloor,
			},
		})
	}

	if fn.MaxNesting > a.config.MaxNesting {
		findings = append(findings, models.Finding{
			File:        fn.File,
			Line:        fn.StartLine,
			Severity:    models.SeverityMedium,
			Category:    models.CategoryNesting,
			Message:     fmt.Sprintf("Function %q nests %d levels deep (limit %d)", fn.Name, fn.MaxNesting, a.config.MaxNesting),
			Description: fmt.Sprintf("Control structures in %s nest beyond the readable depth.", fn.Name),
			Suggestion:  "Invert conditions and return early, or extract the inner levels into helper functions.",
			Confidence:  1,
			Details: map[string]any{
				"metric": "nesting",
				"value":  fn.MaxNesting,
				"limit":  a.config.MaxNesting,
			},
		})
	}

	if fn.Lines > a.config.MaxFunctionLines {
		findings = append(findings, *lengthFinding("Function", fn.Name, fn.File, fn.StartLine,
			fn.Lines, a.config.MaxFunctionLines, estimated))
	}
	return findings
}

func (a *Analyzer) classFinding(c ClassMetrics, estimated bool) *models.Finding {
	if c.Lines <= a.config.MaxClassLines {
		return nil
	}
	return lengthFinding("Class", c.Name, c.File, c.StartLine, c.Lines, a.config.MaxClassLines, estimated)
}

func lengthFinding(kind, name, file string, line uint32, lines, limit int, estimated bool) *models.Finding {
	severity := models.SeverityMedium
	if lines > 2*limit {
		severity = models.SeverityHigh
	}
	confidence := 1.0
	if estimated {
		// Spans from the indentation fallback are approximate.
		confidence = 0.6
	}
	return &models.Finding{
		File:        file,
		Line:        line,
		Severity:    severity,
		Category:    models.CategoryLength,
		Message:     fmt.Sprintf("%s %q is %d lines long (limit %d)", kind, name, lines, limit),
		Description: fmt.Sprintf("%s %s spans %d lines, which crowds too many responsibilities together.", kind, name, lines),
		Suggestion:  "Split it by responsibility; each extracted piece should be nameable without 'and'.",
		Confidence:  confidence,
		Details: map[string]any{
			"metric": "length",
			"value":  lines,
			"limit":  limit,
		},
	}
}

func (a *Analyzer) summarize(analysis *Analysis) {
	s := &analysis.Summary
	s.TotalFunctions = len(analysis.Functions)
	s.TotalClasses = len(analysis.Classes)

	var cyclo, cogn, maint []float64
	for _, fn := range analysis.Functions {
		cyclo = append(cyclo, float64(fn.Cyclomatic))
		cogn = append(cogn, float64(fn.Cognitive))
		maint = append(maint, fn.Maintainability)
		if fn.Cyclomatic > s.MaxCyclomatic {
			s.MaxCyclomatic = fn.Cyclomatic
		}
	}
	sort.Float64s(cyclo)
	s.AvgCyclomatic = stats.Mean(cyclo)
	s.P95Cyclomatic = stats.Percentile(cyclo, 95)
	s.AvgCognitive = stats.Mean(cogn)
	s.AvgMaintainability = stats.Mean(maint)

	for _, f := range analysis.Findings {
		switch f.Category {
		case models.CategoryComplexity:
			s.ComplexityIssues++
		case models.CategoryNesting:
			s.NestingIssues++
		case models.CategoryLength:
			s.LengthIssues++
		}
	}
}
