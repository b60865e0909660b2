// Package imports analyzes Python import statements: unused imports,
// circular dependencies between internal modules, and orphaned modules
// nothing imports.
package imports

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/network"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/pythia-sh/pythia/internal/fileproc"
	"github.com/pythia-sh/pythia/pkg/analyzer"
	"github.com/pythia-sh/pythia/pkg/models"
	"github.com/pythia-sh/pythia/pkg/source"
)

// Ensure Analyzer implements analyzer.IndexAnalyzer.
var _ analyzer.IndexAnalyzer[*Analysis] = (*Analyzer)(nil)

// sideEffectPrefixes mark modules imported for their import-time side
// effects; their bindings going unreferenced is normal.
var sideEffectPrefixes = []string{
	"__future__",
	"matplotlib",
	"django",
	"gevent",
	"readline",
	"sitecustomize",
	"logging.config",
	"dotenv",
}

// mockTokens in an import statement suggest test scaffolding that
// patches names dynamically, defeating static usage tracking.
var mockTokens = []string{"mock", "patch", "monkeypatch"}

// Analyzer extracts imports, verifies their usage, and analyzes the
// internal dependency graph.
type Analyzer struct {
	root string
}

// Option is a functional option for configuring Analyzer.
type Option func(*Analyzer)

// WithRoot sets the directory module ids are derived relative to.
func WithRoot(root string) Option {
	return func(a *Analyzer) {
		a.root = root
	}
}

// New creates a new import analyzer.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{root: "."}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the three import passes. Extraction runs per file in
// parallel; graph construction and the cycle and orphan passes are a
// single-threaded aggregation because they need the whole module set.
func (a *Analyzer) Analyze(ctx context.Context, files []*source.File) (*Analysis, error) {
	perFile, _ := fileproc.ForEach(ctx, files, func(f *source.File) (*fileImports, error) {
		return extractFile(f), nil
	})
	sort.Slice(perFile, func(i, j int) bool { return perFile[i].file.Path < perFile[j].file.Path })

	byPath := make(map[string]*source.File, len(files))
	idx := make(moduleIndex, len(files))
	for _, f := range files {
		byPath[f.Path] = f
		if id := ModuleID(a.root, f.Path); id != "" {
			idx[id] = f.Path
		}
	}

	analysis := &Analysis{Graph: NewGraph()}
	for id, file := range idx {
		analysis.Graph.AddModule(id, file)
	}

	for _, fi := range perFile {
		analysis.Records = append(analysis.Records, fi.records...)
		analysis.Findings = append(analysis.Findings, a.unusedFindings(fi)...)

		current := ModuleID(a.root, fi.file.Path)
		if current == "" {
			continue
		}
		for _, rec := range fi.records {
			for _, target := range resolveTargets(rec, current, idx) {
				analysis.Graph.AddEdge(current, target)
			}
		}
	}

	analysis.Cycles = detectCycles(analysis.Graph)
	analysis.Findings = append(analysis.Findings, a.cycleFindings(analysis, perFile)...)

	orphans := findOrphans(analysis.Graph, byPath)
	analysis.Findings = append(analysis.Findings, orphanFindings(orphans)...)

	a.summarize(analysis, orphans)
	models.SortFindings(analysis.Findings)
	return analysis, nil
}

// unusedFindings reports imports whose bound name never appears in the
// file's usage set. Star imports cannot be verified statically and
// package marker files commonly import purely to re-export, so both are
// skipped.
func (a *Analyzer) unusedFindings(fi *fileImports) []models.Finding {
	if strings.HasPrefix(filepath.Base(fi.file.Path), "__init__.") {
		return nil
	}

	var findings []models.Finding
	for _, rec := range fi.records {
		if rec.Kind == KindStar {
			continue
		}
		if _, used := fi.usage[rec.Name]; used {
			continue
		}
		if usedInSpecialContext(fi.file, rec.Name) {
			continue
		}

		severity := models.SeverityLow
		confidence := 0.9
		suggestion := fmt.Sprintf("Remove the unused import of %q.", rec.Name)
		switch {
		case hasSideEffects(rec.Module):
			severity = models.SeverityMedium
			confidence = 0.5
			suggestion = fmt.Sprintf("Module %q may be imported for its import-time side effects; verify nothing depends on them before removing.", rec.Module)
		case hasMockToken(rec.Statement):
			severity = models.SeverityMedium
			confidence = 0.5
			suggestion = fmt.Sprintf("Import of %q looks like mock scaffolding that patches names dynamically; verify before removing.", rec.Name)
		case guardedByImportError(fi.file, rec.Line):
			// Optional-dependency probes bind a name just to see whether
			// the import succeeds.
			severity = models.SeverityMedium
			confidence = 0.5
			suggestion = fmt.Sprintf("Import of %q sits in an ImportError guard; verify it is not an optional dependency probe before removing.", rec.Name)
		}

		findings = append(findings, models.Finding{
			File:        rec.File,
			Line:        rec.Line,
			Severity:    severity,
			Category:    models.CategoryUnusedImport,
			Message:     fmt.Sprintf("Unused import %q", rec.Name),
			Description: fmt.Sprintf("The name %q bound by `%s` is never referenced in this file.", rec.Name, rec.Statement),
			Suggestion:  suggestion,
			Confidence:  confidence,
			Details: map[string]any{
				"name":      rec.Name,
				"module":    rec.Module,
				"kind":      string(rec.Kind),
				"statement": rec.Statement,
			},
		})
	}
	return findings
}

func hasSideEffects(module string) bool {
	m := strings.TrimLeft(module, ".")
	for _, prefix := range sideEffectPrefixes {
		if m == prefix || strings.HasPrefix(m, prefix+".") {
			return true
		}
	}
	return false
}

func hasMockToken(statement string) bool {
	lower := strings.ToLower(statement)
	for _, tok := range mockTokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}

// usedInSpecialContext scans raw lines for syntactic positions the usage
// walk can miss for a name that only resolves dynamically: decorators,
// exception clauses, isinstance/issubclass checks and base-class lists.
func usedInSpecialContext(f *source.File, name string) bool {
	for _, line := range f.Lines {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "@") && containsName(trimmed, name):
			return true
		case strings.HasPrefix(trimmed, "except") && containsName(trimmed, name):
			return true
		case strings.HasPrefix(trimmed, "class ") && containsName(trimmed, name):
			return true
		case (strings.Contains(trimmed, "isinstance(") || strings.Contains(trimmed, "issubclass(")) &&
			containsName(trimmed, name):
			return true
		}
	}
	return false
}

// containsName reports whether name occurs in line as a whole identifier.
func containsName(line, name string) bool {
	for start := 0; ; {
		i := strings.Index(line[start:], name)
		if i < 0 {
			return false
		}
		i += start
		before := byte(0)
		if i > 0 {
			before = line[i-1]
		}
		after := byte(0)
		if end := i + len(name); end < len(line) {
			after = line[end]
		}
		if !isIdentByte(before) && !isIdentByte(after) {
			return true
		}
		start = i + len(name)
	}
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// guardedByImportError looks a few lines around the import for an
// ImportError handler.
func guardedByImportError(f *source.File, line uint32) bool {
	lo := int(line) - 6
	if lo < 0 {
		lo = 0
	}
	hi := int(line) + 5
	if hi > len(f.Lines) {
		hi = len(f.Lines)
	}
	for _, l := range f.Lines[lo:hi] {
		if strings.Contains(l, "ImportError") || strings.Contains(l, "ModuleNotFoundError") {
			return true
		}
	}
	return false
}

// cycleFindings produces one finding per module participating in a
// cycle, anchored at the import that closes its edge of the loop.
func (a *Analyzer) cycleFindings(analysis *Analysis, perFile []*fileImports) []models.Finding {
	recordsByFile := make(map[string][]Record, len(perFile))
	for _, fi := range perFile {
		recordsByFile[fi.file.Path] = fi.records
	}

	var findings []models.Finding
	for _, cycle := range analysis.Cycles {
		chain := strings.Join(cycle, " -> ")
		for i, module := range cycle[:len(cycle)-1] {
			next := cycle[i+1]
			file := analysis.Graph.FileOf[module]
			line := edgeLine(recordsByFile[file], module, next)

			findings = append(findings, models.Finding{
				File:     file,
				Line:     line,
				Severity: models.SeverityHigh,
				Category: models.CategoryCircularImport,
				Message:  fmt.Sprintf("Circular import between %s and %s", module, next),
				Description: fmt.Sprintf("Module %s participates in an import cycle: %s.",
					module, chain),
				Suggestion: cycleSuggestion(len(cycle) - 1),
				Confidence: 0.95,
				Details: map[string]any{
					"module": module,
					"cycle":  cycle,
				},
			})
		}
	}
	return findings
}

// edgeLine locates the import statement in module's file that resolves
// to next, falling back to line 1.
func edgeLine(records []Record, module, next string) uint32 {
	idx := moduleIndex{next: ""}
	for _, rec := range records {
		for _, target := range resolveTargets(rec, module, idx) {
			if target == next {
				return rec.Line
			}
		}
	}
	return 1
}

func cycleSuggestion(size int) string {
	if size <= 2 {
		return "Break the cycle by moving the shared definitions into a third module both sides import, or defer one import into the function that needs it."
	}
	return "Restructure the cycle: extract shared definitions into a lower-level module, invert a dependency behind an interface, or defer imports into function bodies."
}

func orphanFindings(orphans []orphan) []models.Finding {
	var findings []models.Finding
	for _, o := range orphans {
		severity := models.SeverityLow
		confidence := 0.8
		suggestion := "No other module imports this one; it looks safe to remove."
		if !o.safeToRemove {
			severity = models.SeverityMedium
			confidence = 0.6
			suggestion = fmt.Sprintf("No other module imports this one, but it %s; review before removing.",
				strings.Join(o.reasons, ", "))
		}

		findings = append(findings, models.Finding{
			File:        o.file.Path,
			Line:        1,
			Severity:    severity,
			Category:    models.CategoryOrphanedModule,
			Message:     fmt.Sprintf("Orphaned module %s", o.module),
			Description: fmt.Sprintf("Module %s has no inbound imports from the analyzed codebase.", o.module),
			Suggestion:  suggestion,
			Confidence:  confidence,
			Details: map[string]any{
				"module":         o.module,
				"safe_to_remove": o.safeToRemove,
				"reasons":        o.reasons,
			},
		})
	}
	return findings
}

// summarize fills the aggregate statistics, using the dependency graph's
// strongly connected components, PageRank centrality and fan-in/fan-out
// instability.
func (a *Analyzer) summarize(analysis *Analysis, orphans []orphan) {
	g := analysis.Graph
	s := &analysis.Summary

	s.TotalImports = len(analysis.Records)
	s.TotalModules = len(g.Edges)
	s.TotalEdges = g.EdgeCount()
	s.CircularCycles = len(analysis.Cycles)
	s.OrphanedModules = len(orphans)
	for _, f := range analysis.Findings {
		if f.Category == models.CategoryUnusedImport {
			s.UnusedImports++
		}
	}

	cyclic := make(map[string]struct{})
	for _, cycle := range analysis.Cycles {
		for _, m := range cycle[:len(cycle)-1] {
			cyclic[m] = struct{}{}
		}
	}
	s.CyclicModules = len(cyclic)

	if s.TotalModules == 0 {
		return
	}

	modules := g.Modules()
	dg := simple.NewDirectedGraph()
	for i := range modules {
		dg.AddNode(simple.Node(int64(i)))
	}
	slot := make(map[string]int64, len(modules))
	for i, m := range modules {
		slot[m] = int64(i)
	}
	fanIn := make(map[string]int, len(modules))
	for _, from := range modules {
		for _, to := range g.Imports(from) {
			fanIn[to]++
			dg.SetEdge(dg.NewEdge(simple.Node(slot[from]), simple.Node(slot[to])))
		}
	}

	// Tarjan gives the same answer as the DFS pass for nontrivial
	// components; it doubles as a cross-check and counts nodes per
	// component directly.
	for _, scc := range topo.TarjanSCC(dg) {
		if len(scc) > 1 {
			// Component members are cyclic even when the DFS reported them
			// through a different chain.
			for _, n := range scc {
				cyclic[modules[n.ID()]] = struct{}{}
			}
		}
	}
	s.CyclicModules = len(cyclic)

	ranks := network.PageRank(dg, 0.85, 1e-6)
	ranked := make([]ModuleRank, 0, len(modules))
	for i, m := range modules {
		ranked = append(ranked, ModuleRank{Module: m, Score: ranks[int64(i)]})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Module < ranked[j].Module
	})
	if len(ranked) > 5 {
		ranked = ranked[:5]
	}
	s.CentralModules = ranked

	var total float64
	counted := 0
	for _, m := range modules {
		out := len(g.Edges[m])
		in := fanIn[m]
		if in+out == 0 {
			continue
		}
		total += float64(out) / float64(in+out)
		counted++
	}
	if counted > 0 {
		s.AvgInstability = total / float64(counted)
	}
}
