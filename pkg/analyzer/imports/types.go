package imports

import (
	"sort"

	"github.com/pythia-sh/pythia/pkg/models"
)

// Kind classifies an import statement.
type Kind string

const (
	KindPlain Kind = "plain" // import a.b [as c]
	KindFrom  Kind = "from"  // from a.b import c [as d]
	KindStar  Kind = "star"  // from a.b import *
)

// Record is one extracted import statement binding.
type Record struct {
	File      string `json:"file"`
	Kind      Kind   `json:"kind"`
	Name      string `json:"name"`   // effective local name (alias wins)
	Module    string `json:"module"` // dotted path, may lead with dots
	Statement string `json:"statement"`
	Line      uint32 `json:"line"`
}

// Graph is the internal-module dependency graph: an edge A -> B means
// module A imports module B. Only modules resolvable to an indexed file
// appear; external imports are excluded. Built once per run, read-only
// afterward.
type Graph struct {
	// Edges maps a module to the set of modules it imports.
	Edges map[string]map[string]struct{}
	// FileOf maps a ModuleId back to its source path.
	FileOf map[string]string
}

// NewGraph creates an empty dependency graph.
func NewGraph() *Graph {
	return &Graph{
		Edges:  make(map[string]map[string]struct{}),
		FileOf: make(map[string]string),
	}
}

// AddModule registers a module node.
func (g *Graph) AddModule(id, file string) {
	if _, ok := g.Edges[id]; !ok {
		g.Edges[id] = make(map[string]struct{})
	}
	g.FileOf[id] = file
}

// AddEdge records that from imports to. Self-edges are ignored.
func (g *Graph) AddEdge(from, to string) {
	if from == to {
		return
	}
	if _, ok := g.Edges[from]; !ok {
		g.Edges[from] = make(map[string]struct{})
	}
	g.Edges[from][to] = struct{}{}
}

// Modules returns all module ids in sorted order for deterministic
// traversal.
func (g *Graph) Modules() []string {
	ids := make([]string, 0, len(g.Edges))
	for id := range g.Edges {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Imports returns the sorted import targets of a module.
func (g *Graph) Imports(id string) []string {
	targets := make([]string, 0, len(g.Edges[id]))
	for t := range g.Edges[id] {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// EdgeCount returns the total number of edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, targets := range g.Edges {
		n += len(targets)
	}
	return n
}

// ModuleRank pairs a module with its PageRank score.
type ModuleRank struct {
	Module string  `json:"module"`
	Score  float64 `json:"score"`
}

// Summary provides aggregate statistics about the import analysis.
type Summary struct {
	TotalImports    int          `json:"total_imports"`
	UnusedImports   int          `json:"unused_imports"`
	TotalModules    int          `json:"total_modules"`
	TotalEdges      int          `json:"total_edges"`
	CircularCycles  int          `json:"circular_cycles"`
	CyclicModules   int          `json:"cyclic_modules"`
	OrphanedModules int          `json:"orphaned_modules"`
	AvgInstability  float64      `json:"avg_instability"`
	CentralModules  []ModuleRank `json:"central_modules,omitempty"`
}

// Analysis is the full import analysis result.
type Analysis struct {
	Records  []Record         `json:"records"`
	Graph    *Graph           `json:"-"`
	Cycles   [][]string       `json:"cycles,omitempty"`
	Findings []models.Finding `json:"findings"`
	Summary  Summary          `json:"summary"`
}
