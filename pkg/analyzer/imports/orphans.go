package imports

import (
	"path/filepath"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/pythia-sh/pythia/pkg/parser"
	"github.com/pythia-sh/pythia/pkg/source"
)

// entryNames are module basenames that are run directly rather than
// imported, so zero inbound references is expected.
var entryNames = map[string]struct{}{
	"main":   {},
	"cli":    {},
	"app":    {},
	"server": {},
	"run":    {},
	"start":  {},
	"manage": {},
	"setup":  {},
	"wsgi":   {},
	"asgi":   {},
}

// entrySegments are path segments whose contents are invoked externally.
var entrySegments = map[string]struct{}{
	"cli":        {},
	"api":        {},
	"scripts":    {},
	"bin":        {},
	"tests":      {},
	"test":       {},
	"examples":   {},
	"demos":      {},
	"tools":      {},
	"migrations": {},
}

// configNames are module basenames that frameworks load by convention.
var configNames = map[string]struct{}{
	"settings":  {},
	"config":    {},
	"conf":      {},
	"conftest":  {},
	"constants": {},
}

// orphan is a module with no inbound imports and no exclusion reason.
type orphan struct {
	module       string
	file         *source.File
	safeToRemove bool
	reasons      []string
}

// findOrphans returns modules nothing imports, skipping entry points,
// tests, package markers, config modules and scripts with a
// __name__ == "__main__" guard. Inbound references are tracked in a
// bitmap over the sorted module list.
func findOrphans(g *Graph, files map[string]*source.File) []orphan {
	modules := g.Modules()
	slot := make(map[string]uint32, len(modules))
	for i, m := range modules {
		slot[m] = uint32(i)
	}

	referenced := roaring.New()
	for _, from := range modules {
		for to := range g.Edges[from] {
			if idx, ok := slot[to]; ok {
				referenced.Add(idx)
			}
		}
	}

	var orphans []orphan
	for i, m := range modules {
		if referenced.Contains(uint32(i)) {
			continue
		}
		f := files[g.FileOf[m]]
		if f == nil || isExcludedFromOrphans(m, f) {
			continue
		}
		safe, reasons := assessRemoval(f)
		orphans = append(orphans, orphan{
			module:       m,
			file:         f,
			safeToRemove: safe,
			reasons:      reasons,
		})
	}
	return orphans
}

func isExcludedFromOrphans(module string, f *source.File) bool {
	segments := strings.Split(module, ".")
	base := segments[len(segments)-1]

	if _, ok := entryNames[base]; ok {
		return true
	}
	if _, ok := configNames[base]; ok {
		return true
	}
	for _, seg := range segments {
		if _, ok := entrySegments[seg]; ok {
			return true
		}
	}
	if strings.HasPrefix(base, "test_") || strings.HasSuffix(base, "_test") {
		return true
	}
	// A package marker maps to its directory, which is imported through
	// its children.
	if strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path)) == "__init__" {
		return true
	}
	// Scripts guard their entry point rather than being imported.
	if strings.Contains(f.Text(), "__name__") && strings.Contains(f.Text(), "__main__") {
		return true
	}
	return false
}

// assessRemoval judges whether an orphaned module looks safe to delete
// outright. Anything that defines classes, more than a few functions, or
// nontrivial module state needs a human look first.
func assessRemoval(f *source.File) (bool, []string) {
	var reasons []string
	if f.Tree == nil {
		return false, []string{"could not be parsed"}
	}
	root := f.Tree.RootNode()

	if n := len(parser.FindNodesByType(root, f.Raw, "class_definition")); n > 0 {
		reasons = append(reasons, "defines classes")
	}
	if n := len(parser.FindNodesByType(root, f.Raw, "function_definition")); n > 3 {
		reasons = append(reasons, "defines several functions")
	}
	if n := countModuleAssignments(f); n > 2 {
		reasons = append(reasons, "holds module-level state")
	}
	imports := len(parser.FindNodesByType(root, f.Raw, "import_statement")) +
		len(parser.FindNodesByType(root, f.Raw, "import_from_statement"))
	if imports > 5 {
		reasons = append(reasons, "imports many modules")
	}
	if hasLongDocstring(f) {
		reasons = append(reasons, "carries substantial documentation")
	}
	return len(reasons) == 0, reasons
}

// countModuleAssignments counts assignment lines outside any def or class.
func countModuleAssignments(f *source.File) int {
	n := 0
	for _, node := range parser.FindNodesByType(f.Tree.RootNode(), f.Raw, "assignment") {
		inDef := false
		for p := node.Parent(); p != nil; p = p.Parent() {
			if t := p.Type(); t == "function_definition" || t == "class_definition" {
				inDef = true
				break
			}
		}
		if !inDef {
			n++
		}
	}
	return n
}

func hasLongDocstring(f *source.File) bool {
	root := f.Tree.RootNode()
	first := root.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return false
	}
	str := first.NamedChild(0)
	if str == nil || str.Type() != "string" {
		return false
	}
	return first.EndPoint().Row-first.StartPoint().Row >= 3
}
