package imports

import (
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/pythia-sh/pythia/pkg/parser"
	"github.com/pythia-sh/pythia/pkg/source"
)

// fileImports is the per-file extraction result: the import records plus
// the identifier usage set they are checked against.
type fileImports struct {
	file    *source.File
	records []Record
	usage   map[string]struct{}
}

// extractFile pulls import records and the usage set out of one parsed file.
func extractFile(f *source.File) *fileImports {
	fi := &fileImports{
		file:  f,
		usage: make(map[string]struct{}),
	}
	if f.Tree == nil {
		return fi
	}
	root := f.Tree.RootNode()

	parser.WalkTyped(root, f.Raw, func(node *sitter.Node, nodeType string, src []byte) bool {
		switch nodeType {
		case "import_statement":
			fi.records = append(fi.records, plainImports(node, src, f.Path)...)
			return false
		case "import_from_statement":
			fi.records = append(fi.records, fromImports(node, src, f.Path)...)
			return false
		}
		return true
	})

	collectUsage(root, f.Raw, fi.usage)
	return fi
}

// plainImports handles `import a.b` and `import a.b as c` forms, one
// record per imported module.
func plainImports(node *sitter.Node, src []byte, path string) []Record {
	var records []Record
	stmt := statementText(node, src)
	line := node.StartPoint().Row + 1

	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		switch child.Type() {
		case "dotted_name":
			module := parser.GetNodeText(child, src)
			records = append(records, Record{
				File:      path,
				Kind:      KindPlain,
				Name:      firstSegment(module),
				Module:    module,
				Statement: stmt,
				Line:      line,
			})
		case "aliased_import":
			module := parser.GetNodeText(child.ChildByFieldName("name"), src)
			alias := parser.GetNodeText(child.ChildByFieldName("alias"), src)
			records = append(records, Record{
				File:      path,
				Kind:      KindPlain,
				Name:      alias,
				Module:    module,
				Statement: stmt,
				Line:      line,
			})
		}
	}
	return records
}

// fromImports handles `from a.b import c [as d]` and `from a.b import *`.
// The module text may lead with dots for relative imports.
func fromImports(node *sitter.Node, src []byte, path string) []Record {
	var records []Record
	stmt := statementText(node, src)
	line := node.StartPoint().Row + 1

	moduleNode := node.ChildByFieldName("module_name")
	module := parser.GetNodeText(moduleNode, src)

	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		if moduleNode != nil && sameNode(child, moduleNode) {
			continue
		}
		switch child.Type() {
		case "dotted_name":
			name := parser.GetNodeText(child, src)
			records = append(records, Record{
				File:      path,
				Kind:      KindFrom,
				Name:      firstSegment(name),
				Module:    module,
				Statement: stmt,
				Line:      line,
			})
		case "aliased_import":
			alias := parser.GetNodeText(child.ChildByFieldName("alias"), src)
			records = append(records, Record{
				File:      path,
				Kind:      KindFrom,
				Name:      alias,
				Module:    module,
				Statement: stmt,
				Line:      line,
			})
		case "wildcard_import":
			records = append(records, Record{
				File:      path,
				Kind:      KindStar,
				Name:      "*",
				Module:    module,
				Statement: stmt,
				Line:      line,
			})
		}
	}
	return records
}

// collectUsage gathers every identifier that can count as a use of an
// imported name: plain reads, attribute-access roots, names listed in
// __all__, and identifiers inside quoted type annotations. Identifiers
// inside import statements themselves and the attribute side of a dotted
// access (the `y` in `x.y`) are excluded.
func collectUsage(root *sitter.Node, src []byte, usage map[string]struct{}) {
	parser.WalkTyped(root, src, func(node *sitter.Node, nodeType string, s []byte) bool {
		switch nodeType {
		case "import_statement", "import_from_statement":
			return false
		case "identifier":
			if isAttributeName(node) {
				return true
			}
			usage[parser.GetNodeText(node, s)] = struct{}{}
		case "assignment":
			if parser.GetNodeText(node.ChildByFieldName("left"), s) == "__all__" {
				collectStringIdents(node.ChildByFieldName("right"), s, usage)
			}
		case "type":
			// Forward references: identifiers inside quoted annotations.
			for _, str := range parser.FindNodesByType(node, s, "string") {
				addIdentTokens(parser.GetNodeText(str, s), usage)
			}
		}
		return true
	})
}

// isAttributeName reports whether the identifier is the attribute side of
// an attribute node, which never counts as a use of a top-level name.
func isAttributeName(node *sitter.Node) bool {
	p := node.Parent()
	if p == nil || p.Type() != "attribute" {
		return false
	}
	attr := p.ChildByFieldName("attribute")
	return attr != nil && sameNode(attr, node)
}

// sameNode reports whether two handles refer to the same tree position.
func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// collectStringIdents adds the content of every string literal under node.
func collectStringIdents(node *sitter.Node, src []byte, usage map[string]struct{}) {
	if node == nil {
		return
	}
	for _, str := range parser.FindNodesByType(node, src, "string") {
		text := strings.Trim(parser.GetNodeText(str, src), "\"'")
		if text != "" {
			usage[text] = struct{}{}
		}
	}
}

// addIdentTokens tokenizes text into identifier-shaped runs and records
// each one as a usage.
func addIdentTokens(text string, usage map[string]struct{}) {
	var buf strings.Builder
	flush := func() {
		if buf.Len() > 0 {
			usage[buf.String()] = struct{}{}
			buf.Reset()
		}
	}
	for _, r := range text {
		if r == '_' || unicode.IsLetter(r) || (buf.Len() > 0 && unicode.IsDigit(r)) {
			buf.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
}

// statementText returns the first line of the statement for reporting.
func statementText(node *sitter.Node, src []byte) string {
	text := parser.GetNodeText(node, src)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSpace(text)
}

func firstSegment(dotted string) string {
	if idx := strings.IndexByte(dotted, '.'); idx >= 0 {
		return dotted[:idx]
	}
	return dotted
}
