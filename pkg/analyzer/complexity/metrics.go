package complexity

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/pythia-sh/pythia/pkg/parser"
)

// branchNodes are the decision points counted by cyclomatic complexity.
var branchNodes = map[string]struct{}{
	"if_statement":           {},
	"elif_clause":            {},
	"while_statement":        {},
	"for_statement":          {},
	"except_clause":          {},
	"conditional_expression": {},
	"boolean_operator":       {},
	"if_clause":              {}, // comprehension filters
}

// comprehensionNodes each contribute one implicit loop.
var comprehensionNodes = map[string]struct{}{
	"list_comprehension":       {},
	"set_comprehension":        {},
	"dictionary_comprehension": {},
	"generator_expression":     {},
}

// nestingNodes increase structural nesting depth.
var nestingNodes = map[string]struct{}{
	"if_statement":    {},
	"for_statement":   {},
	"while_statement": {},
	"with_statement":  {},
	"try_statement":   {},
}

// cyclomatic computes McCabe complexity for a function body: one plus
// the number of decision points. Nested function and class definitions
// are measured on their own and excluded here.
func cyclomatic(body *sitter.Node, src []byte) int {
	complexity := 1
	walkOwn(body, src, func(node *sitter.Node, nodeType string) {
		if _, ok := branchNodes[nodeType]; ok {
			complexity++
		}
		if _, ok := comprehensionNodes[nodeType]; ok {
			complexity++
		}
	})
	return complexity
}

// cognitive computes cognitive complexity: control structures cost one
// plus their nesting depth, so deeply nested branching is penalized more
// than flat branching; boolean operators cost a flat one.
func cognitive(body *sitter.Node, src []byte) int {
	return cognitiveAt(body, src, 0)
}

func cognitiveAt(node *sitter.Node, src []byte, depth int) int {
	total := 0
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		t := child.Type()
		switch t {
		case "function_definition", "class_definition":
			continue
		case "if_statement", "while_statement", "for_statement", "except_clause":
			total += 1 + depth + cognitiveAt(child, src, depth+1)
		case "elif_clause":
			// A sibling branch of its if, not a deeper level: flat cost,
			// body stays at the if's depth.
			total += 1 + cognitiveAt(child, src, depth)
		case "boolean_operator":
			total += 1 + cognitiveAt(child, src, depth)
		default:
			total += cognitiveAt(child, src, depth)
		}
	}
	return total
}

// maxNesting returns the deepest structural nesting inside a body.
func maxNesting(body *sitter.Node, src []byte) int {
	return nestingAt(body, 0)
}

func nestingAt(node *sitter.Node, depth int) int {
	deepest := depth
	for i := range int(node.NamedChildCount()) {
		child := node.NamedChild(i)
		t := child.Type()
		if t == "function_definition" || t == "class_definition" {
			continue
		}
		d := depth
		if _, ok := nestingNodes[t]; ok {
			d++
		}
		if sub := nestingAt(child, d); sub > deepest {
			deepest = sub
		}
	}
	return deepest
}

// walkOwn traverses a function body without descending into nested
// function or class definitions.
func walkOwn(node *sitter.Node, src []byte, visit func(*sitter.Node, string)) {
	parser.WalkTyped(node, src, func(n *sitter.Node, nodeType string, _ []byte) bool {
		if n != node {
			if nodeType == "function_definition" || nodeType == "class_definition" {
				return false
			}
		}
		visit(n, nodeType)
		return true
	})
}
