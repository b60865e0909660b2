package complexity

import (
	"math"

	sitter "github.com/smacker/go-tree-sitter"
)

// operatorNodes approximate Halstead operators.
var operatorNodes = map[string]struct{}{
	"binary_operator":        {},
	"boolean_operator":       {},
	"comparison_operator":    {},
	"unary_operator":         {},
	"not_operator":           {},
	"augmented_assignment":   {},
	"assignment":             {},
	"call":                   {},
	"subscript":              {},
	"attribute":              {},
	"conditional_expression": {},
}

// operandNodes approximate Halstead operands.
var operandNodes = map[string]struct{}{
	"identifier": {},
	"integer":    {},
	"float":      {},
	"string":     {},
	"true":       {},
	"false":      {},
	"none":       {},
}

// maintainability computes a maintainability index in [0, 100].
//
// The inputs are deliberate approximations: volume is
// length*log2(length+1) over the tallied operator and operand nodes
// (the +1 keeps a single-token body finite), and the named-node count
// stands in for logical lines of code, which runs higher than a true
// statement count. The raw 171-point result
//
//	MI = 171 - 5.2*ln(V) - 0.23*G - 16.2*ln(nodes)
//
// is rescaled linearly by 100/171 rather than clamped at 100, keeping
// the whole scale ordinal, so scores are only comparable against
// thresholds tuned for this normalization, not against other tools'
// maintainability indexes. Trivial bodies with no measurable volume
// score a full 100.
func maintainability(body *sitter.Node, src []byte, cyclomaticComplexity int) float64 {
	operators, operands, nodes := halsteadCounts(body, src)

	length := operators + operands
	if length == 0 || nodes == 0 {
		return 100
	}
	volume := float64(length) * math.Log2(float64(length)+1)

	mi := 171 - 5.2*math.Log(volume) - 0.23*float64(cyclomaticComplexity) - 16.2*math.Log(float64(nodes))
	// Normalize the classic 171-point scale to [0, 100].
	mi = mi * 100 / 171
	if mi < 0 {
		return 0
	}
	if mi > 100 {
		return 100
	}
	return mi
}

// halsteadCounts tallies operator nodes, operand nodes and total named
// nodes in a body, skipping nested definitions.
func halsteadCounts(body *sitter.Node, src []byte) (operators, operands, nodes int) {
	walkOwn(body, src, func(n *sitter.Node, nodeType string) {
		if n.IsNamed() {
			nodes++
		}
		if _, ok := operatorNodes[nodeType]; ok {
			operators++
		}
		if _, ok := operandNodes[nodeType]; ok {
			operands++
		}
	})
	return operators, operands, nodes
}
