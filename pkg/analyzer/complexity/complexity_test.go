package complexity

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythia-sh/pythia/pkg/models"
	"github.com/pythia-sh/pythia/pkg/source"
)

func loadFiles(t *testing.T, contents map[string]string) []*source.File {
	t.Helper()
	paths := make([]string, 0, len(contents))
	for path := range contents {
		paths = append(paths, path)
	}
	idx, err := source.Load(context.Background(), paths, source.MapSource(contents))
	require.NoError(t, err)
	return idx.All()
}

func analyze(t *testing.T, contents map[string]string, opts ...Option) *Analysis {
	t.Helper()
	analysis, err := New(opts...).Analyze(context.Background(), loadFiles(t, contents))
	require.NoError(t, err)
	return analysis
}

func metricsFor(t *testing.T, analysis *Analysis, name string) FunctionMetrics {
	t.Helper()
	for _, fn := range analysis.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not measured", name)
	return FunctionMetrics{}
}

func TestCyclomaticStraightLine(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def plain(x):
    a = x + 1
    b = a * 2
    return b
`,
	})

	fn := metricsFor(t, analysis, "plain")
	assert.Equal(t, 1, fn.Cyclomatic)
	assert.Equal(t, 0, fn.Cognitive)
	assert.Equal(t, 0, fn.MaxNesting)
}

func TestCyclomaticBranches(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def branchy(x):
    if x > 0:
        return 1
    elif x < -10:
        return 2
    for i in range(x):
        if i % 2 == 0 and i > 2:
            continue
    while x:
        x -= 1
    return 0
`,
	})

	fn := metricsFor(t, analysis, "branchy")
	// 1 + if + elif + for + if + and + while
	assert.Equal(t, 7, fn.Cyclomatic)
	assert.Greater(t, fn.Cognitive, 0)
}

func TestCyclomaticComprehension(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def squares(xs):
    return [x * x for x in xs if x > 0]
`,
	})

	fn := metricsFor(t, analysis, "squares")
	// 1 + comprehension + filter clause
	assert.Equal(t, 3, fn.Cyclomatic)
}

func TestCognitivePenalizesNesting(t *testing.T) {
	flat := `def flat(x):
    if x == 1:
        pass
    if x == 2:
        pass
    if x == 3:
        pass
`
	nested := `def nested(x):
    if x == 1:
        if x == 2:
            if x == 3:
                pass
`
	analysis := analyze(t, map[string]string{"flat.py": flat, "nested.py": nested})

	flatFn := metricsFor(t, analysis, "flat")
	nestedFn := metricsFor(t, analysis, "nested")

	assert.Equal(t, flatFn.Cyclomatic, nestedFn.Cyclomatic,
		"same branch count should give same cyclomatic complexity")
	assert.Greater(t, nestedFn.Cognitive, flatFn.Cognitive,
		"nesting must cost more cognitively")
	assert.Equal(t, 3, flatFn.Cognitive)
	assert.Equal(t, 6, nestedFn.Cognitive) // 1 + 2 + 3
}

func TestCognitiveElifIsSiblingBranch(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def ladder(x):
    if x == 1:
        pass
    elif x == 2:
        pass
    elif x == 3:
        pass

def deep(x):
    if x == 1:
        if x == 2:
            pass
        elif x == 3:
            pass
`,
	})

	// Each elif costs a flat 1 like the if it belongs to.
	assert.Equal(t, 3, metricsFor(t, analysis, "ladder").Cognitive)
	// Inner if costs 1+1; its elif costs 1 at the same level.
	assert.Equal(t, 4, metricsFor(t, analysis, "deep").Cognitive)
}

func TestNestedFunctionsMeasuredSeparately(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def outer(x):
    def inner(y):
        if y:
            return 1
        return 0
    return inner(x)
`,
	})

	outer := metricsFor(t, analysis, "outer")
	inner := metricsFor(t, analysis, "inner")
	assert.Equal(t, 1, outer.Cyclomatic, "inner branches must not leak into outer")
	assert.Equal(t, 2, inner.Cyclomatic)
}

func TestNestingFinding(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def deep(x):
    if x:
        for i in range(x):
            while i:
                with open("f") as fh:
                    try:
                        return fh
                    except OSError:
                        pass
`,
	})

	fn := metricsFor(t, analysis, "deep")
	assert.Equal(t, 5, fn.MaxNesting)

	nesting := findingsOf(analysis, models.CategoryNesting)
	require.Len(t, nesting, 1)
	assert.Equal(t, models.SeverityMedium, nesting[0].Severity)
}

func TestLengthFindings(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("def long_one(x):\n")
	for i := 0; i < 120; i++ {
		fmt.Fprintf(&sb, "    x = x + %d\n", i)
	}
	sb.WriteString("    return x\n")

	analysis := analyze(t, map[string]string{"m.py": sb.String()})

	length := findingsOf(analysis, models.CategoryLength)
	require.Len(t, length, 1)
	assert.Equal(t, models.SeverityHigh, length[0].Severity, "over double the limit")
	assert.Contains(t, length[0].Message, "long_one")
}

func TestMaintainabilityBounds(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def tiny():
    pass

def meaty(data):
    out = []
    for item in data:
        if item.kind == "a" and item.weight > 10:
            out.append(item.weight * 2 + 1)
        elif item.kind == "b" or item.flag:
            out.append(item.weight - 1)
    return out
`,
	})

	tiny := metricsFor(t, analysis, "tiny")
	meaty := metricsFor(t, analysis, "meaty")

	assert.LessOrEqual(t, tiny.Maintainability, 100.0)
	assert.GreaterOrEqual(t, tiny.Maintainability, 0.0)
	assert.Greater(t, tiny.Maintainability, meaty.Maintainability,
		"trivial code must score higher than branchy code")
}

func TestClassMetrics(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `class Calc:
    def add(self, a, b):
        return a + b

    def sub(self, a, b):
        return a - b
`,
	})

	require.Len(t, analysis.Classes, 1)
	c := analysis.Classes[0]
	assert.Equal(t, "Calc", c.Name)
	assert.Equal(t, 2, c.Methods)
}

func TestEstimateFallbackForBrokenFiles(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("def broken(x:\n") // syntax error keeps the tree nil
	for i := 0; i < 60; i++ {
		fmt.Fprintf(&sb, "    x = x + %d\n", i)
	}

	analysis := analyze(t, map[string]string{"m.py": sb.String()})

	fn := metricsFor(t, analysis, "broken")
	assert.Greater(t, fn.Lines, 50)
	assert.Zero(t, fn.Cyclomatic, "branch metrics stay zero without a tree")

	length := findingsOf(analysis, models.CategoryLength)
	require.Len(t, length, 1)
	assert.Less(t, length[0].Confidence, 1.0, "estimated spans lower the confidence")

	// Zero-valued branch and volume metrics must not trip their
	// thresholds; only the length check applies without a tree.
	assert.Empty(t, findingsOf(analysis, models.CategoryComplexity))
	assert.Empty(t, findingsOf(analysis, models.CategoryNesting))
}

func TestSummary(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `def a():
    return 1

def b(x):
    if x:
        return 2
    return 3
`,
	})

	s := analysis.Summary
	assert.Equal(t, 2, s.TotalFunctions)
	assert.Equal(t, 2, s.MaxCyclomatic)
	assert.InDelta(t, 1.5, s.AvgCyclomatic, 1e-9)
}

func findingsOf(analysis *Analysis, category models.Category) []models.Finding {
	var out []models.Finding
	for _, f := range analysis.Findings {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}
