package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pythia-sh/pythia/pkg/config"
	"github.com/pythia-sh/pythia/pkg/models"
	"github.com/pythia-sh/pythia/pkg/source"
)

const dupBody = `def compute_total(items):
    total = 0
    for item in items:
        if item > 0:
            total += item
    return total
`

func TestAnalyzePaths(t *testing.T) {
	src := source.MapSource{
		"app/main.py":  "import util\nimport json\n\nutil.helper()\n" + dupBody,
		"app/util.py":  "def helper():\n    return 1\n" + dupBody,
		"app/loose.py": "def unattached():\n    return 2\n",
	}
	paths := []string{"app/main.py", "app/util.py", "app/loose.py"}

	report, err := New(WithSource(src)).AnalyzePaths(context.Background(), "app", paths)
	require.NoError(t, err)

	require.NotNil(t, report.Duplicates)
	require.NotNil(t, report.Imports)
	require.NotNil(t, report.Complexity)

	categories := map[models.Category]int{}
	for _, f := range report.Findings {
		categories[f.Category]++
	}
	assert.Greater(t, categories[models.CategoryDuplicateCode], 0, "shared function should be flagged")
	assert.Greater(t, categories[models.CategoryUnusedImport], 0, "json import is unused")
	assert.Greater(t, categories[models.CategoryOrphanedModule], 0, "loose.py is imported by nothing")

	assert.Equal(t, 3, report.Metrics.FilesScanned)
	assert.Zero(t, report.Metrics.FilesSkipped)
	assert.Equal(t, categories[models.CategoryUnusedImport], report.Metrics.UnusedImports)
	assert.False(t, report.GeneratedAt.IsZero())
}

func TestAnalyzePathsSortedFindings(t *testing.T) {
	src := source.MapSource{
		"a.py": "import os\nimport sys\n",
		"b.py": "import json\n",
	}

	report, err := New(WithSource(src)).AnalyzePaths(context.Background(), ".", []string{"a.py", "b.py"})
	require.NoError(t, err)

	for i := 1; i < len(report.Findings); i++ {
		prev, cur := report.Findings[i-1], report.Findings[i]
		if prev.Category != cur.Category {
			assert.Less(t, string(prev.Category), string(cur.Category))
			continue
		}
		if prev.File != cur.File {
			assert.LessOrEqual(t, prev.File, cur.File)
		}
	}
}

func TestAnalyzePathsParseFailure(t *testing.T) {
	src := source.MapSource{
		"ok.py":  "x = 1\n",
		"bad.py": "def broken(:\n    pass\n",
	}

	report, err := New(WithSource(src)).AnalyzePaths(context.Background(), ".",
		[]string{"ok.py", "bad.py", "gone.py"})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Metrics.FilesSkipped)

	byCategory := map[models.Category][]models.Finding{}
	for _, f := range report.Findings {
		byCategory[f.Category] = append(byCategory[f.Category], f)
	}

	parse := byCategory[models.CategoryParseError]
	require.Len(t, parse, 1)
	assert.Equal(t, "bad.py", parse[0].File)
	assert.Equal(t, models.SeverityHigh, parse[0].Severity)
	assert.InDelta(t, 1.0, parse[0].Confidence, 1e-9)

	read := byCategory[models.CategoryReadError]
	require.Len(t, read, 1)
	assert.Equal(t, "gone.py", read[0].File)
	assert.Equal(t, models.SeverityLow, read[0].Severity)
	assert.Less(t, read[0].Confidence, 1.0)
}

func TestRunScansDirectory(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "__pycache__"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.py"), []byte("import sys\n\nprint(sys.argv)\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("not python"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "__pycache__", "junk.py"), []byte("x"), 0o644))

	report, err := New().Run(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Metrics.FilesScanned)
	assert.Equal(t, root, report.Root)
}

func TestEngineRespectsConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Thresholds.MaxFunctionLines = 3

	src := source.MapSource{
		"m.py": "def f(x):\n    a = x + 1\n    b = a * 2\n    c = b - 3\n    return c\n",
	}

	report, err := New(WithConfig(cfg), WithSource(src)).AnalyzePaths(context.Background(), ".", []string{"m.py"})
	require.NoError(t, err)

	var length int
	for _, f := range report.Findings {
		if f.Category == models.CategoryLength {
			length++
		}
	}
	assert.Equal(t, 1, length)
	assert.Equal(t, 1, report.Metrics.LengthIssues)
}
