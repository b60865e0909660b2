package imports

import (
	"context"
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
	require.Empty(t, idx.Failed)
	return idx.Parsed()
}

func analyze(t *testing.T, contents map[string]string) *Analysis {
	t.Helper()
	analysis, err := New(WithRoot(".")).Analyze(context.Background(), loadFiles(t, contents))
	require.NoError(t, err)
	return analysis
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

func TestExtractRecords(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `import os
import json as j
from pathlib import Path
from collections import OrderedDict as OD
from .local import helper
from x import *

os.getcwd()
j.dumps({})
Path(".")
OD()
helper()
`,
	})

	byName := make(map[string]Record)
	for _, rec := range analysis.Records {
		byName[rec.Name] = rec
	}

	os := byName["os"]
	assert.Equal(t, KindPlain, os.Kind)
	assert.Equal(t, "os", os.Module)
	assert.Equal(t, uint32(1), os.Line)
	assert.Equal(t, "import os", os.Statement)

	j := byName["j"]
	assert.Equal(t, KindPlain, j.Kind)
	assert.Equal(t, "json", j.Module)

	path := byName["Path"]
	assert.Equal(t, KindFrom, path.Kind)
	assert.Equal(t, "pathlib", path.Module)

	od := byName["OD"]
	assert.Equal(t, KindFrom, od.Kind)
	assert.Equal(t, "collections", od.Module)

	helper := byName["helper"]
	assert.Equal(t, ".local", helper.Module)

	star := byName["*"]
	assert.Equal(t, KindStar, star.Kind)
	assert.Equal(t, "x", star.Module)

	// Everything is used (or a star import), so nothing is flagged.
	assert.Empty(t, findingsOf(analysis, models.CategoryUnusedImport))
}

func TestUnusedImport(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `import os
import sys

print(sys.argv)
`,
	})

	unused := findingsOf(analysis, models.CategoryUnusedImport)
	require.Len(t, unused, 1)
	f := unused[0]
	assert.Equal(t, "m.py", f.File)
	assert.Equal(t, uint32(1), f.Line)
	assert.Equal(t, models.SeverityLow, f.Severity)
	assert.Contains(t, f.Message, `"os"`)
}

func TestUnusedImportAttributeUseCounts(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `import os

def cwd():
    return os.getcwd()
`,
	})
	assert.Empty(t, findingsOf(analysis, models.CategoryUnusedImport))
}

func TestUnusedImportSkipsInitFiles(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"pkg/__init__.py": "from pkg.api import serve\n",
		"pkg/api.py":      "def serve():\n    return 1\n",
	})
	assert.Empty(t, findingsOf(analysis, models.CategoryUnusedImport))
}

func TestUnusedImportImportErrorGuard(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `try:
    import ujson
except ImportError:
    ujson = None
`,
	})

	unused := findingsOf(analysis, models.CategoryUnusedImport)
	if len(unused) > 0 {
		// Guarded optional imports may still surface, but only cautiously.
		for _, f := range unused {
			assert.Equal(t, models.SeverityMedium, f.Severity)
			assert.Less(t, f.Confidence, 0.9)
		}
	}
}

func TestUnusedImportSpecialContexts(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": `import functools
from requests import HTTPError

@functools.lru_cache
def fetch():
    try:
        return 1
    except HTTPError:
        return None
`,
	})
	assert.Empty(t, findingsOf(analysis, models.CategoryUnusedImport))
}

func TestSideEffectImportsReportedCautiously(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"m.py": "from __future__ import annotations\nimport matplotlib\nimport mock\n\nx = 1\n",
	})

	unused := findingsOf(analysis, models.CategoryUnusedImport)
	require.Len(t, unused, 3)
	for _, f := range unused {
		// Side-effect modules and mock scaffolding still get reported,
		// just never as "safe to remove".
		assert.Equal(t, models.SeverityMedium, f.Severity, f.Message)
		assert.InDelta(t, 0.5, f.Confidence, 1e-9, f.Message)
		assert.Contains(t, f.Suggestion, "verify", f.Message)
	}
}

func TestCircularImportTwoModules(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"a.py": "from .b import x\n\ny = 1\n",
		"b.py": "from .a import y\n\nx = 2\n",
	})

	require.Len(t, analysis.Cycles, 1)
	cycle := analysis.Cycles[0]
	// Chain closes on its first module: A -> B -> A.
	assert.Len(t, cycle, 3)
	assert.Equal(t, cycle[0], cycle[len(cycle)-1])

	circular := findingsOf(analysis, models.CategoryCircularImport)
	require.Len(t, circular, 2)
	files := map[string]bool{}
	for _, f := range circular {
		assert.Equal(t, models.SeverityHigh, f.Severity)
		files[f.File] = true
		assert.NotZero(t, f.Line)
	}
	assert.True(t, files["a.py"] && files["b.py"])
}

func TestCircularImportThreeModulesOneCycle(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"a.py": "import b\n",
		"b.py": "import c\n",
		"c.py": "import a\n",
	})

	require.Len(t, analysis.Cycles, 1, "one canonical cycle regardless of entry point")
	assert.Len(t, analysis.Cycles[0], 4)
	assert.Len(t, findingsOf(analysis, models.CategoryCircularImport), 3)
}

func TestNoFalseCycleInLinearChain(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"a.py": "import b\n",
		"b.py": "import c\n",
		"c.py": "x = 1\n",
	})

	assert.Empty(t, analysis.Cycles)
	assert.Empty(t, findingsOf(analysis, models.CategoryCircularImport))
}

func TestOrphanDetection(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"main.py":   "import used\n\nused.go()\n",
		"used.py":   "def go():\n    return 1\n",
		"orphan.py": "def lonely():\n    return 2\n",
	})

	orphaned := findingsOf(analysis, models.CategoryOrphanedModule)
	require.Len(t, orphaned, 1)
	f := orphaned[0]
	assert.Equal(t, "orphan.py", f.File)
	assert.Equal(t, models.SeverityLow, f.Severity)
	assert.Equal(t, true, f.Details["safe_to_remove"])
}

func TestOrphanExclusions(t *testing.T) {
	analysis := analyze(t, map[string]string{
		// Entry point by name.
		"main.py": "x = 1\n",
		// Entry point by guard.
		"job.py": "if __name__ == \"__main__\":\n    print(1)\n",
		// Test file.
		"test_job.py": "def test_ok():\n    assert True\n",
		// Package marker.
		"pkg/__init__.py": "",
		// Scripts directory.
		"scripts/deploy.py": "x = 2\n",
		// Config by convention.
		"settings.py": "DEBUG = True\n",
	})

	assert.Empty(t, findingsOf(analysis, models.CategoryOrphanedModule))
}

func TestOrphanNeedsReview(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"main.py": "import helper\n\nhelper.use()\n",
		"het.py": `class Widget:
    def render(self):
        return "w"
`,
		"helper.py": "def use():\n    return 1\n",
	})

	orphaned := findingsOf(analysis, models.CategoryOrphanedModule)
	require.Len(t, orphaned, 1)
	f := orphaned[0]
	assert.Equal(t, "het.py", f.File)
	assert.Equal(t, models.SeverityMedium, f.Severity)
	assert.Equal(t, false, f.Details["safe_to_remove"])
}

func TestSummaryGraphMetrics(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"app.py":  "import core\nimport util\n\ncore.run()\nutil.fmt()\n",
		"core.py": "import util\n\nutil.fmt()\n\ndef run():\n    return 1\n",
		"util.py": "def fmt():\n    return 2\n",
	})

	s := analysis.Summary
	assert.Equal(t, 3, s.TotalModules)
	assert.Equal(t, 3, s.TotalEdges)
	assert.Zero(t, s.CircularCycles)
	assert.Zero(t, s.CyclicModules)
	assert.NotEmpty(t, s.CentralModules)
	// Everything imports util, so it ranks first.
	assert.Equal(t, "util", s.CentralModules[0].Module)
	assert.Greater(t, s.AvgInstability, 0.0)
	assert.LessOrEqual(t, s.AvgInstability, 1.0)
}

func TestCycleDetectionMatchesTarjan(t *testing.T) {
	analysis := analyze(t, map[string]string{
		"a.py": "import b\n",
		"b.py": "import a\n",
		"c.py": "import a\n",
	})

	assert.Len(t, analysis.Cycles, 1)
	assert.Equal(t, 2, analysis.Summary.CyclicModules)
}
