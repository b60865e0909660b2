package imports

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestModuleID(t *testing.T) {
	tests := []struct {
		root string
		path string
		want string
	}{
		{".", "a.py", "a"},
		{".", "pkg/mod.py", "pkg.mod"},
		{".", "pkg/sub/deep.py", "pkg.sub.deep"},
		{".", "pkg/__init__.py", "pkg"},
		{"/repo", "/repo/app/views.py", "app.views"},
		{".", "__init__.py", ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ModuleID(tt.root, tt.path))
		})
	}
}

func TestResolveTargetsAbsolute(t *testing.T) {
	idx := moduleIndex{
		"pkg":        "pkg/__init__.py",
		"pkg.mod":    "pkg/mod.py",
		"other":      "other.py",
		"pkg.helper": "pkg/helper.py",
	}

	// import pkg.mod
	got := resolveTargets(Record{Kind: KindPlain, Module: "pkg.mod", Name: "pkg"}, "main", idx)
	assert.Equal(t, []string{"pkg.mod"}, got)

	// from pkg import mod resolves both the package and the submodule
	got = resolveTargets(Record{Kind: KindFrom, Module: "pkg", Name: "mod"}, "main", idx)
	assert.Equal(t, []string{"pkg", "pkg.mod"}, got)

	// from pkg import something that is not a submodule
	got = resolveTargets(Record{Kind: KindFrom, Module: "pkg", Name: "helper_func"}, "main", idx)
	assert.Equal(t, []string{"pkg"}, got)

	// external modules resolve to nothing
	got = resolveTargets(Record{Kind: KindPlain, Module: "os.path", Name: "os"}, "main", idx)
	assert.Empty(t, got)
}

func TestResolveTargetsRelative(t *testing.T) {
	idx := moduleIndex{
		"a":           "a.py",
		"b":           "b.py",
		"pkg":         "pkg/__init__.py",
		"pkg.inner":   "pkg/inner.py",
		"pkg.sibling": "pkg/sibling.py",
	}

	// from .b import x, inside top-level module a
	got := resolveTargets(Record{Kind: KindFrom, Module: ".b", Name: "x"}, "a", idx)
	assert.Equal(t, []string{"b"}, got)

	// from . import sibling, inside pkg.inner
	got = resolveTargets(Record{Kind: KindFrom, Module: ".", Name: "sibling"}, "pkg.inner", idx)
	assert.Equal(t, []string{"pkg", "pkg.sibling"}, got)

	// from ..a import y, inside pkg.inner climbs to the root
	got = resolveTargets(Record{Kind: KindFrom, Module: "..a", Name: "y"}, "pkg.inner", idx)
	assert.Equal(t, []string{"a"}, got)

	// climbing past the root resolves to nothing
	got = resolveTargets(Record{Kind: KindFrom, Module: "...x", Name: "y"}, "pkg.inner", idx)
	assert.Empty(t, got)
}
