package imports

import (
	"path/filepath"
	"strings"
)

// ModuleID converts a file path into a dotted module identifier relative
// to the analysis root: path separators become dots, the extension is
// stripped, and a package marker file collapses to its directory name
// (pkg/__init__.py -> "pkg").
func ModuleID(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))

	parts := strings.Split(rel, "/")
	if parts[len(parts)-1] == "__init__" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ".")
}

// moduleIndex maps module ids to their files for import resolution.
type moduleIndex map[string]string

// resolveTargets maps an import record to the internal module ids it
// refers to. Absolute imports resolve by their dotted module path;
// relative imports walk up the importing module's own id by one segment
// per leading dot. A from-import whose bound name is itself an indexed
// submodule (from pkg import mod) contributes that submodule as well.
// Unresolvable targets, including relative imports that climb past the
// root, resolve to nothing.
func resolveTargets(rec Record, current string, idx moduleIndex) []string {
	base := rec.Module
	if strings.HasPrefix(base, ".") {
		dots := 0
		for dots < len(base) && base[dots] == '.' {
			dots++
		}
		remainder := base[dots:]

		parts := strings.Split(current, ".")
		if dots > len(parts) {
			return nil
		}
		parts = parts[:len(parts)-dots]
		if remainder != "" {
			parts = append(parts, strings.Split(remainder, ".")...)
		}
		base = strings.Join(parts, ".")
	}

	var targets []string
	if _, ok := idx[base]; ok && base != "" {
		targets = append(targets, base)
	}
	if rec.Kind == KindFrom || rec.Kind == KindStar {
		sub := base + "." + rec.Name
		if base == "" {
			sub = rec.Name
		}
		if _, ok := idx[sub]; ok && rec.Name != "*" {
			targets = append(targets, sub)
		}
	}
	return targets
}
