package complexity

import (
	"strings"

	"github.com/pythia-sh/pythia/pkg/source"
)

// estimateFile approximates definition spans by indentation when a file
// has no parse tree. A definition runs from its def/class line to the
// last line indented deeper than it. Only length metrics come out of
// this path; branch metrics stay zero.
func estimateFile(f *source.File) fileMetrics {
	fm := fileMetrics{estimated: true}

	for i, line := range f.Lines {
		trimmed := strings.TrimLeft(line, " \t")
		isDef := strings.HasPrefix(trimmed, "def ") || strings.HasPrefix(trimmed, "async def ")
		isClass := strings.HasPrefix(trimmed, "class ")
		if !isDef && !isClass {
			continue
		}

		indent := len(line) - len(trimmed)
		end := i
		for j := i + 1; j < len(f.Lines); j++ {
			next := f.Lines[j]
			nextTrimmed := strings.TrimLeft(next, " \t")
			if nextTrimmed == "" {
				continue
			}
			if len(next)-len(nextTrimmed) <= indent {
				break
			}
			end = j
		}

		name := defName(trimmed)
		start := uint32(i + 1)
		lines := end - i + 1
		if isDef {
			fm.functions = append(fm.functions, FunctionMetrics{
				File:      f.Path,
				Name:      name,
				StartLine: start,
				EndLine:   uint32(end + 1),
				Lines:     lines,
			})
		} else {
			fm.classes = append(fm.classes, ClassMetrics{
				File:      f.Path,
				Name:      name,
				StartLine: start,
				EndLine:   uint32(end + 1),
				Lines:     lines,
			})
		}
	}
	return fm
}

// defName pulls the identifier out of a def/class line.
func defName(trimmed string) string {
	rest := trimmed
	for _, prefix := range []string{"async def ", "def ", "class "} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	for i := 0; i < len(rest); i++ {
		if c := rest[i]; c == '(' || c == ':' || c == ' ' {
			return rest[:i]
		}
	}
	return rest
}
