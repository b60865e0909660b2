package duplicates

import "strings"

// contentPattern keyword tables, scanned over a representative block's
// lowercased normalized text. Approximate by design: a missed pattern only
// costs a more generic suggestion.
var contentPatterns = []struct {
	name     string
	keywords []string
}{
	{"loop", []string{"for ", "while "}},
	{"conditional", []string{"if ", "elif ", "else:"}},
	{"calculation", []string{"sum(", "len(", "round(", "math.", " + ", " * ", " / "}},
	{"database", []string{"select ", "insert ", "cursor", "execute(", "commit(", "session."}},
	{"file", []string{"open(", ".read(", ".write(", ".close(", "path("}},
	{"network", []string{"request", "urllib", "http", "socket", ".get(", ".post("}},
	{"validation", []string{"validate", "check", "verify", "assert", "raise "}},
}

// scanContentPattern returns the first matching content pattern name, or ""
// when none matches.
func scanContentPattern(normalized string) string {
	text := strings.ToLower(normalized)
	for _, p := range contentPatterns {
		for _, kw := range p.keywords {
			if strings.Contains(text, kw) {
				return p.name
			}
		}
	}
	return ""
}

// suggest produces refactoring guidance templated by block kind, exactness
// and the detected content pattern.
func suggest(kind BlockKind, exact bool, pattern string) string {
	switch kind {
	case KindFunction:
		if exact {
			return "Extract the duplicated function into a shared module and import it where needed."
		}
		return "Parameterize the differences between these functions, or apply a strategy pattern to share the common logic."
	case KindClass:
		if exact {
			return "Move the duplicated class into a shared module, or extract a common base class."
		}
		return "Extract a common base class or mixin and push the differing behavior into subclasses."
	}

	switch pattern {
	case "loop":
		return "Extract the repeated loop into an iterator or generator function."
	case "conditional":
		return "Replace the repeated conditional logic with a strategy pattern or a dispatch table."
	case "calculation":
		return "Move the repeated calculation into a shared utility function."
	case "database":
		return "Extract the repeated query logic into a shared data-access helper."
	case "file":
		return "Extract the repeated file handling into a shared helper."
	case "network":
		return "Extract the repeated request logic into a shared client helper."
	case "validation":
		return "Consolidate the repeated validation into a shared validator function."
	default:
		return "Extract the repeated lines into a function."
	}
}
