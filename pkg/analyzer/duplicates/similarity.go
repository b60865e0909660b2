package duplicates

import (
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/hbollon/go-edlib"
)

// sequenceRatio computes an edit-distance-based similarity ratio in [0,1]
// over two line sequences. Each distinct line is interned to a single rune
// so the Levenshtein ratio operates on lines rather than characters. The
// metric deliberately works on raw normalized lines, not any AST-erased
// representation: renamed variables lower the ratio, superficially similar
// code can raise it. Downstream behavior depends on exactly this metric.
func sequenceRatio(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intern := make(map[uint64]rune, len(a)+len(b))
	next := rune(0xE000) // private use area, keeps encoded strings valid

	encode := func(lines []string) string {
		var sb strings.Builder
		sb.Grow(len(lines) * 3)
		for _, line := range lines {
			h := xxhash.Sum64String(line)
			r, ok := intern[h]
			if !ok {
				r = next
				next++
				intern[h] = r
			}
			sb.WriteRune(r)
		}
		return sb.String()
	}

	sim, err := edlib.StringsSimilarity(encode(a), encode(b), edlib.Levenshtein)
	if err != nil {
		return 0.0
	}
	return float64(sim)
}
