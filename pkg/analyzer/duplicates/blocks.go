package duplicates

import (
	"encoding/binary"
	"strings"

	"github.com/pythia-sh/pythia/pkg/parser"
	"github.com/pythia-sh/pythia/pkg/source"
	"github.com/zeebo/blake3"
)

// extractBlocks derives the comparable units of one file: named blocks for
// every function and class whose span is at least minLines, plus sliding
// line windows of exactly minLines. Named blocks catch semantically whole
// duplicated units; windows catch fragments inside otherwise-different
// functions and are filtered by a meaningfulness threshold to cut noise.
func extractBlocks(f *source.File, minLines int) []CodeBlock {
	var blocks []CodeBlock

	if f.Tree != nil {
		result := &parser.ParseResult{Tree: f.Tree, Source: f.Raw, Path: f.Path}

		for _, fn := range parser.GetFunctions(result) {
			if b := makeSpanBlock(f, fn.StartLine, fn.EndLine, KindFunction, fn.Name, minLines); b != nil {
				blocks = append(blocks, *b)
			}
		}
		for _, cls := range parser.GetClasses(result) {
			if b := makeSpanBlock(f, cls.StartLine, cls.EndLine, KindClass, cls.Name, minLines); b != nil {
				blocks = append(blocks, *b)
			}
		}
	}

	blocks = append(blocks, extractWindows(f, minLines)...)
	return blocks
}

// makeSpanBlock builds a named block covering [start, end] if the span is
// long enough to matter.
func makeSpanBlock(f *source.File, start, end uint32, kind BlockKind, name string, minLines int) *CodeBlock {
	if int(end-start+1) < minLines {
		return nil
	}
	if int(end) > len(f.Lines) {
		end = uint32(len(f.Lines))
	}

	lines := f.Lines[start-1 : end]
	normalized, normLines := normalizeLines(lines)
	if normalized == "" {
		return nil
	}

	return &CodeBlock{
		File:        f.Path,
		StartLine:   start,
		EndLine:     end,
		Kind:        kind,
		Name:        name,
		Fingerprint: fingerprint(normalized),
		normalized:  normalized,
		normLines:   normLines,
	}
}

// extractWindows emits fixed-size sliding windows across the whole file,
// stepping by one line, keeping only windows where at least half of the
// lines carry code.
func extractWindows(f *source.File, minLines int) []CodeBlock {
	if len(f.Lines) < minLines {
		return nil
	}

	var blocks []CodeBlock
	for start := 0; start+minLines <= len(f.Lines); start++ {
		window := f.Lines[start : start+minLines]
		if !isMeaningful(window) {
			continue
		}

		normalized, normLines := normalizeLines(window)
		if normalized == "" {
			continue
		}

		blocks = append(blocks, CodeBlock{
			File:        f.Path,
			StartLine:   uint32(start + 1),
			EndLine:     uint32(start + minLines),
			Kind:        KindWindow,
			Fingerprint: fingerprint(normalized),
			normalized:  normalized,
			normLines:   normLines,
		})
	}
	return blocks
}

// isMeaningful reports whether at least 50% of the window's lines are
// non-blank and not comment-only.
func isMeaningful(lines []string) bool {
	meaningful := 0
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		meaningful++
	}
	return meaningful*2 >= len(lines)
}

// normalizeLines strips per-line leading/trailing whitespace and drops
// fully-blank lines, so blocks differing only in indentation or trailing
// space compare equal.
func normalizeLines(lines []string) (string, []string) {
	normalized := make([]string, 0, len(lines))
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		normalized = append(normalized, trimmed)
	}
	return strings.Join(normalized, "\n"), normalized
}

// fingerprint computes a stable 64-bit content hash of normalized text.
func fingerprint(normalized string) uint64 {
	sum := blake3.Sum256([]byte(normalized))
	return binary.LittleEndian.Uint64(sum[:8])
}
