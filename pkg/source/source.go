// Package source loads and indexes the files of one analysis run.
package source

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/pythia-sh/pythia/internal/fileproc"
	"github.com/pythia-sh/pythia/pkg/parser"
)

// ContentSource provides file content from a specific source.
type ContentSource interface {
	// Read returns the content of the file at path.
	Read(path string) ([]byte, error)
}

// FilesystemSource reads files from the local filesystem.
type FilesystemSource struct{}

// NewFilesystem creates a source that reads from the filesystem.
func NewFilesystem() *FilesystemSource {
	return &FilesystemSource{}
}

// Read implements ContentSource.
func (f *FilesystemSource) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// MapSource serves in-memory content, keyed by path. Useful for tests.
type MapSource map[string]string

// Read implements ContentSource.
func (m MapSource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", path)
	}
	return []byte(content), nil
}

// File is one loaded source file. Immutable once indexed; its lifetime is
// a single analysis run. Tree is nil when the file failed to read or parse,
// in which case Err records the cause and tree-dependent passes skip it.
type File struct {
	Path  string
	Raw   []byte
	Lines []string
	Tree  *sitter.Tree
	Err   error
}

// Key implements fileproc.Keyed.
func (f *File) Key() string { return f.Path }

// Text returns the raw content as a string.
func (f *File) Text() string { return string(f.Raw) }

// Index holds every file of one run, keyed by path.
type Index struct {
	Files map[string]*File
	// Failed enumerates files whose read or parse failed, in path order.
	Failed []*File
}

// Load reads and parses every path through src, tolerating per-file
// failures: a file that cannot be read or parsed is still indexed (with a
// nil tree) so the caller can report it, and every other file proceeds
// unaffected.
func Load(ctx context.Context, paths []string, src ContentSource) (*Index, error) {
	files, _ := fileproc.MapPaths(ctx, paths, func(psr *parser.Parser, path string) (*File, error) {
		return loadOne(psr, path, src), nil
	})

	idx := &Index{Files: make(map[string]*File, len(files))}
	for _, f := range files {
		idx.Files[f.Path] = f
		if f.Err != nil {
			idx.Failed = append(idx.Failed, f)
		}
	}
	sort.Slice(idx.Failed, func(i, j int) bool { return idx.Failed[i].Path < idx.Failed[j].Path })

	if ctx.Err() != nil {
		return idx, ctx.Err()
	}
	return idx, nil
}

// loadOne reads and parses a single file, recording failure on the File
// rather than returning an error.
func loadOne(psr *parser.Parser, path string, src ContentSource) *File {
	f := &File{Path: path}

	raw, err := src.Read(path)
	if err != nil {
		f.Err = fmt.Errorf("read: %w", err)
		return f
	}
	f.Raw = raw
	f.Lines = strings.Split(string(raw), "\n")

	result, err := psr.Parse(raw, path)
	if err != nil {
		f.Err = fmt.Errorf("parse: %w", err)
		return f
	}
	if result.Tree.RootNode().HasError() {
		f.Err = fmt.Errorf("parse: syntax errors in %s", path)
		return f
	}
	f.Tree = result.Tree

	return f
}

// Parsed returns the files that carry a valid tree, sorted by path so
// downstream grouping is deterministic.
func (idx *Index) Parsed() []*File {
	files := make([]*File, 0, len(idx.Files))
	for _, f := range idx.Files {
		if f.Tree != nil {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}

// All returns every indexed file sorted by path.
func (idx *Index) All() []*File {
	files := make([]*File, 0, len(idx.Files))
	for _, f := range idx.Files {
		files = append(files, f)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files
}
