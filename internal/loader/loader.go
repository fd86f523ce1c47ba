// Package loader parses stored document files into plain text. Each
// supported file extension has its own loader; unknown extensions fail
// with ErrUnsupportedFormat.
package loader

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrUnsupportedFormat is returned when no loader is registered for a
// file's extension.
var ErrUnsupportedFormat = errors.New("unsupported format")

// Metadata identifies where a piece of extracted text came from.
type Metadata struct {
	Source   string // storage path of the original file
	Filename string
	Page     int // 1-based page or sheet number, 0 when the format has no pages
}

// Document is one unit of extracted text. Page-oriented formats emit one
// Document per page; flat formats emit a single Document per file.
type Document struct {
	Content  string
	Metadata Metadata
}

// Loader extracts text from one file format.
type Loader interface {
	// Load parses the file at path into one or more documents.
	Load(path string) ([]Document, error)
}

// Registry maps file extensions (with leading dot, lowercase) to loaders.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]Loader
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{loaders: make(map[string]Loader)}
}

// DefaultRegistry returns a registry with every built-in loader
// registered: .txt, .md, .csv, .docx, .pptx, and .pdf.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&PlainText{}, ".txt", ".md")
	r.Register(&CSV{}, ".csv")
	r.Register(&DOCX{}, ".docx")
	r.Register(&PPTX{}, ".pptx")
	r.Register(NewPDF(), ".pdf")
	return r
}

// Register adds a loader under the given extensions.
func (r *Registry) Register(l Loader, exts ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ext := range exts {
		r.loaders[strings.ToLower(ext)] = l
	}
}

// Extensions returns the sorted set of registered extensions.
func (r *Registry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Supported reports whether a loader is registered for the path's extension.
func (r *Registry) Supported(path string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.loaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Load parses the file at path using the loader registered for its
// extension.
func (r *Registry) Load(path string) ([]Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	r.mu.RLock()
	l, ok := r.loaders[ext]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	docs, err := l.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", filepath.Base(path), err)
	}
	return docs, nil
}
