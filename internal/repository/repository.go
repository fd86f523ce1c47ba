// Package repository catalogs stored documents into named collections and
// persists the catalog as a pretty-printed JSON index. Every mutation
// rewrites the whole index synchronously before returning, so the on-disk
// file never references a document that was not fully recorded.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"tome/internal/loader"
	"tome/internal/logger"
)

const indexFile = "repository_index.json"

// DocumentEntry is one cataloged document. A document belongs to exactly
// one collection.
type DocumentEntry struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	Collection string    `json:"collection"`
	AddedAt    time.Time `json:"added_at"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
}

// Collection is a named, ordered set of document IDs.
type Collection struct {
	CreatedAt time.Time `json:"created_at"`
	Documents []string  `json:"documents"`
}

// index is the persisted top-level structure. NextID is a monotonic
// counter so document IDs are never reused, even after removals.
type index struct {
	Documents   map[string]DocumentEntry `json:"documents"`
	Collections map[string]*Collection   `json:"collections"`
	NextID      int                      `json:"next_id"`
	LastUpdated time.Time                `json:"last_updated"`
}

// Stats summarizes the repository.
type Stats struct {
	TotalDocuments   int
	TotalCollections int
	TotalSizeBytes   int64
	LastUpdated      time.Time
}

// Repository owns the document catalog. It is safe for concurrent use
// within one process; cross-process writers are not coordinated
// (last-writer-wins on the index file) and must be avoided.
type Repository struct {
	mu      sync.Mutex
	root    string
	path    string
	idx     index
	loaders *loader.Registry
}

// Open loads the repository index under root, creating an empty index
// file if none exists yet. Parsed-document loading delegates to reg.
func Open(root string, reg *loader.Registry) (*Repository, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create repository directory: %w", err)
	}

	r := &Repository{
		root:    root,
		path:    filepath.Join(root, indexFile),
		loaders: reg,
	}

	data, err := os.ReadFile(r.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &r.idx); err != nil {
			return nil, fmt.Errorf("parse repository index: %w", err)
		}
	case os.IsNotExist(err):
		r.idx = index{
			Documents:   make(map[string]DocumentEntry),
			Collections: make(map[string]*Collection),
			LastUpdated: time.Now().UTC(),
		}
		if err := r.persistLocked(); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("read repository index: %w", err)
	}

	if r.idx.Documents == nil {
		r.idx.Documents = make(map[string]DocumentEntry)
	}
	if r.idx.Collections == nil {
		r.idx.Collections = make(map[string]*Collection)
	}
	// Indexes written before the counter existed have no next_id; seed it
	// from the highest ordinal in use so new IDs stay unique.
	if r.idx.NextID == 0 {
		for id := range r.idx.Documents {
			var n int
			var rest string
			if _, err := fmt.Sscanf(id, "doc_%d_%s", &n, &rest); err == nil && n > r.idx.NextID {
				r.idx.NextID = n
			}
		}
	}
	return r, nil
}

// AddDocument writes the file bytes under <root>/<collection>/<filename>,
// registers the entry, and persists the index. The collection is created
// implicitly on first use. This is the single mutation primitive every
// document-adding path routes through.
func (r *Repository) AddDocument(content []byte, filename, collection string) (DocumentEntry, error) {
	if collection == "" {
		collection = "default"
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	r.idx.NextID++
	id := fmt.Sprintf("doc_%d_%s", r.idx.NextID, now.Format("20060102_150405"))

	coll, ok := r.idx.Collections[collection]
	if !ok {
		coll = &Collection{CreatedAt: now}
		r.idx.Collections[collection] = coll
	}

	filename = filepath.Base(filename)
	docPath := filepath.Join(r.root, collection, filename)
	if err := os.MkdirAll(filepath.Dir(docPath), 0o755); err != nil {
		return DocumentEntry{}, fmt.Errorf("create collection directory: %w", err)
	}
	// File first, index second: a crash in between leaves an orphaned
	// file, never an entry pointing at a file that was not written.
	if err := os.WriteFile(docPath, content, 0o644); err != nil {
		return DocumentEntry{}, fmt.Errorf("write document: %w", err)
	}

	entry := DocumentEntry{
		ID:         id,
		Filename:   filename,
		Path:       docPath,
		Collection: collection,
		AddedAt:    now,
		FileType:   strings.ToLower(filepath.Ext(filename)),
		FileSize:   int64(len(content)),
	}
	r.idx.Documents[id] = entry
	coll.Documents = append(coll.Documents, id)

	if err := r.persistLocked(); err != nil {
		return DocumentEntry{}, err
	}
	return entry, nil
}

// GetDocument returns the storage path for an entry, but only when the
// entry exists and the backing file is still on disk.
func (r *Repository) GetDocument(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.idx.Documents[id]
	if !ok {
		return "", false
	}
	if _, err := os.Stat(entry.Path); err != nil {
		return "", false
	}
	return entry.Path, true
}

// ListCollectionDocuments returns the entries of a collection in insertion
// order. Unknown collections yield an empty slice, not an error.
func (r *Repository) ListCollectionDocuments(collection string) []DocumentEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.collectionEntriesLocked(collection)
}

func (r *Repository) collectionEntriesLocked(collection string) []DocumentEntry {
	coll, ok := r.idx.Collections[collection]
	if !ok {
		return nil
	}
	entries := make([]DocumentEntry, 0, len(coll.Documents))
	for _, id := range coll.Documents {
		if entry, ok := r.idx.Documents[id]; ok {
			entries = append(entries, entry)
		}
	}
	return entries
}

// LoadCollectionDocuments parses every document in the collection into
// plain text. A file that fails to parse is logged and skipped; it never
// aborts loading the rest of the collection.
func (r *Repository) LoadCollectionDocuments(collection string) []loader.Document {
	entries := r.ListCollectionDocuments(collection)

	var docs []loader.Document
	for _, entry := range entries {
		if _, err := os.Stat(entry.Path); err != nil {
			logger.Warn("document %s missing from disk: %s", entry.ID, entry.Path)
			continue
		}
		parsed, err := r.loaders.Load(entry.Path)
		if err != nil {
			logger.Warn("skipping %s: %v", entry.Filename, err)
			continue
		}
		docs = append(docs, parsed...)
	}
	return docs
}

// HasCollection reports whether a collection is registered, even if it
// currently holds no documents.
func (r *Repository) HasCollection(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.idx.Collections[name]
	return ok
}

// ListCollections returns all collection names, sorted.
func (r *Repository) ListCollections() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.idx.Collections))
	for name := range r.idx.Collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RemoveDocument deletes the backing file, unlinks the entry from its
// collection, removes it from the catalog, and persists. Returns false
// for an unknown id.
func (r *Repository) RemoveDocument(id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.removeDocumentLocked(id)
}

func (r *Repository) removeDocumentLocked(id string) (bool, error) {
	entry, ok := r.idx.Documents[id]
	if !ok {
		return false, nil
	}

	if err := os.Remove(entry.Path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("delete document file: %w", err)
	}

	if coll, ok := r.idx.Collections[entry.Collection]; ok {
		kept := coll.Documents[:0]
		for _, docID := range coll.Documents {
			if docID != id {
				kept = append(kept, docID)
			}
		}
		coll.Documents = kept
	}
	delete(r.idx.Documents, id)

	if err := r.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// ClearCollection removes every document in the collection. The emptied
// collection itself stays registered. Returns false for an unknown name.
func (r *Repository) ClearCollection(name string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coll, ok := r.idx.Collections[name]
	if !ok {
		return false, nil
	}

	ids := make([]string, len(coll.Documents))
	copy(ids, coll.Documents)
	for _, id := range ids {
		if _, err := r.removeDocumentLocked(id); err != nil {
			return false, fmt.Errorf("clear collection %s: %w", name, err)
		}
	}
	return true, nil
}

// SearchByFilename returns entries whose filename contains the query,
// case-insensitive, ordered by id for stable output.
func (r *Repository) SearchByFilename(query string) []DocumentEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(query)
	var results []DocumentEntry
	for _, entry := range r.idx.Documents {
		if strings.Contains(strings.ToLower(entry.Filename), q) {
			results = append(results, entry)
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].ID < results[j].ID })
	return results
}

// Stats summarizes the catalog.
func (r *Repository) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	var size int64
	for _, entry := range r.idx.Documents {
		size += entry.FileSize
	}
	return Stats{
		TotalDocuments:   len(r.idx.Documents),
		TotalCollections: len(r.idx.Collections),
		TotalSizeBytes:   size,
		LastUpdated:      r.idx.LastUpdated,
	}
}

// Validate checks the cross-reference invariant both ways: every id in a
// collection resolves to an entry, and every entry's collection lists it.
func (r *Repository) Validate() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var problems []string
	for name, coll := range r.idx.Collections {
		for _, id := range coll.Documents {
			if _, ok := r.idx.Documents[id]; !ok {
				problems = append(problems, fmt.Sprintf("collection %s references unknown document %s", name, id))
			}
		}
	}
	for id, entry := range r.idx.Documents {
		coll, ok := r.idx.Collections[entry.Collection]
		if !ok {
			problems = append(problems, fmt.Sprintf("document %s references unknown collection %s", id, entry.Collection))
			continue
		}
		found := false
		for _, docID := range coll.Documents {
			if docID == id {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, fmt.Sprintf("document %s missing from collection %s", id, entry.Collection))
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// persistLocked writes the whole index, pretty-printed. Callers hold r.mu.
func (r *Repository) persistLocked() error {
	r.idx.LastUpdated = time.Now().UTC()
	data, err := json.MarshalIndent(r.idx, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal repository index: %w", err)
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return fmt.Errorf("write repository index: %w", err)
	}
	return nil
}
