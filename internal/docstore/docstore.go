// Package docstore persists raw uploaded files and their metadata, keyed
// by the SHA-256 of the file contents so identical uploads deduplicate.
package docstore

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const metadataFile = "document_metadata.json"

// Record is the stored metadata for one uploaded file. Hash is the
// record's key in the metadata file, not a stored field.
type Record struct {
	Hash           string    `json:"-"`
	Filename       string    `json:"filename"`
	UploadTime     time.Time `json:"upload_time"`
	EmbeddingModel string    `json:"embedding_model"`
	FileSize       int64     `json:"file_size"`
	FileType       string    `json:"file_type"`
	Path           string    `json:"path"`
}

// Store keeps uploaded files under an uploads directory and their records
// in a JSON metadata file. All mutations persist the metadata file before
// returning.
type Store struct {
	mu        sync.Mutex
	uploadDir string
	metaPath  string
	records   map[string]Record // content hash → record
}

// Open loads (or initializes) a content store rooted at dir. Files go to
// dir/uploads, metadata to dir/document_metadata.json.
func Open(dir string) (*Store, error) {
	uploadDir := filepath.Join(dir, "uploads")
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	s := &Store{
		uploadDir: uploadDir,
		metaPath:  filepath.Join(dir, metadataFile),
		records:   make(map[string]Record),
	}

	data, err := os.ReadFile(s.metaPath)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &s.records); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	for hash, rec := range s.records {
		rec.Hash = hash
		s.records[hash] = rec
	}
	return s, nil
}

// Add writes the file bytes under the upload area and upserts a record
// keyed by the SHA-256 of the content. Re-adding identical content
// returns the same hash and overwrites the prior record rather than
// duplicating it.
func (s *Store) Add(content []byte, filename, embeddingModel string) (string, error) {
	sum := sha256.Sum256(content)
	hash := hex.EncodeToString(sum[:])

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.uploadDir, filepath.Base(filename))
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}

	s.records[hash] = Record{
		Hash:           hash,
		Filename:       filename,
		UploadTime:     time.Now().UTC(),
		EmbeddingModel: embeddingModel,
		FileSize:       int64(len(content)),
		FileType:       filepath.Ext(filename),
		Path:           path,
	}
	if err := s.persistLocked(); err != nil {
		return "", err
	}
	return hash, nil
}

// Remove deletes the backing file (if present) and the record. It returns
// false when the hash is unknown.
func (s *Store) Remove(hash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[hash]
	if !ok {
		return false, nil
	}
	if err := os.Remove(rec.Path); err != nil && !os.IsNotExist(err) {
		return false, fmt.Errorf("delete upload: %w", err)
	}
	delete(s.records, hash)
	if err := s.persistLocked(); err != nil {
		return false, err
	}
	return true, nil
}

// Get returns the record for a content hash.
func (s *Store) Get(hash string) (Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[hash]
	return rec, ok
}

// ListAll returns every stored record, ordered by upload time then
// filename for stable output.
func (s *Store) ListAll() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].UploadTime.Equal(records[j].UploadTime) {
			return records[i].UploadTime.Before(records[j].UploadTime)
		}
		return records[i].Filename < records[j].Filename
	})
	return records
}

// persistLocked writes the metadata file. Callers hold s.mu.
func (s *Store) persistLocked() error {
	data, err := json.MarshalIndent(s.records, "", "    ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.metaPath, data, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
