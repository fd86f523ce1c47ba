package vecindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tome/internal/chunker"
	"tome/internal/logger"
)

// Sentinel errors for index lifecycle failures.
var (
	ErrIndexNotFound = errors.New("vector index not found")
	ErrNotReady      = errors.New("vector index is not ready")
	ErrModelMismatch = errors.New("vector index was built with a different embedding model")
)

// Embedder is the embedding collaborator: one fixed-length vector per
// input string.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// Builder creates, reopens, and updates vector indexes. Indexes live as
// one database file per (collection, embedding model) pair under dir.
type Builder struct {
	dir string
	emb Embedder
}

// NewBuilder creates a builder that persists indexes under dir.
func NewBuilder(dir string, emb Embedder) *Builder {
	return &Builder{dir: dir, emb: emb}
}

// Handle is an opened, ready index.
type Handle struct {
	st         *store
	emb        Embedder
	path       string
	Collection string
}

// Path returns the index's database file path.
func (b *Builder) Path(collection string) string {
	name := fmt.Sprintf("%s--%s.db", slug(collection), slug(b.emb.Model()))
	return filepath.Join(b.dir, name)
}

// slug makes a collection or model name safe for a filename.
func slug(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

// Build embeds the chunks and writes a fresh index for the collection,
// replacing any existing one. The new index is assembled in a temporary
// file and renamed into place, so a reader never observes a partially
// built index. An empty chunk sequence produces a valid empty index.
func (b *Builder) Build(ctx context.Context, collection string, chunks []chunker.Chunk) (*Handle, error) {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create index directory: %w", err)
	}

	final := b.Path(collection)
	tmp := final + ".building"
	// A leftover temp file means a previous build crashed; it is garbage.
	os.Remove(tmp)

	st, err := openStore(tmp)
	if err != nil {
		return nil, err
	}

	if err := b.populate(ctx, st, collection, chunks); err != nil {
		st.close()
		os.Remove(tmp)
		return nil, err
	}
	if err := st.close(); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("close new index: %w", err)
	}

	if err := os.Rename(tmp, final); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("activate new index: %w", err)
	}
	logger.Info("built vector index %s with %d chunks", filepath.Base(final), len(chunks))

	return b.open(collection, final)
}

func (b *Builder) populate(ctx context.Context, st *store, collection string, chunks []chunker.Chunk) error {
	if err := st.setMeta(metaModel, b.emb.Model()); err != nil {
		return err
	}
	if err := st.setMeta(metaCollection, collection); err != nil {
		return err
	}

	embeddings, err := b.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}
	if err := st.insertChunks(chunks, embeddings); err != nil {
		return err
	}
	return st.setMeta(metaState, StateReady)
}

// Load reopens a previously built index for the collection. It fails with
// ErrIndexNotFound when no index exists, ErrModelMismatch when the index
// was embedded with a different model, and ErrNotReady when a previous
// update was interrupted.
func (b *Builder) Load(collection string) (*Handle, error) {
	final := b.Path(collection)
	if _, err := os.Stat(final); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: collection %q, model %q", ErrIndexNotFound, collection, b.emb.Model())
		}
		return nil, err
	}
	return b.open(collection, final)
}

func (b *Builder) open(collection, path string) (*Handle, error) {
	st, err := openStore(path)
	if err != nil {
		return nil, err
	}

	model, err := st.getMeta(metaModel)
	if err != nil {
		st.close()
		return nil, err
	}
	if model != b.emb.Model() {
		st.close()
		return nil, fmt.Errorf("%w: index has %q, want %q", ErrModelMismatch, model, b.emb.Model())
	}

	state, err := st.getMeta(metaState)
	if err != nil {
		st.close()
		return nil, err
	}
	if state != StateReady {
		st.close()
		return nil, fmt.Errorf("%w: state %q — rebuild the index", ErrNotReady, state)
	}

	return &Handle{st: st, emb: b.emb, path: path, Collection: collection}, nil
}

// Update embeds and appends chunks to an opened index. The index is
// marked updating for the duration, so an interrupted append is detected
// on the next Load instead of being served as a torn index.
func (b *Builder) Update(ctx context.Context, h *Handle, chunks []chunker.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	embeddings, err := b.embedChunks(ctx, chunks)
	if err != nil {
		return err
	}

	if err := h.st.setMeta(metaState, StateUpdating); err != nil {
		return fmt.Errorf("mark index updating: %w", err)
	}
	if err := h.st.insertChunks(chunks, embeddings); err != nil {
		return err
	}
	if err := h.st.setMeta(metaState, StateReady); err != nil {
		return fmt.Errorf("mark index ready: %w", err)
	}
	logger.Info("appended %d chunks to %s", len(chunks), filepath.Base(h.path))
	return nil
}

func (b *Builder) embedChunks(ctx context.Context, chunks []chunker.Chunk) ([][]float32, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	embeddings, err := b.emb.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}
	return embeddings, nil
}

// Retrieve embeds the query and returns the k nearest chunks, most
// similar first. Retrieval on an empty index returns an empty slice.
func (h *Handle) Retrieve(ctx context.Context, query string, k int) ([]Result, error) {
	if k <= 0 {
		k = 4
	}
	vec, err := h.emb.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	results, err := h.st.search(vec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return results, nil
}

// Count returns the number of chunks stored in the index.
func (h *Handle) Count() (int, error) {
	return h.st.count()
}

// Close releases the index database.
func (h *Handle) Close() error {
	return h.st.close()
}
