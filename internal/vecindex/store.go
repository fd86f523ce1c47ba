// Package vecindex builds and queries persisted vector indexes. Each
// index is one SQLite database with a sqlite-vec virtual table, tied to a
// single (collection, embedding model) pair.
package vecindex

import (
	"database/sql"
	"fmt"
	"strconv"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"tome/internal/chunker"
)

func init() {
	sqlite_vec.Auto()
}

const ddl = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS chunks (
    id       TEXT PRIMARY KEY,
    seq      INTEGER NOT NULL,
    source   TEXT NOT NULL,
    filename TEXT NOT NULL,
    page     INTEGER NOT NULL DEFAULT 0,
    content  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS meta (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`

// Meta keys used by the index lifecycle.
const (
	metaModel      = "embedding_model"
	metaCollection = "collection"
	metaDimension  = "dimension"
	metaState      = "state"
)

// Index states. An index is only queryable in StateReady.
const (
	StateReady    = "ready"
	StateUpdating = "updating"
)

// Result is a retrieved chunk with its distance to the query vector
// (smaller is more similar).
type Result struct {
	Chunk    chunker.Chunk
	Distance float64
}

// store wraps one index database.
type store struct {
	db *sql.DB
}

func openStore(path string) (*store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open index db: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("init index schema: %w", err)
	}
	return &store{db: db}, nil
}

func (s *store) getMeta(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM meta WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return value, err
}

func (s *store) setMeta(key, value string) error {
	_, err := s.db.Exec(
		"INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}

// dimension returns the embedding width recorded for this index, or 0
// when nothing has been inserted yet.
func (s *store) dimension() (int, error) {
	v, err := s.getMeta(metaDimension)
	if err != nil || v == "" {
		return 0, err
	}
	return strconv.Atoi(v)
}

// ensureVecTable creates the sqlite-vec virtual table on first insert,
// once the embedding width is known.
func (s *store) ensureVecTable(dim int) error {
	existing, err := s.dimension()
	if err != nil {
		return err
	}
	if existing != 0 {
		if existing != dim {
			return fmt.Errorf("embedding dimension changed: index has %d, got %d", existing, dim)
		}
		return nil
	}
	stmt := fmt.Sprintf(
		"CREATE VIRTUAL TABLE IF NOT EXISTS vec_chunks USING vec0(chunk_rowid INTEGER PRIMARY KEY, embedding float[%d])",
		dim,
	)
	if _, err := s.db.Exec(stmt); err != nil {
		return fmt.Errorf("create vector table: %w", err)
	}
	return s.setMeta(metaDimension, strconv.Itoa(dim))
}

// insertChunks stores chunks and their embeddings in one transaction.
func (s *store) insertChunks(chunks []chunker.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("mismatched chunks (%d) and embeddings (%d)", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}
	if err := s.ensureVecTable(len(embeddings[0])); err != nil {
		return err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	chunkStmt, err := tx.Prepare(
		"INSERT INTO chunks (id, seq, source, filename, page, content) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return err
	}
	defer chunkStmt.Close()

	vecStmt, err := tx.Prepare("INSERT INTO vec_chunks (chunk_rowid, embedding) VALUES (?, ?)")
	if err != nil {
		return err
	}
	defer vecStmt.Close()

	for i, c := range chunks {
		res, err := chunkStmt.Exec(c.ID, c.Seq, c.Metadata.Source, c.Metadata.Filename, c.Metadata.Page, c.Text)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
		rowid, err := res.LastInsertId()
		if err != nil {
			return err
		}
		blob, err := sqlite_vec.SerializeFloat32(embeddings[i])
		if err != nil {
			return fmt.Errorf("serialize embedding for chunk %s: %w", c.ID, err)
		}
		if _, err := vecStmt.Exec(rowid, blob); err != nil {
			return fmt.Errorf("insert embedding for chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// search returns the k nearest chunks to the query embedding, closest
// first. An index with no vectors yields an empty result, not an error.
func (s *store) search(queryEmbedding []float32, k int) ([]Result, error) {
	dim, err := s.dimension()
	if err != nil {
		return nil, err
	}
	if dim == 0 {
		return nil, nil // empty index
	}
	if len(queryEmbedding) != dim {
		return nil, fmt.Errorf("query embedding has dimension %d, index has %d", len(queryEmbedding), dim)
	}

	blob, err := sqlite_vec.SerializeFloat32(queryEmbedding)
	if err != nil {
		return nil, fmt.Errorf("serialize query embedding: %w", err)
	}

	// vec0 knn queries require the k constraint inside the MATCH clause;
	// a bound LIMIT parameter alone is rejected by the extension.
	rows, err := s.db.Query(`
		SELECT v.distance, c.id, c.seq, c.source, c.filename, c.page, c.content
		FROM vec_chunks v
		JOIN chunks c ON c.rowid = v.chunk_rowid
		WHERE v.embedding MATCH ? AND v.k = ?
		ORDER BY v.distance
	`, blob, k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		err := rows.Scan(
			&r.Distance,
			&r.Chunk.ID, &r.Chunk.Seq,
			&r.Chunk.Metadata.Source, &r.Chunk.Metadata.Filename, &r.Chunk.Metadata.Page,
			&r.Chunk.Text,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// count returns the number of stored chunks.
func (s *store) count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM chunks").Scan(&n)
	return n, err
}

func (s *store) close() error {
	return s.db.Close()
}
