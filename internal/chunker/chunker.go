// Package chunker splits parsed document text into overlapping windows
// sized for a target language model.
package chunker

import (
	"strings"

	"github.com/google/uuid"

	"tome/internal/loader"
)

// Settings holds the character-count window size and overlap used when
// splitting text for a given model.
type Settings struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// Table maps model names to chunk settings. The "default" entry is the
// fallback for unrecognized models.
type Table map[string]Settings

// DefaultTable returns a fresh copy of the tuned per-model settings, so
// callers can override entries without touching anyone else's table.
// Larger-context models get bigger windows.
func DefaultTable() Table {
	return Table{
		"mistral": {Size: 2000, Overlap: 200},
		"mixtral": {Size: 3000, Overlap: 300},
		"llama2":  {Size: 1000, Overlap: 100},
		"default": {Size: 1000, Overlap: 100},
	}
}

// For returns the settings for a model name, falling back to the table's
// "default" entry, then to 1000/100 if the table has none.
func (t Table) For(model string) Settings {
	if s, ok := t[model]; ok {
		return s
	}
	if s, ok := t["default"]; ok {
		return s
	}
	return Settings{Size: 1000, Overlap: 100}
}

// SettingsFor looks up model settings in the default table.
func SettingsFor(model string) Settings {
	return DefaultTable().For(model)
}

// Chunk is a bounded span of document text plus its source metadata, the
// unit of embedding and retrieval.
type Chunk struct {
	ID       string
	Text     string
	Seq      int // position within the source document
	Metadata loader.Metadata
}

// Split cuts each document's text into consecutive windows of at most
// s.Size characters. Each window after the first starts exactly s.Overlap
// characters before the previous window's end, so consecutive chunks
// share that many characters and stripping the shared prefixes
// reconstructs the original text. A window ends early at the last newline
// past the overlap horizon, keeping breaks on line boundaries where the
// text allows it. Trailing content shorter than s.Size is always emitted.
func Split(docs []loader.Document, s Settings) []Chunk {
	if s.Size <= 0 {
		s = Settings{Size: 1000, Overlap: 100}
	}
	if s.Overlap < 0 {
		s.Overlap = 0
	}
	if s.Overlap >= s.Size {
		s.Overlap = s.Size / 4
	}

	var chunks []Chunk
	for _, doc := range docs {
		chunks = append(chunks, splitOne(doc, s)...)
	}
	return chunks
}

func splitOne(doc loader.Document, s Settings) []Chunk {
	text := doc.Content
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	start := 0
	for {
		end := start + s.Size
		if end >= len(text) {
			chunks = append(chunks, newChunk(doc, len(chunks), text[start:]))
			return chunks
		}

		// Prefer to end the window just after a newline, as long as the
		// cut stays past the overlap horizon so the next window advances.
		if nl := strings.LastIndexByte(text[start:end], '\n'); nl >= 0 {
			cut := start + nl + 1
			if cut > start+s.Overlap {
				end = cut
			}
		}

		chunks = append(chunks, newChunk(doc, len(chunks), text[start:end]))
		start = end - s.Overlap
	}
}

func newChunk(doc loader.Document, seq int, text string) Chunk {
	return Chunk{
		ID:       uuid.New().String(),
		Text:     text,
		Seq:      seq,
		Metadata: doc.Metadata,
	}
}
