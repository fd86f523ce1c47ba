package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// CSV loads .csv files. Each row becomes a "header: value" line so column
// context survives chunking, mirroring how row-oriented loaders elsewhere
// flatten tabular data into prose.
type CSV struct{}

func (*CSV) Load(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header := rows[0]
	var b strings.Builder
	for _, row := range rows[1:] {
		for i, field := range row {
			if field == "" {
				continue
			}
			if i < len(header) && header[i] != "" {
				fmt.Fprintf(&b, "%s: %s\n", header[i], field)
			} else {
				b.WriteString(field)
				b.WriteByte('\n')
			}
		}
		b.WriteByte('\n')
	}

	content := strings.TrimSpace(b.String())
	if content == "" {
		// Header-only file: index the column names themselves.
		content = strings.Join(header, ", ")
	}
	return []Document{{
		Content: content,
		Metadata: Metadata{
			Source:   path,
			Filename: filepath.Base(path),
		},
	}}, nil
}
