package loader

import (
	"os"
	"path/filepath"
	"strings"
)

// PlainText loads .txt and .md files as a single document.
type PlainText struct{}

func (*PlainText) Load(path string) ([]Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content := strings.ToValidUTF8(string(data), "")
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return []Document{{
		Content: content,
		Metadata: Metadata{
			Source:   path,
			Filename: filepath.Base(path),
		},
	}}, nil
}

