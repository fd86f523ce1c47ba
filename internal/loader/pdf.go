package loader

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// CommandRunner executes an external command and returns its stdout.
// It exists so tests can substitute the pdftotext invocation.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDF loads PDF files by shelling out to poppler's pdftotext. Extraction
// quality for arbitrary PDFs is a solved problem there; reimplementing it
// is not worth carrying.
type PDF struct {
	runner CommandRunner
}

// NewPDF creates a PDF loader using the system pdftotext binary.
func NewPDF() *PDF {
	return &PDF{runner: execRunner{}}
}

// NewPDFWithRunner creates a PDF loader with a custom command runner.
func NewPDFWithRunner(r CommandRunner) *PDF {
	return &PDF{runner: r}
}

func (p *PDF) Load(path string) ([]Document, error) {
	// -layout preserves reading order; "-" writes to stdout.
	out, err := p.runner.Run(context.Background(), "pdftotext", "-layout", path, "-")
	if err != nil {
		return nil, fmt.Errorf("pdftotext: %w (is poppler-utils installed?)", err)
	}

	// pdftotext separates pages with form feeds.
	var docs []Document
	for i, page := range strings.Split(string(out), "\f") {
		if strings.TrimSpace(page) == "" {
			continue
		}
		docs = append(docs, Document{
			Content: page,
			Metadata: Metadata{
				Source:   path,
				Filename: filepath.Base(path),
				Page:     i + 1,
			},
		})
	}
	return docs, nil
}
