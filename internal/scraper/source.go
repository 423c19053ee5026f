package scraper

import (
	"context"
	"fmt"
	"os"

	"slotledger/internal/errors"
)

// Source yields the raw markup of one day's data table.
type Source interface {
	// Fetch returns the complete document.
	Fetch(ctx context.Context) ([]byte, error)
	// Describe names the source for logs.
	Describe() string
}

// FileSource reads markup saved to disk.
type FileSource struct {
	Path string
}

// NewFileSource creates a source for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Fetch reads the whole file.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError(fmt.Sprintf("markup file %s", s.Path))
		}
		return nil, errors.NewParsingError("failed to read markup file", err).
			WithContext("path", s.Path)
	}
	return data, nil
}

// Describe implements Source.
func (s *FileSource) Describe() string {
	return "file:" + s.Path
}

// TextSource serves markup already held in memory, such as a form field.
type TextSource struct {
	Markup string
	Label  string
}

// NewTextSource creates a source over markup.
func NewTextSource(markup string) *TextSource {
	return &TextSource{Markup: markup, Label: "inline"}
}

// Fetch returns the markup as bytes.
func (s *TextSource) Fetch(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(s.Markup), nil
}

// Describe implements Source.
func (s *TextSource) Describe() string {
	return fmt.Sprintf("text:%s(%d bytes)", s.Label, len(s.Markup))
}
