package sheet

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// ErrReaderUnavailable is returned when no parsing capability is registered
// for a file type.
var ErrReaderUnavailable = errors.New("no spreadsheet reader available")

// RowReader parses the rows of the first sheet from binary content.
type RowReader interface {
	ReadRows(ctx context.Context, content []byte) ([]Row, error)
}

// RowReaderFunc adapts a function to RowReader.
type RowReaderFunc func(ctx context.Context, content []byte) ([]Row, error)

// ReadRows calls f.
func (f RowReaderFunc) ReadRows(ctx context.Context, content []byte) ([]Row, error) {
	return f(ctx, content)
}

// Registry maps lower-case file extensions (".xlsx") to readers. It is
// filled once at start-up and read-only afterwards.
type Registry map[string]RowReader

// Register adds a reader for each extension.
func (r Registry) Register(reader RowReader, exts ...string) {
	for _, ext := range exts {
		r[normalizeExt(ext)] = reader
	}
}

// For returns the reader registered for fileName's extension.
func (r Registry) For(fileName string) (RowReader, error) {
	ext := normalizeExt(filepath.Ext(fileName))
	if reader, ok := r[ext]; ok && reader != nil {
		return reader, nil
	}
	return nil, fmt.Errorf("%s (extension %q): %w", fileName, ext, ErrReaderUnavailable)
}

// Extensions lists the registered extensions, sorted.
func (r Registry) Extensions() []string {
	exts := make([]string, 0, len(r))
	for ext := range r {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
