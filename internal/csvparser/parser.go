// =============================================================================
// Journal Batch Upload - CSV Reader
// =============================================================================
//
// Reads a CSV export of the upload sheet. A CSV file is treated as a
// workbook with a single sheet, so it goes through the same segmenter as
// an .xlsx upload.
//
// FEATURES:
//   - Configurable delimiter (comma, semicolon, pipe, tab)
//   - Legacy single-byte encodings (ISO-8859-1, Windows-1252) decoded to UTF-8
//   - UTF-8 byte order mark stripped
//   - Ragged rows and loose quoting accepted
//   - Empty lines kept as blank rows
//
// =============================================================================

package csvparser

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
)

// Extensions are the file extensions served by Reader.
var Extensions = []string{".csv", ".txt"}

// ErrUnsupportedEncoding is returned for an unknown encoding name.
var ErrUnsupportedEncoding = errors.New("unsupported encoding")

// Settings controls how CSV content is read.
type Settings struct {
	// Delimiter: ",", ";", "|", "tab" or "\t". Empty means comma.
	Delimiter string

	// Encoding: "UTF-8" (default), "ISO-8859-1", "Windows-1252".
	Encoding string
}

// Reader implements sheet.RowReader for CSV content.
type Reader struct {
	comma   rune
	decoder *encoding.Decoder
}

// NewReader validates settings and returns a Reader.
func NewReader(settings Settings) (*Reader, error) {
	dec, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}
	return &Reader{comma: delimiterRune(settings.Delimiter), decoder: dec}, nil
}

// ReadRows returns every record as a row.
func (r *Reader) ReadRows(ctx context.Context, content []byte) ([]sheet.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var src io.Reader = bytes.NewReader(content)
	if r.decoder != nil {
		src = transform.NewReader(src, r.decoder)
	}
	src = transform.NewReader(src, unicode.BOMOverride(encoding.Nop.NewDecoder()))

	csvReader := csv.NewReader(bufio.NewReader(src))
	configureReader(csvReader, r.comma)

	// encoding/csv drops empty lines. They are put back as blank rows so that
	// row positions match the file, which the header data offset relies on.
	var rows []sheet.Row
	nextLine := 1
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}

		line, _ := csvReader.FieldPos(0)
		for ; nextLine < line; nextLine++ {
			rows = append(rows, sheet.Row{})
		}
		rows = append(rows, sheet.StringRow(record...))
		nextLine = line + embeddedNewlines(record) + 1
	}
	return rows, nil
}

func embeddedNewlines(record []string) int {
	n := 0
	for _, field := range record {
		n += strings.Count(field, "\n")
	}
	return n
}

// Register adds the reader to reg for every CSV extension.
func Register(reg sheet.Registry, r *Reader) {
	reg.Register(r, Extensions...)
}

// configureReader applies the delimiter and the tolerant parsing options.
func configureReader(reader *csv.Reader, comma rune) {
	reader.Comma = comma

	// Marker rows have one cell, data rows many.
	reader.FieldsPerRecord = -1

	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

func delimiterRune(delimiter string) rune {
	switch delimiter {
	case "\\t", "\t", "tab", "TAB":
		return '\t'
	case "|", "pipe", "PIPE":
		return '|'
	case ";", "semicolon":
		return ';'
	case "":
		return ','
	default:
		return []rune(delimiter)[0]
	}
}

func decoderFor(name string) (*encoding.Decoder, error) {
	switch strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(name), "_", "-")) {
	case "", "UTF-8", "UTF8":
		return nil, nil
	case "ISO-8859-1", "LATIN1", "LATIN-1":
		return charmap.ISO8859_1.NewDecoder(), nil
	case "WINDOWS-1252", "CP1252":
		return charmap.Windows1252.NewDecoder(), nil
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnsupportedEncoding)
}
