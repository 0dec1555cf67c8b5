// =============================================================================
// Journal Batch Upload - XLSX Reader
// =============================================================================
//
// Reads the first sheet of an uploaded workbook into raw rows. Only the
// first sheet is ever read; other sheets are ignored.
//
// CELL VALUES:
//   Cells are read as stored, never as displayed, so a number format cannot
//   round or decorate a value on its way in.
//
//   stored value                       row cell
//   ---------------------------------  --------------------------
//   text                               string (as typed)
//   number                             float64
//   number under a date number format  time.Time (UTC calendar date)
//   boolean                            bool
//
//   Text that merely looks like a number or a date ("5,000,000",
//   "15/01/2024") stays text and goes through the canonicalizers.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
)

// Extensions are the file extensions served by Reader.
var Extensions = []string{".xlsx", ".xlsm", ".xltx"}

// ErrNoSheets is returned for a workbook without worksheets.
var ErrNoSheets = errors.New("workbook has no sheets")

// Reader implements sheet.RowReader for Office Open XML workbooks.
type Reader struct {
	// Password opens encrypted workbooks when set.
	Password string
}

// NewReader returns a Reader for unencrypted workbooks.
func NewReader() *Reader {
	return &Reader{}
}

// ReadRows returns the rows of the first sheet. Row i of the result is
// spreadsheet row i+1.
func (r *Reader) ReadRows(ctx context.Context, content []byte) ([]sheet.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenReader(bytes.NewReader(content), excelize.Options{Password: r.Password})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}

	cells, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of %q: %w", sheets[0], err)
	}

	dec := newCellDecoder(f, sheets[0])
	rows := make([]sheet.Row, len(cells))
	for i, c := range cells {
		row := make(sheet.Row, len(c))
		for j, raw := range c {
			if row[j], err = dec.decode(i, j, raw); err != nil {
				return nil, err
			}
		}
		rows[i] = row
	}
	return rows, nil
}

// =============================================================================
// CELL DECODING
// =============================================================================

// cellDecoder turns raw cell values into typed row cells. Date detection
// looks at each numeric cell's number format; the answer is cached per
// style.
type cellDecoder struct {
	f          *excelize.File
	sheet      string
	date1904   bool
	dateStyles map[int]bool
}

func newCellDecoder(f *excelize.File, sheetName string) *cellDecoder {
	d := &cellDecoder{f: f, sheet: sheetName, dateStyles: map[int]bool{}}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		d.date1904 = *props.Date1904
	}
	return d
}

// decode returns the typed value of the cell at 0-indexed row and col.
func (d *cellDecoder) decode(row, col int, raw string) (any, error) {
	if raw == "" {
		return "", nil
	}
	ref, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return nil, err
	}
	typ, err := d.f.GetCellType(d.sheet, ref)
	if err != nil {
		return nil, fmt.Errorf("cell %s: %w", ref, err)
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeUnset, excelize.CellTypeNumber:
	default:
		return raw, nil
	}

	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	isDate, err := d.isDateCell(ref)
	if err != nil {
		return nil, err
	}
	if !isDate {
		return n, nil
	}
	t, err := excelize.ExcelDateToTime(n, d.date1904)
	if err != nil {
		return n, nil
	}
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

func (d *cellDecoder) isDateCell(ref string) (bool, error) {
	idx, err := d.f.GetCellStyle(d.sheet, ref)
	if err != nil {
		return false, fmt.Errorf("cell %s: %w", ref, err)
	}
	if known, ok := d.dateStyles[idx]; ok {
		return known, nil
	}
	style, err := d.f.GetStyle(idx)
	if err != nil {
		return false, fmt.Errorf("cell %s: %w", ref, err)
	}
	isDate := false
	if style != nil {
		if style.CustomNumFmt != nil {
			isDate = IsDateFormat(*style.CustomNumFmt)
		} else {
			isDate = IsBuiltInDateFormat(style.NumFmt)
		}
	}
	d.dateStyles[idx] = isDate
	return isDate, nil
}

// IsBuiltInDateFormat reports whether the built-in number format id shows a
// date or a date-time.
func IsBuiltInDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 17, id == 22:
		return true
	case id >= 27 && id <= 36, id >= 50 && id <= 58, id >= 71 && id <= 76:
		return true
	}
	return false
}

// IsDateFormat reports whether a custom number format code shows a date.
// Quoted literals, escaped characters and bracketed sections ([Red],
// [$-409]) are ignored. A d or y token makes it a date; m alone counts only
// when no h or s marks it as minutes.
func IsDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, r := range strings.ToLower(code) {
		switch {
		case escaped:
			escaped = false
		case inQuote:
			inQuote = r != '"'
		case inBracket:
			inBracket = r != ']'
		case r == '\\', r == '_', r == '*':
			escaped = true
		case r == '"':
			inQuote = true
		case r == '[':
			inBracket = true
		default:
			b.WriteRune(r)
		}
	}
	tokens := b.String()
	if strings.ContainsAny(tokens, "dy") {
		return true
	}
	return strings.ContainsRune(tokens, 'm') && !strings.ContainsAny(tokens, "hs")
}

// Register adds the reader to reg for every workbook extension.
func Register(reg sheet.Registry, r *Reader) {
	reg.Register(r, Extensions...)
}
