// =============================================================================
// Journal Batch Upload - Row Normalizer
// =============================================================================
//
// Spreadsheet readers hand over rows of loosely typed cells. Everything
// downstream works on trimmed strings, so every row passes through
// Normalize first.
//
// CELL CONVERSION:
//   nil          -> ""
//   string       -> trimmed
//   numbers      -> shortest decimal form ("1500", "12.5")
//   bool         -> "true" / "false"
//   time.Time    -> "dd/MM/yyyy" of its UTC calendar date
//   anything else-> fmt.Sprint, trimmed
//
// =============================================================================

package sheet

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Row is one raw spreadsheet row. It may be shorter than expected and may
// contain nil cells.
type Row []any

// StringRow converts a row of plain strings into a Row.
func StringRow(cells ...string) Row {
	row := make(Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	return row
}

// Normalize returns the trimmed string form of every cell.
func Normalize(row Row) []string {
	out := make([]string, len(row))
	for i, cell := range row {
		out[i] = cellString(cell)
	}
	return out
}

// IsBlank reports whether every normalized cell is empty. A nil or
// zero-length row is blank.
func IsBlank(row Row) bool {
	for _, cell := range row {
		if cellString(cell) != "" {
			return false
		}
	}
	return true
}

// Cell returns the cell at index i of a normalized row, or "" when the row
// is too short.
func Cell(cells []string, i int) string {
	if i >= 0 && i < len(cells) {
		return cells[i]
	}
	return ""
}

func cellString(cell any) string {
	switch v := cell.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		if v.IsZero() {
			return ""
		}
		return v.UTC().Format("02/01/2006")
	case fmt.Stringer:
		return strings.TrimSpace(v.String())
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
