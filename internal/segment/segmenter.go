// =============================================================================
// Journal Batch Upload - Block Segmenter
// =============================================================================
//
// The upload workbook is not self-describing. Blocks are announced by weak
// textual markers in the first cell and everything else is positional:
//
//   row n     | Header ...                     <- header marker
//   row n+1   | Company Code | Doc Type | ...  <- column titles (skipped)
//   row n+2   | 1000 | SA | 15/01/2024 | ...   <- header data (fixed offset)
//   ...       | (blank rows are ignored)
//   row m     | Line Items ...                 <- items marker
//   row m+1   | Company Code | G/L Account ... <- title run (skipped)
//   row m+2.. | 1000 | 400000 | ...            <- item rows
//
// The scanner is an explicit state machine:
//
//   Seeking  --header marker-->  InHeader
//   InHeader --items marker--->  InItems
//   InItems  --header marker-->  InHeader (previous block is closed)
//   any      --items marker--->  InItems
//
// Malformed input never fails. Rows that match no recognized shape are
// dropped and, where useful, reported as Diagnostics.
//
// =============================================================================

package segment

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
)

const (
	headerMarker    = "header"
	itemsMarker     = "line items"
	itemTitleMarker = "company code"

	// HeaderDataOffset is the distance from a header marker to its data row.
	HeaderDataOffset = 2
)

// State is the scanner state.
type State int

const (
	Seeking State = iota
	InHeader
	InItems
)

func (s State) String() string {
	switch s {
	case InHeader:
		return "InHeader"
	case InItems:
		return "InItems"
	default:
		return "Seeking"
	}
}

// =============================================================================
// OUTPUT TYPES
// =============================================================================

// RawHeader is one header block as found in the sheet.
type RawHeader struct {
	// MarkerRow is the 0-indexed row of the header marker.
	MarkerRow int

	// DataRow holds the normalized cells found HeaderDataOffset rows after
	// the marker. Nil when the sheet ends before that row.
	DataRow []string

	Items []RawItem
}

// RawItem is one item data row.
type RawItem struct {
	Row   int
	Cells []string
}

// DiagnosticKind classifies a Diagnostic.
type DiagnosticKind string

const (
	// DroppedItemRow: a non-blank row in item mode without both a first and
	// a second cell.
	DroppedItemRow DiagnosticKind = "dropped_item_row"

	// OrphanItemRow: an item-shaped row before any header marker.
	OrphanItemRow DiagnosticKind = "orphan_item_row"

	// MissingHeaderData: the sheet ends before the header data row.
	MissingHeaderData DiagnosticKind = "missing_header_data"

	// TitleLikeItemRow: an item row whose first cell reads like a column
	// title. It was kept as an item.
	TitleLikeItemRow DiagnosticKind = "title_like_item_row"
)

// Diagnostic describes something the scanner tolerated. It never changes
// the segmentation result.
type Diagnostic struct {
	Row     int
	Kind    DiagnosticKind
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("row %d: %s: %s", d.Row+1, d.Kind, d.Message)
}

// Result is the outcome of one scan.
type Result struct {
	Headers     []RawHeader
	Diagnostics []Diagnostic
}

// =============================================================================
// SCANNER
// =============================================================================

// Segment splits the row stream into header blocks in marker order.
func Segment(rows []sheet.Row) *Result {
	s := &scanner{rows: rows, fold: cases.Fold(), result: &Result{}}
	s.run()
	return s.result
}

type scanner struct {
	rows    []sheet.Row
	fold    cases.Caser
	state   State
	current *RawHeader
	result  *Result
}

func (s *scanner) run() {
	for i := 0; i < len(s.rows); i++ {
		row := sheet.Normalize(s.rows[i])
		if sheet.IsBlank(s.rows[i]) {
			continue
		}
		first := s.fold.String(sheet.Cell(row, 0))

		switch {
		case strings.Contains(first, headerMarker):
			i = s.openHeader(i)
		case strings.Contains(first, itemsMarker):
			i = s.openItems(i)
		case s.state == InItems:
			s.collectItem(i, row, first)
		}
	}
	s.flush()
}

// openHeader closes the block in progress, starts a new one and reads its
// data row. It returns the index of the last consumed row.
func (s *scanner) openHeader(i int) int {
	s.flush()
	s.state = InHeader
	s.current = &RawHeader{MarkerRow: i, Items: []RawItem{}}

	dataIdx := i + HeaderDataOffset
	if dataIdx < len(s.rows) {
		s.current.DataRow = sheet.Normalize(s.rows[dataIdx])
	} else {
		s.diagnose(i, MissingHeaderData, "sheet ends before the header data row")
	}
	return dataIdx
}

// openItems switches to item collection and skips the contiguous run of
// column-title rows that directly follows the marker.
func (s *scanner) openItems(i int) int {
	s.state = InItems
	for i+1 < len(s.rows) && s.isTitleRow(s.rows[i+1]) {
		i++
	}
	return i
}

func (s *scanner) isTitleRow(raw sheet.Row) bool {
	if sheet.IsBlank(raw) {
		return false
	}
	first := s.fold.String(sheet.Cell(sheet.Normalize(raw), 0))
	return strings.Contains(first, itemTitleMarker)
}

func (s *scanner) collectItem(i int, row []string, first string) {
	if sheet.Cell(row, 0) == "" || sheet.Cell(row, 1) == "" {
		s.diagnose(i, DroppedItemRow, "item row needs both a company code and a G/L account")
		return
	}
	if s.current == nil {
		s.diagnose(i, OrphanItemRow, "item row appears before any header marker")
		return
	}
	if strings.Contains(first, itemTitleMarker) {
		s.diagnose(i, TitleLikeItemRow, "row looks like a column title but was read as an item")
	}
	s.current.Items = append(s.current.Items, RawItem{Row: i, Cells: row})
}

func (s *scanner) flush() {
	if s.current != nil {
		s.result.Headers = append(s.result.Headers, *s.current)
		s.current = nil
	}
}

func (s *scanner) diagnose(row int, kind DiagnosticKind, msg string) {
	s.result.Diagnostics = append(s.result.Diagnostics, Diagnostic{Row: row, Kind: kind, Message: msg})
}
