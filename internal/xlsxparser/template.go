package xlsxparser

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// TemplateSheet is the name of the only sheet in the upload template.
const TemplateSheet = "Upload"

// TemplateItemRows is the number of empty, text-formatted item rows.
const TemplateItemRows = 50

// HeaderTitles are the column titles under the header marker.
var HeaderTitles = []string{
	"Company Code", "Document Type", "Document Date (dd/MM/yyyy)", "Posting Date (dd/MM/yyyy)",
	"Fiscal Period", "Header Text", "Currency", "Ledger Group", "Reference",
	"Business Area", "Calculate Tax",
}

// ItemTitles are the column titles under the items marker. Column I is not
// read by the importer.
var ItemTitles = []string{
	"Company Code", "G/L Account", "Item Text", "Amount Debit", "Amount Credit",
	"Amount LC1", "Tax Code", "Order", "(not used)", "Value Date (dd/MM/yyyy)",
	"House Bank", "Bank Account ID", "Assignment", "Trading Partner",
}

// Template row numbers (1-based, as shown in Excel).
const (
	templateHeaderMarkerRow = 1
	templateHeaderTitleRow  = 2
	templateHeaderDataRow   = 3
	templateItemsMarkerRow  = 5
	templateItemTitleRow    = 6
)

// WriteTemplate writes a blank upload workbook to w.
func WriteTemplate(w io.Writer) error {
	f, err := BuildTemplate()
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write template: %w", err)
	}
	return nil
}

// BuildTemplate lays out a single header block followed by an items block
// in the positions the importer expects.
func BuildTemplate() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", TemplateSheet); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := layoutTemplate(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to build template: %w", err)
	}
	return f, nil
}

func layoutTemplate(f *excelize.File) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 12}})
	if err != nil {
		return err
	}
	title, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"D9E1F2"}},
	})
	if err != nil {
		return err
	}
	// Built-in format 49 is "@": typed dates stay text.
	text, err := f.NewStyle(&excelize.Style{NumFmt: 49})
	if err != nil {
		return err
	}

	rows := []struct {
		row    int
		values []string
		style  int
	}{
		{templateHeaderMarkerRow, []string{"Header"}, bold},
		{templateHeaderTitleRow, HeaderTitles, title},
		{templateItemsMarkerRow, []string{"Line Items"}, bold},
		{templateItemTitleRow, ItemTitles, title},
	}
	for _, r := range rows {
		if err := setRow(f, r.row, r.values, r.style); err != nil {
			return err
		}
	}

	if err := styleRange(f, templateHeaderDataRow, templateHeaderDataRow, len(HeaderTitles), text); err != nil {
		return err
	}
	first := templateItemTitleRow + 1
	if err := styleRange(f, first, first+TemplateItemRows-1, len(ItemTitles), text); err != nil {
		return err
	}

	last, err := excelize.ColumnNumberToName(len(ItemTitles))
	if err != nil {
		return err
	}
	return f.SetColWidth(TemplateSheet, "A", last, 20)
}

func setRow(f *excelize.File, row int, values []string, style int) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(TemplateSheet, start, &cells); err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(len(values), row)
	if err != nil {
		return err
	}
	return f.SetCellStyle(TemplateSheet, start, end, style)
}

func styleRange(f *excelize.File, fromRow, toRow, cols, style int) error {
	start, err := excelize.CoordinatesToCellName(1, fromRow)
	if err != nil {
		return err
	}
	end, err := excelize.CoordinatesToCellName(cols, toRow)
	if err != nil {
		return err
	}
	return f.SetCellStyle(TemplateSheet, start, end, style)
}
