package xlsxparser_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/journal-batch-upload/internal/converter"
	"github.com/ginjaninja78/journal-batch-upload/internal/payload"
	"github.com/ginjaninja78/journal-batch-upload/internal/segment"
	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
	"github.com/ginjaninja78/journal-batch-upload/internal/xlsxparser"
)

func workbook(t *testing.T, build func(f *excelize.File)) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	build(f)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadRows_FirstSheetOnly(t *testing.T) {
	content := workbook(t, func(f *excelize.File) {
		require.NoError(t, f.SetCellValue("Sheet1", "A1", "Header"))
		require.NoError(t, f.SetCellValue("Sheet1", "A3", "1000"))
		require.NoError(t, f.SetCellValue("Sheet1", "C3", "15/01/2024"))
		require.NoError(t, f.SetCellValue("Sheet1", "B4", 1500))
		_, err := f.NewSheet("Other")
		require.NoError(t, err)
		require.NoError(t, f.SetCellValue("Other", "A1", "Line Items"))
	})

	rows, err := xlsxparser.NewReader().ReadRows(context.Background(), content)
	require.NoError(t, err)

	require.Len(t, rows, 4)
	assert.Equal(t, []string{"Header"}, sheet.Normalize(rows[0]))
	assert.True(t, sheet.IsBlank(rows[1]))
	assert.Equal(t, []string{"1000", "", "15/01/2024"}, sheet.Normalize(rows[2]))
	assert.Equal(t, "1500", sheet.Cell(sheet.Normalize(rows[3]), 1))
}

func numFmtStyle(t *testing.T, f *excelize.File, id int, custom string) int {
	t.Helper()
	style := &excelize.Style{NumFmt: id}
	if custom != "" {
		style = &excelize.Style{CustomNumFmt: &custom}
	}
	idx, err := f.NewStyle(style)
	require.NoError(t, err)
	return idx
}

func TestReadRows_TypedCells(t *testing.T) {
	jan15 := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  any
		numFmt int
		custom string
		want   any
	}{
		{"plain number", 1234.567, 0, "", 1234.567},
		{"thousands format", 1234.567, 3, "", 1234.567},
		{"accounting format", 1234.5, 44, "", 1234.5},
		{"currency format", 1234.5, 0, "$#,##0.00", 1234.5},
		{"percent format", 0.5, 9, "", 0.5},
		{"integer code", 400000, 0, "", float64(400000)},
		{"serial under built-in date format", 45306, 14, "", jan15},
		{"serial under custom date format", 45306, 0, "dd/mm/yyyy", jan15},
		{"serial under time format", 0.5, 0, "hh:mm:ss", 0.5},
		{"date-time keeps the calendar date", 45306.75, 22, "", jan15},
		{"native date cell", jan15, 0, "", jan15},
		{"boolean", true, 0, "", true},
		{"text stays text", "5,000,000", 3, "", "5,000,000"},
		{"date text stays text", "15/01/2024", 14, "", "15/01/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := workbook(t, func(f *excelize.File) {
				if tt.numFmt != 0 || tt.custom != "" {
					require.NoError(t, f.SetCellStyle("Sheet1", "A1", "A1", numFmtStyle(t, f, tt.numFmt, tt.custom)))
				}
				require.NoError(t, f.SetCellValue("Sheet1", "A1", tt.value))
			})

			rows, err := xlsxparser.NewReader().ReadRows(context.Background(), content)
			require.NoError(t, err)
			require.Len(t, rows, 1)
			require.Len(t, rows[0], 1)
			assert.Equal(t, tt.want, rows[0][0])
		})
	}
}

// Typed amount and date cells must reach the payload with the stored value,
// not the formatted text.
func TestReadRows_TypedCellsReachPayload(t *testing.T) {
	tests := []struct {
		name       string
		numFmt     int
		custom     string
		wantAmount string
	}{
		{"general", 0, "", "1234.57"},
		{"thousands", 3, "", "1234.57"},
		{"accounting", 44, "", "1234.57"},
		{"currency", 0, "$#,##0.00", "1234.57"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := workbook(t, func(f *excelize.File) {
				require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Header"}))
				require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]any{
					"1000", "SA", time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), 45306,
				}))
				dateStyle := numFmtStyle(t, f, 14, "")
				require.NoError(t, f.SetCellStyle("Sheet1", "D3", "D3", dateStyle))

				require.NoError(t, f.SetSheetRow("Sheet1", "A5", &[]any{"Line Items"}))
				require.NoError(t, f.SetSheetRow("Sheet1", "A6", &[]any{"Company Code", "G/L Account"}))
				require.NoError(t, f.SetSheetRow("Sheet1", "A7", &[]any{1000, 400000, "Rent", 1234.567}))
				require.NoError(t, f.SetCellValue("Sheet1", "J7", 45306))
				require.NoError(t, f.SetCellStyle("Sheet1", "J7", "J7", dateStyle))
				if tt.numFmt != 0 || tt.custom != "" {
					require.NoError(t, f.SetCellStyle("Sheet1", "D7", "D7", numFmtStyle(t, f, tt.numFmt, tt.custom)))
				}
			})

			res, err := converter.New(zerolog.Nop()).Ingest(context.Background(), xlsxparser.NewReader(), content,
				converter.Source{FileName: "typed.xlsx"})
			require.NoError(t, err)

			batch, err := payload.Build(res.Draft, "")
			require.NoError(t, err)
			require.Len(t, batch.Headers, 1)
			h := batch.Headers[0]

			assert.Equal(t, "1000", h.CompanyCode)
			require.NotNil(t, h.DocDate)
			assert.Equal(t, "/Date(1705276800000)/", *h.DocDate)
			require.NotNil(t, h.PostDate)
			assert.Equal(t, "/Date(1705276800000)/", *h.PostDate)

			require.Len(t, h.Items, 1)
			it := h.Items[0]
			assert.Equal(t, "1000", it.CompanyCode)
			assert.Equal(t, "400000", it.GlAccount)
			assert.Equal(t, tt.wantAmount, it.AmountDebit)
			require.NotNil(t, it.ValueDate)
			assert.Equal(t, "/Date(1705276800000)/", *it.ValueDate)
		})
	}
}

func TestIsDateFormat(t *testing.T) {
	tests := []struct {
		code string
		want bool
	}{
		{"dd/mm/yyyy", true},
		{"d-mmm-yy", true},
		{"[$-409]mmmm d, yyyy;@", true},
		{"mm/yy", true},
		{"mmm", true},
		{"hh:mm:ss", false},
		{"[h]:mm", false},
		{"mm:ss.0", false},
		{"#,##0", false},
		{"$#,##0.00", false},
		{`_("$"* #,##0.00_);_("$"* \(#,##0.00\);_("$"* "-"??_);_(@_)`, false},
		{`0.00 "days"`, false},
		{"[Red]0.00", false},
		{"General", false},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, xlsxparser.IsDateFormat(tt.code))
		})
	}
}

func TestIsBuiltInDateFormat(t *testing.T) {
	for _, id := range []int{14, 15, 16, 17, 22, 27, 36, 50, 58} {
		assert.True(t, xlsxparser.IsBuiltInDateFormat(id), "id %d", id)
	}
	for _, id := range []int{0, 1, 3, 4, 9, 10, 18, 19, 20, 21, 44, 45, 46, 47, 49} {
		assert.False(t, xlsxparser.IsBuiltInDateFormat(id), "id %d", id)
	}
}

func TestReadRows_NotAWorkbook(t *testing.T) {
	_, err := xlsxparser.NewReader().ReadRows(context.Background(), []byte("Company Code,GL\n"))
	assert.Error(t, err)
}

func TestReadRows_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := xlsxparser.NewReader().ReadRows(ctx, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegister(t *testing.T) {
	reg := sheet.Registry{}
	xlsxparser.Register(reg, xlsxparser.NewReader())

	_, err := reg.For("batch.XLSX")
	assert.NoError(t, err)
	_, err = reg.For("batch.xlsm")
	assert.NoError(t, err)
}

func TestTemplate_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, xlsxparser.WriteTemplate(&buf))

	rows, err := xlsxparser.NewReader().ReadRows(context.Background(), buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, "Header", sheet.Cell(sheet.Normalize(rows[0]), 0))
	assert.Equal(t, xlsxparser.HeaderTitles, sheet.Normalize(rows[1]))
	assert.Equal(t, "Line Items", sheet.Cell(sheet.Normalize(rows[4]), 0))
	assert.Equal(t, xlsxparser.ItemTitles, sheet.Normalize(rows[5]))

	// The blank template segments into one empty header block.
	res := segment.Segment(rows)
	require.Len(t, res.Headers, 1)
	assert.Empty(t, res.Headers[0].Items)
	assert.Empty(t, res.Diagnostics)
}

func TestTemplate_FilledIn(t *testing.T) {
	f, err := xlsxparser.BuildTemplate()
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.SetSheetRow(xlsxparser.TemplateSheet, "A3", &[]any{"1000", "SA", "15/01/2024"}))
	require.NoError(t, f.SetSheetRow(xlsxparser.TemplateSheet, "A7", &[]any{"1000", "400000", "Rent", "5,000,000"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	rows, err := xlsxparser.NewReader().ReadRows(context.Background(), buf.Bytes())
	require.NoError(t, err)

	res := segment.Segment(rows)
	require.Len(t, res.Headers, 1)
	assert.Equal(t, "15/01/2024", sheet.Cell(res.Headers[0].DataRow, 2))
	require.Len(t, res.Headers[0].Items, 1)
	assert.Equal(t, "5,000,000", sheet.Cell(res.Headers[0].Items[0].Cells, 3))
}
