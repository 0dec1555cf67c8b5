// =============================================================================
// Journal Batch Upload - Record Mapper
// =============================================================================
//
// Maps the positional cells found by the segmenter into named draft fields.
// The column layout is fixed and not described by the sheet itself.
//
// HEADER DATA ROW:
//   0 CompanyCode   4 FiscalPeriod   8  RefDocNo
//   1 DocType       5 DocText        9  BusinessArea
//   2 DocDate  (d)  6 Currency       10 AutoCalcTax
//   3 PostDate (d)  7 LedgerGroup (default "0L")
//
// ITEM ROW:
//   0 CompanyCode   4 AmountCredit   9  ValueDate (d)   12 AssignmentNo
//   1 GlAccount     5 AmountLc1      10 HouseBank       13 TradingPartner
//   2 ItemText      6 TaxCode        11 BankAccountId
//   3 AmountDebit   7 OrderNumber    (8 is not read)
//
// (d) columns pass through the strict date path; anything that is not a
//     dd/MM/yyyy date becomes absent.
//
// Amounts keep their original text. They are canonicalized when the payload
// is built.
//
// =============================================================================

package converter

import (
	"github.com/ginjaninja78/journal-batch-upload/internal/canon"
	"github.com/ginjaninja78/journal-batch-upload/internal/segment"
	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
)

// column binds a cell index to a wire field name.
type column struct {
	index int
	field string
}

var headerColumns = []column{
	{0, types.FieldCompanyCode},
	{1, types.FieldDocType},
	{2, types.FieldDocDate},
	{3, types.FieldPostDate},
	{4, types.FieldFiscalPeriod},
	{5, types.FieldDocText},
	{6, types.FieldCurrency},
	{7, types.FieldLedgerGroup},
	{8, types.FieldRefDocNo},
	{9, types.FieldBusinessArea},
	{10, types.FieldAutoCalcTax},
}

var itemColumns = []column{
	{0, types.FieldCompanyCode},
	{1, types.FieldGlAccount},
	{2, types.FieldItemText},
	{3, types.FieldAmountDebit},
	{4, types.FieldAmountCredit},
	{5, types.FieldAmountLc1},
	{6, types.FieldTaxCode},
	{7, types.FieldOrderNumber},
	{9, types.FieldValueDate},
	{10, types.FieldHouseBank},
	{11, types.FieldBankAccountID},
	{12, types.FieldAssignmentNo},
	{13, types.FieldTradingPartner},
}

// MapHeader builds a header draft from its data row. A nil row (the sheet
// ended early) yields a header with every field blank except the ledger
// group default.
func MapHeader(raw segment.RawHeader) types.HeaderDraft {
	h := types.HeaderDraft{
		Items:     make([]types.ItemDraft, 0, len(raw.Items)),
		SourceRow: raw.MarkerRow,
	}
	for _, col := range headerColumns {
		// Set only fails for unknown names and the table holds known ones.
		_ = h.Set(col.field, mapCell(raw.DataRow, col))
	}
	if h.LedgerGroup == "" {
		h.LedgerGroup = types.DefaultLedgerGroup
	}

	for _, item := range raw.Items {
		h.Items = append(h.Items, MapItem(item))
	}
	return h
}

// MapItem builds an item draft from one item row.
func MapItem(raw segment.RawItem) types.ItemDraft {
	it := types.ItemDraft{SourceRow: raw.Row}
	for _, col := range itemColumns {
		_ = it.Set(col.field, mapCell(raw.Cells, col))
	}
	return it
}

func mapCell(cells []string, col column) string {
	value := sheet.Cell(cells, col.index)
	if types.IsDateField(col.field) {
		return canon.ToCanonical(value)
	}
	return value
}
