package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/journal-batch-upload/internal/types"
	"github.com/ginjaninja78/journal-batch-upload/internal/validation"
)

func validHeader() types.HeaderDraft {
	return types.HeaderDraft{
		CompanyCode:  "1000",
		DocType:      "SA",
		DocDate:      "/Date(1705276800000)/",
		PostDate:     "/Date(1705363200000)/",
		FiscalPeriod: "01",
		DocText:      "January accruals",
		Currency:     "VND",
		LedgerGroup:  "0L",
		RefDocNo:     "REF-001",
		BusinessArea: "BA01",
	}
}

func validItem() types.ItemDraft {
	return types.ItemDraft{
		CompanyCode:   "1000",
		GlAccount:     "400000",
		ItemText:      "Office rent",
		AmountDebit:   "100.00",
		HouseBank:     "VCB",
		BankAccountID: "ACC01",
	}
}

func draftWith(items ...types.ItemDraft) *types.BatchDraft {
	d := types.NewBatchDraft()
	h := validHeader()
	h.Items = items
	d.Headers = append(d.Headers, h)
	return d
}

func TestValidate_ValidDraft(t *testing.T) {
	v := validation.New()
	d := draftWith(validItem(), validItem())

	res := v.Validate(d)

	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
	assert.False(t, d.States.HasErrors())
	assert.Equal(t, 1, res.HeadersValidated)
	assert.Equal(t, 2, res.ItemsValidated)
	assert.Equal(t, 9+2*(4+3), res.FieldsValidated)
	assert.Equal(t, types.StateNone, d.States.Get(types.HeaderRef(0, types.FieldCompanyCode)))
}

func TestValidate_RequiredFields(t *testing.T) {
	v := validation.New()
	assert.Equal(t, []string{
		types.FieldCompanyCode, types.FieldDocType, types.FieldDocDate, types.FieldPostDate,
		types.FieldFiscalPeriod, types.FieldDocText, types.FieldCurrency, types.FieldRefDocNo,
		types.FieldBusinessArea,
	}, v.HeaderRequired())
	assert.Equal(t, []string{
		types.FieldGlAccount, types.FieldItemText, types.FieldHouseBank, types.FieldBankAccountID,
	}, v.ItemRequired())
}

func TestValidate_MissingFields(t *testing.T) {
	v := validation.New()
	item := validItem()
	item.GlAccount = "   "
	item.SourceRow = 7
	d := draftWith(validItem(), item)
	d.Headers[0].DocDate = ""
	d.Headers[0].Currency = ""

	res := v.Validate(d)

	require.False(t, res.IsValid)
	assert.Equal(t, 3, res.ErrorCount)
	assert.Equal(t, 2, res.HeaderErrorCount)
	assert.Equal(t, 1, res.ItemErrorCount)
	assert.Equal(t, []types.FieldRef{
		types.HeaderRef(0, types.FieldCurrency),
		types.HeaderRef(0, types.FieldDocDate),
		types.ItemRef(0, 1, types.FieldGlAccount),
	}, d.States.Errors())

	last := res.Errors[len(res.Errors)-1]
	assert.Equal(t, types.FieldGlAccount, last.Field)
	assert.Equal(t, "present", last.Rule)
	assert.Equal(t, 8, last.RowNumber)
	assert.Equal(t, "[ERROR] Header 1, Item 2 (row 8), Field 'GlAccount': GlAccount is required", last.Error())

	// Untouched data fields.
	assert.Equal(t, "   ", d.Headers[0].Items[1].GlAccount)
}

func TestValidate_AmountDisjunction(t *testing.T) {
	tests := []struct {
		name    string
		debit   string
		credit  string
		lc1     string
		wantErr bool
	}{
		{name: "zero debit only", debit: "0.00", wantErr: true},
		{name: "all empty", wantErr: true},
		{name: "unparseable", debit: "abc", credit: " ", wantErr: true},
		{name: "debit", debit: "100.00"},
		{name: "credit with separators", credit: "5,000,000"},
		{name: "lc1 negative", lc1: "-1"},
	}

	v := validation.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := validItem()
			item.AmountDebit, item.AmountCredit, item.AmountLc1 = tt.debit, tt.credit, tt.lc1
			d := draftWith(item)

			res := v.Validate(d)

			assert.Equal(t, !tt.wantErr, res.IsValid)
			want := types.StateNone
			if tt.wantErr {
				want = types.StateError
			}
			for _, f := range types.AmountFields {
				assert.Equal(t, want, d.States.Get(types.ItemRef(0, 0, f)), f)
			}
		})
	}
}

func TestValidate_Idempotent(t *testing.T) {
	v := validation.New()
	item := validItem()
	item.HouseBank = ""
	d := draftWith(item)

	first := v.Validate(d)
	states := make(types.StateTable, len(d.States))
	for k, s := range d.States {
		states[k] = s
	}
	second := v.Validate(d)

	assert.Equal(t, first.IsValid, second.IsValid)
	assert.Equal(t, first.ErrorCount, second.ErrorCount)
	assert.Equal(t, states, d.States)
}

func TestValidate_CorrectionClearsState(t *testing.T) {
	v := validation.New()
	item := validItem()
	item.ItemText = ""
	d := draftWith(item)

	require.False(t, v.Validate(d).IsValid)

	d.Headers[0].Items[0].ItemText = "fixed"
	res := v.Validate(d)

	assert.True(t, res.IsValid)
	assert.False(t, d.States.HasErrors())
}

func TestValidate_EmptyDraft(t *testing.T) {
	res := validation.New().Validate(types.NewBatchDraft())
	assert.True(t, res.IsValid)
	assert.Zero(t, res.FieldsValidated)
}

func TestRecheck(t *testing.T) {
	v := validation.New()
	d := draftWith(validItem())
	d.Headers[0].DocText = ""
	d.Headers[0].Currency = ""

	// Only the edited field gets a state.
	state, err := v.Recheck(d, types.HeaderRef(0, types.FieldDocText))
	require.NoError(t, err)
	assert.Equal(t, types.StateError, state)
	_, checked := d.States[types.HeaderRef(0, types.FieldCurrency)]
	assert.False(t, checked)

	d.Headers[0].DocText = "now present"
	state, err = v.Recheck(d, types.HeaderRef(0, types.FieldDocText))
	require.NoError(t, err)
	assert.Equal(t, types.StateNone, state)

	// Amounts move together.
	it := &d.Headers[0].Items[0]
	it.AmountDebit = ""
	state, err = v.Recheck(d, types.ItemRef(0, 0, types.FieldAmountDebit))
	require.NoError(t, err)
	assert.Equal(t, types.StateError, state)
	assert.Equal(t, types.StateError, d.States.Get(types.ItemRef(0, 0, types.FieldAmountLc1)))

	it.AmountLc1 = "12"
	state, err = v.Recheck(d, types.ItemRef(0, 0, types.FieldAmountLc1))
	require.NoError(t, err)
	assert.Equal(t, types.StateNone, state)
	assert.Equal(t, types.StateNone, d.States.Get(types.ItemRef(0, 0, types.FieldAmountDebit)))

	// Fields without a rule are ignored.
	state, err = v.Recheck(d, types.ItemRef(0, 0, types.FieldTaxCode))
	require.NoError(t, err)
	assert.Equal(t, types.StateNone, state)
	_, checked = d.States[types.ItemRef(0, 0, types.FieldTaxCode)]
	assert.False(t, checked)

	_, err = v.Recheck(d, types.ItemRef(0, 5, types.FieldGlAccount))
	assert.Error(t, err)
	_, err = v.Recheck(d, types.HeaderRef(3, types.FieldDocText))
	assert.Error(t, err)
}
