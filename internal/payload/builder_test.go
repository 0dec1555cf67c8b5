package payload_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/journal-batch-upload/internal/payload"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
)

const jan15 = "/Date(1705276800000)/"

func sampleDraft() *types.BatchDraft {
	d := types.NewBatchDraft()
	d.FileName = "upload.xlsx"
	d.FileMimeType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	d.Note = "Imported from Excel"
	d.Headers = []types.HeaderDraft{{
		CompanyCode: "1000",
		DocType:     "SA",
		DocDate:     jan15,
		PostDate:    "2024-01-15T18:30:00Z",
		LedgerGroup: "0L",
		Items: []types.ItemDraft{
			{GlAccount: "400000", AmountDebit: "5,000,000", ValueDate: "not a date"},
			{GlAccount: "400100", AmountCredit: "1,234.567", AmountLc1: "abc", ValueDate: jan15},
		},
	}}
	// A passed validation leaves None states behind.
	d.States[types.HeaderRef(0, types.FieldDocDate)] = types.StateNone
	return d
}

func TestBuild(t *testing.T) {
	b, err := payload.Build(sampleDraft(), "UEsDBA==")
	require.NoError(t, err)

	assert.Equal(t, "upload.xlsx", b.FileName)
	assert.Equal(t, "application/vnd.openxmlformats-officedoc", b.FileMimeType)
	assert.Len(t, b.FileMimeType, payload.MaxMimeTypeLength)
	assert.Equal(t, "UEsDBA==", b.FileContent)
	assert.Equal(t, "Imported from Excel", b.Note)

	require.Len(t, b.Headers, 1)
	h := b.Headers[0]
	require.NotNil(t, h.DocDate)
	assert.Equal(t, jan15, *h.DocDate)
	require.NotNil(t, h.PostDate)
	assert.Equal(t, jan15, *h.PostDate, "time of day is dropped")

	require.Len(t, h.Items, 2)
	assert.Equal(t, "5000000.00", h.Items[0].AmountDebit)
	assert.Equal(t, "0.00", h.Items[0].AmountCredit)
	assert.Equal(t, "0.00", h.Items[0].AmountLc1)
	assert.Nil(t, h.Items[0].ValueDate)
	assert.Equal(t, "1234.57", h.Items[1].AmountCredit)
	assert.Equal(t, "0.00", h.Items[1].AmountLc1)
	assert.Equal(t, jan15, *h.Items[1].ValueDate)
	assert.Equal(t, 2, b.ItemCount())
}

func TestBuild_DoesNotTouchDraft(t *testing.T) {
	d := sampleDraft()
	_, err := payload.Build(d, "")
	require.NoError(t, err)

	assert.Equal(t, "5,000,000", d.Headers[0].Items[0].AmountDebit)
	assert.Equal(t, "2024-01-15T18:30:00Z", d.Headers[0].PostDate)
}

func TestBuild_RefusesDraftWithErrors(t *testing.T) {
	d := sampleDraft()
	d.States[types.ItemRef(0, 1, types.FieldHouseBank)] = types.StateError

	_, err := payload.Build(d, "")
	assert.ErrorIs(t, err, payload.ErrInvalidDraft)

	_, err = payload.Build(nil, "")
	assert.ErrorIs(t, err, payload.ErrInvalidDraft)
}

func TestBuild_JSONHasNoStateKeys(t *testing.T) {
	b, err := payload.Build(sampleDraft(), "UEsDBA==")
	require.NoError(t, err)

	data, err := b.JSON()
	require.NoError(t, err)

	var tree any
	require.NoError(t, json.Unmarshal(data, &tree))

	var keys []string
	collectKeys(tree, &keys)
	assert.Contains(t, keys, "ToHeaders")
	assert.Contains(t, keys, "ToItems")
	assert.Contains(t, keys, "BankAccountId")
	for _, k := range keys {
		assert.False(t, strings.HasSuffix(k, "State"), "unexpected key %q", k)
	}
	assert.NotContains(t, keys, "SourceRow")

	assert.Contains(t, string(data), `"ValueDate":null`)
}

func TestTruncateMimeType(t *testing.T) {
	assert.Equal(t, payload.DefaultMimeType, payload.TruncateMimeType(""))
	assert.Equal(t, "text/csv", payload.TruncateMimeType("text/csv"))
	assert.Len(t, payload.TruncateMimeType(strings.Repeat("x", 80)), 40)
}

func collectKeys(node any, keys *[]string) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			*keys = append(*keys, k)
			collectKeys(child, keys)
		}
	case []any:
		for _, child := range v {
			collectKeys(child, keys)
		}
	}
}
