package session_test

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/journal-batch-upload/internal/csvparser"
	"github.com/ginjaninja78/journal-batch-upload/internal/metrics"
	"github.com/ginjaninja78/journal-batch-upload/internal/payload"
	"github.com/ginjaninja78/journal-batch-upload/internal/session"
	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
	"github.com/ginjaninja78/journal-batch-upload/internal/transport"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
	"github.com/ginjaninja78/journal-batch-upload/internal/validation"
)

// uploadCSV is a 12-line upload: one header, one title row, two items.
// The second item has no house bank.
const uploadCSV = "Header\n" +
	"Company Code,Doc Type,Doc Date,Post Date,Period,Text,Currency,Ledger,Ref,Business Area,Auto Tax\n" +
	"1000,SA,15/01/2024,16/01/2024,01,January accruals,VND,,REF-001,BA01,X\n" +
	"\n" +
	"Line Items\n" +
	"Company Code,G/L Account,Text,Debit,Credit,LC1,Tax,Order,-,Value Date,House Bank,Account,Assignment,Partner\n" +
	"1000,400000,Office rent,\"5,000,000\",,,V0,ORD1,,20/01/2024,VCB,ACC01,ASG1,TP1\n" +
	"1000,400100,Utilities,,250.5,,,,,,,ACC02\n" +
	"\n" +
	",\n" +
	"\n" +
	"\n"

type fakeSubmitter struct {
	err     error
	batches []*payload.Batch
}

func (f *fakeSubmitter) Submit(_ context.Context, batch *payload.Batch) (*transport.Receipt, error) {
	f.batches = append(f.batches, batch)
	if f.err != nil {
		return nil, f.err
	}
	return &transport.Receipt{StatusCode: 201, BatchID: "4711"}, nil
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newSession(t *testing.T, sub transport.Submitter, m *metrics.Metrics) *session.Session {
	t.Helper()
	reader, err := csvparser.NewReader(csvparser.Settings{})
	require.NoError(t, err)
	reg := sheet.Registry{}
	csvparser.Register(reg, reader)

	return session.New(session.Deps{
		Registry:  reg,
		Validator: validation.New(),
		Submitter: sub,
		Metrics:   m,
		Logger:    zerolog.Nop(),
	})
}

func TestSession_EndToEnd(t *testing.T) {
	sub := &fakeSubmitter{}
	m := metrics.New()
	s := newSession(t, sub, m)
	path := writeFile(t, "january.csv", uploadCSV)

	res, err := s.Ingest(context.Background(), path, "Imported from Excel")
	require.NoError(t, err)
	// Trailing empty lines after the last record are not rows.
	assert.Equal(t, 10, res.Stats.RowsRead)

	draft := s.Draft()
	require.Len(t, draft.Headers, 1)
	require.Len(t, draft.Headers[0].Items, 2)
	assert.Equal(t, "january.csv", draft.FileName)
	assert.Equal(t, "text/csv", draft.FileMimeType)

	// The second item has no house bank.
	result := s.Validate()
	require.False(t, result.IsValid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, types.ItemRef(0, 1, types.FieldHouseBank), result.Errors[0].Ref())

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, session.ErrValidation)
	assert.Empty(t, sub.batches)
	assert.Same(t, draft, s.Draft(), "draft is kept after a validation failure")

	state, err := s.SetItemField(0, 1, types.FieldHouseBank, "VCB")
	require.NoError(t, err)
	assert.Equal(t, types.StateNone, state)
	assert.True(t, s.Validate().IsValid)

	receipt, err := s.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "4711", receipt.BatchID)

	require.Len(t, sub.batches, 1)
	batch := sub.batches[0]
	require.Len(t, batch.Headers, 1)
	require.Len(t, batch.Headers[0].Items, 2)
	assert.Equal(t, "5000000.00", batch.Headers[0].Items[0].AmountDebit)
	assert.Equal(t, "250.50", batch.Headers[0].Items[1].AmountCredit)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte(uploadCSV)), batch.FileContent)
	assert.Equal(t, "Imported from Excel", batch.Note)

	// Reset after success.
	assert.Empty(t, s.Draft().Headers)
	assert.Empty(t, s.FilePath())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.IngestTotal.WithLabelValues(metrics.ResultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SubmitTotal.WithLabelValues(metrics.ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ValidationTotal.WithLabelValues(metrics.ResultInvalid)))
}

func TestSession_TransportFailureKeepsDraft(t *testing.T) {
	sub := &fakeSubmitter{err: &transport.SubmitError{StatusCode: 400, Message: "Company code 1000 is locked"}}
	s := newSession(t, sub, nil)
	path := writeFile(t, "january.csv", uploadCSV)
	_, err := s.Ingest(context.Background(), path, "")
	require.NoError(t, err)
	_, err = s.SetItemField(0, 1, types.FieldHouseBank, "VCB")
	require.NoError(t, err)

	_, err = s.Submit(context.Background())
	require.ErrorIs(t, err, transport.ErrSubmission)
	assert.Equal(t, "Company code 1000 is locked", transport.MessageOf(err))

	assert.Len(t, s.Draft().Headers, 1)
	assert.Equal(t, "VCB", s.Draft().Headers[0].Items[1].HouseBank)
	assert.Equal(t, path, s.FilePath())

	// Retry without re-entering anything.
	sub.err = nil
	_, err = s.Submit(context.Background())
	require.NoError(t, err)
	assert.Len(t, sub.batches, 2)
}

func TestSession_FailedIngestKeepsDraft(t *testing.T) {
	m := metrics.New()
	s := newSession(t, &fakeSubmitter{}, m)
	path := writeFile(t, "january.csv", uploadCSV)
	_, err := s.Ingest(context.Background(), path, "")
	require.NoError(t, err)
	before := s.Draft()

	_, err = s.Ingest(context.Background(), writeFile(t, "january.xlsx", "not a workbook"), "")
	assert.ErrorIs(t, err, sheet.ErrReaderUnavailable)

	_, err = s.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "")
	assert.Error(t, err)

	assert.Same(t, before, s.Draft())
	assert.Equal(t, path, s.FilePath())
	assert.Equal(t, 2.0, testutil.ToFloat64(m.IngestTotal.WithLabelValues(metrics.ResultFailure)))
}

func TestSession_IngestReplacesDraft(t *testing.T) {
	s := newSession(t, &fakeSubmitter{}, nil)
	_, err := s.Ingest(context.Background(), writeFile(t, "a.csv", uploadCSV), "")
	require.NoError(t, err)
	s.Validate()
	require.True(t, s.Draft().States.HasErrors())

	second := "Header\n\n2000,SA\nHeader\n\n3000,SA\n"
	_, err = s.Ingest(context.Background(), writeFile(t, "b.csv", second), "")
	require.NoError(t, err)

	draft := s.Draft()
	require.Len(t, draft.Headers, 2)
	assert.Equal(t, "2000", draft.Headers[0].CompanyCode)
	assert.Equal(t, "3000", draft.Headers[1].CompanyCode)
	assert.Empty(t, draft.States)
	assert.Nil(t, s.LastValidation())
}

func TestSession_SubmitWithoutFile(t *testing.T) {
	s := newSession(t, &fakeSubmitter{}, nil)
	_, err := s.Submit(context.Background())
	assert.ErrorIs(t, err, session.ErrNoFile)

	_, _, err = s.Build()
	assert.ErrorIs(t, err, session.ErrNoFile)

	noTransport := session.New(session.Deps{Registry: sheet.Registry{}, Logger: zerolog.Nop()})
	_, err = noTransport.Submit(context.Background())
	assert.ErrorIs(t, err, session.ErrNoSubmitter)
}

func TestSession_Build(t *testing.T) {
	s := newSession(t, nil, nil)
	_, err := s.Ingest(context.Background(), writeFile(t, "a.csv", uploadCSV), "dry")
	require.NoError(t, err)

	batch, result, err := s.Build()
	assert.ErrorIs(t, err, session.ErrValidation)
	assert.Nil(t, batch)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.ErrorCount)

	_, err = s.SetItemField(0, 1, types.FieldHouseBank, "VCB")
	require.NoError(t, err)
	batch, result, err = s.Build()
	require.NoError(t, err)
	assert.True(t, result.IsValid)
	assert.Equal(t, 2, batch.ItemCount())

	// Build does not reset.
	assert.Len(t, s.Draft().Headers, 1)
}

func TestSession_FieldEdits(t *testing.T) {
	s := newSession(t, &fakeSubmitter{}, nil)
	_, err := s.Ingest(context.Background(), writeFile(t, "a.csv", uploadCSV), "")
	require.NoError(t, err)

	t.Run("required header field", func(t *testing.T) {
		state, err := s.SetHeaderField(0, types.FieldDocText, "  ")
		require.NoError(t, err)
		assert.Equal(t, types.StateError, state)

		state, err = s.SetHeaderField(0, types.FieldDocText, "Accruals")
		require.NoError(t, err)
		assert.Equal(t, types.StateNone, state)
	})

	t.Run("date text is canonicalized", func(t *testing.T) {
		state, err := s.SetHeaderField(0, types.FieldPostDate, "2024-01-31")
		require.NoError(t, err)
		assert.Equal(t, types.StateNone, state)
		assert.Equal(t, "/Date(1706659200000)/", s.Draft().Headers[0].PostDate)

		state, err = s.SetHeaderField(0, types.FieldPostDate, "end of month")
		require.NoError(t, err)
		assert.Equal(t, types.StateError, state)
		assert.Empty(t, s.Draft().Headers[0].PostDate)
	})

	t.Run("date from calendar value", func(t *testing.T) {
		loc := time.FixedZone("ICT", 7*3600)
		state, err := s.SetHeaderDate(0, types.FieldPostDate, time.Date(2024, 1, 16, 3, 0, 0, 0, loc))
		require.NoError(t, err)
		assert.Equal(t, types.StateNone, state)
		// 03:00 ICT is 20:00 UTC the previous day.
		assert.Equal(t, "/Date(1705276800000)/", s.Draft().Headers[0].PostDate)

		_, err = s.SetItemDate(0, 0, types.FieldValueDate, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		assert.Equal(t, "/Date(1705708800000)/", s.Draft().Headers[0].Items[0].ValueDate)

		_, err = s.SetHeaderDate(0, types.FieldDocText, time.Now())
		assert.ErrorIs(t, err, types.ErrUnknownField)
	})

	t.Run("amount edits move all three states", func(t *testing.T) {
		state, err := s.SetItemField(0, 1, types.FieldAmountCredit, "0")
		require.NoError(t, err)
		assert.Equal(t, types.StateError, state)
		states := s.Draft().States
		for _, f := range types.AmountFields {
			assert.Equal(t, types.StateError, states.Get(types.ItemRef(0, 1, f)), f)
		}

		state, err = s.SetItemField(0, 1, types.FieldAmountLc1, "12")
		require.NoError(t, err)
		assert.Equal(t, types.StateNone, state)
		assert.Equal(t, types.StateNone, s.Draft().States.Get(types.ItemRef(0, 1, types.FieldAmountCredit)))
	})

	t.Run("optional field has no state", func(t *testing.T) {
		state, err := s.SetItemField(0, 0, types.FieldTaxCode, "")
		require.NoError(t, err)
		assert.Equal(t, types.StateNone, state)
		_, tracked := s.Draft().States[types.ItemRef(0, 0, types.FieldTaxCode)]
		assert.False(t, tracked)
	})

	t.Run("bad addresses", func(t *testing.T) {
		_, err := s.SetHeaderField(3, types.FieldDocText, "x")
		assert.ErrorIs(t, err, session.ErrIndexOutOfRange)
		_, err = s.SetItemField(0, 7, types.FieldGlAccount, "x")
		assert.ErrorIs(t, err, session.ErrIndexOutOfRange)
		_, err = s.SetItemField(0, 0, "Status", "x")
		assert.ErrorIs(t, err, types.ErrUnknownField)
	})
}

func TestSession_ResetAndNote(t *testing.T) {
	s := newSession(t, &fakeSubmitter{}, nil)
	_, err := s.Ingest(context.Background(), writeFile(t, "a.csv", uploadCSV), "first")
	require.NoError(t, err)

	s.SetNote("second")
	assert.Equal(t, "second", s.Draft().Note)

	s.Reset()
	assert.Empty(t, s.Draft().Headers)
	assert.Empty(t, s.Draft().Note)
	assert.Empty(t, s.Diagnostics())
}

func TestSession_DiagnosticsAreKept(t *testing.T) {
	s := newSession(t, &fakeSubmitter{}, nil)
	content := "Header\n\n1000,SA\nLine Items\n1000,,missing account\n"
	_, err := s.Ingest(context.Background(), writeFile(t, "a.csv", content), "")
	require.NoError(t, err)

	require.NotEmpty(t, s.Diagnostics())
	assert.Empty(t, s.Draft().Headers[0].Items)
}
