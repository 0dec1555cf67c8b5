// =============================================================================
// Journal Batch Upload - Editing Session
// =============================================================================
//
// A Session owns one BatchDraft from ingestion to submission.
//
// LIFECYCLE:
//   1. New        - empty draft
//   2. Ingest     - the draft is replaced wholesale by the file's contents
//   3. Set*       - optional field edits, each re-checked live
//   4. Validate   - full pass, rebuilds the state table
//   5. Submit     - validate, build payload, send; reset on success
//
// A failed ingestion leaves the previous draft untouched. A failed
// submission keeps the draft and its states so the caller can fix and retry.
//
// =============================================================================

package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/journal-batch-upload/internal/canon"
	"github.com/ginjaninja78/journal-batch-upload/internal/converter"
	"github.com/ginjaninja78/journal-batch-upload/internal/metrics"
	"github.com/ginjaninja78/journal-batch-upload/internal/payload"
	"github.com/ginjaninja78/journal-batch-upload/internal/segment"
	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
	"github.com/ginjaninja78/journal-batch-upload/internal/transport"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
	"github.com/ginjaninja78/journal-batch-upload/internal/validation"
	"github.com/ginjaninja78/journal-batch-upload/pkg/utils"
)

var (
	// ErrNoFile is returned by Submit and Build when nothing was ingested.
	ErrNoFile = errors.New("no file ingested")

	// ErrValidation is returned when the draft fails validation.
	ErrValidation = errors.New("validation failed")

	// ErrIndexOutOfRange is returned by edits addressing a missing record.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrNoSubmitter is returned by Submit when the session was built
	// without a transport.
	ErrNoSubmitter = errors.New("no submitter configured")
)

// Deps are the collaborators of a Session. Registry and Validator are
// required; the rest have usable zero values.
type Deps struct {
	Registry  sheet.Registry
	Converter *converter.Converter
	Validator *validation.Validator
	Submitter transport.Submitter
	Metrics   *metrics.Metrics
	Logger    zerolog.Logger
}

// Session is one editing session. Its methods are safe to call from
// several goroutines but run one at a time.
type Session struct {
	mu sync.Mutex

	registry  sheet.Registry
	converter *converter.Converter
	validator *validation.Validator
	submitter transport.Submitter
	metrics   *metrics.Metrics
	logger    zerolog.Logger

	draft       *types.BatchDraft
	filePath    string
	diagnostics []segment.Diagnostic
	lastResult  *validation.ValidationResult
}

// New creates a session with an empty draft.
func New(deps Deps) *Session {
	conv := deps.Converter
	if conv == nil {
		conv = converter.New(deps.Logger)
	}
	v := deps.Validator
	if v == nil {
		v = validation.New()
	}
	return &Session{
		registry:  deps.Registry,
		converter: conv,
		validator: v,
		submitter: deps.Submitter,
		metrics:   deps.Metrics,
		logger:    deps.Logger.With().Str("component", "session").Logger(),
		draft:     types.NewBatchDraft(),
	}
}

// =============================================================================
// INGESTION
// =============================================================================

// Ingest reads the file at path and replaces the draft with its contents.
//
// PARAMETERS:
//   - ctx: Passed to the spreadsheet reader.
//   - path: The file to read. Its extension selects the reader.
//   - note: The batch note.
//
// RETURNS:
//   - The converter result (draft, diagnostics, stats).
//   - An error if no reader is registered for the file type or the file
//     cannot be read or parsed. The current draft is left unchanged.
func (s *Session) Ingest(ctx context.Context, path, note string) (*converter.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.ingest(ctx, path, note)
	if err != nil {
		s.metrics.ObserveIngest(err, 0, 0)
		s.logger.Error().Err(err).Str("file", path).Msg("ingestion failed")
		return nil, err
	}
	s.metrics.ObserveIngest(nil, result.Stats.HeadersCreated, result.Stats.ItemsCreated)

	s.draft = result.Draft
	s.filePath = path
	s.diagnostics = result.Diagnostics
	s.lastResult = nil

	s.logger.Info().
		Str("file", path).
		Int("headers", result.Stats.HeadersCreated).
		Int("items", result.Stats.ItemsCreated).
		Int("diagnostics", len(result.Diagnostics)).
		Msg("file ingested")
	return result, nil
}

func (s *Session) ingest(ctx context.Context, path, note string) (*converter.Result, error) {
	reader, err := s.registry.For(path)
	if err != nil {
		return nil, err
	}
	content, err := utils.ReadFileContent(path)
	if err != nil {
		return nil, err
	}
	return s.converter.Ingest(ctx, reader, content, converter.Source{
		FileName: filepath.Base(path),
		MimeType: utils.DetectMimeType(path),
		Note:     note,
	})
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Draft returns the current draft. The pointer is replaced on ingestion and
// reset, so callers should not keep it across those calls.
func (s *Session) Draft() *types.BatchDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

// FilePath returns the ingested file, or "" when the draft is empty.
func (s *Session) FilePath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filePath
}

// Diagnostics returns the segmenter diagnostics of the last ingestion.
func (s *Session) Diagnostics() []segment.Diagnostic {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diagnostics
}

// LastValidation returns the result of the last full validation pass, or
// nil if none ran since the last ingestion.
func (s *Session) LastValidation() *validation.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult
}

// SetNote replaces the batch note.
func (s *Session) SetNote(note string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draft.Note = note
}

// =============================================================================
// FIELD EDITS
// =============================================================================

// SetHeaderField assigns one header field by wire name and re-checks it.
// Date fields go through the lenient date path; text that is not a date
// clears the field.
//
// RETURNS:
//   - The field's new validation state.
//   - ErrIndexOutOfRange or types.ErrUnknownField.
func (s *Session) SetHeaderField(header int, field, value string) (types.FieldState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := s.header(header)
	if err != nil {
		return types.StateNone, err
	}
	if types.IsDateField(field) {
		value = canon.Recanonicalize(value)
	}
	if err := h.Set(field, value); err != nil {
		return types.StateNone, err
	}
	return s.validator.Recheck(s.draft, types.HeaderRef(header, field))
}

// SetItemField assigns one item field by wire name and re-checks it.
// Editing an amount re-evaluates all three amount states.
func (s *Session) SetItemField(header, item int, field, value string) (types.FieldState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	it, err := s.item(header, item)
	if err != nil {
		return types.StateNone, err
	}
	if types.IsDateField(field) {
		value = canon.Recanonicalize(value)
	}
	if err := it.Set(field, value); err != nil {
		return types.StateNone, err
	}
	return s.validator.Recheck(s.draft, types.ItemRef(header, item, field))
}

// SetHeaderDate sets a header date field from a calendar value.
func (s *Session) SetHeaderDate(header int, field string, t time.Time) (types.FieldState, error) {
	if !types.IsDateField(field) {
		return types.StateNone, fmt.Errorf("header field %q is not a date: %w", field, types.ErrUnknownField)
	}
	return s.SetHeaderField(header, field, canon.FromTime(t))
}

// SetItemDate sets an item date field from a calendar value.
func (s *Session) SetItemDate(header, item int, field string, t time.Time) (types.FieldState, error) {
	if !types.IsDateField(field) {
		return types.StateNone, fmt.Errorf("item field %q is not a date: %w", field, types.ErrUnknownField)
	}
	return s.SetItemField(header, item, field, canon.FromTime(t))
}

func (s *Session) header(i int) (*types.HeaderDraft, error) {
	if i < 0 || i >= len(s.draft.Headers) {
		return nil, fmt.Errorf("header %d of %d: %w", i, len(s.draft.Headers), ErrIndexOutOfRange)
	}
	return &s.draft.Headers[i], nil
}

func (s *Session) item(header, i int) (*types.ItemDraft, error) {
	h, err := s.header(header)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(h.Items) {
		return nil, fmt.Errorf("item %d of %d in header %d: %w", i, len(h.Items), header, ErrIndexOutOfRange)
	}
	return &h.Items[i], nil
}

// =============================================================================
// VALIDATION AND SUBMISSION
// =============================================================================

// Validate runs a full validation pass over the draft.
func (s *Session) Validate() *validation.ValidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validate()
}

func (s *Session) validate() *validation.ValidationResult {
	result := s.validator.Validate(s.draft)
	s.lastResult = result
	s.metrics.ObserveValidation(result.IsValid, result.HeaderErrorCount, result.ItemErrorCount)

	for _, e := range result.Errors {
		s.logger.Debug().
			Int("header", e.HeaderIndex).
			Int("item", e.ItemIndex).
			Int("row", e.RowNumber).
			Str("field", e.Field).
			Msg(e.Message)
	}
	return result
}

// Build validates the draft and assembles the payload without sending it.
// The file is read again for the content.
//
// RETURNS:
//   - The payload and the validation result.
//   - ErrNoFile, ErrValidation (with the result still returned) or a read
//     error.
func (s *Session) Build() (*payload.Batch, *validation.ValidationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.build()
}

func (s *Session) build() (*payload.Batch, *validation.ValidationResult, error) {
	if s.filePath == "" {
		return nil, nil, ErrNoFile
	}

	result := s.validate()
	if !result.IsValid {
		return nil, result, fmt.Errorf("%d field error(s): %w", result.ErrorCount, ErrValidation)
	}

	content, err := utils.ReadFileBase64(s.filePath)
	if err != nil {
		return nil, result, err
	}
	batch, err := payload.Build(s.draft, content)
	if err != nil {
		return nil, result, err
	}
	return batch, result, nil
}

// Submit validates, builds and sends the draft.
//
// RETURNS:
//   - The receipt from the service. The draft is reset.
//   - ErrNoFile or ErrValidation before anything is sent, or the transport
//     error. The draft is kept in every error case.
func (s *Session) Submit(ctx context.Context) (*transport.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submitter == nil {
		return nil, ErrNoSubmitter
	}

	batch, _, err := s.build()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	receipt, err := s.submitter.Submit(ctx, batch)
	elapsed := time.Since(start)
	if err != nil {
		s.metrics.ObserveSubmit(metrics.ResultFailure, elapsed)
		s.logger.Error().
			Err(err).
			Str("file", s.filePath).
			Str("message", transport.MessageOf(err)).
			Msg("submission failed")
		return nil, err
	}
	s.metrics.ObserveSubmit(metrics.ResultSuccess, elapsed)

	s.logger.Info().
		Str("file", s.filePath).
		Str("batch_id", receipt.BatchID).
		Int("headers", len(batch.Headers)).
		Int("items", batch.ItemCount()).
		Dur("elapsed", elapsed).
		Msg("batch submitted")

	s.reset()
	return receipt, nil
}

// Reset discards the draft.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *Session) reset() {
	s.draft = types.NewBatchDraft()
	s.filePath = ""
	s.diagnostics = nil
	s.lastResult = nil
}
