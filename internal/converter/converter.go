// =============================================================================
// Journal Batch Upload - Ingestion Pipeline
// =============================================================================
//
// This module orchestrates the ingestion of a single spreadsheet into a
// BatchDraft. It does not validate and it does not touch the network.
//
// INGESTION PIPELINE:
//   1. Read the first sheet through the injected RowReader
//   2. Segment the row stream into header blocks
//   3. Map each block into HeaderDraft / ItemDraft records
//   4. Assemble a fresh BatchDraft (never merged with a previous one)
//
// Malformed structure is never an error here. A sheet without markers
// produces an empty header list; missing cells become blank fields that the
// validator reports later.
//
// =============================================================================

package converter

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ginjaninja78/journal-batch-upload/internal/segment"
	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Source describes the file the rows came from.
type Source struct {
	FileName string
	MimeType string
	Note     string
}

// Result represents the outcome of ingesting a single file.
type Result struct {
	// Draft is the newly built batch. It is never nil.
	Draft *types.BatchDraft

	// Diagnostics lists rows the segmenter tolerated or dropped.
	Diagnostics []segment.Diagnostic

	Stats ProcessingStats
}

// ProcessingStats contains statistics about one ingestion.
type ProcessingStats struct {
	RowsRead       int
	HeadersCreated int
	ItemsCreated   int
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter turns spreadsheet rows into batch drafts. It holds no per-file
// state and can be shared.
type Converter struct {
	logger zerolog.Logger
}

// New creates a Converter that logs through logger.
func New(logger zerolog.Logger) *Converter {
	return &Converter{logger: logger.With().Str("component", "converter").Logger()}
}

// =============================================================================
// MAIN PROCESSING FUNCTIONS
// =============================================================================

// Ingest reads content with reader and converts the rows.
//
// PARAMETERS:
//   - ctx: Passed to the reader.
//   - reader: The parsing capability for the file type.
//   - content: The raw file bytes.
//   - src: File metadata copied onto the draft.
//
// RETURNS:
//   - The ingestion result.
//   - An error if the reader fails. No draft is produced in that case.
func (c *Converter) Ingest(ctx context.Context, reader sheet.RowReader, content []byte, src Source) (*Result, error) {
	if reader == nil {
		return nil, fmt.Errorf("ingest %s: %w", src.FileName, sheet.ErrReaderUnavailable)
	}

	rows, err := reader.ReadRows(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", src.FileName, err)
	}

	return c.Convert(rows, src), nil
}

// Convert builds a BatchDraft from already parsed rows.
func (c *Converter) Convert(rows []sheet.Row, src Source) *Result {
	start := time.Now()
	log := c.logger.With().Str("file", src.FileName).Logger()

	// =========================================================================
	// STEP 1: SEGMENT
	// =========================================================================

	seg := segment.Segment(rows)
	for _, d := range seg.Diagnostics {
		log.Warn().
			Int("row", d.Row+1).
			Str("kind", string(d.Kind)).
			Msg(d.Message)
	}

	// =========================================================================
	// STEP 2: MAP
	// =========================================================================

	draft := types.NewBatchDraft()
	draft.FileName = src.FileName
	draft.FileMimeType = src.MimeType
	draft.Note = src.Note

	for _, raw := range seg.Headers {
		draft.Headers = append(draft.Headers, MapHeader(raw))
	}

	result := &Result{
		Draft:       draft,
		Diagnostics: seg.Diagnostics,
		Stats: ProcessingStats{
			RowsRead:       len(rows),
			HeadersCreated: len(draft.Headers),
			ItemsCreated:   draft.ItemCount(),
			ProcessingTime: time.Since(start),
		},
	}

	log.Debug().
		Int("rows", result.Stats.RowsRead).
		Int("headers", result.Stats.HeadersCreated).
		Int("items", result.Stats.ItemsCreated).
		Int("diagnostics", len(seg.Diagnostics)).
		Dur("elapsed", result.Stats.ProcessingTime).
		Msg("rows converted")

	return result
}
