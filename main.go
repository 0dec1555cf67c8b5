// =============================================================================
// Journal Batch Upload - Main Entry Point
// =============================================================================
//
// USAGE:
//   batchupload ingest FILE   - Preview and validate an upload sheet
//   batchupload submit        - Submit upload sheets as batches
//   batchupload template      - Write a blank upload workbook
//   batchupload version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/       : CLI command definitions (Cobra)
//   - internal/  : Ingestion, validation, payload and transport
//   - pkg/       : Logger and file utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/journal-batch-upload/cmd"
)

func main() {
	cmd.Execute()
}
