// =============================================================================
// Journal Batch Upload - Ingest Command
// =============================================================================
//
// Reads one upload sheet and prints what would be submitted. Nothing is sent.
//
// COMMAND USAGE:
//   batchupload ingest FILE [flags]
//
// FLAGS:
//   --validate : Run validation and fail if any field is in error
//   --format   : text (default) or json
//   --note     : Batch note (default from ingest.default_note)
//   --set      : Field correction, repeatable (H.Field=value, H.I.Field=value)
//
// =============================================================================

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/journal-batch-upload/internal/converter"
	"github.com/ginjaninja78/journal-batch-upload/internal/segment"
	"github.com/ginjaninja78/journal-batch-upload/internal/session"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
	"github.com/ginjaninja78/journal-batch-upload/internal/validation"
)

var (
	ingestValidate bool
	ingestFormat   string
	ingestNote     string
	ingestSets     []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest FILE",
	Short: "Preview the headers and items read from an upload sheet",
	Long: `The ingest command reads an upload sheet (.xlsx, .xlsm, .csv) and prints the
headers and line items it contains, together with warnings about rows that
were skipped.

With --validate every required field is checked and the command fails when
any field is in error. --set applies corrections before validation, the same
way submit does.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().BoolVar(&ingestValidate, "validate", false, "Validate the draft and fail on errors")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", "text", "Output format: text or json")
	ingestCmd.Flags().StringVar(&ingestNote, "note", "", "Batch note (default from configuration)")
	ingestCmd.Flags().StringArrayVar(&ingestSets, "set", nil, "Field correction H.Field=value or H.I.Field=value (repeatable)")
}

// ingestReport is the json output of the ingest command.
type ingestReport struct {
	Draft       *types.BatchDraft            `json:"Batch"`
	Diagnostics []segment.Diagnostic         `json:"Warnings,omitempty"`
	Validation  *validation.ValidationResult `json:"Validation,omitempty"`
}

func runIngest(cmd *cobra.Command, path string) error {
	if ingestFormat != "text" && ingestFormat != "json" {
		return fmt.Errorf("--format %q: expected text or json", ingestFormat)
	}
	edits, err := parseEdits(ingestSets)
	if err != nil {
		return err
	}

	reg, err := newRegistry(appConfig)
	if err != nil {
		return err
	}
	log := appLogger.Run(uuid.NewString(), path)
	validator := validation.New()
	sess := session.New(session.Deps{
		Registry:  reg,
		Converter: converter.New(log),
		Validator: validator,
		Metrics:   appMetrics,
		Logger:    log,
	})
	defer pushMetrics(cmd.Context())

	note := ingestNote
	if note == "" {
		note = appConfig.Ingest.DefaultNote
	}
	if _, err := sess.Ingest(cmd.Context(), path, note); err != nil {
		return err
	}
	if err := applyEdits(sess, edits); err != nil {
		return err
	}

	var result *validation.ValidationResult
	if ingestValidate {
		result = sess.Validate()
	}

	out := cmd.OutOrStdout()
	if ingestFormat == "json" {
		data, err := json.MarshalIndent(ingestReport{
			Draft:       sess.Draft(),
			Diagnostics: sess.Diagnostics(),
			Validation:  result,
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode draft: %w", err)
		}
		fmt.Fprintln(out, string(data))
	} else {
		printDraft(out, sess.Draft())
		printDiagnostics(out, sess.Diagnostics())
		if result != nil {
			printValidation(out, result, validator)
		}
	}

	if result != nil && !result.IsValid {
		return fmt.Errorf("%s: %d field error(s): %w", path, result.ErrorCount, session.ErrValidation)
	}
	return nil
}
