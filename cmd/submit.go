// =============================================================================
// Journal Batch Upload - Submit Command
// =============================================================================
//
// The main command. It takes upload sheets through the whole pipeline and
// sends each one to the ERP as a batch.
//
// COMMAND USAGE:
//   batchupload submit [flags]
//
// FLAGS:
//   --file      : Submit a single file
//   --input-dir : Directory scanned when --file is not given (default from config)
//   --note      : Batch note (default from ingest.default_note)
//   --set       : Field correction, repeatable (H.Field=value, H.I.Field=value)
//   --dry-run   : Build the payload and write it to the output directory instead
//   --format    : Dry-run payload format, json (default) or xml
//
// PROCESSING PIPELINE (per file, one file at a time):
//   1. Read the sheet into a fresh session
//   2. Apply --set corrections
//   3. Validate; on failure write an error log and move on
//   4. Build the payload (the file is read again for the content)
//   5. Send it, or write it out on a dry run
//   6. Archive the input after a successful submission
//
// One file failing does not stop the others. A summary is printed at the end
// and the command fails if any file failed.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/journal-batch-upload/internal/converter"
	"github.com/ginjaninja78/journal-batch-upload/internal/metrics"
	"github.com/ginjaninja78/journal-batch-upload/internal/payload"
	"github.com/ginjaninja78/journal-batch-upload/internal/segment"
	"github.com/ginjaninja78/journal-batch-upload/internal/session"
	"github.com/ginjaninja78/journal-batch-upload/internal/transport"
	"github.com/ginjaninja78/journal-batch-upload/internal/validation"
	"github.com/ginjaninja78/journal-batch-upload/internal/xmlwriter"
	"github.com/ginjaninja78/journal-batch-upload/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	submitFile     string
	submitInputDir string
	submitNote     string
	submitSets     []string
	submitDryRun   bool
	submitFormat   string
)

// =============================================================================
// SUBMIT COMMAND DEFINITION
// =============================================================================

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate upload sheets and submit them as batches",
	Long: `The submit command reads one upload sheet (--file) or every .xlsx/.csv file
in the input directory, validates it and submits it to the ERP as one batch
per file.

On success:
  - The service's batch id is printed
  - The input file is moved to the input archive (output.archive_on_success)

On validation error:
  - An error log is written to the output directory
  - The input file stays where it is
  - Processing continues with the next file

With --dry-run nothing is sent: the payload is written to the output
directory as JSON or XML and the input is not archived.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSubmit(cmd)
	},
}

func init() {
	rootCmd.AddCommand(submitCmd)

	submitCmd.Flags().StringVar(&submitFile, "file", "", "Submit a single file")
	submitCmd.Flags().StringVar(&submitInputDir, "input-dir", "", "Directory to scan when --file is not given (default from configuration)")
	submitCmd.Flags().StringVar(&submitNote, "note", "", "Batch note (default from configuration)")
	submitCmd.Flags().StringArrayVar(&submitSets, "set", nil, "Field correction H.Field=value or H.I.Field=value (repeatable)")
	submitCmd.Flags().BoolVar(&submitDryRun, "dry-run", false, "Write the payload to the output directory instead of sending it")
	submitCmd.Flags().StringVar(&submitFormat, "format", "json", "Dry-run payload format: json or xml")
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// submitRun carries what every file of one run shares.
type submitRun struct {
	deps      session.Deps
	files     *utils.FileManager
	edits     []fieldEdit
	note      string
	dryRun    bool
	format    string
	submitter transport.Submitter
}

func runSubmit(cmd *cobra.Command) error {
	if submitFormat != "json" && submitFormat != "xml" {
		return fmt.Errorf("--format %q: expected json or xml", submitFormat)
	}
	edits, err := parseEdits(submitSets)
	if err != nil {
		return err
	}

	// =========================================================================
	// STEP 1: WIRE THE PIPELINE
	// =========================================================================

	reg, err := newRegistry(appConfig)
	if err != nil {
		return err
	}

	fm := utils.NewFileManager(appConfig.Ingest.InputDir, appConfig.Output.OutputDir, appConfig.Output.InputArchiveDir)
	fm.FileNameFormat = appConfig.Output.FileNameFormat
	fm.ArchiveOnSuccess = appConfig.Output.ArchiveEnabled()
	if submitInputDir != "" {
		fm.InputDir = submitInputDir
	}

	run := &submitRun{
		deps: session.Deps{
			Registry:  reg,
			Validator: validation.New(),
			Metrics:   appMetrics,
		},
		files:  fm,
		edits:  edits,
		note:   submitNote,
		dryRun: submitDryRun,
		format: submitFormat,
	}
	if run.note == "" {
		run.note = appConfig.Ingest.DefaultNote
	}

	if !run.dryRun {
		if err := appConfig.RequireService(); err != nil {
			return err
		}
		client, err := transport.NewClient(transport.Config{
			BaseURL:   appConfig.Service.BaseURL,
			EntitySet: appConfig.Service.EntitySet,
			Username:  appConfig.Service.Username,
			Password:  appConfig.Service.Password,
			SAPClient: appConfig.Service.SAPClient,
			Timeout:   appConfig.Service.Timeout,
		}, transport.WithLogger(appLogger.Zerolog()))
		if err != nil {
			return err
		}
		run.submitter = client
	}

	// =========================================================================
	// STEP 2: DISCOVER INPUT FILES
	// =========================================================================

	var inputs []string
	if submitFile != "" {
		inputs = []string{submitFile}
	} else {
		inputs, err = fm.DiscoverInputFiles(reg.Extensions())
		if err != nil {
			return err
		}
	}
	if len(inputs) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No upload files found in %s\n", fm.InputDir)
		return nil
	}
	appLogger.Info().Int("files", len(inputs)).Bool("dry_run", run.dryRun).Msg("starting run")

	// =========================================================================
	// STEP 3: PROCESS FILES SEQUENTIALLY
	// =========================================================================

	summary := utils.ProcessingSummary{StartTime: time.Now(), DryRun: run.dryRun}
	for _, path := range inputs {
		if err := cmd.Context().Err(); err != nil {
			summary.FailedFilesList = append(summary.FailedFilesList, utils.FailedFileInfo{
				InputFile:    path,
				ErrorMessage: err.Error(),
			})
			continue
		}

		info, failure := run.processFile(cmd.Context(), path)
		if failure != nil {
			summary.FailedFilesList = append(summary.FailedFilesList, *failure)
			continue
		}
		summary.ProcessedFiles = append(summary.ProcessedFiles, *info)
	}
	summary.EndTime = time.Now()

	// =========================================================================
	// STEP 4: SUMMARY
	// =========================================================================

	fmt.Fprintln(cmd.OutOrStdout())
	if err := utils.WriteSummary(cmd.OutOrStdout(), summary); err != nil {
		return err
	}
	appLogger.Info().
		Int("succeeded", len(summary.ProcessedFiles)).
		Int("failed", len(summary.FailedFilesList)).
		Dur("elapsed", summary.EndTime.Sub(summary.StartTime)).
		Msg("run finished")
	pushMetrics(cmd.Context())

	if n := len(summary.FailedFilesList); n > 0 {
		return fmt.Errorf("%d of %d file(s) failed", n, summary.TotalFiles())
	}
	return nil
}

// =============================================================================
// PER-FILE PROCESSING
// =============================================================================

// processFile runs one file through its own session.
func (r *submitRun) processFile(ctx context.Context, path string) (*utils.ProcessedFileInfo, *utils.FailedFileInfo) {
	start := time.Now()
	log := appLogger.Run(uuid.NewString(), path)

	deps := r.deps
	deps.Logger = log
	deps.Converter = converter.New(log)
	deps.Submitter = r.submitter
	sess := session.New(deps)

	fail := func(err error, result *validation.ValidationResult) *utils.FailedFileInfo {
		failure := &utils.FailedFileInfo{InputFile: path, ErrorMessage: failureMessage(err)}
		if errors.Is(err, session.ErrValidation) {
			failure.ErrorLog = r.writeErrorLog(log, path, result, sess.Diagnostics())
		}
		return failure
	}

	res, err := sess.Ingest(ctx, path, r.note)
	if err != nil {
		return nil, fail(err, nil)
	}
	if err := applyEdits(sess, r.edits); err != nil {
		return nil, fail(err, nil)
	}

	info := &utils.ProcessedFileInfo{
		InputFile: path,
		Headers:   res.Stats.HeadersCreated,
		Items:     res.Stats.ItemsCreated,
	}

	if r.dryRun {
		batch, result, err := sess.Build()
		if err != nil {
			return nil, fail(err, result)
		}
		out, err := r.writePayload(path, batch)
		if err != nil {
			return nil, fail(err, nil)
		}
		r.deps.Metrics.ObserveSubmit(metrics.ResultDryRun, 0)
		log.Info().Str("output", out).Msg("dry run payload written")

		info.OutputFile = out
		info.ProcessTime = time.Since(start)
		return info, nil
	}

	receipt, err := sess.Submit(ctx)
	if err != nil {
		return nil, fail(err, sess.LastValidation())
	}
	info.BatchID = receipt.BatchID

	archived, err := r.files.ArchiveInputFile(path)
	if err != nil {
		// The batch is already accepted; the file just stays in place.
		log.Warn().Err(err).Msg("archiving failed")
		archived = path
	}
	info.ArchivePath = archived
	info.ProcessTime = time.Since(start)
	return info, nil
}

// writePayload renders the dry-run payload in the selected format.
func (r *submitRun) writePayload(path string, batch *payload.Batch) (string, error) {
	var (
		data []byte
		err  error
		ext  = "." + r.format
	)
	if r.format == "xml" {
		data, err = xmlwriter.Generate(batch)
	} else {
		data, err = batch.JSON()
	}
	if err != nil {
		return "", err
	}
	name := utils.GenerateOutputFileName(r.files.FileNameFormat, path, ext)
	return r.files.WriteOutputFile(name, data)
}

// writeErrorLog records validation errors and sheet warnings for path. A
// write failure is logged and yields "".
func (r *submitRun) writeErrorLog(log zerolog.Logger, path string, result *validation.ValidationResult, diags []segment.Diagnostic) string {
	name := utils.GenerateOutputFileName(r.files.FileNameFormat+"_errors", path, ".txt")
	logPath, err := utils.WriteErrorLog(r.files.OutputDir, name, filepath.Base(path), errorLogEntries(result, diags))
	if err != nil {
		log.Error().Err(err).Msg("failed to write error log")
		return ""
	}
	if logPath != "" {
		log.Info().Str("error_log", logPath).Msg("error log written")
	}
	return logPath
}

// failureMessage is the text shown for a failed file. Transport errors show
// the service's message or the generic one.
func failureMessage(err error) string {
	if errors.Is(err, transport.ErrSubmission) {
		return transport.MessageOf(err)
	}
	if errors.Is(err, os.ErrNotExist) {
		return "file not found"
	}
	return err.Error()
}
