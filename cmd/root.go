// =============================================================================
// Journal Batch Upload - Root Command
// =============================================================================
//
// Defines the root command of the CLI. All other commands are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (batchupload)
//   ├── ingestCmd   (batchupload ingest FILE)
//   ├── submitCmd   (batchupload submit)
//   ├── templateCmd (batchupload template)
//   └── versionCmd  (batchupload version)
//
// CONFIGURATION:
//   Before any subcommand runs, the root command:
//   1. Loads the configuration (--config, environment overrides)
//   2. Sets up logging (--verbose forces debug)
//   3. Creates the metrics registry
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/journal-batch-upload/internal/config"
	"github.com/ginjaninja78/journal-batch-upload/internal/csvparser"
	"github.com/ginjaninja78/journal-batch-upload/internal/metrics"
	"github.com/ginjaninja78/journal-batch-upload/internal/sheet"
	"github.com/ginjaninja78/journal-batch-upload/internal/xlsxparser"
	"github.com/ginjaninja78/journal-batch-upload/pkg/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// verbose enables debug logging when set to true.
var verbose bool

// Set up by initApp before any subcommand runs.
var (
	appConfig  *config.MainConfig
	appLogger  *logger.Logger
	appMetrics *metrics.Metrics
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "batchupload",
	Short: "Journal Batch Upload - Turn journal entry spreadsheets into OData batches",
	Long: `Journal Batch Upload reads journal entry upload sheets (.xlsx or .csv),
groups them into headers and line items, validates every required field and
submits the result to the ERP as a single batch.

Key Features:
  - Forgiving sheet layout: marker rows, blank separators, title rows
  - Field-level validation with row numbers
  - Field corrections from the command line (--set)
  - Dry runs that write the payload as JSON or XML
  - Automatic file archival after a successful submission

Example Usage:
  batchupload template --out upload.xlsx       # Blank upload workbook
  batchupload ingest upload.xlsx --validate    # Preview and check a sheet
  batchupload submit --file upload.xlsx        # Submit one file
  batchupload submit --dry-run --format xml    # Build payloads for ./input`,

	SilenceUsage: true,

	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initApp()
	},

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute runs the root command. It is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		config.DefaultPath,
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// initApp loads the configuration and builds the logger and metrics.
func initApp() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logCfg := logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level}
	if verbose {
		logCfg.Level = "debug"
	}

	appConfig = cfg
	appLogger = logger.New(logCfg)
	appMetrics = metrics.New()

	appLogger.Debug().
		Str("config", cfgFile).
		Str("level", logCfg.Level).
		Msg("configuration loaded")
	return nil
}

// newRegistry registers the spreadsheet readers for every supported file
// type.
func newRegistry(cfg *config.MainConfig) (sheet.Registry, error) {
	csvReader, err := csvparser.NewReader(csvparser.Settings{
		Delimiter: cfg.Ingest.CSVDelimiter,
		Encoding:  cfg.Ingest.CSVEncoding,
	})
	if err != nil {
		return nil, fmt.Errorf("ingest.csv_encoding: %w", err)
	}

	reg := sheet.Registry{}
	xlsxparser.Register(reg, xlsxparser.NewReader())
	csvparser.Register(reg, csvReader)
	return reg, nil
}

// pushMetrics sends the run's metrics when a pushgateway is configured.
// A failed push is logged, not returned.
func pushMetrics(ctx context.Context) {
	if appConfig.Metrics.PushgatewayURL == "" {
		return
	}
	if err := appMetrics.Push(ctx, appConfig.Metrics.PushgatewayURL, appConfig.Metrics.Job); err != nil {
		appLogger.Warn().Err(err).Msg("metrics push failed")
		return
	}
	appLogger.Debug().Str("url", appConfig.Metrics.PushgatewayURL).Msg("metrics pushed")
}
