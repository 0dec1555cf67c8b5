// =============================================================================
// Journal Batch Upload - Template Command
// =============================================================================
//
// Writes a blank upload workbook whose layout matches what ingest expects.
//
// COMMAND USAGE:
//   batchupload template [--out journal_upload_template.xlsx]
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/journal-batch-upload/internal/xlsxparser"
)

var templateOut string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a blank upload workbook",
	Long: `The template command writes an .xlsx workbook with the Header and Line Items
blocks and their column titles. Fill in row 3 for the header and the rows
under the item titles for the line items.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Create(templateOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", templateOut, err)
		}
		if err := xlsxparser.WriteTemplate(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write %s: %w", templateOut, err)
		}

		appLogger.Debug().Str("out", templateOut).Msg("template written")
		fmt.Fprintf(cmd.OutOrStdout(), "Template written to %s\n", templateOut)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.Flags().StringVarP(&templateOut, "out", "o", "journal_upload_template.xlsx", "Output path")
}
