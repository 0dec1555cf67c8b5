package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ginjaninja78/journal-batch-upload/internal/canon"
	"github.com/ginjaninja78/journal-batch-upload/internal/segment"
	"github.com/ginjaninja78/journal-batch-upload/internal/types"
	"github.com/ginjaninja78/journal-batch-upload/internal/validation"
	"github.com/ginjaninja78/journal-batch-upload/pkg/utils"
)

// printDraft renders the header/item tree of a draft.
func printDraft(w io.Writer, draft *types.BatchDraft) {
	fmt.Fprintf(w, "Batch: %s (%s)\n", draft.FileName, draft.FileMimeType)
	if draft.Note != "" {
		fmt.Fprintf(w, "Note:  %s\n", draft.Note)
	}
	fmt.Fprintf(w, "Headers: %d, Items: %d\n", len(draft.Headers), draft.ItemCount())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for hi, h := range draft.Headers {
		fmt.Fprintf(tw, "\n[%d]\t%s %s\tdoc %s\tpost %s\tperiod %s\t%s\t%s\n",
			hi, h.CompanyCode, h.DocType,
			orDash(canon.Display(h.DocDate)), orDash(canon.Display(h.PostDate)),
			orDash(h.FiscalPeriod), orDash(h.Currency), h.DocText)
		for ii, it := range h.Items {
			fmt.Fprintf(tw, "  [%d.%d]\t%s\t%s\tD %s\tC %s\tLC1 %s\t%s\n",
				hi, ii, orDash(it.GlAccount), orDash(it.ItemText),
				orDash(it.AmountDebit), orDash(it.AmountCredit), orDash(it.AmountLc1),
				strings.TrimSpace(it.HouseBank+" "+it.BankAccountID))
		}
	}
	tw.Flush()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func printDiagnostics(w io.Writer, diags []segment.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSheet warnings (%d):\n", len(diags))
	for _, d := range diags {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

// printValidation reports the outcome of a validation run. On failure it
// also lists the fields v requires.
func printValidation(w io.Writer, result *validation.ValidationResult, v *validation.Validator) {
	if result.IsValid {
		fmt.Fprintf(w, "\nValidation passed (%d headers, %d items, %d fields)\n",
			result.HeadersValidated, result.ItemsValidated, result.FieldsValidated)
		return
	}
	fmt.Fprintf(w, "\nValidation failed: %d error(s)\n", result.ErrorCount)
	for _, e := range result.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	fmt.Fprintf(w, "\nRequired header fields: %s\n", strings.Join(v.HeaderRequired(), ", "))
	fmt.Fprintf(w, "Required item fields:   %s\n", strings.Join(v.ItemRequired(), ", "))
}

// errorLogEntries collects validation errors and sheet warnings for an
// error log file.
func errorLogEntries(result *validation.ValidationResult, diags []segment.Diagnostic) []utils.ErrorLogEntry {
	var entries []utils.ErrorLogEntry
	if result != nil {
		for _, e := range result.Errors {
			entries = append(entries, utils.ErrorLogEntry{
				Kind:      "validation",
				Message:   e.Error(),
				RowNumber: e.RowNumber,
				Field:     e.Field,
				Value:     e.Value,
			})
		}
	}
	for _, d := range diags {
		entries = append(entries, utils.ErrorLogEntry{
			Kind:      "sheet",
			Message:   d.Message,
			RowNumber: d.Row + 1,
		})
	}
	return entries
}
