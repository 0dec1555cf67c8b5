// =============================================================================
// Journal Batch Upload - File Manager Utility
// =============================================================================
//
// File helpers used around an upload run:
//   - Reading the selected file (raw bytes and base64 for transport)
//   - MIME type detection
//   - Input discovery and archival
//   - Output and error log naming
//   - Error log and run summary generation
//
// ARCHIVAL STRATEGY:
//   - Input files are moved to the input archive after a successful submission
//   - Files that failed stay where they are so they can be fixed and resubmitted
//   - Dry-run payloads and error logs are written to the output directory
//
// =============================================================================

package utils

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// FILE MANAGER
// =============================================================================

// FileManager handles file operations for an upload run.
type FileManager struct {
	// InputDir is scanned when no single file is given.
	InputDir string

	// OutputDir receives dry-run payloads, error logs and summaries.
	OutputDir string

	// InputArchiveDir receives input files after a successful submission.
	InputArchiveDir string

	// FileNameFormat names generated files. See GenerateOutputFileName.
	FileNameFormat string

	// UseTimestampSubdirs creates date-based subdirectories in the archive.
	// Example: input_archive/2024/01/15/batch.xlsx
	UseTimestampSubdirs bool

	// ArchiveOnSuccess determines whether inputs are moved after submission.
	ArchiveOnSuccess bool
}

// NewFileManager creates a FileManager with the specified directories.
func NewFileManager(inputDir, outputDir, inputArchiveDir string) *FileManager {
	return &FileManager{
		InputDir:         inputDir,
		OutputDir:        outputDir,
		InputArchiveDir:  inputArchiveDir,
		FileNameFormat:   "{timestamp}_{uuid}",
		ArchiveOnSuccess: true,
	}
}

// EnsureOutputDir creates the output directory if it doesn't exist.
func (fm *FileManager) EnsureOutputDir() error {
	if err := os.MkdirAll(fm.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", fm.OutputDir, err)
	}
	return nil
}

// =============================================================================
// FILE READING
// =============================================================================

// ReadFileContent reads the whole file.
func ReadFileContent(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// ReadFileBase64 reads the file from disk and returns it base64 encoded.
func ReadFileBase64(path string) (string, error) {
	data, err := ReadFileContent(path)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// mimeTypes covers the upload formats; other extensions fall back to the
// system table.
var mimeTypes = map[string]string{
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xlsm": "application/vnd.ms-excel.sheet.macroEnabled.12",
	".xltx": "application/vnd.openxmlformats-officedocument.spreadsheetml.template",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
	".txt":  "text/plain",
}

// DetectMimeType returns the MIME type for a file name, or
// "application/octet-stream" when unknown.
func DetectMimeType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		// Drop parameters such as "; charset=utf-8".
		if i := strings.Index(t, ";"); i >= 0 {
			t = strings.TrimSpace(t[:i])
		}
		return t
	}
	return "application/octet-stream"
}

// =============================================================================
// FILE DISCOVERY
// =============================================================================

// DiscoverInputFiles lists the files in the input directory whose
// extension is one of exts (case-insensitive), sorted by name.
//
// PARAMETERS:
//   - exts: Extensions including the dot (".xlsx"). Empty matches everything.
//
// RETURNS:
//   - A slice of file paths.
//   - An error if the directory cannot be read.
func (fm *FileManager) DiscoverInputFiles(exts []string) ([]string, error) {
	entries, err := os.ReadDir(fm.InputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan input directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), "~$") {
			continue
		}
		if len(exts) > 0 && !hasExtension(entry.Name(), exts) {
			continue
		}
		files = append(files, filepath.Join(fm.InputDir, entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range exts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

// =============================================================================
// FILE ARCHIVAL
// =============================================================================

// ArchiveInputFile moves an input file to the archive directory.
//
// RETURNS:
//   - The path to the archived file (the original path when archiving is off).
//   - An error if archival fails.
func (fm *FileManager) ArchiveInputFile(filePath string) (string, error) {
	if !fm.ArchiveOnSuccess {
		return filePath, nil
	}

	archivePath := fm.getArchivePath(filePath)
	if err := os.MkdirAll(filepath.Dir(archivePath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create archive directory: %w", err)
	}

	if err := os.Rename(filePath, archivePath); err != nil {
		// Cross-device moves need a copy.
		if err := copyFile(filePath, archivePath); err != nil {
			return "", fmt.Errorf("failed to copy file to archive: %w", err)
		}
		if err := os.Remove(filePath); err != nil {
			return "", fmt.Errorf("failed to remove original file: %w", err)
		}
	}
	return archivePath, nil
}

func (fm *FileManager) getArchivePath(filePath string) string {
	fileName := filepath.Base(filePath)
	if fm.UseTimestampSubdirs {
		now := time.Now()
		return filepath.Join(
			fm.InputArchiveDir,
			fmt.Sprintf("%d", now.Year()),
			fmt.Sprintf("%02d", now.Month()),
			fmt.Sprintf("%02d", now.Day()),
			fileName,
		)
	}
	return filepath.Join(fm.InputArchiveDir, fileName)
}

// =============================================================================
// OUTPUT FILE NAMING
// =============================================================================

// GenerateOutputFileName generates a unique output file name.
//
// PARAMETERS:
//   - format: The format string for the file name.
//     Placeholders:
//     {uuid}      - A random UUID
//     {timestamp} - Current timestamp (YYYYMMDD_HHMMSS)
//     {name}      - Input file name without directory and extension
//   - inputName: The input file the output belongs to.
//   - ext: The extension to ensure, e.g. ".json".
//
// EXAMPLE:
//
//	format: "{name}_{timestamp}"
//	inputName: "input/january.xlsx"
//	output: "january_20240115_143022.json"
func GenerateOutputFileName(format, inputName, ext string) string {
	base := filepath.Base(inputName)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	result := strings.NewReplacer(
		"{uuid}", uuid.New().String(),
		"{timestamp}", time.Now().Format("20060102_150405"),
		"{name}", name,
	).Replace(format)

	if ext != "" && !strings.HasSuffix(strings.ToLower(result), strings.ToLower(ext)) {
		result += ext
	}
	return result
}

// =============================================================================
// ERROR LOG GENERATION
// =============================================================================

// ErrorLogEntry is one line of an error log.
type ErrorLogEntry struct {
	Kind      string
	Message   string
	RowNumber int
	Field     string
	Value     string
}

// WriteErrorLog writes entries for one input file into dir.
//
// RETURNS:
//   - The path to the error log, or "" when there were no entries.
//   - An error if writing fails.
func WriteErrorLog(dir, fileName, inputName string, entries []ErrorLogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	logPath := filepath.Join(dir, fileName)
	file, err := os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create error log: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	fmt.Fprintf(w, "Journal Batch Upload - Error Log\n"+
		"Generated: %s\n"+
		"File: %s\n"+
		"Total Errors: %d\n"+
		"================================================================================\n\n",
		time.Now().Format("2006-01-02 15:04:05"), inputName, len(entries))

	for i, entry := range entries {
		fmt.Fprintf(w, "Error #%d\n  Type:    %s\n  Message: %s\n", i+1, entry.Kind, entry.Message)
		if entry.RowNumber > 0 {
			fmt.Fprintf(w, "  Row:     %d\n", entry.RowNumber)
		}
		if entry.Field != "" {
			fmt.Fprintf(w, "  Field:   %s\n", entry.Field)
		}
		if entry.Value != "" {
			fmt.Fprintf(w, "  Value:   %s\n", entry.Value)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprint(w, "================================================================================\n"+
		"End of Error Log\n")

	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush error log: %w", err)
	}
	return logPath, nil
}

// =============================================================================
// PROCESSING SUMMARY
// =============================================================================

// ProcessingSummary describes one multi-file run.
type ProcessingSummary struct {
	StartTime       time.Time
	EndTime         time.Time
	DryRun          bool
	ProcessedFiles  []ProcessedFileInfo
	FailedFilesList []FailedFileInfo
}

// ProcessedFileInfo describes a file that was submitted (or built, in a dry run).
type ProcessedFileInfo struct {
	InputFile   string
	OutputFile  string
	ArchivePath string
	BatchID     string
	Headers     int
	Items       int
	ProcessTime time.Duration
}

// FailedFileInfo describes a file that could not be submitted.
type FailedFileInfo struct {
	InputFile    string
	ErrorLog     string
	ErrorMessage string
}

// TotalFiles is the number of files attempted.
func (s *ProcessingSummary) TotalFiles() int {
	return len(s.ProcessedFiles) + len(s.FailedFilesList)
}

// WriteSummary renders the summary as text.
func WriteSummary(w io.Writer, summary ProcessingSummary) error {
	bw := bufio.NewWriter(w)

	mode := "submit"
	if summary.DryRun {
		mode = "dry run"
	}
	headers, items := 0, 0
	for _, pf := range summary.ProcessedFiles {
		headers += pf.Headers
		items += pf.Items
	}

	fmt.Fprintf(bw, "Journal Batch Upload - Processing Summary (%s)\n"+
		"================================================================================\n"+
		"  Duration:    %s\n"+
		"  Total Files: %d\n"+
		"  Successful:  %d\n"+
		"  Failed:      %d\n"+
		"  Headers:     %d\n"+
		"  Items:       %d\n\n",
		mode,
		summary.EndTime.Sub(summary.StartTime).Round(time.Millisecond),
		summary.TotalFiles(),
		len(summary.ProcessedFiles),
		len(summary.FailedFilesList),
		headers,
		items)

	for _, pf := range summary.ProcessedFiles {
		fmt.Fprintf(bw, "  OK    %s (%d headers, %d items)\n", pf.InputFile, pf.Headers, pf.Items)
		if pf.BatchID != "" {
			fmt.Fprintf(bw, "        batch:   %s\n", pf.BatchID)
		}
		if pf.OutputFile != "" {
			fmt.Fprintf(bw, "        output:  %s\n", pf.OutputFile)
		}
		if pf.ArchivePath != "" && pf.ArchivePath != pf.InputFile {
			fmt.Fprintf(bw, "        archive: %s\n", pf.ArchivePath)
		}
	}
	for _, ff := range summary.FailedFilesList {
		fmt.Fprintf(bw, "  FAIL  %s: %s\n", ff.InputFile, ff.ErrorMessage)
		if ff.ErrorLog != "" {
			fmt.Fprintf(bw, "        errors:  %s\n", ff.ErrorLog)
		}
	}

	return bw.Flush()
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// copyFile copies a file from src to dst.
func copyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer destFile.Close()

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		return err
	}
	return destFile.Sync()
}

// WriteOutputFile writes data to name inside the output directory.
func (fm *FileManager) WriteOutputFile(name string, data []byte) (string, error) {
	if err := fm.EnsureOutputDir(); err != nil {
		return "", err
	}
	path := filepath.Join(fm.OutputDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
