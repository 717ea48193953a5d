// package formatter provides functions to export audit reports to various formats (CSV, Markdown, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/offbeatlabs/stepsync/internal/lifecycle"
	"github.com/offbeatlabs/stepsync/internal/shared"
)

// ReportToCSV converts an AuditResult to CSV format with columns: Kind, OwnerID, Title, Outcome, PlaybackID, AssetID, Error
func ReportToCSV(result *lifecycle.AuditResult) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Kind", "OwnerID", "Title", "Outcome", "PlaybackID", "AssetID", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, entry := range result.Entries {
		record := []string{
			string(entry.Kind),
			entry.OwnerID,
			entry.Title,
			string(entry.Outcome),
			entry.Reference.PlaybackID,
			entry.Reference.AssetID,
			entry.Error,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportToMarkdown converts an AuditResult to a Markdown summary with a
// per-outcome tally and a table of every record that needs attention.
func ReportToMarkdown(result *lifecycle.AuditResult) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Media Audit Report\n\n")
	buf.WriteString(fmt.Sprintf("**Run**: %s\n", result.Started.Format(time.RFC3339)))
	buf.WriteString(fmt.Sprintf("**Records**: %d\n\n", result.Total))

	buf.WriteString("## Summary\n\n")
	for _, outcome := range []lifecycle.AuditOutcome{
		lifecycle.OutcomeLive,
		lifecycle.OutcomeEmpty,
		lifecycle.OutcomeDangling,
		lifecycle.OutcomeInconsistent,
		lifecycle.OutcomeHealed,
		lifecycle.OutcomeUnverified,
	} {
		buf.WriteString(fmt.Sprintf("- %s: %d\n", outcome, result.Count(outcome)))
	}
	buf.WriteString("\n")

	flagged := flaggedEntries(result)
	if len(flagged) == 0 {
		buf.WriteString("No records need attention.\n")
		return buf.Bytes(), nil
	}

	buf.WriteString("## Needs Attention\n\n")
	buf.WriteString("| Kind | Owner | Title | Outcome | Error |\n")
	buf.WriteString("|------|-------|-------|---------|-------|\n")
	for _, entry := range flagged {
		buf.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			entry.Kind, entry.OwnerID, entry.Title, entry.Outcome, entry.Error))
	}

	return buf.Bytes(), nil
}

// ReportToJSON converts an AuditResult to an indented JSON manifest.
func ReportToJSON(result *lifecycle.AuditResult) ([]byte, error) {
	data, err := shared.MarshalJSON(result, true)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize report: %w", err)
	}
	return data, nil
}

// WriteReport renders the result in the given format ("json", "csv", or
// "markdown") and writes it to w.
func WriteReport(w io.Writer, result *lifecycle.AuditResult, format string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case "csv":
		data, err = ReportToCSV(result)
	case "markdown", "md":
		data, err = ReportToMarkdown(result)
	case "json", "":
		data, err = ReportToJSON(result)
	default:
		return fmt.Errorf("%w: unknown report format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

// SaveReport writes the rendered report to a file, inferring the format from
// the extension when none is given.
func SaveReport(path string, result *lifecycle.AuditResult, format string) error {
	if format == "" {
		switch filepath.Ext(path) {
		case ".csv":
			format = "csv"
		case ".md":
			format = "markdown"
		default:
			format = "json"
		}
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer file.Close()

	return WriteReport(file, result, format)
}

// flaggedEntries returns the entries whose outcome needs operator attention.
func flaggedEntries(result *lifecycle.AuditResult) []lifecycle.AuditEntry {
	var flagged []lifecycle.AuditEntry
	for _, entry := range result.Entries {
		switch entry.Outcome {
		case lifecycle.OutcomeDangling, lifecycle.OutcomeInconsistent, lifecycle.OutcomeUnverified:
			flagged = append(flagged, entry)
		}
	}
	return flagged
}
