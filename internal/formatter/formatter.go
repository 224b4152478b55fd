// package formatter renders the run journal in various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/weekcopy/internal/models"
	"github.com/desertthunder/weekcopy/internal/shared"
)

// Format names an output format of the history command.
type Format string

const (
	FormatText     Format = "text"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
)

// Formats lists the accepted format names.
var Formats = []Format{FormatText, FormatCSV, FormatMarkdown, FormatJSON}

// ParseFormat accepts a format name, case-insensitively. "md" is an alias for markdown.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", FormatText:
		return FormatText, nil
	case "md":
		return FormatMarkdown, nil
	case FormatCSV, FormatMarkdown, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, name)
	}
}

const timeLayout = "2006-01-02 15:04 MST"

// Render converts runs to the requested format.
func Render(runs []*models.CopyRun, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return RunsToCSV(runs)
	case FormatMarkdown:
		return RunsToMarkdown(runs)
	case FormatJSON:
		return shared.MarshalJSON(runs, true)
	case FormatText, "":
		return RunsToText(runs)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// RunsToCSV converts runs to CSV with columns: Sequence, Created, Trigger, Week, Name, Status, Tracks, Playlist, Error
func RunsToCSV(runs []*models.CopyRun) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Sequence", "Created", "Trigger", "Week", "Name", "Status", "Tracks", "Playlist", "Error"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, run := range runs {
		record := []string{
			strconv.Itoa(run.Sequence()),
			run.CreatedAt().UTC().Format(time.RFC3339),
			string(run.Trigger()),
			strconv.Itoa(run.Week()),
			run.TargetName(),
			string(run.Status()),
			strconv.Itoa(run.TrackCount()),
			run.DestPlaylistID(),
			run.ErrorMessage(),
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

// RunsToMarkdown converts runs to a Markdown table
func RunsToMarkdown(runs []*models.CopyRun) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Copy History\n\n")
	buf.WriteString(fmt.Sprintf("**Runs**: %d\n\n", len(runs)))

	if len(runs) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| # | Created | Trigger | Name | Status | Tracks |\n")
	buf.WriteString("|---|---------|---------|------|--------|--------|\n")
	for _, run := range runs {
		status := string(run.Status())
		if msg := run.ErrorMessage(); msg != "" {
			status = fmt.Sprintf("%s: %s", status, msg)
		}
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s | %d |\n",
			run.Sequence(),
			run.CreatedAt().UTC().Format(timeLayout),
			run.Trigger(),
			escapeCell(run.TargetName()),
			escapeCell(status),
			run.TrackCount(),
		))
	}

	return buf.Bytes(), nil
}

// RunsToText converts runs to plain text, one line per run
func RunsToText(runs []*models.CopyRun) ([]byte, error) {
	var buf bytes.Buffer

	if len(runs) == 0 {
		buf.WriteString("No copy runs recorded\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("Runs: %d\n\n", len(runs)))
	for _, run := range runs {
		buf.WriteString(fmt.Sprintf("#%d %s [%s] %s - %s",
			run.Sequence(),
			run.CreatedAt().UTC().Format(timeLayout),
			run.Trigger(),
			run.TargetName(),
			run.Status(),
		))
		switch {
		case run.ErrorMessage() != "":
			buf.WriteString(fmt.Sprintf(" (%s)", run.ErrorMessage()))
		case run.Status() == models.RunSucceeded:
			buf.WriteString(fmt.Sprintf(" (%d tracks)", run.TrackCount()))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// WriteExport renders runs and writes them to path.
func WriteExport(runs []*models.CopyRun, format Format, path string) error {
	data, err := Render(runs, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
