// package formatter exports a board to CSV, Markdown, plain text and JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/bowlstone/internal/access"
	"github.com/desertthunder/bowlstone/internal/models"
	"github.com/desertthunder/bowlstone/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "text"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// ParseFormat accepts a format name or a common file extension.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "text", "txt", "":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// Extension returns the file extension for f, without the dot.
func (f Format) Extension() string {
	switch f {
	case FormatMarkdown:
		return "md"
	case FormatText:
		return "txt"
	default:
		return string(f)
	}
}

// Export is a board captured for output.
type Export struct {
	Board      models.Board `json:"board"`
	Tier       access.Tier  `json:"tier"`
	ExportedAt time.Time    `json:"exported_at"`
}

// NewExport captures b under tier at the current time.
func NewExport(b models.Board, tier access.Tier) *Export {
	return &Export{Board: b.Clone(), Tier: tier, ExportedAt: time.Now().UTC()}
}

// Render dispatches to the exporter for f.
func Render(export *Export, f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, f)
	}
}

// ExportToCSV writes one row per task with columns: Position, ID, Text, Place.
//
// The bowl task, if any, comes first with position 0.
func ExportToCSV(export *Export) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Position", "ID", "Text", "Place"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	if bowl := export.Board.Bowl; bowl != nil {
		if err := writer.Write([]string{"0", bowl.ID, bowl.Text, "bowl"}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	for i, task := range export.Board.Stones {
		if err := writer.Write([]string{strconv.Itoa(i + 1), task.ID, task.Text, "stone"}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown writes the bowl as a heading section and the stones as a task list.
func ExportToMarkdown(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Bowl and Stone\n\n")
	fmt.Fprintf(&buf, "**Exported**: %s\n", export.ExportedAt.Format(time.RFC3339))
	fmt.Fprintf(&buf, "**Tier**: %s\n\n", export.Tier)

	buf.WriteString("## In the bowl\n\n")
	if bowl := export.Board.Bowl; bowl != nil {
		fmt.Fprintf(&buf, "> %s\n\n", bowl.Text)
	} else {
		buf.WriteString("_Empty._\n\n")
	}

	fmt.Fprintf(&buf, "## Stones (%d)\n\n", len(export.Board.Stones))
	for _, task := range export.Board.Stones {
		fmt.Fprintf(&buf, "- [ ] %s\n", task.Text)
	}

	return buf.Bytes(), nil
}

// ExportToText writes a plain numbered list.
func ExportToText(export *Export) ([]byte, error) {
	var buf bytes.Buffer

	if bowl := export.Board.Bowl; bowl != nil {
		fmt.Fprintf(&buf, "Bowl: %s\n", bowl.Text)
	} else {
		buf.WriteString("Bowl: (empty)\n")
	}
	fmt.Fprintf(&buf, "Stones: %d\n\n", len(export.Board.Stones))

	for i, task := range export.Board.Stones {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, task.Text)
	}

	return buf.Bytes(), nil
}

// ExportToJSON writes the export as indented JSON.
func ExportToJSON(export *Export) ([]byte, error) {
	out := *export
	if out.Board.Stones == nil {
		out.Board.Stones = []models.Task{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteExport renders export as f and writes it to path, creating parent directories.
//
// An empty path becomes bowl-<date>.<ext> in the working directory.
func WriteExport(export *Export, f Format, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("bowl-%s.%s", export.ExportedAt.Format("2006-01-02"), f.Extension())
	}

	data, err := Render(export, f)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write export file: %w", err)
	}

	return path, nil
}
