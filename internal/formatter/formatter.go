// package formatter renders mapping reports and sync summaries as CSV, Markdown, plain text or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/repositories"
	"github.com/desertthunder/albumsync/internal/shared"
)

// Formats lists the accepted report formats.
var Formats = []string{"txt", "csv", "markdown", "json"}

// ReportToCSV converts an AlbumReport to CSV with columns: Tier, Track ID, Reference, Name, Confidence, Direct Link
func ReportToCSV(report *repositories.AlbumReport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Tier", "Track ID", "Reference", "Name", "Confidence", "Direct Link"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, t := range report.Tracks {
		link := ""
		if t.DirectLink != nil {
			link = *t.DirectLink
		}
		record := []string{
			string(models.SourcePrimary),
			t.TrackID,
			t.FileID,
			t.FilePath,
			strconv.FormatFloat(t.Confidence, 'f', 2, 64),
			link,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	for _, f := range report.Fallbacks {
		record := []string{
			string(models.SourceFallback),
			f.TrackID,
			f.ExternalReferenceID,
			fallbackName(f),
			"",
			"",
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

// ReportToMarkdown converts an AlbumReport to a Markdown document
func ReportToMarkdown(report *repositories.AlbumReport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# Album %s\n\n", report.AlbumID)

	if report.Album != nil {
		fmt.Fprintf(&buf, "**Bundle**: %s (`%s`)\n", report.Album.BundleTitle, report.Album.BundleID)
		fmt.Fprintf(&buf, "**Mapped**: %s\n", report.Album.CreatedAt.Format(time.RFC3339))
	} else {
		buf.WriteString("**Bundle**: none\n")
	}
	fmt.Fprintf(&buf, "**Linked**: %d/%d\n", report.Linked(), len(report.Tracks))
	fmt.Fprintf(&buf, "**Fallbacks**: %d\n", len(report.Fallbacks))
	if report.LastRun != nil {
		fmt.Fprintf(&buf, "**Last run**: %s, %s\n", report.LastRun.Status, report.LastRun.Message)
	}
	buf.WriteString("\n")

	if len(report.Tracks) > 0 {
		buf.WriteString("## Primary\n\n")
		buf.WriteString("| Track | File | Confidence | Linked |\n")
		buf.WriteString("|---|---|---|---|\n")
		for _, t := range report.Tracks {
			fmt.Fprintf(&buf, "| %s | %s | %.2f | %s |\n", t.TrackID, escapePipes(t.FilePath), t.Confidence, yesNo(t.HasDirectLink()))
		}
		buf.WriteString("\n")
	}

	if len(report.Fallbacks) > 0 {
		buf.WriteString("## Fallback\n\n")
		for i, f := range report.Fallbacks {
			fmt.Fprintf(&buf, "%d. %s → %s [%s]\n", i+1, f.TrackID, fallbackName(f), shared.FormatDuration(f.DurationSeconds))
		}
	}

	return buf.Bytes(), nil
}

// ReportToText converts an AlbumReport to plain text
func ReportToText(report *repositories.AlbumReport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Album: %s\n", report.AlbumID)
	if report.Album != nil {
		fmt.Fprintf(&buf, "Bundle: %s (%s)\n", report.Album.BundleTitle, report.Album.BundleID)
	} else {
		buf.WriteString("Bundle: none\n")
	}
	fmt.Fprintf(&buf, "Linked: %d/%d\n", report.Linked(), len(report.Tracks))
	if report.LastRun != nil {
		fmt.Fprintf(&buf, "Last run: %s\n", report.LastRun.Message)
	}
	buf.WriteString("\n")

	for _, t := range report.Tracks {
		mark := "…"
		if t.HasDirectLink() {
			mark = "✓"
		}
		fmt.Fprintf(&buf, "%s %s → %s (%.2f)\n", mark, t.TrackID, t.FileName, t.Confidence)
	}
	for _, f := range report.Fallbacks {
		fmt.Fprintf(&buf, "↪ %s → %s\n", f.TrackID, fallbackName(f))
	}

	return buf.Bytes(), nil
}

// RenderReport renders report in the named format.
func RenderReport(report *repositories.AlbumReport, format string) ([]byte, error) {
	switch format {
	case "", "txt", "text":
		return ReportToText(report)
	case "csv":
		return ReportToCSV(report)
	case "markdown", "md":
		return ReportToMarkdown(report)
	case "json":
		return shared.MarshalJSON(report, true)
	default:
		return nil, fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
	}
}

// WriteReport writes report into dir and returns the created files.
//
// csv creates {album}_tracks.csv and {album}_metadata.json, markdown creates {album}/README.md,
// txt creates {album}_mappings.txt and json creates {album}.json.
func WriteReport(report *repositories.AlbumReport, format, dir string) ([]string, error) {
	base := filepath.Join(dir, safeName(report.AlbumID))

	switch format {
	case "csv":
		data, err := ReportToCSV(report)
		if err != nil {
			return nil, fmt.Errorf("failed to generate CSV: %w", err)
		}
		tracksFile := base + "_tracks.csv"
		if err := os.WriteFile(tracksFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write CSV file: %w", err)
		}

		meta, err := shared.MarshalJSON(struct {
			AlbumID string               `json:"album_id"`
			Album   *models.AlbumMapping `json:"album,omitempty"`
			LastRun *models.SyncRun      `json:"last_run,omitempty"`
		}{report.AlbumID, report.Album, report.LastRun}, true)
		if err != nil {
			return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
		}
		metadataFile := base + "_metadata.json"
		if err := os.WriteFile(metadataFile, meta, 0644); err != nil {
			return nil, fmt.Errorf("failed to write metadata file: %w", err)
		}
		return []string{tracksFile, metadataFile}, nil

	case "markdown", "md":
		if err := os.MkdirAll(base, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		data, err := ReportToMarkdown(report)
		if err != nil {
			return nil, fmt.Errorf("failed to generate Markdown: %w", err)
		}
		mdFile := filepath.Join(base, "README.md")
		if err := os.WriteFile(mdFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write Markdown file: %w", err)
		}
		return []string{mdFile}, nil

	case "txt", "text":
		data, err := ReportToText(report)
		if err != nil {
			return nil, fmt.Errorf("failed to generate text: %w", err)
		}
		txtFile := base + "_mappings.txt"
		if err := os.WriteFile(txtFile, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write text file: %w", err)
		}
		return []string{txtFile}, nil

	case "", "json":
		data, err := shared.MarshalJSON(report, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		jsonFile := base + ".json"
		if err := os.WriteFile(jsonFile, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{jsonFile}, nil

	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// SummaryToText renders a run summary as one line per track followed by the run message.
func SummaryToText(s *models.RunSummary) []byte {
	var buf bytes.Buffer

	for _, t := range s.Tracks {
		switch {
		case t.Status == models.TrackStatusSynced:
			fmt.Fprintf(&buf, "✓ %2d. %s (%s)\n", t.Position, t.Title, t.Source)
		case t.Error != "":
			fmt.Fprintf(&buf, "✗ %2d. %s: %s\n", t.Position, t.Title, t.Error)
		default:
			fmt.Fprintf(&buf, "✗ %2d. %s\n", t.Position, t.Title)
		}
	}

	fmt.Fprintf(&buf, "\n%s\n", s.Message)
	return buf.Bytes()
}

// RunsToText renders sync run history, newest first.
func RunsToText(runs []*models.SyncRun) []byte {
	var buf bytes.Buffer
	if len(runs) == 0 {
		buf.WriteString("No sync runs recorded\n")
		return buf.Bytes()
	}

	for _, r := range runs {
		took := "running"
		if r.CompletedAt != nil {
			took = r.CompletedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(&buf, "%s  %-10s %-8s %s (%s)\n", r.StartedAt.Format("2006-01-02 15:04"), r.AlbumID, r.Status, r.Message, took)
	}
	return buf.Bytes()
}

func fallbackName(f *models.FallbackMapping) string {
	if f.UploaderLabel == "" {
		return f.Title
	}
	return fmt.Sprintf("%s - %s", f.UploaderLabel, f.Title)
}

func escapePipes(s string) string {
	return strings.ReplaceAll(s, "|", "\\|")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// safeName keeps album IDs usable as file names.
func safeName(id string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, id)
}
