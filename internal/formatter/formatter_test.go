package formatter

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/repositories"
	"github.com/desertthunder/albumsync/internal/shared"
	th "github.com/desertthunder/albumsync/internal/testing"
)

func testReport() *repositories.AlbumReport {
	link := "https://cdn.test/f1"
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	completed := created.Add(42 * time.Second)

	return &repositories.AlbumReport{
		AlbumID: "album-1",
		Album: &models.AlbumMapping{
			ID:          "am-1",
			AlbumID:     "album-1",
			BundleID:    "b1",
			BundleTitle: "Artist - Album [FLAC]",
			CreatedAt:   created,
		},
		Tracks: []*models.TrackMapping{
			{TrackID: "t1", FileID: "f1", FilePath: "Album/01 - Intro.flac", FileName: "01 - Intro.flac", DirectLink: &link, Confidence: 1},
			{TrackID: "t2", FileID: "f2", FilePath: "Album/02 - Outro.flac", FileName: "02 - Outro.flac", Confidence: 0.9},
		},
		Fallbacks: []*models.FallbackMapping{
			{TrackID: "t3", AlbumID: "album-1", ExternalReferenceID: "yt-3", Title: "Bonus", DurationSeconds: 245, UploaderLabel: "Artist"},
		},
		LastRun: &models.SyncRun{
			ID: "run-1", AlbumID: "album-1", Status: models.RunPartial, Total: 3, SyncedPrimary: 1,
			SyncedFallback: 1, Failed: 1, Message: "2/3 synced, 1 not found", StartedAt: created, CompletedAt: &completed,
		},
	}
}

func TestRenderers(t *testing.T) {
	t.Run("ReportToCSV", func(t *testing.T) {
		data, err := ReportToCSV(testReport())
		if err != nil {
			t.Fatalf("ReportToCSV failed: %v", err)
		}

		output := string(data)
		lines := strings.Split(strings.TrimSpace(output), "\n")
		if len(lines) != 4 {
			t.Fatalf("expected header and 3 rows, got %d lines: %s", len(lines), output)
		}
		if lines[0] != "Tier,Track ID,Reference,Name,Confidence,Direct Link" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if !strings.Contains(lines[1], "primary,t1,f1,Album/01 - Intro.flac,1.00,https://cdn.test/f1") {
			t.Errorf("unexpected primary row: %s", lines[1])
		}
		if !strings.Contains(lines[3], "fallback,t3,yt-3,Artist - Bonus") {
			t.Errorf("unexpected fallback row: %s", lines[3])
		}
	})

	t.Run("ReportToMarkdown", func(t *testing.T) {
		data, err := ReportToMarkdown(testReport())
		if err != nil {
			t.Fatalf("ReportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Album album-1",
			"**Bundle**: Artist - Album [FLAC] (`b1`)",
			"**Linked**: 1/2",
			"| t1 | Album/01 - Intro.flac | 1.00 | yes |",
			"| t2 | Album/02 - Outro.flac | 0.90 | no |",
			"1. t3 → Artist - Bonus [4:05]",
			"**Last run**: partial, 2/3 synced, 1 not found",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("ReportToText without bundle", func(t *testing.T) {
		report := &repositories.AlbumReport{AlbumID: "album-2"}
		data, err := ReportToText(report)
		if err != nil {
			t.Fatalf("ReportToText failed: %v", err)
		}
		if !strings.Contains(string(data), "Bundle: none") {
			t.Errorf("expected missing bundle note, got %s", data)
		}
	})

	t.Run("RenderReport formats", func(t *testing.T) {
		for _, format := range []string{"txt", "csv", "markdown", "json"} {
			t.Run(format, func(t *testing.T) {
				data, err := RenderReport(testReport(), format)
				if err != nil {
					t.Fatalf("RenderReport(%s) failed: %v", format, err)
				}
				if len(data) == 0 {
					t.Error("expected output")
				}
			})
		}

		if _, err := RenderReport(testReport(), "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for unknown format, got %v", err)
		}
	})

	t.Run("RenderReport json round trips", func(t *testing.T) {
		data, err := RenderReport(testReport(), "json")
		if err != nil {
			t.Fatalf("RenderReport failed: %v", err)
		}

		var decoded repositories.AlbumReport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Album.BundleID != "b1" || len(decoded.Tracks) != 2 || len(decoded.Fallbacks) != 1 {
			t.Errorf("unexpected decoded report %+v", decoded)
		}
	})
}

func TestWriteReport(t *testing.T) {
	tc := []struct {
		format string
		files  []string
	}{
		{format: "csv", files: []string{"album-1_tracks.csv", "album-1_metadata.json"}},
		{format: "markdown", files: []string{filepath.Join("album-1", "README.md")}},
		{format: "txt", files: []string{"album-1_mappings.txt"}},
		{format: "json", files: []string{"album-1.json"}},
	}

	for _, tt := range tc {
		t.Run(tt.format, func(t *testing.T) {
			dir := t.TempDir()
			files, err := WriteReport(testReport(), tt.format, dir)
			if err != nil {
				t.Fatalf("WriteReport(%s) failed: %v", tt.format, err)
			}
			if len(files) != len(tt.files) {
				t.Fatalf("expected %d files, got %v", len(tt.files), files)
			}
			for i, name := range tt.files {
				want := filepath.Join(dir, name)
				if files[i] != want {
					t.Errorf("expected %s, got %s", want, files[i])
				}
				th.AssertFileExists(t, want)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		if _, err := WriteReport(testReport(), "xml", t.TempDir()); err == nil {
			t.Error("expected error for unknown format")
		}
	})

	t.Run("unsafe album id", func(t *testing.T) {
		report := testReport()
		report.AlbumID = "a/b"
		dir := t.TempDir()
		files, err := WriteReport(report, "txt", dir)
		if err != nil {
			t.Fatalf("WriteReport failed: %v", err)
		}
		if files[0] != filepath.Join(dir, "a_b_mappings.txt") {
			t.Errorf("expected sanitized name, got %s", files[0])
		}
	})

	t.Run("unwritable directory", func(t *testing.T) {
		if _, err := WriteReport(testReport(), "json", "/nonexistent/dir"); err == nil {
			t.Error("expected write error")
		}
	})
}

func TestSummaryToText(t *testing.T) {
	s := &models.RunSummary{
		Total: 3,
		Tracks: []models.TrackResult{
			{Position: 1, Title: "Intro", Status: models.TrackStatusSynced, Source: models.SourcePrimary},
			{Position: 2, Title: "Outro", Status: models.TrackStatusFailed, Error: "no match found"},
			{Position: 3, Title: "Bonus", Status: models.TrackStatusSynced, Source: models.SourceCache},
		},
		SyncedPrimary: 1,
		AlreadySynced: 1,
		Failed:        1,
	}
	s.Classify()

	output := string(SummaryToText(s))
	for _, want := range []string{"✓  1. Intro (primary)", "✗  2. Outro: no match found", "✓  3. Bonus (cache)", "2/3 synced, 1 not found"} {
		if !strings.Contains(output, want) {
			t.Errorf("summary missing %q, got:\n%s", want, output)
		}
	}
}

func TestRunsToText(t *testing.T) {
	if got := string(RunsToText(nil)); got != "No sync runs recorded\n" {
		t.Errorf("unexpected empty output %q", got)
	}

	report := testReport()
	output := string(RunsToText([]*models.SyncRun{report.LastRun}))
	if !strings.Contains(output, "2025-03-01 10:00") || !strings.Contains(output, "(42s)") {
		t.Errorf("unexpected runs output %q", output)
	}
}
