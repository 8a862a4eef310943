package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/repositories"
	"github.com/desertthunder/albumsync/internal/shared"
	tu "github.com/desertthunder/albumsync/internal/testing"
)

type mockReportSource struct {
	mu      sync.Mutex
	reports map[string]*repositories.AlbumReport
	err     error
	calls   int
}

func (m *mockReportSource) AlbumReport(albumID string) (*repositories.AlbumReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if r, ok := m.reports[albumID]; ok {
		return r, nil
	}
	return &repositories.AlbumReport{AlbumID: albumID}, nil
}

func reportFor(albumID string) *repositories.AlbumReport {
	return &repositories.AlbumReport{
		AlbumID: albumID,
		Album:   &models.AlbumMapping{ID: "am-" + albumID, AlbumID: albumID, BundleID: "b-" + albumID},
		Tracks: []*models.TrackMapping{
			{TrackID: albumID + "-t1", FileID: "f1", FileName: "01 - Intro.flac", Confidence: 0.9},
		},
	}
}

func TestBulkExport(t *testing.T) {
	t.Run("exports every album and writes a manifest", func(t *testing.T) {
		for _, format := range []string{"json", "csv", "markdown", "txt"} {
			t.Run(format, func(t *testing.T) {
				src := &mockReportSource{reports: map[string]*repositories.AlbumReport{}}
				ids := []string{"a1", "a2", "a3"}
				for _, id := range ids {
					src.reports[id] = reportFor(id)
				}

				dir := filepath.Join(t.TempDir(), "out")
				result, err := BulkExport(context.Background(), nil, src, ids, BulkExportOpts{Format: format, OutputDir: dir, NumWorkers: 2})
				if err != nil {
					t.Fatalf("BulkExport() error = %v", err)
				}

				if result.SuccessfulExports != 3 || result.FailedExports != 0 {
					t.Errorf("expected 3 successful exports, got %+v", result)
				}
				tu.AssertFileExists(t, result.ManifestPath)
				for _, res := range result.Results {
					for _, f := range res.Files {
						tu.AssertFileExists(t, f)
					}
				}
			})
		}
	})

	t.Run("partial failures are recorded", func(t *testing.T) {
		src := &mockReportSource{reports: map[string]*repositories.AlbumReport{"a1": reportFor("a1")}}
		dir := t.TempDir()

		result, err := BulkExport(context.Background(), nil, src, []string{"a1", "missing"}, BulkExportOpts{Format: "json", OutputDir: dir})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.SuccessfulExports != 1 || result.FailedExports != 1 {
			t.Fatalf("expected one success and one failure, got %+v", result)
		}

		var manifest BulkExportResult
		if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &manifest); err != nil {
			t.Fatalf("invalid manifest: %v", err)
		}
		if manifest.TotalAlbums != 2 || len(manifest.Results) != 2 {
			t.Errorf("unexpected manifest %+v", manifest)
		}
	})

	t.Run("source errors fail the album", func(t *testing.T) {
		src := &mockReportSource{err: errors.New("database is locked")}
		result, err := BulkExport(context.Background(), nil, src, []string{"a1"}, BulkExportOpts{OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.FailedExports != 1 {
			t.Errorf("expected failure, got %+v", result)
		}
	})

	t.Run("nil source", func(t *testing.T) {
		_, err := BulkExport(context.Background(), nil, nil, []string{"a1"}, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("invalid output directory", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := BulkExport(context.Background(), nil, &mockReportSource{}, []string{"a1"}, BulkExportOpts{OutputDir: filepath.Join(file, "sub")})
		if err == nil {
			t.Error("expected error for output directory under a file")
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		ids := make([]string, 20)
		for i := range ids {
			ids[i] = fmt.Sprintf("a%d", i)
		}
		result, err := BulkExport(ctx, nil, &mockReportSource{}, ids, BulkExportOpts{OutputDir: t.TempDir()})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if result == nil || result.SuccessfulExports != 0 {
			t.Errorf("expected no successful exports, got %+v", result)
		}
	})

	t.Run("progress updates", func(t *testing.T) {
		src := &mockReportSource{reports: map[string]*repositories.AlbumReport{"a1": reportFor("a1"), "a2": reportFor("a2")}}
		progress := make(chan ProgressUpdate, 16)

		if _, err := BulkExport(context.Background(), progress, src, []string{"a1", "a2"}, BulkExportOpts{OutputDir: t.TempDir()}); err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		close(progress)

		count := 0
		for u := range progress {
			if u.Phase != ExportReports {
				t.Errorf("unexpected phase %v", u.Phase)
			}
			count++
		}
		if count != 4 {
			t.Errorf("expected 4 updates, got %d", count)
		}
	})

	t.Run("with mapping store", func(t *testing.T) {
		store := repositories.NewMappingStore(tu.NewDB(t))
		_, bundle := tu.Album("alb-1", "Intro")
		if _, err := store.EnsureAlbumMapping("alb-1", bundle, false); err != nil {
			t.Fatalf("failed to seed mapping: %v", err)
		}

		result, err := BulkExport(context.Background(), nil, store, []string{"alb-1"}, BulkExportOpts{Format: "txt", OutputDir: t.TempDir()})
		if err != nil {
			t.Fatalf("BulkExport() error = %v", err)
		}
		if result.SuccessfulExports != 1 {
			t.Errorf("expected success, got %+v", result)
		}
	})
}
