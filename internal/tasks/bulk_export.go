package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/albumsync/internal/formatter"
	"github.com/desertthunder/albumsync/internal/repositories"
	"github.com/desertthunder/albumsync/internal/shared"
)

// ReportSource loads the mapping report of one album. [repositories.MappingStore] implements it.
type ReportSource interface {
	AlbumReport(albumID string) (*repositories.AlbumReport, error)
}

// BulkExportOpts contains configuration for bulk report exports.
type BulkExportOpts struct {
	Format     string // Export format: json, csv, markdown, txt
	OutputDir  string // Base output directory (default: albumsync_export_{epoch})
	NumWorkers int    // Concurrent workers (default: 4, max 8)
}

// ReportExportResult is the outcome of exporting one album.
type ReportExportResult struct {
	AlbumID string   `json:"album_id"`
	Success bool     `json:"success"`
	Files   []string `json:"files,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export and is written to the manifest.
type BulkExportResult struct {
	TotalAlbums       int                  `json:"total_albums"`
	SuccessfulExports int                  `json:"successful_exports"`
	FailedExports     int                  `json:"failed_exports"`
	OutputDirectory   string               `json:"output_directory"`
	ManifestPath      string               `json:"-"`
	Results           []ReportExportResult `json:"results"`
}

// BulkExport writes the mapping reports of albumIDs into one directory using a worker pool and
// finishes with an export_manifest.json.
//
// Albums that fail to export are recorded in the result; only setup and manifest failures are
// returned as errors.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	src ReportSource,
	albumIDs []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: report source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("albumsync_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 8 {
		opts.NumWorkers = 8
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalAlbums:     len(albumIDs),
		OutputDirectory: opts.OutputDir,
		Results:         make([]ReportExportResult, 0, len(albumIDs)),
	}

	jobs := make(chan string, len(albumIDs))
	results := make(chan ReportExportResult, len(albumIDs))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, src, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, id := range albumIDs {
			select {
			case <-ctx.Done():
				return
			case jobs <- id:
				sendProgress(prog, exportingReportUpdate(i+1, len(albumIDs), id))
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(albumIDs), res.AlbumID, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(albumIDs), res.AlbumID, fmt.Errorf("%s", res.Error)))
		}
	}

	manifest, err := shared.MarshalJSON(result, true)
	if err != nil {
		return result, fmt.Errorf("export completed but failed to encode manifest: %w", err)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := os.WriteFile(manifestPath, manifest, 0644); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker exports albums from the jobs channel until it is closed.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	src ReportSource,
	jobs <-chan string,
	results chan<- ReportExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for id := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportSingleReport(src, id, opts)
	}
}

func exportSingleReport(src ReportSource, albumID string, opts BulkExportOpts) ReportExportResult {
	result := ReportExportResult{AlbumID: albumID}

	report, err := src.AlbumReport(albumID)
	if err != nil {
		result.Error = fmt.Sprintf("failed to load report: %v", err)
		return result
	}
	if report.Empty() {
		result.Error = fmt.Sprintf("%v: album %s", shared.ErrMappingNotFound, albumID)
		return result
	}

	files, err := formatter.WriteReport(report, opts.Format, opts.OutputDir)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Files = files
	result.Success = true
	return result
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
