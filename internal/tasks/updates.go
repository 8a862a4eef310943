package tasks

import (
	"fmt"

	"github.com/desertthunder/albumsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase   // Operation phase
	Step    int     // Current step number within phase
	Total   int     // Total steps in this phase
	Message string  // Human-readable message for display
	Counter Counter // Running per-track tally of the album sync
	Data    any     // Optional phase-specific data for advanced UIs
}

// Counter tallies tracks of a sync run as they finish.
type Counter struct {
	Synced int `json:"synced"`
	Failed int `json:"failed"`
	Total  int `json:"total"`
}

// Done is the number of tracks that reached a terminal state.
func (c Counter) Done() int { return c.Synced + c.Failed }

// Operation phase enumeration
type Phase int

const (
	LookupMappings Phase = iota
	SearchBundles
	SelectBundle
	SyncTrack
	Complete
	ExportReports
)

func (p Phase) String() string {
	switch p {
	case LookupMappings:
		return "lookup_mappings"
	case SearchBundles:
		return "search_bundles"
	case SelectBundle:
		return "select_bundle"
	case SyncTrack:
		return "sync_track"
	case Complete:
		return "complete"
	case ExportReports:
		return "export_reports"
	default:
		return ""
	}
}

func lookupUpdate(c Counter, cached int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupMappings,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("%d/%d tracks already synced", cached, c.Total),
		Counter: c,
	}
}

func searchBundlesUpdate(c Counter, query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SearchBundles,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Searching bundles for %q...", query),
		Counter: c,
	}
}

func selectBundleUpdate(c Counter, bundle *models.BundleSearchResult) ProgressUpdate {
	if bundle == nil {
		return ProgressUpdate{
			Phase:   SelectBundle,
			Step:    1,
			Total:   1,
			Message: "No usable bundle, falling back per track",
			Counter: c,
		}
	}
	return ProgressUpdate{
		Phase:   SelectBundle,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Selected bundle: %s (%d files)", bundle.Title, len(bundle.Files)),
		Counter: c,
		Data:    bundle,
	}
}

func trackStartedUpdate(step, total int, c Counter, tr models.CanonicalTrack) ProgressUpdate {
	return ProgressUpdate{
		Phase:   SyncTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s", step, total, tr.Title),
		Counter: c,
	}
}

func trackFinishedUpdate(step, total int, c Counter, res models.TrackResult) ProgressUpdate {
	mark := "✓"
	detail := string(res.Source)
	if res.Status != models.TrackStatusSynced {
		mark = "✗"
		detail = res.Error
	}
	return ProgressUpdate{
		Phase:   SyncTrack,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s (%s)", step, total, mark, res.Title, detail),
		Counter: c,
		Data:    res,
	}
}

func completeUpdate(c Counter, summary *models.RunSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    c.Total,
		Total:   c.Total,
		Message: summary.Message,
		Counter: c,
		Data:    summary,
	}
}

func exportingReportUpdate(step, total int, albumID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportReports,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, albumID),
	}
}

func exportCompletedUpdate(step, total int, albumID string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportReports,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, albumID, filesCount),
	}
}

func exportFailedUpdate(step, total int, albumID string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportReports,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, albumID, err),
	}
}
