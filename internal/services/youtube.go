// YouTube Music [FallbackProvider] implementation
//
// Communicates with the FastAPI proxy server wrapping the ytmusicapi Python library.
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/albumsync/internal/match"
	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
)

const defaultYTBaseURL string = "http://localhost:8080"

// YouTubeArtist represents an artist in YouTube Music responses.
type YouTubeArtist struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// YouTubeTrack represents a song result in YouTube Music responses.
type YouTubeTrack struct {
	VideoID     string          `json:"videoId"`
	Title       string          `json:"title"`
	Artists     []YouTubeArtist `json:"artists"`
	Duration    string          `json:"duration"`
	DurationSec int             `json:"duration_seconds"`
}

// Seconds returns the track length, parsing the "m:ss" label when the proxy omits duration_seconds.
func (t YouTubeTrack) Seconds() int {
	if t.DurationSec > 0 {
		return t.DurationSec
	}

	total := 0
	for _, part := range strings.Split(t.Duration, ":") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0
		}
		total = total*60 + n
	}
	return total
}

// Uploader returns the first credited artist name.
func (t YouTubeTrack) Uploader() string {
	if len(t.Artists) > 0 {
		return t.Artists[0].Name
	}
	return ""
}

// YouTubeService implements [FallbackProvider] for YouTube Music via proxy.
type YouTubeService struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube Music service instance.
func NewYouTubeService(baseURL string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: http.DefaultClient,
	}
}

// Name returns the service name.
func (y *YouTubeService) Name() string {
	return "YouTube Music"
}

// Search returns the raw song results for query.
//
// Calls GET /api/search?q={query}&filter=songs on the proxy.
func (y *YouTubeService) Search(ctx context.Context, query string) ([]YouTubeTrack, error) {
	endpoint := fmt.Sprintf("%s/api/search?q=%s&filter=songs", y.baseURL, url.QueryEscape(query))

	var results []YouTubeTrack
	if err := doJSON(ctx, y.httpClient, y.Name(), http.MethodGet, endpoint, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// SearchReference returns the result that best matches query.
//
// Each result is scored as "<title> <artist>" against query; the first result wins ties. Results
// without a video id are ignored.
func (y *YouTubeService) SearchReference(ctx context.Context, query string) (*models.FallbackReference, error) {
	results, err := y.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	var (
		best      *YouTubeTrack
		bestScore = -1.0
	)
	for i := range results {
		r := &results[i]
		if r.VideoID == "" {
			continue
		}
		score := match.Score(query, strings.TrimSpace(r.Title+" "+r.Uploader()))
		if score > bestScore {
			best, bestScore = r, score
		}
	}

	if best == nil {
		return nil, fmt.Errorf("%w: no %s result for %q", shared.ErrNotFound, y.Name(), query)
	}

	return &models.FallbackReference{
		ExternalID:      best.VideoID,
		Title:           best.Title,
		DurationSeconds: best.Seconds(),
		UploaderLabel:   best.Uploader(),
	}, nil
}
