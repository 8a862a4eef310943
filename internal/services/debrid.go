// Debrid [SourceProvider] implementation
//
// The provider exposes bundle search and a select endpoint that starts (or reports on) the
// preparation of individual files. The per-user API token is sent as a bearer token.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/albumsync/internal/match"
	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/poll"
	"github.com/desertthunder/albumsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultDebridBaseURL = "http://localhost:8090"
	DefaultPollInterval  = 1500 * time.Millisecond
	DefaultPollTimeout   = 30 * time.Second
	DefaultStallTimeout  = 10 * time.Second
)

type debridFile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

type debridBundle struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Size   string       `json:"size"`
	Source string       `json:"source"`
	Files  []debridFile `json:"files"`
}

type debridSearchResponse struct {
	Results []debridBundle `json:"results"`
}

type debridSelectRequest struct {
	FileIDs []string `json:"file_ids"`
}

// DebridService implements [SourceProvider] against the debrid HTTP API.
type DebridService struct {
	baseURL    string
	httpClient *http.Client
	clock      poll.Clock
	policy     poll.Policy
}

// NewDebridService creates a debrid client. Nil client uses [http.DefaultClient].
func NewDebridService(baseURL string, client *http.Client) *DebridService {
	if baseURL == "" {
		baseURL = defaultDebridBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &DebridService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		clock:      poll.System,
		policy:     poll.Policy{Interval: DefaultPollInterval, Deadline: DefaultPollTimeout, StallAfter: DefaultStallTimeout},
	}
}

func (d *DebridService) Name() string { return "Debrid" }

// SetClock replaces the clock driving [DebridService.Poll].
func (d *DebridService) SetClock(c poll.Clock) { d.clock = c }

// SetPollPolicy replaces the default poll interval, deadline and stall window. Zero fields keep
// their current values.
func (d *DebridService) SetPollPolicy(p poll.Policy) {
	if p.Interval > 0 {
		d.policy.Interval = p.Interval
	}
	if p.Deadline > 0 {
		d.policy.Deadline = p.Deadline
	}
	if p.StallAfter > 0 {
		d.policy.StallAfter = p.StallAfter
	}
}

// client returns an HTTP client that authenticates as credential.
func (d *DebridService) client(ctx context.Context, credential string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, d.httpClient)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}))
}

// Search queries bundles matching query.
//
// Calls GET /search?q={query}. Non-audio files are dropped and so are bundles left without files.
func (d *DebridService) Search(ctx context.Context, credential, query string) ([]models.BundleSearchResult, error) {
	if credential == "" {
		return nil, shared.ErrMissingCredentials
	}

	endpoint := fmt.Sprintf("%s/search?q=%s", d.baseURL, url.QueryEscape(query))

	var resp debridSearchResponse
	if err := doJSON(ctx, d.client(ctx, credential), d.Name(), http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	bundles := make([]models.BundleSearchResult, 0, len(resp.Results))
	for _, b := range resp.Results {
		result := models.BundleSearchResult{
			BundleID:    b.ID,
			Title:       b.Title,
			SizeLabel:   b.Size,
			SourceLabel: b.Source,
		}

		for _, f := range b.Files {
			if !match.IsAudioFile(f.Name) {
				continue
			}
			result.Files = append(result.Files, models.CandidateFile{
				ID:       f.ID,
				Filename: f.Name,
				Path:     f.Path,
				BundleID: b.ID,
			})
		}

		if len(result.Files) > 0 {
			bundles = append(bundles, result)
		}
	}

	return bundles, nil
}

// SelectAndResolve requests preparation of fileIDs inside bundleID.
//
// Calls POST /bundles/{id}/select. A ready response without streams, or a status outside the
// documented set, is reported as [shared.ErrProvider].
func (d *DebridService) SelectAndResolve(ctx context.Context, credential, bundleID string, fileIDs []string) (*models.Resolution, error) {
	if credential == "" {
		return nil, shared.ErrMissingCredentials
	}
	if bundleID == "" || len(fileIDs) == 0 {
		return nil, fmt.Errorf("%w: bundle id and at least one file id are required", shared.ErrInvalidArgument)
	}

	endpoint := fmt.Sprintf("%s/bundles/%s/select", d.baseURL, url.PathEscape(bundleID))

	var res models.Resolution
	body := debridSelectRequest{FileIDs: fileIDs}
	if err := doJSON(ctx, d.client(ctx, credential), d.Name(), http.MethodPost, endpoint, body, &res); err != nil {
		return nil, err
	}

	switch {
	case !res.Status.Known():
		return nil, fmt.Errorf("%w: unknown status %q for bundle %s", shared.ErrProvider, res.Status, bundleID)
	case res.Status == models.ResolveReady && len(res.Streams) == 0:
		return nil, fmt.Errorf("%w: bundle %s reported ready without streams", shared.ErrProvider, bundleID)
	}

	return &res, nil
}

// Poll re-selects fileID until the provider reports it ready.
//
// It fails once the status turns error, dead or not_found, once progress has stayed at zero for the
// stall window, or once maxWait (or the configured deadline when maxWait is zero) has elapsed.
func (d *DebridService) Poll(ctx context.Context, credential, bundleID, fileID string, maxWait time.Duration) (*models.Resolution, error) {
	policy := d.policy
	if maxWait > 0 {
		policy.Deadline = maxWait
	}

	probe := func(ctx context.Context) (*models.Resolution, error) {
		return d.SelectAndResolve(ctx, credential, bundleID, []string{fileID})
	}
	classify := func(r *models.Resolution) poll.Verdict {
		switch {
		case r.Status == models.ResolveReady:
			return poll.Done
		case r.Status.Failed():
			return poll.Failed
		default:
			return poll.Continue
		}
	}
	stalled := func(r *models.Resolution) bool { return r.Progress == 0 }

	res, err := poll.Until(ctx, d.clock, policy, probe, classify, stalled)
	if errors.Is(err, poll.ErrFailed) {
		return res, fmt.Errorf("%w: file %s of bundle %s ended %s: %w", shared.ErrProvider, fileID, bundleID, res.Status, err)
	}
	return res, err
}
