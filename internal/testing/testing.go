// package testing contains shared testing utilities
package testing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/poll"
	"github.com/desertthunder/albumsync/internal/shared"
)

// FakeClock is a [poll.Clock] whose After advances its own time and fires at once, so waits cost
// nothing and elapsed time is exact.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	Sleeps []time.Duration
}

func NewFakeClock() *FakeClock {
	return &FakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.Sleeps = append(c.Sleeps, d)
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the clock forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Slept returns a copy of every duration passed to After.
func (c *FakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.Sleeps...)
}

// MockSourceProvider is a test double for [services.SourceProvider].
//
// ResolveFunc scripts select-and-resolve; the default reports every file ready with one stream.
// Poll runs the real [poll.Until] loop over ResolveFunc with Clock and Policy.
type MockSourceProvider struct {
	mu sync.Mutex

	Bundles     []models.BundleSearchResult
	SearchErr   error
	ResolveFunc func(bundleID string, fileIDs []string, call int) (*models.Resolution, error)
	Clock       poll.Clock
	Policy      poll.Policy

	SearchCalls  int
	Queries      []string
	SelectCalls  int
	PollCalls    int
	SelectedFile []string
}

func NewMockSourceProvider(bundles ...models.BundleSearchResult) *MockSourceProvider {
	return &MockSourceProvider{
		Bundles: bundles,
		Clock:   NewFakeClock(),
		Policy:  poll.Policy{Interval: 1500 * time.Millisecond, Deadline: 30 * time.Second, StallAfter: 10 * time.Second},
	}
}

func (m *MockSourceProvider) Name() string { return "mock-source" }

func (m *MockSourceProvider) Search(ctx context.Context, credential, query string) ([]models.BundleSearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchCalls++
	m.Queries = append(m.Queries, query)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	return m.Bundles, nil
}

func (m *MockSourceProvider) SelectAndResolve(ctx context.Context, credential, bundleID string, fileIDs []string) (*models.Resolution, error) {
	m.mu.Lock()
	m.SelectCalls++
	call := m.SelectCalls
	m.SelectedFile = append(m.SelectedFile, fileIDs...)
	fn := m.ResolveFunc
	m.mu.Unlock()

	if fn == nil {
		return ReadyResolution(fileIDs[0]), nil
	}
	return fn(bundleID, fileIDs, call)
}

func (m *MockSourceProvider) Poll(ctx context.Context, credential, bundleID, fileID string, maxWait time.Duration) (*models.Resolution, error) {
	m.mu.Lock()
	m.PollCalls++
	policy := m.Policy
	m.mu.Unlock()

	if maxWait > 0 {
		policy.Deadline = maxWait
	}

	res, err := poll.Until(ctx, m.Clock, policy,
		func(ctx context.Context) (*models.Resolution, error) {
			return m.SelectAndResolve(ctx, credential, bundleID, []string{fileID})
		},
		func(r *models.Resolution) poll.Verdict {
			switch {
			case r.Status == models.ResolveReady:
				return poll.Done
			case r.Status.Failed():
				return poll.Failed
			default:
				return poll.Continue
			}
		},
		func(r *models.Resolution) bool { return r.Progress == 0 },
	)
	if errors.Is(err, poll.ErrFailed) {
		return res, fmt.Errorf("%w: %w", shared.ErrProvider, err)
	}
	return res, err
}

// Calls returns the search, select and poll call counts.
func (m *MockSourceProvider) Calls() (search, sel, polls int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.SearchCalls, m.SelectCalls, m.PollCalls
}

// ReadyResolution is a ready response with one stream for fileID.
func ReadyResolution(fileID string) *models.Resolution {
	return &models.Resolution{Status: models.ResolveReady, Progress: 100, Streams: []string{StreamURL(fileID)}}
}

// StreamURL is the direct link [ReadyResolution] reports for fileID.
func StreamURL(fileID string) string {
	return "https://cdn.test/" + fileID
}

// MockFallbackProvider is a test double for [services.FallbackProvider].
//
// Queries whose result is missing from Refs return [shared.ErrNotFound].
type MockFallbackProvider struct {
	mu      sync.Mutex
	Refs    map[string]*models.FallbackReference
	Err     error
	Queries []string
}

func NewMockFallbackProvider() *MockFallbackProvider {
	return &MockFallbackProvider{Refs: make(map[string]*models.FallbackReference)}
}

func (m *MockFallbackProvider) Name() string { return "mock-fallback" }

func (m *MockFallbackProvider) SearchReference(ctx context.Context, query string) (*models.FallbackReference, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Queries = append(m.Queries, query)
	if m.Err != nil {
		return nil, m.Err
	}
	if ref, ok := m.Refs[query]; ok {
		return ref, nil
	}
	return nil, fmt.Errorf("%w: %s", shared.ErrNotFound, query)
}

// Calls returns how many searches were made.
func (m *MockFallbackProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Queries)
}

// Album builds n canonical tracks t1..tn with the given titles and a bundle holding one
// "NN - Title.mp3" file per track.
func Album(albumID string, titles ...string) ([]models.CanonicalTrack, models.BundleSearchResult) {
	bundle := models.BundleSearchResult{BundleID: "bundle-" + albumID, Title: albumID + " [FLAC]", SizeLabel: "420 MB", SourceLabel: "test"}
	tracks := make([]models.CanonicalTrack, len(titles))
	for i, title := range titles {
		tracks[i] = models.CanonicalTrack{ID: fmt.Sprintf("t%d", i+1), Title: title, Position: i + 1, AlbumID: albumID}
		name := fmt.Sprintf("%02d - %s.mp3", i+1, title)
		bundle.Files = append(bundle.Files, models.CandidateFile{
			ID:       fmt.Sprintf("f%d", i+1),
			Filename: name,
			Path:     "/" + albumID + "/" + name,
			BundleID: bundle.BundleID,
		})
	}
	return tracks, bundle
}

// NewDB opens an in-memory database with every migration applied and closes it with the test.
func NewDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(shared.MemoryDSN)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
	return db
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
