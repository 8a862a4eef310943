// package services defines the upstream providers the sync engine consumes
//
// Debrid (primary), YouTube Music (fallback, via proxy), Spotify (catalog)
package services

import (
	"context"
	"time"

	"github.com/desertthunder/albumsync/internal/models"
)

// SourceProvider is the primary content-fetch provider: it finds bundles and prepares files inside them.
type SourceProvider interface {
	// Search returns bundles holding at least one audio file, in provider order.
	Search(ctx context.Context, credential, query string) ([]models.BundleSearchResult, error)

	// SelectAndResolve asks the provider to prepare fileIDs of bundleID and reports their state.
	SelectAndResolve(ctx context.Context, credential, bundleID string, fileIDs []string) (*models.Resolution, error)

	// Poll repeats SelectAndResolve for one file until it is ready, fails, stalls or maxWait elapses.
	Poll(ctx context.Context, credential, bundleID, fileID string, maxWait time.Duration) (*models.Resolution, error)

	Name() string
}

// FallbackProvider is the secondary media-search provider.
type FallbackProvider interface {
	// SearchReference returns the single best playable reference for query, or [shared.ErrNotFound].
	SearchReference(ctx context.Context, query string) (*models.FallbackReference, error)

	Name() string
}

// Catalog supplies canonical album track lists.
type Catalog interface {
	Album(ctx context.Context, albumID string) (*CatalogAlbum, error)
}

// CatalogAlbum is an album with its ordered track list.
type CatalogAlbum struct {
	ID     string
	Title  string
	Artist string
	Tracks []models.CanonicalTrack
}
