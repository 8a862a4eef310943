// Package services implements clients for the upstream providers consumed by the sync engine.
//
// # Primary provider
//
// [DebridService] implements [SourceProvider]. It searches bundles, asks the provider to prepare
// individual files and polls until they are ready. The per-user API token is sent as a bearer token
// through an [oauth2.StaticTokenSource]. Polling is bounded by both a deadline and a stall window; see
// the poll package.
//
// # Fallback provider
//
// [YouTubeService] implements [FallbackProvider] against a FastAPI proxy wrapping
// ytmusicapi. It returns the single best song result for a query.
//
// # Catalog
//
// [SpotifyService] implements [Catalog] with client credentials so the CLI can obtain canonical
// track lists without user authorization.
//
// # Error Handling
//
// All failures to reach or understand a provider wrap [shared.ErrProvider]; non-2xx responses are
// returned as [*APIError]. A search that succeeds without a usable result returns
// [shared.ErrNotFound]. Poll failures surface as [shared.ErrTimeout], [shared.ErrStalled] or a
// wrapped [shared.ErrProvider].
package services
