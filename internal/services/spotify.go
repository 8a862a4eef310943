// Spotify API implementation of [Catalog]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/albumsync/internal/models"
	"github.com/desertthunder/albumsync/internal/shared"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifySimpleTrack represents a track as listed inside an album.
type SpotifySimpleTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	DiscNumber  int             `json:"disc_number"`
	TrackNumber int             `json:"track_number"`
	DurationMS  int             `json:"duration_ms"`
}

// SpotifyTrackPage represents a paginated list of album tracks.
type SpotifyTrackPage struct {
	Items  []SpotifySimpleTrack `json:"items"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
	Next   *string              `json:"next"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Artists     []SpotifyArtist  `json:"artists"`
	ReleaseDate string           `json:"release_date"`
	TotalTracks int              `json:"total_tracks"`
	Tracks      SpotifyTrackPage `json:"tracks"`
	URI         string           `json:"uri"`
}

// SpotifyService implements [Catalog] with app-only client credentials.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
}

// NewSpotifyService creates a catalog client. Tokens are fetched and refreshed by
// [clientcredentials.Config].
func NewSpotifyService(ctx context.Context, clientID, clientSecret string) (*SpotifyService, error) {
	return newSpotifyService(ctx, clientID, clientSecret, spotifyTokenURL, spotifyBaseURL)
}

func newSpotifyService(ctx context.Context, clientID, clientSecret, tokenURL, baseURL string) (*SpotifyService, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}

	return &SpotifyService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: config.Client(ctx),
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// RawAlbum retrieves an album by ID with every page of its track list.
func (s *SpotifyService) RawAlbum(ctx context.Context, albumID string) (*SpotifyAlbum, error) {
	endpoint := fmt.Sprintf("%s/albums/%s", s.baseURL, url.PathEscape(albumID))

	var album SpotifyAlbum
	if err := doJSON(ctx, s.httpClient, s.Name(), http.MethodGet, endpoint, nil, &album); err != nil {
		return nil, err
	}

	next := album.Tracks.Next
	for next != nil && *next != "" {
		var page SpotifyTrackPage
		if err := doJSON(ctx, s.httpClient, s.Name(), http.MethodGet, *next, nil, &page); err != nil {
			return nil, err
		}
		album.Tracks.Items = append(album.Tracks.Items, page.Items...)
		next = page.Next
	}

	return &album, nil
}

// Album returns the canonical, ordered track list of an album.
//
// Positions run across discs in catalog order.
func (s *SpotifyService) Album(ctx context.Context, albumID string) (*CatalogAlbum, error) {
	album, err := s.RawAlbum(ctx, albumID)
	if err != nil {
		return nil, err
	}

	result := &CatalogAlbum{ID: album.ID, Title: album.Name}
	if len(album.Artists) > 0 {
		result.Artist = album.Artists[0].Name
	}

	for i, t := range album.Tracks.Items {
		result.Tracks = append(result.Tracks, models.CanonicalTrack{
			ID:       t.ID,
			Title:    t.Name,
			Position: i + 1,
			AlbumID:  album.ID,
		})
	}

	return result, nil
}
