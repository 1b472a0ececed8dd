// Package core defines the domain types, configuration and client interfaces
// shared across the service.
package core

import (
	"context"
	"encoding/json"
)

// ContentType discriminates the two catalog entity kinds.
type ContentType string

const (
	ContentTypeTrack ContentType = "track"
	ContentTypeAlbum ContentType = "album"
)

// TrackMetadata is the canonical projection of a catalog track. Optional
// provider fields are nil when absent, never placeholder strings.
type TrackMetadata struct {
	Title       string      `json:"title"`
	Artist      string      `json:"artist"`
	Album       string      `json:"album"`
	CoverImage  *string     `json:"cover_image"`
	DurationMS  int         `json:"duration_ms"`
	ISRC        *string     `json:"isrc"`
	SpotifyID   string      `json:"spotify_id"`
	SpotifyURL  string      `json:"spotify_url"`
	PreviewURL  *string     `json:"preview_url"`
	Popularity  *int        `json:"popularity,omitempty"`
	ContentType ContentType `json:"content_type"`
}

// AlbumMetadata is the canonical projection of a catalog album.
type AlbumMetadata struct {
	Title       string      `json:"title"`
	Artist      string      `json:"artist"`
	CoverImage  *string     `json:"cover_image"`
	TotalTracks int         `json:"total_tracks"`
	ReleaseDate string      `json:"release_date"`
	SpotifyID   string      `json:"spotify_id"`
	SpotifyURL  string      `json:"spotify_url"`
	ContentType ContentType `json:"content_type"`
}

// SearchResult is a tagged variant holding either a track or an album, so
// mixed result lists stay exhaustively handleable. Exactly one of Track and
// Album is non-nil, matching Kind.
type SearchResult struct {
	Kind  ContentType
	Track *TrackMetadata
	Album *AlbumMetadata
}

// MarshalJSON flattens the variant to the inner metadata object, which
// carries its own content_type discriminant.
func (r SearchResult) MarshalJSON() ([]byte, error) {
	if r.Kind == ContentTypeAlbum {
		return json.Marshal(r.Album)
	}
	return json.Marshal(r.Track)
}

// DSPLinks is the flat best-URL-per-platform map. Spotify is always present
// since it is the source platform.
type DSPLinks struct {
	Spotify      string  `json:"spotify"`
	AppleMusic   *string `json:"apple_music"`
	YouTubeMusic *string `json:"youtube_music"`
	Deezer       *string `json:"deezer"`
	SoundCloud   *string `json:"soundcloud"`
	AmazonMusic  *string `json:"amazon_music"`
	Tidal        *string `json:"tidal"`
}

// PlatformCount returns the number of resolved platforms excluding Spotify,
// which is always the source and therefore carries no matching signal.
func (l DSPLinks) PlatformCount() int {
	count := 0
	for _, link := range []*string{l.AppleMusic, l.YouTubeMusic, l.Deezer, l.AmazonMusic, l.Tidal, l.SoundCloud} {
		if link != nil {
			count++
		}
	}
	return count
}

// PlatformInfo carries the web URL and the mobile deep-link URI for one
// platform.
type PlatformInfo struct {
	URL          *string `json:"url"`
	NativeAppURI *string `json:"native_app_uri"`
}

// DetailedPlatformLinks is the per-platform map including native app URIs.
type DetailedPlatformLinks struct {
	Spotify      *PlatformInfo `json:"spotify"`
	AppleMusic   *PlatformInfo `json:"apple_music"`
	YouTubeMusic *PlatformInfo `json:"youtube_music"`
	Deezer       *PlatformInfo `json:"deezer"`
	AmazonMusic  *PlatformInfo `json:"amazon_music"`
	Tidal        *PlatformInfo `json:"tidal"`
}

// CatalogClient is the catalog provider surface the HTTP layer depends on.
type CatalogClient interface {
	SearchMixed(ctx context.Context, query string, limit int) ([]SearchResult, error)
	GetTrackMetadata(ctx context.Context, spotifyID string) (*TrackMetadata, error)
	GetAlbumMetadata(ctx context.Context, spotifyID string) (*AlbumMetadata, error)
	Ping(ctx context.Context) error
}

// LinkResolver resolves a source URL into cross-platform listening links.
// Resolution is best-effort: implementations degrade to a fallback result
// instead of returning errors.
type LinkResolver interface {
	ResolveLinks(ctx context.Context, sourceURL string) DSPLinks
	ResolveDetailedLinks(ctx context.Context, sourceURL string) DetailedPlatformLinks
	ResolvePageURL(ctx context.Context, sourceURL string) string
}
