// Package spotify provides the Spotify Web API catalog client: free-text
// mixed search with relevance ranking, and track/album metadata lookup.
package spotify

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"

	"tunebridge/internal/core"
	"tunebridge/pkg/fuzzy"
)

const (
	// MinTrackSearchLimit is the floor for the track sub-search size.
	MinTrackSearchLimit = 5
	// MinAlbumSearchLimit is the floor for the album sub-search size.
	MinAlbumSearchLimit = 3
	// healthProbeQuery is the throwaway query used to verify connectivity.
	healthProbeQuery = "test"
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
	scorer *fuzzy.Scorer
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
		scorer: fuzzy.NewScorer(),
	}
}

// Authenticate obtains an app token via the client-credentials flow. The
// catalog endpoints used here need no user authorization.
func (c *Client) Authenticate(ctx context.Context) error {
	auth := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	token, err := auth.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to obtain Spotify token: %w", err)
	}

	c.client = spotify.New(spotifyauth.New().Client(ctx, token))

	c.logger.Info("Authenticated with Spotify",
		zap.String("flow", "client_credentials"))
	return nil
}

// Ping issues a minimal search to verify the catalog is reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("client not authenticated")
	}

	if _, err := c.client.Search(ctx, healthProbeQuery, spotify.SearchTypeTrack, spotify.Limit(1)); err != nil {
		return fmt.Errorf("spotify connection test failed: %w", err)
	}
	return nil
}

// SearchMixed runs the track and album sub-searches concurrently, scores
// every candidate against the query, and returns one ranked, limit-truncated
// sequence. If either sub-search fails the whole call fails.
func (c *Client) SearchMixed(ctx context.Context, query string, limit int) ([]core.SearchResult, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	trackLimit, albumLimit := subSearchLimits(limit)

	var trackPage, albumPage *spotify.SearchResult

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := c.client.Search(gCtx, query, spotify.SearchTypeTrack, spotify.Limit(trackLimit))
		if err != nil {
			return fmt.Errorf("track search: %w", err)
		}
		trackPage = results
		return nil
	})
	g.Go(func() error {
		results, err := c.client.Search(gCtx, query, spotify.SearchTypeAlbum, spotify.Limit(albumLimit))
		if err != nil {
			return fmt.Errorf("album search: %w", err)
		}
		albumPage = results
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrCatalogLookup, err)
	}

	// Tracks are collected before albums: the stable sort below preserves
	// this order among equal scores.
	var candidates []scoredCandidate

	if trackPage.Tracks != nil {
		for i := range trackPage.Tracks.Tracks {
			track := &trackPage.Tracks.Tracks[i]
			candidates = append(candidates, scoredCandidate{
				result: core.SearchResult{Kind: core.ContentTypeTrack, Track: projectTrack(track)},
				score:  c.scorer.Score(query, track.Name, primaryArtist(track.Artists)),
			})
		}
	}

	if albumPage.Albums != nil {
		for i := range albumPage.Albums.Albums {
			album := &albumPage.Albums.Albums[i]
			candidates = append(candidates, scoredCandidate{
				result: core.SearchResult{Kind: core.ContentTypeAlbum, Album: projectAlbum(album)},
				score:  c.scorer.Score(query, album.Name, primaryArtist(album.Artists)),
			})
		}
	}

	results := rankCandidates(candidates, limit)

	c.logger.Info("Mixed search completed",
		zap.String("query", query),
		zap.Int("limit", limit),
		zap.Int("candidates", len(candidates)),
		zap.Int("returned", len(results)))

	return results, nil
}

// GetTrackMetadata fetches a single track and projects it to the canonical
// shape.
func (c *Client) GetTrackMetadata(ctx context.Context, spotifyID string) (*core.TrackMetadata, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	track, err := c.client.GetTrack(ctx, spotify.ID(spotifyID))
	if err != nil {
		return nil, fmt.Errorf("%w: get track %s: %w", core.ErrCatalogLookup, spotifyID, err)
	}

	return projectTrack(track), nil
}

// GetAlbumMetadata fetches a single album and projects it to the canonical
// shape.
func (c *Client) GetAlbumMetadata(ctx context.Context, spotifyID string) (*core.AlbumMetadata, error) {
	if c.client == nil {
		return nil, fmt.Errorf("client not authenticated")
	}

	album, err := c.client.GetAlbum(ctx, spotify.ID(spotifyID))
	if err != nil {
		return nil, fmt.Errorf("%w: get album %s: %w", core.ErrCatalogLookup, spotifyID, err)
	}

	meta := projectAlbum(&album.SimpleAlbum)
	meta.TotalTracks = int(album.Tracks.Total)
	return meta, nil
}

type scoredCandidate struct {
	result core.SearchResult
	score  float64
}

// subSearchLimits derives the per-kind request sizes from the caller's limit.
// Floors keep small limits from starving either result kind.
func subSearchLimits(limit int) (trackLimit, albumLimit int) {
	return max(MinTrackSearchLimit, limit/2), max(MinAlbumSearchLimit, limit/3)
}

// rankCandidates stable-sorts by descending score and truncates to limit.
// Ties keep discovery order: tracks before albums, provider order within a
// kind.
func rankCandidates(candidates []scoredCandidate, limit int) []core.SearchResult {
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	if limit < 0 {
		limit = 0
	}
	if limit < len(candidates) {
		candidates = candidates[:limit]
	}

	results := make([]core.SearchResult, 0, len(candidates))
	for _, candidate := range candidates {
		results = append(results, candidate.result)
	}
	return results
}

// primaryArtist returns the first listed artist. Scoring deliberately uses
// only the primary artist while the display string joins all of them.
func primaryArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func joinArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, artist := range artists {
		names = append(names, artist.Name)
	}
	return strings.Join(names, ", ")
}

func projectTrack(track *spotify.FullTrack) *core.TrackMetadata {
	meta := &core.TrackMetadata{
		Title:       track.Name,
		Artist:      joinArtists(track.Artists),
		Album:       track.Album.Name,
		DurationMS:  int(track.Duration),
		SpotifyID:   string(track.ID),
		SpotifyURL:  track.ExternalURLs["spotify"],
		ContentType: core.ContentTypeTrack,
	}

	if len(track.Album.Images) > 0 {
		cover := track.Album.Images[0].URL
		meta.CoverImage = &cover
	}
	if isrc, ok := track.ExternalIDs["isrc"]; ok && isrc != "" {
		meta.ISRC = &isrc
	}
	if track.PreviewURL != "" {
		preview := track.PreviewURL
		meta.PreviewURL = &preview
	}
	popularity := int(track.Popularity)
	meta.Popularity = &popularity

	return meta
}

// projectAlbum maps the simplified album shape. Simplified albums carry no
// track count; GetAlbumMetadata overlays it from the full album's track page.
func projectAlbum(album *spotify.SimpleAlbum) *core.AlbumMetadata {
	meta := &core.AlbumMetadata{
		Title:       album.Name,
		Artist:      joinArtists(album.Artists),
		ReleaseDate: album.ReleaseDate,
		SpotifyID:   string(album.ID),
		SpotifyURL:  album.ExternalURLs["spotify"],
		ContentType: core.ContentTypeAlbum,
	}

	if len(album.Images) > 0 {
		cover := album.Images[0].URL
		meta.CoverImage = &cover
	}

	return meta
}
