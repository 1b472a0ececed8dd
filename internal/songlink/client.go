// Package songlink resolves a Spotify URL into equivalent listening links on
// other streaming platforms via the song.link (Odesli) API.
//
// Resolution is best-effort enrichment: any provider failure degrades to a
// fallback result carrying the original source URL instead of an error, so
// callers always receive a usable link.
package songlink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"tunebridge/internal/core"
)

// Platform keys as used by the song.link API response.
const (
	platformSpotify      = "spotify"
	platformAppleMusic   = "appleMusic"
	platformYouTubeMusic = "youtubeMusic"
	platformDeezer       = "deezer"
	platformSoundCloud   = "soundcloud"
	platformAmazonMusic  = "amazonMusic"
	platformTidal        = "tidal"
)

// pageURLPrefix is the shareable-page fallback when the API is unreachable.
const pageURLPrefix = "https://song.link/"

type Client struct {
	config *core.SongLinkConfig
	logger *zap.Logger
	client *http.Client
}

func NewClient(config *core.SongLinkConfig, logger *zap.Logger) *Client {
	return &Client{
		config: config,
		logger: logger,
		client: &http.Client{Timeout: config.Timeout},
	}
}

// apiResponse mirrors the subset of the song.link response we consume.
type apiResponse struct {
	PageURL         string                  `json:"pageUrl"`
	LinksByPlatform map[string]platformLink `json:"linksByPlatform"`
}

type platformLink struct {
	URL                string `json:"url"`
	NativeAppURIMobile string `json:"nativeAppUriMobile"`
}

// resolution distinguishes a resolved response from a degraded one. The
// cause stays internal for logging; the external contract only exposes the
// degraded shape.
type resolution struct {
	response *apiResponse
	degraded bool
	cause    error
}

func (c *Client) resolve(ctx context.Context, sourceURL string) resolution {
	apiURL := fmt.Sprintf("%s/links?url=%s", c.config.BaseURL, url.QueryEscape(sourceURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, http.NoBody)
	if err != nil {
		return resolution{degraded: true, cause: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return resolution{degraded: true, cause: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return resolution{degraded: true, cause: fmt.Errorf("song.link returned status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resolution{degraded: true, cause: fmt.Errorf("failed to read response body: %w", err)}
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return resolution{degraded: true, cause: fmt.Errorf("failed to decode response: %w", err)}
	}

	return resolution{response: &parsed}
}

// ResolveLinks returns the flat best-URL-per-platform map. On any provider
// failure the result degrades to the source URL under the spotify key.
func (c *Client) ResolveLinks(ctx context.Context, sourceURL string) core.DSPLinks {
	res := c.resolve(ctx, sourceURL)
	if res.degraded {
		c.logDegraded("basic links", sourceURL, res.cause)
		return core.DSPLinks{Spotify: sourceURL}
	}

	links := res.response.LinksByPlatform

	spotifyURL := sourceURL
	if link, ok := links[platformSpotify]; ok && link.URL != "" {
		spotifyURL = link.URL
	}

	return core.DSPLinks{
		Spotify:      spotifyURL,
		AppleMusic:   linkURL(links, platformAppleMusic),
		YouTubeMusic: linkURL(links, platformYouTubeMusic),
		Deezer:       linkURL(links, platformDeezer),
		SoundCloud:   linkURL(links, platformSoundCloud),
		AmazonMusic:  linkURL(links, platformAmazonMusic),
		Tidal:        linkURL(links, platformTidal),
	}
}

// ResolveDetailedLinks returns per-platform web URLs plus mobile deep-link
// URIs. The degraded result carries the source URL as the spotify entry.
func (c *Client) ResolveDetailedLinks(ctx context.Context, sourceURL string) core.DetailedPlatformLinks {
	res := c.resolve(ctx, sourceURL)
	if res.degraded {
		c.logDegraded("detailed links", sourceURL, res.cause)
		return core.DetailedPlatformLinks{
			Spotify: &core.PlatformInfo{URL: &sourceURL},
		}
	}

	links := res.response.LinksByPlatform

	return core.DetailedPlatformLinks{
		Spotify:      platformInfo(links, platformSpotify),
		AppleMusic:   platformInfo(links, platformAppleMusic),
		YouTubeMusic: platformInfo(links, platformYouTubeMusic),
		Deezer:       platformInfo(links, platformDeezer),
		AmazonMusic:  platformInfo(links, platformAmazonMusic),
		Tidal:        platformInfo(links, platformTidal),
	}
}

// ResolvePageURL returns the song.link shareable page URL, falling back to
// the constructed https://song.link/{sourceURL} form.
func (c *Client) ResolvePageURL(ctx context.Context, sourceURL string) string {
	res := c.resolve(ctx, sourceURL)
	if res.degraded {
		c.logDegraded("page URL", sourceURL, res.cause)
		return pageURLPrefix + sourceURL
	}

	if res.response.PageURL == "" {
		return pageURLPrefix + sourceURL
	}
	return res.response.PageURL
}

func (c *Client) logDegraded(operation, sourceURL string, cause error) {
	c.logger.Warn("Link resolution degraded to fallback",
		zap.String("operation", operation),
		zap.String("sourceURL", sourceURL),
		zap.Error(cause))
}

func linkURL(links map[string]platformLink, platform string) *string {
	link, ok := links[platform]
	if !ok || link.URL == "" {
		return nil
	}
	return &link.URL
}

func platformInfo(links map[string]platformLink, platform string) *core.PlatformInfo {
	link, ok := links[platform]
	if !ok {
		return nil
	}

	info := &core.PlatformInfo{}
	if link.URL != "" {
		info.URL = &link.URL
	}
	if link.NativeAppURIMobile != "" {
		info.NativeAppURI = &link.NativeAppURIMobile
	}
	return info
}
