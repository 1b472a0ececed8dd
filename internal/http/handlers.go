package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tunebridge/internal/core"
)

const (
	// DefaultSearchLimit applies when a search request omits the limit.
	DefaultSearchLimit = 10

	confidenceBase        = 0.5
	confidencePerPlatform = 0.08
	confidenceCeiling     = 0.95
)

type handler struct {
	logger  *zap.Logger
	catalog core.CatalogClient
	links   core.LinkResolver
	metrics *Metrics
}

type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type SearchResponse struct {
	Query        string              `json:"query"`
	TotalResults int                 `json:"total_results"`
	Results      []core.SearchResult `json:"results"`
}

type MatchResult struct {
	Metadata        any              `json:"metadata"`
	DSPLinks        core.DSPLinks    `json:"dsp_links"`
	ConfidenceScore float64          `json:"confidence_score"`
	ContentType     core.ContentType `json:"content_type"`
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp float64           `json:"timestamp"`
	Services  map[string]string `json:"services"`
}

type LandingPageData struct {
	Title           string                     `json:"title"`
	Artist          string                     `json:"artist"`
	Album           string                     `json:"album"`
	ThumbnailSmall  *string                    `json:"thumbnail_small"`
	ThumbnailMedium *string                    `json:"thumbnail_medium"`
	ThumbnailLarge  *string                    `json:"thumbnail_large"`
	Platforms       core.DetailedPlatformLinks `json:"platforms"`
	SongLinkPageURL string                     `json:"songlink_page_url"`
	DurationMS      int                        `json:"duration_ms"`
	ISRC            *string                    `json:"isrc"`
	ReleaseDate     *string                    `json:"release_date"`
	Popularity      *int                       `json:"popularity"`
	PreviewURL      *string                    `json:"preview_url"`
	SpotifyID       string                     `json:"spotify_id"`
}

type PreviewCardData struct {
	Title      string             `json:"title"`
	Artist     string             `json:"artist"`
	Album      string             `json:"album"`
	CoverArt   *string            `json:"cover_art"`
	Duration   *string            `json:"duration"`
	PreviewURL *string            `json:"preview_url"`
	QuickLinks map[string]*string `json:"quick_links"`
	DeepLinks  map[string]*string `json:"deep_links"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: float64(time.Now().UnixMilli()) / 1000.0,
		Services: map[string]string{
			"spotify":  "up",
			"songlink": "up", // No auth required, assume up.
		},
	}

	status := http.StatusOK
	if err := h.catalog.Ping(r.Context()); err != nil {
		h.logger.Error("Health check failed", zap.Error(err))
		response.Status = "unhealthy"
		response.Services["spotify"] = "down"
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, response)
}

func (h *handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var request SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	if request.Query == "" {
		writeError(w, http.StatusBadRequest, "query must not be empty")
		return
	}
	if request.Limit < 0 {
		writeError(w, http.StatusBadRequest, "limit must not be negative")
		return
	}
	if request.Limit == 0 {
		request.Limit = DefaultSearchLimit
	}

	h.logger.Info("Searching",
		zap.String("query", request.Query),
		zap.Int("limit", request.Limit))

	if h.metrics != nil {
		h.metrics.SearchesTotal.Inc()
	}

	results, err := h.catalog.SearchMixed(r.Context(), request.Query, request.Limit)
	if err != nil {
		h.catalogFailure(w, "Search failed", err)
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Query:        request.Query,
		TotalResults: len(results),
		Results:      results,
	})
}

func (h *handler) handleMatch(w http.ResponseWriter, r *http.Request) {
	spotifyID := r.PathValue("id")

	contentType := core.ContentType(r.URL.Query().Get("content_type"))
	if contentType == "" {
		contentType = core.ContentTypeTrack
	}
	if contentType != core.ContentTypeTrack && contentType != core.ContentTypeAlbum {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown content_type %q", contentType))
		return
	}

	h.logger.Info("Matching across platforms",
		zap.String("spotifyID", spotifyID),
		zap.String("contentType", string(contentType)))

	if h.metrics != nil {
		h.metrics.MatchesTotal.WithLabelValues(string(contentType)).Inc()
	}

	var metadata any
	var sourceURL string

	if contentType == core.ContentTypeTrack {
		track, err := h.catalog.GetTrackMetadata(r.Context(), spotifyID)
		if err != nil {
			h.catalogFailure(w, "Matching failed", err)
			return
		}
		metadata, sourceURL = track, track.SpotifyURL
	} else {
		album, err := h.catalog.GetAlbumMetadata(r.Context(), spotifyID)
		if err != nil {
			h.catalogFailure(w, "Matching failed", err)
			return
		}
		metadata, sourceURL = album, album.SpotifyURL
	}

	links := h.links.ResolveLinks(r.Context(), sourceURL)

	writeJSON(w, http.StatusOK, MatchResult{
		Metadata:        metadata,
		DSPLinks:        links,
		ConfidenceScore: confidenceScore(links.PlatformCount()),
		ContentType:     contentType,
	})
}

func (h *handler) handleLanding(w http.ResponseWriter, r *http.Request) {
	spotifyID := r.PathValue("id")

	h.logger.Info("Building landing payload", zap.String("spotifyID", spotifyID))

	landing, err := h.buildLanding(r, spotifyID)
	if err != nil {
		h.catalogFailure(w, "Landing page data failed", err)
		return
	}

	writeJSON(w, http.StatusOK, landing)
}

func (h *handler) handlePreviewCard(w http.ResponseWriter, r *http.Request) {
	spotifyID := r.PathValue("id")

	h.logger.Info("Building preview card", zap.String("spotifyID", spotifyID))

	landing, err := h.buildLanding(r, spotifyID)
	if err != nil {
		h.catalogFailure(w, "Preview card failed", err)
		return
	}

	var duration *string
	if landing.DurationMS > 0 {
		formatted := formatDuration(landing.DurationMS)
		duration = &formatted
	}

	writeJSON(w, http.StatusOK, PreviewCardData{
		Title:      landing.Title,
		Artist:     landing.Artist,
		Album:      landing.Album,
		CoverArt:   landing.ThumbnailMedium,
		Duration:   duration,
		PreviewURL: landing.PreviewURL,
		QuickLinks: map[string]*string{
			"spotify":       platformURL(landing.Platforms.Spotify),
			"apple_music":   platformURL(landing.Platforms.AppleMusic),
			"youtube_music": platformURL(landing.Platforms.YouTubeMusic),
			"deezer":        platformURL(landing.Platforms.Deezer),
		},
		DeepLinks: map[string]*string{
			"spotify_app":     platformDeepLink(landing.Platforms.Spotify),
			"apple_music_app": platformDeepLink(landing.Platforms.AppleMusic),
		},
	})
}

// buildLanding assembles the full landing payload: track metadata plus the
// detailed platform map and the shareable page URL.
func (h *handler) buildLanding(r *http.Request, spotifyID string) (*LandingPageData, error) {
	track, err := h.catalog.GetTrackMetadata(r.Context(), spotifyID)
	if err != nil {
		return nil, err
	}

	platforms := h.links.ResolveDetailedLinks(r.Context(), track.SpotifyURL)
	pageURL := h.links.ResolvePageURL(r.Context(), track.SpotifyURL)

	return &LandingPageData{
		Title:  track.Title,
		Artist: track.Artist,
		Album:  track.Album,
		// Single cover size from the provider; serve it for all three slots.
		ThumbnailSmall:  track.CoverImage,
		ThumbnailMedium: track.CoverImage,
		ThumbnailLarge:  track.CoverImage,
		Platforms:       platforms,
		SongLinkPageURL: pageURL,
		DurationMS:      track.DurationMS,
		ISRC:            track.ISRC,
		Popularity:      track.Popularity,
		PreviewURL:      track.PreviewURL,
		SpotifyID:       spotifyID,
	}, nil
}

func (h *handler) catalogFailure(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, zap.Error(err))
	if h.metrics != nil && errors.Is(err, core.ErrCatalogLookup) {
		h.metrics.CatalogErrors.Inc()
	}
	writeError(w, http.StatusInternalServerError, fmt.Sprintf("%s: %v", message, err))
}

// confidenceScore derives match confidence from how many extra platforms
// resolved, capped below certainty since the match is heuristic.
func confidenceScore(platformCount int) float64 {
	score := confidenceBase + float64(platformCount)*confidencePerPlatform
	if score > confidenceCeiling {
		score = confidenceCeiling
	}
	return score
}

// formatDuration renders milliseconds as M:SS.
func formatDuration(durationMS int) string {
	return fmt.Sprintf("%d:%02d", durationMS/60000, (durationMS%60000)/1000)
}

func platformURL(info *core.PlatformInfo) *string {
	if info == nil {
		return nil
	}
	return info.URL
}

func platformDeepLink(info *core.PlatformInfo) *string {
	if info == nil {
		return nil
	}
	return info.NativeAppURI
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
