package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"tunebridge/internal/core"
)

func strPtr(s string) *string {
	return &s
}

// fakeCatalog implements core.CatalogClient without touching the network.
type fakeCatalog struct {
	pingErr   error
	searchErr error
	lookupErr error
	results   []core.SearchResult
	track     *core.TrackMetadata
	album     *core.AlbumMetadata

	lastQuery string
	lastLimit int
}

func (f *fakeCatalog) SearchMixed(_ context.Context, query string, limit int) ([]core.SearchResult, error) {
	f.lastQuery = query
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.results, nil
}

func (f *fakeCatalog) GetTrackMetadata(context.Context, string) (*core.TrackMetadata, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.track, nil
}

func (f *fakeCatalog) GetAlbumMetadata(context.Context, string) (*core.AlbumMetadata, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	return f.album, nil
}

func (f *fakeCatalog) Ping(context.Context) error {
	return f.pingErr
}

// fakeResolver implements core.LinkResolver with fixed links.
type fakeResolver struct {
	links    core.DSPLinks
	detailed core.DetailedPlatformLinks
	pageURL  string
}

func (f *fakeResolver) ResolveLinks(context.Context, string) core.DSPLinks {
	return f.links
}

func (f *fakeResolver) ResolveDetailedLinks(context.Context, string) core.DetailedPlatformLinks {
	return f.detailed
}

func (f *fakeResolver) ResolvePageURL(context.Context, string) string {
	return f.pageURL
}

func testTrack() *core.TrackMetadata {
	return &core.TrackMetadata{
		Title:       "Test Song",
		Artist:      "Test Artist",
		Album:       "Test Album",
		CoverImage:  strPtr("https://i.scdn.co/image/a"),
		DurationMS:  183000,
		ISRC:        strPtr("USRC12345678"),
		SpotifyID:   "track1",
		SpotifyURL:  "https://open.spotify.com/track/track1",
		PreviewURL:  strPtr("https://p.scdn.co/preview/a"),
		ContentType: core.ContentTypeTrack,
	}
}

func testAlbum() *core.AlbumMetadata {
	return &core.AlbumMetadata{
		Title:       "Test Album",
		Artist:      "Test Artist",
		TotalTracks: 10,
		ReleaseDate: "2020-01-01",
		SpotifyID:   "album1",
		SpotifyURL:  "https://open.spotify.com/album/album1",
		ContentType: core.ContentTypeAlbum,
	}
}

func newTestServer(catalog core.CatalogClient, links core.LinkResolver) *httptest.Server {
	mux := setupRoutes(zap.NewNop(), catalog, links, nil)
	return httptest.NewServer(mux)
}

func doRequest(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequestWithContext(context.Background(), method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	return resp, data
}

func TestHandleHealth(t *testing.T) {
	tests := []struct {
		name           string
		pingErr        error
		expectedStatus int
		expectedSvc    string
	}{
		{name: "Catalog up", pingErr: nil, expectedStatus: http.StatusOK, expectedSvc: "up"},
		{name: "Catalog down", pingErr: fmt.Errorf("boom"), expectedStatus: http.StatusServiceUnavailable, expectedSvc: "down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&fakeCatalog{pingErr: tt.pingErr}, &fakeResolver{})
			defer server.Close()

			resp, body := doRequest(t, http.MethodGet, server.URL+"/health", "")

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.expectedStatus)
			}

			var health HealthResponse
			if err := json.Unmarshal(body, &health); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if health.Services["spotify"] != tt.expectedSvc {
				t.Errorf("services.spotify = %q, want %q", health.Services["spotify"], tt.expectedSvc)
			}
			if health.Timestamp <= 0 {
				t.Error("timestamp should be set")
			}
		})
	}
}

func TestHandleSearch(t *testing.T) {
	catalog := &fakeCatalog{
		results: []core.SearchResult{
			{Kind: core.ContentTypeTrack, Track: testTrack()},
			{Kind: core.ContentTypeAlbum, Album: testAlbum()},
		},
	}
	server := newTestServer(catalog, &fakeResolver{})
	defer server.Close()

	resp, body := doRequest(t, http.MethodPost, server.URL+"/search", `{"query": "test", "limit": 10}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var decoded struct {
		Query        string `json:"query"`
		TotalResults int    `json:"total_results"`
		Results      []struct {
			Title       string `json:"title"`
			ContentType string `json:"content_type"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if decoded.Query != "test" {
		t.Errorf("query = %q, want %q", decoded.Query, "test")
	}
	if decoded.TotalResults != 2 {
		t.Errorf("total_results = %d, want 2", decoded.TotalResults)
	}
	if decoded.Results[0].ContentType != "track" || decoded.Results[0].Title != "Test Song" {
		t.Errorf("results[0] = %+v, want the track first", decoded.Results[0])
	}
	if decoded.Results[1].ContentType != "album" {
		t.Errorf("results[1] = %+v, want the album second", decoded.Results[1])
	}

	if catalog.lastQuery != "test" || catalog.lastLimit != 10 {
		t.Errorf("catalog called with (%q, %d), want (test, 10)", catalog.lastQuery, catalog.lastLimit)
	}
}

func TestHandleSearch_DefaultLimit(t *testing.T) {
	catalog := &fakeCatalog{}
	server := newTestServer(catalog, &fakeResolver{})
	defer server.Close()

	resp, _ := doRequest(t, http.MethodPost, server.URL+"/search", `{"query": "test"}`)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if catalog.lastLimit != DefaultSearchLimit {
		t.Errorf("omitted limit should default to %d, got %d", DefaultSearchLimit, catalog.lastLimit)
	}
}

func TestHandleSearch_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "Empty query", body: `{"query": "", "limit": 10}`},
		{name: "Negative limit", body: `{"query": "test", "limit": -5}`},
		{name: "Malformed JSON", body: `{"query": `},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(&fakeCatalog{}, &fakeResolver{})
			defer server.Close()

			resp, _ := doRequest(t, http.MethodPost, server.URL+"/search", tt.body)

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", resp.StatusCode)
			}
		})
	}
}

func TestHandleSearch_CatalogFailure(t *testing.T) {
	catalog := &fakeCatalog{searchErr: fmt.Errorf("%w: track search: timeout", core.ErrCatalogLookup)}
	server := newTestServer(catalog, &fakeResolver{})
	defer server.Close()

	resp, body := doRequest(t, http.MethodPost, server.URL+"/search", `{"query": "test"}`)

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if !strings.Contains(string(body), "error") {
		t.Errorf("body = %s, want an error message", body)
	}
}

func TestHandleMatch_Track(t *testing.T) {
	catalog := &fakeCatalog{track: testTrack()}
	resolver := &fakeResolver{
		links: core.DSPLinks{
			Spotify:      "https://open.spotify.com/track/track1",
			AppleMusic:   strPtr("https://music.apple.com/1"),
			YouTubeMusic: strPtr("https://music.youtube.com/1"),
			Deezer:       strPtr("https://deezer.com/1"),
		},
	}
	server := newTestServer(catalog, resolver)
	defer server.Close()

	resp, body := doRequest(t, http.MethodPost, server.URL+"/match/track1?content_type=track", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var match struct {
		Metadata        map[string]any `json:"metadata"`
		ConfidenceScore float64        `json:"confidence_score"`
		ContentType     string         `json:"content_type"`
	}
	if err := json.Unmarshal(body, &match); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if match.ContentType != "track" {
		t.Errorf("content_type = %q, want track", match.ContentType)
	}
	if match.Metadata["title"] != "Test Song" {
		t.Errorf("metadata.title = %v, want Test Song", match.Metadata["title"])
	}

	// Three extra platforms resolved: 0.5 + 3*0.08.
	expected := 0.74
	if diff := match.ConfidenceScore - expected; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("confidence_score = %v, want %v", match.ConfidenceScore, expected)
	}
}

func TestHandleMatch_Album(t *testing.T) {
	catalog := &fakeCatalog{album: testAlbum()}
	server := newTestServer(catalog, &fakeResolver{links: core.DSPLinks{Spotify: "x"}})
	defer server.Close()

	resp, body := doRequest(t, http.MethodPost, server.URL+"/match/album1?content_type=album", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var match struct {
		Metadata    map[string]any `json:"metadata"`
		ContentType string         `json:"content_type"`
	}
	if err := json.Unmarshal(body, &match); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if match.ContentType != "album" {
		t.Errorf("content_type = %q, want album", match.ContentType)
	}
	if match.Metadata["total_tracks"] != float64(10) {
		t.Errorf("metadata.total_tracks = %v, want 10", match.Metadata["total_tracks"])
	}
}

func TestHandleMatch_UnknownContentType(t *testing.T) {
	server := newTestServer(&fakeCatalog{track: testTrack()}, &fakeResolver{})
	defer server.Close()

	resp, _ := doRequest(t, http.MethodPost, server.URL+"/match/track1?content_type=playlist", "")

	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandleLanding(t *testing.T) {
	catalog := &fakeCatalog{track: testTrack()}
	resolver := &fakeResolver{
		detailed: core.DetailedPlatformLinks{
			Spotify: &core.PlatformInfo{
				URL:          strPtr("https://open.spotify.com/track/track1"),
				NativeAppURI: strPtr("spotify:track:track1"),
			},
			AppleMusic: &core.PlatformInfo{URL: strPtr("https://music.apple.com/1")},
		},
		pageURL: "https://song.link/s/abc",
	}
	server := newTestServer(catalog, resolver)
	defer server.Close()

	resp, body := doRequest(t, http.MethodGet, server.URL+"/landing/track1", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var landing LandingPageData
	if err := json.Unmarshal(body, &landing); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if landing.Title != "Test Song" || landing.Artist != "Test Artist" {
		t.Errorf("landing = %+v, metadata mismatch", landing)
	}
	if landing.SongLinkPageURL != "https://song.link/s/abc" {
		t.Errorf("songlink_page_url = %q, want page URL", landing.SongLinkPageURL)
	}
	if landing.ThumbnailMedium == nil || *landing.ThumbnailMedium != "https://i.scdn.co/image/a" {
		t.Errorf("thumbnail_medium = %v, want cover image", landing.ThumbnailMedium)
	}
	if landing.Platforms.Spotify == nil || landing.Platforms.Spotify.NativeAppURI == nil {
		t.Error("platforms.spotify deep link should be present")
	}
	if landing.SpotifyID != "track1" {
		t.Errorf("spotify_id = %q, want track1", landing.SpotifyID)
	}
}

func TestHandlePreviewCard(t *testing.T) {
	catalog := &fakeCatalog{track: testTrack()}
	resolver := &fakeResolver{
		detailed: core.DetailedPlatformLinks{
			Spotify: &core.PlatformInfo{
				URL:          strPtr("https://open.spotify.com/track/track1"),
				NativeAppURI: strPtr("spotify:track:track1"),
			},
			Deezer: &core.PlatformInfo{URL: strPtr("https://deezer.com/1")},
		},
		pageURL: "https://song.link/s/abc",
	}
	server := newTestServer(catalog, resolver)
	defer server.Close()

	resp, body := doRequest(t, http.MethodGet, server.URL+"/preview-card/track1", "")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", resp.StatusCode, body)
	}

	var card PreviewCardData
	if err := json.Unmarshal(body, &card); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}

	if card.Duration == nil || *card.Duration != "3:03" {
		t.Errorf("duration = %v, want 3:03", card.Duration)
	}
	if card.QuickLinks["deezer"] == nil || *card.QuickLinks["deezer"] != "https://deezer.com/1" {
		t.Errorf("quick_links.deezer = %v, want resolved URL", card.QuickLinks["deezer"])
	}
	if card.QuickLinks["apple_music"] != nil {
		t.Error("quick_links.apple_music should be null when unresolved")
	}
	if card.DeepLinks["spotify_app"] == nil || *card.DeepLinks["spotify_app"] != "spotify:track:track1" {
		t.Errorf("deep_links.spotify_app = %v, want deep link", card.DeepLinks["spotify_app"])
	}
}

func TestHandleLanding_CatalogFailure(t *testing.T) {
	catalog := &fakeCatalog{lookupErr: fmt.Errorf("%w: get track x: not found", core.ErrCatalogLookup)}
	server := newTestServer(catalog, &fakeResolver{})
	defer server.Close()

	resp, _ := doRequest(t, http.MethodGet, server.URL+"/landing/x", "")

	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
}

func TestConfidenceScore(t *testing.T) {
	tests := []struct {
		name          string
		platformCount int
		expected      float64
	}{
		{name: "No extra platforms", platformCount: 0, expected: 0.5},
		{name: "One platform", platformCount: 1, expected: 0.58},
		{name: "Five platforms", platformCount: 5, expected: 0.9},
		{name: "Six platforms clamps at ceiling", platformCount: 6, expected: 0.95},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := confidenceScore(tt.platformCount)
			if diff := got - tt.expected; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidenceScore(%d) = %v, want %v", tt.platformCount, got, tt.expected)
			}
		})
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		name       string
		durationMS int
		expected   string
	}{
		{name: "Typical track", durationMS: 183000, expected: "3:03"},
		{name: "Under a minute", durationMS: 59999, expected: "0:59"},
		{name: "Exact minute", durationMS: 60000, expected: "1:00"},
		{name: "Long track", durationMS: 754000, expected: "12:34"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatDuration(tt.durationMS); got != tt.expected {
				t.Errorf("formatDuration(%d) = %q, want %q", tt.durationMS, got, tt.expected)
			}
		})
	}
}

func TestCreateHTTPServer(t *testing.T) {
	config := &core.ServerConfig{
		Host:         "0.0.0.0",
		Port:         8000,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	mux := http.NewServeMux()
	server := createHTTPServer(config, mux)

	if server.Addr != "0.0.0.0:8000" {
		t.Errorf("Addr = %q, want %q", server.Addr, "0.0.0.0:8000")
	}
	if server.ReadTimeout != config.ReadTimeout {
		t.Errorf("ReadTimeout = %v, want %v", server.ReadTimeout, config.ReadTimeout)
	}
	if server.WriteTimeout != config.WriteTimeout {
		t.Errorf("WriteTimeout = %v, want %v", server.WriteTimeout, config.WriteTimeout)
	}
}

func TestWithCORS(t *testing.T) {
	handler := withCORS(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	server := httptest.NewServer(handler)
	defer server.Close()

	resp, _ := doRequest(t, http.MethodOptions, server.URL+"/search", "")

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if origin := resp.Header.Get("Access-Control-Allow-Origin"); origin != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", origin)
	}
}
