package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"upcwatch/internal/shared"
)

const playlistsPath = "/playlists/"

// defaultPlaylistLimit caps how many placements one platform query returns.
const defaultPlaylistLimit = 50

// playlistResult mirrors one placement record of the charts API. Position is
// absent for unranked editorial selections.
type playlistResult struct {
	PlaylistName string `json:"playlist_name"`
	TrackName    string `json:"track_name"`
	AlbumName    string `json:"album_name"`
	Position     *int   `json:"position"`
}

// ChartsService implements [Charts] against the provider's charts API.
//
// Placement queries fan out across all platforms concurrently; the shared
// rate limiter keeps the aggregate request rate within the configured budget.
type ChartsService struct {
	baseURL    string
	limit      int
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewChartsService creates a charts client for the configured base URL.
func NewChartsService(config shared.APIConfig, limit int, tokens TokenSource) *ChartsService {
	if limit <= 0 {
		limit = defaultPlaylistLimit
	}

	rps := config.RateLimit
	if rps <= 0 {
		rps = 5
	}

	return &ChartsService{
		baseURL:    strings.TrimRight(config.ChartsURL, "/"),
		limit:      limit,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		logger:     shared.NewLogger(nil),
	}
}

// Placements queries every platform for editorial playlists carrying the
// release as of the given date and returns the formatted hit lines in
// platform order. Per-platform failures degrade to no placements; only an
// authentication failure is an error.
func (s *ChartsService) Placements(ctx context.Context, artist, releaseTitle string, date time.Time) ([]string, error) {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	platforms := Platforms()
	perPlatform := make([][]string, len(platforms))

	group, ctx := errgroup.WithContext(ctx)
	for i, platform := range platforms {
		group.Go(func() error {
			lines, err := s.fetchPlatform(ctx, token, platform, artist, releaseTitle, date)
			if err != nil {
				return err
			}
			perPlatform[i] = lines
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	var lines []string
	for _, platformLines := range perPlatform {
		lines = append(lines, platformLines...)
	}
	return lines, nil
}

// fetchPlatform queries one platform. Errors are limited to context
// cancellation from the rate limiter; request failures are logged and
// return no lines.
func (s *ChartsService) fetchPlatform(ctx context.Context, token string, platform Platform, artist, releaseTitle string, date time.Time) ([]string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("platform", platform.Key)
	params.Set("date", shared.FormatDate(date))
	params.Set("limit", fmt.Sprint(s.limit))
	params.Set("offset", "0")
	params.Set("q", artist)

	endpoint := s.baseURL + playlistsPath + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create charts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("charts request failed", "platform", platform.Key, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Warn("charts request failed", "platform", platform.Key, "status", resp.StatusCode)
		return nil, nil
	}

	var payload struct {
		Results []playlistResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Warn("failed to decode charts response", "platform", platform.Key, "error", err)
		return nil, nil
	}

	s.logger.Debug("charts results", "platform", platform.Key, "artist", artist, "count", len(payload.Results))

	var lines []string
	for _, result := range payload.Results {
		if result.PlaylistName == "" {
			continue
		}
		if !releaseMatches(result, releaseTitle) {
			continue
		}
		lines = append(lines, formatPlacement(result, platform.Label))
	}
	return lines, nil
}

// releaseMatches reports whether a placement record belongs to the release:
// the release title must appear within the placement's track or album name,
// case-insensitively.
func releaseMatches(result playlistResult, releaseTitle string) bool {
	title := strings.ToLower(releaseTitle)
	return strings.Contains(strings.ToLower(result.TrackName), title) ||
		strings.Contains(strings.ToLower(result.AlbumName), title)
}

func formatPlacement(result playlistResult, platformLabel string) string {
	note := "(Плейлист подборка)"
	if result.Position != nil {
		note = fmt.Sprintf("(позиция %d)", *result.Position)
	}
	return fmt.Sprintf("«%s» (%s) %s", result.PlaylistName, platformLabel, note)
}
