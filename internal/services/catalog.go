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

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

const albumsPath = "/api/albums_list"

// fallbackArtist is used when the catalog record carries no artist name.
const fallbackArtist = "Неизвестный исполнитель"

// fallbackTitle is used when no title field is present on the record.
const fallbackTitle = "Релиз"

// catalogAlbum mirrors one record of the catalog's album listing. Different
// catalog imports populate different title and date fields, so all known
// variants are carried.
type catalogAlbum struct {
	ArtistName     string `json:"artist_name"`
	AlbumName      string `json:"album_name"`
	Title          string `json:"title"`
	Name           string `json:"name"`
	ReleaseTitle   string `json:"release_title"`
	SalesStartDate string `json:"sales_start_date"`
	ReleaseDate    string `json:"release_date"`
}

// CatalogService implements [Catalog] against the provider's media catalog.
type CatalogService struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *log.Logger
}

// NewCatalogService creates a catalog client for the configured base URL.
func NewCatalogService(config shared.APIConfig, tokens TokenSource) *CatalogService {
	return &CatalogService{
		baseURL:    strings.TrimRight(config.CatalogURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 20 * time.Second},
		logger:     shared.NewLogger(nil),
	}
}

// Lookup resolves a UPC to its release metadata. A code absent from the
// catalog, a failed request or an unparsable record all return (nil, nil);
// only an authentication failure is an error.
func (s *CatalogService) Lookup(ctx context.Context, upc string) (*models.Release, error) {
	token, err := s.tokens.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s%s?search=%s", s.baseURL, albumsPath, url.QueryEscape(upc))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("catalog request failed", "upc", upc, "error", err)
		return nil, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.logger.Error("catalog request failed", "upc", upc, "status", resp.StatusCode)
		return nil, nil
	}

	var payload struct {
		Albums []catalogAlbum `json:"albums"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		s.logger.Error("failed to decode catalog response", "upc", upc, "error", err)
		return nil, nil
	}
	if len(payload.Albums) == 0 {
		return nil, nil
	}

	return releaseFromAlbum(payload.Albums[0]), nil
}

func releaseFromAlbum(album catalogAlbum) *models.Release {
	release := &models.Release{
		Artist: album.ArtistName,
		Title:  releaseTitle(album),
	}
	if release.Artist == "" {
		release.Artist = fallbackArtist
	}

	raw := album.SalesStartDate
	if raw == "" {
		raw = album.ReleaseDate
	}
	if raw != "" {
		if date, err := shared.ParseReleaseDate(raw); err == nil {
			release.ReleaseDate = date
		}
	}

	return release
}

func releaseTitle(album catalogAlbum) string {
	for _, candidate := range []string{album.AlbumName, album.Title, album.Name, album.ReleaseTitle} {
		if candidate != "" {
			return candidate
		}
	}
	return fallbackTitle
}
