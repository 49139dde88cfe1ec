package services

import (
	"context"
	"time"

	"upcwatch/internal/models"
)

// Platform identifies one streaming service whose editorial playlists the
// charts API covers. Label is the user-facing name used in hit lines.
type Platform struct {
	Key   string
	Label string
}

// Platforms returns the supported platforms in presentation order.
func Platforms() []Platform {
	return []Platform{
		{Key: "vk", Label: "ВКонтакте"},
		{Key: "yandex", Label: "Яндекс Музыка"},
		{Key: "mts", Label: "МТС Музыка"},
		{Key: "zvooq", Label: "Звук"},
	}
}

// TokenSource supplies a valid access token for API requests. Implemented by
// [auth.Manager].
type TokenSource interface {
	AccessToken(ctx context.Context) (string, error)
}

// Catalog resolves UPC codes to release metadata.
type Catalog interface {
	Lookup(ctx context.Context, upc string) (*models.Release, error)
}

// Charts queries playlist placements for a release.
type Charts interface {
	Placements(ctx context.Context, artist, releaseTitle string, date time.Time) ([]string, error)
}
