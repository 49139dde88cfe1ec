package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

var (
	_ list.Item = hitItem{}
	_ list.Item = queueItem{}
)

// hitItem wraps [models.Hit] to implement [list.Item].
type hitItem struct {
	hit *models.Hit
}

func (i hitItem) FilterValue() string { return i.hit.Artist + " " + i.hit.ReleaseTitle }
func (i hitItem) Title() string {
	return fmt.Sprintf("%s - %s", i.hit.Artist, i.hit.ReleaseTitle)
}
func (i hitItem) Description() string {
	return fmt.Sprintf("%s • %d плейлистов • %s", i.hit.WeekLabel, len(i.hit.Playlists), i.hit.UPC)
}

// queueItem wraps [models.QueueEntry] to implement [list.Item].
type queueItem struct {
	entry *models.QueueEntry
}

func (i queueItem) FilterValue() string { return i.entry.Artist + " " + i.entry.ReleaseTitle }
func (i queueItem) Title() string {
	return fmt.Sprintf("%s - %s", i.entry.Artist, i.entry.ReleaseTitle)
}
func (i queueItem) Description() string {
	return fmt.Sprintf("проверка %s • попыток %d • %s",
		shared.FormatDate(i.entry.NextCheck), i.entry.AttemptsRemaining, i.entry.UPC)
}
