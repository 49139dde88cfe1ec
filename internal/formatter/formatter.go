// package formatter renders lookup results, hits and queue listings as text digests and JSON
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"

	"upcwatch/internal/models"
	"upcwatch/internal/shared"
)

// EmptyResultLine is shown when a batch produced neither hits nor notes.
const EmptyResultLine = "Плейлисты не найдены для переданных UPC."

// WeekGroup is a set of hits sharing a week label, in first-seen order.
type WeekGroup struct {
	Label string
	Hits  []*models.Hit
}

// GroupByWeek buckets hits by their week label, preserving the order in
// which labels first appear.
func GroupByWeek(hits []*models.Hit) []WeekGroup {
	index := map[string]int{}
	var groups []WeekGroup

	for _, hit := range hits {
		i, ok := index[hit.WeekLabel]
		if !ok {
			i = len(groups)
			index[hit.WeekLabel] = i
			groups = append(groups, WeekGroup{Label: hit.WeekLabel})
		}
		groups[i].Hits = append(groups[i].Hits, hit)
	}

	return groups
}

// FormatResults renders a batch outcome as a text digest: notes first, then
// hits grouped by release week. An entirely empty result set renders as an
// explicit nothing-found line rather than a blank string.
func FormatResults(results []*models.LookupResult) string {
	var hits []*models.Hit
	var notes []string
	for _, result := range results {
		if result.Hit != nil {
			hits = append(hits, result.Hit)
		}
		if result.Note != "" {
			notes = append(notes, result.Note)
		}
	}

	if len(hits) == 0 && len(notes) == 0 {
		return EmptyResultLine
	}

	var buf bytes.Buffer
	for _, note := range notes {
		fmt.Fprintln(&buf, note)
	}

	for _, group := range GroupByWeek(hits) {
		fmt.Fprintf(&buf, "%s:\n", group.Label)
		for _, hit := range group.Hits {
			fmt.Fprintf(&buf, "%s - %s\n", hit.Artist, hit.ReleaseTitle)
			for _, line := range hit.Playlists {
				fmt.Fprintln(&buf, line)
			}
		}
		fmt.Fprintln(&buf)
	}

	return trimmed(&buf)
}

// FormatHits renders the stored hit listing grouped by week, with release
// dates on each entry.
func FormatHits(hits []*models.Hit) string {
	if len(hits) == 0 {
		return "Нет сохранённых плейлистов."
	}

	var buf bytes.Buffer
	for _, group := range GroupByWeek(hits) {
		fmt.Fprintf(&buf, "%s:\n", group.Label)
		for _, hit := range group.Hits {
			fmt.Fprintf(&buf, "%s - %s (%s, релиз %s)\n", hit.Artist, hit.ReleaseTitle, hit.UPC, shared.FormatDate(hit.ReleaseDate))
			for _, line := range hit.Playlists {
				fmt.Fprintln(&buf, line)
			}
		}
		fmt.Fprintln(&buf)
	}

	return trimmed(&buf)
}

// FormatQueue renders the pending queue as one line per code.
func FormatQueue(entries []*models.QueueEntry) string {
	if len(entries) == 0 {
		return "Очередь проверок пуста."
	}

	var buf bytes.Buffer
	for _, entry := range entries {
		fmt.Fprintf(&buf, "%s  %s - %s  (релиз %s, проверка %s, попыток %d)\n",
			entry.UPC,
			entry.Artist,
			entry.ReleaseTitle,
			shared.FormatDate(entry.ReleaseDate),
			shared.FormatDate(entry.NextCheck),
			entry.AttemptsRemaining,
		)
	}

	return trimmed(&buf)
}

// ToJSON renders any value as indented JSON for machine-readable CLI output.
func ToJSON(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

func trimmed(buf *bytes.Buffer) string {
	return string(bytes.TrimSpace(buf.Bytes()))
}
