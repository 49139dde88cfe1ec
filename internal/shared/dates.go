package shared

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used for all persisted dates.
const DateLayout = "2006-01-02"

// releaseWindowDays is the observed lag between a release's sale date and
// playlist curation: placements are queried as of one week after release and
// abandoned once that window has passed.
const releaseWindowDays = 7

// DateOnly truncates t to its calendar date in UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in UTC.
func Today() time.Time {
	return DateOnly(time.Now().UTC())
}

// ParseDate parses an ISO calendar date (2006-01-02).
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return d, nil
}

// FormatDate renders a date in ISO form (2006-01-02).
func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// ParseReleaseDate parses a catalog date field. Catalog responses carry full
// timestamps; only the leading ISO date portion is significant.
func ParseReleaseDate(raw string) (time.Time, error) {
	if len(raw) > len(DateLayout) {
		raw = raw[:len(DateLayout)]
	}
	return ParseDate(raw)
}

// AddDays returns the date n days after d.
func AddDays(d time.Time, n int) time.Time {
	return DateOnly(d.AddDate(0, 0, n))
}

// WeekStart returns the Monday of the ISO week containing d.
func WeekStart(d time.Time) time.Time {
	offset := (int(d.Weekday()) + 6) % 7
	return AddDays(d, -offset)
}

// WeekLabel renders the Monday-anchored week of d as a human-readable label,
// e.g. "Неделя 02.06 - 08.06".
func WeekLabel(d time.Time) string {
	start := WeekStart(d)
	end := AddDays(start, 6)
	return fmt.Sprintf("Неделя %s - %s", start.Format("02.01"), end.Format("02.01"))
}

// PlaylistQueryDate computes the effective date for a charts lookup: one week
// after release, capped at today when that window has not yet elapsed.
func PlaylistQueryDate(release, today time.Time) time.Time {
	target := AddDays(release, releaseWindowDays)
	if target.After(today) {
		return today
	}
	return target
}

// Cutoff returns the end of a release's retry window. Once the effective query
// date reaches the cutoff, placement search for the release is abandoned.
func Cutoff(release time.Time) time.Time {
	return AddDays(release, releaseWindowDays)
}
