package parse

import (
	"fmt"
	"strings"
	"time"

	"slot-history-backend/internal/history"
)

// localLayouts are the wall-clock formats snapshot files use.
var localLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
}

// zonedLayouts match values that carry their own offset or zone name.
var zonedLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04Z07:00",
	"2006-01-02 15:04 -0700",
	"2006-01-02 15:04 MST",
}

// Localize interprets s as a wall-clock time in loc. Values that carry a zone
// of their own, and wall times that fall in a DST gap or overlap, are
// rejected with history.ErrTimezoneInconsistency. Unparseable values are
// history.ErrInvalidInput.
func Localize(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		return time.Time{}, fmt.Errorf("%w: no location for %q", history.ErrTimezoneInconsistency, s)
	}
	s = strings.TrimSpace(s)
	for _, layout := range zonedLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return time.Time{}, fmt.Errorf("%w: %q already carries a zone", history.ErrTimezoneInconsistency, s)
		}
	}

	wall, err := parseWall(s)
	if err != nil {
		return time.Time{}, err
	}
	return resolve(wall, loc, s)
}

// InZone interprets s as a wall-clock time in src and returns it in dst.
func InZone(s string, src, dst *time.Location) (time.Time, error) {
	t, err := Localize(s, src)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(dst), nil
}

// parseWall returns the wall-clock fields of s as a UTC time.
func parseWall(s string) (time.Time, error) {
	for _, layout := range localLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized timestamp %q", history.ErrInvalidInput, s)
}

// resolve finds the single instant whose wall clock in loc equals wall.
func resolve(wall time.Time, loc *time.Location, raw string) (time.Time, error) {
	guess := time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), loc)

	// Offsets in effect around the guess cover both sides of any transition.
	offsets := make(map[int]struct{}, 3)
	for _, d := range []time.Duration{-12 * time.Hour, 0, 12 * time.Hour} {
		_, off := guess.Add(d).Zone()
		offsets[off] = struct{}{}
	}

	var matches []time.Time
	for off := range offsets {
		candidate := wall.Add(-time.Duration(off) * time.Second).In(loc)
		if sameWall(candidate, wall) {
			matches = append(matches, candidate)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return time.Time{}, fmt.Errorf("%w: %q does not exist in %s (DST gap)", history.ErrTimezoneInconsistency, raw, loc)
	default:
		return time.Time{}, fmt.Errorf("%w: %q is ambiguous in %s (DST overlap)", history.ErrTimezoneInconsistency, raw, loc)
	}
}

func sameWall(t, wall time.Time) bool {
	y1, m1, d1 := t.Date()
	y2, m2, d2 := wall.Date()
	return y1 == y2 && m1 == m2 && d1 == d2 &&
		t.Hour() == wall.Hour() && t.Minute() == wall.Minute() &&
		t.Second() == wall.Second() && t.Nanosecond() == wall.Nanosecond()
}
