package history

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/require"
)

const (
	testCenter = 10136
	testType   = "Blood Test"
)

func london(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/London")
	require.NoError(t, err)
	return loc
}

// at parses "2006-01-02 15:04" in loc.
func at(t *testing.T, loc *time.Location, s string) time.Time {
	t.Helper()
	ts, err := time.ParseInLocation("2006-01-02 15:04", s, loc)
	require.NoError(t, err)
	return ts
}

func snap(centerID int, test string, appointment, grab time.Time) Snapshot {
	return Snapshot{
		CenterID:    centerID,
		TestType:    test,
		AgeGroup:    AgeGroupAdult,
		Appointment: appointment,
		Grab:        grab,
	}
}

func newStore(t *testing.T, loc *time.Location, records ...Snapshot) *SnapshotStore {
	t.Helper()
	s, err := NewSnapshotStore(loc, records)
	require.NoError(t, err)
	return s
}

// scenarioStore observes grabs at 09:00, 10:00 and 11:00. Slot X (12:00) is
// only advertised at 10:00; slot Y (13:00) at 09:00 and 11:00.
func scenarioStore(t *testing.T) (*SnapshotStore, map[string]time.Time) {
	loc := london(t)
	ts := map[string]time.Time{
		"g9":  at(t, loc, "2018-06-04 09:00"),
		"g10": at(t, loc, "2018-06-04 10:00"),
		"g11": at(t, loc, "2018-06-04 11:00"),
		"X":   at(t, loc, "2018-06-04 12:00"),
		"Y":   at(t, loc, "2018-06-04 13:00"),
	}
	return newStore(t, loc,
		snap(testCenter, testType, ts["X"], ts["g10"]),
		snap(testCenter, testType, ts["Y"], ts["g9"]),
		snap(testCenter, testType, ts["Y"], ts["g11"]),
	), ts
}

func entriesFor(t *testing.T, store *SnapshotStore, opts GridOptions) []TimeGridEntry {
	t.Helper()
	points, err := BuildTimeGrid(store, opts)
	require.NoError(t, err)
	entries, err := AnnotateStatus(store, points)
	require.NoError(t, err)
	return entries
}

func timeHours(n int) time.Duration {
	return time.Duration(n) * time.Hour
}
