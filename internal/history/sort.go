package history

import (
	"slices"
	"strings"
	"time"
)

func comparePartition(aCenter int, aTest string, bCenter int, bTest string) int {
	if aCenter != bCenter {
		if aCenter < bCenter {
			return -1
		}
		return 1
	}
	return strings.Compare(aTest, bTest)
}

func compareSlotGrab(a, b SlotKey, aGrab, bGrab time.Time) int {
	if c := comparePartition(a.CenterID, a.TestType, b.CenterID, b.TestType); c != 0 {
		return c
	}
	if c := a.Appointment.Compare(b.Appointment); c != 0 {
		return c
	}
	return aGrab.Compare(bGrab)
}

func compareEntries(a, b TimeGridEntry) int {
	return compareSlotGrab(a.Slot(), b.Slot(), a.Grab, b.Grab)
}

// SortTimeGrid orders entries by center, test, appointment, grab.
func SortTimeGrid(entries []TimeGridEntry) {
	slices.SortStableFunc(entries, compareEntries)
}

// SortFinalStatuses orders records by center, test, appointment.
func SortFinalStatuses(records []FinalStatusRecord) {
	slices.SortStableFunc(records, func(a, b FinalStatusRecord) int {
		return compareSlotGrab(
			SlotKey{a.CenterID, a.TestType, a.Appointment},
			SlotKey{b.CenterID, b.TestType, b.Appointment},
			a.LastGrab, b.LastGrab)
	})
}

// SortActivity orders events by center, test, appointment, grab.
func SortActivity(events []ActivityEvent) {
	slices.SortStableFunc(events, func(a, b ActivityEvent) int {
		return compareSlotGrab(
			SlotKey{a.CenterID, a.TestType, a.Appointment},
			SlotKey{b.CenterID, b.TestType, b.Appointment},
			a.Grab, b.Grab)
	})
}

var granularityOrder = map[Granularity]int{
	GranularityOverall: 0,
	GranularityDay:     1,
	GranularityHour:    2,
}

// SortOccupancy orders rates by center, test, granularity, bucket.
func SortOccupancy(rates []OccupancyRate) {
	slices.SortStableFunc(rates, func(a, b OccupancyRate) int {
		if c := comparePartition(a.CenterID, a.TestType, b.CenterID, b.TestType); c != 0 {
			return c
		}
		if c := granularityOrder[a.Granularity] - granularityOrder[b.Granularity]; c != 0 {
			return c
		}
		return a.Bucket.Compare(b.Bucket)
	})
}
