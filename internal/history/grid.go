package history

import (
	"slices"
	"sort"
	"time"
)

// GridOptions tunes which appointments are evaluated.
type GridOptions struct {
	// RestrictToPast keeps only appointments at or before the most recent
	// grab of the whole store; later appointments have no final outcome yet.
	RestrictToPast bool
}

// GridPoint is an (appointment, grab) pair worth evaluating, before status is known.
type GridPoint struct {
	CenterID    int
	TestType    string
	Appointment time.Time
	Grab        time.Time
}

// BuildTimeGrid returns, for every partition, the observed grabs crossed with
// the observed appointments, keeping only pairs where grab <= appointment.
// Points are ordered by center, test, appointment, grab.
func BuildTimeGrid(store *SnapshotStore, opts GridOptions) ([]GridPoint, error) {
	if store == nil || store.Len() == 0 {
		return nil, stageError(StageTimeGrid, invalidInput("snapshot store is empty"))
	}

	var points []GridPoint
	for _, key := range store.Partitions() {
		points = append(points, partitionGrid(key, store.partition(key), store.MaxGrab(), opts)...)
	}
	if len(points) == 0 {
		return nil, stageError(StageTimeGrid, invalidInput("no grab precedes any appointment"))
	}
	return points, nil
}

// partitionGrid builds the grid of a single partition. records must all
// belong to key; cutoff is the global most recent grab.
func partitionGrid(key PartitionKey, records []Snapshot, cutoff time.Time, opts GridOptions) []GridPoint {
	grabs := distinctTimes(records, func(r Snapshot) time.Time { return r.Grab })
	appointments := distinctTimes(records, func(r Snapshot) time.Time { return r.Appointment })

	var points []GridPoint
	for _, a := range appointments {
		if opts.RestrictToPast && a.After(cutoff) {
			break
		}
		// grabs is sorted, so the pairs with g <= a form a prefix.
		n := sort.Search(len(grabs), func(i int) bool { return grabs[i].After(a) })
		for _, g := range grabs[:n] {
			points = append(points, GridPoint{
				CenterID:    key.CenterID,
				TestType:    key.TestType,
				Appointment: a,
				Grab:        g,
			})
		}
	}
	return points
}

func distinctTimes(records []Snapshot, field func(Snapshot) time.Time) []time.Time {
	seen := make(map[int64]struct{}, len(records))
	out := make([]time.Time, 0, len(records))
	for _, r := range records {
		t := field(r)
		if _, ok := seen[t.UnixNano()]; ok {
			continue
		}
		seen[t.UnixNano()] = struct{}{}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b time.Time) int { return a.Compare(b) })
	return out
}

// AnnotateStatus labels each grid point available when a snapshot with the
// exact key exists and booked otherwise.
func AnnotateStatus(store *SnapshotStore, points []GridPoint) ([]TimeGridEntry, error) {
	if store == nil || store.Len() == 0 {
		return nil, stageError(StageStatus, invalidInput("snapshot store is empty"))
	}
	if len(points) == 0 {
		return nil, stageError(StageStatus, invalidInput("time grid is empty"))
	}
	return annotate(store, points), nil
}

func annotate(store *SnapshotStore, points []GridPoint) []TimeGridEntry {
	entries := make([]TimeGridEntry, len(points))
	for i, p := range points {
		status := StatusBooked
		if store.IsAvailable(p.CenterID, p.TestType, p.Appointment, p.Grab) {
			status = StatusAvailable
		}
		entries[i] = TimeGridEntry{
			CenterID:    p.CenterID,
			TestType:    p.TestType,
			Appointment: p.Appointment,
			Grab:        p.Grab,
			Status:      status,
		}
	}
	return entries
}
