package history

import (
	"context"
	"slices"
	"time"
)

// Options configures a pipeline run.
type Options struct {
	RestrictToPast bool
	ArtifactRule   ArtifactRule
	// Workers is the number of partitions processed concurrently.
	Workers int
}

// Result holds every table derived from a snapshot store.
type Result struct {
	TimeGrid            []TimeGridEntry
	FinalStatuses       []FinalStatusRecord
	Activity            []ActivityEvent
	DetectedEvents      int
	SuppressedArtifacts int
	FirstPostings       []FirstPosting
	FirstAppearances    []FirstAppearance
	Occupancy           []OccupancyRate
	Centers             []CenterInfo
	Violations          []KeyUniquenessViolation
	MaxGrab             time.Time
}

// Run derives the time grid, final statuses, filtered activity and occupancy
// rates from store. Partitions are computed independently on opts.Workers
// workers and merged in natural key order. Any stage failure aborts the run.
func Run(ctx context.Context, store *SnapshotStore, opts Options) (*Result, error) {
	if store == nil || store.Len() == 0 {
		return nil, stageError(StageSnapshotStore, invalidInput("snapshot store is empty"))
	}
	rule := opts.ArtifactRule
	if rule == "" {
		rule = ArtifactRuleCancelOnly
	}

	gridOpts := GridOptions{RestrictToPast: opts.RestrictToPast}
	keys := store.Partitions()
	pool := newPartitionPool(opts.Workers, len(keys), func(key PartitionKey) partitionResult {
		entries := annotate(store, partitionGrid(key, store.partition(key), store.MaxGrab(), gridOpts))
		// entries come out of the grid unique and ordered, so no violation is possible here.
		seqs, _, _ := sequences(entries)
		return partitionResult{
			key:      key,
			grid:     entries,
			final:    finalStatuses(seqs),
			activity: activity(seqs),
		}
	})

	parts, err := pool.run(ctx, keys)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(parts, func(a, b partitionResult) int {
		return comparePartition(a.key.CenterID, a.key.TestType, b.key.CenterID, b.key.TestType)
	})

	res := &Result{
		Violations: store.Violations(),
		MaxGrab:    store.MaxGrab(),
	}
	var raw []ActivityEvent
	for _, p := range parts {
		res.TimeGrid = append(res.TimeGrid, p.grid...)
		res.FinalStatuses = append(res.FinalStatuses, p.final...)
		raw = append(raw, p.activity...)
	}
	if len(res.TimeGrid) == 0 {
		return nil, stageError(StageTimeGrid, invalidInput("no grab precedes any appointment"))
	}
	SortTimeGrid(res.TimeGrid)
	SortFinalStatuses(res.FinalStatuses)
	SortActivity(raw)
	res.DetectedEvents = len(raw)

	res.FirstPostings = FirstPostings(store)
	res.FirstAppearances = FirstAppearances(store)
	res.Activity, res.SuppressedArtifacts, err = FilterArtifacts(raw, res.FirstPostings, rule)
	if err != nil {
		return nil, err
	}

	res.Occupancy, err = OccupancyAll(res.FinalStatuses)
	if err != nil {
		return nil, err
	}
	res.Centers = Centers(store)
	return res, nil
}

// Centers lists every center with the age group it serves and its tests.
func Centers(store *SnapshotStore) []CenterInfo {
	var out []CenterInfo
	for _, key := range store.Partitions() {
		records := store.partition(key)
		age := records[0].AgeGroup
		for _, r := range records[1:] {
			if r.AgeGroup < age {
				age = r.AgeGroup
			}
		}
		if n := len(out); n > 0 && out[n-1].CenterID == key.CenterID {
			out[n-1].TestTypes = append(out[n-1].TestTypes, key.TestType)
			if age < out[n-1].AgeGroup {
				out[n-1].AgeGroup = age
			}
			continue
		}
		out = append(out, CenterInfo{CenterID: key.CenterID, AgeGroup: age, TestTypes: []string{key.TestType}})
	}
	return out
}
