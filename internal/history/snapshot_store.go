package history

import (
	"fmt"
	"slices"
	"time"
)

// observationKey is the exact key a snapshot is looked up by. Times are
// compared as instants so two representations of the same moment match.
type observationKey struct {
	centerID    int
	testType    string
	appointment int64
	grab        int64
}

func newObservationKey(centerID int, testType string, appointment, grab time.Time) observationKey {
	return observationKey{
		centerID:    centerID,
		testType:    testType,
		appointment: appointment.UnixNano(),
		grab:        grab.UnixNano(),
	}
}

// SnapshotStore is the immutable, normalized set of observed availability records.
type SnapshotStore struct {
	loc         *time.Location
	records     []Snapshot
	partitions  []PartitionKey
	byPartition map[PartitionKey][]Snapshot
	available   map[observationKey]struct{}
	maxGrab     time.Time
	violations  []KeyUniquenessViolation
}

// NewSnapshotStore validates and indexes records. Every timestamp must already
// be expressed in loc. Records sharing a full key are collapsed to one and
// reported through Violations.
func NewSnapshotStore(loc *time.Location, records []Snapshot) (*SnapshotStore, error) {
	if loc == nil {
		return nil, invalidInput("reference location is not set")
	}
	if len(records) == 0 {
		return nil, invalidInput("no snapshot records")
	}

	for i, r := range records {
		if err := validateSnapshot(loc, r); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
	}

	sorted := slices.Clone(records)
	slices.SortFunc(sorted, compareSnapshots)

	s := &SnapshotStore{
		loc:         loc,
		records:     make([]Snapshot, 0, len(sorted)),
		byPartition: make(map[PartitionKey][]Snapshot),
		available:   make(map[observationKey]struct{}, len(sorted)),
		violations:  DuplicateSnapshots(sorted),
	}

	for i := 0; i < len(sorted); {
		r := sorted[i]
		key := newObservationKey(r.CenterID, r.TestType, r.Appointment, r.Grab)
		j := i + 1
		for j < len(sorted) && newObservationKey(sorted[j].CenterID, sorted[j].TestType, sorted[j].Appointment, sorted[j].Grab) == key {
			j++
		}
		s.records = append(s.records, r)
		s.available[key] = struct{}{}
		if r.Grab.After(s.maxGrab) {
			s.maxGrab = r.Grab
		}
		i = j
	}

	start := 0
	for i := 1; i <= len(s.records); i++ {
		if i < len(s.records) && partitionOf(s.records[i]) == partitionOf(s.records[start]) {
			continue
		}
		key := partitionOf(s.records[start])
		s.partitions = append(s.partitions, key)
		s.byPartition[key] = s.records[start:i:i]
		start = i
	}

	return s, nil
}

// DuplicateSnapshots reports every key shared by more than one of records,
// ordered by key.
func DuplicateSnapshots(records []Snapshot) []KeyUniquenessViolation {
	sorted := slices.Clone(records)
	slices.SortFunc(sorted, compareSnapshots)

	var out []KeyUniquenessViolation
	for i := 0; i < len(sorted); {
		r := sorted[i]
		key := newObservationKey(r.CenterID, r.TestType, r.Appointment, r.Grab)
		j := i + 1
		for j < len(sorted) && newObservationKey(sorted[j].CenterID, sorted[j].TestType, sorted[j].Appointment, sorted[j].Grab) == key {
			j++
		}
		if j-i > 1 {
			out = append(out, KeyUniquenessViolation{
				Table:       "snapshot_records",
				CenterID:    r.CenterID,
				TestType:    r.TestType,
				Appointment: r.Appointment,
				Grab:        r.Grab,
				Count:       j - i,
			})
		}
		i = j
	}
	return out
}

func validateSnapshot(loc *time.Location, r Snapshot) error {
	if r.TestType == "" {
		return invalidInput("empty test type")
	}
	if r.AgeGroup != AgeGroupAdult && r.AgeGroup != AgeGroupChild {
		return invalidInput("unknown age group %q", r.AgeGroup)
	}
	if r.Appointment.IsZero() || r.Grab.IsZero() {
		return invalidInput("missing appointment or grab timestamp")
	}
	if r.Appointment.Location().String() != loc.String() {
		return fmt.Errorf("%w: appointment in %s, expected %s", ErrTimezoneInconsistency, r.Appointment.Location(), loc)
	}
	if r.Grab.Location().String() != loc.String() {
		return fmt.Errorf("%w: grab in %s, expected %s", ErrTimezoneInconsistency, r.Grab.Location(), loc)
	}
	return nil
}

func partitionOf(r Snapshot) PartitionKey {
	return PartitionKey{CenterID: r.CenterID, TestType: r.TestType}
}

func compareSnapshots(a, b Snapshot) int {
	if a.CenterID != b.CenterID {
		return a.CenterID - b.CenterID
	}
	if a.TestType != b.TestType {
		if a.TestType < b.TestType {
			return -1
		}
		return 1
	}
	if c := a.Appointment.Compare(b.Appointment); c != 0 {
		return c
	}
	if c := a.Grab.Compare(b.Grab); c != 0 {
		return c
	}
	switch {
	case a.AgeGroup < b.AgeGroup:
		return -1
	case a.AgeGroup > b.AgeGroup:
		return 1
	}
	return 0
}

// Location is the reference zone every timestamp is expressed in.
func (s *SnapshotStore) Location() *time.Location { return s.loc }

// Len is the number of distinct records.
func (s *SnapshotStore) Len() int { return len(s.records) }

// Records returns a copy of the records sorted by center, test, appointment, grab.
func (s *SnapshotStore) Records() []Snapshot { return slices.Clone(s.records) }

// Partitions returns the (center, test) partitions in ascending order.
func (s *SnapshotStore) Partitions() []PartitionKey { return slices.Clone(s.partitions) }

// MaxGrab is the most recent grab across the whole store.
func (s *SnapshotStore) MaxGrab() time.Time { return s.maxGrab }

// Violations lists duplicate records collapsed at construction.
func (s *SnapshotStore) Violations() []KeyUniquenessViolation { return slices.Clone(s.violations) }

// IsAvailable reports whether the slot was advertised at grab.
func (s *SnapshotStore) IsAvailable(centerID int, testType string, appointment, grab time.Time) bool {
	_, ok := s.available[newObservationKey(centerID, testType, appointment, grab)]
	return ok
}

func (s *SnapshotStore) partition(key PartitionKey) []Snapshot {
	return s.byPartition[key]
}
