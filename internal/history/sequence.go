package history

import (
	"slices"
	"strings"
)

// slotSequence is the grab-ordered status history of one appointment.
type slotSequence struct {
	slot    SlotKey
	entries []TimeGridEntry
}

// sequences groups entries by appointment and orders each group by grab.
// When several entries share a grab, the one with the smallest status is
// kept and the duplicate is reported.
func sequences(entries []TimeGridEntry) ([]slotSequence, []KeyUniquenessViolation, error) {
	for _, e := range entries {
		if e.Status != StatusAvailable && e.Status != StatusBooked {
			return nil, nil, invalidInput("unknown status %q", e.Status)
		}
		if e.Grab.After(e.Appointment) {
			return nil, nil, invalidInput("grab %s after appointment %s", e.Grab, e.Appointment)
		}
	}

	sorted := slices.Clone(entries)
	slices.SortFunc(sorted, func(a, b TimeGridEntry) int {
		if c := compareEntries(a, b); c != 0 {
			return c
		}
		return strings.Compare(string(a.Status), string(b.Status))
	})

	var (
		seqs       []slotSequence
		violations []KeyUniquenessViolation
	)
	for i := 0; i < len(sorted); {
		e := sorted[i]
		j := i + 1
		for j < len(sorted) && sameSlot(sorted[j], e) && sorted[j].Grab.Equal(e.Grab) {
			j++
		}
		if j-i > 1 {
			violations = append(violations, KeyUniquenessViolation{
				Table:       "time_grid",
				CenterID:    e.CenterID,
				TestType:    e.TestType,
				Appointment: e.Appointment,
				Grab:        e.Grab,
				Count:       j - i,
			})
		}
		if n := len(seqs); n == 0 || !sameSlot(seqs[n-1].entries[0], e) {
			seqs = append(seqs, slotSequence{slot: e.Slot()})
		}
		last := &seqs[len(seqs)-1]
		last.entries = append(last.entries, e)
		i = j
	}
	return seqs, violations, nil
}

func sameSlot(a, b TimeGridEntry) bool {
	return a.CenterID == b.CenterID && a.TestType == b.TestType && a.Appointment.Equal(b.Appointment)
}
