package history

import (
	"fmt"
	"time"
)

// ArtifactRule selects which events at a day's first posting are dropped.
type ArtifactRule string

const (
	// ArtifactRuleCancelOnly drops cancellations only; a slot posted already
	// booked is a genuine booking.
	ArtifactRuleCancelOnly ArtifactRule = "cancel_only"
	// ArtifactRuleAny drops every event at the first posting.
	ArtifactRuleAny ArtifactRule = "any"
)

// ParseArtifactRule validates a configured rule name. Empty means cancel_only.
func ParseArtifactRule(s string) (ArtifactRule, error) {
	switch ArtifactRule(s) {
	case "", ArtifactRuleCancelOnly:
		return ArtifactRuleCancelOnly, nil
	case ArtifactRuleAny:
		return ArtifactRuleAny, nil
	}
	return "", fmt.Errorf("%w: unknown artifact rule %q", ErrInvalidInput, s)
}

func (r ArtifactRule) suppresses(a Action) bool {
	if r == ArtifactRuleAny {
		return true
	}
	return a == ActionCancel
}

type dayKey struct {
	centerID int
	testType string
	day      int64
}

func newDayKey(centerID int, testType string, appointment time.Time) dayKey {
	return dayKey{centerID: centerID, testType: testType, day: DayStart(appointment).UnixNano()}
}

// DayStart truncates t to local midnight in its own location.
func DayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// FirstPostings returns, per center, test and calendar day of appointment,
// the earliest grab at which any appointment of that day was available.
func FirstPostings(store *SnapshotStore) []FirstPosting {
	index := make(map[dayKey]int)
	var out []FirstPosting
	for _, r := range store.records {
		key := newDayKey(r.CenterID, r.TestType, r.Appointment)
		if i, ok := index[key]; ok {
			if r.Grab.Before(out[i].Grab) {
				out[i].Grab = r.Grab
			}
			continue
		}
		index[key] = len(out)
		out = append(out, FirstPosting{
			CenterID: r.CenterID,
			TestType: r.TestType,
			Day:      DayStart(r.Appointment),
			Grab:     r.Grab,
		})
	}
	return out
}

// FirstAppearances returns the earliest grab at which each appointment was available.
func FirstAppearances(store *SnapshotStore) []FirstAppearance {
	var out []FirstAppearance
	for _, r := range store.records {
		// records are sorted by appointment then grab, so the first row of a slot wins.
		if n := len(out); n > 0 && out[n-1].CenterID == r.CenterID &&
			out[n-1].TestType == r.TestType && out[n-1].Appointment.Equal(r.Appointment) {
			continue
		}
		out = append(out, FirstAppearance{
			CenterID:    r.CenterID,
			TestType:    r.TestType,
			Appointment: r.Appointment,
			Grab:        r.Grab,
		})
	}
	return out
}

// FilterArtifacts drops events that fall on the first posting of their
// appointment's day, according to rule. It returns the kept events and the
// number suppressed.
func FilterArtifacts(events []ActivityEvent, postings []FirstPosting, rule ArtifactRule) ([]ActivityEvent, int, error) {
	if rule != ArtifactRuleCancelOnly && rule != ArtifactRuleAny {
		return nil, 0, stageError(StageArtifacts, fmt.Errorf("%w: unknown artifact rule %q", ErrInvalidInput, rule))
	}
	if len(events) > 0 && len(postings) == 0 {
		return nil, 0, stageError(StageArtifacts, invalidInput("no first postings for %d events", len(events)))
	}

	firstPosting := make(map[dayKey]time.Time, len(postings))
	for _, p := range postings {
		firstPosting[newDayKey(p.CenterID, p.TestType, p.Day)] = p.Grab
	}

	kept := make([]ActivityEvent, 0, len(events))
	suppressed := 0
	for _, e := range events {
		posted, ok := firstPosting[newDayKey(e.CenterID, e.TestType, e.Appointment)]
		if ok && e.Grab.Equal(posted) && rule.suppresses(e.Action) {
			suppressed++
			continue
		}
		kept = append(kept, e)
	}
	return kept, suppressed, nil
}
