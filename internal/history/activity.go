package history

import "time"

// statusRun is a maximal stretch of consecutive grabs sharing one status.
type statusRun struct {
	status Status
	first  time.Time
	last   time.Time
}

// runs run-length encodes a grab-ordered sequence.
func runs(entries []TimeGridEntry) []statusRun {
	var out []statusRun
	for _, e := range entries {
		if n := len(out); n > 0 && out[n-1].status == e.Status {
			out[n-1].last = e.Grab
			continue
		}
		out = append(out, statusRun{status: e.Status, first: e.Grab, last: e.Grab})
	}
	return out
}

// DetectActivity emits one event per status change between consecutive
// grabs of an appointment: booked to available is a cancellation, available
// to booked is a booking. The first observation of an appointment has
// nothing to compare with and never produces an event.
func DetectActivity(entries []TimeGridEntry) ([]ActivityEvent, []KeyUniquenessViolation, error) {
	if len(entries) == 0 {
		return nil, nil, stageError(StageActivity, invalidInput("time grid is empty"))
	}
	seqs, violations, err := sequences(entries)
	if err != nil {
		return nil, nil, stageError(StageActivity, err)
	}
	return activity(seqs), violations, nil
}

func activity(seqs []slotSequence) []ActivityEvent {
	var events []ActivityEvent
	for _, seq := range seqs {
		rs := runs(seq.entries)
		for i := 1; i < len(rs); i++ {
			events = append(events, ActivityEvent{
				CenterID:     seq.slot.CenterID,
				TestType:     seq.slot.TestType,
				Appointment:  seq.slot.Appointment,
				Grab:         rs[i].first,
				PreviousGrab: rs[i-1].last,
				Action:       transition(rs[i-1].status, rs[i].status),
			})
		}
	}
	return events
}

func transition(from, to Status) Action {
	if from == StatusBooked && to == StatusAvailable {
		return ActionCancel
	}
	return ActionBook
}
