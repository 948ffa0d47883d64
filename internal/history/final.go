package history

// ExtractFinalStatus reduces each appointment's entries to the status at its
// most recent grab. Entries sharing an (appointment, grab) key are resolved
// deterministically and returned as violations.
func ExtractFinalStatus(entries []TimeGridEntry) ([]FinalStatusRecord, []KeyUniquenessViolation, error) {
	if len(entries) == 0 {
		return nil, nil, stageError(StageFinalStatus, invalidInput("time grid is empty"))
	}
	seqs, violations, err := sequences(entries)
	if err != nil {
		return nil, nil, stageError(StageFinalStatus, err)
	}
	return finalStatuses(seqs), violations, nil
}

func finalStatuses(seqs []slotSequence) []FinalStatusRecord {
	out := make([]FinalStatusRecord, 0, len(seqs))
	for _, seq := range seqs {
		last := seq.entries[len(seq.entries)-1]
		out = append(out, FinalStatusRecord{
			CenterID:    seq.slot.CenterID,
			TestType:    seq.slot.TestType,
			Appointment: seq.slot.Appointment,
			LastGrab:    last.Grab,
			FinalStatus: last.Status,
		})
	}
	return out
}
