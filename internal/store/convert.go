package store

import (
	"slot-history-backend/internal/history"
	"slot-history-backend/internal/model"
)

// Derived rows are written in UTC so range predicates compare instants on
// every driver.

func toGridRows(entries []history.TimeGridEntry) []model.TimeGridEntry {
	rows := make([]model.TimeGridEntry, len(entries))
	for i, e := range entries {
		rows[i] = model.TimeGridEntry{
			CenterID:    e.CenterID,
			TestType:    e.TestType,
			Appointment: e.Appointment.UTC(),
			Grab:        e.Grab.UTC(),
			Status:      string(e.Status),
		}
	}
	return rows
}

func toFinalRows(final []history.FinalStatusRecord) []model.FinalStatus {
	rows := make([]model.FinalStatus, len(final))
	for i, f := range final {
		rows[i] = model.FinalStatus{
			CenterID:    f.CenterID,
			TestType:    f.TestType,
			Appointment: f.Appointment.UTC(),
			LastGrab:    f.LastGrab.UTC(),
			FinalStatus: string(f.FinalStatus),
		}
	}
	return rows
}

func toActivityRows(events []history.ActivityEvent) []model.ActivityEvent {
	rows := make([]model.ActivityEvent, len(events))
	for i, e := range events {
		rows[i] = model.ActivityEvent{
			CenterID:     e.CenterID,
			TestType:     e.TestType,
			Appointment:  e.Appointment.UTC(),
			Grab:         e.Grab.UTC(),
			PreviousGrab: e.PreviousGrab.UTC(),
			Action:       string(e.Action),
		}
	}
	return rows
}

func toOccupancyRows(rates []history.OccupancyRate) []model.OccupancyRate {
	rows := make([]model.OccupancyRate, len(rates))
	for i, r := range rates {
		rows[i] = model.OccupancyRate{
			CenterID:    r.CenterID,
			TestType:    r.TestType,
			Granularity: string(r.Granularity),
			Bucket:      r.Bucket.UTC(),
			Booked:      r.Booked,
			Available:   r.Available,
		}
		if v, err := r.Rate.Value(); err == nil {
			rows[i].Rate = &v
		}
	}
	return rows
}

func toPostingRows(postings []history.FirstPosting) []model.FirstPosting {
	rows := make([]model.FirstPosting, len(postings))
	for i, p := range postings {
		rows[i] = model.FirstPosting{
			CenterID: p.CenterID,
			TestType: p.TestType,
			Day:      p.Day.UTC(),
			Grab:     p.Grab.UTC(),
		}
	}
	return rows
}

func toAppearanceRows(first []history.FirstAppearance) []model.FirstAppearance {
	rows := make([]model.FirstAppearance, len(first))
	for i, f := range first {
		rows[i] = model.FirstAppearance{
			CenterID:    f.CenterID,
			TestType:    f.TestType,
			Appointment: f.Appointment.UTC(),
			Grab:        f.Grab.UTC(),
		}
	}
	return rows
}

func toCenterRows(centers []history.CenterInfo) []model.Center {
	rows := make([]model.Center, len(centers))
	for i, c := range centers {
		rows[i] = model.Center{CenterID: c.CenterID, AgeGroup: string(c.AgeGroup), TestTypes: c.TestTypes}
	}
	return rows
}
