// Package export writes the derived tables as CSV, XLSX and PDF.
package export

import (
	"strconv"
	"time"

	"slot-history-backend/internal/history"
)

// TimeLayout is used for every timestamp cell. The offset keeps the two
// occurrences of a repeated autumn hour apart.
const TimeLayout = time.RFC3339

// Table is a named grid of string cells with a fixed header.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(TimeLayout)
}

// TimeGridTable renders the evaluated grid.
func TimeGridTable(entries []history.TimeGridEntry) Table {
	t := Table{Name: "time_grid", Header: []string{"center id", "test type", "appointment", "grab", "status"}}
	for _, e := range entries {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(e.CenterID), e.TestType, formatTime(e.Appointment), formatTime(e.Grab), string(e.Status),
		})
	}
	return t
}

// FinalStatusTable renders one row per appointment.
func FinalStatusTable(final []history.FinalStatusRecord) Table {
	t := Table{Name: "final_status", Header: []string{"center id", "test type", "appointment", "last grab", "final status"}}
	for _, f := range final {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(f.CenterID), f.TestType, formatTime(f.Appointment), formatTime(f.LastGrab), string(f.FinalStatus),
		})
	}
	return t
}

// ActivityTable renders bookings and cancellations.
func ActivityTable(events []history.ActivityEvent) Table {
	t := Table{Name: "activity", Header: []string{"center id", "test type", "appointment", "grab", "previous grab", "action"}}
	for _, e := range events {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(e.CenterID), e.TestType, formatTime(e.Appointment), formatTime(e.Grab), formatTime(e.PreviousGrab), string(e.Action),
		})
	}
	return t
}

// OccupancyTable renders rates; undefined rates are written as "undefined".
func OccupancyTable(rates []history.OccupancyRate) Table {
	t := Table{Name: "occupancy", Header: []string{"center id", "test type", "granularity", "bucket", "booked", "available", "rate"}}
	for _, r := range rates {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(r.CenterID), r.TestType, string(r.Granularity), formatTime(r.Bucket),
			strconv.Itoa(r.Booked), strconv.Itoa(r.Available), r.Rate.String(),
		})
	}
	return t
}

// FirstPostingTable renders the first grab of every appointment day.
func FirstPostingTable(postings []history.FirstPosting) Table {
	t := Table{Name: "first_postings", Header: []string{"center id", "test type", "day", "grab"}}
	for _, p := range postings {
		t.Rows = append(t.Rows, []string{
			strconv.Itoa(p.CenterID), p.TestType, p.Day.Format("2006-01-02"), formatTime(p.Grab),
		})
	}
	return t
}

// Tables returns every exported table of res in a fixed order.
func Tables(res *history.Result) []Table {
	return []Table{
		TimeGridTable(res.TimeGrid),
		FinalStatusTable(res.FinalStatuses),
		ActivityTable(res.Activity),
		OccupancyTable(res.Occupancy),
		FirstPostingTable(res.FirstPostings),
	}
}
