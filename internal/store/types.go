package store

import (
	"time"

	"slot-history-backend/internal/history"
)

// SlotHistory is everything recorded about one appointment slot.
type SlotHistory struct {
	CenterID        int                        `json:"center_id"`
	TestType        string                     `json:"test_type"`
	Appointment     time.Time                  `json:"appointment"`
	FirstAppearance *time.Time                 `json:"first_appearance"`
	Final           *history.FinalStatusRecord `json:"final"`
	Grid            []history.TimeGridEntry    `json:"grid"`
	Activity        []history.ActivityEvent    `json:"activity"`
}

// TimeRange bounds a query; zero ends are open.
type TimeRange struct {
	From time.Time
	To   time.Time
}
