package history

import (
	"fmt"
	"time"
)

// Status is the availability of an appointment slot at one grab.
type Status string

const (
	StatusAvailable Status = "available"
	StatusBooked    Status = "booked"
)

// Action is the kind of transition detected between two consecutive grabs.
type Action string

const (
	ActionBook   Action = "book"
	ActionCancel Action = "cancel"
)

// AgeGroup is the population a test center serves.
type AgeGroup string

const (
	AgeGroupAdult AgeGroup = "adult"
	AgeGroupChild AgeGroup = "child"
)

// Granularity selects the bucket an occupancy rate is computed over.
type Granularity string

const (
	GranularityOverall Granularity = "overall"
	GranularityDay     Granularity = "day"
	GranularityHour    Granularity = "hour"
)

// IsValid reports whether g is one of the known granularities.
func (g Granularity) IsValid() bool {
	switch g {
	case GranularityOverall, GranularityDay, GranularityHour:
		return true
	}
	return false
}

// PartitionKey identifies the independent unit of computation.
type PartitionKey struct {
	CenterID int
	TestType string
}

func (k PartitionKey) String() string {
	return fmt.Sprintf("%d/%s", k.CenterID, k.TestType)
}

// SlotKey is the identity of an appointment slot.
type SlotKey struct {
	CenterID    int
	TestType    string
	Appointment time.Time
}

// Partition returns the (center, test) partition the slot belongs to.
func (k SlotKey) Partition() PartitionKey {
	return PartitionKey{CenterID: k.CenterID, TestType: k.TestType}
}

// Snapshot records that at Grab the slot at Appointment was advertised as available.
type Snapshot struct {
	CenterID    int
	TestType    string
	AgeGroup    AgeGroup
	Appointment time.Time
	Grab        time.Time
}

// Slot returns the identity of the observed slot.
func (s Snapshot) Slot() SlotKey {
	return SlotKey{CenterID: s.CenterID, TestType: s.TestType, Appointment: s.Appointment}
}

// TimeGridEntry is one evaluated (appointment, grab) point.
type TimeGridEntry struct {
	CenterID    int       `json:"center_id"`
	TestType    string    `json:"test_type"`
	Appointment time.Time `json:"appointment"`
	Grab        time.Time `json:"grab"`
	Status      Status    `json:"status"`
}

// Slot returns the identity of the slot the entry belongs to.
func (e TimeGridEntry) Slot() SlotKey {
	return SlotKey{CenterID: e.CenterID, TestType: e.TestType, Appointment: e.Appointment}
}

// FinalStatusRecord is the last observed status of an appointment.
type FinalStatusRecord struct {
	CenterID    int       `json:"center_id"`
	TestType    string    `json:"test_type"`
	Appointment time.Time `json:"appointment"`
	LastGrab    time.Time `json:"last_grab"`
	FinalStatus Status    `json:"final_status"`
}

// ActivityEvent is a booking or cancellation inferred between PreviousGrab and Grab.
type ActivityEvent struct {
	CenterID     int       `json:"center_id"`
	TestType     string    `json:"test_type"`
	Appointment  time.Time `json:"appointment"`
	Grab         time.Time `json:"grab"`
	PreviousGrab time.Time `json:"previous_grab"`
	Action       Action    `json:"action"`
}

// FirstPosting is the earliest grab at which any slot of a calendar day was seen.
type FirstPosting struct {
	CenterID int       `json:"center_id"`
	TestType string    `json:"test_type"`
	Day      time.Time `json:"day"`
	Grab     time.Time `json:"grab"`
}

// FirstAppearance is the earliest grab at which a single slot was seen.
type FirstAppearance struct {
	CenterID    int       `json:"center_id"`
	TestType    string    `json:"test_type"`
	Appointment time.Time `json:"appointment"`
	Grab        time.Time `json:"grab"`
}

// CenterInfo lists the tests administered by a center and the age group it serves.
type CenterInfo struct {
	CenterID  int      `json:"center_id"`
	AgeGroup  AgeGroup `json:"age_group"`
	TestTypes []string `json:"test_types"`
}

// OccupancyRate aggregates final statuses over one bucket.
// Bucket is the zero time for GranularityOverall.
type OccupancyRate struct {
	CenterID    int         `json:"center_id"`
	TestType    string      `json:"test_type"`
	Granularity Granularity `json:"granularity"`
	Bucket      time.Time   `json:"bucket"`
	Booked      int         `json:"booked"`
	Available   int         `json:"available"`
	Rate        Rate        `json:"rate"`
}

// KeyUniquenessViolation describes rows sharing a key that must be unique.
type KeyUniquenessViolation struct {
	Table       string
	CenterID    int
	TestType    string
	Appointment time.Time
	Grab        time.Time
	Count       int
}

func (v KeyUniquenessViolation) Error() string {
	return fmt.Sprintf("%s: %d rows for center %d test %q appointment %s grab %s",
		v.Table, v.Count, v.CenterID, v.TestType,
		v.Appointment.Format(time.RFC3339), v.Grab.Format(time.RFC3339))
}

// Unwrap lets errors.Is match ErrKeyUniquenessViolation.
func (v KeyUniquenessViolation) Unwrap() error {
	return ErrKeyUniquenessViolation
}
