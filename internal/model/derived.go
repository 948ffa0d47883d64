package model

import "time"

// TimeGridEntry is one (appointment, grab) pair of the status grid.
type TimeGridEntry struct {
	CenterID    int       `gorm:"primaryKey;autoIncrement:false"`
	TestType    string    `gorm:"primaryKey;size:128"`
	Appointment time.Time `gorm:"primaryKey"`
	Grab        time.Time `gorm:"primaryKey"`
	Status      string    `gorm:"size:16;not null"`
}

// FinalStatus is the last observed status of an appointment.
type FinalStatus struct {
	CenterID    int       `gorm:"primaryKey;autoIncrement:false"`
	TestType    string    `gorm:"primaryKey;size:128"`
	Appointment time.Time `gorm:"primaryKey"`
	LastGrab    time.Time `gorm:"not null"`
	FinalStatus string    `gorm:"size:16;not null"`
}

// ActivityEvent is a detected booking or cancellation.
type ActivityEvent struct {
	CenterID     int       `gorm:"primaryKey;autoIncrement:false"`
	TestType     string    `gorm:"primaryKey;size:128"`
	Appointment  time.Time `gorm:"primaryKey"`
	Grab         time.Time `gorm:"primaryKey;index"`
	PreviousGrab time.Time `gorm:"not null"`
	Action       string    `gorm:"size:16;not null"`
}

// OccupancyRate is the share of booked appointments in a bucket. A NULL rate
// marks a bucket without appointments.
type OccupancyRate struct {
	CenterID    int       `gorm:"primaryKey;autoIncrement:false"`
	TestType    string    `gorm:"primaryKey;size:128"`
	Granularity string    `gorm:"primaryKey;size:16"`
	Bucket      time.Time `gorm:"primaryKey"`
	Booked      int       `gorm:"not null"`
	Available   int       `gorm:"not null"`
	Rate        *int
}

// FirstPosting is the earliest grab that advertised any slot on a day.
type FirstPosting struct {
	CenterID int       `gorm:"primaryKey;autoIncrement:false"`
	TestType string    `gorm:"primaryKey;size:128"`
	Day      time.Time `gorm:"primaryKey"`
	Grab     time.Time `gorm:"not null"`
}

// FirstAppearance is the earliest grab that advertised an appointment.
type FirstAppearance struct {
	CenterID    int       `gorm:"primaryKey;autoIncrement:false"`
	TestType    string    `gorm:"primaryKey;size:128"`
	Appointment time.Time `gorm:"primaryKey"`
	Grab        time.Time `gorm:"not null"`
}

// Center lists the age group and test types of a test center.
type Center struct {
	CenterID  int      `gorm:"primaryKey;autoIncrement:false"`
	AgeGroup  string   `gorm:"size:16;not null"`
	TestTypes []string `gorm:"serializer:json;not null"`
}
