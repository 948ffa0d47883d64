package model

import "time"

// SnapshotRecord is one observation of an advertised slot. Rows are immutable
// once written.
type SnapshotRecord struct {
	CenterID    int       `gorm:"primaryKey;autoIncrement:false"`
	TestType    string    `gorm:"primaryKey;size:128"`
	Appointment time.Time `gorm:"primaryKey"`
	Grab        time.Time `gorm:"primaryKey;index"`
	AgeGroup    string    `gorm:"size:16;not null"`
	CreatedAt   time.Time `gorm:"not null"`
}
