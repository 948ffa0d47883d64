package model

import (
	"time"

	"github.com/google/uuid"
)

// ComputationRun records one recomputation of the derived tables.
type ComputationRun struct {
	ID                  uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	StartedAt           time.Time `gorm:"not null;index" json:"started_at"`
	FinishedAt          time.Time `gorm:"not null" json:"finished_at"`
	ArtifactRule        string    `gorm:"size:32;not null" json:"artifact_rule"`
	RestrictToPast      bool      `gorm:"not null" json:"restrict_to_past"`
	Snapshots           int       `gorm:"not null" json:"snapshots"`
	GridEntries         int       `gorm:"not null" json:"grid_entries"`
	FinalStatuses       int       `gorm:"not null" json:"final_statuses"`
	DetectedEvents      int       `gorm:"not null" json:"detected_events"`
	ActivityEvents      int       `gorm:"not null" json:"activity_events"`
	SuppressedArtifacts int       `gorm:"not null" json:"suppressed_artifacts"`
	Violations          int       `gorm:"not null" json:"violations"`
	MaxGrab             time.Time `gorm:"not null" json:"max_grab"`
}
