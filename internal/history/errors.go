package history

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a stage receives an empty or malformed table.
	ErrInvalidInput = errors.New("invalid input")
	// ErrTimezoneInconsistency is returned when a timestamp cannot be placed on the reference clock.
	ErrTimezoneInconsistency = errors.New("timezone inconsistency")
	// ErrUndefinedRate is returned when an occupancy bucket holds no appointments.
	ErrUndefinedRate = errors.New("undefined occupancy rate")
	// ErrKeyUniquenessViolation marks rows that share a key expected to be unique.
	ErrKeyUniquenessViolation = errors.New("key uniqueness violation")
)

// Stage names used in StageError.
const (
	StageSnapshotStore = "snapshot_store"
	StageTimeGrid      = "time_grid"
	StageStatus        = "status"
	StageFinalStatus   = "final_status"
	StageActivity      = "activity"
	StageArtifacts     = "artifacts"
	StageOccupancy     = "occupancy"
)

// StageError reports which pipeline stage aborted.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	return &StageError{Stage: stage, Err: err}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
