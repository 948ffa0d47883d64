package history

import (
	"fmt"
	"time"
)

// Zones is the timezone configuration threaded through parsing, the snapshot
// store and the pipeline. Local is the reference zone every timestamp is
// expressed in; Grab is the zone grab timestamps are recorded in.
type Zones struct {
	Local *time.Location
	Grab  *time.Location
}

// LoadZones resolves the named zones.
func LoadZones(local, grab string) (Zones, error) {
	l, err := time.LoadLocation(local)
	if err != nil {
		return Zones{}, fmt.Errorf("%w: local zone %q: %v", ErrTimezoneInconsistency, local, err)
	}
	g, err := time.LoadLocation(grab)
	if err != nil {
		return Zones{}, fmt.Errorf("%w: grab zone %q: %v", ErrTimezoneInconsistency, grab, err)
	}
	return Zones{Local: l, Grab: g}, nil
}
