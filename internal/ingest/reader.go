package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"slot-history-backend/internal/history"
	"slot-history-backend/internal/parse"
)

// Input column names, matched case-insensitively.
const (
	colCenterID    = "center id"
	colTestType    = "test type"
	colAgeGroup    = "center age group"
	colAppointment = "appointment timestamp"
	colGrab        = "grab timestamp"
)

var requiredColumns = []string{colCenterID, colTestType, colAgeGroup, colAppointment, colGrab}

// ReadSnapshots parses a delimited snapshot file. Appointment timestamps are
// wall times in zones.Local; grab timestamps are wall times in zones.Grab and
// are converted to zones.Local. An empty delimiter is detected from the
// header line.
func ReadSnapshots(r io.Reader, zones history.Zones, delimiter string) ([]history.Snapshot, error) {
	br := bufio.NewReader(r)
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	header = strings.TrimPrefix(header, "\ufeff")
	if strings.TrimSpace(header) == "" {
		return nil, fmt.Errorf("%w: missing header line", history.ErrInvalidInput)
	}

	comma, err := delimiterRune(delimiter, header)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(io.MultiReader(strings.NewReader(header), br))
	cr.Comma = comma
	cr.TrimLeadingSpace = true

	names, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", history.ErrInvalidInput, err)
	}
	index, err := columnIndex(names)
	if err != nil {
		return nil, err
	}

	var out []history.Snapshot
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", history.ErrInvalidInput, err)
		}
		line, _ := cr.FieldPos(0)
		if isBlank(row) {
			continue
		}
		s, err := snapshotFromRow(row, index, zones)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, s)
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no data rows", history.ErrInvalidInput)
	}
	return out, nil
}

func delimiterRune(configured, header string) (rune, error) {
	switch configured {
	case ";":
		return ';', nil
	case ",":
		return ',', nil
	case "":
		if strings.Count(header, ";") >= strings.Count(header, ",") && strings.Contains(header, ";") {
			return ';', nil
		}
		return ',', nil
	}
	return 0, fmt.Errorf("%w: unsupported delimiter %q", history.ErrInvalidInput, configured)
}

func columnIndex(names []string) (map[string]int, error) {
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[strings.ToLower(strings.TrimSpace(n))] = i
	}
	var missing []string
	for _, c := range requiredColumns {
		if _, ok := index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", history.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return index, nil
}

func snapshotFromRow(row []string, index map[string]int, zones history.Zones) (history.Snapshot, error) {
	field := func(name string) string { return row[index[name]] }

	centerID, err := parse.CenterID(field(colCenterID))
	if err != nil {
		return history.Snapshot{}, err
	}
	testType, err := parse.TestType(field(colTestType))
	if err != nil {
		return history.Snapshot{}, err
	}
	age, err := parse.AgeGroup(field(colAgeGroup))
	if err != nil {
		return history.Snapshot{}, err
	}
	appt, err := parse.Localize(field(colAppointment), zones.Local)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("appointment: %w", err)
	}
	grab, err := parse.InZone(field(colGrab), zones.Grab, zones.Local)
	if err != nil {
		return history.Snapshot{}, fmt.Errorf("grab: %w", err)
	}
	return history.Snapshot{
		CenterID:    centerID,
		TestType:    testType,
		AgeGroup:    age,
		Appointment: appt,
		Grab:        grab,
	}, nil
}

func isBlank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
