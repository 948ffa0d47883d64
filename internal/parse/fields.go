package parse

import (
	"fmt"
	"strconv"
	"strings"

	"slot-history-backend/internal/history"
)

// AgeGroup maps the age group column to a history.AgeGroup.
func AgeGroup(raw string) (history.AgeGroup, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "adult", "adults":
		return history.AgeGroupAdult, nil
	case "child", "children":
		return history.AgeGroupChild, nil
	}
	return "", fmt.Errorf("%w: unknown age group %q", history.ErrInvalidInput, raw)
}

// CenterID parses a positive numeric center identifier.
func CenterID(raw string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid center id %q", history.ErrInvalidInput, raw)
	}
	return id, nil
}

// TestType normalizes the test type column.
func TestType(raw string) (string, error) {
	s := strings.Join(strings.Fields(raw), " ")
	if s == "" {
		return "", fmt.Errorf("%w: empty test type", history.ErrInvalidInput)
	}
	return s, nil
}
