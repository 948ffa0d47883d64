package parse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"slot-history-backend/internal/history"
)

func TestAgeGroup(t *testing.T) {
	testCases := []struct {
		raw       string
		expected  history.AgeGroup
		expectErr bool
	}{
		{"adult", history.AgeGroupAdult, false},
		{" Child ", history.AgeGroupChild, false},
		{"children", history.AgeGroupChild, false},
		{"senior", "", true},
		{"", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.raw, func(t *testing.T) {
			got, err := AgeGroup(tc.raw)
			if tc.expectErr {
				assert.ErrorIs(t, err, history.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expected, got)
		})
	}
}

func TestCenterID(t *testing.T) {
	id, err := CenterID(" 10136")
	require.NoError(t, err)
	assert.Equal(t, 10136, id)

	for _, raw := range []string{"", "abc", "-4", "0", "12.5"} {
		_, err := CenterID(raw)
		assert.ErrorIs(t, err, history.ErrInvalidInput, raw)
	}
}

func TestTestType(t *testing.T) {
	got, err := TestType("  Blood   Test ")
	require.NoError(t, err)
	assert.Equal(t, "Blood Test", got)

	_, err = TestType("   ")
	assert.ErrorIs(t, err, history.ErrInvalidInput)
}
