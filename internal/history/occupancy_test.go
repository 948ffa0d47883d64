package history

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeRate(t *testing.T) {
	testCases := []struct {
		name      string
		booked    int
		available int
		expected  Rate
	}{
		{"all booked", 3, 0, 100},
		{"all available", 0, 4, 0},
		{"floor of a third", 1, 2, 33},
		{"floor of two thirds", 2, 1, 66},
		{"empty bucket", 0, 0, UndefinedRate},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ComputeRate(tc.booked, tc.available))
		})
	}
}

func TestRate_Undefined(t *testing.T) {
	_, err := UndefinedRate.Value()
	assert.ErrorIs(t, err, ErrUndefinedRate)
	assert.Equal(t, "undefined", UndefinedRate.String())

	v, err := Rate(42).Value()
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	b, err := json.Marshal(struct {
		A Rate `json:"a"`
		B Rate `json:"b"`
	}{A: UndefinedRate, B: 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":null,"b":7}`, string(b))
}

func TestAggregateOccupancy(t *testing.T) {
	loc := london(t)
	grab := at(t, loc, "2018-06-01 09:00")
	rec := func(appt string, s Status) FinalStatusRecord {
		return FinalStatusRecord{CenterID: 1, TestType: "A", Appointment: at(t, loc, appt), LastGrab: grab, FinalStatus: s}
	}
	final := []FinalStatusRecord{
		rec("2018-06-04 09:00", StatusBooked),
		rec("2018-06-04 09:15", StatusBooked),
		rec("2018-06-04 09:30", StatusBooked),
		rec("2018-06-04 10:00", StatusAvailable),
		rec("2018-06-05 09:00", StatusAvailable),
		{CenterID: 2, TestType: "A", Appointment: at(t, loc, "2018-06-04 09:00"), LastGrab: grab, FinalStatus: StatusBooked},
	}

	t.Run("overall", func(t *testing.T) {
		rates, err := AggregateOccupancy(final, GranularityOverall)
		require.NoError(t, err)
		require.Len(t, rates, 2)
		assert.Equal(t, OccupancyRate{CenterID: 1, TestType: "A", Granularity: GranularityOverall, Booked: 3, Available: 2, Rate: 60}, rates[0])
		assert.Equal(t, Rate(100), rates[1].Rate)
		assert.Equal(t, 0, rates[1].Available, "missing status is reported as zero")
	})

	t.Run("daily", func(t *testing.T) {
		rates, err := AggregateOccupancy(final, GranularityDay)
		require.NoError(t, err)
		require.Len(t, rates, 3)
		assert.True(t, rates[0].Bucket.Equal(at(t, loc, "2018-06-04 00:00")))
		assert.Equal(t, Rate(75), rates[0].Rate)
		assert.Equal(t, Rate(0), rates[1].Rate)
		assert.Equal(t, 1, rates[1].Available)
	})

	t.Run("hourly", func(t *testing.T) {
		rates, err := AggregateOccupancy(final, GranularityHour)
		require.NoError(t, err)
		require.Len(t, rates, 4)
		assert.True(t, rates[0].Bucket.Equal(at(t, loc, "2018-06-04 09:00")))
		assert.Equal(t, 3, rates[0].Booked)
		assert.Equal(t, Rate(100), rates[0].Rate)
	})

	t.Run("counts add up to the records of a bucket", func(t *testing.T) {
		for _, g := range []Granularity{GranularityOverall, GranularityDay, GranularityHour} {
			rates, err := AggregateOccupancy(final, g)
			require.NoError(t, err)
			total := 0
			for _, r := range rates {
				total += r.Booked + r.Available
				v, err := r.Rate.Value()
				require.NoError(t, err)
				assert.GreaterOrEqual(t, v, 0)
				assert.LessOrEqual(t, v, 100)
			}
			assert.Equal(t, len(final), total)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		_, err := AggregateOccupancy(nil, GranularityDay)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = AggregateOccupancy(final, "week")
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = AggregateOccupancy([]FinalStatusRecord{rec("2018-06-04 09:00", "unknown")}, GranularityDay)
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestFillOccupancy(t *testing.T) {
	loc := london(t)
	key := PartitionKey{CenterID: 1, TestType: "A"}
	rates := []OccupancyRate{
		{CenterID: 1, TestType: "A", Granularity: GranularityDay, Bucket: at(t, loc, "2018-06-05 00:00"), Booked: 3, Rate: 100},
		{CenterID: 2, TestType: "A", Granularity: GranularityDay, Bucket: at(t, loc, "2018-06-04 00:00"), Booked: 1, Rate: 100},
	}

	filled, err := FillOccupancy(rates, key, GranularityDay, at(t, loc, "2018-06-04 12:00"), at(t, loc, "2018-06-07 00:00"))
	require.NoError(t, err)
	require.Len(t, filled, 3)
	assert.Equal(t, UndefinedRate, filled[0].Rate)
	assert.Zero(t, filled[0].Booked+filled[0].Available)
	assert.Equal(t, Rate(100), filled[1].Rate)
	assert.Equal(t, UndefinedRate, filled[2].Rate)
	assert.True(t, filled[2].Bucket.Equal(at(t, loc, "2018-06-06 00:00")))

	t.Run("hours across the autumn clock change", func(t *testing.T) {
		from := at(t, loc, "2018-10-28 00:00")
		filled, err := FillOccupancy(nil, key, GranularityHour, from, from.Add(timeHours(4)))
		require.NoError(t, err)
		assert.Len(t, filled, 4, "the repeated 01:00 hour is its own bucket")
	})

	t.Run("invalid ranges", func(t *testing.T) {
		from := at(t, loc, "2018-06-04 00:00")
		_, err := FillOccupancy(rates, key, GranularityOverall, from, from.Add(timeHours(1)))
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = FillOccupancy(rates, key, GranularityDay, from, from)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = FillOccupancy(rates, key, GranularityHour, from, from.AddDate(2, 0, 0))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
