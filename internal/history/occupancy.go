package history

import (
	"fmt"
	"strconv"
	"time"
)

// Rate is an integer occupancy percentage in [0, 100], or UndefinedRate.
type Rate int

// UndefinedRate is reported for a bucket that holds no appointments.
const UndefinedRate Rate = -1

// maxFillBuckets bounds FillOccupancy so a wide range cannot exhaust memory.
const maxFillBuckets = 24 * 366

// ComputeRate returns floor(100*booked/(booked+available)).
func ComputeRate(booked, available int) Rate {
	total := booked + available
	if total <= 0 {
		return UndefinedRate
	}
	return Rate(100 * booked / total)
}

// Defined reports whether the bucket had any appointments.
func (r Rate) Defined() bool { return r != UndefinedRate }

// Value returns the percentage, or ErrUndefinedRate.
func (r Rate) Value() (int, error) {
	if !r.Defined() {
		return 0, ErrUndefinedRate
	}
	return int(r), nil
}

func (r Rate) String() string {
	if !r.Defined() {
		return "undefined"
	}
	return strconv.Itoa(int(r))
}

// MarshalJSON encodes an undefined rate as null.
func (r Rate) MarshalJSON() ([]byte, error) {
	if !r.Defined() {
		return []byte("null"), nil
	}
	return []byte(strconv.Itoa(int(r))), nil
}

// Bucket returns the start of the bucket t falls into. Hour buckets are
// truncated on the wall clock so half-hour offsets keep their own hours.
func Bucket(t time.Time, g Granularity) time.Time {
	switch g {
	case GranularityDay:
		return DayStart(t)
	case GranularityHour:
		return t.Add(-time.Duration(t.Minute())*time.Minute -
			time.Duration(t.Second())*time.Second -
			time.Duration(t.Nanosecond()))
	}
	return time.Time{}
}

type bucketKey struct {
	centerID int
	testType string
	bucket   int64
}

// AggregateOccupancy counts final statuses per partition and bucket.
func AggregateOccupancy(final []FinalStatusRecord, g Granularity) ([]OccupancyRate, error) {
	if !g.IsValid() {
		return nil, stageError(StageOccupancy, invalidInput("unknown granularity %q", g))
	}
	if len(final) == 0 {
		return nil, stageError(StageOccupancy, invalidInput("no final statuses"))
	}

	index := make(map[bucketKey]int)
	var out []OccupancyRate
	for _, f := range final {
		bucket := Bucket(f.Appointment, g)
		key := bucketKey{centerID: f.CenterID, testType: f.TestType}
		if g != GranularityOverall {
			key.bucket = bucket.UnixNano()
		}
		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, OccupancyRate{
				CenterID:    f.CenterID,
				TestType:    f.TestType,
				Granularity: g,
				Bucket:      bucket,
			})
		}
		switch f.FinalStatus {
		case StatusBooked:
			out[i].Booked++
		case StatusAvailable:
			out[i].Available++
		default:
			return nil, stageError(StageOccupancy, invalidInput("unknown status %q", f.FinalStatus))
		}
	}

	for i := range out {
		out[i].Rate = ComputeRate(out[i].Booked, out[i].Available)
	}
	SortOccupancy(out)
	return out, nil
}

// FillOccupancy returns one rate per bucket of g in [from, to) for the given
// partition, taking counts from rates and reporting empty buckets with zero
// counts and UndefinedRate.
func FillOccupancy(rates []OccupancyRate, key PartitionKey, g Granularity, from, to time.Time) ([]OccupancyRate, error) {
	if g != GranularityDay && g != GranularityHour {
		return nil, invalidInput("cannot fill %q buckets", g)
	}
	if !from.Before(to) {
		return nil, invalidInput("empty range %s - %s", from, to)
	}

	known := make(map[int64]OccupancyRate)
	for _, r := range rates {
		if r.CenterID == key.CenterID && r.TestType == key.TestType && r.Granularity == g {
			known[r.Bucket.UnixNano()] = r
		}
	}

	var out []OccupancyRate
	for b := Bucket(from, g); b.Before(to); b = nextBucket(b, g) {
		if len(out) >= maxFillBuckets {
			return nil, invalidInput("range %s - %s spans more than %d buckets", from, to, maxFillBuckets)
		}
		if r, ok := known[b.UnixNano()]; ok {
			out = append(out, r)
			continue
		}
		out = append(out, OccupancyRate{
			CenterID:    key.CenterID,
			TestType:    key.TestType,
			Granularity: g,
			Bucket:      b,
			Rate:        UndefinedRate,
		})
	}
	return out, nil
}

func nextBucket(b time.Time, g Granularity) time.Time {
	if g == GranularityDay {
		return DayStart(b.AddDate(0, 0, 1))
	}
	return Bucket(b.Add(time.Hour), GranularityHour)
}

// OccupancyAll computes the overall, daily and hourly rates in one table.
func OccupancyAll(final []FinalStatusRecord) ([]OccupancyRate, error) {
	var out []OccupancyRate
	for _, g := range []Granularity{GranularityOverall, GranularityDay, GranularityHour} {
		rates, err := AggregateOccupancy(final, g)
		if err != nil {
			return nil, err
		}
		out = append(out, rates...)
	}
	SortOccupancy(out)
	return out, nil
}

func (r OccupancyRate) String() string {
	if r.Granularity == GranularityOverall {
		return fmt.Sprintf("%d/%s overall %s", r.CenterID, r.TestType, r.Rate)
	}
	return fmt.Sprintf("%d/%s %s %s %s", r.CenterID, r.TestType, r.Granularity, r.Bucket.Format(time.RFC3339), r.Rate)
}
