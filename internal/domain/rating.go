package domain

import (
	"errors"
	"math"
)

// MinValue and MaxValue bound an accepted rating.
const (
	MinValue = 1
	MaxValue = 5
)

// ErrInvalidValue is returned when a rating falls outside [MinValue, MaxValue].
var ErrInvalidValue = errors.New("domain: rating value must be between 1 and 5")

// RatingEvent is a single recorded rating. Timestamp is epoch milliseconds.
type RatingEvent struct {
	ID        int64
	Value     int
	Timestamp int64
}

// Aggregate is the derived summary pushed to every viewer. Events holds the
// timestamps of all rating events, ascending.
type Aggregate struct {
	Average float64 `json:"average"`
	Events  []int64 `json:"events"`
}

// ValidateValue reports whether v is an accepted rating.
func ValidateValue(v int) error {
	if v < MinValue || v > MaxValue {
		return ErrInvalidValue
	}
	return nil
}

// ComputeAggregate derives the Aggregate from events, which must already be
// ordered by timestamp. The average is rounded to two decimals and is zero
// for an empty set.
func ComputeAggregate(events []RatingEvent) Aggregate {
	agg := Aggregate{Events: make([]int64, 0, len(events))}
	if len(events) == 0 {
		return agg
	}
	var sum int64
	for _, ev := range events {
		sum += int64(ev.Value)
		agg.Events = append(agg.Events, ev.Timestamp)
	}
	agg.Average = RoundToTwoDecimals(float64(sum) / float64(len(events)))
	return agg
}

// RoundToTwoDecimals rounds half away from zero at the second decimal.
func RoundToTwoDecimals(value float64) float64 {
	return math.Round(value*100) / 100
}
