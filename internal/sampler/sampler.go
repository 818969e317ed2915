// Package sampler turns an unevenly spaced set of event timestamps into a
// fixed-cadence cumulative count series over a trailing window.
package sampler

import (
	"errors"
	"slices"
	"sort"
	"time"
)

// MinSteps is the fewest cadence steps a series is built from.
const MinSteps = 2

// ErrInvalidParams is returned for a non-positive window or interval.
var ErrInvalidParams = errors.New("sampler: window and interval must be positive")

// Point is one sample: Count events had a timestamp at or before T (epoch ms).
type Point struct {
	T     int64
	Count int
}

// Series is a sampled trailing window [Start, End], both epoch ms.
type Series struct {
	Start  int64
	End    int64
	Points []Point
}

// Params fixes the window length and cadence.
type Params struct {
	Window   time.Duration
	Interval time.Duration
}

// WindowMs returns the window length in milliseconds.
func (p Params) WindowMs() int64 {
	return p.Window.Milliseconds()
}

// Steps returns max(MinSteps, floor(window / interval)).
func (p Params) Steps() int {
	steps := int(p.Window.Milliseconds() / p.Interval.Milliseconds())
	if steps < MinSteps {
		return MinSteps
	}
	return steps
}

// Validate rejects windows or intervals shorter than a millisecond.
func (p Params) Validate() error {
	if p.Window.Milliseconds() <= 0 || p.Interval.Milliseconds() <= 0 {
		return ErrInvalidParams
	}
	return nil
}

// Sample builds the series for events (epoch ms, any order) ending at now.
//
// It emits Steps()+1 instants at start + i*interval, followed by a closing
// point pinned to now, so the result always has Steps()+2 points and the
// last point counts every event up to the window's end. Points are ordered
// by T. events is not modified.
func Sample(events []int64, p Params, now int64) (Series, error) {
	if err := p.Validate(); err != nil {
		return Series{}, err
	}

	sorted := slices.Clone(events)
	slices.Sort(sorted)

	steps := p.Steps()
	interval := p.Interval.Milliseconds()
	start := now - p.WindowMs()

	points := make([]Point, 0, steps+2)
	for i := 0; i <= steps; i++ {
		t := start + int64(i)*interval
		points = append(points, Point{T: t, Count: countAtOrBefore(sorted, t)})
	}
	// With fewer than MinSteps whole intervals in the window the grid runs
	// past now; the closing point then repeats the last instant.
	closing := now
	if last := points[len(points)-1].T; last > closing {
		closing = last
	}
	points = append(points, Point{T: closing, Count: countAtOrBefore(sorted, closing)})

	return Series{Start: start, End: now, Points: points}, nil
}

// countAtOrBefore returns how many entries of sorted are <= t.
func countAtOrBefore(sorted []int64, t int64) int {
	return sort.Search(len(sorted), func(i int) bool { return sorted[i] > t })
}

// MaxCount returns the largest count in s, floored at 1 so it can be used
// as a divisor.
func (s Series) MaxCount() int {
	highest := 1
	for _, p := range s.Points {
		if p.Count > highest {
			highest = p.Count
		}
	}
	return highest
}

// Last returns the final (most recent) count, or 0 for an empty series.
func (s Series) Last() int {
	if len(s.Points) == 0 {
		return 0
	}
	return s.Points[len(s.Points)-1].Count
}
