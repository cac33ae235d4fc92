package model

import "time"

// SkyBackground is a sky-brightness band bound. SBAny means "no constraint".
type SkyBackground int

const (
	SB20 SkyBackground = iota // darkest quartile
	SB50
	SB80
	SBAny // no sky-background constraint
)

// ElevationType selects which quantity an observation's elevation window
// constrains: none, hour angle, or airmass.
type ElevationType int

const (
	ElevationNone ElevationType = iota
	ElevationHourAngle
	ElevationAirmass
)

// Default elevation bounds applied when an observation declares no
// elevation constraint (airmass, per spec.md §4.2 step 5).
const (
	DefaultAirmassMin = 1.0
	DefaultAirmassMax = 2.3
)

// TimingWindow is one declared timing window, optionally repeating.
// A window with Repeat == 0 or Repeat == 1 occurs exactly once; Repeat ==
// n (n > 1) produces n total occurrences spaced by Period. Repeat < 0
// means "repeat forever" (unbounded), matching OCS semantics.
type TimingWindow struct {
	Start    time.Time
	Duration time.Duration
	Repeat   int
	Period   time.Duration
}

// Expand returns the concrete [start, end) intervals this window produces,
// clipped to at most maxCopies entries when Repeat is unbounded (< 0).
func (w TimingWindow) Expand(maxCopies int) []TimeInterval {
	copies := w.Repeat
	if w.Repeat < 0 {
		copies = maxCopies
	}
	if copies < 1 {
		copies = 1
	}
	intervals := make([]TimeInterval, 0, copies)
	for i := 0; i < copies; i++ {
		start := w.Start.Add(time.Duration(i) * w.Period)
		intervals = append(intervals, TimeInterval{Start: start, End: start.Add(w.Duration)})
	}
	return intervals
}

// TimeInterval is a half-open [Start, End) time range.
type TimeInterval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls in [Start, End).
func (iv TimeInterval) Contains(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// Constraints bounds an Observation's schedulability: sky background,
// elevation window, and timing windows.
type Constraints struct {
	SkyBackgroundBound SkyBackground
	ElevType           ElevationType
	ElevationMin       float64 // hour angle in hours, or airmass, per ElevType
	ElevationMax       float64
	TimingWindows      []TimingWindow
}

// ElevationBoundsOrDefault returns the configured elevation bounds, or the
// default airmass bounds [1.0, 2.3] if the observation declares
// ElevationNone (spec.md §4.2 step 5).
func (c Constraints) ElevationBoundsOrDefault() (min, max float64, kind ElevationType) {
	if c.ElevType == ElevationNone {
		return DefaultAirmassMin, DefaultAirmassMax, ElevationAirmass
	}
	return c.ElevationMin, c.ElevationMax, c.ElevType
}
