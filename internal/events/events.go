// Package events defines the per-site, per-night event stream that drives
// the scheduling loop's re-selection/re-optimization (spec.md §4.6).
package events

import (
	"fmt"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/plan"
)

// Kind tags which variant an Event is. Declaration order is also the
// total order used to break timestamp ties (spec.md §5: "EveningTwilight
// < ResumeNight < WeatherChange < Fault < EngTask < MorningTwilight").
type Kind int

const (
	KindEveningTwilight Kind = iota
	KindResumeNight
	KindWeatherChange
	KindFault
	KindEngTask
	KindMorningTwilight
)

func (k Kind) String() string {
	switch k {
	case KindEveningTwilight:
		return "EveningTwilight"
	case KindResumeNight:
		return "ResumeNight"
	case KindWeatherChange:
		return "WeatherChange"
	case KindFault:
		return "Fault"
	case KindEngTask:
		return "EngTask"
	case KindMorningTwilight:
		return "MorningTwilight"
	default:
		return "Unknown"
	}
}

// Event is a tagged variant over the night's event stream (spec.md §4.6).
// Only the fields relevant to Kind are meaningful: NewConditions for
// WeatherChange, End/Affects for Fault and EngTask (the two Blockage
// variants).
type Event struct {
	Kind   Kind
	Start  time.Time
	Reason string
	Site   model.Site

	// Blockage-only (Fault, EngTask).
	End     *time.Time
	Affects model.ResourceSet

	// WeatherChange-only.
	NewConditions *model.Conditions
}

// NewEveningTwilight builds the mandatory event bounding the start of a
// night's timeline.
func NewEveningTwilight(site model.Site, at time.Time) Event {
	return Event{Kind: KindEveningTwilight, Start: at, Site: site, Reason: "evening twilight"}
}

// NewMorningTwilight builds the mandatory event bounding the end of a
// night's timeline.
func NewMorningTwilight(site model.Site, at time.Time) Event {
	return Event{Kind: KindMorningTwilight, Start: at, Site: site, Reason: "morning twilight"}
}

// NewWeatherChange builds an interruption carrying updated conditions.
func NewWeatherChange(site model.Site, at time.Time, conditions model.Conditions) Event {
	return Event{Kind: KindWeatherChange, Start: at, Site: site, NewConditions: &conditions, Reason: "weather change"}
}

// NewFault builds a resource-blockage event. Call Ends to set its end
// time once known.
func NewFault(site model.Site, at time.Time, affects model.ResourceSet, reason string) Event {
	return Event{Kind: KindFault, Start: at, Site: site, Affects: affects, Reason: reason}
}

// NewEngTask builds a scheduled (non-fault) resource-blockage event.
func NewEngTask(site model.Site, at time.Time, affects model.ResourceSet, reason string) Event {
	return Event{Kind: KindEngTask, Start: at, Site: site, Affects: affects, Reason: reason}
}

// NewResumeNight builds the event that ends a blockage.
func NewResumeNight(site model.Site, at time.Time) Event {
	return Event{Kind: KindResumeNight, Start: at, Site: site, Reason: "resume night"}
}

// Ends records a blockage's end time. Only meaningful for Fault/EngTask.
func (e *Event) Ends(at time.Time) {
	e.End = &at
}

// TimeLoss returns End - Start for a blockage event. Panics if End is
// unset, matching the reference implementation's `time_loss()` raising
// when called before the blockage is resolved.
func (e Event) TimeLoss() time.Duration {
	if e.End == nil {
		panic(fmt.Sprintf("events: TimeLoss called on unresolved blockage %s at %s", e.Kind, e.Start))
	}
	return e.End.Sub(e.Start)
}

// IsBlockage reports whether this event kind blocks resources until a
// ResumeNight.
func (e Event) IsBlockage() bool {
	return e.Kind == KindFault || e.Kind == KindEngTask
}

// ToTimeslotIdx converts the event's start time to a TimeslotIndex
// relative to the night's evening-twilight time (spec.md §4.6 step 1,
// §8 "Event timestamp -> slot").
func (e Event) ToTimeslotIdx(twiEveTime time.Time, slotLength time.Duration) model.TimeslotIndex {
	return plan.TimeslotIdx(e.Start, twiEveTime, slotLength)
}

// Less orders events by (Start, Kind) — strict timestamp order, with
// Kind's declaration order breaking ties (spec.md §5).
func Less(a, b Event) bool {
	if !a.Start.Equal(b.Start) {
		return a.Start.Before(b.Start)
	}
	return a.Kind < b.Kind
}

// Queue is a per-site ordered event stream. Events must be inserted via
// Push to maintain (Start, Kind) order; Pop removes and returns the
// earliest event.
type Queue struct {
	events []Event
}

// Push inserts an event, maintaining sorted order.
func (q *Queue) Push(e Event) {
	i := len(q.events)
	q.events = append(q.events, e)
	for i > 0 && Less(q.events[i], q.events[i-1]) {
		q.events[i], q.events[i-1] = q.events[i-1], q.events[i]
		i--
	}
}

// Pop removes and returns the earliest event. ok is false if the queue is
// empty.
func (q *Queue) Pop() (e Event, ok bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	e = q.events[0]
	q.events = q.events[1:]
	return e, true
}

// Len returns the number of queued events.
func (q *Queue) Len() int { return len(q.events) }

// Peek returns the earliest event without removing it.
func (q *Queue) Peek() (e Event, ok bool) {
	if len(q.events) == 0 {
		return Event{}, false
	}
	return q.events[0], true
}
