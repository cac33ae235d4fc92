// Package plan defines the per-site, per-night schedule produced by the
// Optimizer and consumed by the event loop and time accounting
// (spec.md §3 "Plan").
package plan

import (
	"time"

	"github.com/litescript/gemscheduler/internal/model"
)

// Visit is one observation's placement within a night's plan.
type Visit struct {
	ObservationID model.ObservationID
	StartSlot     model.TimeslotIndex
	TimeSlots     int // number of slots occupied
	AtomStartIdx  int
	AtomEndIdx    int
	Score         float64
}

// EndSlot is the first slot after this visit (exclusive).
func (v Visit) EndSlot() model.TimeslotIndex {
	return v.StartSlot + model.TimeslotIndex(v.TimeSlots)
}

// Plan is one site's ordered, non-overlapping sequence of visits for one
// night (spec.md §3 invariant: "visits are non-overlapping and sorted by
// start_time_slot").
type Plan struct {
	Site           model.Site
	Night          model.NightIndex
	Start          time.Time
	End            time.Time
	TimeSlotLength time.Duration
	Visits         []Visit

	timeSlotsLeft int
}

// NewPlan builds an empty plan spanning [start, end) at the given slot
// length.
func NewPlan(site model.Site, night model.NightIndex, start, end time.Time, slotLength time.Duration) *Plan {
	numSlots := int(end.Sub(start) / slotLength)
	return &Plan{
		Site: site, Night: night, Start: start, End: end, TimeSlotLength: slotLength,
		timeSlotsLeft: numSlots,
	}
}

// NumSlots returns the total number of slots spanned by the plan.
func (p *Plan) NumSlots() int {
	return int(p.End.Sub(p.Start) / p.TimeSlotLength)
}

// TimeSlotsLeft returns the number of unoccupied slots remaining.
func (p *Plan) TimeSlotsLeft() int {
	return p.timeSlotsLeft
}

// Add appends a visit, maintaining the non-overlap and sort invariants.
// Returns false (and does not mutate the plan) if the visit would overlap
// an existing one, run past the plan's bound, or the plan lacks enough
// free time slots.
func (p *Plan) Add(v Visit) bool {
	if v.TimeSlots <= 0 || v.TimeSlots > p.timeSlotsLeft {
		return false
	}
	endSlot := int(v.EndSlot())
	if endSlot > p.NumSlots() {
		return false
	}
	for _, existing := range p.Visits {
		if overlaps(existing, v) {
			return false
		}
	}
	p.Visits = append(p.Visits, v)
	sortVisits(p.Visits)
	p.timeSlotsLeft -= v.TimeSlots
	return true
}

func overlaps(a, b Visit) bool {
	return a.StartSlot < b.EndSlot() && b.StartSlot < a.EndSlot()
}

func sortVisits(visits []Visit) {
	for i := 1; i < len(visits); i++ {
		for j := i; j > 0 && visits[j].StartSlot < visits[j-1].StartSlot; j-- {
			visits[j], visits[j-1] = visits[j-1], visits[j]
		}
	}
}

// FromVisits builds a Plan directly from an already-ordered, non-overlapping
// visit list (e.g. the reverse-merge result in internal/timeline), bypassing
// Add's incremental invariant checks.
func FromVisits(site model.Site, night model.NightIndex, start, end time.Time, slotLength time.Duration, visits []Visit) *Plan {
	p := NewPlan(site, night, start, end, slotLength)
	p.Visits = visits
	occupied := 0
	for _, v := range visits {
		occupied += v.TimeSlots
	}
	p.timeSlotsLeft -= occupied
	return p
}

// Slice returns a copy of the plan truncated to visits starting before
// stop, with any visit straddling stop truncated to end exactly at stop
// (spec.md §4.6 "Final plan assembly").
func (p *Plan) Slice(stop model.TimeslotIndex) *Plan {
	sliced := &Plan{
		Site: p.Site, Night: p.Night, Start: p.Start, End: p.End, TimeSlotLength: p.TimeSlotLength,
	}
	occupied := 0
	for _, v := range p.Visits {
		if v.StartSlot >= stop {
			continue
		}
		if v.EndSlot() > stop {
			v.TimeSlots = int(stop - v.StartSlot)
		}
		sliced.Visits = append(sliced.Visits, v)
		occupied += v.TimeSlots
	}
	sliced.timeSlotsLeft = sliced.NumSlots() - occupied
	return sliced
}

// TimeslotIdx converts a wall-clock time to a slot index relative to the
// plan's start, rounding up (spec.md §8 "Event timestamp -> slot":
// `to_timeslot_idx(e) = ceil((e.start - twi) / slot_length)`).
func TimeslotIdx(t, twilightStart time.Time, slotLength time.Duration) model.TimeslotIndex {
	delta := t.Sub(twilightStart)
	if delta <= 0 {
		return 0
	}
	slots := delta / slotLength
	if delta%slotLength != 0 {
		slots++
	}
	return model.TimeslotIndex(slots)
}
