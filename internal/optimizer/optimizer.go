// Package optimizer places groups into per-night, per-site plans. The
// Optimizer interface is pluggable (spec.md §4.5 "Optimizer is an
// interface, not a fixed algorithm"); GreedyOptimizer is the reference
// implementation, grounded on
// original_source/scheduler/core/components/optimizer/dummy.py's
// DummyOptimizer.
package optimizer

import (
	"errors"
	"math/rand"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/plan"
	"github.com/litescript/gemscheduler/internal/ranker"
	"github.com/litescript/gemscheduler/internal/selector"
)

// Plans is one night's set of per-site plans.
type Plans map[string]*plan.Plan

// AllFull reports whether every plan in the set has no time slots left.
func (p Plans) AllFull() bool {
	for _, pl := range p {
		if pl.TimeSlotsLeft() > 0 {
			return false
		}
	}
	return len(p) > 0
}

// Optimizer is the pluggable placement algorithm (spec.md §4.5). Setup
// prepares internal state from a Selection; Add places a single group
// into the plan set for one night, returning false if it could not be
// placed; Schedule drives placement across every requested night.
type Optimizer interface {
	Setup(sel selector.Selection) error
	Add(gd selector.GroupData, plans Plans, night model.NightIndex) bool
	Schedule(nights []model.NightIndex, plansByNight map[model.NightIndex]Plans) error
}

// ErrGroupNotObservation is returned by Add when asked to place a group
// that is not a single-observation leaf. Splitting AND-groups across a
// plan is unimplemented (mirrors dummy.py's "Splitting groups is not yet
// implemented" comment).
var ErrGroupNotObservation = errors.New("optimizer: only observation-leaf groups can be placed")

// GreedyOptimizer picks an unplaced group at random (seeded, for
// reproducibility) and appends it to the first free slot in its site's
// plan, repeating until no more groups fit or none remain — a direct port
// of DummyOptimizer's `_run`/`add`/`_allocate_time`.
type GreedyOptimizer struct {
	rng    *rand.Rand
	groups []selector.GroupData
}

// NewGreedyOptimizer builds a GreedyOptimizer seeded for reproducible
// placement order, matching DummyOptimizer's `random.seed(seed)`.
func NewGreedyOptimizer(seed int64) *GreedyOptimizer {
	return &GreedyOptimizer{rng: rand.New(rand.NewSource(seed))}
}

// Setup collects every observation-leaf group across the Selection,
// discarding AND/OR group nodes (DummyOptimizer.setup).
func (o *GreedyOptimizer) Setup(sel selector.Selection) error {
	o.groups = o.groups[:0]
	for _, gd := range sel {
		if gd.Group != nil && gd.Group.IsObservationGroup() {
			o.groups = append(o.groups, gd)
		}
	}
	return nil
}

// allocateTime returns the first free slot at the end of the plan's
// current visit list (dummy.py's `_allocate_time`: this optimizer never
// backfills gaps left by a truncated or removed visit).
func allocateTime(p *plan.Plan) model.TimeslotIndex {
	if len(p.Visits) == 0 {
		return 0
	}
	return p.Visits[len(p.Visits)-1].EndSlot()
}

// timeToSlots converts a duration to a whole number of time slots,
// rounding up (mirrors Plan.time2slots in the reference plans module).
func timeToSlots(d time.Duration, slotLength time.Duration) int {
	if d <= 0 {
		return 0
	}
	n := d / slotLength
	if d%slotLength != 0 {
		n++
	}
	return int(n)
}

// sumScores sums a group's per-slot score array over [start, start+n),
// for the given night (dummy.py's `np.sum(group.group_info.scores[night][start:start+obs_len])`).
func sumScores(scores ranker.Scores, night model.NightIndex, start model.TimeslotIndex, n int) float64 {
	idx := int(night)
	if idx < 0 || idx >= len(scores) {
		return 0
	}
	row := scores[idx]
	total := 0.0
	for t := int(start); t < int(start)+n && t < len(row); t++ {
		total += row[t]
	}
	return total
}

// Add places one group's sole observation into the plan for its site, at
// the first free slot, provided the plan has room and isn't already
// carrying that observation (dummy.py's `add`).
func (o *GreedyOptimizer) Add(gd selector.GroupData, plans Plans, night model.NightIndex) bool {
	if gd.Group == nil || !gd.Group.IsObservationGroup() || gd.Group.Observation == nil {
		return false
	}
	obs := gd.Group.Observation
	p, ok := plans[obs.Site.Name]
	if !ok {
		return false
	}

	obsLen := timeToSlots(obs.ExecTime(), p.TimeSlotLength)
	if obsLen <= 0 || p.TimeSlotsLeft() < obsLen || alreadyPlaced(p, obs.ID) {
		return false
	}

	start := allocateTime(p)
	score := sumScores(gd.GroupInfo.Scores, night, start, obsLen)
	return p.Add(plan.Visit{
		ObservationID: obs.ID,
		StartSlot:     start,
		TimeSlots:     obsLen,
		AtomStartIdx:  obs.FirstIncompleteAtom(),
		AtomEndIdx:    len(obs.Sequence) - 1,
		Score:         score,
	})
}

func alreadyPlaced(p *plan.Plan, obsID model.ObservationID) bool {
	for _, v := range p.Visits {
		if v.ObservationID == obsID {
			return true
		}
	}
	return false
}

// Schedule runs greedy placement independently for every requested
// night: repeatedly pick a random remaining group and try to add it,
// discarding it from consideration on success (whole group placed) or
// failure (can't fit), matching dummy.py's `_run` loop.
func (o *GreedyOptimizer) Schedule(nights []model.NightIndex, plansByNight map[model.NightIndex]Plans) error {
	for _, night := range nights {
		plans, ok := plansByNight[night]
		if !ok {
			continue
		}
		remaining := append([]selector.GroupData(nil), o.groups...)
		for len(remaining) > 0 && !plans.AllFull() {
			idx := o.rng.Intn(len(remaining))
			gd := remaining[idx]
			remaining = append(remaining[:idx], remaining[idx+1:]...)
			o.Add(gd, plans, night)
		}
	}
	return nil
}
