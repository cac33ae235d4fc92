// Package accounting charges observed/partner/not-charged time for a
// finalized nightly Plan (spec.md §4.7), grounded directly on
// original_source/scheduler/core/components/collector/collector.py's
// `time_accounting` method.
package accounting

import (
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/plan"
)

// GroupIndex answers, for an observation, which group it belongs to and
// whether that group is a scheduling group, plus every observation that
// shares that group (needed to find "remaining partner-cal"
// observations when a group is fully charged). Built once per program
// from its root Group tree (collector.py's `_get_group`).
type GroupIndex struct {
	membership  map[model.ObservationID]groupMembership
	byGroup     map[model.UniqueGroupID][]*model.Observation
}

type groupMembership struct {
	groupID    model.UniqueGroupID
	scheduling bool
}

// BuildGroupIndex walks a program's group tree, recording for every
// observation the nearest enclosing scheduling-group id if one exists,
// else the observation's own leaf group id treated as a plain group.
func BuildGroupIndex(root *model.Group) GroupIndex {
	idx := GroupIndex{
		membership: make(map[model.ObservationID]groupMembership),
		byGroup:    make(map[model.UniqueGroupID][]*model.Observation),
	}
	var walk func(g *model.Group, enclosingScheduling *model.Group)
	walk = func(g *model.Group, enclosingScheduling *model.Group) {
		if g == nil {
			return
		}
		next := enclosingScheduling
		if g.Kind == model.GroupKindAnd && g.IsSchedulingGroup {
			next = g
		}
		if g.Kind == model.GroupKindObservation && g.Observation != nil {
			groupID := g.UniqueID
			scheduling := false
			if next != nil {
				groupID = next.UniqueID
				scheduling = true
			}
			idx.membership[g.Observation.ID] = groupMembership{groupID: groupID, scheduling: scheduling}
			idx.byGroup[groupID] = append(idx.byGroup[groupID], g.Observation)
			return
		}
		for _, c := range g.Children {
			walk(c, next)
		}
	}
	walk(root, nil)
	return idx
}

func (gi GroupIndex) lookup(obsID model.ObservationID) groupMembership {
	return gi.membership[obsID]
}

// partnerCalObservations returns the group's observations of class
// PARTNERCAL (collector.py's `group.partner_observations()`).
func (gi GroupIndex) partnerCalObservations(groupID model.UniqueGroupID) []*model.Observation {
	var out []*model.Observation
	for _, obs := range gi.byGroup[groupID] {
		if obs.ObsClass == model.ObsClassPartnerCal {
			out = append(out, obs)
		}
	}
	return out
}

// GroupVisits is a run of consecutive visits in a plan that share a
// scheduling-group parent (spec.md §4.7; collector.py's `GroupVisits`
// dataclass — there, only scheduling-group runs are merged, since plain
// groups hold a single observation).
type GroupVisits struct {
	GroupID    model.UniqueGroupID
	Scheduling bool
	Visits     []plan.Visit
}

// StartSlot and EndSlot span the full run of visits (collector.py's
// `start_time_slot`/`end_time_slot`, here exclusive-end rather than
// inclusive-last-slot).
func (gv GroupVisits) StartSlot() model.TimeslotIndex { return gv.Visits[0].StartSlot }
func (gv GroupVisits) EndSlot() model.TimeslotIndex {
	return gv.Visits[len(gv.Visits)-1].EndSlot()
}

// GroupConsecutiveVisits groups consecutive visits that share a
// scheduling-group parent into one GroupVisits; every other visit gets
// its own singleton GroupVisits (collector.py's `time_accounting` loop
// building `grpvisits`).
func GroupConsecutiveVisits(visits []plan.Visit, idx GroupIndex) []GroupVisits {
	var groups []GroupVisits
	for _, v := range visits {
		m := idx.lookup(v.ObservationID)
		if len(groups) > 0 {
			last := &groups[len(groups)-1]
			if m.scheduling && last.GroupID == m.groupID {
				last.Visits = append(last.Visits, v)
				continue
			}
		}
		groups = append(groups, GroupVisits{GroupID: m.groupID, Scheduling: m.scheduling, Visits: []plan.Visit{v}})
	}
	return groups
}

// isCharged decides whether a GroupVisits run is charged at all: a
// scheduling group charges only if it is completable within the bound;
// a plain group charges if the bound is past its start (spec.md §4.7).
func isCharged(gv GroupVisits, bound *model.TimeslotIndex) bool {
	if bound == nil {
		return true
	}
	if gv.Scheduling {
		return *bound > gv.EndSlot()
	}
	return *bound > gv.StartSlot()
}

// ChargeNight charges every visit in a finalized plan against its
// observation's atoms, per spec.md §4.7 and collector.py's
// `time_accounting`. obsByID must resolve every ObservationID
// referenced by a visit to its live Observation (the one whose Sequence
// atoms will be mutated in place). bound is the site's end-timeslot
// bound for the night, or nil to charge the whole night.
func ChargeNight(visits []plan.Visit, obsByID map[model.ObservationID]*model.Observation, idx GroupIndex, slotLength time.Duration, bound *model.TimeslotIndex) {
	for _, gv := range GroupConsecutiveVisits(visits, idx) {
		charged := isCharged(gv, bound)

		// end_timeslot_charge: the bound itself if set, else one past the
		// group's last slot (so every atom in the run compares as "before
		// the charge boundary" when there is no bound).
		endTimeslotCharge := gv.EndSlot()
		if bound != nil {
			endTimeslotCharge = *bound
		}

		// The not-charged window only applies to a scheduling group whose
		// span straddles the bound (spec.md §4.7: "If the bound falls
		// inside a scheduling group's visits, route the time to
		// not_charged").
		notChargedWindow := gv.Scheduling && bound != nil &&
			gv.StartSlot() <= endTimeslotCharge && endTimeslotCharge <= gv.EndSlot()

		for _, v := range gv.Visits {
			obs, ok := obsByID[v.ObservationID]
			if !ok {
				continue
			}
			chargeVisit(obs, v, charged, notChargedWindow, endTimeslotCharge, slotLength)
		}

		if charged {
			for _, obs := range idx.partnerCalObservations(gv.GroupID) {
				if obs.Status != model.StatusObserved {
					obs.Status = model.StatusInactive
				}
			}
		}
	}
}

// chargeVisit charges one visit's atoms. Per-atom slot spans are derived
// from the observation's cumulative exec times plus acquisition overhead
// slots, exactly as collector.py's `time_accounting` computes
// `slot_atom_start`/`slot_atom_end` — not from a running sum local to the
// visit, so a visit that resumes mid-sequence (atom_start_idx > 0) still
// measures each atom's span against the sequence's absolute cumulative
// total, a quirk preserved verbatim from the reference rather than
// corrected. Acquisition overhead is folded into the first atom's
// program_used only, and only for observation classes the reference
// charges it to (SCIENCE, PROGCAL, PARTNERCAL — not ACQ or DAYCAL).
func chargeVisit(obs *model.Observation, v plan.Visit, charged, notChargedWindow bool, endTimeslotCharge model.TimeslotIndex, slotLength time.Duration) {
	nSlotsAcq := timeToSlots(obs.AcqOverhead, slotLength)
	cumulSeq := obs.CumulativeExecTimes()

	for i := v.AtomStartIdx; i <= v.AtomEndIdx && i < len(obs.Sequence); i++ {
		slotLengthVisit := nSlotsAcq + timeToSlots(cumulSeq[i], slotLength)
		slotAtomEnd := v.StartSlot + model.TimeslotIndex(slotLengthVisit) - 1

		var slotAtomLength int
		if i == v.AtomStartIdx {
			slotAtomLength = slotLengthVisit
		} else {
			slotAtomLength = slotLengthVisit - nSlotsAcq - timeToSlots(cumulSeq[i-1], slotLength)
		}
		var slotAtomStart model.TimeslotIndex
		if slotAtomLength > 0 {
			slotAtomStart = slotAtomEnd - model.TimeslotIndex(slotAtomLength) + 1
		} else {
			slotAtomStart = slotAtomEnd - model.TimeslotIndex(slotAtomLength)
		}

		if slotAtomEnd < endTimeslotCharge {
			atom := &obs.Sequence[i]
			switch {
			case charged:
				atom.ProgramUsed = atom.ProgTime
				atom.PartnerUsed = atom.PartTime
				if i == v.AtomStartIdx && chargesAcquisitionOverhead(obs.ObsClass) {
					atom.ProgramUsed += obs.AcqOverhead
				}
				atom.Observed = true
				atom.QAState = model.QAPass
			case notChargedWindow:
				atom.NotCharged += time.Duration(int(endTimeslotCharge-slotAtomStart)+1) * slotLength
			}
		}
	}

	switch {
	case charged && v.AtomEndIdx == len(obs.Sequence)-1:
		obs.Status = model.StatusObserved
	case notChargedWindow:
		obs.Status = model.StatusOngoing
	}
}

func chargesAcquisitionOverhead(class model.ObservationClass) bool {
	switch class {
	case model.ObsClassScience, model.ObsClassProgCal, model.ObsClassPartnerCal:
		return true
	default:
		return false
	}
}

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
