package accounting

import (
	"testing"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/plan"
)

func testObservation(id model.ObservationID, numAtoms int, atomExec time.Duration) *model.Observation {
	seq := make([]model.Atom, numAtoms)
	for i := range seq {
		seq[i] = model.Atom{ProgTime: atomExec, PartTime: 0, ExecTime: atomExec}
	}
	return &model.Observation{ID: id, ProgramID: "GN-2018B-Q-1", Sequence: seq}
}

func TestChargeNightFullyChargesVisitBeforeBound(t *testing.T) {
	obs := testObservation("GN-2018B-Q-1-0001", 3, 10*time.Minute)
	groupID := model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0"}
	g := model.NewObservationGroup(groupID, obs)
	idx := BuildGroupIndex(g)

	v := plan.Visit{ObservationID: obs.ID, StartSlot: 0, TimeSlots: 30, AtomStartIdx: 0, AtomEndIdx: 2}
	obsByID := map[model.ObservationID]*model.Observation{obs.ID: obs}

	ChargeNight([]plan.Visit{v}, obsByID, idx, time.Minute, nil)

	for i, atom := range obs.Sequence {
		if atom.ProgramUsed != 10*time.Minute {
			t.Fatalf("atom %d: expected program_used = 10m, got %v", i, atom.ProgramUsed)
		}
		if !atom.Observed || atom.QAState != model.QAPass {
			t.Fatalf("atom %d: expected observed+PASS, got observed=%v qa=%v", i, atom.Observed, atom.QAState)
		}
	}
	if obs.Status != model.StatusObserved {
		t.Fatalf("expected status OBSERVED, got %v", obs.Status)
	}
}

func TestChargeNightPlainGroupLeavesPostBoundAtomsUntouched(t *testing.T) {
	// A plain (non-scheduling) group never opens a not-charged window —
	// only a scheduling group does (spec.md §4.7; collector.py's
	// `time_accounting` gates not_charged on `is_scheduling_group()`).
	// With the bound past the group's start, the group is charged, but
	// only the atoms entirely before the bound are actually charged.
	obs := testObservation("GN-2018B-Q-1-0001", 3, 10*time.Minute)
	groupID := model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0"}
	g := model.NewObservationGroup(groupID, obs)
	idx := BuildGroupIndex(g)

	v := plan.Visit{ObservationID: obs.ID, StartSlot: 0, TimeSlots: 30, AtomStartIdx: 0, AtomEndIdx: 2}
	obsByID := map[model.ObservationID]*model.Observation{obs.ID: obs}

	bound := model.TimeslotIndex(15)
	ChargeNight([]plan.Visit{v}, obsByID, idx, time.Minute, &bound)

	if obs.Sequence[0].ProgramUsed != 10*time.Minute {
		t.Fatalf("expected atom 0 (entirely before the bound) charged, got %v", obs.Sequence[0].ProgramUsed)
	}
	if obs.Sequence[1].ProgramUsed != 0 || obs.Sequence[1].NotCharged != 0 {
		t.Fatalf("expected atom 1 (straddling the bound in a plain group) left untouched, got %+v", obs.Sequence[1])
	}
	if obs.Sequence[2].ProgramUsed != 0 || obs.Sequence[2].Observed {
		t.Fatalf("expected atom 2 (entirely past the bound) untouched, got %+v", obs.Sequence[2])
	}
}

func TestSchedulingGroupNotChargedWhenBoundCutsMidway(t *testing.T) {
	obsA := testObservation("GN-2018B-Q-1-0001", 1, 10*time.Minute)
	obsB := testObservation("GN-2018B-Q-1-0002", 1, 10*time.Minute)
	schedGroupID := model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "sched"}
	sched, err := model.NewSchedulingGroup(schedGroupID, []*model.Group{
		model.NewObservationGroup(model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "a"}, obsA),
		model.NewObservationGroup(model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "b"}, obsB),
	})
	if err != nil {
		t.Fatalf("unexpected error building scheduling group: %v", err)
	}
	idx := BuildGroupIndex(sched)

	visits := []plan.Visit{
		{ObservationID: obsA.ID, StartSlot: 0, TimeSlots: 10, AtomStartIdx: 0, AtomEndIdx: 0},
		{ObservationID: obsB.ID, StartSlot: 10, TimeSlots: 10, AtomStartIdx: 0, AtomEndIdx: 0},
	}
	obsByID := map[model.ObservationID]*model.Observation{obsA.ID: obsA, obsB.ID: obsB}

	bound := model.TimeslotIndex(15)
	ChargeNight(visits, obsByID, idx, time.Minute, &bound)

	if obsA.Sequence[0].ProgramUsed != 0 {
		t.Fatalf("expected the whole scheduling group to be uncharged when the bound cuts its run, got %v", obsA.Sequence[0].ProgramUsed)
	}
	// (end_timeslot_charge - atom_start + 1) * slot_length = (15 - 0 + 1) * 1m.
	if obsA.Sequence[0].NotCharged != 16*time.Minute {
		t.Fatalf("expected the pre-bound atom's not_charged time per the bound-relative formula, got %v", obsA.Sequence[0].NotCharged)
	}
	if obsA.Status != model.StatusOngoing {
		t.Fatalf("expected status ONGOING when the not-charged window applies, got %v", obsA.Status)
	}
	if obsB.Sequence[0].ProgramUsed != 0 || obsB.Sequence[0].NotCharged != 0 {
		t.Fatalf("expected the atom entirely past the bound untouched, got %+v", obsB.Sequence[0])
	}
}

func TestChargeVisitFoldsAcquisitionOverheadIntoFirstAtomOnly(t *testing.T) {
	obs := testObservation("GN-2018B-Q-1-0001", 2, 10*time.Minute)
	obs.ObsClass = model.ObsClassScience
	obs.AcqOverhead = 5 * time.Minute
	groupID := model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0"}
	g := model.NewObservationGroup(groupID, obs)
	idx := BuildGroupIndex(g)

	v := plan.Visit{ObservationID: obs.ID, StartSlot: 0, TimeSlots: 25, AtomStartIdx: 0, AtomEndIdx: 1}
	obsByID := map[model.ObservationID]*model.Observation{obs.ID: obs}

	ChargeNight([]plan.Visit{v}, obsByID, idx, time.Minute, nil)

	if obs.Sequence[0].ProgramUsed != 15*time.Minute {
		t.Fatalf("expected atom 0's program_used to include acquisition overhead (10m+5m), got %v", obs.Sequence[0].ProgramUsed)
	}
	if obs.Sequence[1].ProgramUsed != 10*time.Minute {
		t.Fatalf("expected atom 1's program_used to exclude acquisition overhead, got %v", obs.Sequence[1].ProgramUsed)
	}
}

func TestProgramCompletionPercent(t *testing.T) {
	obs := testObservation("GN-2018B-Q-1-0001", 2, 10*time.Minute)
	obs.Sequence[0].ProgramUsed = 10 * time.Minute
	prog := &model.Program{ID: "GN-2018B-Q-1", Root: model.NewObservationGroup(model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0"}, obs)}

	got := ProgramCompletionPercent(prog)
	want := "50.0%"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}
