package optimizer

import (
	"testing"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/plan"
	"github.com/litescript/gemscheduler/internal/ranker"
	"github.com/litescript/gemscheduler/internal/selector"
)

func testSite() model.Site { return model.Site{Name: "CP"} }

func testGroupData(id model.ObservationID, site model.Site, execTime time.Duration, score float64) selector.GroupData {
	obs := &model.Observation{
		ID:       id,
		Site:     site,
		Sequence: []model.Atom{{ExecTime: execTime}},
	}
	groupID := model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: string(id)}
	g := model.NewObservationGroup(groupID, obs)
	return selector.GroupData{
		Group: g,
		GroupInfo: selector.GroupInfo{
			Scores: ranker.Scores{make(ranker.NightScores, 100)},
		},
	}
}

func TestAddPlacesObservationAtFirstFreeSlot(t *testing.T) {
	site := testSite()
	start := time.Date(2018, 10, 1, 23, 0, 0, 0, time.UTC)
	p := plan.NewPlan(site, 0, start, start.Add(100*time.Minute), time.Minute)
	plans := Plans{site.Name: p}

	gd := testGroupData("GN-2018B-Q-1-0001", site, 10*time.Minute, 1.0)
	o := NewGreedyOptimizer(42)

	if !o.Add(gd, plans, 0) {
		t.Fatal("expected Add to succeed on an empty plan")
	}
	if len(p.Visits) != 1 || p.Visits[0].StartSlot != 0 {
		t.Fatalf("expected the visit placed at slot 0, got %+v", p.Visits)
	}
}

func TestAddRejectsDuplicateObservation(t *testing.T) {
	site := testSite()
	start := time.Date(2018, 10, 1, 23, 0, 0, 0, time.UTC)
	p := plan.NewPlan(site, 0, start, start.Add(100*time.Minute), time.Minute)
	plans := Plans{site.Name: p}

	gd := testGroupData("GN-2018B-Q-1-0001", site, 10*time.Minute, 1.0)
	o := NewGreedyOptimizer(1)

	if !o.Add(gd, plans, 0) {
		t.Fatal("expected first Add to succeed")
	}
	if o.Add(gd, plans, 0) {
		t.Fatal("expected second Add of the same observation to be rejected")
	}
}

func TestAddRejectsWhenPlanLacksRoom(t *testing.T) {
	site := testSite()
	start := time.Date(2018, 10, 1, 23, 0, 0, 0, time.UTC)
	p := plan.NewPlan(site, 0, start, start.Add(5*time.Minute), time.Minute)
	plans := Plans{site.Name: p}

	gd := testGroupData("GN-2018B-Q-1-0001", site, 10*time.Minute, 1.0)
	o := NewGreedyOptimizer(2)

	if o.Add(gd, plans, 0) {
		t.Fatal("expected Add to fail when the observation doesn't fit")
	}
}

func TestScheduleDrainsAllGroupsWhenRoomPermits(t *testing.T) {
	site := testSite()
	start := time.Date(2018, 10, 1, 23, 0, 0, 0, time.UTC)

	sel := selector.Selection{}
	for i := 0; i < 3; i++ {
		id := model.ObservationID("GN-2018B-Q-1-000" + string(rune('1'+i)))
		gd := testGroupData(id, site, 10*time.Minute, 1.0)
		sel[gd.Group.UniqueID] = gd
	}

	o := NewGreedyOptimizer(7)
	if err := o.Setup(sel); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p := plan.NewPlan(site, 0, start, start.Add(100*time.Minute), time.Minute)
	plansByNight := map[model.NightIndex]Plans{0: {site.Name: p}}

	if err := o.Schedule([]model.NightIndex{0}, plansByNight); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(p.Visits) != 3 {
		t.Fatalf("expected all 3 groups placed, got %d visits", len(p.Visits))
	}
}
