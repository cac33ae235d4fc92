package selector

import (
	"testing"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/ranker"
)

type fakeCatalog struct {
	available model.ResourceSet
	filtered  bool
}

func (f fakeCatalog) Available(site model.Site, night model.NightIndex) model.ResourceSet {
	return f.available
}

func (f fakeCatalog) ProgramFiltered(site model.Site, night model.NightIndex, prog *model.Program) bool {
	return f.filtered
}

func testObservation(id model.ObservationID, resources model.ResourceSet) *model.Observation {
	return &model.Observation{
		ID:                id,
		RequiredResources: resources,
	}
}

func testProgram(obs *model.Observation) *model.Program {
	groupID := model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0"}
	return &model.Program{
		ID:      "GN-2018B-Q-1",
		Band:    model.Band2,
		Awarded: 1,
		Semester: "2018B",
		Root:    model.NewObservationGroup(groupID, obs),
	}
}

func TestSelectFiltersOutMissingResources(t *testing.T) {
	obs := testObservation("GN-2018B-Q-1-0001", model.NewResourceSet("GMOS"))
	prog := testProgram(obs)
	r := ranker.New(ranker.DefaultParameters(), nil)
	r.ScoreObservation(prog, obs, nil, -30.24)

	catalog := fakeCatalog{available: model.NewResourceSet("NIRI")}
	nights := []model.NightIndex{0}

	sel, err := Select(prog, r, map[model.NightIndex]NightForecast{0: {Conditions: model.Conditions{}}}, catalog, nights, model.Site{Name: "CP"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	gd, ok := sel[prog.Root.UniqueID]
	if !ok {
		t.Fatal("expected a GroupData entry for the program's root group")
	}
	if gd.GroupInfo.NightFiltering[0] {
		t.Fatal("expected night filtering to exclude the night when a required resource is unavailable")
	}
}

func TestConditionsScorePerfectMatch(t *testing.T) {
	required := model.Conditions{CC: model.CC70, IQ: model.IQ70}
	forecast := model.Conditions{CC: model.CC50, IQ: model.IQ20}
	if got := conditionsScore(required, forecast); got != 1.0 {
		t.Fatalf("expected perfect score 1.0 for a forecast that exceeds requirements, got %v", got)
	}
}

func TestConditionsScoreDegradesWhenWorseThanRequired(t *testing.T) {
	required := model.Conditions{CC: model.CC50, IQ: model.IQ20}
	forecast := model.Conditions{CC: model.CCAny, IQ: model.IQAny}
	got := conditionsScore(required, forecast)
	if got <= 0 || got >= 1.0 {
		t.Fatalf("expected a graded penalty strictly between 0 and 1, got %v", got)
	}
}

func TestWindScoreFallsOffLinearly(t *testing.T) {
	forecast := NightForecast{WindSpeed: []float64{5, 15, 25}}
	scores := windScoreForNight(forecast, 3)
	if scores[0] != 1.0 {
		t.Fatalf("expected full score below the safe threshold, got %v", scores[0])
	}
	if scores[2] != 0.0 {
		t.Fatalf("expected zero score above the max threshold, got %v", scores[2])
	}
	if scores[1] <= 0 || scores[1] >= 1.0 {
		t.Fatalf("expected a graded score between thresholds, got %v", scores[1])
	}
}

func TestRequiredResourcesUnionsAcrossObservations(t *testing.T) {
	obsA := testObservation("GN-2018B-Q-1-0001", model.NewResourceSet("GMOS"))
	obsB := testObservation("GN-2018B-Q-1-0002", model.NewResourceSet("NIRI"))
	groupID := model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0"}
	g := model.NewAndGroup(groupID, []*model.Group{
		model.NewObservationGroup(model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0-0"}, obsA),
		model.NewObservationGroup(model.UniqueGroupID{ProgramID: "GN-2018B-Q-1", LocalID: "0-1"}, obsB),
	})

	set := requiredResources(g)
	if !set.Subset(model.NewResourceSet("GMOS", "NIRI")) {
		t.Fatalf("expected required resources to be the union of both children, got %v", set)
	}
	if len(set) != 2 {
		t.Fatalf("expected exactly 2 required resources, got %d", len(set))
	}
}
