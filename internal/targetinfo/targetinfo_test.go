package targetinfo

import (
	"testing"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/nightevents"
)

func testSite() model.Site {
	return model.Site{Name: "CP", LatDeg: -30.24, LonDeg: -70.74, AltMeters: 2200}
}

func testProgram() *model.Program {
	return &model.Program{
		ID:       "GN-2018B-Q-101",
		Band:     model.Band2,
		Awarded:  10 * time.Hour,
		Semester: "2018B",
		Start:    time.Date(2018, 9, 1, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2019, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testObservation() *model.Observation {
	return &model.Observation{
		ID:        "GN-2018B-Q-101-0001",
		ProgramID: "GN-2018B-Q-101",
		Site:      testSite(),
		Status:    model.StatusReady,
		BaseTarget: &model.Target{
			Name: "test-target", Kind: model.TargetSidereal,
			RAdeg: 120.0, DecDeg: -40.0, EpochYear: 2000,
		},
		Sequence: []model.Atom{{ProgTime: 30 * time.Minute, ExecTime: 30 * time.Minute}},
	}
}

func TestComputeProducesVisibilitySlots(t *testing.T) {
	m := nightevents.NewManager()
	ne := m.Get(testSite(), 0, time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	obs := testObservation()
	prog := testProgram()
	cfg := NightConfiguration{Resources: model.NewResourceSet()}

	ti := Compute(obs, prog, ne, cfg)

	if ti.NumSlots() != ne.NumSlots() {
		t.Fatalf("expected %d slots, got %d", ne.NumSlots(), ti.NumSlots())
	}
	if len(ti.VisibilitySlotIdx) != countTrue(ti.VisibilitySlotFilter) {
		t.Fatalf("visibility_slot_idx length %d does not match filter count %d", len(ti.VisibilitySlotIdx), countTrue(ti.VisibilitySlotFilter))
	}
	for _, idx := range ti.VisibilitySlotIdx {
		if idx < 0 || idx >= ti.NumSlots() {
			t.Fatalf("visibility_slot_idx %d out of range [0,%d)", idx, ti.NumSlots())
		}
	}
}

func TestComputeSeriesAccumulatesReverse(t *testing.T) {
	m := nightevents.NewManager()
	site := testSite()
	nights := []*nightevents.NightEvents{
		m.Get(site, 0, time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC), time.Minute),
		m.Get(site, 1, time.Date(2018, 10, 2, 0, 0, 0, 0, time.UTC), time.Minute),
	}

	obs := testObservation()
	prog := testProgram()
	cfg := NightConfiguration{Resources: model.NewResourceSet()}

	series := ComputeSeries(obs, prog, nights, cfg)
	if len(series) != 2 {
		t.Fatalf("expected 2 nights, got %d", len(series))
	}

	want := series[0].VisibilityTime + series[1].VisibilityTime
	if series[0].RemVisibilityTime != want {
		t.Fatalf("night 0 rem_visibility_time = %v, want %v", series[0].RemVisibilityTime, want)
	}
	if series[1].RemVisibilityTime != series[1].VisibilityTime {
		t.Fatalf("last night rem_visibility_time = %v, want %v", series[1].RemVisibilityTime, series[1].VisibilityTime)
	}
}

func TestResourceGateExcludesAllSlots(t *testing.T) {
	m := nightevents.NewManager()
	ne := m.Get(testSite(), 0, time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	obs := testObservation()
	obs.RequiredResources = model.NewResourceSet("GMOS")
	prog := testProgram()
	cfg := NightConfiguration{Resources: model.NewResourceSet()} // GMOS not available

	ti := Compute(obs, prog, ne, cfg)
	if len(ti.VisibilitySlotIdx) != 0 {
		t.Fatalf("expected no visible slots when required resource is unavailable, got %d", len(ti.VisibilitySlotIdx))
	}
}

func TestComputeFillsRiseSetWindow(t *testing.T) {
	m := nightevents.NewManager()
	ne := m.Get(testSite(), 0, time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC), time.Minute)

	obs := testObservation()
	prog := testProgram()
	cfg := NightConfiguration{Resources: model.NewResourceSet()}

	ti := Compute(obs, prog, ne, cfg)

	if !ti.Window.Valid {
		t.Fatalf("expected a valid rise/set window for a target sampled across a full night")
	}
}

func countTrue(mask []bool) int {
	n := 0
	for _, b := range mask {
		if b {
			n++
		}
	}
	return n
}
