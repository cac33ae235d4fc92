package nightevents

import (
	"testing"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
)

func testSite() model.Site {
	return model.Site{Name: "CP", LatDeg: -30.24, LonDeg: -70.74, AltMeters: 2200}
}

func TestGetProducesMonotonicTimes(t *testing.T) {
	m := NewManager()
	night := time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)
	ne := m.Get(testSite(), 0, night, time.Minute)

	if ne.NumSlots() < 2 {
		t.Fatalf("expected multiple slots, got %d", ne.NumSlots())
	}
	for i := 1; i < len(ne.Times); i++ {
		if !ne.Times[i].After(ne.Times[i-1]) {
			t.Fatalf("times not strictly increasing at slot %d", i)
		}
	}
}

func TestSunAltIndicesAreBelowTwilight(t *testing.T) {
	m := NewManager()
	night := time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)
	ne := m.Get(testSite(), 0, night, time.Minute)

	if len(ne.SunAltIndices) == 0 {
		t.Fatal("expected at least one night slot")
	}
	for _, idx := range ne.SunAltIndices {
		if ne.SunAlt[idx] > TwilightAltitudeDeg {
			t.Fatalf("slot %d has sun alt %.2f above twilight bound", idx, ne.SunAlt[idx])
		}
	}
}

func TestGetIsCachedByKey(t *testing.T) {
	m := NewManager()
	night := time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)
	site := testSite()

	first := m.Get(site, 0, night, time.Minute)
	second := m.Get(site, 5, night, time.Minute)

	if first != second {
		t.Fatal("expected the same cached *NightEvents for the same (site, date, slot length)")
	}
	if second.Night != 5 {
		t.Fatalf("expected cached entry's Night to be updated to the requesting night index, got %d", second.Night)
	}
}

func TestDifferentSlotLengthsAreDistinctCacheEntries(t *testing.T) {
	m := NewManager()
	night := time.Date(2018, 10, 1, 0, 0, 0, 0, time.UTC)
	site := testSite()

	oneMin := m.Get(site, 0, night, time.Minute)
	fiveMin := m.Get(site, 0, night, 5*time.Minute)

	if oneMin == fiveMin {
		t.Fatal("expected distinct cache entries for distinct slot lengths")
	}
	if fiveMin.NumSlots() >= oneMin.NumSlots() {
		t.Fatalf("expected fewer slots at coarser resolution: 1min=%d 5min=%d", oneMin.NumSlots(), fiveMin.NumSlots())
	}
}
