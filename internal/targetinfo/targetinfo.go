// Package targetinfo computes per-(observation, night) visibility vectors
// from sky geometry, timing windows, and resource availability
// (spec.md §4.2 "Per-observation target info").
package targetinfo

import (
	"fmt"
	"time"

	"github.com/litescript/gemscheduler/internal/astro"
	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/nightevents"
)

// TargetInfo is the structure-of-arrays visibility vector for one
// (observation, night), every slice sized to the night's slot count
// (spec.md §3).
type TargetInfo struct {
	ObservationID model.ObservationID
	Night         model.NightIndex

	RAdeg          []float64
	DecDeg         []float64
	Alt            []float64
	Az             []float64
	ParallacticAng []float64
	HourAngle      []float64
	Airmass        []float64
	SkyBrightness  []astro.SkyBrightnessBand

	VisibilitySlotIdx    []int
	VisibilitySlotFilter []bool

	// VisibilityTime is the total visible duration within this night.
	VisibilityTime time.Duration

	// RemVisibilityTime is the cumulative visible duration from this
	// night through the last night in the request, computed in reverse
	// night order (spec.md §4.2 step 10).
	RemVisibilityTime time.Duration

	// RemVisibilityFrac = remaining_exec_time / RemVisibilityTime, 0 if
	// the denominator is 0.
	RemVisibilityFrac float64

	// Window is the rise/transit/set summary for the night derived from
	// the same RA/Dec samples as the per-slot arrays above; Valid is
	// false if the night had too few resolvable samples to compute one.
	Window astro.VisibilityWindow
}

// NumSlots returns the number of time slots covered.
func (ti *TargetInfo) NumSlots() int { return len(ti.Alt) }

// NightConfiguration is the resource/catalog/filter gate the Collector
// consults before accepting a slot as schedulable (spec.md §4.2 steps 6-7,
// mirroring the "Resource service" adapter of §6).
type NightConfiguration struct {
	Resources     model.ResourceSet
	ProgramFilter func(*model.Program) bool
}

// allows reports whether a slot passes the resource and block-schedule
// gates. Both gates are uniform across every slot in the night (spec.md
// §4.2 steps 6-7), so this is computed once per (observation, night).
func (nc NightConfiguration) allows(obs *model.Observation, prog *model.Program) bool {
	if !obs.RequiredResources.Subset(nc.Resources) {
		return false
	}
	if nc.ProgramFilter != nil && !nc.ProgramFilter(prog) {
		return false
	}
	return true
}

// Compute builds the TargetInfo for one (observation, night) pair, without
// the cross-night RemVisibilityTime/RemVisibilityFrac accumulation — those
// are filled in by ComputeSeries, which needs every night's
// VisibilityTime to accumulate in reverse.
func Compute(obs *model.Observation, prog *model.Program, ne *nightevents.NightEvents, cfg NightConfiguration) *TargetInfo {
	n := ne.NumSlots()
	ti := &TargetInfo{
		ObservationID:        obs.ID,
		Night:                ne.Night,
		RAdeg:                make([]float64, n),
		DecDeg:               make([]float64, n),
		Alt:                  make([]float64, n),
		Az:                   make([]float64, n),
		ParallacticAng:       make([]float64, n),
		HourAngle:            make([]float64, n),
		Airmass:              make([]float64, n),
		SkyBrightness:        make([]astro.SkyBrightnessBand, n),
		VisibilitySlotFilter: make([]bool, n),
	}

	gatesPass := cfg.allows(obs, prog)
	elevMin, elevMax, elevKind := obs.Constraints.ElevationBoundsOrDefault()
	windows := effectiveWindows(obs, prog)
	sunAltNight := sunAltSet(ne.SunAltIndices)
	observer := astro.Observer{LatDeg: ne.Site.LatDeg, LonDeg: ne.Site.LonDeg, Name: ne.Site.Name}
	samples := make([]astro.RADecAtTime, 0, n)

	for i := 0; i < n; i++ {
		t := ne.Times[i]
		raDeg, decDeg, ok := obs.BaseTarget.PositionAt(t)
		if !ok {
			ti.SkyBrightness[i] = astro.SkyBrightSBAny
			continue
		}

		ti.RAdeg[i] = raDeg
		ti.DecDeg[i] = decDeg
		samples = append(samples, astro.RADecAtTime{Time: t, RAdeg: raDeg, DecDeg: decDeg})

		ha := astro.HourAngleHours(raDeg, ne.LocalSiderealTimes[i])
		ti.HourAngle[i] = ha
		horiz := astro.EquatorialToHorizontal(astro.SkyCoord{RAdeg: raDeg, DecDeg: decDeg}, observer, t)
		ti.Alt[i] = horiz.ElDeg
		ti.Az[i] = horiz.AzDeg
		ti.Airmass[i] = astro.Airmass(horiz.ElDeg)
		ti.ParallacticAng[i] = astro.ParallacticAngle(decDeg, ha, ne.Site.LatDeg)

		sb := astro.SkyBrightSBAny
		if obs.Constraints.SkyBackgroundBound != model.SBAny {
			sb = computeSlotSkyBrightness(ne, i, raDeg, decDeg, horiz.ElDeg)
		}
		ti.SkyBrightness[i] = sb

		targProp := ti.Airmass[i]
		if elevKind == model.ElevationHourAngle {
			targProp = ha
		}

		visible := gatesPass &&
			sunAltNight[i] &&
			skyBandSatisfies(obs.Constraints.SkyBackgroundBound, sb) &&
			targProp >= elevMin && targProp <= elevMax &&
			withinWindows(windows, t)

		ti.VisibilitySlotFilter[i] = visible
		if visible {
			ti.VisibilitySlotIdx = append(ti.VisibilitySlotIdx, i)
			ti.VisibilityTime += ne.SlotLength
		}
	}

	if window, err := astro.RiseSet(observer, samples); err == nil {
		ti.Window = window
	}

	return ti
}

// ComputeSeries computes TargetInfo for every night in nights (already in
// ascending NightIndex order) and fills RemVisibilityTime/RemVisibilityFrac
// by accumulating VisibilityTime in reverse (spec.md §4.2 step 10).
func ComputeSeries(obs *model.Observation, prog *model.Program, nights []*nightevents.NightEvents, cfg NightConfiguration) []*TargetInfo {
	series := make([]*TargetInfo, len(nights))
	for i, ne := range nights {
		series[i] = Compute(obs, prog, ne, cfg)
	}
	AccumulateVisibility(obs, series)
	return series
}

// AccumulateVisibility fills RemVisibilityTime/RemVisibilityFrac across an
// already-computed, ascending-NightIndex-order series by accumulating
// VisibilityTime in reverse (spec.md §4.2 step 10). Callers that assemble
// series from a mix of cached and freshly Compute'd entries (e.g. a
// partial-cache-hit run) must call this over the full night range after
// gathering every entry — the accumulation is a whole-range property, not a
// per-night one, so cached entries alone cannot carry a correct value.
func AccumulateVisibility(obs *model.Observation, series []*TargetInfo) {
	var cumulative time.Duration
	remaining := obs.RemainingExecTime()
	for i := len(series) - 1; i >= 0; i-- {
		cumulative += series[i].VisibilityTime
		series[i].RemVisibilityTime = cumulative
		if cumulative <= 0 {
			series[i].RemVisibilityFrac = 0
			continue
		}
		series[i].RemVisibilityFrac = float64(remaining) / float64(cumulative)
	}
}

func sunAltSet(indices []int) map[int]bool {
	set := make(map[int]bool, len(indices))
	for _, idx := range indices {
		set[idx] = true
	}
	return set
}

func skyBandSatisfies(bound model.SkyBackground, actual astro.SkyBrightnessBand) bool {
	if bound == model.SBAny {
		return true
	}
	return int(actual) <= int(bound)
}

// computeSlotSkyBrightness evaluates the Krisciunas & Schaefer sky
// brightness model for one slot, using the sun/moon geometry NightEvents
// already computed for the night (spec.md §4.2 step 4).
func computeSlotSkyBrightness(ne *nightevents.NightEvents, slot int, targetRADeg, targetDecDeg, targetAltDeg float64) astro.SkyBrightnessBand {
	moonPhaseAngle := 180.0 - ne.SunMoonAngle[slot]
	targetMoonSep := astro.AngularSeparation(ne.MoonRA[slot], ne.MoonDec[slot], targetRADeg, targetDecDeg)
	moonZenith := 90.0 - ne.MoonAlt[slot]
	targetZenith := 90.0 - targetAltDeg
	sunZenith := 90.0 - ne.SunAlt[slot]

	brightness := astro.CalculateSkyBrightness(moonPhaseAngle, targetMoonSep, ne.MoonDistAU[slot], moonZenith, targetZenith, sunZenith)
	return astro.ConvertToSkyBackground(brightness)
}

// effectiveWindows expands an observation's declared timing windows, or —
// if none are declared — returns the whole program interval as a single
// window (spec.md §4.2 step 9).
func effectiveWindows(obs *model.Observation, prog *model.Program) []model.TimeInterval {
	if len(obs.Constraints.TimingWindows) == 0 {
		return []model.TimeInterval{{Start: prog.Start, End: prog.End}}
	}
	const maxUnboundedCopies = 1000
	var windows []model.TimeInterval
	for _, w := range obs.Constraints.TimingWindows {
		windows = append(windows, w.Expand(maxUnboundedCopies)...)
	}
	return windows
}

func withinWindows(windows []model.TimeInterval, t time.Time) bool {
	for _, w := range windows {
		if w.Contains(t) {
			return true
		}
	}
	return false
}

// CacheKey builds the TargetInfo external-cache key, matching spec.md
// §6's literal (unseparated) format: "{obs_id}{jd}{slot_length_minutes}".
func CacheKey(obsID model.ObservationID, jd float64, slotLengthMinutes int) string {
	return fmt.Sprintf("%s%.6f%d", obsID, jd, slotLengthMinutes)
}

// Cache is the external key-value store TargetInfo reads/writes pass
// through (spec.md §6 "Target-info cache"). Implementations must tolerate
// last-writer-wins on concurrent writes of the same key (spec.md §5).
type Cache interface {
	Get(key string) (*TargetInfo, bool)
	Set(key string, ti *TargetInfo)
}

// EphemerisProvider resolves a non-sidereal target's trajectory over a
// night's slot grid (spec.md §6 "Ephemeris service"). The Collector calls
// this once per (non-sidereal observation, night) and attaches the result
// to the target before calling Compute.
type EphemerisProvider interface {
	Positions(target *model.Target, date time.Time, numSlots int, slotLength time.Duration) ([]model.EphemerisPoint, error)
}
