// Package nightevents computes and caches per-(site, date, slot_length)
// sun/moon geometry and sidereal-time arrays used by the Collector to
// build per-observation visibility windows (spec.md §4.1).
package nightevents

import (
	"fmt"
	"math"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/litescript/gemscheduler/internal/astro"
	"github.com/litescript/gemscheduler/internal/model"
)

// TwilightAltitudeDeg is the sun altitude bounding evening/morning
// twilight: slots where the sun is at or below this altitude are
// considered "night" for visibility purposes (spec.md §4.1).
const TwilightAltitudeDeg = -12.0

// DefaultSlotLength is the default time-slot width used when a caller does
// not specify one (spec.md §3, "Slot width is the time_slot_length,
// default 1 minute").
const DefaultSlotLength = time.Minute

// NightEvents holds the per-slot geometry arrays for one (site, night).
// Every slice has the same length: the number of time slots in the night.
type NightEvents struct {
	Site       model.Site
	Night      model.NightIndex
	SlotLength time.Duration

	Times              []time.Time
	LocalSiderealTimes []float64 // degrees
	SunAlt             []float64 // degrees
	MoonAlt            []float64 // degrees
	MoonRA             []float64 // degrees
	MoonDec            []float64 // degrees
	MoonDistAU         []float64
	SunMoonAngle       []float64 // degrees, angular separation Sun-Moon

	// SunAltIndices lists slot indices where the sun is at or below
	// TwilightAltitudeDeg ("night" slots, spec.md §4.1).
	SunAltIndices []int
}

// NumSlots returns the number of time slots in the night.
func (ne *NightEvents) NumSlots() int {
	return len(ne.Times)
}

// Manager computes and memoizes NightEvents per (site, night index, slot
// length). The cache is process-wide and entries are never invalidated
// within a scheduling request (spec.md §4.1), mirroring the teacher's
// HorizonsProvider path cache (ephem/horizons.go): a sync-safe TTL cache
// with an expiration long enough to outlive a single request but short
// enough not to leak memory across unrelated requests.
type Manager struct {
	cache *gocache.Cache
}

// cacheTTL bounds how long a NightEvents entry survives once computed.
// Scheduling requests are expected to complete well within this window;
// it exists to bound memory, not to express a real invalidation policy
// (spec.md explicitly says entries are never invalidated mid-request).
const cacheTTL = 2 * time.Hour

// NewManager builds an empty NightEvents cache.
func NewManager() *Manager {
	return &Manager{cache: gocache.New(cacheTTL, cacheTTL/2)}
}

func cacheKey(site model.Site, nightStart time.Time, slotLength time.Duration) string {
	return fmt.Sprintf("%s|%s|%d", site.Name, nightStart.UTC().Format("2006-01-02"), slotLength)
}

// Get returns the cached or freshly computed NightEvents for a
// (site, night-starting-UT-date) pair. nightStart is the UT calendar date
// the night begins on; the actual twilight-to-twilight window is derived
// from the site's geometry around local midnight of that date.
func (m *Manager) Get(site model.Site, night model.NightIndex, nightStart time.Time, slotLength time.Duration) *NightEvents {
	if slotLength <= 0 {
		slotLength = DefaultSlotLength
	}
	key := cacheKey(site, nightStart, slotLength)
	if cached, ok := m.cache.Get(key); ok {
		ne := cached.(*NightEvents)
		ne.Night = night
		return ne
	}
	ne := compute(site, night, nightStart, slotLength)
	m.cache.Set(key, ne, gocache.DefaultExpiration)
	return ne
}

// compute builds the per-slot arrays for one night by scanning outward
// from local solar midnight to find the evening and morning twilight
// crossings, then filling the slot grid between them.
func compute(site model.Site, night model.NightIndex, nightStart time.Time, slotLength time.Duration) *NightEvents {
	obs := astro.Observer{LatDeg: site.LatDeg, LonDeg: site.LonDeg, Name: site.Name}

	localMidnight := nightStart.Add(24*time.Hour - time.Duration(site.LonDeg/15.0*float64(time.Hour))).UTC()
	eve := findTwilightCrossing(obs, localMidnight, -1)
	morn := findTwilightCrossing(obs, localMidnight, +1)

	if morn.Before(eve) {
		morn = morn.Add(24 * time.Hour)
	}

	numSlots := int(math.Ceil(morn.Sub(eve).Minutes() / slotLength.Minutes()))
	if numSlots < 1 {
		numSlots = 1
	}

	ne := &NightEvents{
		Site:               site,
		Night:              night,
		SlotLength:         slotLength,
		Times:              make([]time.Time, numSlots),
		LocalSiderealTimes: make([]float64, numSlots),
		SunAlt:             make([]float64, numSlots),
		MoonAlt:            make([]float64, numSlots),
		MoonRA:             make([]float64, numSlots),
		MoonDec:            make([]float64, numSlots),
		MoonDistAU:         make([]float64, numSlots),
		SunMoonAngle:       make([]float64, numSlots),
	}

	for i := 0; i < numSlots; i++ {
		t := eve.Add(time.Duration(i) * slotLength)
		ne.Times[i] = t

		sunRA, sunDec := astro.SunPosition(t)
		sunHoriz := astro.EquatorialToHorizontal(astro.SkyCoord{RAdeg: sunRA, DecDeg: sunDec}, obs, t)
		ne.SunAlt[i] = sunHoriz.ElDeg

		moonGeom, moonHoriz := astro.MoonHorizontal(obs, t)
		ne.MoonAlt[i] = moonHoriz.ElDeg
		ne.MoonRA[i] = moonGeom.RAdeg
		ne.MoonDec[i] = moonGeom.DecDeg
		ne.MoonDistAU[i] = moonGeom.DistanceAU
		ne.SunMoonAngle[i] = astro.AngularSeparation(sunRA, sunDec, moonGeom.RAdeg, moonGeom.DecDeg)
		ne.LocalSiderealTimes[i] = astro.LocalSiderealTimeDeg(t, obs.LonDeg)

		if ne.SunAlt[i] <= TwilightAltitudeDeg {
			ne.SunAltIndices = append(ne.SunAltIndices, i)
		}
	}

	return ne
}

// findTwilightCrossing scans in `direction` (-1 for evening, searching
// backward from midnight; +1 for morning, searching forward) in 1-minute
// steps for the sun altitude crossing TwilightAltitudeDeg, then refines
// with a linear interpolation between the bracketing minutes.
func findTwilightCrossing(obs astro.Observer, from time.Time, direction int) time.Time {
	const step = time.Minute
	const maxScan = 18 * time.Hour

	prevT := from
	prevAlt := sunAltitudeAt(obs, from)

	for scanned := time.Duration(0); scanned < maxScan; scanned += step {
		t := from.Add(time.Duration(direction) * scanned)
		alt := sunAltitudeAt(obs, t)
		if (prevAlt > TwilightAltitudeDeg) != (alt > TwilightAltitudeDeg) && scanned > 0 {
			return interpolateCrossing(prevT, prevAlt, t, alt)
		}
		prevT, prevAlt = t, alt
	}
	return from.Add(time.Duration(direction) * maxScan)
}

func sunAltitudeAt(obs astro.Observer, t time.Time) float64 {
	ra, dec := astro.SunPosition(t)
	return astro.EquatorialToHorizontal(astro.SkyCoord{RAdeg: ra, DecDeg: dec}, obs, t).ElDeg
}

func interpolateCrossing(t1 time.Time, alt1 float64, t2 time.Time, alt2 float64) time.Time {
	if alt1 == alt2 {
		return t1
	}
	frac := (TwilightAltitudeDeg - alt1) / (alt2 - alt1)
	delta := t2.Sub(t1)
	return t1.Add(time.Duration(float64(delta) * frac))
}
