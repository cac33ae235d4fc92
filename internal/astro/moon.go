package astro

import (
	"math"
	"time"

	swisseph "github.com/tejzpr/go-swisseph"
)

// kmPerAU converts astronomical units to kilometers, for filling SkyCoord's
// RangeKm field from the Moon's geocentric distance.
const kmPerAU = 149597870.7

// MoonGeometry is the Moon's position and phase at a specific time, as
// needed by the night-events sky-brightness model.
type MoonGeometry struct {
	RAdeg       float64
	DecDeg      float64
	DistanceAU  float64
	PhaseAngle  float64 // Sun-Moon-Earth angle in degrees: 0=full, 180=new
	Illuminated float64 // fraction of the disc illuminated, 0-1
}

// moonCalcFlags requests equatorial coordinates from the built-in Moshier
// lunar theory, which needs no external ephemeris data files — appropriate
// for a scheduler that may run on hosts without a JPL/Swiss Ephemeris data
// directory configured.
const moonCalcFlags = swisseph.FlagMoseph | swisseph.FlagEquatorial

// MoonPosition returns the Moon's apparent RA/Dec and distance at time t,
// via the Swiss Ephemeris Moshier analytic lunar theory.
func MoonPosition(t time.Time) MoonGeometry {
	jd := julianDate(t)
	res := swisseph.CalcUT(jd, swisseph.Moon, moonCalcFlags)
	if len(res.Data) < 3 {
		return MoonGeometry{}
	}
	geom := MoonGeometry{
		RAdeg:      res.Data[0],
		DecDeg:     res.Data[1],
		DistanceAU: res.Data[2],
	}
	geom.PhaseAngle, geom.Illuminated = moonPhase(t, geom)
	return geom
}

// moonPhase derives the Sun-Moon-Earth phase angle and illuminated
// fraction from the Moon's equatorial position and the Sun's position
// computed by this package's own low-precision solar ephemeris (sun.go).
// Phase angle is approximated from the geocentric elongation, which is
// accurate to a fraction of a degree given the Earth-Moon/Earth-Sun
// distance ratio.
func moonPhase(t time.Time, moon MoonGeometry) (phaseAngleDeg, illuminated float64) {
	sunRA, sunDec := SunPosition(t)
	elongation := AngularSeparation(sunRA, sunDec, moon.RAdeg, moon.DecDeg)
	phaseAngleDeg = 180.0 - elongation
	illuminated = (1 + math.Cos(degToRad(phaseAngleDeg))) / 2.0
	return phaseAngleDeg, illuminated
}

// MoonHorizontal returns the Moon's geometry plus altitude/azimuth for an
// observer at time t, using the same EquatorialToHorizontal transform as
// the rest of this package.
func MoonHorizontal(obs Observer, t time.Time) (geom MoonGeometry, horiz SkyCoord) {
	geom = MoonPosition(t)
	eq := SkyCoord{RAdeg: geom.RAdeg, DecDeg: geom.DecDeg, RangeKm: geom.DistanceAU * kmPerAU}
	horiz = EquatorialToHorizontal(eq, obs, t)
	return geom, horiz
}
