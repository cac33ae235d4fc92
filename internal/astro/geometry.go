package astro

import "math"

// HourAngleHours computes the hour angle, in hours, of RA (degrees) at the
// given Local Sidereal Time (degrees), wrapped to (-12, +12].
func HourAngleHours(raDeg, lstDeg float64) float64 {
	haDeg := lstDeg - raDeg
	haHours := haDeg / 15.0
	return wrapHourAngle(haHours)
}

// wrapHourAngle wraps an hour-angle value to (-12, +12].
func wrapHourAngle(ha float64) float64 {
	for ha <= -12 {
		ha += 24
	}
	for ha > 12 {
		ha -= 24
	}
	return ha
}

// Airmass approximates the relative air mass for a given altitude in
// degrees using the Kasten & Young (1989) formula, which remains well
// behaved down to the horizon (unlike a bare secant law).
//
// Below the horizon the secant blows up; callers are expected to have
// already masked those slots out via a visibility filter, but this
// function still returns a large finite value rather than +Inf so it is
// safe to use in downstream arithmetic.
func Airmass(altDeg float64) float64 {
	if altDeg <= -0.5 {
		return 40.0
	}
	zenithDeg := 90.0 - altDeg
	zenithRad := degToRad(zenithDeg)
	denom := math.Cos(zenithRad) + 0.50572*math.Pow(96.07995-zenithDeg, -1.6364)
	if denom <= 0 {
		return 40.0
	}
	return 1.0 / denom
}

// ParallacticAngle computes the parallactic angle in degrees given
// declination, hour angle (hours), and observer latitude, all in their
// natural units on entry except angles are converted to radians
// internally. The parallactic angle is the position angle of the zenith
// as seen from the target, used for instrument rotator calculations
// upstream of this package; the core scheduler only threads it through
// TargetInfo for completeness.
func ParallacticAngle(decDeg, haHours, latDeg float64) float64 {
	decRad := degToRad(decDeg)
	latRad := degToRad(latDeg)
	haRad := degToRad(haHours * 15.0)

	sinHA := math.Sin(haRad)
	cosLat := math.Cos(latRad)
	y := sinHA * cosLat
	x := math.Sin(latRad)*math.Cos(decRad) - math.Cos(latRad)*math.Sin(decRad)*math.Cos(haRad)
	if x == 0 && y == 0 {
		return 0
	}
	return radToDeg(math.Atan2(y, x))
}
