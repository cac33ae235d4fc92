package astro

import "math"

// SkyBrightnessBand mirrors model.SkyBackground's ordering (SB20 darkest
// quartile through SBAny unconstrained) without importing the model
// package, keeping astro dependency-free of the domain model.
type SkyBrightnessBand int

const (
	SkyBrightSB20 SkyBrightnessBand = iota
	SkyBrightSB50
	SkyBrightSB80
	SkyBrightSBAny
)

// Sky-background percentile thresholds, V-band mag/arcsec^2. A brighter
// (lower-magnitude) sky falls in a higher band number. These are the
// standard Gemini Observatory percentile bin edges.
const (
	sb20Threshold = 21.37
	sb50Threshold = 20.78
	sb80Threshold = 19.61
)

// ConvertToSkyBackground maps a computed V-band sky brightness
// (mag/arcsec^2) to a percentile band.
func ConvertToSkyBackground(brightnessMag float64) SkyBrightnessBand {
	switch {
	case brightnessMag >= sb20Threshold:
		return SkyBrightSB20
	case brightnessMag >= sb50Threshold:
		return SkyBrightSB50
	case brightnessMag >= sb80Threshold:
		return SkyBrightSB80
	default:
		return SkyBrightSBAny
	}
}

// CalculateSkyBrightness implements the Krisciunas & Schaefer (1991) model
// for V-band sky brightness in the presence of moonlight, following the
// same call shape as the reference scheduler's brightness routine: lunar
// phase angle, target-moon separation, moon distance, and the zenith
// distances of the moon, target, and sun, all in degrees (moon distance is
// the geocentric distance in AU, converted to kilometres internally).
//
// Returns the dark-sky V-band brightness (no moon contribution) when the
// Moon is below the horizon or the Sun is still up.
func CalculateSkyBrightness(moonPhaseAngleDeg, targetMoonSepDeg, moonDistAU, moonZenithDeg, targetZenithDeg, sunZenithDeg float64) float64 {
	const darkSkyBrightness = 21.587 // V mag/arcsec^2, no moon

	if moonZenithDeg >= 90 || sunZenithDeg < 108 {
		// Moon below horizon, or sun less than 18 degrees below horizon
		// (zenith distance under 108 degrees):
		// moon contribution is zero (or twilight already dominates, which
		// the caller is responsible for excluding via the twilight mask).
		return darkSkyBrightness
	}

	alphaRad := degToRad(moonPhaseAngleDeg)
	rhoRad := degToRad(targetMoonSepDeg)
	zMoonRad := degToRad(moonZenithDeg)
	zTargRad := degToRad(targetZenithDeg)

	// Illuminance of the moon at the given phase (KS91 eq. 20/21), scaled
	// by distance relative to the mean Earth-Moon distance.
	istar := math.Pow(10, -0.4*(3.84+0.026*math.Abs(moonPhaseAngleDeg)+4e-9*math.Pow(moonPhaseAngleDeg, 4)))
	distScale := math.Pow(384400.0/(moonDistAU*149597870.7), 2)
	istar *= distScale

	// Scattering function (KS91 eq. 18/19): Rayleigh + Mie components.
	fRho := 10*math.Pow(10, 5.36*(1-math.Cos(rhoRad))/2) + math.Pow(10, 6.15-rhoRad/(40*math.Pi/180))

	// Atmospheric extinction term for the moon's and target's zenith
	// distances (KS91 eq. 17), assuming a typical extinction coefficient.
	const kExt = 0.172
	xMoon := 1.0 / math.Sqrt(1-0.96*math.Sin(zMoonRad)*math.Sin(zMoonRad))
	xTarg := 1.0 / math.Sqrt(1-0.96*math.Sin(zTargRad)*math.Sin(zTargRad))

	moonBrightnessTerm := fRho * istar * math.Pow(10, -0.4*kExt*xMoon) * (1 - math.Pow(10, -0.4*kExt*xTarg))

	darkSkyIntensity := math.Pow(10, -0.4*(darkSkyBrightness-informalZeroPoint))
	totalIntensity := darkSkyIntensity + moonBrightnessTerm
	if totalIntensity <= 0 {
		return darkSkyBrightness
	}
	return informalZeroPoint - 2.5*math.Log10(totalIntensity)
}

// informalZeroPoint is an arbitrary photometric zero point used only to
// convert between the additive intensity domain and the magnitude domain
// within CalculateSkyBrightness; it cancels out of the final result.
const informalZeroPoint = 21.587
