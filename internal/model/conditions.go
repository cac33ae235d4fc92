package model

// CloudCover and ImageQuality are percentile bounds, matching the
// SkyBackground convention: lower means better/more restrictive.
type CloudCover int

const (
	CC50 CloudCover = iota
	CC70
	CC80
	CCAny
)

type ImageQuality int

const (
	IQ20 ImageQuality = iota
	IQ70
	IQ85
	IQAny
)

// Conditions is an actual or forecast observing-conditions sample: sky
// cloud cover, image quality, and wind (spec.md §4.4 "conditions_score",
// "wind_score").
type Conditions struct {
	CC          CloudCover
	IQ          ImageQuality
	WindSpeedMS float64
	WindDirDeg  float64
}

// Satisfies reports whether this forecast sample meets a required
// (minimum) conditions bound: both CC and IQ must be at least as good
// (numerically <=) as required.
func (c Conditions) Satisfies(required Conditions) bool {
	return c.CC <= required.CC && c.IQ <= required.IQ
}
