// Package ranker transforms program metadata (band, completion fraction,
// thesis flag) and per-slot visibility into per-slot score arrays, then
// aggregates those scores up a program's group tree (spec.md §4.3).
package ranker

import (
	"errors"
	"math"

	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/targetinfo"
)

// ErrOrGroupUnsupported is returned by ScoreGroup when asked to score an
// OR-group. OR-group scoring is an explicit non-goal (spec.md §9).
var ErrOrGroupUnsupported = errors.New("ranker: OR-group scoring is not supported")

// NightScores is one night's per-time-slot score array.
type NightScores []float64

// Scores is a sequence of NightScores, one entry per night in the
// requested window, in the same order the window was given.
type Scores []NightScores

// ScoreCombiner reduces a column of child scores (one score per child, for
// a single time slot) to a single group score. The default combiner
// returns max across children unless any child is exactly 0, in which
// case the result is 0 (spec.md §4.3 "Group aggregation").
type ScoreCombiner func(childScores []float64) float64

// DefaultScoreCombiner implements "max across children, unless any child
// is exactly 0, in which case 0" (spec.md §4.3, grounded on
// ranker/__init__.py's `_default_score_combiner`).
func DefaultScoreCombiner(childScores []float64) float64 {
	max := 0.0
	for i, v := range childScores {
		if v == 0 {
			return 0
		}
		if i == 0 || v > max {
			max = v
		}
	}
	return max
}

// Parameters are the Ranker's global tunables (spec.md §4.3).
type Parameters struct {
	ThesisFactor float64 // added to metric when the program is a thesis program
	Power        int     // comp_exp exponent on completion fraction, 1 or 2
	MetPower     float64
	VisPower     float64
	WhaPower     float64

	// DecDiffLess40 / DecDiff are the (c0, c1, c2) coefficients of
	// wha(t) = c0 + c1*ha + c2*ha^2, selected by whether the
	// declination-to-latitude offset is below 40 degrees.
	DecDiffLess40 [3]float64
	DecDiff       [3]float64

	ScoreCombiner ScoreCombiner
}

// DefaultParameters returns the Ranker's default parameterization
// (spec.md §4.3).
func DefaultParameters() Parameters {
	return Parameters{
		ThesisFactor:  1.1,
		Power:         2,
		MetPower:      1.0,
		VisPower:      1.0,
		WhaPower:      1.0,
		DecDiffLess40: [3]float64{3, 0, -0.08},
		DecDiff:       [3]float64{3, 0.1, -0.06},
		ScoreCombiner: DefaultScoreCombiner,
	}
}

// BandParameters are the per-band piecewise-metric coefficients
// (spec.md §4.3): metric(c) is a parabola below xb, a line from xb to 1,
// and flat above 1.
type BandParameters struct {
	M1, B1, M2, B2, Xb, Xb0, Xc0 float64
}

// BandParameterMap holds one BandParameters per priority band.
type BandParameterMap map[model.Band]BandParameters

// DefaultBandParameters builds the cascading per-band coefficients:
// band 4 is flat, and bands 3/2/1 have increasing slopes {1, 6, 20} with
// b1 bootstrapped so consecutive bands are continuous at completion = 1
// (spec.md §4.3, grounded on ranker/__init__.py's `_default_band_params`).
func DefaultBandParameters() BandParameterMap {
	m2 := map[model.Band]float64{model.Band4: 0.0, model.Band3: 1.0, model.Band2: 6.0, model.Band1: 20.0}
	const xb = 0.8
	b1 := 1.2

	params := BandParameterMap{
		model.Band4: {M1: 0, B1: 0.1, M2: 0, B2: 0, Xb: 0.8, Xb0: 0, Xc0: 0},
	}

	// Band3, Band2, Band1 in ascending-priority order, matching the
	// reference implementation's iteration (the set order doesn't matter
	// there since b1 accumulates independently of iteration order only
	// when processed Band3 -> Band2 -> Band1; that ordering is preserved
	// here explicitly rather than relying on map iteration order).
	for _, band := range []model.Band{model.Band3, model.Band2, model.Band1} {
		b2 := b1 + 5.0 - m2[band]
		m1 := (m2[band]*xb + b2) / (xb * xb)
		params[band] = BandParameters{M1: m1, B1: b1, M2: m2[band], B2: b2, Xb: xb, Xb0: 0, Xc0: 0}
		b1 += m2[band]*1.0 + b2
	}

	return params
}

// rankerMetricSlopeInterceptAlwaysZero mirrors the reference Ranker's
// `_metric_slope`, which computes its "b2" intercept via
// `if pow == 1: ... elif pow == 2: ...` — comparing the builtin `pow`
// function object against the integers 1 and 2, rather than the
// evidently-intended `self.params.power`. A function object never equals
// an int, so that branch is always skipped and the computed intercept is
// always 0 in every production run of the reference scheduler. This is
// preserved here verbatim rather than "fixed": a faithful port changes
// behavior only where the spec says to, and this was flagged as an open
// question rather than a known bug to correct.
func rankerMetricSlopeInterceptAlwaysZero() float64 {
	return 0
}

// MetricSlope computes the metric and its slope as a function of
// completion fraction and band (spec.md §4.3).
func MetricSlope(completion float64, band model.Band, b3min float64, thesis bool, params Parameters, bandParams BandParameterMap) (metric, slope float64) {
	const eps = 1.0e-7

	bp := bandParams[band]
	xb := bp.Xb
	if band == model.Band3 {
		xb = b3min
	}

	b2 := rankerMetricSlopeInterceptAlwaysZero()
	compExp := float64(params.Power)

	switch {
	case completion <= eps:
		return 0, 0
	case completion < xb:
		metric = bp.M1*math.Pow(completion, compExp) + bp.B1
		slope = compExp * bp.M1 * math.Pow(completion, compExp-1.0)
	case completion < 1.0:
		metric = bp.M2*completion + b2
		slope = bp.M2
	default:
		metric = bp.M2*1.0 + b2 + bp.Xc0
		slope = bp.M2
	}

	if thesis {
		metric += params.ThesisFactor
	}
	return metric, slope
}

// Ranker scores observations and groups for a fixed set of night indices.
// Observation scoring is eager and cached by ObservationID; group scoring
// is lazy (spec.md §4.3).
type Ranker struct {
	params     Parameters
	bandParams BandParameterMap

	obsScores map[model.ObservationID]Scores
}

// New builds a Ranker. A nil bandParams uses DefaultBandParameters().
func New(params Parameters, bandParams BandParameterMap) *Ranker {
	if bandParams == nil {
		bandParams = DefaultBandParameters()
	}
	if params.ScoreCombiner == nil {
		params.ScoreCombiner = DefaultScoreCombiner
	}
	return &Ranker{params: params, bandParams: bandParams, obsScores: make(map[model.ObservationID]Scores)}
}

// ScoreObservation computes and caches the per-night score arrays for one
// observation, given its program and the TargetInfo series covering the
// Ranker's night window (spec.md §4.3 "Observation score").
func (r *Ranker) ScoreObservation(prog *model.Program, obs *model.Observation, series []*targetinfo.TargetInfo, siteLatDeg float64) Scores {
	scores := make(Scores, len(series))
	for i, ti := range series {
		scores[i] = make(NightScores, ti.NumSlots())
	}

	remaining := obs.ExecTime() - obs.TotalUsed()
	cplt := prog.CompletionFraction(remaining)
	metric, _ := MetricSlope(cplt, prog.Band, prog.Band3MinFraction, prog.Thesis, r.params, r.bandParams)

	for i, ti := range series {
		decDiff := declinationLatitudeOffset(ti.DecDeg, siteLatDeg)
		c0, c1, c2 := r.params.DecDiff[0], r.params.DecDiff[1], r.params.DecDiff[2]
		if decDiff < 40.0 {
			c0, c1, c2 = r.params.DecDiffLess40[0], r.params.DecDiffLess40[1], r.params.DecDiffLess40[2]
		}

		metricTerm := math.Pow(metric, r.params.MetPower)
		visTerm := math.Pow(ti.RemVisibilityFrac, r.params.VisPower)

		for _, idx := range ti.VisibilitySlotIdx {
			ha := ti.HourAngle[idx]
			wha := c0 + c1*ha + c2*ha*ha
			if wha < 0 {
				wha = 0
			}
			scores[i][idx] = metricTerm * visTerm * math.Pow(wha, r.params.WhaPower)
		}
	}

	r.obsScores[obs.ID] = scores
	return scores
}

// ObservationScores returns the cached scores for obsID, or nil if
// ScoreObservation has not been called for it.
func (r *Ranker) ObservationScores(obsID model.ObservationID) (Scores, bool) {
	s, ok := r.obsScores[obsID]
	return s, ok
}

// declinationLatitudeOffset computes the per-night declination-to-latitude
// offset used to pick the wha() coefficient set: for a southern site, the
// offset from the maximum declination seen during the night; for a
// northern site, from the minimum (spec.md §4.3, matching `_score_obs`'s
// `dec_diff` computation).
func declinationLatitudeOffset(decDeg []float64, siteLatDeg float64) float64 {
	if len(decDeg) == 0 {
		return 0
	}
	if siteLatDeg < 0 {
		max := decDeg[0]
		for _, d := range decDeg[1:] {
			if d > max {
				max = d
			}
		}
		return math.Abs(siteLatDeg - max)
	}
	min := decDeg[0]
	for _, d := range decDeg[1:] {
		if d < min {
			min = d
		}
	}
	return math.Abs(min - siteLatDeg)
}

// ScoreGroup scores a group's per-night slot arrays, recursing into
// children as needed. Observation-leaf scores must already be present via
// a prior ScoreObservation call; OR-groups are rejected with
// ErrOrGroupUnsupported (spec.md §4.3, §9).
func (r *Ranker) ScoreGroup(g *model.Group) (Scores, error) {
	switch g.Kind {
	case model.GroupKindObservation:
		if g.Observation == nil {
			return nil, nil
		}
		scores, _ := r.ObservationScores(g.Observation.ID)
		return scores, nil
	case model.GroupKindOr:
		return nil, ErrOrGroupUnsupported
	case model.GroupKindAnd:
		return r.scoreAndGroup(g)
	default:
		return nil, errors.New("ranker: unknown group kind")
	}
}

func (r *Ranker) scoreAndGroup(g *model.Group) (Scores, error) {
	childScores := make([]Scores, 0, len(g.Children))
	for _, child := range g.Children {
		cs, err := r.ScoreGroup(child)
		if err != nil {
			return nil, err
		}
		childScores = append(childScores, cs)
	}

	numNights := 0
	for _, cs := range childScores {
		if len(cs) > numNights {
			numNights = len(cs)
		}
	}

	result := make(Scores, numNights)
	for n := 0; n < numNights; n++ {
		numSlots := 0
		for _, cs := range childScores {
			if n < len(cs) && len(cs[n]) > numSlots {
				numSlots = len(cs[n])
			}
		}
		result[n] = make(NightScores, numSlots)
		for t := 0; t < numSlots; t++ {
			column := make([]float64, len(childScores))
			for ci, cs := range childScores {
				if n < len(cs) && t < len(cs[n]) {
					column[ci] = cs[n][t]
				}
			}
			result[n][t] = r.params.ScoreCombiner(column)
		}
	}
	return result, nil
}
