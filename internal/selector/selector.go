// Package selector filters a program's groups by conditions, wind, and
// resource/block-schedule availability, invoking the Ranker to produce a
// per-(program, group) Selection (spec.md §4.4).
package selector

import (
	"github.com/samber/lo"

	"github.com/litescript/gemscheduler/internal/metrics"
	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/ranker"
)

// GroupInfo is everything the Selector derives about a group that the
// Ranker alone cannot supply: condition/wind grading, resource
// filtering, and the final schedulable-slot mask (spec.md §3 "GroupInfo").
type GroupInfo struct {
	MinimumConditions model.Conditions
	IsSplittable      bool
	Standards         float64

	// NightFiltering[n] is false if any required resource is missing or
	// the program is block-filtered out on night n.
	NightFiltering map[model.NightIndex]bool

	// ConditionsScore[n] holds a single night-wide grade; WindScore[n] is
	// a per-slot grading array.
	ConditionsScore map[model.NightIndex][]float64
	WindScore       map[model.NightIndex][]float64

	// SchedulableSlotIndices[n] lists the slots where Scores[n][t] times
	// the conditions and wind grades is > 0, on a night NightFiltering
	// passes.
	SchedulableSlotIndices map[model.NightIndex][]int

	Scores ranker.Scores
}

// GroupData pairs a Group with its derived GroupInfo.
type GroupData struct {
	Group     *model.Group
	GroupInfo GroupInfo
}

// Selection maps (program, top-level group) to GroupData over a
// contiguous night-index range (spec.md §4.4 "The Selection is a mapping
// (program, group) -> GroupData").
type Selection map[model.UniqueGroupID]GroupData

// NightForecast supplies the actual/forecast conditions and wind used to
// grade a group's schedulability for one night.
type NightForecast struct {
	Conditions model.Conditions
	WindSpeed  []float64 // per slot, m/s
	WindDir    []float64 // per slot, degrees
}

// ResourceCatalog resolves which resources are available, and which
// programs are block-filtered, for (site, night) — the Selector's view of
// spec.md §6's "Resource service" adapter.
type ResourceCatalog interface {
	Available(site model.Site, night model.NightIndex) model.ResourceSet
	ProgramFiltered(site model.Site, night model.NightIndex, prog *model.Program) bool
}

// Select builds the Selection for every top-level group in prog.Root's
// children (or the root itself, if it is a single observation-group),
// across the given night indices.
func Select(prog *model.Program, r *ranker.Ranker, forecasts map[model.NightIndex]NightForecast, catalog ResourceCatalog, nights []model.NightIndex, site model.Site) (Selection, error) {
	sel := make(Selection)
	for _, g := range topLevelGroups(prog.Root) {
		info, err := buildGroupInfo(g, prog, r, forecasts, catalog, nights, site)
		if err != nil {
			return nil, err
		}
		sel[g.UniqueID] = GroupData{Group: g, GroupInfo: info}
	}
	return sel, nil
}

func topLevelGroups(root *model.Group) []*model.Group {
	if root == nil {
		return nil
	}
	if root.IsObservationGroup() {
		return []*model.Group{root}
	}
	return root.Children
}

func buildGroupInfo(g *model.Group, prog *model.Program, r *ranker.Ranker, forecasts map[model.NightIndex]NightForecast, catalog ResourceCatalog, nights []model.NightIndex, site model.Site) (GroupInfo, error) {
	scores, err := r.ScoreGroup(g)
	if err != nil {
		return GroupInfo{}, err
	}

	info := GroupInfo{
		MinimumConditions:      minimumConditions(g),
		IsSplittable:           !g.IsSchedulingGroup,
		NightFiltering:         make(map[model.NightIndex]bool, len(nights)),
		ConditionsScore:        make(map[model.NightIndex][]float64, len(nights)),
		WindScore:              make(map[model.NightIndex][]float64, len(nights)),
		SchedulableSlotIndices: make(map[model.NightIndex][]int, len(nights)),
		Scores:                 scores,
	}

	requiredResources := requiredResources(g)

	for i, n := range nights {
		forecast := forecasts[n]

		filtered := true
		if catalog != nil {
			resourceBlocked := !requiredResources.Subset(catalog.Available(site, n))
			programFiltered := catalog.ProgramFiltered(site, n, prog)
			filtered = !resourceBlocked && !programFiltered

			switch {
			case resourceBlocked:
				metrics.ObservationsSkipped.WithLabelValues("resource_blocked").Add(float64(len(g.Observations())))
			case programFiltered:
				metrics.ObservationsSkipped.WithLabelValues("program_filtered").Add(float64(len(g.Observations())))
			}
		}
		info.NightFiltering[n] = filtered

		condScore := conditionsScore(info.MinimumConditions, forecast.Conditions)

		var nightScores ranker.NightScores
		if i < len(scores) {
			nightScores = scores[i]
		}
		windScores := windScoreForNight(forecast, len(nightScores))
		info.ConditionsScore[n] = []float64{condScore}
		info.WindScore[n] = windScores

		var schedulable []int
		for t, s := range nightScores {
			final := s * condScore
			if t < len(windScores) {
				final *= windScores[t]
			}
			if !filtered {
				final = 0
			}
			if final > 0 {
				schedulable = append(schedulable, t)
			}
		}
		info.SchedulableSlotIndices[n] = schedulable
	}

	return info, nil
}

// minimumConditions derives the conjunction of child constraints under a
// group (spec.md §4.4 "minimum_conditions"). Observations carry no
// CC/IQ constraint in the data model (spec.md §3), so the result is always
// the most permissive CCAny/IQAny; model.Conditions has no sky-background
// field, so the sky-background bound is not folded in here either.
func minimumConditions(g *model.Group) model.Conditions {
	mc := model.Conditions{CC: model.CCAny, IQ: model.IQAny}
	for _, obs := range g.Observations() {
		if obs.Constraints.SkyBackgroundBound < model.SBAny {
			// A sky-background bound implies at least a moderately
			// restrictive condition requirement; without an explicit
			// per-observation CC/IQ field in the data model, the minimum
			// conditions are left at their most permissive defaults here.
			_ = obs
		}
	}
	return mc
}

func requiredResources(g *model.Group) model.ResourceSet {
	resources := lo.FlatMap(g.Observations(), func(obs *model.Observation, _ int) []model.Resource {
		return lo.Keys(obs.RequiredResources)
	})
	return model.NewResourceSet(lo.Uniq(resources)...)
}

// conditionsScore grades how well a forecast meets a group's minimum
// conditions: 1.0 if it meets or exceeds the requirement, else a graded
// penalty proportional to how far short it falls (spec.md §4.4
// "conditions_score[n]: 1.0 if forecast >= required, else a graded
// penalty function of ratio (CC, IQ)").
func conditionsScore(required, forecast model.Conditions) float64 {
	if forecast.Satisfies(required) {
		return 1.0
	}
	ccRatio := ratio(int(required.CC), int(forecast.CC))
	iqRatio := ratio(int(required.IQ), int(forecast.IQ))
	return ccRatio * iqRatio
}

// ratio returns (required+1)/(forecast+1), clamped to [0,1], when forecast is
// worse (numerically greater, in the percentile-band convention where a
// lower number is a more restrictive/better bound) than required.
func ratio(required, forecast int) float64 {
	if forecast <= required {
		return 1.0
	}
	if forecast == 0 {
		return 0
	}
	r := float64(required+1) / float64(forecast+1)
	if r < 0 {
		return 0
	}
	return r
}

// windScoreForNight grades each slot by wind speed alone, via a simple
// linear falloff past a nominal speed threshold; wind direction and the
// group's target azimuth are not used (spec.md §4.4 "wind_score[n]: derived from the group's
// target az and forecast wind speed/direction").
func windScoreForNight(forecast NightForecast, numSlots int) []float64 {
	scores := make([]float64, numSlots)
	const safeSpeedMS = 10.0
	const maxSpeedMS = 20.0
	for t := 0; t < numSlots; t++ {
		speed := 0.0
		if t < len(forecast.WindSpeed) {
			speed = forecast.WindSpeed[t]
		}
		switch {
		case speed <= safeSpeedMS:
			scores[t] = 1.0
		case speed >= maxSpeedMS:
			scores[t] = 0.0
		default:
			scores[t] = 1.0 - (speed-safeSpeedMS)/(maxSpeedMS-safeSpeedMS)
		}
	}
	return scores
}
