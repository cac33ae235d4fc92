// Package scheduler orchestrates the Collector, Ranker, Selector, and
// Optimizer into the per-night event loop and final plan/time-accounting
// pipeline (spec.md §4.6, §6 "Scheduler.run").
package scheduler

import (
	"fmt"
	"time"

	"github.com/litescript/gemscheduler/internal/accounting"
	"github.com/litescript/gemscheduler/internal/collector"
	"github.com/litescript/gemscheduler/internal/events"
	"github.com/litescript/gemscheduler/internal/metrics"
	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/obslog"
	"github.com/litescript/gemscheduler/internal/optimizer"
	"github.com/litescript/gemscheduler/internal/plan"
	"github.com/litescript/gemscheduler/internal/ranker"
	"github.com/litescript/gemscheduler/internal/selector"
	"github.com/litescript/gemscheduler/internal/timeline"
)

// Mode selects the scheduling run's ingest/side-effect policy (spec.md §6).
type Mode int

const (
	ModeValidation Mode = iota
	ModeSimulation
	ModeOperation
)

func (m Mode) String() string {
	switch m {
	case ModeValidation:
		return "VALIDATION"
	case ModeSimulation:
		return "SIMULATION"
	case ModeOperation:
		return "OPERATION"
	default:
		return "UNKNOWN"
	}
}

// ProgramSummary is one entry of the run's plans_summary (spec.md §6).
type ProgramSummary struct {
	CompletionPercent string
	CumulativeScore   float64
}

// PlansSummary maps ProgramID to its completion summary.
type PlansSummary map[model.ProgramID]ProgramSummary

// EventSource supplies the interior events (weather changes, faults,
// engineering tasks) for one (site, night) — the part of the "Resource
// service" adapter (spec.md §6) this core doesn't hold a stronger
// opinion about than "here is the stream for that night". EveningTwilight
// and MorningTwilight are always synthesized by the Scheduler itself.
type EventSource interface {
	Events(site model.Site, night model.NightIndex, nightStart time.Time) ([]events.Event, error)
}

// Scheduler ties the pipeline together for one run.
type Scheduler struct {
	Collector       *collector.Collector
	RankerParams    ranker.Parameters
	BandParams      ranker.BandParameterMap
	NewOptimizer    func() optimizer.Optimizer
	ResourceCatalog selector.ResourceCatalog
	Forecast        func(site model.Site, night model.NightIndex) selector.NightForecast
	EventSource     EventSource
	SlotLength      time.Duration
	Bound           map[string]model.TimeslotIndex // optional per-site end_timeslot_bound (spec.md §4.7)

	log *obslog.Logger
}

// New builds a Scheduler. log may be nil (defaults to a discard logger).
func New(c *collector.Collector, rankerParams ranker.Parameters, bandParams ranker.BandParameterMap, newOptimizer func() optimizer.Optimizer, catalog selector.ResourceCatalog, forecast func(model.Site, model.NightIndex) selector.NightForecast, evSrc EventSource, slotLength time.Duration, log *obslog.Logger) *Scheduler {
	if slotLength <= 0 {
		slotLength = time.Minute
	}
	if log == nil {
		log = obslog.Discard()
	}
	return &Scheduler{
		Collector: c, RankerParams: rankerParams, BandParams: bandParams,
		NewOptimizer: newOptimizer, ResourceCatalog: catalog, Forecast: forecast,
		EventSource: evSrc, SlotLength: slotLength, log: log,
	}
}

// Run executes the full pipeline for [startVis, startVis+numNights) across
// sites, returning the per-night event/plan timeline and a per-program
// completion summary (spec.md §6 "Scheduler.run").
func (s *Scheduler) Run(mode Mode, startVis time.Time, numNights int, sites []model.Site) (*timeline.NightlyTimeline, PlansSummary, error) {
	if numNights <= 0 {
		return nil, nil, fmt.Errorf("scheduler: numNights must be positive, got %d", numNights)
	}

	if mode == ModeValidation {
		for _, prog := range s.Collector.Programs() {
			for _, obs := range prog.Observations() {
				obs.ResetForValidation()
			}
		}
	}

	r := ranker.New(s.RankerParams, s.BandParams)

	nightStarts := make([]time.Time, numNights)
	for i := range nightStarts {
		nightStarts[i] = startVis.AddDate(0, 0, i)
	}
	nights := make([]model.NightIndex, numNights)
	for i := range nights {
		nights[i] = model.NightIndex(i)
	}

	merged := make(selector.Selection)
	programsBySite := make(map[string][]*model.Program)

	for _, prog := range s.Collector.Programs() {
		site, ok := programSite(prog, sites)
		if !ok {
			continue
		}
		programsBySite[site.Name] = append(programsBySite[site.Name], prog)

		for _, obs := range prog.Observations() {
			if obs.Site.Name != site.Name {
				continue
			}
			series, err := s.Collector.TargetInfo(obs, nightStarts, 0)
			if err != nil {
				return nil, nil, fmt.Errorf("scheduler: %w", err)
			}
			r.ScoreObservation(prog, obs, series, site.LatDeg)
		}

		forecasts := make(map[model.NightIndex]selector.NightForecast, numNights)
		for _, n := range nights {
			if s.Forecast != nil {
				forecasts[n] = s.Forecast(site, n)
			}
		}
		sel, err := selector.Select(prog, r, forecasts, s.ResourceCatalog, nights, site)
		if err != nil {
			return nil, nil, fmt.Errorf("scheduler: selecting program %s: %w", prog.ID, err)
		}
		for id, gd := range sel {
			merged[id] = gd
		}
	}

	opt := s.NewOptimizer()
	if err := opt.Setup(merged); err != nil {
		return nil, nil, fmt.Errorf("scheduler: optimizer setup: %w", err)
	}

	// One combined GroupIndex per site, covering every program scheduled
	// there, so ChargeNight sees every visit's true group membership in a
	// single pass rather than treating other programs' visits as foreign
	// (spec.md §4.7 charges the whole night's plan at once).
	siteGroupIndex := make(map[string]accounting.GroupIndex, len(programsBySite))
	for siteName, progs := range programsBySite {
		roots := make([]*model.Group, len(progs))
		for i, p := range progs {
			roots[i] = p.Root
		}
		siteGroupIndex[siteName] = accounting.BuildGroupIndex(model.NewAndGroup(model.UniqueGroupID{}, roots))
	}

	tl := timeline.New()
	obsByID := make(map[model.ObservationID]*model.Observation)
	for _, prog := range s.Collector.Programs() {
		for _, obs := range prog.Observations() {
			obsByID[obs.ID] = obs
		}
	}
	programOf := func(id model.ProgramID) *model.Program {
		p, _ := s.Collector.Program(id)
		return p
	}

	summary := make(PlansSummary)

	for i, night := range nights {
		for _, site := range sites {
			ne := s.Collector.NightEvents.Get(site, night, nightStarts[i], s.SlotLength)
			twiEve := ne.Times[0]
			twiMorn := twiEve.Add(time.Duration(ne.NumSlots()) * s.SlotLength)

			initial := plan.NewPlan(site, night, twiEve, twiMorn, s.SlotLength)
			if err := opt.Schedule([]model.NightIndex{night}, map[model.NightIndex]optimizer.Plans{night: {site.Name: initial}}); err != nil {
				return nil, nil, fmt.Errorf("scheduler: optimizer schedule: %w", err)
			}

			final, err := s.runNightEventLoop(tl, opt, site, night, twiEve, twiMorn, initial, merged)
			if err != nil {
				return nil, nil, fmt.Errorf("scheduler: night %d site %s: %w", night, site.Name, err)
			}
			metrics.OptimizerPlacements.WithLabelValues(site.Name).Add(float64(len(final.Visits)))

			var bound *model.TimeslotIndex
			if b, ok := s.Bound[site.Name]; ok {
				bound = &b
			}
			accounting.ChargeNight(final.Visits, obsByID, siteGroupIndex[site.Name], s.SlotLength, bound)

			stats := accounting.CalculateNightStats(final, obsByID, programOf)
			for progID, pct := range stats.ProgramCompletion {
				cur := summary[progID]
				cur.CompletionPercent = pct
				summary[progID] = cur
			}
			for _, v := range final.Visits {
				obs, ok := obsByID[v.ObservationID]
				if !ok {
					continue
				}
				cur := summary[obs.ProgramID]
				cur.CumulativeScore += v.Score
				summary[obs.ProgramID] = cur
			}
		}
	}

	return tl, summary, nil
}

// runNightEventLoop walks the (site, night)'s event queue, re-optimizing
// the remaining window on every invalidating event and recording one
// timeline.Entry per event (spec.md §4.6).
func (s *Scheduler) runNightEventLoop(tl *timeline.NightlyTimeline, opt optimizer.Optimizer, site model.Site, night model.NightIndex, twiEve, twiMorn time.Time, initial *plan.Plan, sel selector.Selection) (*plan.Plan, error) {
	q := &events.Queue{}
	q.Push(events.NewEveningTwilight(site, twiEve))
	q.Push(events.NewMorningTwilight(site, twiMorn))
	if s.EventSource != nil {
		extra, err := s.EventSource.Events(site, night, twiEve)
		if err != nil {
			return nil, fmt.Errorf("event source: %w", err)
		}
		for _, e := range extra {
			q.Push(e)
		}
	}

	current := initial
	blocked := model.NewResourceSet()

	for {
		e, ok := q.Pop()
		if !ok {
			break
		}
		idx := e.ToTimeslotIdx(twiEve, s.SlotLength)

		var generated *plan.Plan
		switch e.Kind {
		case events.KindEveningTwilight:
			generated = current
		case events.KindWeatherChange, events.KindFault, events.KindEngTask, events.KindResumeNight:
			if e.Kind == events.KindFault || e.Kind == events.KindEngTask {
				for r := range e.Affects {
					blocked[r] = struct{}{}
				}
			}
			if e.Kind == events.KindFault {
				metrics.FaultsObserved.WithLabelValues(site.Name).Inc()
			}
			if e.Kind == events.KindResumeNight {
				blocked = model.NewResourceSet()
			}
			replanned, err := s.replan(site, night, twiEve, twiMorn, idx, current, sel, blocked)
			if err != nil {
				return nil, err
			}
			current = replanned
			generated = replanned
		case events.KindMorningTwilight:
			generated = nil
		}

		tl.Add(night, site, idx, e, generated)
	}

	final, err := tl.GetFinalPlan(night, site)
	if err != nil {
		return nil, err
	}
	if final == nil {
		final = current
	}
	return final, nil
}

// replan rebuilds a full-night plan carrying forward every visit
// committed before idx, then re-runs the optimizer to fill
// [idx, end_of_night) under any newly blocked resources (spec.md §4.6
// step 2). It reuses the Scheduler's already-built Selection rather than
// recomputing Selector output, since the forecast/resource changes this
// core models (fault/weather) don't change the Ranker's score arrays —
// only which resources/conditions gate a slot as schedulable. The
// Optimizer's Add does not consult the Selection's NightFiltering, so a
// resource the fault newly blocks is handled only by excluding every
// group requiring it, via requiresBlocked.
func (s *Scheduler) replan(site model.Site, night model.NightIndex, twiEve, twiMorn time.Time, idx model.TimeslotIndex, committed *plan.Plan, sel selector.Selection, blocked model.ResourceSet) (*plan.Plan, error) {
	remainder := committed.Slice(idx)
	remainder.Start = twiEve
	remainder.End = twiMorn

	filtered := make(selector.Selection, len(sel))
	for id, gd := range sel {
		if gd.Group != nil && gd.Group.IsObservationGroup() && gd.Group.Observation != nil &&
			requiresBlocked(gd.Group.Observation.RequiredResources, blocked) {
			continue
		}
		filtered[id] = gd
	}

	opt := s.NewOptimizer()
	if err := opt.Setup(filtered); err != nil {
		return nil, fmt.Errorf("replan: optimizer setup: %w", err)
	}
	if err := opt.Schedule([]model.NightIndex{night}, map[model.NightIndex]optimizer.Plans{night: {site.Name: remainder}}); err != nil {
		return nil, fmt.Errorf("replan: optimizer schedule: %w", err)
	}
	return remainder, nil
}

func requiresBlocked(required, blocked model.ResourceSet) bool {
	for r := range required {
		if _, ok := blocked[r]; ok {
			return true
		}
	}
	return false
}

// programSite picks the first supported site among a program's
// observations. Gemini programs are single-site in practice (GN-.../
// GS-...); a program whose observations span no requested site is
// skipped entirely by the caller.
func programSite(prog *model.Program, sites []model.Site) (model.Site, bool) {
	for _, obs := range prog.Observations() {
		for _, site := range sites {
			if obs.Site.Name == site.Name {
				return site, true
			}
		}
	}
	return model.Site{}, false
}
