// Package collector ingests programs and builds per-(observation, night)
// visibility data, grounded directly on
// original_source/scheduler/core/components/collector/collector.py
// (spec.md §4.2).
package collector

import (
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/litescript/gemscheduler/internal/metrics"
	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/nightevents"
	"github.com/litescript/gemscheduler/internal/obslog"
	"github.com/litescript/gemscheduler/internal/targetinfo"
)

// ProgramProvider parses one raw program document into a model.Program.
// A provider that cannot resolve a program at all (not merely reject it)
// returns (nil, nil), mirroring collector.py's `program_provider.parse_program`
// returning None rather than raising.
type ProgramProvider interface {
	ParseProgram(raw []byte) (*model.Program, error)
}

// ResourceService answers the night-configuration, fault, and engineering
// task questions spec.md §6 assigns to the "Resource service" adapter.
type ResourceService interface {
	NightConfiguration(site model.Site, date time.Time) (targetinfo.NightConfiguration, error)
}

// Collector ingests programs and computes the TargetInfo series every
// Selector/Ranker call downstream depends on (collector.py's `Collector`
// dataclass, trimmed to this core's scope).
type Collector struct {
	Sites      []model.Site
	Semesters  map[string]bool
	SlotLength time.Duration

	NightEvents *nightevents.Manager
	Resources   ResourceService
	Cache       targetinfo.Cache
	Ephemeris   targetinfo.EphemerisProvider

	log *obslog.Logger

	programs     map[model.ProgramID]*model.Program
	observations map[model.ObservationID]*model.Observation
}

// New builds a Collector. log may be nil, in which case obslog.Discard()
// is used.
func New(sites []model.Site, semesters []string, slotLength time.Duration, ne *nightevents.Manager, rs ResourceService, cache targetinfo.Cache, ephem targetinfo.EphemerisProvider, log *obslog.Logger) *Collector {
	if slotLength <= 0 {
		slotLength = nightevents.DefaultSlotLength
	}
	if log == nil {
		log = obslog.Discard()
	}
	semSet := make(map[string]bool, len(semesters))
	for _, s := range semesters {
		semSet[s] = true
	}
	return &Collector{
		Sites:        sites,
		Semesters:    semSet,
		SlotLength:   slotLength,
		NightEvents:  ne,
		Resources:    rs,
		Cache:        cache,
		Ephemeris:    ephem,
		log:          log,
		programs:     make(map[model.ProgramID]*model.Program),
		observations: make(map[model.ObservationID]*model.Observation),
	}
}

func (c *Collector) siteSupported(site model.Site) bool {
	for _, s := range c.Sites {
		if s.Name == site.Name {
			return true
		}
	}
	return false
}

// LoadPrograms parses every raw program document via provider, filters
// out programs that fail validation, and registers the survivors
// (collector.py's `load_programs`):
//   - a provider that cannot parse a document at all is skipped (counted,
//     not fatal to the batch)
//   - a program outside the configured semester set is skipped
//   - a program with non-positive awarded time is skipped
//   - a program's observations are filtered down to the configured sites;
//     a program left with no observations after filtering is skipped
//   - a duplicate ProgramID overwrites the earlier one, with a warning
//
// Every per-document failure is logged and folded into a combined error
// via multierr (SPEC_FULL.md §A.3) rather than aborting the batch; the
// caller can inspect the returned error or ignore it and rely on the
// skip counters alone.
func (c *Collector) LoadPrograms(provider ProgramProvider, rawPrograms [][]byte) (loaded int, skipped int, err error) {
	var errs error
	for _, raw := range rawPrograms {
		prog, perr := provider.ParseProgram(raw)
		if perr != nil {
			errs = multierr.Append(errs, fmt.Errorf("collector: parsing program: %w", perr))
			metrics.ProgramsRejected.WithLabelValues("parse_error").Inc()
			skipped++
			continue
		}
		if prog == nil {
			// The provider recognized the document but chose not to
			// produce a program from it (e.g. an inactive OCS record).
			metrics.ProgramsRejected.WithLabelValues("nil_program").Inc()
			skipped++
			continue
		}
		if !c.Semesters[prog.Semester] {
			c.log.Debug("skipping program: unsupported semester", "program", prog.ID, "semester", prog.Semester)
			metrics.ProgramsRejected.WithLabelValues("unsupported_semester").Inc()
			skipped++
			continue
		}
		if !prog.Valid() {
			c.log.Warn("skipping invalid program", "program", prog.ID)
			metrics.ProgramsRejected.WithLabelValues("invalid").Inc()
			skipped++
			continue
		}
		c.filterToSupportedSites(prog)
		if len(prog.Observations()) == 0 {
			c.log.Debug("skipping program: no observations at a supported site", "program", prog.ID)
			metrics.ProgramsRejected.WithLabelValues("no_supported_site").Inc()
			skipped++
			continue
		}
		if _, dup := c.programs[prog.ID]; dup {
			c.log.Warn("overwriting duplicate program id", "program", prog.ID)
		}
		c.programs[prog.ID] = prog
		for _, obs := range prog.Observations() {
			c.observations[obs.ID] = obs
		}
		loaded++
	}
	return loaded, skipped, errs
}

// filterToSupportedSites prunes observations whose Site isn't in
// c.Sites, by rebuilding the program's group tree dropping unsupported
// leaves (collector.py filters the observation list directly; the group
// tree here is walked and pruned to match).
func (c *Collector) filterToSupportedSites(prog *model.Program) {
	prog.Root = pruneUnsupportedSites(prog.Root, c.siteSupported)
}

func pruneUnsupportedSites(g *model.Group, supported func(model.Site) bool) *model.Group {
	if g == nil {
		return nil
	}
	if g.Kind == model.GroupKindObservation {
		if g.Observation != nil && !supported(g.Observation.Site) {
			return nil
		}
		return g
	}
	var kept []*model.Group
	for _, child := range g.Children {
		if pruned := pruneUnsupportedSites(child, supported); pruned != nil {
			kept = append(kept, pruned)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	g.Children = kept
	return g
}

// Program looks up a loaded program by ID.
func (c *Collector) Program(id model.ProgramID) (*model.Program, bool) {
	p, ok := c.programs[id]
	return p, ok
}

// Programs returns every loaded program.
func (c *Collector) Programs() []*model.Program {
	out := make([]*model.Program, 0, len(c.programs))
	for _, p := range c.programs {
		out = append(out, p)
	}
	return out
}

// Observation looks up a loaded observation by ID.
func (c *Collector) Observation(id model.ObservationID) (*model.Observation, bool) {
	o, ok := c.observations[id]
	return o, ok
}

// ProgramFor finds the owning program of an observation by its
// ProgramID, since Observation only carries the id, not a pointer.
func (c *Collector) ProgramFor(obs *model.Observation) (*model.Program, bool) {
	return c.Program(obs.ProgramID)
}

// TargetInfo computes (or fetches from cache) the TargetInfo series for
// one observation across a run of nights at its site, attaching
// ephemeris for non-sidereal targets first if an EphemerisProvider is
// configured (spec.md §4.2 steps 1-10; collector.py's
// `_calculate_target_info` plus its Redis cache lookup, here generalized
// behind the targetinfo.Cache adapter).
func (c *Collector) TargetInfo(obs *model.Observation, nightStarts []time.Time, baseNight model.NightIndex) ([]*targetinfo.TargetInfo, error) {
	prog, ok := c.ProgramFor(obs)
	if !ok {
		return nil, fmt.Errorf("collector: observation %s has no loaded program %s", obs.ID, obs.ProgramID)
	}

	if obs.BaseTarget != nil && obs.BaseTarget.Kind == model.TargetNonsidereal && c.Ephemeris != nil {
		if err := c.attachEphemeris(obs, nightStarts); err != nil {
			return nil, fmt.Errorf("collector: fetching ephemeris for %s: %w", obs.ID, err)
		}
	}

	nights := make([]*nightevents.NightEvents, len(nightStarts))
	for i, start := range nightStarts {
		nights[i] = c.NightEvents.Get(obs.Site, baseNight+model.NightIndex(i), start, c.SlotLength)
	}

	cfg, err := c.nightConfigFor(obs.Site, nightStarts)
	if err != nil {
		return nil, err
	}

	return c.computeSeriesWithCache(obs, prog, nights, cfg), nil
}

func (c *Collector) attachEphemeris(obs *model.Observation, nightStarts []time.Time) error {
	if len(nightStarts) == 0 {
		return nil
	}
	span := nightStarts[len(nightStarts)-1].Sub(nightStarts[0]) + 24*time.Hour
	numSlots := int(span / c.SlotLength)
	points, err := c.Ephemeris.Positions(obs.BaseTarget, nightStarts[0], numSlots, c.SlotLength)
	if err != nil {
		return err
	}
	obs.BaseTarget.Ephemeris = points
	return nil
}

// nightConfigFor resolves a single NightConfiguration covering the whole
// requested run. Per-night resource availability can differ in
// principle, but the Selector (not the Collector) is where per-night
// resource/program filtering is actually graded (spec.md §4.4); here the
// Collector only needs one representative gate to decide whether a slot
// is even worth computing geometry for.
func (c *Collector) nightConfigFor(site model.Site, nightStarts []time.Time) (targetinfo.NightConfiguration, error) {
	if c.Resources == nil || len(nightStarts) == 0 {
		return targetinfo.NightConfiguration{Resources: model.NewResourceSet()}, nil
	}
	return c.Resources.NightConfiguration(site, nightStarts[0])
}

// computeSeriesWithCache fills out[i] for every night, reusing a cached
// TargetInfo where available and calling targetinfo.Compute only for the
// rest, then runs targetinfo.AccumulateVisibility over the *whole* series
// regardless of which entries were cache hits — RemVisibilityTime/Frac are a
// property of the full requested night range, not of any single night, so
// a cached entry's accumulation from whatever range it was originally
// computed under can never substitute for recomputing it against this
// call's range. Cached entries are copied before accumulating into them so
// the mutation doesn't corrupt the cache for a future call with a different
// range.
func (c *Collector) computeSeriesWithCache(obs *model.Observation, prog *model.Program, nights []*nightevents.NightEvents, cfg targetinfo.NightConfiguration) []*targetinfo.TargetInfo {
	out := make([]*targetinfo.TargetInfo, len(nights))
	if c.Cache == nil {
		for i, ne := range nights {
			out[i] = targetinfo.Compute(obs, prog, ne, cfg)
		}
		targetinfo.AccumulateVisibility(obs, out)
		return out
	}

	for i, ne := range nights {
		key := targetinfo.CacheKey(obs.ID, julianDate(ne.Times[0]), int(c.SlotLength.Minutes()))
		if cached, ok := c.Cache.Get(key); ok {
			cachedCopy := *cached
			out[i] = &cachedCopy
			continue
		}
		ti := targetinfo.Compute(obs, prog, ne, cfg)
		out[i] = ti
		c.Cache.Set(key, ti)
	}
	targetinfo.AccumulateVisibility(obs, out)
	return out
}

// julianDate converts a UTC time to a Julian date, matching the reference
// cache key's "{obs_id}{jd}{slot_length_minutes}" format (spec.md §6).
func julianDate(t time.Time) float64 {
	const unixEpochJD = 2440587.5
	return unixEpochJD + float64(t.UnixNano())/(24*60*60*1e9)
}
