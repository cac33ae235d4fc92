// Package timeline assembles the per-night, per-site ordered event record
// into a single canonical Plan via reverse-merge of partial plans
// (spec.md §4.6 "Final plan assembly").
package timeline

import (
	"fmt"
	"time"

	"github.com/litescript/gemscheduler/internal/events"
	"github.com/litescript/gemscheduler/internal/model"
	"github.com/litescript/gemscheduler/internal/plan"
)

// Entry is one (event, partial-plan) pair recorded during the night's
// event loop (spec.md §3 "TimelineEntry").
type Entry struct {
	StartTimeSlot model.TimeslotIndex
	Event         events.Event
	PlanGenerated *plan.Plan // nil if the event didn't trigger re-planning
}

// NightlyTimeline is the full per-(night, site) record of timeline
// entries for a scheduling request (spec.md §3, §6 "NightlyTimeline JSON
// schema").
type NightlyTimeline struct {
	entries map[model.NightIndex]map[string][]Entry
}

// New builds an empty NightlyTimeline.
func New() *NightlyTimeline {
	return &NightlyTimeline{entries: make(map[model.NightIndex]map[string][]Entry)}
}

// Add records a timeline entry for (night, site).
func (t *NightlyTimeline) Add(night model.NightIndex, site model.Site, timeSlot model.TimeslotIndex, event events.Event, planGenerated *plan.Plan) {
	bySite, ok := t.entries[night]
	if !ok {
		bySite = make(map[string][]Entry)
		t.entries[night] = bySite
	}
	bySite[site.Name] = append(bySite[site.Name], Entry{StartTimeSlot: timeSlot, Event: event, PlanGenerated: planGenerated})
}

// Entries returns the recorded entries for (night, site), in the order
// they were added.
func (t *NightlyTimeline) Entries(night model.NightIndex, site model.Site) []Entry {
	bySite, ok := t.entries[night]
	if !ok {
		return nil
	}
	return bySite[site.Name]
}

// GetFinalPlan assembles the canonical plan for (night, site) by walking
// its entries in reverse, taking from each re-planning entry only the
// slice of visits not superseded by a later entry, and truncating any
// visit the later entry's start cuts mid-execution (spec.md §4.6). Visits
// an entry's plan carries from before that entry's own start slot are
// skipped there; the earlier entries supply them.
//
// Returns nil if no entry in the night carries a generated plan.
func (t *NightlyTimeline) GetFinalPlan(night model.NightIndex, site model.Site) (*plan.Plan, error) {
	bySite, ok := t.entries[night]
	if !ok {
		return nil, fmt.Errorf("timeline: night %d not recorded", night)
	}
	entries, ok := bySite[site.Name]
	if !ok {
		return nil, fmt.Errorf("timeline: site %s not recorded for night %d", site.Name, night)
	}

	var relevant []Entry
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].PlanGenerated != nil {
			relevant = append(relevant, entries[i])
		}
	}
	if len(relevant) == 0 {
		return nil, nil
	}

	var allGenerated []plan.Visit
	t_ := model.TimeslotIndex(0)
	for _, entry := range relevant {
		pg := entry.PlanGenerated
		var partial *plan.Plan
		if t_ > 0 {
			partial = pg.Slice(t_)
		} else {
			partial = pg
		}
		for i := len(partial.Visits) - 1; i >= 0; i-- {
			v := partial.Visits[i]
			if v.TimeSlots > 0 && v.StartSlot >= entry.StartTimeSlot {
				allGenerated = append(allGenerated, v)
			}
		}
		if t_ < entry.StartTimeSlot {
			t_ = entry.StartTimeSlot
		}
	}

	visits := make([]plan.Visit, len(allGenerated))
	for i, v := range allGenerated {
		visits[len(allGenerated)-1-i] = v
	}
	final := plan.FromVisits(
		site, night,
		relevant[0].PlanGenerated.Start,
		relevant[len(relevant)-1].PlanGenerated.End,
		relevant[0].PlanGenerated.TimeSlotLength,
		visits,
	)
	return final, nil
}

// Nights returns every recorded NightIndex.
func (t *NightlyTimeline) Nights() []model.NightIndex {
	nights := make([]model.NightIndex, 0, len(t.entries))
	for n := range t.entries {
		nights = append(nights, n)
	}
	return nights
}

const isoLayout = "2006-01-02 15:04"

// JSONVisit is the wire representation of one plan.Visit within the
// NightlyTimeline JSON schema (spec.md §6).
type JSONVisit struct {
	StartTime    string  `json:"startTime"`
	EndTime      string  `json:"endTime"`
	ObsID        string  `json:"obsId"`
	AtomStartIdx int     `json:"atomStartIdx"`
	AtomEndIdx   int     `json:"atomEndIdx"`
	Score        float64 `json:"score"`
}

// JSONPlan is the wire representation of a plan.Plan.
type JSONPlan struct {
	Start  string      `json:"start"`
	End    string      `json:"end"`
	Site   string      `json:"site"`
	Visits []JSONVisit `json:"visits"`
}

// JSONEvent is the wire representation of an events.Event.
type JSONEvent struct {
	Site        string `json:"site"`
	Time        string `json:"time"`
	Description string `json:"description"`
}

// JSONEntry is the wire representation of one Entry.
type JSONEntry struct {
	StartTimeSlot int        `json:"startTimeSlot"`
	Event         JSONEvent  `json:"event"`
	Plan          *JSONPlan  `json:"plan,omitempty"`
}

// ToWire converts the full timeline to the stable JSON shape described in
// spec.md §6: `{ night_idx_str: { site_name: [ {...} ] } }`.
func (t *NightlyTimeline) ToWire() map[string]map[string][]JSONEntry {
	out := make(map[string]map[string][]JSONEntry, len(t.entries))
	for night, bySite := range t.entries {
		siteMap := make(map[string][]JSONEntry, len(bySite))
		for siteName, entries := range bySite {
			wireEntries := make([]JSONEntry, len(entries))
			for i, e := range entries {
				wireEntries[i] = toJSONEntry(e)
			}
			siteMap[siteName] = wireEntries
		}
		out[fmt.Sprintf("%d", night)] = siteMap
	}
	return out
}

func toJSONEntry(e Entry) JSONEntry {
	je := JSONEntry{
		StartTimeSlot: int(e.StartTimeSlot),
		Event: JSONEvent{
			Site:        e.Event.Site.Name,
			Time:        e.Event.Start.UTC().Format(isoLayout),
			Description: e.Event.Reason,
		},
	}
	if e.PlanGenerated != nil {
		je.Plan = toJSONPlan(e.PlanGenerated)
	}
	return je
}

func toJSONPlan(p *plan.Plan) *JSONPlan {
	jp := &JSONPlan{
		Start: p.Start.UTC().Format(isoLayout),
		End:   p.End.UTC().Format(isoLayout),
		Site:  p.Site.Name,
	}
	for _, v := range p.Visits {
		start := p.Start.Add(time.Duration(v.StartSlot) * p.TimeSlotLength)
		end := start.Add(time.Duration(v.TimeSlots) * p.TimeSlotLength)
		jp.Visits = append(jp.Visits, JSONVisit{
			StartTime:    start.UTC().Format(isoLayout),
			EndTime:      end.UTC().Format(isoLayout),
			ObsID:        string(v.ObservationID),
			AtomStartIdx: v.AtomStartIdx,
			AtomEndIdx:   v.AtomEndIdx,
			Score:        v.Score,
		})
	}
	return jp
}
