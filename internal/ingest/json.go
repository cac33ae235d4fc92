// Package ingest parses the scheduler's JSON program documents into
// model.Program values, implementing the collector.ProgramProvider
// interface (spec.md §4.2). Uses encoding/json directly, matching the
// pack's own JSON handling (NikeGunn-tutu's internal/api, litescript's
// internal/dsn/export.go) rather than a third-party codec — there is no
// library in the corpus for this concern.
package ingest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/litescript/gemscheduler/internal/model"
)

// JSONProvider parses the flat wire format described by programDoc below.
type JSONProvider struct{}

// NewJSONProvider builds a JSONProvider. It holds no state.
func NewJSONProvider() JSONProvider { return JSONProvider{} }

// programDoc is the on-disk shape of one program document.
type programDoc struct {
	ID               string    `json:"id"`
	Band             int       `json:"band"`
	Thesis           bool      `json:"thesis"`
	AwardedHours     float64   `json:"awardedHours"`
	Semester         string    `json:"semester"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Band3MinFraction float64   `json:"band3MinFraction"`
	Groups           []groupDoc `json:"groups"`
}

type groupDoc struct {
	ID                string        `json:"id"`
	Kind              string        `json:"kind"` // "observation", "and", "schedulingGroup"
	Observation       *observationDoc `json:"observation,omitempty"`
	Children          []groupDoc    `json:"children,omitempty"`
}

type observationDoc struct {
	ID                string       `json:"id"`
	Site              string       `json:"site"`
	ObsClass          string       `json:"obsClass"`
	AcqOverheadSec    float64      `json:"acqOverheadSec"`
	Sequence          []atomDoc    `json:"sequence"`
	Target            targetDoc    `json:"target"`
	RequiredResources []string     `json:"requiredResources"`
	SkyBackgroundBound string      `json:"skyBackgroundBound"`
	ElevType          string       `json:"elevType"`
	ElevationMin      float64      `json:"elevationMin"`
	ElevationMax      float64      `json:"elevationMax"`
	TimingWindows     []windowDoc  `json:"timingWindows"`
}

type atomDoc struct {
	ProgTimeSec float64 `json:"progTimeSec"`
	PartTimeSec float64 `json:"partTimeSec"`
}

type targetDoc struct {
	Name      string  `json:"name"`
	RAdeg     float64 `json:"raDeg"`
	DecDeg    float64 `json:"decDeg"`
	PMRAmas   float64 `json:"pmRaMas"`
	PMDecmas  float64 `json:"pmDecMas"`
	EpochYear float64 `json:"epochYear"`
	// Nonsidereal targets omit ra/dec and set Nonsidereal true; their
	// ephemeris is fetched separately via collector.Collector.Ephemeris,
	// not carried in the document.
	Nonsidereal bool `json:"nonsidereal"`
}

type windowDoc struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Repeat   int           `json:"repeat"`
	Period   time.Duration `json:"period"`
}

// ParseProgram implements collector.ProgramProvider.
func (JSONProvider) ParseProgram(raw []byte) (*model.Program, error) {
	var doc programDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("ingest: decoding program document: %w", err)
	}
	if doc.ID == "" {
		return nil, fmt.Errorf("ingest: program document missing \"id\"")
	}

	progID := model.ProgramID(doc.ID)
	children := make([]*model.Group, 0, len(doc.Groups))
	for _, gd := range doc.Groups {
		g, err := buildGroup(progID, gd)
		if err != nil {
			return nil, fmt.Errorf("ingest: program %s: %w", doc.ID, err)
		}
		children = append(children, g)
	}

	var root *model.Group
	switch {
	case len(children) == 1:
		root = children[0]
	default:
		root = model.NewAndGroup(model.UniqueGroupID{ProgramID: progID, LocalID: "root"}, children)
	}

	return &model.Program{
		ID:               progID,
		Band:             model.Band(doc.Band),
		Thesis:           doc.Thesis,
		Awarded:          time.Duration(doc.AwardedHours * float64(time.Hour)),
		Semester:         doc.Semester,
		Start:            doc.Start,
		End:              doc.End,
		Band3MinFraction: doc.Band3MinFraction,
		Root:             root,
	}, nil
}

func buildGroup(progID model.ProgramID, gd groupDoc) (*model.Group, error) {
	id := model.UniqueGroupID{ProgramID: progID, LocalID: gd.ID}
	switch gd.Kind {
	case "", "observation":
		if gd.Observation == nil {
			return nil, fmt.Errorf("group %s: kind observation requires \"observation\"", gd.ID)
		}
		obs, err := buildObservation(progID, *gd.Observation)
		if err != nil {
			return nil, err
		}
		return model.NewObservationGroup(id, obs), nil
	case "and":
		children, err := buildChildren(progID, gd.Children)
		if err != nil {
			return nil, err
		}
		return model.NewAndGroup(id, children), nil
	case "schedulingGroup":
		children, err := buildChildren(progID, gd.Children)
		if err != nil {
			return nil, err
		}
		g, err := model.NewSchedulingGroup(id, children)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", gd.ID, err)
		}
		return g, nil
	default:
		return nil, fmt.Errorf("group %s: unsupported kind %q", gd.ID, gd.Kind)
	}
}

func buildChildren(progID model.ProgramID, docs []groupDoc) ([]*model.Group, error) {
	out := make([]*model.Group, 0, len(docs))
	for _, d := range docs {
		g, err := buildGroup(progID, d)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

func buildObservation(progID model.ProgramID, od observationDoc) (*model.Observation, error) {
	if od.ID == "" {
		return nil, fmt.Errorf("observation missing \"id\"")
	}
	sequence := make([]model.Atom, len(od.Sequence))
	for i, a := range od.Sequence {
		prog := time.Duration(a.ProgTimeSec * float64(time.Second))
		part := time.Duration(a.PartTimeSec * float64(time.Second))
		sequence[i] = model.Atom{ProgTime: prog, PartTime: part, ExecTime: prog + part}
	}

	resources := make([]model.Resource, len(od.RequiredResources))
	for i, r := range od.RequiredResources {
		resources[i] = model.Resource(r)
	}

	windows := make([]model.TimingWindow, len(od.TimingWindows))
	for i, w := range od.TimingWindows {
		windows[i] = model.TimingWindow{
			Start:    w.Start,
			Duration: w.Duration,
			Repeat:   w.Repeat,
			Period:   w.Period,
		}
	}

	target := &model.Target{
		Name: od.Target.Name, RAdeg: od.Target.RAdeg, DecDeg: od.Target.DecDeg,
		PMRAmas: od.Target.PMRAmas, PMDecmas: od.Target.PMDecmas, EpochYear: od.Target.EpochYear,
	}
	if od.Target.Nonsidereal {
		target.Kind = model.TargetNonsidereal
	}

	return &model.Observation{
		ID:          model.ObservationID(od.ID),
		ProgramID:   progID,
		Site:        model.Site{Name: od.Site},
		ObsClass:    model.ObservationClass(od.ObsClass),
		AcqOverhead: time.Duration(od.AcqOverheadSec * float64(time.Second)),
		Sequence:    sequence,
		BaseTarget:  target,
		RequiredResources: model.NewResourceSet(resources...),
		Constraints: model.Constraints{
			SkyBackgroundBound: model.SkyBackground(od.SkyBackgroundBound),
			ElevType:           model.ElevationType(od.ElevType),
			ElevationMin:       od.ElevationMin,
			ElevationMax:       od.ElevationMax,
			TimingWindows:      windows,
		},
	}, nil
}
