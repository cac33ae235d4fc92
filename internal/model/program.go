package model

import "time"

// Band is a program priority tier, 1 (highest) to 4 (lowest).
type Band int

const (
	Band1 Band = 1
	Band2 Band = 2
	Band3 Band = 3
	Band4 Band = 4
)

// Program is an awarded observing program: a root Group tree plus
// accounting and scheduling metadata.
type Program struct {
	ID       ProgramID
	Band     Band
	Thesis   bool
	Awarded  time.Duration
	Used     time.Duration
	Semester string
	Start    time.Time
	End      time.Time
	Root     *Group

	// Band3MinFraction is "Band 3 minimum time / allocated program time",
	// used by the Ranker as the band-3 inflection point xb instead of the
	// fixed 0.8 used by every other band (spec.md §4.3).
	Band3MinFraction float64
}

// Observations returns every observation in the program's group tree.
func (p *Program) Observations() []*Observation {
	if p.Root == nil {
		return nil
	}
	return p.Root.Observations()
}

// TotalUsed sums program+partner time used across every observation.
func (p *Program) TotalUsed() time.Duration {
	var total time.Duration
	for _, o := range p.Observations() {
		total += o.TotalUsed()
	}
	return total
}

// TotalAwarded returns the program's awarded time.
func (p *Program) TotalAwarded() time.Duration {
	return p.Awarded
}

// CompletionFraction is (used + remaining exec time of a specific
// observation) / awarded, the quantity the Ranker uses as its completion
// metric input (spec.md §4.3, grounded on ranker/__init__.py's
// `_score_obs`: `cplt = (program.total_used() + remaining) / program.total_awarded()`).
func (p *Program) CompletionFraction(remaining time.Duration) float64 {
	awarded := p.TotalAwarded()
	if awarded <= 0 {
		return 0
	}
	return float64(p.TotalUsed()+remaining) / float64(awarded)
}

// Valid reports whether the program satisfies ingest invariants: nonzero
// awarded time, a resolvable semester, and a non-empty root group
// (spec.md §4.2).
func (p *Program) Valid() bool {
	if p.Awarded <= 0 || p.Semester == "" || p.Root == nil {
		return false
	}
	rootEmpty := !p.Root.IsObservationGroup() && len(p.Root.Children) == 0
	return !rootEmpty
}
