// Package model defines the core astronomical-scheduler data model: sites,
// programs, observations, atoms, targets, and group trees. These are plain
// value types — the scheduling logic that operates on them lives in
// sibling packages (nightevents, targetinfo, collector, ranker, selector,
// optimizer, plan, accounting).
package model

import "fmt"

// Site is a fixed observing location. The set of supported sites is closed
// at Collector construction time (see collector.New); Site itself is just
// a value, not a registry.
type Site struct {
	Name      string
	LatDeg    float64
	LonDeg    float64
	AltMeters float64
}

func (s Site) String() string { return s.Name }

// NightIndex indexes the [0, num_nights) time grid for a scheduling request.
type NightIndex int

// TimeslotIndex indexes fixed-width time slots within a single night at one site.
type TimeslotIndex int

// Resource is an opaque named resource (instrument, mode, etc.) gating
// whether an observation can run on a given night.
type Resource string

// ResourceSet is a small set of Resources.
type ResourceSet map[Resource]struct{}

// NewResourceSet builds a ResourceSet from a list of resources.
func NewResourceSet(rs ...Resource) ResourceSet {
	set := make(ResourceSet, len(rs))
	for _, r := range rs {
		set[r] = struct{}{}
	}
	return set
}

// Subset reports whether every resource in the set is present in other.
func (rs ResourceSet) Subset(other ResourceSet) bool {
	for r := range rs {
		if _, ok := other[r]; !ok {
			return false
		}
	}
	return true
}

// ProgramID identifies a Program, e.g. "GN-2018B-Q-101".
type ProgramID string

// ObservationID identifies an Observation, qualified by its ProgramID,
// e.g. "GN-2018B-Q-101-0001".
type ObservationID string

// UniqueGroupID identifies a Group within a program: the pair
// (ProgramID, local group id). Scheduling-group IDs from OCS-derived
// providers are only unique within a program, so the pair is required.
type UniqueGroupID struct {
	ProgramID ProgramID
	LocalID   string
}

func (g UniqueGroupID) String() string {
	return fmt.Sprintf("%s:%s", g.ProgramID, g.LocalID)
}
