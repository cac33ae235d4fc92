package model

import (
	"errors"

	"github.com/samber/lo"
)

// GroupKind tags which variant a Group node is.
type GroupKind int

const (
	GroupKindObservation GroupKind = iota
	GroupKindAnd
	GroupKindOr
)

// ErrNestedSchedulingGroup is returned by NewSchedulingGroup when a child
// group is itself a scheduling group. Nested scheduling groups are
// unsupported (spec.md §9 Open Questions); the core raises rather than
// silently flattening or recursing.
var ErrNestedSchedulingGroup = errors.New("model: nested scheduling groups are not supported")

// Group is a node in a program's group tree: either a single-observation
// leaf, an AND-group (all children must be scheduled), or an OR-group
// (unimplemented — an explicit non-goal, spec.md §3).
//
// This mirrors spec.md §9's tagged-variant design note: callers switch on
// Kind rather than using a dynamic-dispatch hierarchy, and children are
// owned values (no parent back-reference, which would make cycles
// representable).
type Group struct {
	UniqueID UniqueGroupID
	Kind     GroupKind

	// Valid when Kind == GroupKindObservation.
	Observation *Observation

	// Valid when Kind == GroupKindAnd or GroupKindOr.
	Children []*Group

	// IsSchedulingGroup marks an AND-group whose children must be placed
	// contiguously or charged together (spec.md Glossary: "Scheduling
	// group"). Only meaningful when Kind == GroupKindAnd.
	IsSchedulingGroup bool
}

// NewObservationGroup wraps a single observation as a leaf group.
func NewObservationGroup(id UniqueGroupID, obs *Observation) *Group {
	return &Group{UniqueID: id, Kind: GroupKindObservation, Observation: obs}
}

// NewAndGroup builds an AND-group from children.
func NewAndGroup(id UniqueGroupID, children []*Group) *Group {
	return &Group{UniqueID: id, Kind: GroupKindAnd, Children: children}
}

// NewSchedulingGroup builds an AND-group whose children must be charged as
// a unit. It rejects children that are themselves scheduling groups.
func NewSchedulingGroup(id UniqueGroupID, children []*Group) (*Group, error) {
	for _, c := range children {
		if c.Kind == GroupKindAnd && c.IsSchedulingGroup {
			return nil, ErrNestedSchedulingGroup
		}
	}
	return &Group{UniqueID: id, Kind: GroupKindAnd, Children: children, IsSchedulingGroup: true}, nil
}

// NewOrGroup builds an OR-group. OR-groups are accepted structurally (so a
// group tree can be built and walked) but rejected at scoring time with
// ErrOrGroupUnsupported — see ranker.ScoreGroup.
func NewOrGroup(id UniqueGroupID, children []*Group) *Group {
	return &Group{UniqueID: id, Kind: GroupKindOr, Children: children}
}

// IsObservationGroup reports whether this node is a single-observation leaf.
func (g *Group) IsObservationGroup() bool {
	return g.Kind == GroupKindObservation
}

// Observations returns every observation reachable from this group, in
// tree order (leaves only).
func (g *Group) Observations() []*Observation {
	if g == nil {
		return nil
	}
	if g.Kind == GroupKindObservation {
		if g.Observation == nil {
			return nil
		}
		return []*Observation{g.Observation}
	}
	return lo.FlatMap(g.Children, func(c *Group, _ int) []*Observation {
		return c.Observations()
	})
}

// Walk calls visit on every node in the tree, pre-order.
func (g *Group) Walk(visit func(*Group)) {
	if g == nil {
		return
	}
	visit(g)
	for _, c := range g.Children {
		c.Walk(visit)
	}
}
