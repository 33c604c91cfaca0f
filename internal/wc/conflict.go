package wc

import (
	"encoding/json"
	"fmt"
)

// Operation names the working-copy operation that raised a conflict.
type Operation string

const (
	OpUpdate Operation = "update"
	OpSwitch Operation = "switch"
)

// Reason describes the local change side of a tree conflict.
type Reason string

const (
	ReasonEdited      Reason = "edited"
	ReasonObstructed  Reason = "obstructed"
	ReasonDeleted     Reason = "deleted"
	ReasonMissing     Reason = "missing"
	ReasonUnversioned Reason = "unversioned"
	ReasonAdded       Reason = "added"
	ReasonReplaced    Reason = "replaced"
	ReasonMovedAway   Reason = "moved-away"
	ReasonMovedHere   Reason = "moved-here"
)

// Action describes the incoming change side of a tree conflict.
type Action string

const (
	ActionEdit    Action = "edit"
	ActionAdd     Action = "add"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace"
)

// MarkerKind tags the variants of Marker.
type MarkerKind string

const (
	MarkerText MarkerKind = "text"
	MarkerProp MarkerKind = "prop"
	MarkerTree MarkerKind = "tree"
)

// Marker is a sealed interface over the conflict variants a path can carry.
// Only TextConflict, PropConflict and TreeConflict implement it.
type Marker interface {
	Kind() MarkerKind
	marker()
}

// TextConflict records a failed content merge and its marker files.
type TextConflict struct {
	Mine string `json:"mine,omitempty"`
	Old  string `json:"old,omitempty"`
	New  string `json:"new,omitempty"`
}

func (TextConflict) Kind() MarkerKind { return MarkerText }
func (TextConflict) marker()          {}

// PropConflict records the properties whose merge failed.
type PropConflict struct {
	Names []string `json:"names"`
	// Base, Incoming and Working hold the three sides per name; a missing
	// entry means the property was absent on that side.
	Base     Props `json:"base,omitempty"`
	Incoming Props `json:"incoming,omitempty"`
	Working  Props `json:"working,omitempty"`
}

func (PropConflict) Kind() MarkerKind { return MarkerProp }
func (PropConflict) marker()          {}

// TreeConflict records a structural disagreement between an incoming
// change and a local one.
type TreeConflict struct {
	Reason Reason `json:"reason"`
	Action Action `json:"action"`
	// MoveSrcOpRoot names the root of the local move for moved-away reasons.
	MoveSrcOpRoot string `json:"move_src_op_root,omitempty"`
}

func (TreeConflict) Kind() MarkerKind { return MarkerTree }
func (TreeConflict) marker()          {}

// SameAs reports whether two tree conflicts describe the same disagreement.
func (t TreeConflict) SameAs(o TreeConflict) bool {
	return t.Reason == o.Reason && t.Action == o.Action && t.MoveSrcOpRoot == o.MoveSrcOpRoot
}

// ConflictSkel is the conflict record attached to a path's ACTUAL row.
type ConflictSkel struct {
	Operation Operation
	Old       Location
	New       Location
	Markers   []Marker
}

// NewConflictSkel starts a record for an operation between two locations.
func NewConflictSkel(op Operation, oldLoc, newLoc Location) *ConflictSkel {
	return &ConflictSkel{Operation: op, Old: oldLoc, New: newLoc}
}

// Tree returns the tree conflict marker, if any.
func (c *ConflictSkel) Tree() (TreeConflict, bool) {
	for _, m := range c.Markers {
		if t, ok := m.(TreeConflict); ok {
			return t, true
		}
	}
	return TreeConflict{}, false
}

// Text returns the text conflict marker, if any.
func (c *ConflictSkel) Text() (TextConflict, bool) {
	for _, m := range c.Markers {
		if t, ok := m.(TextConflict); ok {
			return t, true
		}
	}
	return TextConflict{}, false
}

// Prop returns the property conflict marker, if any.
func (c *ConflictSkel) Prop() (PropConflict, bool) {
	for _, m := range c.Markers {
		if p, ok := m.(PropConflict); ok {
			return p, true
		}
	}
	return PropConflict{}, false
}

// Add attaches a marker. A record holds at most one marker per kind.
func (c *ConflictSkel) Add(m Marker) error {
	for _, existing := range c.Markers {
		if existing.Kind() == m.Kind() {
			return fmt.Errorf("conflict record already has a %s marker", m.Kind())
		}
	}
	c.Markers = append(c.Markers, m)
	return nil
}

// Remove drops the marker of the given kind and reports whether the record
// is now empty.
func (c *ConflictSkel) Remove(kind MarkerKind) bool {
	kept := c.Markers[:0]
	for _, m := range c.Markers {
		if m.Kind() != kind {
			kept = append(kept, m)
		}
	}
	c.Markers = kept
	return len(c.Markers) == 0
}

type skelJSON struct {
	Operation Operation        `json:"operation"`
	Old       Location         `json:"old"`
	New       Location         `json:"new"`
	Markers   []markerEnvelope `json:"markers"`
}

type markerEnvelope struct {
	Kind MarkerKind    `json:"kind"`
	Text *TextConflict `json:"text,omitempty"`
	Prop *PropConflict `json:"prop,omitempty"`
	Tree *TreeConflict `json:"tree,omitempty"`
}

// MarshalJSON encodes the record with one tagged envelope per marker.
func (c ConflictSkel) MarshalJSON() ([]byte, error) {
	out := skelJSON{
		Operation: c.Operation,
		Old:       c.Old,
		New:       c.New,
		Markers:   make([]markerEnvelope, 0, len(c.Markers)),
	}
	for _, m := range c.Markers {
		env := markerEnvelope{Kind: m.Kind()}
		switch v := m.(type) {
		case TextConflict:
			env.Text = &v
		case PropConflict:
			env.Prop = &v
		case TreeConflict:
			env.Tree = &v
		}
		out.Markers = append(out.Markers, env)
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a record written by MarshalJSON.
func (c *ConflictSkel) UnmarshalJSON(data []byte) error {
	var in skelJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.Operation = in.Operation
	c.Old = in.Old
	c.New = in.New
	c.Markers = nil
	for i, env := range in.Markers {
		switch {
		case env.Kind == MarkerText && env.Text != nil:
			c.Markers = append(c.Markers, *env.Text)
		case env.Kind == MarkerProp && env.Prop != nil:
			c.Markers = append(c.Markers, *env.Prop)
		case env.Kind == MarkerTree && env.Tree != nil:
			c.Markers = append(c.Markers, *env.Tree)
		default:
			return fmt.Errorf("conflict marker %d: malformed %q envelope", i, env.Kind)
		}
	}
	return nil
}
