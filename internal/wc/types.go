package wc

import (
	"fmt"
	"slices"
)

// Kind is the node kind recorded in a layer row.
type Kind string

const (
	KindNone    Kind = "none"
	KindFile    Kind = "file"
	KindDir     Kind = "dir"
	KindSymlink Kind = "symlink"
)

// ParseKind validates a stored or user supplied kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindNone, KindFile, KindDir, KindSymlink:
		return k, nil
	case "":
		return KindNone, nil
	}
	return KindNone, fmt.Errorf("unknown node kind %q", s)
}

// Presence is the state of a row within its layer.
type Presence string

const (
	// PresenceNormal rows are real nodes.
	PresenceNormal Presence = "normal"
	// PresenceNotPresent rows record a node absent at this revision.
	PresenceNotPresent Presence = "not-present"
	// PresenceBaseDeleted rows delete whatever lower layer they shadow.
	PresenceBaseDeleted Presence = "base-deleted"
	// PresenceExcluded rows are deliberately left out of the working copy.
	PresenceExcluded Presence = "excluded"
)

// ParsePresence validates a stored or user supplied presence.
func ParsePresence(s string) (Presence, error) {
	switch p := Presence(s); p {
	case PresenceNormal, PresenceNotPresent, PresenceBaseDeleted, PresenceExcluded:
		return p, nil
	case "":
		return PresenceNormal, nil
	}
	return "", fmt.Errorf("unknown presence %q", s)
}

// IsDelete reports whether the row removes a node rather than providing one.
func (p Presence) IsDelete() bool {
	return p == PresenceBaseDeleted || p == PresenceNotPresent
}

// Depth limits how far below a root an operation reaches.
type Depth string

const (
	DepthNone       Depth = "none"
	DepthEmpty      Depth = "empty"
	DepthFiles      Depth = "files"
	DepthImmediates Depth = "immediates"
	DepthInfinity   Depth = "infinity"
)

// ParseDepth validates a depth name. The empty string means infinity.
func ParseDepth(s string) (Depth, error) {
	switch d := Depth(s); d {
	case DepthNone, DepthEmpty, DepthFiles, DepthImmediates, DepthInfinity:
		return d, nil
	case "":
		return DepthInfinity, nil
	}
	return "", fmt.Errorf("unknown depth %q", s)
}

// Child returns the depth an operation continues with below an included
// child. Files and immediates stop after one level.
func (d Depth) Child() Depth {
	if d == DepthInfinity {
		return DepthInfinity
	}
	return DepthEmpty
}

// Includes reports whether a child of the given kind is inside the depth.
func (d Depth) Includes(child Kind) bool {
	switch d {
	case DepthInfinity, DepthImmediates:
		return true
	case DepthFiles:
		return child != KindDir
	}
	return false
}

// Ref points at a row in another place of the same working copy.
type Ref struct {
	Relpath string `json:"relpath"`
	OpDepth int    `json:"op_depth"`
}

// NodeRow is one row of the node table: the state of a path in one layer.
type NodeRow struct {
	Relpath      string
	OpDepth      int
	ReposID      int64
	ReposRelpath string
	Revision     int64
	Presence     Presence
	Kind         Kind
	Checksum     Checksum
	Props        Props
	Depth        Depth
	// Switched marks a BASE row whose repository path does not follow from
	// its parent's.
	Switched bool
	// MovedTo is set on the delete root of a move source.
	MovedTo *Ref
	// MovedHere is set on every row copied in by a move.
	MovedHere bool
	// MovedFrom is set on the destination root of a move.
	MovedFrom *Ref
}

// Clone returns a deep copy of the row.
func (r NodeRow) Clone() NodeRow {
	out := r
	out.Props = r.Props.Clone()
	if r.MovedTo != nil {
		ref := *r.MovedTo
		out.MovedTo = &ref
	}
	if r.MovedFrom != nil {
		ref := *r.MovedFrom
		out.MovedFrom = &ref
	}
	return out
}

// NodeInfo is the view of one path at one layer that the tree comparator
// works with. Kind is KindNone when the layer has no present node there.
type NodeInfo struct {
	Kind         Kind
	Checksum     Checksum
	Props        Props
	Children     []string // basenames, sorted byte-wise
	ReposID      int64
	ReposRelpath string
	Revision     int64
}

// Exists reports whether the layer provides a node at the path.
func (n NodeInfo) Exists() bool {
	return n.Kind != KindNone
}

// SameChildren reports whether both infos list the same children.
func (n NodeInfo) SameChildren(o NodeInfo) bool {
	return slices.Equal(n.Children, o.Children)
}
