package wc

// NotifyAction is what happened to a path.
type NotifyAction string

const (
	NotifyAdded        NotifyAction = "added"
	NotifyDeleted      NotifyAction = "deleted"
	NotifyUpdated      NotifyAction = "updated"
	NotifyTreeConflict NotifyAction = "tree-conflict"
	NotifyMoveBroken   NotifyAction = "move-broken"
)

// State describes the content or property outcome for a path.
type State string

const (
	StateInapplicable State = "inapplicable"
	StateUnchanged    State = "unchanged"
	StateChanged      State = "changed"
	StateMerged       State = "merged"
	StateConflicted   State = "conflicted"
)

// Notification is one entry of the sequence returned to callers.
type Notification struct {
	Seq          int64        `json:"seq"`
	Path         string       `json:"path"`
	Action       NotifyAction `json:"action"`
	Kind         Kind         `json:"kind"`
	ContentState State        `json:"content_state"`
	PropState    State        `json:"prop_state"`
}
