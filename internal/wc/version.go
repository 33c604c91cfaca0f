package wc

// NodeVersion describes one side of an incoming change for a single path:
// where it lives in the repository, at which revision, and what it holds.
// An old and a new NodeVersion are built for every merged path; neither is
// ever persisted directly.
type NodeVersion struct {
	Location Location
	Props    Props
	Checksum Checksum
}

// Location is a repository location descriptor.
type Location struct {
	ReposRoot    string `json:"repos_root"`
	ReposUUID    string `json:"repos_uuid"`
	ReposRelpath string `json:"repos_relpath"`
	Revision     int64  `json:"revision"`
	Kind         Kind   `json:"kind"`
}

// Reroot returns the location of a path rel below the location's path.
func (l Location) Reroot(rel string, kind Kind) Location {
	out := l
	out.ReposRelpath = Join(l.ReposRelpath, rel)
	out.Kind = kind
	return out
}
