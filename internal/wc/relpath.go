package wc

import (
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize converts a user or filesystem supplied path into a relpath.
// Backslashes are not treated as separators; callers on Windows convert
// with filepath.ToSlash first.
func Normalize(p string) (string, error) {
	p = norm.NFC.String(p)
	p = strings.Trim(p, "/")
	if p == "" || p == "." {
		return "", nil
	}
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		switch part {
		case "", ".":
			continue
		case "..":
			return "", fmt.Errorf("relpath %q escapes the working copy", p)
		}
		out = append(out, part)
	}
	return strings.Join(out, "/"), nil
}

// Join appends child components to a relpath.
func Join(base string, elems ...string) string {
	for _, e := range elems {
		if e == "" {
			continue
		}
		if base == "" {
			base = e
		} else {
			base = base + "/" + e
		}
	}
	return base
}

// Dirname returns the parent relpath ("" for top-level entries and the root).
func Dirname(relpath string) string {
	i := strings.LastIndexByte(relpath, '/')
	if i < 0 {
		return ""
	}
	return relpath[:i]
}

// Basename returns the last component of relpath.
func Basename(relpath string) string {
	return relpath[strings.LastIndexByte(relpath, '/')+1:]
}

// RelpathDepth counts the components of relpath. The root has depth 0.
// A local operation rooted at relpath creates rows at this op-depth.
func RelpathDepth(relpath string) int {
	if relpath == "" {
		return 0
	}
	return strings.Count(relpath, "/") + 1
}

// IsAncestor reports whether ancestor is relpath or one of its parents.
func IsAncestor(ancestor, relpath string) bool {
	_, ok := SkipAncestor(ancestor, relpath)
	return ok
}

// SkipAncestor returns the part of relpath below ancestor. It returns false
// when ancestor is not relpath or one of its parents.
func SkipAncestor(ancestor, relpath string) (string, bool) {
	if ancestor == "" {
		return relpath, true
	}
	if relpath == ancestor {
		return "", true
	}
	if strings.HasPrefix(relpath, ancestor) && relpath[len(ancestor)] == '/' {
		return relpath[len(ancestor)+1:], true
	}
	return "", false
}

// Reroot replaces the from prefix of relpath with to.
// relpath must be at or below from.
func Reroot(relpath, from, to string) string {
	rest, ok := SkipAncestor(from, relpath)
	if !ok {
		panic(fmt.Sprintf("wc.Reroot: %q is not below %q", relpath, from))
	}
	return Join(to, rest)
}

// AncestorAtDepth walks up from relpath until the result has at most depth
// components.
func AncestorAtDepth(relpath string, depth int) string {
	for RelpathDepth(relpath) > depth {
		relpath = Dirname(relpath)
	}
	return relpath
}
