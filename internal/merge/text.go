package merge

import (
	"bytes"
	"cmp"
	"slices"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Outcome is the result class of a merge.
type Outcome string

const (
	Merged     Outcome = "merged"
	Conflicted Outcome = "conflicted"
)

// Labels name the sides in conflict markers.
type Labels struct {
	Working string
	Old     string
	New     string
}

// DefaultLabels are used when a Labels field is empty.
var DefaultLabels = Labels{Working: ".working", Old: ".old", New: ".new"}

// TextResult is the outcome of a text merge.
type TextResult struct {
	Content []byte
	Outcome Outcome
}

// hunk replaces base lines [start, end) with lines.
type hunk struct {
	start, end int
	lines      []string
	incoming   bool
}

// Text merges the change base -> incoming into working, line by line.
//
// Both sides are diffed against base. Changes of one side that touch or
// overlap changes of the other conflict unless both sides produced the same
// lines. Conflicting regions are written between markers; the rest of the
// file is merged.
func Text(base, incoming, working []byte, labels Labels) TextResult {
	switch {
	case bytes.Equal(working, incoming):
		return TextResult{Content: bytes.Clone(working), Outcome: Merged}
	case bytes.Equal(working, base):
		return TextResult{Content: bytes.Clone(incoming), Outcome: Merged}
	case bytes.Equal(incoming, base):
		return TextResult{Content: bytes.Clone(working), Outcome: Merged}
	}
	labels = labels.withDefaults()

	dmp := diffmatchpatch.New()
	baseLines := splitLines(string(base))
	hunks := append(lineHunks(dmp, string(base), string(incoming), true),
		lineHunks(dmp, string(base), string(working), false)...)
	slices.SortStableFunc(hunks, func(a, b hunk) int {
		if a.start != b.start {
			return cmp.Compare(a.start, b.start)
		}
		return cmp.Compare(a.end, b.end)
	})

	var out strings.Builder
	outcome := Merged
	pos := 0
	for i := 0; i < len(hunks); {
		lo, hi := hunks[i].start, hunks[i].end
		j := i + 1
		for j < len(hunks) && hunks[j].start <= hi {
			hi = max(hi, hunks[j].end)
			j++
		}
		cluster := hunks[i:j]
		i = j

		for ; pos < lo; pos++ {
			out.WriteString(baseLines[pos])
		}
		pos = hi

		var sawIncoming, sawWorking bool
		for _, h := range cluster {
			if h.incoming {
				sawIncoming = true
			} else {
				sawWorking = true
			}
		}
		theirs := applySide(baseLines, cluster, lo, hi, true)
		mine := applySide(baseLines, cluster, lo, hi, false)
		switch {
		case !sawWorking:
			out.WriteString(theirs)
		case !sawIncoming, theirs == mine:
			out.WriteString(mine)
		default:
			outcome = Conflicted
			writeSection(&out, "<<<<<<< "+labels.Working, mine)
			writeSection(&out, "||||||| "+labels.Old, strings.Join(baseLines[lo:hi], ""))
			writeSection(&out, "=======", theirs)
			out.WriteString(">>>>>>> " + labels.New + "\n")
		}
	}
	for ; pos < len(baseLines); pos++ {
		out.WriteString(baseLines[pos])
	}

	return TextResult{Content: []byte(out.String()), Outcome: outcome}
}

// lineHunks diffs base against other line by line and returns the changed
// regions in base coordinates.
func lineHunks(dmp *diffmatchpatch.DiffMatchPatch, base, other string, incoming bool) []hunk {
	chars1, chars2, lines := dmp.DiffLinesToChars(base, other)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	var hunks []hunk
	var cur *hunk
	pos := 0
	for _, d := range diffs {
		n := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			if cur != nil {
				hunks = append(hunks, *cur)
				cur = nil
			}
			pos += len(n)
		case diffmatchpatch.DiffDelete:
			if cur == nil {
				cur = &hunk{start: pos, end: pos, incoming: incoming}
			}
			pos += len(n)
			cur.end = pos
		case diffmatchpatch.DiffInsert:
			if cur == nil {
				cur = &hunk{start: pos, end: pos, incoming: incoming}
			}
			cur.lines = append(cur.lines, n...)
		}
	}
	if cur != nil {
		hunks = append(hunks, *cur)
	}
	return hunks
}

// applySide renders base lines [lo, hi) with one side's hunks applied.
// The hunks of a side never overlap each other.
func applySide(baseLines []string, cluster []hunk, lo, hi int, incoming bool) string {
	var b strings.Builder
	pos := lo
	for _, h := range cluster {
		if h.incoming != incoming {
			continue
		}
		for ; pos < h.start; pos++ {
			b.WriteString(baseLines[pos])
		}
		for _, l := range h.lines {
			b.WriteString(l)
		}
		pos = h.end
	}
	for ; pos < hi; pos++ {
		b.WriteString(baseLines[pos])
	}
	return b.String()
}

// splitLines splits s after every newline. A final line without a newline
// is kept as is.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func writeSection(b *strings.Builder, marker, body string) {
	b.WriteString(marker)
	b.WriteByte('\n')
	b.WriteString(body)
	if body != "" && !strings.HasSuffix(body, "\n") {
		b.WriteByte('\n')
	}
}

func (l Labels) withDefaults() Labels {
	if l.Working == "" {
		l.Working = DefaultLabels.Working
	}
	if l.Old == "" {
		l.Old = DefaultLabels.Old
	}
	if l.New == "" {
		l.New = DefaultLabels.New
	}
	return l
}
