package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const eight = "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\n"

func TestText(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		incoming string
		working  string
		want     string
		outcome  Outcome
	}{
		{
			name:     "working unchanged takes incoming",
			base:     "a\n",
			incoming: "b\n",
			working:  "a\n",
			want:     "b\n",
			outcome:  Merged,
		},
		{
			name:     "incoming unchanged keeps working",
			base:     "a\n",
			incoming: "a\n",
			working:  "mine\n",
			want:     "mine\n",
			outcome:  Merged,
		},
		{
			name:     "same change on both sides",
			base:     "a\n",
			incoming: "b\n",
			working:  "b\n",
			want:     "b\n",
			outcome:  Merged,
		},
		{
			name:     "disjoint edits merge",
			base:     eight,
			incoming: "line1\nLINE2\nline3\nline4\nline5\nline6\nline7\nline8\n",
			working:  "line1\nline2\nline3\nline4\nline5\nline6\nLINE7\nline8\n",
			want:     "line1\nLINE2\nline3\nline4\nline5\nline6\nLINE7\nline8\n",
			outcome:  Merged,
		},
		{
			name:     "working insertion shifts incoming edit",
			base:     eight,
			incoming: "line1\nline2\nline3\nline4\nline5\nline6\nline7\nEIGHT\n",
			working:  "new0\nline1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\n",
			want:     "new0\nline1\nline2\nline3\nline4\nline5\nline6\nline7\nEIGHT\n",
			outcome:  Merged,
		},
		{
			name:     "overlapping edits conflict",
			base:     "a\nb\nc\n",
			incoming: "a\nTHEIRS\nc\n",
			working:  "a\nMINE\nc\n",
			want:     "a\n<<<<<<< .working\nMINE\n||||||| .old\nb\n=======\nTHEIRS\n>>>>>>> .new\nc\n",
			outcome:  Conflicted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Text([]byte(tt.base), []byte(tt.incoming), []byte(tt.working), Labels{})
			assert.Equal(t, tt.outcome, got.Outcome)
			assert.Equal(t, tt.want, string(got.Content))
		})
	}
}

func TestTextLabels(t *testing.T) {
	got := Text([]byte("x\n"), []byte("y\n"), []byte("z\n"), Labels{Old: ".r1", New: ".r2"})
	assert.Equal(t, Conflicted, got.Outcome)
	assert.Equal(t, "<<<<<<< .working\nz\n||||||| .r1\nx\n=======\ny\n>>>>>>> .r2\n", string(got.Content))
}
