package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/wcmove/internal/wc"
)

func TestProps(t *testing.T) {
	tests := []struct {
		name      string
		base      wc.Props
		incoming  wc.Props
		working   wc.Props
		want      wc.Props
		conflicts []string
	}{
		{
			name:     "incoming change applies",
			base:     wc.Props{"k": "1"},
			incoming: wc.Props{"k": "2"},
			working:  wc.Props{"k": "1"},
			want:     wc.Props{"k": "2"},
		},
		{
			name:     "local change survives",
			base:     wc.Props{"k": "1"},
			incoming: wc.Props{"k": "1", "n": "new"},
			working:  wc.Props{"k": "local"},
			want:     wc.Props{"k": "local", "n": "new"},
		},
		{
			name:     "incoming delete",
			base:     wc.Props{"k": "1"},
			incoming: nil,
			working:  wc.Props{"k": "1"},
			want:     nil,
		},
		{
			name:     "both made the same change",
			base:     nil,
			incoming: wc.Props{"k": "v"},
			working:  wc.Props{"k": "v"},
			want:     wc.Props{"k": "v"},
		},
		{
			name:      "clash keeps working value",
			base:      wc.Props{"k": "1", "a": "x"},
			incoming:  wc.Props{"k": "2", "a": "x"},
			working:   wc.Props{"k": "3"},
			want:      wc.Props{"k": "3"},
			conflicts: []string{"k"},
		},
		{
			name:      "delete against edit conflicts",
			base:      wc.Props{"k": "1"},
			incoming:  nil,
			working:   wc.Props{"k": "edited"},
			want:      wc.Props{"k": "edited"},
			conflicts: []string{"k"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Props(tt.base, tt.incoming, tt.working)
			assert.Equal(t, tt.want, got.Props)
			assert.Equal(t, tt.conflicts, got.Conflicts)
			if tt.conflicts == nil {
				assert.Equal(t, Merged, got.Outcome)
			} else {
				assert.Equal(t, Conflicted, got.Outcome)
			}
		})
	}
}
