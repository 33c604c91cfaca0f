package reconcile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/wcmove/internal/wc"
)

func TestSpool_OrderAndDefaults(t *testing.T) {
	s := newSpool()
	s.Enqueue(wc.Notification{Path: "Y/a", Action: wc.NotifyAdded, Kind: wc.KindFile})
	s.Enqueue(wc.Notification{
		Path:         "Y/b",
		Action:       wc.NotifyUpdated,
		Kind:         wc.KindFile,
		ContentState: wc.StateMerged,
		PropState:    wc.StateUnchanged,
	})
	assert.Equal(t, 2, s.Len())

	out := s.Drain()
	require.Len(t, out, 2)
	assert.Equal(t, int64(1), out[0].Seq)
	assert.Equal(t, wc.StateInapplicable, out[0].ContentState)
	assert.Equal(t, wc.StateInapplicable, out[0].PropState)
	assert.Equal(t, int64(2), out[1].Seq)
	assert.Equal(t, wc.StateMerged, out[1].ContentState)
	assert.Equal(t, wc.StateUnchanged, out[1].PropState)

	assert.Equal(t, 0, s.Len())
}

func TestSpool_DrainEmpty(t *testing.T) {
	out := newSpool().Drain()
	assert.NotNil(t, out)
	assert.Empty(t, out)
}

func TestSpool_ConcurrentEnqueue(t *testing.T) {
	s := newSpool()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Enqueue(wc.Notification{Path: "p", Action: wc.NotifyAdded})
		}()
	}
	wg.Wait()

	out := s.Drain()
	require.Len(t, out, 50)
	for i, n := range out {
		assert.Equal(t, int64(i+1), n.Seq)
	}
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	c = NewClockAt(41)
	assert.Equal(t, int64(42), c.Next())
}
