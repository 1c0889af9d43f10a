package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWindowEstimate(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	t.Run("empty window", func(t *testing.T) {
		var w Window
		assert.Zero(t, w.Estimate())
	})

	t.Run("single observation", func(t *testing.T) {
		var w Window
		w.Add(base, 1)
		assert.Zero(t, w.Estimate())
	})

	t.Run("steady 10fps", func(t *testing.T) {
		var w Window
		for i := 0; i <= 15; i++ {
			w.Add(base.Add(time.Duration(i)*100*time.Millisecond), 1)
		}
		assert.InDelta(t, 10.0, w.Estimate(), 0.01)
	})

	t.Run("steady 30fps", func(t *testing.T) {
		var w Window
		for i := 0; i < 45; i++ {
			w.Add(base.Add(time.Duration(i)*time.Second/30), 1)
		}
		assert.InDelta(t, 30.0, w.Estimate(), 0.2)
	})

	t.Run("sparse sampling of a 30fps feed", func(t *testing.T) {
		// 250ms observations of a 30fps source: alternating 8- and
		// 7-frame arrival bursts instead of one frame per observation.
		var w Window
		w.Add(base, 1)
		for i := 1; i <= 6; i++ {
			frames := 7
			if i%2 == 1 {
				frames = 8
			}
			w.Add(base.Add(time.Duration(i)*250*time.Millisecond), frames)
		}
		assert.InDelta(t, 30.0, w.Estimate(), 0.01)
	})

	t.Run("coincident timestamps hit the elapsed floor", func(t *testing.T) {
		var w Window
		w.Add(base, 1)
		w.Add(base, 1)
		// elapsed 0 is floored to 1ms: 1 interval / 0.001s.
		assert.InDelta(t, 1000.0, w.Estimate(), 0.01)
	})
}

func TestWindowEviction(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	var w Window
	for i := 0; i <= 15; i++ {
		w.Add(base.Add(time.Duration(i)*100*time.Millisecond), 1)
	}
	assert.Equal(t, 16, w.Len(), "observations exactly at the horizon boundary are kept")

	// One more at 1600ms evicts the oldest observation (now past the
	// horizon).
	w.Add(base.Add(1600*time.Millisecond), 1)
	assert.Equal(t, 16, w.Len())
	assert.InDelta(t, 10.0, w.Estimate(), 0.01)

	// A long stall then one frame collapses the window to that frame.
	w.Add(base.Add(time.Hour), 1)
	assert.Equal(t, 1, w.Len())
	assert.Zero(t, w.Estimate())
}

func TestWindowReset(t *testing.T) {
	base := time.Now()
	var w Window
	w.Add(base, 1)
	w.Add(base.Add(50*time.Millisecond), 1)
	w.Reset()
	assert.Zero(t, w.Len())
	assert.Zero(t, w.Estimate())
}
