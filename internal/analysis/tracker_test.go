package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestObserveFrameCountsArrivals(t *testing.T) {
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	tr := NewTracker()

	// First observation counts one frame regardless of the sequence value.
	tr.ObserveFrame(4, base)
	assert.Equal(t, uint64(1), tr.FrameCount)
	assert.Equal(t, uint64(4), tr.LastSeq)
	assert.Equal(t, 1, tr.FPS.Len())

	// A sequence jump credits the skipped arrivals.
	tr.ObserveFrame(12, base.Add(250*time.Millisecond))
	assert.Equal(t, uint64(9), tr.FrameCount)
	assert.Equal(t, base.Add(250*time.Millisecond), tr.LastFrameAt)

	// A sequence regression (new session counter) counts one frame.
	tr.ObserveFrame(2, base.Add(500*time.Millisecond))
	assert.Equal(t, uint64(10), tr.FrameCount)
	assert.Equal(t, uint64(2), tr.LastSeq)
}

func TestTrackerReset(t *testing.T) {
	tr := NewTracker()
	tr.ObserveFrame(1, time.Now())
	tr.LastSample = []byte{1, 2, 3}
	tr.LastWidth, tr.LastHeight = 1280, 720
	tr.LastTickAt = time.Now()
	tr.LastAnnouncedFPS = 5.5

	tr.Reset()
	assert.Nil(t, tr.LastSample)
	assert.Zero(t, tr.LastWidth)
	assert.Zero(t, tr.LastHeight)
	assert.True(t, tr.LastFrameAt.IsZero())
	assert.True(t, tr.LastTickAt.IsZero())
	assert.Zero(t, tr.LastSeq)
	assert.Zero(t, tr.FrameCount)
	assert.Zero(t, tr.FPS.Len())
	assert.Zero(t, tr.LastAnnouncedFPS)
}
