// Package analysis implements the per-source frame health pipeline:
// tracker state, perceptual detectors, FPS estimation, event deduplication
// and the tick loop that drives them.
package analysis

import "time"

// Tracker holds the mutable per-source state consumed and produced by the
// detectors and the FPS estimator.
//
// One Tracker belongs to exactly one source. It is created at source start,
// reset to initial values at source stop or on any terminal lifecycle event,
// and never shared across sources. All access happens from that source's
// analysis loop goroutine, so no locking is required.
type Tracker struct {
	// LastSample is the previous tick's downscaled RGBA buffer, the
	// baseline for freeze detection. Owned exclusively by the Tracker and
	// replaced every tick; nil until the first successful sample.
	LastSample []byte

	// LastWidth and LastHeight are the last observed source dimensions.
	// Zero means "unset": the first observation seeds the baseline
	// without reporting a resolution change.
	LastWidth  int
	LastHeight int

	// LastFrameAt is when a new frame was last observed. Zero means
	// "never"; idle detection stays silent until a frame has been seen.
	LastFrameAt time.Time

	// LastTickAt is when the previous tick ran. Freeze detection only
	// trusts a static buffer once more than 200ms separates two ticks.
	LastTickAt time.Time

	// LastSeq is the sequence number of the last frame counted, used to
	// distinguish a genuinely new frame from re-sampling the same one.
	LastSeq uint64

	// FrameCount is the number of new frames observed this session.
	FrameCount uint64

	// FPS is the sliding-window frame rate estimator.
	FPS Window

	// LastAnnouncedFPS is the estimate carried by the most recent
	// fps-drop log entry. Drop emission is debounced against it.
	LastAnnouncedFPS float64
}

// NewTracker returns a Tracker in its initial state.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Reset returns the tracker to its initial values, discarding the sample
// baseline and the FPS window.
func (t *Tracker) Reset() {
	t.LastSample = nil
	t.LastWidth = 0
	t.LastHeight = 0
	t.LastFrameAt = time.Time{}
	t.LastTickAt = time.Time{}
	t.LastSeq = 0
	t.FrameCount = 0
	t.FPS.Reset()
	t.LastAnnouncedFPS = 0
}

// ObserveFrame records a newly observed frame at the given instant.
//
// The sequence delta since the last observed frame counts the arrivals
// the sampling cadence skipped over, keeping FrameCount and the FPS
// window true to the source rather than to the tick rate. A first
// observation or a sequence regression counts as one frame.
func (t *Tracker) ObserveFrame(seq uint64, at time.Time) {
	delta := uint64(1)
	if t.FrameCount > 0 && seq > t.LastSeq {
		delta = seq - t.LastSeq
	}
	t.LastSeq = seq
	t.LastFrameAt = at
	t.FrameCount += delta
	t.FPS.Add(at, int(delta))
}
