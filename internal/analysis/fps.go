package analysis

import (
	"math"
	"time"
)

// WindowHorizon is the trailing span of frame observations the FPS
// estimator keeps. Observations older than this are evicted from the front
// on every insertion.
const WindowHorizon = 1500 * time.Millisecond

// Window estimates frame rate from a sliding window of frame arrival
// observations.
//
// Each observation records the timestamp of the newest frame seen and how
// many frames arrived since the previous observation. The tick cadence is
// slower than a healthy source's frame rate, so counting one frame per
// observation would cap the estimate at the cadence; the arrival count
// keeps the estimate true to the source.
//
// Estimate = (totalFrames-1) / elapsed-seconds across the window, where a
// window of zero or one observations yields 0 and elapsed has a 1ms floor
// so the division is always defined. The result is floored at 0 and
// non-finite values normalize to 0.
type Window struct {
	obs []observation
}

type observation struct {
	at     time.Time
	frames int
}

// Add appends an observation of frames new arrivals at the given instant
// and evicts observations older than the horizon.
func (w *Window) Add(at time.Time, frames int) {
	if frames < 1 {
		frames = 1
	}
	w.obs = append(w.obs, observation{at: at, frames: frames})
	cutoff := at.Add(-WindowHorizon)
	drop := 0
	for drop < len(w.obs) && w.obs[drop].at.Before(cutoff) {
		drop++
	}
	if drop > 0 {
		w.obs = w.obs[drop:]
	}
}

// Estimate returns the current frames-per-second estimate.
func (w *Window) Estimate() float64 {
	n := len(w.obs)
	if n <= 1 {
		return 0
	}
	total := 0
	for _, o := range w.obs {
		total += o.frames
	}
	elapsed := w.obs[n-1].at.Sub(w.obs[0].at)
	if elapsed < time.Millisecond {
		elapsed = time.Millisecond
	}
	fps := float64(total-1) / elapsed.Seconds()
	if math.IsNaN(fps) || math.IsInf(fps, 0) || fps < 0 {
		return 0
	}
	return fps
}

// Len returns the number of observations currently in the window.
func (w *Window) Len() int {
	return len(w.obs)
}

// Reset discards all observations.
func (w *Window) Reset() {
	w.obs = w.obs[:0]
}
