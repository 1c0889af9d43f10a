package analysis

import "time"

// Detector cost bounds. Both blackness and freeze walk the sample buffer
// at a fixed byte stride so per-tick cost is independent of buffer size,
// and freeze comparison short-circuits once the verdict is settled.
const (
	// sampleStride is the byte step between inspected pixels.
	sampleStride = 16

	// FreezeMismatchLimit is the mismatch count above which two buffers
	// are considered different frames.
	FreezeMismatchLimit = 50

	// FreezeMinTickGap guards against false freeze positives when ticks
	// run faster than the source's true frame rate: a static buffer only
	// counts as frozen once this much wall time separates two ticks.
	FreezeMinTickGap = 200 * time.Millisecond
)

// BlacknessPercent computes the average perceptual luma of buf on a 0–100
// scale. buf is an RGBA sample buffer; every sampleStride-th byte position
// is taken as the red offset of a probe pixel.
//
// Rec. 709 luma coefficients: Y = 0.2126R + 0.7152G + 0.0722B.
func BlacknessPercent(buf []byte) float64 {
	if len(buf) < 3 {
		return 0
	}
	var sum float64
	var n int
	for i := 0; i+2 < len(buf); i += sampleStride {
		y := 0.2126*float64(buf[i]) + 0.7152*float64(buf[i+1]) + 0.0722*float64(buf[i+2])
		sum += y
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n) / 255.0 * 100.0
}

// Black reports whether buf reads as black under the given threshold
// percent, returning the measured luma percent alongside the verdict.
func Black(buf []byte, thresholdPercent float64) (percent float64, black bool) {
	percent = BlacknessPercent(buf)
	return percent, percent < thresholdPercent
}

// Frozen compares cur against the previous tick's baseline buffer using
// the same stride, red channel only, and reports whether the image is
// static. Counting short-circuits once mismatches exceed the limit.
//
// A nil or empty baseline means freeze cannot be evaluated this tick, and
// the condition is simply not met — detector-level issues never propagate.
func Frozen(cur, prev []byte, sinceLastTick time.Duration) bool {
	if len(prev) == 0 || len(cur) == 0 {
		return false
	}
	n := len(cur)
	if len(prev) < n {
		n = len(prev)
	}
	mismatches := 0
	for i := 0; i < n; i += sampleStride {
		if cur[i] != prev[i] {
			mismatches++
			if mismatches > FreezeMismatchLimit {
				return false
			}
		}
	}
	return sinceLastTick > FreezeMinTickGap
}

// ResolutionChange checks the current source dimensions against the
// tracker baseline. The first observation seeds the baseline and never
// reports a change; any subsequent mismatch reports one and re-seeds.
func ResolutionChange(t *Tracker, width, height int) (changed bool, prevW, prevH int) {
	if t.LastWidth == 0 && t.LastHeight == 0 {
		t.LastWidth = width
		t.LastHeight = height
		return false, 0, 0
	}
	if t.LastWidth == width && t.LastHeight == height {
		return false, t.LastWidth, t.LastHeight
	}
	prevW, prevH = t.LastWidth, t.LastHeight
	t.LastWidth = width
	t.LastHeight = height
	return true, prevW, prevH
}

// FPSDrop reports whether the estimated frame rate is positive yet below
// the configured floor.
func FPSDrop(fps, floor float64) bool {
	return fps > 0 && fps < floor
}

// Idle reports whether a frame has been seen at least once and more than
// idleFor has elapsed since the last one.
func Idle(lastFrameAt, now time.Time, idleFor time.Duration) bool {
	if lastFrameAt.IsZero() {
		return false
	}
	return now.Sub(lastFrameAt) > idleFor
}
