// Package sampler produces the downscaled RGBA pixel buffers the health
// detectors operate on.
//
// Detector cost must stay bounded regardless of source resolution, so every
// frame is reduced to a fixed-width RGBA buffer before analysis:
//
//   - Width: always 320 px
//   - Height: max(180, round(320 · vh/vw)) — aspect preserved, floor 180
//
// A 1280×720 source therefore samples to 320×180 (230 KB instead of 3.7 MB
// of RGBA), and a tick never touches the full-resolution frame.
package sampler

import (
	"math"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

const (
	// TargetWidth is the fixed width of every sample buffer.
	TargetWidth = 320
	// MinHeight is the floor applied to the scaled height.
	MinHeight = 180

	bytesPerPixelRGB  = 3
	bytesPerPixelRGBA = 4
)

// TargetSize returns the sample buffer dimensions for a source of vw×vh.
// Returns ok=false when the source reports zero width or height, meaning
// it is not producing frames yet and the tick must be skipped.
func TargetSize(vw, vh int) (w, h int, ok bool) {
	if vw <= 0 || vh <= 0 {
		return 0, 0, false
	}
	h = int(math.Round(float64(TargetWidth) * float64(vh) / float64(vw)))
	if h < MinHeight {
		h = MinHeight
	}
	return TargetWidth, h, true
}

// Sampler downscales source frames into a reusable RGBA scratch buffer.
//
// One Sampler belongs to exactly one source's analysis loop. The scratch
// buffer is resized on demand and reused across ticks; callers that keep a
// sample across ticks must take ownership of the returned slice and hand a
// replacement buffer to the next Sample call (the analysis loop does this by
// swapping the sample with the tracker's previous-frame baseline).
type Sampler struct {
	scratch []byte
}

// New returns a Sampler with an empty scratch buffer.
func New() *Sampler {
	return &Sampler{}
}

// Sample downscales f into an RGBA buffer using nearest-neighbor selection.
//
// Returns ok=false (and no buffer) when the frame is not ready: zero
// dimensions or empty pixel data. This is the FrameNotReady case — callers
// skip the remaining pipeline for the tick without treating it as an error.
func (s *Sampler) Sample(f frame.Frame) (buf []byte, w, h int, ok bool) {
	w, h, ok = TargetSize(f.Width, f.Height)
	if !ok {
		return nil, 0, 0, false
	}
	if len(f.Data) < f.Width*f.Height*bytesPerPixelRGB {
		return nil, 0, 0, false
	}

	need := w * h * bytesPerPixelRGBA
	if cap(s.scratch) < need {
		s.scratch = make([]byte, need)
	}
	buf = s.scratch[:need]

	// Nearest-neighbor downscale, RGB source → RGBA sample.
	for y := 0; y < h; y++ {
		srcY := y * f.Height / h
		rowBase := srcY * f.Width * bytesPerPixelRGB
		dstRow := y * w * bytesPerPixelRGBA
		for x := 0; x < w; x++ {
			srcX := x * f.Width / w
			si := rowBase + srcX*bytesPerPixelRGB
			di := dstRow + x*bytesPerPixelRGBA
			buf[di+0] = f.Data[si+0]
			buf[di+1] = f.Data[si+1]
			buf[di+2] = f.Data[si+2]
			buf[di+3] = 0xFF
		}
	}

	return buf, w, h, true
}

// Swap replaces the sampler's scratch buffer and returns the previous one.
// The analysis loop uses this to rotate the current sample into the
// tracker's baseline slot without allocating per tick.
func (s *Sampler) Swap(replacement []byte) []byte {
	prev := s.scratch
	s.scratch = replacement
	return prev
}
