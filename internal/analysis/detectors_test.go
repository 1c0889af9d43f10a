package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func filledBuf(n int, v byte) []byte {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = v
	}
	return buf
}

func TestBlacknessPercent(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want float64
	}{
		{"empty", nil, 0},
		{"too short", []byte{0, 0}, 0},
		{"all black", filledBuf(320*180*4, 0), 0},
		{"all white", filledBuf(320*180*4, 255), 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, BlacknessPercent(tt.buf), 0.5)
		})
	}
}

func TestBlack(t *testing.T) {
	dark := filledBuf(4096, 10)   // ~3.9% luma
	bright := filledBuf(4096, 64) // ~25% luma

	percent, black := Black(dark, 8.0)
	assert.True(t, black)
	assert.Less(t, percent, 8.0)

	percent, black = Black(bright, 8.0)
	assert.False(t, black)
	assert.Greater(t, percent, 8.0)

	// Threshold is exclusive: a reading equal to it is not black.
	_, black = Black(filledBuf(4096, 0), 0.0)
	assert.False(t, black)
}

func TestFrozen(t *testing.T) {
	static := filledBuf(sampleStride*100, 128)

	t.Run("identical buffers with tick gap", func(t *testing.T) {
		assert.True(t, Frozen(static, static, 300*time.Millisecond))
	})

	t.Run("identical buffers without tick gap", func(t *testing.T) {
		// Ticks faster than the source frame rate must not count a
		// repeated frame as a freeze.
		assert.False(t, Frozen(static, static, 100*time.Millisecond))
		assert.False(t, Frozen(static, static, FreezeMinTickGap))
	})

	t.Run("no baseline", func(t *testing.T) {
		assert.False(t, Frozen(static, nil, time.Second))
		assert.False(t, Frozen(nil, static, time.Second))
	})

	t.Run("mismatches within limit still frozen", func(t *testing.T) {
		cur := filledBuf(sampleStride*(FreezeMismatchLimit-10), 128)
		prev := filledBuf(len(cur), 129)
		assert.True(t, Frozen(cur, prev, time.Second))
	})

	t.Run("mismatches above limit not frozen", func(t *testing.T) {
		cur := filledBuf(sampleStride*(FreezeMismatchLimit+10), 128)
		prev := filledBuf(len(cur), 129)
		assert.False(t, Frozen(cur, prev, time.Second))
	})
}

func TestResolutionChange(t *testing.T) {
	tr := NewTracker()

	// First observation seeds silently.
	changed, _, _ := ResolutionChange(tr, 1280, 720)
	require.False(t, changed)
	assert.Equal(t, 1280, tr.LastWidth)
	assert.Equal(t, 720, tr.LastHeight)

	// Same dimensions: no change.
	changed, _, _ = ResolutionChange(tr, 1280, 720)
	assert.False(t, changed)

	// Mismatch reports the previous baseline and re-seeds.
	changed, prevW, prevH := ResolutionChange(tr, 1920, 1080)
	require.True(t, changed)
	assert.Equal(t, 1280, prevW)
	assert.Equal(t, 720, prevH)
	assert.Equal(t, 1920, tr.LastWidth)

	// Changing back is a change again, not a suppressed repeat.
	changed, prevW, prevH = ResolutionChange(tr, 1280, 720)
	require.True(t, changed)
	assert.Equal(t, 1920, prevW)
	assert.Equal(t, 1080, prevH)
}

func TestFPSDrop(t *testing.T) {
	assert.False(t, FPSDrop(0, 10), "warming up, no estimate yet")
	assert.False(t, FPSDrop(10, 10), "at the floor is not a drop")
	assert.False(t, FPSDrop(29.5, 10))
	assert.True(t, FPSDrop(5.2, 10))
	assert.True(t, FPSDrop(0.1, 10))
}

func TestIdle(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	assert.False(t, Idle(time.Time{}, now, 3*time.Second), "never saw a frame")
	assert.False(t, Idle(now.Add(-2*time.Second), now, 3*time.Second))
	assert.False(t, Idle(now.Add(-3*time.Second), now, 3*time.Second), "boundary is exclusive")
	assert.True(t, Idle(now.Add(-3*time.Second-time.Millisecond), now, 3*time.Second))
}
