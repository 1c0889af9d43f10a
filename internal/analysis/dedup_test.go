package analysis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

func TestDeduperCooldown(t *testing.T) {
	d := NewDeduper()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	assert.True(t, d.Allow(frame.SourceCamera, ConditionBlack, base))
	assert.False(t, d.Allow(frame.SourceCamera, ConditionBlack, base.Add(time.Second)))
	assert.False(t, d.Allow(frame.SourceCamera, ConditionBlack, base.Add(Cooldown)),
		"exactly at the cooldown is still suppressed")
	assert.True(t, d.Allow(frame.SourceCamera, ConditionBlack, base.Add(Cooldown+time.Millisecond)))
}

func TestDeduperIndependentKeys(t *testing.T) {
	d := NewDeduper()
	base := time.Now()

	assert.True(t, d.Allow(frame.SourceCamera, ConditionBlack, base))

	// A different condition on the same source is not gated.
	assert.True(t, d.Allow(frame.SourceCamera, ConditionFrozen, base))

	// The same condition on the other source is not gated either.
	assert.True(t, d.Allow(frame.SourceScreen, ConditionBlack, base))

	// But repeats of each are.
	assert.False(t, d.Allow(frame.SourceCamera, ConditionFrozen, base.Add(time.Second)))
	assert.False(t, d.Allow(frame.SourceScreen, ConditionBlack, base.Add(time.Second)))
}

func TestDeduperForget(t *testing.T) {
	d := NewDeduper()
	base := time.Now()

	assert.True(t, d.Allow(frame.SourceCamera, ConditionBlack, base))
	assert.True(t, d.Allow(frame.SourceScreen, ConditionBlack, base))

	d.Forget(frame.SourceCamera)

	// Camera reports immediately again; screen's cooldown is untouched.
	assert.True(t, d.Allow(frame.SourceCamera, ConditionBlack, base.Add(time.Second)))
	assert.False(t, d.Allow(frame.SourceScreen, ConditionBlack, base.Add(time.Second)))
}
