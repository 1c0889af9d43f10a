package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotClamping(t *testing.T) {
	tests := []struct {
		name string
		raw  Snapshot
		want Snapshot
	}{
		{
			name: "below minimums",
			raw:  Snapshot{BlackPercent: 0.5, FPSFloor: 0, IdleSeconds: 1},
			want: Snapshot{BlackPercent: 1, FPSFloor: 1, IdleSeconds: 2},
		},
		{
			name: "above maximums",
			raw:  Snapshot{BlackPercent: 80, FPSFloor: 100, IdleSeconds: 120},
			want: Snapshot{BlackPercent: 50, FPSFloor: 60, IdleSeconds: 60},
		},
		{
			name: "in range untouched",
			raw:  Snapshot{BlackPercent: 8, FPSFloor: 10, IdleSeconds: 3},
			want: Snapshot{BlackPercent: 8, FPSFloor: 10, IdleSeconds: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSettings(tt.raw)
			got := s.Snapshot()
			assert.Equal(t, tt.want.BlackPercent, got.BlackPercent)
			assert.Equal(t, tt.want.FPSFloor, got.FPSFloor)
			assert.Equal(t, tt.want.IdleSeconds, got.IdleSeconds)
		})
	}
}

func TestSettingsStoresRawValues(t *testing.T) {
	// Clamping happens at read time only; Apply keeps what the operator
	// wrote so a later widened range reads the original value.
	s := NewSettings(Default())
	raw := Default()
	raw.BlackPercent = 200
	s.Apply(raw)

	assert.Equal(t, 50.0, s.Snapshot().BlackPercent)
	s.Apply(raw)
	assert.Equal(t, 50.0, s.Snapshot().BlackPercent)
}

func TestApplyReplacesWholesale(t *testing.T) {
	s := NewSettings(Default())
	require.True(t, s.Snapshot().DetectFreeze)

	s.Apply(Snapshot{DetectBlackness: true, BlackPercent: 20})
	got := s.Snapshot()
	assert.True(t, got.DetectBlackness)
	assert.False(t, got.DetectFreeze, "fields absent from the new snapshot reset")
	assert.False(t, got.AutoRestart)
	assert.Equal(t, 20.0, got.BlackPercent)
}

func TestDefault(t *testing.T) {
	d := Default()
	assert.True(t, d.DetectBlackness)
	assert.True(t, d.DetectFreeze)
	assert.True(t, d.DetectResolutionChange)
	assert.True(t, d.DetectFPSDrop)
	assert.True(t, d.DetectIdle)
	assert.True(t, d.AutoRestart)
	assert.Equal(t, 8.0, d.BlackPercent)
	assert.Equal(t, 10.0, d.FPSFloor)
	assert.Equal(t, 3.0, d.IdleSeconds)
}

func TestLoadDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	assert.Equal(t, Default(), Load(v).Snapshot())
}

func TestLoadOverrides(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("monitor.black-percent", 15.0)
	v.Set("monitor.detect-idle", false)
	v.Set("monitor.auto-restart", false)

	got := Load(v).Snapshot()
	assert.Equal(t, 15.0, got.BlackPercent)
	assert.False(t, got.DetectIdle)
	assert.False(t, got.AutoRestart)
	assert.True(t, got.DetectFreeze, "untouched keys keep their defaults")
	assert.True(t, got.DetectBlackness, "untouched keys keep their defaults")
	assert.Equal(t, DefaultFPSFloor, got.FPSFloor)
}

func TestLoadSingleOverrideKeepsDefaults(t *testing.T) {
	// One overridden key must not wipe the defaulted siblings.
	v := viper.New()
	SetDefaults(v)
	v.Set("monitor.black-percent", 12.0)

	want := Default()
	want.BlackPercent = 12.0
	assert.Equal(t, want, Load(v).Snapshot())
}
