// Package config holds the monitoring settings: detector toggles, numeric
// thresholds and the auto-restart switch.
//
// Detectors never read settings directly. The analysis loop takes one
// Snapshot per tick and passes it down explicitly, so a mid-tick settings
// change can never produce a half-old half-new evaluation. Threshold values
// are clamped to their valid ranges at snapshot time and stored raw, the
// way the operator wrote them.
package config

import (
	"sync"

	"github.com/spf13/viper"
)

// Threshold ranges. Values outside these are clamped at read time.
const (
	BlackPercentMin = 1.0
	BlackPercentMax = 50.0
	FPSFloorMin     = 1.0
	FPSFloorMax     = 60.0
	IdleSecondsMin  = 2.0
	IdleSecondsMax  = 60.0
)

// Defaults applied when a key is absent from config file and flags.
const (
	DefaultBlackPercent = 8.0
	DefaultFPSFloor     = 10.0
	DefaultIdleSeconds  = 3.0
)

// Snapshot is one read-only evaluation of the settings. It is passed by
// value into detector calls and never cached across ticks.
type Snapshot struct {
	DetectBlackness        bool    `json:"detect_blackness"`
	DetectFreeze           bool    `json:"detect_freeze"`
	DetectResolutionChange bool    `json:"detect_resolution_change"`
	DetectFPSDrop          bool    `json:"detect_fps_drop"`
	DetectIdle             bool    `json:"detect_idle"`
	BlackPercent           float64 `json:"black_percent"`
	FPSFloor               float64 `json:"fps_floor"`
	IdleSeconds            float64 `json:"idle_seconds"`
	AutoRestart            bool    `json:"auto_restart"`
}

// clamped returns a copy with thresholds forced into their valid ranges.
func (s Snapshot) clamped() Snapshot {
	s.BlackPercent = clamp(s.BlackPercent, BlackPercentMin, BlackPercentMax)
	s.FPSFloor = clamp(s.FPSFloor, FPSFloorMin, FPSFloorMax)
	s.IdleSeconds = clamp(s.IdleSeconds, IdleSecondsMin, IdleSecondsMax)
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Settings is the live, mutable settings store behind Snapshot reads.
// Thread-safe: the HTTP API updates it while analysis loops snapshot it.
type Settings struct {
	mu  sync.RWMutex
	raw Snapshot
}

// NewSettings returns a Settings store seeded with raw values.
func NewSettings(raw Snapshot) *Settings {
	return &Settings{raw: raw}
}

// Default returns the settings every detector enabled, auto-restart on,
// and default thresholds.
func Default() Snapshot {
	return Snapshot{
		DetectBlackness:        true,
		DetectFreeze:           true,
		DetectResolutionChange: true,
		DetectFPSDrop:          true,
		DetectIdle:             true,
		BlackPercent:           DefaultBlackPercent,
		FPSFloor:               DefaultFPSFloor,
		IdleSeconds:            DefaultIdleSeconds,
		AutoRestart:            true,
	}
}

// Snapshot returns the current settings with thresholds clamped.
func (s *Settings) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw.clamped()
}

// Apply replaces the raw settings wholesale.
func (s *Settings) Apply(raw Snapshot) {
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
}

// SetDefaults registers every settings key with its default on v.
func SetDefaults(v *viper.Viper) {
	def := Default()
	v.SetDefault("monitor.detect-blackness", def.DetectBlackness)
	v.SetDefault("monitor.detect-freeze", def.DetectFreeze)
	v.SetDefault("monitor.detect-resolution-change", def.DetectResolutionChange)
	v.SetDefault("monitor.detect-fps-drop", def.DetectFPSDrop)
	v.SetDefault("monitor.detect-idle", def.DetectIdle)
	v.SetDefault("monitor.black-percent", def.BlackPercent)
	v.SetDefault("monitor.fps-floor", def.FPSFloor)
	v.SetDefault("monitor.idle-seconds", def.IdleSeconds)
	v.SetDefault("monitor.auto-restart", def.AutoRestart)
}

// Load builds a Settings store from the "monitor" section of v.
//
// Each key is read through a typed getter so the value comes from viper's
// merged view (defaults, config file, flags, env). Unmarshalling the
// "monitor" subtree in one call would lose the defaulted siblings as soon
// as any one key carries an override.
func Load(v *viper.Viper) *Settings {
	return NewSettings(Snapshot{
		DetectBlackness:        v.GetBool("monitor.detect-blackness"),
		DetectFreeze:           v.GetBool("monitor.detect-freeze"),
		DetectResolutionChange: v.GetBool("monitor.detect-resolution-change"),
		DetectFPSDrop:          v.GetBool("monitor.detect-fps-drop"),
		DetectIdle:             v.GetBool("monitor.detect-idle"),
		BlackPercent:           v.GetFloat64("monitor.black-percent"),
		FPSFloor:               v.GetFloat64("monitor.fps-floor"),
		IdleSeconds:            v.GetFloat64("monitor.idle-seconds"),
		AutoRestart:            v.GetBool("monitor.auto-restart"),
	})
}
