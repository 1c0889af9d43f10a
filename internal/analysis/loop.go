package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/e7canasta/orion-stream-health/internal/config"
	"github.com/e7canasta/orion-stream-health/internal/eventlog"
	"github.com/e7canasta/orion-stream-health/internal/frame"
	"github.com/e7canasta/orion-stream-health/internal/sampler"
)

// DefaultTickInterval is the nominal analysis cadence. One tick samples a
// frame, runs every enabled detector, refreshes the FPS estimate and emits
// at most one log line per condition. The cadence sits above
// FreezeMinTickGap, so two consecutive samples of a static feed are far
// enough apart for the freeze detector to trust the comparison.
const DefaultTickInterval = 250 * time.Millisecond

// fpsAnnounceDelta is the fps-drop debounce: a drop re-emits only when the
// new estimate differs from the last announced value by more than this.
// FPS legitimately fluctuates tick to tick; the generic cooldown would
// either flood or hide a worsening drop.
const fpsAnnounceDelta = 1.0

// Status is the aggregate per-tick verdict for a source.
type Status string

const (
	// StatusRun means no enabled detector fired this tick.
	StatusRun Status = "run"
	// StatusWarn means at least one of black/frozen/fps-drop/idle holds.
	StatusWarn Status = "warn"
)

// Verdict is the outcome of one tick, kept as the source's latest
// observable state for the status API and metrics.
type Verdict struct {
	Source       frame.Source `json:"source"`
	At           time.Time    `json:"at"`
	Status       Status       `json:"status"`
	FPS          float64      `json:"fps"`
	Width        int          `json:"width"`
	Height       int          `json:"height"`
	BlackPercent float64      `json:"black_percent"`
	Black        bool         `json:"black"`
	Frozen       bool         `json:"frozen"`
	FPSDrop      bool         `json:"fps_drop"`
	Idle         bool         `json:"idle"`
}

// ConfigProvider yields the settings snapshot taken once per tick.
type ConfigProvider interface {
	Snapshot() config.Snapshot
}

// Loop drives the per-source analysis pipeline:
// sample → detectors → fps estimate → dedup → log sink → tracker update.
//
// The loop owns its Tracker, Sampler and source handle and runs on a
// single goroutine; nothing here needs locking. It self-terminates the
// instant the source reports no active connection — all other teardown is
// driven externally through context cancellation.
type Loop struct {
	source   frame.Source
	fs       frame.FrameSource
	cfg      ConfigProvider
	sink     *eventlog.Log
	dedupe   *Deduper
	tracker  *Tracker
	sampler  *sampler.Sampler
	interval time.Duration
	now      func() time.Time

	// onVerdict, when set, observes every tick's verdict (status cache,
	// metrics). Called from the loop goroutine.
	onVerdict func(Verdict)
}

// LoopOption customizes a Loop.
type LoopOption func(*Loop)

// WithInterval overrides the tick cadence.
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) { l.interval = d }
}

// WithNowFunc injects the time source (tests).
func WithNowFunc(now func() time.Time) LoopOption {
	return func(l *Loop) { l.now = now }
}

// WithVerdictFunc registers a per-tick verdict observer.
func WithVerdictFunc(fn func(Verdict)) LoopOption {
	return func(l *Loop) { l.onVerdict = fn }
}

// WithTracker supplies an externally owned tracker, so a supervisor can
// reset it after teardown.
func WithTracker(t *Tracker) LoopOption {
	return func(l *Loop) { l.tracker = t }
}

// NewLoop builds an analysis loop for one source.
func NewLoop(src frame.Source, fs frame.FrameSource, cfg ConfigProvider, sink *eventlog.Log, dedupe *Deduper, opts ...LoopOption) (*Loop, error) {
	if !src.Valid() {
		return nil, fmt.Errorf("analysis: unknown source %q", src)
	}
	if fs == nil {
		return nil, fmt.Errorf("analysis: nil frame source for %s", src)
	}
	if cfg == nil || sink == nil || dedupe == nil {
		return nil, fmt.Errorf("analysis: missing dependencies for %s", src)
	}

	l := &Loop{
		source:   src,
		fs:       fs,
		cfg:      cfg,
		sink:     sink,
		dedupe:   dedupe,
		tracker:  NewTracker(),
		sampler:  sampler.New(),
		interval: DefaultTickInterval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Tracker exposes the loop's tracker (status introspection, tests).
func (l *Loop) Tracker() *Tracker {
	return l.tracker
}

// Run ticks until ctx is cancelled or the source disconnects.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	slog.Debug("analysis: loop started", "source", l.source, "interval", l.interval)

	for {
		select {
		case <-ctx.Done():
			slog.Debug("analysis: loop cancelled", "source", l.source)
			return
		case <-ticker.C:
			if !l.fs.Connected() {
				slog.Debug("analysis: source disconnected, loop ending", "source", l.source)
				return
			}
			l.Tick(l.now())
		}
	}
}

// Tick executes one analysis pass at instant now.
//
// A source that is not ready (zero dimensions, no frame yet, or no pixel
// data) skips the whole pipeline for this tick without logging anything:
// FrameNotReady is a normal warm-up condition, not an error.
func (l *Loop) Tick(now time.Time) {
	cfg := l.cfg.Snapshot()
	t := l.tracker

	f, ok := l.fs.Latest()
	if !ok {
		return
	}

	if f.Seq != t.LastSeq || t.FrameCount == 0 {
		at := f.Timestamp
		if at.IsZero() {
			at = now
		}
		t.ObserveFrame(f.Seq, at)
	}

	buf, _, _, ready := l.sampler.Sample(f)
	if !ready {
		return
	}

	verdict := Verdict{
		Source: l.source,
		At:     now,
		Width:  f.Width,
		Height: f.Height,
		Status: StatusRun,
	}

	if cfg.DetectResolutionChange {
		if changed, prevW, prevH := ResolutionChange(t, f.Width, f.Height); changed {
			// No cooldown: a genuine resolution change is rare and
			// always worth a line.
			l.sink.Info(l.source, "resolution changed", map[string]any{
				"from": fmt.Sprintf("%dx%d", prevW, prevH),
				"to":   fmt.Sprintf("%dx%d", f.Width, f.Height),
			})
		}
	} else {
		// Keep the baseline current even while reporting is off, so
		// re-enabling the detector does not fire on a stale change.
		t.LastWidth, t.LastHeight = f.Width, f.Height
	}

	if cfg.DetectBlackness {
		percent, black := Black(buf, cfg.BlackPercent)
		verdict.BlackPercent = percent
		verdict.Black = black
		if black && l.dedupe.Allow(l.source, ConditionBlack, now) {
			l.sink.Warn(l.source, "video is black", map[string]any{
				"luma_percent": round1(percent),
				"threshold":    cfg.BlackPercent,
			})
		}
	}

	if cfg.DetectFreeze {
		frozen := Frozen(buf, t.LastSample, now.Sub(t.LastTickAt))
		verdict.Frozen = frozen
		if frozen && l.dedupe.Allow(l.source, ConditionFrozen, now) {
			l.sink.Warn(l.source, "video appears frozen", map[string]any{
				"since_last_tick_ms": now.Sub(t.LastTickAt).Milliseconds(),
			})
		}
	}

	fps := t.FPS.Estimate()
	verdict.FPS = fps
	if cfg.DetectFPSDrop && FPSDrop(fps, cfg.FPSFloor) {
		verdict.FPSDrop = true
		if math.Abs(fps-t.LastAnnouncedFPS) > fpsAnnounceDelta {
			t.LastAnnouncedFPS = fps
			l.sink.Warn(l.source, "frame rate below floor", map[string]any{
				"fps":   round1(fps),
				"floor": cfg.FPSFloor,
			})
		}
	}

	if cfg.DetectIdle {
		idleFor := time.Duration(cfg.IdleSeconds * float64(time.Second))
		if Idle(t.LastFrameAt, now, idleFor) {
			verdict.Idle = true
			if l.dedupe.Allow(l.source, ConditionIdle, now) {
				l.sink.Warn(l.source, "no frames received", map[string]any{
					"idle_ms":      now.Sub(t.LastFrameAt).Milliseconds(),
					"idle_sec_cfg": cfg.IdleSeconds,
				})
			}
		}
	}

	// The current buffer always becomes the freeze baseline, whatever the
	// detectors concluded. The previous baseline's storage rotates back
	// into the sampler as next tick's scratch.
	prev := t.LastSample
	t.LastSample = buf
	l.sampler.Swap(prev)
	t.LastTickAt = now

	if verdict.Black || verdict.Frozen || verdict.FPSDrop || verdict.Idle {
		verdict.Status = StatusWarn
	}
	if l.onVerdict != nil {
		l.onVerdict(verdict)
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
