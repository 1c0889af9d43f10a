// Package monitor manages source lifecycle: desired-state tracking, the
// Idle/Starting/Running/WaitingToRetry state machine, exponential-backoff
// reconnects, and the supervisor that ties both sources together.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/e7canasta/orion-stream-health/internal/analysis"
	"github.com/e7canasta/orion-stream-health/internal/eventlog"
	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// State is the controller's view of one source.
type State int

const (
	// StateIdle: no desired activity, no stream.
	StateIdle State = iota
	// StateStarting: acquisition in flight.
	StateStarting
	// StateRunning: active stream, analysis loop ticking.
	StateRunning
	// StateWaitingToRetry: backoff timer pending.
	StateWaitingToRetry
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateWaitingToRetry:
		return "waiting_to_retry"
	default:
		return "unknown"
	}
}

// Backoff schedule: min(30s, 1s · 2^(attempts-1)) → 1s, 2s, 4s, 8s, 16s,
// 30s, 30s, …
const (
	backoffBase = 1 * time.Second
	backoffMax  = 30 * time.Second
)

// BackoffDelay returns the reconnect delay for the given attempt number
// (1-based, incremented each time a retry is scheduled).
func BackoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	shift := uint(attempt - 1)
	if shift > 5 {
		return backoffMax
	}
	d := backoffBase << shift
	if d > backoffMax {
		return backoffMax
	}
	return d
}

// Observer receives lifecycle and per-tick signals for instrumentation.
// All methods must be non-blocking.
type Observer interface {
	SetSourceUp(src frame.Source, up bool)
	ObserveVerdict(v analysis.Verdict)
	IncRestartScheduled(src frame.Source)
}

// Status is a point-in-time snapshot of a controller.
type Status struct {
	Source       frame.Source      `json:"source"`
	State        string            `json:"state"`
	Desired      bool              `json:"desired"`
	Attempts     int               `json:"attempts"`
	RetryPending bool              `json:"retry_pending"`
	Verdict      *analysis.Verdict `json:"verdict,omitempty"`
}

// Controller owns the desired state and restart state machine for one
// source.
//
// Desired state is set true only by an explicit start request or a
// scheduled retry firing, and set false only by an explicit stop or a
// terminal acquisition failure — detector logic never touches it. The
// attempts counter resets to zero on every successful Running transition
// and on explicit stop, and increments by exactly one per scheduled retry.
type Controller struct {
	source       frame.Source
	acquirer     frame.Acquirer
	cfg          analysis.ConfigProvider
	sink         *eventlog.Log
	dedupe       *analysis.Deduper
	clock        Clock
	obs          Observer
	tickInterval time.Duration

	mu         sync.Mutex
	ctx        context.Context
	state      State
	desired    bool
	attempts   int
	retryTimer Timer
	fs         frame.FrameSource
	loopCancel context.CancelFunc
	tracker    *analysis.Tracker
	// session invalidates in-flight acquisitions, lifecycle watchers and
	// retry timers from a superseded stream lifetime.
	session uint64
	verdict *analysis.Verdict
}

// ControllerOption customizes a Controller.
type ControllerOption func(*Controller)

// WithClock injects the time source (tests).
func WithClock(c Clock) ControllerOption {
	return func(ctl *Controller) { ctl.clock = c }
}

// WithObserver registers an instrumentation observer.
func WithObserver(o Observer) ControllerOption {
	return func(ctl *Controller) { ctl.obs = o }
}

// WithTickInterval overrides the analysis loop cadence.
func WithTickInterval(d time.Duration) ControllerOption {
	return func(ctl *Controller) { ctl.tickInterval = d }
}

// NewController builds a controller for one source. Fail-fast: every
// dependency is required.
func NewController(src frame.Source, acq frame.Acquirer, cfg analysis.ConfigProvider, sink *eventlog.Log, dedupe *analysis.Deduper, opts ...ControllerOption) (*Controller, error) {
	if !src.Valid() {
		return nil, fmt.Errorf("monitor: unknown source %q", src)
	}
	if acq == nil || cfg == nil || sink == nil || dedupe == nil {
		return nil, fmt.Errorf("monitor: missing dependencies for %s", src)
	}
	c := &Controller{
		source:       src,
		acquirer:     acq,
		cfg:          cfg,
		sink:         sink,
		dedupe:       dedupe,
		clock:        RealClock{},
		tickInterval: analysis.DefaultTickInterval,
		state:        StateIdle,
		tracker:      analysis.NewTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Start requests activation of the source. Desired state becomes true and
// acquisition begins unless a stream is already active or starting.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.ctx = ctx
	c.desired = true

	if c.state == StateStarting || c.state == StateRunning {
		slog.Debug("monitor: start requested but source already active",
			"source", c.source, "state", c.state.String())
		return
	}

	c.cancelRetryLocked()
	c.beginAcquisitionLocked()
}

// Stop requests deactivation: desired state false, stream torn down,
// pending retry cancelled, attempts reset.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	wasActive := c.state != StateIdle
	c.desired = false
	c.attempts = 0
	c.cancelRetryLocked()
	c.session++
	c.teardownLocked()
	c.state = StateIdle

	if wasActive {
		c.sink.Info(c.source, "source stopped", nil)
	}
}

// SourceLost handles the canonical "source lost" event for the current
// stream: unexpected termination of an already-running feed. The local
// handle is torn down, then retry scheduling is evaluated with desired
// state unchanged.
//
// "Track ended" and "stream inactive" both land here; the session check
// makes the second signal for the same failure a no-op, so one failure can
// never schedule two reconnect chains.
func (c *Controller) SourceLost(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sourceLostLocked(c.session, reason)
}

func (c *Controller) sourceLostLocked(session uint64, reason string) {
	if session != c.session || c.fs == nil {
		return
	}
	c.session++
	c.teardownLocked()
	c.state = StateIdle

	c.sink.Warn(c.source, "source lost: "+reason, map[string]any{
		"reason": reason,
	})
	c.scheduleRetryLocked()
}

// Status returns a snapshot of the controller.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := Status{
		Source:       c.source,
		State:        c.state.String(),
		Desired:      c.desired,
		Attempts:     c.attempts,
		RetryPending: c.retryTimer != nil,
	}
	if c.verdict != nil {
		v := *c.verdict
		st.Verdict = &v
	}
	return st
}

// Tracker exposes the controller's per-source tracker (tests, status).
func (c *Controller) Tracker() *analysis.Tracker {
	return c.tracker
}

// beginAcquisitionLocked transitions to Starting and launches the
// asynchronous acquisition for a fresh session.
func (c *Controller) beginAcquisitionLocked() {
	c.state = StateStarting
	c.session++
	session := c.session
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	slog.Info("monitor: acquiring source", "source", c.source, "session", session)

	go c.acquire(ctx, session)
}

func (c *Controller) acquire(ctx context.Context, session uint64) {
	fs, err := c.acquirer.Acquire(ctx, c.source)

	c.mu.Lock()
	defer c.mu.Unlock()

	if session != c.session || !c.desired {
		// Superseded by an explicit stop or a newer start.
		if fs != nil {
			_ = fs.Stop()
		}
		return
	}

	if err != nil {
		c.onAcquireFailureLocked(err)
		return
	}
	c.onAcquireSuccessLocked(fs, session)
}

func (c *Controller) onAcquireFailureLocked(err error) {
	if frame.Terminal(err) {
		// User declined or cancelled: never retried, intent cleared.
		c.desired = false
		c.cancelRetryLocked()
		c.state = StateIdle
		c.sink.Error(c.source, "source acquisition denied", map[string]any{
			"error": err.Error(),
		})
		return
	}

	c.state = StateIdle
	c.sink.Warn(c.source, "source acquisition failed", map[string]any{
		"error": err.Error(),
	})
	c.scheduleRetryLocked()
}

func (c *Controller) onAcquireSuccessLocked(fs frame.FrameSource, session uint64) {
	c.fs = fs
	c.state = StateRunning
	c.attempts = 0
	c.cancelRetryLocked()
	c.tracker.Reset()
	c.dedupe.Forget(c.source)

	loopCtx, cancel := context.WithCancel(context.Background())
	c.loopCancel = cancel

	loop, err := analysis.NewLoop(c.source, fs, c.cfg, c.sink, c.dedupe,
		analysis.WithTracker(c.tracker),
		analysis.WithInterval(c.tickInterval),
		analysis.WithNowFunc(c.clock.Now),
		analysis.WithVerdictFunc(c.recordVerdict),
	)
	if err != nil {
		// Cannot happen with validated dependencies; treat as transient.
		cancel()
		c.loopCancel = nil
		c.fs = nil
		_ = fs.Stop()
		c.state = StateIdle
		c.sink.Error(c.source, "analysis loop setup failed", map[string]any{"error": err.Error()})
		c.scheduleRetryLocked()
		return
	}

	go loop.Run(loopCtx)
	go c.watchLifecycle(fs, session)

	if c.obs != nil {
		c.obs.SetSourceUp(c.source, true)
	}
	c.sink.Info(c.source, "source started", map[string]any{
		"session": session,
	})
}

// watchLifecycle consumes lifecycle notifications for one stream session.
func (c *Controller) watchLifecycle(fs frame.FrameSource, session uint64) {
	for ev := range fs.Events() {
		switch {
		case ev.Terminating():
			c.mu.Lock()
			c.sourceLostLocked(session, ev.String())
			c.mu.Unlock()
			return
		case ev == frame.EventMuted:
			c.sink.Warn(c.source, "source muted", nil)
		case ev == frame.EventUnmuted:
			c.sink.Info(c.source, "source unmuted", nil)
		case ev == frame.EventStarted:
			slog.Debug("monitor: source reported started", "source", c.source)
		}
	}
}

// scheduleRetryLocked schedules a reconnect if and only if auto-restart is
// enabled, the source is still desired, and no stream handle is active.
// The three-way guard prevents duplicate concurrent retry chains.
func (c *Controller) scheduleRetryLocked() {
	cfg := c.cfg.Snapshot()
	if !cfg.AutoRestart || !c.desired || c.fs != nil || c.retryTimer != nil {
		if c.fs == nil && c.retryTimer == nil {
			c.state = StateIdle
		}
		return
	}

	c.attempts++
	delay := BackoffDelay(c.attempts)
	c.state = StateWaitingToRetry

	if c.obs != nil {
		c.obs.IncRestartScheduled(c.source)
	}
	c.sink.Info(c.source, "reconnect scheduled", map[string]any{
		"attempt":  c.attempts,
		"delay_ms": delay.Milliseconds(),
	})

	session := c.session
	c.retryTimer = c.clock.AfterFunc(delay, func() {
		c.onRetryFire(session)
	})
}

func (c *Controller) onRetryFire(session uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.retryTimer = nil
	if !c.desired || session != c.session {
		// Explicit stop won the race; the retry does nothing.
		return
	}
	c.beginAcquisitionLocked()
}

func (c *Controller) cancelRetryLocked() {
	if c.retryTimer != nil {
		c.retryTimer.Stop()
		c.retryTimer = nil
	}
}

// teardownLocked releases the stream handle and analysis loop and resets
// the per-source tracker to initial values.
func (c *Controller) teardownLocked() {
	if c.loopCancel != nil {
		c.loopCancel()
		c.loopCancel = nil
	}
	if c.fs != nil {
		_ = c.fs.Stop()
		c.fs = nil
	}
	c.tracker.Reset()
	c.verdict = nil
	if c.obs != nil {
		c.obs.SetSourceUp(c.source, false)
	}
}

func (c *Controller) recordVerdict(v analysis.Verdict) {
	c.mu.Lock()
	c.verdict = &v
	c.mu.Unlock()
	if c.obs != nil {
		c.obs.ObserveVerdict(v)
	}
}
