package monitor

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/e7canasta/orion-stream-health/internal/analysis"
	"github.com/e7canasta/orion-stream-health/internal/eventlog"
	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// Supervisor owns one Controller per monitored source and is the single
// entry point the HTTP API and the daemon wiring talk to.
//
// The two controllers are fully independent: stopping or losing one source
// never affects the other's desired state or backoff schedule.
type Supervisor struct {
	controllers map[frame.Source]*Controller
}

// NewSupervisor builds controllers for every source using one shared
// acquirer, settings store, log sink and deduper.
func NewSupervisor(acq frame.Acquirer, cfg analysis.ConfigProvider, sink *eventlog.Log, opts ...ControllerOption) (*Supervisor, error) {
	dedupe := analysis.NewDeduper()
	s := &Supervisor{controllers: make(map[frame.Source]*Controller, len(frame.Sources))}
	for _, src := range frame.Sources {
		ctl, err := NewController(src, acq, cfg, sink, dedupe, opts...)
		if err != nil {
			return nil, fmt.Errorf("monitor: build controller for %s: %w", src, err)
		}
		s.controllers[src] = ctl
	}
	return s, nil
}

// Controller returns the controller for src, or an error for an unknown
// source name.
func (s *Supervisor) Controller(src frame.Source) (*Controller, error) {
	ctl, ok := s.controllers[src]
	if !ok {
		return nil, fmt.Errorf("monitor: unknown source %q", src)
	}
	return ctl, nil
}

// Start activates one source.
func (s *Supervisor) Start(ctx context.Context, src frame.Source) error {
	ctl, err := s.Controller(src)
	if err != nil {
		return err
	}
	ctl.Start(ctx)
	return nil
}

// Stop deactivates one source.
func (s *Supervisor) Stop(src frame.Source) error {
	ctl, err := s.Controller(src)
	if err != nil {
		return err
	}
	ctl.Stop()
	return nil
}

// StartAll activates every source.
func (s *Supervisor) StartAll(ctx context.Context) {
	for _, src := range frame.Sources {
		s.controllers[src].Start(ctx)
	}
}

// StopAll deactivates every source. Used at daemon shutdown.
func (s *Supervisor) StopAll() {
	for _, src := range frame.Sources {
		s.controllers[src].Stop()
	}
	slog.Info("monitor: all sources stopped")
}

// Status returns a snapshot per source.
func (s *Supervisor) Status() map[frame.Source]Status {
	out := make(map[frame.Source]Status, len(s.controllers))
	for src, ctl := range s.controllers {
		out[src] = ctl.Status()
	}
	return out
}
