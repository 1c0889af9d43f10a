package capture

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// startupTimeout bounds how long acquisition waits for the pipeline to
// reach PLAYING before reporting a transient failure.
const startupTimeout = 5 * time.Second

// Config holds the per-source capture parameters.
type Config struct {
	// Device is the camera's V4L2 device path (default /dev/video0).
	Device string
	// Display is the X display captured for the screen source
	// (default ":0").
	Display string
	// Width and Height set the capture resolution (default 1280×720).
	Width  int
	Height int
	// TargetFPS caps the delivered frame rate (default 30).
	TargetFPS float64
}

func (c Config) withDefaults() Config {
	if c.Device == "" {
		c.Device = "/dev/video0"
	}
	if c.Display == "" {
		c.Display = ":0"
	}
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = 1280, 720
	}
	if c.TargetFPS <= 0 {
		c.TargetFPS = 30
	}
	return c
}

// Acquirer builds GStreamer-backed frame sources, implementing
// frame.Acquirer.
type Acquirer struct {
	cfg Config
}

// NewAcquirer validates cfg (fail-fast) and returns an Acquirer.
func NewAcquirer(cfg Config) (*Acquirer, error) {
	cfg = cfg.withDefaults()
	if cfg.TargetFPS > 60 {
		return nil, fmt.Errorf("capture: invalid FPS %.2f (must be ≤ 60)", cfg.TargetFPS)
	}
	if err := checkGStreamerAvailable(); err != nil {
		return nil, fmt.Errorf("capture: GStreamer not available: %w", err)
	}
	return &Acquirer{cfg: cfg}, nil
}

// Acquire implements frame.Acquirer: build the pipeline for src, start
// it, and wait for PLAYING.
//
// Failure classification happens here. A pipeline error during startup
// runs through ClassifyStartupError, so a permission problem returns a
// terminal error while everything else is transient. Context cancellation
// is transient: the caller decided to stop waiting, the device may be fine.
func (a *Acquirer) Acquire(ctx context.Context, src frame.Source) (frame.FrameSource, error) {
	pipelineCfg := PipelineConfig{
		Device:    a.cfg.Device,
		Display:   a.cfg.Display,
		Width:     a.cfg.Width,
		Height:    a.cfg.Height,
		TargetFPS: a.cfg.TargetFPS,
	}

	elements, err := BuildPipeline(src, pipelineCfg)
	if err != nil {
		return nil, err
	}

	if err := elements.Pipeline.SetState(gst.StatePlaying); err != nil {
		_ = DestroyPipeline(elements)
		return nil, fmt.Errorf("capture: failed to start pipeline for %s: %w", src, err)
	}

	if err := waitForPlaying(ctx, elements); err != nil {
		_ = DestroyPipeline(elements)
		return nil, err
	}

	s := newGstSource(src, elements, pipelineCfg)
	s.install()

	slog.Info("capture: source acquired",
		"source", src,
		"resolution", fmt.Sprintf("%dx%d", pipelineCfg.Width, pipelineCfg.Height),
		"target_fps", pipelineCfg.TargetFPS,
	)
	return s, nil
}

// waitForPlaying polls the bus until the pipeline reaches PLAYING, a
// startup error arrives, the timeout elapses, or ctx is cancelled.
func waitForPlaying(ctx context.Context, elements *PipelineElements) error {
	bus := elements.Pipeline.GetPipelineBus()
	deadline := time.Now().Add(startupTimeout)

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return fmt.Errorf("capture: acquisition cancelled: %w", ctx.Err())
		default:
		}

		msg := bus.TimedPop(busPollInterval)
		if msg == nil {
			continue
		}

		switch msg.Type() {
		case gst.MessageError:
			return ClassifyStartupError(msg.ParseError())

		case gst.MessageStateChanged:
			if msg.Source() == elements.Pipeline.GetName() {
				_, newState := msg.ParseStateChanged()
				if newState == gst.StatePlaying {
					slog.Debug("capture: pipeline reached PLAYING state")
					return nil
				}
			}
		}
	}

	return fmt.Errorf("capture: pipeline did not reach PLAYING within %s", startupTimeout)
}

// checkGStreamerAvailable verifies GStreamer works at construction time.
func checkGStreamerAvailable() error {
	gst.Init(nil)

	elem, err := gst.NewElement("fakesrc")
	if err != nil {
		return fmt.Errorf("GStreamer not available or not properly installed: %w", err)
	}
	elem.SetState(gst.StateNull)

	return nil
}
