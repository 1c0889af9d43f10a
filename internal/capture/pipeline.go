package capture

import (
	"fmt"
	"log/slog"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// PipelineConfig describes one capture pipeline.
type PipelineConfig struct {
	// Device is the V4L2 device path for the camera source
	// (e.g. /dev/video0). Ignored for the screen source.
	Device string
	// Display is the X display for the screen source (e.g. ":0").
	// Ignored for the camera source.
	Display string
	// Width and Height are the capture resolution delivered to the
	// appsink after scaling.
	Width  int
	Height int
	// TargetFPS caps the frame rate at the capsfilter.
	TargetFPS float64
}

// PipelineElements holds references needed for teardown and bus polling.
type PipelineElements struct {
	Pipeline   *gst.Pipeline
	AppSink    *app.Sink
	CapsFilter *gst.Element
	Src        *gst.Element
}

// BuildPipeline creates and links the capture pipeline for src. The
// pipeline is configured but not started; the caller sets it to PLAYING.
func BuildPipeline(src frame.Source, cfg PipelineConfig) (*PipelineElements, error) {
	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create pipeline: %w", err)
	}

	var source *gst.Element
	switch src {
	case frame.SourceCamera:
		source, err = gst.NewElement("v4l2src")
		if err != nil {
			return nil, fmt.Errorf("capture: failed to create v4l2src: %w", err)
		}
		if cfg.Device != "" {
			source.SetProperty("device", cfg.Device)
		}
	case frame.SourceScreen:
		source, err = gst.NewElement("ximagesrc")
		if err != nil {
			return nil, fmt.Errorf("capture: failed to create ximagesrc: %w", err)
		}
		if cfg.Display != "" {
			source.SetProperty("display-name", cfg.Display)
		}
		// Full-frame updates only; damage events deliver partial
		// regions the downscaler cannot use.
		source.SetProperty("use-damage", false)
	default:
		return nil, fmt.Errorf("capture: unknown source %q", src)
	}

	converter, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create videoconvert: %w", err)
	}

	scaler, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create videoscale: %w", err)
	}

	videorate, err := gst.NewElement("videorate")
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create videorate: %w", err)
	}
	videorate.SetProperty("drop-only", true)
	videorate.SetProperty("skip-to-first", true)

	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create capsfilter: %w", err)
	}
	capsStr := buildRGBCaps(cfg.Width, cfg.Height, cfg.TargetFPS)
	capsfilter.SetProperty("caps", gst.NewCapsFromString(capsStr))

	appsink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("capture: failed to create appsink: %w", err)
	}
	appsink.SetProperty("sync", false)
	appsink.SetProperty("max-buffers", 1) // Keep only latest frame
	appsink.SetProperty("drop", true)

	pipeline.AddMany(source, converter, scaler, videorate, capsfilter, appsink.Element)

	if err := gst.ElementLinkMany(source, converter, scaler, videorate, capsfilter, appsink.Element); err != nil {
		return nil, fmt.Errorf("capture: failed to link pipeline elements: %w", err)
	}

	slog.Debug("capture: pipeline built",
		"source", src,
		"caps", capsStr,
	)

	return &PipelineElements{
		Pipeline:   pipeline,
		AppSink:    appsink,
		CapsFilter: capsfilter,
		Src:        source,
	}, nil
}

// DestroyPipeline stops the pipeline and releases its elements.
func DestroyPipeline(elements *PipelineElements) error {
	if elements == nil || elements.Pipeline == nil {
		return nil
	}
	if err := elements.Pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("capture: failed to stop pipeline: %w", err)
	}
	return nil
}

// buildRGBCaps formats the caps string locking RGB output at the capture
// resolution and target frame rate.
func buildRGBCaps(width, height int, fps float64) string {
	// Framerate as a fraction; 30.0 → 30/1, 7.5 → 15/2.
	num, den := int(fps*2), 2
	if num%2 == 0 {
		num, den = num/2, 1
	}
	return fmt.Sprintf(
		"video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/%d",
		width, height, num, den,
	)
}
