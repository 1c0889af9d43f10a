package capture

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// busPollInterval bounds how long Stop waits for the bus watcher.
const busPollInterval = 50 * time.Millisecond

// gstSource is an active GStreamer capture feed implementing
// frame.FrameSource.
type gstSource struct {
	source   frame.Source
	elements *PipelineElements
	width    int
	height   int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	events    chan frame.LifecycleEvent
	latest    atomic.Pointer[frame.Frame]
	frameSeq  uint64
	connected atomic.Bool
	stopOnce  sync.Once
}

func newGstSource(src frame.Source, elements *PipelineElements, cfg PipelineConfig) *gstSource {
	ctx, cancel := context.WithCancel(context.Background())
	s := &gstSource{
		source:   src,
		elements: elements,
		width:    cfg.Width,
		height:   cfg.Height,
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan frame.LifecycleEvent, 8),
	}
	s.connected.Store(true)
	return s
}

// install wires the appsink callback and launches the bus watcher.
func (s *gstSource) install() {
	s.elements.AppSink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})
	s.wg.Add(1)
	go s.watchBus()
}

// onNewSample copies the newest appsink buffer into the latest-frame slot.
//
// GStreamer reuses the mapped buffer after the callback returns, so the
// pixel data is always copied. A corrupt or empty sample skips the frame
// rather than terminating the stream.
func (s *gstSource) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		slog.Warn("capture: failed to pull sample from appsink, skipping frame", "source", s.source)
		return gst.FlowOK
	}

	buffer := sample.GetBuffer()
	if buffer == nil {
		slog.Warn("capture: failed to get buffer from sample, skipping frame", "source", s.source)
		return gst.FlowOK
	}

	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		// Unlike a failed pull, the pipeline delivered a frame with no
		// pixel data in it.
		slog.Error("capture: no image data in sample, skipping frame", "source", s.source)
		return gst.FlowOK
	}

	frameData := make([]byte, len(data))
	copy(frameData, data)
	buffer.Unmap()

	seq := atomic.AddUint64(&s.frameSeq, 1)
	f := frame.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		// Dimensions are locked by the pipeline capsfilter; the buffer
		// arriving here always matches them.
		Width:     s.width,
		Height:    s.height,
		Data:      frameData,
		TraceID:   uuid.New().String(),
	}
	s.latest.Store(&f)

	if seq == 1 {
		s.emit(frame.EventStarted)
	}

	return gst.FlowOK
}

// watchBus polls the pipeline bus until shutdown or stream loss. EOS and
// pipeline errors both collapse into a single EventEnded: the restart
// controller treats them identically and must never see two signals for
// one failure.
func (s *gstSource) watchBus() {
	defer s.wg.Done()

	bus := s.elements.Pipeline.GetPipelineBus()

	for {
		select {
		case <-s.ctx.Done():
			slog.Debug("capture: context cancelled, stopping bus watcher", "source", s.source)
			return

		default:
			msg := bus.TimedPop(busPollInterval)
			if msg == nil {
				continue
			}

			switch msg.Type() {
			case gst.MessageEOS:
				slog.Info("capture: end of stream received", "source", s.source)
				s.connected.Store(false)
				s.emit(frame.EventEnded)
				return

			case gst.MessageError:
				gerr := msg.ParseError()
				slog.Error("capture: pipeline error",
					"source", s.source,
					"error", gerr.Error(),
					"debug", gerr.DebugString(),
				)
				s.connected.Store(false)
				s.emit(frame.EventEnded)
				return
			}
		}
	}
}

func (s *gstSource) emit(ev frame.LifecycleEvent) {
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

// Dimensions implements frame.FrameSource. Zero until the first frame.
func (s *gstSource) Dimensions() (int, int) {
	f := s.latest.Load()
	if f == nil {
		return 0, 0
	}
	return f.Width, f.Height
}

// Latest implements frame.FrameSource.
func (s *gstSource) Latest() (frame.Frame, bool) {
	f := s.latest.Load()
	if f == nil {
		return frame.Frame{}, false
	}
	return *f, true
}

// Connected implements frame.FrameSource.
func (s *gstSource) Connected() bool {
	return s.connected.Load()
}

// Events implements frame.FrameSource.
func (s *gstSource) Events() <-chan frame.LifecycleEvent {
	return s.events
}

// Stop implements frame.FrameSource. Idempotent.
func (s *gstSource) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		s.connected.Store(false)
		s.cancel()
		s.wg.Wait()
		err = DestroyPipeline(s.elements)
		close(s.events)
		slog.Info("capture: source stopped",
			"source", s.source,
			"frames_captured", atomic.LoadUint64(&s.frameSeq),
		)
	})
	return err
}
