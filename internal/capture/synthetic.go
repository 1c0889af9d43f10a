package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// SyntheticConfig describes a generated test feed.
type SyntheticConfig struct {
	Width  int
	Height int
	FPS    float64
	// Lifetime ends the feed after this duration; zero runs until Stop.
	Lifetime time.Duration
}

// SyntheticAcquirer yields in-process generated sources. It exists for
// demo runs on machines without capture hardware and for exercising the
// full monitor stack without GStreamer.
type SyntheticAcquirer struct {
	cfg SyntheticConfig
}

// NewSyntheticAcquirer returns an acquirer producing synthetic feeds.
func NewSyntheticAcquirer(cfg SyntheticConfig) *SyntheticAcquirer {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	return &SyntheticAcquirer{cfg: cfg}
}

// Acquire implements frame.Acquirer.
func (a *SyntheticAcquirer) Acquire(_ context.Context, src frame.Source) (frame.FrameSource, error) {
	s := &syntheticSource{
		source: src,
		cfg:    a.cfg,
		events: make(chan frame.LifecycleEvent, 8),
	}
	s.connected.Store(true)
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.wg.Add(1)
	go s.generate(ctx)
	return s, nil
}

// syntheticSource produces a moving-gradient pattern so freeze detection
// sees changing pixels.
type syntheticSource struct {
	source    frame.Source
	cfg       SyntheticConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	events    chan frame.LifecycleEvent
	latest    atomic.Pointer[frame.Frame]
	seq       uint64
	connected atomic.Bool
	stopOnce  sync.Once
}

func (s *syntheticSource) generate(ctx context.Context) {
	defer s.wg.Done()

	interval := time.Duration(float64(time.Second) / s.cfg.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if s.cfg.Lifetime > 0 {
		t := time.NewTimer(s.cfg.Lifetime)
		defer t.Stop()
		deadline = t.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			s.connected.Store(false)
			select {
			case s.events <- frame.EventEnded:
			case <-ctx.Done():
			}
			return
		case <-ticker.C:
			seq := atomic.AddUint64(&s.seq, 1)
			s.latest.Store(s.render(seq))
			if seq == 1 {
				select {
				case s.events <- frame.EventStarted:
				default:
				}
			}
		}
	}
}

func (s *syntheticSource) render(seq uint64) *frame.Frame {
	w, h := s.cfg.Width, s.cfg.Height
	data := make([]byte, w*h*3)
	shift := byte(seq)
	for y := 0; y < h; y++ {
		row := y * w * 3
		for x := 0; x < w; x++ {
			i := row + x*3
			data[i+0] = byte(x) + shift
			data[i+1] = byte(y)
			data[i+2] = 128
		}
	}
	return &frame.Frame{
		Seq:       seq,
		Timestamp: time.Now(),
		Width:     w,
		Height:    h,
		Data:      data,
		TraceID:   uuid.New().String(),
	}
}

func (s *syntheticSource) Dimensions() (int, int) {
	f := s.latest.Load()
	if f == nil {
		return 0, 0
	}
	return f.Width, f.Height
}

func (s *syntheticSource) Latest() (frame.Frame, bool) {
	f := s.latest.Load()
	if f == nil {
		return frame.Frame{}, false
	}
	return *f, true
}

func (s *syntheticSource) Connected() bool {
	return s.connected.Load()
}

func (s *syntheticSource) Events() <-chan frame.LifecycleEvent {
	return s.events
}

func (s *syntheticSource) Stop() error {
	s.stopOnce.Do(func() {
		s.connected.Store(false)
		s.cancel()
		s.wg.Wait()
		close(s.events)
	})
	return nil
}
