package frame

import (
	"context"
	"time"
)

// Source identifies one of the two monitored video feeds.
//
// The two sources are structurally identical and operationally independent:
// all monitoring state is keyed by Source and never shared between them.
type Source string

const (
	// SourceCamera is the local capture device feed.
	SourceCamera Source = "camera"
	// SourceScreen is the screen/display capture feed.
	SourceScreen Source = "screen"
)

// Sources lists every monitored source in a stable order.
var Sources = []Source{SourceCamera, SourceScreen}

// Valid reports whether s names a known source.
func (s Source) Valid() bool {
	return s == SourceCamera || s == SourceScreen
}

func (s Source) String() string {
	return string(s)
}

// Frame is a single decoded video frame with metadata.
//
// Data contains interleaved RGB bytes (Width × Height × 3), the format
// delivered by the GStreamer capture pipeline.
type Frame struct {
	// Seq is the monotonic sequence number within one stream session.
	Seq uint64
	// Timestamp is when the frame was captured/decoded.
	Timestamp time.Time
	// Width in pixels.
	Width int
	// Height in pixels.
	Height int
	// Data contains the frame data (interleaved RGB).
	Data []byte
	// TraceID is a unique identifier for correlating log entries.
	TraceID string
}

// LifecycleEvent is a notification from an active frame source.
type LifecycleEvent int

const (
	// EventStarted signals the source began producing frames.
	EventStarted LifecycleEvent = iota
	// EventEnded signals the underlying track ended.
	EventEnded
	// EventMuted signals the source was muted (still connected).
	EventMuted
	// EventUnmuted signals the source resumed after a mute.
	EventUnmuted
	// EventInactive signals the stream as a whole became inactive.
	EventInactive
)

func (e LifecycleEvent) String() string {
	switch e {
	case EventStarted:
		return "started"
	case EventEnded:
		return "ended"
	case EventMuted:
		return "muted"
	case EventUnmuted:
		return "unmuted"
	case EventInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// Terminating reports whether the event means the stream is gone.
//
// EventEnded and EventInactive both collapse into one canonical
// "source lost" path downstream, so a failure that raises both cannot
// schedule two reconnect chains.
func (e LifecycleEvent) Terminating() bool {
	return e == EventEnded || e == EventInactive
}

// FrameSource is an active video feed being monitored.
//
// Implementations must be safe for concurrent use: the analysis loop
// reads frames while a separate goroutine watches lifecycle events.
type FrameSource interface {
	// Dimensions returns the current pixel size of the feed.
	// Both values are 0 until the source produces its first frame.
	Dimensions() (width, height int)

	// Latest returns the most recent frame, or ok=false if no frame
	// has been produced yet.
	Latest() (f Frame, ok bool)

	// Connected reports whether the feed still has an active connection.
	// The analysis loop self-terminates the instant this returns false.
	Connected() bool

	// Events delivers lifecycle notifications. The channel is closed
	// when the source is stopped.
	Events() <-chan LifecycleEvent

	// Stop tears the feed down. Idempotent.
	Stop() error
}

// Acquirer asynchronously yields an active frame source for a given
// Source identity, or a classified failure (see errors.go for the
// terminal vs transient taxonomy).
type Acquirer interface {
	Acquire(ctx context.Context, src Source) (FrameSource, error)
}
