package capture

import (
	"fmt"
	"strings"

	"github.com/tinyzimmer/go-gst/gst"

	"github.com/e7canasta/orion-stream-health/internal/frame"
)

// ClassifyStartupError maps a pipeline startup failure onto the
// acquisition failure taxonomy.
//
// go-gst's GError does not expose the error domain, so classification
// relies on message keywords, the same approach the GStreamer bus watcher
// uses for telemetry. Permission and access problems are terminal (the
// monitor must not hammer a device the OS refuses to open); everything
// else is transient and retried under backoff.
func ClassifyStartupError(gerr *gst.GError) error {
	if gerr == nil {
		return nil
	}

	msg := strings.ToLower(gerr.Error())
	debug := strings.ToLower(gerr.DebugString())

	if containsAny(msg, debug,
		"permission denied",
		"not authorized",
		"not-authorized",
		"operation not permitted",
		"access denied",
	) {
		return fmt.Errorf("capture: %s: %w", gerr.Error(), frame.ErrPermissionDenied)
	}

	return fmt.Errorf("capture: pipeline error: %s", gerr.Error())
}

func containsAny(msg, debug string, keywords ...string) bool {
	for _, kw := range keywords {
		if strings.Contains(msg, kw) || strings.Contains(debug, kw) {
			return true
		}
	}
	return false
}
