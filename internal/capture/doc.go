// Package capture implements the source acquisition boundary using
// GStreamer.
//
// Two pipelines are supported, one per monitored source:
//
//	camera:  v4l2src → videoconvert → videoscale → capsfilter(RGB) → appsink
//	screen:  ximagesrc → videoconvert → videoscale → capsfilter(RGB) → appsink
//
// Frames are delivered as interleaved RGB bytes. The appsink keeps only the
// latest buffer (max-buffers=1, drop=true): the health monitor samples the
// most recent frame per tick and has no use for a backlog.
//
// Acquisition failures are classified at this boundary: device permission
// problems map to the terminal taxonomy (no retry, desired state cleared),
// everything else is transient and eligible for backoff retry upstream.
// A stream that dies after starting surfaces as a single lifecycle event,
// never as an error return.
package capture
