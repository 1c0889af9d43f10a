package frame

import "errors"

// Acquisition failure taxonomy.
//
// Terminal failures mean the user declined or cancelled source selection:
// they clear desired state and are never retried. Every other acquisition
// failure is transient and eligible for backoff retry.
var (
	// ErrPermissionDenied indicates the user or system denied access to
	// the capture device or display.
	ErrPermissionDenied = errors.New("frame: permission denied")

	// ErrSelectionCancelled indicates the user cancelled the
	// source-selection prompt.
	ErrSelectionCancelled = errors.New("frame: source selection cancelled")
)

// Terminal reports whether err is a terminal acquisition failure.
func Terminal(err error) bool {
	return errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrSelectionCancelled)
}
