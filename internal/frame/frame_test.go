package frame

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceValid(t *testing.T) {
	assert.True(t, SourceCamera.Valid())
	assert.True(t, SourceScreen.Valid())
	assert.False(t, Source("").Valid())
	assert.False(t, Source("webcam").Valid())
	assert.False(t, Source("Camera").Valid())
}

func TestLifecycleEventTerminating(t *testing.T) {
	assert.True(t, EventEnded.Terminating())
	assert.True(t, EventInactive.Terminating())
	assert.False(t, EventStarted.Terminating())
	assert.False(t, EventMuted.Terminating())
	assert.False(t, EventUnmuted.Terminating())
}

func TestTerminal(t *testing.T) {
	assert.True(t, Terminal(ErrPermissionDenied))
	assert.True(t, Terminal(ErrSelectionCancelled))
	assert.True(t, Terminal(fmt.Errorf("open camera: %w", ErrPermissionDenied)))
	assert.False(t, Terminal(errors.New("device busy")))
	assert.False(t, Terminal(nil))
}
