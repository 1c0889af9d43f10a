package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAny(t *testing.T) {
	assert.True(t, containsAny("v4l2: permission denied", "", "permission denied"))
	assert.True(t, containsAny("", "device access denied by policy", "access denied"))
	assert.True(t, containsAny("resource busy", "not-authorized on bus", "permission denied", "not-authorized"))
	assert.False(t, containsAny("internal data stream error", "gstbasesrc.c", "permission denied"))
	assert.False(t, containsAny("", "", "permission denied"))
}
