package cluster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNodeStatusString(t *testing.T) {
	assert.Equal(t, "Healthy", StatusHealthy.String())
	assert.Equal(t, "Suspected", StatusSuspected.String())
	assert.Equal(t, "Unhealthy", StatusUnhealthy.String())
	assert.Equal(t, "Unknown", NodeStatus(42).String())
}

func TestNodeStatusDemote(t *testing.T) {
	assert.Equal(t, StatusSuspected, StatusHealthy.Demote())
	assert.Equal(t, StatusUnhealthy, StatusSuspected.Demote())
	assert.Equal(t, StatusUnhealthy, StatusUnhealthy.Demote(), "unhealthy is a sink")
}
