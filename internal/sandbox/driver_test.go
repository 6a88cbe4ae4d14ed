package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bothive/pkg/models"
)

func TestMapContainerState(t *testing.T) {
	tests := []struct {
		name     string
		state    string
		exitCode int
		want     models.BotStatus
	}{
		{"running", "running", 0, models.BotRunning},
		{"created", "created", 0, models.BotCreated},
		{"clean exit", "exited", 0, models.BotStopped},
		{"crash exit", "exited", 1, models.BotCrashed},
		{"oom kill", "exited", 137, models.BotCrashed},
		{"dead clean", "dead", 0, models.BotStopped},
		{"dead with error", "dead", 2, models.BotCrashed},
		{"paused", "paused", 0, models.BotStopped},
		{"restarting", "restarting", 0, models.BotStopped},
		{"unknown state", "", 0, models.BotStopped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MapContainerState(tt.state, tt.exitCode))
		})
	}
}

func TestCPUQuotaFor(t *testing.T) {
	tests := []struct {
		limit string
		want  int64
	}{
		{"0.5", 50000},
		{"1.0", 100000},
		{"2.0", 200000},
		{"0.25", 25000},
	}

	for _, tt := range tests {
		got, err := cpuQuotaFor(tt.limit)
		require.NoError(t, err, tt.limit)
		assert.Equal(t, tt.want, got, tt.limit)
	}
}

func TestCPUQuotaForInvalid(t *testing.T) {
	for _, limit := range []string{"", "abc", "0", "-1"} {
		_, err := cpuQuotaFor(limit)
		assert.Error(t, err, limit)
	}
}
