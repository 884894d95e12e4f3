package logging

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_JSONFieldNames(t *testing.T) {
	event := &Event{
		Timestamp:   time.Date(2026, 2, 23, 14, 30, 0, 123000000, time.UTC),
		RunID:       "run-9f8e7d6c",
		AgentSystem: "ironclaw",
		EventType:   EventSpawnStep,
		Summary:     "rootfs verified for vm-a1b2c3d4",
	}
	b, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Contains(t, m, "ts")
	assert.Contains(t, m, "run_id")
	assert.Contains(t, m, "agent_system")
	assert.Contains(t, m, "event_type")
	assert.Contains(t, m, "summary")
	// Omitempty fields absent
	assert.NotContains(t, m, "plugin")
	assert.NotContains(t, m, "tags")
	assert.NotContains(t, m, "data")
}

func TestEvent_OmitemptyPresent(t *testing.T) {
	event := &Event{
		Timestamp:   time.Now().UTC(),
		RunID:       "test",
		AgentSystem: "test",
		EventType:   EventIsolationFault,
		Summary:     "test",
		Plugin:      "firewall",
		Tags:        []string{"network"},
		Data:        json.RawMessage(`{"domain":"network"}`),
	}
	b, err := json.Marshal(event)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))

	assert.Contains(t, m, "plugin")
	assert.Contains(t, m, "tags")
	assert.Contains(t, m, "data")
}

func TestEvent_TimestampFormat(t *testing.T) {
	ts := time.Date(2026, 2, 23, 14, 30, 0, 123456789, time.UTC)
	event := &Event{Timestamp: ts, RunID: "r", AgentSystem: "a", EventType: "t", Summary: "s"}

	b, err := json.Marshal(event)
	require.NoError(t, err)

	// Verify RFC 3339 with sub-second precision
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	tsStr := m["ts"].(string)
	parsed, err := time.Parse(time.RFC3339Nano, tsStr)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(ts))
}

func TestSpawnStepData_OutcomeAlwaysPresent(t *testing.T) {
	data := &SpawnStepData{
		VMID:    "vm-a1b2c3d4",
		Step:    "seccomp_install",
		Outcome: "ok",
	}
	b, err := json.Marshal(data)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "outcome")
	assert.Equal(t, "ok", m["outcome"])
}

func TestRetryAttemptData_RetryableAlwaysPresent(t *testing.T) {
	data := &RetryAttemptData{
		Method:     "exec",
		Attempt:    2,
		MaxAttempt: 5,
		DelayMS:    400,
		Retryable:  false,
	}
	b, err := json.Marshal(data)
	require.NoError(t, err)

	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Contains(t, m, "retryable")
	assert.Equal(t, false, m["retryable"])
}

func TestEventTypeConstants(t *testing.T) {
	assert.Equal(t, "spawn_step", EventSpawnStep)
	assert.Equal(t, "teardown_step", EventTeardownStep)
	assert.Equal(t, "state_transition", EventStateTransition)
	assert.Equal(t, "retry_attempt", EventRetryAttempt)
}
