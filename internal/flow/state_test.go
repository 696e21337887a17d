package flow

import (
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

func newTestState() *State {
	return NewState(nil, time.Second)
}

func pendingFlow(id string, userID int64) model.Flow {
	now := time.Now().UTC()
	return model.Flow{
		ID:         id,
		UserID:     userID,
		BusinessID: 1,
		SourceURLs: []string{"https://acme.example.com"},
		Status:     model.FlowStatusPending,
		Stats:      model.FlowStats{TotalSources: 1},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestState_CreateEnforcesSingleActiveFlow(t *testing.T) {
	s := newTestState()

	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))

	err := s.Create(pendingFlow("flow-2", 7))
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrActiveFlow))

	// A different user is unaffected.
	require.NoError(t, s.Create(pendingFlow("flow-3", 8)))

	// Releasing the slot admits a new flow for the same user.
	s.ReleaseSlot(7, "flow-1")
	require.NoError(t, s.Create(pendingFlow("flow-4", 7)))
}

func TestState_ReleaseSlotOnlyForOwningFlow(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))

	// A stale release from a previous flow must not free the slot.
	s.ReleaseSlot(7, "flow-0")
	err := s.Create(pendingFlow("flow-2", 7))
	assert.True(t, eris.Is(err, ErrActiveFlow))

	s.ReleaseSlot(7, "flow-1")
	s.ReleaseSlot(7, "flow-1") // idempotent
	require.NoError(t, s.Create(pendingFlow("flow-2", 7)))
}

func TestState_SetStatusTerminalIsImmutable(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))

	assert.True(t, s.SetStatus("flow-1", model.FlowStatusRunning, ""))
	assert.True(t, s.SetStatus("flow-1", model.FlowStatusStopped, ""))

	// A completion racing a stop must not overwrite the terminal state.
	assert.False(t, s.SetStatus("flow-1", model.FlowStatusCompleted, ""))

	flow, err := s.Flow("flow-1")
	require.NoError(t, err)
	assert.Equal(t, model.FlowStatusStopped, flow.Status)
}

func TestState_SetStatusUnknownFlow(t *testing.T) {
	s := newTestState()
	assert.False(t, s.SetStatus("missing", model.FlowStatusRunning, ""))
}

func TestState_RequestStop(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))
	s.SetStatus("flow-1", model.FlowStatusRunning, "")

	require.NoError(t, s.RequestStop("flow-1", 7))
	assert.True(t, s.StopRequested("flow-1"))

	flow, err := s.Flow("flow-1")
	require.NoError(t, err)
	assert.Equal(t, model.FlowStatusStopped, flow.Status)
}

func TestState_RequestStopNotOwner(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))

	err := s.RequestStop("flow-1", 99)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotOwner))
	assert.False(t, s.StopRequested("flow-1"))
}

func TestState_RequestStopErrors(t *testing.T) {
	s := newTestState()

	err := s.RequestStop("missing", 7)
	assert.True(t, eris.Is(err, ErrNotFound))

	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))
	s.SetStatus("flow-1", model.FlowStatusCompleted, "")

	err = s.RequestStop("flow-1", 7)
	assert.True(t, eris.Is(err, ErrTerminal))
}

func TestState_Logs(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))

	s.AppendLog("flow-1", "SYSTEM", "Starting agent flow for 1 URLs", nil)
	s.AppendLog("flow-1", "INGESTOR", "Scraping source 1/1", model.Payload{"url": "https://acme.example.com"})
	s.AppendLog("missing", "SYSTEM", "dropped", nil)

	logs, err := s.Logs("flow-1")
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "SYSTEM", logs[0].Agent)
	assert.Equal(t, "https://acme.example.com", logs[1].Metadata["url"])
	assert.False(t, logs[0].Timestamp.IsZero())

	_, err = s.Logs("missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestState_Report(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))

	_, err := s.Report("flow-1")
	assert.True(t, eris.Is(err, ErrNoResult))

	_, err = s.Report("missing")
	assert.True(t, eris.Is(err, ErrNotFound))

	s.SetReport("flow-1", &model.Report{FlowID: "flow-1", Score: model.Score{Final: 77, Grade: "B"}})

	report, err := s.Report("flow-1")
	require.NoError(t, err)
	assert.Equal(t, "B", report.Score.Grade)
}

func TestState_SetStats(t *testing.T) {
	s := newTestState()
	require.NoError(t, s.Create(pendingFlow("flow-1", 7)))

	s.SetStats("flow-1", model.FlowStats{TotalSources: 2, CompletedSources: 1, FailedSources: 1})

	flow, err := s.Flow("flow-1")
	require.NoError(t, err)
	assert.Equal(t, 1, flow.Stats.CompletedSources)
	assert.Equal(t, 1, flow.Stats.FailedSources)
}
