package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testFlow(userID int64) *model.Flow {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Flow{
		ID:         uuid.New().String(),
		UserID:     userID,
		BusinessID: 42,
		SourceURLs: []string{"https://acme.example.com", "https://instagram.com/acme"},
		Status:     model.FlowStatusPending,
		Stats:      model.FlowStats{TotalSources: 2},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestSQLiteStore_FlowRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	flow := testFlow(7)
	require.NoError(t, s.CreateFlow(ctx, flow))

	got, err := s.GetFlow(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, flow.ID, got.ID)
	assert.Equal(t, int64(7), got.UserID)
	assert.Equal(t, flow.SourceURLs, got.SourceURLs)
	assert.Equal(t, model.FlowStatusPending, got.Status)
	assert.Equal(t, 2, got.Stats.TotalSources)
}

func TestSQLiteStore_UpdateFlow(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	flow := testFlow(7)
	require.NoError(t, s.CreateFlow(ctx, flow))

	flow.Status = model.FlowStatusFailed
	flow.Error = "no data could be scraped from any source"
	flow.Stats.FailedSources = 2
	require.NoError(t, s.UpdateFlow(ctx, flow))

	got, err := s.GetFlow(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, model.FlowStatusFailed, got.Status)
	assert.Equal(t, "no data could be scraped from any source", got.Error)
	assert.Equal(t, 2, got.Stats.FailedSources)
}

func TestSQLiteStore_UpdateFlow_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	flow := testFlow(7)
	err := s.UpdateFlow(context.Background(), flow)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteStore_GetFlow_NotFound(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.GetFlow(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLiteStore_ListFlows(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first := testFlow(1)
	second := testFlow(1)
	second.Status = model.FlowStatusCompleted
	other := testFlow(2)
	for _, f := range []*model.Flow{first, second, other} {
		require.NoError(t, s.CreateFlow(ctx, f))
	}

	flows, err := s.ListFlows(ctx, FlowFilter{UserID: 1})
	require.NoError(t, err)
	assert.Len(t, flows, 2)

	flows, err = s.ListFlows(ctx, FlowFilter{UserID: 1, Status: model.FlowStatusCompleted})
	require.NoError(t, err)
	require.Len(t, flows, 1)
	assert.Equal(t, second.ID, flows[0].ID)

	flows, err = s.ListFlows(ctx, FlowFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, flows, 1)
}

func TestSQLiteStore_Logs(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	flow := testFlow(7)
	require.NoError(t, s.CreateFlow(ctx, flow))

	for i, msg := range []string{"Starting agent flow", "Scraping landing_page"} {
		require.NoError(t, s.AppendLog(ctx, model.LogEntry{
			FlowID:    flow.ID,
			Agent:     "MANAGER",
			Message:   msg,
			Metadata:  model.Payload{"seq": float64(i)},
			Timestamp: time.Now().UTC(),
		}))
	}

	logs, err := s.GetLogs(ctx, flow.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "Starting agent flow", logs[0].Message)
	assert.Equal(t, float64(1), logs[1].Metadata["seq"])

	logs, err = s.GetLogs(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestSQLiteStore_ReportRoundTrip(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	flow := testFlow(7)
	require.NoError(t, s.CreateFlow(ctx, flow))

	report := &model.Report{
		FlowID:     flow.ID,
		SourceURLs: flow.SourceURLs,
		Score:      model.Score{Final: 77, Grade: "B"},
		Feedback:   model.Payload{"strengths": []any{"clear messaging"}},
		Stats:      model.FlowStats{TotalSources: 2, CompletedSources: 2},
		CompletedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, s.SaveReport(ctx, report))

	got, err := s.GetReport(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 77.0, got.Score.Final)
	assert.Equal(t, "B", got.Score.Grade)

	// Upsert replaces the stored report.
	report.Score.Final = 80
	require.NoError(t, s.SaveReport(ctx, report))
	got, err = s.GetReport(ctx, flow.ID)
	require.NoError(t, err)
	assert.Equal(t, 80.0, got.Score.Final)

	_, err = s.GetReport(ctx, "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}
