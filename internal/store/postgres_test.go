package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateFlow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	flow := testFlow(7)
	mock.ExpectExec(`INSERT INTO flows`).
		WithArgs(flow.ID, flow.UserID, flow.BusinessID, pgxmock.AnyArg(), "pending",
			flow.Error, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.CreateFlow(context.Background(), flow))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateFlow_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	flow := testFlow(7)
	mock.ExpectExec(`UPDATE flows SET`).
		WithArgs(pgxmock.AnyArg(), "pending", flow.Error, pgxmock.AnyArg(), pgxmock.AnyArg(), flow.ID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateFlow(context.Background(), flow)
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFlow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	errMsg := ""
	mock.ExpectQuery(`SELECT id, user_id, business_id, source_urls, status, error, stats, created_at, updated_at FROM flows WHERE id = \$1`).
		WithArgs("flow-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "user_id", "business_id", "source_urls", "status", "error", "stats", "created_at", "updated_at",
		}).AddRow(
			"flow-1", int64(7), int64(42), []byte(`["https://acme.example.com"]`), model.FlowStatusRunning,
			&errMsg, []byte(`{"total_sources":1}`), now, now,
		))

	flow, err := s.GetFlow(context.Background(), "flow-1")
	require.NoError(t, err)
	assert.Equal(t, model.FlowStatusRunning, flow.Status)
	assert.Equal(t, []string{"https://acme.example.com"}, flow.SourceURLs)
	assert.Equal(t, 1, flow.Stats.TotalSources)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetFlow_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, user_id, business_id`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetFlow(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendLog(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO flow_logs`).
		WithArgs("flow-1", "SCRAPER", "Scraping landing_page", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendLog(context.Background(), model.LogEntry{
		FlowID:    "flow-1",
		Agent:     "SCRAPER",
		Message:   "Scraping landing_page",
		Metadata:  model.Payload{"platform": "landing_page"},
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetReport_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT report FROM flow_reports`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetReport(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveReport(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	report := &model.Report{
		FlowID:      "flow-1",
		Score:       model.Score{Final: 77, Grade: "B"},
		CompletedAt: time.Now().UTC(),
	}
	mock.ExpectExec(`INSERT INTO flow_reports`).
		WithArgs("flow-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SaveReport(context.Background(), report))
	assert.NoError(t, mock.ExpectationsWereMet())
}
