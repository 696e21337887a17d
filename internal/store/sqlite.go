package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS flows (
	id          TEXT PRIMARY KEY,
	user_id     INTEGER NOT NULL,
	business_id INTEGER NOT NULL,
	source_urls TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	error       TEXT,
	stats       TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS flow_logs (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	flow_id   TEXT NOT NULL REFERENCES flows(id),
	agent     TEXT NOT NULL,
	message   TEXT NOT NULL,
	metadata  TEXT,
	logged_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS flow_reports (
	flow_id      TEXT PRIMARY KEY REFERENCES flows(id),
	report       TEXT NOT NULL,
	completed_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flows_user_id ON flows(user_id);
CREATE INDEX IF NOT EXISTS idx_flows_status ON flows(status);
CREATE INDEX IF NOT EXISTS idx_flow_logs_flow_id ON flow_logs(flow_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateFlow(ctx context.Context, flow *model.Flow) error {
	urls, stats, err := marshalFlowFields(flow)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flows (id, user_id, business_id, source_urls, status, error, stats, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		flow.ID, flow.UserID, flow.BusinessID, urls, string(flow.Status), flow.Error, stats,
		flow.CreatedAt.UTC(), flow.UpdatedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert flow")
}

func (s *SQLiteStore) UpdateFlow(ctx context.Context, flow *model.Flow) error {
	urls, stats, err := marshalFlowFields(flow)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE flows SET source_urls = ?, status = ?, error = ?, stats = ?, updated_at = ? WHERE id = ?`,
		urls, string(flow.Status), flow.Error, stats, time.Now().UTC(), flow.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update flow %s", flow.ID)
	}
	return checkRowsAffected(res, flow.ID)
}

func (s *SQLiteStore) GetFlow(ctx context.Context, flowID string) (*model.Flow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, business_id, source_urls, status, error, stats, created_at, updated_at
		 FROM flows WHERE id = ?`, flowID)

	var flow model.Flow
	var urls, stats string
	var errMsg sql.NullString
	err := row.Scan(&flow.ID, &flow.UserID, &flow.BusinessID, &urls, &flow.Status,
		&errMsg, &stats, &flow.CreatedAt, &flow.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get flow %s", flowID)
	}
	flow.Error = errMsg.String
	if err := unmarshalFlowFields(&flow, urls, stats); err != nil {
		return nil, err
	}
	return &flow, nil
}

func (s *SQLiteStore) ListFlows(ctx context.Context, filter FlowFilter) ([]model.Flow, error) {
	query := `SELECT id, user_id, business_id, source_urls, status, error, stats, created_at, updated_at FROM flows WHERE 1=1`
	var args []any
	if filter.UserID != 0 {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list flows")
	}
	defer rows.Close()

	var flows []model.Flow
	for rows.Next() {
		var flow model.Flow
		var urls, stats string
		var errMsg sql.NullString
		if err := rows.Scan(&flow.ID, &flow.UserID, &flow.BusinessID, &urls, &flow.Status,
			&errMsg, &stats, &flow.CreatedAt, &flow.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan flow")
		}
		flow.Error = errMsg.String
		if err := unmarshalFlowFields(&flow, urls, stats); err != nil {
			return nil, err
		}
		flows = append(flows, flow)
	}
	return flows, eris.Wrap(rows.Err(), "sqlite: list flows")
}

func (s *SQLiteStore) AppendLog(ctx context.Context, entry model.LogEntry) error {
	metadata, err := marshalPayload(entry.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flow_logs (flow_id, agent, message, metadata, logged_at) VALUES (?, ?, ?, ?, ?)`,
		entry.FlowID, entry.Agent, entry.Message, metadata, entry.Timestamp.UTC(),
	)
	return eris.Wrap(err, "sqlite: insert log")
}

func (s *SQLiteStore) GetLogs(ctx context.Context, flowID string) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT flow_id, agent, message, metadata, logged_at FROM flow_logs WHERE flow_id = ? ORDER BY id`,
		flowID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get logs %s", flowID)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var entry model.LogEntry
		var metadata sql.NullString
		if err := rows.Scan(&entry.FlowID, &entry.Agent, &entry.Message, &metadata, &entry.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan log")
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal log metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: get logs")
}

func (s *SQLiteStore) SaveReport(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flow_reports (flow_id, report, completed_at) VALUES (?, ?, ?)
		 ON CONFLICT(flow_id) DO UPDATE SET report = excluded.report, completed_at = excluded.completed_at`,
		report.FlowID, string(data), report.CompletedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: save report")
}

func (s *SQLiteStore) GetReport(ctx context.Context, flowID string) (*model.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM flow_reports WHERE flow_id = ?`, flowID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get report %s", flowID)
	}
	var report model.Report
	if err := json.Unmarshal([]byte(data), &report); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal report")
	}
	return &report, nil
}

func marshalFlowFields(flow *model.Flow) (urls string, stats string, err error) {
	urlsJSON, err := json.Marshal(flow.SourceURLs)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal source urls")
	}
	statsJSON, err := json.Marshal(flow.Stats)
	if err != nil {
		return "", "", eris.Wrap(err, "sqlite: marshal stats")
	}
	return string(urlsJSON), string(statsJSON), nil
}

func unmarshalFlowFields(flow *model.Flow, urls, stats string) error {
	if urls != "" {
		if err := json.Unmarshal([]byte(urls), &flow.SourceURLs); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal source urls")
		}
	}
	if stats != "" {
		if err := json.Unmarshal([]byte(stats), &flow.Stats); err != nil {
			return eris.Wrap(err, "sqlite: unmarshal stats")
		}
	}
	return nil
}

func marshalPayload(p model.Payload) (sql.NullString, error) {
	if p == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return sql.NullString{}, eris.Wrap(err, "sqlite: marshal payload")
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func checkRowsAffected(res sql.Result, flowID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "flow %s", flowID)
	}
	return nil
}
