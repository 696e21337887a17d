package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS flows (
	id          TEXT PRIMARY KEY,
	user_id     BIGINT NOT NULL,
	business_id BIGINT NOT NULL,
	source_urls JSONB NOT NULL,
	status      TEXT NOT NULL DEFAULT 'pending',
	error       TEXT,
	stats       JSONB,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS flow_logs (
	id        BIGSERIAL PRIMARY KEY,
	flow_id   TEXT NOT NULL REFERENCES flows(id),
	agent     TEXT NOT NULL,
	message   TEXT NOT NULL,
	metadata  JSONB,
	logged_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS flow_reports (
	flow_id      TEXT PRIMARY KEY REFERENCES flows(id),
	report       JSONB NOT NULL,
	completed_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_flows_user_id ON flows(user_id);
CREATE INDEX IF NOT EXISTS idx_flows_status ON flows(status);
CREATE INDEX IF NOT EXISTS idx_flow_logs_flow_id ON flow_logs(flow_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateFlow(ctx context.Context, flow *model.Flow) error {
	urls, stats, err := marshalFlowJSON(flow)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO flows (id, user_id, business_id, source_urls, status, error, stats, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		flow.ID, flow.UserID, flow.BusinessID, urls, string(flow.Status), flow.Error, stats,
		flow.CreatedAt.UTC(), flow.UpdatedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: insert flow")
}

func (s *PostgresStore) UpdateFlow(ctx context.Context, flow *model.Flow) error {
	urls, stats, err := marshalFlowJSON(flow)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE flows SET source_urls = $1, status = $2, error = $3, stats = $4, updated_at = $5 WHERE id = $6`,
		urls, string(flow.Status), flow.Error, stats, time.Now().UTC(), flow.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update flow %s", flow.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "flow %s", flow.ID)
	}
	return nil
}

func (s *PostgresStore) GetFlow(ctx context.Context, flowID string) (*model.Flow, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, business_id, source_urls, status, error, stats, created_at, updated_at
		 FROM flows WHERE id = $1`, flowID)

	flow, err := scanFlow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get flow %s", flowID)
	}
	return flow, nil
}

func (s *PostgresStore) ListFlows(ctx context.Context, filter FlowFilter) ([]model.Flow, error) {
	query := `SELECT id, user_id, business_id, source_urls, status, error, stats, created_at, updated_at FROM flows WHERE 1=1`
	var args []any
	if filter.UserID != 0 {
		args = append(args, filter.UserID)
		query += ` AND user_id = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list flows")
	}
	defer rows.Close()

	var flows []model.Flow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan flow")
		}
		flows = append(flows, *flow)
	}
	return flows, eris.Wrap(rows.Err(), "postgres: list flows")
}

func (s *PostgresStore) AppendLog(ctx context.Context, entry model.LogEntry) error {
	var metadata []byte
	if entry.Metadata != nil {
		var err error
		metadata, err = json.Marshal(entry.Metadata)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal log metadata")
		}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO flow_logs (flow_id, agent, message, metadata, logged_at) VALUES ($1, $2, $3, $4, $5)`,
		entry.FlowID, entry.Agent, entry.Message, metadata, entry.Timestamp.UTC(),
	)
	return eris.Wrap(err, "postgres: insert log")
}

func (s *PostgresStore) GetLogs(ctx context.Context, flowID string) ([]model.LogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT flow_id, agent, message, metadata, logged_at FROM flow_logs WHERE flow_id = $1 ORDER BY id`,
		flowID)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get logs %s", flowID)
	}
	defer rows.Close()

	var entries []model.LogEntry
	for rows.Next() {
		var entry model.LogEntry
		var metadata []byte
		if err := rows.Scan(&entry.FlowID, &entry.Agent, &entry.Message, &metadata, &entry.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan log")
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal log metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: get logs")
}

func (s *PostgresStore) SaveReport(ctx context.Context, report *model.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO flow_reports (flow_id, report, completed_at) VALUES ($1, $2, $3)
		 ON CONFLICT (flow_id) DO UPDATE SET report = EXCLUDED.report, completed_at = EXCLUDED.completed_at`,
		report.FlowID, data, report.CompletedAt.UTC(),
	)
	return eris.Wrap(err, "postgres: save report")
}

func (s *PostgresStore) GetReport(ctx context.Context, flowID string) (*model.Report, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM flow_reports WHERE flow_id = $1`, flowID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get report %s", flowID)
	}
	var report model.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal report")
	}
	return &report, nil
}

func marshalFlowJSON(flow *model.Flow) (urls []byte, stats []byte, err error) {
	urls, err = json.Marshal(flow.SourceURLs)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: marshal source urls")
	}
	stats, err = json.Marshal(flow.Stats)
	if err != nil {
		return nil, nil, eris.Wrap(err, "postgres: marshal stats")
	}
	return urls, stats, nil
}

func scanFlow(row pgx.Row) (*model.Flow, error) {
	var flow model.Flow
	var urls, stats []byte
	var errMsg *string
	err := row.Scan(&flow.ID, &flow.UserID, &flow.BusinessID, &urls, &flow.Status,
		&errMsg, &stats, &flow.CreatedAt, &flow.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if errMsg != nil {
		flow.Error = *errMsg
	}
	if len(urls) > 0 {
		if err := json.Unmarshal(urls, &flow.SourceURLs); err != nil {
			return nil, eris.Wrap(err, "unmarshal source urls")
		}
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &flow.Stats); err != nil {
			return nil, eris.Wrap(err, "unmarshal stats")
		}
	}
	return &flow, nil
}

