// Package store persists flows, their logs, and final reports. The flow
// engine holds authoritative state in memory and mirrors it here so that
// history survives restarts.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/Blynx-ai/blynx-backend/internal/config"
	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// ErrNotFound is returned when a flow or report does not exist.
var ErrNotFound = eris.New("store: not found")

// FlowFilter specifies criteria for listing flows.
type FlowFilter struct {
	UserID int64            `json:"user_id,omitempty"`
	Status model.FlowStatus `json:"status,omitempty"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset,omitempty"`
}

// Store defines the persistence interface for the evaluation flow engine.
type Store interface {
	// Flows
	CreateFlow(ctx context.Context, flow *model.Flow) error
	UpdateFlow(ctx context.Context, flow *model.Flow) error
	GetFlow(ctx context.Context, flowID string) (*model.Flow, error)
	ListFlows(ctx context.Context, filter FlowFilter) ([]model.Flow, error)

	// Logs
	AppendLog(ctx context.Context, entry model.LogEntry) error
	GetLogs(ctx context.Context, flowID string) ([]model.LogEntry, error)

	// Reports
	SaveReport(ctx context.Context, report *model.Report) error
	GetReport(ctx context.Context, flowID string) (*model.Report, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store from configuration. The sqlite driver is the
// default; postgres is selected for deployments that already run one.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		dsn := cfg.DatabaseURL
		if dsn == "" {
			dsn = "blynx.db"
		}
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
