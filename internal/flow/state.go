package flow

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/model"
	"github.com/Blynx-ai/blynx-backend/internal/store"
)

// flowRecord is the authoritative in-memory state of one flow.
type flowRecord struct {
	flow   model.Flow
	logs   []model.LogEntry
	report *model.Report
	stop   bool
}

// State tracks every flow the process has seen, enforces the single
// active flow per user rule, and mirrors changes to the store. The
// in-memory copy is authoritative; persistence is best effort and never
// blocks the engine for longer than the configured timeout.
type State struct {
	mu     sync.Mutex
	flows  map[string]*flowRecord
	active map[int64]string

	store          store.Store
	persistTimeout time.Duration
}

// NewState creates a State. The store may be nil, in which case flows
// live only in memory.
func NewState(st store.Store, persistTimeout time.Duration) *State {
	if persistTimeout <= 0 {
		persistTimeout = 3 * time.Second
	}
	return &State{
		flows:          make(map[string]*flowRecord),
		active:         make(map[int64]string),
		store:          st,
		persistTimeout: persistTimeout,
	}
}

// Create registers a new flow and claims the user's active slot. It
// fails with ErrActiveFlow when the user already has a flow in a
// non-terminal state.
func (s *State) Create(flow model.Flow) error {
	s.mu.Lock()
	if existing, ok := s.active[flow.UserID]; ok {
		s.mu.Unlock()
		return eris.Wrapf(ErrActiveFlow, "flow %s", existing)
	}
	s.active[flow.UserID] = flow.ID
	s.flows[flow.ID] = &flowRecord{flow: flow}
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error {
		return s.store.CreateFlow(ctx, &flow)
	})
	return nil
}

// ReleaseSlot frees the user's active slot if it is still held by the
// given flow. Safe to call multiple times.
func (s *State) ReleaseSlot(userID int64, flowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active[userID] == flowID {
		delete(s.active, userID)
	}
}

// SetStatus transitions a flow to a new status. Terminal statuses are
// immutable: a transition attempt on a finished flow is ignored and
// reported via the return value, since the engine races its own stop
// handling at phase boundaries.
func (s *State) SetStatus(flowID string, status model.FlowStatus, errMsg string) bool {
	s.mu.Lock()
	rec, ok := s.flows[flowID]
	if !ok || rec.flow.Status.Terminal() {
		s.mu.Unlock()
		return false
	}
	rec.flow.Status = status
	rec.flow.Error = errMsg
	rec.flow.UpdatedAt = time.Now().UTC()
	flow := rec.flow
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error {
		return s.store.UpdateFlow(ctx, &flow)
	})
	return true
}

// SetStats replaces the flow's ingestion counters.
func (s *State) SetStats(flowID string, stats model.FlowStats) {
	s.mu.Lock()
	rec, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.flow.Stats = stats
	rec.flow.UpdatedAt = time.Now().UTC()
	flow := rec.flow
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error {
		return s.store.UpdateFlow(ctx, &flow)
	})
}

// AppendLog records a progress log entry for the flow.
func (s *State) AppendLog(flowID, agent, message string, metadata model.Payload) {
	entry := model.LogEntry{
		FlowID:    flowID,
		Agent:     agent,
		Message:   message,
		Metadata:  metadata,
		Timestamp: time.Now().UTC(),
	}

	s.mu.Lock()
	rec, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.logs = append(rec.logs, entry)
	s.mu.Unlock()

	zap.L().Info("flow log",
		zap.String("flow_id", flowID),
		zap.String("agent", agent),
		zap.String("message", message))

	s.persist(func(ctx context.Context) error {
		return s.store.AppendLog(ctx, entry)
	})
}

// RequestStop marks the flow STOPPED and raises its stop flag. The
// running phase sequence observes the flag at the next phase boundary
// and exits without touching the status again. Only the flow's owner
// may stop it.
func (s *State) RequestStop(flowID string, userID int64) error {
	s.mu.Lock()
	rec, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return eris.Wrapf(ErrNotFound, "flow %s", flowID)
	}
	if rec.flow.UserID != userID {
		s.mu.Unlock()
		return eris.Wrapf(ErrNotOwner, "flow %s", flowID)
	}
	if rec.flow.Status.Terminal() {
		s.mu.Unlock()
		return eris.Wrapf(ErrTerminal, "flow %s is %s", flowID, rec.flow.Status)
	}
	rec.stop = true
	rec.flow.Status = model.FlowStatusStopped
	rec.flow.UpdatedAt = time.Now().UTC()
	flow := rec.flow
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error {
		return s.store.UpdateFlow(ctx, &flow)
	})
	return nil
}

// StopRequested reports whether a stop has been requested for the flow.
func (s *State) StopRequested(flowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows[flowID]
	return ok && rec.stop
}

// Flow returns a snapshot of the flow.
func (s *State) Flow(flowID string) (model.Flow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows[flowID]
	if !ok {
		return model.Flow{}, eris.Wrapf(ErrNotFound, "flow %s", flowID)
	}
	return rec.flow, nil
}

// Logs returns a copy of the flow's log entries.
func (s *State) Logs(flowID string) ([]model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows[flowID]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "flow %s", flowID)
	}
	logs := make([]model.LogEntry, len(rec.logs))
	copy(logs, rec.logs)
	return logs, nil
}

// SetReport stores the final report for a completed flow.
func (s *State) SetReport(flowID string, report *model.Report) {
	s.mu.Lock()
	rec, ok := s.flows[flowID]
	if !ok {
		s.mu.Unlock()
		return
	}
	rec.report = report
	s.mu.Unlock()

	s.persist(func(ctx context.Context) error {
		return s.store.SaveReport(ctx, report)
	})
}

// Report returns the final report. ErrNoResult distinguishes a known
// flow without a result from an unknown flow.
func (s *State) Report(flowID string) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.flows[flowID]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "flow %s", flowID)
	}
	if rec.report == nil {
		return nil, eris.Wrapf(ErrNoResult, "flow %s is %s", flowID, rec.flow.Status)
	}
	return rec.report, nil
}

// persist runs a store mirror write with a bounded timeout. Failures
// are logged and dropped: readers are served from memory.
func (s *State) persist(fn func(ctx context.Context) error) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.persistTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		zap.L().Warn("flow: persist failed", zap.Error(err))
	}
}
