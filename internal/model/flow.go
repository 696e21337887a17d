// Package model defines the shared data types for the presence evaluation flow.
package model

import "time"

// FlowStatus is the lifecycle state of an evaluation flow.
type FlowStatus string

const (
	FlowStatusPending   FlowStatus = "pending"
	FlowStatusRunning   FlowStatus = "running"
	FlowStatusCompleted FlowStatus = "completed"
	FlowStatusFailed    FlowStatus = "failed"
	FlowStatusStopped   FlowStatus = "stopped"
)

// Terminal reports whether the status is a final state. Terminal flows are
// immutable: no further status transitions or log appends are accepted.
func (s FlowStatus) Terminal() bool {
	switch s {
	case FlowStatusCompleted, FlowStatusFailed, FlowStatusStopped:
		return true
	}
	return false
}

// Valid reports whether s is a known flow status.
func (s FlowStatus) Valid() bool {
	switch s {
	case FlowStatusPending, FlowStatusRunning, FlowStatusCompleted, FlowStatusFailed, FlowStatusStopped:
		return true
	}
	return false
}

// Flow is one end-to-end evaluation run for a set of source URLs belonging to
// one business.
type Flow struct {
	ID         string     `json:"flow_id"`
	UserID     int64      `json:"user_id"`
	BusinessID int64      `json:"business_id"`
	SourceURLs []string   `json:"source_urls"`
	Status     FlowStatus `json:"status"`
	Error      string     `json:"error,omitempty"`
	Stats      FlowStats  `json:"stats"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// FlowStats tracks ingestion counters for a flow. At the end of ingestion
// Completed+Failed always equals Total.
type FlowStats struct {
	TotalSources     int `json:"total_sources"`
	CompletedSources int `json:"completed_sources"`
	FailedSources    int `json:"failed_sources"`
}

// LogEntry is one append-only progress record emitted during flow execution.
type LogEntry struct {
	FlowID    string    `json:"flow_id"`
	Agent     string    `json:"agent"`
	Message   string    `json:"message"`
	Metadata  Payload   `json:"metadata,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Report is the final result envelope persisted when a flow completes.
type Report struct {
	FlowID          string    `json:"flow_id"`
	SourceURLs      []string  `json:"source_urls"`
	BusinessContext Payload   `json:"business_context"`
	Score           Score     `json:"blynx_score"`
	Feedback        Payload   `json:"feedback"`
	Analysis        Payload   `json:"analysis_details"`
	Stats           FlowStats `json:"stats"`
	CompletedAt     time.Time `json:"timestamp"`
}

// Score is the composite quality score computed from the evaluator outputs.
type Score struct {
	Accuracy       float64 `json:"accuracy_weighted_score"`
	Impact         float64 `json:"impact_weighted_score"`
	Language       float64 `json:"language_weighted_score"`
	Brand          float64 `json:"brand_weighted_score"`
	Reputation     float64 `json:"reputation_weighted_score"`
	RedFlagPenalty float64 `json:"red_flag_penalty"`
	Final          float64 `json:"final_blynx_score"`
	Grade          string  `json:"grade"`
	Breakdown      string  `json:"score_breakdown"`
}
