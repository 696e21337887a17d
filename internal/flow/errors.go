// Package flow implements the evaluation flow engine: per-flow state,
// stop signals, and the six-phase orchestration that turns a business
// profile into a scored report.
package flow

import "github.com/rotisserie/eris"

var (
	// ErrNotFound is returned when a flow ID is unknown.
	ErrNotFound = eris.New("flow: not found")
	// ErrActiveFlow is returned when a user already has a flow in a
	// non-terminal state.
	ErrActiveFlow = eris.New("flow: user already has an active flow")
	// ErrNotOwner is returned when a user attempts to control a flow
	// they did not start.
	ErrNotOwner = eris.New("flow: not owned by user")
	// ErrTerminal is returned when an operation requires a live flow
	// but the flow has already reached a terminal status.
	ErrTerminal = eris.New("flow: already in a terminal state")
	// ErrNoResult is returned when a result is requested for a flow
	// that has not completed.
	ErrNoResult = eris.New("flow: result not available")
)
