// Package publish streams flow progress to observers. Observers poll
// nothing themselves: each subscription gets its own goroutine that
// diffs the flow's log count at a fixed interval and pushes only new
// entries, closing with a final status event once the flow finishes.
package publish

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Blynx-ai/blynx-backend/internal/flow"
	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// Event types sent to observers.
const (
	EventLogs   = "logs"
	EventStatus = "status"
)

// Event is one message pushed to a subscriber.
type Event struct {
	Type   string           `json:"type"`
	FlowID string           `json:"flow_id"`
	Logs   []model.LogEntry `json:"data,omitempty"`
	Status model.FlowStatus `json:"status,omitempty"`
	Error  string           `json:"error,omitempty"`
	Final  bool             `json:"is_final,omitempty"`
}

// Publisher fans flow progress out to subscribers.
type Publisher struct {
	state    *flow.State
	interval time.Duration
}

// NewPublisher creates a Publisher polling at the given interval.
func NewPublisher(state *flow.State, interval time.Duration) *Publisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Publisher{state: state, interval: interval}
}

// subscriberBuffer bounds how far an observer may lag before it is
// dropped.
const subscriberBuffer = 16

// Subscribe starts streaming events for the flow. The returned channel
// closes after the final status event, when ctx is cancelled, or when
// the observer stops draining it. A slow observer is dropped silently;
// the flow itself is never affected.
func (p *Publisher) Subscribe(ctx context.Context, flowID string) (<-chan Event, error) {
	if _, err := p.state.Flow(flowID); err != nil {
		return nil, err
	}

	ch := make(chan Event, subscriberBuffer)
	go p.run(ctx, flowID, ch)
	return ch, nil
}

func (p *Publisher) run(ctx context.Context, flowID string, ch chan<- Event) {
	defer close(ch)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	sent := 0
	for {
		f, err := p.state.Flow(flowID)
		if err != nil {
			return
		}

		if !p.drainLogs(flowID, ch, &sent) {
			zap.L().Debug("publish: dropping slow observer", zap.String("flow_id", flowID))
			return
		}

		if f.Status.Terminal() {
			// The final log entries land right after the status flips;
			// one more drain on the next beat picks them up before the
			// closing status event.
			select {
			case <-ctx.Done():
			case <-ticker.C:
				p.drainLogs(flowID, ch, &sent)
			}
			p.send(ch, Event{
				Type:   EventStatus,
				FlowID: flowID,
				Status: f.Status,
				Error:  f.Error,
				Final:  true,
			})
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// drainLogs sends any log entries the observer has not seen yet. It
// reports false when the observer is no longer keeping up.
func (p *Publisher) drainLogs(flowID string, ch chan<- Event, sent *int) bool {
	logs, err := p.state.Logs(flowID)
	if err != nil {
		return true
	}
	if len(logs) <= *sent {
		return true
	}
	delta := make([]model.LogEntry, len(logs)-*sent)
	copy(delta, logs[*sent:])
	if !p.send(ch, Event{Type: EventLogs, FlowID: flowID, Logs: delta}) {
		return false
	}
	*sent = len(logs)
	return true
}

// send pushes an event without ever blocking the poll loop.
func (p *Publisher) send(ch chan<- Event, ev Event) bool {
	select {
	case ch <- ev:
		return true
	default:
		return false
	}
}
