package flow

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Blynx-ai/blynx-backend/internal/model"
)

// Task is one unit of fan-out work. Name labels the result slot.
type Task struct {
	Name string
	Run  func(ctx context.Context) (model.Payload, error)
}

// Gather runs all tasks concurrently and returns one payload per task,
// in task order. A task that errors or panics degrades its own slot to
// an error payload; other slots are unaffected and Gather itself never
// fails.
func Gather(ctx context.Context, tasks []Task) []model.Payload {
	results := make([]model.Payload, len(tasks))

	g, gCtx := errgroup.WithContext(ctx)
	for i, task := range tasks {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("flow: task panicked",
						zap.String("task", task.Name),
						zap.Any("panic", r))
					results[i] = model.ErrorPayload(fmt.Errorf("task %s panicked: %v", task.Name, r))
				}
			}()

			out, err := task.Run(gCtx)
			if err != nil {
				zap.L().Warn("flow: task degraded",
					zap.String("task", task.Name),
					zap.Error(err))
				results[i] = model.ErrorPayload(err)
				return nil
			}
			if out == nil {
				out = model.Payload{}
			}
			results[i] = out
			return nil
		})
	}
	_ = g.Wait()

	return results
}
