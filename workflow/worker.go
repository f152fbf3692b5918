package workflow

import (
	"context"
	"fmt"

	"procurement-backend/apperrors"
	"procurement-backend/events"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// HandleAdvanceTask applies a stage-completion signal delivered through asynq.
// Only transient failures are handed back to asynq for retry.
func (e *Engine) HandleAdvanceTask(ctx context.Context, t *asynq.Task) error {
	p, err := events.ParseAdvancePayload(t)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	status, err := e.Advance(ctx, p.DocumentType, p.DocumentID, p.Trigger, p.ActorID)
	if err != nil {
		if apperrors.IsRetryable(err) {
			return err
		}
		e.logger.Warn("advance task rejected",
			zap.String("document", p.Ref().String()),
			zap.String("trigger", string(p.Trigger)),
			zap.Error(err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	e.logger.Info("advance task applied",
		zap.String("document", p.Ref().String()),
		zap.String("trigger", string(p.Trigger)),
		zap.String("status", string(status)))
	return nil
}

// RegisterHandlers mounts the workflow task handlers on mux.
func (e *Engine) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(events.TypeAdvance, e.HandleAdvanceTask)
}
