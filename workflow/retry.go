package workflow

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"
	"procurement-backend/events"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Postgres SQLSTATEs that mean "try the whole transaction again".
var transientSQLStates = map[string]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
}

// IsTransient classifies persistence failures that a retry can fix.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, apperrors.ErrTransient) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return transientSQLStates[pgErr.Code]
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

// txFunc runs inside the guarded transaction and returns the events to publish
// once it commits.
type txFunc func(tx *gorm.DB) ([]events.Event, error)

// mutate runs fn under the document guard in one transaction, retrying the
// whole unit on transient failures.
func (e *Engine) mutate(ctx context.Context, ref models.DocumentRef, op string, fn txFunc) error {
	attempts := e.cfg.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		evts, err := e.runOnce(ctx, ref, fn)
		if err == nil {
			e.publish(ctx, evts)
			return nil
		}
		if !IsTransient(err) {
			return err
		}
		lastErr = err

		e.logger.Warn("transient failure, retrying",
			zap.String("operation", op),
			zap.String("document", ref.String()),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < attempts {
			if err := e.wait(ctx, time.Duration(attempt)*e.cfg.RetryDelay); err != nil {
				break
			}
		}
	}

	if errors.Is(lastErr, apperrors.ErrTransient) {
		return fmt.Errorf("%s %s: giving up after %d attempts: %w", op, ref, attempts, lastErr)
	}
	return fmt.Errorf("%w: %s %s: giving up after %d attempts: %w", apperrors.ErrTransient, op, ref, attempts, lastErr)
}

func (e *Engine) runOnce(ctx context.Context, ref models.DocumentRef, fn txFunc) ([]events.Event, error) {
	unlock, err := e.guard.Lock(ctx, ref)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var evts []events.Event
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		evts, txErr = fn(tx)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return evts, nil
}

func (e *Engine) wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Engine) publish(ctx context.Context, evts []events.Event) {
	for _, evt := range evts {
		if err := e.publisher.Publish(ctx, evt); err != nil {
			e.logger.Error("failed to publish workflow event",
				zap.String("type", evt.Type),
				zap.String("document", evt.Document.String()),
				zap.Error(err))
		}
	}
}
