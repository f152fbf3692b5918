// Package transitions owns document lifecycle status. It is the only code that
// writes the status column of a procurement document.
package transitions

import (
	"fmt"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"
	"procurement-backend/documents/repositories"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Cause is the context recorded in the transition history.
type Cause struct {
	ChainID  *uuid.UUID
	ActorID  *uint
	Metadata map[string]interface{}
}

// Change is one applied status move.
type Change struct {
	Ref     models.DocumentRef    `json:"document"`
	From    models.DocumentStatus `json:"from"`
	To      models.DocumentStatus `json:"to"`
	Trigger models.Trigger        `json:"trigger"`
	ChainID *uuid.UUID            `json:"chain_id,omitempty"`
	At      time.Time             `json:"at"`
}

// ChainCanceller cancels the pending steps of a document's active chain.
type ChainCanceller interface {
	CancelPendingSteps(tx *gorm.DB, ref models.DocumentRef, at time.Time) (int64, error)
}

type Engine struct {
	docs     repositories.DocumentRepository
	chains   ChainCanceller
	graphs   Graphs
	logger   *zap.Logger
	clock    func() time.Time
	maxDepth int
}

func NewEngine(docs repositories.DocumentRepository, chains ChainCanceller, graphs Graphs, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		docs:     docs,
		chains:   chains,
		graphs:   graphs,
		logger:   logger,
		clock:    time.Now,
		maxDepth: 4,
	}
}

func (e *Engine) Graphs() Graphs {
	return e.graphs
}

// Advance applies trigger to the document and fails with a TransitionError when
// the lifecycle has no such edge. The document row is locked for the rest of tx.
func (e *Engine) Advance(tx *gorm.DB, ref models.DocumentRef, trigger models.Trigger, cause Cause) ([]Change, error) {
	head, err := e.docs.LockHead(tx, ref)
	if err != nil {
		return nil, err
	}
	return e.apply(tx, head, trigger, cause, true, 0)
}

// Signal offers trigger to the document and quietly skips it when the current
// status does not accept it.
func (e *Engine) Signal(tx *gorm.DB, ref models.DocumentRef, trigger models.Trigger, cause Cause) ([]Change, error) {
	head, err := e.docs.LockHead(tx, ref)
	if err != nil {
		return nil, err
	}
	return e.apply(tx, head, trigger, cause, false, 0)
}

func (e *Engine) apply(tx *gorm.DB, head *repositories.DocumentHead, trigger models.Trigger, cause Cause, strict bool, depth int) ([]Change, error) {
	g, err := e.graphs.For(head.Ref.Type)
	if err != nil {
		return nil, err
	}

	edge, ok := g.Next(head.Status, trigger)
	if !ok {
		if strict {
			return nil, &apperrors.TransitionError{Ref: head.Ref, From: head.Status, Trigger: trigger}
		}
		e.logger.Debug("signal ignored",
			zap.String("document", head.Ref.String()),
			zap.String("status", string(head.Status)),
			zap.String("trigger", string(trigger)))
		return nil, nil
	}

	now := e.clock()
	if err := e.writeStatus(tx, head, edge, now); err != nil {
		return nil, err
	}

	history := models.StatusTransition{
		DocumentType: head.Ref.Type,
		DocumentID:   head.Ref.ID,
		FromStatus:   head.Status,
		ToStatus:     edge.To,
		Trigger:      trigger,
		ChainID:      cause.ChainID,
		ActorID:      cause.ActorID,
		Metadata:     datatypes.JSONMap(cause.Metadata),
		CreatedAt:    now,
	}
	if err := tx.Create(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to record transition for %s: %w", head.Ref, err)
	}

	changes := []Change{{
		Ref:     head.Ref,
		From:    head.Status,
		To:      edge.To,
		Trigger: trigger,
		ChainID: cause.ChainID,
		At:      now,
	}}

	if trigger == models.TriggerCancel && e.chains != nil {
		if _, err := e.chains.CancelPendingSteps(tx, head.Ref, now); err != nil {
			return nil, err
		}
	}

	entered := &repositories.DocumentHead{Ref: head.Ref, Status: edge.To, ParentID: head.ParentID}
	cascaded, err := e.cascade(tx, entered, cause, depth)
	if err != nil {
		return nil, err
	}
	return append(changes, cascaded...), nil
}

func (e *Engine) writeStatus(tx *gorm.DB, head *repositories.DocumentHead, edge Edge, now time.Time) error {
	k, err := repositories.KindOf(head.Ref.Type)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"status":     edge.To,
		"updated_at": now,
	}
	if edge.Stamp != "" {
		updates[edge.Stamp] = now
	}

	result := tx.Table(k.Table).
		Where("id = ? AND status = ?", head.Ref.ID, head.Status).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update status of %s: %w", head.Ref, result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("%w: status of %s changed concurrently", apperrors.ErrTransient, head.Ref)
	}
	return nil
}

// cascade offers the parent any trigger a cascade rule attaches to the status
// the child just entered.
func (e *Engine) cascade(tx *gorm.DB, child *repositories.DocumentHead, cause Cause, depth int) ([]Change, error) {
	rules := cascadesFor(child.Ref.Type, child.Status)
	if len(rules) == 0 {
		return nil, nil
	}
	parent, ok := child.Parent()
	if !ok {
		return nil, nil
	}
	if depth >= e.maxDepth {
		return nil, fmt.Errorf("cascade from %s exceeded depth %d", child.Ref, e.maxDepth)
	}

	var out []Change
	for _, rule := range rules {
		if rule.AllSiblings {
			statuses, err := e.docs.ChildStatuses(tx, parent, child.Ref.Type)
			if err != nil {
				return nil, err
			}
			if !allIn(statuses, rule.Status) {
				continue
			}
		}

		head, err := e.docs.LockHead(tx, parent)
		if err != nil {
			return nil, err
		}
		parentCause := Cause{
			ChainID: cause.ChainID,
			ActorID: cause.ActorID,
			Metadata: map[string]interface{}{
				"cascadeFrom": child.Ref.String(),
				"childStatus": string(child.Status),
			},
		}
		changes, err := e.apply(tx, head, rule.Trigger, parentCause, false, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, changes...)
	}
	return out, nil
}

func allIn(statuses []models.DocumentStatus, want models.DocumentStatus) bool {
	if len(statuses) == 0 {
		return false
	}
	for _, s := range statuses {
		if s != want {
			return false
		}
	}
	return true
}
