package services

import (
	"fmt"
	"strings"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"

	"github.com/google/uuid"
)

// Chain is one generation of a document's approval steps. Its state is the
// index of the lowest pending step plus the derived outcome; every decision is
// validated against that state before any step is touched.
type Chain struct {
	ID         uuid.UUID
	Ref        models.DocumentRef
	Generation int
	Steps      []models.ApprovalRouting
}

// NewChain wraps steps loaded for one generation. Steps must be ordered by
// sequence and numbered 1..N.
func NewChain(steps []models.ApprovalRouting) (*Chain, error) {
	if len(steps) == 0 {
		return nil, apperrors.ErrNoPendingStep
	}
	first := steps[0]
	for i, s := range steps {
		if s.Sequence != i+1 {
			return nil, fmt.Errorf("%w: %s step %d has sequence %d", apperrors.ErrInvalidChain, first.Ref(), i+1, s.Sequence)
		}
		if s.ChainID != first.ChainID || s.Generation != first.Generation || s.Ref() != first.Ref() {
			return nil, fmt.Errorf("%w: %s steps span more than one chain", apperrors.ErrInvalidChain, first.Ref())
		}
	}
	return &Chain{
		ID:         first.ChainID,
		Ref:        first.Ref(),
		Generation: first.Generation,
		Steps:      steps,
	}, nil
}

// Cursor is the index of the current step, or -1 when nothing is pending.
func (c *Chain) Cursor() int {
	for i := range c.Steps {
		if c.Steps[i].Status == models.ApprovalPending {
			return i
		}
	}
	return -1
}

// Current returns the only step that may be decided.
func (c *Chain) Current() (*models.ApprovalRouting, bool) {
	i := c.Cursor()
	if i < 0 {
		return nil, false
	}
	return &c.Steps[i], true
}

func (c *Chain) Outcome() models.ChainOutcome {
	approved := 0
	cancelled := false
	for _, s := range c.Steps {
		switch s.Status {
		case models.ApprovalRejected:
			return models.OutcomeRejected
		case models.ApprovalApproved:
			approved++
		case models.ApprovalCancelled:
			cancelled = true
		}
	}
	if approved == len(c.Steps) {
		return models.OutcomeApproved
	}
	if cancelled {
		return models.OutcomeCancelled
	}
	return models.OutcomeInProgress
}

// IsActive reports whether the chain still has a pending step.
func (c *Chain) IsActive() bool {
	return c.Cursor() >= 0
}

func (c *Chain) stepFor(approverID uint) (*models.ApprovalRouting, bool) {
	for i := range c.Steps {
		if c.Steps[i].ApproverID == approverID {
			return &c.Steps[i], true
		}
	}
	return nil, false
}

// DecisionInput is an approver's action on the current step.
type DecisionInput struct {
	ApproverID      uint
	Decision        models.Decision
	Comments        string
	RejectionReason string
	At              time.Time
}

// Check validates in against the chain without changing it.
func (c *Chain) Check(in DecisionInput) (*models.ApprovalRouting, error) {
	if in.ApproverID == 0 {
		return nil, fmt.Errorf("%w: approver id is required", apperrors.ErrInvalidApprover)
	}
	if in.Decision != models.DecisionApprove && in.Decision != models.DecisionReject {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrInvalidDecision, in.Decision)
	}

	current, ok := c.Current()
	if !ok {
		if _, mine := c.stepFor(in.ApproverID); mine {
			return nil, fmt.Errorf("%w: %s chain is %s", apperrors.ErrStepAlreadyResolved, c.Ref, c.Outcome())
		}
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNoPendingStep, c.Ref)
	}

	if current.ApproverID != in.ApproverID {
		own, mine := c.stepFor(in.ApproverID)
		if mine && own.Status.IsResolved() {
			return nil, fmt.Errorf("%w: step %d of %s is %s", apperrors.ErrStepAlreadyResolved, own.Sequence, c.Ref, own.Status)
		}
		return nil, fmt.Errorf("%w: step %d of %s belongs to approver %d", apperrors.ErrWrongApprover, current.Sequence, c.Ref, current.ApproverID)
	}

	if in.Decision == models.DecisionReject && strings.TrimSpace(in.RejectionReason) == "" {
		return nil, apperrors.ErrRejectionReasonRequired
	}
	return current, nil
}

// Apply records in on the current step. A rejection cancels every later pending
// step. The returned steps are the rows that changed, in sequence order.
func (c *Chain) Apply(in DecisionInput) ([]*models.ApprovalRouting, error) {
	current, err := c.Check(in)
	if err != nil {
		return nil, err
	}

	at := in.At
	if at.IsZero() {
		at = time.Now()
	}
	if in.Comments != "" {
		comments := in.Comments
		current.Comments = &comments
	}

	changed := []*models.ApprovalRouting{current}
	switch in.Decision {
	case models.DecisionApprove:
		current.Status = models.ApprovalApproved
		current.ApprovedAt = &at
	case models.DecisionReject:
		reason := strings.TrimSpace(in.RejectionReason)
		current.Status = models.ApprovalRejected
		current.RejectedAt = &at
		current.RejectionReason = &reason
		changed = append(changed, c.cancelPending(at)...)
	}
	return changed, nil
}

// Withdraw cancels every pending step.
func (c *Chain) Withdraw(at time.Time) []*models.ApprovalRouting {
	return c.cancelPending(at)
}

func (c *Chain) cancelPending(at time.Time) []*models.ApprovalRouting {
	var changed []*models.ApprovalRouting
	for i := range c.Steps {
		if c.Steps[i].Status != models.ApprovalPending {
			continue
		}
		c.Steps[i].Status = models.ApprovalCancelled
		c.Steps[i].CancelledAt = &at
		changed = append(changed, &c.Steps[i])
	}
	return changed
}
