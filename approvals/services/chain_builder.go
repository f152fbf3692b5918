package services

import (
	"context"
	"fmt"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/approvals/repositories"
	"procurement-backend/db/models"
	document_repositories "procurement-backend/documents/repositories"
	"procurement-backend/transitions"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ApproverDirectory resolves approver ids against the user store.
type ApproverDirectory interface {
	UnknownApprovers(ctx context.Context, ids []uint) ([]uint, error)
}

// StatusEngine is the part of the status transition engine the approval
// services drive.
type StatusEngine interface {
	Advance(tx *gorm.DB, ref models.DocumentRef, trigger models.Trigger, cause transitions.Cause) ([]transitions.Change, error)
	Signal(tx *gorm.DB, ref models.DocumentRef, trigger models.Trigger, cause transitions.Cause) ([]transitions.Change, error)
	Graphs() transitions.Graphs
}

// BuildResult is returned when a new chain is created.
type BuildResult struct {
	Chain   *Chain               `json:"chain"`
	Changes []transitions.Change `json:"changes"`
}

type ChainBuilder struct {
	routing      repositories.ApprovalRoutingRepository
	docs         document_repositories.DocumentRepository
	status       StatusEngine
	directory    ApproverDirectory
	maxApprovers int
	logger       *zap.Logger
	clock        func() time.Time
}

func NewChainBuilder(
	routing repositories.ApprovalRoutingRepository,
	docs document_repositories.DocumentRepository,
	status StatusEngine,
	directory ApproverDirectory,
	maxApprovers int,
	logger *zap.Logger,
) *ChainBuilder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChainBuilder{
		routing:      routing,
		docs:         docs,
		status:       status,
		directory:    directory,
		maxApprovers: maxApprovers,
		logger:       logger,
		clock:        time.Now,
	}
}

// ValidateApprovers checks the approver list on its own: non-empty, within the
// configured maximum, no zero ids and no repeats.
func (b *ChainBuilder) ValidateApprovers(approverIDs []uint) error {
	if len(approverIDs) == 0 {
		return fmt.Errorf("%w: at least one approver is required", apperrors.ErrInvalidChain)
	}
	if len(approverIDs) > b.maxApprovers {
		return fmt.Errorf("%w: %d approvers exceeds the maximum of %d", apperrors.ErrInvalidChain, len(approverIDs), b.maxApprovers)
	}
	seen := make(map[uint]bool, len(approverIDs))
	for i, id := range approverIDs {
		if id == 0 {
			return fmt.Errorf("%w: approver at position %d is empty", apperrors.ErrInvalidApprover, i+1)
		}
		if seen[id] {
			return fmt.Errorf("%w: approver %d appears more than once", apperrors.ErrInvalidApprover, id)
		}
		seen[id] = true
	}
	return nil
}

// CheckApprovers runs ValidateApprovers and, when a directory is configured,
// rejects ids it does not know. It reads outside the document transaction.
func (b *ChainBuilder) CheckApprovers(ctx context.Context, approverIDs []uint) error {
	if err := b.ValidateApprovers(approverIDs); err != nil {
		return err
	}
	if b.directory == nil {
		return nil
	}
	unknown, err := b.directory.UnknownApprovers(ctx, approverIDs)
	if err != nil {
		return fmt.Errorf("failed to resolve approvers: %w", err)
	}
	if len(unknown) > 0 {
		return fmt.Errorf("%w: unknown approvers %v", apperrors.ErrInvalidApprover, unknown)
	}
	return nil
}

// BuildChain creates a new generation of PENDING steps, one per approver in the
// given order, and emits CHAIN_CREATED to the document's lifecycle.
func (b *ChainBuilder) BuildChain(tx *gorm.DB, ref models.DocumentRef, approverIDs []uint, initiatorID uint) (*BuildResult, error) {
	kind, err := document_repositories.KindOf(ref.Type)
	if err != nil {
		return nil, err
	}
	if !kind.Approvable {
		return nil, fmt.Errorf("%w: %s documents are not routed for approval", apperrors.ErrNotApprovable, ref.Type)
	}
	if err := b.ValidateApprovers(approverIDs); err != nil {
		return nil, err
	}

	head, err := b.docs.LockHead(tx, ref)
	if err != nil {
		return nil, err
	}

	pending, err := b.routing.HasPendingStep(tx, ref)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrDuplicateChain, ref)
	}

	graph, err := b.status.Graphs().For(ref.Type)
	if err != nil {
		return nil, err
	}
	if !graph.CanBuildChain(head.Status) {
		return nil, fmt.Errorf("%w: %s is %s", apperrors.ErrNotApprovable, ref, head.Status)
	}

	gen, err := b.routing.LatestGeneration(tx, ref)
	if err != nil {
		return nil, err
	}

	chainID := uuid.New()
	now := b.clock()
	steps := make([]models.ApprovalRouting, len(approverIDs))
	for i, approverID := range approverIDs {
		steps[i] = models.ApprovalRouting{
			ChainID:      chainID,
			DocumentType: ref.Type,
			DocumentID:   ref.ID,
			Generation:   gen + 1,
			Sequence:     i + 1,
			ApproverID:   approverID,
			RoutedBy:     initiatorID,
			Status:       models.ApprovalPending,
			RoutedAt:     now,
		}
	}
	if err := b.routing.CreateSteps(tx, steps); err != nil {
		return nil, err
	}

	chain, err := NewChain(steps)
	if err != nil {
		return nil, err
	}

	changes, err := b.status.Signal(tx, ref, models.TriggerChainCreated, transitions.Cause{
		ChainID: &chainID,
		ActorID: &initiatorID,
		Metadata: map[string]interface{}{
			"generation": gen + 1,
			"approvers":  len(approverIDs),
		},
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("approval chain created",
		zap.String("document", ref.String()),
		zap.String("chainID", chainID.String()),
		zap.Int("generation", gen+1),
		zap.Int("steps", len(steps)))

	return &BuildResult{Chain: chain, Changes: changes}, nil
}

// WithdrawChain lets the initiator cancel a running chain. Pending steps become
// CANCELLED and CHAIN_WITHDRAWN is offered to the document's lifecycle.
func (b *ChainBuilder) WithdrawChain(tx *gorm.DB, ref models.DocumentRef, initiatorID uint, reason string) (*BuildResult, error) {
	if _, err := b.docs.LockHead(tx, ref); err != nil {
		return nil, err
	}

	steps, err := b.routing.LatestChain(tx, ref)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no approval chain", apperrors.ErrNoPendingStep, ref)
	}
	chain, err := NewChain(steps)
	if err != nil {
		return nil, err
	}
	if !chain.IsActive() {
		return nil, fmt.Errorf("%w: %s chain is %s", apperrors.ErrNoPendingStep, ref, chain.Outcome())
	}
	if chain.Steps[0].RoutedBy != initiatorID {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotInitiator, ref)
	}

	now := b.clock()
	for _, step := range chain.Withdraw(now) {
		if err := b.routing.ResolveStep(tx, step); err != nil {
			return nil, err
		}
	}

	metadata := map[string]interface{}{"generation": chain.Generation}
	if reason != "" {
		metadata["reason"] = reason
	}
	changes, err := b.status.Signal(tx, ref, models.TriggerChainWithdrawn, transitions.Cause{
		ChainID:  &chain.ID,
		ActorID:  &initiatorID,
		Metadata: metadata,
	})
	if err != nil {
		return nil, err
	}

	b.logger.Info("approval chain withdrawn",
		zap.String("document", ref.String()),
		zap.String("chainID", chain.ID.String()))

	return &BuildResult{Chain: chain, Changes: changes}, nil
}
