// Package workflow is the entry point to approval routing and document
// lifecycle management. Every mutating call holds the document's guard, runs in
// a single transaction, and publishes events only after commit.
package workflow

import (
	"context"
	"fmt"
	"time"

	"procurement-backend/apperrors"
	approval_repositories "procurement-backend/approvals/repositories"
	approval_services "procurement-backend/approvals/services"
	"procurement-backend/config"
	"procurement-backend/db/models"
	document_repositories "procurement-backend/documents/repositories"
	document_services "procurement-backend/documents/services"
	"procurement-backend/events"
	"procurement-backend/guard"
	"procurement-backend/transitions"
	"procurement-backend/utils/pagination"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Options struct {
	Config    config.WorkflowConfig
	Guard     guard.Guard
	Publisher events.Publisher
	Directory approval_services.ApproverDirectory
	Graphs    transitions.Graphs
	Logger    *zap.Logger
}

type Engine struct {
	db        *gorm.DB
	cfg       config.WorkflowConfig
	guard     guard.Guard
	publisher events.Publisher
	logger    *zap.Logger

	docs      document_repositories.DocumentRepository
	routing   approval_repositories.ApprovalRoutingRepository
	status    *transitions.Engine
	builder   *approval_services.ChainBuilder
	decisions *approval_services.DecisionProcessor
	registry  *document_services.RegistryService
}

// NewEngine wires the repositories and services behind the workflow API.
// Zero-valued options fall back to an in-process guard, a no-op publisher and
// the default reject policy.
func NewEngine(db *gorm.DB, opts Options) *Engine {
	cfg := opts.Config
	if cfg.MaxApprovers == 0 {
		cfg = config.DefaultWorkflowConfig()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	g := opts.Guard
	if g == nil {
		g = guard.NewLocal()
	}
	publisher := opts.Publisher
	if publisher == nil {
		publisher = events.Nop{}
	}
	graphs := opts.Graphs
	if graphs == nil {
		graphs = transitions.MustDefaultGraphs()
	}

	docs := document_repositories.NewDocumentRepository(db)
	routing := approval_repositories.NewApprovalRoutingRepository(db)
	status := transitions.NewEngine(docs, routing, graphs, logger.Named("transitions"))

	return &Engine{
		db:        db,
		cfg:       cfg,
		guard:     g,
		publisher: publisher,
		logger:    logger,
		docs:      docs,
		routing:   routing,
		status:    status,
		builder:   approval_services.NewChainBuilder(routing, docs, status, opts.Directory, cfg.MaxApprovers, logger.Named("approvals")),
		decisions: approval_services.NewDecisionProcessor(routing, docs, status, logger.Named("approvals")),
		registry:  document_services.NewRegistryService(docs, document_services.NewNumberingService(docs), graphs, status, logger.Named("documents")),
	}
}

func ref(docType models.DocumentType, docID uint) (models.DocumentRef, error) {
	if !docType.IsValid() {
		return models.DocumentRef{}, fmt.Errorf("unknown document type %q", docType)
	}
	return models.DocumentRef{Type: docType, ID: docID}, nil
}

// BuildChain creates an ordered approval chain for the document and returns its id.
func (e *Engine) BuildChain(ctx context.Context, docType models.DocumentType, docID uint, approverIDs []uint, initiatorID uint) (uuid.UUID, error) {
	r, err := ref(docType, docID)
	if err != nil {
		return uuid.Nil, err
	}
	// Input errors never need the lock or a retry.
	if err := e.builder.CheckApprovers(ctx, approverIDs); err != nil {
		return uuid.Nil, err
	}

	var chainID uuid.UUID
	err = e.mutate(ctx, r, "build chain", func(tx *gorm.DB) ([]events.Event, error) {
		res, err := e.builder.BuildChain(tx, r, approverIDs, initiatorID)
		if err != nil {
			return nil, err
		}
		chainID = res.Chain.ID
		first := res.Chain.Steps[0]
		evts := []events.Event{{
			Type:       events.TypeChainCreated,
			Document:   r,
			ChainID:    &chainID,
			ActorID:    &initiatorID,
			NextID:     first.ApproverID,
			Sequence:   first.Sequence,
			Outcome:    models.OutcomeInProgress,
			OccurredAt: first.RoutedAt,
		}}
		return append(evts, events.StatusChanged(res.Changes, &initiatorID)...), nil
	})
	if err != nil {
		return uuid.Nil, err
	}
	return chainID, nil
}

// Decide records an approver's decision on the current step and returns the
// chain outcome afterwards.
func (e *Engine) Decide(
	ctx context.Context,
	docType models.DocumentType,
	docID uint,
	approverID uint,
	decision models.Decision,
	comments string,
	rejectionReason string,
) (models.ChainOutcome, error) {
	r, err := ref(docType, docID)
	if err != nil {
		return "", err
	}

	var outcome models.ChainOutcome
	err = e.mutate(ctx, r, "decide", func(tx *gorm.DB) ([]events.Event, error) {
		res, err := e.decisions.Decide(tx, r, decisionInput(approverID, decision, comments, rejectionReason))
		if err != nil {
			return nil, err
		}
		outcome = res.Outcome

		step := res.Step
		at := time.Now()
		if step.ApprovedAt != nil {
			at = *step.ApprovedAt
		} else if step.RejectedAt != nil {
			at = *step.RejectedAt
		}
		decided := events.Event{
			Type:       events.TypeStepDecided,
			Document:   r,
			ChainID:    &res.Chain.ID,
			ActorID:    &approverID,
			ApproverID: approverID,
			Sequence:   step.Sequence,
			Decision:   decision,
			Outcome:    res.Outcome,
			OccurredAt: at,
		}
		if next, ok := res.Chain.Current(); ok {
			decided.NextID = next.ApproverID
		}
		evts := []events.Event{decided}
		if res.Outcome != models.OutcomeInProgress {
			evts = append(evts, events.Event{
				Type:       events.TypeChainResolved,
				Document:   r,
				ChainID:    &res.Chain.ID,
				ActorID:    &approverID,
				Outcome:    res.Outcome,
				OccurredAt: at,
			})
		}
		return append(evts, events.StatusChanged(res.Changes, &approverID)...), nil
	})
	if err != nil {
		return "", err
	}
	return outcome, nil
}

func decisionInput(approverID uint, decision models.Decision, comments, reason string) approval_services.DecisionInput {
	return approval_services.DecisionInput{
		ApproverID:      approverID,
		Decision:        decision,
		Comments:        comments,
		RejectionReason: reason,
	}
}

// Advance applies an external stage-completion trigger. actorID may be zero for
// system triggers. CHAIN_* triggers are refused here; Decide and BuildChain
// raise them.
func (e *Engine) Advance(ctx context.Context, docType models.DocumentType, docID uint, trigger models.Trigger, actorID uint) (models.DocumentStatus, error) {
	r, err := ref(docType, docID)
	if err != nil {
		return "", err
	}

	var newStatus models.DocumentStatus
	err = e.mutate(ctx, r, "advance", func(tx *gorm.DB) ([]events.Event, error) {
		if err := e.checkExternalTrigger(tx, r, trigger); err != nil {
			return nil, err
		}
		cause := transitions.Cause{}
		if actorID != 0 {
			cause.ActorID = &actorID
		}
		changes, err := e.status.Advance(tx, r, trigger, cause)
		if err != nil {
			return nil, err
		}
		newStatus = changes[0].To
		return events.StatusChanged(changes, cause.ActorID), nil
	})
	if err != nil {
		return "", err
	}
	return newStatus, nil
}

// checkExternalTrigger keeps outside callers off the edges owned by approval
// chains. While a chain is pending only CANCEL may move the document.
func (e *Engine) checkExternalTrigger(tx *gorm.DB, r models.DocumentRef, trigger models.Trigger) error {
	head, err := e.docs.LockHead(tx, r)
	if err != nil {
		return err
	}
	if trigger.IsChainTrigger() {
		return &apperrors.TransitionError{Ref: r, From: head.Status, Trigger: trigger, Reason: "raised only by approval chain resolution"}
	}
	if trigger == models.TriggerCancel {
		return nil
	}
	pending, err := e.routing.HasPendingStep(tx, r)
	if err != nil {
		return err
	}
	if pending {
		return &apperrors.TransitionError{Ref: r, From: head.Status, Trigger: trigger, Reason: "approval chain is still pending"}
	}
	return nil
}

// CancelChain withdraws the document's running chain. Only the initiator may
// do this.
func (e *Engine) CancelChain(ctx context.Context, docType models.DocumentType, docID uint, initiatorID uint, reason string) error {
	r, err := ref(docType, docID)
	if err != nil {
		return err
	}
	return e.mutate(ctx, r, "cancel chain", func(tx *gorm.DB) ([]events.Event, error) {
		res, err := e.builder.WithdrawChain(tx, r, initiatorID, reason)
		if err != nil {
			return nil, err
		}
		evts := []events.Event{{
			Type:       events.TypeChainWithdrawn,
			Document:   r,
			ChainID:    &res.Chain.ID,
			ActorID:    &initiatorID,
			Outcome:    res.Chain.Outcome(),
			OccurredAt: time.Now(),
		}}
		return append(evts, events.StatusChanged(res.Changes, &initiatorID)...), nil
	})
}

// ChainView is a read-only snapshot of a document's latest approval chain.
type ChainView struct {
	ChainID     uuid.UUID                `json:"chain_id"`
	Document    models.DocumentRef       `json:"document"`
	Generation  int                      `json:"generation"`
	Outcome     models.ChainOutcome      `json:"outcome"`
	CurrentStep *models.ApprovalRouting  `json:"current_step,omitempty"`
	Steps       []models.ApprovalRouting `json:"steps"`
}

// GetChain returns the latest chain of the document. A document that never had
// a chain yields ErrNoPendingStep.
func (e *Engine) GetChain(ctx context.Context, docType models.DocumentType, docID uint) (*ChainView, error) {
	r, err := ref(docType, docID)
	if err != nil {
		return nil, err
	}
	db := e.db.WithContext(ctx)
	if _, err := e.docs.GetHead(db, r); err != nil {
		return nil, err
	}
	steps, err := e.routing.LatestChain(db, r)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("%w: %s has no approval chain", apperrors.ErrNoPendingStep, r)
	}
	chain, err := approval_services.NewChain(steps)
	if err != nil {
		return nil, err
	}
	view := &ChainView{
		ChainID:    chain.ID,
		Document:   r,
		Generation: chain.Generation,
		Outcome:    chain.Outcome(),
		Steps:      chain.Steps,
	}
	if cur, ok := chain.Current(); ok {
		step := *cur
		view.CurrentStep = &step
	}
	return view, nil
}

// GetChainHistory returns every step of every generation, oldest first.
func (e *Engine) GetChainHistory(ctx context.Context, docType models.DocumentType, docID uint) ([]models.ApprovalRouting, error) {
	r, err := ref(docType, docID)
	if err != nil {
		return nil, err
	}
	return e.routing.AllSteps(e.db.WithContext(ctx), r)
}

func (e *Engine) GetDocumentStatus(ctx context.Context, docType models.DocumentType, docID uint) (models.DocumentStatus, error) {
	r, err := ref(docType, docID)
	if err != nil {
		return "", err
	}
	return e.registry.GetDocumentStatus(e.db.WithContext(ctx), r)
}

// PendingForApprover lists the steps approverID can act on right now, oldest
// routing first.
func (e *Engine) PendingForApprover(ctx context.Context, approverID uint, params pagination.PaginationParams) (*pagination.PaginatedResponse[models.ApprovalRouting], error) {
	if approverID == 0 {
		return nil, fmt.Errorf("%w: approver id is required", apperrors.ErrInvalidApprover)
	}
	params = params.Normalize()
	if err := pagination.ValidatePaginationParams(params); err != nil {
		return nil, err
	}
	steps, total, err := e.routing.CurrentStepsForApprover(e.db.WithContext(ctx), approverID, params.Offset(), params.PageSize)
	if err != nil {
		return nil, err
	}
	resp := pagination.NewPaginatedResponse(steps, total, params)
	return &resp, nil
}

// StatusHistory returns the recorded transitions of a document, oldest first.
func (e *Engine) StatusHistory(ctx context.Context, docType models.DocumentType, docID uint) ([]models.StatusTransition, error) {
	r, err := ref(docType, docID)
	if err != nil {
		return nil, err
	}
	var history []models.StatusTransition
	err = e.db.WithContext(ctx).
		Where("document_type = ? AND document_id = ?", r.Type, r.ID).
		Order("id ASC").
		Find(&history).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load status history for %s: %w", r, err)
	}
	return history, nil
}
