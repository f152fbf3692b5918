package services

import (
	"fmt"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/approvals/repositories"
	"procurement-backend/db/models"
	document_repositories "procurement-backend/documents/repositories"
	"procurement-backend/transitions"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DecisionResult represents the outcome of a decision on an approval chain
type DecisionResult struct {
	Chain   *Chain                 `json:"chain"`
	Step    models.ApprovalRouting `json:"step"`
	Outcome models.ChainOutcome    `json:"outcome"`
	Changes []transitions.Change   `json:"changes"`
}

type DecisionProcessor struct {
	routing repositories.ApprovalRoutingRepository
	docs    document_repositories.DocumentRepository
	status  StatusEngine
	logger  *zap.Logger
	clock   func() time.Time
}

func NewDecisionProcessor(
	routing repositories.ApprovalRoutingRepository,
	docs document_repositories.DocumentRepository,
	status StatusEngine,
	logger *zap.Logger,
) *DecisionProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionProcessor{
		routing: routing,
		docs:    docs,
		status:  status,
		logger:  logger,
		clock:   time.Now,
	}
}

// Decide applies an approver's decision to the current step of the document's
// latest chain. When the decision resolves the chain the document is advanced
// with CHAIN_APPROVED or CHAIN_REJECTED in the same transaction; if that
// transition is illegal the whole decision fails.
func (p *DecisionProcessor) Decide(tx *gorm.DB, ref models.DocumentRef, in DecisionInput) (*DecisionResult, error) {
	if _, err := p.docs.LockHead(tx, ref); err != nil {
		return nil, err
	}

	steps, err := p.routing.LatestChain(tx, ref)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		if in.ApproverID == 0 {
			return nil, fmt.Errorf("%w: approver id is required", apperrors.ErrInvalidApprover)
		}
		return nil, fmt.Errorf("%w: %s has no approval chain", apperrors.ErrNoPendingStep, ref)
	}

	chain, err := NewChain(steps)
	if err != nil {
		return nil, err
	}

	if in.At.IsZero() {
		in.At = p.clock()
	}
	changed, err := chain.Apply(in)
	if err != nil {
		return nil, err
	}
	for _, step := range changed {
		if err := p.routing.ResolveStep(tx, step); err != nil {
			return nil, err
		}
	}

	result := &DecisionResult{
		Chain:   chain,
		Step:    *changed[0],
		Outcome: chain.Outcome(),
	}

	var trigger models.Trigger
	switch result.Outcome {
	case models.OutcomeApproved:
		trigger = models.TriggerChainApproved
	case models.OutcomeRejected:
		trigger = models.TriggerChainRejected
	}
	if trigger != "" {
		actor := in.ApproverID
		metadata := map[string]interface{}{
			"generation": chain.Generation,
			"sequence":   result.Step.Sequence,
		}
		if result.Step.RejectionReason != nil {
			metadata["rejectionReason"] = *result.Step.RejectionReason
		}
		result.Changes, err = p.status.Advance(tx, ref, trigger, transitions.Cause{
			ChainID:  &chain.ID,
			ActorID:  &actor,
			Metadata: metadata,
		})
		if err != nil {
			return nil, err
		}
	}

	p.logger.Info("approval decision recorded",
		zap.String("document", ref.String()),
		zap.String("chainID", chain.ID.String()),
		zap.Int("sequence", result.Step.Sequence),
		zap.Uint("approverID", in.ApproverID),
		zap.String("decision", string(in.Decision)),
		zap.String("outcome", string(result.Outcome)))

	return result, nil
}
