package repositories

import (
	"fmt"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"

	"gorm.io/gorm"
)

type ApprovalRoutingRepository interface {
	CreateSteps(tx *gorm.DB, steps []models.ApprovalRouting) error
	LatestGeneration(tx *gorm.DB, ref models.DocumentRef) (int, error)
	LatestChain(tx *gorm.DB, ref models.DocumentRef) ([]models.ApprovalRouting, error)
	AllSteps(tx *gorm.DB, ref models.DocumentRef) ([]models.ApprovalRouting, error)
	HasPendingStep(tx *gorm.DB, ref models.DocumentRef) (bool, error)
	ResolveStep(tx *gorm.DB, step *models.ApprovalRouting) error
	CancelPendingSteps(tx *gorm.DB, ref models.DocumentRef, at time.Time) (int64, error)
	CurrentStepsForApprover(tx *gorm.DB, approverID uint, offset, limit int) ([]models.ApprovalRouting, int64, error)
}

type approvalRoutingRepository struct {
	db *gorm.DB
}

func NewApprovalRoutingRepository(db *gorm.DB) ApprovalRoutingRepository {
	return &approvalRoutingRepository{db: db}
}

func (r *approvalRoutingRepository) conn(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *approvalRoutingRepository) CreateSteps(tx *gorm.DB, steps []models.ApprovalRouting) error {
	if len(steps) == 0 {
		return nil
	}
	if err := r.conn(tx).Create(&steps).Error; err != nil {
		return fmt.Errorf("failed to create approval steps: %w", err)
	}
	return nil
}

func (r *approvalRoutingRepository) LatestGeneration(tx *gorm.DB, ref models.DocumentRef) (int, error) {
	var gen int
	err := r.conn(tx).Model(&models.ApprovalRouting{}).
		Where("document_type = ? AND document_id = ?", ref.Type, ref.ID).
		Select("COALESCE(MAX(generation), 0)").
		Scan(&gen).Error
	if err != nil {
		return 0, fmt.Errorf("failed to read chain generation for %s: %w", ref, err)
	}
	return gen, nil
}

// LatestChain returns the steps of the newest generation ordered by sequence,
// or nil when the document never had a chain.
func (r *approvalRoutingRepository) LatestChain(tx *gorm.DB, ref models.DocumentRef) ([]models.ApprovalRouting, error) {
	gen, err := r.LatestGeneration(tx, ref)
	if err != nil {
		return nil, err
	}
	if gen == 0 {
		return nil, nil
	}

	var steps []models.ApprovalRouting
	err = r.conn(tx).
		Where("document_type = ? AND document_id = ? AND generation = ?", ref.Type, ref.ID, gen).
		Order("sequence ASC").
		Find(&steps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load approval chain for %s: %w", ref, err)
	}
	return steps, nil
}

// AllSteps returns every generation, oldest first.
func (r *approvalRoutingRepository) AllSteps(tx *gorm.DB, ref models.DocumentRef) ([]models.ApprovalRouting, error) {
	var steps []models.ApprovalRouting
	err := r.conn(tx).
		Where("document_type = ? AND document_id = ?", ref.Type, ref.ID).
		Order("generation ASC, sequence ASC").
		Find(&steps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load approval history for %s: %w", ref, err)
	}
	return steps, nil
}

func (r *approvalRoutingRepository) HasPendingStep(tx *gorm.DB, ref models.DocumentRef) (bool, error) {
	var count int64
	err := r.conn(tx).Model(&models.ApprovalRouting{}).
		Where("document_type = ? AND document_id = ? AND status = ?", ref.Type, ref.ID, models.ApprovalPending).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check pending steps for %s: %w", ref, err)
	}
	return count > 0, nil
}

// ResolveStep persists the decision held in step. The update only matches a row
// that is still PENDING; losing that race is reported as transient.
func (r *approvalRoutingRepository) ResolveStep(tx *gorm.DB, step *models.ApprovalRouting) error {
	result := r.conn(tx).Model(&models.ApprovalRouting{}).
		Where("id = ? AND status = ?", step.ID, models.ApprovalPending).
		Updates(map[string]interface{}{
			"status":           step.Status,
			"approved_at":      step.ApprovedAt,
			"rejected_at":      step.RejectedAt,
			"cancelled_at":     step.CancelledAt,
			"comments":         step.Comments,
			"rejection_reason": step.RejectionReason,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to resolve approval step %d: %w", step.ID, result.Error)
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("%w: approval step %d was resolved concurrently", apperrors.ErrTransient, step.ID)
	}
	return nil
}

func (r *approvalRoutingRepository) CancelPendingSteps(tx *gorm.DB, ref models.DocumentRef, at time.Time) (int64, error) {
	result := r.conn(tx).Model(&models.ApprovalRouting{}).
		Where("document_type = ? AND document_id = ? AND status = ?", ref.Type, ref.ID, models.ApprovalPending).
		Updates(map[string]interface{}{
			"status":       models.ApprovalCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cancel pending steps for %s: %w", ref, result.Error)
	}
	return result.RowsAffected, nil
}

// CurrentStepsForApprover lists the actionable steps assigned to approverID:
// pending steps with no lower pending step in the same chain. A limit of zero
// returns every row.
func (r *approvalRoutingRepository) CurrentStepsForApprover(tx *gorm.DB, approverID uint, offset, limit int) ([]models.ApprovalRouting, int64, error) {
	query := r.conn(tx).Model(&models.ApprovalRouting{}).
		Where("approver_id = ? AND status = ?", approverID, models.ApprovalPending).
		Where(`NOT EXISTS (
			SELECT 1 FROM approval_routings prior
			WHERE prior.chain_id = approval_routings.chain_id
			  AND prior.status = ?
			  AND prior.sequence < approval_routings.sequence
		)`, models.ApprovalPending)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count pending approvals for approver %d: %w", approverID, err)
	}

	var steps []models.ApprovalRouting
	page := query.Session(&gorm.Session{}).Order("routed_at ASC, id ASC")
	if limit > 0 {
		page = page.Offset(offset).Limit(limit)
	}
	if err := page.Find(&steps).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list pending approvals for approver %d: %w", approverID, err)
	}
	return steps, total, nil
}
