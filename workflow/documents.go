package workflow

import (
	"context"
	"errors"
	"time"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"
	document_services "procurement-backend/documents/services"
	"procurement-backend/events"
	"procurement-backend/transitions"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func createdEvents(res *document_services.CreateResult) []events.Event {
	evts := []events.Event{{
		Type:       events.TypeDocumentCreated,
		Document:   res.Ref,
		To:         res.Status,
		Number:     res.Number,
		OccurredAt: time.Now(),
	}}
	return append(evts, events.StatusChanged(res.Changes, nil)...)
}

// CreatePurchaseRequest registers a new purchase request in PR_UNDER_REVIEW.
// Purchase requests have no predecessor, so creation serializes on a shared
// PURCHASE_REQUEST:0 key.
func (e *Engine) CreatePurchaseRequest(ctx context.Context, pr *models.PurchaseRequest) (*document_services.CreateResult, error) {
	var res *document_services.CreateResult
	lock := models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: 0}
	err := e.mutate(ctx, lock, "create purchase request", func(tx *gorm.DB) ([]events.Event, error) {
		var err error
		res, err = e.registry.CreatePurchaseRequest(tx, pr)
		if err != nil {
			return nil, err
		}
		return createdEvents(res), nil
	})
	return res, err
}

func (e *Engine) CreateRFQ(ctx context.Context, rfq *models.RFQ) (*document_services.CreateResult, error) {
	parent := models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: rfq.PurchaseRequestID}
	var res *document_services.CreateResult
	err := e.mutate(ctx, parent, "create rfq", func(tx *gorm.DB) ([]events.Event, error) {
		var err error
		res, err = e.registry.CreateRFQ(tx, rfq)
		if err != nil {
			return nil, err
		}
		return createdEvents(res), nil
	})
	return res, err
}

func (e *Engine) CreateCanvass(ctx context.Context, canvass *models.Canvass) (*document_services.CreateResult, error) {
	parent := models.DocumentRef{Type: models.DocumentTypeRFQ, ID: canvass.RFQID}
	var res *document_services.CreateResult
	err := e.mutate(ctx, parent, "create canvass", func(tx *gorm.DB) ([]events.Event, error) {
		var err error
		res, err = e.registry.CreateCanvass(tx, canvass)
		if err != nil {
			return nil, err
		}
		return createdEvents(res), nil
	})
	return res, err
}

func (e *Engine) CreateBACDocument(ctx context.Context, doc *models.BACDocument) (*document_services.CreateResult, error) {
	parent := models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: doc.PurchaseRequestID}
	var res *document_services.CreateResult
	err := e.mutate(ctx, parent, "create bac document", func(tx *gorm.DB) ([]events.Event, error) {
		var err error
		res, err = e.registry.CreateBACDocument(tx, doc)
		if err != nil {
			return nil, err
		}
		return createdEvents(res), nil
	})
	return res, err
}

func (e *Engine) CreatePurchaseOrder(ctx context.Context, po *models.PurchaseOrder) (*document_services.CreateResult, error) {
	parent := models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: po.PurchaseRequestID}
	var res *document_services.CreateResult
	err := e.mutate(ctx, parent, "create purchase order", func(tx *gorm.DB) ([]events.Event, error) {
		var err error
		res, err = e.registry.CreatePurchaseOrder(tx, po)
		if err != nil {
			return nil, err
		}
		return createdEvents(res), nil
	})
	return res, err
}

// MarkOverdueCanvasses moves every canvass past its deadline to OVERDUE and
// returns how many moved. A canvass that changed status in the meantime is
// skipped.
func (e *Engine) MarkOverdueCanvasses(ctx context.Context, now time.Time) (int, error) {
	ids, err := e.docs.ListOverdueCanvasses(e.db.WithContext(ctx), now)
	if err != nil {
		return 0, err
	}

	marked := 0
	var errs []error
	for _, id := range ids {
		r := models.DocumentRef{Type: models.DocumentTypeCanvass, ID: id}
		moved := false
		err := e.mutate(ctx, r, "mark overdue", func(tx *gorm.DB) ([]events.Event, error) {
			changes, err := e.status.Signal(tx, r, models.TriggerMarkOverdue, transitions.Cause{
				Metadata: map[string]interface{}{"deadlinePassedAt": now.Format(time.RFC3339)},
			})
			if err != nil {
				return nil, err
			}
			moved = len(changes) > 0
			return events.StatusChanged(changes, nil), nil
		})
		if err != nil {
			if errors.Is(err, apperrors.ErrDocumentNotFound) {
				continue
			}
			e.logger.Error("failed to mark canvass overdue", zap.Uint("canvassID", id), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if moved {
			marked++
		}
	}
	return marked, errors.Join(errs...)
}
