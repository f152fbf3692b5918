package services

import (
	"errors"
	"fmt"

	"procurement-backend/apperrors"
	"procurement-backend/db/models"
	"procurement-backend/documents/repositories"
	"procurement-backend/transitions"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StatusSignaler offers soft lifecycle signals to a document.
type StatusSignaler interface {
	Signal(tx *gorm.DB, ref models.DocumentRef, trigger models.Trigger, cause transitions.Cause) ([]transitions.Change, error)
}

// CreateResult carries the new document's reference and any lifecycle changes
// its creation caused upstream.
type CreateResult struct {
	Ref     models.DocumentRef    `json:"document"`
	Number  string                `json:"number"`
	Status  models.DocumentStatus `json:"status"`
	Changes []transitions.Change  `json:"changes"`
}

// RegistryService creates procurement documents. It assigns numbers and initial
// statuses, and refuses to create a document whose predecessor is missing, is
// not at the right stage, or already has its one allowed successor.
type RegistryService struct {
	repo      repositories.DocumentRepository
	numbering *NumberingService
	graphs    transitions.Graphs
	signals   StatusSignaler
	logger    *zap.Logger
}

func NewRegistryService(
	repo repositories.DocumentRepository,
	numbering *NumberingService,
	graphs transitions.Graphs,
	signals StatusSignaler,
	logger *zap.Logger,
) *RegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistryService{
		repo:      repo,
		numbering: numbering,
		graphs:    graphs,
		signals:   signals,
		logger:    logger,
	}
}

// parentStages lists the predecessor statuses that allow creating each kind.
var parentStages = map[models.DocumentType][]models.DocumentStatus{
	models.DocumentTypeRFQ:           {models.PRStatusRFQReady},
	models.DocumentTypeCanvass:       {models.RFQStatusActive},
	models.DocumentTypeBACDocument:   {models.PRStatusCanvassComplete, models.PRStatusBACDocsReady},
	models.DocumentTypePurchaseOrder: {models.PRStatusBACApproved},
}

// checkParent locks the predecessor and enforces existence, stage and
// cardinality for a new document of docType.
func (s *RegistryService) checkParent(tx *gorm.DB, docType models.DocumentType, parentID uint) (*repositories.DocumentHead, error) {
	kind, err := repositories.KindOf(docType)
	if err != nil {
		return nil, err
	}
	parentRef := models.DocumentRef{Type: kind.Parent, ID: parentID}

	head, err := s.repo.LockHead(tx, parentRef)
	if err != nil {
		if errorsIsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrPredecessorNotFound, parentRef)
		}
		return nil, err
	}

	allowed := false
	for _, st := range parentStages[docType] {
		if head.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s is %s", apperrors.ErrStageNotReady, parentRef, head.Status)
	}

	if kind.OnePerParent {
		// A cancelled successor may be replaced.
		var exclude []models.DocumentStatus
		if g, err := s.graphs.For(docType); err == nil && g.Cancelled != "" {
			exclude = append(exclude, g.Cancelled)
		}
		n, err := s.repo.CountChildren(tx, parentRef, docType, exclude...)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: %s already has a %s", apperrors.ErrDuplicateDocument, parentRef, docType)
		}
	}
	return head, nil
}

func (s *RegistryService) prepare(tx *gorm.DB, docType models.DocumentType) (string, models.DocumentStatus, error) {
	number, err := s.numbering.Next(tx, docType)
	if err != nil {
		return "", "", err
	}
	initial, err := s.graphs.Initial(docType)
	if err != nil {
		return "", "", err
	}
	return number, initial, nil
}

func (s *RegistryService) CreatePurchaseRequest(tx *gorm.DB, pr *models.PurchaseRequest) (*CreateResult, error) {
	number, initial, err := s.prepare(tx, models.DocumentTypePurchaseRequest)
	if err != nil {
		return nil, err
	}
	pr.ID = 0
	pr.PRNumber = number
	pr.Status = initial
	pr.ApprovalDate = nil
	if pr.UrgencyLevel == "" {
		pr.UrgencyLevel = models.UrgencyMedium
	}
	if err := s.repo.CreateDocument(tx, pr); err != nil {
		return nil, err
	}
	return s.created(models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: pr.ID}, number, initial, nil), nil
}

func (s *RegistryService) CreateRFQ(tx *gorm.DB, rfq *models.RFQ) (*CreateResult, error) {
	if _, err := s.checkParent(tx, models.DocumentTypeRFQ, rfq.PurchaseRequestID); err != nil {
		return nil, err
	}
	number, initial, err := s.prepare(tx, models.DocumentTypeRFQ)
	if err != nil {
		return nil, err
	}
	rfq.ID = 0
	rfq.RFQNumber = number
	rfq.Status = initial
	if err := s.repo.CreateDocument(tx, rfq); err != nil {
		return nil, err
	}
	return s.created(models.DocumentRef{Type: models.DocumentTypeRFQ, ID: rfq.ID}, number, initial, nil), nil
}

func (s *RegistryService) CreateCanvass(tx *gorm.DB, canvass *models.Canvass) (*CreateResult, error) {
	if _, err := s.checkParent(tx, models.DocumentTypeCanvass, canvass.RFQID); err != nil {
		return nil, err
	}
	if canvass.Deadline.IsZero() {
		return nil, fmt.Errorf("canvass deadline is required")
	}
	number, initial, err := s.prepare(tx, models.DocumentTypeCanvass)
	if err != nil {
		return nil, err
	}
	canvass.ID = 0
	canvass.CanvassNumber = number
	canvass.Status = initial
	canvass.CompletedAt = nil
	if err := s.repo.CreateDocument(tx, canvass); err != nil {
		return nil, err
	}
	return s.created(models.DocumentRef{Type: models.DocumentTypeCanvass, ID: canvass.ID}, number, initial, nil), nil
}

// CreateBACDocument also tells the purchase request its BAC documents are being
// prepared.
func (s *RegistryService) CreateBACDocument(tx *gorm.DB, doc *models.BACDocument) (*CreateResult, error) {
	parent, err := s.checkParent(tx, models.DocumentTypeBACDocument, doc.PurchaseRequestID)
	if err != nil {
		return nil, err
	}
	number, initial, err := s.prepare(tx, models.DocumentTypeBACDocument)
	if err != nil {
		return nil, err
	}
	doc.ID = 0
	doc.BACDocumentNumber = number
	doc.Status = initial
	doc.ApprovedAt = nil
	if err := s.repo.CreateDocument(tx, doc); err != nil {
		return nil, err
	}

	ref := models.DocumentRef{Type: models.DocumentTypeBACDocument, ID: doc.ID}
	changes, err := s.signals.Signal(tx, parent.Ref, models.TriggerBACDocsPrepared, transitions.Cause{
		Metadata: map[string]interface{}{"createdDocument": ref.String()},
	})
	if err != nil {
		return nil, err
	}
	return s.created(ref, number, initial, changes), nil
}

func (s *RegistryService) CreatePurchaseOrder(tx *gorm.DB, po *models.PurchaseOrder) (*CreateResult, error) {
	if _, err := s.checkParent(tx, models.DocumentTypePurchaseOrder, po.PurchaseRequestID); err != nil {
		return nil, err
	}
	number, initial, err := s.prepare(tx, models.DocumentTypePurchaseOrder)
	if err != nil {
		return nil, err
	}
	po.ID = 0
	po.PONumber = number
	po.Status = initial
	po.ConformeDate = nil
	po.DisseminatedAt = nil
	po.CompletedAt = nil
	if err := s.repo.CreateDocument(tx, po); err != nil {
		return nil, err
	}
	return s.created(models.DocumentRef{Type: models.DocumentTypePurchaseOrder, ID: po.ID}, number, initial, nil), nil
}

func (s *RegistryService) created(ref models.DocumentRef, number string, status models.DocumentStatus, changes []transitions.Change) *CreateResult {
	s.logger.Info("document created",
		zap.String("document", ref.String()),
		zap.String("number", number),
		zap.String("status", string(status)))
	return &CreateResult{Ref: ref, Number: number, Status: status, Changes: changes}
}

// GetDocumentStatus reads the current lifecycle status of ref.
func (s *RegistryService) GetDocumentStatus(tx *gorm.DB, ref models.DocumentRef) (models.DocumentStatus, error) {
	head, err := s.repo.GetHead(tx, ref)
	if err != nil {
		return "", err
	}
	return head.Status, nil
}

func errorsIsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrDocumentNotFound)
}
