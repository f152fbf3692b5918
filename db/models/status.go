package models

import "fmt"

// DocumentType identifies one of the five procurement document kinds that share
// the approval routing table.
type DocumentType string

const (
	DocumentTypePurchaseRequest DocumentType = "PURCHASE_REQUEST"
	DocumentTypeRFQ             DocumentType = "RFQ"
	DocumentTypeCanvass         DocumentType = "CANVASS"
	DocumentTypeBACDocument     DocumentType = "BAC_DOCUMENT"
	DocumentTypePurchaseOrder   DocumentType = "PURCHASE_ORDER"
)

var documentTypes = map[DocumentType]bool{
	DocumentTypePurchaseRequest: true,
	DocumentTypeRFQ:             true,
	DocumentTypeCanvass:         true,
	DocumentTypeBACDocument:     true,
	DocumentTypePurchaseOrder:   true,
}

// ParseDocumentType converts a stored or caller supplied tag into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	t := DocumentType(s)
	if !documentTypes[t] {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}

// IsValid reports whether t is one of the known document kinds.
func (t DocumentType) IsValid() bool {
	return documentTypes[t]
}

// DocumentRef points at a single document of any kind.
type DocumentRef struct {
	Type DocumentType `json:"document_type"`
	ID   uint         `json:"document_id"`
}

func (r DocumentRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// DocumentStatus is the lifecycle status of a document. The set of legal values
// depends on the document kind.
type DocumentStatus string

// Purchase request lifecycle
const (
	PRStatusUnderReview      DocumentStatus = "PR_UNDER_REVIEW"
	PRStatusRFQReady         DocumentStatus = "RFQ_READY"
	PRStatusRFQDisseminated  DocumentStatus = "RFQ_DISSEMINATED"
	PRStatusCanvassComplete  DocumentStatus = "CANVASS_COMPLETE"
	PRStatusBACDocsReady     DocumentStatus = "BAC_DOCS_READY"
	PRStatusBACApproved      DocumentStatus = "BAC_APPROVED"
	PRStatusPOApproved       DocumentStatus = "PO_APPROVED"
	PRStatusAwaitingConforme DocumentStatus = "AWAITING_CONFORME"
	PRStatusPOComplete       DocumentStatus = "PO_COMPLETE"
	PRStatusCOAStamped       DocumentStatus = "COA_STAMPED"
	PRStatusCancelled        DocumentStatus = "CANCELLED"
)

// RFQ lifecycle
const (
	RFQStatusPending   DocumentStatus = "PENDING"
	RFQStatusActive    DocumentStatus = "ACTIVE"
	RFQStatusCompleted DocumentStatus = "COMPLETED"
	RFQStatusCancelled DocumentStatus = "CANCELLED"
)

// Canvass lifecycle
const (
	CanvassStatusPending    DocumentStatus = "PENDING"
	CanvassStatusInProgress DocumentStatus = "IN_PROGRESS"
	CanvassStatusCompleted  DocumentStatus = "COMPLETED"
	CanvassStatusOverdue    DocumentStatus = "OVERDUE"
)

// BAC document lifecycle
const (
	BACStatusDraft           DocumentStatus = "DRAFT"
	BACStatusPendingApproval DocumentStatus = "PENDING_APPROVAL"
	BACStatusApproved        DocumentStatus = "APPROVED"
	BACStatusRejected        DocumentStatus = "REJECTED"
)

// Purchase order lifecycle
const (
	POStatusPending          DocumentStatus = "PENDING"
	POStatusApproved         DocumentStatus = "APPROVED"
	POStatusDisseminated     DocumentStatus = "DISSEMINATED"
	POStatusAwaitingConforme DocumentStatus = "AWAITING_CONFORME"
	POStatusConformeAccepted DocumentStatus = "CONFORME_ACCEPTED"
	POStatusConformeRejected DocumentStatus = "CONFORME_REJECTED"
	POStatusComplete         DocumentStatus = "COMPLETE"
	POStatusCancelled        DocumentStatus = "CANCELLED"
)

// ApprovalStatus is the state of a single routing step.
type ApprovalStatus string

const (
	ApprovalPending   ApprovalStatus = "PENDING"
	ApprovalApproved  ApprovalStatus = "APPROVED"
	ApprovalRejected  ApprovalStatus = "REJECTED"
	ApprovalCancelled ApprovalStatus = "CANCELLED"
)

// IsResolved reports whether the step can no longer change.
func (s ApprovalStatus) IsResolved() bool {
	return s != ApprovalPending
}

// Decision is what an approver submits against the current step.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// ChainOutcome summarises a whole approval chain.
type ChainOutcome string

const (
	OutcomeInProgress ChainOutcome = "IN_PROGRESS"
	OutcomeApproved   ChainOutcome = "APPROVED"
	OutcomeRejected   ChainOutcome = "REJECTED"
	OutcomeCancelled  ChainOutcome = "CANCELLED"
)

// Trigger names an event that can move a document along its lifecycle graph.
type Trigger string

const (
	TriggerChainCreated     Trigger = "CHAIN_CREATED"
	TriggerChainApproved    Trigger = "CHAIN_APPROVED"
	TriggerChainRejected    Trigger = "CHAIN_REJECTED"
	TriggerChainWithdrawn   Trigger = "CHAIN_WITHDRAWN"
	TriggerDisseminate      Trigger = "DISSEMINATE"
	TriggerStart            Trigger = "START"
	TriggerComplete         Trigger = "COMPLETE"
	TriggerMarkOverdue      Trigger = "MARK_OVERDUE"
	TriggerRFQDisseminated  Trigger = "RFQ_DISSEMINATED"
	TriggerCanvassCompleted Trigger = "CANVASS_COMPLETED"
	TriggerBACDocsPrepared  Trigger = "BAC_DOCS_PREPARED"
	TriggerBACApproved      Trigger = "BAC_APPROVED"
	TriggerPOApproved       Trigger = "PO_APPROVED"
	TriggerPODisseminated   Trigger = "PO_DISSEMINATED"
	TriggerRFQCancelled     Trigger = "RFQ_CANCELLED"
	TriggerPOCancelled      Trigger = "PO_CANCELLED"
	TriggerRequestConforme  Trigger = "REQUEST_CONFORME"
	TriggerConformeAccepted Trigger = "CONFORME_ACCEPTED"
	TriggerConformeRejected Trigger = "CONFORME_REJECTED"
	TriggerReissue          Trigger = "REISSUE"
	TriggerRevise           Trigger = "REVISE"
	TriggerCOAStamp         Trigger = "COA_STAMP"
	TriggerCancel           Trigger = "CANCEL"
)

// IsChainTrigger reports whether t is raised only by approval chain resolution.
func (t Trigger) IsChainTrigger() bool {
	switch t {
	case TriggerChainCreated, TriggerChainApproved, TriggerChainRejected, TriggerChainWithdrawn:
		return true
	}
	return false
}

// ProcurementMode is the procurement method recorded on BAC documents.
type ProcurementMode string

const (
	ProcurementModeShopping          ProcurementMode = "SHOPPING"
	ProcurementModeSVP               ProcurementMode = "SVP"
	ProcurementModePublicBidding     ProcurementMode = "PUBLIC_BIDDING"
	ProcurementModeNegotiated        ProcurementMode = "NEGOTIATED"
	ProcurementModeDirectContracting ProcurementMode = "DIRECT_CONTRACTING"
)

// BACDocumentKind distinguishes the documents prepared by the Bids and Awards Committee.
type BACDocumentKind string

const (
	BACAbstractOfQuotations BACDocumentKind = "ABSTRACT_OF_QUOTATIONS"
	BACPriceMatrix          BACDocumentKind = "PRICE_MATRIX"
	BACTWGCertification     BACDocumentKind = "TWG_CERT"
	BACRecommendation       BACDocumentKind = "RECOMMENDATION"
	BACResolution           BACDocumentKind = "RESOLUTION"
)

type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "LOW"
	UrgencyMedium UrgencyLevel = "MEDIUM"
	UrgencyHigh   UrgencyLevel = "HIGH"
	UrgencyUrgent UrgencyLevel = "URGENT"
)
