package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApprovalRouting is one step of a sequential approval chain. All document kinds
// share this table; a chain is the set of rows with the same document and
// generation, ordered by Sequence.
type ApprovalRouting struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	ChainID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"chain_id"`
	DocumentType DocumentType   `gorm:"type:varchar(30);not null;uniqueIndex:idx_routing_step,priority:1;index:idx_routing_document,priority:1" json:"document_type"`
	DocumentID   uint           `gorm:"not null;uniqueIndex:idx_routing_step,priority:2;index:idx_routing_document,priority:2" json:"document_id"`
	Generation   int            `gorm:"not null;default:1;uniqueIndex:idx_routing_step,priority:3" json:"generation"`
	Sequence     int            `gorm:"not null;uniqueIndex:idx_routing_step,priority:4" json:"sequence"`
	ApproverID   uint           `gorm:"not null;index" json:"approver_id"`
	RoutedBy     uint           `gorm:"not null" json:"routed_by"`
	Status       ApprovalStatus `gorm:"type:varchar(20);default:'PENDING';index;not null" json:"status"`

	RoutedAt    time.Time  `gorm:"not null" json:"routed_at"`
	ApprovedAt  *time.Time `json:"approved_at"`
	RejectedAt  *time.Time `json:"rejected_at"`
	CancelledAt *time.Time `json:"cancelled_at"`

	Comments        *string `gorm:"type:text" json:"comments"`
	RejectionReason *string `gorm:"type:text" json:"rejection_reason"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (a *ApprovalRouting) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ChainID == uuid.Nil {
		a.ChainID = uuid.New()
	}
	if a.RoutedAt.IsZero() {
		a.RoutedAt = time.Now()
	}
	return
}

// Ref returns the document this step belongs to.
func (a ApprovalRouting) Ref() DocumentRef {
	return DocumentRef{Type: a.DocumentType, ID: a.DocumentID}
}
