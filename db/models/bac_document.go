package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BACDocument is one of the Bids and Awards Committee documents prepared after
// canvassing. A purchase request may carry several of them.
type BACDocument struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	BACDocumentNumber string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"bac_document_number"`
	PurchaseRequestID uint           `gorm:"not null;index" json:"purchase_request_id"`
	Status            DocumentStatus `gorm:"type:varchar(30);default:'DRAFT';index;not null" json:"status"`

	SelectedSupplierID *uint           `gorm:"index" json:"selected_supplier_id"`
	ProcurementMode    ProcurementMode `gorm:"type:varchar(30);not null" json:"procurement_mode"`
	DocumentKind       BACDocumentKind `gorm:"type:varchar(40);not null;index" json:"document_kind"`
	ContractAmount     decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"contract_amount"`
	PaymentTerms       string          `gorm:"type:text" json:"payment_terms"`
	Notes              *string         `gorm:"type:text" json:"notes"`

	ApprovedAt *time.Time `json:"approved_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
