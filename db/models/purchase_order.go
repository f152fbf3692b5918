package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is issued to the winning supplier once every BAC document of the
// purchase request is approved.
type PurchaseOrder struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	PONumber          string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"po_number"`
	PurchaseRequestID uint           `gorm:"not null;index" json:"purchase_request_id"`
	Status            DocumentStatus `gorm:"type:varchar(30);default:'PENDING';index;not null" json:"status"`

	SupplierID           uint            `gorm:"not null;index" json:"supplier_id"`
	ContractAmount       decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"contract_amount"`
	DeliveryInstructions string          `gorm:"type:text" json:"delivery_instructions"`
	PaymentTerms         string          `gorm:"type:text" json:"payment_terms"`
	DeliveryDeadline     *time.Time      `json:"delivery_deadline"`

	ConformeDate   *time.Time `json:"conforme_date"`
	DisseminatedAt *time.Time `json:"disseminated_at"`
	CompletedAt    *time.Time `json:"completed_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
