package models

import "time"

// RFQ is the request for quotation issued for an approved purchase request.
// A purchase request has at most one RFQ.
type RFQ struct {
	ID                uint           `gorm:"primaryKey" json:"id"`
	RFQNumber         string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"rfq_number"`
	PurchaseRequestID uint           `gorm:"not null;index" json:"purchase_request_id"`
	Status            DocumentStatus `gorm:"type:varchar(30);default:'PENDING';index;not null" json:"status"`

	ProcurementOfficerID uint       `gorm:"index" json:"procurement_officer_id"`
	DeliverySchedule     *time.Time `json:"delivery_schedule"`
	PaymentTerms         string     `gorm:"type:text" json:"payment_terms"`
	CanvassingDeadline   *time.Time `json:"canvassing_deadline"`
	Notes                *string    `gorm:"type:text" json:"notes"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (RFQ) TableName() string {
	return "rfqs"
}
