package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseRequest is the root document of the procurement pipeline. Every other
// document hangs off a purchase request, directly or through its RFQ.
type PurchaseRequest struct {
	ID       uint           `gorm:"primaryKey" json:"id"`
	PRNumber string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"pr_number"`
	Status   DocumentStatus `gorm:"type:varchar(30);default:'PR_UNDER_REVIEW';index;not null" json:"status"`

	ProjectTitle       string `gorm:"type:varchar(500);not null" json:"project_title"`
	ProjectDescription string `gorm:"type:text" json:"project_description"`
	Purpose            string `gorm:"type:text" json:"purpose"`

	EndUserID         uint   `gorm:"not null;index" json:"end_user_id"`
	EndUserDepartment string `gorm:"type:varchar(255)" json:"end_user_department"`

	FundSource      string          `gorm:"type:varchar(255);index" json:"fund_source"`
	EstimatedBudget decimal.Decimal `gorm:"type:numeric(15,2);not null" json:"estimated_budget"`
	UrgencyLevel    UrgencyLevel    `gorm:"type:varchar(20);default:'MEDIUM';index" json:"urgency_level"`

	ApprovalDate *time.Time `json:"approval_date"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
