package models

import (
	"time"

	"gorm.io/gorm"
)

type Role string

const (
	EndUserRole            Role = "END_USER"
	ProcurementOfficerRole Role = "PROCUREMENT_OFFICER"
	CanvasserRole          Role = "CANVASSER"
	BACSecretariatRole     Role = "BAC_SECRETARIAT"
	BACChairRole           Role = "BAC_CHAIR"
	BACMemberRole          Role = "BAC_MEMBER"
	SupplierRole           Role = "SUPPLIER"
	AdminRole              Role = "ADMIN"
)

// User is a person who can raise, route or approve procurement documents.
type User struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"not null" json:"name"`
	Email      string `gorm:"uniqueIndex;not null" json:"email"`
	Role       Role   `gorm:"type:varchar(30);not null;index:idx_users_role_active" json:"role"`
	Department string `json:"department"`

	// Status
	Active      bool       `gorm:"default:true;index:idx_users_role_active" json:"active"`
	LastLoginAt *time.Time `json:"last_login_at"`

	// Audit fields
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
