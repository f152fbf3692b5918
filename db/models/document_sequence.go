package models

import "time"

// DocumentSequence holds the yearly counter behind document numbers.
type DocumentSequence struct {
	DocumentType DocumentType `gorm:"type:varchar(30);primaryKey" json:"document_type"`
	Year         int          `gorm:"primaryKey;autoIncrement:false" json:"year"`
	LastValue    int          `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt    time.Time    `gorm:"autoUpdateTime" json:"updated_at"`
}
