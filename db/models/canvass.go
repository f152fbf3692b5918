package models

import "time"

// Canvass is a field task collecting supplier quotations for an RFQ.
type Canvass struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	CanvassNumber string         `gorm:"type:varchar(50);uniqueIndex;not null" json:"canvass_number"`
	RFQID         uint           `gorm:"column:rfq_id;not null;index" json:"rfq_id"`
	Status        DocumentStatus `gorm:"type:varchar(30);default:'PENDING';index;not null" json:"status"`

	CanvasserID     uint       `gorm:"index" json:"canvasser_id"`
	TaskDescription string     `gorm:"type:text" json:"task_description"`
	Deadline        time.Time  `gorm:"not null;index" json:"deadline"`
	CompletedAt     *time.Time `json:"completed_at"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Canvass) TableName() string {
	return "canvasses"
}
