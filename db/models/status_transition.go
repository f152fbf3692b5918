package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// StatusTransition is the history row written for every applied status change.
type StatusTransition struct {
	ID           uint              `gorm:"primaryKey" json:"id"`
	DocumentType DocumentType      `gorm:"type:varchar(30);not null;index:idx_transition_document,priority:1" json:"document_type"`
	DocumentID   uint              `gorm:"not null;index:idx_transition_document,priority:2" json:"document_id"`
	FromStatus   DocumentStatus    `gorm:"type:varchar(30);not null" json:"from_status"`
	ToStatus     DocumentStatus    `gorm:"type:varchar(30);not null" json:"to_status"`
	Trigger      Trigger           `gorm:"type:varchar(30);not null" json:"trigger"`
	ChainID      *uuid.UUID        `gorm:"type:uuid;index" json:"chain_id"`
	ActorID      *uint             `json:"actor_id"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	CreatedAt    time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
}
