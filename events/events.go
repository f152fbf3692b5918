package events

import (
	"time"

	"procurement-backend/db/models"
	"procurement-backend/transitions"

	"github.com/google/uuid"
)

// Task types published after a workflow change commits.
const (
	TypeChainCreated    = "workflow:chain_created"
	TypeStepDecided     = "workflow:step_decided"
	TypeChainResolved   = "workflow:chain_resolved"
	TypeChainWithdrawn  = "workflow:chain_withdrawn"
	TypeStatusChanged   = "workflow:status_changed"
	TypeDocumentCreated = "workflow:document_created"
)

// Event is the payload of every outbound workflow task. Only the fields that
// matter for Type are set.
type Event struct {
	Type       string                `json:"type"`
	Document   models.DocumentRef    `json:"document"`
	ChainID    *uuid.UUID            `json:"chain_id,omitempty"`
	ActorID    *uint                 `json:"actor_id,omitempty"`
	ApproverID uint                  `json:"approver_id,omitempty"`
	NextID     uint                  `json:"next_approver_id,omitempty"`
	Sequence   int                   `json:"sequence,omitempty"`
	Decision   models.Decision       `json:"decision,omitempty"`
	Outcome    models.ChainOutcome   `json:"outcome,omitempty"`
	From       models.DocumentStatus `json:"from,omitempty"`
	To         models.DocumentStatus `json:"to,omitempty"`
	Trigger    models.Trigger        `json:"trigger,omitempty"`
	Number     string                `json:"number,omitempty"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// StatusChanged converts lifecycle changes into events.
func StatusChanged(changes []transitions.Change, actorID *uint) []Event {
	out := make([]Event, 0, len(changes))
	for _, c := range changes {
		out = append(out, Event{
			Type:       TypeStatusChanged,
			Document:   c.Ref,
			ChainID:    c.ChainID,
			ActorID:    actorID,
			From:       c.From,
			To:         c.To,
			Trigger:    c.Trigger,
			OccurredAt: c.At,
		})
	}
	return out
}
