package events

import (
	"encoding/json"
	"fmt"

	"procurement-backend/db/models"

	"github.com/hibiken/asynq"
)

// TypeAdvance is the inbound task carrying a stage-completion signal, e.g. an
// RFQ being disseminated or a purchase order conforme being received.
const TypeAdvance = "workflow:advance"

type AdvancePayload struct {
	DocumentType models.DocumentType `json:"document_type"`
	DocumentID   uint                `json:"document_id"`
	Trigger      models.Trigger      `json:"trigger"`
	ActorID      uint                `json:"actor_id,omitempty"`
}

func (p AdvancePayload) Ref() models.DocumentRef {
	return models.DocumentRef{Type: p.DocumentType, ID: p.DocumentID}
}

func NewAdvanceTask(p AdvancePayload) (*asynq.Task, error) {
	if !p.DocumentType.IsValid() {
		return nil, fmt.Errorf("unknown document type %q", p.DocumentType)
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeAdvance, payload, asynq.Queue(QueueWorkflow)), nil
}

func ParseAdvancePayload(t *asynq.Task) (AdvancePayload, error) {
	var p AdvancePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("failed to decode %s task: %w", t.Type(), err)
	}
	if !p.DocumentType.IsValid() || p.DocumentID == 0 || p.Trigger == "" {
		return p, fmt.Errorf("incomplete %s payload: %+v", t.Type(), p)
	}
	return p, nil
}
