package events

import (
	"context"
	"testing"
	"time"

	"procurement-backend/db/models"
	"procurement-backend/transitions"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskCarriesEvent(t *testing.T) {
	chainID := uuid.New()
	evt := Event{
		Type:       TypeChainResolved,
		Document:   models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: 42},
		ChainID:    &chainID,
		Outcome:    models.OutcomeApproved,
		OccurredAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	task, err := NewTask(evt)
	require.NoError(t, err)
	assert.Equal(t, TypeChainResolved, task.Type())

	got, err := DecodeEvent(task)
	require.NoError(t, err)
	assert.Equal(t, evt.Document, got.Document)
	assert.Equal(t, chainID, *got.ChainID)
	assert.Equal(t, models.OutcomeApproved, got.Outcome)
}

func TestStatusChangedKeepsCascadeOrder(t *testing.T) {
	changes := []transitions.Change{
		{Ref: models.DocumentRef{Type: models.DocumentTypeRFQ, ID: 7}, From: "PENDING", To: "ACTIVE", Trigger: models.TriggerDisseminate},
		{Ref: models.DocumentRef{Type: models.DocumentTypePurchaseRequest, ID: 42}, From: "RFQ_READY", To: "RFQ_DISSEMINATED", Trigger: models.TriggerRFQDisseminated},
	}
	evts := StatusChanged(changes, nil)
	require.Len(t, evts, 2)
	assert.Equal(t, models.DocumentTypeRFQ, evts[0].Document.Type)
	assert.Equal(t, models.DocumentStatus("RFQ_DISSEMINATED"), evts[1].To)
	for _, e := range evts {
		assert.Equal(t, TypeStatusChanged, e.Type)
	}
}

func TestAdvanceTaskRoundTrip(t *testing.T) {
	task, err := NewAdvanceTask(AdvancePayload{
		DocumentType: models.DocumentTypeRFQ,
		DocumentID:   7,
		Trigger:      models.TriggerDisseminate,
		ActorID:      9,
	})
	require.NoError(t, err)
	assert.Equal(t, TypeAdvance, task.Type())

	p, err := ParseAdvancePayload(task)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentRef{Type: models.DocumentTypeRFQ, ID: 7}, p.Ref())
	assert.Equal(t, models.TriggerDisseminate, p.Trigger)
}

func TestAdvanceTaskRejectsBadInput(t *testing.T) {
	_, err := NewAdvanceTask(AdvancePayload{DocumentType: "INVOICE", DocumentID: 1, Trigger: models.TriggerCancel})
	assert.Error(t, err)

	_, err = ParseAdvancePayload(asynq.NewTask(TypeAdvance, []byte(`{"document_type":"RFQ"}`)))
	assert.Error(t, err)

	_, err = ParseAdvancePayload(asynq.NewTask(TypeAdvance, []byte(`not json`)))
	assert.Error(t, err)
}

func TestRecorder(t *testing.T) {
	var r Recorder
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypeChainCreated}))
	require.NoError(t, r.Publish(context.Background(), Event{Type: TypeStatusChanged}))

	assert.Len(t, r.Events(), 2)
	assert.Len(t, r.OfType(TypeChainCreated), 1)
	r.Reset()
	assert.Empty(t, r.Events())
}

func TestAsynqPublisherUsesEventsQueue(t *testing.T) {
	p := NewAsynqPublisher(nil, nil)

	var queues []string
	for _, opt := range p.options() {
		if opt.Type() == asynq.QueueOpt {
			queues = append(queues, opt.Value().(string))
		}
	}
	assert.Equal(t, []string{QueueEvents}, queues)
	assert.NotEqual(t, QueueWorkflow, QueueEvents)
}
