package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// QueueWorkflow carries inbound advance tasks served by the workflow worker.
// QueueEvents carries outbound events for downstream consumers; the worker
// never serves it.
const (
	QueueWorkflow = "workflow"
	QueueEvents   = "workflow-events"
)

// Publisher delivers workflow events to downstream consumers (notifications,
// audit). Publishing happens after commit and never undoes a change.
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// NewTask wraps evt as an asynq task of the event's type.
func NewTask(evt Event) (*asynq.Task, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", evt.Type, err)
	}
	return asynq.NewTask(evt.Type, payload), nil
}

// DecodeEvent reads an event back from a task payload.
func DecodeEvent(t *asynq.Task) (Event, error) {
	var evt Event
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		return Event{}, fmt.Errorf("failed to decode %s task: %w", t.Type(), err)
	}
	return evt, nil
}

type AsynqPublisher struct {
	client   *asynq.Client
	queue    string
	maxRetry int
	logger   *zap.Logger
}

func NewAsynqPublisher(client *asynq.Client, logger *zap.Logger) *AsynqPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsynqPublisher{
		client:   client,
		queue:    QueueEvents,
		maxRetry: 5,
		logger:   logger,
	}
}

func (p *AsynqPublisher) Publish(ctx context.Context, evt Event) error {
	task, err := NewTask(evt)
	if err != nil {
		return err
	}
	info, err := p.client.EnqueueContext(ctx, task, p.options()...)
	if err != nil {
		return fmt.Errorf("failed to enqueue %s: %w", evt.Type, err)
	}
	p.logger.Debug("workflow event enqueued",
		zap.String("type", evt.Type),
		zap.String("document", evt.Document.String()),
		zap.String("taskID", info.ID))
	return nil
}

func (p *AsynqPublisher) options() []asynq.Option {
	return []asynq.Option{
		asynq.Queue(p.queue),
		asynq.MaxRetry(p.maxRetry),
		asynq.Timeout(30 * time.Second),
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, evt Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType filters recorded events by task type.
func (r *Recorder) OfType(eventType string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
