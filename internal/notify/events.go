package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"kehila/internal/platform/kafka"
)

// ApprovedEvent is the JSON payload published when an approval commits, so
// out-of-process consumers (a mail worker, analytics) can react without
// coupling to this service.
type ApprovedEvent struct {
	NationalID  string    `json:"nationalId"`
	Email       string    `json:"email"`
	DocumentURL string    `json:"documentUrl"`
	GroupLink   string    `json:"groupLink,omitempty"`
	ApprovedAt  time.Time `json:"approvedAt"`
}

// EventPublisher emits volunteer.approved events to Kafka. Keyed by national
// id so replays for the same applicant land on one partition in order.
type EventPublisher struct {
	producer *kafka.Producer
	now      func() time.Time
}

// NewEventPublisher wraps the platform producer as a Dispatcher.
func NewEventPublisher(producer *kafka.Producer) *EventPublisher {
	return &EventPublisher{producer: producer, now: time.Now}
}

func (p *EventPublisher) Send(ctx context.Context, n Notification) error {
	event := ApprovedEvent{
		NationalID:  n.NationalID,
		Email:       n.Email,
		DocumentURL: n.DocumentURL,
		GroupLink:   n.GroupLink,
		ApprovedAt:  p.now(),
	}
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal approved event: %w", err)
	}
	return p.producer.Publish(ctx, []byte(n.NationalID), value)
}
