package notification

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of delivery event
type EventType string

const (
	EventNotificationSent   EventType = "notification.sent"
	EventNotificationFailed EventType = "notification.failed"
)

// Event is the envelope for all delivery events
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// DeliveryEventData describes the outcome of one processed task.
type DeliveryEventData struct {
	TaskID         string `json:"task_id"`
	NotificationID string `json:"notification_id"`
	RequestType    string `json:"request_type"`
	Status         string `json:"status"`
	Recipient      string `json:"recipient"`
	MessageID      string `json:"message_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

// EventPublisher publishes a keyed message, e.g. to a kafka topic.
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType EventType, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        "evt_" + uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      dataBytes,
	}, nil
}

// ParseDeliveryEventData parses the event data as DeliveryEventData
func (e *Event) ParseDeliveryEventData() (*DeliveryEventData, error) {
	var data DeliveryEventData
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, err
	}
	return &data, nil
}
