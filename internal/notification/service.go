package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/sapliy/status-relay/pkg/observability"
)

// Service renders a status notification and hands it to the email provider.
type Service struct {
	sender  Sender
	deduper Deduper
	events  EventPublisher
	metrics *PrometheusMetrics
	log     *observability.Logger
}

// ServiceOption configures optional collaborators of a Service.
type ServiceOption func(*Service)

// WithDeduper skips notifications that were already delivered.
func WithDeduper(d Deduper) ServiceOption {
	return func(s *Service) { s.deduper = d }
}

// WithEventPublisher publishes a delivery event for every processed task.
func WithEventPublisher(p EventPublisher) ServiceOption {
	return func(s *Service) { s.events = p }
}

func NewService(sender Sender, log *observability.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		sender:  sender,
		metrics: &PrometheusMetrics{},
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process renders and sends the email for n. The returned error is only meant
// for logging; nothing is retried.
func (s *Service) Process(ctx context.Context, taskID string, n *StatusNotification) error {
	ctx, span := otel.Tracer("status-relay/notification").Start(ctx, "notification.process")
	defer span.End()
	span.SetAttributes(
		attribute.String("task.id", taskID),
		attribute.String("notification.id", n.ID),
		attribute.String("notification.type", n.Type),
	)

	log := s.log.WithContext(ctx).With("task_id", taskID, "notification_id", n.ID)

	key := idempotencyKey(n)
	if s.deduper != nil {
		seen, err := s.deduper.Seen(ctx, key)
		if err != nil {
			log.Warn("Idempotency check failed, sending anyway", "error", err)
		} else if seen {
			log.Info("Notification already delivered (idempotent skip)", "status", n.Status)
			s.metrics.RecordEmail(ResultDuplicate)
			return nil
		}
	}

	html, err := RenderStatusEmail(n)
	if err != nil {
		s.fail(ctx, log, taskID, n, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "render failed")
		return fmt.Errorf("render notification %s: %w", n.ID, err)
	}

	log.Info("Preparing email via Resend", "recipient", n.Email)

	timer := s.metrics.StartTimer()
	messageID, err := s.sender.Send(ctx, Message{
		To:      []string{n.Email},
		Subject: StatusSubject(n),
		HTML:    html,
	})
	timer.ObserveDuration()

	if err != nil {
		s.fail(ctx, log, taskID, n, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return err
	}

	log.Info("Email sent via Resend", "recipient", n.Email, "message_id", messageID)
	s.metrics.RecordEmail(ResultSent)
	s.publish(ctx, log, EventNotificationSent, DeliveryEventData{
		TaskID:         taskID,
		NotificationID: n.ID,
		RequestType:    n.Type,
		Status:         n.Status,
		Recipient:      n.Email,
		MessageID:      messageID,
	})

	if s.deduper != nil {
		if err := s.deduper.Mark(ctx, key); err != nil {
			log.Warn("Failed to record idempotency key", "error", err)
		}
	}
	return nil
}

func (s *Service) fail(ctx context.Context, log *observability.Logger, taskID string, n *StatusNotification, err error) {
	var terr *TransportError
	if errors.As(err, &terr) {
		log.Error("Email provider rejected the message", "recipient", n.Email, "error", terr.Err)
	} else {
		log.Error("Failed to process notification", "recipient", n.Email, "error", err)
	}
	s.metrics.RecordEmail(ResultFailed)
	s.publish(ctx, log, EventNotificationFailed, DeliveryEventData{
		TaskID:         taskID,
		NotificationID: n.ID,
		RequestType:    n.Type,
		Status:         n.Status,
		Recipient:      n.Email,
		Error:          err.Error(),
	})
}

func (s *Service) publish(ctx context.Context, log *observability.Logger, eventType EventType, data DeliveryEventData) {
	if s.events == nil {
		return
	}
	event, err := NewEvent(eventType, data)
	if err != nil {
		log.Error("Failed to build delivery event", "error", err)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Error("Failed to encode delivery event", "error", err)
		return
	}
	if err := s.events.Publish(ctx, data.NotificationID, body); err != nil {
		log.Warn("Failed to publish delivery event", "event_type", eventType, "error", err)
	}
}
