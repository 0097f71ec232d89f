package notification

import (
	"bytes"
	"errors"

	"github.com/sapliy/status-relay/pkg/observability"
)

// TaskDispatcher schedules a notification for background delivery.
type TaskDispatcher interface {
	Dispatch(n StatusNotification) (string, error)
}

// QueueConsumer turns broker messages into dispatched tasks.
type QueueConsumer struct {
	dispatcher TaskDispatcher
	log        *observability.Logger
	metrics    *PrometheusMetrics
}

func NewQueueConsumer(dispatcher TaskDispatcher, log *observability.Logger) *QueueConsumer {
	return &QueueConsumer{dispatcher: dispatcher, log: log, metrics: &PrometheusMetrics{}}
}

// Handle processes one message body. Invalid messages are dropped (nil error)
// so they are acknowledged; a full or stopped dispatcher returns an error so
// the message is requeued.
func (c *QueueConsumer) Handle(body []byte) error {
	n, err := DecodeStatusNotification(bytes.NewReader(body))
	if err != nil {
		c.log.Warn("Dropping invalid queued notification", "error", err)
		c.metrics.RecordRequest("amqp", "rejected")
		return nil
	}

	taskID, err := c.dispatcher.Dispatch(*n)
	if err != nil {
		if errors.Is(err, ErrQueueFull) || errors.Is(err, ErrDispatcherStopped) {
			c.metrics.RecordRequest("amqp", "requeued")
			return err
		}
		c.log.Error("Failed to dispatch queued notification", "notification_id", n.ID, "error", err)
		c.metrics.RecordRequest("amqp", "dropped")
		return nil
	}

	c.log.Info("Queued notification dispatched", "task_id", taskID, "notification_id", n.ID)
	c.metrics.RecordRequest("amqp", "accepted")
	return nil
}
