package main

import (
	"errors"
	"net/http"

	"github.com/sapliy/status-relay/internal/notification"
	"github.com/sapliy/status-relay/pkg/jsonutil"
	"github.com/sapliy/status-relay/pkg/observability"
)

const (
	serviceName  = "status-relay"
	maxBodyBytes = 1 << 20

	acceptedMessage = "Request received. The agent will send the email via Resend."
)

// taskQueue is the part of the dispatcher the handlers need.
type taskQueue interface {
	Dispatch(n notification.StatusNotification) (string, error)
	Len() int
}

type RelayHandler struct {
	dispatcher taskQueue
	log        *observability.Logger
	metrics    *notification.PrometheusMetrics
	// amqpStatus reports the broker connection as "true", "false" or "disabled".
	amqpStatus func() string
}

func NewRelayHandler(dispatcher taskQueue, log *observability.Logger, amqpStatus func() string) *RelayHandler {
	if amqpStatus == nil {
		amqpStatus = func() string { return "disabled" }
	}
	return &RelayHandler{
		dispatcher: dispatcher,
		log:        log,
		metrics:    &notification.PrometheusMetrics{},
		amqpStatus: amqpStatus,
	}
}

type processResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	TaskID  string `json:"task_id,omitempty"`
}

// ProcessRequest validates a status notification and schedules its email.
// The response never reflects the delivery outcome.
func (h *RelayHandler) ProcessRequest(w http.ResponseWriter, r *http.Request) {
	log := h.log.WithContext(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	n, err := notification.DecodeStatusNotification(r.Body)
	if err != nil {
		h.metrics.RecordRequest("http", "rejected")
		h.writeValidationError(w, log, err)
		return
	}

	taskID, err := h.dispatcher.Dispatch(*n)
	switch {
	case err == nil:
		h.metrics.RecordRequest("http", "accepted")
		log.Info("Notification scheduled",
			"task_id", taskID,
			"notification_id", n.ID,
			"recipient", n.Email)
	case errors.Is(err, notification.ErrQueueFull), errors.Is(err, notification.ErrDispatcherStopped):
		h.metrics.RecordRequest("http", "dropped")
		log.Error("Notification dropped", "notification_id", n.ID, "error", err)
	default:
		h.metrics.RecordRequest("http", "dropped")
		log.Error("Failed to schedule notification", "notification_id", n.ID, "error", err)
	}

	jsonutil.WriteJSON(w, http.StatusOK, processResponse{
		Status:  "success",
		Message: acceptedMessage,
		TaskID:  taskID,
	})
}

func (h *RelayHandler) writeValidationError(w http.ResponseWriter, log *observability.Logger, err error) {
	var ve *notification.ValidationError
	if !errors.As(err, &ve) {
		log.Error("Unexpected decode error", "error", err)
		jsonutil.WriteErrorJSON(w, "Invalid request body")
		return
	}

	log.Warn("Rejected status notification", "error", ve)

	switch {
	case ve.Malformed:
		jsonutil.WriteErrorJSONStatus(w, http.StatusBadRequest, "Invalid JSON body", ve.Fields)
	case ve.MissingField("email"):
		jsonutil.WriteErrorJSONStatus(w, http.StatusBadRequest, "Email address is required", ve.Fields)
	default:
		jsonutil.WriteErrorJSONStatus(w, http.StatusUnprocessableEntity, "Validation failed", ve.Fields)
	}
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	QueueDepth    int    `json:"queue_depth"`
	AMQPConnected string `json:"amqp_connected"`
}

func (h *RelayHandler) Health(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusOK, healthResponse{
		Status:        "active",
		Service:       serviceName,
		QueueDepth:    h.dispatcher.Len(),
		AMQPConnected: h.amqpStatus(),
	})
}
