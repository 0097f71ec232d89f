package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/sapliy/status-relay/pkg/observability"
)

type fakeSender struct {
	msgs []Message
	id   string
	err  error
}

func (s *fakeSender) Send(ctx context.Context, msg Message) (string, error) {
	s.msgs = append(s.msgs, msg)
	return s.id, s.err
}

type memoryDeduper struct {
	mu      sync.Mutex
	keys    map[string]bool
	seenErr error
}

func newMemoryDeduper() *memoryDeduper { return &memoryDeduper{keys: map[string]bool{}} }

func (d *memoryDeduper) Seen(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seenErr != nil {
		return false, d.seenErr
	}
	return d.keys[key], nil
}

func (d *memoryDeduper) Mark(ctx context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keys[key] = true
	return nil
}

type capturePublisher struct {
	keys   []string
	events []Event
	err    error
}

func (p *capturePublisher) Publish(ctx context.Context, key string, value []byte) error {
	var e Event
	if err := json.Unmarshal(value, &e); err != nil {
		return err
	}
	p.keys = append(p.keys, key)
	p.events = append(p.events, e)
	return p.err
}

func TestService_ProcessSends(t *testing.T) {
	sender := &fakeSender{id: "msg_1"}
	events := &capturePublisher{}
	svc := NewService(sender, observability.NewNopLogger(), WithEventPublisher(events))

	before := testutil.ToFloat64(EmailsTotal.WithLabelValues(ResultSent))

	if err := svc.Process(context.Background(), "task-1", sampleNotification()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(sender.msgs) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sender.msgs))
	}
	msg := sender.msgs[0]
	if msg.To[0] != "ana@example.com" || msg.Subject != "Status Update: Leave - Approved" {
		t.Errorf("message = %+v", msg)
	}
	wantHTML, _ := RenderStatusEmail(sampleNotification())
	if msg.HTML != wantHTML {
		t.Error("message body differs from the rendered template")
	}

	if got := testutil.ToFloat64(EmailsTotal.WithLabelValues(ResultSent)) - before; got != 1 {
		t.Errorf("sent counter increased by %v, want 1", got)
	}

	if len(events.events) != 1 || events.events[0].Type != EventNotificationSent {
		t.Fatalf("events = %+v", events.events)
	}
	if events.keys[0] != "42" {
		t.Errorf("event key = %q, want notification id", events.keys[0])
	}
	data, err := events.events[0].ParseDeliveryEventData()
	if err != nil {
		t.Fatal(err)
	}
	if data.TaskID != "task-1" || data.MessageID != "msg_1" || data.Recipient != "ana@example.com" {
		t.Errorf("event data = %+v", data)
	}
}

func TestService_ProcessTransportFailure(t *testing.T) {
	providerErr := &TransportError{Recipients: []string{"ana@example.com"}, Err: errors.New("rate limited")}
	sender := &fakeSender{err: providerErr}
	events := &capturePublisher{}
	dedupe := newMemoryDeduper()
	svc := NewService(sender, observability.NewNopLogger(), WithEventPublisher(events), WithDeduper(dedupe))

	before := testutil.ToFloat64(EmailsTotal.WithLabelValues(ResultFailed))

	err := svc.Process(context.Background(), "task-2", sampleNotification())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Process() error = %v, want *TransportError", err)
	}
	if got := testutil.ToFloat64(EmailsTotal.WithLabelValues(ResultFailed)) - before; got != 1 {
		t.Errorf("failed counter increased by %v, want 1", got)
	}
	if len(events.events) != 1 || events.events[0].Type != EventNotificationFailed {
		t.Fatalf("events = %+v", events.events)
	}
	if len(dedupe.keys) != 0 {
		t.Error("a failed delivery must not be marked as sent")
	}
}

func TestService_ProcessSkipsDuplicates(t *testing.T) {
	sender := &fakeSender{id: "msg_1"}
	dedupe := newMemoryDeduper()
	svc := NewService(sender, observability.NewNopLogger(), WithDeduper(dedupe))

	n := sampleNotification()
	for i := 0; i < 2; i++ {
		if err := svc.Process(context.Background(), "task", n); err != nil {
			t.Fatalf("Process() error = %v", err)
		}
	}
	if len(sender.msgs) != 1 {
		t.Errorf("sent %d messages, want 1", len(sender.msgs))
	}

	n.Status = "Rejected"
	if err := svc.Process(context.Background(), "task", n); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(sender.msgs) != 2 {
		t.Errorf("a new status must be delivered, sent %d messages", len(sender.msgs))
	}
}

func TestService_ProcessDeduperUnavailable(t *testing.T) {
	sender := &fakeSender{id: "msg_1"}
	dedupe := newMemoryDeduper()
	dedupe.seenErr = errors.New("connection refused")
	svc := NewService(sender, observability.NewNopLogger(), WithDeduper(dedupe))

	if err := svc.Process(context.Background(), "task", sampleNotification()); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(sender.msgs) != 1 {
		t.Error("deduper errors must not block delivery")
	}
}

func TestService_PublishErrorIgnored(t *testing.T) {
	sender := &fakeSender{id: "msg_1"}
	svc := NewService(sender, observability.NewNopLogger(), WithEventPublisher(&capturePublisher{err: errors.New("broker down")}))

	if err := svc.Process(context.Background(), "task", sampleNotification()); err != nil {
		t.Errorf("Process() error = %v, want nil", err)
	}
}

func TestIdempotencyKey(t *testing.T) {
	n := sampleNotification()
	if got := idempotencyKey(n); got != "notif:sent:42:approved" {
		t.Errorf("idempotencyKey() = %q", got)
	}
}
