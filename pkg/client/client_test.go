package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitStatus(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/ai-process-request" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","message":"Request received. The agent will send the email via Resend.","task_id":"t-1"}`))
	}))
	defer server.Close()

	c := New(server.URL+"/", WithHTTPClient(server.Client()))
	ack, err := c.SubmitStatus(context.Background(), &StatusNotification{
		ID: "42", Type: "Leave", Name: "Ana", Email: "ana@example.com", Status: "Approved",
		Reason: "Family", Days: 3, Entrance: "2024-07-01", Out: "2024-07-03",
	})
	if err != nil {
		t.Fatalf("SubmitStatus() error = %v", err)
	}
	if ack.Status != "success" || ack.TaskID != "t-1" {
		t.Errorf("ack = %+v", ack)
	}
	if got["email"] != "ana@example.com" || got["days"] != float64(3) {
		t.Errorf("request body = %v", got)
	}
}

func TestSubmitStatus_APIError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
	}{
		{name: "json envelope", status: http.StatusBadRequest, body: `{"error":"Email address is required","details":[{"field":"email"}]}`, wantMessage: "Email address is required"},
		{name: "plain text", status: http.StatusBadGateway, body: "upstream down", wantMessage: "upstream down"},
		{name: "empty body", status: http.StatusServiceUnavailable, body: "", wantMessage: "Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := New(server.URL).SubmitStatus(context.Background(), &StatusNotification{})
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", apiErr.StatusCode, tt.status)
			}
			if apiErr.Message != tt.wantMessage {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMessage)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"status":"active","service":"status-relay","queue_depth":2,"amqp_connected":"disabled"}`))
	}))
	defer server.Close()

	h, err := New(server.URL).Health(context.Background())
	if err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	if h.Status != "active" || h.QueueDepth != 2 || h.AMQPConnected != "disabled" {
		t.Errorf("health = %+v", h)
	}
}

func TestNew_DefaultBaseURL(t *testing.T) {
	if c := New(""); c.baseURL != DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, DefaultBaseURL)
	}
}
