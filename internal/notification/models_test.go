package notification

import (
	"errors"
	"strings"
	"testing"
)

func TestDecodeStatusNotification(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		malformed  bool
		missing    string
		wantReason string
		wantDays   int
		wantEntr   string
		wantOut    string
	}{
		{
			name:       "all fields",
			body:       `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved","reason":"Family","days":3,"entrance":"2024-07-01","out":"2024-07-03","time":"09:00"}`,
			wantReason: "Family", wantDays: 3, wantEntr: "2024-07-01", wantOut: "2024-07-03",
		},
		{
			name:       "optional fields absent",
			body:       `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved"}`,
			wantReason: DefaultReason, wantDays: DefaultDays, wantEntr: DefaultEntrance, wantOut: DefaultOut,
		},
		{
			name:       "optional fields null",
			body:       `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved","reason":null,"days":null,"entrance":null,"out":null}`,
			wantReason: DefaultReason, wantDays: DefaultDays, wantEntr: DefaultEntrance, wantOut: DefaultOut,
		},
		{
			name:       "explicit empty reason kept",
			body:       `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved","reason":""}`,
			wantReason: "", wantDays: DefaultDays, wantEntr: DefaultEntrance, wantOut: DefaultOut,
		},
		{name: "missing email", body: `{"id":"42","type":"Leave","name":"Ana","status":"Approved"}`, wantErr: true, missing: "email"},
		{name: "empty email", body: `{"id":"42","type":"Leave","name":"Ana","email":"","status":"Approved"}`, wantErr: true, missing: "email"},
		{name: "missing type", body: `{"id":"42","name":"Ana","email":"ana@example.com","status":"Approved"}`, wantErr: true, missing: "type"},
		{name: "empty type", body: `{"id":"42","type":"","name":"Ana","email":"ana@example.com","status":"Approved"}`, wantErr: true, missing: "type"},
		{name: "missing name", body: `{"id":"42","type":"Leave","email":"ana@example.com","status":"Approved"}`, wantErr: true, missing: "name"},
		{name: "empty name", body: `{"id":"42","type":"Leave","name":"","email":"ana@example.com","status":"Approved"}`, wantErr: true, missing: "name"},
		{name: "missing status", body: `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com"}`, wantErr: true, missing: "status"},
		{
			name:       "whole float days",
			body:       `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved","days":5.0}`,
			wantReason: DefaultReason, wantDays: 5, wantEntr: DefaultEntrance, wantOut: DefaultOut,
		},
		{
			name:       "trailing whitespace",
			body:       "{\"id\":\"42\",\"type\":\"Leave\",\"name\":\"Ana\",\"email\":\"ana@example.com\",\"status\":\"Approved\"}\n \n",
			wantReason: DefaultReason, wantDays: DefaultDays, wantEntr: DefaultEntrance, wantOut: DefaultOut,
		},
		{name: "fractional days", body: `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved","days":5.5}`, wantErr: true},
		{name: "trailing garbage", body: `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved"} garbage`, wantErr: true, malformed: true},
		{name: "second object", body: `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved"}{}`, wantErr: true, malformed: true},
		{name: "missing id", body: `{"type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved"}`, wantErr: true, missing: "id"},
		{name: "bad email", body: `{"id":"42","type":"Leave","name":"Ana","email":"nope","status":"Approved"}`, wantErr: true},
		{name: "wrong type", body: `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved","days":"x"}`, wantErr: true},
		{name: "truncated json", body: `{"id":"42"`, wantErr: true, malformed: true},
		{name: "not an object", body: `[1,2]`, wantErr: true, malformed: true},
		{name: "empty body", body: ``, wantErr: true, malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := DecodeStatusNotification(strings.NewReader(tt.body))
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected *ValidationError, got %v", err)
				}
				if ve.Malformed != tt.malformed {
					t.Errorf("Malformed = %v, want %v", ve.Malformed, tt.malformed)
				}
				if tt.missing != "" && !ve.MissingField(tt.missing) {
					t.Errorf("expected %q to be reported missing, got %+v", tt.missing, ve.Fields)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.Reason != tt.wantReason || n.Days != tt.wantDays || n.Entrance != tt.wantEntr || n.Out != tt.wantOut {
				t.Errorf("got reason=%q days=%d entrance=%q out=%q", n.Reason, n.Days, n.Entrance, n.Out)
			}
		})
	}
}

func TestValidationError_MissingFieldOnlyForRequired(t *testing.T) {
	_, err := DecodeStatusNotification(strings.NewReader(`{"id":"42","type":"Leave","name":"Ana","email":"nope","status":"Approved"}`))
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	if ve.MissingField("email") {
		t.Error("a malformed email is not a missing email")
	}
	if !strings.Contains(ve.Error(), "email must be a valid email address") {
		t.Errorf("Error() = %q", ve.Error())
	}
}

func TestDecodeStatusNotification_DaysTypeError(t *testing.T) {
	for _, days := range []string{`"three"`, `5.5`, `true`, `[1]`} {
		body := `{"id":"42","type":"Leave","name":"Ana","email":"ana@example.com","status":"Approved","days":` + days + `}`
		_, err := DecodeStatusNotification(strings.NewReader(body))
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Fatalf("days=%s: expected *ValidationError, got %v", days, err)
		}
		if ve.Malformed || len(ve.Fields) != 1 || ve.Fields[0].Field != "days" || ve.Fields[0].Tag != "type" {
			t.Errorf("days=%s: got %+v", days, ve)
		}
	}
}

func TestApplyDefaults(t *testing.T) {
	n := &StatusNotification{ID: "1", Reason: "kept"}
	n.ApplyDefaults()
	if n.Reason != "kept" || n.Entrance != DefaultEntrance || n.Out != DefaultOut {
		t.Errorf("ApplyDefaults() = %+v", n)
	}
}
