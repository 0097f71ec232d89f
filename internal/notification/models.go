package notification

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Defaults applied to optional fields that are absent or null.
const (
	DefaultReason   = "No remarks"
	DefaultDays     = 0
	DefaultEntrance = "N/A"
	DefaultOut      = "N/A"
)

// StatusNotification describes a status change of a request (leave, vacation, ...)
// that has to be reported to the requester by email.
type StatusNotification struct {
	ID       string  `json:"id" validate:"required"`
	Type     string  `json:"type" validate:"required"`
	Name     string  `json:"name" validate:"required"`
	Email    string  `json:"email" validate:"required,email"`
	Status   string  `json:"status" validate:"required"`
	Reason   string  `json:"reason"`
	Days     int     `json:"days"`
	Entrance string  `json:"entrance"`
	Out      string  `json:"out"`
	Time     *string `json:"time,omitempty"`
}

// statusNotificationRequest is the wire shape. Optional fields are pointers so
// that absent and null can be told apart from explicit values.
type statusNotificationRequest struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Status   string       `json:"status"`
	Reason   *string      `json:"reason"`
	Days     *wholeNumber `json:"days"`
	Entrance *string      `json:"entrance"`
	Out      *string      `json:"out"`
	Time     *string      `json:"time"`
}

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidationError is returned when an inbound payload cannot be turned into a
// StatusNotification.
type ValidationError struct {
	// Malformed is set when the body is not a decodable JSON object.
	Malformed bool
	Fields    []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "invalid status notification"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "invalid status notification: " + strings.Join(msgs, "; ")
}

// MissingField reports whether the named field was rejected as absent.
func (e *ValidationError) MissingField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field && f.Tag == "required" {
			return true
		}
	}
	return false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DecodeStatusNotification parses a JSON payload, validates it and applies the
// defaults of the optional fields.
func DecodeStatusNotification(r io.Reader) (*StatusNotification, error) {
	var req statusNotificationRequest
	dec := json.NewDecoder(r)
	if err := dec.Decode(&req); err != nil {
		return nil, decodeError(err)
	}
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return nil, &ValidationError{
			Malformed: true,
			Fields:    []FieldError{{Tag: "json", Message: "malformed JSON body: unexpected data after the JSON object"}},
		}
	}

	n := &StatusNotification{
		ID:       req.ID,
		Type:     req.Type,
		Name:     req.Name,
		Email:    req.Email,
		Status:   req.Status,
		Reason:   stringOr(req.Reason, DefaultReason),
		Days:     DefaultDays,
		Entrance: stringOr(req.Entrance, DefaultEntrance),
		Out:      stringOr(req.Out, DefaultOut),
		Time:     req.Time,
	}
	if req.Days != nil {
		n.Days = int(*req.Days)
	}

	if err := n.Validate(); err != nil {
		return nil, err
	}
	return n, nil
}

// Validate checks required fields and the email syntax.
func (n *StatusNotification) Validate() error {
	err := validate.Struct(n)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Fields: []FieldError{{Message: err.Error()}}}
	}

	ve := &ValidationError{}
	for _, fe := range verrs {
		ve.Fields = append(ve.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Message: fieldMessage(fe),
		})
	}
	return ve
}

// ApplyDefaults fills optional fields left at their zero value. It is used for
// records built in code rather than decoded from JSON.
func (n *StatusNotification) ApplyDefaults() {
	if n.Reason == "" {
		n.Reason = DefaultReason
	}
	if n.Entrance == "" {
		n.Entrance = DefaultEntrance
	}
	if n.Out == "" {
		n.Out = DefaultOut
	}
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s must be a valid email address", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return &ValidationError{Fields: []FieldError{{
			Field:   typeErr.Field,
			Tag:     "type",
			Message: fmt.Sprintf("%s must be of type %s", typeErr.Field, typeErr.Type),
		}}}
	}
	return &ValidationError{
		Malformed: true,
		Fields:    []FieldError{{Tag: "json", Message: fmt.Sprintf("malformed JSON body: %v", err)}},
	}
}

// wholeNumber accepts JSON numbers with no fractional part, so 5 and 5.0 both
// decode to 5.
type wholeNumber int

var intType = reflect.TypeOf(0)

func (w *wholeNumber) UnmarshalJSON(b []byte) error {
	lit := string(b)
	if i, err := strconv.ParseInt(lit, 10, strconv.IntSize); err == nil {
		*w = wholeNumber(i)
		return nil
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return &json.UnmarshalTypeError{Value: jsonKind(b), Type: intType}
	}
	if f != math.Trunc(f) || f < math.MinInt || f >= math.MaxInt {
		return &json.UnmarshalTypeError{Value: "number " + lit, Type: intType}
	}
	*w = wholeNumber(f)
	return nil
}

func jsonKind(b []byte) string {
	switch {
	case len(b) == 0:
		return "value"
	case b[0] == '"':
		return "string"
	case b[0] == '{':
		return "object"
	case b[0] == '[':
		return "array"
	case b[0] == 't' || b[0] == 'f':
		return "bool"
	default:
		return "value"
	}
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
