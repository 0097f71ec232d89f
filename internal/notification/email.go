package notification

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v2"
)

// DefaultFromEmail is the Resend sandbox sender, usable without a verified domain.
const DefaultFromEmail = "HR Agent <onboarding@resend.dev>"

// Message is a single email handed to a Sender.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
}

// Sender submits email messages to a provider and returns the provider
// assigned message id.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// TransportError is returned when the email provider rejects or fails a send.
type TransportError struct {
	Recipients []string
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to send email via Resend to %s: %v", strings.Join(e.Recipients, ","), e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EmailConfig configures the Resend backed EmailService.
type EmailConfig struct {
	APIKey string
	From   string
	// ContactEmail, when set, receives every message instead of the real
	// recipient. Used in development.
	ContactEmail string
	// BaseURL overrides the Resend API endpoint.
	BaseURL string
}

type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// EmailService handles sending emails via Resend
type EmailService struct {
	emails       emailsAPI
	fromEmail    string
	contactEmail string
}

// NewEmailService creates a new email service
func NewEmailService(cfg EmailConfig) (*EmailService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("resend api key is required")
	}

	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid resend base url: %w", err)
		}
		client.BaseURL = u
	}

	return newEmailService(client.Emails, cfg), nil
}

func newEmailService(emails emailsAPI, cfg EmailConfig) *EmailService {
	from := cfg.From
	if from == "" {
		from = DefaultFromEmail
	}
	return &EmailService{
		emails:       emails,
		fromEmail:    from,
		contactEmail: cfg.ContactEmail,
	}
}

// From returns the configured sender address.
func (s *EmailService) From() string { return s.fromEmail }

// Send submits msg to Resend. An empty From is replaced with the configured sender.
func (s *EmailService) Send(ctx context.Context, msg Message) (string, error) {
	if msg.From == "" {
		msg.From = s.fromEmail
	}
	if len(msg.To) == 0 {
		return "", &TransportError{Err: errors.New("no recipients")}
	}

	recipients := msg.To
	subject := msg.Subject
	if s.contactEmail != "" {
		subject = fmt.Sprintf("[DEV-REDIRECT] %s (Original: %s)", subject, strings.Join(msg.To, ","))
		recipients = []string{s.contactEmail}
	}

	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      recipients,
		Subject: subject,
		Html:    msg.HTML,
	}

	sent, err := s.emails.SendWithContext(ctx, params)
	if err != nil {
		return "", &TransportError{Recipients: recipients, Err: err}
	}
	if sent == nil {
		return "", nil
	}
	return sent.Id, nil
}
