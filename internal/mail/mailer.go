// Package mail sends transactional email. Every send in the application is
// best-effort: failures are logged and never alter the outcome of the
// operation that triggered them.
package mail

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// sendTimeout bounds how long a best-effort send may hold up the caller's
// goroutine.
const sendTimeout = 10 * time.Second

// Message is a single outbound email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Mailer sends a single message. May return an error; callers that must not
// fail use SendBestEffort.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridMailer sends through the SendGrid API.
type SendGridMailer struct {
	apiKey   string
	from     string
	fromName string
}

// NewSendGridMailer creates a SendGrid-backed mailer.
func NewSendGridMailer(apiKey, from, fromName string) *SendGridMailer {
	return &SendGridMailer{apiKey: apiKey, from: from, fromName: fromName}
}

// Send delivers the message through SendGrid.
func (m *SendGridMailer) Send(ctx context.Context, msg Message) error {
	from := sgmail.NewEmail(m.fromName, m.from)
	to := sgmail.NewEmail("", msg.To)
	message := sgmail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)

	client := sendgrid.NewSendClient(m.apiKey)
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}
	return nil
}

// NoopMailer drops messages; used when no SendGrid key is configured and in
// tests.
type NoopMailer struct{}

// Send logs and discards the message.
func (NoopMailer) Send(ctx context.Context, msg Message) error {
	log.Debug().Str("to", msg.To).Str("subject", msg.Subject).Msg("Mailer not configured, dropping email")
	return nil
}

// SendBestEffort sends msg under a bounded timeout, logging and swallowing
// any error. The caller's operation never fails because of email.
func SendBestEffort(ctx context.Context, mailer Mailer, msg Message) {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := mailer.Send(ctx, msg); err != nil {
		log.Warn().Err(err).Str("to", msg.To).Str("subject", msg.Subject).Msg("Failed to send email")
	}
}
