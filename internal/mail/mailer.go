// Package mail dispatches the vote-confirmation email. Delivery goes
// through the Resend REST API; a no-op implementation is installed when
// mail is disabled (local development, tests) so the vote flow can run
// without credentials.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog/log"
)

// Mailer sends the confirmation link for a pending vote.
//
// Implementations must be safe for concurrent use. Send is a blocking call
// performed inline during the vote-submission request; implementations may
// retry transient provider failures but must respect ctx.
type Mailer interface {
	// SendConfirmation emails confirmURL to the voter. question is the poll
	// question, used for the email body.
	SendConfirmation(ctx context.Context, toEmail, question, confirmURL string) error
}

// NoopMailer logs instead of sending. Used when MAIL_ENABLED is false.
type NoopMailer struct{}

// SendConfirmation logs the confirmation URL and returns nil.
func (NoopMailer) SendConfirmation(_ context.Context, toEmail, _ string, confirmURL string) error {
	log.Info().Str("to", toEmail).Str("confirm_url", confirmURL).Msg("mail disabled, skipping confirmation email")
	return nil
}

// ResendMailer delivers confirmation emails via the Resend REST API.
type ResendMailer struct {
	from   string
	client *resend.Client
}

// NewResendMailer constructs a ResendMailer. Both the API key and the
// sender address are required.
func NewResendMailer(apiKey, from string) (*ResendMailer, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("resend api key is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("mail sender address is required")
	}
	return &ResendMailer{from: from, client: resend.NewClient(apiKey)}, nil
}

// SendConfirmation sends the confirmation link to toEmail. Provider
// rate-limit responses and transient network timeouts are retried up to
// three times; any other failure is returned immediately.
func (m *ResendMailer) SendConfirmation(ctx context.Context, toEmail, question, confirmURL string) error {
	if toEmail == "" || confirmURL == "" {
		return fmt.Errorf("toEmail and confirmURL are required")
	}

	params := &resend.SendEmailRequest{
		From:    m.from,
		To:      []string{toEmail},
		Subject: "Confirm your vote",
		Text: fmt.Sprintf("Confirm your vote for %q by opening %s. The link is valid for 1 hour.",
			question, confirmURL),
		Html: fmt.Sprintf(`<h2>Confirm your vote</h2>
<p>To complete your vote for <strong>%s</strong>, click the link below:</p>
<p><a href=%q style="background:#4F46E5;color:#fff;padding:10px 16px;border-radius:6px;text-decoration:none;">Confirm my vote</a></p>
<p style="color:#666">This link is valid for 1 hour.</p>`, question, confirmURL),
	}

	options := &resend.SendEmailOptions{}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		_, err := m.client.Emails.SendWithOptions(ctx, params, options)
		if err == nil {
			return nil
		}
		lastErr = err

		if wait, ok := retryDelay(err, attempt); ok {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
				continue
			}
		}
		return fmt.Errorf("resend send failed: %w", err)
	}
	return fmt.Errorf("resend send failed after retries: %w", lastErr)
}

// retryDelay decides whether err is worth retrying and how long to back
// off. Only provider rate limits and transient network timeouts qualify.
func retryDelay(err error, attempt int) (time.Duration, bool) {
	var rateLimitErr *resend.RateLimitError
	if errors.As(err, &rateLimitErr) {
		if seconds, convErr := strconv.Atoi(strings.TrimSpace(rateLimitErr.RetryAfter)); convErr == nil && seconds > 0 {
			if seconds > 30 {
				seconds = 30
			}
			return time.Duration(seconds) * time.Second, true
		}
		return time.Duration(attempt+1) * time.Second, true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "temporar") {
		return time.Duration(attempt+1) * 500 * time.Millisecond, true
	}
	return 0, false
}
