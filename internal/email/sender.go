// Package email provides outbound email delivery: nurture sequence steps,
// agent notifications and transactional account mail.
package email

import (
	"context"

	"efficity_backend/platform/config"
)

// Sender is the delivery port. Implementations must be safe for concurrent
// use; the scheduler worker sends from multiple goroutines.
type Sender interface {
	// SendNurtureEmail delivers one rendered sequence step to a lead.
	SendNurtureEmail(ctx context.Context, toEmail, subject, htmlContent string) error

	// SendHotLeadAlert notifies an agent that a lead entered a top tier.
	SendHotLeadAlert(ctx context.Context, toEmail, agentName, leadName string, score float64, tier string) error

	// SendPasswordResetEmail sends the account recovery link.
	SendPasswordResetEmail(ctx context.Context, toEmail, resetURL string) error

	// SendCustomEmail delivers arbitrary pre-rendered content.
	SendCustomEmail(ctx context.Context, toEmail, subject, htmlContent string) error
}

// NoopSender drops all mail. Used in development and in tests.
type NoopSender struct{}

func (NoopSender) SendNurtureEmail(context.Context, string, string, string) error { return nil }

func (NoopSender) SendHotLeadAlert(context.Context, string, string, string, float64, string) error {
	return nil
}

func (NoopSender) SendPasswordResetEmail(context.Context, string, string) error { return nil }

func (NoopSender) SendCustomEmail(context.Context, string, string, string) error { return nil }

var _ Sender = NoopSender{}

// NewSender picks SMTP delivery when configured, the noop sender otherwise.
func NewSender(cfg config.EmailConfig) Sender {
	if !cfg.GetEmailEnabled() || cfg.GetSMTPHost() == "" {
		return NoopSender{}
	}
	return NewSMTPSender(
		cfg.GetSMTPHost(),
		cfg.GetSMTPPort(),
		cfg.GetSMTPUsername(),
		cfg.GetSMTPPassword(),
		cfg.GetEmailFromAddress(),
		cfg.GetEmailFromName(),
	)
}
