package mail

import (
	"context"
	"log/slog"
)

// LogMailer implements ports.Mailer by logging the message instead of
// sending it. Used in development and tests; real delivery goes through the
// provider whose outcomes arrive on the email webhook.
type LogMailer struct {
	logger  *slog.Logger
	baseURL string
}

// NewLogMailer builds a LogMailer. baseURL is the public URL links are built
// against.
func NewLogMailer(logger *slog.Logger, baseURL string) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger, baseURL: baseURL}
}

func (m *LogMailer) SendVerification(ctx context.Context, email, token string) error {
	m.logger.Info("verification email",
		"to", email,
		"link", m.baseURL+"/v1/auth/verify?token="+token)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.logger.Info("password reset email",
		"to", email,
		"link", m.baseURL+"/v1/auth/password-reset/confirm?token="+token)
	return nil
}
