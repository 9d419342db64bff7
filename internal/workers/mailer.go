package workers

import (
	"context"

	"github.com/rs/zerolog"
)

// Mailer delivers account emails
type Mailer interface {
	SendVerification(ctx context.Context, to, name, link string) error
}

// LogMailer writes emails to the log instead of sending them. It is the
// default until an SMTP relay is configured.
type LogMailer struct {
	Logger zerolog.Logger
}

func (m LogMailer) SendVerification(ctx context.Context, to, name, link string) error {
	m.Logger.Info().
		Str("to", to).
		Str("name", name).
		Str("link", link).
		Msg("Verification email")
	return nil
}
