package mailx

import (
	"context"
	"log/slog"
)

// LogMailer writes messages to the service log instead of delivering them.
// Used in development where no relay is configured; the verification link
// shows up in the log output.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, to, subject string, msg Message) error {
	m.Logger.Info("mail dispatch (log only)",
		"to", to,
		"subject", subject,
		"description", msg.Description,
		"link", msg.Link,
	)
	return nil
}
