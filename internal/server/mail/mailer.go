// Package mail defines the notification collaborator used by the sharing
// subsystem. Delivery is handled by an external service; this package only
// renders messages and hands them off.
package mail

import (
	"context"

	"github.com/dmitrijs2005/quickstash/internal/logging"
)

// Message is a rendered notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Mailer hands a rendered message to the delivery collaborator. Sends are
// fire-and-forget from the caller's perspective; failures must never be
// surfaced as API errors.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer is the default Mailer. It records the message in the log and
// reports success, which keeps development setups working without a real
// delivery backend.
type LogMailer struct {
	logger logging.Logger
}

// NewLogMailer constructs a LogMailer writing to the given logger.
func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.Info(ctx, "outgoing mail", "to", msg.To, "subject", msg.Subject)
	return nil
}
