// Package mail defines the outbound-mail boundary. Delivery is
// fire-and-forget: a failed send is logged by the caller and never fails
// the request that triggered it.
package mail

import (
	"context"
	"log/slog"

	"budgetwatch/internal/amqp"
)

// Mailer hands one message to the mail transport.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// QueueMailer publishes messages to the outbound AMQP queue; the mail
// worker picks them up and delivers them.
type QueueMailer struct {
	client *amqp.Client
}

func NewQueueMailer(client *amqp.Client) *QueueMailer {
	return &QueueMailer{client: client}
}

func (m *QueueMailer) Send(ctx context.Context, to, subject, body string) error {
	return m.client.PublishMail(ctx, amqp.NewMailMessage(to, subject, body))
}

// LogMailer writes messages to the log instead of delivering them. Used
// when no queue is configured.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, to, subject, body string) error {
	slog.InfoContext(ctx, "Mail delivery skipped (no queue configured)",
		"to", to,
		"subject", subject,
		"body_bytes", len(body))
	return nil
}
