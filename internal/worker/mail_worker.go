// Package worker drains the outbound mail queue and hands each message to
// a Deliverer.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"budgetwatch/internal/amqp"
)

// Deliverer sends one mail to its recipient. Implementations decide the
// transport (SMTP relay, provider API, or the log in development).
type Deliverer interface {
	Deliver(ctx context.Context, from, to, subject, body string) error
}

// MailWorker processes queued mail messages.
type MailWorker struct {
	deliverer Deliverer
	from      string
}

func NewMailWorker(deliverer Deliverer, from string) *MailWorker {
	return &MailWorker{deliverer: deliverer, from: from}
}

// HandleMailMessage delivers a single queued message. A returned error
// requeues the message.
func (w *MailWorker) HandleMailMessage(ctx context.Context, msg *amqp.MailMessage) error {
	slog.InfoContext(ctx, "Processing mail message",
		"to", msg.To,
		"subject", msg.Subject,
		"queued_at", msg.QueuedAt)

	if err := w.deliverer.Deliver(ctx, w.from, msg.To, msg.Subject, msg.Body); err != nil {
		slog.ErrorContext(ctx, "Failed to deliver mail",
			"to", msg.To,
			"subject", msg.Subject,
			"error", err)
		return fmt.Errorf("deliver mail: %w", err)
	}

	slog.InfoContext(ctx, "Mail delivered",
		"to", msg.To,
		"subject", msg.Subject)
	return nil
}

// Run consumes the queue until ctx is cancelled.
func (w *MailWorker) Run(ctx context.Context, client *amqp.Client) error {
	return client.ConsumeMail(ctx, func(msg *amqp.MailMessage) error {
		return w.HandleMailMessage(ctx, msg)
	})
}

// LogDeliverer writes mail to the log instead of sending it. Used when no
// real mail transport is configured.
type LogDeliverer struct{}

func (LogDeliverer) Deliver(ctx context.Context, from, to, subject, body string) error {
	slog.InfoContext(ctx, "Outbound mail (log only)",
		"from", from,
		"to", to,
		"subject", subject,
		"body", body)
	return nil
}
