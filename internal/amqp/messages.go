package amqp

import (
	"encoding/json"
	"time"
)

// MailMessage is one outbound email queued for asynchronous delivery.
// The worker consumes these and hands them to the mail transport.
type MailMessage struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	QueuedAt time.Time `json:"queued_at"`
}

// NewMailMessage creates a message stamped with the current time.
func NewMailMessage(to, subject, body string) *MailMessage {
	return &MailMessage{
		To:       to,
		Subject:  subject,
		Body:     body,
		QueuedAt: time.Now().UTC(),
	}
}

// ToJSON serializes the message for publishing.
func (m *MailMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MailMessageFromJSON creates a message from JSON bytes.
func MailMessageFromJSON(data []byte) (*MailMessage, error) {
	var msg MailMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
