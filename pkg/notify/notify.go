// Package notify delivers retention notifications. Rendering and mail
// delivery belong to downstream consumers; senders here only hand the
// message off.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"mercator-hq/custodian/pkg/messaging"
)

// ErrNoRecipients is returned when Send is called without recipients.
var ErrNoRecipients = errors.New("no recipients")

// Sender delivers a notification.
type Sender interface {
	Send(ctx context.Context, recipients []string, subject, body string) error
}

// Message is the payload published for external mailers.
type Message struct {
	ID         string    `json:"id"`
	Recipients []string  `json:"recipients"`
	Subject    string    `json:"subject"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// Log writes notifications to the structured log.
type Log struct {
	logger *slog.Logger
}

// NewLog creates a log sender.
func NewLog() *Log {
	return &Log{logger: slog.Default().With("component", "notify.log")}
}

// Send implements Sender.
func (l *Log) Send(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}
	l.logger.InfoContext(ctx, "notification",
		"recipients", recipients,
		"subject", subject,
		"body", body,
	)
	return nil
}

// PubSub publishes notifications as JSON messages.
type PubSub struct {
	publisher messaging.Publisher
	logger    *slog.Logger
}

// NewPubSub creates a sender on top of publisher.
func NewPubSub(publisher messaging.Publisher) *PubSub {
	return &PubSub{
		publisher: publisher,
		logger:    slog.Default().With("component", "notify.pubsub"),
	}
}

// Send implements Sender.
func (p *PubSub) Send(ctx context.Context, recipients []string, subject, body string) error {
	if len(recipients) == 0 {
		return ErrNoRecipients
	}

	msg := Message{
		ID:         uuid.New().String(),
		Recipients: recipients,
		Subject:    subject,
		Body:       body,
		CreatedAt:  time.Now().UTC(),
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	serverID, err := p.publisher.Publish(ctx, data, map[string]string{"type": "retention.notification"})
	if err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	p.logger.DebugContext(ctx, "notification published",
		"message_id", msg.ID,
		"server_id", serverID,
		"recipient_count", len(recipients),
	)
	return nil
}

// Close closes the underlying publisher.
func (p *PubSub) Close() error {
	return p.publisher.Close()
}

// Recording keeps sent notifications in memory.
type Recording struct {
	Sent []Message
	Err  error
}

// Send implements Sender.
func (r *Recording) Send(ctx context.Context, recipients []string, subject, body string) error {
	if r.Err != nil {
		return r.Err
	}
	r.Sent = append(r.Sent, Message{Recipients: recipients, Subject: subject, Body: body})
	return nil
}
