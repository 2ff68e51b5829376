// Package messaging publishes JSON messages to Google Cloud Pub/Sub. It is
// shared by the audit and notification pub/sub adapters.
package messaging

import (
	"context"
	"errors"
	"log/slog"

	"mercator-hq/custodian/pkg/telemetry/tracing"

	"cloud.google.com/go/pubsub"
)

// Publisher publishes one message and returns the server-assigned id.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error)
	Close() error
}

// TopicConfig identifies a Pub/Sub topic.
type TopicConfig struct {
	ProjectID string
	TopicID   string
}

// TopicPublisher publishes to a single Pub/Sub topic. Set
// PUBSUB_EMULATOR_HOST to target the local emulator.
type TopicPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *slog.Logger
}

// NewTopicPublisher creates a client for cfg.ProjectID bound to cfg.TopicID.
func NewTopicPublisher(ctx context.Context, cfg TopicConfig) (*TopicPublisher, error) {
	if cfg.ProjectID == "" || cfg.TopicID == "" {
		return nil, errors.New("pubsub project id and topic id are required")
	}

	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, err
	}

	p := &TopicPublisher{
		client: client,
		topic:  client.Topic(cfg.TopicID),
		logger: slog.Default().With("component", "messaging.pubsub", "topic", cfg.TopicID),
	}
	p.logger.Info("pubsub publisher initialized", "project_id", cfg.ProjectID)
	return p, nil
}

// Publish sends data and waits for the server acknowledgement. The trace
// context of ctx is added to the message attributes.
func (p *TopicPublisher) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	attrs := make(map[string]string, len(attributes)+2)
	for k, v := range attributes {
		attrs[k] = v
	}
	tracing.InjectToMap(ctx, attrs)

	res := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: attrs,
	})

	id, err := res.Get(ctx)
	if err != nil {
		return "", err
	}
	p.logger.Debug("message published", "message_id", id)
	return id, nil
}

// Close flushes pending messages and closes the client.
func (p *TopicPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
