package sink

import (
	"context"
	"encoding/json"

	"mercator-hq/custodian/pkg/audit"
	"mercator-hq/custodian/pkg/messaging"
)

// PubSub publishes every event as a JSON message. Attributes carry the
// action and entity so subscribers can filter without decoding.
type PubSub struct {
	publisher messaging.Publisher
}

// NewPubSub creates a sink on top of publisher.
func NewPubSub(publisher messaging.Publisher) *PubSub {
	return &PubSub{publisher: publisher}
}

// Append publishes the event and returns its audit id.
func (p *PubSub) Append(ctx context.Context, event *audit.Event) (string, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return "", audit.NewSinkError("pubsub", "marshal", err)
	}

	_, err = p.publisher.Publish(ctx, data, map[string]string{
		"action":      string(event.Action),
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID,
	})
	if err != nil {
		return "", audit.NewSinkError("pubsub", "publish", err)
	}
	return event.ID, nil
}

// Close closes the publisher.
func (p *PubSub) Close() error {
	return p.publisher.Close()
}
