// Package events publishes notifications about images and transforms to
// websocket clients and the message broker.
package events

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	TransformCompleted = "transform.completed"
	TransformFailed    = "transform.failed"
	ImageUploaded      = "image.uploaded"
	ImageDeleted       = "image.deleted"
)

// Event is the JSON body sent to every subscriber.
type Event struct {
	Type      string                 `json:"type"`
	ImageID   string                 `json:"imageId,omitempty"`
	VariantID string                 `json:"variantId,omitempty"`
	URL       string                 `json:"url,omitempty"`
	Options   string                 `json:"options,omitempty"`
	Error     string                 `json:"error,omitempty"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// New stamps an event of type t with the current time.
func New(t string) Event {
	return Event{Type: t, Timestamp: time.Now().Unix()}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Multi delivers an event to every publisher. Failures are logged and never
// returned, so a broken subscriber cannot fail the operation that emitted it.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			logrus.WithFields(logrus.Fields{
				"component": "events",
				"type":      event.Type,
			}).WithError(err).Warn("failed to publish event")
		}
	}
	return nil
}
