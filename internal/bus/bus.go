// Package bus defines the MessageBus contract shared by the pipeline
// stages: publish (topic, key, payload), subscribe by (topic,
// consumer_group, handler), at-least-once delivery within a group,
// ordering preserved for messages sharing a key.
package bus

import "context"

// Handler processes one message. A returned error is logged and the
// offset still advances (or is retried with bounded backoff,
// implementation-defined) — a handler failure must never block the
// consumer group.
type Handler func(ctx context.Context, key string, payload []byte) error

// MessageBus is the pub/sub contract consumed by every pipeline stage.
type MessageBus interface {
	// Publish sends payload to topic, partitioned by key so that
	// messages sharing a key are delivered in publish order within a
	// consumer group.
	Publish(ctx context.Context, topic, key string, payload []byte) error

	// Subscribe registers handler for topic under consumer group
	// group. Multiple subscriptions to the same (topic, group) fan out
	// across the registered handlers' partition assignment; this
	// implementation registers exactly one handler per (topic, group).
	Subscribe(topic, group string, handler Handler) error

	// Close drains in-flight handlers and releases resources. It
	// blocks until shutdown completes or ctx is done.
	Close(ctx context.Context) error
}

const (
	TopicRawFeeds   = "raw_feeds"
	TopicNormalized = "normalized"
	TopicScored     = "scored"
	TopicTagged     = "tagged"
	TopicEvents     = "events"
)
