// Package pubsub provides a generic publish/subscribe event system used to
// push totals and log lines to display surfaces.
package pubsub

import (
	"context"
	"time"
)

// EventType represents the type of event being published.
type EventType string

const (
	// CreatedEvent marks a newly produced item, such as a log line.
	CreatedEvent EventType = "created"

	// EpisodeRecorded is published after a flush updated the totals.
	EpisodeRecorded EventType = "episode_recorded"
	// SinkFailed is published when a record could not be appended to the log.
	SinkFailed EventType = "sink_failed"
	// LoggingToggled is published when capture is enabled or disabled.
	LoggingToggled EventType = "logging_toggled"
)

// Event represents a published event with a typed payload.
type Event[T any] struct {
	// Seq increases by one per Publish on the same broker.
	Seq       uint64
	Type      EventType
	Payload   T
	Timestamp time.Time
}

// Subscriber provides a subscription channel for events.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan Event[T]
}

// Publisher allows publishing events with a typed payload.
type Publisher[T any] interface {
	Publish(eventType EventType, payload T) int
}
