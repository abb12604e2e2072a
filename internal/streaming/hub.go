// Package streaming fans out watcher updates to live subscribers.
package streaming

import "context"

// Event types.
const (
	EventPatched = "graph.patched"
	EventFailed  = "graph.failed"
)

// Event is a single update about a watched graph.
type Event struct {
	Workflow string `json:"workflow"`
	Type     string `json:"type"`
	Payload  any    `json:"payload,omitempty"`
}

// EventFilter specifies which events a subscriber wants to receive.
type EventFilter struct {
	Workflow string   `json:"workflow,omitempty"`
	Types    []string `json:"types,omitempty"`
}

// EventHub provides pub/sub for graph updates.
type EventHub interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, filter EventFilter) (<-chan Event, func(), error)
}
