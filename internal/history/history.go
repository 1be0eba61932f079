package history

import (
	"context"
	"time"
)

// EventType defines the kind of recording lifecycle event.
type EventType string

const (
	EventStart EventType = "start"
	EventStop  EventType = "stop"
)

// Event represents a recording lifecycle event exported to external
// systems for statistics and auditing.
type Event struct {
	Type       EventType `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	URL        string    `json:"url"`
	Platform   string    `json:"platform"`
	Anchor     string    `json:"anchor"`
	Path       string    `json:"path"`
	StartMs    int64     `json:"start_ms"`
	EndMs      int64     `json:"end_ms"`
}

// Sink is a destination for recording events.
// Implementations must be safe for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Event) error
}
