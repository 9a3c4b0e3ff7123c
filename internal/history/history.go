// Package history keeps an append-only audit of lifecycle operations per
// data directory. It is advisory: a failing sink is logged by the caller and
// never blocks a start or stop.
package history

import (
	"context"
	"time"
)

// EventType is the kind of lifecycle event.
type EventType string

const (
	EventStarted EventType = "started"
	EventStopped EventType = "stopped"
)

// Event is one lifecycle transition for a data directory.
type Event struct {
	Type       EventType
	OccurredAt time.Time
	DataDir    string
	Host       string
	Port       uint16
}

// Sink is a destination for lifecycle events.
type Sink interface {
	Send(ctx context.Context, e Event) error
	Close() error
}

// Nop discards every event. Used when history is disabled.
type Nop struct{}

func (Nop) Send(context.Context, Event) error { return nil }
func (Nop) Close() error                      { return nil }
