package events

import (
	"context"
	"log/slog"
)

type Event interface {
	Name() string
}

// Sink receives domain events. Implementations must not block the caller for
// long; delivery failures are the sink's concern.
type Sink interface {
	Publish(ctx context.Context, e Event)
}

// LogSink writes every event as a structured log line.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Publish(ctx context.Context, e Event) {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "domain event", "event", e.Name(), "payload", e)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}
