package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jetonpay/jeton/internal/token"
)

// DefaultStream is the Redis stream ledger events are published to.
const DefaultStream = "jeton:events:v1"

// LoggerSink writes ledger events to the structured logger. It is the
// fallback observer when no stream is configured.
type LoggerSink struct {
	logger *slog.Logger
}

// NewLoggerSink constructs a logging sink.
func NewLoggerSink(logger *slog.Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

// Publish logs the event.
func (s *LoggerSink) Publish(_ context.Context, event token.Event) error {
	if s == nil || s.logger == nil {
		return nil
	}
	s.logger.Info("ledger event", eventAttrs(event)...)
	return nil
}

// StreamPublisher appends ledger events to a Redis stream so external
// observers can consume them. Publishing is fail-open: a broken stream must
// not take the ledger down with it.
type StreamPublisher struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

// NewStreamPublisher constructs a Redis stream publisher. An empty stream
// name selects DefaultStream.
func NewStreamPublisher(client *redis.Client, stream string, logger *slog.Logger) *StreamPublisher {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamPublisher{client: client, stream: stream, logger: logger}
}

// Publish appends the event to the stream.
func (p *StreamPublisher) Publish(ctx context.Context, event token.Event) error {
	values := map[string]any{
		"kind": event.Kind(),
		"at":   time.Now().UTC().Format(time.RFC3339Nano),
	}
	switch ev := event.(type) {
	case token.TransferEvent:
		if ev.From != nil {
			values["from"] = ev.From.String()
		}
		values["to"] = ev.To.String()
		values["value"] = ev.Value.String()
	case token.ApprovalEvent:
		values["owner"] = ev.Owner.String()
		values["spender"] = ev.Spender.String()
		values["value"] = ev.Value.String()
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{Stream: p.stream, Values: values}).Err(); err != nil {
		if p.logger != nil {
			p.logger.Warn("publish ledger event", "stream", p.stream, "error", err)
		}
		return err
	}
	return nil
}

// Fanout delivers each event to every sink in order.
type Fanout []token.Sink

// Publish forwards the event to all sinks, returning the first error after
// attempting every delivery.
func (f Fanout) Publish(ctx context.Context, event token.Event) error {
	var first error
	for _, sink := range f {
		if err := sink.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func eventAttrs(event token.Event) []any {
	attrs := []any{slog.String("kind", event.Kind())}
	switch ev := event.(type) {
	case token.TransferEvent:
		if ev.From != nil {
			attrs = append(attrs, slog.String("from", ev.From.String()))
		}
		attrs = append(attrs,
			slog.String("to", ev.To.String()),
			slog.String("value", ev.Value.String()),
		)
	case token.ApprovalEvent:
		attrs = append(attrs,
			slog.String("owner", ev.Owner.String()),
			slog.String("spender", ev.Spender.String()),
			slog.String("value", ev.Value.String()),
		)
	}
	return attrs
}
