package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes events to the log. It stands in for a broker in
// development.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.logger.Info().
		Str("routing_key", routingKey(topic, event)).
		Str("key", key).
		Interface("event", event).
		Msg("event published")
	return nil
}
