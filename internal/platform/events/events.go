// Package events delivers domain events to a message broker.
package events

import (
	"context"
	"errors"
)

var (
	ErrQueueFull = errors.New("event queue full")
	ErrClosed    = errors.New("publisher closed")
)

// Publisher delivers one event. key groups events that must stay ordered.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// Kinded is implemented by events that carry their own type name. The name
// is appended to the routing key.
type Kinded interface {
	EventKind() string
}

func routingKey(topic string, event any) string {
	if k, ok := event.(Kinded); ok && k.EventKind() != "" {
		return topic + "." + k.EventKind()
	}
	return topic
}
