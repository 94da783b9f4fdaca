package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type message struct {
	topic string
	key   string
	event any
}

// AsyncPublisher queues events and hands them to next from a single worker,
// so callers never wait on the broker. Events are delivered in enqueue order.
type AsyncPublisher struct {
	next    Publisher
	queue   chan message
	timeout time.Duration
	logger  zerolog.Logger

	mu     sync.RWMutex
	closed bool
	done   chan struct{}
}

// NewAsyncPublisher starts the worker. Each delivery is bounded by timeout.
func NewAsyncPublisher(next Publisher, size int, timeout time.Duration, logger zerolog.Logger) *AsyncPublisher {
	if size <= 0 {
		size = 100
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &AsyncPublisher{
		next:    next,
		queue:   make(chan message, size),
		timeout: timeout,
		logger:  logger.With().Str("component", "events").Logger(),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Publish enqueues the event. It fails with ErrQueueFull instead of blocking.
func (p *AsyncPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- message{topic: topic, key: key, event: event}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Depth reports the number of queued events.
func (p *AsyncPublisher) Depth() int {
	return len(p.queue)
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		err := p.next.Publish(ctx, msg.topic, msg.key, msg.event)
		cancel()
		if err != nil {
			p.logger.Warn().Err(err).
				Str("topic", msg.topic).
				Str("key", msg.key).
				Msg("event delivery failed")
		}
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		p.logger.Warn().Int("pending", len(p.queue)).Msg("event queue not drained before shutdown")
		return ctx.Err()
	}
}
