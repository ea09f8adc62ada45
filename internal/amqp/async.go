package amqp

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"fintrack/internal/ports"
)

const DefaultPublishBuffer = 256

var (
	ErrPublishQueueFull = errors.New("publish queue is full")
	ErrPublisherClosed  = errors.New("publisher is closed")
)

var _ ports.EventPublisher = (*AsyncPublisher)(nil)

// EventSender delivers one event to the broker. *Client implements it.
type EventSender interface {
	Publish(ctx context.Context, msg *TransactionEvent) error
}

// AsyncPublisher queues events in memory and sends them from a single
// background goroutine, so a slow or unreachable broker never holds up the
// caller. Events are dropped when the queue is full.
type AsyncPublisher struct {
	sender EventSender
	events chan *TransactionEvent
	done   chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncPublisher(sender EventSender, buffer int) *AsyncPublisher {
	if buffer <= 0 {
		buffer = DefaultPublishBuffer
	}
	p := &AsyncPublisher{
		sender: sender,
		events: make(chan *TransactionEvent, buffer),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

// PublishCreated implements ports.EventPublisher
func (p *AsyncPublisher) PublishCreated(_ context.Context, id int64) error {
	return p.enqueue(NewTransactionEvent(EventCreated, id))
}

// PublishDeleted implements ports.EventPublisher
func (p *AsyncPublisher) PublishDeleted(_ context.Context, id int64) error {
	return p.enqueue(NewTransactionEvent(EventDeleted, id))
}

func (p *AsyncPublisher) enqueue(msg *TransactionEvent) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- msg:
		return nil
	default:
		return ErrPublishQueueFull
	}
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for msg := range p.events {
		// The request that produced the event is usually finished by now.
		if err := p.sender.Publish(context.Background(), msg); err != nil {
			slog.Warn("Failed to publish transaction event",
				"event", msg.Event,
				"id", msg.ID,
				"error", err)
		}
	}
}

// Close stops accepting events and waits for the queued ones to be sent, or
// for ctx to end.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
