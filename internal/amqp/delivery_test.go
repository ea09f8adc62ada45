package amqp

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ackCall struct {
	ack     bool
	requeue bool
	at      time.Time
}

type fakeAcknowledger struct {
	mu    sync.Mutex
	calls []ackCall
}

func (f *fakeAcknowledger) Ack(uint64, bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ackCall{ack: true, at: time.Now()})
	return nil
}

func (f *fakeAcknowledger) Nack(_ uint64, _ bool, requeue bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ackCall{requeue: requeue, at: time.Now()})
	return nil
}

func (f *fakeAcknowledger) Reject(_ uint64, requeue bool) error {
	return f.Nack(0, false, requeue)
}

func (f *fakeAcknowledger) last() ackCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func delivery(t *testing.T, ack amqp091.Acknowledger, event *TransactionEvent) amqp091.Delivery {
	t.Helper()
	body, err := event.ToJSON()
	require.NoError(t, err)
	return amqp091.Delivery{Acknowledger: ack, Body: body}
}

func TestHandleDelivery(t *testing.T) {
	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{"success", nil, nil, true, false},
		{"handler error requeues", nil, errors.New("quota exceeded"), false, true},
		{"malformed dropped", []byte(`{"event":"nope"}`), nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Client{requeueDelay: time.Millisecond, maxAttempts: 3}
			ack := &fakeAcknowledger{}
			d := delivery(t, ack, NewTransactionEvent(EventCreated, 9))
			if tt.body != nil {
				d.Body = tt.body
			}

			c.handleDelivery(context.Background(), d, func(context.Context, *TransactionEvent) error {
				return tt.handlerErr
			})

			got := ack.last()
			assert.Equal(t, tt.wantAck, got.ack)
			assert.Equal(t, tt.wantRequeue, got.requeue)
		})
	}
}

func TestHandleDeliveryWaitsBeforeRequeue(t *testing.T) {
	c := &Client{requeueDelay: 50 * time.Millisecond, maxAttempts: 5}
	ack := &fakeAcknowledger{}

	start := time.Now()
	c.handleDelivery(context.Background(), delivery(t, ack, NewTransactionEvent(EventCreated, 1)),
		func(context.Context, *TransactionEvent) error { return errors.New("quota exceeded") })

	got := ack.last()
	assert.True(t, got.requeue)
	assert.GreaterOrEqual(t, got.at.Sub(start), 50*time.Millisecond)
}

func TestHandleDeliveryDropsAfterMaxAttempts(t *testing.T) {
	c := &Client{requeueDelay: time.Millisecond, maxAttempts: 3}
	ack := &fakeAcknowledger{}
	failing := func(context.Context, *TransactionEvent) error { return errors.New("quota exceeded") }

	for i := 0; i < 3; i++ {
		c.handleDelivery(context.Background(), delivery(t, ack, NewTransactionEvent(EventCreated, 4)), failing)
	}

	require.Len(t, ack.calls, 3)
	assert.True(t, ack.calls[0].requeue)
	assert.True(t, ack.calls[1].requeue)
	assert.False(t, ack.calls[2].requeue, "third failure is dropped")
	assert.Empty(t, c.handlerFailures)
}

func TestHandleDeliverySuccessResetsFailures(t *testing.T) {
	c := &Client{requeueDelay: time.Millisecond, maxAttempts: 2}
	ack := &fakeAcknowledger{}
	fail := true
	handler := func(context.Context, *TransactionEvent) error {
		if fail {
			return errors.New("transient")
		}
		return nil
	}
	msg := NewTransactionEvent(EventDeleted, 6)

	c.handleDelivery(context.Background(), delivery(t, ack, msg), handler)
	fail = false
	c.handleDelivery(context.Background(), delivery(t, ack, msg), handler)
	fail = true
	c.handleDelivery(context.Background(), delivery(t, ack, msg), handler)

	assert.True(t, ack.last().requeue, "counter restarted after the ack")
}

func TestHandleDeliveryCancelledWaitStillRequeues(t *testing.T) {
	c := &Client{requeueDelay: time.Hour, maxAttempts: 5}
	ack := &fakeAcknowledger{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.handleDelivery(ctx, delivery(t, ack, NewTransactionEvent(EventCreated, 2)),
		func(context.Context, *TransactionEvent) error { return errors.New("down") })

	assert.True(t, ack.last().requeue)
}
