package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType names what happened to a transaction.
type EventType string

const (
	EventCreated EventType = "transaction.created"
	EventDeleted EventType = "transaction.deleted"
)

func (e EventType) Valid() bool {
	return e == EventCreated || e == EventDeleted
}

// TransactionEvent is a lightweight announcement. It carries only the id; a
// consumer that needs the record reads it back from storage.
type TransactionEvent struct {
	Event     EventType `json:"event"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionEvent(event EventType, id int64) *TransactionEvent {
	return &TransactionEvent{
		Event:     event,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionEventFromJSON decodes and validates a message body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Event.Valid() {
		return nil, fmt.Errorf("unknown event %q", msg.Event)
	}
	if msg.ID <= 0 {
		return nil, fmt.Errorf("event %s without transaction id", msg.Event)
	}
	return &msg, nil
}
