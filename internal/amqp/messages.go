package amqp

import (
	"encoding/json"
	"time"
)

// Change operations carried by TransactionChangeMessage.
const (
	OpCreated = "created"
	OpUpdated = "updated"
	OpDeleted = "deleted"
)

// TransactionChangeMessage signals that a transaction changed and cached
// reports derived from it are stale. It carries only the ID and operation,
// the worker decides what to recompute.
type TransactionChangeMessage struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionChangeMessage creates a change message for the given transaction
func NewTransactionChangeMessage(id int64, op string) *TransactionChangeMessage {
	return &TransactionChangeMessage{
		ID:        id,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangeMessageFromJSON creates a message from JSON bytes
func TransactionChangeMessageFromJSON(data []byte) (*TransactionChangeMessage, error) {
	var msg TransactionChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
