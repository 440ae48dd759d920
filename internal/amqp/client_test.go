package amqp

import (
	"testing"
	"time"
)

func TestNewTransactionChangeMessage(t *testing.T) {
	id := int64(12345)

	msg := NewTransactionChangeMessage(id, OpUpdated)

	if msg.ID != id {
		t.Errorf("NewTransactionChangeMessage() ID = %v, want %v", msg.ID, id)
	}
	if msg.Op != OpUpdated {
		t.Errorf("NewTransactionChangeMessage() Op = %v, want %v", msg.Op, OpUpdated)
	}
	if msg.Timestamp.IsZero() {
		t.Error("NewTransactionChangeMessage() Timestamp should not be zero")
	}
	if time.Since(msg.Timestamp) > time.Second {
		t.Error("NewTransactionChangeMessage() Timestamp should be recent")
	}
}

func TestTransactionChangeMessage_JSON(t *testing.T) {
	timestamp := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	msg := &TransactionChangeMessage{
		ID:        12345,
		Op:        OpDeleted,
		Timestamp: timestamp,
	}

	jsonBytes, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	parsedMsg, err := TransactionChangeMessageFromJSON(jsonBytes)
	if err != nil {
		t.Fatalf("TransactionChangeMessageFromJSON() error = %v", err)
	}

	if parsedMsg.ID != msg.ID {
		t.Errorf("Parsed ID = %v, want %v", parsedMsg.ID, msg.ID)
	}
	if parsedMsg.Op != msg.Op {
		t.Errorf("Parsed Op = %v, want %v", parsedMsg.Op, msg.Op)
	}
	if !parsedMsg.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Parsed Timestamp = %v, want %v", parsedMsg.Timestamp, msg.Timestamp)
	}
}

func TestTransactionChangeMessage_InvalidJSON(t *testing.T) {
	invalidJSON := []byte(`{"id": "not_a_number", "op": "updated"}`)

	_, err := TransactionChangeMessageFromJSON(invalidJSON)
	if err == nil {
		t.Error("TransactionChangeMessageFromJSON() should fail with invalid JSON")
	}
}
