package amqp

import (
	"encoding/json"
	"time"
)

// Ledger event types published on the bus. The alerts worker consumes
// these; the payload is deliberately light and consumers re-read the
// authoritative ledger from the store.
const (
	EventTransactionCreated = "transaction.created"
	EventTransactionDeleted = "transaction.deleted"
	EventSeriesRegenerated  = "series.regenerated"
	EventSalaryPosted       = "salary.posted"
)

// LedgerEventMessage announces a ledger mutation for a user.
type LedgerEventMessage struct {
	Event     string    `json:"event"`
	UserID    string    `json:"user_id"`
	GroupID   string    `json:"group_id,omitempty"`
	RecordID  int64     `json:"record_id,omitempty"`
	Count     int       `json:"count,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewLedgerEventMessage creates an event message stamped with now.
func NewLedgerEventMessage(event, userID string) *LedgerEventMessage {
	return &LedgerEventMessage{
		Event:     event,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON creates a message from JSON bytes.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
