package amqp

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Reasons a user record was saved.
const (
	ReasonProfile = "profile"
	ReasonBudget  = "budget"
	ReasonExpense = "expense"
	ReasonImport  = "import"
)

// RecordSavedMessage announces that a user record changed. It carries only the
// username; consumers load the full record from the store.
type RecordSavedMessage struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordSavedMessage creates a message with a fresh ID and the current time.
func NewRecordSavedMessage(username, reason string) *RecordSavedMessage {
	return &RecordSavedMessage{
		ID:        uuid.NewString(),
		Username:  username,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSavedMessageFromJSON decodes a message and rejects ones without a username.
func RecordSavedMessageFromJSON(data []byte) (*RecordSavedMessage, error) {
	var msg RecordSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Username == "" {
		return nil, errors.New("message has no username")
	}
	return &msg, nil
}
