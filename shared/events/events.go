package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	AccountCreated = "account.created"
	AccountDeleted = "account.deleted"
)

// Stream names. With the Kafka transport the stream name is the topic.
const (
	AccountEventsStream = "account.events"
)

// Base event structure. ID is unique per published event and is what
// consumers dedupe on.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func NewEvent(eventType string, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// DecodeData converts the loosely typed payload of a received event into dst.
func DecodeData(event Event, dst any) error {
	raw, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to re-encode %s payload: %w", event.Type, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("failed to unmarshal %s payload: %w", event.Type, err)
	}
	return nil
}

// Account events
type AccountCreatedEvent struct {
	CustomerID    int64  `json:"customerId"`
	AccountID     int64  `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
}

type AccountDeletedEvent struct {
	CustomerID    int64  `json:"customerId"`
	AccountID     int64  `json:"accountId"`
	AccountNumber string `json:"accountNumber"`
}
