package mq

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Message attribute keys understood by the backends.
const (
	AttrEventType   = "event_type"
	AttrContentType = "content_type"
	AttrOrderingKey = "ordering_key"
)

// Event types published by the API.
const (
	EventIssueCreated   = "issue.created"
	EventIssueUpdated   = "issue.updated"
	EventIssueDeleted   = "issue.deleted"
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
)

// Event is the JSON envelope carried in message bodies.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Subject    string          `json:"subject"`
	OccurredAt time.Time       `json:"occurredAt"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// NewEvent builds an event for subject with payload encoded as JSON.
func NewEvent(eventType, subject string, payload any) (Event, error) {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("encode %s payload: %w", eventType, err)
		}
		raw = data
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	}, nil
}

// Encode returns the message body and attributes for the event.
func (e Event) Encode() ([]byte, map[string]string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, nil, err
	}
	attrs := map[string]string{
		AttrEventType:   e.Type,
		AttrContentType: "application/json",
		AttrOrderingKey: e.Subject,
	}
	return data, attrs, nil
}

// DecodeEvent parses a message produced by Event.Encode.
func DecodeEvent(msg Message) (Event, error) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event %s: %w", msg.ID, err)
	}
	return event, nil
}
