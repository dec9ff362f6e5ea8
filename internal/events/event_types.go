package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/auth-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventUserRegistered EventType = "user_registered"
	EventLoginSucceeded EventType = "login_succeeded"
	EventLoginFailed    EventType = "login_failed"
)

// Login failure reasons.
const (
	ReasonUnknownIdentifier  = "unknown_identifier"
	ReasonInvalidCredentials = "invalid_credentials"
)

// Event represents a domain event emitted by services. Payloads never carry
// passwords, hashes or tokens.
type Event struct {
	ID             string                `json:"id"`
	Type           EventType             `json:"type"`
	UserID         string                `json:"user_id,omitempty"`
	Identifier     string                `json:"identifier"`
	IdentifierKind domain.IdentifierKind `json:"identifier_kind"`
	Timestamp      time.Time             `json:"timestamp"`
	Payload        interface{}           `json:"payload,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Reason string `json:"reason"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	ExpiresAt time.Time `json:"expires_at"`
}

// NewEvent stamps an event with a fresh ID and the current time.
func NewEvent(eventType EventType, kind domain.IdentifierKind, identifier, userID string, payload interface{}) Event {
	return Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		UserID:         userID,
		Identifier:     identifier,
		IdentifierKind: kind,
		Timestamp:      time.Now().UTC(),
		Payload:        payload,
	}
}
