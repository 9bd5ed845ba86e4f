package events

import (
	"time"

	"github.com/spec-kit/accomplishment-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountRegistered EventType = "account_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
	EventLoginFailed       EventType = "login_failed"
	EventAccountLocked     EventType = "account_locked"
	EventAccountUpdated    EventType = "account_updated"
	EventAccountDeleted    EventType = "account_deleted"
)

// Event represents a domain event emitted by services. Payloads never carry
// plaintext PII or credentials.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	AccountID string      `json:"account_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	EmployeeID string      `json:"employee_id"`
	Role       domain.Role `json:"role"`
}

// LoginFailedPayload payload. AccountID on the event is empty for unknown emails.
type LoginFailedPayload struct {
	FailedAttempts    int  `json:"failed_attempts"`
	RemainingAttempts int  `json:"remaining_attempts"`
	KnownAccount      bool `json:"known_account"`
}

// AccountLockedPayload payload.
type AccountLockedPayload struct {
	FailedAttempts int       `json:"failed_attempts"`
	LockUntil      time.Time `json:"lock_until"`
}

// AccountChangedPayload payload for administrative edits and deletes.
type AccountChangedPayload struct {
	ActorID    string `json:"actor_id,omitempty"`
	EmployeeID string `json:"employee_id,omitempty"`
}
