package event

import (
	"time"

	"github.com/google/uuid"
)

// Well-known event types emitted by the credential pipeline.
const (
	TypeCredentialIssued   = "credential_issued"
	TypeCredentialVerified = "credential_verified"
	TypeCredentialRevoked  = "credential_revoked"
)

// Event is a single credential-related action submitted for risk evaluation.
// It is created once by the ingestion pipeline, consumed by one evaluation,
// and never mutated.
type Event struct {
	MerchantID uuid.UUID `json:"merchant_id"`
	EventType  string    `json:"event_type"`

	UserID    *string `json:"user_id,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
	IPAddress *string `json:"ip_address,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// HasUser reports whether the event carries a known user identity.
func (e *Event) HasUser() bool {
	return e.UserID != nil && *e.UserID != ""
}

// HasIP reports whether the event carries a client IP address.
func (e *Event) HasIP() bool {
	return e.IPAddress != nil && *e.IPAddress != ""
}

// HasUserAgent reports whether the event carries a user-agent string.
func (e *Event) HasUserAgent() bool {
	return e.UserAgent != nil && *e.UserAgent != ""
}

// Subject identifies the actor for per-subject activity counting: the user
// when known, the IP otherwise. Returns an empty string when neither is set.
func (e *Event) Subject() string {
	if e.HasUser() {
		return *e.UserID
	}
	if e.HasIP() {
		return *e.IPAddress
	}
	return ""
}

// CredentialType returns the credential type recorded in the payload, if any.
func (e *Event) CredentialType() string {
	if e.Payload == nil {
		return ""
	}
	if v, ok := e.Payload["credential_type"].(string); ok {
		return v
	}
	return ""
}
