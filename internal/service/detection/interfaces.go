package detection

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
)

// CountQuery selects recent event activity for velocity and reuse checks.
// Subject is the user id when known, the client IP otherwise; an empty
// subject counts merchant-wide. CredentialType narrows the count to
// issuance events of one credential type.
type CountQuery struct {
	MerchantID     uuid.UUID
	Subject        string
	EventType      string
	CredentialType string
	Since          time.Time
}

// EventCounter counts recent events against the analytics activity store.
type EventCounter interface {
	// Count returns the number of events matching the query window.
	Count(ctx context.Context, q CountQuery) (int, error)
}

// GeoLocator resolves an IP address to coordinates. A nil location with a
// nil error means the address could not be resolved.
type GeoLocator interface {
	Locate(ctx context.Context, ip string) (*fraud.GeoPoint, error)
}

// IPReputationChecker returns a reputation score in [0,1] for an IP address,
// 1.0 being fully trusted. Private and loopback ranges score 1.0 by
// convention.
type IPReputationChecker interface {
	Reputation(ctx context.Context, ip string) (float64, error)
}

// Model is a handle to one deployed anomaly-scoring model.
type Model interface {
	// Name returns the model identifier.
	Name() string
	// Version returns the deployed model version.
	Version() string
	// Predict returns an anomaly score in [0,1] for the feature vector.
	Predict(ctx context.Context, features map[string]float64) (float64, error)
}

// ModelRegistry resolves the active scoring model for a merchant. A nil
// model with a nil error means no model is deployed for the merchant.
type ModelRegistry interface {
	ActiveModel(ctx context.Context, merchantID uuid.UUID) (Model, error)
}

// ProfileRepository persists per-(merchant, user) risk profiles. Update must
// apply the whole profile state atomically.
type ProfileRepository interface {
	// Get loads an existing profile, returning a not-found error if absent.
	Get(ctx context.Context, merchantID uuid.UUID, userID string) (*fraud.UserRiskProfile, error)
	// GetOrCreate loads a profile, creating an empty one if absent.
	GetOrCreate(ctx context.Context, merchantID uuid.UUID, userID string) (*fraud.UserRiskProfile, error)
	// Update persists the full profile state.
	Update(ctx context.Context, profile *fraud.UserRiskProfile) error
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	RiskLevel *fraud.RiskLevel
	Limit     int
	Offset    int
}

// AlertRepository persists fraud alerts.
type AlertRepository interface {
	// Save stores a newly created alert.
	Save(ctx context.Context, alert *fraud.FraudAlert) error
	// List returns a merchant's alerts, newest first.
	List(ctx context.Context, merchantID uuid.UUID, filter AlertFilter) ([]*fraud.FraudAlert, error)
}

// AlertNotifier hands persisted alerts to the outbound notification
// pipeline. Delivery is best effort; the engine's responsibility ends at
// "alert persisted".
type AlertNotifier interface {
	Enqueue(ctx context.Context, alert *fraud.FraudAlert) error
}
