package fraud

import (
	"time"

	"github.com/google/uuid"
)

// RiskLevel classifies a profile's smoothed risk score.
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// Risk score smoothing and classification constants
const (
	// RiskScoreAlpha is the exponential moving average weight applied to the
	// newest evaluation score.
	RiskScoreAlpha = 0.3

	// RiskLevelHighThreshold is the smoothed score at which a profile
	// becomes high risk.
	RiskLevelHighThreshold = 0.7

	// RiskLevelMediumThreshold is the smoothed score at which a profile
	// becomes medium risk.
	RiskLevelMediumThreshold = 0.5
)

// AnonymousUserID is the pseudo user id for events with no known user. An
// anonymous profile is created fresh per evaluation and never persisted.
const AnonymousUserID = "anonymous"

// GeoPoint is one observed location in a user's location baseline.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city,omitempty"`
	Country   string  `json:"country,omitempty"`
}

// LocationPatterns holds the user's typical observed locations.
type LocationPatterns struct {
	TypicalLocations []GeoPoint `json:"typical_locations,omitempty"`
}

// DeviceFingerprints holds hashes of user-agent strings previously seen for
// the user.
type DeviceFingerprints struct {
	KnownUserAgentHashes []string `json:"known_user_agent_hashes,omitempty"`
}

// BehavioralProfile holds the numeric feature baseline built from prior
// observations.
type BehavioralProfile struct {
	Baseline map[string]float64 `json:"baseline,omitempty"`
}

// TimePatterns holds the hours of day during which the user is typically
// active.
type TimePatterns struct {
	TypicalHours []int `json:"typical_hours,omitempty"`
}

// UserRiskProfile is the persistent per-(merchant, user) risk state. The
// smoothed score only ever changes through RecordEvaluation; it is set
// directly only at creation (0.0).
type UserRiskProfile struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	UserID     string    `json:"user_id"`

	CurrentRiskScore float64   `json:"current_risk_score"`
	RiskLevel        RiskLevel `json:"risk_level"`

	LocationPatterns   LocationPatterns   `json:"location_patterns"`
	DeviceFingerprints DeviceFingerprints `json:"device_fingerprints"`
	BehavioralProfile  BehavioralProfile  `json:"behavioral_profile"`
	TimePatterns       TimePatterns       `json:"time_patterns"`

	TotalSessions             int `json:"total_sessions"`
	SuccessfulAuthentications int `json:"successful_authentications"`
	AccountAgeDays            int `json:"account_age_days"`
	RecentAlertsCount         int `json:"recent_alerts_count"`

	LastAlertDate *time.Time `json:"last_alert_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUserRiskProfile creates an empty profile for a merchant+user pair with
// score 0.0 and low risk level.
func NewUserRiskProfile(merchantID uuid.UUID, userID string) *UserRiskProfile {
	now := time.Now().UTC()
	return &UserRiskProfile{
		ID:               uuid.New(),
		MerchantID:       merchantID,
		UserID:           userID,
		CurrentRiskScore: 0.0,
		RiskLevel:        RiskLevelLow,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// NewAnonymousProfile creates a transient profile for events without a user
// identity. Callers must not persist it.
func NewAnonymousProfile(merchantID uuid.UUID) *UserRiskProfile {
	return NewUserRiskProfile(merchantID, AnonymousUserID)
}

// IsAnonymous reports whether this is a transient anonymous profile.
func (p *UserRiskProfile) IsAnonymous() bool {
	return p.UserID == AnonymousUserID
}

// RecordEvaluation folds one evaluation outcome into the profile: the score
// moves by exponential moving average, the risk level is re-derived, the
// session counter advances, and flagged evaluations bump the alert counters.
func (p *UserRiskProfile) RecordEvaluation(overallRisk float64, flagged bool, now time.Time) {
	p.CurrentRiskScore = RiskScoreAlpha*overallRisk + (1-RiskScoreAlpha)*p.CurrentRiskScore
	p.RiskLevel = LevelForScore(p.CurrentRiskScore)

	p.TotalSessions++
	if flagged {
		p.RecentAlertsCount++
		t := now
		p.LastAlertDate = &t
	}
	p.UpdatedAt = now
}

// KnowsUserAgentHash reports whether the given device hash is in the known
// fingerprint set.
func (p *UserRiskProfile) KnowsUserAgentHash(hash string) bool {
	for _, h := range p.DeviceFingerprints.KnownUserAgentHashes {
		if h == hash {
			return true
		}
	}
	return false
}

// SuccessRate is the fraction of sessions that ended in a successful
// authentication. Fresh profiles divide by one session to avoid a zero
// denominator.
func (p *UserRiskProfile) SuccessRate() float64 {
	sessions := p.TotalSessions
	if sessions < 1 {
		sessions = 1
	}
	return float64(p.SuccessfulAuthentications) / float64(sessions)
}

// LevelForScore maps a smoothed risk score onto the fixed level thresholds.
func LevelForScore(score float64) RiskLevel {
	switch {
	case score >= RiskLevelHighThreshold:
		return RiskLevelHigh
	case score >= RiskLevelMediumThreshold:
		return RiskLevelMedium
	default:
		return RiskLevelLow
	}
}
