package fraud

import (
	"time"

	"github.com/google/uuid"
)

// AlertType categorizes an alert by the dominant triggered signal.
type AlertType string

const (
	AlertTypeVelocityAnomaly    AlertType = "velocity_anomaly"
	AlertTypeMLDetectedAnomaly  AlertType = "ml_detected_anomaly"
	AlertTypeGeolocationAnomaly AlertType = "geolocation_anomaly"
	AlertTypeGeneralFraud       AlertType = "general_fraud"
)

// Severity is the graded seriousness of a flagged evaluation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// AlertStatus tracks an alert through the external triage workflow. The
// engine only ever creates alerts in StatusNew; transitions belong to the
// alert-management surface.
type AlertStatus string

const (
	StatusNew           AlertStatus = "new"
	StatusInvestigating AlertStatus = "investigating"
	StatusResolved      AlertStatus = "resolved"
	StatusFalsePositive AlertStatus = "false_positive"
)

// FraudAlert is the persistent record created for every flagged evaluation.
// It is immutable after creation except for status transitions managed
// outside the engine.
type FraudAlert struct {
	ID         uuid.UUID `json:"id"`
	MerchantID uuid.UUID `json:"merchant_id"`
	UserID     *string   `json:"user_id,omitempty"`

	AlertType       AlertType `json:"alert_type"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Severity        Severity  `json:"severity"`
	ConfidenceScore float64   `json:"confidence_score"`

	TriggeredSignals []Signal                   `json:"triggered_signals"`
	DetectionData    map[Signal]DetectionResult `json:"detection_data"`
	ContextData      map[string]interface{}     `json:"context_data,omitempty"`

	SessionID *string `json:"session_id,omitempty"`
	IPAddress *string `json:"ip_address,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`

	Status    AlertStatus `json:"status"`
	CreatedAt time.Time   `json:"created_at"`
}

// SeverityForScore maps an aggregated risk score onto alert severity.
func SeverityForScore(score float64) Severity {
	switch {
	case score >= 0.9:
		return SeverityCritical
	case score >= 0.7:
		return SeverityHigh
	case score >= 0.5:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// AlertTypeForSignals picks the alert type from the triggered signals,
// priority ordered: velocity wins over ml_anomaly wins over geolocation;
// anything else is general fraud.
func AlertTypeForSignals(triggered []Signal) AlertType {
	has := func(s Signal) bool {
		for _, t := range triggered {
			if t == s {
				return true
			}
		}
		return false
	}
	switch {
	case has(SignalVelocity):
		return AlertTypeVelocityAnomaly
	case has(SignalMLAnomaly):
		return AlertTypeMLDetectedAnomaly
	case has(SignalGeolocation):
		return AlertTypeGeolocationAnomaly
	default:
		return AlertTypeGeneralFraud
	}
}
