package detection

import (
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/event"
	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
)

// shouldFlag decides whether an aggregated score warrants an alert. The
// threshold is independent of the per-signal trigger thresholds: a signal
// can trigger without the event being flagged, and a flagged event may have
// no individually triggered signal.
func shouldFlag(overallRisk float64) bool {
	return overallRisk >= FlagThreshold
}

// buildAlert constructs the alert record for a flagged evaluation. The
// confidence score is the aggregated risk score itself.
func buildAlert(
	evt *event.Event,
	overallRisk float64,
	triggered []fraud.Signal,
	results map[fraud.Signal]fraud.DetectionResult,
	now time.Time,
) *fraud.FraudAlert {
	return &fraud.FraudAlert{
		ID:               uuid.New(),
		MerchantID:       evt.MerchantID,
		UserID:           evt.UserID,
		AlertType:        fraud.AlertTypeForSignals(triggered),
		RiskLevel:        fraud.LevelForScore(overallRisk),
		Severity:         fraud.SeverityForScore(overallRisk),
		ConfidenceScore:  overallRisk,
		TriggeredSignals: triggered,
		DetectionData:    results,
		ContextData:      evt.Payload,
		SessionID:        evt.SessionID,
		IPAddress:        evt.IPAddress,
		UserAgent:        evt.UserAgent,
		Status:           fraud.StatusNew,
		CreatedAt:        now,
	}
}
