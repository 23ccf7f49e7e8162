package fraud

import "github.com/google/uuid"

// DetectionResult is the outcome of a single signal extractor for one event.
// Score is always in [0,1]. Triggered means the signal's own threshold was
// exceeded, independent of the overall flag decision.
type DetectionResult struct {
	Score     float64                `json:"risk_score"`
	Triggered bool                   `json:"triggered"`
	Evidence  map[string]interface{} `json:"evidence,omitempty"`
}

// ZeroResult is the fail-open result used when a signal has no input data or
// its external lookup failed. The optional reason is recorded as evidence.
func ZeroResult(reason string) DetectionResult {
	r := DetectionResult{Score: 0, Triggered: false}
	if reason != "" {
		r.Evidence = map[string]interface{}{"error": reason}
	}
	return r
}

// EvaluationResult is what the engine returns to its caller for one event.
type EvaluationResult struct {
	OverallRisk      float64                    `json:"overall_risk"`
	Flagged          bool                       `json:"flagged"`
	TriggeredSignals []Signal                   `json:"triggered_signals"`
	AlertID          *uuid.UUID                 `json:"alert_id,omitempty"`
	Results          map[Signal]DetectionResult `json:"detection_results"`
}
