package detection

import (
	"math"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
)

// aggregate combines per-signal results into one overall risk score and the
// list of triggered signals. Signals absent from the map contribute zero.
// The weighted sum is capped at 1.0 without renormalizing (see
// signalWeights); the triggered list always follows fraud.AllSignals order,
// so the output is independent of map iteration order.
func aggregate(results map[fraud.Signal]fraud.DetectionResult) (float64, []fraud.Signal) {
	var total float64
	triggered := make([]fraud.Signal, 0, len(results))

	for _, signal := range fraud.AllSignals {
		result, ok := results[signal]
		if !ok {
			continue
		}
		total += signalWeights[signal] * result.Score
		if result.Triggered {
			triggered = append(triggered, signal)
		}
	}

	return math.Min(total, 1.0), triggered
}
