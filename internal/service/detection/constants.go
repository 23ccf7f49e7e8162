package detection

import (
	"time"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
)

// FlagThreshold is the aggregated score at or above which an evaluation is
// flagged and an alert is created.
const FlagThreshold = 0.5

// signalWeights are the fixed per-signal aggregation weights. They
// intentionally sum to 1.30: the final score is capped at 1.0 instead of
// renormalized, which keeps ml_anomaly dominant when present while still
// bounding the result. Do not renormalize without product sign-off; it
// shifts relative signal influence and alert rates.
var signalWeights = map[fraud.Signal]float64{
	fraud.SignalVelocity:        0.20,
	fraud.SignalGeolocation:     0.15,
	fraud.SignalDevice:          0.10,
	fraud.SignalBehavioral:      0.20,
	fraud.SignalCredentialReuse: 0.15,
	fraud.SignalTimePattern:     0.10,
	fraud.SignalIPReputation:    0.10,
	fraud.SignalMLAnomaly:       0.30,
}

// Velocity thresholds
const (
	// VelocityMinuteLimit is the one-minute event count at which velocity
	// risk saturates.
	VelocityMinuteLimit = 10

	// VelocityHourLimit is the one-hour event count at which velocity risk
	// saturates.
	VelocityHourLimit = 100

	// velocityTriggerRatio is the per-window saturation ratio above which
	// the velocity signal triggers.
	velocityTriggerRatio = 0.8
)

// Geolocation thresholds
const (
	// GeoMaxDistanceKm is the distance at which geolocation risk saturates.
	GeoMaxDistanceKm = 1000.0

	// geoColdStartRisk applies when the user has no recorded locations.
	geoColdStartRisk = 0.1

	geoTriggerThreshold = 0.7
)

// Device thresholds. The trigger threshold exceeds both possible unknown
// device scores, so device currently contributes without ever triggering on
// its own; the constant is kept tunable rather than removed.
const (
	deviceUnknownRisk      = 0.3
	deviceFirstSeenRisk    = 0.1
	deviceTriggerThreshold = 0.5
)

// Behavioral, reuse and time-pattern thresholds
const (
	behavioralTriggerThreshold = 0.7

	// ReuseHourLimit is the hourly same-credential-type issuance count at
	// which reuse risk saturates.
	ReuseHourLimit = 10

	reuseTriggerThreshold = 0.6

	// timeDeviationHours is the circular-hour deviation at which
	// time-pattern risk saturates.
	timeDeviationHours = 6.0

	timeColdStartRisk = 0.1

	timeTriggerThreshold = 0.7
)

// IP reputation and ML thresholds
const (
	// ipReputationMinScore is the reputation below which the signal
	// triggers.
	ipReputationMinScore = 0.3

	mlAnomalyThreshold = 0.8
)

// DefaultLookupTimeout bounds each external lookup (event counts,
// geolocation, reputation, model prediction). A timed-out lookup degrades
// its signal to a zero result rather than failing the evaluation.
const DefaultLookupTimeout = 500 * time.Millisecond

// Window sizes for activity counting
const (
	velocityMinuteWindow = time.Minute
	velocityHourWindow   = time.Hour
	reuseWindow          = time.Hour
)
