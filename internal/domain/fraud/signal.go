package fraud

// Signal identifies one independent fraud-detection dimension.
type Signal string

const (
	SignalVelocity        Signal = "velocity"
	SignalGeolocation     Signal = "geolocation"
	SignalDevice          Signal = "device"
	SignalBehavioral      Signal = "behavioral"
	SignalCredentialReuse Signal = "credential_reuse"
	SignalTimePattern     Signal = "time_pattern"
	SignalIPReputation    Signal = "ip_reputation"
	SignalMLAnomaly       Signal = "ml_anomaly"
)

// AllSignals is the fixed enumeration order used for aggregation output and
// alert-type selection. Triggered-signal lists are always reported in this
// order regardless of how extractor results arrive.
var AllSignals = []Signal{
	SignalVelocity,
	SignalGeolocation,
	SignalDevice,
	SignalBehavioral,
	SignalCredentialReuse,
	SignalTimePattern,
	SignalIPReputation,
	SignalMLAnomaly,
}

func (s Signal) String() string {
	return string(s)
}
