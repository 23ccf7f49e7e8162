package fraud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeverityForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected Severity
	}{
		{0.0, SeverityLow},
		{0.49, SeverityLow},
		{0.5, SeverityMedium},
		{0.69, SeverityMedium},
		{0.7, SeverityHigh},
		{0.89, SeverityHigh},
		{0.9, SeverityCritical},
		{1.0, SeverityCritical},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, SeverityForScore(tt.score), "score %v", tt.score)
	}
}

func TestAlertTypeForSignals(t *testing.T) {
	tests := []struct {
		name      string
		triggered []Signal
		expected  AlertType
	}{
		{
			name:      "no triggered signals",
			triggered: nil,
			expected:  AlertTypeGeneralFraud,
		},
		{
			name:      "velocity outranks everything",
			triggered: []Signal{SignalGeolocation, SignalMLAnomaly, SignalVelocity},
			expected:  AlertTypeVelocityAnomaly,
		},
		{
			name:      "ml outranks geolocation",
			triggered: []Signal{SignalGeolocation, SignalMLAnomaly},
			expected:  AlertTypeMLDetectedAnomaly,
		},
		{
			name:      "geolocation alone",
			triggered: []Signal{SignalGeolocation},
			expected:  AlertTypeGeolocationAnomaly,
		},
		{
			name:      "unranked signals are general fraud",
			triggered: []Signal{SignalDevice, SignalIPReputation, SignalTimePattern},
			expected:  AlertTypeGeneralFraud,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AlertTypeForSignals(tt.triggered))
		})
	}
}

func TestZeroResult(t *testing.T) {
	r := ZeroResult("")
	assert.Equal(t, 0.0, r.Score)
	assert.False(t, r.Triggered)
	assert.Nil(t, r.Evidence)

	r = ZeroResult("lookup timed out")
	assert.Equal(t, 0.0, r.Score)
	assert.Equal(t, "lookup timed out", r.Evidence["error"])
}
