package fraud

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewUserRiskProfile(t *testing.T) {
	merchantID := uuid.New()
	profile := NewUserRiskProfile(merchantID, "user-1")

	assert.NotEqual(t, uuid.Nil, profile.ID)
	assert.Equal(t, merchantID, profile.MerchantID)
	assert.Equal(t, "user-1", profile.UserID)
	assert.Equal(t, 0.0, profile.CurrentRiskScore)
	assert.Equal(t, RiskLevelLow, profile.RiskLevel)
	assert.Equal(t, 0, profile.TotalSessions)
	assert.False(t, profile.IsAnonymous())
}

func TestNewAnonymousProfile(t *testing.T) {
	profile := NewAnonymousProfile(uuid.New())
	assert.Equal(t, AnonymousUserID, profile.UserID)
	assert.True(t, profile.IsAnonymous())
}

func TestRecordEvaluation_ExponentialMovingAverage(t *testing.T) {
	profile := NewUserRiskProfile(uuid.New(), "user-1")
	now := time.Now().UTC()

	profile.RecordEvaluation(1.0, false, now)
	assert.InDelta(t, 0.3, profile.CurrentRiskScore, 1e-9)

	profile.RecordEvaluation(1.0, false, now)
	assert.InDelta(t, 0.51, profile.CurrentRiskScore, 1e-9)

	profile.RecordEvaluation(0.0, false, now)
	assert.InDelta(t, 0.357, profile.CurrentRiskScore, 1e-9)

	assert.Equal(t, 3, profile.TotalSessions)
}

func TestRecordEvaluation_RiskLevelTracksScore(t *testing.T) {
	profile := NewUserRiskProfile(uuid.New(), "user-1")
	now := time.Now().UTC()

	// One maximal evaluation lands at 0.3: still low.
	profile.RecordEvaluation(1.0, false, now)
	assert.Equal(t, RiskLevelLow, profile.RiskLevel)

	// A second pushes the average to 0.51: medium.
	profile.RecordEvaluation(1.0, false, now)
	assert.Equal(t, RiskLevelMedium, profile.RiskLevel)

	// Sustained maximal scores converge toward high.
	for i := 0; i < 5; i++ {
		profile.RecordEvaluation(1.0, false, now)
	}
	assert.Equal(t, RiskLevelHigh, profile.RiskLevel)
}

func TestRecordEvaluation_FlaggedBumpsAlertCounters(t *testing.T) {
	profile := NewUserRiskProfile(uuid.New(), "user-1")
	now := time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC)

	profile.RecordEvaluation(0.4, false, now)
	assert.Equal(t, 0, profile.RecentAlertsCount)
	assert.Nil(t, profile.LastAlertDate)

	profile.RecordEvaluation(0.8, true, now)
	assert.Equal(t, 1, profile.RecentAlertsCount)
	require.NotNil(t, profile.LastAlertDate)
	assert.Equal(t, now, *profile.LastAlertDate)
}

func TestLevelForScore(t *testing.T) {
	tests := []struct {
		score    float64
		expected RiskLevel
	}{
		{0.0, RiskLevelLow},
		{0.49, RiskLevelLow},
		{0.5, RiskLevelMedium},
		{0.69, RiskLevelMedium},
		{0.7, RiskLevelHigh},
		{1.0, RiskLevelHigh},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, LevelForScore(tt.score), "score %v", tt.score)
	}
}

func TestKnowsUserAgentHash(t *testing.T) {
	profile := NewUserRiskProfile(uuid.New(), "user-1")
	assert.False(t, profile.KnowsUserAgentHash("abc"))

	profile.DeviceFingerprints.KnownUserAgentHashes = []string{"abc", "def"}
	assert.True(t, profile.KnowsUserAgentHash("abc"))
	assert.True(t, profile.KnowsUserAgentHash("def"))
	assert.False(t, profile.KnowsUserAgentHash("ghi"))
}

func TestSuccessRate(t *testing.T) {
	profile := NewUserRiskProfile(uuid.New(), "user-1")
	assert.Equal(t, 0.0, profile.SuccessRate())

	profile.TotalSessions = 4
	profile.SuccessfulAuthentications = 3
	assert.InDelta(t, 0.75, profile.SuccessRate(), 1e-9)
}
