package detection

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"time"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/event"
	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
)

// Each extractor computes one DetectionResult from the event, the loaded
// profile and its external lookups. Extractors never return errors: a
// missing input or failed lookup degrades to a zero, non-triggered result
// with the reason recorded as evidence. They share no state and run
// concurrently within one evaluation.

func (e *Engine) checkVelocity(ctx context.Context, evt *event.Event) fraud.DetectionResult {
	if e.activity == nil {
		return fraud.ZeroResult("")
	}

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	now := e.now()
	subject := evt.Subject()

	minuteCount, err := e.activity.Count(ctx, CountQuery{
		MerchantID: evt.MerchantID,
		Subject:    subject,
		Since:      now.Add(-velocityMinuteWindow),
	})
	if err != nil {
		return fraud.ZeroResult(err.Error())
	}

	hourCount, err := e.activity.Count(ctx, CountQuery{
		MerchantID: evt.MerchantID,
		Subject:    subject,
		Since:      now.Add(-velocityHourWindow),
	})
	if err != nil {
		return fraud.ZeroResult(err.Error())
	}

	minuteRisk := math.Min(float64(minuteCount)/VelocityMinuteLimit, 1.0)
	hourRisk := math.Min(float64(hourCount)/VelocityHourLimit, 1.0)

	return fraud.DetectionResult{
		Score:     math.Max(minuteRisk, hourRisk),
		Triggered: minuteRisk > velocityTriggerRatio || hourRisk > velocityTriggerRatio,
		Evidence: map[string]interface{}{
			"minute_count": minuteCount,
			"hour_count":   hourCount,
		},
	}
}

func (e *Engine) checkGeolocation(ctx context.Context, evt *event.Event, profile *fraud.UserRiskProfile) fraud.DetectionResult {
	if e.geo == nil {
		return fraud.ZeroResult("")
	}

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	location, err := e.geo.Locate(ctx, *evt.IPAddress)
	if err != nil {
		return fraud.ZeroResult(err.Error())
	}
	if location == nil {
		return fraud.ZeroResult("")
	}

	typical := profile.LocationPatterns.TypicalLocations
	if len(typical) == 0 {
		// First location seen for this user.
		return fraud.DetectionResult{
			Score:     geoColdStartRisk,
			Triggered: false,
			Evidence: map[string]interface{}{
				"current_location": *location,
				"is_new_location":  true,
			},
		}
	}

	minDistance := math.Inf(1)
	for _, loc := range typical {
		minDistance = math.Min(minDistance, haversineKm(*location, loc))
	}

	risk := math.Min(minDistance/GeoMaxDistanceKm, 1.0)

	return fraud.DetectionResult{
		Score:     risk,
		Triggered: risk > geoTriggerThreshold,
		Evidence: map[string]interface{}{
			"current_location": *location,
			"min_distance_km":  minDistance,
			"is_anomalous":     minDistance > GeoMaxDistanceKm*0.5,
		},
	}
}

func (e *Engine) checkDevice(evt *event.Event, profile *fraud.UserRiskProfile) fraud.DetectionResult {
	if !evt.HasUser() {
		return fraud.ZeroResult("")
	}

	deviceHash := hashUserAgent(*evt.UserAgent)
	if profile.KnowsUserAgentHash(deviceHash) {
		return fraud.DetectionResult{
			Score:     0,
			Triggered: false,
			Evidence:  map[string]interface{}{"is_known_device": true},
		}
	}

	risk := deviceFirstSeenRisk
	if len(profile.DeviceFingerprints.KnownUserAgentHashes) > 0 {
		risk = deviceUnknownRisk
	}

	return fraud.DetectionResult{
		Score:     risk,
		Triggered: risk > deviceTriggerThreshold,
		Evidence: map[string]interface{}{
			"is_known_device": false,
			"device_hash":     deviceHash,
		},
	}
}

func (e *Engine) checkBehavioral(evt *event.Event, profile *fraud.UserRiskProfile) fraud.DetectionResult {
	if !evt.HasUser() {
		return fraud.ZeroResult("")
	}

	baseline := profile.BehavioralProfile.Baseline
	if len(baseline) == 0 {
		return fraud.DetectionResult{
			Score:     0,
			Triggered: false,
			Evidence:  map[string]interface{}{"baseline_available": false},
		}
	}

	current := behavioralFeatures(evt, e.now())
	deviation := meanRelativeDeviation(current, baseline)

	return fraud.DetectionResult{
		Score:     deviation,
		Triggered: deviation > behavioralTriggerThreshold,
		Evidence: map[string]interface{}{
			"deviation_score":  deviation,
			"current_behavior": current,
			"event_type":       evt.EventType,
		},
	}
}

func (e *Engine) checkCredentialReuse(ctx context.Context, evt *event.Event) fraud.DetectionResult {
	credentialType := evt.CredentialType()
	if credentialType == "" || e.activity == nil {
		return fraud.ZeroResult("")
	}

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	count, err := e.activity.Count(ctx, CountQuery{
		MerchantID:     evt.MerchantID,
		EventType:      event.TypeCredentialIssued,
		CredentialType: credentialType,
		Since:          e.now().Add(-reuseWindow),
	})
	if err != nil {
		return fraud.ZeroResult(err.Error())
	}

	risk := math.Min(float64(count)/ReuseHourLimit, 1.0)

	return fraud.DetectionResult{
		Score:     risk,
		Triggered: risk > reuseTriggerThreshold,
		Evidence: map[string]interface{}{
			"recent_count":    count,
			"credential_type": credentialType,
		},
	}
}

func (e *Engine) checkTimePattern(evt *event.Event, profile *fraud.UserRiskProfile) fraud.DetectionResult {
	if !evt.HasUser() {
		return fraud.ZeroResult("")
	}

	currentHour := e.now().UTC().Hour()
	typicalHours := profile.TimePatterns.TypicalHours
	if len(typicalHours) == 0 {
		return fraud.DetectionResult{
			Score:     timeColdStartRisk,
			Triggered: false,
			Evidence:  map[string]interface{}{"baseline_available": false},
		}
	}

	minDeviation := 24.0
	for _, hour := range typicalHours {
		minDeviation = math.Min(minDeviation, circularHourDiff(currentHour, hour))
	}

	risk := math.Min(minDeviation/timeDeviationHours, 1.0)

	return fraud.DetectionResult{
		Score:     risk,
		Triggered: risk > timeTriggerThreshold,
		Evidence: map[string]interface{}{
			"current_hour":  currentHour,
			"min_deviation": minDeviation,
			"typical_hours": typicalHours,
		},
	}
}

func (e *Engine) checkIPReputation(ctx context.Context, evt *event.Event) fraud.DetectionResult {
	if e.reputation == nil {
		return fraud.ZeroResult("")
	}

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	reputation, err := e.reputation.Reputation(ctx, *evt.IPAddress)
	if err != nil {
		return fraud.ZeroResult(err.Error())
	}

	return fraud.DetectionResult{
		Score:     1.0 - reputation,
		Triggered: reputation < ipReputationMinScore,
		Evidence: map[string]interface{}{
			"reputation_score": reputation,
			"ip_address":       *evt.IPAddress,
		},
	}
}

func (e *Engine) checkMLAnomaly(ctx context.Context, evt *event.Event, profile *fraud.UserRiskProfile) fraud.DetectionResult {
	if e.models == nil {
		return fraud.DetectionResult{
			Score:     0,
			Triggered: false,
			Evidence:  map[string]interface{}{"model_available": false},
		}
	}

	ctx, cancel := context.WithTimeout(ctx, e.lookupTimeout)
	defer cancel()

	model, err := e.models.ActiveModel(ctx, evt.MerchantID)
	if err != nil {
		return fraud.ZeroResult(err.Error())
	}
	if model == nil {
		return fraud.DetectionResult{
			Score:     0,
			Triggered: false,
			Evidence:  map[string]interface{}{"model_available": false},
		}
	}

	features := mlFeatures(profile, e.now())
	score, err := model.Predict(ctx, features)
	if err != nil {
		return fraud.ZeroResult(err.Error())
	}
	score = clamp01(score)

	featureNames := make([]string, 0, len(features))
	for name := range features {
		featureNames = append(featureNames, name)
	}

	return fraud.DetectionResult{
		Score:     score,
		Triggered: score > mlAnomalyThreshold,
		Evidence: map[string]interface{}{
			"model_name":    model.Name(),
			"model_version": model.Version(),
			"features_used": featureNames,
		},
	}
}

// behavioralFeatures reduces an event to the numeric vector compared against
// the stored baseline.
func behavioralFeatures(evt *event.Event, now time.Time) map[string]float64 {
	hasCredentialType := 0.0
	if evt.CredentialType() != "" {
		hasCredentialType = 1.0
	}

	payloadSize := 0
	if len(evt.Payload) > 0 {
		if raw, err := json.Marshal(evt.Payload); err == nil {
			payloadSize = len(raw)
		}
	}

	return map[string]float64{
		"hour_of_day":         float64(now.UTC().Hour()),
		"day_of_week":         float64(now.UTC().Weekday()),
		"has_credential_type": hasCredentialType,
		"payload_size":        float64(payloadSize),
	}
}

// meanRelativeDeviation averages per-field relative deviation between the
// current vector and the baseline, capping each field's deviation at 1.0.
// Baseline fields with a zero value or no current counterpart are skipped.
func meanRelativeDeviation(current, baseline map[string]float64) float64 {
	var sum float64
	var n int
	for key, baseVal := range baseline {
		curVal, ok := current[key]
		if !ok || baseVal == 0 {
			continue
		}
		deviation := math.Abs(curVal-baseVal) / math.Abs(baseVal)
		sum += math.Min(deviation, 1.0)
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// mlFeatures builds the fixed feature vector handed to the anomaly scorer.
func mlFeatures(profile *fraud.UserRiskProfile, now time.Time) map[string]float64 {
	return map[string]float64{
		"hour_of_day":      float64(now.UTC().Hour()),
		"day_of_week":      float64(now.UTC().Weekday()),
		"user_risk_score":  profile.CurrentRiskScore,
		"account_age_days": float64(profile.AccountAgeDays),
		"total_sessions":   float64(profile.TotalSessions),
		"recent_alerts":    float64(profile.RecentAlertsCount),
		"success_rate":     profile.SuccessRate(),
	}
}

// hashUserAgent fingerprints a user-agent string. FNV-1a keeps hashes stable
// across processes, unlike the runtime map hash.
func hashUserAgent(userAgent string) string {
	h := fnv.New64a()
	h.Write([]byte(userAgent))
	return fmt.Sprintf("%016x", h.Sum64())
}

// circularHourDiff is the wrap-around distance between two hours of day.
func circularHourDiff(a, b int) float64 {
	d := math.Abs(float64(a - b))
	return math.Min(d, 24-d)
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two points in kilometers.
func haversineKm(a, b fraud.GeoPoint) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(v, 1))
}
