package detection

import (
	"context"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/errors"
	"github.com/davidleathers/credential-fraud-engine/internal/domain/event"
	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
	"github.com/davidleathers/credential-fraud-engine/internal/metrics"
)

// profileLockStripes sizes the striped mutex table serializing evaluations
// for the same (merchant, user). Striping bounds memory; a collision only
// costs serialization between two unrelated users.
const profileLockStripes = 256

// Dependencies are the engine's collaborators. Profiles and Alerts are
// required; the lookup collaborators are optional and their signals degrade
// to zero results when absent. Logger and Metrics are optional.
type Dependencies struct {
	Profiles   ProfileRepository
	Alerts     AlertRepository
	Activity   EventCounter
	Geo        GeoLocator
	Reputation IPReputationChecker
	Models     ModelRegistry
	Notifier   AlertNotifier
	Logger     *slog.Logger
	Metrics    *metrics.Registry
}

// Option configures an Engine.
type Option func(*Engine)

// WithLookupTimeout overrides the per-lookup timeout applied to external
// calls inside extractors.
func WithLookupTimeout(d time.Duration) Option {
	return func(e *Engine) { e.lookupTimeout = d }
}

// WithClock overrides the engine's time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// Engine evaluates credential events against the detection signals, keeps
// per-user risk profiles current, and raises fraud alerts. One Engine is
// safe for concurrent use; evaluations for the same (merchant, user) are
// serialized internally.
type Engine struct {
	profiles   ProfileRepository
	alerts     AlertRepository
	activity   EventCounter
	geo        GeoLocator
	reputation IPReputationChecker
	models     ModelRegistry
	notifier   AlertNotifier

	logger  *slog.Logger
	metrics *metrics.Registry

	lookupTimeout time.Duration
	now           func() time.Time

	profileLocks [profileLockStripes]sync.Mutex
}

// NewEngine wires an evaluation engine from its collaborators.
func NewEngine(deps Dependencies, opts ...Option) (*Engine, error) {
	if deps.Profiles == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "profile repository is required")
	}
	if deps.Alerts == nil {
		return nil, errors.NewValidationError("MISSING_DEPENDENCY", "alert repository is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		profiles:      deps.Profiles,
		alerts:        deps.Alerts,
		activity:      deps.Activity,
		geo:           deps.Geo,
		reputation:    deps.Reputation,
		models:        deps.Models,
		notifier:      deps.Notifier,
		logger:        logger,
		metrics:       deps.Metrics,
		lookupTimeout: DefaultLookupTimeout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Evaluate runs one event through the full detection flow: load or create
// the risk profile, run the extractors, aggregate, update the profile, and
// persist an alert when the event is flagged. Signal failures degrade to
// zero contributions; profile and alert persistence failures abort the
// evaluation.
func (e *Engine) Evaluate(ctx context.Context, evt *event.Event) (*fraud.EvaluationResult, error) {
	if evt == nil {
		return nil, errors.NewValidationError("INVALID_EVENT", "event cannot be nil")
	}
	if evt.MerchantID == uuid.Nil {
		return nil, errors.NewValidationError("INVALID_EVENT", "merchant id is required")
	}

	started := e.now()

	// Concurrent evaluations for the same user must not interleave their
	// read-modify-write of the profile.
	if evt.HasUser() {
		lock := e.profileLock(evt.MerchantID, *evt.UserID)
		lock.Lock()
		defer lock.Unlock()
	}

	profile, err := e.loadProfile(ctx, evt)
	if err != nil {
		return nil, err
	}

	results := e.runExtractors(ctx, evt, profile)
	overallRisk, triggered := aggregate(results)
	flagged := shouldFlag(overallRisk)

	profile.RecordEvaluation(overallRisk, flagged, e.now())
	if !profile.IsAnonymous() {
		if err := e.profiles.Update(ctx, profile); err != nil {
			return nil, errors.NewInternalError("failed to update risk profile").WithCause(err)
		}
	}

	result := &fraud.EvaluationResult{
		OverallRisk:      overallRisk,
		Flagged:          flagged,
		TriggeredSignals: triggered,
		Results:          results,
	}

	if flagged {
		alert := buildAlert(evt, overallRisk, triggered, results, e.now())
		if err := e.alerts.Save(ctx, alert); err != nil {
			// No flag without a durable alert.
			return nil, errors.NewInternalError("failed to persist fraud alert").WithCause(err)
		}
		result.AlertID = &alert.ID

		e.logger.WarnContext(ctx, "fraud alert created",
			"alert_id", alert.ID,
			"alert_type", alert.AlertType,
			"severity", alert.Severity,
			"risk_score", overallRisk,
			"merchant_id", evt.MerchantID,
		)

		if e.notifier != nil {
			if err := e.notifier.Enqueue(ctx, alert); err != nil {
				e.logger.WarnContext(ctx, "alert notification enqueue failed",
					"alert_id", alert.ID, "error", err)
			}
		}
	}

	if e.metrics != nil {
		e.metrics.RecordEvaluation(ctx, e.now().Sub(started), flagged)
		for _, signal := range triggered {
			e.metrics.RecordSignalTriggered(ctx, signal.String())
		}
	}

	return result, nil
}

// GetRiskProfile loads a user's current risk profile without creating one.
func (e *Engine) GetRiskProfile(ctx context.Context, merchantID uuid.UUID, userID string) (*fraud.UserRiskProfile, error) {
	if userID == "" || userID == fraud.AnonymousUserID {
		return nil, errors.NewValidationError("INVALID_USER", "a persistent user id is required")
	}
	return e.profiles.Get(ctx, merchantID, userID)
}

// ListAlerts returns a merchant's alerts, newest first.
func (e *Engine) ListAlerts(ctx context.Context, merchantID uuid.UUID, filter AlertFilter) ([]*fraud.FraudAlert, error) {
	return e.alerts.List(ctx, merchantID, filter)
}

// loadProfile returns the persistent profile for the event's user, or a
// fresh transient anonymous profile when no user is known. Anonymous
// profiles are never stored and never shared between evaluations.
func (e *Engine) loadProfile(ctx context.Context, evt *event.Event) (*fraud.UserRiskProfile, error) {
	if !evt.HasUser() {
		return fraud.NewAnonymousProfile(evt.MerchantID), nil
	}
	profile, err := e.profiles.GetOrCreate(ctx, evt.MerchantID, *evt.UserID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load risk profile").WithCause(err)
	}
	return profile, nil
}

// runExtractors fans the applicable extractors out in parallel and waits
// for every result before returning. Extractors needing an IP or user-agent
// are skipped with a zero result when the input is absent.
func (e *Engine) runExtractors(ctx context.Context, evt *event.Event, profile *fraud.UserRiskProfile) map[fraud.Signal]fraud.DetectionResult {
	results := make(map[fraud.Signal]fraud.DetectionResult, len(fraud.AllSignals))

	var mu sync.Mutex
	var wg sync.WaitGroup
	run := func(signal fraud.Signal, check func() fraud.DetectionResult) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result := check()
			mu.Lock()
			results[signal] = result
			mu.Unlock()
		}()
	}

	run(fraud.SignalVelocity, func() fraud.DetectionResult { return e.checkVelocity(ctx, evt) })
	run(fraud.SignalBehavioral, func() fraud.DetectionResult { return e.checkBehavioral(evt, profile) })
	run(fraud.SignalCredentialReuse, func() fraud.DetectionResult { return e.checkCredentialReuse(ctx, evt) })
	run(fraud.SignalTimePattern, func() fraud.DetectionResult { return e.checkTimePattern(evt, profile) })
	run(fraud.SignalMLAnomaly, func() fraud.DetectionResult { return e.checkMLAnomaly(ctx, evt, profile) })

	skip := func(signal fraud.Signal) {
		mu.Lock()
		results[signal] = fraud.ZeroResult("")
		mu.Unlock()
	}

	if evt.HasIP() {
		run(fraud.SignalGeolocation, func() fraud.DetectionResult { return e.checkGeolocation(ctx, evt, profile) })
		run(fraud.SignalIPReputation, func() fraud.DetectionResult { return e.checkIPReputation(ctx, evt) })
	} else {
		skip(fraud.SignalGeolocation)
		skip(fraud.SignalIPReputation)
	}

	if evt.HasUserAgent() {
		run(fraud.SignalDevice, func() fraud.DetectionResult { return e.checkDevice(evt, profile) })
	} else {
		skip(fraud.SignalDevice)
	}

	wg.Wait()
	return results
}

// profileLock returns the stripe lock for a (merchant, user) pair.
func (e *Engine) profileLock(merchantID uuid.UUID, userID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write(merchantID[:])
	h.Write([]byte(userID))
	return &e.profileLocks[h.Sum32()%profileLockStripes]
}
