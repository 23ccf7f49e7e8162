package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/event"
	"github.com/davidleathers/credential-fraud-engine/internal/service/detection"
)

// Key prefixes for activity tracking
const (
	activitySubjectPrefix    = "fraud:activity:subject:"
	activityCredentialPrefix = "fraud:activity:cred:"
)

// DefaultActivityRetention keeps activity entries long enough to cover the
// one-hour counting window with slack for clock drift.
const DefaultActivityRetention = 2 * time.Hour

// ActivityStore tracks recent event activity in Redis sorted sets, scored
// by event time, and answers the sliding-window count queries behind the
// velocity and credential-reuse signals.
type ActivityStore struct {
	client    *redis.Client
	logger    *zap.Logger
	retention time.Duration
}

var _ detection.EventCounter = (*ActivityStore)(nil)

// NewActivityStore creates an activity store over an existing Redis client.
func NewActivityStore(client *redis.Client, logger *zap.Logger, retention time.Duration) *ActivityStore {
	if retention <= 0 {
		retention = DefaultActivityRetention
	}
	return &ActivityStore{
		client:    client,
		logger:    logger,
		retention: retention,
	}
}

// Record registers one event occurrence under its subject bucket and, for
// credential issuance, under its credential-type bucket.
func (s *ActivityStore) Record(ctx context.Context, evt *event.Event) error {
	at := evt.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	member := fmt.Sprintf("%d-%s", at.UnixNano(), uuid.NewString()[:8])
	entry := redis.Z{Score: float64(at.UnixNano()), Member: member}

	keys := []string{subjectKey(evt.MerchantID, evt.Subject())}
	if evt.EventType == event.TypeCredentialIssued {
		if credentialType := evt.CredentialType(); credentialType != "" {
			keys = append(keys, credentialKey(evt.MerchantID, credentialType))
		}
	}

	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.ZAdd(ctx, key, entry)
		pipe.Expire(ctx, key, s.retention)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("activity record failed",
			zap.String("merchant_id", evt.MerchantID.String()),
			zap.Error(err))
		return fmt.Errorf("activity record failed: %w", err)
	}

	return nil
}

// Count returns the number of recorded events in the query window. It also
// prunes entries older than the retention horizon from the touched key.
func (s *ActivityStore) Count(ctx context.Context, q detection.CountQuery) (int, error) {
	key := subjectKey(q.MerchantID, q.Subject)
	if q.CredentialType != "" {
		key = credentialKey(q.MerchantID, q.CredentialType)
	}

	horizon := time.Now().Add(-s.retention)

	pipe := s.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(horizon.UnixNano(), 10))
	countCmd := pipe.ZCount(ctx, key,
		strconv.FormatInt(q.Since.UnixNano(), 10), "+inf")

	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("activity count failed",
			zap.String("key", key),
			zap.Error(err))
		return 0, fmt.Errorf("activity count failed: %w", err)
	}

	return int(countCmd.Val()), nil
}

func subjectKey(merchantID uuid.UUID, subject string) string {
	if subject == "" {
		subject = "-"
	}
	return activitySubjectPrefix + merchantID.String() + ":" + subject
}

func credentialKey(merchantID uuid.UUID, credentialType string) string {
	return activityCredentialPrefix + merchantID.String() + ":" + credentialType
}
