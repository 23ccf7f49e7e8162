package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/event"
	"github.com/davidleathers/credential-fraud-engine/internal/service/detection"
)

func setupActivityStore(t *testing.T) (*ActivityStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewActivityStore(client, zaptest.NewLogger(t), DefaultActivityRetention), mr
}

func strPtr(s string) *string {
	return &s
}

func TestActivityStore_RecordAndCount(t *testing.T) {
	ctx := context.Background()
	store, _ := setupActivityStore(t)
	merchantID := uuid.New()
	now := time.Now()

	for i := 0; i < 5; i++ {
		err := store.Record(ctx, &event.Event{
			MerchantID: merchantID,
			EventType:  event.TypeCredentialVerified,
			UserID:     strPtr("user-1"),
			OccurredAt: now.Add(-time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	// All five fall inside the hour window.
	count, err := store.Count(ctx, detection.CountQuery{
		MerchantID: merchantID,
		Subject:    "user-1",
		Since:      now.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// Only the newest event is inside a 30 second window.
	count, err = store.Count(ctx, detection.CountQuery{
		MerchantID: merchantID,
		Subject:    "user-1",
		Since:      now.Add(-30 * time.Second),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestActivityStore_SubjectsAreIsolated(t *testing.T) {
	ctx := context.Background()
	store, _ := setupActivityStore(t)
	merchantID := uuid.New()
	otherMerchant := uuid.New()
	now := time.Now()

	require.NoError(t, store.Record(ctx, &event.Event{
		MerchantID: merchantID,
		EventType:  event.TypeCredentialVerified,
		UserID:     strPtr("user-1"),
		OccurredAt: now,
	}))
	require.NoError(t, store.Record(ctx, &event.Event{
		MerchantID: merchantID,
		EventType:  event.TypeCredentialVerified,
		IPAddress:  strPtr("203.0.113.10"),
		OccurredAt: now,
	}))

	since := now.Add(-time.Hour)

	count, err := store.Count(ctx, detection.CountQuery{
		MerchantID: merchantID, Subject: "user-1", Since: since,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.Count(ctx, detection.CountQuery{
		MerchantID: merchantID, Subject: "203.0.113.10", Since: since,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = store.Count(ctx, detection.CountQuery{
		MerchantID: otherMerchant, Subject: "user-1", Since: since,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestActivityStore_CredentialTypeBucket(t *testing.T) {
	ctx := context.Background()
	store, _ := setupActivityStore(t)
	merchantID := uuid.New()
	now := time.Now()

	// Issuance events land in the credential-type bucket too.
	for i := 0; i < 3; i++ {
		require.NoError(t, store.Record(ctx, &event.Event{
			MerchantID: merchantID,
			EventType:  event.TypeCredentialIssued,
			UserID:     strPtr("user-1"),
			Payload:    map[string]interface{}{"credential_type": "api_key"},
			OccurredAt: now,
		}))
	}
	// Verification events do not.
	require.NoError(t, store.Record(ctx, &event.Event{
		MerchantID: merchantID,
		EventType:  event.TypeCredentialVerified,
		UserID:     strPtr("user-1"),
		Payload:    map[string]interface{}{"credential_type": "api_key"},
		OccurredAt: now,
	}))

	count, err := store.Count(ctx, detection.CountQuery{
		MerchantID:     merchantID,
		EventType:      event.TypeCredentialIssued,
		CredentialType: "api_key",
		Since:          now.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestActivityStore_WindowExcludesOldEvents(t *testing.T) {
	ctx := context.Background()
	store, _ := setupActivityStore(t)
	merchantID := uuid.New()
	now := time.Now()

	require.NoError(t, store.Record(ctx, &event.Event{
		MerchantID: merchantID,
		EventType:  event.TypeCredentialVerified,
		UserID:     strPtr("user-1"),
		OccurredAt: now.Add(-90 * time.Minute),
	}))
	require.NoError(t, store.Record(ctx, &event.Event{
		MerchantID: merchantID,
		EventType:  event.TypeCredentialVerified,
		UserID:     strPtr("user-1"),
		OccurredAt: now,
	}))

	count, err := store.Count(ctx, detection.CountQuery{
		MerchantID: merchantID,
		Subject:    "user-1",
		Since:      now.Add(-time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
