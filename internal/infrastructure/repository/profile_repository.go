package repository

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/errors"
	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
	"github.com/davidleathers/credential-fraud-engine/internal/service/detection"
)

// ProfileRepository implements detection.ProfileRepository using PostgreSQL.
// Baseline maps are stored as JSONB; the (merchant_id, user_id) pair is
// unique so creation races collapse onto one row.
type ProfileRepository struct {
	db *pgxpool.Pool
}

var _ detection.ProfileRepository = (*ProfileRepository)(nil)

// NewProfileRepository creates a PostgreSQL-backed profile repository.
func NewProfileRepository(db *pgxpool.Pool) *ProfileRepository {
	return &ProfileRepository{db: db}
}

const profileColumns = `
	id, merchant_id, user_id, current_risk_score, risk_level,
	location_patterns, device_fingerprints, behavioral_profile, time_patterns,
	total_sessions, successful_authentications, account_age_days,
	recent_alerts_count, last_alert_date, created_at, updated_at`

// Get loads an existing profile.
func (r *ProfileRepository) Get(ctx context.Context, merchantID uuid.UUID, userID string) (*fraud.UserRiskProfile, error) {
	query := `SELECT` + profileColumns + `
		FROM user_risk_profiles
		WHERE merchant_id = $1 AND user_id = $2`

	row := r.db.QueryRow(ctx, query, merchantID, userID)
	profile, err := scanProfile(row)
	if err != nil {
		if goerrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrProfileNotFound
		}
		return nil, errors.NewInternalError("failed to load risk profile").WithCause(err)
	}
	return profile, nil
}

// GetOrCreate loads a profile, inserting an empty one first if absent. The
// insert tolerates concurrent creation; whichever row wins is returned.
func (r *ProfileRepository) GetOrCreate(ctx context.Context, merchantID uuid.UUID, userID string) (*fraud.UserRiskProfile, error) {
	profile, err := r.Get(ctx, merchantID, userID)
	if err == nil {
		return profile, nil
	}
	if !goerrors.Is(err, errors.ErrProfileNotFound) {
		return nil, err
	}

	fresh := fraud.NewUserRiskProfile(merchantID, userID)
	query := `
		INSERT INTO user_risk_profiles (` + profileColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (merchant_id, user_id) DO NOTHING`

	args, err := profileArgs(fresh)
	if err != nil {
		return nil, err
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return nil, errors.NewInternalError("failed to create risk profile").WithCause(err)
	}

	return r.Get(ctx, merchantID, userID)
}

// Update persists the full profile state in one transaction, locking the
// row so the read-modify-write cannot interleave with another writer.
func (r *ProfileRepository) Update(ctx context.Context, profile *fraud.UserRiskProfile) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return errors.NewInternalError("failed to begin transaction").WithCause(err)
	}
	defer tx.Rollback(ctx)

	var existing uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT id FROM user_risk_profiles WHERE id = $1 FOR UPDATE`,
		profile.ID,
	).Scan(&existing)
	if err != nil {
		if goerrors.Is(err, pgx.ErrNoRows) {
			return errors.ErrProfileNotFound
		}
		return errors.NewInternalError("failed to lock risk profile").WithCause(err)
	}

	locationJSON, deviceJSON, behavioralJSON, timeJSON, err := marshalBaselines(profile)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		UPDATE user_risk_profiles SET
			current_risk_score = $2,
			risk_level = $3,
			location_patterns = $4,
			device_fingerprints = $5,
			behavioral_profile = $6,
			time_patterns = $7,
			total_sessions = $8,
			successful_authentications = $9,
			account_age_days = $10,
			recent_alerts_count = $11,
			last_alert_date = $12,
			updated_at = $13
		WHERE id = $1`,
		profile.ID,
		profile.CurrentRiskScore,
		string(profile.RiskLevel),
		locationJSON,
		deviceJSON,
		behavioralJSON,
		timeJSON,
		profile.TotalSessions,
		profile.SuccessfulAuthentications,
		profile.AccountAgeDays,
		profile.RecentAlertsCount,
		profile.LastAlertDate,
		profile.UpdatedAt,
	)
	if err != nil {
		return errors.NewInternalError("failed to update risk profile").WithCause(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.NewInternalError("failed to commit risk profile update").WithCause(err)
	}
	return nil
}

func profileArgs(p *fraud.UserRiskProfile) ([]interface{}, error) {
	locationJSON, deviceJSON, behavioralJSON, timeJSON, err := marshalBaselines(p)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		p.ID,
		p.MerchantID,
		p.UserID,
		p.CurrentRiskScore,
		string(p.RiskLevel),
		locationJSON,
		deviceJSON,
		behavioralJSON,
		timeJSON,
		p.TotalSessions,
		p.SuccessfulAuthentications,
		p.AccountAgeDays,
		p.RecentAlertsCount,
		p.LastAlertDate,
		p.CreatedAt,
		p.UpdatedAt,
	}, nil
}

func marshalBaselines(p *fraud.UserRiskProfile) ([]byte, []byte, []byte, []byte, error) {
	locationJSON, err := json.Marshal(p.LocationPatterns)
	if err != nil {
		return nil, nil, nil, nil, errors.NewInternalError("failed to marshal location patterns").WithCause(err)
	}
	deviceJSON, err := json.Marshal(p.DeviceFingerprints)
	if err != nil {
		return nil, nil, nil, nil, errors.NewInternalError("failed to marshal device fingerprints").WithCause(err)
	}
	behavioralJSON, err := json.Marshal(p.BehavioralProfile)
	if err != nil {
		return nil, nil, nil, nil, errors.NewInternalError("failed to marshal behavioral profile").WithCause(err)
	}
	timeJSON, err := json.Marshal(p.TimePatterns)
	if err != nil {
		return nil, nil, nil, nil, errors.NewInternalError("failed to marshal time patterns").WithCause(err)
	}
	return locationJSON, deviceJSON, behavioralJSON, timeJSON, nil
}

func scanProfile(row pgx.Row) (*fraud.UserRiskProfile, error) {
	var p fraud.UserRiskProfile
	var riskLevel string
	var locationJSON, deviceJSON, behavioralJSON, timeJSON []byte
	var lastAlertDate *time.Time

	err := row.Scan(
		&p.ID, &p.MerchantID, &p.UserID, &p.CurrentRiskScore, &riskLevel,
		&locationJSON, &deviceJSON, &behavioralJSON, &timeJSON,
		&p.TotalSessions, &p.SuccessfulAuthentications, &p.AccountAgeDays,
		&p.RecentAlertsCount, &lastAlertDate, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.RiskLevel = fraud.RiskLevel(riskLevel)
	p.LastAlertDate = lastAlertDate

	if err := json.Unmarshal(locationJSON, &p.LocationPatterns); err != nil {
		p.LocationPatterns = fraud.LocationPatterns{}
	}
	if err := json.Unmarshal(deviceJSON, &p.DeviceFingerprints); err != nil {
		p.DeviceFingerprints = fraud.DeviceFingerprints{}
	}
	if err := json.Unmarshal(behavioralJSON, &p.BehavioralProfile); err != nil {
		p.BehavioralProfile = fraud.BehavioralProfile{}
	}
	if err := json.Unmarshal(timeJSON, &p.TimePatterns); err != nil {
		p.TimePatterns = fraud.TimePatterns{}
	}

	return &p, nil
}
