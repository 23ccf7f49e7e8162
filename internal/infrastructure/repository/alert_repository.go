package repository

import (
	"context"
	"encoding/json"
	goerrors "errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/errors"
	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
	"github.com/davidleathers/credential-fraud-engine/internal/service/detection"
)

const defaultAlertListLimit = 100

// AlertRepository implements detection.AlertRepository using PostgreSQL.
type AlertRepository struct {
	db *pgxpool.Pool
}

var _ detection.AlertRepository = (*AlertRepository)(nil)

// NewAlertRepository creates a PostgreSQL-backed alert repository.
func NewAlertRepository(db *pgxpool.Pool) *AlertRepository {
	return &AlertRepository{db: db}
}

// Save stores a newly created alert.
func (r *AlertRepository) Save(ctx context.Context, alert *fraud.FraudAlert) error {
	query := `
		INSERT INTO fraud_alerts (
			id, merchant_id, user_id, alert_type, risk_level, severity,
			confidence_score, triggered_signals, detection_data, context_data,
			session_id, ip_address, user_agent, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)`

	signals := make([]string, len(alert.TriggeredSignals))
	for i, s := range alert.TriggeredSignals {
		signals[i] = s.String()
	}

	detectionJSON, err := json.Marshal(alert.DetectionData)
	if err != nil {
		return errors.NewInternalError("failed to marshal detection data").WithCause(err)
	}
	contextJSON, err := json.Marshal(alert.ContextData)
	if err != nil {
		return errors.NewInternalError("failed to marshal context data").WithCause(err)
	}

	_, err = r.db.Exec(ctx, query,
		alert.ID,
		alert.MerchantID,
		alert.UserID,
		string(alert.AlertType),
		string(alert.RiskLevel),
		string(alert.Severity),
		alert.ConfidenceScore,
		signals,
		detectionJSON,
		contextJSON,
		alert.SessionID,
		alert.IPAddress,
		alert.UserAgent,
		string(alert.Status),
		alert.CreatedAt,
	)
	if err != nil {
		return errors.NewInternalError("failed to save fraud alert").WithCause(err)
	}

	return nil
}

// List returns a merchant's alerts, newest first, optionally filtered by
// risk level.
func (r *AlertRepository) List(ctx context.Context, merchantID uuid.UUID, filter detection.AlertFilter) ([]*fraud.FraudAlert, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAlertListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT
			id, merchant_id, user_id, alert_type, risk_level, severity,
			confidence_score, triggered_signals, detection_data, context_data,
			session_id, ip_address, user_agent, status, created_at
		FROM fraud_alerts
		WHERE merchant_id = $1`
	args := []interface{}{merchantID}

	if filter.RiskLevel != nil {
		query += ` AND risk_level = $2`
		args = append(args, string(*filter.RiskLevel))
	}
	query += ` ORDER BY created_at DESC LIMIT $` +
		strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternalError("failed to list fraud alerts").WithCause(err)
	}
	defer rows.Close()

	var alerts []*fraud.FraudAlert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, errors.NewInternalError("failed to scan fraud alert").WithCause(err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternalError("failed to read fraud alerts").WithCause(err)
	}

	return alerts, nil
}

// Get loads one alert by id.
func (r *AlertRepository) Get(ctx context.Context, id uuid.UUID) (*fraud.FraudAlert, error) {
	query := `
		SELECT
			id, merchant_id, user_id, alert_type, risk_level, severity,
			confidence_score, triggered_signals, detection_data, context_data,
			session_id, ip_address, user_agent, status, created_at
		FROM fraud_alerts
		WHERE id = $1`

	alert, err := scanAlert(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if goerrors.Is(err, pgx.ErrNoRows) {
			return nil, errors.ErrAlertNotFound
		}
		return nil, errors.NewInternalError("failed to load fraud alert").WithCause(err)
	}
	return alert, nil
}

func scanAlert(row pgx.Row) (*fraud.FraudAlert, error) {
	var a fraud.FraudAlert
	var alertType, riskLevel, severity, status string
	var signals []string
	var detectionJSON, contextJSON []byte

	err := row.Scan(
		&a.ID, &a.MerchantID, &a.UserID, &alertType, &riskLevel, &severity,
		&a.ConfidenceScore, &signals, &detectionJSON, &contextJSON,
		&a.SessionID, &a.IPAddress, &a.UserAgent, &status, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	a.AlertType = fraud.AlertType(alertType)
	a.RiskLevel = fraud.RiskLevel(riskLevel)
	a.Severity = fraud.Severity(severity)
	a.Status = fraud.AlertStatus(status)

	a.TriggeredSignals = make([]fraud.Signal, len(signals))
	for i, s := range signals {
		a.TriggeredSignals[i] = fraud.Signal(s)
	}

	if err := json.Unmarshal(detectionJSON, &a.DetectionData); err != nil {
		a.DetectionData = map[fraud.Signal]fraud.DetectionResult{}
	}
	if len(contextJSON) > 0 {
		if err := json.Unmarshal(contextJSON, &a.ContextData); err != nil {
			a.ContextData = map[string]interface{}{}
		}
	}

	return &a, nil
}
