package detection

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/davidleathers/credential-fraud-engine/internal/domain/fraud"
)

type mockProfileRepo struct {
	mock.Mock
}

func (m *mockProfileRepo) Get(ctx context.Context, merchantID uuid.UUID, userID string) (*fraud.UserRiskProfile, error) {
	args := m.Called(ctx, merchantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fraud.UserRiskProfile), args.Error(1)
}

func (m *mockProfileRepo) GetOrCreate(ctx context.Context, merchantID uuid.UUID, userID string) (*fraud.UserRiskProfile, error) {
	args := m.Called(ctx, merchantID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fraud.UserRiskProfile), args.Error(1)
}

func (m *mockProfileRepo) Update(ctx context.Context, profile *fraud.UserRiskProfile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

type mockAlertRepo struct {
	mock.Mock
}

func (m *mockAlertRepo) Save(ctx context.Context, alert *fraud.FraudAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}

func (m *mockAlertRepo) List(ctx context.Context, merchantID uuid.UUID, filter AlertFilter) ([]*fraud.FraudAlert, error) {
	args := m.Called(ctx, merchantID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*fraud.FraudAlert), args.Error(1)
}

type mockActivity struct {
	mock.Mock
}

func (m *mockActivity) Count(ctx context.Context, q CountQuery) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

type mockGeo struct {
	mock.Mock
}

func (m *mockGeo) Locate(ctx context.Context, ip string) (*fraud.GeoPoint, error) {
	args := m.Called(ctx, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fraud.GeoPoint), args.Error(1)
}

type mockReputation struct {
	mock.Mock
}

func (m *mockReputation) Reputation(ctx context.Context, ip string) (float64, error) {
	args := m.Called(ctx, ip)
	return args.Get(0).(float64), args.Error(1)
}

type mockModelRegistry struct {
	mock.Mock
}

func (m *mockModelRegistry) ActiveModel(ctx context.Context, merchantID uuid.UUID) (Model, error) {
	args := m.Called(ctx, merchantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(Model), args.Error(1)
}

type mockModel struct {
	mock.Mock
}

func (m *mockModel) Name() string {
	return m.Called().String(0)
}

func (m *mockModel) Version() string {
	return m.Called().String(0)
}

func (m *mockModel) Predict(ctx context.Context, features map[string]float64) (float64, error) {
	args := m.Called(ctx, features)
	return args.Get(0).(float64), args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Enqueue(ctx context.Context, alert *fraud.FraudAlert) error {
	args := m.Called(ctx, alert)
	return args.Error(0)
}
