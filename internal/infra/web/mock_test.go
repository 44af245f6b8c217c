//go:build !integration

package web

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/usecase"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

// MockOrderUC implements usecase.OrderUseCase with Func hooks per method.
type MockOrderUC struct {
	CreatePremiumFunc  func(ctx context.Context, userID string, amount int64, description, planType string, durationDays int) (*model.Order, error)
	CreateExerciseFunc func(ctx context.Context, userID, exerciseID, exerciseName string, price int64) (*model.Order, error)
	CreateMarathonFunc func(ctx context.Context, userID, marathonID string) (*model.Order, error)
	HistoryFunc        func(ctx context.Context, userID string, page, limit int) ([]*model.Order, int, error)
}

var _ usecase.OrderUseCase = (*MockOrderUC)(nil)

func (m *MockOrderUC) CreatePremium(ctx context.Context, userID string, amount int64, description, planType string, durationDays int) (*model.Order, error) {
	if m.CreatePremiumFunc != nil {
		return m.CreatePremiumFunc(ctx, userID, amount, description, planType, durationDays)
	}
	return nil, domain.ErrOperationFailed
}

func (m *MockOrderUC) CreateExercise(ctx context.Context, userID, exerciseID, exerciseName string, price int64) (*model.Order, error) {
	if m.CreateExerciseFunc != nil {
		return m.CreateExerciseFunc(ctx, userID, exerciseID, exerciseName, price)
	}
	return nil, domain.ErrOperationFailed
}

func (m *MockOrderUC) CreateMarathon(ctx context.Context, userID, marathonID string) (*model.Order, error) {
	if m.CreateMarathonFunc != nil {
		return m.CreateMarathonFunc(ctx, userID, marathonID)
	}
	return nil, domain.ErrOperationFailed
}

func (m *MockOrderUC) History(ctx context.Context, userID string, page, limit int) ([]*model.Order, int, error) {
	if m.HistoryFunc != nil {
		return m.HistoryFunc(ctx, userID, page, limit)
	}
	return nil, 0, nil
}

// MockReconcileUC implements usecase.ReconcileUseCase.
type MockReconcileUC struct {
	ReconcileFunc func(ctx context.Context, idOrExternalID string) (*model.Order, error)
}

var _ usecase.ReconcileUseCase = (*MockReconcileUC)(nil)

func (m *MockReconcileUC) Reconcile(ctx context.Context, idOrExternalID string) (*model.Order, error) {
	if m.ReconcileFunc != nil {
		return m.ReconcileFunc(ctx, idOrExternalID)
	}
	return nil, domain.ErrOrderNotFound
}

// MockEnrollmentUC implements usecase.EnrollmentUseCase.
type MockEnrollmentUC struct {
	EnrollFunc         func(ctx context.Context, userID, programID string) (*model.Enrollment, error)
	CheckDayAccessFunc func(ctx context.Context, userID, programID string, day int, now time.Time) (*model.Enrollment, error)
	UnlockedDayFunc    func(ctx context.Context, programID string, now time.Time) (int, error)
	CompleteDayFunc    func(ctx context.Context, userID, programID string, day int) (*model.Enrollment, error)
	ProgressFunc       func(ctx context.Context, userID, programID string) (*model.Enrollment, error)
	ListByUserFunc     func(ctx context.Context, userID string) ([]*model.Enrollment, error)
}

var _ usecase.EnrollmentUseCase = (*MockEnrollmentUC)(nil)

func (m *MockEnrollmentUC) Enroll(ctx context.Context, userID, programID string) (*model.Enrollment, error) {
	if m.EnrollFunc != nil {
		return m.EnrollFunc(ctx, userID, programID)
	}
	return nil, domain.ErrProgramNotFound
}

func (m *MockEnrollmentUC) CheckDayAccess(ctx context.Context, userID, programID string, day int, now time.Time) (*model.Enrollment, error) {
	if m.CheckDayAccessFunc != nil {
		return m.CheckDayAccessFunc(ctx, userID, programID, day, now)
	}
	return nil, domain.ErrEnrollmentNotFound
}

func (m *MockEnrollmentUC) UnlockedDay(ctx context.Context, programID string, now time.Time) (int, error) {
	if m.UnlockedDayFunc != nil {
		return m.UnlockedDayFunc(ctx, programID, now)
	}
	return 0, nil
}

func (m *MockEnrollmentUC) CompleteDay(ctx context.Context, userID, programID string, day int) (*model.Enrollment, error) {
	if m.CompleteDayFunc != nil {
		return m.CompleteDayFunc(ctx, userID, programID, day)
	}
	return nil, domain.ErrEnrollmentNotFound
}

func (m *MockEnrollmentUC) Progress(ctx context.Context, userID, programID string) (*model.Enrollment, error) {
	if m.ProgressFunc != nil {
		return m.ProgressFunc(ctx, userID, programID)
	}
	return nil, domain.ErrEnrollmentNotFound
}

func (m *MockEnrollmentUC) ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error) {
	if m.ListByUserFunc != nil {
		return m.ListByUserFunc(ctx, userID)
	}
	return nil, nil
}
