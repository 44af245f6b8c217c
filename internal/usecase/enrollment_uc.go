package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/repository"
	"marathon-billing/internal/infra/metrics"
)

// Compile-time check
var _ EnrollmentUseCase = (*enrollmentUC)(nil)

type EnrollmentUseCase interface {
	// Enroll registers the user into a free program. Paid programs go through
	// the order flow instead (ErrPaymentRequired).
	Enroll(ctx context.Context, userID, programID string) (*model.Enrollment, error)
	// CheckDayAccess enforces the calendar gate: day N opens N-1 days after the
	// program start. Returns a DayLockedError naming the unlock date.
	CheckDayAccess(ctx context.Context, userID, programID string, day int, now time.Time) (*model.Enrollment, error)
	// UnlockedDay returns the highest open day number for the program at now.
	UnlockedDay(ctx context.Context, programID string, now time.Time) (int, error)
	// CompleteDay is idempotent: marking an already-completed day changes nothing.
	CompleteDay(ctx context.Context, userID, programID string, day int) (*model.Enrollment, error)
	Progress(ctx context.Context, userID, programID string) (*model.Enrollment, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error)
}

type enrollmentUC struct {
	enrollments repository.EnrollmentRepository
	programs    repository.ProgramRepository
	log         *zerolog.Logger
}

func NewEnrollmentUseCase(enrollments repository.EnrollmentRepository, programs repository.ProgramRepository, logger *zerolog.Logger) *enrollmentUC {
	return &enrollmentUC{enrollments: enrollments, programs: programs, log: logger}
}

func (u *enrollmentUC) Enroll(ctx context.Context, userID, programID string) (*model.Enrollment, error) {
	program, err := u.programs.FindByID(ctx, repository.NoTX, programID)
	if err != nil {
		return nil, err
	}

	existing, err := u.enrollments.FindByUserAndProgram(ctx, repository.NoTX, userID, programID)
	if err != nil && err != domain.ErrNotFound && err != domain.ErrEnrollmentNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyEnrolled
	}

	if program.Paid {
		return nil, domain.ErrPaymentRequired
	}

	enrollment, err := model.NewEnrollment(userID, program, false, nil)
	if err != nil {
		return nil, err
	}
	if err := u.enrollments.Save(ctx, repository.NoTX, enrollment); err != nil {
		return nil, err
	}
	metrics.IncEnrollment("free")
	u.log.Info().Str("user_id", userID).Str("marathon_id", programID).Msg("enrolled in free marathon")
	return enrollment, nil
}

func (u *enrollmentUC) CheckDayAccess(ctx context.Context, userID, programID string, day int, now time.Time) (*model.Enrollment, error) {
	program, err := u.programs.FindByID(ctx, repository.NoTX, programID)
	if err != nil {
		return nil, err
	}
	enrollment, err := u.enrollments.FindByUserAndProgram(ctx, repository.NoTX, userID, programID)
	if err != nil {
		return nil, err
	}
	if enrollment.Status != model.EnrollmentStatusActive && enrollment.Status != model.EnrollmentStatusCompleted {
		return nil, domain.ErrAccessDenied
	}
	if err := program.CheckDayAccess(day, now); err != nil {
		return nil, err
	}
	return enrollment, nil
}

func (u *enrollmentUC) UnlockedDay(ctx context.Context, programID string, now time.Time) (int, error) {
	program, err := u.programs.FindByID(ctx, repository.NoTX, programID)
	if err != nil {
		return 0, err
	}
	return program.UnlockedDay(now), nil
}

func (u *enrollmentUC) CompleteDay(ctx context.Context, userID, programID string, day int) (*model.Enrollment, error) {
	if day < 1 {
		return nil, domain.ErrInvalidArgument
	}
	enrollment, err := u.enrollments.FindByUserAndProgram(ctx, repository.NoTX, userID, programID)
	if err != nil {
		return nil, err
	}
	if enrollment.CompleteDay(day) {
		if err := u.enrollments.Save(ctx, repository.NoTX, enrollment); err != nil {
			return nil, err
		}
		u.log.Debug().Str("user_id", userID).Str("marathon_id", programID).Int("day", day).Msg("day completed")
	}
	return enrollment, nil
}

func (u *enrollmentUC) Progress(ctx context.Context, userID, programID string) (*model.Enrollment, error) {
	return u.enrollments.FindByUserAndProgram(ctx, repository.NoTX, userID, programID)
}

func (u *enrollmentUC) ListByUser(ctx context.Context, userID string) ([]*model.Enrollment, error) {
	return u.enrollments.ListByUser(ctx, repository.NoTX, userID)
}
