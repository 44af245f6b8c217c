package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/repository"
	"marathon-billing/internal/infra/metrics"
)

// EntitlementActivator converts a paid order into user access. At-most-once per
// order is the reconciler's job (via the grant record); the activator itself only
// has to be tolerant of overlapping windows — extend or overwrite, never crash.
type EntitlementActivator interface {
	Activate(ctx context.Context, tx repository.Tx, order *model.Order) error
}

var _ EntitlementActivator = (*entitlementUC)(nil)

type entitlementUC struct {
	users       repository.UserRepository
	purchases   repository.PurchaseRepository
	enrollments repository.EnrollmentRepository
	programs    repository.ProgramRepository
	log         *zerolog.Logger
}

func NewEntitlementActivator(
	users repository.UserRepository,
	purchases repository.PurchaseRepository,
	enrollments repository.EnrollmentRepository,
	programs repository.ProgramRepository,
	logger *zerolog.Logger,
) *entitlementUC {
	return &entitlementUC{users: users, purchases: purchases, enrollments: enrollments, programs: programs, log: logger}
}

func (u *entitlementUC) Activate(ctx context.Context, tx repository.Tx, order *model.Order) error {
	switch p := order.Purpose.(type) {
	case model.PremiumPurchase:
		return u.activatePremium(ctx, tx, order, p)
	case model.ExercisePurchase:
		return u.activateExercise(ctx, tx, order, p)
	case model.MarathonPurchase:
		return u.activateMarathon(ctx, tx, order, p)
	default:
		return fmt.Errorf("%w: order %s has unknown purpose", domain.ErrInvalidArgument, order.ID)
	}
}

func (u *entitlementUC) activatePremium(ctx context.Context, tx repository.Tx, order *model.Order, p model.PremiumPurchase) error {
	user, err := u.users.FindByID(ctx, tx, order.UserID)
	if err != nil {
		return err
	}
	user.ExtendPremium(time.Now(), p.DurationDays)
	if err := u.users.Save(ctx, tx, user); err != nil {
		return err
	}
	u.log.Info().Str("user_id", user.ID).Str("order_id", order.ID).
		Time("premium_end", *user.PremiumEndDate).Msg("premium activated")
	return nil
}

func (u *entitlementUC) activateExercise(ctx context.Context, tx repository.Tx, order *model.Order, p model.ExercisePurchase) error {
	now := time.Now()
	access := &model.PurchasedItemAccess{
		ID:           uuid.NewString(),
		UserID:       order.UserID,
		ExerciseID:   p.ExerciseID,
		ExerciseName: p.ExerciseName,
		OrderID:      order.ID,
		Price:        order.Amount,
		PurchasedAt:  now,
		ExpiresAt:    now.AddDate(0, 1, 0), // one month of access
	}
	if err := u.purchases.Upsert(ctx, tx, access); err != nil {
		return err
	}
	u.log.Info().Str("user_id", order.UserID).Str("exercise_id", p.ExerciseID).
		Str("order_id", order.ID).Msg("exercise access activated")
	return nil
}

// activateMarathon creates the enrollment for a paid program, or reactivates an
// existing one (e.g. the user enrolled earlier and the enrollment lapsed).
func (u *entitlementUC) activateMarathon(ctx context.Context, tx repository.Tx, order *model.Order, p model.MarathonPurchase) error {
	program, err := u.programs.FindByID(ctx, tx, p.MarathonID)
	if err != nil {
		return err
	}

	enrollment, err := u.enrollments.FindByUserAndProgram(ctx, tx, order.UserID, program.ID)
	switch {
	case err == nil:
		orderID := order.ID
		enrollment.Status = model.EnrollmentStatusActive
		enrollment.Paid = true
		enrollment.OrderID = &orderID
		enrollment.EnrolledAt = time.Now()
		enrollment.UpdatedAt = time.Now()
	case err == domain.ErrNotFound || err == domain.ErrEnrollmentNotFound:
		orderID := order.ID
		enrollment, err = model.NewEnrollment(order.UserID, program, true, &orderID)
		if err != nil {
			return err
		}
	default:
		return err
	}

	if err := u.enrollments.Save(ctx, tx, enrollment); err != nil {
		return err
	}
	metrics.IncEnrollment("paid")
	u.log.Info().Str("user_id", order.UserID).Str("marathon_id", program.ID).
		Str("order_id", order.ID).Msg("marathon access activated")
	return nil
}
