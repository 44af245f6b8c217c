package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/adapter"
	"marathon-billing/internal/domain/ports/repository"
	"marathon-billing/internal/infra/metrics"
)

// CurrencyRUB is the ISO 4217 numeric code the bank expects.
const CurrencyRUB = "643"

// Compile-time check
var _ OrderUseCase = (*orderUC)(nil)

type OrderUseCase interface {
	// CreatePremium opens a premium-subscription order and registers it with
	// the bank. Amount is in minor units (kopecks).
	CreatePremium(ctx context.Context, userID string, amount int64, description, planType string, durationDays int) (*model.Order, error)
	// CreateExercise opens a single-exercise order. Rejected with
	// ErrAlreadyPurchased while an unexpired purchase exists for the pair.
	CreateExercise(ctx context.Context, userID, exerciseID, exerciseName string, price int64) (*model.Order, error)
	// CreateMarathon opens an order for a paid program; price and receipt text
	// come from the program record.
	CreateMarathon(ctx context.Context, userID, marathonID string) (*model.Order, error)
	// History lists the user's own orders, newest first.
	History(ctx context.Context, userID string, page, limit int) ([]*model.Order, int, error)
}

type orderUC struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	programs  repository.ProgramRepository
	purchases repository.PurchaseRepository
	gateway   adapter.PaymentGateway
	log       *zerolog.Logger
}

func NewOrderUseCase(
	orders repository.OrderRepository,
	users repository.UserRepository,
	programs repository.ProgramRepository,
	purchases repository.PurchaseRepository,
	gateway adapter.PaymentGateway,
	logger *zerolog.Logger,
) *orderUC {
	return &orderUC{orders: orders, users: users, programs: programs, purchases: purchases, gateway: gateway, log: logger}
}

func (u *orderUC) CreatePremium(ctx context.Context, userID string, amount int64, description, planType string, durationDays int) (*model.Order, error) {
	if description == "" {
		return nil, domain.ErrInvalidArgument
	}
	purpose := model.PremiumPurchase{PlanType: planType, DurationDays: durationDays}
	return u.create(ctx, userID, amount, description, purpose)
}

func (u *orderUC) CreateExercise(ctx context.Context, userID, exerciseID, exerciseName string, price int64) (*model.Order, error) {
	purpose := model.ExercisePurchase{ExerciseID: exerciseID, ExerciseName: exerciseName}
	if err := purpose.Validate(); err != nil {
		return nil, err
	}
	existing, err := u.purchases.FindActiveByUserAndExercise(ctx, repository.NoTX, userID, exerciseID, time.Now())
	if err != nil && err != domain.ErrNotFound {
		return nil, err
	}
	if existing != nil {
		return nil, domain.ErrAlreadyPurchased
	}
	description := fmt.Sprintf("Фото и видео материалы к %s", exerciseName)
	return u.create(ctx, userID, price, description, purpose)
}

func (u *orderUC) CreateMarathon(ctx context.Context, userID, marathonID string) (*model.Order, error) {
	program, err := u.programs.FindByID(ctx, repository.NoTX, marathonID)
	if err != nil {
		return nil, err
	}
	if !program.Paid || program.Price <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	description := program.PaymentDescription
	if description == "" {
		description = fmt.Sprintf("Доступ к материалам марафона %s", program.Title)
	}
	purpose := model.MarathonPurchase{MarathonID: program.ID, MarathonName: program.Title}
	return u.create(ctx, userID, program.Price, description, purpose)
}

// create persists a pending order, registers it with the bank, and fast-forwards
// to awaiting_payment. A registration failure marks the order failed in the same
// request: the client retries by creating a fresh order, never by poking a stuck one.
func (u *orderUC) create(ctx context.Context, userID string, amount int64, description string, purpose model.Purpose) (*model.Order, error) {
	user, err := u.users.FindByID(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, err
	}

	order, err := model.NewOrder(userID, amount, CurrencyRUB, description, purpose)
	if err != nil {
		return nil, err
	}
	if err := u.orders.Save(ctx, repository.NoTX, order); err != nil {
		return nil, err
	}
	metrics.IncOrder(string(model.OrderStatusPending))

	reg, err := u.gateway.RegisterOrder(ctx, order.OrderNumber, order.Amount, order.Description, user.Email, purposeMeta(userID, purpose))
	if err != nil {
		msg := err.Error()
		if _, ferr := u.orders.UpdateStatusIfNotTerminal(ctx, repository.NoTX, order.ID, model.OrderStatusFailed, &msg); ferr != nil {
			u.log.Error().Err(ferr).Str("order_id", order.ID).Msg("mark failed after registration error")
		}
		metrics.IncOrder(string(model.OrderStatusFailed))
		u.log.Warn().Err(err).Str("order_id", order.ID).Str("order_number", order.OrderNumber).Msg("gateway registration failed")
		return nil, err
	}

	ok, err := u.orders.MarkRegistered(ctx, repository.NoTX, order.ID, reg.ExternalID, reg.PaymentURL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidTransition
	}
	order.Status = model.OrderStatusAwaitingPayment
	order.ExternalID = reg.ExternalID
	order.PaymentURL = reg.PaymentURL
	metrics.IncOrder(string(model.OrderStatusAwaitingPayment))
	u.log.Info().Str("order_id", order.ID).Str("external_id", reg.ExternalID).Int64("amount", amount).Msg("order registered")
	return order, nil
}

// purposeMeta is the jsonParams blob the bank echoes back in its panel; handy
// when support reconciles a charge by hand.
func purposeMeta(userID string, purpose model.Purpose) map[string]string {
	meta := map[string]string{"userId": userID, "type": string(purpose.Kind())}
	switch p := purpose.(type) {
	case model.PremiumPurchase:
		meta["planType"] = p.PlanType
		meta["duration"] = fmt.Sprintf("%d", p.DurationDays)
	case model.ExercisePurchase:
		meta["exerciseId"] = p.ExerciseID
		meta["exerciseName"] = p.ExerciseName
	case model.MarathonPurchase:
		meta["marathonId"] = p.MarathonID
		meta["marathonName"] = p.MarathonName
	}
	return meta
}

func (u *orderUC) History(ctx context.Context, userID string, page, limit int) ([]*model.Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = 10
	}
	orders, err := u.orders.ListByUser(ctx, repository.NoTX, userID, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, err
	}
	total, err := u.orders.CountByUser(ctx, repository.NoTX, userID)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
