//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/adapter"
	"marathon-billing/internal/usecase"
)

type orderUCTestDeps struct {
	orders    *MockOrderRepo
	users     *MockUserRepo
	programs  *MockProgramRepo
	purchases *MockPurchaseRepo
	gateway   *MockGateway
}

func newOrderUCDeps() *orderUCTestDeps {
	deps := &orderUCTestDeps{
		orders:    NewMockOrderRepo(),
		users:     NewMockUserRepo(),
		programs:  NewMockProgramRepo(),
		purchases: NewMockPurchaseRepo(),
		gateway:   &MockGateway{},
	}
	_ = deps.users.Save(context.Background(), nil, &model.User{ID: "user-1", Email: "u@test.ru"})
	return deps
}

func (d *orderUCTestDeps) uc() usecase.OrderUseCase {
	return usecase.NewOrderUseCase(d.orders, d.users, d.programs, d.purchases, d.gateway, newTestLogger())
}

func TestOrderUseCase_CreatePremium(t *testing.T) {
	ctx := context.Background()

	t.Run("registers order and moves it to awaiting_payment", func(t *testing.T) {
		deps := newOrderUCDeps()

		order, err := deps.uc().CreatePremium(ctx, "user-1", 99900, "Premium 3 months", "quarterly", 90)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if order.Status != model.OrderStatusAwaitingPayment {
			t.Errorf("expected awaiting_payment, got %s", order.Status)
		}
		if order.PaymentURL == "" || order.ExternalID == "" {
			t.Error("expected payment URL and external id after registration")
		}
		stored := deps.orders.Get(order.ID)
		if stored == nil || stored.Status != model.OrderStatusAwaitingPayment {
			t.Errorf("stored order not updated: %+v", stored)
		}
	})

	t.Run("marks order failed when the gateway rejects registration", func(t *testing.T) {
		deps := newOrderUCDeps()
		deps.gateway.RegisterOrderFunc = func(ctx context.Context, orderNumber string, amount int64, description, email string, meta map[string]string) (adapter.Registration, error) {
			return adapter.Registration{}, domain.ErrGatewayUnavailable
		}

		_, err := deps.uc().CreatePremium(ctx, "user-1", 99900, "Premium", "monthly", 30)
		if !errors.Is(err, domain.ErrGatewayUnavailable) {
			t.Fatalf("expected gateway error, got: %v", err)
		}

		// The pending order must be left in failed with the error recorded.
		var failed *model.Order
		orders, _ := deps.orders.ListByUser(ctx, nil, "user-1", 0, 10)
		for _, o := range orders {
			if o.Status == model.OrderStatusFailed {
				failed = o
			}
		}
		if failed == nil {
			t.Fatal("expected the order to be marked failed")
		}
		if failed.ErrorMessage == "" {
			t.Error("expected the gateway error text to be recorded on the order")
		}
	})

	t.Run("rejects unknown users", func(t *testing.T) {
		deps := newOrderUCDeps()
		_, err := deps.uc().CreatePremium(ctx, "ghost", 99900, "Premium", "monthly", 30)
		if !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected ErrUserNotFound, got: %v", err)
		}
	})

	t.Run("rejects empty description", func(t *testing.T) {
		deps := newOrderUCDeps()
		_, err := deps.uc().CreatePremium(ctx, "user-1", 99900, "", "monthly", 30)
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})
}

func TestOrderUseCase_CreateExercise(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an exercise order", func(t *testing.T) {
		deps := newOrderUCDeps()
		order, err := deps.uc().CreateExercise(ctx, "user-1", "ex-42", "Планка", 19900)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if _, ok := order.Purpose.(model.ExercisePurchase); !ok {
			t.Errorf("expected exercise purpose, got %T", order.Purpose)
		}
	})

	t.Run("rejects while an unexpired purchase exists", func(t *testing.T) {
		deps := newOrderUCDeps()
		_ = deps.purchases.Upsert(ctx, nil, &model.PurchasedItemAccess{
			ID:         uuid.NewString(),
			UserID:     "user-1",
			ExerciseID: "ex-42",
			OrderID:    "prev-order",
			ExpiresAt:  time.Now().Add(24 * time.Hour),
		})

		_, err := deps.uc().CreateExercise(ctx, "user-1", "ex-42", "Планка", 19900)
		if !errors.Is(err, domain.ErrAlreadyPurchased) {
			t.Fatalf("expected ErrAlreadyPurchased, got: %v", err)
		}
	})

	t.Run("allows repurchase after the previous access expired", func(t *testing.T) {
		deps := newOrderUCDeps()
		_ = deps.purchases.Upsert(ctx, nil, &model.PurchasedItemAccess{
			ID:         uuid.NewString(),
			UserID:     "user-1",
			ExerciseID: "ex-42",
			OrderID:    "prev-order",
			ExpiresAt:  time.Now().Add(-time.Hour),
		})

		if _, err := deps.uc().CreateExercise(ctx, "user-1", "ex-42", "Планка", 19900); err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
	})
}

func TestOrderUseCase_CreateMarathon(t *testing.T) {
	ctx := context.Background()

	t.Run("prices the order from the program record", func(t *testing.T) {
		deps := newOrderUCDeps()
		deps.programs.Put(&model.Program{
			ID: "mar-1", Title: "Сушка 30", StartDate: time.Now(), DurationDays: 30,
			Paid: true, Price: 490000, PaymentDescription: "Марафон Сушка 30",
		})

		order, err := deps.uc().CreateMarathon(ctx, "user-1", "mar-1")
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if order.Amount != 490000 {
			t.Errorf("expected amount from program, got %d", order.Amount)
		}
		if order.Description != "Марафон Сушка 30" {
			t.Errorf("unexpected description: %s", order.Description)
		}
	})

	t.Run("rejects free programs", func(t *testing.T) {
		deps := newOrderUCDeps()
		deps.programs.Put(&model.Program{ID: "free-1", Title: "Free", StartDate: time.Now(), DurationDays: 14})

		_, err := deps.uc().CreateMarathon(ctx, "user-1", "free-1")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Fatalf("expected ErrInvalidArgument, got: %v", err)
		}
	})

	t.Run("rejects unknown programs", func(t *testing.T) {
		deps := newOrderUCDeps()
		_, err := deps.uc().CreateMarathon(ctx, "user-1", "nope")
		if !errors.Is(err, domain.ErrProgramNotFound) {
			t.Fatalf("expected ErrProgramNotFound, got: %v", err)
		}
	})
}

func TestOrderUseCase_History(t *testing.T) {
	ctx := context.Background()
	deps := newOrderUCDeps()
	uc := deps.uc()

	for i := 0; i < 3; i++ {
		if _, err := uc.CreatePremium(ctx, "user-1", 10000, "Premium", "monthly", 30); err != nil {
			t.Fatalf("seed order %d: %v", i, err)
		}
	}

	orders, total, err := uc.History(ctx, "user-1", 1, 2)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(orders) != 2 {
		t.Errorf("expected page of 2, got %d", len(orders))
	}
}
