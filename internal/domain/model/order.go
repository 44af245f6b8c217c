package model

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"

	"marathon-billing/internal/domain"
)

type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "pending"          // persisted locally, not yet registered with the bank
	OrderStatusRegistering     OrderStatus = "registering"      // registration call in flight
	OrderStatusAwaitingPayment OrderStatus = "awaiting_payment" // registered; user is on the hosted checkout page
	OrderStatusSucceeded       OrderStatus = "succeeded"
	OrderStatusFailed          OrderStatus = "failed"
	OrderStatusCanceled        OrderStatus = "canceled"
)

// statusRank orders statuses so transitions only ever move forward.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:         0,
	OrderStatusRegistering:     1,
	OrderStatusAwaitingPayment: 2,
	OrderStatusSucceeded:       3,
	OrderStatusFailed:          3,
	OrderStatusCanceled:        3,
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusSucceeded || s == OrderStatusFailed || s == OrderStatusCanceled
}

// CanTransitionTo reports whether moving from s to next keeps the forward-only
// ordering. Re-entering the same terminal state is allowed (replayed signals).
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s == next {
		return true
	}
	if s.Terminal() {
		return false
	}
	return statusRank[next] > statusRank[s]
}

// Order is the local ledger record of one payment attempt, correlated with the
// bank's order by ExternalID once registration succeeds.
type Order struct {
	ID           string // ULID, embeds creation time
	OrderNumber  string // human-traceable, shown on receipts
	UserID       string
	Amount       int64  // minor units (kopecks)
	Currency     string // ISO 4217 numeric, "643" for RUB
	Status       OrderStatus
	ExternalID   string // bank-side order id; empty until registered
	PaymentURL   string // hosted checkout page; empty until registered
	Purpose      Purpose
	Description  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewOrder validates input and constructs a pending order.
func NewOrder(userID string, amount int64, currency, description string, purpose Purpose) (*Order, error) {
	if userID == "" || amount <= 0 || currency == "" {
		return nil, domain.ErrInvalidArgument
	}
	if purpose == nil {
		return nil, domain.ErrInvalidArgument
	}
	if err := purpose.Validate(); err != nil {
		return nil, err
	}
	now := time.Now()
	return &Order{
		ID:          ulid.Make().String(),
		OrderNumber: NewOrderNumber(now),
		UserID:      userID,
		Amount:      amount,
		Currency:    currency,
		Status:      OrderStatusPending,
		Purpose:     purpose,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// NewOrderNumber builds a receipt-friendly order number: ddmmyyyyHHMM plus a
// random 4-digit suffix to disambiguate orders created in the same minute.
func NewOrderNumber(now time.Time) string {
	return fmt.Sprintf("%s-%04d", now.Format("020120061504"), rand.Intn(10000))
}

type PurposeKind string

const (
	PurposePremium  PurposeKind = "premium"
	PurposeExercise PurposeKind = "exercise"
	PurposeMarathon PurposeKind = "marathon"
)

// Purpose is what a successful order grants. Modeled as a closed sum so the
// entitlement activator can switch exhaustively on the concrete type.
type Purpose interface {
	Kind() PurposeKind
	Validate() error
}

type PremiumPurchase struct {
	PlanType     string `json:"plan_type"`
	DurationDays int    `json:"duration_days"`
}

func (p PremiumPurchase) Kind() PurposeKind { return PurposePremium }

func (p PremiumPurchase) Validate() error {
	if p.PlanType == "" || p.DurationDays <= 0 {
		return domain.ErrInvalidArgument
	}
	return nil
}

type ExercisePurchase struct {
	ExerciseID   string `json:"exercise_id"`
	ExerciseName string `json:"exercise_name"`
}

func (p ExercisePurchase) Kind() PurposeKind { return PurposeExercise }

func (p ExercisePurchase) Validate() error {
	if p.ExerciseID == "" || p.ExerciseName == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

type MarathonPurchase struct {
	MarathonID   string `json:"marathon_id"`
	MarathonName string `json:"marathon_name"`
}

func (p MarathonPurchase) Kind() PurposeKind { return PurposeMarathon }

func (p MarathonPurchase) Validate() error {
	if p.MarathonID == "" {
		return domain.ErrInvalidArgument
	}
	return nil
}

// purposeEnvelope is the storage representation: kind tag plus the variant payload.
type purposeEnvelope struct {
	Kind PurposeKind     `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePurpose serializes a Purpose for the purpose JSONB column.
func EncodePurpose(p Purpose) ([]byte, error) {
	if p == nil {
		return nil, domain.ErrInvalidArgument
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return json.Marshal(purposeEnvelope{Kind: p.Kind(), Data: data})
}

// DecodePurpose is the inverse of EncodePurpose.
func DecodePurpose(raw []byte) (Purpose, error) {
	var env purposeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	switch env.Kind {
	case PurposePremium:
		var p PremiumPurchase
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case PurposeExercise:
		var p ExercisePurchase
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case PurposeMarathon:
		var p MarathonPurchase
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: unknown purpose kind %q", domain.ErrInvalidArgument, env.Kind)
	}
}
