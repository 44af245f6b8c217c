package model

import "time"

// EntitlementGrant is the idempotency marker proving an order's paid access has
// already been applied. One row per order, inserted exactly once, never mutated.
// The unique constraint on OrderID is what makes concurrent reconciliations safe.
type EntitlementGrant struct {
	OrderID   string
	UserID    string
	Kind      PurposeKind
	GrantedAt time.Time
}

// PurchasedItemAccess is a timed unlock of a single exercise's paid materials.
type PurchasedItemAccess struct {
	ID           string
	UserID       string
	ExerciseID   string
	ExerciseName string
	OrderID      string
	Price        int64 // minor units
	PurchasedAt  time.Time
	ExpiresAt    time.Time
}

func (p *PurchasedItemAccess) Active(now time.Time) bool { return p.ExpiresAt.After(now) }
