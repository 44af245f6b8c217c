package repository

import (
	"context"
	"time"

	"marathon-billing/internal/domain/model"
)

// PurchaseRepository stores timed single-exercise unlocks.
type PurchaseRepository interface {
	// Upsert is keyed by order id so re-running activation for the same order
	// overwrites the one row instead of stacking duplicates.
	Upsert(ctx context.Context, tx Tx, p *model.PurchasedItemAccess) error
	FindActiveByUserAndExercise(ctx context.Context, tx Tx, userID, exerciseID string, now time.Time) (*model.PurchasedItemAccess, error)
	ListActiveByUser(ctx context.Context, tx Tx, userID string, now time.Time) ([]*model.PurchasedItemAccess, error)
}
