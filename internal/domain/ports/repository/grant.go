package repository

import (
	"context"

	"marathon-billing/internal/domain/model"
)

// GrantRepository stores the at-most-once activation markers.
type GrantRepository interface {
	// CreateIfAbsent inserts the grant, relying on the unique constraint on
	// order_id. Returns false when a grant for the order already exists —
	// the losing side of a race treats that as "already activated, skip".
	CreateIfAbsent(ctx context.Context, tx Tx, g *model.EntitlementGrant) (bool, error)
	FindByOrderID(ctx context.Context, tx Tx, orderID string) (*model.EntitlementGrant, error)
}
