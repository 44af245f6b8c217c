package repository

import (
	"context"
	"time"

	"marathon-billing/internal/domain/model"
)

// OrderRepository is the ledger's storage port. Status mutations are
// compare-and-swap style so concurrent triggers cannot regress an order.
type OrderRepository interface {
	Save(ctx context.Context, tx Tx, o *model.Order) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Order, error)
	// FindByLocalOrExternalID resolves either the ULID or the bank's order id,
	// since poll, webhook and callback each supply whichever they have.
	FindByLocalOrExternalID(ctx context.Context, tx Tx, id string) (*model.Order, error)

	// MarkRegistered transitions pending -> awaiting_payment and records the
	// bank order id and checkout URL in the same statement. Returns false when
	// the order was not in pending (the caller maps that to ErrInvalidTransition).
	MarkRegistered(ctx context.Context, tx Tx, id, externalID, paymentURL string) (bool, error)

	// UpdateStatusIfNotTerminal applies a forward transition only while the
	// stored status is non-terminal. Returns false when a terminal status had
	// already won (a no-op for the caller, not an error).
	UpdateStatusIfNotTerminal(ctx context.Context, tx Tx, id string, status model.OrderStatus, errorMessage *string) (bool, error)

	ListByUser(ctx context.Context, tx Tx, userID string, offset, limit int) ([]*model.Order, error)
	CountByUser(ctx context.Context, tx Tx, userID string) (int, error)

	// ListAwaitingOlderThan feeds the stale-order sweeper.
	ListAwaitingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Order, error)
}
