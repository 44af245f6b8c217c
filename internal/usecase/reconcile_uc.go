package usecase

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/adapter"
	"marathon-billing/internal/domain/ports/repository"
	"marathon-billing/internal/infra/metrics"
)

// Locker serializes reconciliation attempts per order. Best effort only: the
// grant record's unique constraint is the durable at-most-once boundary, the
// lock just keeps the common case from doing duplicate gateway calls.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (token string, err error)
	Unlock(ctx context.Context, key, token string) error
}

// Compile-time check
var _ ReconcileUseCase = (*reconcileUC)(nil)

// ReconcileUseCase is the single status-convergence entry point shared by the
// status poll, the bank webhook, the browser callback redirect, and the
// stale-order sweeper. Whichever trigger arrives first performs the transition
// and activation; later arrivals are no-ops.
type ReconcileUseCase interface {
	// Reconcile resolves the order by local or external id, converges its
	// status with the bank, and activates the entitlement on the first
	// transition into succeeded. Always returns the current order when it
	// exists, even if the gateway is unreachable.
	Reconcile(ctx context.Context, idOrExternalID string) (*model.Order, error)
}

type reconcileUC struct {
	orders    repository.OrderRepository
	grants    repository.GrantRepository
	gateway   adapter.PaymentGateway
	activator EntitlementActivator
	tm        repository.TransactionManager
	locker    Locker // optional
	log       *zerolog.Logger
}

func NewReconcileUseCase(
	orders repository.OrderRepository,
	grants repository.GrantRepository,
	gateway adapter.PaymentGateway,
	activator EntitlementActivator,
	tm repository.TransactionManager,
	locker Locker,
	logger *zerolog.Logger,
) *reconcileUC {
	return &reconcileUC{orders: orders, grants: grants, gateway: gateway, activator: activator, tm: tm, locker: locker, log: logger}
}

const reconcileLockTTL = 30 * time.Second

func (u *reconcileUC) Reconcile(ctx context.Context, idOrExternalID string) (*model.Order, error) {
	order, err := u.orders.FindByLocalOrExternalID(ctx, repository.NoTX, idOrExternalID)
	if err != nil {
		if err == domain.ErrNotFound {
			return nil, domain.ErrOrderNotFound
		}
		return nil, err
	}

	// Terminal orders are settled: replayed webhooks and repeated polls become
	// pure reads, no gateway round-trip, no second activation.
	if order.Status.Terminal() {
		metrics.IncReconciliation("noop_terminal")
		return order, nil
	}

	// Nothing to converge until registration assigned an external id.
	if order.ExternalID == "" {
		metrics.IncReconciliation("noop_unregistered")
		return order, nil
	}

	if u.locker != nil {
		key := "reconcile:" + order.ID
		token, lockErr := u.locker.TryLock(ctx, key, reconcileLockTTL)
		if lockErr != nil {
			u.log.Debug().Str("order_id", order.ID).Msg("reconcile lock busy, proceeding unlocked")
		} else {
			defer func() {
				if err := u.locker.Unlock(ctx, key, token); err != nil {
					u.log.Warn().Err(err).Str("order_id", order.ID).Msg("reconcile unlock failed")
				}
			}()
		}
	}

	code, err := u.gateway.FetchStatus(ctx, order.ExternalID)
	if err != nil {
		// Graceful degradation: a poll should not fail outright because the
		// bank is slow; report the last known local status instead.
		u.log.Warn().Err(err).Str("order_id", order.ID).Str("external_id", order.ExternalID).
			Msg("gateway status check failed, returning local status")
		metrics.IncReconciliation("gateway_error")
		return order, nil
	}

	switch u.gateway.MapStatus(code) {
	case adapter.CanonicalPending:
		metrics.IncReconciliation("still_pending")
		return order, nil
	case adapter.CanonicalFailed:
		return u.finalize(ctx, order, model.OrderStatusFailed)
	case adapter.CanonicalCanceled:
		return u.finalize(ctx, order, model.OrderStatusCanceled)
	case adapter.CanonicalSucceeded:
		return u.settleSucceeded(ctx, order)
	default:
		metrics.IncReconciliation("still_pending")
		return order, nil
	}
}

// finalize moves the order into a non-success terminal state via CAS. Losing the
// CAS means another trigger already finalized it; re-read and return that truth.
func (u *reconcileUC) finalize(ctx context.Context, order *model.Order, status model.OrderStatus) (*model.Order, error) {
	ok, err := u.orders.UpdateStatusIfNotTerminal(ctx, repository.NoTX, order.ID, status, nil)
	if err != nil {
		return nil, err
	}
	if !ok {
		return u.orders.FindByID(ctx, repository.NoTX, order.ID)
	}
	order.Status = status
	metrics.IncReconciliation(string(status))
	metrics.IncOrder(string(status))
	u.log.Info().Str("order_id", order.ID).Str("status", string(status)).Msg("order finalized")
	return order, nil
}

// settleSucceeded performs the first-success transition: inside one transaction,
// insert the grant marker (unique on order_id — the insert arbitrates races),
// apply the entitlement, and flip the order to succeeded. If entitlement
// persistence fails the whole transaction rolls back, so no grant ever exists
// without its entitlement and a later retry activates again.
func (u *reconcileUC) settleSucceeded(ctx context.Context, order *model.Order) (*model.Order, error) {
	var activated bool
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		grant := &model.EntitlementGrant{
			OrderID:   order.ID,
			UserID:    order.UserID,
			Kind:      order.Purpose.Kind(),
			GrantedAt: time.Now(),
		}
		inserted, err := u.grants.CreateIfAbsent(ctx, tx, grant)
		if err != nil {
			return err
		}
		if inserted {
			if err := u.activator.Activate(ctx, tx, order); err != nil {
				return err
			}
			activated = true
		}
		if _, err := u.orders.UpdateStatusIfNotTerminal(ctx, tx, order.ID, model.OrderStatusSucceeded, nil); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order.Status = model.OrderStatusSucceeded
	if activated {
		metrics.IncReconciliation("activated")
		metrics.IncOrder(string(model.OrderStatusSucceeded))
		metrics.AddRevenue(order.Currency, order.Amount)
		u.log.Info().Str("order_id", order.ID).Str("user_id", order.UserID).
			Str("purpose", string(order.Purpose.Kind())).Msg("payment succeeded, entitlement granted")
	} else {
		metrics.IncReconciliation("already_granted")
	}
	return order, nil
}
