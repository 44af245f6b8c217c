package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"marathon-billing/internal/domain/ports/repository"
	"marathon-billing/internal/usecase"
)

// OrderSweeper periodically scans for stale awaiting_payment orders and runs a
// reconciliation for each. This covers orders whose webhook was lost or whose
// buyer abandoned the checkout page without the callback ever firing.
type OrderSweeper struct {
	reconciler usecase.ReconcileUseCase
	orders     repository.OrderRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old an awaiting order must be to retry
	batchSize  int
	log        *zerolog.Logger
}

func NewOrderSweeper(reconciler usecase.ReconcileUseCase, orders repository.OrderRepository, interval, staleAfter time.Duration, batchSize int, log *zerolog.Logger) *OrderSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 200
	}
	return &OrderSweeper{
		reconciler: reconciler,
		orders:     orders,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		log:        log,
	}
}

func (w *OrderSweeper) Start(ctx context.Context) {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *OrderSweeper) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	stale, err := w.orders.ListAwaitingOlderThan(ctx, nil, cutoff, w.batchSize)
	if err != nil {
		w.log.Error().Err(err).Msg("order-sweeper: list awaiting orders")
		return
	}
	for _, o := range stale {
		order, err := w.reconciler.Reconcile(ctx, o.ID)
		if err != nil {
			w.log.Warn().Err(err).Str("order_id", o.ID).Msg("order-sweeper: reconcile failed")
			continue
		}
		if order.Status != o.Status {
			w.log.Info().
				Str("order_id", o.ID).
				Str("from", string(o.Status)).
				Str("to", string(order.Status)).
				Msg("order-sweeper: order settled")
		}
	}
}
