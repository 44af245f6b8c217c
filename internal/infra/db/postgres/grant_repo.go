package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/repository"
)

var _ repository.GrantRepository = (*grantRepo)(nil)

type grantRepo struct{ pool *pgxpool.Pool }

func NewGrantRepo(pool *pgxpool.Pool) *grantRepo {
	return &grantRepo{pool: pool}
}

// CreateIfAbsent lets the unique index on order_id arbitrate races: exactly one
// concurrent insert reports rows affected, every other one sees zero.
func (r *grantRepo) CreateIfAbsent(ctx context.Context, tx repository.Tx, g *model.EntitlementGrant) (bool, error) {
	const q = `
INSERT INTO entitlement_grants (order_id, user_id, kind, granted_at)
VALUES ($1,$2,$3,$4)
ON CONFLICT (order_id) DO NOTHING;`
	cmd, err := execSQL(ctx, r.pool, tx, q, g.OrderID, g.UserID, string(g.Kind), g.GrantedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *grantRepo) FindByOrderID(ctx context.Context, tx repository.Tx, orderID string) (*model.EntitlementGrant, error) {
	const q = `SELECT order_id, user_id, kind, granted_at FROM entitlement_grants WHERE order_id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, orderID)
	if err != nil {
		return nil, err
	}
	g := &model.EntitlementGrant{}
	var kind string
	if err := row.Scan(&g.OrderID, &g.UserID, &kind, &g.GrantedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	g.Kind = model.PurposeKind(kind)
	return g, nil
}
