package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"marathon-billing/internal/domain"
	"marathon-billing/internal/domain/model"
	"marathon-billing/internal/domain/ports/repository"
)

var _ repository.PurchaseRepository = (*purchaseRepo)(nil)

type purchaseRepo struct{ pool *pgxpool.Pool }

func NewPurchaseRepo(pool *pgxpool.Pool) *purchaseRepo {
	return &purchaseRepo{pool: pool}
}

const purchaseColumns = `id, user_id, exercise_id, exercise_name, order_id, price, purchased_at, expires_at`

func (r *purchaseRepo) Upsert(ctx context.Context, tx repository.Tx, p *model.PurchasedItemAccess) error {
	const q = `
INSERT INTO exercise_purchases (id, user_id, exercise_id, exercise_name, order_id, price, purchased_at, expires_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (order_id) DO UPDATE SET
  exercise_name=$4, price=$6, purchased_at=$7, expires_at=$8;`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.UserID, p.ExerciseID, p.ExerciseName, p.OrderID, p.Price, p.PurchasedAt, p.ExpiresAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *purchaseRepo) FindActiveByUserAndExercise(ctx context.Context, tx repository.Tx, userID, exerciseID string, now time.Time) (*model.PurchasedItemAccess, error) {
	const q = `
SELECT ` + purchaseColumns + `
  FROM exercise_purchases
 WHERE user_id=$1 AND exercise_id=$2 AND expires_at > $3
 ORDER BY expires_at DESC
 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, exerciseID, now)
	if err != nil {
		return nil, err
	}
	return scanPurchase(row)
}

func (r *purchaseRepo) ListActiveByUser(ctx context.Context, tx repository.Tx, userID string, now time.Time) ([]*model.PurchasedItemAccess, error) {
	const q = `
SELECT ` + purchaseColumns + `
  FROM exercise_purchases
 WHERE user_id=$1 AND expires_at > $2
 ORDER BY purchased_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, now)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.PurchasedItemAccess
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPurchase(row pgx.Row) (*model.PurchasedItemAccess, error) {
	p := &model.PurchasedItemAccess{}
	err := row.Scan(&p.ID, &p.UserID, &p.ExerciseID, &p.ExerciseName, &p.OrderID, &p.Price, &p.PurchasedAt, &p.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
