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

var _ repository.OrderRepository = (*orderRepo)(nil)

type orderRepo struct{ pool *pgxpool.Pool }

func NewOrderRepo(pool *pgxpool.Pool) *orderRepo {
	return &orderRepo{pool: pool}
}

const orderColumns = `id, order_number, user_id, amount, currency, status, external_id, payment_url, purpose, description, error_message, created_at, updated_at`

func (r *orderRepo) Save(ctx context.Context, tx repository.Tx, o *model.Order) error {
	purpose, err := model.EncodePurpose(o.Purpose)
	if err != nil {
		return err
	}
	const q = `
INSERT INTO orders (
  id, order_number, user_id, amount, currency, status, external_id, payment_url, purpose, description, error_message, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (id) DO UPDATE SET
  status=$6, external_id=$7, payment_url=$8, error_message=$11, updated_at=$13;`

	_, err = execSQL(ctx, r.pool, tx, q,
		o.ID, o.OrderNumber, o.UserID, o.Amount, o.Currency, string(o.Status),
		nullable(o.ExternalID), nullable(o.PaymentURL), purpose, o.Description,
		nullable(o.ErrorMessage), o.CreatedAt, o.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+orderColumns+` FROM orders WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) FindByLocalOrExternalID(ctx context.Context, tx repository.Tx, id string) (*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE id=$1 OR external_id=$1 OR order_number=$1 LIMIT 1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	return scanOrder(row)
}

func (r *orderRepo) MarkRegistered(ctx context.Context, tx repository.Tx, id, externalID, paymentURL string) (bool, error) {
	const q = `
UPDATE orders
   SET status = $2,
       external_id = $3,
       payment_url = $4,
       updated_at = NOW()
 WHERE id = $1
   AND status = $5;`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(model.OrderStatusAwaitingPayment), externalID, paymentURL, string(model.OrderStatusPending))
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) UpdateStatusIfNotTerminal(ctx context.Context, tx repository.Tx, id string, status model.OrderStatus, errorMessage *string) (bool, error) {
	const q = `
UPDATE orders
   SET status = $2,
       error_message = COALESCE($3, error_message),
       updated_at = NOW()
 WHERE id = $1
   AND status NOT IN ('succeeded','failed','canceled');`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), errorMessage)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *orderRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, offset, limit int) ([]*model.Order, error) {
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE user_id=$1 ORDER BY created_at DESC OFFSET $2 LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, offset, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func (r *orderRepo) CountByUser(ctx context.Context, tx repository.Tx, userID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM orders WHERE user_id=$1;`, userID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return n, nil
}

func (r *orderRepo) ListAwaitingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Order, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + orderColumns + ` FROM orders WHERE status=$1 AND created_at < $2 ORDER BY created_at ASC LIMIT $3;`
	rows, err := queryRows(ctx, r.pool, tx, q, string(model.OrderStatusAwaitingPayment), olderThan, limit)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()
	return scanOrders(rows)
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	o := &model.Order{}
	var status string
	var externalID, paymentURL, errorMessage *string
	var purpose []byte
	err := row.Scan(&o.ID, &o.OrderNumber, &o.UserID, &o.Amount, &o.Currency, &status,
		&externalID, &paymentURL, &purpose, &o.Description, &errorMessage, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	o.Status = model.OrderStatus(status)
	o.ExternalID = deref(externalID)
	o.PaymentURL = deref(paymentURL)
	o.ErrorMessage = deref(errorMessage)
	if o.Purpose, err = model.DecodePurpose(purpose); err != nil {
		return nil, domain.ErrReadDatabaseRow
	}
	return o, nil
}

func scanOrders(rows pgx.Rows) ([]*model.Order, error) {
	var out []*model.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func wrapQueryErr(err error) error {
	switch err {
	case pgx.ErrNoRows:
		return domain.ErrNotFound
	case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
		return err
	default:
		return domain.ErrOperationFailed
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
