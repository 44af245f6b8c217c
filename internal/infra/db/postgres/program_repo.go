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

var _ repository.ProgramRepository = (*programRepo)(nil)

type programRepo struct{ pool *pgxpool.Pool }

func NewProgramRepo(pool *pgxpool.Pool) *programRepo {
	return &programRepo{pool: pool}
}

func (r *programRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Program, error) {
	const q = `
SELECT id, title, start_date, duration_days, paid, price, payment_description, created_at
  FROM programs WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p := &model.Program{}
	err = row.Scan(&p.ID, &p.Title, &p.StartDate, &p.DurationDays, &p.Paid, &p.Price, &p.PaymentDescription, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProgramNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}
