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

var _ repository.EnrollmentRepository = (*enrollmentRepo)(nil)

type enrollmentRepo struct{ pool *pgxpool.Pool }

func NewEnrollmentRepo(pool *pgxpool.Pool) *enrollmentRepo {
	return &enrollmentRepo{pool: pool}
}

const enrollmentColumns = `id, user_id, program_id, status, paid, order_id, current_day, last_accessed_day, completed_days, enrolled_at, expires_at, created_at, updated_at`

func (r *enrollmentRepo) Save(ctx context.Context, tx repository.Tx, e *model.Enrollment) error {
	const q = `
INSERT INTO enrollments (
  id, user_id, program_id, status, paid, order_id, current_day, last_accessed_day, completed_days, enrolled_at, expires_at, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13
) ON CONFLICT (user_id, program_id) DO UPDATE SET
  status=$4, paid=$5, order_id=COALESCE($6, enrollments.order_id),
  current_day=$7, last_accessed_day=$8, completed_days=$9, expires_at=$11, updated_at=$13;`
	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.UserID, e.ProgramID, string(e.Status), e.Paid, e.OrderID,
		e.CurrentDay, e.LastAccessedDay, toInt32s(e.CompletedDays),
		e.EnrolledAt, e.ExpiresAt, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *enrollmentRepo) FindByUserAndProgram(ctx context.Context, tx repository.Tx, userID, programID string) (*model.Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id=$1 AND program_id=$2;`
	row, err := pickRow(ctx, r.pool, tx, q, userID, programID)
	if err != nil {
		return nil, err
	}
	e, err := scanEnrollment(row)
	if err == domain.ErrNotFound {
		return nil, domain.ErrEnrollmentNotFound
	}
	return e, err
}

func (r *enrollmentRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Enrollment, error) {
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollments WHERE user_id=$1 ORDER BY enrolled_at DESC;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, wrapQueryErr(err)
	}
	defer rows.Close()

	var out []*model.Enrollment
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEnrollment(row pgx.Row) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	var status string
	var completed []int32
	err := row.Scan(&e.ID, &e.UserID, &e.ProgramID, &status, &e.Paid, &e.OrderID,
		&e.CurrentDay, &e.LastAccessedDay, &completed,
		&e.EnrolledAt, &e.ExpiresAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	e.Status = model.EnrollmentStatus(status)
	e.CompletedDays = fromInt32s(completed)
	return e, nil
}

// Postgres int[] round-trips as []int32 through pgx.
func toInt32s(in []int) []int32 {
	out := make([]int32, len(in))
	for i, v := range in {
		out[i] = int32(v)
	}
	return out
}

func fromInt32s(in []int32) []int {
	if len(in) == 0 {
		return nil
	}
	out := make([]int, len(in))
	for i, v := range in {
		out[i] = int(v)
	}
	return out
}
