package repository

import (
	"context"

	"marathon-billing/internal/domain/model"
)

type EnrollmentRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Enrollment) error
	FindByUserAndProgram(ctx context.Context, tx Tx, userID, programID string) (*model.Enrollment, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Enrollment, error)
}

type ProgramRepository interface {
	FindByID(ctx context.Context, tx Tx, id string) (*model.Program, error)
}
