package model

import (
	"time"

	"github.com/google/uuid"

	"marathon-billing/internal/domain"
)

type EnrollmentStatus string

const (
	EnrollmentStatusActive    EnrollmentStatus = "active"
	EnrollmentStatusCompleted EnrollmentStatus = "completed"
	EnrollmentStatusExpired   EnrollmentStatus = "expired"
)

// Enrollment tracks one user's passage through one program. Never hard-deleted;
// lifecycle ends by status transition only.
type Enrollment struct {
	ID              string
	UserID          string
	ProgramID       string
	Status          EnrollmentStatus
	Paid            bool
	OrderID         *string // set when created/reactivated by a paid order
	CurrentDay      int
	LastAccessedDay int
	CompletedDays   []int
	EnrolledAt      time.Time
	ExpiresAt       time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewEnrollment creates an active enrollment expiring at the program's end date.
func NewEnrollment(userID string, program *Program, paid bool, orderID *string) (*Enrollment, error) {
	if userID == "" || program == nil {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Enrollment{
		ID:              uuid.NewString(),
		UserID:          userID,
		ProgramID:       program.ID,
		Status:          EnrollmentStatusActive,
		Paid:            paid,
		OrderID:         orderID,
		CurrentDay:      1,
		LastAccessedDay: 0,
		CompletedDays:   nil,
		EnrolledAt:      now,
		ExpiresAt:       program.EndDate(),
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// HasCompleted reports whether dayNumber is already in the completed set.
func (e *Enrollment) HasCompleted(dayNumber int) bool {
	for _, d := range e.CompletedDays {
		if d == dayNumber {
			return true
		}
	}
	return false
}

// CompleteDay records dayNumber as done. Returns false when it was already
// recorded, so a replayed request is a pure no-op.
func (e *Enrollment) CompleteDay(dayNumber int) bool {
	if dayNumber < 1 {
		return false
	}
	if e.HasCompleted(dayNumber) {
		return false
	}
	e.CompletedDays = append(e.CompletedDays, dayNumber)
	if dayNumber > e.LastAccessedDay {
		e.LastAccessedDay = dayNumber
	}
	e.UpdatedAt = time.Now()
	return true
}
