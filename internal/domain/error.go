package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrOrderNotFound      = errors.New("payment not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrProgramNotFound    = errors.New("marathon not found")
	ErrEnrollmentNotFound = errors.New("enrollment not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrAccessDenied       = errors.New("access denied")

	// Payment lifecycle
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrAlreadyPurchased   = errors.New("exercise already purchased")

	// Enrollment
	ErrAlreadyEnrolled = errors.New("already enrolled in this marathon")
	ErrPaymentRequired = errors.New("this marathon requires payment")
	ErrDayNotAvailable = errors.New("day not available yet")

	// Storage-side failures
	ErrOperationFailed    = errors.New("storage operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrLockNotAcquired    = errors.New("could not acquire lock")
)

// DayLockedError reports which day was requested and when it unlocks.
// errors.Is(err, ErrDayNotAvailable) matches it.
type DayLockedError struct {
	Day       int
	UnlocksAt time.Time
}

func (e *DayLockedError) Error() string {
	return fmt.Sprintf("day %d will be available on %s", e.Day, e.UnlocksAt.Format("02.01.2006"))
}

func (e *DayLockedError) Is(target error) bool { return target == ErrDayNotAvailable }
