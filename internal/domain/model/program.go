package model

import (
	"time"

	"marathon-billing/internal/domain"
)

// Program is a multi-day marathon. Day content itself lives in the content
// service; the billing core only needs schedule and pricing.
type Program struct {
	ID                 string
	Title              string
	StartDate          time.Time
	DurationDays       int // "tenure" in the mobile client
	Paid               bool
	Price              int64 // minor units; zero for free programs
	PaymentDescription string
	CreatedAt          time.Time
}

// UnlockedDay returns the highest day number open at `now`: day 1 opens on the
// start date, day N opens N-1 days later. Zero before the program starts.
func (p *Program) UnlockedDay(now time.Time) int {
	if now.Before(p.StartDate) {
		return 0
	}
	return int(now.Sub(p.StartDate)/(24*time.Hour)) + 1
}

// DayUnlockTime is the instant a given day number becomes available.
func (p *Program) DayUnlockTime(day int) time.Time {
	return p.StartDate.Add(time.Duration(day-1) * 24 * time.Hour)
}

// CheckDayAccess validates a day request against the calendar gate.
func (p *Program) CheckDayAccess(day int, now time.Time) error {
	if day < 1 || day > p.DurationDays {
		return domain.ErrInvalidArgument
	}
	if day > p.UnlockedDay(now) {
		return &domain.DayLockedError{Day: day, UnlocksAt: p.DayUnlockTime(day)}
	}
	return nil
}

// EndDate is when the program (and enrollments into it) expires.
func (p *Program) EndDate() time.Time {
	return p.StartDate.Add(time.Duration(p.DurationDays) * 24 * time.Hour)
}
