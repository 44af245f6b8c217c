package model

import "time"

// User carries only the entitlement-relevant subset of the account document.
type User struct {
	ID             string
	Email          string
	FirstName      string
	LastName       string
	IsPremium      bool
	PremiumEndDate *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PremiumActive is the derived flag: premium is on AND the window has not lapsed.
func (u *User) PremiumActive(now time.Time) bool {
	return u.IsPremium && u.PremiumEndDate != nil && u.PremiumEndDate.After(now)
}

// ExtendPremium turns premium on and pushes the end date out by durationDays.
// An unexpired window is extended from its current end, not reset, so two
// back-to-back purchases stack instead of the second one shortening the first.
func (u *User) ExtendPremium(now time.Time, durationDays int) {
	start := now
	if u.PremiumEndDate != nil && u.PremiumEndDate.After(now) {
		start = *u.PremiumEndDate
	}
	end := start.Add(time.Duration(durationDays) * 24 * time.Hour)
	u.IsPremium = true
	u.PremiumEndDate = &end
	u.UpdatedAt = now
}
