package entity

import (
	"time"
)

// User is the aggregate root for a bot user, keyed by the Telegram user id.
//
// PendingTokenHash holds the bcrypt hash of the single live verification
// token; the raw token is never stored.
type User struct {
	ID               int64
	DisplayName      string
	Destination      string // empty means not configured
	Premium          bool
	LastVerifiedAt   *time.Time
	PendingTokenHash string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// HasDestination reports whether the user configured a relay target.
func (u *User) HasDestination() bool {
	return u != nil && u.Destination != ""
}

// VerifiedUntil returns the instant the last verification stops counting,
// or the zero time when the user never verified.
func (u *User) VerifiedUntil(window time.Duration) time.Time {
	if u == nil || u.LastVerifiedAt == nil {
		return time.Time{}
	}
	return u.LastVerifiedAt.Add(window)
}
