package domain

import "time"

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 15 * time.Minute
)

// LockoutPolicy is the brute-force lockout state machine.
//
// An account is Locked while FailedLoginAttempts >= Threshold and now is
// before LockedUntil. Expiry is evaluated lazily: nothing clears the
// counter when the window passes, only a successful authentication does.
// Failures after expiry keep counting from the old value and re-lock the
// account for a fresh window.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{
		Threshold: DefaultLockoutThreshold,
		Duration:  DefaultLockoutDuration,
	}
}

func (p LockoutPolicy) normalized() LockoutPolicy {
	if p.Threshold <= 0 {
		p.Threshold = DefaultLockoutThreshold
	}
	if p.Duration <= 0 {
		p.Duration = DefaultLockoutDuration
	}
	return p
}

// IsLocked reports whether u is locked at now.
func (p LockoutPolicy) IsLocked(u User, now time.Time) bool {
	p = p.normalized()
	if u.FailedLoginAttempts < p.Threshold || u.LockedUntil == nil {
		return false
	}
	return UTC(now).Before(UTC(*u.LockedUntil))
}

// RecordFailure counts a verified wrong secret. It returns true when this
// failure put the account into the Locked state; the caller must then
// revoke the user's refresh tokens in the same transaction.
func (p LockoutPolicy) RecordFailure(u *User, now time.Time) bool {
	p = p.normalized()
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts < p.Threshold {
		return false
	}
	until := UTC(now).Add(p.Duration)
	u.LockedUntil = &until
	return true
}

// RecordSuccess resets the account to Unlocked.
func (p LockoutPolicy) RecordSuccess(u *User) {
	u.FailedLoginAttempts = 0
	u.LockedUntil = nil
}
