// Package ratelimit implements the spam-prevention gate in front of code
// changes: a sliding attempt window that, when exceeded, locks the user
// out for a duration that doubles with every consecutive lockout.
//
// All functions are pure over a *State and a timestamp; the caller owns
// the state and decides when to persist it.
package ratelimit

import (
	"math"
	"time"
)

// Config holds the spam-prevention options.
type Config struct {
	Enabled               bool
	MaxAttempts           int
	WindowSeconds         float64
	UseExponentialBackoff bool
	BaseLockoutSeconds    float64
	// ForgivenessFactor scales the last lockout duration to get the quiet
	// period after which strikes are forgotten. Zero or less never forgives.
	ForgivenessFactor float64
}

// DefaultConfig returns the stock spam-prevention settings.
func DefaultConfig() Config {
	return Config{
		Enabled:               true,
		MaxAttempts:           5,
		WindowSeconds:         30,
		UseExponentialBackoff: true,
		BaseLockoutSeconds:    5,
		ForgivenessFactor:     5,
	}
}

// State is the per-user limiter bookkeeping. Timestamps are epoch seconds;
// zero means "never".
type State struct {
	LastSetAt       float64 `json:"lastSet"`
	ChangesInWindow int     `json:"timesSetInSpamWindow"`
	LockedOutUntil  float64 `json:"lockedOutUntil"`
	LastLockedOutAt float64 `json:"lastLockedOut"`
	LockoutStrikes  int     `json:"lockedOutTimes"`
}

// Decision is the result of Evaluate.
type Decision struct {
	Allowed bool
	// RetryAfter is the whole-second wait before the next attempt can
	// succeed. Zero when Allowed.
	RetryAfter time.Duration
	// NewLockout is set when this evaluation is the one that tripped the
	// limit.
	NewLockout bool
}

// LockedOut reports whether the state is inside an active lockout at now.
func (s *State) LockedOut(now float64) bool {
	return now < s.LockedOutUntil
}

// Reset clears the lockout and its strike history.
func (s *State) Reset() {
	s.LockoutStrikes = 0
	s.LockedOutUntil = 0
}

// LockoutDuration is the length of the next lockout given the current
// strike count.
func LockoutDuration(s *State, cfg Config) float64 {
	return lockoutFor(s.LockoutStrikes, cfg)
}

func lockoutFor(strikes int, cfg Config) float64 {
	if !cfg.UseExponentialBackoff || strikes <= 0 {
		return cfg.BaseLockoutSeconds
	}
	return cfg.BaseLockoutSeconds * math.Pow(2, float64(strikes))
}

// ResetIfStale forgets lockout strikes once the user has stayed out of
// trouble for ForgivenessFactor times the length of their last lockout.
// It reports whether the strikes were reset.
func ResetIfStale(s *State, now float64, cfg Config) bool {
	if cfg.ForgivenessFactor <= 0 || s.LockoutStrikes == 0 || s.LockedOut(now) {
		return false
	}
	last := lockoutFor(s.LockoutStrikes-1, cfg)
	if now > s.LastLockedOutAt+cfg.ForgivenessFactor*last {
		s.LockoutStrikes = 0
		return true
	}
	return false
}

// Evaluate decides whether a prospective code change at now may proceed.
//
// While locked out the state is left untouched. Otherwise the attempt is
// counted against the window, and exceeding MaxAttempts starts a new
// lockout. An allowed caller must follow up with RecordSuccess once the
// change has been applied.
func Evaluate(s *State, now float64, cfg Config) Decision {
	if !cfg.Enabled {
		return Decision{Allowed: true}
	}

	if s.LockedOut(now) {
		return Decision{RetryAfter: seconds(s.LockedOutUntil - now)}
	}

	ResetIfStale(s, now, cfg)
	duration := LockoutDuration(s, cfg)

	if now-s.LastSetAt < cfg.WindowSeconds {
		s.ChangesInWindow++
	} else {
		s.ChangesInWindow = 1
	}

	if s.ChangesInWindow > cfg.MaxAttempts {
		s.LockedOutUntil = now + duration
		s.LastLockedOutAt = now
		s.LockoutStrikes++
		s.ChangesInWindow = 0
		return Decision{RetryAfter: seconds(duration), NewLockout: true}
	}

	return Decision{Allowed: true}
}

// RecordSuccess stamps the time of an applied change.
func RecordSuccess(s *State, now float64) {
	s.LastSetAt = now
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Ceil(s)) * time.Second
}
