package autocode

import (
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/ratelimit"
	"github.com/notepid/autocode/internal/settings"
)

// Assigner mutates users' codes. It is not safe for concurrent use and
// must only be called from the host event loop.
type Assigner struct {
	store   *settings.Store
	clock   clock.Clock
	limits  ratelimit.Config
	privacy PrivacySignal
	log     *zap.Logger
}

// NewAssigner creates an Assigner. privacy may be nil.
func NewAssigner(store *settings.Store, clk clock.Clock, limits ratelimit.Config, privacy PrivacySignal, logger *zap.Logger) *Assigner {
	return &Assigner{
		store:   store,
		clock:   clk,
		limits:  limits,
		privacy: privacy,
		log:     logger.Named("autocode"),
	}
}

// GetCode returns the user's code for slot. It never creates settings.
func (a *Assigner) GetCode(id settings.UserID, slot settings.Slot) (string, bool) {
	st := a.store.Get(id)
	if st == nil {
		return "", false
	}
	return st.CodeFor(slot)
}

// SetCode validates code and, if the rate limiter allows it, stores it in
// slot. quiet asks the caller to suppress any notification; hideDisplay
// asks it to mask the code in one.
func (a *Assigner) SetCode(id settings.UserID, code string, slot settings.Slot, quiet, hideDisplay bool) Outcome {
	if !IsValidCode(code) {
		return Outcome{Kind: InvalidFormat, Slot: slot, Quiet: quiet}
	}

	st := a.store.GetOrCreate(id)
	now := a.clock.Now()

	d := ratelimit.Evaluate(&st.RateLimit, now, a.limits)
	if !d.Allowed {
		if d.NewLockout {
			a.log.Info("user locked out of code changes",
				zap.String("user", string(id)),
				zap.Duration("retry_after", d.RetryAfter),
				zap.Int("strikes", st.RateLimit.LockoutStrikes))
		}
		return Outcome{Kind: RateLimited, Slot: slot, RetryAfter: d.RetryAfter, Quiet: quiet}
	}

	st.SetCodeFor(slot, code)
	ratelimit.RecordSuccess(&st.RateLimit, now)
	ratelimit.ResetIfStale(&st.RateLimit, now, a.limits)

	a.log.Debug("code updated", zap.String("user", string(id)), zap.Stringer("slot", slot))

	return Outcome{
		Kind:   Updated,
		Slot:   slot,
		Code:   code,
		Masked: hideDisplay || a.ShouldMask(id, st),
		Quiet:  quiet,
	}
}

// RemoveCode clears slot. Removing the primary code also removes the
// guest code; a guest code never outlives its primary.
func (a *Assigner) RemoveCode(id settings.UserID, slot settings.Slot) Outcome {
	if st := a.store.Get(id); st != nil {
		st.GuestCode = ""
		if slot == settings.Primary {
			st.Code = ""
		}
	}
	return Outcome{Kind: Removed, Slot: slot}
}

// ToggleQuietMode flips the user's quiet mode.
func (a *Assigner) ToggleQuietMode(id settings.UserID) Outcome {
	st := a.store.GetOrCreate(id)
	st.QuietMode = !st.QuietMode
	return Outcome{Kind: QuietModeChanged, QuietMode: st.QuietMode}
}

// QuietMode reports the user's quiet mode without creating settings.
func (a *Assigner) QuietMode(id settings.UserID) bool {
	st := a.store.Get(id)
	return st != nil && st.QuietMode
}

// ResetLockout clears the user's lockout and strike history. It always
// succeeds; the result reports whether the user had a record to clear.
func (a *Assigner) ResetLockout(id settings.UserID) bool {
	st := a.store.Get(id)
	if st == nil {
		return false
	}
	st.RateLimit.Reset()
	a.log.Info("lockout reset", zap.String("user", string(id)))
	return true
}

// ResetAllLockouts clears every user's lockout and returns how many
// records were touched.
func (a *Assigner) ResetAllLockouts() int {
	n := 0
	a.store.Each(func(_ settings.UserID, st *settings.Settings) {
		st.RateLimit.Reset()
		n++
	})
	a.log.Info("all lockouts reset", zap.Int("users", n))
	return n
}

// ShouldMask reports whether codes must be hidden in messages to id.
func (a *Assigner) ShouldMask(id settings.UserID, st *settings.Settings) bool {
	return ShouldMask(id, st, a.privacy)
}

// ShouldMask applies the masking rule: quiet mode or the external privacy
// signal hides codes in notifications. It never affects stored values.
func ShouldMask(id settings.UserID, st *settings.Settings, privacy PrivacySignal) bool {
	if st != nil && st.QuietMode {
		return true
	}
	return privacy != nil && privacy.PrivacyMode(id)
}

// Info is a display-ready view of a user's settings.
type Info struct {
	Code      string
	GuestCode string
	QuietMode bool
	// LockedOutFor is the remaining lockout in whole seconds, if any.
	LockedOutFor float64
}

// Describe returns the user's settings with codes masked per ShouldMask.
// Unset codes stay empty.
func (a *Assigner) Describe(id settings.UserID) Info {
	st := a.store.Get(id)
	if st == nil {
		return Info{}
	}

	info := Info{Code: st.Code, GuestCode: st.GuestCode, QuietMode: st.QuietMode}
	if a.ShouldMask(id, st) {
		if info.Code != "" {
			info.Code = HiddenCode
		}
		if info.GuestCode != "" {
			info.GuestCode = HiddenCode
		}
	}
	if now := a.clock.Now(); st.RateLimit.LockedOut(now) {
		info.LockedOutFor = st.RateLimit.LockedOutUntil - now
	}
	return info
}
