// Package policy applies users' stored codes to the locks they place and
// upgrades code holders to standing authorization on locked locks.
package policy

import (
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/settings"
)

// Locks resolves lock handles. *lock.World satisfies it.
type Locks interface {
	Get(h lock.Handle) (*lock.Lock, bool)
}

// BlockChecker reports integration states that suspend auto-locking.
type BlockChecker interface {
	RaidBlocked(id settings.UserID) bool
	CombatBlocked(id settings.UserID) bool
}

// Config wires AutoApply to its collaborators. Privacy, Notifier and
// Blocks may be nil.
type Config struct {
	Store       *settings.Store
	Locks       Locks
	Permissions autocode.Permissions
	Privacy     autocode.PrivacySignal
	Notifier    autocode.Notifier
	Blocks      BlockChecker
	BlockRaid   bool
	BlockCombat bool
	Logger      *zap.Logger
}

// AutoApply configures freshly placed locks from their owner's settings.
// It must only be used from the event loop.
type AutoApply struct {
	cfg Config
	log *zap.Logger
}

// New creates an AutoApply.
func New(cfg Config) *AutoApply {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &AutoApply{cfg: cfg, log: cfg.Logger.Named("policy")}
}

// Apply copies owner's codes onto the lock and locks it. A lock that
// already has both codes is never touched, so applying twice is harmless.
// It reports whether the lock was changed.
func (p *AutoApply) Apply(h lock.Handle, owner settings.UserID) bool {
	l, ok := p.cfg.Locks.Get(h)
	if !ok {
		return false
	}
	if l.HasCode && l.HasGuestCode {
		return false
	}
	if !p.cfg.Permissions.HasPermission(owner, autocode.PermUse) {
		return false
	}
	st := p.cfg.Store.Get(owner)
	if st == nil {
		return false
	}
	if reason, blocked := p.blocked(owner); blocked {
		p.log.Debug("auto-lock blocked",
			zap.String("user", string(owner)),
			zap.String("lock", string(h)),
			zap.String("reason", string(reason)))
		p.notify(owner, autocode.AutoLockBlocked{Lock: h.Short(), Reason: reason})
		return false
	}
	if st.Code == "" {
		return false
	}

	l.SetCode(st.Code)
	l.Whitelist(owner)
	if st.GuestCode != "" {
		l.SetGuestCode(st.GuestCode)
		l.AddGuest(owner)
	}
	l.SetLocked(true)

	p.log.Debug("auto-locked",
		zap.String("user", string(owner)),
		zap.String("lock", string(h)))

	if !st.QuietMode {
		n := autocode.AutoLocked{Lock: h.Short(), Code: l.Code}
		if l.HasGuestCode {
			n.GuestCode = l.GuestCode
		}
		if autocode.ShouldMask(owner, st, p.cfg.Privacy) {
			n.Code = autocode.HiddenCode
			if n.GuestCode != "" {
				n.GuestCode = autocode.HiddenCode
			}
		}
		p.notify(owner, n)
	}
	return true
}

func (p *AutoApply) blocked(id settings.UserID) (autocode.BlockReason, bool) {
	if p.cfg.Blocks == nil {
		return "", false
	}
	if p.cfg.BlockRaid && p.cfg.Blocks.RaidBlocked(id) {
		return autocode.BlockedRaid, true
	}
	if p.cfg.BlockCombat && p.cfg.Blocks.CombatBlocked(id) {
		return autocode.BlockedCombat, true
	}
	return "", false
}

func (p *AutoApply) notify(id settings.UserID, n autocode.Notice) {
	if p.cfg.Notifier != nil {
		p.cfg.Notifier.Notify(id, n)
	}
}

// AuthorizeUnlockAttempt whitelists id on a locked lock whose code equals
// id's stored code, provided id holds both the use and try permissions.
// It reports whether the grant was made.
func (p *AutoApply) AuthorizeUnlockAttempt(id settings.UserID, h lock.Handle) bool {
	l, ok := p.cfg.Locks.Get(h)
	if !ok || !l.IsLocked() || !l.HasCode {
		return false
	}
	if !p.cfg.Permissions.HasPermission(id, autocode.PermUse) ||
		!p.cfg.Permissions.HasPermission(id, autocode.PermTry) {
		return false
	}
	st := p.cfg.Store.Get(id)
	if st == nil || st.Code == "" || st.Code != l.Code {
		return false
	}
	l.Whitelist(id)
	p.log.Debug("unlock authorized by stored code",
		zap.String("user", string(id)),
		zap.String("lock", string(h)))
	return true
}
