// Package lock models combination locks placed in the world: their codes,
// the users authorized on them, and the registry that spawns and destroys
// them.
package lock

import (
	"github.com/notepid/autocode/internal/settings"
)

// Handle identifies a lock entity.
type Handle string

// Short returns the first eight characters, enough to type in a command.
func (h Handle) Short() string {
	if len(h) > 8 {
		return string(h[:8])
	}
	return string(h)
}

// Position is a world coordinate.
type Position struct {
	X, Y, Z float64
}

// Lock is a code lock entity.
type Lock struct {
	Handle   Handle
	Owner    settings.UserID
	Position Position

	Code         string
	HasCode      bool
	GuestCode    string
	HasGuestCode bool

	// Transient locks exist only to capture a typed code.
	Transient bool

	locked    bool
	destroyed bool
	whitelist map[settings.UserID]struct{}
	guests    map[settings.UserID]struct{}
}

func newLock(h Handle, owner settings.UserID, pos Position) *Lock {
	return &Lock{
		Handle:    h,
		Owner:     owner,
		Position:  pos,
		whitelist: make(map[settings.UserID]struct{}),
		guests:    make(map[settings.UserID]struct{}),
	}
}

// SetCode configures the main code.
func (l *Lock) SetCode(code string) {
	l.Code = code
	l.HasCode = code != ""
}

// SetGuestCode configures the guest code.
func (l *Lock) SetGuestCode(code string) {
	l.GuestCode = code
	l.HasGuestCode = code != ""
}

// IsLocked reports the locked flag.
func (l *Lock) IsLocked() bool { return l.locked }

// SetLocked sets the locked flag.
func (l *Lock) SetLocked(on bool) { l.locked = on }

// IsDestroyed reports whether the entity has been killed.
func (l *Lock) IsDestroyed() bool { return l.destroyed }

// Whitelist grants id standing authorization.
func (l *Lock) Whitelist(id settings.UserID) { l.whitelist[id] = struct{}{} }

// AddGuest grants id guest access.
func (l *Lock) AddGuest(id settings.UserID) { l.guests[id] = struct{}{} }

// IsWhitelisted reports whether id holds standing authorization.
func (l *Lock) IsWhitelisted(id settings.UserID) bool {
	_, ok := l.whitelist[id]
	return ok
}

// IsGuest reports whether id holds guest access.
func (l *Lock) IsGuest(id settings.UserID) bool {
	_, ok := l.guests[id]
	return ok
}

// Authorized reports whether id may pass without entering a code.
func (l *Lock) Authorized(id settings.UserID) bool {
	return l.IsWhitelisted(id) || l.IsGuest(id)
}

// EnterCode checks code against the lock and, on a match, authorizes id
// the way the matching code dictates. It reports whether access was
// granted.
func (l *Lock) EnterCode(id settings.UserID, code string) bool {
	switch {
	case l.HasCode && code == l.Code:
		l.Whitelist(id)
		return true
	case l.HasGuestCode && code == l.GuestCode:
		l.AddGuest(id)
		return true
	default:
		return false
	}
}
