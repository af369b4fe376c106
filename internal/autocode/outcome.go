package autocode

import (
	"time"

	"github.com/notepid/autocode/internal/settings"
)

// Kind classifies an Outcome.
type Kind int

const (
	Updated Kind = iota
	Removed
	RateLimited
	InvalidFormat
	QuietModeChanged
)

func (k Kind) String() string {
	switch k {
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case RateLimited:
		return "rate_limited"
	case InvalidFormat:
		return "invalid_format"
	case QuietModeChanged:
		return "quiet_mode_changed"
	default:
		return "unknown"
	}
}

// Outcome is the structured result of a settings mutation. The command
// layer turns it into text; the core never does.
type Outcome struct {
	Kind Kind
	Slot settings.Slot

	// Code is the new code for Updated outcomes.
	Code string
	// Masked asks the renderer to show HiddenCode instead of Code.
	Masked bool

	// RetryAfter is set for RateLimited outcomes.
	RetryAfter time.Duration

	// QuietMode is the new value for QuietModeChanged outcomes.
	QuietMode bool

	// Quiet tells the caller not to notify the user at all.
	Quiet bool
}

// Notice is a structured, user-facing event pushed from the core.
type Notice interface {
	notice()
}

// CodeChanged carries the Outcome of a change the user did not make
// through a direct command, such as a captured code entry.
type CodeChanged struct {
	Outcome Outcome
}

// AutoLocked reports that a freshly placed lock received the user's codes.
// Code and GuestCode are already masked when required.
type AutoLocked struct {
	Lock      string
	Code      string
	GuestCode string
}

// BlockReason explains why an auto-lock was skipped.
type BlockReason string

const (
	BlockedRaid   BlockReason = "raid"
	BlockedCombat BlockReason = "combat"
)

// AutoLockBlocked reports that an integration hook prevented an auto-lock.
type AutoLockBlocked struct {
	Lock   string
	Reason BlockReason
}

func (CodeChanged) notice()     {}
func (AutoLocked) notice()      {}
func (AutoLockBlocked) notice() {}

// Notifier delivers notices to users. Implementations must not block the
// event loop.
type Notifier interface {
	Notify(id settings.UserID, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(id settings.UserID, n Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(id settings.UserID, n Notice) { f(id, n) }

// PrivacySignal reports an external per-user "streamer mode" flag.
type PrivacySignal interface {
	PrivacyMode(id settings.UserID) bool
}
