package command

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/settings"
)

// Renderer turns structured results into English text.
type Renderer struct {
	Catalog Catalog
	// Label is the name the "code" command is registered under.
	Label string
}

// NewRenderer creates a Renderer for the command registered as label.
func NewRenderer(label string) *Renderer {
	return &Renderer{Catalog: English, Label: label}
}

// Msg formats the message stored under key.
func (r *Renderer) Msg(key string, args ...any) string {
	format, ok := r.Catalog[key]
	if !ok {
		format = English[key]
	}
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// Outcome renders the result of a settings change. Quiet outcomes render
// to nothing.
func (r *Renderer) Outcome(o autocode.Outcome) string {
	if o.Quiet {
		return ""
	}
	guest := o.Slot == settings.Guest

	switch o.Kind {
	case autocode.Updated:
		switch {
		case o.Masked && guest:
			return r.Msg(MsgGuestCodeUpdatedHidden)
		case o.Masked:
			return r.Msg(MsgCodeUpdatedHidden)
		case guest:
			return r.Msg(MsgGuestCodeUpdated, o.Code)
		default:
			return r.Msg(MsgCodeUpdated, o.Code)
		}
	case autocode.Removed:
		if guest {
			return r.Msg(MsgGuestCodeRemoved)
		}
		return r.Msg(MsgCodeRemoved)
	case autocode.RateLimited:
		return r.Msg(MsgSpamPrevention, FormatWait(o.RetryAfter))
	case autocode.InvalidFormat:
		return r.Msg(MsgInvalidCode)
	case autocode.QuietModeChanged:
		if o.QuietMode {
			return r.Msg(MsgQuietModeEnable) + "\n" + r.Msg(MsgQuietModeDetails)
		}
		return r.Msg(MsgQuietModeDisable)
	default:
		return ""
	}
}

// Notice renders an asynchronous notice.
func (r *Renderer) Notice(n autocode.Notice) string {
	switch n := n.(type) {
	case autocode.CodeChanged:
		return r.Outcome(n.Outcome)
	case autocode.AutoLocked:
		if n.GuestCode != "" {
			return r.Msg(MsgCodeAutoLockedWithGuest, n.Lock, n.Code, n.GuestCode)
		}
		return r.Msg(MsgCodeAutoLocked, n.Lock, n.Code)
	case autocode.AutoLockBlocked:
		if n.Reason == autocode.BlockedCombat {
			return r.Msg(MsgCombatBlocked)
		}
		return r.Msg(MsgRaidBlocked)
	default:
		return ""
	}
}

// Info renders the settings screen shown by the bare command.
func (r *Renderer) Info(info autocode.Info) string {
	notSet := r.Msg(MsgNotSet)
	code, guest := info.Code, info.GuestCode
	if code == "" {
		code = notSet
	}
	if guest == "" {
		guest = notSet
	}
	quiet := r.Msg(MsgDisabled)
	if info.QuietMode {
		quiet = r.Msg(MsgEnabled)
	}

	lines := []string{
		r.Msg(MsgDescription),
		"",
		r.Msg(MsgInfo, code, guest, quiet),
	}
	if info.LockedOutFor > 0 {
		wait := time.Duration(math.Ceil(info.LockedOutFor)) * time.Second
		lines = append(lines, r.Msg(MsgLockedOutFor, FormatWait(wait)))
	}
	lines = append(lines, "", r.Msg(MsgHelp, r.Usage()))
	return strings.Join(lines, "\n")
}

// Usage is the one-line grammar of the command.
func (r *Renderer) Usage() string {
	return fmt.Sprintf("%s [<[%s] <[%s] 1234|%s|%s|%s>|%s|%s>]",
		r.Label, ArgGuest, ArgSet, ArgRandom, ArgRemove, ArgPick, ArgQuiet, ArgHelp)
}

// SyntaxError renders the syntax error reply.
func (r *Renderer) SyntaxError() string {
	return r.Msg(MsgSyntaxError, r.Usage())
}

// Help renders the extended help screen.
func (r *Renderer) Help() string {
	cmd := func(args ...string) string {
		return "    " + strings.Join(append([]string{r.Label}, args...), " ")
	}
	item := func(key string, args ...string) string {
		return "  - " + strings.ReplaceAll(r.Msg(key, cmd(args...)), "\n", "\n    ")
	}
	return strings.Join([]string{
		r.Msg(MsgHelpCoreCommands),
		item(MsgHelpInfo),
		item(MsgHelpSetCode, "1234"),
		item(MsgHelpRandomCode, ArgRandom),
		item(MsgHelpRemoveCode, ArgRemove),
		item(MsgHelpPickCode, ArgPick),
		r.Msg(MsgHelpCoreGuestCommands, cmd(ArgGuest, "5678")),
		"",
		r.Msg(MsgHelpOtherCommands),
		item(MsgHelpQuietMode, ArgQuiet),
		item(MsgHelpHelp, ArgHelp),
	}, "\n")
}

// FormatWait renders a wait as days, hours, minutes and seconds with the
// leading zero units dropped, e.g. "5s", "1m 05s", "2h 00m 10s".
func FormatWait(d time.Duration) string {
	secs := int64(math.Ceil(d.Seconds()))
	if secs <= 0 {
		return "0s"
	}
	days := secs / 86400
	hours := (secs % 86400) / 3600
	mins := (secs % 3600) / 60
	s := secs % 60

	full := fmt.Sprintf("%dd %dh %02dm %02ds", days, hours, mins, s)
	return strings.TrimLeft(full, " dhms0")
}
