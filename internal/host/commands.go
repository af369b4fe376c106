package host

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/command"
	"github.com/notepid/autocode/internal/event"
	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/settings"
)

// Result is what a session prints after running a command line.
type Result struct {
	Lines []string
	// Capture is the lock the user must now type a code into.
	Capture        lock.Handle
	CaptureTimeout time.Duration
	Quit           bool
}

func (r *Result) add(format string, args ...any) {
	r.Lines = append(r.Lines, fmt.Sprintf(format, args...))
}

// Exec runs one command line for id on the event loop.
func (h *Host) Exec(ctx context.Context, id settings.UserID, line string) (Result, error) {
	name, args := command.Fields(line)
	if name == "" {
		return Result{}, nil
	}

	var res Result
	err := h.loop.Do(func() { res = h.dispatch(id, name, args) })
	if err != nil {
		return Result{}, fmt.Errorf("run %q: %w", name, err)
	}
	return res, ctx.Err()
}

func (h *Host) dispatch(id settings.UserID, name string, args []string) Result {
	var res Result
	switch name {
	case strings.ToLower(h.cfg.Commands.Use):
		rep := h.commands.Use(command.Caller{ID: id}, args)
		res.Lines = rep.Lines
		if rep.Capture != nil {
			res.Capture = rep.Capture.Lock
			res.CaptureTimeout = rep.Capture.Timeout
		}
	case strings.ToLower(h.cfg.Commands.ResetLockout):
		res.Lines = h.commands.ResetLockout(id, args).Lines
	case "place":
		h.place(&res, id)
	case "locks":
		h.listLocks(&res, id)
	case "unlock":
		h.unlock(&res, id, args)
	case "streamer":
		_, was := h.streamers.Load(id)
		on := !was
		h.SetStreamer(id, on)
		if on {
			res.add("Streamer mode on. Codes are hidden in messages.")
		} else {
			res.add("Streamer mode off.")
		}
	case "who":
		for _, u := range h.mail.Online() {
			res.add("  %s", u.Name)
		}
	case "help", "?":
		res.Lines = append(res.Lines,
			"Commands:",
			fmt.Sprintf("  %-22s manage your auto-code", h.cfg.Commands.Use),
			"  place                  place a code lock",
			"  locks                  list your locks",
			"  unlock <lock> [code]   open a lock",
			"  streamer               toggle streamer mode",
			"  who                    list online users",
			"  quit                   disconnect",
		)
	case "quit", "exit", "logoff":
		res.Quit = true
	default:
		res.add("Unknown command %q. Type help.", name)
	}
	return res
}

func (h *Host) place(res *Result, id settings.UserID) {
	l, err := h.world.Place(id, lock.Position{})
	if errors.Is(err, lock.ErrEntityLimit) {
		res.add("The world is full. Remove a lock first.")
		return
	}
	if err != nil {
		h.log.Error("place lock", zap.String("user", string(id)), zap.Error(err))
		res.add("Could not place a lock.")
		return
	}
	if l.IsLocked() {
		res.add("Placed lock %s.", l.Handle.Short())
		return
	}
	res.add("Placed lock %s. It is unlocked.", l.Handle.Short())
}

func (h *Host) listLocks(res *Result, id settings.UserID) {
	locks := h.world.OwnedBy(id)
	if len(locks) == 0 {
		res.add("You have no locks.")
		return
	}
	for _, l := range locks {
		state := "unlocked"
		if l.IsLocked() {
			state = "locked"
		}
		res.add("  %s  %-8s code:%-3s guest:%s", l.Handle.Short(), state, yesNo(l.HasCode), yesNo(l.HasGuestCode))
	}
}

func (h *Host) unlock(res *Result, id settings.UserID, args []string) {
	if len(args) == 0 || len(args) > 2 {
		res.add("Usage: unlock <lock> [code]")
		return
	}
	l, err := h.world.Find(args[0])
	switch {
	case errors.Is(err, lock.ErrAmbiguous):
		res.add("More than one lock matches %q.", args[0])
		return
	case err != nil:
		res.add("No lock %q.", args[0])
		return
	}

	var code string
	if len(args) == 2 {
		code = args[1]
		h.bus.Emit(event.HookCodeEntered, event.CodeEntered{Lock: l.Handle, User: id, Code: code})
	}
	if h.world.TryUnlock(id, l, code) {
		res.add("Lock %s opens.", l.Handle.Short())
		return
	}
	res.add("Lock %s stays shut.", l.Handle.Short())
}

// EnterCode types code into lock h as id. Capture sessions pick it up
// from the code_entered event.
func (h *Host) EnterCode(ctx context.Context, id settings.UserID, handle lock.Handle, code string) error {
	err := h.loop.Do(func() {
		h.bus.Emit(event.HookCodeEntered, event.CodeEntered{Lock: handle, User: id, Code: code})
	})
	if err != nil {
		return fmt.Errorf("enter code: %w", err)
	}
	return ctx.Err()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
