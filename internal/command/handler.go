package command

import (
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/capture"
	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/settings"
)

// Core is the part of *autocode.Assigner the commands drive.
type Core interface {
	SetCode(id settings.UserID, code string, slot settings.Slot, quiet, hideDisplay bool) autocode.Outcome
	RemoveCode(id settings.UserID, slot settings.Slot) autocode.Outcome
	ToggleQuietMode(id settings.UserID) autocode.Outcome
	QuietMode(id settings.UserID) bool
	Describe(id settings.UserID) autocode.Info
	ResetLockout(id settings.UserID) bool
	ResetAllLockouts() int
}

// Capturer starts code capture sessions. *capture.Manager satisfies it.
type Capturer interface {
	StartCapture(id settings.UserID, slot settings.Slot, pos lock.Position) (*capture.Session, error)
}

// Match is a user found by a Directory lookup.
type Match struct {
	ID   settings.UserID
	Name string
}

// Directory finds users by id or name for console commands.
type Directory interface {
	Lookup(query string) []Match
}

// Config wires a Handler.
type Config struct {
	Core        Core
	Capture     Capturer
	Permissions autocode.Permissions
	Directory   Directory
	Renderer    *Renderer
	// DisplayPermissionErrors tells users when they lack a permission
	// instead of ignoring the command.
	DisplayPermissionErrors bool
	Logger                  *zap.Logger
}

// Caller is who issued a command and where they stand.
type Caller struct {
	ID       settings.UserID
	Position lock.Position
}

// Reply is a command's response.
type Reply struct {
	Lines []string
	// Capture is set when the command started a capture session.
	Capture *capture.Session
}

func (r *Reply) add(text string) {
	if text != "" {
		r.Lines = append(r.Lines, strings.Split(text, "\n")...)
	}
}

// Text joins the reply lines.
func (r Reply) Text() string {
	return strings.Join(r.Lines, "\n")
}

// Handler executes commands against the core. It must only be used from
// the event loop.
type Handler struct {
	cfg Config
	r   *Renderer
	log *zap.Logger
}

// NewHandler creates a Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Renderer == nil {
		cfg.Renderer = NewRenderer("code")
	}
	return &Handler{cfg: cfg, r: cfg.Renderer, log: cfg.Logger.Named("command")}
}

// Renderer returns the renderer replies are written with.
func (h *Handler) Renderer() *Renderer {
	return h.r
}

func (h *Handler) denied() Reply {
	var rep Reply
	if h.cfg.DisplayPermissionErrors {
		rep.add(h.r.Msg(MsgNoPermission))
	}
	return rep
}

// Use runs the "code" command.
func (h *Handler) Use(c Caller, args []string) Reply {
	if !h.cfg.Permissions.HasPermission(c.ID, autocode.PermUse) {
		return h.denied()
	}

	var rep Reply
	req, err := Parse(args)
	switch {
	case errors.Is(err, ErrTooManyArgs):
		rep.add(h.r.Msg(MsgInvalidArgsTooMany))
		return rep
	case err != nil:
		rep.add(h.r.SyntaxError())
		return rep
	}

	core := h.cfg.Core
	switch req.Op {
	case OpInfo:
		rep.add(h.r.Info(core.Describe(c.ID)))
	case OpHelp:
		rep.add(h.r.Help())
	case OpQuiet:
		rep.add(h.r.Outcome(core.ToggleQuietMode(c.ID)))
	case OpRemove:
		rep.add(h.r.Outcome(core.RemoveCode(c.ID, req.Slot)))
	case OpRandom:
		hide := core.QuietMode(c.ID)
		rep.add(h.r.Outcome(core.SetCode(c.ID, autocode.GenerateCode(), req.Slot, false, hide)))
	case OpSet:
		rep.add(h.r.Outcome(core.SetCode(c.ID, req.Code, req.Slot, false, false)))
	case OpPick:
		s, err := h.cfg.Capture.StartCapture(c.ID, req.Slot, c.Position)
		if err != nil {
			// The capture manager has logged it; the request fails silently.
			return rep
		}
		rep.Capture = s
		what := "auto-code"
		if req.Slot == settings.Guest {
			what = "guest auto-code"
		}
		rep.add(h.r.Msg(MsgPickPrompt, what, s.Lock.Short(), FormatWait(s.Timeout)))
	}
	return rep
}

// ResetLockout runs the lockout reset console command. An empty caller id
// is the server console and is always permitted.
func (h *Handler) ResetLockout(caller settings.UserID, args []string) Reply {
	if caller != "" && !h.cfg.Permissions.HasPermission(caller, autocode.PermAdmin) {
		return h.denied()
	}

	var rep Reply
	if len(args) != 1 {
		rep.add(h.r.Msg(MsgInvalidArguments))
		return rep
	}

	target := strings.ToLower(args[0])
	if target == "*" {
		n := h.cfg.Core.ResetAllLockouts()
		rep.add(h.r.Msg(MsgResettingAllLockOuts, n))
		h.log.Info("lockouts reset for all users", zap.String("by", string(caller)))
		return rep
	}

	matches := h.cfg.Directory.Lookup(target)
	switch len(matches) {
	case 0:
		rep.add(h.r.Msg(MsgErrorNoPlayerFound))
		return rep
	case 1:
	default:
		rep.add(h.r.Msg(MsgErrorMoreThanOnePlayer))
		return rep
	}

	m := matches[0]
	if !h.cfg.Core.ResetLockout(m.ID) {
		rep.add(h.r.Msg(MsgNoLockOutToReset, m.Name))
		return rep
	}
	rep.add(h.r.Msg(MsgResettingLockOut, m.Name))
	h.log.Info("lockout reset",
		zap.String("user", string(m.ID)),
		zap.String("by", string(caller)))
	return rep
}
