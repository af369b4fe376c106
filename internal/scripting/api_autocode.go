package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/settings"
)

// Codes is the code store scripts drive. *autocode.Assigner satisfies it.
type Codes interface {
	GetCode(id settings.UserID, slot settings.Slot) (string, bool)
	QuietMode(id settings.UserID) bool
	SetCode(id settings.UserID, code string, slot settings.Slot, quiet, hideDisplay bool) autocode.Outcome
	RemoveCode(id settings.UserID, slot settings.Slot) autocode.Outcome
	ToggleQuietMode(id settings.UserID) autocode.Outcome
	ResetLockout(id settings.UserID) bool
	ResetAllLockouts() int
}

// Poster queues work on the host event loop. *loop.Loop satisfies it.
type Poster interface {
	Post(fn func()) bool
}

// Reporter receives the outcome of a code change a script requested.
type Reporter func(id settings.UserID, o autocode.Outcome)

// CodeAPI exposes auto-code operations to Lua as the "autocode" module.
//
// Reads answer immediately and must only happen from hook functions, which
// the host calls on its event loop. Changes are posted to the loop and run
// after the calling hook returns, so they go through the rate limiter and
// the privacy signal like any player command.
type CodeAPI struct {
	codes  Codes
	post   Poster
	report Reporter
	log    *zap.Logger
}

// NewCodeAPI creates the Lua code API. report may be nil.
func NewCodeAPI(codes Codes, post Poster, report Reporter, logger *zap.Logger) *CodeAPI {
	return &CodeAPI{codes: codes, post: post, report: report, log: logger.Named("scripting")}
}

// Register installs the autocode module in the Lua state.
func (api *CodeAPI) Register(L *lua.LState) {
	mod := L.NewTable()

	mod.RawSetString("get_code", L.NewFunction(api.luaGetCode))
	mod.RawSetString("quiet_mode", L.NewFunction(api.luaQuietMode))
	mod.RawSetString("is_valid_code", L.NewFunction(api.luaIsValidCode))
	mod.RawSetString("generate_code", L.NewFunction(api.luaGenerateCode))
	mod.RawSetString("set_code", L.NewFunction(api.luaSetCode))
	mod.RawSetString("remove_code", L.NewFunction(api.luaRemoveCode))
	mod.RawSetString("toggle_quiet_mode", L.NewFunction(api.luaToggleQuietMode))
	mod.RawSetString("reset_lockout", L.NewFunction(api.luaResetLockout))
	mod.RawSetString("reset_all_lockouts", L.NewFunction(api.luaResetAllLockouts))

	L.SetGlobal("autocode", mod)
}

func slotArg(L *lua.LState, n int) settings.Slot {
	if L.OptBool(n, false) {
		return settings.Guest
	}
	return settings.Primary
}

// autocode.get_code(id [, guest]) -> code or nil
func (api *CodeAPI) luaGetCode(L *lua.LState) int {
	id := settings.UserID(L.CheckString(1))
	code, ok := api.codes.GetCode(id, slotArg(L, 2))
	if !ok || code == "" {
		L.Push(lua.LNil)
		return 1
	}
	L.Push(lua.LString(code))
	return 1
}

// autocode.quiet_mode(id) -> bool
func (api *CodeAPI) luaQuietMode(L *lua.LState) int {
	id := settings.UserID(L.CheckString(1))
	L.Push(lua.LBool(api.codes.QuietMode(id)))
	return 1
}

func (api *CodeAPI) luaIsValidCode(L *lua.LState) int {
	L.Push(lua.LBool(autocode.IsValidCode(L.CheckString(1))))
	return 1
}

func (api *CodeAPI) luaGenerateCode(L *lua.LState) int {
	L.Push(lua.LString(autocode.GenerateCode()))
	return 1
}

// autocode.set_code(id, code [, guest [, quiet [, hide]]]) -> queued
//
// A malformed code is rejected on the spot and nothing is queued.
func (api *CodeAPI) luaSetCode(L *lua.LState) int {
	id := settings.UserID(L.CheckString(1))
	code := L.CheckString(2)
	slot := slotArg(L, 3)
	quiet := L.OptBool(4, false)
	hide := L.OptBool(5, false)

	if !autocode.IsValidCode(code) {
		L.Push(lua.LFalse)
		L.Push(lua.LString("invalid code"))
		return 2
	}
	L.Push(lua.LBool(api.queue("set_code", id, func() {
		o := api.codes.SetCode(id, code, slot, quiet, hide)
		api.log.Info("script set code",
			zap.String("user", string(id)),
			zap.Stringer("slot", slot),
			zap.Stringer("outcome", o.Kind))
		if api.report != nil {
			api.report(id, o)
		}
	})))
	return 1
}

// autocode.remove_code(id [, guest]) -> queued
func (api *CodeAPI) luaRemoveCode(L *lua.LState) int {
	id := settings.UserID(L.CheckString(1))
	slot := slotArg(L, 2)
	L.Push(lua.LBool(api.queue("remove_code", id, func() {
		api.codes.RemoveCode(id, slot)
	})))
	return 1
}

// autocode.toggle_quiet_mode(id) -> queued
func (api *CodeAPI) luaToggleQuietMode(L *lua.LState) int {
	id := settings.UserID(L.CheckString(1))
	L.Push(lua.LBool(api.queue("toggle_quiet_mode", id, func() {
		api.codes.ToggleQuietMode(id)
	})))
	return 1
}

// autocode.reset_lockout(id) -> queued
func (api *CodeAPI) luaResetLockout(L *lua.LState) int {
	id := settings.UserID(L.CheckString(1))
	L.Push(lua.LBool(api.queue("reset_lockout", id, func() {
		api.codes.ResetLockout(id)
	})))
	return 1
}

// autocode.reset_all_lockouts() -> queued
func (api *CodeAPI) luaResetAllLockouts(L *lua.LState) int {
	L.Push(lua.LBool(api.queue("reset_all_lockouts", "", func() {
		api.codes.ResetAllLockouts()
	})))
	return 1
}

func (api *CodeAPI) queue(op string, id settings.UserID, fn func()) bool {
	if api.post.Post(fn) {
		return true
	}
	api.log.Warn("script call dropped, loop stopped", zap.String("op", op), zap.String("user", string(id)))
	return false
}
