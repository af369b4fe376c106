// Package scripting lets operators decide raid blocks, combat blocks and
// the privacy signal from a Lua script.
package scripting

import (
	"errors"
	"fmt"
	"os"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/settings"
)

// Hook function names looked up in the script's table.
const (
	FuncRaidBlocked   = "raid_blocked"
	FuncCombatBlocked = "combat_blocked"
	FuncPrivacyMode   = "privacy_mode"
)

// Hooks answers integration queries by calling the script. A missing
// script or function answers false.
type Hooks struct {
	mu  sync.Mutex
	vm  *VM
	log *zap.Logger
}

// Online reports whether a user is connected; scripts see it as
// host.online(id).
type Online func(id settings.UserID) bool

func newHooks(online Online, clk clock.Clock, logger *zap.Logger) *Hooks {
	h := &Hooks{vm: NewVM(), log: logger.Named("scripting")}
	h.vm.RegisterModule("host", map[string]lua.LGFunction{
		"log": func(L *lua.LState) int {
			h.log.Info(L.CheckString(1))
			return 0
		},
		"now": func(L *lua.LState) int {
			L.Push(lua.LNumber(clk.Now()))
			return 1
		},
		"online": func(L *lua.LState) int {
			id := settings.UserID(L.CheckString(1))
			L.Push(lua.LBool(online != nil && online(id)))
			return 1
		},
	})
	return h
}

// Load reads the hook script at path. A missing file yields hooks that
// always answer false.
func Load(path string, online Online, clk clock.Clock, logger *zap.Logger) (*Hooks, error) {
	h := newHooks(online, clk, logger)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		h.log.Info("no hook script, integrations disabled", zap.String("path", path))
		return h, nil
	}
	if err := h.vm.LoadScript(path); err != nil {
		h.vm.Close()
		return nil, err
	}
	return h, nil
}

// LoadString is Load for an in-memory script.
func LoadString(src string, online Online, clk clock.Clock, logger *zap.Logger) (*Hooks, error) {
	h := newHooks(online, clk, logger)
	if err := h.vm.LoadString(src); err != nil {
		h.vm.Close()
		return nil, fmt.Errorf("hooks script: %w", err)
	}
	return h, nil
}

// BindCodes installs the autocode module so hook functions can read and
// change codes.
func (h *Hooks) BindCodes(api *CodeAPI) {
	h.mu.Lock()
	defer h.mu.Unlock()
	api.Register(h.vm.L)
}

// Close releases the Lua state.
func (h *Hooks) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.vm.Close()
}

// RaidBlocked reports whether the user is raid blocked.
func (h *Hooks) RaidBlocked(id settings.UserID) bool {
	return h.call(FuncRaidBlocked, id)
}

// CombatBlocked reports whether the user is combat blocked.
func (h *Hooks) CombatBlocked(id settings.UserID) bool {
	return h.call(FuncCombatBlocked, id)
}

// PrivacyMode reports the script's streamer-mode signal for the user.
func (h *Hooks) PrivacyMode(id settings.UserID) bool {
	return h.call(FuncPrivacyMode, id)
}

func (h *Hooks) call(fn string, id settings.UserID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	ok, err := h.vm.CallBool(fn, lua.LString(id))
	if err != nil {
		h.log.Error("hook failed", zap.String("hook", fn), zap.String("user", string(id)), zap.Error(err))
		return false
	}
	return ok
}
