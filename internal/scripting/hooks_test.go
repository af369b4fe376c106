package scripting

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/settings"
)

const script = `
local raided = { ["7"] = true }
return {
  raid_blocked = function(id) return raided[id] == true end,
  combat_blocked = function(id) return host.online(id) end,
  privacy_mode = function(id)
    if id == "boom" then error("exploded") end
    return host.now() > 100
  end,
}
`

func TestHooks(t *testing.T) {
	online := func(id settings.UserID) bool { return id == "7" }
	h, err := LoadString(script, online, clock.NewManual(200), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	assert.True(t, h.RaidBlocked("7"))
	assert.False(t, h.RaidBlocked("8"))
	assert.True(t, h.CombatBlocked("7"))
	assert.False(t, h.CombatBlocked("8"))
	assert.True(t, h.PrivacyMode("8"))
}

func TestHooksErrorAnswersFalse(t *testing.T) {
	h, err := LoadString(script, nil, clock.NewManual(200), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	assert.False(t, h.PrivacyMode("boom"))
	// The state stays usable after a failed call.
	assert.True(t, h.RaidBlocked("7"))
}

func TestHooksGlobalTable(t *testing.T) {
	h, err := LoadString(`hooks = { privacy_mode = function() return true end }`, nil, clock.NewManual(0), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	assert.True(t, h.PrivacyMode("1"))
	assert.False(t, h.RaidBlocked("1"), "undefined hooks answer false")
}

func TestHooksNotAFunction(t *testing.T) {
	h, err := LoadString(`return { raid_blocked = 42 }`, nil, clock.NewManual(0), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	assert.False(t, h.RaidBlocked("1"))
}

func TestLoadMissingFile(t *testing.T) {
	h, err := Load(filepath.Join(t.TempDir(), "nope.lua"), nil, clock.NewManual(0), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	assert.False(t, h.RaidBlocked("1"))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hooks.lua")
	require.NoError(t, os.WriteFile(path, []byte(script), 0o644))

	h, err := Load(path, nil, clock.NewManual(0), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	assert.True(t, h.RaidBlocked("7"))
	assert.False(t, h.PrivacyMode("1"))
}

func TestLoadSyntaxError(t *testing.T) {
	_, err := LoadString(`return {`, nil, clock.NewManual(0), zap.NewNop())
	assert.Error(t, err)
}

type fakeCodes struct {
	codes  map[settings.Slot]string
	quiet  bool
	calls  []string
	resets []settings.UserID
}

func (f *fakeCodes) GetCode(_ settings.UserID, slot settings.Slot) (string, bool) {
	c, ok := f.codes[slot]
	return c, ok
}

func (f *fakeCodes) QuietMode(settings.UserID) bool { return f.quiet }

func (f *fakeCodes) SetCode(id settings.UserID, code string, slot settings.Slot, quiet, hide bool) autocode.Outcome {
	f.calls = append(f.calls, fmt.Sprintf("set %s %s %s quiet=%t hide=%t", id, code, slot, quiet, hide))
	f.codes[slot] = code
	return autocode.Outcome{Kind: autocode.Updated, Slot: slot, Code: code, Masked: hide, Quiet: quiet}
}

func (f *fakeCodes) RemoveCode(id settings.UserID, slot settings.Slot) autocode.Outcome {
	f.calls = append(f.calls, fmt.Sprintf("remove %s %s", id, slot))
	return autocode.Outcome{Kind: autocode.Removed, Slot: slot}
}

func (f *fakeCodes) ToggleQuietMode(id settings.UserID) autocode.Outcome {
	f.quiet = !f.quiet
	f.calls = append(f.calls, fmt.Sprintf("quiet %s", id))
	return autocode.Outcome{Kind: autocode.QuietModeChanged, QuietMode: f.quiet}
}

func (f *fakeCodes) ResetLockout(id settings.UserID) bool {
	f.resets = append(f.resets, id)
	return true
}

func (f *fakeCodes) ResetAllLockouts() int {
	f.resets = append(f.resets, "*")
	return 1
}

// queue runs posted work when flushed, standing in for the event loop.
type queue struct {
	stopped bool
	fns     []func()
}

func (q *queue) Post(fn func()) bool {
	if q.stopped {
		return false
	}
	q.fns = append(q.fns, fn)
	return true
}

func (q *queue) flush() {
	fns := q.fns
	q.fns = nil
	for _, fn := range fns {
		fn()
	}
}

const codeScript = `
return {
  -- Reads answer inside the hook.
  privacy_mode = function(id)
    return autocode.get_code(id) == "1234" and autocode.get_code(id, true) == nil
  end,
  combat_blocked = function(id)
    return autocode.quiet_mode(id)
  end,
  -- Changes are queued.
  raid_blocked = function(id)
    local ok, err = autocode.set_code(id, "12a4")
    assert(ok == false and err == "invalid code")
    assert(autocode.is_valid_code("0042"))
    assert(not autocode.is_valid_code("42"))
    assert(autocode.is_valid_code(autocode.generate_code()))
    assert(autocode.set_code(id, "0042", true, false, true))
    assert(autocode.remove_code(id))
    assert(autocode.toggle_quiet_mode(id))
    assert(autocode.reset_lockout(id))
    assert(autocode.reset_all_lockouts())
    return autocode.get_code(id, true) == "0042"
  end,
}
`

func TestCodeAPI(t *testing.T) {
	codes := &fakeCodes{codes: map[settings.Slot]string{settings.Primary: "1234"}}
	q := &queue{}
	var reported []autocode.Outcome

	h, err := LoadString(codeScript, nil, clock.NewManual(0), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()
	h.BindCodes(NewCodeAPI(codes, q, func(id settings.UserID, o autocode.Outcome) {
		assert.Equal(t, settings.UserID("7"), id)
		reported = append(reported, o)
	}, zap.NewNop()))

	assert.True(t, h.PrivacyMode("7"))
	assert.False(t, h.CombatBlocked("7"))

	assert.False(t, h.RaidBlocked("7"), "changes wait for the loop")
	assert.Empty(t, codes.calls)
	require.Len(t, q.fns, 5)

	q.flush()
	assert.Equal(t, []string{
		"set 7 0042 guest quiet=false hide=true",
		"remove 7 primary",
		"quiet 7",
	}, codes.calls)
	assert.Equal(t, []settings.UserID{"7", "*"}, codes.resets)
	require.Len(t, reported, 1)
	assert.Equal(t, autocode.Updated, reported[0].Kind)
	assert.True(t, reported[0].Masked)

	assert.True(t, h.CombatBlocked("7"), "quiet mode was toggled")
}

func TestCodeAPIStoppedLoop(t *testing.T) {
	codes := &fakeCodes{codes: map[settings.Slot]string{}}
	h, err := LoadString(`return { raid_blocked = function(id) return autocode.set_code(id, "1111") end }`,
		nil, clock.NewManual(0), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()
	h.BindCodes(NewCodeAPI(codes, &queue{stopped: true}, nil, zap.NewNop()))

	assert.False(t, h.RaidBlocked("1"))
	assert.Empty(t, codes.calls)
}

func TestCodeAPIUnboundIsAnError(t *testing.T) {
	h, err := LoadString(`return { raid_blocked = function(id) return autocode.get_code(id) ~= nil end }`,
		nil, clock.NewManual(0), zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	assert.False(t, h.RaidBlocked("1"), "calling an unbound module fails and answers false")
}
