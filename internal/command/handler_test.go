package command

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/capture"
	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/ratelimit"
	"github.com/notepid/autocode/internal/settings"
)

const alice settings.UserID = "1"

type grants map[settings.UserID]map[string]bool

func (g grants) HasPermission(id settings.UserID, perm string) bool { return g[id][perm] }

type fakeCapture struct {
	started []settings.Slot
	err     error
}

func (f *fakeCapture) StartCapture(id settings.UserID, slot settings.Slot, _ lock.Position) (*capture.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.started = append(f.started, slot)
	return &capture.Session{User: id, Lock: "abcdef12-3456", Slot: slot, Timeout: 20 * time.Second}, nil
}

type directory []Match

func (d directory) Lookup(q string) []Match {
	var out []Match
	for _, m := range d {
		if string(m.ID) == q || strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out
}

type fixture struct {
	h       *Handler
	store   *settings.Store
	clk     *clock.Manual
	perms   grants
	capture *fakeCapture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: settings.NewStore(),
		clk:   clock.NewManual(1_700_000_000),
		perms: grants{
			alice: {autocode.PermUse: true},
			"99":  {autocode.PermUse: true, autocode.PermAdmin: true},
		},
		capture: &fakeCapture{},
	}
	assigner := autocode.NewAssigner(f.store, f.clk, ratelimit.DefaultConfig(), nil, zap.NewNop())
	f.h = NewHandler(Config{
		Core:        assigner,
		Capture:     f.capture,
		Permissions: f.perms,
		Directory: directory{
			{ID: alice, Name: "Alice"},
			{ID: "2", Name: "Alicia"},
			{ID: "3", Name: "Bob"},
		},
		Renderer:                NewRenderer("code"),
		DisplayPermissionErrors: true,
		Logger:                  zap.NewNop(),
	})
	return f
}

func (f *fixture) use(args ...string) Reply {
	return f.h.Use(Caller{ID: alice}, args)
}

func TestUseSetCode(t *testing.T) {
	f := newFixture(t)

	rep := f.use("1234")
	assert.Equal(t, []string{"Your auto-code has changed to 1234."}, rep.Lines)
	assert.Equal(t, "1234", f.store.Get(alice).Code)

	rep = f.use("guest", "0042")
	assert.Equal(t, []string{"Your guest auto-code has changed to 0042."}, rep.Lines)

	rep = f.use("set", "12x4")
	assert.Equal(t, []string{"Invalid code. A code is exactly 4 digits."}, rep.Lines)
	assert.Equal(t, "1234", f.store.Get(alice).Code)
}

func TestUseRandomHonoursQuietMode(t *testing.T) {
	f := newFixture(t)

	rep := f.use("random")
	require.Len(t, rep.Lines, 1)
	assert.Contains(t, rep.Lines[0], f.store.Get(alice).Code)

	f.use("quiet")
	rep = f.use("random")
	assert.Equal(t, []string{"New auto-code set."}, rep.Lines)
}

func TestUseQuietToggle(t *testing.T) {
	f := newFixture(t)

	rep := f.use("quiet")
	assert.Equal(t, "Quiet mode now enabled.", rep.Lines[0])
	assert.True(t, f.store.Get(alice).QuietMode)

	rep = f.use("quiet")
	assert.Equal(t, []string{"Quiet mode now disabled."}, rep.Lines)
}

func TestUseRemove(t *testing.T) {
	f := newFixture(t)
	f.use("1234")
	f.use("guest", "5678")

	rep := f.use("guest", "remove")
	assert.Equal(t, []string{"Your guest auto-code has been removed."}, rep.Lines)
	assert.Equal(t, "1234", f.store.Get(alice).Code)

	rep = f.use("remove")
	assert.Equal(t, []string{"Your auto-code has been removed."}, rep.Lines)
	assert.Empty(t, f.store.Get(alice).Code)
}

func TestUseRateLimited(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 5; i++ {
		f.use("1234")
		f.clk.Advance(1)
	}

	rep := f.use("4321")
	assert.Equal(t, []string{"Too many recent auto-code sets. Please wait 5s and try again."}, rep.Lines)
	assert.Equal(t, "1234", f.store.Get(alice).Code)

	info := f.use()
	assert.Contains(t, info.Text(), "Locked Out: 5s")
}

func TestUseInfo(t *testing.T) {
	f := newFixture(t)

	rep := f.use()
	text := rep.Text()
	assert.Contains(t, text, "Code: Not set")
	assert.Contains(t, text, "Guest Code: Not set")
	assert.Contains(t, text, "Quiet Mode: Disabled")
	assert.Contains(t, text, "Usage:")
	assert.Nil(t, f.store.Get(alice), "info must not create settings")

	f.use("1234")
	f.use("quiet")
	text = f.use().Text()
	assert.Contains(t, text, "Code: ****")
	assert.Contains(t, text, "Guest Code: Not set")
	assert.Contains(t, text, "Quiet Mode: Enabled")
}

func TestUsePick(t *testing.T) {
	f := newFixture(t)

	rep := f.use("guest", "pick")
	require.NotNil(t, rep.Capture)
	assert.Equal(t, []settings.Slot{settings.Guest}, f.capture.started)
	assert.Equal(t, []string{"Enter your new guest auto-code into lock abcdef12 within 20s."}, rep.Lines)

	f.capture.err = errors.New("no room")
	rep = f.use("pick")
	assert.Nil(t, rep.Capture)
	assert.Empty(t, rep.Lines)
}

func TestUseSyntaxAndHelp(t *testing.T) {
	f := newFixture(t)

	rep := f.use("bogus")
	assert.Equal(t, "Syntax Error: expected command in the form:", rep.Lines[0])
	assert.Contains(t, rep.Text(), "code [<[guest] <[set] 1234|random|remove|pick>|quiet|help>]")

	rep = f.use("1234", "5678")
	assert.Equal(t, []string{"Too many arguments supplied."}, rep.Lines)

	help := f.use("help").Text()
	assert.Contains(t, help, "Core Commands:")
	assert.Contains(t, help, "code guest 5678")
	assert.Contains(t, help, "code quiet")
}

func TestUseWithoutPermission(t *testing.T) {
	f := newFixture(t)

	rep := f.h.Use(Caller{ID: "3"}, []string{"1234"})
	assert.Equal(t, []string{"You don't have permission."}, rep.Lines)
	assert.Nil(t, f.store.Get("3"))

	f.h.cfg.DisplayPermissionErrors = false
	rep = f.h.Use(Caller{ID: "3"}, []string{"1234"})
	assert.Empty(t, rep.Lines)
}

func TestResetLockout(t *testing.T) {
	lockOut := func(f *fixture) {
		for i := 0; i < 6; i++ {
			f.use("1234")
		}
		require.True(t, f.store.Get(alice).RateLimit.LockedOut(f.clk.Now()))
	}

	t.Run("by name", func(t *testing.T) {
		f := newFixture(t)
		lockOut(f)

		rep := f.h.ResetLockout("99", []string{"alice"})
		assert.Equal(t, []string{"Resetting lock outs for Alice."}, rep.Lines)
		assert.False(t, f.store.Get(alice).RateLimit.LockedOut(f.clk.Now()))
	})

	t.Run("all from console", func(t *testing.T) {
		f := newFixture(t)
		lockOut(f)

		rep := f.h.ResetLockout("", []string{"*"})
		assert.Equal(t, []string{"Resetting lock outs for all players (1)."}, rep.Lines)
		assert.Zero(t, f.store.Get(alice).RateLimit.LockoutStrikes)
	})

	t.Run("ambiguous", func(t *testing.T) {
		f := newFixture(t)
		rep := f.h.ResetLockout("99", []string{"ali"})
		assert.Equal(t, []string{"Error: More than one player found."}, rep.Lines)
	})

	t.Run("not found", func(t *testing.T) {
		f := newFixture(t)
		rep := f.h.ResetLockout("99", []string{"zed"})
		assert.Equal(t, []string{"Error: No player found."}, rep.Lines)
	})

	t.Run("no settings", func(t *testing.T) {
		f := newFixture(t)
		rep := f.h.ResetLockout("99", []string{"bob"})
		assert.Equal(t, []string{"Bob has no auto-code settings."}, rep.Lines)
	})

	t.Run("wrong arg count", func(t *testing.T) {
		f := newFixture(t)
		rep := f.h.ResetLockout("99", nil)
		assert.Equal(t, []string{"Invalid arguments supplied."}, rep.Lines)
	})

	t.Run("not admin", func(t *testing.T) {
		f := newFixture(t)
		rep := f.h.ResetLockout(alice, []string{"*"})
		assert.Equal(t, []string{"You don't have permission."}, rep.Lines)
	})
}

func TestRenderNotice(t *testing.T) {
	r := NewRenderer("code")

	assert.Equal(t, "Code lock abcd placed with code 1234.",
		r.Notice(autocode.AutoLocked{Lock: "abcd", Code: "1234"}))
	assert.Equal(t, "Code lock abcd placed with code **** and guest code ****.",
		r.Notice(autocode.AutoLocked{Lock: "abcd", Code: "****", GuestCode: "****"}))
	assert.Equal(t, "Auto-code disabled due to raid block.",
		r.Notice(autocode.AutoLockBlocked{Reason: autocode.BlockedRaid}))
	assert.Equal(t, "Auto-code disabled due to combat block.",
		r.Notice(autocode.AutoLockBlocked{Reason: autocode.BlockedCombat}))
	assert.Equal(t, "Your auto-code has changed to 0420.",
		r.Notice(autocode.CodeChanged{Outcome: autocode.Outcome{Kind: autocode.Updated, Code: "0420"}}))
	assert.Empty(t, r.Notice(autocode.CodeChanged{Outcome: autocode.Outcome{Kind: autocode.Updated, Quiet: true}}))
}
