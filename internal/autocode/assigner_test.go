package autocode

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/ratelimit"
	"github.com/notepid/autocode/internal/settings"
)

const user settings.UserID = "76561198000000042"

type privacySet map[settings.UserID]bool

func (p privacySet) PrivacyMode(id settings.UserID) bool { return p[id] }

func newTestAssigner(privacy PrivacySignal) (*Assigner, *settings.Store, *clock.Manual) {
	store := settings.NewStore()
	clk := clock.NewManual(1_700_000_000)
	return NewAssigner(store, clk, ratelimit.DefaultConfig(), privacy, zap.NewNop()), store, clk
}

func TestIsValidCode(t *testing.T) {
	valid := []string{"0000", "1234", "0007", "9999"}
	for _, c := range valid {
		assert.Truef(t, IsValidCode(c), "%q should be valid", c)
	}

	invalid := []string{"", "123", "12345", "12a4", " 123", "+123", "-123", "１２３４", "12.4"}
	for _, c := range invalid {
		assert.Falsef(t, IsValidCode(c), "%q should be invalid", c)
	}
}

func TestIsValidCode_AllFourDigitValues(t *testing.T) {
	for i := 0; i < 10000; i++ {
		c := fmt.Sprintf("%04d", i)
		if !IsValidCode(c) {
			t.Fatalf("expected %q to be valid", c)
		}
	}
}

func TestGenerateCode(t *testing.T) {
	sawLeadingZero := false
	for i := 0; i < 5000; i++ {
		c := GenerateCode()
		require.Truef(t, IsValidCode(c), "generated invalid code %q", c)
		if c[0] == '0' {
			sawLeadingZero = true
		}
	}
	assert.True(t, sawLeadingZero, "expected at least one code with a leading zero")
}

func TestSetCode_FreshUser(t *testing.T) {
	a, store, _ := newTestAssigner(nil)

	out := a.SetCode(user, "1234", settings.Primary, false, false)

	assert.Equal(t, Outcome{Kind: Updated, Slot: settings.Primary, Code: "1234"}, out)
	code, ok := a.GetCode(user, settings.Primary)
	assert.True(t, ok)
	assert.Equal(t, "1234", code)
	assert.NotNil(t, store.Get(user))
}

func TestSetCode_InvalidFormatChangesNothing(t *testing.T) {
	a, store, _ := newTestAssigner(nil)

	out := a.SetCode(user, "12x4", settings.Primary, false, false)

	assert.Equal(t, InvalidFormat, out.Kind)
	assert.Nil(t, store.Get(user), "invalid input must not create settings")
}

func TestGetCode_UnknownUser(t *testing.T) {
	a, store, _ := newTestAssigner(nil)

	_, ok := a.GetCode(user, settings.Guest)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())
}

func TestSetCode_SixthChangeRateLimited(t *testing.T) {
	a, _, clk := newTestAssigner(nil)
	start := clk.Now()

	for i := 0; i < 5; i++ {
		code := fmt.Sprintf("%04d", i+1)
		out := a.SetCode(user, code, settings.Primary, false, false)
		require.Equalf(t, Updated, out.Kind, "call %d", i+1)
		got, _ := a.GetCode(user, settings.Primary)
		require.Equal(t, code, got)
		clk.Advance(0.125)
	}

	require.Less(t, clk.Now()-start, 1.0, "all six calls land within one second")
	out := a.SetCode(user, "9999", settings.Primary, false, false)
	assert.Equal(t, RateLimited, out.Kind)
	assert.Equal(t, 5*time.Second, out.RetryAfter)

	got, _ := a.GetCode(user, settings.Primary)
	assert.Equal(t, "0005", got, "rate-limited call must not touch the code")

	clk.Advance(2)
	out = a.SetCode(user, "9999", settings.Primary, false, false)
	assert.Equal(t, RateLimited, out.Kind)
	assert.Equal(t, 3*time.Second, out.RetryAfter)
}

func TestSetCode_RecoversAfterLockout(t *testing.T) {
	a, store, clk := newTestAssigner(nil)

	for i := 0; i < 6; i++ {
		a.SetCode(user, "1111", settings.Primary, false, false)
	}
	st := store.Get(user)
	require.True(t, st.RateLimit.LockedOut(clk.Now()))

	clk.Set(st.RateLimit.LockedOutUntil)
	out := a.SetCode(user, "2222", settings.Guest, false, false)
	assert.Equal(t, Updated, out.Kind)
	assert.Equal(t, 1, st.RateLimit.ChangesInWindow)
}

func TestSetCode_Masking(t *testing.T) {
	t.Run("hide display", func(t *testing.T) {
		a, _, _ := newTestAssigner(nil)
		out := a.SetCode(user, "1234", settings.Primary, false, true)
		assert.True(t, out.Masked)
		assert.Equal(t, "1234", out.Code)
	})

	t.Run("quiet mode", func(t *testing.T) {
		a, _, _ := newTestAssigner(nil)
		a.ToggleQuietMode(user)
		out := a.SetCode(user, "1234", settings.Primary, false, false)
		assert.True(t, out.Masked)
	})

	t.Run("privacy signal", func(t *testing.T) {
		a, store, _ := newTestAssigner(privacySet{user: true})
		out := a.SetCode(user, "1234", settings.Primary, false, false)
		assert.True(t, out.Masked)
		assert.Equal(t, "1234", store.Get(user).Code, "masking must not affect storage")
	})

	t.Run("quiet flag passes through", func(t *testing.T) {
		a, _, _ := newTestAssigner(nil)
		out := a.SetCode(user, "1234", settings.Primary, true, false)
		assert.True(t, out.Quiet)
		assert.False(t, out.Masked)
	})
}

func TestRemoveCode(t *testing.T) {
	t.Run("primary clears guest too", func(t *testing.T) {
		a, _, _ := newTestAssigner(nil)
		a.SetCode(user, "1234", settings.Primary, false, false)
		a.SetCode(user, "5678", settings.Guest, false, false)

		out := a.RemoveCode(user, settings.Primary)

		assert.Equal(t, Removed, out.Kind)
		_, ok := a.GetCode(user, settings.Primary)
		assert.False(t, ok)
		_, ok = a.GetCode(user, settings.Guest)
		assert.False(t, ok)
	})

	t.Run("guest leaves primary", func(t *testing.T) {
		a, _, _ := newTestAssigner(nil)
		a.SetCode(user, "1234", settings.Primary, false, false)
		a.SetCode(user, "5678", settings.Guest, false, false)

		a.RemoveCode(user, settings.Guest)

		code, ok := a.GetCode(user, settings.Primary)
		assert.True(t, ok)
		assert.Equal(t, "1234", code)
		_, ok = a.GetCode(user, settings.Guest)
		assert.False(t, ok)
	})

	t.Run("no settings is a no-op", func(t *testing.T) {
		a, store, _ := newTestAssigner(nil)
		out := a.RemoveCode(user, settings.Primary)
		assert.Equal(t, Removed, out.Kind)
		assert.Equal(t, 0, store.Len())
	})
}

func TestResetLockouts(t *testing.T) {
	a, store, clk := newTestAssigner(nil)
	other := settings.UserID("other")

	for _, id := range []settings.UserID{user, other} {
		for i := 0; i < 6; i++ {
			a.SetCode(id, "1111", settings.Primary, false, false)
		}
		require.True(t, store.Get(id).RateLimit.LockedOut(clk.Now()))
	}

	assert.True(t, a.ResetLockout(user))
	assert.False(t, store.Get(user).RateLimit.LockedOut(clk.Now()))
	assert.Zero(t, store.Get(user).RateLimit.LockoutStrikes)
	assert.True(t, store.Get(other).RateLimit.LockedOut(clk.Now()))

	assert.Equal(t, 2, a.ResetAllLockouts())
	assert.False(t, store.Get(other).RateLimit.LockedOut(clk.Now()))

	assert.Equal(t, Updated, a.SetCode(user, "2222", settings.Primary, false, false).Kind)
	assert.False(t, a.ResetLockout("nobody"))
}

func TestDescribe(t *testing.T) {
	a, _, _ := newTestAssigner(nil)
	assert.Equal(t, Info{}, a.Describe(user))

	a.SetCode(user, "1234", settings.Primary, false, false)
	assert.Equal(t, Info{Code: "1234"}, a.Describe(user))

	a.ToggleQuietMode(user)
	info := a.Describe(user)
	assert.Equal(t, HiddenCode, info.Code)
	assert.Empty(t, info.GuestCode, "unset codes stay unset when masked")
	assert.True(t, info.QuietMode)
}
