package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const t0 = 1_700_000_000.0

func TestEvaluate_DisabledAlwaysAllows(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	var s State
	for i := 0; i < 20; i++ {
		d := Evaluate(&s, t0, cfg)
		require.True(t, d.Allowed)
		RecordSuccess(&s, t0)
	}
	assert.Zero(t, s.ChangesInWindow)
	assert.Zero(t, s.LockoutStrikes)
}

func TestEvaluate_FirstCallStartsWindow(t *testing.T) {
	var s State
	d := Evaluate(&s, t0, DefaultConfig())

	assert.True(t, d.Allowed)
	assert.Equal(t, 1, s.ChangesInWindow)
	assert.Zero(t, s.LockedOutUntil)
}

func TestEvaluate_SixthChangeInWindowLocksOut(t *testing.T) {
	cfg := DefaultConfig()
	var s State

	for i := 0; i < 5; i++ {
		now := t0 + float64(i)*0.1
		d := Evaluate(&s, now, cfg)
		require.Truef(t, d.Allowed, "change %d should be allowed", i+1)
		RecordSuccess(&s, now)
	}

	d := Evaluate(&s, t0+0.6, cfg)
	require.False(t, d.Allowed)
	assert.True(t, d.NewLockout)
	assert.Equal(t, 5*time.Second, d.RetryAfter)
	assert.Equal(t, 1, s.LockoutStrikes)
	assert.Equal(t, 0, s.ChangesInWindow)
	assert.InDelta(t, t0+0.6+5, s.LockedOutUntil, 1e-9)
	assert.InDelta(t, t0+0.4, s.LastSetAt, 1e-9)
}

func TestEvaluate_DeniedWhileLockedOutLeavesStateAlone(t *testing.T) {
	cfg := DefaultConfig()
	s := State{
		LastSetAt:       t0 - 1,
		ChangesInWindow: 0,
		LockedOutUntil:  t0 + 3.2,
		LastLockedOutAt: t0 - 1.8,
		LockoutStrikes:  1,
	}
	before := s

	d := Evaluate(&s, t0, cfg)

	assert.False(t, d.Allowed)
	assert.False(t, d.NewLockout)
	assert.Equal(t, 4*time.Second, d.RetryAfter)
	assert.Equal(t, before, s)
}

func TestEvaluate_RecoversAfterLockoutExpires(t *testing.T) {
	cfg := DefaultConfig()
	var s State
	lockOut(t, &s, t0, cfg)

	now := s.LockedOutUntil
	d := Evaluate(&s, now, cfg)
	require.True(t, d.Allowed)
	RecordSuccess(&s, now)

	assert.Equal(t, 1, s.ChangesInWindow)
	assert.Equal(t, now, s.LastSetAt)
}

func TestEvaluate_WindowResetsAfterQuietPeriod(t *testing.T) {
	cfg := DefaultConfig()
	var s State

	for i := 0; i < 5; i++ {
		require.True(t, Evaluate(&s, t0, cfg).Allowed)
		RecordSuccess(&s, t0)
	}

	later := t0 + cfg.WindowSeconds
	require.True(t, Evaluate(&s, later, cfg).Allowed)
	assert.Equal(t, 1, s.ChangesInWindow)
}

func TestEvaluate_ExponentialBackoffDoubles(t *testing.T) {
	cfg := DefaultConfig()
	var s State

	first := lockOut(t, &s, t0, cfg)
	assert.Equal(t, 5*time.Second, first)

	second := lockOut(t, &s, s.LockedOutUntil, cfg)
	assert.Equal(t, 10*time.Second, second)
	assert.Equal(t, 2, s.LockoutStrikes)

	third := lockOut(t, &s, s.LockedOutUntil, cfg)
	assert.Equal(t, 20*time.Second, third)
}

func TestEvaluate_LinearLockoutWithoutBackoff(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseExponentialBackoff = false
	var s State

	assert.Equal(t, 5*time.Second, lockOut(t, &s, t0, cfg))
	assert.Equal(t, 5*time.Second, lockOut(t, &s, s.LockedOutUntil, cfg))
	assert.Equal(t, 2, s.LockoutStrikes)
}

func TestResetIfStale_Forgiveness(t *testing.T) {
	cfg := DefaultConfig()
	var s State
	lockOut(t, &s, t0, cfg)
	lockedAt := s.LastLockedOutAt

	t.Run("not yet", func(t *testing.T) {
		st := s
		assert.False(t, ResetIfStale(&st, lockedAt+5*5, cfg))
		assert.Equal(t, 1, st.LockoutStrikes)
	})

	t.Run("after factor times last lockout", func(t *testing.T) {
		st := s
		assert.True(t, ResetIfStale(&st, lockedAt+5*5+1, cfg))
		assert.Equal(t, 0, st.LockoutStrikes)
	})

	t.Run("next lockout uses base duration again", func(t *testing.T) {
		st := s
		got := lockOut(t, &st, lockedAt+5*5+1, cfg)
		assert.Equal(t, 5*time.Second, got)
		assert.Equal(t, 1, st.LockoutStrikes)
	})

	t.Run("factor zero never forgives", func(t *testing.T) {
		st := s
		never := cfg
		never.ForgivenessFactor = 0
		assert.False(t, ResetIfStale(&st, lockedAt+1e9, never))
		assert.Equal(t, 1, st.LockoutStrikes)
	})
}

func TestState_Reset(t *testing.T) {
	s := State{LockedOutUntil: t0 + 100, LockoutStrikes: 4, ChangesInWindow: 2, LastSetAt: t0}
	s.Reset()

	assert.Zero(t, s.LockedOutUntil)
	assert.Zero(t, s.LockoutStrikes)
	assert.Equal(t, 2, s.ChangesInWindow)
	assert.False(t, s.LockedOut(t0))
}

// lockOut burns through the attempt window starting at now and returns
// the duration of the lockout that results.
func lockOut(t *testing.T, s *State, now float64, cfg Config) time.Duration {
	t.Helper()
	for i := 0; i < cfg.MaxAttempts; i++ {
		d := Evaluate(s, now, cfg)
		require.True(t, d.Allowed, "attempt %d unexpectedly denied", i+1)
		RecordSuccess(s, now)
	}
	d := Evaluate(s, now, cfg)
	require.True(t, d.NewLockout, "expected a new lockout")
	return d.RetryAfter
}
