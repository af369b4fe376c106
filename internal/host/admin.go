package host

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/server"
	"github.com/notepid/autocode/internal/settings"
)

// Statuses implements server.AdminBackend.
func (h *Host) Statuses(ctx context.Context) ([]server.UserStatus, error) {
	names, err := h.users.Names()
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var out []server.UserStatus
	err = h.loop.Do(func() {
		now := h.clock.Now()
		h.store.Each(func(id settings.UserID, st *settings.Settings) {
			s := server.UserStatus{
				ID:           id,
				Name:         names[id],
				HasCode:      st.Code != "",
				HasGuestCode: st.GuestCode != "",
				QuietMode:    st.QuietMode,
				Strikes:      st.RateLimit.LockoutStrikes,
			}
			if st.RateLimit.LockedOut(now) {
				s.LockedOutFor = st.RateLimit.LockedOutUntil - now
			}
			out = append(out, s)
		})
	})
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Online = h.mail.IsOnline(out[i].ID)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, ctx.Err()
}

// ResetLockout implements server.AdminBackend. A user without settings has
// nothing to reset and counts as zero.
func (h *Host) ResetLockout(ctx context.Context, id settings.UserID) (int, error) {
	var known bool
	if err := h.loop.Do(func() { known = h.assigner.ResetLockout(id) }); err != nil {
		return 0, err
	}
	if !known {
		return 0, ctx.Err()
	}
	h.log.Info("lockout reset from admin api", zap.String("user", string(id)))
	return 1, ctx.Err()
}

// ResetAllLockouts implements server.AdminBackend.
func (h *Host) ResetAllLockouts(ctx context.Context) (int, error) {
	var n int
	if err := h.loop.Do(func() { n = h.assigner.ResetAllLockouts() }); err != nil {
		return 0, err
	}
	return n, ctx.Err()
}
