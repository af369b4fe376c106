package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/settings"
)

type fakeBackend struct {
	statuses []UserStatus
	reset    []settings.UserID
	all      int
	err      error
}

func (f *fakeBackend) Statuses(context.Context) ([]UserStatus, error) {
	return f.statuses, f.err
}

func (f *fakeBackend) ResetLockout(_ context.Context, id settings.UserID) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	if id == "404" {
		return 0, nil
	}
	f.reset = append(f.reset, id)
	return 1, nil
}

func (f *fakeBackend) ResetAllLockouts(context.Context) (int, error) {
	f.all++
	return 3, f.err
}

// serve sends a request from a loopback address.
func serve(t *testing.T, api *AdminAPI, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	return serveFrom(t, api, "127.0.0.1:50000", method, path, token)
}

func serveFrom(t *testing.T, api *AdminAPI, remote, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = remote
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	api.Router().ServeHTTP(rec, req)
	return rec
}

func TestAdminHealthz(t *testing.T) {
	api := NewAdminAPI(&fakeBackend{}, "secret", zap.NewNop())
	rec := serve(t, api, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestAdminListSettings(t *testing.T) {
	backend := &fakeBackend{statuses: []UserStatus{
		{ID: "1", Name: "alice", HasCode: true, Strikes: 2, LockedOutFor: 9},
	}}
	api := NewAdminAPI(backend, "", zap.NewNop())

	rec := serve(t, api, http.MethodGet, "/admin/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got []UserStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, backend.statuses, got)
	assert.NotContains(t, rec.Body.String(), "code\"", "codes are never exposed")
}

func TestAdminListSettingsEmpty(t *testing.T) {
	api := NewAdminAPI(&fakeBackend{}, "", zap.NewNop())
	rec := serve(t, api, http.MethodGet, "/admin/settings", "")
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestAdminResetOne(t *testing.T) {
	backend := &fakeBackend{}
	api := NewAdminAPI(backend, "", zap.NewNop())

	rec := serve(t, api, http.MethodPost, "/admin/lockouts/7/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reset":1}`, rec.Body.String())
	assert.Equal(t, []settings.UserID{"7"}, backend.reset)

	// Users without settings still succeed; nothing was touched.
	rec = serve(t, api, http.MethodPost, "/admin/lockouts/404/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reset":0}`, rec.Body.String())
	assert.Equal(t, []settings.UserID{"7"}, backend.reset)
}

func TestAdminResetAll(t *testing.T) {
	backend := &fakeBackend{}
	api := NewAdminAPI(backend, "", zap.NewNop())

	rec := serve(t, api, http.MethodPost, "/admin/lockouts/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reset":3}`, rec.Body.String())
	assert.Equal(t, 1, backend.all)

	rec = serve(t, api, http.MethodGet, "/admin/lockouts/reset", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestAdminToken(t *testing.T) {
	api := NewAdminAPI(&fakeBackend{}, "secret", zap.NewNop())

	assert.Equal(t, http.StatusUnauthorized, serve(t, api, http.MethodGet, "/admin/settings", "").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(t, api, http.MethodGet, "/admin/settings", "wrong").Code)
	assert.Equal(t, http.StatusOK, serve(t, api, http.MethodGet, "/admin/settings", "secret").Code)
}

func TestAdminBackendError(t *testing.T) {
	api := NewAdminAPI(&fakeBackend{err: errors.New("loop stopped")}, "", zap.NewNop())

	rec := serve(t, api, http.MethodGet, "/admin/settings", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "loop stopped")
}

func TestAdminWithoutTokenRefusesRemoteCallers(t *testing.T) {
	backend := &fakeBackend{}
	api := NewAdminAPI(backend, "", zap.NewNop())

	remotes := []string{"203.0.113.5:4000", "[2001:db8::1]:4000", "10.0.0.2:4000", "garbage"}
	routes := []struct{ method, path string }{
		{http.MethodGet, "/admin/settings"},
		{http.MethodPost, "/admin/lockouts/reset"},
		{http.MethodPost, "/admin/lockouts/1/reset"},
	}
	for _, remote := range remotes {
		for _, rt := range routes {
			t.Run(fmt.Sprintf("%s %s from %s", rt.method, rt.path, remote), func(t *testing.T) {
				rec := serveFrom(t, api, remote, rt.method, rt.path, "")
				assert.Equal(t, http.StatusForbidden, rec.Code)
			})
		}
	}
	assert.Empty(t, backend.reset)
	assert.Zero(t, backend.all)

	for _, remote := range []string{"127.0.0.1:4000", "[::1]:4000"} {
		rec := serveFrom(t, api, remote, http.MethodPost, "/admin/lockouts/1/reset", "")
		assert.Equal(t, http.StatusOK, rec.Code, remote)
	}
	assert.Equal(t, []settings.UserID{"1", "1"}, backend.reset)

	// Health checks stay public.
	assert.Equal(t, http.StatusOK, serveFrom(t, api, "203.0.113.5:4000", http.MethodGet, "/healthz", "").Code)
}

func TestAdminTokenAllowsRemoteCallers(t *testing.T) {
	api := NewAdminAPI(&fakeBackend{}, "secret", zap.NewNop())

	assert.Equal(t, http.StatusUnauthorized, serveFrom(t, api, "203.0.113.5:4000", http.MethodGet, "/admin/settings", "").Code)
	assert.Equal(t, http.StatusOK, serveFrom(t, api, "203.0.113.5:4000", http.MethodGet, "/admin/settings", "secret").Code)
}

func TestListenAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:8080", ListenAddr(8080, ""))
	assert.Equal(t, ":8080", ListenAddr(8080, "secret"))
}
