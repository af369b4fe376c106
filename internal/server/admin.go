package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/settings"
)

// UserStatus is one row of the admin settings listing. Codes themselves are
// never exposed.
type UserStatus struct {
	ID           settings.UserID `json:"id"`
	Name         string          `json:"name"`
	HasCode      bool            `json:"hasCode"`
	HasGuestCode bool            `json:"hasGuestCode"`
	QuietMode    bool            `json:"quietMode"`
	LockedOutFor float64         `json:"lockedOutFor"`
	Strikes      int             `json:"strikes"`
	Online       bool            `json:"online"`
}

// ResetResult is the body returned by the reset endpoints.
type ResetResult struct {
	Reset int `json:"reset"`
}

// AdminBackend performs admin operations against the running host.
type AdminBackend interface {
	Statuses(ctx context.Context) ([]UserStatus, error)
	// ResetLockout reports how many records it touched: 0 for a user
	// without settings, 1 otherwise.
	ResetLockout(ctx context.Context, id settings.UserID) (int, error)
	ResetAllLockouts(ctx context.Context) (int, error)
}

// AdminAPI serves the HTTP admin surface.
type AdminAPI struct {
	backend AdminBackend
	token   string
	log     *zap.Logger
}

// NewAdminAPI creates the admin API. With an empty token the /admin routes
// only answer loopback callers.
func NewAdminAPI(backend AdminBackend, token string, logger *zap.Logger) *AdminAPI {
	return &AdminAPI{backend: backend, token: token, log: logger.Named("admin")}
}

// Router builds the chi router.
func (a *AdminAPI) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.requestLogger)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(a.requireToken)
		r.Get("/settings", a.listSettings)
		r.Post("/lockouts/reset", a.resetAll)
		r.Post("/lockouts/{userID}/reset", a.resetOne)
	})

	return r
}

func (a *AdminAPI) listSettings(w http.ResponseWriter, r *http.Request) {
	statuses, err := a.backend.Statuses(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	if statuses == nil {
		statuses = []UserStatus{}
	}
	writeJSON(w, http.StatusOK, statuses)
}

func (a *AdminAPI) resetAll(w http.ResponseWriter, r *http.Request) {
	n, err := a.backend.ResetAllLockouts(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResetResult{Reset: n})
}

func (a *AdminAPI) resetOne(w http.ResponseWriter, r *http.Request) {
	id := settings.UserID(chi.URLParam(r, "userID"))
	n, err := a.backend.ResetLockout(r.Context(), id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ResetResult{Reset: n})
}

func (a *AdminAPI) fail(w http.ResponseWriter, r *http.Request, err error) {
	a.log.Error("admin request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func (a *AdminAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.token == "" {
			if !isLoopback(r.RemoteAddr) {
				a.log.Warn("refused non-loopback admin request without a token",
					zap.String("remote", r.RemoteAddr),
					zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin token required for remote access"})
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.token)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// isLoopback reports whether a request's remote address is on this host.
func isLoopback(remote string) bool {
	host, _, err := net.SplitHostPort(remote)
	if err != nil {
		host = remote
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// ListenAddr is the address the admin API should bind. Without a token it
// only listens on loopback.
func ListenAddr(port int, token string) string {
	if token == "" {
		return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	}
	return net.JoinHostPort("", strconv.Itoa(port))
}

func (a *AdminAPI) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

// writeJSON is a helper function to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
