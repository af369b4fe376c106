// Package capture lets a user register a code by typing it into a
// throwaway lock instead of passing it as a command argument.
package capture

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/autocode"
	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/event"
	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/loop"
	"github.com/notepid/autocode/internal/settings"
)

// DefaultTimeout is how long a session waits for a code.
const DefaultTimeout = 20 * time.Second

const subscriberName = "capture"

// ErrEntityCreationFailed is returned when the transient lock could not be
// spawned. No session is left behind.
var ErrEntityCreationFailed = errors.New("create transient lock")

// State is the lifecycle stage of a session.
type State int

const (
	Idle State = iota
	AwaitingEntry
	Resolved
	Cancelled
	TimedOut
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingEntry:
		return "awaiting_entry"
	case Resolved:
		return "resolved"
	case Cancelled:
		return "cancelled"
	case TimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Scheduler defers work onto the event loop. *loop.Loop satisfies it.
type Scheduler interface {
	AfterFunc(d time.Duration, fn func()) loop.Timer
	NextTick(fn func())
}

// Entities spawns and kills transient locks. *lock.World satisfies it.
type Entities interface {
	CreateTransient(pos lock.Position) (*lock.Lock, error)
	Destroy(h lock.Handle)
	IsDestroyed(h lock.Handle) bool
}

// Events is the subscription side of the host event bus.
type Events interface {
	Subscribe(hook event.Hook, name string, h event.Handler)
	Unsubscribe(hook event.Hook, name string)
}

// CodeSetter applies a captured code. *autocode.Assigner satisfies it.
type CodeSetter interface {
	SetCode(id settings.UserID, code string, slot settings.Slot, quiet, hideDisplay bool) autocode.Outcome
}

// Session is a user's pending capture.
type Session struct {
	User      settings.UserID
	Lock      lock.Handle
	Slot      settings.Slot
	ExpiresAt float64
	Timeout   time.Duration
	State     State

	timer loop.Timer
}

// Config wires a Manager to its collaborators.
type Config struct {
	Scheduler Scheduler
	Entities  Entities
	Events    Events
	Codes     CodeSetter
	Notifier  autocode.Notifier
	Clock     clock.Clock
	// Timeout defaults to DefaultTimeout.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Manager owns every capture session. It must only be used from the
// event loop.
type Manager struct {
	cfg      Config
	sessions map[settings.UserID]*Session
	log      *zap.Logger
}

// NewManager creates a Manager with no sessions.
func NewManager(cfg Config) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.System{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[settings.UserID]*Session),
		log:      cfg.Logger.Named("capture"),
	}
}

// StartCapture cancels any session id already has, spawns a transient lock
// near pos and waits for the user to type a code into it.
func (m *Manager) StartCapture(id settings.UserID, slot settings.Slot, pos lock.Position) (*Session, error) {
	m.Cancel(id)

	l, err := m.cfg.Entities.CreateTransient(pos)
	if err != nil {
		m.log.Warn("capture not started",
			zap.String("user", string(id)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrEntityCreationFailed, err)
	}

	s := &Session{
		User:      id,
		Lock:      l.Handle,
		Slot:      slot,
		ExpiresAt: m.cfg.Clock.Now() + m.cfg.Timeout.Seconds(),
		Timeout:   m.cfg.Timeout,
		State:     AwaitingEntry,
	}
	m.sessions[id] = s
	m.cfg.Events.Subscribe(event.HookCodeEntered, subscriberName, m.onCodeEntered)

	h := l.Handle
	s.timer = m.cfg.Scheduler.AfterFunc(m.cfg.Timeout, func() { m.expire(id, h) })

	m.log.Debug("capture started",
		zap.String("user", string(id)),
		zap.String("lock", string(h)),
		zap.Stringer("slot", slot))
	return s, nil
}

func (m *Manager) onCodeEntered(payload any) {
	ev, ok := payload.(event.CodeEntered)
	if !ok {
		return
	}
	m.HandleCodeEntered(ev)
}

// HandleCodeEntered resolves the session bound to ev's user and lock. Events
// for any other lock are stale and ignored. It reports whether a session
// consumed the event.
func (m *Manager) HandleCodeEntered(ev event.CodeEntered) bool {
	s, ok := m.sessions[ev.User]
	if !ok || s.Lock != ev.Lock {
		return false
	}

	s.timer.Stop()
	s.State = Resolved
	m.remove(s)

	// The lock is still inside its own event dispatch.
	h := s.Lock
	m.cfg.Scheduler.NextTick(func() { m.cfg.Entities.Destroy(h) })

	out := m.cfg.Codes.SetCode(s.User, ev.Code, s.Slot, false, false)
	if m.cfg.Notifier != nil {
		m.cfg.Notifier.Notify(s.User, autocode.CodeChanged{Outcome: out})
	}
	m.log.Debug("capture resolved",
		zap.String("user", string(s.User)),
		zap.Stringer("outcome", out.Kind))
	return true
}

func (m *Manager) expire(id settings.UserID, h lock.Handle) {
	s, ok := m.sessions[id]
	if !ok || s.Lock != h {
		return
	}
	s.State = TimedOut
	m.remove(s)
	m.destroy(h)
	m.log.Debug("capture timed out", zap.String("user", string(id)))
}

// Cancel tears down id's session, if any, and reports whether one existed.
func (m *Manager) Cancel(id settings.UserID) bool {
	s, ok := m.sessions[id]
	if !ok {
		return false
	}
	s.timer.Stop()
	s.State = Cancelled
	m.remove(s)
	m.destroy(s.Lock)
	return true
}

// CancelAll tears down every session and returns how many there were.
func (m *Manager) CancelAll() int {
	n := 0
	for id := range m.sessions {
		if m.Cancel(id) {
			n++
		}
	}
	return n
}

// Active returns a copy of id's pending session.
func (m *Manager) Active(id settings.UserID) (Session, bool) {
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// Len returns the number of pending sessions.
func (m *Manager) Len() int {
	return len(m.sessions)
}

func (m *Manager) remove(s *Session) {
	delete(m.sessions, s.User)
	if len(m.sessions) == 0 {
		m.cfg.Events.Unsubscribe(event.HookCodeEntered, subscriberName)
	}
}

func (m *Manager) destroy(h lock.Handle) {
	if !m.cfg.Entities.IsDestroyed(h) {
		m.cfg.Entities.Destroy(h)
	}
}
