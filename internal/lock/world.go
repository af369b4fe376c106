package lock

import (
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/notepid/autocode/internal/settings"
)

var (
	// ErrNotFound is returned for unknown or destroyed handles.
	ErrNotFound = errors.New("lock not found")
	// ErrAmbiguous is returned when a short handle matches several locks.
	ErrAmbiguous = errors.New("lock handle is ambiguous")
	// ErrEntityLimit is returned when the world cannot hold another entity.
	ErrEntityLimit = errors.New("entity limit reached")
)

// PlaceListener observes newly placed, owned locks.
type PlaceListener func(l *Lock)

// UnlockHook runs before access checks on a locked lock, giving policies a
// chance to authorize the user first.
type UnlockHook func(id settings.UserID, l *Lock)

// World is the registry of live lock entities. It is owned by the host
// event loop and is not safe for concurrent use.
type World struct {
	locks       map[Handle]*Lock
	maxEntities int
	unlockHooks []UnlockHook
	placed      []PlaceListener
}

// NewWorld creates an empty world holding at most maxEntities locks.
// maxEntities <= 0 means unlimited.
func NewWorld(maxEntities int) *World {
	return &World{
		locks:       make(map[Handle]*Lock),
		maxEntities: maxEntities,
	}
}

// OnPlaced registers a listener fired after Place succeeds.
func (w *World) OnPlaced(fn PlaceListener) {
	w.placed = append(w.placed, fn)
}

// OnUnlockAttempt registers a hook run by CanBypass for locked locks.
func (w *World) OnUnlockAttempt(h UnlockHook) {
	w.unlockHooks = append(w.unlockHooks, h)
}

// Place spawns a regular lock owned by owner and notifies placement
// listeners. Listeners may configure and lock it before Place returns.
func (w *World) Place(owner settings.UserID, pos Position) (*Lock, error) {
	l, err := w.spawn(owner, pos, false)
	if err != nil {
		return nil, err
	}
	for _, fn := range w.placed {
		fn(l)
	}
	return l, nil
}

// CreateTransient spawns a locked, ownerless lock used to capture a code.
func (w *World) CreateTransient(pos Position) (*Lock, error) {
	l, err := w.spawn("", pos, true)
	if err != nil {
		return nil, err
	}
	l.SetLocked(true)
	return l, nil
}

func (w *World) spawn(owner settings.UserID, pos Position, transient bool) (*Lock, error) {
	if w.maxEntities > 0 && len(w.locks) >= w.maxEntities {
		return nil, ErrEntityLimit
	}
	l := newLock(Handle(uuid.NewString()), owner, pos)
	l.Transient = transient
	w.locks[l.Handle] = l
	return l, nil
}

// Get returns a live lock.
func (w *World) Get(h Handle) (*Lock, bool) {
	l, ok := w.locks[h]
	return l, ok
}

// Find resolves a full or short handle to a live lock.
func (w *World) Find(ref string) (*Lock, error) {
	ref = strings.ToLower(strings.TrimSpace(ref))
	if ref == "" {
		return nil, ErrNotFound
	}
	if l, ok := w.locks[Handle(ref)]; ok {
		return l, nil
	}
	var match *Lock
	for h, l := range w.locks {
		if strings.HasPrefix(string(h), ref) {
			if match != nil {
				return nil, ErrAmbiguous
			}
			match = l
		}
	}
	if match == nil {
		return nil, ErrNotFound
	}
	return match, nil
}

// Destroy kills the entity. Destroying twice is harmless.
func (w *World) Destroy(h Handle) {
	if l, ok := w.locks[h]; ok {
		l.destroyed = true
		delete(w.locks, h)
	}
}

// IsDestroyed reports whether h no longer refers to a live entity.
func (w *World) IsDestroyed(h Handle) bool {
	_, ok := w.locks[h]
	return !ok
}

// OwnedBy lists the non-transient locks owned by id, oldest handle first.
func (w *World) OwnedBy(id settings.UserID) []*Lock {
	var out []*Lock
	for _, l := range w.locks {
		if !l.Transient && l.Owner == id {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Count returns the number of live entities.
func (w *World) Count() int {
	return len(w.locks)
}

// CanBypass reports whether id may pass l without typing a code. Unlocked
// locks are open to everyone.
func (w *World) CanBypass(id settings.UserID, l *Lock) bool {
	if !l.IsLocked() {
		return true
	}
	for _, hook := range w.unlockHooks {
		hook(id, l)
	}
	return l.Authorized(id)
}

// TryUnlock lets id through l if already authorized, otherwise checks code
// against the lock. An empty code only tests authorization.
func (w *World) TryUnlock(id settings.UserID, l *Lock, code string) bool {
	if w.CanBypass(id, l) {
		return true
	}
	if code == "" {
		return false
	}
	return l.EnterCode(id, code)
}
