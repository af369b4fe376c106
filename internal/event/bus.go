// Package event carries host events between the world and the subsystems
// that react to them, and routes text notices to connected users.
package event

import (
	"sort"
	"sync"

	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/settings"
)

// Hook names a host event.
type Hook string

const (
	// HookCodeEntered fires when a user types a code into a lock prompt.
	HookCodeEntered Hook = "code_entered"
	// HookEntityPlaced fires when a user places a new lock.
	HookEntityPlaced Hook = "entity_placed"
)

// CodeEntered is the payload of HookCodeEntered.
type CodeEntered struct {
	Lock lock.Handle
	User settings.UserID
	Code string
}

// EntityPlaced is the payload of HookEntityPlaced.
type EntityPlaced struct {
	Lock  *lock.Lock
	Owner settings.UserID
}

// Handler receives an event payload.
type Handler func(payload any)

// Bus dispatches hooks to named subscribers. Subscribers are keyed so a
// subsystem can withdraw its subscription without holding a token.
type Bus struct {
	mu       sync.RWMutex
	handlers map[Hook]map[string]Handler
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[Hook]map[string]Handler)}
}

// Subscribe registers h under name for hook, replacing any previous handler
// with the same name.
func (b *Bus) Subscribe(hook Hook, name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.handlers[hook]
	if !ok {
		subs = make(map[string]Handler)
		b.handlers[hook] = subs
	}
	subs[name] = h
}

// Unsubscribe removes the handler registered under name for hook.
func (b *Bus) Unsubscribe(hook Hook, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.handlers[hook]
	if !ok {
		return
	}
	delete(subs, name)
	if len(subs) == 0 {
		delete(b.handlers, hook)
	}
}

// Subscribed reports whether name currently listens to hook.
func (b *Bus) Subscribed(hook Hook, name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.handlers[hook][name]
	return ok
}

// Emit delivers payload to every handler of hook in name order and returns
// how many were called. Handlers may subscribe or unsubscribe while running.
func (b *Bus) Emit(hook Hook, payload any) int {
	b.mu.RLock()
	names := make([]string, 0, len(b.handlers[hook]))
	for name := range b.handlers[hook] {
		names = append(names, name)
	}
	subs := make([]Handler, 0, len(names))
	sort.Strings(names)
	for _, name := range names {
		subs = append(subs, b.handlers[hook][name])
	}
	b.mu.RUnlock()

	for _, h := range subs {
		h(payload)
	}
	return len(subs)
}
