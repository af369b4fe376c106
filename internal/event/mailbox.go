package event

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/settings"
)

// Message is a line of text addressed to one user.
type Message struct {
	To   settings.UserID
	Text string
}

// Inbox receives messages for a connected user.
type Inbox struct {
	User settings.UserID
	Name string
	Ch   chan Message
}

// OnlineUser describes a connected user.
type OnlineUser struct {
	User settings.UserID
	Name string
}

// Mailbox routes notices to users' connected sessions.
type Mailbox struct {
	mu      sync.RWMutex
	inboxes map[settings.UserID]*Inbox
	log     *zap.Logger
}

// NewMailbox creates an empty mailbox.
func NewMailbox(logger *zap.Logger) *Mailbox {
	return &Mailbox{
		inboxes: make(map[settings.UserID]*Inbox),
		log:     logger.Named("mailbox"),
	}
}

// Register opens an inbox for id. A second session for the same user
// replaces the first.
func (m *Mailbox) Register(id settings.UserID, name string) *Inbox {
	m.mu.Lock()
	defer m.mu.Unlock()

	in := &Inbox{User: id, Name: name, Ch: make(chan Message, 32)}
	m.inboxes[id] = in
	return in
}

// Unregister closes id's inbox if it is still in.
func (m *Mailbox) Unregister(id settings.UserID, in *Inbox) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Don't close the channel: senders may hold a snapshot.
	if cur, ok := m.inboxes[id]; ok && cur == in {
		delete(m.inboxes, id)
	}
}

// Send queues text for id. Offline users and full inboxes are errors.
func (m *Mailbox) Send(id settings.UserID, text string) error {
	m.mu.RLock()
	in, ok := m.inboxes[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("user %s not online", id)
	}

	select {
	case in.Ch <- Message{To: id, Text: text}:
		return nil
	default:
		m.log.Warn("dropped message, inbox full", zap.String("user", string(id)))
		return fmt.Errorf("user %s inbox full", id)
	}
}

// Online lists connected users sorted by name.
func (m *Mailbox) Online() []OnlineUser {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]OnlineUser, 0, len(m.inboxes))
	for _, in := range m.inboxes {
		users = append(users, OnlineUser{User: in.User, Name: in.Name})
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users
}

// IsOnline reports whether id has an inbox.
func (m *Mailbox) IsOnline(id settings.UserID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.inboxes[id]
	return ok
}
