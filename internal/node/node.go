package node

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/event"
	"github.com/notepid/autocode/internal/host"
	"github.com/notepid/autocode/internal/lock"
	"github.com/notepid/autocode/internal/settings"
	"github.com/notepid/autocode/internal/terminal"
	"github.com/notepid/autocode/internal/user"
)

const (
	loginAttempts = 3
	maxCodeInput  = 8
)

// World runs commands for a logged-in user. *host.Host satisfies it.
type World interface {
	Exec(ctx context.Context, id settings.UserID, line string) (host.Result, error)
	EnterCode(ctx context.Context, id settings.UserID, h lock.Handle, code string) error
	Mailbox() *event.Mailbox
}

// Accounts logs users in and registers new ones. *user.Repo satisfies it.
type Accounts interface {
	Authenticate(username, password string) (*user.User, error)
	Create(username, password string) (*user.User, error)
	Exists(username string) bool
}

// Node represents a single connection (one user session).
type Node struct {
	ID        int
	Term      *terminal.Terminal
	ConnectAt time.Time
	Remote    string

	world    World
	accounts Accounts
	log      *zap.Logger

	// mu guards the fields set after login.
	mu       sync.RWMutex
	userID   settings.UserID
	userName string

	done     chan struct{}
	doneOnce sync.Once
}

// NewNode creates a new node for the given terminal.
func NewNode(id int, term *terminal.Terminal, remoteAddr string, world World, accounts Accounts, logger *zap.Logger) *Node {
	return &Node{
		ID:        id,
		Term:      term,
		ConnectAt: time.Now(),
		Remote:    remoteAddr,
		world:     world,
		accounts:  accounts,
		log:       logger.Named("node").With(zap.Int("node", id)),
		done:      make(chan struct{}),
	}
}

// User returns the logged-in user, if any.
func (n *Node) User() (settings.UserID, string) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.userID, n.userName
}

// Run executes the session until the user quits, the connection drops or
// ctx is cancelled.
func (n *Node) Run(ctx context.Context, mgr *Manager) {
	defer func() {
		if r := recover(); r != nil {
			n.log.Error("node panic", zap.Any("panic", r))
		}
		n.Disconnect()
		mgr.Remove(n.ID)
		n.log.Info("disconnected", zap.String("remote", n.Remote))
	}()
	stop := context.AfterFunc(ctx, n.Disconnect)
	defer stop()

	n.log.Info("connected", zap.String("remote", n.Remote))

	n.Term.Cls()
	n.Term.SendLn(n.Term.Colorize(terminal.FgBrightCyan, "Auto-code lock server"))
	n.Term.SendLn(n.Term.Colorize(terminal.FgDarkGray, fmt.Sprintf("Node %d", n.ID)))
	n.Term.SendLn("")

	u, err := n.login()
	if err != nil {
		return
	}

	id := u.SettingsID()
	n.mu.Lock()
	n.userID, n.userName = id, u.Username
	n.mu.Unlock()
	n.log.Info("logged in", zap.String("user", string(id)), zap.String("name", u.Username))

	mail := n.world.Mailbox()
	inbox := mail.Register(id, u.Username)
	defer mail.Unregister(id, inbox)
	go n.deliver(inbox)

	n.Term.SendLn(fmt.Sprintf("Welcome, %s. Type help for commands.", user.SanitizeForDisplay(u.Username)))
	n.commandLoop(ctx, id, u.Username)
}

func (n *Node) login() (*user.User, error) {
	for attempt := 0; attempt < loginAttempts; attempt++ {
		name, err := n.Term.Ask("Username (or NEW): ", user.MaxUsernameLen)
		if err != nil {
			return nil, err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if strings.EqualFold(name, "new") {
			u, err := n.register()
			if err != nil {
				return nil, err
			}
			if u != nil {
				return u, nil
			}
			continue
		}

		pw, err := n.Term.GetPassword("Password: ", user.MaxPasswordLen)
		if err != nil {
			return nil, err
		}
		u, err := n.accounts.Authenticate(name, pw)
		switch {
		case err == nil:
			return u, nil
		case errors.Is(err, user.ErrNotFound), errors.Is(err, user.ErrBadPassword):
			n.Term.SendLn(n.Term.Colorize(terminal.FgBrightRed, "Invalid login."))
		default:
			n.log.Error("authenticate", zap.String("name", name), zap.Error(err))
			n.Term.SendLn("Login failed. Try again later.")
		}
	}
	n.Term.SendLn("Too many attempts. Goodbye.")
	return nil, errors.New("too many login attempts")
}

// register creates an account. A nil user with a nil error means the user
// should be asked to log in again.
func (n *Node) register() (*user.User, error) {
	name, err := n.Term.Ask("Choose a username: ", user.MaxUsernameLen)
	if err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if err := user.ValidateUsername(name); err != nil {
		n.Term.SendLn(err.Error())
		return nil, nil
	}
	if n.accounts.Exists(name) {
		n.Term.SendLn("That name is taken.")
		return nil, nil
	}

	pw, err := n.Term.GetPassword("Choose a password: ", user.MaxPasswordLen)
	if err != nil {
		return nil, err
	}
	if err := user.ValidatePassword(pw); err != nil {
		n.Term.SendLn(err.Error())
		return nil, nil
	}
	again, err := n.Term.GetPassword("Repeat password: ", user.MaxPasswordLen)
	if err != nil {
		return nil, err
	}
	if pw != again {
		n.Term.SendLn("Passwords do not match.")
		return nil, nil
	}

	u, err := n.accounts.Create(name, pw)
	if err != nil {
		n.log.Error("register", zap.String("name", name), zap.Error(err))
		n.Term.SendLn("Could not create the account.")
		return nil, nil
	}
	n.log.Info("registered", zap.String("name", name))
	return u, nil
}

func (n *Node) commandLoop(ctx context.Context, id settings.UserID, name string) {
	prompt := n.Term.Colorize(terminal.FgBrightGreen, name+"> ")
	for {
		line, err := n.Term.Ask(prompt, user.MaxLineLen)
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		res, err := n.world.Exec(ctx, id, line)
		if err != nil {
			n.log.Warn("command failed", zap.Error(err))
			n.Term.SendLn("The server is shutting down.")
			return
		}
		for _, l := range res.Lines {
			n.Term.SendLn(l)
		}
		if res.Quit {
			n.Term.SendLn("Goodbye!")
			return
		}
		if res.Capture != "" {
			if err := n.captureCode(ctx, id, res.Capture); err != nil {
				return
			}
		}
	}
}

// captureCode reads the code typed into a capture lock. An empty entry
// leaves the session to time out.
func (n *Node) captureCode(ctx context.Context, id settings.UserID, h lock.Handle) error {
	code, err := n.Term.GetPassword(fmt.Sprintf("Lock %s code: ", h.Short()), maxCodeInput)
	if err != nil {
		return err
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	return n.world.EnterCode(ctx, id, h, code)
}

func (n *Node) deliver(in *event.Inbox) {
	for {
		select {
		case <-n.done:
			return
		case msg := <-in.Ch:
			if err := n.Term.Notify(n.Term.Colorize(terminal.FgYellow, msg.Text)); err != nil {
				return
			}
		}
	}
}

// Disconnect closes the node connection.
func (n *Node) Disconnect() {
	n.doneOnce.Do(func() {
		close(n.done)
		n.Term.Close()
	})
}
