package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/autocode/internal/command"
	"github.com/notepid/autocode/internal/server"
	"github.com/notepid/autocode/internal/settings"
)

// LockoutAPI is the part of the admin API the lockouts screen uses.
// *app.Client satisfies it.
type LockoutAPI interface {
	Statuses(ctx context.Context) ([]server.UserStatus, error)
	ResetLockout(ctx context.Context, id settings.UserID) (int, error)
	ResetAllLockouts(ctx context.Context) (int, error)
}

const apiTimeout = 10 * time.Second

var (
	lockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

type lockoutsState int

const (
	lockoutsStateList lockoutsState = iota
	lockoutsStateConfirm
)

type statusesMsg struct {
	statuses []server.UserStatus
	err      error
}

type resetDoneMsg struct {
	text string
	err  error
}

type statusItem struct {
	status server.UserStatus
}

func (i statusItem) Title() string {
	name := i.status.Name
	if name == "" {
		name = "#" + string(i.status.ID)
	}
	if i.status.Online {
		name += " " + okStyle.Render("●")
	}
	return name
}

func (i statusItem) Description() string {
	s := i.status
	parts := []string{
		"code " + mark(s.HasCode),
		"guest " + mark(s.HasGuestCode),
	}
	if s.QuietMode {
		parts = append(parts, "quiet")
	}
	if s.LockedOutFor > 0 {
		wait := command.FormatWait(time.Duration(s.LockedOutFor * float64(time.Second)))
		parts = append(parts, lockedStyle.Render("locked out "+wait))
	}
	if s.Strikes > 0 {
		parts = append(parts, fmt.Sprintf("strikes %d", s.Strikes))
	}
	return strings.Join(parts, " • ")
}

func (i statusItem) FilterValue() string { return i.status.Name }

func mark(b bool) string {
	if b {
		return "✓"
	}
	return dimStyle.Render("✗")
}

type lockoutsModel struct {
	api LockoutAPI

	width  int
	height int

	Done bool

	state  lockoutsState
	list   list.Model
	err    error
	notice string

	form    *huh.Form
	target  *server.UserStatus // nil resets everyone
	confirm bool
}

func newLockoutsModel(api LockoutAPI) *lockoutsModel {
	m := &lockoutsModel{api: api}
	m.list = newStatusList(nil, 0, 0)
	return m
}

func newStatusList(statuses []server.UserStatus, w, h int) list.Model {
	items := make([]list.Item, 0, len(statuses))
	for _, s := range statuses {
		items = append(items, statusItem{status: s})
	}
	l := list.New(items, list.NewDefaultDelegate(), w, h-3)
	l.Title = "Auto-codes"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(true)
	return l
}

func (m *lockoutsModel) Init() tea.Cmd {
	return m.load()
}

func (m *lockoutsModel) load() tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		statuses, err := api.Statuses(ctx)
		return statusesMsg{statuses: statuses, err: err}
	}
}

func (m *lockoutsModel) reset(target *server.UserStatus) tea.Cmd {
	api := m.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), apiTimeout)
		defer cancel()
		if target == nil {
			n, err := api.ResetAllLockouts(ctx)
			return resetDoneMsg{text: fmt.Sprintf("Reset lockouts for %d users.", n), err: err}
		}
		n, err := api.ResetLockout(ctx, target.ID)
		if n == 0 {
			return resetDoneMsg{text: fmt.Sprintf("%s has no lockout to reset.", target.Name), err: err}
		}
		return resetDoneMsg{text: fmt.Sprintf("Reset lockout for %s.", target.Name), err: err}
	}
}

func (m *lockoutsModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-3)
}

func (m *lockoutsModel) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case statusesMsg:
		if msg.err != nil {
			m.err = msg.err
			return nil
		}
		m.err = nil
		m.list = newStatusList(msg.statuses, m.width, m.height)
		return nil
	case resetDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			return nil
		}
		m.notice = msg.text
		return m.load()
	}

	if m.err != nil {
		if key, ok := msg.(tea.KeyMsg); ok {
			switch key.String() {
			case "esc", "q":
				m.Done = true
			case "enter", "r":
				m.err = nil
				return m.load()
			}
		}
		return nil
	}

	switch m.state {
	case lockoutsStateConfirm:
		return m.updateConfirm(msg)
	default:
		return m.updateList(msg)
	}
}

func (m *lockoutsModel) updateList(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		switch key.String() {
		case "q", "esc":
			m.Done = true
			return nil
		case "r":
			m.notice = ""
			return m.load()
		case "a":
			return m.startConfirm(nil)
		case "enter":
			if it, ok := m.list.SelectedItem().(statusItem); ok {
				s := it.status
				return m.startConfirm(&s)
			}
			return nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return cmd
}

func (m *lockoutsModel) startConfirm(target *server.UserStatus) tea.Cmd {
	m.state = lockoutsStateConfirm
	m.target = target
	m.confirm = false

	title := "Reset lockouts for ALL users?"
	if target != nil {
		title = fmt.Sprintf("Reset lockout for %s?", target.Name)
	}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().Title(title).Value(&m.confirm),
		),
	)
	return m.form.Init()
}

func (m *lockoutsModel) updateConfirm(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.state = lockoutsStateList
		m.form = nil
		return nil
	}

	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f

	switch m.form.State {
	case huh.StateCompleted:
		m.state = lockoutsStateList
		m.form = nil
		if m.confirm {
			return m.reset(m.target)
		}
		return nil
	case huh.StateAborted:
		m.state = lockoutsStateList
		m.form = nil
		return nil
	}
	return cmd
}

func (m *lockoutsModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Admin API error: %v\n\nPress Enter to retry, Esc to go back.", m.err)
	}
	if m.state == lockoutsStateConfirm && m.form != nil {
		return m.form.View() + "\n\n(esc to cancel)"
	}

	footer := "(enter reset selected • a reset all • r refresh • q back)"
	if m.notice != "" {
		footer = okStyle.Render(m.notice) + "\n" + footer
	}
	return m.list.View() + "\n" + footer
}
