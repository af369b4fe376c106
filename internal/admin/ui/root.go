package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/notepid/autocode/internal/admin/app"
)

type screen int

const (
	screenHome screen = iota
	screenLockouts
	screenUsers
)

type rootModel struct {
	api   LockoutAPI
	users Accounts

	width  int
	height int

	active screen

	homeList list.Model
	err      error

	lockouts *lockoutsModel
	accounts *usersModel
}

type menuItem struct {
	title string
	desc  string
	to    screen
}

func (m menuItem) Title() string       { return m.title }
func (m menuItem) Description() string { return m.desc }
func (m menuItem) FilterValue() string { return m.title }

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// NewRootModel builds the admin console for a.
func NewRootModel(a *app.App) tea.Model {
	return newRootModel(a.API, a.Users)
}

func newRootModel(api LockoutAPI, users Accounts) *rootModel {
	items := []list.Item{
		menuItem{title: "Auto-codes", desc: "Code status and lockouts of every player", to: screenLockouts},
		menuItem{title: "Users", desc: "Manage accounts and security levels", to: screenUsers},
		menuItem{title: "Quit", desc: "Exit", to: -1},
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Auto-code Admin"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)

	return &rootModel{
		api:      api,
		users:    users,
		active:   screenHome,
		homeList: l,
	}
}

func (m *rootModel) Init() tea.Cmd {
	return nil
}

func (m *rootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.homeList.SetSize(msg.Width, msg.Height-2)
		if m.lockouts != nil {
			m.lockouts.SetSize(msg.Width, msg.Height)
		}
		if m.accounts != nil {
			m.accounts.SetSize(msg.Width, msg.Height)
		}
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
	}

	switch m.active {
	case screenHome:
		return m.updateHome(msg)
	case screenLockouts:
		if m.lockouts == nil {
			return m, m.activate(screenLockouts)
		}
		cmd := m.lockouts.Update(msg)
		if m.lockouts.Done {
			m.active = screenHome
			m.lockouts = nil
		}
		return m, cmd
	case screenUsers:
		if m.accounts == nil {
			return m, m.activate(screenUsers)
		}
		cmd := m.accounts.Update(msg)
		if m.accounts.Done {
			m.active = screenHome
			m.accounts = nil
		}
		return m, cmd
	default:
		return m, nil
	}
}

func (m *rootModel) updateHome(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.homeList, cmd = m.homeList.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		if it, ok := m.homeList.SelectedItem().(menuItem); ok {
			if it.to == -1 {
				return m, tea.Quit
			}
			return m, m.activate(it.to)
		}
	}

	return m, cmd
}

func (m *rootModel) activate(s screen) tea.Cmd {
	m.active = s

	switch s {
	case screenLockouts:
		if m.lockouts == nil {
			m.lockouts = newLockoutsModel(m.api)
			m.lockouts.SetSize(m.width, m.height)
			return m.lockouts.Init()
		}
	case screenUsers:
		if m.accounts == nil {
			m.accounts = newUsersModel(m.users)
			m.accounts.SetSize(m.width, m.height)
		}
	}
	return nil
}

func (m *rootModel) View() string {
	if m.err != nil {
		return errStyle.Render("Error: ") + m.err.Error()
	}

	switch m.active {
	case screenHome:
		return m.homeList.View()
	case screenLockouts:
		if m.lockouts == nil {
			return "Loading auto-codes..."
		}
		return m.lockouts.View()
	case screenUsers:
		if m.accounts == nil {
			return "Loading users..."
		}
		return m.accounts.View()
	default:
		return titleStyle.Render("Unknown screen") + "\n" + fmt.Sprint(m.active)
	}
}
