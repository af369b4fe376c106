package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/notepid/autocode/internal/user"
)

// Accounts is the account store the users screen edits. *user.Repo
// satisfies it.
type Accounts interface {
	List() ([]*user.User, error)
	GetByID(id int) (*user.User, error)
	Exists(username string) bool
	Create(username, password string) (*user.User, error)
	UpdateSecurityLevel(id int, level int) error
	UpdatePassword(id int, newPassword string) error
}

type usersModel struct {
	users Accounts

	width  int
	height int

	Done bool

	state usersState

	list list.Model
	err  error

	selected *user.User

	form *huh.Form

	createUsername string
	createPassword string
	createSave     bool

	newPassword string
	pwConfirm   string
	pwSave      bool

	levelChoice string
	customLevel string
	levelSave   bool
}

type usersState int

const (
	usersStateList usersState = iota
	usersStateDetail
	usersStateCreate
	usersStateResetPassword
	usersStateSetLevel
)

type userItem struct {
	id    int
	title string
	desc  string
	kind  string
}

func (i userItem) Title() string       { return i.title }
func (i userItem) Description() string { return i.desc }
func (i userItem) FilterValue() string { return i.title }

func newUsersModel(users Accounts) *usersModel {
	m := &usersModel{users: users, state: usersStateList}
	m.reloadList()
	return m
}

func (m *usersModel) SetSize(w, h int) {
	m.width, m.height = w, h
	m.list.SetSize(w, h-2)
}

func (m *usersModel) Update(msg tea.Msg) tea.Cmd {
	if m.err != nil {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			if msg.String() == "esc" || msg.String() == "q" || msg.String() == "enter" {
				m.err = nil
				m.state = usersStateList
				m.form = nil
				m.selected = nil
				m.reloadList()
			}
		}
		return nil
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q":
			if m.state == usersStateList {
				m.Done = true
				return nil
			}
		case "esc":
			m.back()
			return nil
		}
	}

	switch m.state {
	case usersStateList:
		return m.updateList(msg)
	case usersStateDetail:
		return m.updateDetail(msg)
	case usersStateCreate, usersStateResetPassword, usersStateSetLevel:
		return m.updateForm(msg)
	default:
		return nil
	}
}

func (m *usersModel) updateList(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		it, ok := m.list.SelectedItem().(userItem)
		if !ok {
			return cmd
		}
		if it.kind == "create" {
			return m.startCreate()
		}

		u, err := m.users.GetByID(it.id)
		if err != nil {
			m.err = err
			return nil
		}
		m.selected = u
		m.state = usersStateDetail
		m.list = newActionList(m.width, m.height)
		return nil
	}

	return cmd
}

func (m *usersModel) updateDetail(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" {
		it, ok := m.list.SelectedItem().(userItem)
		if !ok {
			return cmd
		}
		switch it.kind {
		case "set_level":
			return m.startSetLevel()
		case "reset_password":
			return m.startResetPassword()
		case "back":
			m.back()
		}
		return nil
	}

	return cmd
}

func (m *usersModel) updateForm(msg tea.Msg) tea.Cmd {
	if m.form == nil {
		m.err = fmt.Errorf("internal error: form not initialized")
		return nil
	}
	updated, cmd := m.form.Update(msg)
	f, ok := updated.(*huh.Form)
	if !ok {
		m.err = fmt.Errorf("internal error: unexpected form model type")
		return nil
	}
	m.form = f
	if m.form.State != huh.StateCompleted {
		return cmd
	}

	switch m.state {
	case usersStateCreate:
		if m.createSave {
			if m.users.Exists(m.createUsername) {
				m.err = fmt.Errorf("username already exists")
				return nil
			}
			if _, err := m.users.Create(m.createUsername, m.createPassword); err != nil {
				m.err = err
				return nil
			}
		}
		m.form = nil
		m.state = usersStateList
		m.reloadList()
		return nil
	case usersStateResetPassword:
		if m.pwSave && m.selected != nil {
			if err := m.users.UpdatePassword(m.selected.ID, m.newPassword); err != nil {
				m.err = err
				return nil
			}
		}
	case usersStateSetLevel:
		if m.levelSave && m.selected != nil {
			choice := m.levelChoice
			if choice == "custom" {
				choice = m.customLevel
			}
			lvl, err := parseLevelChoice(choice)
			if err != nil {
				m.err = err
				return nil
			}
			if err := m.users.UpdateSecurityLevel(m.selected.ID, lvl); err != nil {
				m.err = err
				return nil
			}
		}
	}
	m.refreshSelected()
	m.form = nil
	m.state = usersStateDetail
	m.list = newActionList(m.width, m.height)
	return nil
}

func (m *usersModel) View() string {
	if m.err != nil {
		return fmt.Sprintf("Users error: %v\n\nPress Enter/Esc to go back.", m.err)
	}

	switch m.state {
	case usersStateList:
		m.list.Title = "Users"
		return m.list.View() + "\n(q to go back, enter to select)"
	case usersStateDetail:
		if m.selected == nil {
			return "No user selected\n\n(esc to go back)"
		}
		header := titleStyle.Render(fmt.Sprintf("User: %s (#%d, level %d)", m.selected.Username, m.selected.ID, m.selected.SecurityLevel))
		meta := fmt.Sprintf("\nTotal logins: %d\n\n", m.selected.TotalLogins)
		m.list.Title = "Actions"
		return header + meta + m.list.View() + "\n(esc to go back)"
	default:
		return m.form.View() + "\n\n(esc to go back)"
	}
}

func (m *usersModel) reloadList() {
	users, err := m.users.List()
	if err != nil {
		m.err = err
		return
	}

	items := make([]list.Item, 0, len(users)+1)
	items = append(items, userItem{title: "+ Create new user", desc: "Add a new account", kind: "create"})
	for _, u := range users {
		desc := fmt.Sprintf("#%d • level %d • logins %d", u.ID, u.SecurityLevel, u.TotalLogins)
		items = append(items, userItem{id: u.ID, title: u.Username, desc: desc, kind: "user"})
	}

	m.list = list.New(items, list.NewDefaultDelegate(), m.width, m.height-2)
	m.list.SetShowStatusBar(false)
	m.list.SetFilteringEnabled(true)
	m.list.SetShowHelp(true)
	m.list.Title = "Users"
}

func newActionList(w, h int) list.Model {
	items := []list.Item{
		userItem{title: "Set security level", desc: "Controls auto-code and admin permissions", kind: "set_level"},
		userItem{title: "Reset password", desc: "Set a new password", kind: "reset_password"},
		userItem{title: "Back", desc: "Return to users list", kind: "back"},
	}
	l := list.New(items, list.NewDefaultDelegate(), w, h-8)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(true)
	return l
}

func (m *usersModel) startCreate() tea.Cmd {
	m.state = usersStateCreate
	m.createUsername = ""
	m.createPassword = ""
	m.createSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Username").Value(&m.createUsername).Validate(user.ValidateUsername),
			huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&m.createPassword).Validate(user.ValidatePassword),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Create user?").Value(&m.createSave),
		),
	)
	return m.form.Init()
}

func (m *usersModel) startResetPassword() tea.Cmd {
	m.state = usersStateResetPassword
	m.newPassword = ""
	m.pwConfirm = ""
	m.pwSave = true
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("New password").EchoMode(huh.EchoModePassword).Value(&m.newPassword).Validate(user.ValidatePassword),
			huh.NewInput().Title("Confirm password").EchoMode(huh.EchoModePassword).Value(&m.pwConfirm).Validate(func(s string) error {
				if s != m.newPassword {
					return fmt.Errorf("passwords do not match")
				}
				return nil
			}),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Reset password?").Value(&m.pwSave),
		),
	)
	return m.form.Init()
}

func (m *usersModel) startSetLevel() tea.Cmd {
	m.state = usersStateSetLevel
	m.levelChoice = levelName(m.selected.SecurityLevel)
	m.customLevel = strconv.Itoa(m.selected.SecurityLevel)
	m.levelSave = true
	options := []huh.Option[string]{
		huh.NewOption("New (10)", "new"),
		huh.NewOption("Validated (20)", "validated"),
		huh.NewOption("Regular (30)", "regular"),
		huh.NewOption("Trusted (50)", "trusted"),
		huh.NewOption("Moderator (90)", "moderator"),
		huh.NewOption("Admin (100)", "admin"),
		huh.NewOption("Custom (type number)", "custom"),
	}

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Security level").Options(options...).Value(&m.levelChoice),
			huh.NewInput().Title("Custom level (only if selected)").Value(&m.customLevel).Validate(func(s string) error {
				if m.levelChoice != "custom" {
					return nil
				}
				if _, err := strconv.Atoi(strings.TrimSpace(s)); err != nil {
					return fmt.Errorf("must be a number")
				}
				return nil
			}),
		),
		huh.NewGroup(
			huh.NewConfirm().Title("Save level?").Value(&m.levelSave),
		),
	)
	return m.form.Init()
}

func (m *usersModel) back() {
	switch m.state {
	case usersStateList:
		m.Done = true
	case usersStateDetail:
		m.state = usersStateList
		m.selected = nil
		m.form = nil
		m.reloadList()
	default:
		m.state = usersStateDetail
		m.form = nil
		m.list = newActionList(m.width, m.height)
	}
}

func (m *usersModel) refreshSelected() {
	if m.selected == nil {
		return
	}
	u, err := m.users.GetByID(m.selected.ID)
	if err == nil {
		m.selected = u
	}
}

func levelName(level int) string {
	switch level {
	case user.LevelNew:
		return "new"
	case user.LevelValidated:
		return "validated"
	case user.LevelRegular:
		return "regular"
	case user.LevelTrusted:
		return "trusted"
	case user.LevelModerator:
		return "moderator"
	case user.LevelAdmin:
		return "admin"
	default:
		return "custom"
	}
}

func parseLevelChoice(choice string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(choice))
	switch s {
	case "new":
		return user.LevelNew, nil
	case "validated":
		return user.LevelValidated, nil
	case "regular":
		return user.LevelRegular, nil
	case "trusted":
		return user.LevelTrusted, nil
	case "moderator":
		return user.LevelModerator, nil
	case "admin":
		return user.LevelAdmin, nil
	default:
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid level")
		}
		return v, nil
	}
}
