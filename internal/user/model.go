package user

import (
	"strconv"
	"time"

	"github.com/notepid/autocode/internal/settings"
)

// User represents a player account.
type User struct {
	ID            int
	Username      string
	PasswordHash  string
	SecurityLevel int
	TotalLogins   int
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// SettingsID is the key the user's auto-code settings are stored under.
func (u *User) SettingsID() settings.UserID {
	return settings.UserID(strconv.Itoa(u.ID))
}

// SecurityLevel constants.
const (
	LevelNew       = 10  // New user (just registered)
	LevelValidated = 20  // Validated user
	LevelRegular   = 30  // Regular user
	LevelTrusted   = 50  // Trusted user
	LevelModerator = 90  // Moderator
	LevelAdmin     = 100 // Full access
)
