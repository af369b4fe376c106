package user

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/notepid/autocode/internal/settings"
)

var (
	// ErrNotFound is returned when no account matches.
	ErrNotFound = errors.New("user not found")
	// ErrBadPassword is returned when a password does not match.
	ErrBadPassword = errors.New("invalid password")
)

// Repo handles database operations for users.
type Repo struct {
	db *sql.DB
}

// NewRepo creates a new user repository.
func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

// Create inserts a new user with a hashed password.
func (r *Repo) Create(username, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	result, err := r.db.Exec(`
		INSERT INTO users (username, password_hash, security_level)
		VALUES (?, ?, ?)
	`, username, hash, LevelNew)
	if err != nil {
		return nil, fmt.Errorf("create user %s: %w", username, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get user id: %w", err)
	}

	return r.GetByID(int(id))
}

// Authenticate checks username/password and returns the user if valid.
func (r *Repo) Authenticate(username, password string) (*User, error) {
	u, err := r.GetByUsername(username)
	if err != nil {
		return nil, err
	}

	if !CheckPassword(password, u.PasswordHash) {
		return nil, ErrBadPassword
	}

	now := time.Now()
	if _, err := r.db.Exec(`
		UPDATE users SET last_login_at = ?, total_logins = total_logins + 1, updated_at = ?
		WHERE id = ?
	`, now, now, u.ID); err != nil {
		return nil, fmt.Errorf("record login %s: %w", username, err)
	}

	u.LastLoginAt = &now
	u.TotalLogins++

	return u, nil
}

const selectUser = `
	SELECT id, username, password_hash, security_level, total_logins,
	       last_login_at, created_at, updated_at
	FROM users`

func scanUser(row *sql.Row) (*User, error) {
	u := &User{}
	var lastLogin, created, updated sql.NullTime
	if err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &u.SecurityLevel, &u.TotalLogins,
		&lastLogin, &created, &updated,
	); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	if created.Valid {
		u.CreatedAt = created.Time
	}
	if updated.Valid {
		u.UpdatedAt = updated.Time
	}
	return u, nil
}

// GetByID retrieves a user by ID.
func (r *Repo) GetByID(id int) (*User, error) {
	u, err := scanUser(r.db.QueryRow(selectUser+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

// GetByUsername retrieves a user by username (case-insensitive).
func (r *Repo) GetByUsername(username string) (*User, error) {
	u, err := scanUser(r.db.QueryRow(selectUser+" WHERE username = ? COLLATE NOCASE", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", username, err)
	}
	return u, nil
}

// Exists checks if a username is already taken.
func (r *Repo) Exists(username string) bool {
	var count int
	r.db.QueryRow("SELECT COUNT(*) FROM users WHERE username = ? COLLATE NOCASE", username).Scan(&count)
	return count > 0
}

// UpdateSecurityLevel changes a user's security level.
func (r *Repo) UpdateSecurityLevel(id int, level int) error {
	_, err := r.db.Exec(`
		UPDATE users SET security_level = ?, updated_at = ? WHERE id = ?
	`, level, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update security level %d: %w", id, err)
	}
	return nil
}

// UpdatePassword changes a user's password.
func (r *Repo) UpdatePassword(id int, newPassword string) error {
	hash, err := HashPassword(newPassword)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(`
		UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?
	`, hash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("update password %d: %w", id, err)
	}
	return nil
}

// SecurityLevel looks up the level of the account behind a settings id.
func (r *Repo) SecurityLevel(id settings.UserID) (int, bool) {
	n, err := strconv.Atoi(string(id))
	if err != nil {
		return 0, false
	}
	var level int
	if err := r.db.QueryRow("SELECT security_level FROM users WHERE id = ?", n).Scan(&level); err != nil {
		return 0, false
	}
	return level, true
}

// Names maps settings ids to usernames for every account.
func (r *Repo) Names() (map[settings.UserID]string, error) {
	rows, err := r.db.Query("SELECT id, username FROM users")
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	defer rows.Close()

	names := make(map[settings.UserID]string)
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		names[settings.UserID(strconv.Itoa(id))] = name
	}
	return names, rows.Err()
}

// List returns all users, ordered by username.
func (r *Repo) List() ([]*User, error) {
	rows, err := r.db.Query(`
		SELECT id, username, security_level, total_logins, last_login_at
		FROM users ORDER BY username
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u := &User{}
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.ID, &u.Username, &u.SecurityLevel, &u.TotalLogins, &lastLogin); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if lastLogin.Valid {
			u.LastLoginAt = &lastLogin.Time
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
