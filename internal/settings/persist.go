package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Persister reads and writes the whole settings blob.
type Persister interface {
	Load(ctx context.Context) (map[UserID]Settings, error)
	Save(ctx context.Context, data map[UserID]Settings) error
}

// fileData is the on-disk JSON layout.
type fileData struct {
	PlayerSettings map[UserID]Settings `json:"playerSettings"`
}

// FileStore persists settings as a single JSON document.
type FileStore struct {
	path string
}

// NewFileStore creates a JSON file persister at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the data file. A missing file is an empty store.
func (f *FileStore) Load(ctx context.Context) (map[UserID]Settings, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[UserID]Settings{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings %s: %w", f.path, err)
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", f.path, err)
	}
	if data.PlayerSettings == nil {
		data.PlayerSettings = map[UserID]Settings{}
	}
	return data.PlayerSettings, nil
}

// Save writes the data file atomically via a temp file and rename.
func (f *FileStore) Save(ctx context.Context, data map[UserID]Settings) error {
	raw, err := json.MarshalIndent(fileData{PlayerSettings: data}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0644); err != nil {
		return fmt.Errorf("write settings %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("replace settings %s: %w", f.path, err)
	}
	return nil
}

// SQLRepo persists settings in the autocode_settings table.
type SQLRepo struct {
	db *sql.DB
}

// NewSQLRepo creates a settings repository over an open database.
func NewSQLRepo(db *sql.DB) *SQLRepo {
	return &SQLRepo{db: db}
}

// Load reads every row. Columns that are NULL load as zero values.
func (r *SQLRepo) Load(ctx context.Context) (map[UserID]Settings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, code, guest_code, quiet_mode,
		       last_set, times_set_in_window, locked_out_until,
		       last_locked_out, locked_out_times
		FROM autocode_settings
	`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := make(map[UserID]Settings)
	for rows.Next() {
		var (
			id                      string
			code, guest             sql.NullString
			quiet                   sql.NullBool
			lastSet, until, lastOut sql.NullFloat64
			times, strikes          sql.NullInt64
		)
		if err := rows.Scan(&id, &code, &guest, &quiet, &lastSet, &times, &until, &lastOut, &strikes); err != nil {
			return nil, fmt.Errorf("scan settings: %w", err)
		}

		st := Settings{
			Code:      code.String,
			GuestCode: guest.String,
			QuietMode: quiet.Bool,
		}
		st.RateLimit.LastSetAt = lastSet.Float64
		st.RateLimit.ChangesInWindow = int(times.Int64)
		st.RateLimit.LockedOutUntil = until.Float64
		st.RateLimit.LastLockedOutAt = lastOut.Float64
		st.RateLimit.LockoutStrikes = int(strikes.Int64)
		out[UserID(id)] = st
	}
	return out, rows.Err()
}

// Save upserts every record inside one transaction.
func (r *SQLRepo) Save(ctx context.Context, data map[UserID]Settings) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO autocode_settings (
			user_id, code, guest_code, quiet_mode,
			last_set, times_set_in_window, locked_out_until,
			last_locked_out, locked_out_times, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			code = excluded.code,
			guest_code = excluded.guest_code,
			quiet_mode = excluded.quiet_mode,
			last_set = excluded.last_set,
			times_set_in_window = excluded.times_set_in_window,
			locked_out_until = excluded.locked_out_until,
			last_locked_out = excluded.last_locked_out,
			locked_out_times = excluded.locked_out_times,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("prepare save: %w", err)
	}
	defer stmt.Close()

	for id, st := range data {
		rl := st.RateLimit
		if _, err := stmt.ExecContext(ctx, string(id), nullable(st.Code), nullable(st.GuestCode), st.QuietMode,
			rl.LastSetAt, rl.ChangesInWindow, rl.LockedOutUntil, rl.LastLockedOutAt, rl.LockoutStrikes); err != nil {
			return fmt.Errorf("save settings for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
