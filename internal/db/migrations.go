package db

type migration struct {
	name string
	sql  string
}

// Columns added after the first release must be nullable or carry a
// default so older rows keep loading.
var migrations = []migration{
	{
		name: "create users table",
		sql: `
			CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT UNIQUE NOT NULL COLLATE NOCASE,
				password_hash TEXT NOT NULL,
				security_level INTEGER DEFAULT 10,
				total_logins INTEGER DEFAULT 0,
				last_login_at DATETIME,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
	{
		name: "create autocode settings table",
		sql: `
			CREATE TABLE IF NOT EXISTS autocode_settings (
				user_id TEXT PRIMARY KEY,
				code TEXT,
				guest_code TEXT,
				quiet_mode BOOLEAN DEFAULT 0,
				last_set REAL DEFAULT 0,
				times_set_in_window INTEGER DEFAULT 0,
				locked_out_until REAL DEFAULT 0,
				last_locked_out REAL DEFAULT 0,
				locked_out_times INTEGER DEFAULT 0,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`,
	},
}
