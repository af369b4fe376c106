package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/notepid/autocode/internal/config"
	"github.com/notepid/autocode/internal/db"
	"github.com/notepid/autocode/internal/user"
)

// App is what the admin console works on: the account database and the
// running server's admin API.
type App struct {
	ConfigPath string
	Config     *config.Config
	DBPath     string
	DB         *db.DB

	Users *user.Repo
	API   *Client

	BusyTimeout time.Duration
}

// New loads the config and opens the database. An empty apiURL points the
// client at the configured admin port on localhost.
func New(configPath, apiURL string) (*App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	database, err := db.Open(cfg.Paths.Database, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}

	if apiURL == "" {
		apiURL = fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.AdminPort)
	}

	a := &App{
		ConfigPath:  configPath,
		Config:      cfg,
		DBPath:      cfg.Paths.Database,
		DB:          database,
		Users:       user.NewRepo(database.DB),
		API:         NewClient(strings.TrimRight(apiURL, "/"), cfg.Server.AdminToken),
		BusyTimeout: 5 * time.Second,
	}

	// Best-effort online use: reduce SQLITE_BUSY failures.
	_, _ = database.Exec("PRAGMA busy_timeout = 5000")

	cleanup := func() {
		_ = database.Close()
	}

	return a, cleanup, nil
}
