package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/notepid/autocode/internal/clock"
	"github.com/notepid/autocode/internal/config"
	"github.com/notepid/autocode/internal/db"
	"github.com/notepid/autocode/internal/event"
	"github.com/notepid/autocode/internal/host"
	"github.com/notepid/autocode/internal/node"
	"github.com/notepid/autocode/internal/scripting"
	"github.com/notepid/autocode/internal/server"
	"github.com/notepid/autocode/internal/settings"
	"github.com/notepid/autocode/internal/terminal"
	"github.com/notepid/autocode/internal/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the telnet server and the admin API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err = buildLogger(cfg.Log.Level)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	database, err := db.Open(cfg.Paths.Database, logger)
	if err != nil {
		return err
	}
	defer database.Close()
	logger.Info("database opened", zap.String("path", cfg.Paths.Database))

	users := user.NewRepo(database.DB)
	persister, err := newPersister(cfg, database)
	if err != nil {
		return err
	}

	mail := event.NewMailbox(logger)
	hooks, err := scripting.Load(cfg.Paths.HooksScript, mail.IsOnline, clock.System{}, logger)
	if err != nil {
		return err
	}
	defer hooks.Close()

	h, err := host.New(host.Options{
		Config:    cfg,
		Users:     users,
		Persister: persister,
		Blocks:    hooks,
		Mailbox:   mail,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := h.Load(ctx); err != nil {
		return err
	}

	nodes := node.NewManager(cfg.Server.MaxNodes)
	telnet := server.NewListener(cfg.Server.TelnetPort, func(ctx context.Context, tc *server.TelnetConn) {
		if err := tc.Negotiate(); err != nil {
			logger.Warn("telnet negotiation failed", zap.Stringer("remote", tc.RemoteAddr()), zap.Error(err))
			tc.Close()
			return
		}

		prof := tc.Profile()
		term := terminal.New(tc, prof.Width, prof.Height, prof.ANSI)
		term.SetANSISource(tc.ANSI)
		term.SetEchoControl(tc.SetEcho)

		id, ok := nodes.Acquire()
		if !ok {
			term.SendLn("Sorry, all nodes are busy. Please try again later.")
			term.Close()
			return
		}
		n := node.NewNode(id, term, tc.RemoteAddr().String(), h, users, logger)
		nodes.Add(n)
		n.Run(ctx, nodes)
	}, logger)

	if cfg.Server.AdminToken == "" {
		logger.Warn("admin api has no token, listening on loopback only")
	}
	admin := &http.Server{
		Addr:              server.ListenAddr(cfg.Server.AdminPort, cfg.Server.AdminToken),
		Handler:           server.NewAdminAPI(h, cfg.Server.AdminToken, logger).Router(),
		ReadHeaderTimeout: 2 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return h.Run(gctx) })
	g.Go(func() error { return telnet.ListenAndServe(gctx) })
	g.Go(func() error {
		logger.Info("admin api listening", zap.String("addr", admin.Addr))
		if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("admin api: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		nodes.Broadcast("Server is shutting down. Goodbye!")
		nodes.DisconnectAll()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return admin.Shutdown(shutdownCtx)
	})

	fmt.Printf("\nautocode is running\n")
	fmt.Printf("  Telnet: port %d\n", cfg.Server.TelnetPort)
	fmt.Printf("  Admin:  port %d\n", cfg.Server.AdminPort)
	fmt.Printf("  Nodes:  0/%d\n", cfg.Server.MaxNodes)
	fmt.Println("\nPress Ctrl+C to shut down.")

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shut down complete")
	return nil
}

func newPersister(cfg *config.Config, database *db.DB) (settings.Persister, error) {
	switch cfg.Storage.Driver {
	case config.DriverSQLite:
		return settings.NewSQLRepo(database.DB), nil
	case config.DriverJSON:
		return settings.NewFileStore(cfg.Paths.DataFile), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
