package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/notepid/autocode/internal/admin/app"
	"github.com/notepid/autocode/internal/admin/ui"
)

var adminURL string

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Open the admin console",
	Long: `Opens a terminal UI for managing accounts and auto-code lockouts.

Accounts are edited in the database directly. Lockouts are reset through the
running server's admin API, so the server must be up for that screen.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, cleanup, err := app.New(configPath, adminURL)
		if err != nil {
			return err
		}
		defer cleanup()

		p := tea.NewProgram(ui.NewRootModel(a), tea.WithAltScreen())
		_, err = p.Run()
		return err
	},
}

func init() {
	adminCmd.Flags().StringVar(&adminURL, "url", "", "admin API base URL (default http://127.0.0.1:<admin_port>)")
}
