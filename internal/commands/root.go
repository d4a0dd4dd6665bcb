// Package commands implements the skein command line interface.
package commands

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/ui"
	"github.com/okvist/skein/internal/ui/theme"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	configPath string
	dataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "skein",
	Short: "A dependency-aware task manager for the terminal",
	Long: `skein tracks tasks, the dependencies between them, and the time they take.
A task with unfinished dependencies shows as blocked until the last one
completes. Run without arguments to open the TUI; use the subcommands for
scripting and quick captures.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI()
	},
}

// openApp starts the application for a one-shot CLI invocation.
// Callers own Close.
func openApp() (*app.App, error) {
	return app.New(app.Options{ConfigPath: configPath, DataDir: dataDir})
}

// SetVersion sets the version information
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func runTUI() error {
	application, err := app.New(app.Options{
		ConfigPath: configPath,
		DataDir:    dataDir,
		Exclusive:  true,
	})
	if err != nil {
		return err
	}
	defer application.Close()

	if t, ok := theme.ByName(application.Config.Theme); ok {
		theme.SetTheme(t)
	}

	go sendDueReminders(application)

	p := tea.NewProgram(
		ui.NewRootModel(application),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)

	_, err = p.Run()
	return err
}

// sendDueReminders pings once per launch for tasks that are due within a
// day or went overdue within the last one. Older overdue tasks are loud
// enough in the list already.
func sendDueReminders(a *app.App) {
	if !a.Notifier.IsEnabled() {
		return
	}
	eng, err := a.LoadEngine()
	if err != nil {
		return
	}

	now := time.Now()
	for _, t := range eng.Tasks() {
		if t.Done || t.DueDate == nil {
			continue
		}
		dueIn := t.DueDate.Sub(now)
		if dueIn > 24*time.Hour || dueIn < -24*time.Hour {
			continue
		}
		if err := a.Notifier.SendDueReminder(t.Title, dueIn); err != nil {
			a.Log.Debug().Err(err).Msg("due reminder failed")
			return
		}
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/skein/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default ~/.local/share/skein)")

	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(doneCmd)
	rootCmd.AddCommand(reopenCmd)
	rootCmd.AddCommand(rmCmd)
	rootCmd.AddCommand(depCmd)
	rootCmd.AddCommand(moveCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(projectCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)
}
