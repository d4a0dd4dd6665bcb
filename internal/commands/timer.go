package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start <task>",
	Short: "Start a timer on a task",
	Long: `Start tracking time on a task. Only one timer runs at a time; starting a
new one stops the old one. --personnel records how many people are on the
clock, so an hour with a crew of three logs three person-hours.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		task, err := a.DB.FindTask(args[0])
		if err != nil {
			return err
		}
		if task.Done {
			return fmt.Errorf("%q is done; reopen it to log more time", task.Title)
		}

		if active, err := a.DB.ActiveTimeEntry(); err == nil && active != nil && active.TaskID != task.ID {
			if prev, err := a.DB.GetTask(active.TaskID); err == nil && prev != nil {
				fmt.Printf("Stopping timer on %s\n", prev.Title)
			}
		}

		personnel, _ := cmd.Flags().GetInt("personnel")
		note, _ := cmd.Flags().GetString("note")

		entry, err := a.DB.StartTimeEntry(task.ID, personnel, note)
		if err != nil {
			return err
		}

		fmt.Printf("Timer started: %s\n", task.Title)
		if entry.Personnel > 1 {
			fmt.Printf("  Crew of %d, logging %dx time\n", entry.Personnel, entry.Personnel)
		}

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}
		if blockers := eng.BlockingDependencies(task.ID); len(blockers) > 0 {
			fmt.Printf("  Note: still waits on %s\n", blockers[0].Title)
		}

		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running timer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		stopped, err := a.DB.StopRunningEntries()
		if err != nil {
			return err
		}
		if len(stopped) == 0 {
			fmt.Println("No timer running")
			return nil
		}

		for i := range stopped {
			e := &stopped[i]
			task, err := a.DB.GetTask(e.TaskID)
			title := e.TaskID
			if err == nil && task != nil {
				title = task.Title
			}
			line := fmt.Sprintf("Stopped: %s after %s", title, formatSeconds(e.CalculatedDuration()))
			if e.Personnel > 1 {
				line += fmt.Sprintf(" (%s of person-time)", formatSeconds(e.PersonSeconds()))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the running timer and graph totals",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		active, err := a.DB.ActiveTimeEntry()
		if err != nil {
			return err
		}
		if active == nil {
			fmt.Println("No timer running")
		} else {
			title := active.TaskID
			if task, bErr := a.DB.GetTask(active.TaskID); bErr == nil && task != nil {
				title = task.Title
			}
			elapsed := time.Since(active.StartedAt)
			line := fmt.Sprintf("Working on: %s (%s elapsed)", title, formatDuration(elapsed))
			if active.Personnel > 1 {
				line += fmt.Sprintf(", crew of %d", active.Personnel)
			}
			fmt.Println(line)
		}

		fmt.Println(summaryLine(eng))
		return nil
	},
}

var logCmd = &cobra.Command{
	Use:   "log <task> <duration>",
	Short: "Log time spent on a task after the fact",
	Long: `Record a finished block of work, e.g. 'skein log footings 2h30m'.
The entry ends now and starts the duration ago.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		task, err := a.DB.FindTask(args[0])
		if err != nil {
			return err
		}

		d, err := time.ParseDuration(args[1])
		if err != nil || d <= 0 {
			return fmt.Errorf("cannot parse duration %q (try 45m, 2h30m)", args[1])
		}

		personnel, _ := cmd.Flags().GetInt("personnel")
		note, _ := cmd.Flags().GetString("note")

		end := time.Now()
		entry, err := a.DB.LogTimeEntry(task.ID, end.Add(-d), end, personnel, note)
		if err != nil {
			return err
		}

		logged := formatSeconds(entry.CalculatedDuration())
		if entry.Personnel > 1 {
			logged += fmt.Sprintf(" x %d people = %s", entry.Personnel, formatSeconds(entry.PersonSeconds()))
		}
		fmt.Printf("Logged %s on %s\n", logged, task.Title)
		return nil
	},
}

func init() {
	startCmd.Flags().IntP("personnel", "n", 1, "People on the clock")
	startCmd.Flags().String("note", "", "Note for the entry")
	logCmd.Flags().IntP("personnel", "n", 1, "People who worked the block")
	logCmd.Flags().String("note", "", "Note for the entry")
}
