package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/model"
)

var doneCmd = &cobra.Command{
	Use:   "done <task>",
	Short: "Complete a task",
	Long: `Mark a task done. A running timer on the task is stopped and logged.
Dependents whose last unfinished dependency this was become ready, and are
reported (and announced, if notifications are on).`,
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
			fmt.Printf("Already done: %s\n", task.Title)
			return nil
		}

		// Stop the timer first so the entry's duration lands on the task.
		var logged int
		if active, err := a.DB.ActiveTimeEntry(); err == nil && active != nil && active.TaskID == task.ID {
			stopped, err := a.DB.StopRunningEntries()
			if err != nil {
				return err
			}
			for i := range stopped {
				logged += stopped[i].PersonSeconds()
			}
		}

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		unblocked, err := eng.Complete(task.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Done: %s\n", task.Title)
		if logged > 0 {
			fmt.Printf("  Logged %s on the way out\n", formatSeconds(logged))
		}
		if len(unblocked) > 0 {
			titles := make([]string, len(unblocked))
			for i, t := range unblocked {
				titles[i] = t.Title
			}
			fmt.Printf("  Unblocked: %s\n", strings.Join(titles, ", "))
			if err := a.Notifier.SendUnblocked(unblocked); err != nil {
				a.Log.Debug().Err(err).Msg("unblocked notification failed")
			}
		}

		return nil
	},
}

var reopenCmd = &cobra.Command{
	Use:   "reopen <task>",
	Short: "Mark a completed task as not done",
	Args:  cobra.ExactArgs(1),
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

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		if err := eng.Reopen(task.ID); err != nil {
			return err
		}

		fmt.Printf("Reopened: %s\n", task.Title)

		var reblocked []string
		for _, d := range eng.Dependents(task.ID) {
			if eng.Status(d.ID) == model.StatusBlocked {
				reblocked = append(reblocked, d.Title)
			}
		}
		if len(reblocked) > 0 {
			fmt.Printf("  Blocked again: %s\n", strings.Join(reblocked, ", "))
		}

		return nil
	},
}

var rmCmd = &cobra.Command{
	Use:   "rm <task>",
	Short: "Delete a task and its subtasks",
	Long: `Delete a task, its whole subtask tree, and every dependency link that
points at any of them. Dependents waiting only on deleted tasks become
ready.`,
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

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		// Titles are gone from the graph after the delete.
		titles := map[string]string{}
		for _, t := range eng.Tasks() {
			titles[t.ID] = t.Title
		}

		removed, err := eng.DeleteTask(task.ID)
		if err != nil {
			return err
		}

		fmt.Printf("Deleted: %s\n", task.Title)
		if len(removed) > 1 {
			for _, id := range removed {
				if id != task.ID {
					fmt.Printf("  also: %s\n", titles[id])
				}
			}
		}

		return nil
	},
}
