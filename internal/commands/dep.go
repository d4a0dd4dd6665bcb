package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/graph"
	"github.com/okvist/skein/internal/model"
)

var depCmd = &cobra.Command{
	Use:   "dep",
	Short: "Manage dependencies between tasks",
	Long: `Manage the edges of the dependency graph. A task with an unfinished
dependency is blocked; completing the last dependency makes it ready.
Edges that would close a loop are refused, including through the subtask
chain.`,
}

var depAddCmd = &cobra.Command{
	Use:   "add <task> <depends-on>",
	Short: "Make one task wait on another",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		from, err := a.DB.FindTask(args[0])
		if err != nil {
			return err
		}
		to, err := a.DB.FindTask(args[1])
		if err != nil {
			return err
		}

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		switch err := eng.AddDependency(from.ID, to.ID); {
		case err == nil:
		case errors.Is(err, graph.ErrDuplicateEdge):
			return fmt.Errorf("%q already waits on %q", from.Title, to.Title)
		case errors.Is(err, graph.ErrCycle):
			return fmt.Errorf("refusing edge: making %q wait on %q would create a dependency loop", from.Title, to.Title)
		default:
			return err
		}

		fmt.Printf("%s now waits on %s\n", from.Title, to.Title)
		if eng.Status(from.ID) == model.StatusBlocked {
			fmt.Printf("  %s is blocked\n", from.Title)
		}
		return nil
	},
}

var depRmCmd = &cobra.Command{
	Use:   "rm <task> <depends-on>",
	Short: "Remove a dependency",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		from, err := a.DB.FindTask(args[0])
		if err != nil {
			return err
		}
		to, err := a.DB.FindTask(args[1])
		if err != nil {
			return err
		}

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		had := false
		for _, dep := range eng.Dependencies(from.ID) {
			if dep.ID == to.ID {
				had = true
				break
			}
		}
		if !had {
			fmt.Printf("%s does not wait on %s, nothing to remove\n", from.Title, to.Title)
			return nil
		}

		if err := eng.RemoveDependency(from.ID, to.ID); err != nil {
			return err
		}

		fmt.Printf("%s no longer waits on %s\n", from.Title, to.Title)
		if eng.Status(from.ID) == model.StatusReady {
			fmt.Printf("  %s is ready\n", from.Title)
		}
		return nil
	},
}

var depLsCmd = &cobra.Command{
	Use:   "ls <task>",
	Short: "List what a task waits on and what waits on it",
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

		deps := eng.Dependencies(task.ID)
		dependents := eng.Dependents(task.ID)

		if len(deps) == 0 && len(dependents) == 0 {
			fmt.Printf("%s has no dependencies in either direction\n", task.Title)
			return nil
		}

		if len(deps) > 0 {
			fmt.Printf("%s waits on:\n", task.Title)
			for _, dep := range deps {
				fmt.Printf("  %s %s (%s)\n", statusBadge(eng.Status(dep.ID)), dep.Title, shortID(dep.ID))
			}
		}
		if len(dependents) > 0 {
			fmt.Printf("%s blocks:\n", task.Title)
			for _, d := range dependents {
				fmt.Printf("  %s %s (%s)\n", statusBadge(eng.Status(d.ID)), d.Title, shortID(d.ID))
			}
		}
		return nil
	},
}

func init() {
	depCmd.AddCommand(depAddCmd)
	depCmd.AddCommand(depRmCmd)
	depCmd.AddCommand(depLsCmd)
}
