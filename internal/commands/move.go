package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/graph"
)

var moveCmd = &cobra.Command{
	Use:   "move <task> [new-parent]",
	Short: "Move a task under a new parent, or to the top level",
	Long: `Reparent a task. The task keeps its own subtasks, is placed after the new
parent's existing subtasks, and moves into the new parent's project.
--root promotes the task out of its parent instead.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		toRoot, _ := cmd.Flags().GetBool("root")
		if toRoot == (len(args) == 2) {
			return fmt.Errorf("name a new parent or pass --root, not both")
		}

		task, err := a.DB.FindTask(args[0])
		if err != nil {
			return err
		}

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		if toRoot {
			if err := eng.PromoteSubtask(task.ID); err != nil {
				return err
			}
			fmt.Printf("Moved %s to the top level\n", task.Title)
			return nil
		}

		parent, err := a.DB.FindTask(args[1])
		if err != nil {
			return err
		}

		switch err := eng.MoveSubtask(task.ID, parent.ID); {
		case err == nil:
		case errors.Is(err, graph.ErrCircularMove):
			return fmt.Errorf("cannot move %q under %q: a task cannot become its own descendant", task.Title, parent.Title)
		default:
			return err
		}

		fmt.Printf("Moved %s under %s\n", task.Title, parent.Title)
		return nil
	},
}

func init() {
	moveCmd.Flags().Bool("root", false, "Promote the task to the top level")
}
