package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/graph"
	"github.com/okvist/skein/internal/model"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List tasks",
	Long: `List tasks as a subtask tree with derived status badges.

  [ ] ready    [-] blocked    [>] in progress    [x] done

Filters (--blocked, --ready, --project, --tag) switch to a flat listing.`,
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

		showAll, _ := cmd.Flags().GetBool("all")
		onlyBlocked, _ := cmd.Flags().GetBool("blocked")
		onlyReady, _ := cmd.Flags().GetBool("ready")
		projectName, _ := cmd.Flags().GetString("project")
		tagFilter, _ := cmd.Flags().GetString("tag")

		var projectID string
		if projectName != "" {
			project, err := a.DB.GetProjectByName(projectName)
			if err != nil {
				return err
			}
			if project == nil {
				return fmt.Errorf("no project named %q", projectName)
			}
			projectID = project.ID
		}

		if eng.Len() == 0 {
			fmt.Println(`No tasks yet. Use 'skein add "task"' to create one.`)
			return nil
		}

		flat := onlyBlocked || onlyReady || projectID != "" || tagFilter != ""
		shown := 0

		if flat {
			for _, t := range eng.Tasks() {
				if !showAll && t.Done {
					continue
				}
				status := eng.Status(t.ID)
				if onlyBlocked && status != model.StatusBlocked {
					continue
				}
				if onlyReady && status != model.StatusReady {
					continue
				}
				if projectID != "" && (t.ProjectID == nil || *t.ProjectID != projectID) {
					continue
				}
				if tagFilter != "" {
					match, err := taskHasTag(a, t.ID, tagFilter)
					if err != nil {
						return err
					}
					if !match {
						continue
					}
				}
				printTaskLine(eng, t, 0)
				shown++
			}
			if shown == 0 {
				fmt.Println("No tasks match.")
				return nil
			}
		} else {
			for _, root := range eng.Roots() {
				shown += printTree(eng, root, 0, showAll)
			}
		}

		fmt.Println()
		fmt.Println(summaryLine(eng))
		return nil
	},
}

// printTree prints a task and its subtasks, returning how many lines it
// emitted.
func printTree(eng *graph.Engine, t *model.Task, depth int, showAll bool) int {
	if !showAll && t.Done {
		return 0
	}

	printTaskLine(eng, t, depth)
	count := 1
	for _, child := range eng.Children(t.ID) {
		count += printTree(eng, child, depth+1, showAll)
	}
	return count
}

func printTaskLine(eng *graph.Engine, t *model.Task, depth int) {
	var b strings.Builder

	b.WriteString(statusBadge(eng.Status(t.ID)))
	b.WriteString(" ")
	b.WriteString(shortID(t.ID))
	b.WriteString(" ")
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(t.Title)

	if t.Priority == model.PriorityHigh || t.Priority == model.PriorityUrgent {
		b.WriteString("  !")
		b.WriteString(string(t.Priority))
	}
	if t.DueDate != nil && !t.Done {
		if t.IsOverdue() {
			b.WriteString("  overdue")
		} else {
			b.WriteString("  due ")
			b.WriteString(formatDueDate(*t.DueDate))
		}
	}
	if blockers := eng.BlockingDependencies(t.ID); len(blockers) > 0 {
		b.WriteString("  waits on ")
		b.WriteString(blockers[0].Title)
		if len(blockers) > 1 {
			fmt.Fprintf(&b, " (+%d)", len(blockers)-1)
		}
	}

	fmt.Println(b.String())
}

func taskHasTag(a *app.App, taskID, want string) (bool, error) {
	tags, err := a.DB.GetTaskTags(taskID)
	if err != nil {
		return false, err
	}
	norm := model.NormalizeTag(want)
	for i := range tags {
		if model.NormalizeTag(tags[i].Name) == norm {
			return true, nil
		}
	}
	return false, nil
}

func summaryLine(eng *graph.Engine) string {
	counts := map[model.Status]int{}
	for _, t := range eng.Tasks() {
		counts[eng.Status(t.ID)]++
	}

	return fmt.Sprintf("%d tasks: %d ready, %d blocked, %d in progress, %d done",
		eng.Len(),
		counts[model.StatusReady],
		counts[model.StatusBlocked],
		counts[model.StatusInProgress],
		counts[model.StatusDone])
}

func init() {
	listCmd.Flags().BoolP("all", "a", false, "Include completed tasks")
	listCmd.Flags().Bool("blocked", false, "Only tasks waiting on dependencies")
	listCmd.Flags().Bool("ready", false, "Only tasks with nothing in the way")
	listCmd.Flags().StringP("project", "p", "", "Only tasks in this project")
	listCmd.Flags().StringP("tag", "t", "", "Only tasks with this tag")
}
