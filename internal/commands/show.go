package commands

import (
	"fmt"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/model"
	"github.com/okvist/skein/internal/schedule"
)

var showCmd = &cobra.Command{
	Use:   "show <task>",
	Short: "Show task details",
	Long: `Show everything known about a task: its dependencies and what they are
blocking, subtask holdups, schedule projections, notes, and time log.
Tasks are referenced by id prefix or exact title.`,
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

		status := eng.Status(task.ID)
		fmt.Printf("%s  (%s)\n", task.Title, status)
		fmt.Printf("%s\n\n", task.ID)

		if task.ProjectID != nil {
			if project, err := a.DB.GetProject(*task.ProjectID); err == nil && project != nil {
				fmt.Printf("  Project:   %s\n", project.Name)
			}
		}
		if tags, err := a.DB.GetTaskTags(task.ID); err == nil && len(tags) > 0 {
			fmt.Printf("  Tags:      %s\n", tagNames(tags))
		}
		fmt.Printf("  Priority:  %s\n", task.Priority)
		if task.DueDate != nil {
			due := formatDueDate(*task.DueDate)
			if task.IsOverdue() {
				due += " (overdue)"
			}
			fmt.Printf("  Due:       %s\n", due)
		}
		if task.Estimate != nil {
			fmt.Printf("  Estimate:  %s\n", formatSeconds(*task.Estimate))
		}
		if task.Quantity != nil {
			qty := fmt.Sprintf("%g %s", *task.Quantity, orDefault(task.Unit, "units"))
			if task.Productivity != nil {
				qty += fmt.Sprintf(" at %g/h per person", *task.Productivity)
			}
			fmt.Printf("  Quantity:  %s\n", qty)
		}
		if logged := totalLogged(a.DB.GetTaskTimeEntries, task.ID); logged > 0 {
			fmt.Printf("  Logged:    %s\n", formatSeconds(logged))
		}

		if deps := eng.Dependencies(task.ID); len(deps) > 0 {
			fmt.Println("\nWaits on:")
			for _, dep := range deps {
				fmt.Printf("  %s %s (%s)\n", statusBadge(eng.Status(dep.ID)), dep.Title, shortID(dep.ID))
			}
		}

		if dependents := eng.Dependents(task.ID); len(dependents) > 0 {
			fmt.Println("\nBlocks:")
			for _, d := range dependents {
				fmt.Printf("  %s %s (%s)\n", statusBadge(eng.Status(d.ID)), d.Title, shortID(d.ID))
			}
		}

		if pairs := eng.BlockingSubtaskDependencies(task.ID); len(pairs) > 0 {
			fmt.Println("\nSubtask holdups:")
			for _, p := range pairs {
				fmt.Printf("  %s waits on %s\n", p.Subtask.Title, p.DependsOn.Title)
			}
		}

		printSchedulePanel(a.Config.Workweek.Schedule, task)

		if task.Notes != "" {
			fmt.Println("\nNotes:")
			fmt.Println(renderMarkdown(task.Notes))
		}

		printTimeLog(a.DB.GetTaskTimeEntries, task.ID)

		return nil
	},
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// printSchedulePanel projects effort, crew, and finish date from whatever
// effort fields the task carries.
func printSchedulePanel(workweek func() (schedule.Workweek, error), task *model.Task) {
	effort := taskEffortHours(task)
	if effort <= 0 {
		return
	}

	ww, err := workweek()
	if err != nil {
		ww = schedule.Default()
	}

	fmt.Println("\nSchedule:")
	if task.Quantity != nil && task.Productivity != nil {
		fmt.Printf("  Effort:    %s (%g %s at %g/h)\n",
			formatHours(effort), *task.Quantity, orDefault(task.Unit, "units"), *task.Productivity)
	} else {
		fmt.Printf("  Effort:    %s (estimate)\n", formatHours(effort))
	}

	crew := 1
	from, to, bound := scheduleWindow(task, time.Now())
	if bound != "" && !task.Done {
		window := ww.Hours(from, to)
		crew = schedule.Personnel(effort, window)
		if crew == 0 {
			fmt.Printf("  Window:    %s before %s, no full work hour left\n", formatHours(window), bound)
			crew = 1
		} else {
			fmt.Printf("  Window:    %s of work time before %s\n", formatHours(window), bound)
			fmt.Printf("  Crew:      %s to make the date\n", pluralize(crew, "person", "people"))
		}
	}

	if !task.Done {
		finish := ww.Finish(from, effort, crew)
		fmt.Printf("  Finish:    %s with %s\n", finish.Format("Mon, Jan 2"), pluralize(crew, "person", "people"))
	}
}

// taskEffortHours derives the remaining effort in hours: quantity over
// productivity when both are set, otherwise the manual estimate.
func taskEffortHours(t *model.Task) float64 {
	if t.Quantity != nil && t.Productivity != nil {
		return schedule.EffortHours(*t.Quantity, *t.Productivity)
	}
	if t.Estimate != nil {
		return float64(*t.Estimate) / 3600
	}
	return 0
}

// scheduleWindow picks the planning window: from the task's start date
// (when still ahead) until its end date, falling back to the due date.
// The returned bound names the closing edge; empty means unbounded.
func scheduleWindow(t *model.Task, now time.Time) (from, to time.Time, bound string) {
	from = now
	if t.StartDate != nil && t.StartDate.After(now) {
		from = *t.StartDate
	}
	switch {
	case t.EndDate != nil:
		return from, *t.EndDate, "planned end"
	case t.DueDate != nil:
		return from, *t.DueDate, "due"
	}
	return from, to, ""
}

func totalLogged(entries func(string) ([]model.TimeEntry, error), taskID string) int {
	list, err := entries(taskID)
	if err != nil {
		return 0
	}
	total := 0
	for i := range list {
		total += list[i].PersonSeconds()
	}
	return total
}

func printTimeLog(entries func(string) ([]model.TimeEntry, error), taskID string) {
	list, err := entries(taskID)
	if err != nil || len(list) == 0 {
		return
	}

	fmt.Println("\nTime log:")
	for i := range list {
		e := &list[i]
		when := e.StartedAt.Format("Jan 2 15:04")
		dur := "running"
		if !e.IsRunning() {
			dur = formatSeconds(e.CalculatedDuration())
		}
		line := fmt.Sprintf("  %s  %-8s", when, dur)
		if e.Personnel > 1 {
			line += fmt.Sprintf("  crew of %d", e.Personnel)
		}
		if e.Note != "" {
			line += fmt.Sprintf("  %q", e.Note)
		}
		fmt.Println(line)
	}
}

// renderMarkdown pretty-prints notes, falling back to the raw text when the
// terminal renderer cannot be built.
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return out
}
