package commands

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/model"
	"github.com/okvist/skein/internal/schedule"
)

var addCmd = &cobra.Command{
	Use:   "add [title...]",
	Short: "Add a task",
	Long: `Add a task, either from quick-add text or interactively.

Quick-add syntax:
  skein add "Pour footings @site #cabin !high due:friday est:6h"

  @tag        Context tag (repeatable)
  #project    Project (created if it does not exist)
  !priority   low, medium, high, urgent
  due:...     today, tomorrow, weekday names, nextweek, 2026-01-15
  est:...     Effort estimate, e.g. est:90m, est:6h

Dependencies can be attached at creation: --after makes the new task wait
on an existing one, so it starts out blocked.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		interactive, _ := cmd.Flags().GetBool("interactive")
		if len(args) == 0 && !interactive {
			interactive = true
		}

		qa := parseQuickAdd(strings.Join(args, " "))
		notes, _ := cmd.Flags().GetString("notes")
		effort := effortFields{}
		effort.quantity, _ = cmd.Flags().GetFloat64("quantity")
		effort.unit, _ = cmd.Flags().GetString("unit")
		effort.productivity, _ = cmd.Flags().GetFloat64("productivity")

		if interactive {
			if err := runAddForm(a, &qa, &notes, &effort); err != nil {
				return err
			}
			if strings.TrimSpace(qa.Title) == "" {
				return fmt.Errorf("title cannot be empty")
			}
		} else if strings.TrimSpace(qa.Title) == "" {
			return fmt.Errorf("title cannot be empty")
		}

		return createTask(cmd, a, qa, notes, effort)
	},
}

// effortFields carries the quantity-based sizing inputs, from flags or
// from the form.
type effortFields struct {
	quantity     float64
	unit         string
	productivity float64
}

func createTask(cmd *cobra.Command, a *app.App, qa quickAdd, notes string, effort effortFields) error {
	task := model.Task{
		Title:    qa.Title,
		Notes:    notes,
		Priority: qa.Priority,
		DueDate:  qa.DueDate,
		Estimate: qa.Estimate,
	}

	if effort.quantity > 0 {
		task.Quantity = &effort.quantity
	}
	if effort.unit != "" {
		task.Unit = effort.unit
	}
	if effort.productivity > 0 {
		task.Productivity = &effort.productivity
	}

	// Resolve references before inserting anything, so a bad ref fails the
	// whole add instead of leaving a half-created task.
	var afterTasks []*model.Task
	afterRefs, _ := cmd.Flags().GetStringSlice("after")
	for _, ref := range afterRefs {
		dep, err := a.DB.FindTask(ref)
		if err != nil {
			return err
		}
		afterTasks = append(afterTasks, dep)
	}

	if parentRef, _ := cmd.Flags().GetString("parent"); parentRef != "" {
		parent, err := a.DB.FindTask(parentRef)
		if err != nil {
			return err
		}
		task.ParentID = &parent.ID
		// Subtasks live in the parent's project.
		task.ProjectID = parent.ProjectID
	} else if qa.Project != "" {
		project, err := a.DB.GetProjectByName(qa.Project)
		if err != nil {
			return err
		}
		if project == nil {
			project, err = a.DB.CreateProject(qa.Project, "")
			if err != nil {
				return err
			}
			fmt.Printf("Created project: %s\n", project.Name)
		}
		task.ProjectID = &project.ID
	}

	created, err := a.DB.InsertTask(task)
	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	for _, name := range qa.Tags {
		tag, err := a.DB.GetOrCreateTag(name, "")
		if err != nil {
			return err
		}
		if err := a.DB.AddTagToTask(created.ID, tag.ID); err != nil {
			return err
		}
	}

	blocked := false
	if len(afterTasks) > 0 {
		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}
		for _, dep := range afterTasks {
			if err := eng.AddDependency(created.ID, dep.ID); err != nil {
				return fmt.Errorf("add dependency on %q: %w", dep.Title, err)
			}
			if !dep.Done {
				blocked = true
			}
		}
	}

	fmt.Printf("Created: %s (%s)\n", created.Title, shortID(created.ID))
	if qa.Project != "" {
		fmt.Printf("  Project:  %s\n", qa.Project)
	}
	if len(qa.Tags) > 0 {
		fmt.Printf("  Tags:     %s\n", strings.Join(qa.Tags, ", "))
	}
	if created.Priority != model.PriorityMedium {
		fmt.Printf("  Priority: %s\n", created.Priority)
	}
	if created.DueDate != nil {
		fmt.Printf("  Due:      %s\n", formatDueDate(*created.DueDate))
	}
	if created.Estimate != nil {
		fmt.Printf("  Estimate: %s\n", formatSeconds(*created.Estimate))
	}
	for _, dep := range afterTasks {
		fmt.Printf("  After:    %s\n", dep.Title)
	}
	if blocked {
		fmt.Println("  Status:   blocked")
	}

	printCrewEstimate(a, created)

	return nil
}

// runAddForm collects task fields interactively, pre-filled from any
// quick-add text and flags.
func runAddForm(a *app.App, qa *quickAdd, notes *string, effort *effortFields) error {
	tags := strings.Join(qa.Tags, ", ")
	priority := string(qa.Priority)
	var due, estimate, quantity, productivity string
	if qa.DueDate != nil {
		due = qa.DueDate.Format("2006-01-02")
	}
	if qa.Estimate != nil {
		estimate = formatSeconds(*qa.Estimate)
	}
	if effort.quantity > 0 {
		quantity = strconv.FormatFloat(effort.quantity, 'f', -1, 64)
	}
	if effort.productivity > 0 {
		productivity = strconv.FormatFloat(effort.productivity, 'f', -1, 64)
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("title is required")
					}
					return nil
				}).
				Value(&qa.Title),
			huh.NewText().
				Title("Notes").
				Description("Markdown, rendered in the detail view").
				Value(notes),
			huh.NewInput().
				Title("Project").
				Value(&qa.Project),
			huh.NewInput().
				Title("Tags").
				Description("Comma-separated, e.g. @site, @phone").
				Value(&tags),
			huh.NewSelect[string]().
				Title("Priority").
				Options(huh.NewOptions("low", "medium", "high", "urgent")...).
				Value(&priority),
			huh.NewInput().
				Title("Due").
				Description("today, friday, 2026-01-15; empty for none").
				Validate(validateDueInput).
				Value(&due),
			huh.NewInput().
				Title("Estimate").
				Description("e.g. 90m, 6h; empty for none").
				Validate(validateEstimateInput).
				Value(&estimate),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Quantity").
				Description("How much work, e.g. 120; empty to skip sizing").
				Validate(validateFloatInput).
				Value(&quantity),
			huh.NewInput().
				Title("Unit").
				Description("What the quantity counts, e.g. m2").
				Value(&effort.unit),
			huh.NewInput().
				Title("Productivity").
				Description("Units one person finishes per work hour").
				Validate(validateFloatInput).
				Value(&productivity),
		).Title("Sizing (optional)"),
	)
	if err := form.Run(); err != nil {
		return err
	}

	qa.Priority = model.Priority(priority)
	qa.Tags = nil
	for _, t := range strings.Split(tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			qa.Tags = append(qa.Tags, t)
		}
	}
	if due != "" {
		qa.DueDate = parseNaturalDate(due)
	}
	if estimate != "" {
		if d, err := time.ParseDuration(estimate); err == nil {
			secs := int(d.Seconds())
			qa.Estimate = &secs
		}
	}
	if quantity != "" {
		effort.quantity, _ = strconv.ParseFloat(strings.TrimSpace(quantity), 64)
	}
	if productivity != "" {
		effort.productivity, _ = strconv.ParseFloat(strings.TrimSpace(productivity), 64)
	}

	return nil
}

func validateFloatInput(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err != nil {
		return fmt.Errorf("not a number")
	}
	return nil
}

func validateDueInput(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if parseNaturalDate(s) == nil {
		return fmt.Errorf("cannot parse date %q", s)
	}
	return nil
}

func validateEstimateInput(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.ParseDuration(s); err != nil {
		return fmt.Errorf("cannot parse duration %q", s)
	}
	return nil
}

// printCrewEstimate reports how many people the task needs to finish by its
// due date, when the effort fields allow the calculation.
func printCrewEstimate(a *app.App, t *model.Task) {
	if t.Quantity == nil || t.Productivity == nil || t.DueDate == nil {
		return
	}

	ww, err := a.Config.Workweek.Schedule()
	if err != nil {
		ww = schedule.Default()
	}

	effort := schedule.EffortHours(*t.Quantity, *t.Productivity)
	window := ww.Hours(time.Now(), *t.DueDate)
	crew := schedule.Personnel(effort, window)

	if crew == 0 {
		fmt.Printf("  Crew:     no work window before the due date (%s effort)\n", formatHours(effort))
		return
	}
	fmt.Printf("  Crew:     %s for %s of effort in a %s window\n",
		pluralize(crew, "person", "people"), formatHours(effort), formatHours(window))
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return "1 " + singular
	}
	return strconv.Itoa(n) + " " + plural
}

func init() {
	addCmd.Flags().BoolP("interactive", "i", false, "Interactive form")
	addCmd.Flags().StringP("parent", "P", "", "Create as a subtask of this task (id prefix or title)")
	addCmd.Flags().StringSlice("after", nil, "Existing task this one depends on (repeatable)")
	addCmd.Flags().StringP("notes", "n", "", "Markdown notes")
	addCmd.Flags().Float64("quantity", 0, "Work quantity, e.g. 120")
	addCmd.Flags().String("unit", "", "Quantity unit, e.g. m2")
	addCmd.Flags().Float64("productivity", 0, "Units one person finishes per work hour")
}
