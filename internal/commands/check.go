package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/app"
	"github.com/okvist/skein/internal/config"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Audit the config and the dependency graph",
	Long: `Run integrity checks: config validity, dependency cycles, edges pointing
at tasks that no longer exist, and rows orphaned by tools other than skein.
Mutations through skein cannot produce any of these, so a finding means the
database or config was edited from outside.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		problems := 0

		path := configPath
		if path == "" {
			path, _ = config.DefaultConfigPath()
		}
		if err := a.Config.ValidateDeep(path); err != nil {
			problems++
			fmt.Printf("Config: %v\n", err)
		} else {
			fmt.Printf("Config: ok (%s)\n", path)
		}

		eng, err := a.LoadEngine()
		if err != nil {
			return err
		}

		var archived int
		if err := a.DB.QueryRow(`SELECT COUNT(*) FROM tasks WHERE archived = 1`).Scan(&archived); err != nil {
			return err
		}
		fmt.Printf("Tasks: %d live, %d archived\n", eng.Len(), archived)

		n, err := auditEdges(a)
		if err != nil {
			return err
		}
		problems += n

		if cycle := eng.DetectCycle(); cycle != nil {
			problems++
			names := make([]string, len(cycle))
			for i, id := range cycle {
				if t, ok := eng.Task(id); ok {
					names[i] = t.Title
				} else {
					names[i] = shortID(id)
				}
			}
			fmt.Printf("Graph: CYCLE %s\n", strings.Join(names, " -> "))
		} else if order, err := eng.TopoOrder(); err != nil {
			problems++
			fmt.Printf("Graph: %v\n", err)
		} else {
			fmt.Printf("Graph: acyclic, build order covers %d tasks\n", len(order))
		}

		n, err = auditOrphans(a)
		if err != nil {
			return err
		}
		problems += n

		if problems > 0 {
			return fmt.Errorf("%d problem(s) found", problems)
		}
		fmt.Println("All checks passed")
		return nil
	},
}

// auditEdges flags dependency rows whose endpoints are gone and edges from
// a task to itself. The engine drops both on load, so they linger in the
// database invisibly until repaired.
func auditEdges(a *app.App) (int, error) {
	deps, err := a.DB.ListDependencies()
	if err != nil {
		return 0, err
	}

	ids := make(map[string]bool)
	rows, err := a.DB.Query(`SELECT id FROM tasks`)
	if err != nil {
		return 0, err
	}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	problems := 0
	for _, d := range deps {
		switch {
		case d.TaskID == d.DependsOnID:
			problems++
			fmt.Printf("Dependencies: task %s depends on itself\n", shortID(d.TaskID))
		case !ids[d.TaskID]:
			problems++
			fmt.Printf("Dependencies: edge from missing task %s\n", shortID(d.TaskID))
		case !ids[d.DependsOnID]:
			problems++
			fmt.Printf("Dependencies: edge to missing task %s\n", shortID(d.DependsOnID))
		}
	}
	if problems == 0 {
		fmt.Printf("Dependencies: %d edges, all endpoints present\n", len(deps))
	}
	return problems, nil
}

// auditOrphans counts relationship rows whose task is gone. Foreign keys
// prevent skein from creating these.
func auditOrphans(a *app.App) (int, error) {
	problems := 0

	var tagLinks int
	if err := a.DB.QueryRow(`SELECT COUNT(*) FROM task_tags WHERE task_id NOT IN (SELECT id FROM tasks)`).Scan(&tagLinks); err != nil {
		return 0, err
	}
	if tagLinks > 0 {
		problems++
		fmt.Printf("Tags: %d links to missing tasks\n", tagLinks)
	} else {
		fmt.Println("Tags: no orphaned links")
	}

	var entries int
	if err := a.DB.QueryRow(`SELECT COUNT(*) FROM time_entries WHERE task_id NOT IN (SELECT id FROM tasks)`).Scan(&entries); err != nil {
		return 0, err
	}
	if entries > 0 {
		problems++
		fmt.Printf("Time entries: %d attached to missing tasks\n", entries)
	} else {
		fmt.Println("Time entries: all attached")
	}

	return problems, nil
}
