package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okvist/skein/internal/model"
)

var projectCmd = &cobra.Command{
	Use:     "project",
	Aliases: []string{"proj"},
	Short:   "Manage projects",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		name := args[0]
		if existing, err := a.DB.GetProjectByName(name); err != nil {
			return err
		} else if existing != nil {
			return fmt.Errorf("project %q already exists", name)
		}

		color, _ := cmd.Flags().GetString("color")
		project, err := a.DB.CreateProject(name, color)
		if err != nil {
			return err
		}

		fmt.Printf("Created project: %s (%s)\n", project.Name, shortID(project.ID))
		return nil
	},
}

var projectLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List projects with completion counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		showArchived, _ := cmd.Flags().GetBool("all")
		var projects []model.Project
		if showArchived {
			projects, err = a.DB.AllProjects()
		} else {
			projects, err = a.DB.GetProjects()
		}
		if err != nil {
			return err
		}

		for i := range projects {
			p := &projects[i]
			line := fmt.Sprintf("%-20s %d/%d done", p.Name, p.CompletedCount, p.TaskCount)
			if p.Status != model.ProjectActive {
				line += fmt.Sprintf("  [%s]", p.Status)
			}
			if p.Archived {
				line += "  [archived]"
			}
			fmt.Println(line)
		}
		return nil
	},
}

var projectArchiveCmd = &cobra.Command{
	Use:   "archive <name>",
	Short: "Archive a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		project, err := a.DB.GetProjectByName(args[0])
		if err != nil {
			return err
		}
		if project == nil {
			return fmt.Errorf("no project named %q", args[0])
		}
		if project.IsInbox() {
			return fmt.Errorf("the inbox cannot be archived")
		}

		if err := a.DB.ArchiveProject(project.ID); err != nil {
			return err
		}

		fmt.Printf("Archived project: %s\n", project.Name)
		return nil
	},
}

func init() {
	projectAddCmd.Flags().String("color", "", "Accent color (hex)")
	projectLsCmd.Flags().BoolP("all", "a", false, "Include archived projects")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectLsCmd)
	projectCmd.AddCommand(projectArchiveCmd)
}
