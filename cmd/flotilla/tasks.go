package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/pkg/models"
)

var tasksVerbose bool

var tasksCmd = &cobra.Command{
	Use:   "tasks <team-id>",
	Short: "List a team's tasks",
	Long: `List the task tree for a team in creation order, with status,
assignee, and revision usage. With --verbose, also prints acceptance
criteria, dependencies, and errors.`,
	Args: cobra.ExactArgs(1),
	RunE: runTasks,
}

func init() {
	tasksCmd.Flags().BoolVarP(&tasksVerbose, "verbose", "v", false, "Show criteria, dependencies, and errors")
}

func runTasks(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	tasks, err := db.ListTasks(args[0])
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks for this team.")
		return nil
	}

	for _, task := range tasks {
		assignee := "-"
		if task.AssignedTo != "" {
			assignee = shortID(task.AssignedTo)
		}
		fmt.Printf("%s  %-20s  %-8s  rev %d/%d  %s\n",
			shortID(task.ID),
			taskStatusColored(task.Status),
			assignee,
			task.RevisionCount, task.EffectiveMaxRevisions(),
			task.Title)

		if !tasksVerbose {
			continue
		}
		for _, criterion := range task.AcceptanceCriteria {
			fmt.Printf("    criterion: %s\n", criterion)
		}
		for _, dep := range task.DependsOn {
			fmt.Printf("    depends on: %s\n", shortID(dep))
		}
		if task.Error != "" {
			color.Red("    error: %s", task.Error)
		}
	}
	return nil
}

func taskStatusColored(status models.TaskStatus) string {
	switch status {
	case models.TaskStatusCompleted:
		return color.GreenString("%-20s", status)
	case models.TaskStatusFailed:
		return color.RedString("%-20s", status)
	case models.TaskStatusObsolete:
		return color.YellowString("%-20s", status)
	case models.TaskStatusInProgress, models.TaskStatusReview:
		return color.CyanString("%-20s", status)
	default:
		return fmt.Sprintf("%-20s", status)
	}
}
