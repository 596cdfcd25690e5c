package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/internal/state"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

var statusCmd = &cobra.Command{
	Use:   "status [team-id]",
	Short: "Show team status",
	Long: `Display the state of missions.

Without arguments, lists all teams. With a team ID, shows the team's
tasks, workers, and recent audit events.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if len(args) == 0 {
		return displayTeams(db)
	}
	return displayTeam(db, args[0])
}

func displayTeams(db *state.DB) error {
	teams, err := db.ListTeams(nil)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	if len(teams) == 0 {
		fmt.Println("No teams. Run 'flotilla run <goal>' to start a mission.")
		return nil
	}

	for _, team := range teams {
		goal := team.Goal
		if len(goal) > 60 {
			goal = goal[:57] + "..."
		}
		fmt.Printf("%s  %-10s  %s\n", shortID(team.ID), teamStatusColored(team.Status), goal)
	}
	return nil
}

func displayTeam(db *state.DB, teamID string) error {
	team, err := db.GetTeam(teamID)
	if err != nil {
		return fmt.Errorf("get team: %w", err)
	}

	fmt.Printf("Team: %s\n", team.ID)
	fmt.Printf("  Goal: %s\n", team.Goal)
	fmt.Printf("  Status: %s\n", teamStatusColored(team.Status))
	fmt.Printf("  Created: %s ago\n", formatDuration(time.Since(team.CreatedAt)))
	if team.BudgetLimit > 0 {
		fmt.Printf("  Budget: $%.2f\n", team.BudgetLimit)
	}

	workers, err := db.ListWorkers(team.ID)
	if err != nil {
		return fmt.Errorf("list workers: %w", err)
	}
	if len(workers) > 0 {
		fmt.Printf("\n  Workers (%d):\n", len(workers))
		for _, w := range workers {
			fmt.Printf("    %s  %-12s  %s  (%d/%d slots)\n",
				shortID(w.ID), w.Specialization, w.Role, w.CurrentWorkload, w.EffectiveMaxConcurrent())
		}
	}

	tasks, err := db.ListTasks(team.ID)
	if err != nil {
		return fmt.Errorf("list tasks: %w", err)
	}
	if len(tasks) > 0 {
		counts := make(map[models.TaskStatus]int)
		for _, task := range tasks {
			counts[task.Status]++
		}
		fmt.Printf("\n  Tasks: %d total", len(tasks))
		for _, status := range []models.TaskStatus{
			models.TaskStatusCompleted, models.TaskStatusInProgress, models.TaskStatusReview,
			models.TaskStatusPending, models.TaskStatusFailed, models.TaskStatusObsolete,
		} {
			if counts[status] > 0 {
				fmt.Printf(", %d %s", counts[status], status)
			}
		}
		fmt.Println()
	}

	entries, err := db.ListAudit(team.ID)
	if err != nil {
		return fmt.Errorf("list audit: %w", err)
	}
	if len(entries) > 0 {
		fmt.Println("\n  Recent events:")
		start := len(entries) - 10
		if start < 0 {
			start = 0
		}
		for _, e := range entries[start:] {
			line := fmt.Sprintf("    %s  %s", e.CreatedAt.Format("15:04:05"), e.Event)
			if e.Detail != "" {
				detail := e.Detail
				if len(detail) > 50 {
					detail = detail[:47] + "..."
				}
				line += "  " + detail
			}
			fmt.Println(line)
		}
	}
	return nil
}

func teamStatusColored(status models.TeamStatus) string {
	switch status {
	case models.TeamStatusCompleted:
		return color.GreenString(string(status))
	case models.TeamStatusFailed:
		return color.RedString(string(status))
	case models.TeamStatusActive, models.TeamStatusPlanning:
		return color.CyanString(string(status))
	default:
		return string(status)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
	return fmt.Sprintf("%dd", int(d.Hours())/24)
}
