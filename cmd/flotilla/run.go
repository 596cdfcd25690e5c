package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/internal/config"
	"github.com/ShayCichocki/flotilla/internal/orchestrator"
	"github.com/ShayCichocki/flotilla/pkg/models"
)

var runBudget float64

var runCmd = &cobra.Command{
	Use:   "run <goal>",
	Short: "Run a mission for a goal",
	Long: `Create a team for the goal and drive it to completion.

The goal is decomposed into tasks by the reasoning engine, a team is
staffed from the role catalog, and tasks execute in dependency order
with review gates and checkpoint-based recovery. Progress streams to
the terminal; full detail goes to the team's debug log.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().Float64Var(&runBudget, "budget", 0, "Engine spend ceiling in dollars (0 = use config default)")
}

func runRun(cmd *cobra.Command, args []string) error {
	goal := strings.Join(args, " ")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	client, err := newEngineClient(cfg)
	if err != nil {
		return err
	}

	roles, err := config.LoadRoleTemplates(config.GetRolesPath())
	if err != nil {
		return fmt.Errorf("load role catalog: %w", err)
	}

	budget := runBudget
	if budget == 0 {
		budget = cfg.Defaults.BudgetLimit
	}

	team, err := orchestrator.CreateTeam(db, goal, budget)
	if err != nil {
		return err
	}
	printStatus("✓", fmt.Sprintf("Team %s created", team.ID), color.FgGreen)

	logger := orchestrator.NewDebugLoggerForTeam(filepath.Dir(db.Path()), team.ID)
	defer logger.Close()

	executor := newEngineExecutor(client)
	orch := orchestrator.New(team.ID, db, client, executor,
		orchestrator.WithBudget(budget),
		orchestrator.WithRoleTemplates(roles),
		orchestrator.WithLogger(logger),
	)
	executor.recordCost = orch.RecordSpend

	// Role catalog edits apply to teams formed after the reload.
	watcher, err := config.WatchRoles(config.GetRolesPath(), func(updated []config.RoleTemplate) {
		logger.Log("role catalog reloaded: %d roles", len(updated))
	}, func(werr error) {
		logger.Log("role catalog reload failed: %v", werr)
	})
	if err == nil {
		defer watcher.Close()
	}

	done := make(chan struct{})
	go printEvents(orch, done)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := orch.RunToCompletion(ctx)
	close(done)

	final, err := db.GetTeam(team.ID)
	if err != nil {
		return err
	}
	spent, _, _ := orch.Budget().Usage()

	fmt.Println()
	switch final.Status {
	case models.TeamStatusCompleted:
		printStatus("✓", fmt.Sprintf("Mission completed (spent $%.2f)", spent), color.FgGreen)
	case models.TeamStatusFailed:
		printStatus("✗", fmt.Sprintf("Mission failed (spent $%.2f)", spent), color.FgRed)
	default:
		printStatus("⚠", fmt.Sprintf("Mission interrupted in %s (spent $%.2f)", final.Status, spent), color.FgYellow)
	}
	fmt.Printf("  flotilla status %s\n", team.ID)

	return runErr
}

// printEvents streams orchestrator events to the terminal until done
// closes.
func printEvents(orch *orchestrator.Orchestrator, done <-chan struct{}) {
	for {
		select {
		case ev := <-orch.Events():
			line := fmt.Sprintf("[%s] %s", ev.Timestamp.Format("15:04:05"), ev.Type)
			if ev.TaskID != "" {
				line += " task=" + shortID(ev.TaskID)
			}
			if ev.WorkerID != "" {
				line += " worker=" + shortID(ev.WorkerID)
			}
			if ev.Message != "" {
				line += " " + ev.Message
			}
			if ev.Error != nil {
				line += " error=" + ev.Error.Error()
			}

			switch ev.Type {
			case orchestrator.EventTaskCompleted, orchestrator.EventTeamCompleted:
				color.Green(line)
			case orchestrator.EventTaskFailed, orchestrator.EventTeamFailed, orchestrator.EventEscalationRaised:
				color.Red(line)
			case orchestrator.EventTaskObsolete, orchestrator.EventBudgetWarning, orchestrator.EventBudgetExhausted, orchestrator.EventRevisionRequested:
				color.Yellow(line)
			default:
				fmt.Println(line)
			}
		case <-done:
			return
		}
	}
}

// shortID trims a UUID for terminal display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
