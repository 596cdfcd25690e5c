package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/internal/orchestrator"
)

var archiveCmd = &cobra.Command{
	Use:   "archive <team-id>",
	Short: "Archive a finished mission",
	Long: `Archive a completed or failed team.

Archiving purges the team's checkpoints to reclaim space. Tasks and
the audit trail are retained for inspection.`,
	Args: cobra.ExactArgs(1),
	RunE: runArchive,
}

func runArchive(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	orch := orchestrator.New(args[0], db, nil, nil)
	if err := orch.Archive(); err != nil {
		return fmt.Errorf("archive team: %w", err)
	}

	printStatus("✓", fmt.Sprintf("Team %s archived", shortID(args[0])), color.FgGreen)
	return nil
}
