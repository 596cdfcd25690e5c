package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/internal/orchestrator"
)

var abortReason string

var abortCmd = &cobra.Command{
	Use:   "abort <team-id>",
	Short: "Abort a running mission",
	Long: `Fail a team and mark all of its unfinished tasks obsolete.

Completed work is kept; nothing in flight is waited for. The team's
audit trail records the abort and its reason.`,
	Args: cobra.ExactArgs(1),
	RunE: runAbort,
}

func init() {
	abortCmd.Flags().StringVar(&abortReason, "reason", "aborted by operator", "Reason recorded in the audit trail")
}

func runAbort(cmd *cobra.Command, args []string) error {
	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	orch := orchestrator.New(args[0], db, nil, nil)
	if err := orch.Abort(abortReason); err != nil {
		return fmt.Errorf("abort team: %w", err)
	}

	printStatus("✗", fmt.Sprintf("Team %s aborted", shortID(args[0])), color.FgRed)
	return nil
}
