package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/internal/engine"
	"github.com/ShayCichocki/flotilla/internal/review"
)

var reviewFeedback string

var reviewCmd = &cobra.Command{
	Use:   "review <task-id> <approved|revision|rejected>",
	Short: "Apply a manual review decision",
	Long: `Apply a review decision to a task awaiting review.

Approving completes the task. Requesting a revision sends it back for
rework and requires feedback (-m). Rejecting fails the task.`,
	Args: cobra.ExactArgs(2),
	RunE: runReview,
}

func init() {
	reviewCmd.Flags().StringVarP(&reviewFeedback, "message", "m", "", "Feedback for the worker (required for revision)")
}

func runReview(cmd *cobra.Command, args []string) error {
	taskID := args[0]

	var verdict engine.Verdict
	switch args[1] {
	case "approved", "approve":
		verdict = engine.VerdictApproved
	case "revision":
		verdict = engine.VerdictRevisionRequested
	case "rejected", "reject":
		verdict = engine.VerdictRejected
	default:
		return fmt.Errorf("unknown decision %q: want approved, revision, or rejected", args[1])
	}
	if verdict == engine.VerdictRevisionRequested && reviewFeedback == "" {
		return fmt.Errorf("a revision request needs feedback: pass -m \"what to change\"")
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	outcome, err := review.New(nil, db).Apply(taskID, verdict, reviewFeedback)
	if err != nil {
		if errors.Is(err, review.ErrRevisionLimitExceeded) {
			printStatus("✗", fmt.Sprintf("Task %s failed: revision ceiling spent", shortID(taskID)), color.FgRed)
			return nil
		}
		return err
	}

	switch outcome {
	case review.OutcomeApproved:
		printStatus("✓", fmt.Sprintf("Task %s approved and completed", shortID(taskID)), color.FgGreen)
	case review.OutcomeRevision:
		printStatus("⚠", fmt.Sprintf("Task %s sent back for revision", shortID(taskID)), color.FgYellow)
	case review.OutcomeRejected:
		printStatus("✗", fmt.Sprintf("Task %s rejected", shortID(taskID)), color.FgRed)
	}
	return nil
}
