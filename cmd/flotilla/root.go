package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/flotilla/internal/state"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "flotilla",
	Short: "AI mission orchestration",
	Long: `Flotilla runs missions with teams of AI workers.

Give it a goal and it forms a team, decomposes the goal into a task
tree, assigns tasks to the best-suited workers, reviews every piece of
work before accepting it, and recovers from failures via checkpoints.

Core capabilities:
- Decomposes goals into dependency-ordered tasks
- Staffs teams from a configurable role catalog
- Scores workers on skills, workload, and track record
- Bounds review/revision loops per task
- Resumes failed tasks from durable checkpoints`,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the state database (default: XDG state dir)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(abortCmd)
	rootCmd.AddCommand(archiveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

// openStore opens and migrates the state database.
func openStore() (*state.DB, error) {
	path := dbPath
	if path == "" {
		path = state.DefaultDBPath()
	}

	db, err := state.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open state database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate state database: %w", err)
	}
	return db, nil
}

// printStatus prints a colored status line.
func printStatus(symbol, message string, attr color.Attribute) {
	color.New(attr).Printf("%s ", symbol)
	fmt.Println(message)
}
