package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cleanupKeepDays int

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Remove old snapshot records",
	Long: `Remove timestamped snapshot records older than the retention window
for every tracked question. The latest snapshot of each question is
always kept.`,
	Run: func(cmd *cobra.Command, args []string) {
		if cleanupKeepDays <= 0 {
			fmt.Fprintln(os.Stderr, "Error: --keep-days must be positive")
			os.Exit(1)
		}

		store := openStore()
		ids, err := store.QuestionIDsWithNews()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		total := 0
		for _, id := range ids {
			removed, err := store.CleanupOldSnapshots(id, cleanupKeepDays)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: question %d: %v\n", id, err)
				os.Exit(1)
			}
			if removed > 0 {
				fmt.Printf("Question %d: removed %d snapshot(s)\n", id, removed)
			}
			total += removed
		}
		fmt.Printf("Removed %d snapshot(s) older than %d days\n", total, cleanupKeepDays)
	},
}

func init() {
	cleanupCmd.Flags().IntVar(&cleanupKeepDays, "keep-days", 30, "retention window in days")
	rootCmd.AddCommand(cleanupCmd)
}
