package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [question-id]",
	Short: "List stored news snapshots",
	Long: `List the stored snapshot history for a question, newest first.
With no argument, lists every question that has stored news.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()

		if len(args) == 0 {
			ids, err := store.QuestionIDsWithNews()
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			if len(ids) == 0 {
				fmt.Println("No stored news yet")
				return
			}
			for _, id := range ids {
				title := ""
				if q, err := store.LoadQuestion(id); err == nil && q != nil {
					title = q.Title
				}
				fmt.Printf("%d\t%s\n", id, title)
			}
			return
		}

		questionID, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: invalid question id %q\n", args[0])
			os.Exit(1)
		}

		history, err := store.LoadNewsHistory(questionID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(history) == 0 {
			fmt.Printf("No stored news for question %d\n", questionID)
			return
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		if q, err := store.LoadQuestion(questionID); err == nil && q != nil {
			fmt.Printf("%s\n\n", cyan(q.Title))
		}
		for _, snap := range history {
			fmt.Printf("%s  %3d article(s)  query: %s\n",
				snap.SnapshotID, len(snap.Articles), snap.SearchQuery)
		}
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
}
