// newswatch monitors news for Metaculus forecasting questions and
// alerts when something significant changes.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/forecastlabs/newswatch/internal/config"
	"github.com/forecastlabs/newswatch/internal/storage"
)

var rootCmd = &cobra.Command{
	Use:   "newswatch",
	Short: "News change monitoring for forecasting questions",
	Long: `newswatch tracks news coverage for Metaculus forecasting questions.

Each run fetches fresh articles per question, merges them into the
stored snapshot history, asks an LLM whether the new coverage is a
significant change, and emails a digest when it is.`,
	SilenceUsage: true,
}

// loadedConfig loads and validates configuration, exiting on missing
// required settings.
func loadedConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if missing := cfg.Validate(); len(missing) > 0 {
		fmt.Fprintln(os.Stderr, "Error: missing required configuration:")
		for _, m := range missing {
			fmt.Fprintf(os.Stderr, "  - %s\n", m)
		}
		os.Exit(1)
	}
	return cfg
}

// openStore opens the data directory for commands that only need
// storage, without requiring API keys.
func openStore() *storage.Store {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	store, err := storage.New(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return store
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
