package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forecastlabs/newswatch/internal/detector"
	"github.com/forecastlabs/newswatch/internal/metaculus"
	"github.com/forecastlabs/newswatch/internal/news"
	"github.com/forecastlabs/newswatch/internal/notify"
	"github.com/forecastlabs/newswatch/internal/runner"
	"github.com/forecastlabs/newswatch/internal/storage"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one monitoring cycle over the configured questions",
	Long: `Fetch news for every configured question and series, merge it into
the stored snapshot history, judge significance against the previous
snapshot, and send an email digest for significant changes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadedConfig()

		store, err := storage.New(cfg.DataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fetcher, err := news.NewFetcher(news.FetcherConfig{
			APIKey:     cfg.ExaAPIKey,
			NumResults: cfg.NumResults,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		generator, err := detector.NewAnthropicGenerator(detector.GeneratorConfig{
			APIKey: cfg.AnthropicAPIKey,
			Model:  cfg.ChangeDetectionModel,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		det, err := detector.New(&detector.Config{
			Generator:             generator,
			SignificanceThreshold: cfg.SignificanceThreshold,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var notifier runner.Notifier
		if cfg.EmailConfigured() {
			notifier = notify.NewEmailNotifier(notify.NotifierConfig{
				User:       cfg.GmailUser,
				Password:   cfg.GmailAppPassword,
				Recipients: cfg.EmailRecipients,
			})
		} else {
			fmt.Println("Email not configured; alerts will only appear in the run summary")
		}

		r, err := runner.New(runner.Config{
			Questions:   metaculus.NewClient(metaculus.ClientConfig{Token: cfg.MetaculusToken}),
			Fetcher:     fetcher,
			Enhancer:    news.NewEnhancer(news.EnhancerConfig{MinContentLength: cfg.MinContentLength}),
			Detector:    det,
			Notifier:    notifier,
			Store:       store,
			QuestionIDs: cfg.QuestionIDs,
			SeriesIDs:   cfg.SeriesIDs,
			MaxArticles: cfg.MaxArticles,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := r.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
