// Package runner orchestrates one monitoring cycle: resolve the
// tracked questions, fetch and merge news for each, judge significance
// against the stored previous snapshot, persist the results, and send
// notifications.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"

	"github.com/forecastlabs/newswatch/internal/news"
	"github.com/forecastlabs/newswatch/internal/types"
)

// fetchOverlap is subtracted from the previous fetch time when asking
// the search API for fresh articles, so items published right around
// the last run are not missed.
const fetchOverlap = time.Hour

// QuestionSource resolves question metadata, typically the Metaculus API.
type QuestionSource interface {
	GetQuestion(ctx context.Context, postID int) (*types.QuestionMetadata, error)
	GetQuestionsInSeries(ctx context.Context, seriesID int) ([]types.QuestionMetadata, error)
}

// NewsFetcher retrieves a fresh batch of articles for a question.
type NewsFetcher interface {
	FetchNewsForQuestion(ctx context.Context, question types.QuestionMetadata, since *time.Time) (types.NewsSnapshot, error)
}

// ArticleEnhancer fills in thin article bodies before merging.
type ArticleEnhancer interface {
	EnhanceArticles(ctx context.Context, articles []types.NewsArticle) []types.NewsArticle
}

// ChangeDetector judges the significance of the snapshot transition.
type ChangeDetector interface {
	DetectChanges(ctx context.Context, question types.QuestionMetadata, previous, current types.NewsSnapshot) (types.ChangeReport, error)
}

// Notifier delivers alerts for significant updates.
type Notifier interface {
	SendChangeAlert(updates []types.NewsUpdate) error
}

// Storage is the persistence surface the runner needs.
type Storage interface {
	SaveQuestion(question types.QuestionMetadata) error
	SaveNews(questionID int, snapshot types.NewsSnapshot) error
	LoadLatestNews(questionID int) (*types.NewsSnapshot, error)
	SaveSeries(seriesID int, questionIDs []int) error
}

// Config holds runner construction parameters. Enhancer and Notifier
// are optional; everything else is required.
type Config struct {
	Questions QuestionSource
	Fetcher   NewsFetcher
	Enhancer  ArticleEnhancer
	Detector  ChangeDetector
	Notifier  Notifier
	Store     Storage

	QuestionIDs []int
	SeriesIDs   []int
	MaxArticles int
}

// Runner executes monitoring cycles.
type Runner struct {
	cfg Config
}

// New creates a Runner from the given config.
func New(cfg Config) (*Runner, error) {
	switch {
	case cfg.Questions == nil:
		return nil, fmt.Errorf("question source is required")
	case cfg.Fetcher == nil:
		return nil, fmt.Errorf("news fetcher is required")
	case cfg.Detector == nil:
		return nil, fmt.Errorf("change detector is required")
	case cfg.Store == nil:
		return nil, fmt.Errorf("storage is required")
	}
	if cfg.MaxArticles <= 0 {
		cfg.MaxArticles = news.DefaultMaxArticles
	}
	return &Runner{cfg: cfg}, nil
}

// Run executes one full monitoring cycle over the configured questions
// and series. A failure on one question is reported and the cycle
// continues with the rest.
func (r *Runner) Run(ctx context.Context) error {
	postIDs, err := r.resolvePostIDs(ctx)
	if err != nil {
		return err
	}
	if len(postIDs) == 0 {
		return fmt.Errorf("no questions to process")
	}

	fmt.Printf("Processing %d question(s)\n", len(postIDs))

	var updates []types.NewsUpdate
	failures := 0
	for _, postID := range postIDs {
		update, err := r.ProcessQuestion(ctx, postID)
		if err != nil {
			failures++
			fmt.Fprintf(os.Stderr, "error: question %d: %v\n", postID, err)
			continue
		}
		updates = append(updates, *update)
	}

	printSummary(updates)

	if r.cfg.Notifier != nil {
		if err := r.cfg.Notifier.SendChangeAlert(updates); err != nil {
			fmt.Fprintf(os.Stderr, "error: notification: %v\n", err)
		}
	}

	if failures == len(postIDs) {
		return fmt.Errorf("all %d question(s) failed", failures)
	}
	return nil
}

// ProcessQuestion runs the pipeline for a single question: fetch
// metadata, fetch and enhance news, merge with the stored snapshot,
// judge significance, and persist the results.
func (r *Runner) ProcessQuestion(ctx context.Context, postID int) (*types.NewsUpdate, error) {
	question, err := r.cfg.Questions.GetQuestion(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("fetching question metadata: %w", err)
	}
	fmt.Printf("Processing question %d: %s\n", question.QuestionID, question.Title)

	previous, err := r.cfg.Store.LoadLatestNews(question.QuestionID)
	if err != nil {
		return nil, fmt.Errorf("loading previous snapshot: %w", err)
	}

	// Overlap the search window with the last fetch rather than starting
	// exactly where it ended; the URL dedup in merge absorbs repeats.
	var since *time.Time
	if previous != nil {
		t := previous.FetchedAt.Add(-fetchOverlap)
		since = &t
	}

	fetched, err := r.cfg.Fetcher.FetchNewsForQuestion(ctx, *question, since)
	if err != nil {
		return nil, fmt.Errorf("fetching news: %w", err)
	}
	fmt.Printf("  Found %d article(s)\n", len(fetched.Articles))

	if r.cfg.Enhancer != nil {
		fetched.Articles = r.cfg.Enhancer.EnhanceArticles(ctx, fetched.Articles)
	}

	merged := news.MergeWithPrevious(fetched, previous, r.cfg.MaxArticles)

	report, err := r.judge(ctx, *question, previous, merged)
	if err != nil {
		return nil, err
	}

	if err := r.cfg.Store.SaveNews(question.QuestionID, merged); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}
	if err := r.cfg.Store.SaveQuestion(*question); err != nil {
		return nil, fmt.Errorf("saving question: %w", err)
	}

	return &types.NewsUpdate{
		Question:     *question,
		NewsSnapshot: merged,
		ChangeReport: report,
	}, nil
}

// judge produces the change verdict for this cycle. The first run for
// a question has no baseline to compare against: any articles at all
// are treated as a maximally significant change, and no articles at
// all means no verdict.
func (r *Runner) judge(ctx context.Context, question types.QuestionMetadata, previous *types.NewsSnapshot, current types.NewsSnapshot) (*types.ChangeReport, error) {
	if previous == nil {
		if len(current.Articles) == 0 {
			return nil, nil
		}
		return &types.ChangeReport{
			QuestionID:        question.QuestionID,
			DetectedAt:        time.Now().UTC(),
			CurrentSnapshotID: current.SnapshotID,
			ChangeSummary:     fmt.Sprintf("First news aggregation: found %d relevant article(s).", len(current.Articles)),
			SignificanceScore: 1.0,
			IsSignificant:     true,
			NewArticles:       current.Articles,
		}, nil
	}

	report, err := r.cfg.Detector.DetectChanges(ctx, question, *previous, current)
	if err != nil {
		return nil, fmt.Errorf("detecting changes: %w", err)
	}
	return &report, nil
}

// resolvePostIDs expands the configured series into their question post
// IDs, persists each series mapping, and merges with the directly
// configured question IDs, deduplicated in first-seen order.
func (r *Runner) resolvePostIDs(ctx context.Context) ([]int, error) {
	seen := make(map[int]bool)
	var postIDs []int
	add := func(id int) {
		if !seen[id] {
			seen[id] = true
			postIDs = append(postIDs, id)
		}
	}

	for _, id := range r.cfg.QuestionIDs {
		add(id)
	}

	for _, seriesID := range r.cfg.SeriesIDs {
		questions, err := r.cfg.Questions.GetQuestionsInSeries(ctx, seriesID)
		if err != nil {
			return nil, fmt.Errorf("resolving series %d: %w", seriesID, err)
		}

		ids := make([]int, 0, len(questions))
		for _, q := range questions {
			ids = append(ids, q.PostID)
			add(q.PostID)
		}
		if err := r.cfg.Store.SaveSeries(seriesID, ids); err != nil {
			return nil, fmt.Errorf("saving series %d: %w", seriesID, err)
		}
	}

	return postIDs, nil
}

// printSummary renders the per-question outcome of a cycle. Questions
// with no verdict (first run, no articles) are called out separately
// from questions whose changes were judged insignificant.
func printSummary(updates []types.NewsUpdate) {
	significant := color.New(color.FgRed, color.Bold)
	quiet := color.New(color.FgGreen)
	neutral := color.New(color.Faint)

	significantCount := 0
	for _, u := range updates {
		if u.ChangeReport != nil && u.ChangeReport.IsSignificant {
			significantCount++
		}
	}

	fmt.Println()
	fmt.Println("=== Run summary ===")
	fmt.Printf("Processed %d question(s), %d significant\n", len(updates), significantCount)
	for _, u := range updates {
		switch {
		case u.ChangeReport == nil:
			neutral.Printf("    %d: no news found yet: %s\n", u.Question.QuestionID, u.Question.Title)
		case u.ChangeReport.IsSignificant:
			significant.Printf("*** %d: SIGNIFICANT (%.2f): %s\n", u.Question.QuestionID, u.ChangeReport.SignificanceScore, u.Question.Title)
			fmt.Printf("    %s\n", u.ChangeReport.ChangeSummary)
		default:
			quiet.Printf("    %d: no significant change (%.2f): %s\n", u.Question.QuestionID, u.ChangeReport.SignificanceScore, u.Question.Title)
		}
	}
}
