// Package detector decides whether the news delta between two
// snapshots of a forecasting question is significant enough to alert
// a human. The judgment comes from a single LLM call wrapped in
// deterministic guardrails: an empty-delta short circuit, a defensive
// JSON parse cascade, and a conservative fallback verdict.
package detector

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/forecastlabs/newswatch/internal/news"
	"github.com/forecastlabs/newswatch/internal/types"
)

const (
	// maxPromptArticles bounds how many articles from each side of the
	// comparison are shown to the model. The returned report still
	// carries the full new-article list.
	maxPromptArticles = 10

	maxPreviousSummaryChars = 150
	maxNewArticleChars      = 300
)

const changeDetectionPrompt = `You are analyzing news changes for a forecasting question.

Question: %s
Resolution Criteria: %s

Previous news summary (from %s):
%s

New articles since then:
%s

Analyze whether these new articles represent a SIGNIFICANT change that would:
1. Materially affect the probability of the question's outcome
2. Introduce new key information that wasn't previously available
3. Change the status quo assumption

Respond with ONLY a JSON object in this exact format (no other text):
{
    "SIGNIFICANCE_SCORE": <number from 0.0 to 1.0>,
    "IS_SIGNIFICANT": <true if the change is significant, false otherwise>,
    "CHANGE_SUMMARY": "<2-3 sentence summary of what changed and why it matters>"
}`

// TextGenerator produces one completion for one prompt. Implementations
// own their request-level timeout; the detector adds no retry of its own.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config holds detector construction parameters.
type Config struct {
	// Generator is the text-generation client handle. Required.
	Generator TextGenerator
	// SignificanceThreshold is the score cutoff above which a verdict
	// is significant regardless of the model's own flag. Required;
	// there is no internal default.
	SignificanceThreshold float64
}

// Detector compares two news snapshots and produces a ChangeReport.
type Detector struct {
	gen       TextGenerator
	threshold float64
}

// New creates a Detector from the given config.
func New(cfg *Config) (*Detector, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("text generator is required")
	}
	if cfg.SignificanceThreshold <= 0 || cfg.SignificanceThreshold >= 1 {
		return nil, fmt.Errorf("significance threshold must be in (0, 1), got %v", cfg.SignificanceThreshold)
	}
	return &Detector{gen: cfg.Generator, threshold: cfg.SignificanceThreshold}, nil
}

// DetectChanges compares the previous and current snapshots of a
// question and returns a significance verdict.
//
// When the current snapshot introduces no new URLs, a zero-score
// verdict is returned without calling the model. A network or API
// failure from the generator propagates to the caller. A reply that
// cannot be parsed is downgraded to a fallback verdict (score 0.5,
// significant) rather than failing the run.
func (d *Detector) DetectChanges(ctx context.Context, question types.QuestionMetadata, previous, current types.NewsSnapshot) (types.ChangeReport, error) {
	// Re-derive the delta here; the caller may not have filtered.
	newArticles := news.NewArticles(current, &previous)

	if len(newArticles) == 0 {
		return types.ChangeReport{
			QuestionID:         question.QuestionID,
			DetectedAt:         time.Now().UTC(),
			PreviousSnapshotID: previous.SnapshotID,
			CurrentSnapshotID:  current.SnapshotID,
			ChangeSummary:      "No new articles found since last check.",
			SignificanceScore:  0.0,
			IsSignificant:      false,
			NewArticles:        []types.NewsArticle{},
		}, nil
	}

	prompt := fmt.Sprintf(changeDetectionPrompt,
		question.Title,
		question.ResolutionCriteria,
		previous.FetchedAt.UTC().Format("2006-01-02 15:04"),
		summarizeArticles(previous.Articles),
		formatNewArticles(newArticles),
	)

	replyText, err := d.gen.Generate(ctx, prompt)
	if err != nil {
		return types.ChangeReport{}, fmt.Errorf("change detection call failed: %w", err)
	}

	result, ok := parseDetectionResponse(replyText)
	if !ok {
		// Malformed reply: err toward notifying rather than silently
		// dropping a possibly-important change.
		result = detectionResponse{
			SignificanceScore: 0.5,
			IsSignificant:     true,
			ChangeSummary:     fmt.Sprintf("New articles found but analysis failed: %d new article(s)", len(newArticles)),
		}
	}

	// The threshold can only add significance, never suppress an
	// explicit true flag from the model.
	isSignificant := result.IsSignificant || result.SignificanceScore > d.threshold

	return types.ChangeReport{
		QuestionID:         question.QuestionID,
		DetectedAt:         time.Now().UTC(),
		PreviousSnapshotID: previous.SnapshotID,
		CurrentSnapshotID:  current.SnapshotID,
		ChangeSummary:      result.ChangeSummary,
		SignificanceScore:  result.SignificanceScore,
		IsSignificant:      isSignificant,
		NewArticles:        newArticles,
	}, nil
}

// summarizeArticles renders a compact bullet list of up to the first
// ten previous articles for the prompt.
func summarizeArticles(articles []types.NewsArticle) string {
	if len(articles) == 0 {
		return "No previous articles."
	}
	if len(articles) > maxPromptArticles {
		articles = articles[:maxPromptArticles]
	}

	var sb strings.Builder
	for i, a := range articles {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("- [%s] %s", publishedDateLabel(a), a.Title))
		if a.Summary != "" {
			sb.WriteString(": ")
			sb.WriteString(truncate(a.Summary, maxPreviousSummaryChars))
		}
	}
	return sb.String()
}

// formatNewArticles renders up to the first ten new articles for the
// prompt, preferring the summary and falling back to full text.
func formatNewArticles(articles []types.NewsArticle) string {
	if len(articles) == 0 {
		return "No new articles."
	}
	if len(articles) > maxPromptArticles {
		articles = articles[:maxPromptArticles]
	}

	var sb strings.Builder
	for i, a := range articles {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("[%d] %s\n", i+1, a.Title))
		sb.WriteString(fmt.Sprintf("    Source: %s, Date: %s\n", a.Source, publishedDateLabel(a)))
		switch {
		case a.Summary != "":
			sb.WriteString(fmt.Sprintf("    Summary: %s\n", truncate(a.Summary, maxNewArticleChars)))
		case a.FullText != "":
			sb.WriteString(fmt.Sprintf("    Content: %s\n", truncate(a.FullText, maxNewArticleChars)))
		}
	}
	return sb.String()
}

func publishedDateLabel(a types.NewsArticle) string {
	if a.PublishedDate == nil {
		return "Unknown"
	}
	return a.PublishedDate.UTC().Format("2006-01-02")
}
