// Package types defines the domain model shared across newswatch:
// questions, articles, snapshots, and change reports.
package types

import "time"

// QuestionType identifies the resolution shape of a forecasting question.
type QuestionType string

const (
	QuestionBinary         QuestionType = "binary"
	QuestionNumeric        QuestionType = "numeric"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionDiscrete       QuestionType = "discrete"
)

// QuestionMetadata holds everything we track about a Metaculus question.
type QuestionMetadata struct {
	QuestionID         int          `json:"question_id"`
	PostID             int          `json:"post_id"`
	Title              string       `json:"title"`
	QuestionType       QuestionType `json:"question_type"`
	ResolutionCriteria string       `json:"resolution_criteria"`
	FinePrint          string       `json:"fine_print,omitempty"`
	BackgroundInfo     string       `json:"background_info"`
	ScheduledCloseTime *time.Time   `json:"scheduled_close_time,omitempty"`
	PageURL            string       `json:"page_url"`
	SeriesID           *int         `json:"series_id,omitempty"`
	LastFetched        time.Time    `json:"last_fetched"`

	// Numeric question bounds
	UnitOfMeasure  string   `json:"unit_of_measure,omitempty"`
	UpperBound     *float64 `json:"upper_bound,omitempty"`
	LowerBound     *float64 `json:"lower_bound,omitempty"`
	OpenUpperBound *bool    `json:"open_upper_bound,omitempty"`
	OpenLowerBound *bool    `json:"open_lower_bound,omitempty"`
	ZeroPoint      *float64 `json:"zero_point,omitempty"`

	// Multiple choice options
	Options []string `json:"options,omitempty"`
}

// NewsArticle is a single retrieved news item. Articles are immutable
// once fetched; only the content enhancer may fill in FullText before
// the article enters a snapshot.
type NewsArticle struct {
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	Summary        string     `json:"summary"`
	FullText       string     `json:"full_text,omitempty"`
	PublishedDate  *time.Time `json:"published_date,omitempty"`
	Source         string     `json:"source"`
	RelevanceScore *float64   `json:"relevance_score,omitempty"`
}

// snapshotIDLayout is the sortable, filesystem-safe identifier format
// derived from the fetch timestamp (one-second resolution).
const snapshotIDLayout = "2006-01-02T15-04-05"

// SnapshotID derives a snapshot identifier from a fetch timestamp.
func SnapshotID(fetchedAt time.Time) string {
	return fetchedAt.UTC().Format(snapshotIDLayout)
}

// ParseSnapshotID recovers the fetch timestamp from a snapshot identifier.
func ParseSnapshotID(id string) (time.Time, error) {
	return time.Parse(snapshotIDLayout, id)
}

// NewsSnapshot is an immutable bundle of deduplicated articles for one
// question at one fetch time. Articles are ordered newest/most-relevant
// first. No two articles in a snapshot share a URL.
type NewsSnapshot struct {
	QuestionID  int           `json:"question_id"`
	FetchedAt   time.Time     `json:"fetched_at"`
	Articles    []NewsArticle `json:"articles"`
	SearchQuery string        `json:"search_query"`
	SnapshotID  string        `json:"snapshot_id"`
}

// NewNewsSnapshot builds a snapshot with its identifier derived from
// the fetch timestamp.
func NewNewsSnapshot(questionID int, fetchedAt time.Time, articles []NewsArticle, searchQuery string) NewsSnapshot {
	return NewsSnapshot{
		QuestionID:  questionID,
		FetchedAt:   fetchedAt,
		Articles:    articles,
		SearchQuery: searchQuery,
		SnapshotID:  SnapshotID(fetchedAt),
	}
}

// ChangeReport is the change classifier's verdict on the transition
// between two snapshots. It is created once per comparison and never
// mutated; the runner consumes it for notification within the same run.
type ChangeReport struct {
	QuestionID         int           `json:"question_id"`
	DetectedAt         time.Time     `json:"detected_at"`
	PreviousSnapshotID string        `json:"previous_snapshot_id"`
	CurrentSnapshotID  string        `json:"current_snapshot_id"`
	ChangeSummary      string        `json:"change_summary"`
	SignificanceScore  float64       `json:"significance_score"`
	IsSignificant      bool          `json:"is_significant"`
	NewArticles        []NewsArticle `json:"new_articles"`
}

// NewsUpdate bundles the outcome of processing one question in one run.
// A nil ChangeReport means no verdict was produced, which is distinct
// from a verdict that was produced but not significant.
type NewsUpdate struct {
	Question     QuestionMetadata `json:"question"`
	NewsSnapshot NewsSnapshot     `json:"news_snapshot"`
	ChangeReport *ChangeReport    `json:"change_report,omitempty"`
}
