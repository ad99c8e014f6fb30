package news

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/forecastlabs/newswatch/internal/types"
)

const (
	defaultExaBaseURL = "https://api.exa.ai"

	// maxCriteriaChars limits how much resolution-criteria text goes
	// into the search query.
	maxCriteriaChars = 200

	// maxTextChars caps the article body text requested from Exa.
	maxTextChars = 10000
)

// FetcherConfig holds fetcher construction parameters.
type FetcherConfig struct {
	APIKey     string
	BaseURL    string       // defaults to the Exa API endpoint
	NumResults int          // max results per search (default 15)
	HTTPClient *http.Client // defaults to a 30s-timeout client
}

// Fetcher retrieves news articles related to forecasting questions
// from the Exa search API.
type Fetcher struct {
	apiKey     string
	baseURL    string
	numResults int
	client     *http.Client
}

// NewFetcher creates a Fetcher from the given config.
func NewFetcher(cfg FetcherConfig) (*Fetcher, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("exa API key is required")
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultExaBaseURL
	}
	numResults := cfg.NumResults
	if numResults <= 0 {
		numResults = 15
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		numResults: numResults,
		client:     client,
	}, nil
}

type exaTextOptions struct {
	MaxCharacters int `json:"maxCharacters"`
}

type exaSearchRequest struct {
	Query              string         `json:"query"`
	NumResults         int            `json:"numResults"`
	Text               exaTextOptions `json:"text"`
	UseAutoprompt      bool           `json:"useAutoprompt"`
	StartPublishedDate string         `json:"startPublishedDate,omitempty"`
}

type exaResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	PublishedDate string   `json:"publishedDate"`
	Text          string   `json:"text"`
	Highlights    []string `json:"highlights"`
	Score         *float64 `json:"score"`
}

type exaSearchResponse struct {
	Results []exaResult `json:"results"`
}

// FetchNewsForQuestion fetches news related to a question. When since
// is non-nil, only articles published after that date are requested.
func (f *Fetcher) FetchNewsForQuestion(ctx context.Context, question types.QuestionMetadata, since *time.Time) (types.NewsSnapshot, error) {
	searchQuery := BuildSearchQuery(question)

	reqBody := exaSearchRequest{
		Query:         searchQuery,
		NumResults:    f.numResults,
		Text:          exaTextOptions{MaxCharacters: maxTextChars},
		UseAutoprompt: true,
	}
	if since != nil {
		reqBody.StartPublishedDate = since.UTC().Format("2006-01-02")
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return types.NewsSnapshot{}, fmt.Errorf("encoding exa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return types.NewsSnapshot{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return types.NewsSnapshot{}, fmt.Errorf("exa API error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return types.NewsSnapshot{}, fmt.Errorf("exa API %d: %s", resp.StatusCode, string(b))
	}

	var sr exaSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return types.NewsSnapshot{}, fmt.Errorf("decoding exa response: %w", err)
	}

	articles := make([]types.NewsArticle, 0, len(sr.Results))
	for _, result := range sr.Results {
		articles = append(articles, parseExaResult(result))
	}

	return types.NewNewsSnapshot(question.QuestionID, time.Now().UTC(), articles, searchQuery), nil
}

// BuildSearchQuery builds a semantic search query from question content:
// the title, then up to 200 characters of resolution criteria.
func BuildSearchQuery(question types.QuestionMetadata) string {
	parts := []string{question.Title}
	if criteria := question.ResolutionCriteria; criteria != "" {
		if len(criteria) > maxCriteriaChars {
			criteria = criteria[:maxCriteriaChars]
		}
		parts = append(parts, criteria)
	}
	return strings.Join(parts, ". ")
}

func parseExaResult(result exaResult) types.NewsArticle {
	var published *time.Time
	if result.PublishedDate != "" {
		if t, err := time.Parse(time.RFC3339, result.PublishedDate); err == nil {
			published = &t
		}
	}

	summary := ""
	if len(result.Highlights) > 0 {
		summary = result.Highlights[0]
	}

	return types.NewsArticle{
		URL:            result.URL,
		Title:          result.Title,
		Summary:        summary,
		FullText:       result.Text,
		PublishedDate:  published,
		Source:         sourceFromURL(result.URL),
		RelevanceScore: result.Score,
	}
}

// sourceFromURL derives a source label from an article URL's host,
// with any leading "www." stripped.
func sourceFromURL(raw string) string {
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(parsed.Host, "www.")
}
