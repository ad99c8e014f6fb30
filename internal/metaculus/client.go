// Package metaculus is a read-only client for the Metaculus API,
// paced to roughly one request per second with exponential backoff
// on rate-limit responses.
package metaculus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/forecastlabs/newswatch/internal/types"
)

const (
	defaultBaseURL = "https://www.metaculus.com/api"

	maxRetries     = 5
	initialBackoff = 2 * time.Second
)

// ClientConfig holds client construction parameters.
type ClientConfig struct {
	Token      string       // optional API token
	BaseURL    string       // defaults to the public Metaculus API
	HTTPClient *http.Client // defaults to a 30s-timeout client
}

// Client fetches question metadata. All requests pass through a shared
// rate limiter; HTTP 429 responses are retried with exponential backoff.
type Client struct {
	token   string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Client from the given config.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		token:   cfg.Token,
		baseURL: baseURL,
		client:  client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// GetQuestion fetches a single question by post ID.
func (c *Client) GetQuestion(ctx context.Context, postID int) (*types.QuestionMetadata, error) {
	body, err := c.getWithRetry(ctx, fmt.Sprintf("%s/posts/%d/", c.baseURL, postID), nil)
	if err != nil {
		return nil, err
	}

	var post postResponse
	if err := json.Unmarshal(body, &post); err != nil {
		return nil, fmt.Errorf("decoding post %d: %w", postID, err)
	}
	return parsePost(post, nil)
}

// GetQuestionsInSeries fetches all questions in a series/project.
func (c *Client) GetQuestionsInSeries(ctx context.Context, seriesID int) ([]types.QuestionMetadata, error) {
	params := url.Values{
		"project":             {strconv.Itoa(seriesID)},
		"limit":               {"100"},
		"include_description": {"true"},
	}
	body, err := c.getWithRetry(ctx, c.baseURL+"/posts/", params)
	if err != nil {
		return nil, err
	}

	var list struct {
		Results []postResponse `json:"results"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("decoding series %d: %w", seriesID, err)
	}

	questions := make([]types.QuestionMetadata, 0, len(list.Results))
	for _, post := range list.Results {
		q, err := parsePost(post, &seriesID)
		if err != nil {
			// Posts without an embedded question (e.g. notebooks) are skipped.
			continue
		}
		questions = append(questions, *q)
	}
	return questions, nil
}

// getWithRetry issues a rate-limited GET, backing off exponentially on
// HTTP 429 up to maxRetries attempts.
func (c *Client) getWithRetry(ctx context.Context, rawURL string, params url.Values) ([]byte, error) {
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		if params != nil {
			req.URL.RawQuery = params.Encode()
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Token "+c.token)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("metaculus request failed: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			resp.Body.Close()
			fmt.Printf("Metaculus rate limited (429), waiting %v before retry\n", backoff)
			select {
			case <-time.After(backoff):
				backoff *= 2
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("metaculus API %d for %s", resp.StatusCode, rawURL)
		}
		if readErr != nil {
			return nil, fmt.Errorf("reading metaculus response: %w", readErr)
		}
		return body, nil
	}

	return nil, fmt.Errorf("metaculus request to %s failed after %d attempts (rate limited)", rawURL, maxRetries)
}

type postResponse struct {
	ID       int           `json:"id"`
	Question *questionData `json:"question"`
}

type questionData struct {
	ID                 int      `json:"id"`
	Title              string   `json:"title"`
	Type               string   `json:"type"`
	ResolutionCriteria string   `json:"resolution_criteria"`
	FinePrint          string   `json:"fine_print"`
	Description        string   `json:"description"`
	ScheduledCloseTime string   `json:"scheduled_close_time"`
	Unit               string   `json:"unit"`
	OpenUpperBound     *bool    `json:"open_upper_bound"`
	OpenLowerBound     *bool    `json:"open_lower_bound"`
	Options            []string `json:"options"`
	Scaling            *struct {
		RangeMax  *float64 `json:"range_max"`
		RangeMin  *float64 `json:"range_min"`
		ZeroPoint *float64 `json:"zero_point"`
	} `json:"scaling"`
}

func parsePost(post postResponse, seriesID *int) (*types.QuestionMetadata, error) {
	q := post.Question
	if q == nil {
		return nil, fmt.Errorf("post %d has no question", post.ID)
	}

	questionID := q.ID
	if questionID == 0 {
		questionID = post.ID
	}

	questionType := types.QuestionType(q.Type)
	if questionType == "" {
		questionType = types.QuestionBinary
	}

	var closeTime *time.Time
	if q.ScheduledCloseTime != "" {
		if t, err := time.Parse(time.RFC3339, q.ScheduledCloseTime); err == nil {
			closeTime = &t
		}
	}

	meta := &types.QuestionMetadata{
		QuestionID:         questionID,
		PostID:             post.ID,
		Title:              q.Title,
		QuestionType:       questionType,
		ResolutionCriteria: q.ResolutionCriteria,
		FinePrint:          q.FinePrint,
		BackgroundInfo:     q.Description,
		ScheduledCloseTime: closeTime,
		PageURL:            fmt.Sprintf("https://www.metaculus.com/questions/%d/", post.ID),
		SeriesID:           seriesID,
		LastFetched:        time.Now().UTC(),
		UnitOfMeasure:      q.Unit,
		OpenUpperBound:     q.OpenUpperBound,
		OpenLowerBound:     q.OpenLowerBound,
	}

	if q.Scaling != nil {
		meta.UpperBound = q.Scaling.RangeMax
		meta.LowerBound = q.Scaling.RangeMin
		meta.ZeroPoint = q.Scaling.ZeroPoint
	}
	if questionType == types.QuestionMultipleChoice {
		meta.Options = q.Options
	}

	return meta, nil
}
