package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastlabs/newswatch/internal/types"
)

func TestBuildSearchQuery(t *testing.T) {
	tests := []struct {
		name     string
		question types.QuestionMetadata
		expected string
	}{
		{
			name:     "title only",
			question: types.QuestionMetadata{Title: "Will X happen by 2027?"},
			expected: "Will X happen by 2027?",
		},
		{
			name: "title with criteria",
			question: types.QuestionMetadata{
				Title:              "Will X happen by 2027?",
				ResolutionCriteria: "Resolves YES if X occurs.",
			},
			expected: "Will X happen by 2027?. Resolves YES if X occurs.",
		},
		{
			name: "criteria truncated to 200 chars",
			question: types.QuestionMetadata{
				Title:              "T",
				ResolutionCriteria: strings.Repeat("c", 500),
			},
			expected: "T. " + strings.Repeat("c", 200),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BuildSearchQuery(tt.question))
		})
	}
}

func TestFetchNewsForQuestion(t *testing.T) {
	var gotRequest exaSearchRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotRequest))

		resp := exaSearchResponse{Results: []exaResult{
			{
				URL:           "https://www.reuters.com/article/1",
				Title:         "First article",
				PublishedDate: "2026-05-01T08:00:00Z",
				Text:          "full body",
				Highlights:    []string{"key highlight", "second highlight"},
				Score:         floatPtr(0.91),
			},
			{
				URL:           "https://example.org/2",
				Title:         "Second article",
				PublishedDate: "not-a-date",
			},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	fetcher, err := NewFetcher(FetcherConfig{APIKey: "test-key", BaseURL: server.URL, NumResults: 5})
	require.NoError(t, err)

	since := time.Date(2026, 4, 30, 12, 0, 0, 0, time.UTC)
	question := types.QuestionMetadata{QuestionID: 777, Title: "Q", ResolutionCriteria: "criteria"}

	snap, err := fetcher.FetchNewsForQuestion(context.Background(), question, &since)
	require.NoError(t, err)

	assert.Equal(t, "Q. criteria", gotRequest.Query)
	assert.Equal(t, 5, gotRequest.NumResults)
	assert.Equal(t, "2026-04-30", gotRequest.StartPublishedDate)
	assert.Equal(t, maxTextChars, gotRequest.Text.MaxCharacters)

	assert.Equal(t, 777, snap.QuestionID)
	assert.NotEmpty(t, snap.SnapshotID)
	require.Len(t, snap.Articles, 2)

	first := snap.Articles[0]
	assert.Equal(t, "reuters.com", first.Source, "www. prefix stripped from host")
	assert.Equal(t, "key highlight", first.Summary, "first highlight becomes the summary")
	require.NotNil(t, first.PublishedDate)
	assert.Equal(t, 2026, first.PublishedDate.Year())
	require.NotNil(t, first.RelevanceScore)
	assert.Equal(t, 0.91, *first.RelevanceScore)

	second := snap.Articles[1]
	assert.Equal(t, "example.org", second.Source)
	assert.Nil(t, second.PublishedDate, "unparsable date is tolerated")
	assert.Empty(t, second.Summary)
}

func TestFetchNewsForQuestion_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	fetcher, err := NewFetcher(FetcherConfig{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = fetcher.FetchNewsForQuestion(context.Background(), types.QuestionMetadata{Title: "Q"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestNewFetcher_RequiresAPIKey(t *testing.T) {
	_, err := NewFetcher(FetcherConfig{})
	assert.Error(t, err)
}

func floatPtr(f float64) *float64 { return &f }
