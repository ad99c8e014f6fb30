package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotID(t *testing.T) {
	tests := []struct {
		name     string
		fetched  time.Time
		expected string
	}{
		{
			name:     "UTC timestamp",
			fetched:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
			expected: "2026-03-14T09-26-53",
		},
		{
			name:     "non-UTC timestamp is normalized",
			fetched:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.FixedZone("EST", -5*3600)),
			expected: "2026-03-14T14-26-53",
		},
		{
			name:     "sub-second precision is dropped",
			fetched:  time.Date(2026, 3, 14, 9, 26, 53, 999999999, time.UTC),
			expected: "2026-03-14T09-26-53",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SnapshotID(tt.fetched))
		})
	}
}

func TestParseSnapshotID_RoundTrip(t *testing.T) {
	fetched := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	id := SnapshotID(fetched)

	parsed, err := ParseSnapshotID(id)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(fetched))
}

func TestParseSnapshotID_Invalid(t *testing.T) {
	_, err := ParseSnapshotID("latest")
	assert.Error(t, err)
}

func TestNewNewsSnapshot_SetsID(t *testing.T) {
	fetched := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	snap := NewNewsSnapshot(4321, fetched, nil, "some query")

	assert.Equal(t, 4321, snap.QuestionID)
	assert.Equal(t, "2026-01-02T03-04-05", snap.SnapshotID)
	assert.Equal(t, "some query", snap.SearchQuery)
}

func TestNewsSnapshot_JSONRoundTrip(t *testing.T) {
	published := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	score := 0.87
	snap := NewNewsSnapshot(99, time.Date(2026, 2, 2, 8, 30, 0, 0, time.UTC), []NewsArticle{
		{URL: "https://example.com/a", Title: "A", Summary: "first", Source: "example.com", PublishedDate: &published, RelevanceScore: &score},
		{URL: "https://example.com/b", Title: "B", Summary: "second", Source: "example.com", FullText: "body text"},
	}, "q title. criteria")

	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var decoded NewsSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.Equal(t, snap.SnapshotID, decoded.SnapshotID)
	require.Len(t, decoded.Articles, 2)
	for i := range snap.Articles {
		assert.Equal(t, snap.Articles[i].URL, decoded.Articles[i].URL)
	}
	assert.True(t, decoded.FetchedAt.Equal(snap.FetchedAt))
}
