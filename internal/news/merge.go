// Package news retrieves articles for forecasting questions and
// maintains the bounded, deduplicated per-question snapshot history.
package news

import (
	"github.com/forecastlabs/newswatch/internal/types"
)

// DefaultMaxArticles bounds how many articles a merged snapshot keeps.
const DefaultMaxArticles = 50

// MergeWithPrevious produces the snapshot that becomes the new "current"
// state: articles from newSnap whose URLs are unseen are prepended, in
// their original relative order, to the entire previous article list,
// and the result is truncated to maxArticles. Old articles fall off the
// tail once the bound is exceeded.
//
// The fresh batch is also deduplicated within itself (first occurrence
// wins) so the snapshot invariant — no two articles share a URL — holds
// even when retrieval returns duplicates.
//
// Pure function: neither input snapshot is mutated. A nil previous
// snapshot returns newSnap unchanged.
func MergeWithPrevious(newSnap types.NewsSnapshot, previous *types.NewsSnapshot, maxArticles int) types.NewsSnapshot {
	if maxArticles <= 0 {
		maxArticles = DefaultMaxArticles
	}
	if previous == nil {
		return newSnap
	}

	seen := make(map[string]bool, len(previous.Articles))
	for _, a := range previous.Articles {
		seen[a.URL] = true
	}

	merged := make([]types.NewsArticle, 0, len(newSnap.Articles)+len(previous.Articles))
	for _, a := range newSnap.Articles {
		if seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		merged = append(merged, a)
	}
	merged = append(merged, previous.Articles...)

	if len(merged) > maxArticles {
		merged = merged[:maxArticles]
	}

	return types.NewsSnapshot{
		QuestionID:  newSnap.QuestionID,
		FetchedAt:   newSnap.FetchedAt,
		Articles:    merged,
		SearchQuery: newSnap.SearchQuery,
		SnapshotID:  newSnap.SnapshotID,
	}
}

// NewArticles returns the articles in current that are absent from
// previous, by URL, preserving current's order. A nil previous snapshot
// returns current's articles unfiltered.
func NewArticles(current types.NewsSnapshot, previous *types.NewsSnapshot) []types.NewsArticle {
	if previous == nil {
		return current.Articles
	}

	previousURLs := make(map[string]bool, len(previous.Articles))
	for _, a := range previous.Articles {
		previousURLs[a.URL] = true
	}

	var fresh []types.NewsArticle
	for _, a := range current.Articles {
		if !previousURLs[a.URL] {
			fresh = append(fresh, a)
		}
	}
	return fresh
}
