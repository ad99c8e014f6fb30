package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastlabs/newswatch/internal/types"
)

const testPage = `<!DOCTYPE html>
<html>
<head><title>Test Article</title></head>
<body>
<article>
<h1>Test Article</h1>
<p>%s</p>
</article>
</body>
</html>`

func TestEnhanceArticles_FillsThinContent(t *testing.T) {
	body := strings.Repeat("Substantive reporting on the question at hand. ", 40)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, testPage, body)
	}))
	defer server.Close()

	enhancer := NewEnhancer(EnhancerConfig{MinContentLength: 500, MaxConcurrent: 2})

	articles := []types.NewsArticle{
		{URL: server.URL + "/thin", Title: "Thin", FullText: "short"},
		{URL: server.URL + "/rich", Title: "Rich", FullText: strings.Repeat("x", 600)},
	}

	enhanced := enhancer.EnhanceArticles(context.Background(), articles)

	require.Len(t, enhanced, 2)
	assert.Contains(t, enhanced[0].FullText, "Substantive reporting")
	assert.Equal(t, strings.Repeat("x", 600), enhanced[1].FullText, "rich articles are untouched")
	// Input slice is not mutated.
	assert.Equal(t, "short", articles[0].FullText)
}

func TestEnhanceArticles_FailuresAreNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	enhancer := NewEnhancer(EnhancerConfig{MinContentLength: 500})

	articles := []types.NewsArticle{
		{URL: server.URL + "/missing", Title: "Missing", FullText: "short"},
		{URL: "", Title: "No URL"},
	}

	enhanced := enhancer.EnhanceArticles(context.Background(), articles)

	require.Len(t, enhanced, 2)
	assert.Equal(t, "short", enhanced[0].FullText, "failed enhancement keeps original text")
	assert.Empty(t, enhanced[1].FullText)
}

func TestEnhanceArticles_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	enhancer := NewEnhancer(EnhancerConfig{})
	articles := []types.NewsArticle{{URL: "https://example.com/a", FullText: "short"}}

	enhanced := enhancer.EnhanceArticles(ctx, articles)

	require.Len(t, enhanced, 1)
	assert.Equal(t, "short", enhanced[0].FullText)
}
