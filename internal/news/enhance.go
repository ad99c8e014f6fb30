package news

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	readability "github.com/go-shiori/go-readability"
	"golang.org/x/sync/semaphore"

	"github.com/forecastlabs/newswatch/internal/types"
)

// maxEnhanceBody caps how much of a page we read when extracting
// full text for a thin article.
const maxEnhanceBody = 2 << 20 // 2MB

// EnhancerConfig holds enhancer construction parameters.
type EnhancerConfig struct {
	MinContentLength int          // full-text length below which enhancement kicks in (default 500)
	MaxConcurrent    int64        // concurrent page fetches (default 3)
	HTTPClient       *http.Client // defaults to a 20s-timeout client
}

// Enhancer fills in FullText for articles whose retrieved body is too
// thin to be useful, by fetching the page and extracting its readable
// content. Enhancement runs before merge, so enhanced text becomes part
// of the persisted snapshot.
type Enhancer struct {
	minContentLength int
	sem              *semaphore.Weighted
	client           *http.Client
}

// NewEnhancer creates an Enhancer from the given config.
func NewEnhancer(cfg EnhancerConfig) *Enhancer {
	minLen := cfg.MinContentLength
	if minLen <= 0 {
		minLen = 500
	}
	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Enhancer{
		minContentLength: minLen,
		sem:              semaphore.NewWeighted(maxConcurrent),
		client:           client,
	}
}

// EnhanceArticles returns a copy of articles where thin entries have
// their FullText replaced by readable page content. Per-article
// failures are logged and the original article is kept; enhancement
// never fails the fetch pipeline.
func (e *Enhancer) EnhanceArticles(ctx context.Context, articles []types.NewsArticle) []types.NewsArticle {
	enhanced := make([]types.NewsArticle, len(articles))
	copy(enhanced, articles)

	var wg sync.WaitGroup
	for i := range enhanced {
		a := enhanced[i]
		if a.URL == "" || len(a.FullText) >= e.minContentLength {
			continue
		}

		if err := e.sem.Acquire(ctx, 1); err != nil {
			// Context canceled; keep remaining articles as-is.
			break
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			defer e.sem.Release(1)

			text, err := e.extractFullText(ctx, enhanced[idx].URL)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: content enhancement failed for %s: %v\n", enhanced[idx].URL, err)
				return
			}
			if text != "" {
				enhanced[idx].FullText = text
			}
		}(i)
	}
	wg.Wait()

	return enhanced
}

func (e *Enhancer) extractFullText(ctx context.Context, articleURL string) (string, error) {
	parsed, err := url.Parse(articleURL)
	if err != nil {
		return "", fmt.Errorf("parsing article URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "newswatch/1.0 (+news monitoring)")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching page: HTTP %d", resp.StatusCode)
	}

	page, err := readability.FromReader(io.LimitReader(resp.Body, maxEnhanceBody), parsed)
	if err != nil {
		return "", fmt.Errorf("extracting readable content: %w", err)
	}

	slog.Debug("enhanced article content",
		"url", articleURL,
		"extractedChars", len(page.TextContent))

	return page.TextContent, nil
}
