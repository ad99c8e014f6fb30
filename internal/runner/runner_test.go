package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forecastlabs/newswatch/internal/types"
)

type fakeQuestions struct {
	questions map[int]types.QuestionMetadata
	series    map[int][]types.QuestionMetadata
	err       error
}

func (f *fakeQuestions) GetQuestion(_ context.Context, postID int) (*types.QuestionMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	q, ok := f.questions[postID]
	if !ok {
		return nil, errors.New("unknown post")
	}
	return &q, nil
}

func (f *fakeQuestions) GetQuestionsInSeries(_ context.Context, seriesID int) ([]types.QuestionMetadata, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.series[seriesID], nil
}

type fakeFetcher struct {
	articles []types.NewsArticle
	since    *time.Time
	err      error
}

func (f *fakeFetcher) FetchNewsForQuestion(_ context.Context, question types.QuestionMetadata, since *time.Time) (types.NewsSnapshot, error) {
	f.since = since
	if f.err != nil {
		return types.NewsSnapshot{}, f.err
	}
	return types.NewNewsSnapshot(question.QuestionID, time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC), f.articles, "q"), nil
}

type fakeDetector struct {
	report types.ChangeReport
	err    error
	calls  int
}

func (f *fakeDetector) DetectChanges(_ context.Context, question types.QuestionMetadata, previous, current types.NewsSnapshot) (types.ChangeReport, error) {
	f.calls++
	if f.err != nil {
		return types.ChangeReport{}, f.err
	}
	report := f.report
	report.QuestionID = question.QuestionID
	report.PreviousSnapshotID = previous.SnapshotID
	report.CurrentSnapshotID = current.SnapshotID
	return report, nil
}

type fakeNotifier struct {
	updates []types.NewsUpdate
	calls   int
}

func (f *fakeNotifier) SendChangeAlert(updates []types.NewsUpdate) error {
	f.calls++
	f.updates = updates
	return nil
}

type fakeStore struct {
	questions map[int]types.QuestionMetadata
	latest    map[int]*types.NewsSnapshot
	saved     map[int][]types.NewsSnapshot
	series    map[int][]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		questions: make(map[int]types.QuestionMetadata),
		latest:    make(map[int]*types.NewsSnapshot),
		saved:     make(map[int][]types.NewsSnapshot),
		series:    make(map[int][]int),
	}
}

func (s *fakeStore) SaveQuestion(q types.QuestionMetadata) error {
	s.questions[q.QuestionID] = q
	return nil
}

func (s *fakeStore) SaveNews(questionID int, snap types.NewsSnapshot) error {
	s.saved[questionID] = append(s.saved[questionID], snap)
	copied := snap
	s.latest[questionID] = &copied
	return nil
}

func (s *fakeStore) LoadLatestNews(questionID int) (*types.NewsSnapshot, error) {
	return s.latest[questionID], nil
}

func (s *fakeStore) SaveSeries(seriesID int, questionIDs []int) error {
	s.series[seriesID] = questionIDs
	return nil
}

func article(url string) types.NewsArticle {
	return types.NewsArticle{URL: url, Title: "Title " + url, Source: "example.com"}
}

func testRunner(t *testing.T, cfg Config) *Runner {
	t.Helper()
	if cfg.Questions == nil {
		cfg.Questions = &fakeQuestions{questions: map[int]types.QuestionMetadata{
			420: {QuestionID: 42, PostID: 420, Title: "Will it happen?"},
		}}
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = &fakeFetcher{}
	}
	if cfg.Detector == nil {
		cfg.Detector = &fakeDetector{}
	}
	if cfg.Store == nil {
		cfg.Store = newFakeStore()
	}
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestProcessQuestion_FirstRunWithArticles(t *testing.T) {
	store := newFakeStore()
	fetcher := &fakeFetcher{articles: []types.NewsArticle{article("a"), article("b"), article("c")}}
	detector := &fakeDetector{}
	r := testRunner(t, Config{Fetcher: fetcher, Detector: detector, Store: store})

	update, err := r.ProcessQuestion(context.Background(), 420)
	require.NoError(t, err)

	assert.Nil(t, fetcher.since, "first run has no published-date floor")
	assert.Zero(t, detector.calls, "first run never calls the detector")

	require.NotNil(t, update.ChangeReport)
	assert.Equal(t, 1.0, update.ChangeReport.SignificanceScore)
	assert.True(t, update.ChangeReport.IsSignificant)
	assert.Equal(t, "First news aggregation: found 3 relevant article(s).", update.ChangeReport.ChangeSummary)
	assert.Empty(t, update.ChangeReport.PreviousSnapshotID)
	assert.Len(t, update.ChangeReport.NewArticles, 3)

	require.Len(t, store.saved[42], 1, "snapshot persisted")
	assert.Contains(t, store.questions, 42, "question metadata persisted")
}

func TestProcessQuestion_FirstRunNoArticles(t *testing.T) {
	store := newFakeStore()
	r := testRunner(t, Config{Fetcher: &fakeFetcher{}, Store: store})

	update, err := r.ProcessQuestion(context.Background(), 420)
	require.NoError(t, err)

	assert.Nil(t, update.ChangeReport, "no verdict when the first run finds nothing")
	require.Len(t, store.saved[42], 1, "empty snapshot still persisted")
	assert.Empty(t, store.saved[42][0].Articles)
}

func TestProcessQuestion_SubsequentRunMergesAndDetects(t *testing.T) {
	store := newFakeStore()
	prevFetched := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	prev := types.NewNewsSnapshot(42, prevFetched, []types.NewsArticle{article("a"), article("b")}, "q")
	store.latest[42] = &prev

	fetcher := &fakeFetcher{articles: []types.NewsArticle{article("c"), article("a")}}
	detector := &fakeDetector{report: types.ChangeReport{
		SignificanceScore: 0.7,
		IsSignificant:     true,
		ChangeSummary:     "Something moved.",
	}}
	r := testRunner(t, Config{Fetcher: fetcher, Detector: detector, Store: store})

	update, err := r.ProcessQuestion(context.Background(), 420)
	require.NoError(t, err)

	require.NotNil(t, fetcher.since)
	assert.Equal(t, prevFetched.Add(-time.Hour), *fetcher.since, "search window overlaps the previous fetch by an hour")

	assert.Equal(t, 1, detector.calls)
	require.NotNil(t, update.ChangeReport)
	assert.Equal(t, prev.SnapshotID, update.ChangeReport.PreviousSnapshotID)
	assert.True(t, update.ChangeReport.IsSignificant)

	// New article prepended, duplicate URL absorbed, previous list kept.
	urls := make([]string, 0, len(update.NewsSnapshot.Articles))
	for _, a := range update.NewsSnapshot.Articles {
		urls = append(urls, a.URL)
	}
	assert.Equal(t, []string{"c", "a", "b"}, urls)
}

func TestProcessQuestion_DetectorErrorPropagates(t *testing.T) {
	store := newFakeStore()
	prev := types.NewNewsSnapshot(42, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC), []types.NewsArticle{article("a")}, "q")
	store.latest[42] = &prev

	r := testRunner(t, Config{
		Fetcher:  &fakeFetcher{articles: []types.NewsArticle{article("b")}},
		Detector: &fakeDetector{err: errors.New("api unreachable")},
		Store:    store,
	})

	_, err := r.ProcessQuestion(context.Background(), 420)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api unreachable")
	assert.Empty(t, store.saved[42], "nothing persisted when the verdict fails")
}

func TestRun_ResolvesSeriesAndDeduplicates(t *testing.T) {
	questions := &fakeQuestions{
		questions: map[int]types.QuestionMetadata{
			420: {QuestionID: 42, PostID: 420, Title: "Direct"},
			430: {QuestionID: 43, PostID: 430, Title: "In series"},
		},
		series: map[int][]types.QuestionMetadata{
			// 420 appears both directly and via the series.
			7: {
				{QuestionID: 43, PostID: 430, Title: "In series"},
				{QuestionID: 42, PostID: 420, Title: "Direct"},
			},
		},
	}
	store := newFakeStore()
	fetcher := &fakeFetcher{articles: []types.NewsArticle{article("a")}}
	notifier := &fakeNotifier{}

	r := testRunner(t, Config{
		Questions:   questions,
		Fetcher:     fetcher,
		Store:       store,
		Notifier:    notifier,
		QuestionIDs: []int{420},
		SeriesIDs:   []int{7},
	})

	require.NoError(t, r.Run(context.Background()))

	assert.Equal(t, []int{430, 420}, store.series[7], "series mapping persisted")
	assert.Len(t, store.saved[42], 1, "each question processed exactly once")
	assert.Len(t, store.saved[43], 1)

	assert.Equal(t, 1, notifier.calls)
	assert.Len(t, notifier.updates, 2)
}

func TestRun_ContinuesPastFailures(t *testing.T) {
	questions := &fakeQuestions{
		questions: map[int]types.QuestionMetadata{
			430: {QuestionID: 43, PostID: 430, Title: "Healthy"},
		},
	}
	store := newFakeStore()
	r := testRunner(t, Config{
		Questions:   questions,
		Fetcher:     &fakeFetcher{articles: []types.NewsArticle{article("a")}},
		Store:       store,
		QuestionIDs: []int{999, 430}, // 999 is unknown and fails
	})

	require.NoError(t, r.Run(context.Background()), "one failure does not fail the cycle")
	assert.Len(t, store.saved[43], 1)
}

func TestRun_AllFailuresIsAnError(t *testing.T) {
	r := testRunner(t, Config{
		Questions:   &fakeQuestions{err: errors.New("down")},
		QuestionIDs: []int{420},
	})

	err := r.Run(context.Background())
	require.Error(t, err)
}

func TestRun_NoQuestionsIsAnError(t *testing.T) {
	r := testRunner(t, Config{})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no questions")
}
