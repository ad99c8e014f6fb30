// Package storage persists questions, news snapshots, and series
// mappings as JSON files under a data directory:
//
//	data/questions/{question_id}.json
//	data/news/{question_id}/{snapshot_id}.json
//	data/news/{question_id}/latest.json
//	data/series/{series_id}.json
//
// Timestamped snapshot records are immutable; latest.json is an
// overwritten pointer to the most recent snapshot.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/forecastlabs/newswatch/internal/types"
)

const latestFilename = "latest.json"

// Store manages the on-disk JSON layout.
type Store struct {
	dataDir      string
	questionsDir string
	newsDir      string
	seriesDir    string
}

// New creates a Store rooted at dataDir, creating the layout if needed.
func New(dataDir string) (*Store, error) {
	s := &Store{
		dataDir:      dataDir,
		questionsDir: filepath.Join(dataDir, "questions"),
		newsDir:      filepath.Join(dataDir, "news"),
		seriesDir:    filepath.Join(dataDir, "series"),
	}
	for _, dir := range []string{s.questionsDir, s.newsDir, s.seriesDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory %s: %w", dir, err)
		}
	}
	return s, nil
}

// SaveQuestion persists question metadata.
func (s *Store) SaveQuestion(question types.QuestionMetadata) error {
	path := filepath.Join(s.questionsDir, fmt.Sprintf("%d.json", question.QuestionID))
	return writeJSON(path, question)
}

// LoadQuestion loads question metadata. A missing file returns (nil, nil).
func (s *Store) LoadQuestion(questionID int) (*types.QuestionMetadata, error) {
	path := filepath.Join(s.questionsDir, fmt.Sprintf("%d.json", questionID))
	var q types.QuestionMetadata
	found, err := readJSON(path, &q)
	if err != nil || !found {
		return nil, err
	}
	return &q, nil
}

// SaveNews persists a snapshot both as an immutable timestamped record
// and as the question's latest pointer.
func (s *Store) SaveNews(questionID int, snapshot types.NewsSnapshot) error {
	dir := filepath.Join(s.newsDir, strconv.Itoa(questionID))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating news directory: %w", err)
	}

	if err := writeJSON(filepath.Join(dir, snapshot.SnapshotID+".json"), snapshot); err != nil {
		return err
	}
	return writeJSON(filepath.Join(dir, latestFilename), snapshot)
}

// LoadLatestNews loads the most recent snapshot for a question.
// Absent history returns (nil, nil).
func (s *Store) LoadLatestNews(questionID int) (*types.NewsSnapshot, error) {
	path := filepath.Join(s.newsDir, strconv.Itoa(questionID), latestFilename)
	var snap types.NewsSnapshot
	found, err := readJSON(path, &snap)
	if err != nil || !found {
		return nil, err
	}
	return &snap, nil
}

// LoadNewsHistory loads all timestamped snapshots for a question,
// sorted newest first.
func (s *Store) LoadNewsHistory(questionID int) ([]types.NewsSnapshot, error) {
	dir := filepath.Join(s.newsDir, strconv.Itoa(questionID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading news directory: %w", err)
	}

	var snapshots []types.NewsSnapshot
	for _, entry := range entries {
		if entry.IsDir() || entry.Name() == latestFilename || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var snap types.NewsSnapshot
		found, err := readJSON(filepath.Join(dir, entry.Name()), &snap)
		if err != nil {
			return nil, err
		}
		if found {
			snapshots = append(snapshots, snap)
		}
	}

	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].FetchedAt.After(snapshots[j].FetchedAt)
	})
	return snapshots, nil
}

type seriesRecord struct {
	SeriesID    int   `json:"series_id"`
	QuestionIDs []int `json:"question_ids"`
}

// SaveSeries persists the mapping of a series to its question IDs.
func (s *Store) SaveSeries(seriesID int, questionIDs []int) error {
	path := filepath.Join(s.seriesDir, fmt.Sprintf("%d.json", seriesID))
	return writeJSON(path, seriesRecord{SeriesID: seriesID, QuestionIDs: questionIDs})
}

// LoadSeries loads the question IDs for a series. A missing mapping
// returns (nil, nil).
func (s *Store) LoadSeries(seriesID int) ([]int, error) {
	path := filepath.Join(s.seriesDir, fmt.Sprintf("%d.json", seriesID))
	var rec seriesRecord
	found, err := readJSON(path, &rec)
	if err != nil || !found {
		return nil, err
	}
	return rec.QuestionIDs, nil
}

// CleanupOldSnapshots removes timestamped snapshot records older than
// keepDays for one question, leaving latest.json untouched. Filenames
// that do not parse as snapshot identifiers are skipped. Returns the
// number of files removed.
func (s *Store) CleanupOldSnapshots(questionID, keepDays int) (int, error) {
	dir := filepath.Join(s.newsDir, strconv.Itoa(questionID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading news directory: %w", err)
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -keepDays)
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || name == latestFilename || filepath.Ext(name) != ".json" {
			continue
		}
		fileTime, err := types.ParseSnapshotID(name[:len(name)-len(".json")])
		if err != nil {
			continue
		}
		if fileTime.Before(cutoff) {
			if err := os.Remove(filepath.Join(dir, name)); err != nil {
				return removed, fmt.Errorf("removing %s: %w", name, err)
			}
			removed++
		}
	}
	return removed, nil
}

// QuestionIDsWithNews lists every question id that has stored news.
func (s *Store) QuestionIDsWithNews() ([]int, error) {
	entries, err := os.ReadDir(s.newsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading news directory: %w", err)
	}

	var ids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.Atoi(entry.Name())
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// readJSON reports found=false for a missing file and decodes into v
// otherwise.
func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return true, nil
}
