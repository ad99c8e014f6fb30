// Package config loads newswatch configuration from the environment,
// with an optional newswatch.yaml file for overrides.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// DefaultSignificanceThreshold is the single source of truth for the
// score cutoff above which a change is significant. The detector does
// not carry its own default; the threshold is always injected from here.
const DefaultSignificanceThreshold = 0.2

// DefaultChangeDetectionModel is the cost-efficient model used for the
// change-significance judgment. Overridable via CHANGE_DETECTION_MODEL.
const DefaultChangeDetectionModel = "claude-3-5-haiku-20241022"

// Config holds all newswatch settings.
type Config struct {
	// Metaculus API
	MetaculusToken string

	// News retrieval
	ExaAPIKey        string
	MinContentLength int // chars of full text below which enhancement kicks in
	NumResults       int // max articles per retrieval call
	MaxArticles      int // snapshot size bound applied by merge

	// LLM API
	AnthropicAPIKey      string
	ChangeDetectionModel string

	// Email notifications
	GmailUser        string
	GmailAppPassword string
	EmailRecipients  []string

	// Questions to track
	QuestionIDs []int
	SeriesIDs   []int

	// Data storage
	DataDir string

	// Thresholds
	SignificanceThreshold float64
}

// Load reads configuration from environment variables and, when
// present, a newswatch.yaml file in the working directory.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("metaculus_token", "")
	v.SetDefault("exa_api_key", "")
	v.SetDefault("anthropic_api_key", "")
	v.SetDefault("change_detection_model", DefaultChangeDetectionModel)
	v.SetDefault("gmail_user", "")
	v.SetDefault("gmail_app_password", "")
	v.SetDefault("email_recipients", "")
	v.SetDefault("question_ids", "")
	v.SetDefault("series_ids", "")
	v.SetDefault("data_dir", "data")
	v.SetDefault("significance_threshold", DefaultSignificanceThreshold)
	v.SetDefault("min_content_length", 500)
	v.SetDefault("num_results", 15)
	v.SetDefault("max_articles", 50)

	v.SetConfigName("newswatch")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; everything can come from env.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	questionIDs, err := parseIntList(v.GetString("question_ids"))
	if err != nil {
		return nil, fmt.Errorf("parsing QUESTION_IDS: %w", err)
	}
	seriesIDs, err := parseIntList(v.GetString("series_ids"))
	if err != nil {
		return nil, fmt.Errorf("parsing SERIES_IDS: %w", err)
	}

	return &Config{
		MetaculusToken:        v.GetString("metaculus_token"),
		ExaAPIKey:             v.GetString("exa_api_key"),
		AnthropicAPIKey:       v.GetString("anthropic_api_key"),
		ChangeDetectionModel:  v.GetString("change_detection_model"),
		GmailUser:             v.GetString("gmail_user"),
		GmailAppPassword:      v.GetString("gmail_app_password"),
		EmailRecipients:       parseStringList(v.GetString("email_recipients")),
		QuestionIDs:           questionIDs,
		SeriesIDs:             seriesIDs,
		DataDir:               v.GetString("data_dir"),
		SignificanceThreshold: v.GetFloat64("significance_threshold"),
		MinContentLength:      v.GetInt("min_content_length"),
		NumResults:            v.GetInt("num_results"),
		MaxArticles:           v.GetInt("max_articles"),
	}, nil
}

// Validate reports required settings that are missing.
func (c *Config) Validate() []string {
	var missing []string
	if c.ExaAPIKey == "" {
		missing = append(missing, "EXA_API_KEY")
	}
	if c.AnthropicAPIKey == "" {
		missing = append(missing, "ANTHROPIC_API_KEY")
	}
	if len(c.QuestionIDs) == 0 && len(c.SeriesIDs) == 0 {
		missing = append(missing, "QUESTION_IDS or SERIES_IDS (at least one required)")
	}
	return missing
}

// EmailConfigured reports whether outbound email can be sent.
func (c *Config) EmailConfigured() bool {
	return c.GmailUser != "" && c.GmailAppPassword != ""
}

func parseStringList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		out = append(out, n)
	}
	return out, nil
}
