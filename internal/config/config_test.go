package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, DefaultChangeDetectionModel, cfg.ChangeDetectionModel)
	assert.Equal(t, DefaultSignificanceThreshold, cfg.SignificanceThreshold)
	assert.Equal(t, 500, cfg.MinContentLength)
	assert.Equal(t, 15, cfg.NumResults)
	assert.Equal(t, 50, cfg.MaxArticles)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("QUESTION_IDS", "123, 456,789")
	t.Setenv("SERIES_IDS", "42")
	t.Setenv("EMAIL_RECIPIENTS", "a@example.com , b@example.com,")
	t.Setenv("SIGNIFICANCE_THRESHOLD", "0.35")
	t.Setenv("DATA_DIR", "/tmp/newswatch-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []int{123, 456, 789}, cfg.QuestionIDs)
	assert.Equal(t, []int{42}, cfg.SeriesIDs)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.EmailRecipients)
	assert.Equal(t, 0.35, cfg.SignificanceThreshold)
	assert.Equal(t, "/tmp/newswatch-test", cfg.DataDir)
}

func TestLoad_BadQuestionIDs(t *testing.T) {
	t.Setenv("QUESTION_IDS", "123,abc")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing int
	}{
		{
			name: "fully configured",
			cfg: Config{
				ExaAPIKey:       "exa",
				AnthropicAPIKey: "ant",
				QuestionIDs:     []int{1},
			},
			missing: 0,
		},
		{
			name: "series only is enough",
			cfg: Config{
				ExaAPIKey:       "exa",
				AnthropicAPIKey: "ant",
				SeriesIDs:       []int{7},
			},
			missing: 0,
		},
		{
			name:    "everything missing",
			cfg:     Config{},
			missing: 3,
		},
		{
			name: "no questions configured",
			cfg: Config{
				ExaAPIKey:       "exa",
				AnthropicAPIKey: "ant",
			},
			missing: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.cfg.Validate(), tt.missing)
		})
	}
}

func TestEmailConfigured(t *testing.T) {
	cfg := Config{GmailUser: "u@example.com"}
	assert.False(t, cfg.EmailConfigured())

	cfg.GmailAppPassword = "app-password"
	assert.True(t, cfg.EmailConfigured())
}
