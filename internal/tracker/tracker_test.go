package tracker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/gitlab"
	"github.com/danielolaszy/handoff/internal/jira"
)

func TestNewLimiter(t *testing.T) {
	tests := []struct {
		name      string
		rps       float64
		wantBurst int
	}{
		{name: "Whole rate", rps: 5, wantBurst: 5},
		{name: "Fractional rate rounds burst up", rps: 2.5, wantBurst: 3},
		{name: "Slow rate keeps a burst of one", rps: 0.2, wantBurst: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := NewLimiter(tt.rps)
			assert.Equal(t, rate.Limit(tt.rps), limiter.Limit())
			assert.Equal(t, tt.wantBurst, limiter.Burst())
		})
	}
}

func TestLimiterHonoursContext(t *testing.T) {
	limiter := NewLimiter(0.001)
	require.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, limiter.Wait(ctx))
}

func baseConfig(tracker string) *config.Config {
	return &config.Config{
		Tracker:           tracker,
		Repository:        config.RepositoryConfig{Owner: "acme", Name: "widgets"},
		GitLab:            config.GitLabConfig{URL: "https://gitlab.example.com", Token: "glpat-1"},
		Jira:              config.JiraConfig{URL: "https://jira.example.com", Username: "bot", Token: "secret"},
		Automation:        config.AutomationConfig{MaxIssuesPerRun: 10},
		RequestsPerSecond: 5,
	}
}

func TestNewSelectsTracker(t *testing.T) {
	svc, err := New(context.Background(), baseConfig(config.TrackerGitLab))
	require.NoError(t, err)
	assert.IsType(t, &gitlab.Client{}, svc)

	svc, err = New(context.Background(), baseConfig(config.TrackerJira))
	require.NoError(t, err)
	assert.IsType(t, &jira.Client{}, svc)
}

func TestNewErrors(t *testing.T) {
	_, err := New(context.Background(), baseConfig("bugzilla"))
	assert.ErrorContains(t, err, "unsupported tracker")

	cfg := baseConfig(config.TrackerGitHub)
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "github token not found")

	cfg = baseConfig(config.TrackerJira)
	cfg.Jira.Token = ""
	_, err = New(context.Background(), cfg)
	assert.ErrorContains(t, err, "failed to initialize jira client")
}
