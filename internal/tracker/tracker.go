// Package tracker builds the issue service for the configured tracker.
package tracker

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/time/rate"

	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/github"
	"github.com/danielolaszy/handoff/internal/gitlab"
	"github.com/danielolaszy/handoff/internal/jira"
)

// LabelManager is implemented by trackers that can prepare repository labels.
type LabelManager interface {
	// EnsureLabel creates the label when missing and reports whether it did.
	EnsureLabel(ctx context.Context, name, color, description string) (bool, error)
}

// Service is an IssueService that can also manage labels. Every tracker client implements it.
type Service interface {
	automation.IssueService
	LabelManager
}

// NewLimiter returns the token bucket shared by every call a tracker client makes.
// The burst equals the per-second rate, with a minimum of one.
func NewLimiter(requestsPerSecond float64) *rate.Limiter {
	burst := int(math.Ceil(requestsPerSecond))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

// New connects to the tracker named by cfg.Tracker.
func New(ctx context.Context, cfg *config.Config) (Service, error) {
	limiter := NewLimiter(cfg.RequestsPerSecond)

	switch cfg.Tracker {
	case config.TrackerGitHub:
		client, err := github.NewClient(ctx, cfg, limiter)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize github client: %w", err)
		}
		return client, nil
	case config.TrackerGitLab:
		client, err := gitlab.NewClient(cfg, limiter)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gitlab client: %w", err)
		}
		return client, nil
	case config.TrackerJira:
		client, err := jira.NewClient(cfg, limiter)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize jira client: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported tracker %q", cfg.Tracker)
	}
}
