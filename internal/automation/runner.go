package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/pkg/models"
)

// Status classifies the outcome of a run.
type Status string

const (
	// StatusProcessed means an issue was claimed.
	StatusProcessed Status = "processed"
	// StatusSkipped means no open issue carries the task label.
	StatusSkipped Status = "skipped"
	// StatusNoAction means task issues exist but none is eligible.
	StatusNoAction Status = "no_action"
	// StatusFailed means listing or claiming returned an error.
	StatusFailed Status = "failed"
)

// IssueRef identifies the claimed issue.
type IssueRef struct {
	Number int    `json:"number" yaml:"number"`
	Title  string `json:"title" yaml:"title"`
}

// RunResult reports one run. It is never persisted.
type RunResult struct {
	RunID      string    `json:"run_id" yaml:"run_id"`
	Success    bool      `json:"success" yaml:"success"`
	Status     Status    `json:"status" yaml:"status"`
	Issue      *IssueRef `json:"issue,omitempty" yaml:"issue,omitempty"`
	Message    string    `json:"message" yaml:"message"`
	Action     string    `json:"action,omitempty" yaml:"action,omitempty"`
	Repository string    `json:"repository" yaml:"repository"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp"`
}

// Runner performs a single label check, selection and claim cycle.
type Runner struct {
	service    IssueService
	claimer    *Claimer
	notifier   Notifier
	taskLabel  string
	doingLabel string
	repository string
	now        func() time.Time
	newRunID   func() string
}

// Option customizes a Runner.
type Option func(*Runner)

// WithNotifier announces every successful claim through n. Notification failures are logged only.
func WithNotifier(n Notifier) Option {
	return func(r *Runner) {
		r.notifier = n
	}
}

// WithClock replaces time.Now for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

// NewRunner builds a Runner for the automation settings in cfg.
func NewRunner(service IssueService, cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		service:    service,
		claimer:    NewClaimer(service, cfg.Automation.CommentTemplate, cfg.Automation.DoingLabel),
		taskLabel:  cfg.Automation.TaskLabel,
		doingLabel: cfg.Automation.DoingLabel,
		repository: cfg.RepositoryName(),
		now:        time.Now,
		newRunID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one cycle. It never returns an error and never panics; failures are
// reported through the result.
func (r *Runner) Run(ctx context.Context) (result RunResult) {
	result = RunResult{
		RunID:      r.newRunID(),
		Repository: r.repository,
		Timestamp:  r.now().UTC(),
	}
	log := logging.With("run_id", result.RunID)

	defer func() {
		if p := recover(); p != nil {
			log.Error("automation run panicked", "panic", p)
			result = failed(result, fmt.Errorf("panic: %v", p))
		}
	}()

	log.Info("starting issue automation",
		"repository", r.repository,
		"task_label", r.taskLabel,
		"doing_label", r.doingLabel)

	// The same listing serves the presence check and the eligibility scan.
	issues, err := r.service.ListIssuesByLabel(ctx, r.taskLabel, models.StateOpen)
	if err != nil {
		log.Error("automation failed", "error", err)
		return failed(result, err)
	}

	if len(issues) == 0 {
		log.Warn("no task issues found, skipping", "label", r.taskLabel)
		result.Success = true
		result.Status = StatusSkipped
		result.Message = fmt.Sprintf("Skipped - no issues with '%s' label found", r.taskLabel)
		result.Action = result.Message
		return result
	}
	log.Info("found task issues", "label", r.taskLabel, "count", len(issues))

	selected := SelectEligible(ctx, issues, r.doingLabel, MarkerProbe(r.service))
	if selected == nil {
		log.Info("no eligible issues found")
		result.Success = true
		result.Status = StatusNoAction
		result.Message = fmt.Sprintf("No eligible issues found (all have %s in latest comment or '%s' label)", HandoffMarker, r.doingLabel)
		result.Action = result.Message
		return result
	}
	log.Info("processing issue", "issue_number", selected.Number, "title", selected.Title, "labels", selected.LabelNames())

	if err := r.claimer.Claim(ctx, *selected); err != nil {
		log.Error("automation failed", "issue_number", selected.Number, "error", err)
		return failed(result, err)
	}

	result.Success = true
	result.Status = StatusProcessed
	result.Issue = &IssueRef{Number: selected.Number, Title: selected.Title}
	result.Message = fmt.Sprintf("Successfully processed issue #%d", selected.Number)
	result.Action = fmt.Sprintf("Posted automation comment and added '%s' label", r.doingLabel)
	log.Info("successfully processed issue", "issue_number", selected.Number)

	if r.notifier != nil {
		if err := r.notifier.NotifyClaim(ctx, r.repository, *selected); err != nil {
			log.Warn("failed to send claim notification", "issue_number", selected.Number, "error", err)
		}
	}

	return result
}

func failed(result RunResult, err error) RunResult {
	result.Success = false
	result.Status = StatusFailed
	result.Issue = nil
	result.Action = ""
	result.Message = fmt.Sprintf("Automation failed: %v", err)
	return result
}
