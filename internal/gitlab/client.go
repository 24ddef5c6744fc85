// Package gitlab provides functionality for interacting with the GitLab API.
package gitlab

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	gitlab "gitlab.com/gitlab-org/api/client-go"
	"golang.org/x/time/rate"

	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/pkg/models"
)

const (
	stateOpened = "opened"

	// notesPerPage is the page size used when scanning issue notes.
	notesPerPage = 100
)

// Client works on the issues of a single GitLab project.
type Client struct {
	gl      *gitlab.Client
	project string
	perPage int
	limiter *rate.Limiter
}

// NewClient creates a GitLab client for the project "owner/repo" from the configuration.
func NewClient(cfg *config.Config, limiter *rate.Limiter) (*Client, error) {
	if cfg.GitLab.Token == "" {
		return nil, fmt.Errorf("gitlab token not found in configuration")
	}

	baseURL := strings.TrimRight(cfg.GitLab.URL, "/")
	gl, err := gitlab.NewClient(cfg.GitLab.Token, gitlab.WithBaseURL(baseURL+"/api/v4"))
	if err != nil {
		return nil, fmt.Errorf("gitlab client: %w", err)
	}

	logging.Info("gitlab configuration",
		"url", baseURL,
		"project", cfg.RepositoryName(),
		"token", logging.MaskSensitive(cfg.GitLab.Token))

	return newClient(gl, cfg.RepositoryName(), cfg.Automation.MaxIssuesPerRun, limiter), nil
}

func newClient(gl *gitlab.Client, project string, perPage int, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{gl: gl, project: project, perPage: perPage, limiter: limiter}
}

// ListIssuesByLabel returns project issues with the label, newest first. GitLab
// calls open issues "opened"; the returned State is normalized to models.StateOpen.
func (c *Client) ListIssuesByLabel(ctx context.Context, label, state string) ([]models.Issue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, automation.NewServiceError("list issues", 0, err)
	}

	opts := &gitlab.ListProjectIssuesOptions{
		Labels:  (*gitlab.LabelOptions)(&[]string{label}),
		State:   gitlab.Ptr(toGitLabState(state)),
		OrderBy: gitlab.Ptr("created_at"),
		Sort:    gitlab.Ptr("desc"),
	}

	issues, _, err := c.gl.Issues.ListProjectIssues(c.project, opts, gitlab.WithContext(ctx))
	if err != nil {
		logging.Error("failed to fetch gitlab issues", "project", c.project, "label", label, "error", err)
		return nil, automation.NewServiceError("list issues", 0, err)
	}

	result := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		result = append(result, convertIssue(issue))
	}
	if c.perPage > 0 && len(result) > c.perPage {
		result = result[:c.perPage]
	}

	logging.Debug("fetched gitlab issues", "project", c.project, "label", label, "count", len(result))
	return result, nil
}

// LatestComment returns the newest user note on the issue. System notes, such as
// label changes, are ignored; pages are fetched until a user note turns up.
func (c *Client) LatestComment(ctx context.Context, number int) (*models.Comment, error) {
	opts := &gitlab.ListIssueNotesOptions{
		ListOptions: gitlab.ListOptions{PerPage: notesPerPage},
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("desc"),
	}

	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, automation.NewServiceError("get latest comment", number, err)
		}

		notes, resp, err := c.gl.Notes.ListIssueNotes(c.project, int64(number), opts, gitlab.WithContext(ctx))
		if err != nil {
			logging.Error("failed to fetch gitlab notes", "project", c.project, "issue_number", number, "error", err)
			return nil, automation.NewServiceError("get latest comment", number, err)
		}

		for _, note := range notes {
			if note.System {
				continue
			}
			comment := &models.Comment{
				ID:     int64(note.ID),
				Body:   note.Body,
				Author: note.Author.Username,
			}
			if note.CreatedAt != nil {
				comment.CreatedAt = *note.CreatedAt
			}
			if note.UpdatedAt != nil {
				comment.UpdatedAt = *note.UpdatedAt
			}
			return comment, nil
		}

		if resp == nil || resp.NextPage == 0 {
			return nil, nil
		}
		if opts.Page == 0 {
			opts.Page = 1
		}
		opts.Page++
	}
}

// PostComment creates a note on the issue.
func (c *Client) PostComment(ctx context.Context, number int, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return automation.NewServiceError("post comment", number, err)
	}

	opts := &gitlab.CreateIssueNoteOptions{Body: gitlab.Ptr(body)}
	if _, _, err := c.gl.Notes.CreateIssueNote(c.project, int64(number), opts, gitlab.WithContext(ctx)); err != nil {
		logging.Error("error posting note", "project", c.project, "issue_number", number, "error", err)
		return automation.NewServiceError("post comment", number, err)
	}

	logging.Debug("posted note", "project", c.project, "issue_number", number)
	return nil
}

// AddLabel adds a label to the issue. GitLab ignores labels the issue already has.
func (c *Client) AddLabel(ctx context.Context, number int, label string) error {
	opts := &gitlab.UpdateIssueOptions{
		AddLabels: (*gitlab.LabelOptions)(&[]string{label}),
	}
	return c.updateIssue(ctx, "add label", number, opts)
}

// RemoveLabel removes a label from the issue.
func (c *Client) RemoveLabel(ctx context.Context, number int, label string) error {
	opts := &gitlab.UpdateIssueOptions{
		RemoveLabels: (*gitlab.LabelOptions)(&[]string{label}),
	}
	return c.updateIssue(ctx, "remove label", number, opts)
}

func (c *Client) updateIssue(ctx context.Context, op string, number int, opts *gitlab.UpdateIssueOptions) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return automation.NewServiceError(op, number, err)
	}

	if _, _, err := c.gl.Issues.UpdateIssue(c.project, int64(number), opts, gitlab.WithContext(ctx)); err != nil {
		logging.Error("error updating gitlab issue", "op", op, "project", c.project, "issue_number", number, "error", err)
		return automation.NewServiceError(op, number, err)
	}

	logging.Debug("updated gitlab issue", "op", op, "project", c.project, "issue_number", number)
	return nil
}

// EnsureLabel creates the project label if it does not exist. It reports whether
// the label was created.
func (c *Client) EnsureLabel(ctx context.Context, name, color, description string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, automation.NewServiceError("get label", 0, err)
	}

	_, resp, err := c.gl.Labels.GetLabel(c.project, name, gitlab.WithContext(ctx))
	if err == nil {
		return false, nil
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		return false, automation.NewServiceError("get label", 0, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, automation.NewServiceError("create label", 0, err)
	}

	opts := &gitlab.CreateLabelOptions{
		Name:        gitlab.Ptr(name),
		Color:       gitlab.Ptr("#" + strings.TrimPrefix(color, "#")),
		Description: gitlab.Ptr(description),
	}
	if _, _, err := c.gl.Labels.CreateLabel(c.project, opts, gitlab.WithContext(ctx)); err != nil {
		logging.Error("error creating gitlab label", "project", c.project, "label", name, "error", err)
		return false, automation.NewServiceError("create label", 0, err)
	}

	logging.Info("created label", "project", c.project, "label", name)
	return true, nil
}

func convertIssue(issue *gitlab.Issue) models.Issue {
	labels := make([]models.Label, 0, len(issue.Labels))
	for _, name := range issue.Labels {
		labels = append(labels, models.Label{Name: name})
	}

	out := models.Issue{
		Number: int(issue.IID), // IID is the project-scoped issue number
		Title:  issue.Title,
		Body:   issue.Description,
		State:  fromGitLabState(issue.State),
		Labels: labels,
		URL:    issue.WebURL,
	}
	if issue.CreatedAt != nil {
		out.CreatedAt = *issue.CreatedAt
	}
	if issue.UpdatedAt != nil {
		out.UpdatedAt = *issue.UpdatedAt
	}
	return out
}

func toGitLabState(state string) string {
	if state == models.StateOpen {
		return stateOpened
	}
	return state
}

func fromGitLabState(state string) string {
	if state == stateOpened {
		return models.StateOpen
	}
	return state
}
