// Package jira provides functionality for interacting with the JIRA API.
package jira

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"golang.org/x/time/rate"

	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/pkg/models"
)

// commentTimeLayout is the timestamp format of JIRA comment fields.
const commentTimeLayout = "2006-01-02T15:04:05.000-0700"

// Client handles interactions with the JIRA API for a single project.
// Issue numbers are JIRA's numeric issue IDs.
type Client struct {
	client     *jira.Client
	baseURL    string
	projectKey string
	maxResults int
	limiter    *rate.Limiter
}

// NewClient creates a new JIRA client from the configuration.
func NewClient(cfg *config.Config, limiter *rate.Limiter) (*Client, error) {
	if err := config.ValidateJiraConfig(cfg); err != nil {
		return nil, err
	}

	// Create JIRA authentication transport
	tp := jira.BasicAuthTransport{
		Username: cfg.Jira.Username,
		Password: cfg.Jira.Token,
	}

	client, err := jira.NewClient(tp.Client(), cfg.Jira.URL)
	if err != nil {
		return nil, fmt.Errorf("error creating JIRA client: %w", err)
	}

	logging.Info("jira configuration",
		"url", cfg.Jira.URL,
		"project", cfg.Repository.Owner,
		"username", cfg.Jira.Username,
		"token", logging.MaskSensitive(cfg.Jira.Token))

	return newClient(client, cfg.Jira.URL, cfg.Repository.Owner, cfg.Automation.MaxIssuesPerRun, limiter), nil
}

func newClient(client *jira.Client, baseURL, projectKey string, maxResults int, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		projectKey: projectKey,
		maxResults: maxResults,
		limiter:    limiter,
	}
}

// SearchJQL builds the query used to list labelled issues. Open means any status
// outside the Done category.
func SearchJQL(projectKey, label, state string) string {
	category := "statusCategory != Done"
	if state == models.StateClosed {
		category = "statusCategory = Done"
	}
	return fmt.Sprintf(`project = "%s" AND labels = "%s" AND %s ORDER BY created DESC`,
		quote(projectKey), quote(label), category)
}

// ListIssuesByLabel searches the project for issues with the label, newest first.
func (c *Client) ListIssuesByLabel(ctx context.Context, label, state string) ([]models.Issue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, automation.NewServiceError("list issues", 0, err)
	}

	jql := SearchJQL(c.projectKey, label, state)
	opts := &jira.SearchOptions{
		MaxResults: c.maxResults,
		Fields:     []string{"summary", "description", "labels", "status", "created", "updated"},
	}

	issues, resp, err := c.client.Issue.SearchWithContext(ctx, jql, opts)
	if err != nil {
		logging.Error("failed to search jira issues", "project", c.projectKey, "jql", jql, "error", err, "status_code", statusCode(resp))
		return nil, automation.NewServiceError("list issues", 0, err)
	}

	result := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		converted, err := c.convertIssue(issue)
		if err != nil {
			logging.Warn("skipping jira issue with non-numeric id", "key", issue.Key, "id", issue.ID)
			continue
		}
		result = append(result, converted)
	}

	logging.Debug("fetched jira issues", "project", c.projectKey, "label", label, "count", len(result))
	return result, nil
}

// LatestComment returns the newest comment on the issue, or nil if there are none.
func (c *Client) LatestComment(ctx context.Context, number int) (*models.Comment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, automation.NewServiceError("get latest comment", number, err)
	}

	issue, resp, err := c.client.Issue.GetWithContext(ctx, strconv.Itoa(number), &jira.GetQueryOptions{Fields: "comment"})
	if err != nil {
		logging.Error("failed to fetch jira comments", "issue_number", number, "error", err, "status_code", statusCode(resp))
		return nil, automation.NewServiceError("get latest comment", number, err)
	}

	if issue.Fields == nil || issue.Fields.Comments == nil || len(issue.Fields.Comments.Comments) == 0 {
		return nil, nil
	}

	// JIRA lists comments oldest first
	comments := issue.Fields.Comments.Comments
	latest := comments[len(comments)-1]

	comment := &models.Comment{
		Body:      latest.Body,
		Author:    latest.Author.Name,
		CreatedAt: parseCommentTime(latest.Created),
		UpdatedAt: parseCommentTime(latest.Updated),
	}
	if id, err := strconv.ParseInt(latest.ID, 10, 64); err == nil {
		comment.ID = id
	}
	return comment, nil
}

// PostComment adds a comment to the issue.
func (c *Client) PostComment(ctx context.Context, number int, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return automation.NewServiceError("post comment", number, err)
	}

	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, strconv.Itoa(number), &jira.Comment{Body: body})
	if err != nil {
		logging.Error("error posting jira comment", "issue_number", number, "error", err, "status_code", statusCode(resp))
		return automation.NewServiceError("post comment", number, err)
	}

	logging.Debug("posted jira comment", "issue_number", number)
	return nil
}

// AddLabel adds a label to the issue. JIRA ignores labels the issue already has.
func (c *Client) AddLabel(ctx context.Context, number int, label string) error {
	return c.updateLabels(ctx, "add label", number, "add", label)
}

// RemoveLabel removes a label from the issue.
func (c *Client) RemoveLabel(ctx context.Context, number int, label string) error {
	return c.updateLabels(ctx, "remove label", number, "remove", label)
}

func (c *Client) updateLabels(ctx context.Context, op string, number int, verb, label string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return automation.NewServiceError(op, number, err)
	}

	data := map[string]interface{}{
		"update": map[string]interface{}{
			"labels": []map[string]string{{verb: label}},
		},
	}

	resp, err := c.client.Issue.UpdateIssueWithContext(ctx, strconv.Itoa(number), data)
	if err != nil {
		logging.Error("error updating jira labels", "op", op, "issue_number", number, "label", label, "error", err, "status_code", statusCode(resp))
		return automation.NewServiceError(op, number, err)
	}

	logging.Debug("updated jira labels", "op", op, "issue_number", number, "label", label)
	return nil
}

// EnsureLabel is a no-op: JIRA labels are created on first use.
func (c *Client) EnsureLabel(ctx context.Context, name, color, description string) (bool, error) {
	logging.Debug("jira labels need no setup", "label", name)
	return false, nil
}

func (c *Client) convertIssue(issue jira.Issue) (models.Issue, error) {
	number, err := strconv.Atoi(issue.ID)
	if err != nil {
		return models.Issue{}, err
	}

	out := models.Issue{
		Number: number,
		State:  models.StateOpen,
		URL:    c.baseURL + "/browse/" + issue.Key,
	}
	if issue.Fields == nil {
		return out, nil
	}

	out.Title = issue.Fields.Summary
	out.Body = issue.Fields.Description
	out.CreatedAt = time.Time(issue.Fields.Created)
	out.UpdatedAt = time.Time(issue.Fields.Updated)
	for _, name := range issue.Fields.Labels {
		out.Labels = append(out.Labels, models.Label{Name: name})
	}
	if issue.Fields.Status != nil && strings.EqualFold(issue.Fields.Status.StatusCategory.Key, "done") {
		out.State = models.StateClosed
	}
	return out, nil
}

func parseCommentTime(value string) time.Time {
	t, err := time.Parse(commentTimeLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func quote(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}

func statusCode(resp *jira.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
