// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/danielolaszy/handoff/internal/automation"
	"github.com/danielolaszy/handoff/internal/config"
	"github.com/danielolaszy/handoff/internal/logging"
	"github.com/danielolaszy/handoff/pkg/models"
)

// Client encapsulates the GitHub API client for a single repository.
type Client struct {
	client  *github.Client
	owner   string
	repo    string
	perPage int
	limiter *rate.Limiter
}

// APIURL returns the REST endpoint for a GitHub domain. Anything other than
// github.com is treated as GitHub Enterprise.
func APIURL(domain string) string {
	if domain == "" || domain == config.DefaultGitHubDomain {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a GitHub API client from the configuration. It initializes the
// client with the appropriate base URL, authenticates with the token, and tests the
// connection. It returns the configured client or an error if initialization fails.
func NewClient(ctx context.Context, cfg *config.Config, limiter *rate.Limiter) (*Client, error) {
	token := cfg.GitHub.Token
	if token == "" {
		return nil, fmt.Errorf("github token not found in configuration")
	}

	domain := cfg.GitHub.Domain
	if domain == "" {
		domain = config.DefaultGitHubDomain
	}
	apiURL := APIURL(domain)

	logging.Info("github configuration",
		"domain", domain,
		"api_url", apiURL,
		"token", logging.MaskSensitive(token))

	// Create the oauth2 client
	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)

	client := github.NewClient(tc)

	// If not using default GitHub.com, set custom API endpoint
	if domain != config.DefaultGitHubDomain {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}

		client.BaseURL = parsedURL

		// For GitHub Enterprise, set the upload URL to the same endpoint
		client.UploadURL = parsedURL
	}

	c := newClient(client, cfg.Repository.Owner, cfg.Repository.Name, cfg.Automation.MaxIssuesPerRun, limiter)

	// Test the token
	verifyCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := c.Verify(verifyCtx); err != nil {
		return nil, err
	}

	return c, nil
}

func newClient(client *github.Client, owner, repo string, perPage int, limiter *rate.Limiter) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Client{
		client:  client,
		owner:   owner,
		repo:    repo,
		perPage: perPage,
		limiter: limiter,
	}
}

// Verify checks that the token is accepted by calling the authenticated user endpoint.
func (c *Client) Verify(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		logging.Error("failed to test github token",
			"error", err,
			"status_code", statusCode(resp))
		return fmt.Errorf("error testing github token: %w", err)
	}

	logging.Info("github authentication successful",
		"username", user.GetLogin())
	return nil
}

// Repository returns the repository in "owner/repo" form.
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

// ListIssuesByLabel retrieves issues with the given label and state, newest first.
// Only the first page is requested; its size is the configured maximum. Pull requests
// returned by the issues endpoint are dropped.
func (c *Client) ListIssuesByLabel(ctx context.Context, label, state string) ([]models.Issue, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, automation.NewServiceError("list issues", 0, err)
	}

	opts := &github.IssueListByRepoOptions{
		State:     state,
		Labels:    []string{label},
		Sort:      "created",
		Direction: "desc",
		ListOptions: github.ListOptions{
			PerPage: c.perPage,
		},
	}

	issues, resp, err := c.client.Issues.ListByRepo(ctx, c.owner, c.repo, opts)
	if err != nil {
		logging.Error("failed to fetch github issues",
			"repository", c.Repository(),
			"label", label,
			"error", err,
			"status_code", statusCode(resp))
		return nil, automation.NewServiceError("list issues", 0, err)
	}

	result := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		// Skip pull requests (they're also returned by the Issues API)
		if issue.PullRequestLinks != nil {
			continue
		}
		result = append(result, convertIssue(issue))
	}
	if c.perPage > 0 && len(result) > c.perPage {
		result = result[:c.perPage]
	}

	logging.Debug("fetched github issues", "repository", c.Repository(), "label", label, "count", len(result))
	return result, nil
}

// LatestComment returns the newest comment on an issue, or nil if there are none.
// The comments endpoint lists oldest first, so with one comment per page the last
// page holds the newest comment.
func (c *Client) LatestComment(ctx context.Context, number int) (*models.Comment, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, automation.NewServiceError("get latest comment", number, err)
	}

	opts := &github.IssueListCommentsOptions{
		ListOptions: github.ListOptions{PerPage: 1},
	}

	comments, resp, err := c.client.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
	if err != nil {
		logging.Error("failed to fetch github comments", "repository", c.Repository(), "issue_number", number, "error", err)
		return nil, automation.NewServiceError("get latest comment", number, err)
	}

	if resp != nil && resp.LastPage > 1 {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, automation.NewServiceError("get latest comment", number, err)
		}

		opts.Page = resp.LastPage
		comments, _, err = c.client.Issues.ListComments(ctx, c.owner, c.repo, number, opts)
		if err != nil {
			logging.Error("failed to fetch last github comment page", "repository", c.Repository(), "issue_number", number, "error", err)
			return nil, automation.NewServiceError("get latest comment", number, err)
		}
	}

	if len(comments) == 0 {
		return nil, nil
	}

	comment := comments[len(comments)-1]
	return &models.Comment{
		ID:        comment.GetID(),
		Body:      comment.GetBody(),
		Author:    comment.GetUser().GetLogin(),
		CreatedAt: comment.GetCreatedAt(),
		UpdatedAt: comment.GetUpdatedAt(),
	}, nil
}

// PostComment posts a comment on an issue.
func (c *Client) PostComment(ctx context.Context, number int, body string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return automation.NewServiceError("post comment", number, err)
	}

	_, _, err := c.client.Issues.CreateComment(ctx, c.owner, c.repo, number, &github.IssueComment{
		Body: github.String(body),
	})
	if err != nil {
		logging.Error("error posting comment", "repository", c.Repository(), "issue_number", number, "error", err)
		return automation.NewServiceError("post comment", number, err)
	}

	logging.Debug("posted comment", "repository", c.Repository(), "issue_number", number)
	return nil
}

// AddLabel adds a label to an issue. If the label doesn't exist in the repository,
// GitHub creates it. Adding a label the issue already has is a no-op.
func (c *Client) AddLabel(ctx context.Context, number int, label string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return automation.NewServiceError("add label", number, err)
	}

	logging.Debug("adding label", "label", label, "issue_number", number)

	_, _, err := c.client.Issues.AddLabelsToIssue(ctx, c.owner, c.repo, number, []string{label})
	if err != nil {
		logging.Error("error adding label to issue", "repository", c.Repository(), "issue_number", number, "error", err)
		return automation.NewServiceError("add label", number, err)
	}

	logging.Debug("successfully added label", "label", label, "repository", c.Repository(), "issue_number", number)
	return nil
}

// RemoveLabel removes a label from an issue. A label the issue does not carry is not an error.
func (c *Client) RemoveLabel(ctx context.Context, number int, label string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return automation.NewServiceError("remove label", number, err)
	}

	resp, err := c.client.Issues.RemoveLabelForIssue(ctx, c.owner, c.repo, number, label)
	if err != nil {
		if statusCode(resp) == http.StatusNotFound {
			logging.Debug("label not present on issue", "label", label, "issue_number", number)
			return nil
		}
		logging.Error("error removing label from issue", "repository", c.Repository(), "issue_number", number, "error", err)
		return automation.NewServiceError("remove label", number, err)
	}

	logging.Debug("removed label", "label", label, "repository", c.Repository(), "issue_number", number)
	return nil
}

// EnsureLabel creates the repository label if it does not exist yet. It reports
// whether the label was created.
func (c *Client) EnsureLabel(ctx context.Context, name, color, description string) (bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return false, automation.NewServiceError("get label", 0, err)
	}

	_, resp, err := c.client.Issues.GetLabel(ctx, c.owner, c.repo, name)
	if err == nil {
		logging.Debug("label already exists", "repository", c.Repository(), "label", name)
		return false, nil
	}
	if statusCode(resp) != http.StatusNotFound {
		return false, automation.NewServiceError("get label", 0, err)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, automation.NewServiceError("create label", 0, err)
	}

	_, _, err = c.client.Issues.CreateLabel(ctx, c.owner, c.repo, &github.Label{
		Name:        github.String(name),
		Color:       github.String(color),
		Description: github.String(description),
	})
	if err != nil {
		logging.Error("error creating label", "repository", c.Repository(), "label", name, "error", err)
		return false, automation.NewServiceError("create label", 0, err)
	}

	logging.Info("created label", "repository", c.Repository(), "label", name)
	return true, nil
}

func convertIssue(issue *github.Issue) models.Issue {
	labels := make([]models.Label, 0, len(issue.Labels))
	for _, label := range issue.Labels {
		labels = append(labels, models.Label{
			ID:          label.GetID(),
			Name:        label.GetName(),
			Color:       label.GetColor(),
			Description: label.GetDescription(),
		})
	}

	return models.Issue{
		Number:    issue.GetNumber(),
		Title:     issue.GetTitle(),
		Body:      issue.GetBody(),
		State:     issue.GetState(),
		Labels:    labels,
		URL:       issue.GetHTMLURL(),
		CreatedAt: issue.GetCreatedAt(),
		UpdatedAt: issue.GetUpdatedAt(),
	}
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
