package config

import (
	"fmt"
	"strings"
)

// ValidationError reports every missing or invalid setting found by Validate.
// It is fatal: the process must not start a run with an invalid configuration.
type ValidationError struct {
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing required environment variables: %v", e.Missing))
	}
	parts = append(parts, e.Invalid...)
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Validate ensures that all required configuration values are provided and well formed.
func (c *Config) Validate() error {
	verr := &ValidationError{}

	switch c.Tracker {
	case TrackerGitHub:
		if c.GitHub.Token == "" {
			verr.Missing = append(verr.Missing, "GITHUB_TOKEN")
		}
	case TrackerGitLab:
		if c.GitLab.URL == "" {
			verr.Missing = append(verr.Missing, "GITLAB_URL")
		}
		if c.GitLab.Token == "" {
			verr.Missing = append(verr.Missing, "GITLAB_TOKEN")
		}
	case TrackerJira:
		if err := ValidateJiraConfig(c); err != nil {
			verr.Missing = append(verr.Missing, err.(*ValidationError).Missing...)
		}
	default:
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("unsupported tracker %q (must be github, gitlab, or jira)", c.Tracker))
	}

	if c.Repository.Owner == "" {
		verr.Missing = append(verr.Missing, "GITHUB_OWNER")
	}
	if c.Repository.Name == "" && c.Tracker != TrackerJira {
		verr.Missing = append(verr.Missing, "GITHUB_REPO")
	}
	if c.Automation.TaskLabel == "" {
		verr.Missing = append(verr.Missing, "TASK_LABEL")
	}
	if c.Automation.DoingLabel == "" {
		verr.Missing = append(verr.Missing, "DOING_LABEL")
	}

	if c.Automation.MaxIssuesPerRun <= 0 {
		verr.Invalid = append(verr.Invalid, "maxIssuesPerRun must be a positive number")
	}
	if !strings.Contains(c.Automation.CommentTemplate, IssueNumberPlaceholder) {
		verr.Invalid = append(verr.Invalid, "commentTemplate must include "+IssueNumberPlaceholder+" placeholder")
	}
	if c.Daemon.IntervalMs <= 0 {
		verr.Invalid = append(verr.Invalid, "daemonInterval must be a positive number")
	} else if int64(c.Daemon.IntervalMs) > MaxDaemonIntervalMs {
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("daemonInterval must not exceed %d", MaxDaemonIntervalMs))
	}
	if c.RequestsPerSecond <= 0 {
		verr.Invalid = append(verr.Invalid, "requestsPerSecond must be a positive number")
	}
	if (c.Slack.BotToken == "") != (c.Slack.Channel == "") {
		verr.Invalid = append(verr.Invalid, "SLACK_BOT_TOKEN and SLACK_CHANNEL must be set together")
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}

// ValidateJiraConfig validates JIRA-specific configuration.
func ValidateJiraConfig(config *Config) error {
	var missingVars []string

	if config.Jira.URL == "" {
		missingVars = append(missingVars, "JIRA_URL")
	}
	if config.Jira.Username == "" {
		missingVars = append(missingVars, "JIRA_USERNAME")
	}
	if config.Jira.Token == "" {
		missingVars = append(missingVars, "JIRA_TOKEN")
	}

	if len(missingVars) > 0 {
		return &ValidationError{Missing: missingVars}
	}

	return nil
}
