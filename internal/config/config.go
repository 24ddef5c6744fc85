// Package config provides centralized configuration management for the application.
package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported tracker kinds.
const (
	TrackerGitHub = "github"
	TrackerGitLab = "gitlab"
	TrackerJira   = "jira"
)

// IssueNumberPlaceholder is replaced with the issue number when rendering the comment template.
const IssueNumberPlaceholder = "{{issue_number}}"

// Defaults applied when neither the environment nor the config file sets a value.
const (
	DefaultTaskLabel         = "ai task"
	DefaultDoingLabel        = "ai doing"
	DefaultMaxIssuesPerRun   = 10
	DefaultCommentTemplate   = "@claude /note-issue-task-run #" + IssueNumberPlaceholder
	DefaultDaemonIntervalMs  = 300000
	DefaultRequestsPerSecond = 5.0
	DefaultGitHubDomain      = "github.com"
	DefaultGitLabURL         = "https://gitlab.com"
)

// MaxDaemonIntervalMs is the longest interval that still fits in a time.Duration.
const MaxDaemonIntervalMs = math.MaxInt64 / int64(time.Millisecond)

// Config holds all configuration parameters for the application.
type Config struct {
	Tracker    string
	Repository RepositoryConfig
	GitHub     GitHubConfig
	GitLab     GitLabConfig
	Jira       JiraConfig
	Automation AutomationConfig
	Daemon     DaemonConfig
	Slack      SlackConfig

	// RequestsPerSecond paces calls to the tracker API.
	RequestsPerSecond float64
}

// RepositoryConfig identifies the tracker scope. For Jira, Owner is the project key.
type RepositoryConfig struct {
	Owner string
	Name  string
}

// GitHubConfig holds GitHub specific configuration.
type GitHubConfig struct {
	Token  string
	Domain string
}

// GitLabConfig holds GitLab specific configuration.
type GitLabConfig struct {
	URL   string
	Token string
}

// JiraConfig holds JIRA specific configuration.
type JiraConfig struct {
	URL      string
	Username string
	Token    string
}

// AutomationConfig holds the label and comment settings used when claiming issues.
type AutomationConfig struct {
	TaskLabel       string
	DoingLabel      string
	MaxIssuesPerRun int
	CommentTemplate string
}

// DaemonConfig holds daemon mode settings.
type DaemonConfig struct {
	Enabled    bool
	IntervalMs int
}

// SlackConfig holds the optional claim notification settings.
type SlackConfig struct {
	BotToken string
	Channel  string
}

// Enabled reports whether Slack notifications are configured.
func (s SlackConfig) Enabled() bool {
	return s.BotToken != "" && s.Channel != ""
}

// Interval returns the daemon interval as a duration.
func (d DaemonConfig) Interval() time.Duration {
	return time.Duration(d.IntervalMs) * time.Millisecond
}

// Token returns the access token of the configured tracker.
func (c *Config) Token() string {
	switch c.Tracker {
	case TrackerGitLab:
		return c.GitLab.Token
	case TrackerJira:
		return c.Jira.Token
	default:
		return c.GitHub.Token
	}
}

// RepositoryName returns "owner/repo", or the project key for Jira.
func (c *Config) RepositoryName() string {
	if c.Tracker == TrackerJira {
		return c.Repository.Owner
	}
	return c.Repository.Owner + "/" + c.Repository.Name
}

// LoadConfig initializes and loads configuration from environment variables and,
// when configFile is not empty, from a YAML file. Environment variables take
// precedence over the file. The returned configuration has been validated.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)
	bindEnv(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{
		Tracker: strings.ToLower(strings.TrimSpace(v.GetString("tracker"))),
		Repository: RepositoryConfig{
			Owner: v.GetString("repository.owner"),
			Name:  v.GetString("repository.name"),
		},
		GitHub: GitHubConfig{
			Token:  v.GetString("github.token"),
			Domain: v.GetString("github.domain"),
		},
		GitLab: GitLabConfig{
			URL:   v.GetString("gitlab.url"),
			Token: v.GetString("gitlab.token"),
		},
		Jira: JiraConfig{
			URL:      v.GetString("jira.url"),
			Username: v.GetString("jira.username"),
			Token:    v.GetString("jira.token"),
		},
		Automation: AutomationConfig{
			TaskLabel:       v.GetString("automation.task_label"),
			DoingLabel:      v.GetString("automation.doing_label"),
			MaxIssuesPerRun: v.GetInt("automation.max_issues_per_run"),
			CommentTemplate: v.GetString("automation.comment_template"),
		},
		Daemon: DaemonConfig{
			Enabled:    v.GetBool("daemon.enabled"),
			IntervalMs: v.GetInt("daemon.interval"),
		},
		Slack: SlackConfig{
			BotToken: v.GetString("slack.bot_token"),
			Channel:  v.GetString("slack.channel"),
		},
		RequestsPerSecond: v.GetFloat64("requests_per_second"),
	}

	if config.Repository.Owner == "" && config.Repository.Name == "" {
		config.Repository.Owner, config.Repository.Name = splitRepository(v.GetString("repository.full_name"))
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker", TrackerGitHub)
	v.SetDefault("github.domain", DefaultGitHubDomain)
	v.SetDefault("gitlab.url", DefaultGitLabURL)
	v.SetDefault("automation.task_label", DefaultTaskLabel)
	v.SetDefault("automation.doing_label", DefaultDoingLabel)
	v.SetDefault("automation.max_issues_per_run", DefaultMaxIssuesPerRun)
	v.SetDefault("automation.comment_template", DefaultCommentTemplate)
	v.SetDefault("daemon.enabled", false)
	v.SetDefault("daemon.interval", DefaultDaemonIntervalMs)
	v.SetDefault("requests_per_second", DefaultRequestsPerSecond)
}

// bindEnv maps viper keys to their environment variables.
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("tracker", "TRACKER")
	_ = v.BindEnv("repository.owner", "GITHUB_OWNER", "TRACKER_OWNER")
	_ = v.BindEnv("repository.name", "GITHUB_REPO", "TRACKER_REPO")
	_ = v.BindEnv("repository.full_name", "GITHUB_REPOSITORY")
	_ = v.BindEnv("github.token", "GITHUB_TOKEN")
	_ = v.BindEnv("github.domain", "GITHUB_DOMAIN")
	_ = v.BindEnv("gitlab.url", "GITLAB_URL")
	_ = v.BindEnv("gitlab.token", "GITLAB_TOKEN")
	_ = v.BindEnv("jira.url", "JIRA_URL")
	_ = v.BindEnv("jira.username", "JIRA_USERNAME")
	_ = v.BindEnv("jira.token", "JIRA_TOKEN")
	_ = v.BindEnv("automation.task_label", "TASK_LABEL")
	_ = v.BindEnv("automation.doing_label", "DOING_LABEL")
	_ = v.BindEnv("automation.max_issues_per_run", "MAX_ISSUES_PER_RUN")
	_ = v.BindEnv("automation.comment_template", "COMMENT_TEMPLATE")
	_ = v.BindEnv("daemon.enabled", "DAEMON_MODE")
	_ = v.BindEnv("daemon.interval", "DAEMON_INTERVAL")
	_ = v.BindEnv("slack.bot_token", "SLACK_BOT_TOKEN")
	_ = v.BindEnv("slack.channel", "SLACK_CHANNEL")
	_ = v.BindEnv("requests_per_second", "REQUESTS_PER_SECOND")
}

// splitRepository splits "owner/repo" as found in GITHUB_REPOSITORY.
func splitRepository(fullName string) (string, string) {
	parts := strings.Split(strings.TrimSpace(fullName), "/")
	if len(parts) != 2 {
		return "", ""
	}
	return parts[0], parts[1]
}
