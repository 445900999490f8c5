package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Webhook   WebhookConfig
	GitLab    GitLabConfig
	GitHub    GitHubConfig
	Anthropic AnthropicConfig
	Sentry    SentryConfig
	Jira      JiraConfig
	Scheduler SchedulerConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	ListenAddr string
}

// RedisConfig holds queue backend configuration
type RedisConfig struct {
	URL string
}

// WebhookConfig holds webhook security configuration
type WebhookConfig struct {
	Secret string // shared webhook secret token
	APIKey string // bearer token for the operator API, falls back to Secret
	// AllowedAuthors restricts pipeline-triggered jobs to these usernames.
	// Empty means everyone is allowed.
	AllowedAuthors []string
}

// GitLabConfig holds GitLab API configuration
type GitLabConfig struct {
	BaseURL string
	Token   string
}

// GitHubConfig holds GitHub API configuration
type GitHubConfig struct {
	Token string
}

// AnthropicConfig holds the agent credential passed to worker jobs
type AnthropicConfig struct {
	APIKey string
}

// SentryConfig holds Sentry webhook and API configuration
type SentryConfig struct {
	WebhookSecret string
	AuthToken     string
	Organization  string
	Mappings      []RepoMapping
}

// JiraConfig holds Jira OAuth and webhook configuration
type JiraConfig struct {
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	WebhookSecret string
	BotAccountID  string
	Mappings      []RepoMapping
}

// SchedulerConfig holds Kubernetes job scheduling configuration
type SchedulerConfig struct {
	Namespace   string
	WorkerImage string
}

// RepoMapping routes an external project (Sentry project slug or Jira
// project key) to the repository a fix job should run against.
type RepoMapping struct {
	SentryProject string `json:"sentry_project,omitempty" yaml:"sentry_project,omitempty"`
	JiraProject   string `json:"jira_project,omitempty" yaml:"jira_project,omitempty"`
	CloneURL      string `json:"clone_url" yaml:"clone_url"`
	VCSPlatform   string `json:"vcs_platform" yaml:"vcs_platform"`
	VCSProject    string `json:"vcs_project" yaml:"vcs_project"`
	TargetBranch  string `json:"target_branch" yaml:"target_branch"`
}

// mappingsFile is the optional YAML companion to the JSON env vars.
type mappingsFile struct {
	Sentry []RepoMapping `yaml:"sentry"`
	Jira   []RepoMapping `yaml:"jira"`
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			ListenAddr: getEnv("LISTEN_ADDR", "0.0.0.0:8443"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
		},
		Webhook: WebhookConfig{
			Secret:         getEnv("WEBHOOK_SECRET", ""),
			APIKey:         getEnv("API_KEY", ""),
			AllowedAuthors: parseList(getEnv("ALLOWED_AUTHORS", "")),
		},
		GitLab: GitLabConfig{
			BaseURL: getEnv("GITLAB_URL", "https://gitlab.com"),
			Token:   getEnv("GITLAB_TOKEN", ""),
		},
		GitHub: GitHubConfig{
			Token: getEnv("GITHUB_TOKEN", ""),
		},
		Anthropic: AnthropicConfig{
			APIKey: getEnv("ANTHROPIC_API_KEY", ""),
		},
		Sentry: SentryConfig{
			WebhookSecret: getEnv("SENTRY_WEBHOOK_SECRET", ""),
			AuthToken:     getEnv("SENTRY_AUTH_TOKEN", ""),
			Organization:  getEnv("SENTRY_ORGANIZATION", ""),
		},
		Jira: JiraConfig{
			ClientID:      getEnv("JIRA_CLIENT_ID", ""),
			ClientSecret:  getEnv("JIRA_CLIENT_SECRET", ""),
			RefreshToken:  getEnv("JIRA_REFRESH_TOKEN", ""),
			WebhookSecret: getEnv("JIRA_WEBHOOK_SECRET", ""),
			BotAccountID:  getEnv("JIRA_BOT_ACCOUNT_ID", ""),
		},
		Scheduler: SchedulerConfig{
			Namespace:   getEnv("KUBE_NAMESPACE", "claude-agent"),
			WorkerImage: getEnv("WORKER_IMAGE", "claude-agent-worker:latest"),
		},
	}

	if cfg.Webhook.Secret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET not set")
	}

	var err error
	cfg.Sentry.Mappings, err = parseMappings("SENTRY_PROJECT_MAPPINGS")
	if err != nil {
		return nil, err
	}
	cfg.Jira.Mappings, err = parseMappings("JIRA_PROJECT_MAPPINGS")
	if err != nil {
		return nil, err
	}

	if path := getEnv("PROJECT_MAPPINGS_FILE", ""); path != "" {
		if err := cfg.loadMappingsFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// loadMappingsFile merges mappings from a YAML file on top of the env vars.
func (c *Config) loadMappingsFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading mappings file %s: %w", path, err)
	}
	var file mappingsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing mappings file %s: %w", path, err)
	}
	c.Sentry.Mappings = append(c.Sentry.Mappings, file.Sentry...)
	c.Jira.Mappings = append(c.Jira.Mappings, file.Jira...)
	return nil
}

// MappingForSentryProject returns the repo mapping for a Sentry project slug
func (c *Config) MappingForSentryProject(project string) *RepoMapping {
	for i := range c.Sentry.Mappings {
		if strings.EqualFold(c.Sentry.Mappings[i].SentryProject, project) {
			return &c.Sentry.Mappings[i]
		}
	}
	return nil
}

// MappingForJiraIssue returns the repo mapping for a Jira issue key such as
// "PLAT-123" (matched on the project key before the dash)
func (c *Config) MappingForJiraIssue(issueKey string) *RepoMapping {
	project := issueKey
	if idx := strings.Index(issueKey, "-"); idx > 0 {
		project = issueKey[:idx]
	}
	for i := range c.Jira.Mappings {
		if strings.EqualFold(c.Jira.Mappings[i].JiraProject, project) {
			return &c.Jira.Mappings[i]
		}
	}
	return nil
}

// IsAuthorAllowed reports whether a username passes the allowlist.
// An empty allowlist allows everyone.
func (c *Config) IsAuthorAllowed(username string) bool {
	if len(c.Webhook.AllowedAuthors) == 0 {
		return true
	}
	for _, allowed := range c.Webhook.AllowedAuthors {
		if strings.EqualFold(allowed, username) {
			return true
		}
	}
	return false
}

// APIAuthToken returns the bearer token protecting the operator API
func (c *Config) APIAuthToken() string {
	if c.Webhook.APIKey != "" {
		return c.Webhook.APIKey
	}
	return c.Webhook.Secret
}

// HasGitLabToken returns true if GitLab token is configured
func (c *Config) HasGitLabToken() bool {
	return c.GitLab.Token != ""
}

// HasGitHubToken returns true if GitHub token is configured
func (c *Config) HasGitHubToken() bool {
	return c.GitHub.Token != ""
}

// HasWebhookSecret returns true if webhook secret is configured
func (c *Config) HasWebhookSecret() bool {
	return c.Webhook.Secret != ""
}

// HasJiraOAuth returns true if the Jira OAuth client is configured
func (c *Config) HasJiraOAuth() bool {
	return c.Jira.ClientID != "" && c.Jira.ClientSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseList parses a comma-separated list
func parseList(raw string) []string {
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0)
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseMappings parses a JSON array of repo mappings from an env var
func parseMappings(key string) ([]RepoMapping, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return nil, nil
	}
	var mappings []RepoMapping
	if err := json.Unmarshal([]byte(raw), &mappings); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", key, err)
	}
	return mappings, nil
}
