package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v2"

	"jira2yatracker/internal/mapping"
	"jira2yatracker/internal/models"
)

const (
	defaultTrackerURL         = "https://api.tracker.yandex.net"
	defaultTimeoutSeconds     = 30
	defaultUnknownAuthor      = "unknown"
	defaultCommentTimezone    = "UTC"
	defaultPlaceholderSummary = "[JIRA2YT] WIP"
	defaultRetryDelaySeconds  = 3

	// AccountTypeCloud selects the Yandex Cloud organisation header
	AccountTypeCloud = "cloud"
)

// Config represents the application configuration
type Config struct {
	ProjectAndQueueKey     string           `yaml:"project_and_queue_key"`
	FinalStatusForWIPIssue string           `yaml:"final_status_for_wip_issue"`
	Connection             ConnectionConfig `yaml:"connection"`
	Migration              MigrationConfig  `yaml:"migration"`
	Retry                  RetryConfig      `yaml:"retry"`
}

// ConnectionConfig groups the credentials of both services
type ConnectionConfig struct {
	Jira          JiraConfig    `yaml:"jira"`
	YandexTracker TrackerConfig `yaml:"yandex_tracker"`
}

// JiraConfig represents JIRA API configuration
type JiraConfig struct {
	URL            string `yaml:"url"`
	Username       string `yaml:"username"`
	APIToken       string `yaml:"api_token"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// TrackerConfig represents Yandex Tracker API configuration
type TrackerConfig struct {
	URL            string `yaml:"url"`
	Token          string `yaml:"token"`
	OrgID          string `yaml:"org_id"`
	AccountType    string `yaml:"account_type"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// MigrationConfig tunes how issues are translated
type MigrationConfig struct {
	UnknownAuthor      string `yaml:"unknown_author"`
	CommentTimezone    string `yaml:"comment_timezone"`
	ListTraversal      string `yaml:"list_traversal"`
	PlaceholderSummary string `yaml:"placeholder_summary"`
	DumpDir            string `yaml:"dump_dir"`
}

// RetryConfig controls retries of transient API failures. One attempt means no retry.
type RetryConfig struct {
	Attempts     int `yaml:"attempts"`
	DelaySeconds int `yaml:"delay_seconds"`
}

// LoadConfig loads configuration from a YAML file
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, &models.ConfigurationError{Reason: fmt.Sprintf("failed to read config file '%s'", configPath), Err: err}
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, &models.ConfigurationError{Reason: fmt.Sprintf("failed to parse config file '%s'", configPath), Err: err}
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) applyDefaults() {
	c.Connection.Jira.URL = strings.TrimRight(c.Connection.Jira.URL, "/")
	if c.Connection.Jira.TimeoutSeconds <= 0 {
		c.Connection.Jira.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Connection.YandexTracker.URL == "" {
		c.Connection.YandexTracker.URL = defaultTrackerURL
	}
	c.Connection.YandexTracker.URL = strings.TrimRight(c.Connection.YandexTracker.URL, "/")
	if c.Connection.YandexTracker.TimeoutSeconds <= 0 {
		c.Connection.YandexTracker.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Migration.UnknownAuthor == "" {
		c.Migration.UnknownAuthor = defaultUnknownAuthor
	}
	if c.Migration.CommentTimezone == "" {
		c.Migration.CommentTimezone = defaultCommentTimezone
	}
	if c.Migration.PlaceholderSummary == "" {
		c.Migration.PlaceholderSummary = defaultPlaceholderSummary
	}
	if c.Retry.Attempts <= 0 {
		c.Retry.Attempts = 1
	}
	if c.Retry.DelaySeconds <= 0 {
		c.Retry.DelaySeconds = defaultRetryDelaySeconds
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	invalid := func(format string, args ...interface{}) error {
		return &models.ConfigurationError{Reason: fmt.Sprintf(format, args...)}
	}

	if c.ProjectAndQueueKey == "" {
		return invalid("project_and_queue_key is required")
	}
	if strings.ContainsAny(c.ProjectAndQueueKey, "- ") {
		return invalid("project_and_queue_key '%s' must not contain dashes or spaces", c.ProjectAndQueueKey)
	}
	if c.FinalStatusForWIPIssue == "" {
		return invalid("final_status_for_wip_issue is required")
	}
	if c.Connection.Jira.URL == "" {
		return invalid("connection.jira.url is required")
	}
	if c.Connection.Jira.Username == "" {
		return invalid("connection.jira.username is required")
	}
	if c.Connection.Jira.APIToken == "" {
		return invalid("connection.jira.api_token is required")
	}
	if c.Connection.YandexTracker.Token == "" {
		return invalid("connection.yandex_tracker.token is required")
	}
	if c.Connection.YandexTracker.OrgID == "" {
		return invalid("connection.yandex_tracker.org_id is required")
	}
	switch c.Connection.YandexTracker.AccountType {
	case "", "organization", AccountTypeCloud:
	default:
		return invalid("connection.yandex_tracker.account_type must be 'organization' or 'cloud', got '%s'", c.Connection.YandexTracker.AccountType)
	}
	if _, err := c.CommentLocation(); err != nil {
		return invalid("migration.comment_timezone: %v", err)
	}
	if _, err := c.ListPolicy(); err != nil {
		return invalid("migration.list_traversal: %v", err)
	}

	return nil
}

// CommentLocation returns the time zone comment timestamps are rendered in
func (c *Config) CommentLocation() (*time.Location, error) {
	return time.LoadLocation(c.Migration.CommentTimezone)
}

// ListPolicy returns the configured dotted-path list traversal policy
func (c *Config) ListPolicy() (mapping.ListPolicy, error) {
	return mapping.ParseListPolicy(c.Migration.ListTraversal)
}

// IsCloud reports whether the tracker organisation is a Yandex Cloud one
func (c *TrackerConfig) IsCloud() bool {
	return c.AccountType == AccountTypeCloud
}

// RetryDelay returns the base delay between retries
func (c *RetryConfig) RetryDelay() time.Duration {
	return time.Duration(c.DelaySeconds) * time.Second
}
