// Package config provides YAML-based configuration loading for captrack.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level captrack configuration, loaded from captrack.yaml.
type Config struct {
	Developer       DeveloperConfig `yaml:"developer"`
	Timezone        string          `yaml:"timezone"`
	TranscriptRoots []string        `yaml:"transcript_roots"`
	ProjectsDir     string          `yaml:"projects_dir"`
	Exclude         []string        `yaml:"exclude"`
	StateDir        string          `yaml:"state_dir"`

	// ActiveGapMinutes is the idle threshold: consecutive transcript events
	// further apart than this do not count toward active time.
	ActiveGapMinutes int `yaml:"active_gap_minutes"`
	// FallbackActiveRatio estimates active time as a fraction of wall-clock
	// time when no granular timestamps exist.
	FallbackActiveRatio float64 `yaml:"fallback_active_ratio"`

	Store  StoreConfig  `yaml:"store"`
	DB     DBConfig     `yaml:"db"`
	Server ServerConfig `yaml:"server"`
	Notify NotifyConfig `yaml:"notify"`
	GitHub GitHubConfig `yaml:"github"`
}

// DeveloperConfig identifies the developer whose activity is collected.
type DeveloperConfig struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// StoreConfig holds the evidence store endpoint and credentials.
type StoreConfig struct {
	URL   string `yaml:"url"`
	Token string `yaml:"token"`
}

// DBConfig selects and configures the store's database backend.
type DBConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file path
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

// ServerConfig configures the local store API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// NotifyConfig holds optional sync notification targets.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures Slack notifications via a bot token.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig configures Discord notifications via a bot token.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// GitHubConfig configures optional discovery enrichment from the GitHub API.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	home, _ := os.UserHomeDir()

	if c.Timezone == "" {
		c.Timezone = "America/New_York"
	}
	if len(c.TranscriptRoots) == 0 && home != "" {
		c.TranscriptRoots = []string{filepath.Join(home, ".claude", "projects")}
	}
	if c.ProjectsDir == "" && home != "" {
		c.ProjectsDir = filepath.Join(home, "projects")
	}
	if c.StateDir == "" && home != "" {
		c.StateDir = filepath.Join(home, ".captrack")
	}
	if c.ActiveGapMinutes == 0 {
		c.ActiveGapMinutes = 15
	}
	if c.FallbackActiveRatio == 0 {
		c.FallbackActiveRatio = 0.6
	}
	if c.Store.URL == "" {
		c.Store.URL = "http://localhost:8321"
	}
	if c.Store.Token == "" {
		c.Store.Token = os.Getenv("CAPTRACK_API_TOKEN")
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Path == "" && c.StateDir != "" {
		c.DB.Path = filepath.Join(c.StateDir, "captrack.db")
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" {
		c.DB.Database = "captrack"
	}
	if c.DB.User == "" {
		c.DB.User = "root"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8321
	}
	if c.GitHub.Token == "" {
		c.GitHub.Token = os.Getenv("GITHUB_TOKEN")
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Developer.Email == "" {
		errs = append(errs, "developer.email is required")
	}
	if c.ActiveGapMinutes < 0 {
		errs = append(errs, "active_gap_minutes must not be negative")
	}
	if c.FallbackActiveRatio < 0 || c.FallbackActiveRatio > 1 {
		errs = append(errs, "fallback_active_ratio must be within (0, 1]")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is not a valid IANA zone", c.Timezone))
	}
	if c.DB.Driver != "sqlite" && c.DB.Driver != "mysql" {
		errs = append(errs, fmt.Sprintf("db.driver must be sqlite or mysql, got %q", c.DB.Driver))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Location returns the configured timezone as a *time.Location.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ActiveGap returns the idle threshold as a Duration.
func (c *Config) ActiveGap() time.Duration {
	return time.Duration(c.ActiveGapMinutes) * time.Minute
}
