// Package config provides environment-based configuration for the dist-git importer.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the import worker.
type Config struct {
	// Frontend queue endpoint configuration
	FrontendBaseURL string `yaml:"frontend_base_url"`
	FrontendAuth    string `yaml:"frontend_auth"`

	// SleepInterval is how long the polling loop waits when the queue is empty.
	SleepInterval time.Duration `yaml:"sleep_interval"`

	// WorkDir is the root under which per-task scratch areas are allocated.
	WorkDir string `yaml:"work_dir"`

	// HealthAddr is the listen address for the worker health endpoint.
	HealthAddr string `yaml:"health_addr"`

	// LogLevel is the minimum log level (debug, info, warn, error).
	LogLevel string `yaml:"log_level"`

	// LogFormat selects the log output format (json or text).
	LogFormat string `yaml:"log_format"`

	// DistGit holds the external dist-git helper script locations.
	DistGit DistGitConfig `yaml:"dist_git"`

	// Mock holds sandbox-manager settings.
	Mock MockConfig `yaml:"mock"`
}

// DistGitConfig holds the locations of the dist-git side-effect scripts.
type DistGitConfig struct {
	PackageScript string `yaml:"package_script"`
	BranchScript  string `yaml:"branch_script"`
	ListingScript string `yaml:"listing_script"`
	ListingCache  string `yaml:"listing_cache"`
	ImportScript  string `yaml:"import_script"`
}

// MockConfig holds sandbox build-root settings.
type MockConfig struct {
	// Chroot is the build root used for SCM-driven SRPM builds.
	Chroot string `yaml:"chroot"`
	// CustomChroot is the build root used for custom-script builds.
	CustomChroot string `yaml:"custom_chroot"`
	// ConfigDir is where the base chroot configs live.
	ConfigDir string `yaml:"config_dir"`
	// SourcesCommand is the in-sandbox source-preparation helper.
	SourcesCommand string `yaml:"sources_command"`
}

// Load reads configuration from an optional YAML file (DISTGIT_CONFIG) and
// the environment. Environment variables override file values.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("DISTGIT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.loadEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with defaults for development.
// It does not validate required fields, useful for testing.
func LoadWithDefaults() *Config {
	cfg := defaults()
	cfg.loadEnv()
	return cfg
}

func defaults() *Config {
	return &Config{
		FrontendBaseURL: "http://localhost:8080",
		SleepInterval:   10 * time.Second,
		WorkDir:         "/tmp/copr-dist-git",
		HealthAddr:      ":8099",
		LogLevel:        "info",
		LogFormat:       "json",
		DistGit: DistGitConfig{
			PackageScript: "/usr/share/dist-git/git_package.sh",
			BranchScript:  "/usr/share/dist-git/git_branch.sh",
			ListingScript: "/usr/share/dist-git/cgit_pkg_list.sh",
			ListingCache:  "/var/cache/cgit/pkg-list",
			ImportScript:  "/usr/share/dist-git/import_srpm.sh",
		},
		Mock: MockConfig{
			Chroot:         "epel-7-x86_64",
			CustomChroot:   "fedora-rawhide-x86_64",
			ConfigDir:      "/etc/mock",
			SourcesCommand: "copr-sources-custom",
		},
	}
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() {
	c.FrontendBaseURL = getEnv("FRONTEND_BASE_URL", c.FrontendBaseURL)
	c.FrontendAuth = getEnv("FRONTEND_AUTH", c.FrontendAuth)
	c.SleepInterval = getDurationEnv("SLEEP_INTERVAL", c.SleepInterval)
	c.WorkDir = getEnv("IMPORTER_WORKDIR", c.WorkDir)
	c.HealthAddr = getEnv("HEALTH_ADDR", c.HealthAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.DistGit.PackageScript = getEnv("DISTGIT_PACKAGE_SCRIPT", c.DistGit.PackageScript)
	c.DistGit.BranchScript = getEnv("DISTGIT_BRANCH_SCRIPT", c.DistGit.BranchScript)
	c.DistGit.ListingScript = getEnv("DISTGIT_LISTING_SCRIPT", c.DistGit.ListingScript)
	c.DistGit.ListingCache = getEnv("DISTGIT_LISTING_CACHE", c.DistGit.ListingCache)
	c.DistGit.ImportScript = getEnv("DISTGIT_IMPORT_SCRIPT", c.DistGit.ImportScript)

	c.Mock.Chroot = getEnv("MOCK_CHROOT", c.Mock.Chroot)
	c.Mock.CustomChroot = getEnv("MOCK_CUSTOM_CHROOT", c.Mock.CustomChroot)
	c.Mock.ConfigDir = getEnv("MOCK_CONFIG_DIR", c.Mock.ConfigDir)
	c.Mock.SourcesCommand = getEnv("MOCK_SOURCES_COMMAND", c.Mock.SourcesCommand)
}

// Validate checks that required configuration values are set.
func (c *Config) Validate() error {
	if c.FrontendBaseURL == "" {
		return fmt.Errorf("FRONTEND_BASE_URL is required")
	}
	if strings.HasSuffix(c.FrontendBaseURL, "/") {
		return fmt.Errorf("FRONTEND_BASE_URL must not end with a slash")
	}
	if c.FrontendAuth == "" {
		return fmt.Errorf("FRONTEND_AUTH is required")
	}
	if c.SleepInterval <= 0 {
		return fmt.Errorf("SLEEP_INTERVAL must be positive")
	}
	if c.WorkDir == "" {
		return fmt.Errorf("IMPORTER_WORKDIR is required")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text, got %q", c.LogFormat)
	}
	return nil
}

// getEnv returns the value of the environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDurationEnv returns the duration value of the environment variable or a default.
func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
