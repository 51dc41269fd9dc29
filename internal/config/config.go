// Package config loads and validates txbridge configuration.
//
// Configuration comes from an optional YAML file (with ${ENV} expansion),
// .env files and TX_* environment overrides, in that order of precedence.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	TX        TXConfig        `yaml:"tx"`
	Storage   StorageConfig   `yaml:"storage"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Dispatch  DispatchConfig  `yaml:"dispatch"`
	Server    ServerConfig    `yaml:"server"`
	Workspace WorkspaceConfig `yaml:"workspace"`
	Events    EventsConfig    `yaml:"events"`
	Notify    NotifyConfig    `yaml:"notify"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// TXConfig is the per-invocation context handed to the webhook and callback
// entry points. Fields mirror the variables an API gateway would inject.
type TXConfig struct {
	APIURL             string `yaml:"api_url"`
	PreConvertBucket   string `yaml:"pre_convert_bucket"`
	CDNBucket          string `yaml:"cdn_bucket"`
	GogsURL            string `yaml:"gogs_url"`
	GogsUserToken      string `yaml:"gogs_user_token"`
	SourceURLBase      string `yaml:"source_url_base,omitempty"`
	CommitPrefixLength int    `yaml:"commit_prefix_length,omitempty"`
	RequestTimeout     string `yaml:"request_timeout,omitempty"`
}

// StorageConfig selects and configures the object store backend.
type StorageConfig struct {
	Backend   StorageBackend `yaml:"backend"` // s3|fs
	Endpoint  string         `yaml:"endpoint,omitempty"`
	Region    string         `yaml:"region,omitempty"`
	AccessKey string         `yaml:"access_key,omitempty"`
	SecretKey string         `yaml:"secret_key,omitempty"`
	UseSSL    bool           `yaml:"use_ssl"`
	Root      string         `yaml:"root,omitempty"` // fs backend base directory
}

// StorageBackend enumerates supported object store implementations.
type StorageBackend string

const (
	StorageS3 StorageBackend = "s3"
	StorageFS StorageBackend = "fs"
)

// FetchConfig configures the archive fetcher collaborator.
type FetchConfig struct {
	Mode         FetchMode        `yaml:"mode"` // archive|git
	Timeout      string           `yaml:"timeout,omitempty"`
	RetryBackoff RetryBackoffMode `yaml:"retry_backoff,omitempty"`
	RetryInitial string           `yaml:"retry_initial_delay,omitempty"`
	RetryMax     string           `yaml:"retry_max_delay,omitempty"`
	MaxRetries   int              `yaml:"max_retries"`
	CacheSize    int              `yaml:"cache_size,omitempty"`
}

// FetchMode selects how repository content is obtained.
type FetchMode string

const (
	FetchArchive FetchMode = "archive"
	FetchGit     FetchMode = "git"
)

// DispatchConfig holds the resource-category normalization table.
// Entries are merged over the built-in defaults.
type DispatchConfig struct {
	ResourceAliases map[string]string `yaml:"resource_aliases,omitempty"`
}

// ServerConfig configures the HTTP listeners.
type ServerConfig struct {
	WebhookAddr    string `yaml:"webhook_addr"`
	AdminAddr      string `yaml:"admin_addr"`
	MaxConnections int    `yaml:"max_connections,omitempty"`
}

// WorkspaceConfig configures per-invocation scratch directories.
type WorkspaceConfig struct {
	BaseDir       string `yaml:"base_dir,omitempty"`
	MaxAge        string `yaml:"max_age,omitempty"`
	SweepInterval string `yaml:"sweep_interval,omitempty"`
}

// EventsConfig configures the lifecycle audit log.
type EventsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// NotifyConfig configures lifecycle notifications over NATS.
type NotifyConfig struct {
	Enabled bool   `yaml:"enabled"`
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// LoggingConfig configures the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // text|json
}

// Load loads configuration from the specified file. An empty path loads
// defaults and environment only.
func Load(configPath string) (*Config, error) {
	loadEnvFiles()

	cfg := &Config{}
	if configPath != "" {
		data, err := os.ReadFile(configPath) // #nosec G304 -- operator supplied path
		if err != nil {
			if os.IsNotExist(err) {
				return nil, fmt.Errorf("configuration file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	if err := applyDefaults(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	example := Config{
		TX: TXConfig{
			APIURL:           "https://api.example.org",
			PreConvertBucket: "tx-webhook-client",
			CDNBucket:        "cdn.example.org",
			GogsURL:          "https://git.example.org",
			GogsUserToken:    "${TX_GOGS_USER_TOKEN}",
		},
		Storage: StorageConfig{
			Backend:   StorageS3,
			Endpoint:  "s3.amazonaws.com",
			Region:    "us-west-2",
			AccessKey: "${TX_STORAGE_ACCESS_KEY}",
			SecretKey: "${TX_STORAGE_SECRET_KEY}",
			UseSSL:    true,
		},
		Fetch: FetchConfig{Mode: FetchArchive, MaxRetries: 2},
		Dispatch: DispatchConfig{ResourceAliases: map[string]string{
			"ulb": "bible",
			"udb": "bible",
		}},
		Server: ServerConfig{WebhookAddr: ":8080", AdminAddr: ":8081"},
	}

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// parseDuration parses a duration string, falling back when empty or invalid.
func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// RequestTimeoutDuration returns the conversion service request timeout.
func (t TXConfig) RequestTimeoutDuration() time.Duration {
	return parseDuration(t.RequestTimeout, 60*time.Second)
}

// TimeoutDuration returns the per-request archive download timeout.
func (f FetchConfig) TimeoutDuration() time.Duration {
	return parseDuration(f.Timeout, 2*time.Minute)
}

// MaxAgeDuration returns how long a workspace may live before the janitor removes it.
func (w WorkspaceConfig) MaxAgeDuration() time.Duration {
	return parseDuration(w.MaxAge, 6*time.Hour)
}

// SweepIntervalDuration returns the janitor period.
func (w WorkspaceConfig) SweepIntervalDuration() time.Duration {
	return parseDuration(w.SweepInterval, 30*time.Minute)
}

// SlogLevel maps the configured level name onto a slog level; unknown names mean info.
func (l LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
