package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// IMAPConfig holds the connection settings for the remote mailbox.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password is optional; when empty the OS keyring is consulted.
	Password string `mapstructure:"password" yaml:"password"`

	// TLS selects implicit TLS. When false STARTTLS is used.
	TLS bool `mapstructure:"tls" yaml:"tls"`
}

// Addr returns host:port.
func (c IMAPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RetryConfig controls how a metadata chunk is retried after a bad fetch.
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	InitialDelay time.Duration `mapstructure:"initial_delay" yaml:"initial_delay"`
	MaxDelay     time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier   float64       `mapstructure:"multiplier" yaml:"multiplier"`
}

// PlanConfig holds duplicate detection settings.
type PlanConfig struct {
	// CommitEvery bounds how many duplicate groups share one transaction.
	CommitEvery int `mapstructure:"commit_every" yaml:"commit_every"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP      IMAPConfig  `mapstructure:"imap" yaml:"imap"`
	Database  string      `mapstructure:"database" yaml:"database"`
	AllMail   string      `mapstructure:"all_mail" yaml:"all_mail"`
	BatchSize int         `mapstructure:"batch_size" yaml:"batch_size"`
	Retry     RetryConfig `mapstructure:"retry" yaml:"retry"`
	Plan      PlanConfig  `mapstructure:"plan" yaml:"plan"`
}

// Validation errors returned by AppConfig.Validate.
var (
	ErrMissingUsername = errors.New("imap username is required")
	ErrMissingDatabase = errors.New("database path is required")
)

// DefaultBatchSize is the number of sequence numbers sent per remote call.
const DefaultBatchSize = 25

// DefaultConfigDir returns ~/.config/imapdedup, or the working directory
// when the home directory is unknown.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "imapdedup")
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultAppConfig returns the configuration used when no file exists.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Host: "imap.mail.me.com",
			Port: 993,
			TLS:  true,
		},
		Database:  filepath.Join(DefaultConfigDir(), "imapdedup.db"),
		BatchSize: DefaultBatchSize,
		Retry: RetryConfig{
			MaxAttempts:  10,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     time.Second,
			Multiplier:   2,
		},
		Plan: PlanConfig{
			CommitEvery: 100,
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// Environment variables prefixed with IMAPDEDUP_ override file values
// (IMAPDEDUP_IMAP_PASSWORD, IMAPDEDUP_ALL_MAIL, ...). A missing file yields
// the defaults.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("imapdedup")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("imap.host", def.IMAP.Host)
	v.SetDefault("imap.port", def.IMAP.Port)
	v.SetDefault("imap.tls", def.IMAP.TLS)
	v.SetDefault("imap.username", "")
	v.SetDefault("imap.password", "")
	v.SetDefault("database", def.Database)
	v.SetDefault("all_mail", "")
	v.SetDefault("batch_size", def.BatchSize)
	v.SetDefault("retry.max_attempts", def.Retry.MaxAttempts)
	v.SetDefault("retry.initial_delay", def.Retry.InitialDelay)
	v.SetDefault("retry.max_delay", def.Retry.MaxDelay)
	v.SetDefault("retry.multiplier", def.Retry.Multiplier)
	v.SetDefault("plan.commit_every", def.Plan.CommitEvery)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		var pathErr *os.PathError
		if !errors.As(err, &notFound) && !errors.As(err, &pathErr) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.BatchSize < 1 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Plan.CommitEvery < 1 {
		cfg.Plan.CommitEvery = def.Plan.CommitEvery
	}
	cfg.Database = expandHome(cfg.Database)

	return cfg, nil
}

// Validate checks the settings every command needs.
func (c *AppConfig) Validate() error {
	if c.Database == "" {
		return ErrMissingDatabase
	}
	return nil
}

// ValidateRemote checks the settings needed to talk to the server.
func (c *AppConfig) ValidateRemote() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.IMAP.Username == "" {
		return ErrMissingUsername
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
