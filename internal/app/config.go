package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/florianilch/jolt-auth/internal/credstore"
	"github.com/florianilch/jolt-auth/internal/secretstore"
	"github.com/florianilch/jolt-auth/internal/twitch"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText       LogFormat = "text"
	LogFormatJSON       LogFormat = "json"
	LogFormatOTLP       LogFormat = "otlp"
	LogFormatStdoutOTel LogFormat = "stdout-otel"
)

// SecretStorageType represents where the client secret is kept.
type SecretStorageType string

const (
	SecretStorageTypeDocument SecretStorageType = "document"
	SecretStorageTypeFile     SecretStorageType = "file"
	SecretStorageTypeEnv      SecretStorageType = "env"
	SecretStorageTypeKeyring  SecretStorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat       = LogFormatText
	DefaultConfigServerHost      = "127.0.0.1"
	DefaultConfigServerPort      = 4000
	DefaultConfigShutdownTimeout = 5 * time.Second
	DefaultConfigSecretStorage   = SecretStorageTypeDocument
	DefaultConfigTwitchTimeout   = 15 * time.Second
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Host string `json:"host" validate:"hostname_rfc1123|ip"`
	Port uint16 `json:"port"` // Port range 0-65535 handled by uint16 type

	// PublicURL is the base of the OAuth redirect URIs registered with Twitch.
	// Derived from host and port if unset.
	PublicURL string `json:"public_url" validate:"required,url"`
}

// ShutdownConfig holds shutdown behavior configuration.
type ShutdownConfig struct {
	// Timeout for graceful shutdown.
	Timeout time.Duration `json:"timeout"`
}

// StoreConfig locates the credentials document.
type StoreConfig struct {
	File string `json:"file" validate:"required"`
}

// SecretConfig describes where the client secret comes from.
type SecretConfig struct {
	Storage SecretStorageType `json:"storage" validate:"required,oneof=document file env keyring"`

	// Storage-specific settings (mutually exclusive based on Storage type)
	File        string `json:"file,omitempty"`         // For file storage: path to secret file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewSecretStore creates a SecretStore from the secret configuration.
// The document backend reads from and writes to store.
func (s *SecretConfig) NewSecretStore(store *credstore.Store) (secretstore.SecretStore, error) {
	switch s.Storage {
	case SecretStorageTypeDocument:
		return secretstore.NewDocumentStore(store)
	case SecretStorageTypeFile:
		return secretstore.NewFileStore(s.File)
	case SecretStorageTypeEnv:
		return secretstore.NewEnvStore(s.EnvKey)
	case SecretStorageTypeKeyring:
		return secretstore.NewKeyringStore(secretstore.KeyringService, s.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Storage)
	}
}

// TwitchConfig holds the provider endpoints and network bounds.
type TwitchConfig struct {
	AuthURL     string `json:"auth_url" validate:"required,url"`
	TokenURL    string `json:"token_url" validate:"required,url"`
	ValidateURL string `json:"validate_url" validate:"required,url"`
	HelixURL    string `json:"helix_url" validate:"required,url"`

	// Timeout bounds the code exchange and user lookup of one callback.
	Timeout time.Duration `json:"timeout"`
}

// Endpoints returns the configured URLs for the Twitch client.
func (t *TwitchConfig) Endpoints() twitch.Endpoints {
	return twitch.Endpoints{
		AuthURL:     t.AuthURL,
		TokenURL:    t.TokenURL,
		ValidateURL: t.ValidateURL,
		HelixURL:    t.HelixURL,
	}
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `json:"enabled"`
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level     `json:"log_level"`
	LogFormat LogFormat      `json:"log_format" validate:"oneof=text json otlp stdout-otel"`
	Server    ServerConfig   `json:"server"`
	Shutdown  ShutdownConfig `json:"shutdown"`
	Store     StoreConfig    `json:"store"`
	Secret    SecretConfig   `json:"secret"`
	Twitch    TwitchConfig   `json:"twitch"`
	Metrics   MetricsConfig  `json:"metrics"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.Server.Host == "" {
		c.Server.Host = DefaultConfigServerHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultConfigServerPort
	}
	if c.Server.PublicURL == "" {
		c.Server.PublicURL = fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
	}
	if c.Shutdown.Timeout == 0 {
		c.Shutdown.Timeout = DefaultConfigShutdownTimeout
	}
	if c.Store.File == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("store.file required (auto-detect failed: %w)", err)
		}
		c.Store.File = filepath.Join(configDir, "joltbot", "twitch.json")
	}
	if c.Secret.Storage == "" {
		c.Secret.Storage = DefaultConfigSecretStorage
	}

	// Dynamic defaults based on storage type
	switch c.Secret.Storage {
	case SecretStorageTypeFile:
		if c.Secret.File == "" {
			c.Secret.File = filepath.Join(filepath.Dir(c.Store.File), "client-secret")
		}
	case SecretStorageTypeKeyring:
		if c.Secret.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("secret.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Secret.KeyringUser = currentUser.Username
		}
	case SecretStorageTypeEnv:
		// env_key must be explicitly configured (no sensible default)
	}

	defaults := twitch.DefaultEndpoints
	if c.Twitch.AuthURL == "" {
		c.Twitch.AuthURL = defaults.AuthURL
	}
	if c.Twitch.TokenURL == "" {
		c.Twitch.TokenURL = defaults.TokenURL
	}
	if c.Twitch.ValidateURL == "" {
		c.Twitch.ValidateURL = defaults.ValidateURL
	}
	if c.Twitch.HelixURL == "" {
		c.Twitch.HelixURL = defaults.HelixURL
	}
	if c.Twitch.Timeout == 0 {
		c.Twitch.Timeout = DefaultConfigTwitchTimeout
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	if c.Shutdown.Timeout < 0 {
		return errors.New("shutdown.timeout cannot be negative")
	}
	if c.Twitch.Timeout < 0 {
		return errors.New("twitch.timeout cannot be negative")
	}

	switch c.Secret.Storage {
	case SecretStorageTypeFile:
		if c.Secret.File == "" {
			return errors.New("file path required for file storage")
		}
	case SecretStorageTypeEnv:
		if c.Secret.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case SecretStorageTypeKeyring:
		if c.Secret.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
