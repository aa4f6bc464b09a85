package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
)

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	API         APIConfig         `toml:"api"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Log         LogConfig         `toml:"log"`
}

// APIConfig points at the backend serving the /api surface.
type APIConfig struct {
	BaseURL           string  `toml:"base_url"`
	TimeoutSeconds    int     `toml:"timeout_seconds"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	MaxResults        int     `toml:"max_results"`
}

// CredentialsConfig selects where the bearer token is persisted.
type CredentialsConfig struct {
	Store    string `toml:"store"`
	FilePath string `toml:"file_path"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the local OAuth landing server.
type ServerConfig struct {
	Host                string `toml:"host"`
	Port                int    `toml:"port"`
	LoginTimeoutSeconds int    `toml:"login_timeout_seconds"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: api.base_url %q is not an absolute URL", ErrInvalidConfig, c.API.BaseURL)
	}

	switch c.Credentials.Store {
	case StoreSQLite, StoreFile:
	default:
		return fmt.Errorf("%w: unknown credentials.store %q", ErrInvalidConfig, c.Credentials.Store)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}

	return nil
}

// Origin returns the scheme and host of the API base URL, used to scope stored credentials.
func (c *Config) Origin() string {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil {
		return strings.TrimRight(c.API.BaseURL, "/")
	}
	return u.Scheme + "://" + u.Host
}

// Timeout returns the per-request API timeout.
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 15 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// LoginTimeout bounds how long the landing server waits for the OAuth return.
func (c *Config) LoginTimeout() time.Duration {
	if c.Server.LoginTimeoutSeconds <= 0 {
		return 3 * time.Minute
	}
	return time.Duration(c.Server.LoginTimeoutSeconds) * time.Second
}

// ListenAddr returns host:port for the landing server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// CallbackURL returns the landing URL the provider redirects back to.
func (c *Config) CallbackURL() string {
	return fmt.Sprintf("http://%s/auth/google", c.ListenAddr())
}
