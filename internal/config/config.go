package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all mailmark configuration. It is loaded once at startup and
// not modified afterwards.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Firebase   FirebaseConfig   `yaml:"firebase"`
	Search     SearchConfig     `yaml:"search"`
	Paging     PagingConfig     `yaml:"paging"`
	Validation ValidationConfig `yaml:"validation"`
	Session    SessionConfig    `yaml:"session"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr            string  `yaml:"addr"`
	StaticDir       string  `yaml:"static_dir"`
	ShutdownTimeout string  `yaml:"shutdown_timeout"`
	AuthRateLimit   float64 `yaml:"auth_rate_limit"` // requests per second on /api/auth
	AuthBurst       int     `yaml:"auth_burst"`
}

// FirebaseConfig points at the authentication and data endpoints.
type FirebaseConfig struct {
	APIKey      string `yaml:"api_key"`
	AuthURL     string `yaml:"auth_url"`     // Identity Toolkit, e.g. https://identitytoolkit.googleapis.com/v1
	TokenURL    string `yaml:"token_url"`    // token refresh endpoint
	DatabaseURL string `yaml:"database_url"` // Realtime Database root
	Timeout     string `yaml:"timeout"`
}

// SearchConfig configures the search engines.
type SearchConfig struct {
	Engines      []string `yaml:"engines"`
	MailboxDir   string   `yaml:"mailbox_dir"` // enables the mailbox engine when set
	DefaultCount int      `yaml:"default_count"`
	MaxCount     int      `yaml:"max_count"`
}

// PagingConfig lists the page sizes offered to users.
type PagingConfig struct {
	Sizes []int `yaml:"sizes"`
}

// ValidationConfig holds form rules that are not part of the validators.
type ValidationConfig struct {
	PasswordMinLength int `yaml:"password_min_length"`
}

// SessionConfig configures the local session cache.
type SessionConfig struct {
	DatabasePath string `yaml:"database_path"`
	TTL          string `yaml:"ttl"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			StaticDir:       "static",
			ShutdownTimeout: "10s",
			AuthRateLimit:   5,
			AuthBurst:       10,
		},
		Firebase: FirebaseConfig{
			AuthURL:     "https://identitytoolkit.googleapis.com/v1",
			TokenURL:    "https://securetoken.googleapis.com/v1/token",
			DatabaseURL: "http://localhost:9000",
			Timeout:     "15s",
		},
		Search: SearchConfig{
			Engines:      []string{"google", "bing", "yahoo", "duckduckgo"},
			DefaultCount: 10,
			MaxCount:     100,
		},
		Paging: PagingConfig{
			Sizes: []int{10, 25, 50, 100},
		},
		Validation: ValidationConfig{
			PasswordMinLength: 6,
		},
		Session: SessionConfig{
			DatabasePath: "data/mailmark.db",
			TTL:          "168h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("MAILMARK_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if key := os.Getenv("FIREBASE_API_KEY"); key != "" {
		c.Firebase.APIKey = key
	}
	if u := os.Getenv("FIREBASE_AUTH_URL"); u != "" {
		c.Firebase.AuthURL = u
	}
	if u := os.Getenv("FIREBASE_DATABASE_URL"); u != "" {
		c.Firebase.DatabaseURL = u
	}
	if path := os.Getenv("MAILMARK_SESSION_DB"); path != "" {
		c.Session.DatabasePath = path
	}
	if dir := os.Getenv("MAILMARK_MAILBOX_DIR"); dir != "" {
		c.Search.MailboxDir = dir
	}
	if level := os.Getenv("MAILMARK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if n, err := strconv.Atoi(os.Getenv("MAILMARK_PASSWORD_MIN_LENGTH")); err == nil && n > 0 {
		c.Validation.PasswordMinLength = n
	}
}

// GetShutdownTimeout returns the graceful shutdown timeout.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 10*time.Second)
}

// GetFirebaseTimeout returns the HTTP timeout for backend calls.
func (c *Config) GetFirebaseTimeout() time.Duration {
	return parseDuration(c.Firebase.Timeout, 15*time.Second)
}

// GetSessionTTL returns how long an idle session is kept.
func (c *Config) GetSessionTTL() time.Duration {
	return parseDuration(c.Session.TTL, 168*time.Hour)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is empty"))
	}
	for name, raw := range map[string]string{
		"firebase.auth_url":     c.Firebase.AuthURL,
		"firebase.token_url":    c.Firebase.TokenURL,
		"firebase.database_url": c.Firebase.DatabaseURL,
	} {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s is not an absolute URL: %q", name, raw))
		}
	}
	if len(c.Paging.Sizes) == 0 {
		errs = append(errs, errors.New("paging.sizes is empty"))
	}
	for i, s := range c.Paging.Sizes {
		if s <= 0 {
			errs = append(errs, fmt.Errorf("paging.sizes[%d] must be positive, got %d", i, s))
		}
		if i > 0 && s <= c.Paging.Sizes[i-1] {
			errs = append(errs, fmt.Errorf("paging.sizes must be ascending, got %v", c.Paging.Sizes))
			break
		}
	}
	if c.Search.MaxCount <= 0 {
		errs = append(errs, fmt.Errorf("search.max_count must be positive, got %d", c.Search.MaxCount))
	}
	if c.Search.DefaultCount <= 0 || c.Search.DefaultCount > c.Search.MaxCount {
		errs = append(errs, fmt.Errorf("search.default_count must be in 1..%d, got %d", c.Search.MaxCount, c.Search.DefaultCount))
	}
	if len(c.Search.Engines) == 0 && c.Search.MailboxDir == "" {
		errs = append(errs, errors.New("no search engine configured"))
	}
	if c.Validation.PasswordMinLength < 1 {
		errs = append(errs, fmt.Errorf("validation.password_min_length must be positive, got %d", c.Validation.PasswordMinLength))
	}
	if c.Session.DatabasePath == "" {
		errs = append(errs, errors.New("session.database_path is empty"))
	}
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}
