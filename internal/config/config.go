package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Notification storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSONL  = "jsonl"
)

// Config defines server configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       StorageConfig       `yaml:"storage"`
	DB            DBConfig            `yaml:"db"`
	Notifications NotificationsConfig `yaml:"notifications"`
	Uploads       UploadsConfig       `yaml:"uploads"`
	WhatsApp      WhatsAppConfig      `yaml:"whatsapp"`
	Diagnostics   DiagnosticsConfig   `yaml:"diagnostics"`
	RateLimit     RateLimitConfig     `yaml:"rate_limit"`
	Log           LogConfig           `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// TrustProxyHeaders reads the client address from X-Forwarded-For and
	// X-Real-IP. Leave it off unless a proxy in front overwrites them.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers"`
}

type StorageConfig struct {
	Root string `yaml:"root"`
}

type DBConfig struct {
	// Path defaults to <storage.root>/kinboard.db.
	Path string `yaml:"path"`
}

type NotificationsConfig struct {
	Backend             string `yaml:"backend"`
	SnippetLength       int    `yaml:"snippet_length"`
	RecordRegistrations bool   `yaml:"record_registrations"`
}

type UploadsConfig struct {
	Extensions           []string `yaml:"extensions"`
	MaxRequestBytes      int64    `yaml:"max_request_bytes"`
	MissingRequiresPhoto bool     `yaml:"missing_requires_photo"`
}

type WhatsAppConfig struct {
	AccountSID         string        `yaml:"account_sid"`
	AuthToken          string        `yaml:"auth_token"`
	From               string        `yaml:"from"`
	BaseURL            string        `yaml:"base_url"`
	DefaultCountryCode string        `yaml:"default_country_code"`
	Timeout            time.Duration `yaml:"timeout"`
	Retries            int           `yaml:"retries"`
	DispatchTimeout    time.Duration `yaml:"dispatch_timeout"`
}

type DiagnosticsConfig struct {
	// Key is compared in constant time, or with bcrypt when it is a bcrypt hash.
	// Empty disables the diagnostic endpoint.
	Key string `yaml:"key"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Root: "data",
		},
		Notifications: NotificationsConfig{
			Backend:             BackendSQLite,
			SnippetLength:       160,
			RecordRegistrations: true,
		},
		Uploads: UploadsConfig{
			Extensions:           []string{".jpg", ".jpeg", ".png", ".webp"},
			MaxRequestBytes:      32 << 20,
			MissingRequiresPhoto: true,
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:            "https://api.twilio.com",
			DefaultCountryCode: "+91",
			Timeout:            10 * time.Second,
			Retries:            2,
			DispatchTimeout:    30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerMinute: 30,
			Burst:             10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadDotEnv loads variables from the given files into the process
// environment without overriding values that are already set. Missing files
// are ignored.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("KINBOARD_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("KINBOARD_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("KINBOARD_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid KINBOARD_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if trust := os.Getenv("KINBOARD_SERVER_TRUST_PROXY_HEADERS"); trust != "" {
		v, err := strconv.ParseBool(trust)
		if err != nil {
			return fmt.Errorf("invalid KINBOARD_SERVER_TRUST_PROXY_HEADERS: %w", err)
		}
		cfg.Server.TrustProxyHeaders = v
	}
	if root := os.Getenv("KINBOARD_STORAGE_ROOT"); root != "" {
		cfg.Storage.Root = root
	}
	if dbPath := os.Getenv("KINBOARD_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if backend := os.Getenv("KINBOARD_NOTIFICATIONS_BACKEND"); backend != "" {
		cfg.Notifications.Backend = backend
	}
	if maxStr := os.Getenv("KINBOARD_UPLOADS_MAX_REQUEST_BYTES"); maxStr != "" {
		n, err := strconv.ParseInt(maxStr, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid KINBOARD_UPLOADS_MAX_REQUEST_BYTES: %w", err)
		}
		cfg.Uploads.MaxRequestBytes = n
	}
	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		cfg.WhatsApp.AccountSID = sid
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		cfg.WhatsApp.AuthToken = token
	}
	if from := os.Getenv("TWILIO_WHATSAPP_FROM"); from != "" {
		cfg.WhatsApp.From = from
	}
	if baseURL := os.Getenv("KINBOARD_WHATSAPP_BASE_URL"); baseURL != "" {
		cfg.WhatsApp.BaseURL = baseURL
	}
	if key := os.Getenv("KINBOARD_DIAGNOSTICS_KEY"); key != "" {
		cfg.Diagnostics.Key = key
	}
	if level := os.Getenv("KINBOARD_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if logPath := os.Getenv("KINBOARD_LOG_PATH"); logPath != "" {
		cfg.Log.Path = logPath
	}
	return nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Storage.Root == "" {
		return errors.New("storage.root is required")
	}
	switch c.Notifications.Backend {
	case BackendSQLite, BackendJSONL:
	default:
		return fmt.Errorf("unknown notifications.backend %q", c.Notifications.Backend)
	}
	if from := strings.TrimSpace(c.WhatsApp.From); from != "" && !strings.HasPrefix(from, "+") {
		return fmt.Errorf("whatsapp.from %q must be in international format with a leading +", from)
	}
	if c.Uploads.MaxRequestBytes <= 0 {
		return errors.New("uploads.max_request_bytes must be positive")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerMinute <= 0 || c.RateLimit.Burst <= 0) {
		return errors.New("rate_limit requires positive requests_per_minute and burst")
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// DBPath resolves the SQLite database location.
func (c Config) DBPath() string {
	if c.DB.Path != "" {
		return c.DB.Path
	}
	return filepath.Join(c.Storage.Root, "kinboard.db")
}

// DiagnosticsEnabled reports whether a diagnostic key is configured.
func (c Config) DiagnosticsEnabled() bool {
	return strings.TrimSpace(c.Diagnostics.Key) != ""
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
