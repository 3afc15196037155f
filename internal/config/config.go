package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Mail     MailConfig     `yaml:"mail"`
	Auth     AuthConfig     `yaml:"auth"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds the PostgreSQL connection settings. An empty URL
// runs the server on in-memory repositories.
type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// RedisConfig holds the optional Redis connection used for dispatch locks.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MailConfig selects and configures the outbound mail transport.
//
// Provider may be "simulation", "smtp", "ses" or "resend". When empty the
// first provider with credentials wins, in the order smtp, ses, resend; with
// no credentials at all the simulation transport is used.
type MailConfig struct {
	Provider       string       `yaml:"provider"`
	FromEmail      string       `yaml:"from_email"`
	FromName       string       `yaml:"from_name"`
	ProductName    string       `yaml:"product_name"`
	TimeoutSeconds int          `yaml:"timeout_seconds"`
	SMTP           SMTPConfig   `yaml:"smtp"`
	SES            SESConfig    `yaml:"ses"`
	Resend         ResendConfig `yaml:"resend"`
}

// Timeout returns the per-call transport timeout.
func (c MailConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// SMTPConfig holds SMTP relay credentials.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Configured reports whether SMTP credentials are present.
func (c SMTPConfig) Configured() bool {
	return c.Username != "" && c.Password != ""
}

// SESConfig holds AWS SES credentials
type SESConfig struct {
	Region    string `yaml:"region"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// Configured reports whether SES credentials are present.
func (c SESConfig) Configured() bool {
	return c.AccessKey != "" && c.SecretKey != ""
}

// ResendConfig holds the Resend API key.
type ResendConfig struct {
	APIKey string `yaml:"api_key"`
}

// Configured reports whether a Resend API key is present.
func (c ResendConfig) Configured() bool {
	return c.APIKey != ""
}

// AuthConfig holds Google OAuth settings for the admin console.
type AuthConfig struct {
	Enabled            bool   `yaml:"enabled"`
	GoogleClientID     string `yaml:"google_client_id"`
	GoogleClientSecret string `yaml:"google_client_secret"`
	AllowedDomain      string `yaml:"allowed_domain"`
	BaseURL            string `yaml:"base_url"`
	CookieName         string `yaml:"cookie_name"`
	CookieMaxAge       int    `yaml:"cookie_max_age"`
}

// DispatchConfig tunes campaign dispatch.
type DispatchConfig struct {
	LockTTLSeconds    int `yaml:"lock_ttl_seconds"`
	RenderConcurrency int `yaml:"render_concurrency"`
}

// LockTTL returns the dispatch lock lifetime.
func (c DispatchConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedactPII defaults to true when unset.
func (c LoggingConfig) ShouldRedactPII() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 10
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Mail.FromEmail == "" {
		cfg.Mail.FromEmail = "noreply@pitchperfectai.com"
	}
	if cfg.Mail.FromName == "" {
		cfg.Mail.FromName = "PitchPerfectAI Team"
	}
	if cfg.Mail.ProductName == "" {
		cfg.Mail.ProductName = "PitchPerfectAI"
	}
	if cfg.Mail.TimeoutSeconds == 0 {
		cfg.Mail.TimeoutSeconds = 30
	}
	if cfg.Mail.SMTP.Host == "" {
		cfg.Mail.SMTP.Host = "smtp.gmail.com"
	}
	if cfg.Mail.SMTP.Port == 0 {
		cfg.Mail.SMTP.Port = 587
	}
	if cfg.Mail.SES.Region == "" {
		cfg.Mail.SES.Region = "us-east-1"
	}
	if cfg.Auth.CookieName == "" {
		cfg.Auth.CookieName = "waitlist_session"
	}
	if cfg.Auth.CookieMaxAge == 0 {
		cfg.Auth.CookieMaxAge = 86400
	}
	if cfg.Dispatch.LockTTLSeconds == 0 {
		cfg.Dispatch.LockTTLSeconds = 600
	}
	if cfg.Dispatch.RenderConcurrency == 0 {
		cfg.Dispatch.RenderConcurrency = 8
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in production.
// A missing config file is not an error here.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		cfg.applyDefaults()
	} else if err != nil {
		return nil, err
	}

	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString("DATABASE_URL", &cfg.Database.URL)
	setString("REDIS_ADDR", &cfg.Redis.Addr)
	setString("REDIS_PASSWORD", &cfg.Redis.Password)

	setString("MAIL_PROVIDER", &cfg.Mail.Provider)
	setString("FROM_EMAIL", &cfg.Mail.FromEmail)
	setString("FROM_NAME", &cfg.Mail.FromName)
	setString("SMTP_SERVER", &cfg.Mail.SMTP.Host)
	setInt("SMTP_PORT", &cfg.Mail.SMTP.Port)
	setString("SMTP_USERNAME", &cfg.Mail.SMTP.Username)
	setString("SMTP_PASSWORD", &cfg.Mail.SMTP.Password)
	setString("AWS_SES_ACCESS_KEY", &cfg.Mail.SES.AccessKey)
	setString("AWS_SES_SECRET_KEY", &cfg.Mail.SES.SecretKey)
	setString("AWS_SES_REGION", &cfg.Mail.SES.Region)
	setString("RESEND_API_KEY", &cfg.Mail.Resend.APIKey)

	// Auth overrides
	setString("GOOGLE_CLIENT_ID", &cfg.Auth.GoogleClientID)
	setString("GOOGLE_CLIENT_SECRET", &cfg.Auth.GoogleClientSecret)
	setString("AUTH_ALLOWED_DOMAIN", &cfg.Auth.AllowedDomain)
	setString("AUTH_BASE_URL", &cfg.Auth.BaseURL)
	if v := os.Getenv("AUTH_ENABLED"); v != "" {
		cfg.Auth.Enabled = strings.EqualFold(v, "true") || v == "1"
	}

	setString("LOG_LEVEL", &cfg.Logging.Level)

	return cfg, nil
}
