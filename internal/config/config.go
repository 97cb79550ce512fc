package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ayuniq/ayuniq/internal/platform/icd11"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"

	AuthDevelopment = "development"
	AuthJWT         = "jwt"
)

type Config struct {
	Port           string   `mapstructure:"PORT"`
	Env            string   `mapstructure:"ENV"`
	NamasteCSVPath string   `mapstructure:"NAMASTE_CSV_PATH"`
	WatchCSV       bool     `mapstructure:"WATCH_CSV"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
	UploadMaxBytes int64    `mapstructure:"UPLOAD_MAX_BYTES"`

	// WHO ICD-11 API. Durations are given in milliseconds.
	WHOClientID          string `mapstructure:"WHO_CLIENT_ID"`
	WHOClientSecret      string `mapstructure:"WHO_CLIENT_SECRET"`
	WHOTokenURL          string `mapstructure:"WHO_TOKEN_URL"`
	WHOBaseURL           string `mapstructure:"WHO_API_BASE_URL"`
	WHORelease           string `mapstructure:"WHO_API_RELEASE"`
	WHOScope             string `mapstructure:"WHO_API_SCOPE"`
	WHOTimeoutMS         int    `mapstructure:"WHO_API_TIMEOUT"`
	WHORetryAttempts     int    `mapstructure:"WHO_API_RETRY_ATTEMPTS"`
	WHORetryDelayMS      int    `mapstructure:"WHO_API_RETRY_DELAY"`
	WHORequestsPerMinute int    `mapstructure:"WHO_API_REQUESTS_PER_MINUTE"`
	WHORequestDelayMS    int    `mapstructure:"WHO_API_REQUEST_DELAY"`

	MappingStore string `mapstructure:"MAPPING_STORE"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DBMaxConns   int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns   int32  `mapstructure:"DB_MIN_CONNS"`
	BoltPath     string `mapstructure:"BOLT_PATH"`

	AuthMode       string `mapstructure:"AUTH_MODE"`
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string `mapstructure:"AUTH_AUDIENCE"`
}

var keys = []string{
	"PORT", "ENV", "NAMASTE_CSV_PATH", "WATCH_CSV", "CORS_ORIGINS",
	"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "UPLOAD_MAX_BYTES",
	"WHO_CLIENT_ID", "WHO_CLIENT_SECRET", "WHO_TOKEN_URL", "WHO_API_BASE_URL",
	"WHO_API_RELEASE", "WHO_API_SCOPE", "WHO_API_TIMEOUT", "WHO_API_RETRY_ATTEMPTS",
	"WHO_API_RETRY_DELAY", "WHO_API_REQUESTS_PER_MINUTE", "WHO_API_REQUEST_DELAY",
	"MAPPING_STORE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "BOLT_PATH",
	"AUTH_MODE", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_AUDIENCE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	def := icd11.DefaultConfig()

	// Defaults
	v.SetDefault("PORT", "5000")
	v.SetDefault("ENV", "development")
	v.SetDefault("NAMASTE_CSV_PATH", "data/namaste.csv")
	v.SetDefault("WATCH_CSV", false)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)
	v.SetDefault("UPLOAD_MAX_BYTES", 10<<20)
	v.SetDefault("WHO_TOKEN_URL", def.TokenURL)
	v.SetDefault("WHO_API_BASE_URL", def.BaseURL)
	v.SetDefault("WHO_API_RELEASE", def.Release)
	v.SetDefault("WHO_API_SCOPE", def.Scope)
	v.SetDefault("WHO_API_TIMEOUT", def.Timeout.Milliseconds())
	v.SetDefault("WHO_API_RETRY_ATTEMPTS", def.RetryAttempts)
	v.SetDefault("WHO_API_RETRY_DELAY", def.RetryDelay.Milliseconds())
	v.SetDefault("WHO_API_REQUESTS_PER_MINUTE", def.RequestsPerMinute)
	v.SetDefault("WHO_API_REQUEST_DELAY", def.RequestDelay.Milliseconds())
	v.SetDefault("MAPPING_STORE", StoreMemory)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("BOLT_PATH", "data/mappings.db")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = splitList(cfg.CORSOrigins[0])
	}

	if cfg.ResolvedAuthMode() == AuthDevelopment {
		log.Println("WARNING: development auth is active; admin and review routes are open to every caller.")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise development
// environments get open access and everything else requires a JWT.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthDevelopment
	}
	return AuthJWT
}

// ICD11 builds the WHO client configuration.
func (c *Config) ICD11() icd11.Config {
	return icd11.Config{
		ClientID:          c.WHOClientID,
		ClientSecret:      c.WHOClientSecret,
		TokenURL:          c.WHOTokenURL,
		BaseURL:           c.WHOBaseURL,
		Release:           c.WHORelease,
		Scope:             c.WHOScope,
		APIVersion:        icd11.DefaultAPIVersion,
		Timeout:           ms(c.WHOTimeoutMS),
		RetryAttempts:     c.WHORetryAttempts,
		RetryDelay:        ms(c.WHORetryDelayMS),
		RequestsPerMinute: c.WHORequestsPerMinute,
		RequestDelay:      ms(c.WHORequestDelayMS),
	}
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	switch c.MappingStore {
	case StoreMemory:
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when MAPPING_STORE is %q", StorePostgres)
		}
	case StoreBolt:
		if c.BoltPath == "" {
			return fmt.Errorf("BOLT_PATH is required when MAPPING_STORE is %q", StoreBolt)
		}
	default:
		return fmt.Errorf("MAPPING_STORE must be %q, %q or %q, got %q", StoreMemory, StorePostgres, StoreBolt, c.MappingStore)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case AuthDevelopment:
	case AuthJWT:
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY must be set when AUTH_MODE is %q", AuthJWT)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthDevelopment, AuthJWT, mode)
	}

	if c.WHOTimeoutMS < 0 || c.WHORetryDelayMS < 0 || c.WHORequestDelayMS < 0 {
		return fmt.Errorf("WHO API timeouts and delays must not be negative")
	}
	if c.WHORetryAttempts < 0 {
		return fmt.Errorf("WHO_API_RETRY_ATTEMPTS must not be negative, got %d", c.WHORetryAttempts)
	}
	if c.UploadMaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.UploadMaxBytes)
	}
	if c.NamasteCSVPath == "" {
		return fmt.Errorf("NAMASTE_CSV_PATH is required")
	}
	return nil
}
