package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Auth modes.
const (
	AuthDevelopment = "development"
	AuthJWT         = "jwt"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	LogFile       string `mapstructure:"LOG_FILE"`
	LogMaxSizeMB  int    `mapstructure:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `mapstructure:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `mapstructure:"LOG_MAX_AGE_DAYS"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	AuthMode       string   `mapstructure:"AUTH_MODE"`
	AuthIssuer     string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience   string   `mapstructure:"AUTH_AUDIENCE"`
	AuthSigningKey string   `mapstructure:"AUTH_SIGNING_KEY"`
	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`

	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	CacheSize int           `mapstructure:"CACHE_SIZE"`
	CacheTTL  time.Duration `mapstructure:"CACHE_TTL"`

	ClinicalTablesFile string `mapstructure:"CLINICAL_TABLES_FILE"`

	KMeansSeed    uint64 `mapstructure:"KMEANS_SEED"`
	KMeansMaxIter int    `mapstructure:"KMEANS_MAX_ITER"`
	KMeansNInit   int    `mapstructure:"KMEANS_N_INIT"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS", "LOG_MAX_AGE_DAYS",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"AUTH_MODE", "AUTH_ISSUER", "AUTH_AUDIENCE", "AUTH_SIGNING_KEY", "CORS_ORIGINS",
	"REQUEST_TIMEOUT", "BODY_LIMIT", "CACHE_SIZE", "CACHE_TTL", "CLINICAL_TABLES_FILE",
	"KMEANS_SEED", "KMEANS_MAX_ITER", "KMEANS_N_INIT",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("AUTH_MODE", "") // inferred from ENV
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", "2M")
	v.SetDefault("CACHE_SIZE", 512)
	v.SetDefault("CACHE_TTL", "10m")
	v.SetDefault("KMEANS_SEED", 42)
	v.SetDefault("KMEANS_MAX_ITER", 100)
	v.SetDefault("KMEANS_N_INIT", 10)

	// Unmarshal only sees env vars that are bound explicitly.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("bind %s: %w", k, err)
		}
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// viper splits comma lists from the environment but keeps the spaces
	cfg.CORSOrigins = splitList(strings.Join(cfg.CORSOrigins, ","))
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set. Otherwise development
// environments run without token checks and every other environment
// requires signed tokens.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return AuthDevelopment
	}
	return AuthJWT
}

// SigningKey decodes AUTH_SIGNING_KEY.
func (c *Config) SigningKey() ([]byte, error) {
	key, err := hex.DecodeString(c.AuthSigningKey)
	if err != nil {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY is not valid hex: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("AUTH_SIGNING_KEY must decode to at least 32 bytes, got %d", len(key))
	}
	return key, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case AuthDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE %q is not allowed when ENV=production", mode)
		}
	case AuthJWT:
		if c.AuthSigningKey == "" {
			return fmt.Errorf("AUTH_SIGNING_KEY is required when AUTH_MODE is %q", mode)
		}
		if _, err := c.SigningKey(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthDevelopment, AuthJWT, mode)
	}

	if c.RequestTimeout < 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must not be negative, got %s", c.RequestTimeout)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("CACHE_SIZE must not be negative, got %d", c.CacheSize)
	}
	if c.CacheSize > 0 && c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be positive when caching is enabled")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.KMeansMaxIter <= 0 || c.KMeansNInit <= 0 {
		return fmt.Errorf("KMEANS_MAX_ITER and KMEANS_N_INIT must be positive")
	}
	return nil
}
