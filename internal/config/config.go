// Package config loads process configuration from defaults, an optional YAML
// file, an optional .env file and the environment, in that order of
// precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/sakif/omi/internal/repository/postgres"
)

const minSecretLength = 16

type Config struct {
	App      AppConfig      `koanf:"app"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	JWT      JWTConfig      `koanf:"jwt"`
	AI       AIConfig       `koanf:"ai"`
	CORS     CORSConfig     `koanf:"cors"`
	Log      LogConfig      `koanf:"log"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	MaxBodyBytes    int64         `koanf:"max_body_bytes"`
}

// DatabaseConfig selects the backend: a non-empty URL means Postgres, an
// empty one means SQLite at Path.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	Path            string        `koanf:"path"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
}

type JWTConfig struct {
	Secret string        `koanf:"secret"`
	Expiry time.Duration `koanf:"expiry"`
}

type AIConfig struct {
	APIKey    string          `koanf:"api_key"`
	BaseURL   string          `koanf:"base_url"`
	Model     string          `koanf:"model"`
	TestMode  bool            `koanf:"test_mode"`
	Timeout   time.Duration   `koanf:"timeout"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
}

type RateLimitConfig struct {
	PerMinute int `koanf:"per_minute"`
	Burst     int `koanf:"burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

const (
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

// Load builds a Config. configPath may be empty. A .env file in the working
// directory is loaded into the process environment when present; variables
// already set are not overwritten.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("config: load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("config: load config file: %w", err)
		}
	}

	// NODE_ENV is the legacy name; loading it first lets ENVIRONMENT win.
	if err := k.Load(env.Provider("NODE_ENV", ".", func(string) string {
		return "app.environment"
	}), nil); err != nil {
		return nil, fmt.Errorf("config: load env vars: %w", err)
	}

	if err := k.Load(env.ProviderWithValue("", ".", envKeyValue), nil); err != nil {
		return nil, fmt.Errorf("config: load env vars: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "OMI API",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             3001,
		"server.read_timeout":     "15s",
		"server.write_timeout":    "90s",
		"server.idle_timeout":     "60s",
		"server.shutdown_timeout": "30s",
		"server.max_body_bytes":   10 << 20,

		"database.path":              "data/omi.db",
		"database.max_open_conns":    25,
		"database.max_idle_conns":    5,
		"database.conn_max_lifetime": "1h",

		"jwt.expiry": "168h",

		"ai.base_url":              "https://api.openai.com/v1",
		"ai.model":                 "gpt-4o-mini",
		"ai.test_mode":             false,
		"ai.timeout":               "60s",
		"ai.rate_limit.per_minute": 30,
		"ai.rate_limit.burst":      10,

		"cors.allowed_origins": []string{
			"https://omi.symmetrycinema.com",
			"http://localhost:5173",
			"http://localhost:3000",
			"http://127.0.0.1:5173",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "text",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"PORT":                     "server.port",
	"HOST":                     "server.host",
	"ENVIRONMENT":              "app.environment",
	"JWT_SECRET":               "jwt.secret",
	"JWT_EXPIRY":               "jwt.expiry",
	"DATABASE_URL":             "database.url",
	"DB_PATH":                  "database.path",
	"OPENAI_API_KEY":           "ai.api_key",
	"OPENAI_BASE_URL":          "ai.base_url",
	"OPENAI_MODEL":             "ai.model",
	"AI_TEST_MODE":             "ai.test_mode",
	"AI_TIMEOUT":               "ai.timeout",
	"AI_RATE_LIMIT_PER_MINUTE": "ai.rate_limit.per_minute",
	"AI_RATE_LIMIT_BURST":      "ai.rate_limit.burst",
	"CORS_ALLOWED_ORIGINS":     "cors.allowed_origins",
	"LOG_LEVEL":                "log.level",
	"LOG_FORMAT":               "log.format",
	"MAX_BODY_BYTES":           "server.max_body_bytes",
}

// envKeyValue maps known variables to config keys and drops the rest.
// An empty variable counts as unset. List-valued variables are comma
// separated.
func envKeyValue(key, value string) (string, any) {
	mapped, ok := envKeyMap[key]
	if !ok || value == "" {
		return "", nil
	}
	if mapped == "cors.allowed_origins" {
		return mapped, splitList(value)
	}
	return mapped, value
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validate(c *Config) error {
	if c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required")
	}

	if len(c.JWT.Secret) < minSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", minSecretLength)
	}

	if c.JWT.Expiry <= 0 {
		return errors.New("jwt.expiry must be positive")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return errors.New("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return errors.New("server.write_timeout must be positive")
	}

	if c.AI.Timeout <= 0 {
		return errors.New("ai.timeout must be positive")
	}

	if c.AI.RateLimit.PerMinute <= 0 || c.AI.RateLimit.Burst <= 0 {
		return errors.New("ai.rate_limit values must be positive")
	}

	if c.Database.URL == "" && c.Database.Path == "" {
		return errors.New("one of DATABASE_URL or DB_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return errors.New("CORS wildcard '*' cannot be used with credentials")
			}
		}
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be text or json", c.Log.Format)
	}

	return nil
}

// Backend reports which storage backend the configuration selects.
func (c *Config) Backend() string {
	if c.Database.URL != "" {
		return BackendPostgres
	}
	return BackendSQLite
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// AIConfigured is true when calls can reach a real provider.
func (c *Config) AIConfigured() bool {
	return c.AI.APIKey != ""
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (d DatabaseConfig) Pool() postgres.PoolConfig {
	return postgres.PoolConfig{
		URL:             d.URL,
		MaxOpenConns:    d.MaxOpenConns,
		MaxIdleConns:    d.MaxIdleConns,
		ConnMaxLifetime: d.ConnMaxLifetime,
	}
}

// NewLogger builds the process logger. Unknown levels fall back to info.
func (l LogConfig) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
