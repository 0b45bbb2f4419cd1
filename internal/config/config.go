package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv         string `env:"APP_ENV" default:"development"`
	Host           string `env:"HOST"`
	Port           string `env:"PORT" default:"3000"`
	LogLevel       string `env:"LOG_LEVEL" default:"info"`
	LogFormat      string `env:"LOG_FORMAT" default:"text"`
	AllowedOrigins string `env:"ALLOWED_ORIGINS" default:"http://localhost:4200,http://localhost:5173,http://localhost:3000"`
	RedisURL       string `env:"REDIS_URL"`
	MCPURL         string `env:"MCP_URL" default:"http://localhost:3001"`

	AnalysisTimeout  time.Duration `env:"ANALYSIS_TIMEOUT" default:"60s"`
	AnalyzeRateLimit float64       `env:"ANALYZE_RATE_LIMIT" default:"1"`
	AnalyzeBurst     int           `env:"ANALYZE_BURST" default:"5"`

	MaxConnections int `env:"MAX_CONNECTIONS" default:"1000"`

	// Seed fixes the random source for seed data and live updates; 0 derives it from the clock.
	Seed uint64 `env:"SEED" default:"0"`

	MCPPort string `env:"MCP_PORT" default:"3001"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Addr is the listen address of the API server.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// Origins splits ALLOWED_ORIGINS into its trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func validate(cfg *Config) error {
	ports := map[string]string{
		"PORT":     cfg.Port,
		"MCP_PORT": cfg.MCPPort,
	}
	for name, value := range ports {
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 || n > 65535 {
			return fmt.Errorf("%s must be a port number between 1 and 65535, got %q", name, value)
		}
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, strings.ToLower(cfg.LogLevel)) {
		return fmt.Errorf("LOG_LEVEL must be one of debug, info, warn, error, got %q", cfg.LogLevel)
	}
	if !slices.Contains([]string{"text", "json"}, strings.ToLower(cfg.LogFormat)) {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	if cfg.AnalyzeRateLimit <= 0 {
		return errors.New("ANALYZE_RATE_LIMIT must be positive")
	}
	if cfg.AnalyzeBurst <= 0 {
		return errors.New("ANALYZE_BURST must be positive")
	}
	if cfg.AnalysisTimeout <= 0 {
		return errors.New("ANALYSIS_TIMEOUT must be positive")
	}
	if cfg.MaxConnections <= 0 {
		return errors.New("MAX_CONNECTIONS must be positive")
	}

	if err := validateURL("MCP_URL", cfg.MCPURL, "http", "https"); err != nil {
		return err
	}
	if cfg.RedisURL != "" {
		if err := validateURL("REDIS_URL", cfg.RedisURL, "redis", "rediss"); err != nil {
			return err
		}
	}

	origins := cfg.Origins()
	if len(origins) == 0 {
		return errors.New("ALLOWED_ORIGINS must list at least one origin")
	}
	if cfg.IsProduction() && slices.Contains(origins, "*") {
		return errors.New("ALLOWED_ORIGINS must not contain * in production")
	}

	return nil
}

func validateURL(name, raw string, schemes ...string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s must be a valid URL: %w", name, err)
	}
	if !slices.Contains(schemes, u.Scheme) || u.Host == "" {
		return fmt.Errorf("%s must be a %s URL with a host, got %q", name, strings.Join(schemes, " or "), raw)
	}
	return nil
}
