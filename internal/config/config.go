package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults for everything an operator may leave unset.
const (
	DefaultMinConfirmations = 3
	DefaultPort             = 5555
	DefaultPollMaxAttempts  = 10
	DefaultPollInitialDelay = 1000 * time.Millisecond
	DefaultLogLevel         = "info"
)

// Config holds the oracle configuration. RPCURL may be empty: the server
// still starts, and every verification fails with a logged configuration
// error until an endpoint is provided.
type Config struct {
	RPCURL             string `yaml:"rpc_url"`
	MinConfirmations   uint64 `yaml:"min_confirmations"`
	Port               int    `yaml:"port"`
	PollMaxAttempts    int    `yaml:"poll_max_attempts"`
	PollInitialDelayMS int    `yaml:"poll_initial_delay_ms"`
	LogLevel           string `yaml:"log_level"`
}

// PollInitialDelay returns the configured first backoff delay.
func (c *Config) PollInitialDelay() time.Duration {
	return time.Duration(c.PollInitialDelayMS) * time.Millisecond
}

// ListenAddr returns the HTTP listen address for the configured port.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

var envPattern = regexp.MustCompile(`\${([A-Za-z_][A-Za-z0-9_]*)}`)

// Load reads a YAML config file, interpolates env vars, and validates.
// A .env file next to the config is loaded first.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}

	if err := loadDotEnv(path); err != nil {
		return nil, err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	interpolated, err := interpolateEnv(string(raw))
	if err != nil {
		return nil, err
	}

	cfg := defaults()
	if err := yaml.Unmarshal([]byte(interpolated), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds a config purely from environment variables
// (RPC_URL, MIN_CONFIRMATIONS, PORT, POLL_MAX_ATTEMPTS,
// POLL_INITIAL_DELAY_MS, LOG_LEVEL). A .env in the working directory is
// loaded first when present.
func FromEnv() (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, fmt.Errorf("load .env: %w", err)
		}
	}

	cfg := defaults()
	cfg.RPCURL = os.Getenv("RPC_URL")
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}

	if err := envUint("MIN_CONFIRMATIONS", &cfg.MinConfirmations); err != nil {
		return nil, err
	}
	if err := envInt("PORT", &cfg.Port); err != nil {
		return nil, err
	}
	if err := envInt("POLL_MAX_ATTEMPTS", &cfg.PollMaxAttempts); err != nil {
		return nil, err
	}
	if err := envInt("POLL_INITIAL_DELAY_MS", &cfg.PollInitialDelayMS); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		MinConfirmations:   DefaultMinConfirmations,
		Port:               DefaultPort,
		PollMaxAttempts:    DefaultPollMaxAttempts,
		PollInitialDelayMS: int(DefaultPollInitialDelay / time.Millisecond),
		LogLevel:           DefaultLogLevel,
	}
}

func loadDotEnv(configPath string) error {
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	return nil
}

func interpolateEnv(input string) (string, error) {
	missing := []string{}
	out := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		name := envPattern.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}
		missing = append(missing, name)
		return match
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("missing environment variables: %s", strings.Join(dedup(missing), ", "))
	}
	return out, nil
}

func envUint(name string, dst *uint64) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	*dst = n
	return nil
}

func envInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", name, v, err)
	}
	*dst = n
	return nil
}

// Validate performs small, direct schema checks. A missing RPC URL is
// allowed here; the verifier reports it per request.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port out of range: %d", c.Port)
	}
	if c.PollMaxAttempts <= 0 {
		return errors.New("poll_max_attempts must be positive")
	}
	if c.PollInitialDelayMS <= 0 {
		return errors.New("poll_initial_delay_ms must be positive")
	}
	return nil
}

func dedup(values []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
