package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

var ErrMissingRequiredValue = errors.New("missing required value")
var ErrInvalidValue = errors.New("invalid value")

type environment string

const (
	production  environment = "production"
	staging     environment = "staging"
	development environment = "development"
)

const (
	defaultPort              = "8080"
	defaultCacheMaxEntries   = 256
	defaultCacheMaxCostBytes = 8 << 20
)

type Config struct {
	port              string
	sentryDSN         string
	traceProject      string
	cacheMaxEntries   int
	cacheMaxCostBytes int
	env               environment
}

func (c *Config) Port() string {
	return c.port
}

func (c *Config) SentryDSN() string {
	return c.sentryDSN
}

func (c *Config) TraceProject() string {
	return c.traceProject
}

func (c *Config) CacheMaxEntries() int {
	return c.cacheMaxEntries
}

func (c *Config) CacheMaxCostBytes() int {
	return c.cacheMaxCostBytes
}

func (c *Config) IsProduction() bool {
	return c.env == production
}

func (c *Config) IsStaging() bool {
	return c.env == staging
}

func (c *Config) IsDevelopment() bool {
	return c.env == development
}

// Return a string representation suitable for logging etc
func (c *Config) NonSensitiveString() string {
	return fmt.Sprintf(
		"Config{env: %s, port: %s, cacheMaxEntries: %d, cacheMaxCostBytes: %d, ...}",
		string(c.env), c.port, c.cacheMaxEntries, c.cacheMaxCostBytes,
	)
}

func ConfigFromEnv() (Config, error) {
	missingKey := func(key string) (Config, error) {
		return Config{}, fmt.Errorf("%w: %s", ErrMissingRequiredValue, key)
	}

	var env environment
	rawEnv, ok := os.LookupEnv("CIRCLEFLAGS_ENVIRONMENT")
	if !ok {
		return missingKey("CIRCLEFLAGS_ENVIRONMENT")
	}
	switch rawEnv {
	case "production":
		env = production
	case "staging":
		env = staging
	case "development":
		env = development
	default:
		return Config{}, fmt.Errorf("%w: CIRCLEFLAGS_ENVIRONMENT (%s)", ErrInvalidValue, rawEnv)
	}
	if string(env) == "" {
		panic("logic error: env is empty")
	}

	port := os.Getenv("CIRCLEFLAGS_PORT")
	if port == "" {
		port = defaultPort
	}

	sentryDSN := os.Getenv("CIRCLEFLAGS_SENTRY_DSN")
	traceProject := os.Getenv("CIRCLEFLAGS_TRACE_PROJECT")

	cacheMaxEntries, err := intFromEnv("CIRCLEFLAGS_CACHE_MAX_ENTRIES", defaultCacheMaxEntries)
	if err != nil {
		return Config{}, err
	}
	cacheMaxCostBytes, err := intFromEnv("CIRCLEFLAGS_CACHE_MAX_COST_BYTES", defaultCacheMaxCostBytes)
	if err != nil {
		return Config{}, err
	}

	if env == production || env == staging {
		if sentryDSN == "" {
			return missingKey("CIRCLEFLAGS_SENTRY_DSN")
		}
	}

	return Config{
		port:              port,
		sentryDSN:         sentryDSN,
		traceProject:      traceProject,
		cacheMaxEntries:   cacheMaxEntries,
		cacheMaxCostBytes: cacheMaxCostBytes,
		env:               env,
	}, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s (%s)", ErrInvalidValue, key, raw)
	}
	if value < 1 {
		return 0, fmt.Errorf("%w: %s must be >= 1 (%d)", ErrInvalidValue, key, value)
	}

	return value, nil
}
