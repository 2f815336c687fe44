package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Upstream provider configuration.
	UpstreamBaseURL string
	UpstreamTimeout time.Duration
	RetryAttempts   int
	RetryBaseDelay  time.Duration
	CacheTTL        time.Duration

	// Background monitor configuration.
	MonitorStations []string
	MonitorInterval time.Duration
	MonitorEnabled  bool

	// Kafka assessment publishing (optional).
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// OpenAI briefing summarizer (optional).
	OpenAIKey     string
	OpenAIEnabled bool
	OpenAIModel   string
	OpenAITimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	upstreamTimeout, err := envDuration("AVWX_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}
	retryDelay, err := envDuration("AVWX_RETRY_DELAY", time.Second)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := envDuration("CACHE_TTL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	monitorInterval, err := envDuration("MONITOR_INTERVAL", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	openAITimeout, err := envDuration("OPENAI_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	retryAttempts, err := envInt("AVWX_RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	openAIKey := os.Getenv("OPENAI_API_KEY")
	openAIEnabled := openAIKey != ""
	if v := os.Getenv("OPENAI_ENABLED"); v != "" {
		openAIEnabled = v == "true"
	}

	kafkaEnabled := os.Getenv("KAFKA_ENABLED") == "true"

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		UpstreamBaseURL: envOrDefault("AVWX_BASE_URL", "https://aviationweather.gov/api/data"),
		UpstreamTimeout: upstreamTimeout,
		RetryAttempts:   retryAttempts,
		RetryBaseDelay:  retryDelay,
		CacheTTL:        cacheTTL,

		MonitorStations: splitList(envOrDefault("MONITOR_STATIONS", "")),
		MonitorInterval: monitorInterval,
		MonitorEnabled:  os.Getenv("MONITOR_ENABLED") == "true",

		KafkaEnabled: kafkaEnabled,
		KafkaBrokers: splitList(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:   envOrDefault("KAFKA_ASSESSMENT_TOPIC", "risk-assessments"),

		OpenAIKey:     openAIKey,
		OpenAIEnabled: openAIEnabled,
		OpenAIModel:   envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITimeout: openAITimeout,
	}

	if cfg.UpstreamBaseURL == "" {
		return nil, errors.New("AVWX_BASE_URL is required")
	}
	if cfg.RetryAttempts < 0 {
		return nil, errors.New("AVWX_RETRY_ATTEMPTS must not be negative")
	}
	if cfg.MonitorEnabled && len(cfg.MonitorStations) == 0 {
		return nil, errors.New("MONITOR_ENABLED is true but MONITOR_STATIONS is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.OpenAIEnabled && cfg.OpenAIKey == "" {
		return nil, errors.New("OPENAI_ENABLED is true but OPENAI_API_KEY is not set")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func envInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

// splitList parses a comma-separated list, dropping empty elements.
func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
