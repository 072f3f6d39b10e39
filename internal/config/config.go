package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FeedEndpoints overrides the built-in feed URLs. Populated from the optional
// YAML file named by FEEDS_CONFIG_FILE; empty fields keep the defaults baked
// into each adapter.
type FeedEndpoints struct {
	USGS struct {
		HourlyURL string `yaml:"hourly_url"`
		DailyURL  string `yaml:"daily_url"`
	} `yaml:"usgs"`
	GDACS struct {
		URL string `yaml:"url"`
	} `yaml:"gdacs"`
	FIRMS struct {
		PrimaryURL    string   `yaml:"primary_url"`
		AlternateURLs []string `yaml:"alternate_urls"`
	} `yaml:"firms"`
	Nominatim struct {
		BaseURL string `yaml:"base_url"`
	} `yaml:"nominatim"`
}

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Shared HTTP client settings for all feed adapters.
	FetchTimeout time.Duration
	UserAgent    string

	// Query parameter defaults and bounds.
	DefaultHoursBack int
	MinHoursBack     int
	MaxHoursBack     int
	DefaultAOIQuery  string
	DefaultRadiusKM  float64

	// Optional Kafka sink. Enabled when brokers are set.
	KafkaBrokers []string
	KafkaTopic   string
	KafkaEnabled bool

	Feeds FeedEndpoints
}

// Load reads configuration from environment variables, applying defaults
// where unset, and merges the optional feed-endpoint override file.
func Load() (*Config, error) {
	shutdownTimeout, err := durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := durationEnv("FETCH_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	defaultHours, err := intEnv("DEFAULT_HOURS_BACK", 24)
	if err != nil {
		return nil, err
	}
	minHours, err := intEnv("MIN_HOURS_BACK", 6)
	if err != nil {
		return nil, err
	}
	maxHours, err := intEnv("MAX_HOURS_BACK", 168)
	if err != nil {
		return nil, err
	}

	defaultRadius, err := floatEnv("DEFAULT_RADIUS_KM", 250)
	if err != nil {
		return nil, err
	}

	brokers := splitList(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		FetchTimeout: fetchTimeout,
		UserAgent:    envOrDefault("USER_AGENT", "hazard-intel-service/1.0"),

		DefaultHoursBack: defaultHours,
		MinHoursBack:     minHours,
		MaxHoursBack:     maxHours,
		DefaultAOIQuery:  os.Getenv("DEFAULT_AOI_QUERY"),
		DefaultRadiusKM:  defaultRadius,

		KafkaBrokers: brokers,
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "hazard-intel-snapshots"),
		KafkaEnabled: kafkaEnabled,
	}

	if path := os.Getenv("FEEDS_CONFIG_FILE"); path != "" {
		if err := loadFeedEndpoints(path, &cfg.Feeds); err != nil {
			return nil, err
		}
	}

	if cfg.MinHoursBack <= 0 || cfg.MaxHoursBack < cfg.MinHoursBack {
		return nil, errors.New("look-back bounds must satisfy 0 < MIN_HOURS_BACK <= MAX_HOURS_BACK")
	}
	if cfg.DefaultHoursBack < cfg.MinHoursBack || cfg.DefaultHoursBack > cfg.MaxHoursBack {
		return nil, errors.New("DEFAULT_HOURS_BACK is outside the configured bounds")
	}
	if cfg.DefaultRadiusKM <= 0 {
		return nil, errors.New("DEFAULT_RADIUS_KM must be positive")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.KafkaEnabled && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when the Kafka sink is enabled")
	}

	return cfg, nil
}

func loadFeedEndpoints(path string, dst *FeedEndpoints) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read feeds config: %w", err)
	}
	if err := yaml.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse feeds config %s: %w", path, err)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return f, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
