package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

const (
	BackendHTTP     = "http"
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config is the process configuration. Values come from defaults, then the optional YAML file,
// then environment variables; later sources win.
type Config struct {
	Port string

	MembersAPIURL string
	StatsAPIURL   string
	PushAPIURL    string

	// SessionCookie names the member-service session cookie. Only that cookie is forwarded
	// from the staff browser on credentialed calls.
	SessionCookie string

	// UpstreamTimeout bounds each individual backend request.
	UpstreamTimeout time.Duration
	// UpstreamBackend selects real HTTP clients or in-memory fakes.
	UpstreamBackend string

	StorageBackend string
	DatabaseURL    string

	// GymTimezone decides what "today" is for ages and membership expiry.
	GymTimezone string

	LogMode string

	// CSRFKey enables CSRF protection when set; it must be 32 bytes.
	CSRFKey string

	PushRatePerMinute    int
	ReceiptRatePerMinute int

	OTLPEndpoint string
	OTLPInsecure bool
}

func Default() Config {
	return Config{
		Port:                 "8080",
		MembersAPIURL:        "https://api.coregym.club",
		StatsAPIURL:          "https://stats.coregym.club",
		PushAPIURL:           "https://push.coregym.club",
		SessionCookie:        "sid",
		UpstreamTimeout:      10 * time.Second,
		UpstreamBackend:      BackendHTTP,
		StorageBackend:       BackendMemory,
		GymTimezone:          "Europe/Stockholm",
		LogMode:              "development",
		PushRatePerMinute:    30,
		ReceiptRatePerMinute: 10,
	}
}

// Load builds the configuration. path may be empty; getenv is usually os.Getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.mergeEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	// Pointer fields tell an omitted key apart from a zero value.
	var file fileConfig
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return file.applyTo(c)
}

// fileConfig mirrors Config with durations as strings so YAML files can say "5s".
type fileConfig struct {
	Port                 *string `yaml:"port"`
	MembersAPIURL        *string `yaml:"members_api_url"`
	StatsAPIURL          *string `yaml:"stats_api_url"`
	PushAPIURL           *string `yaml:"push_api_url"`
	SessionCookie        *string `yaml:"member_session_cookie"`
	UpstreamTimeout      *string `yaml:"upstream_timeout"`
	UpstreamBackend      *string `yaml:"upstream_backend"`
	StorageBackend       *string `yaml:"storage_backend"`
	DatabaseURL          *string `yaml:"database_url"`
	GymTimezone          *string `yaml:"gym_timezone"`
	LogMode              *string `yaml:"log_mode"`
	CSRFKey              *string `yaml:"csrf_key"`
	PushRatePerMinute    *int    `yaml:"push_rate_per_minute"`
	ReceiptRatePerMinute *int    `yaml:"receipt_rate_per_minute"`
	OTLPEndpoint         *string `yaml:"otlp_endpoint"`
	OTLPInsecure         *bool   `yaml:"otlp_insecure"`
}

func (f fileConfig) applyTo(c *Config) error {
	setString(&c.Port, f.Port)
	setString(&c.MembersAPIURL, f.MembersAPIURL)
	setString(&c.StatsAPIURL, f.StatsAPIURL)
	setString(&c.PushAPIURL, f.PushAPIURL)
	setString(&c.SessionCookie, f.SessionCookie)
	setString(&c.UpstreamBackend, f.UpstreamBackend)
	setString(&c.StorageBackend, f.StorageBackend)
	setString(&c.DatabaseURL, f.DatabaseURL)
	setString(&c.GymTimezone, f.GymTimezone)
	setString(&c.LogMode, f.LogMode)
	setString(&c.CSRFKey, f.CSRFKey)
	setString(&c.OTLPEndpoint, f.OTLPEndpoint)
	if f.UpstreamTimeout != nil {
		d, err := time.ParseDuration(*f.UpstreamTimeout)
		if err != nil {
			return fmt.Errorf("upstream_timeout must be a duration (e.g. 10s): %w", err)
		}
		c.UpstreamTimeout = d
	}
	if f.PushRatePerMinute != nil {
		c.PushRatePerMinute = *f.PushRatePerMinute
	}
	if f.ReceiptRatePerMinute != nil {
		c.ReceiptRatePerMinute = *f.ReceiptRatePerMinute
	}
	if f.OTLPInsecure != nil {
		c.OTLPInsecure = *f.OTLPInsecure
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) mergeEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Port)
	str("MEMBERS_API_URL", &c.MembersAPIURL)
	str("STATS_API_URL", &c.StatsAPIURL)
	str("PUSH_API_URL", &c.PushAPIURL)
	str("MEMBER_SESSION_COOKIE", &c.SessionCookie)
	str("UPSTREAM_BACKEND", &c.UpstreamBackend)
	str("STORAGE_BACKEND", &c.StorageBackend)
	str("DATABASE_URL", &c.DatabaseURL)
	str("GYM_TIMEZONE", &c.GymTimezone)
	str("LOG_MODE", &c.LogMode)
	str("CSRF_KEY", &c.CSRFKey)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &c.OTLPEndpoint)

	if v := getenv("UPSTREAM_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("UPSTREAM_TIMEOUT must be a duration (e.g. 10s): %w", err)
		}
		c.UpstreamTimeout = d
	}
	if v := getenv("PUSH_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PUSH_RATE_PER_MINUTE must be an integer: %w", err)
		}
		c.PushRatePerMinute = n
	}
	if v := getenv("RECEIPT_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RECEIPT_RATE_PER_MINUTE must be an integer: %w", err)
		}
		c.ReceiptRatePerMinute = n
	}
	if v := getenv("OTEL_EXPORTER_OTLP_INSECURE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("OTEL_EXPORTER_OTLP_INSECURE must be a boolean: %w", err)
		}
		c.OTLPInsecure = b
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.UpstreamBackend {
	case BackendHTTP:
		if c.MembersAPIURL == "" || c.StatsAPIURL == "" || c.PushAPIURL == "" {
			errs = append(errs, errors.New("members, stats and push API URLs are required for the http upstream backend"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown upstream backend %q", c.UpstreamBackend))
	}
	switch c.StorageBackend {
	case BackendMemory:
	case BackendPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres storage backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.StorageBackend))
	}
	if strings.TrimSpace(c.SessionCookie) == "" || strings.ContainsAny(c.SessionCookie, "=; ") {
		errs = append(errs, errors.New("member session cookie name must be a plain cookie name"))
	}
	if c.UpstreamTimeout <= 0 {
		errs = append(errs, errors.New("upstream timeout must be positive"))
	}
	if c.PushRatePerMinute < 0 || c.ReceiptRatePerMinute < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	if c.CSRFKey != "" && len(c.CSRFKey) != 32 {
		errs = append(errs, errors.New("CSRF key must be exactly 32 bytes"))
	}
	if _, err := time.LoadLocation(c.GymTimezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid gym timezone %q: %w", c.GymTimezone, err))
	}
	return errors.Join(errs...)
}

// Location returns the gym time zone. Call only on a validated Config.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.GymTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
