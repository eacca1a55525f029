// Package config loads runtime settings from .env, an optional YAML file and
// the process environment, in that order of precedence (environment wins).
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full service configuration.
type Config struct {
	HTTPAddr  string    `yaml:"http_addr"`
	Database  Database  `yaml:"database"`
	DHIS2     DHIS2     `yaml:"dhis2"`
	Formhub   Formhub   `yaml:"formhub"`
	Queue     Queue     `yaml:"queue"`
	Admin     Admin     `yaml:"admin"`
	Telemetry Telemetry `yaml:"telemetry"`
}

// Database selects and addresses the SQL store.
type Database struct {
	Driver   string `yaml:"driver"` // postgres or sqlite
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DHIS2 holds the target system endpoint and static credentials.
type DHIS2 struct {
	URL             string        `yaml:"url"`
	DataValueSetURL string        `yaml:"data_value_set_url"`
	Username        string        `yaml:"username"`
	Password        string        `yaml:"password"`
	Timeout         time.Duration `yaml:"timeout"`
}

// Formhub holds the source system settings.
type Formhub struct {
	ServerURL         string        `yaml:"server_url"`
	OAuthClientID     string        `yaml:"oauth_client_id"`
	OAuthClientSecret string        `yaml:"oauth_client_secret"`
	OAuthRedirectURL  string        `yaml:"oauth_redirect_url"`
	AccessToken       string        `yaml:"access_token"`
	Timeout           time.Duration `yaml:"timeout"`
	RateLimit         float64       `yaml:"rate_limit"` // requests per second
	RateBurst         int           `yaml:"rate_burst"`
}

// Queue tunes the drain.
type Queue struct {
	Workers       int           `yaml:"workers"`
	ClaimTTL      time.Duration `yaml:"claim_ttl"`
	SweepSchedule string        `yaml:"sweep_schedule"` // cron spec, empty disables the sweeper
	Dispatcher    string        `yaml:"dispatcher"`     // local or nats
	NATSURL       string        `yaml:"nats_url"`
}

// Admin holds the Basic auth account protecting the management API.
type Admin struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// Telemetry configures metric export.
type Telemetry struct {
	OTLPEndpoint string        `yaml:"otlp_endpoint"`
	Insecure     bool          `yaml:"insecure"`
	Interval     time.Duration `yaml:"interval"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		HTTPAddr: ":8080",
		Database: Database{
			Driver:  "postgres",
			Host:    "localhost",
			Port:    "5432",
			User:    "f2dhis2",
			Name:    "f2dhis2",
			SSLMode: "disable",
		},
		DHIS2: DHIS2{
			Timeout: 30 * time.Second,
		},
		Formhub: Formhub{
			ServerURL: "https://formhub.org",
			Timeout:   15 * time.Second,
			RateLimit: 5,
			RateBurst: 5,
		},
		Queue: Queue{
			Workers:       4,
			ClaimTTL:      10 * time.Minute,
			SweepSchedule: "@every 5m",
			Dispatcher:    "local",
			NATSURL:       "nats://localhost:4222",
		},
		Telemetry: Telemetry{
			Interval: 30 * time.Second,
		},
	}
}

// Load builds the configuration. A missing .env file is not an error.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.resolve()
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	log.Printf("Loaded configuration file %s", path)
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.DSN = getEnv("DB_DSN", cfg.Database.DSN)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)

	cfg.DHIS2.URL = getEnv("DHIS2_URL", cfg.DHIS2.URL)
	cfg.DHIS2.DataValueSetURL = getEnv("DHIS2_DATA_VALUE_SET_URL", cfg.DHIS2.DataValueSetURL)
	cfg.DHIS2.Username = getEnv("DHIS2_USERNAME", cfg.DHIS2.Username)
	cfg.DHIS2.Password = getEnv("DHIS2_PASSWORD", cfg.DHIS2.Password)

	cfg.Formhub.ServerURL = getEnv("FH_SERVER_URL", cfg.Formhub.ServerURL)
	cfg.Formhub.OAuthClientID = getEnv("FH_OAUTH_CLIENT_ID", cfg.Formhub.OAuthClientID)
	cfg.Formhub.OAuthClientSecret = getEnv("FH_OAUTH_CLIENT_SECRET", cfg.Formhub.OAuthClientSecret)
	cfg.Formhub.OAuthRedirectURL = getEnv("FH_OAUTH_REDIRECT_URL", cfg.Formhub.OAuthRedirectURL)
	cfg.Formhub.AccessToken = getEnv("FH_ACCESS_TOKEN", cfg.Formhub.AccessToken)

	cfg.Queue.SweepSchedule = getEnv("QUEUE_SWEEP_SCHEDULE", cfg.Queue.SweepSchedule)
	cfg.Queue.Dispatcher = strings.ToLower(getEnv("QUEUE_DISPATCHER", cfg.Queue.Dispatcher))
	cfg.Queue.NATSURL = getEnv("NATS_URL", cfg.Queue.NATSURL)

	cfg.Admin.Username = getEnv("ADMIN_USERNAME", cfg.Admin.Username)
	cfg.Admin.Password = getEnv("ADMIN_PASSWORD", cfg.Admin.Password)

	cfg.Telemetry.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.Insecure = getEnv("OTEL_EXPORTER_OTLP_INSECURE", strconv.FormatBool(cfg.Telemetry.Insecure)) == "true"

	var err error
	if cfg.DHIS2.Timeout, err = getDuration("DHIS2_TIMEOUT", cfg.DHIS2.Timeout); err != nil {
		return err
	}
	if cfg.Formhub.Timeout, err = getDuration("FH_TIMEOUT", cfg.Formhub.Timeout); err != nil {
		return err
	}
	if cfg.Queue.ClaimTTL, err = getDuration("QUEUE_CLAIM_TTL", cfg.Queue.ClaimTTL); err != nil {
		return err
	}
	if cfg.Queue.Workers, err = getInt("QUEUE_WORKERS", cfg.Queue.Workers); err != nil {
		return err
	}
	if cfg.Formhub.RateBurst, err = getInt("FH_RATE_BURST", cfg.Formhub.RateBurst); err != nil {
		return err
	}
	if v, ok := os.LookupEnv("FH_RATE_LIMIT"); ok {
		f, perr := strconv.ParseFloat(v, 64)
		if perr != nil {
			return fmt.Errorf("invalid FH_RATE_LIMIT %q: %w", v, perr)
		}
		cfg.Formhub.RateLimit = f
	}
	return nil
}

// resolve fills values derived from other settings.
func (c *Config) resolve() {
	if c.DHIS2.DataValueSetURL == "" && c.DHIS2.URL != "" {
		c.DHIS2.DataValueSetURL = strings.TrimSuffix(c.DHIS2.URL, "/") + "/api/dataValueSets"
	}
	if c.Queue.Workers <= 0 {
		c.Queue.Workers = 1
	}
}

// Validate reports settings without which the service cannot run.
func (c Config) Validate() error {
	var problems []string
	if c.DHIS2.DataValueSetURL == "" {
		problems = append(problems, "DHIS2_URL or DHIS2_DATA_VALUE_SET_URL is required")
	}
	if c.DHIS2.Username == "" || c.DHIS2.Password == "" {
		problems = append(problems, "DHIS2_USERNAME and DHIS2_PASSWORD are required")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver))
	}
	if c.Database.Driver == "sqlite" && c.Database.DSN == "" {
		problems = append(problems, "DB_DSN is required for the sqlite driver")
	}
	switch c.Queue.Dispatcher {
	case "local", "nats":
	default:
		problems = append(problems, fmt.Sprintf("unsupported QUEUE_DISPATCHER %q", c.Queue.Dispatcher))
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// PostgresDSN returns the DSN for the postgres driver.
func (d Database) PostgresDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// getEnv reads an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return d, nil
}

func getInt(key string, fallback int) (int, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
