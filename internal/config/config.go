package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store backends.
const (
	BackendFirebase = "firebase"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendMemory   = "memory"
)

// FirebaseConfig holds Firebase credentials and database locations.
type FirebaseConfig struct {
	CredentialsFile   string `yaml:"credentials_file"`
	CredentialsBase64 string `yaml:"credentials_base64"`
	DatabaseURL       string `yaml:"database_url"`
	ProjectID         string `yaml:"project_id"`
	AlertTopic        string `yaml:"alert_topic"`
}

// HasCredentials reports whether any credential source is set.
func (f FirebaseConfig) HasCredentials() bool {
	return f.CredentialsFile != "" || f.CredentialsBase64 != ""
}

// GeminiConfig configures the fallback text generator.
type GeminiConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// Config is the server and admin CLI configuration.
type Config struct {
	Port              string         `yaml:"port"`
	StoreBackend      string         `yaml:"store_backend"`
	DatabaseURL       string         `yaml:"database_url"`
	SeedDemo          bool           `yaml:"seed_demo"`
	Firebase          FirebaseConfig `yaml:"firebase"`
	JWTSecret         string         `yaml:"jwt_secret"`
	Gemini            GeminiConfig   `yaml:"gemini"`
	AlertThreshold    float64        `yaml:"alert_threshold"`
	AlertPollInterval time.Duration  `yaml:"alert_poll_interval"`
	ChatHistorySize   int            `yaml:"chat_history_size"`
	SnapshotTTL       time.Duration  `yaml:"snapshot_ttl"`
	LogLevel          string         `yaml:"log_level"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Port:            "5000",
		Gemini:          GeminiConfig{Model: "gemini-2.0-flash"},
		Firebase:        FirebaseConfig{AlertTopic: "bin-alerts"},
		AlertThreshold:  80,
		ChatHistorySize: 10,
		SnapshotTTL:     5 * time.Second,
		LogLevel:        "info",
	}
}

// Load reads .env (if present), then the YAML file named by CONFIG_FILE
// (if set), then environment variables. Later sources win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	seedSet := os.Getenv("SEED_DEMO") != ""
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		var explicit struct {
			SeedDemo *bool `yaml:"seed_demo"`
		}
		if err := yaml.Unmarshal(data, &explicit); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		seedSet = seedSet || explicit.SeedDemo != nil
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}

	if cfg.StoreBackend == "" {
		if cfg.Firebase.HasCredentials() {
			cfg.StoreBackend = BackendFirebase
		} else {
			cfg.StoreBackend = BackendMemory
		}
	}
	cfg.StoreBackend = strings.ToLower(cfg.StoreBackend)
	// The in-memory backend starts seeded unless seeding was configured either way.
	if cfg.StoreBackend == BackendMemory && !seedSet {
		cfg.SeedDemo = true
	}

	return &cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Port, "PORT")
	setString(&cfg.StoreBackend, "STORE_BACKEND")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Firebase.CredentialsFile, "FIREBASE_CREDENTIALS_FILE")
	setString(&cfg.Firebase.CredentialsBase64, "FIREBASE_CREDENTIALS_BASE64")
	setString(&cfg.Firebase.DatabaseURL, "FIREBASE_DATABASE_URL")
	setString(&cfg.Firebase.ProjectID, "FIREBASE_PROJECT_ID")
	setString(&cfg.Firebase.AlertTopic, "FCM_ALERT_TOPIC")
	setString(&cfg.JWTSecret, "APP_JWT_SECRET")
	setString(&cfg.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.LogLevel, "LOG_LEVEL")

	var errs []error
	if v := os.Getenv("SEED_DEMO"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SEED_DEMO: %w", err))
		}
		cfg.SeedDemo = b
	}
	if v := os.Getenv("ALERT_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("ALERT_THRESHOLD: %w", err))
		}
		cfg.AlertThreshold = f
	}
	if v := os.Getenv("CHAT_HISTORY_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("CHAT_HISTORY_SIZE: %w", err))
		}
		cfg.ChatHistorySize = n
	}
	if err := setDuration(&cfg.AlertPollInterval, "ALERT_POLL_INTERVAL"); err != nil {
		errs = append(errs, err)
	}
	if err := setDuration(&cfg.SnapshotTTL, "SNAPSHOT_TTL"); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = d
	return nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory:
	case BackendPostgres, BackendSQLite:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", c.StoreBackend)
		}
	case BackendFirebase:
		if !c.Firebase.HasCredentials() {
			return errors.New("FIREBASE_CREDENTIALS_FILE or FIREBASE_CREDENTIALS_BASE64 is required for the firebase backend")
		}
		if c.Firebase.DatabaseURL == "" {
			return errors.New("FIREBASE_DATABASE_URL is required for the firebase backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.AlertThreshold < 0 || c.AlertThreshold > 100 {
		return fmt.Errorf("ALERT_THRESHOLD must be between 0 and 100, got %v", c.AlertThreshold)
	}
	if c.ChatHistorySize <= 0 {
		return fmt.Errorf("CHAT_HISTORY_SIZE must be positive, got %d", c.ChatHistorySize)
	}
	if c.AlertPollInterval < 0 || c.SnapshotTTL < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}
