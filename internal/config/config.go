// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type BookingConfig struct {
	// SlotGranularityMinutes is the availability grid step.
	SlotGranularityMinutes int `yaml:"slot_granularity_minutes"`
	// MinDurationMinutes is the shortest bookable range.
	MinDurationMinutes int `yaml:"min_duration_minutes"`
	// CompletionSweepCron controls how often confirmed bookings whose window
	// has passed are marked completed.
	CompletionSweepCron string `yaml:"completion_sweep_cron"`
}

type PaymentsConfig struct {
	Currency  string `yaml:"currency"`
	PublicKey string `yaml:"-"` // Loaded from environment
	SecretKey string `yaml:"-"` // Loaded from environment
}

type EmailConfig struct {
	Enabled bool   `yaml:"enabled"`
	Region  string `yaml:"region"`
	Sender  string `yaml:"sender"`
}

type MQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
		SecretKey   string `yaml:"-"` // Loaded from environment
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Booking  BookingConfig  `yaml:"booking"`
	Payments PaymentsConfig `yaml:"payments"`
	Email    EmailConfig    `yaml:"email"`
	MQ       MQConfig       `yaml:"mq"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	// Read and parse YAML config
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.App.SecretKey = os.Getenv("APP_SECRET_KEY")
	cfg.Payments.PublicKey = os.Getenv("OMISE_PUBLIC_KEY")
	cfg.Payments.SecretKey = os.Getenv("OMISE_SECRET_KEY")

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if c.Booking.SlotGranularityMinutes < 0 {
		return fmt.Errorf("slot granularity must not be negative")
	}
	if c.Booking.MinDurationMinutes < 0 {
		return fmt.Errorf("minimum booking duration must not be negative")
	}
	if c.Email.Enabled && c.Email.Sender == "" {
		return fmt.Errorf("email sender is required when email is enabled")
	}
	if c.MQ.URL != "" && c.MQ.Exchange == "" {
		return fmt.Errorf("mq exchange is required when mq url is set")
	}

	return nil
}
