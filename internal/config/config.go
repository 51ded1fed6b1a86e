// Package config reads server settings from the environment, an optional
// .env file and an optional YAML file. Environment variables win.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Driver         string        `yaml:"driver"`
	DSN            string        `yaml:"dsn"`
	ServerAddress  string        `yaml:"server_address"`
	UploadDir      string        `yaml:"upload_dir"`
	JournalPath    string        `yaml:"journal_path"`
	JWTSecret      string        `yaml:"jwt_secret"`
	TokenTTL       time.Duration `yaml:"token_ttl"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

func defaults() Config {
	return Config{
		Driver:         "postgres",
		ServerAddress:  "0.0.0.0:8080",
		UploadDir:      "uploads",
		JournalPath:    "uploads/pending_submissions.json",
		TokenTTL:       24 * time.Hour,
		RequestTimeout: 30 * time.Second,
	}
}

// LoadEnv loads variables from .env when present.
func LoadEnv() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}
}

// GetEnv returns the variable or fallback when it is not set.
func GetEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Load builds the configuration: defaults, then the YAML file named by
// CONFIG_FILE, then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.readFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Driver = GetEnv("DB_DRIVER", cfg.Driver)
	cfg.DSN = GetEnv("POSTGRES_CONN", cfg.DSN)
	cfg.ServerAddress = GetEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.UploadDir = GetEnv("UPLOAD_DIR", cfg.UploadDir)
	cfg.JournalPath = GetEnv("JOURNAL_PATH", cfg.JournalPath)
	cfg.JWTSecret = GetEnv("JWT_SECRET", cfg.JWTSecret)

	var err error
	if cfg.TokenTTL, err = envDuration("TOKEN_TTL", cfg.TokenTTL); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Driver)
	}
	if c.DSN == "" {
		return errors.New("config: POSTGRES_CONN is not set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is not set")
	}
	if c.TokenTTL <= 0 || c.RequestTimeout <= 0 {
		return errors.New("config: TOKEN_TTL and REQUEST_TIMEOUT must be positive")
	}
	return nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}
