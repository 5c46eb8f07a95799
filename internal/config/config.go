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

const (
	DefaultPort           = "3000"
	DefaultDBPath         = "./nomadnest.db"
	DefaultRequestTimeout = 15 * time.Second
	DefaultCertDir        = "./certs"
)

// Config holds the runtime settings for the web front end
type Config struct {
	Env            string        `yaml:"env"`
	Port           string        `yaml:"port"`
	APIBaseURL     string        `yaml:"api_url"`
	JWTSecret      string        `yaml:"jwt_secret"`
	FlashKey       string        `yaml:"flash_key"`
	DBPath         string        `yaml:"db_path"`
	BlobURL        string        `yaml:"blob_url"`
	BlobToken      string        `yaml:"blob_token"`
	UploadDir      string        `yaml:"upload_dir"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	TLS            bool          `yaml:"tls"`
	CertDir        string        `yaml:"cert_dir"`
}

// Load reads an optional .env file, an optional YAML file at path, and then
// applies environment overrides. An empty path skips the YAML step.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		Env:            "development",
		Port:           DefaultPort,
		DBPath:         DefaultDBPath,
		RequestTimeout: DefaultRequestTimeout,
		CertDir:        DefaultCertDir,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Env, "NOMADNEST_ENV")
	setString(&c.Port, "NOMADNEST_PORT")
	setString(&c.APIBaseURL, "NEXT_PUBLIC_API_URL")
	setString(&c.APIBaseURL, "NOMADNEST_API_URL")
	setString(&c.JWTSecret, "JWT_SECRET")
	setString(&c.FlashKey, "NOMADNEST_FLASH_KEY")
	setString(&c.DBPath, "NOMADNEST_DB_PATH")
	setString(&c.BlobURL, "NOMADNEST_BLOB_URL")
	setString(&c.BlobToken, "NOMADNEST_BLOB_TOKEN")
	setString(&c.UploadDir, "NOMADNEST_UPLOAD_DIR")
	setString(&c.CertDir, "NOMADNEST_CERT_DIR")

	if v := os.Getenv("NOMADNEST_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid NOMADNEST_REQUEST_TIMEOUT %q: %w", v, err)
		}
		c.RequestTimeout = d
	}

	if v := os.Getenv("NOMADNEST_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid NOMADNEST_TLS %q: %w", v, err)
		}
		c.TLS = b
	}

	return nil
}

// Production reports whether cookies should be marked Secure
func (c *Config) Production() bool {
	return c.Env == "production"
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
