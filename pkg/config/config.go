package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is shared by every environment override.
const EnvPrefix = "FILEPICKER_"

// DefaultDotEnv is read from the working directory when present.
const DefaultDotEnv = ".env"

// Config is the runtime configuration of the picker service and CLI.
type Config struct {
	WWWRoot       string `yaml:"wwwroot" env:"FILEPICKER_WWWROOT"`
	OmeroEndpoint string `yaml:"omero_endpoint" env:"FILEPICKER_OMERO_ENDPOINT"`
	SiteMaxBytes  int64  `yaml:"site_max_bytes" env:"FILEPICKER_SITE_MAX_BYTES"`
	Debug         bool   `yaml:"debug" env:"FILEPICKER_DEBUG"`

	Database string `yaml:"database" env:"FILEPICKER_DATABASE"`
	BlobDir  string `yaml:"blob_dir" env:"FILEPICKER_BLOB_DIR"`
	Listen   string `yaml:"listen" env:"FILEPICKER_LISTEN"`

	UserID    int64  `yaml:"user_id" env:"FILEPICKER_USER_ID"`
	CourseID  int64  `yaml:"course_id" env:"FILEPICKER_COURSE_ID"`
	ContextID int64  `yaml:"context_id" env:"FILEPICKER_CONTEXT_ID"`
	Locale    string `yaml:"locale" env:"FILEPICKER_LOCALE"`

	Theme        string `yaml:"theme" env:"FILEPICKER_THEME"`
	ThemeVariant string `yaml:"theme_variant" env:"FILEPICKER_THEME_VARIANT"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		WWWRoot:      "http://localhost:8080",
		SiteMaxBytes: 10 << 20,
		Database:     "filepicker.db",
		BlobDir:      "draftfiles",
		Listen:       ":8080",
		UserID:       2,
		CourseID:     1,
		ContextID:    1,
		Locale:       "en",
	}
}

// Load layers configuration sources: defaults, then the YAML file at path,
// then variables from the dotenv file, then the process environment. An
// empty path skips the YAML layer; a missing dotenv file is ignored.
// Dotenv values never replace variables already set in the environment.
func Load(fs afero.Fs, path, dotenv string) (Config, error) {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		data, err := afero.ReadFile(fs, path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	if err := loadDotEnv(fs, dotenv); err != nil {
		return Config{}, err
	}
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv(fs afero.Fs, path string) error {
	if path = strings.TrimSpace(path); path == "" {
		return nil
	}
	exists, err := afero.Exists(fs, path)
	if err != nil {
		return fmt.Errorf("config: stat %s: %w", path, err)
	}
	if !exists {
		return nil
	}
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	values, err := godotenv.Parse(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	for key, value := range values {
		if os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf("config: set %s: %w", key, err)
		}
	}
	return nil
}

func (c *Config) normalize() {
	c.WWWRoot = strings.TrimRight(strings.TrimSpace(c.WWWRoot), "/")
	c.OmeroEndpoint = strings.TrimSpace(c.OmeroEndpoint)
	c.Locale = strings.TrimSpace(c.Locale)
	if c.Locale == "" {
		c.Locale = "en"
	}
	c.Theme = strings.TrimSpace(c.Theme)
	c.ThemeVariant = strings.TrimSpace(c.ThemeVariant)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.WWWRoot == "" {
		return errors.New("config: wwwroot is required")
	}
	if parsed, err := url.Parse(c.WWWRoot); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("config: wwwroot %q is not an absolute URL", c.WWWRoot)
	}
	if c.SiteMaxBytes < -1 {
		return fmt.Errorf("config: site_max_bytes must be -1 or greater, got %d", c.SiteMaxBytes)
	}
	if strings.TrimSpace(c.Listen) == "" {
		return errors.New("config: listen address is required")
	}
	if c.UserID <= 0 {
		return errors.New("config: user_id must be positive")
	}
	return nil
}
