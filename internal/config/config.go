package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	GeminiAPIKey string `yaml:"-"`
	GeminiModel  string `yaml:"gemini_model"`
	Port         string `yaml:"port"`
	// BaseURL is the address the export browser uses to reach this server.
	BaseURL     string       `yaml:"base_url"`
	LogLevel    string       `yaml:"log_level"`
	Development bool         `yaml:"development"`
	Export      ExportConfig `yaml:"export"`
}

type ExportConfig struct {
	Scale      float64       `yaml:"scale"`
	Background string        `yaml:"background"`
	PageFormat string        `yaml:"page_format"`
	FileName   string        `yaml:"file_name"`
	ChromeBin  string        `yaml:"chrome_bin"`
	Headless   bool          `yaml:"headless"`
	Timeout    time.Duration `yaml:"timeout"`
}

func defaults() Config {
	return Config{
		GeminiModel: "gemini-2.5-flash",
		Port:        "8080",
		LogLevel:    "info",
		Export: ExportConfig{
			Scale:      2,
			Background: "#0f172a",
			PageFormat: "a4",
			FileName:   "tech-stack-advice.pdf",
			Headless:   true,
			Timeout:    30 * time.Second,
		},
	}
}

// Load reads .env (if present), then the YAML file named by ADVISOR_CONFIG
// (if set), then environment variables, each layer overriding the last.
// A missing API key is not an error; advice calls report it instead.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaults()
	if path := os.Getenv("ADVISOR_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.GeminiAPIKey = firstEnv("GEMINI_API_KEY", "API_KEY")
	setString(&c.GeminiModel, "GEMINI_MODEL")
	setString(&c.Port, "PORT")
	setString(&c.BaseURL, "BASE_URL")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.Export.Background, "EXPORT_BACKGROUND")
	setString(&c.Export.PageFormat, "EXPORT_PAGE_FORMAT")
	setString(&c.Export.FileName, "EXPORT_FILE_NAME")
	setString(&c.Export.ChromeBin, "CHROME_BIN")

	if env := os.Getenv("APP_ENV"); env != "" {
		c.Development = strings.EqualFold(env, "development")
	}
	if v := os.Getenv("EXPORT_SCALE"); v != "" {
		scale, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid EXPORT_SCALE %q: %w", v, err)
		}
		c.Export.Scale = scale
	}
	if v := os.Getenv("EXPORT_HEADLESS"); v != "" {
		headless, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid EXPORT_HEADLESS %q: %w", v, err)
		}
		c.Export.Headless = headless
	}
	if v := os.Getenv("EXPORT_TIMEOUT"); v != "" {
		timeout, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid EXPORT_TIMEOUT %q: %w", v, err)
		}
		c.Export.Timeout = timeout
	}

	if c.BaseURL == "" {
		c.BaseURL = "http://127.0.0.1:" + c.Port
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return nil
}

func (c *Config) validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.Export.Scale <= 0 {
		return fmt.Errorf("export scale must be positive, got %g", c.Export.Scale)
	}
	if c.Export.FileName == "" {
		return errors.New("export file name must not be empty")
	}
	if c.Export.Timeout <= 0 {
		return fmt.Errorf("export timeout must be positive, got %s", c.Export.Timeout)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
