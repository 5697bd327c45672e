package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds scraper configuration.
type Config struct {
	BaseURL           string
	OutputFile        string
	UserAgent         string
	Workers           int
	PageSize          int
	MaxRetries        int
	JitterMin         time.Duration
	JitterMax         time.Duration
	RetryAfterDefault time.Duration
	Timeout           time.Duration
	PageCacheSize     int
	MetricsAddr       string
	Verbose           bool
	RespectRobotsTxt  bool
}

// DefaultConfig returns defaults tuned for the VGChartz games listing. A
// zero-argument run with these values performs the full multi-genre scrape.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://www.vgchartz.com/games/games.php",
		OutputFile:        "vgchartz_games.xlsx",
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/117.0.0.0 Safari/537.36",
		Workers:           2,
		PageSize:          200,
		MaxRetries:        5,
		JitterMin:         1 * time.Second,
		JitterMax:         3 * time.Second,
		RetryAfterDefault: 30 * time.Second,
		Timeout:           30 * time.Second,
		PageCacheSize:     64,
		MetricsAddr:       "",
		Verbose:           false,
		RespectRobotsTxt:  false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	parsedURL, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("base URL must include a host")
	}

	if c.OutputFile == "" {
		return fmt.Errorf("output file cannot be empty")
	}
	switch strings.ToLower(filepath.Ext(c.OutputFile)) {
	case ".xlsx", ".csv", ".jsonl", ".json":
	default:
		return fmt.Errorf("output file must end in .xlsx, .csv, .jsonl, or .json")
	}

	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.JitterMin < 0 {
		return fmt.Errorf("jitter min cannot be negative")
	}
	if c.JitterMax < c.JitterMin {
		return fmt.Errorf("jitter max (%s) cannot be below jitter min (%s)", c.JitterMax, c.JitterMin)
	}
	if c.RetryAfterDefault < 0 {
		return fmt.Errorf("retry-after default cannot be negative")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.PageCacheSize <= 0 {
		return fmt.Errorf("page cache size must be positive")
	}

	return nil
}

// LoadDotEnv loads a .env file into the process environment when one exists.
// A missing file is not an error.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("stat .env: %w", err)
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// EnvString reads a string environment variable, reporting whether it was set.
func EnvString(key string) (string, bool) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return "", false
	}
	return value, true
}

// EnvInt reads an integer environment variable, reporting whether it was set.
func EnvInt(key string) (int, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return value, true, nil
}

// EnvDuration reads a duration environment variable such as "30s" or "2m",
// reporting whether it was set.
func EnvDuration(key string) (time.Duration, bool, error) {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return 0, false, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, false, fmt.Errorf("%s must be a duration: %w", key, err)
	}
	return value, true, nil
}
