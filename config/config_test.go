package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "empty base url",
			mutate: func(cfg *Config) {
				cfg.BaseURL = ""
			},
			wantErr: "base URL",
		},
		{
			name: "invalid url format",
			mutate: func(cfg *Config) {
				cfg.BaseURL = "http://"
			},
			wantErr: "base URL",
		},
		{
			name: "empty output file",
			mutate: func(cfg *Config) {
				cfg.OutputFile = ""
			},
			wantErr: "output file",
		},
		{
			name: "unsupported output extension",
			mutate: func(cfg *Config) {
				cfg.OutputFile = "games.parquet"
			},
			wantErr: "output file",
		},
		{
			name: "zero workers",
			mutate: func(cfg *Config) {
				cfg.Workers = 0
			},
			wantErr: "workers",
		},
		{
			name: "negative page size",
			mutate: func(cfg *Config) {
				cfg.PageSize = -200
			},
			wantErr: "page size",
		},
		{
			name: "zero max retries",
			mutate: func(cfg *Config) {
				cfg.MaxRetries = 0
			},
			wantErr: "max retries",
		},
		{
			name: "negative jitter min",
			mutate: func(cfg *Config) {
				cfg.JitterMin = -1 * time.Second
			},
			wantErr: "jitter min",
		},
		{
			name: "jitter max below jitter min",
			mutate: func(cfg *Config) {
				cfg.JitterMin = 3 * time.Second
				cfg.JitterMax = 1 * time.Second
			},
			wantErr: "jitter max",
		},
		{
			name: "negative retry-after default",
			mutate: func(cfg *Config) {
				cfg.RetryAfterDefault = -30 * time.Second
			},
			wantErr: "retry-after",
		},
		{
			name: "negative timeout",
			mutate: func(cfg *Config) {
				cfg.Timeout = -1 * time.Second
			},
			wantErr: "timeout",
		},
		{
			name: "zero page cache size",
			mutate: func(cfg *Config) {
				cfg.PageCacheSize = 0
			},
			wantErr: "page cache",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestEnvString(t *testing.T) {
	t.Setenv("SCRAPER_TEST_STRING", "vgchartz_games.csv")
	if value, ok := EnvString("SCRAPER_TEST_STRING"); !ok || value != "vgchartz_games.csv" {
		t.Fatalf("EnvString = %q, %v, want value and true", value, ok)
	}
	if _, ok := EnvString("SCRAPER_TEST_STRING_UNSET"); ok {
		t.Fatalf("unset variable should not report ok")
	}
}

func TestEnvInt(t *testing.T) {
	t.Setenv("SCRAPER_TEST_INT", "4")
	value, ok, err := EnvInt("SCRAPER_TEST_INT")
	if err != nil || !ok || value != 4 {
		t.Fatalf("EnvInt = %d, %v, %v, want 4 and true", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_INT", "four")
	if _, _, err := EnvInt("SCRAPER_TEST_INT"); err == nil {
		t.Fatalf("expected error for non-integer value")
	}

	if _, ok, err := EnvInt("SCRAPER_TEST_INT_UNSET"); ok || err != nil {
		t.Fatalf("unset variable should report not ok, no error")
	}
}

func TestEnvDuration(t *testing.T) {
	t.Setenv("SCRAPER_TEST_DURATION", "45s")
	value, ok, err := EnvDuration("SCRAPER_TEST_DURATION")
	if err != nil || !ok || value != 45*time.Second {
		t.Fatalf("EnvDuration = %v, %v, %v, want 45s and true", value, ok, err)
	}

	t.Setenv("SCRAPER_TEST_DURATION", "soon")
	if _, _, err := EnvDuration("SCRAPER_TEST_DURATION"); err == nil {
		t.Fatalf("expected error for malformed duration")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	content := "SCRAPER_TEST_DOTENV_URL=http://vgchartz.test/games/games.php\nSCRAPER_TEST_DOTENV_WORKERS=4\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	chdir(t, dir)
	t.Cleanup(func() {
		os.Unsetenv("SCRAPER_TEST_DOTENV_URL")
		os.Unsetenv("SCRAPER_TEST_DOTENV_WORKERS")
	})

	if err := LoadDotEnv(); err != nil {
		t.Fatalf("load .env: %v", err)
	}

	if value, ok := EnvString("SCRAPER_TEST_DOTENV_URL"); !ok || value != "http://vgchartz.test/games/games.php" {
		t.Fatalf("EnvString = %q, %v, want the .env value and true", value, ok)
	}
	value, ok, err := EnvInt("SCRAPER_TEST_DOTENV_WORKERS")
	if err != nil || !ok || value != 4 {
		t.Fatalf("EnvInt = %d, %v, %v, want 4 and true", value, ok, err)
	}
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	chdir(t, t.TempDir())
	if err := LoadDotEnv(); err != nil {
		t.Fatalf("missing .env should not be an error, got %v", err)
	}
}
