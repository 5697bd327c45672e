package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vgchartz-scraper/config"
	"vgchartz-scraper/models"
	"vgchartz-scraper/output"
	"vgchartz-scraper/scraper"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	defaultCfg := config.DefaultConfig()
	workersDefault := defaultCfg.Workers
	if value, ok, err := config.EnvInt("SCRAPER_WORKERS"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_WORKERS: %v\n", err)
		os.Exit(1)
	} else if ok {
		workersDefault = value
	}
	retriesDefault := defaultCfg.MaxRetries
	if value, ok, err := config.EnvInt("SCRAPER_MAX_RETRIES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_MAX_RETRIES: %v\n", err)
		os.Exit(1)
	} else if ok {
		retriesDefault = value
	}
	timeoutDefault := defaultCfg.Timeout
	if value, ok, err := config.EnvDuration("SCRAPER_TIMEOUT"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_TIMEOUT: %v\n", err)
		os.Exit(1)
	} else if ok {
		timeoutDefault = value
	}
	baseURLDefault := defaultCfg.BaseURL
	if value, ok := config.EnvString("SCRAPER_BASE_URL"); ok {
		baseURLDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	baseURL := flag.String("base-url", baseURLDefault, "Games listing URL to scrape")
	outputFile := flag.String("output", outputDefault, "Output file path (.xlsx, .csv, .jsonl, or .json)")
	workers := flag.Int("workers", workersDefault, "Number of concurrent page fetches per genre")
	maxRetries := flag.Int("max-retries", retriesDefault, "Attempts per URL when throttled")
	jitterMinMs := flag.Int("jitter-min", int(defaultCfg.JitterMin.Milliseconds()), "Minimum pre-request delay (milliseconds)")
	jitterMaxMs := flag.Int("jitter-max", int(defaultCfg.JitterMax.Milliseconds()), "Maximum pre-request delay (milliseconds)")
	respectRobots := flag.Bool("respect-robots", false, "Respect robots.txt directives")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	setLogLoggerLevel(level.Level())

	cfg := buildConfigFromFlags(*baseURL, *outputFile, *workers, *maxRetries, *jitterMinMs, *jitterMaxMs, timeoutDefault, *respectRobots, *verbose, *metricsAddr)
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.Info("starting scrape",
		slog.String("base_url", cfg.BaseURL),
		slog.String("output", cfg.OutputFile),
		slog.Int("workers", cfg.Workers),
	)

	store, err := output.New(cfg.OutputFile)
	if err != nil {
		slog.Error("opening output store", slog.Any("error", err))
		os.Exit(1)
	}

	s, err := scraper.NewScraper(cfg, store)
	if err != nil {
		slog.Error("initialising scraper", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, waiting for in-flight pages to finish")
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := s.Run(ctx)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, cfg.OutputFile)
}

func buildConfigFromFlags(baseURL, outputFile string, workers, maxRetries, jitterMinMs, jitterMaxMs int, timeout time.Duration, respectRobots, verbose bool, metricsAddr string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = baseURL
	cfg.OutputFile = outputFile
	cfg.Workers = workers
	cfg.MaxRetries = maxRetries
	cfg.JitterMin = time.Duration(jitterMinMs) * time.Millisecond
	cfg.JitterMax = time.Duration(jitterMaxMs) * time.Millisecond
	cfg.Timeout = timeout
	cfg.RespectRobotsTxt = respectRobots
	cfg.Verbose = verbose
	cfg.MetricsAddr = metricsAddr
	return cfg
}

func printSummary(result *models.ScrapeResult, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")

	duration := result.EndTime.Sub(result.StartTime)
	rowsPerSec := 0.0
	if duration.Seconds() > 0 {
		rowsPerSec = float64(result.RowsScraped) / duration.Seconds()
	}

	fmt.Printf("  Rows scraped:  %d\n", result.RowsScraped)
	fmt.Printf("  Total records: %d (%d pre-existing)\n", result.TotalRows, result.ExistingRows)
	fmt.Printf("  Genres:        %d (%d skipped)\n", len(result.Genres), len(result.SkippedGenres))
	fmt.Printf("  Pages:         %d scraped, %d failed\n", result.PagesScraped, result.FailedPages)
	fmt.Printf("  Requests:      %d (%d retries)\n", result.RequestCount, result.RetryCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if len(result.SkippedGenres) > 0 {
		fmt.Printf("  Skipped:       %s\n", strings.Join(result.SkippedGenres, ", "))
	}
	fmt.Printf("  Duration:      %v\n", duration)
	fmt.Printf("  Rows/sec:      %.2f\n", rowsPerSec)
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	var handler slog.Handler
	if isTerminal(os.Stderr) {
		handler = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
