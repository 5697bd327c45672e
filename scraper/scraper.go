package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"vgchartz-scraper/config"
	"vgchartz-scraper/models"
	"vgchartz-scraper/output"
	"vgchartz-scraper/parser"
)

// Request phases reported in logs and metrics.
const (
	phaseDiscover = "discover"
	phaseCount    = "count"
	phasePage     = "page"
)

// Scraper crawls the games listing genre by genre and merges the extracted
// rows into the output artifact.
type Scraper struct {
	cfg       *config.Config
	store     output.Store
	collector *colly.Collector
	cache     *lru.Cache[string, []byte]
	Metrics   *Metrics

	requestCount int64
	retryCount   int64

	mu           sync.Mutex
	errorsByType map[string]int
}

// NewScraper builds a scraper instance configured from cfg, persisting rows
// through store.
func NewScraper(cfg *config.Config, store output.Store) (*Scraper, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base url must include a host")
	}

	// Every fetch runs through a clone of this collector. Clones share the
	// backend, so the transport, timeout, and rate limits set here apply to
	// all of them. Revisits must stay allowed: retries and cache evictions
	// hit URLs the shared store has already seen.
	collector := colly.NewCollector(
		colly.AllowedDomains(parsed.Host),
		colly.UserAgent(cfg.UserAgent),
		colly.AllowURLRevisit(),
	)

	collector.SetRequestTimeout(cfg.Timeout)
	collector.IgnoreRobotsTxt = !cfg.RespectRobotsTxt
	// Throttled responses carry the status and Retry-After header in a
	// regular response instead of an error callback.
	collector.ParseHTTPErrorResponse = true
	collector.WithTransport(&http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	if err := collector.Limit(&colly.LimitRule{
		DomainGlob:  "*",
		Parallelism: cfg.Workers,
		Delay:       cfg.JitterMin,
		RandomDelay: cfg.JitterMax - cfg.JitterMin,
	}); err != nil {
		return nil, fmt.Errorf("configure rate limits: %w", err)
	}

	cache, err := lru.New[string, []byte](cfg.PageCacheSize)
	if err != nil {
		return nil, fmt.Errorf("build page cache: %w", err)
	}

	return &Scraper{
		cfg:          cfg,
		store:        store,
		collector:    collector,
		cache:        cache,
		Metrics:      NewMetrics(),
		errorsByType: make(map[string]int),
	}, nil
}

// Run executes the full scrape: discover genres, scrape every page of every
// genre, and merge the rows into the output artifact. Failed pages degrade
// to zero rows and skipped genres are recorded; only a failed genre
// discovery or a failed merge abort the run. The merge happens even when
// cancellation or page failures leave no new rows.
func (s *Scraper) Run(ctx context.Context) (*models.ScrapeResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()

	genres, err := s.DiscoverGenres(ctx)
	if err != nil {
		return nil, fmt.Errorf("discover genres: %w", err)
	}
	if len(genres) == 0 {
		return nil, errors.New("no genres found on the listing page")
	}
	slog.Info("genres discovered",
		slog.Int("count", len(genres)),
		slog.Any("genres", genres),
	)

	var (
		rows    []*models.GameRecord
		skipped []string
		scraped int
		failed  int
	)

	for _, genre := range genres {
		if ctx.Err() != nil {
			slog.Warn("run canceled, persisting rows collected so far",
				slog.String("next_genre", genre),
			)
			break
		}

		slog.Info("processing genre", slog.String("genre", genre))

		total, ok := s.discoverTotal(ctx, genre)
		if !ok {
			skipped = append(skipped, genre)
			s.Metrics.IncGenreSkipped()
			slog.Warn("result count unavailable, skipping genre",
				slog.String("genre", genre),
			)
			continue
		}

		pageCount := parser.PageCount(total, s.cfg.PageSize)
		slog.Info("result count discovered",
			slog.String("genre", genre),
			slog.Int("total_results", total),
			slog.Int("pages", pageCount),
		)

		genreRows, genreScraped, genreFailed := s.scrapeGenre(ctx, genre, pageCount)
		rows = append(rows, genreRows...)
		scraped += genreScraped
		failed += genreFailed
		slog.Info("genre complete",
			slog.String("genre", genre),
			slog.Int("rows", len(genreRows)),
		)
	}

	prior, totalRows, err := output.Merge(s.store, rows)
	if err != nil {
		return nil, fmt.Errorf("write result table: %w", err)
	}
	slog.Info("result table written",
		slog.String("path", s.store.Path()),
		slog.Int("existing_rows", prior),
		slog.Int("new_rows", len(rows)),
		slog.Int("total_rows", totalRows),
	)

	return &models.ScrapeResult{
		StartTime:     start,
		EndTime:       time.Now(),
		Genres:        genres,
		SkippedGenres: skipped,
		RowsScraped:   len(rows),
		PagesScraped:  scraped,
		FailedPages:   failed,
		RetryCount:    int(atomic.LoadInt64(&s.retryCount)),
		RequestCount:  int(atomic.LoadInt64(&s.requestCount)),
		ErrorsByType:  s.snapshotErrors(),
		ExistingRows:  prior,
		TotalRows:     totalRows,
	}, nil
}

// DiscoverGenres fetches the bare listing page and returns the values of the
// genre filter control in document order. An empty slice means the control
// was missing from the page.
func (s *Scraper) DiscoverGenres(ctx context.Context) ([]string, error) {
	body, err := s.fetch(ctx, s.cfg.BaseURL, phaseDiscover)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, ErrParse{What: "genre form", Err: err}
	}
	return parser.Genres(doc), nil
}

// discoverTotal reports how many records the site lists for genre. A failed
// fetch or a missing count skips the genre rather than aborting the run.
func (s *Scraper) discoverTotal(ctx context.Context, genre string) (int, bool) {
	body, err := s.fetch(ctx, s.pageURL(genre, 1), phaseCount)
	if err != nil {
		s.recordError(err)
		slog.Error("result count fetch failed",
			slog.String("genre", genre),
			slog.Any("error", err),
		)
		return 0, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.recordError(ErrParse{What: "result count page", Err: err})
		return 0, false
	}
	return parser.TotalResults(doc)
}

// scrapePage fetches and parses one results page. Fetch and parse errors
// propagate so the pool can count the page as failed; a page without the
// results table yields zero rows and no error.
func (s *Scraper) scrapePage(ctx context.Context, task models.PageTask) ([]*models.GameRecord, error) {
	body, err := s.fetch(ctx, task.URL, phasePage)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, ErrParse{What: "results page", Err: err}
	}
	return parser.GameRows(doc, task.Genre), nil
}

// fetch issues a GET for pageURL with bounded retries on throttled
// responses. Successful bodies land in the page cache, so the page-one URL
// shared by the count probe and the first page task costs one request. Any
// other non-200 status fails immediately.
func (s *Scraper) fetch(ctx context.Context, pageURL, phase string) ([]byte, error) {
	if body, ok := s.cache.Get(pageURL); ok {
		s.Metrics.IncCacheHit()
		return body, nil
	}

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		atomic.AddInt64(&s.requestCount, 1)
		s.Metrics.IncRequest(phase)

		body, status, retryAfter, err := s.doRequest(pageURL)
		if err != nil {
			return nil, classifyError(err, status)
		}

		if status == http.StatusOK {
			s.cache.Add(pageURL, body)
			return body, nil
		}
		if status != http.StatusTooManyRequests {
			return nil, ErrHTTPStatus{Status: status, Err: fmt.Errorf("http status %d", status)}
		}

		wait := s.retryAfterDelay(retryAfter)
		slog.Warn("throttled by server",
			slog.String("url", pageURL),
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", s.cfg.MaxRetries),
			slog.Duration("wait", wait),
		)
		if attempt == s.cfg.MaxRetries {
			break
		}
		atomic.AddInt64(&s.retryCount, 1)
		s.Metrics.IncRetries()
		if err := sleepContext(ctx, wait); err != nil {
			return nil, err
		}
	}

	return nil, ErrThrottled{
		Attempts: s.cfg.MaxRetries,
		Err:      fmt.Errorf("http status %d", http.StatusTooManyRequests),
	}
}

// doRequest performs one synchronous GET through a collector clone and
// reports the terminal status, body, and Retry-After header. The clone
// inherits the shared backend, so the configured delays and parallelism cap
// apply here.
func (s *Scraper) doRequest(pageURL string) (body []byte, status int, retryAfter string, err error) {
	c := s.collector.Clone()

	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		body = r.Body
		if r.Headers != nil {
			retryAfter = r.Headers.Get("Retry-After")
		}
	})
	c.OnError(func(r *colly.Response, visitErr error) {
		err = visitErr
		if r != nil {
			status = r.StatusCode
		}
	})

	start := time.Now()
	if visitErr := c.Visit(pageURL); visitErr != nil && err == nil {
		err = visitErr
	}
	s.Metrics.ObserveDuration(time.Since(start))
	return body, status, retryAfter, err
}

// retryAfterDelay converts a Retry-After header value into a wait duration.
// Missing, malformed, or negative values fall back to the configured
// default; only integer seconds are honored.
func (s *Scraper) retryAfterDelay(header string) time.Duration {
	header = strings.TrimSpace(header)
	if header == "" {
		return s.cfg.RetryAfterDefault
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return s.cfg.RetryAfterDefault
	}
	return time.Duration(seconds) * time.Second
}

// pageURL builds the filtered listing URL for one genre and page number.
func (s *Scraper) pageURL(genre string, page int) string {
	return s.cfg.BaseURL + "?" + listingQuery(genre, page, s.cfg.PageSize)
}

// listingQuery reproduces the query string the listing endpoint expects. The
// show flags for the columns that must render are sent twice, 0 then 1,
// mirroring the form submission the site itself produces.
func listingQuery(genre string, page, pageSize int) string {
	params := url.Values{}
	params.Set("name", "")
	params.Set("keyword", "")
	params.Set("console", "")
	params.Set("region", "All")
	params.Set("developer", "")
	params.Set("publisher", "")
	params.Set("goty_year", "")
	params.Set("genre", genre)
	params.Set("boxart", "Both")
	params.Set("banner", "Both")
	params.Set("ownership", "Both")
	params.Set("showmultiplat", "No")
	params.Set("results", strconv.Itoa(pageSize))
	params.Set("order", "Popular")
	params["showtotalsales"] = []string{"0", "1"}
	params["showpublisher"] = []string{"0", "1"}
	params["showreleasedate"] = []string{"0", "1"}
	params["showlastupdate"] = []string{"0", "1"}
	params["showshipped"] = []string{"0", "1"}
	params.Set("showvgchartzscore", "0")
	params.Set("shownasales", "0")
	params.Set("showdeveloper", "0")
	params.Set("showcriticscore", "0")
	params.Set("showpalsales", "0")
	params.Set("showuserscore", "0")
	params.Set("showjapansales", "0")
	params.Set("showothersales", "0")
	params.Set("page", strconv.Itoa(page))
	return params.Encode()
}

func (s *Scraper) recordError(err error) {
	label := errorTypeLabel(err)
	s.mu.Lock()
	s.errorsByType[label]++
	s.mu.Unlock()
	s.Metrics.IncError(label)
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrTimeout{Err: err}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ErrConnection{Err: err}
	}

	if statusCode != 0 && statusCode != http.StatusOK {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		return ErrHTTPStatus{Status: statusCode, Err: wrapped}
	}

	return err
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
