package scraper

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
)

func TestScrapeGenreCollectsAllPages(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 2
	s, transport, _ := newTestScraper(t, cfg)

	transport.RegisterResponder("GET", s.pageURL("Sports", 1),
		htmlResponder(buildListingPage("Sports", 0, 1, 2)))
	transport.RegisterResponder("GET", s.pageURL("Sports", 2),
		htmlResponder(buildListingPage("Sports", 0, 3, 2)))
	transport.RegisterResponder("GET", s.pageURL("Sports", 3),
		htmlResponder(buildListingPage("Sports", 0, 5, 2)))

	rows, scraped, failed := s.scrapeGenre(context.Background(), "Sports", 3)
	if scraped != 3 || failed != 0 {
		t.Fatalf("scraped=%d failed=%d, want 3/0", scraped, failed)
	}
	if len(rows) != 6 {
		t.Fatalf("rows=%d, want 6", len(rows))
	}
	for _, record := range rows {
		if record.Genre != "Sports" {
			t.Fatalf("genre=%q, want Sports", record.Genre)
		}
	}
}

func TestScrapeGenrePageFailureYieldsZeroRows(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 2
	s, transport, _ := newTestScraper(t, cfg)

	transport.RegisterResponder("GET", s.pageURL("Sports", 1),
		htmlResponder(buildListingPage("Sports", 0, 1, 2)))
	transport.RegisterResponder("GET", s.pageURL("Sports", 2),
		statusResponder(http.StatusNotFound, ""))
	transport.RegisterResponder("GET", s.pageURL("Sports", 3),
		htmlResponder(buildListingPage("Sports", 0, 5, 2)))

	rows, scraped, failed := s.scrapeGenre(context.Background(), "Sports", 3)
	if scraped != 2 || failed != 1 {
		t.Fatalf("scraped=%d failed=%d, want 2/1", scraped, failed)
	}
	if len(rows) != 4 {
		t.Fatalf("rows=%d, want 4 (failed page contributes none)", len(rows))
	}
	if got := s.snapshotErrors()["not_found"]; got != 1 {
		t.Fatalf("not_found errors=%d, want 1", got)
	}
}

func TestScrapeGenreParallelismCapped(t *testing.T) {
	cfg := testConfig()
	cfg.Workers = 2
	s, transport, _ := newTestScraper(t, cfg)

	body := buildListingPage("Racing", 0, 1, 1)
	var mu sync.Mutex
	current, peak := 0, 0
	responder := func(req *http.Request) (*http.Response, error) {
		mu.Lock()
		current++
		if current > peak {
			peak = current
		}
		mu.Unlock()
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		current--
		mu.Unlock()

		resp := httpmock.NewStringResponse(http.StatusOK, body)
		resp.Header.Set("Content-Type", "text/html")
		return resp, nil
	}
	for page := 1; page <= 6; page++ {
		transport.RegisterResponder("GET", s.pageURL("Racing", page), responder)
	}

	rows, _, failed := s.scrapeGenre(context.Background(), "Racing", 6)
	if failed != 0 || len(rows) != 6 {
		t.Fatalf("rows=%d failed=%d, want 6/0", len(rows), failed)
	}

	mu.Lock()
	got := peak
	mu.Unlock()
	if got > cfg.Workers {
		t.Fatalf("peak concurrency %d exceeds %d workers", got, cfg.Workers)
	}
}

func TestScrapeGenreZeroPages(t *testing.T) {
	s, transport, _ := newTestScraper(t, testConfig())

	rows, scraped, failed := s.scrapeGenre(context.Background(), "Empty", 0)
	if rows != nil || scraped != 0 || failed != 0 {
		t.Fatalf("rows=%v scraped=%d failed=%d, want none", rows, scraped, failed)
	}
	if got := transport.GetTotalCallCount(); got != 0 {
		t.Fatalf("requests=%d, want 0", got)
	}
}

func BenchmarkScrapeGenre(b *testing.B) {
	cfg := testConfig()
	cfg.Workers = 4

	store := &memoryStore{}
	s, err := NewScraper(cfg, store)
	if err != nil {
		b.Fatalf("new scraper: %v", err)
	}
	transport := httpmock.NewMockTransport()
	body := buildListingPage("Action", 0, 1, 50)
	for page := 1; page <= 10; page++ {
		transport.RegisterResponder("GET", s.pageURL("Action", page), htmlResponder(body))
	}
	s.collector.WithTransport(transport)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rows, _, failed := s.scrapeGenre(context.Background(), "Action", 10)
		if failed != 0 || len(rows) != 500 {
			b.Fatalf("rows=%d failed=%d", len(rows), failed)
		}
	}
	b.StopTimer()
	elapsed := b.Elapsed().Seconds()
	if elapsed > 0 {
		b.ReportMetric(float64(b.N*500)/elapsed, "rows/sec")
	}
}
