// Package models defines data structures for the scraper.
package models

import "time"

// GameRecord is one row of the games table. Fields hold the display text
// exactly as scraped; no numeric coercion is applied.
type GameRecord struct {
	Console      string `csv:"Console" json:"console"`
	Game         string `csv:"Game" json:"game"`
	Publisher    string `csv:"Publisher" json:"publisher"`
	TotalShipped string `csv:"Total Shipped" json:"total_shipped"`
	TotalSales   string `csv:"Total Sales" json:"total_sales"`
	ReleaseDate  string `csv:"Release Date" json:"release_date"`
	LastUpdate   string `csv:"Last Update" json:"last_update"`
	Genre        string `csv:"Genre" json:"genre"`
}

// PageTask is one unit of work for the page worker pool. It is consumed
// exactly once and discarded after its result is collected.
type PageTask struct {
	URL   string
	Genre string
	Page  int
}

// ScrapeResult holds the overall result of a scraping run
type ScrapeResult struct {
	StartTime     time.Time
	EndTime       time.Time
	Genres        []string
	SkippedGenres []string
	RowsScraped   int
	PagesScraped  int
	FailedPages   int
	RetryCount    int
	RequestCount  int
	ErrorsByType  map[string]int
	ExistingRows  int
	TotalRows     int
}
