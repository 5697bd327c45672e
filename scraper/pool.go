package scraper

import (
	"context"
	"log/slog"
	"sync"

	"vgchartz-scraper/models"
)

// pageResult carries one page's outcome from a worker to the collecting
// loop.
type pageResult struct {
	task    models.PageTask
	records []*models.GameRecord
	err     error
}

// scrapeGenre fans the genre's page tasks out over a fixed pool of workers
// and collects the rows in completion order. A failed page is logged and
// counted but never aborts its siblings. Returns the collected rows and the
// scraped and failed page counts; pages never dispatched because the
// context was canceled count in neither.
func (s *Scraper) scrapeGenre(ctx context.Context, genre string, pageCount int) ([]*models.GameRecord, int, int) {
	if pageCount <= 0 {
		return nil, 0, 0
	}

	tasks := make(chan models.PageTask)
	results := make(chan pageResult)

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range tasks {
				records, err := s.scrapePage(ctx, task)
				results <- pageResult{task: task, records: records, err: err}
			}
		}()
	}

	go func() {
		defer close(tasks)
		for page := 1; page <= pageCount; page++ {
			task := models.PageTask{
				URL:   s.pageURL(genre, page),
				Genre: genre,
				Page:  page,
			}
			select {
			case tasks <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var rows []*models.GameRecord
	scraped, failed := 0, 0
	for result := range results {
		if result.err != nil {
			failed++
			s.recordError(result.err)
			s.Metrics.IncPageFailed()
			slog.Error("page scrape failed",
				slog.String("genre", result.task.Genre),
				slog.Int("page", result.task.Page),
				slog.Any("error", result.err),
			)
			continue
		}
		rows = append(rows, result.records...)
		scraped++
		s.Metrics.IncPageScraped()
		s.Metrics.AddRows(len(result.records))
		slog.Info("page done",
			slog.String("genre", result.task.Genre),
			slog.Int("page", result.task.Page),
			slog.Int("rows", len(result.records)),
		)
	}
	return rows, scraped, failed
}
