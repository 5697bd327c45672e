// Package parser extracts genres, result counts, and game rows from
// VGChartz listing pages.
package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vgchartz-scraper/models"
)

const (
	// UnknownConsole is emitted when no console image can be identified
	// for a row.
	UnknownConsole = "Unknown"

	tableMarker       = "Pos"
	reviewSuffix      = "Read the review"
	boxartPlaceholder = "Boxart Missing"
	minRowCells       = 9
)

var resultsRe = regexp.MustCompile(`Results:\s*\(([\d,]+)\)`)

// Genres returns the values of the genre filter options in document order,
// skipping the blank default option. Values are trimmed; duplicates are not
// filtered.
func Genres(doc *goquery.Document) []string {
	var genres []string
	doc.Find(`select[name="genre"] option`).Each(func(_ int, option *goquery.Selection) {
		value := strings.TrimSpace(option.AttrOr("value", ""))
		if value == "" {
			return
		}
		genres = append(genres, value)
	})
	return genres
}

// TotalResults extracts the total result count from the "Results: (N)"
// header label, where N may use comma thousands grouping. The second return
// is false when the label is missing or malformed.
func TotalResults(doc *goquery.Document) (int, bool) {
	total := 0
	found := false
	doc.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		match := resultsRe.FindStringSubmatch(th.Text())
		if match == nil {
			return true
		}
		value, err := strconv.Atoi(strings.ReplaceAll(match[1], ",", ""))
		if err != nil {
			return true
		}
		total = value
		found = true
		return false
	})
	return total, found
}

// PageCount returns the number of result pages needed for total records at
// pageSize records per page (ceiling division).
func PageCount(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	return (total + pageSize - 1) / pageSize
}

// CleanGameName strips the review boilerplate from a scraped name cell.
func CleanGameName(raw string) string {
	name := strings.ReplaceAll(raw, reviewSuffix, "")
	return strings.TrimSpace(name)
}

// GameRows extracts all game records from the results table of one page,
// tagging each with the caller-supplied genre. The table is located by its
// "Pos" header cell; a page without one yields no records. The header row
// and rows with fewer than 9 cells are dropped.
func GameRows(doc *goquery.Document, genre string) []*models.GameRecord {
	table := resultsTable(doc)
	if table == nil {
		return nil
	}

	var records []*models.GameRecord
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return
		}
		cells := row.Find("td")
		if cells.Length() < minRowCells {
			return
		}
		records = append(records, rowRecord(cells, genre))
	})
	return records
}

func resultsTable(doc *goquery.Document) *goquery.Selection {
	var table *goquery.Selection
	doc.Find("th").EachWithBreak(func(_ int, th *goquery.Selection) bool {
		if !strings.Contains(th.Text(), tableMarker) {
			return true
		}
		enclosing := th.Closest("table")
		if enclosing.Length() == 0 {
			return true
		}
		table = enclosing
		return false
	})
	return table
}

func rowRecord(cells *goquery.Selection, genre string) *models.GameRecord {
	return &models.GameRecord{
		Console:      consoleName(cells),
		Game:         CleanGameName(cells.Eq(2).Text()),
		Publisher:    cellText(cells, 4),
		TotalShipped: cellText(cells, 5),
		TotalSales:   cellText(cells, 6),
		ReleaseDate:  cellText(cells, 7),
		LastUpdate:   cellText(cells, 8),
		Genre:        genre,
	}
}

// consoleName scans the name and console cells, in that order, for the
// first image with a usable alt text. The site marks rows without artwork
// with a "Boxart Missing" placeholder image that must not win the scan.
func consoleName(cells *goquery.Selection) string {
	for _, idx := range []int{2, 3} {
		name := ""
		cells.Eq(idx).Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
			alt := strings.TrimSpace(img.AttrOr("alt", ""))
			if alt == "" || alt == boxartPlaceholder {
				return true
			}
			name = alt
			return false
		})
		if name != "" {
			return name
		}
	}
	return UnknownConsole
}

func cellText(cells *goquery.Selection, idx int) string {
	return strings.TrimSpace(cells.Eq(idx).Text())
}
