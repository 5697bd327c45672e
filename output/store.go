// Package output persists the games table to tabular artifacts and
// implements the append-on-rerun merge contract.
package output

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vgchartz-scraper/models"
)

// Header lists the artifact columns in order.
var Header = []string{"Console", "Game", "Publisher", "Total Shipped", "Total Sales", "Release Date", "Last Update", "Genre"}

// utf8BOM keeps spreadsheet tools happy when they sniff CSV encodings.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Store loads and saves the persisted games table.
type Store interface {
	Load() ([]*models.GameRecord, error)
	Save(records []*models.GameRecord) error
	Path() string
}

// New picks a store implementation from the path extension.
func New(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return NewXLSXStore(path), nil
	case ".csv":
		return NewCSVStore(path), nil
	case ".jsonl", ".json":
		return NewJSONStore(path), nil
	default:
		return nil, fmt.Errorf("unsupported output format: %s", path)
	}
}

// Merge appends fresh records to the table persisted in store: existing rows
// stay first and unchanged, fresh rows follow in their given order, and no
// deduplication happens. A missing artifact is created. Returns the prior
// and combined row counts.
func Merge(store Store, fresh []*models.GameRecord) (prior, total int, err error) {
	existing, err := store.Load()
	if err != nil {
		return 0, 0, fmt.Errorf("load existing table: %w", err)
	}

	combined := make([]*models.GameRecord, 0, len(existing)+len(fresh))
	combined = append(combined, existing...)
	combined = append(combined, fresh...)

	if err := store.Save(combined); err != nil {
		return 0, 0, fmt.Errorf("save merged table: %w", err)
	}
	return len(existing), len(combined), nil
}

// CSVStore persists the table as a UTF-8 CSV file with a leading BOM.
type CSVStore struct {
	path string
}

// NewCSVStore builds a store writing to path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the artifact location.
func (s *CSVStore) Path() string { return s.path }

// Load reads the persisted table. A missing file yields an empty table; a
// header row and a leading BOM are skipped when present.
func (s *CSVStore) Load() ([]*models.GameRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open csv file: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	if lead, err := reader.Peek(len(utf8BOM)); err == nil && bytes.Equal(lead, utf8BOM) {
		if _, err := reader.Discard(len(utf8BOM)); err != nil {
			return nil, fmt.Errorf("skip csv BOM: %w", err)
		}
	}

	rows, err := csv.NewReader(reader).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv file: %w", err)
	}

	var records []*models.GameRecord
	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}
		records = append(records, rowRecord(row))
	}
	return records, nil
}

// Save rewrites the artifact with the header row and all records.
func (s *CSVStore) Save(records []*models.GameRecord) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}

	if _, err := f.Write(utf8BOM); err != nil {
		f.Close()
		return fmt.Errorf("write csv BOM: %w", err)
	}

	writer := csv.NewWriter(f)
	if err := writer.Write(Header); err != nil {
		f.Close()
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, record := range records {
		if err := writer.Write(recordRow(record)); err != nil {
			f.Close()
			return fmt.Errorf("write csv record: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv records: %w", err)
	}
	return f.Close()
}

// JSONStore persists the table as newline-delimited JSON records.
type JSONStore struct {
	path string
}

// NewJSONStore builds a store writing to path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Path returns the artifact location.
func (s *JSONStore) Path() string { return s.path }

// Load reads the persisted table. A missing file yields an empty table.
func (s *JSONStore) Load() ([]*models.GameRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open json file: %w", err)
	}
	defer f.Close()

	var records []*models.GameRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		record := &models.GameRecord{}
		if err := json.Unmarshal(line, record); err != nil {
			return nil, fmt.Errorf("decode json record: %w", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan json file: %w", err)
	}
	return records, nil
}

// Save rewrites the artifact with all records in JSONL format.
func (s *JSONStore) Save(records []*models.GameRecord) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create json file: %w", err)
	}

	buffer := bufio.NewWriter(f)
	encoder := json.NewEncoder(buffer)
	for _, record := range records {
		if err := encoder.Encode(record); err != nil {
			f.Close()
			return fmt.Errorf("encode json record: %w", err)
		}
	}
	if err := buffer.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush json writer: %w", err)
	}
	return f.Close()
}

func recordRow(record *models.GameRecord) []string {
	return []string{
		record.Console,
		record.Game,
		record.Publisher,
		record.TotalShipped,
		record.TotalSales,
		record.ReleaseDate,
		record.LastUpdate,
		record.Genre,
	}
}

func rowRecord(row []string) *models.GameRecord {
	// Loaded rows may omit trailing empty cells.
	padded := row
	if len(row) < len(Header) {
		padded = make([]string, len(Header))
		copy(padded, row)
	}
	return &models.GameRecord{
		Console:      padded[0],
		Game:         padded[1],
		Publisher:    padded[2],
		TotalShipped: padded[3],
		TotalSales:   padded[4],
		ReleaseDate:  padded[5],
		LastUpdate:   padded[6],
		Genre:        padded[7],
	}
}

func isHeaderRow(row []string) bool {
	return len(row) > 0 && row[0] == Header[0]
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
