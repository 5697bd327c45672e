package output

import (
	"fmt"
	"os"

	"github.com/xuri/excelize/v2"

	"vgchartz-scraper/models"
)

// XLSXStore persists the table as an Excel workbook, the artifact shape the
// VGChartz dataset historically ships in.
type XLSXStore struct {
	path string
}

// NewXLSXStore builds a store writing to path.
func NewXLSXStore(path string) *XLSXStore {
	return &XLSXStore{path: path}
}

// Path returns the artifact location.
func (s *XLSXStore) Path() string { return s.path }

// Load reads all rows from the first sheet of the workbook. A missing file
// yields an empty table; a header row is skipped.
func (s *XLSXStore) Load() ([]*models.GameRecord, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat xlsx file: %w", err)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open xlsx file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("read xlsx rows: %w", err)
	}

	var records []*models.GameRecord
	for i, row := range rows {
		if i == 0 && isHeaderRow(row) {
			continue
		}
		if len(row) == 0 {
			continue
		}
		records = append(records, rowRecord(row))
	}
	return records, nil
}

// Save rewrites the workbook with the header row and all records on the
// default sheet.
func (s *XLSXStore) Save(records []*models.GameRecord) error {
	if err := ensureDir(s.path); err != nil {
		return err
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	if err := f.SetSheetRow(sheet, "A1", rowValues(Header)); err != nil {
		f.Close()
		return fmt.Errorf("write xlsx header: %w", err)
	}

	for i, record := range records {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return fmt.Errorf("address xlsx row %d: %w", i+2, err)
		}
		if err := f.SetSheetRow(sheet, cell, rowValues(recordRow(record))); err != nil {
			f.Close()
			return fmt.Errorf("write xlsx row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(s.path); err != nil {
		f.Close()
		return fmt.Errorf("save xlsx file: %w", err)
	}
	return f.Close()
}

func rowValues(row []string) *[]interface{} {
	values := make([]interface{}, len(row))
	for i, v := range row {
		values[i] = v
	}
	return &values
}
