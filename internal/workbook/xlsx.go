package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// DefaultColumnWidth matches the width the sheets have always been written with.
const DefaultColumnWidth = 12

// XLSXPersister stores the workbook as a single .xlsx file, one worksheet per
// sheet key.
type XLSXPersister struct {
	Path        string
	ColumnWidth float64
}

func NewXLSXPersister(path string) *XLSXPersister {
	return &XLSXPersister{Path: path, ColumnWidth: DefaultColumnWidth}
}

// Load reads every worksheet back. A missing file is an empty workbook.
func (p *XLSXPersister) Load() ([]Sheet, error) {
	f, err := excelize.OpenFile(p.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open workbook %s: %w", p.Path, err)
	}
	defer func() { _ = f.Close() }()

	var sheets []Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}

		sheet := Sheet{Name: name, Header: rows[0]}
		for _, row := range rows[1:] {
			sheet.Rows = append(sheet.Rows, decodeRow(row))
		}
		sheets = append(sheets, sheet)
	}
	return sheets, nil
}

// decodeRow restores cell types: blanks become nil and whole numbers ints.
// The first column is the row time and stays text.
func decodeRow(row []string) []any {
	cells := make([]any, len(row))
	for i, value := range row {
		switch {
		case value == "":
			cells[i] = nil
		case i == 0:
			cells[i] = value
		default:
			if n, err := strconv.Atoi(value); err == nil {
				cells[i] = n
			} else {
				cells[i] = value
			}
		}
	}
	return cells
}

// Persist rewrites the file atomically.
func (p *XLSXPersister) Persist(sheets []Sheet) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	for i, sheet := range sheets {
		if err := p.writeSheet(f, i, sheet); err != nil {
			return err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("encode workbook: %w", err)
	}
	return writeFileAtomic(p.Path, buf.Bytes())
}

func (p *XLSXPersister) writeSheet(f *excelize.File, index int, sheet Sheet) error {
	if index == 0 {
		if err := f.SetSheetName(f.GetSheetName(0), sheet.Name); err != nil {
			return fmt.Errorf("name sheet %q: %w", sheet.Name, err)
		}
	} else if _, err := f.NewSheet(sheet.Name); err != nil {
		return fmt.Errorf("create sheet %q: %w", sheet.Name, err)
	}

	header := make([]any, len(sheet.Header))
	for i, column := range sheet.Header {
		header[i] = column
	}
	if err := f.SetSheetRow(sheet.Name, "A1", &header); err != nil {
		return fmt.Errorf("write header of %q: %w", sheet.Name, err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet.Name, cell, &values); err != nil {
			return fmt.Errorf("write row %d of %q: %w", i+1, sheet.Name, err)
		}
	}

	if len(sheet.Header) > 0 {
		last, err := excelize.ColumnNumberToName(len(sheet.Header))
		if err != nil {
			return err
		}
		width := p.ColumnWidth
		if width <= 0 {
			width = DefaultColumnWidth
		}
		if err := f.SetColWidth(sheet.Name, "A", last, width); err != nil {
			return fmt.Errorf("size columns of %q: %w", sheet.Name, err)
		}
	}
	return nil
}

// writeFileAtomic writes through a temp file in the target directory and
// renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".seatwatch-tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp file for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return nil
}
