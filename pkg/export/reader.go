package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ParseTable reads an uploaded spreadsheet into rows of cells. The format
// is picked from the filename extension: xlsx and xls go through excelize,
// csv through the standard reader. The first row is expected to hold
// headers and is returned as-is.
func ParseTable(filename string, payload []byte) ([][]string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xls":
		return parseWorkbook(payload)
	case ".csv":
		return parseCSV(payload)
	default:
		return nil, fmt.Errorf("unsupported file format %q, expected xlsx, xls or csv", filepath.Ext(filename))
	}
}

func parseWorkbook(payload []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	return rows, nil
}

func parseCSV(payload []byte) ([][]string, error) {
	reader := csv.NewReader(bytes.NewReader(payload))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return rows, nil
}
