package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of a workbook export.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// ExcelExporter renders datasets into xlsx workbooks.
type ExcelExporter struct{}

// NewExcelExporter constructs an Excel exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Render produces a single-sheet workbook from the dataset.
func (e *ExcelExporter) Render(data Dataset, sheetName string) ([]byte, error) {
	rows := make([][]string, len(data.Rows))
	for i, row := range data.Rows {
		record := make([]string, len(data.Headers))
		for j, header := range data.Headers {
			record[j] = row[header]
		}
		rows[i] = record
	}
	return e.RenderSheets([]Sheet{{Name: sheetName, Headers: data.Headers, Rows: rows}})
}

// RenderSheets produces a workbook with one worksheet per sheet spec.
func (e *ExcelExporter) RenderSheets(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook requires at least one sheet")
	}

	f := excelize.NewFile()
	bold, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	for i, sheet := range sheets {
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return nil, fmt.Errorf("new sheet %s: %w", name, err)
			}
		}

		for col, header := range sheet.Headers {
			cell := fmt.Sprintf("%s1", columnName(col+1))
			if err := f.SetCellStr(name, cell, header); err != nil {
				return nil, fmt.Errorf("set cell %s: %w", cell, err)
			}
		}
		if len(sheet.Headers) > 0 {
			end := columnName(len(sheet.Headers)) + "1"
			_ = f.SetCellStyle(name, "A1", end, bold)
		}

		for r, row := range sheet.Rows {
			for c, value := range row {
				cell := fmt.Sprintf("%s%d", columnName(c+1), r+2)
				if err := f.SetCellStr(name, cell, value); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
		}

		for c := 1; c <= len(sheet.Headers); c++ {
			width := float64(columnWidth(sheet, c)) * 0.9
			if width < 12 {
				width = 12
			}
			if width > 40 {
				width = 40
			}
			_ = f.SetColWidth(name, columnName(c), columnName(c), width)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// columnWidth sizes a column by its header and the first rows of data.
func columnWidth(sheet Sheet, col int) int {
	max := len(sheet.Headers[col-1])
	limit := len(sheet.Rows)
	if limit > 50 {
		limit = 50
	}
	for r := 0; r < limit; r++ {
		if col <= len(sheet.Rows[r]) {
			if l := len(sheet.Rows[r][col-1]); l > max {
				max = l
			}
		}
	}
	return max
}

func columnName(n int) string {
	s := ""
	for n > 0 {
		n--
		s = string(rune('A'+(n%26))) + s
		n /= 26
	}
	return s
}
