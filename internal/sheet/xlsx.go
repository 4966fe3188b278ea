package sheet

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

// decodeWorkbook reads the first worksheet of an .xlsx file.
func decodeWorkbook(data []byte) ([]importer.Row, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoSheets
	}
	name := sheets[0]

	// Raw values keep numbers as numbers instead of their display format.
	grid, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	if len(grid) == 0 {
		return nil, nil
	}

	headers := uniqueHeaders(grid[0])
	records := make([][]importer.Cell, 0, len(grid)-1)
	for r, raw := range grid[1:] {
		cells := make([]importer.Cell, len(headers))
		for c := range headers {
			if c >= len(raw) {
				break
			}
			ref, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return nil, fmt.Errorf("cell reference: %w", err)
			}
			typ, err := f.GetCellType(name, ref)
			if err != nil {
				return nil, fmt.Errorf("cell %s type: %w", ref, err)
			}
			cells[c] = typedCell(typ, raw[c])
		}
		records = append(records, cells)
	}

	return buildRows(headers, records), nil
}

// typedCell converts a raw cell value using the cell type stored in the sheet.
func typedCell(typ excelize.CellType, raw string) importer.Cell {
	if raw == "" {
		return nil
	}
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t
			}
		}
		return raw
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeError:
		return raw
	default:
		// Numbers, formula results, and cells without an explicit type.
		if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
			return f
		}
		return raw
	}
}
