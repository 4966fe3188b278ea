package sheet

// decoder.go turns uploaded spreadsheets into importer rows.
//
// Only the first worksheet of a workbook is read. The first row is the
// header row; every later row becomes one importer.Row keyed by header.
// Header handling:
//
//   - blank headers become "__EMPTY", "__EMPTY_1", ...
//   - repeated headers get a numeric suffix: "Код", "Код_1", ...
//   - rows whose cells are all blank are dropped
//
// Workbook cells keep their type (string, float64, bool, time.Time). CSV
// cells are always strings; the value coercers parse them.

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

var (
	// ErrUnsupportedFile is returned for files that are neither a workbook nor CSV.
	ErrUnsupportedFile = errors.New("unsupported file")

	// ErrNoSheets is returned for workbooks without a worksheet.
	ErrNoSheets = errors.New("workbook has no sheets")
)

const emptyHeader = "__EMPTY"

// zipMagic starts every .xlsx file.
var zipMagic = []byte("PK\x03\x04")

// Decoder reads .xlsx and .csv uploads. The zero value is ready to use.
type Decoder struct{}

// NewDecoder returns a spreadsheet decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

var _ importer.Decoder = (*Decoder)(nil)

// Decode picks the reader by file extension, falling back to content sniffing
// when the extension is missing.
func (d *Decoder) Decode(fileName string, data []byte) ([]importer.Row, error) {
	switch ext := strings.ToLower(filepath.Ext(fileName)); ext {
	case ".xlsx", ".xlsm", ".xltx":
		return decodeWorkbook(data)
	case ".csv", ".txt":
		return decodeCSV(data)
	case "":
		if bytes.HasPrefix(data, zipMagic) {
			return decodeWorkbook(data)
		}
		return decodeCSV(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, ext)
	}
}

// uniqueHeaders renames blank and repeated headers so that no cell is lost.
func uniqueHeaders(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		base := h
		if strings.TrimSpace(base) == "" {
			base = emptyHeader
		}
		name := base
		if n, ok := seen[base]; ok {
			for {
				n++
				name = base + "_" + strconv.Itoa(n)
				if _, taken := seen[name]; !taken {
					break
				}
			}
			seen[base] = n
		}
		seen[name] = 0
		out[i] = name
	}
	return out
}

// blank reports whether every cell of a row is empty.
func blank(cells []importer.Cell) bool {
	for _, c := range cells {
		switch v := c.(type) {
		case nil:
		case string:
			if strings.TrimSpace(v) != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func buildRows(headers []string, records [][]importer.Cell) []importer.Row {
	rows := make([]importer.Row, 0, len(records))
	for _, cells := range records {
		if blank(cells) {
			continue
		}
		rows = append(rows, importer.NewRow(headers, cells))
	}
	return rows
}
