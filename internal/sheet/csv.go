package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// decodeCSV reads a comma or semicolon separated file. Files that are not
// valid UTF-8 are read as Windows-1251, the usual export encoding of
// Cyrillic Excel installs.
func decodeCSV(data []byte) ([]importer.Row, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		decoded, _, err := transform.Bytes(charmap.Windows1251.NewDecoder(), data)
		if err != nil {
			return nil, fmt.Errorf("decode windows-1251: %w", err)
		}
		data = decoded
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = detectDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	raw, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	headers := uniqueHeaders(raw)

	var records [][]importer.Cell
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		cells := make([]importer.Cell, len(headers))
		for i := range headers {
			if i < len(fields) && fields[i] != "" {
				cells[i] = fields[i]
			}
		}
		records = append(records, cells)
	}

	return buildRows(headers, records), nil
}

// detectDelimiter picks ';' when the header line has more semicolons than
// commas, as written by Excel in locales with a decimal comma.
func detectDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
