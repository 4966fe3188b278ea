package importer

import (
	"fmt"
	"sort"
)

// Preview sample limits.
const (
	previewSampleRows  = 20
	previewErrorSample = 10
)

// FieldPreview shows how one canonical field resolves against a sheet.
type FieldPreview struct {
	Field       string `json:"field"`
	Required    bool   `json:"required"`
	Header      string `json:"header,omitempty"`
	Sample      string `json:"sample,omitempty"`
	MatchedRows int    `json:"matchedRows"`
}

// PreviewResult is a read-only analysis of a decoded sheet.
type PreviewResult struct {
	Type            ImportType     `json:"type"`
	TotalRows       int            `json:"totalRows"`
	SampledRows     int            `json:"sampledRows"`
	Headers         []string       `json:"headers"`
	Fields          []FieldPreview `json:"fields"`
	MissingRequired []string       `json:"missingRequired"`
	UnusedHeaders   []string       `json:"unusedHeaders"`
	ValidRows       int            `json:"validRows"`
	InvalidRows     int            `json:"invalidRows"`
	SampleErrors    []string       `json:"sampleErrors"`
}

// BuildPreview reports which header every field resolves to over the first
// rows and validates every row without touching storage.
func BuildPreview(t ImportType, mappings map[string]FieldMapping, rows []Row) (PreviewResult, error) {
	schema, ok := SchemaFor(t)
	if !ok {
		return PreviewResult{}, fmt.Errorf("%w: %q", ErrUnknownImportType, t)
	}

	res := PreviewResult{
		Type:            t,
		TotalRows:       len(rows),
		Headers:         []string{},
		Fields:          []FieldPreview{},
		MissingRequired: []string{},
		UnusedHeaders:   []string{},
		SampleErrors:    []string{},
	}

	sample := rows
	if len(sample) > previewSampleRows {
		sample = sample[:previewSampleRows]
	}
	res.SampledRows = len(sample)

	used := make(map[string]bool)
	seenHeaders := make(map[string]bool)
	for _, r := range sample {
		for _, h := range r.Headers() {
			if !seenHeaders[h] {
				seenHeaders[h] = true
				res.Headers = append(res.Headers, h)
			}
		}
	}

	for _, fm := range SortedMappings(mappings) {
		if _, known := schema.Field(fm.Field); !known {
			continue
		}
		fp := FieldPreview{Field: fm.Field, Required: fm.Required}
		for _, r := range sample {
			header, v, found := MatchColumn(r, fm.Aliases)
			if !found {
				continue
			}
			fp.MatchedRows++
			used[header] = true
			if fp.Header == "" {
				fp.Header = header
				fp.Sample = CellText(v)
			}
		}
		if fp.Header == "" && fm.Required {
			res.MissingRequired = append(res.MissingRequired, fm.Field)
		}
		res.Fields = append(res.Fields, fp)
	}

	for _, h := range res.Headers {
		if !used[h] {
			res.UnusedHeaders = append(res.UnusedHeaders, h)
		}
	}
	sort.Strings(res.MissingRequired)

	for i, r := range rows {
		if _, err := buildRecord(t, schema, mappings, r); err != nil {
			res.InvalidRows++
			if len(res.SampleErrors) < previewErrorSample {
				res.SampleErrors = append(res.SampleErrors, fmt.Sprintf("Row %d: %s", i+2, err.Error()))
			}
			continue
		}
		res.ValidRows++
	}

	return res, nil
}
