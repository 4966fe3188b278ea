package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/JonMunkholm/khosimport/internal/logging"
)

// unorderedDisplay is the display order of persisted rows that have none.
const unorderedDisplay = 999

// LoadMappings resolves the header aliases of every field for an import type.
//
// Persisted rows are merged into the schema defaults field by field: aliases
// are the union of persisted and default spellings (persisted first), and a
// persisted required flag wins over the default. Malformed rows and store
// failures are logged and skipped; the worst case is the defaults alone.
func LoadMappings(ctx context.Context, store MappingStore, t ImportType) map[string]FieldMapping {
	logger := logging.WithFields(ctx, "import_type", string(t))

	var rows []StoredMapping
	if store != nil {
		var err error
		rows, err = store.ListMappings(ctx, t)
		if err != nil {
			logger.Warn("load column mappings failed, using defaults", "error", err)
			rows = nil
		}
	}

	persisted := make(map[string]StoredMapping, len(rows))
	aliases := make(map[string][]string, len(rows))
	for _, r := range rows {
		list, err := decodeAliases(r.ColumnNames)
		if err != nil {
			logger.Warn("skipping invalid column mapping", "field", r.FieldName, "error", err)
			continue
		}
		persisted[r.FieldName] = r
		aliases[r.FieldName] = list
	}

	out := make(map[string]FieldMapping)

	schema, _ := SchemaFor(t)
	for i, fs := range schema.Fields {
		fm := FieldMapping{
			Field:        fs.Name,
			Aliases:      mergeAliases(nil, fs.Aliases),
			Required:     fs.Required,
			DisplayOrder: i + 1,
		}
		if p, ok := persisted[fs.Name]; ok {
			fm.Aliases = mergeAliases(aliases[fs.Name], fs.Aliases)
			if p.IsRequired != nil {
				fm.Required = *p.IsRequired
			}
			if p.DisplayOrder != nil {
				fm.DisplayOrder = *p.DisplayOrder
			}
		}
		if len(fm.Aliases) > 0 {
			out[fs.Name] = fm
		}
	}

	// Persisted fields unknown to the schema are kept so callers can show them.
	for name, p := range persisted {
		if _, ok := out[name]; ok {
			continue
		}
		list := mergeAliases(aliases[name], nil)
		if len(list) == 0 {
			continue
		}
		fm := FieldMapping{Field: name, Aliases: list, DisplayOrder: unorderedDisplay}
		if p.IsRequired != nil {
			fm.Required = *p.IsRequired
		}
		if p.DisplayOrder != nil {
			fm.DisplayOrder = *p.DisplayOrder
		}
		out[name] = fm
	}

	return out
}

// SortedMappings orders mappings by display order, then field name.
func SortedMappings(m map[string]FieldMapping) []FieldMapping {
	out := make([]FieldMapping, 0, len(m))
	for _, fm := range m {
		out = append(out, fm)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].Field < out[j].Field
	})
	return out
}

// ValidateMappings checks a replacement request before it is persisted.
func ValidateMappings(t ImportType, in []MappingInput) error {
	if _, ok := SchemaFor(t); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownImportType, t)
	}
	seen := make(map[string]bool, len(in))
	for _, m := range in {
		name := strings.TrimSpace(m.FieldName)
		if name == "" {
			return fmt.Errorf("%w: field name is empty", ErrInvalidMapping)
		}
		if seen[name] {
			return fmt.Errorf("%w: field %q listed twice", ErrInvalidMapping, name)
		}
		seen[name] = true
		if len(mergeAliases(m.ColumnNames, nil)) == 0 {
			return fmt.Errorf("%w: field %q has no column names", ErrInvalidMapping, name)
		}
	}
	return nil
}

// decodeAliases accepts only a JSON array whose items are all strings.
func decodeAliases(raw string) ([]string, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("decode column names: %w", err)
	}
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("column names: expected array, got %T", v)
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("column names[%d]: expected string, got %T", i, item)
		}
		out = append(out, s)
	}
	return out, nil
}

// mergeAliases concatenates lists, dropping blanks and exact duplicates.
func mergeAliases(first, second []string) []string {
	seen := make(map[string]bool, len(first)+len(second))
	out := make([]string, 0, len(first)+len(second))
	for _, list := range [][]string{first, second} {
		for _, a := range list {
			if strings.TrimSpace(a) == "" || seen[a] {
				continue
			}
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}
