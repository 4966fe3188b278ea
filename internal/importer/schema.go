package importer

import (
	"fmt"
	"sort"
	"sync"
)

// AssignFunc stores a field's coerced value on the record.
type AssignFunc func(rec *OrderRecord, raw Cell)

// FieldSpec describes one canonical field of an import type.
type FieldSpec struct {
	Name     string     // Canonical field name, e.g. "phone"
	Required bool       // Default required flag when no persisted mapping overrides it
	Aliases  []string   // Built-in header spellings
	Assign   AssignFunc // Coerces the raw cell onto the record
}

// Schema lists the canonical fields an import type understands.
type Schema struct {
	Type   ImportType
	Fields []FieldSpec
}

// Field looks up a field by canonical name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

var (
	schemas   = make(map[ImportType]Schema)
	schemasMu sync.RWMutex
)

// RegisterSchema adds an import type schema.
// Panics if the type is already registered.
func RegisterSchema(s Schema) {
	schemasMu.Lock()
	defer schemasMu.Unlock()

	if _, exists := schemas[s.Type]; exists {
		panic(fmt.Sprintf("import schema already registered: %s", s.Type))
	}
	schemas[s.Type] = s
}

// SchemaFor returns the schema of an import type.
func SchemaFor(t ImportType) (Schema, bool) {
	schemasMu.RLock()
	defer schemasMu.RUnlock()

	s, ok := schemas[t]
	return s, ok
}

// Types returns every registered import type, sorted.
func Types() []ImportType {
	schemasMu.RLock()
	defer schemasMu.RUnlock()

	out := make([]ImportType, 0, len(schemas))
	for t := range schemas {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
