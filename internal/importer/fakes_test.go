package importer

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore is an in-memory Store. Writes made inside WithinTx are staged and
// only applied when the callback returns nil.
type memStore struct {
	mu sync.Mutex

	mappings    map[ImportType][]StoredMapping
	mappingsErr error
	codesErr    error

	codes     map[string]int64 // exact code -> id
	nextID    int64
	upserts   []string
	orders    []OrderRecord
	insertErr func(OrderRecord) error

	batches   map[uuid.UUID]Batch
	finalized map[uuid.UUID][3]int
}

func newMemStore() *memStore {
	return &memStore{
		mappings:  make(map[ImportType][]StoredMapping),
		codes:     make(map[string]int64),
		nextID:    100,
		batches:   make(map[uuid.UUID]Batch),
		finalized: make(map[uuid.UUID][3]int),
	}
}

func (m *memStore) addMapping(t ImportType, field, columns string, required *bool, order *int) {
	m.mappings[t] = append(m.mappings[t], StoredMapping{
		ImportType:   string(t),
		FieldName:    field,
		ColumnNames:  columns,
		IsRequired:   required,
		DisplayOrder: order,
	})
}

func (m *memStore) ListMappings(_ context.Context, t ImportType) ([]StoredMapping, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.mappingsErr != nil {
		return nil, m.mappingsErr
	}
	return append([]StoredMapping(nil), m.mappings[t]...), nil
}

func (m *memStore) ReplaceMappings(_ context.Context, t ImportType, in []MappingInput) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]StoredMapping, 0, len(in))
	for _, mi := range in {
		b, err := json.Marshal(mi.ColumnNames)
		if err != nil {
			return err
		}
		req := mi.IsRequired
		rows = append(rows, StoredMapping{
			ImportType:   string(t),
			FieldName:    mi.FieldName,
			ColumnNames:  string(b),
			IsRequired:   &req,
			DisplayOrder: mi.DisplayOrder,
		})
	}
	m.mappings[t] = rows
	return nil
}

func (m *memStore) ListProductCodes(context.Context) ([]ProductCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codesErr != nil {
		return nil, m.codesErr
	}
	out := make([]ProductCode, 0, len(m.codes))
	for code, id := range m.codes {
		out = append(out, ProductCode{ID: id, Code: code})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) WithinTx(_ context.Context, fn func(RowStore) error) error {
	tx := &memTx{store: m, codes: make(map[string]int64)}
	if err := fn(tx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for code, id := range tx.codes {
		m.codes[code] = id
	}
	m.orders = append(m.orders, tx.orders...)
	return nil
}

func (m *memStore) CreateBatch(_ context.Context, b Batch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches[b.ID] = b
	return nil
}

func (m *memStore) FinalizeBatch(_ context.Context, id uuid.UUID, total, success, failed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return ErrBatchNotFound
	}
	b.TotalRows, b.SuccessfulRows, b.FailedRows = total, success, failed
	m.batches[id] = b
	m.finalized[id] = [3]int{total, success, failed}
	return nil
}

func (m *memStore) ListBatches(_ context.Context, t ImportType, limit int) ([]Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Batch
	for _, b := range m.batches {
		if t == "" || b.ImportType == t {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) GetBatch(_ context.Context, id uuid.UUID) (Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.batches[id]
	if !ok {
		return Batch{}, ErrBatchNotFound
	}
	return b, nil
}

func (m *memStore) RevertBatch(_ context.Context, id uuid.UUID) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.batches[id]; !ok {
		return 0, ErrBatchNotFound
	}
	kept := m.orders[:0]
	var n int64
	for _, o := range m.orders {
		if o.BatchID == id {
			n++
			continue
		}
		kept = append(kept, o)
	}
	m.orders = kept
	delete(m.batches, id)
	return n, nil
}

func (m *memStore) upsertCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.upserts)
}

type memTx struct {
	store  *memStore
	codes  map[string]int64
	orders []OrderRecord
}

func (tx *memTx) UpsertProductCode(_ context.Context, code string) (int64, error) {
	s := tx.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, code)
	if id, ok := s.codes[code]; ok {
		return id, nil
	}
	s.nextID++
	tx.codes[code] = s.nextID
	return s.nextID, nil
}

func (tx *memTx) InsertOrder(_ context.Context, rec OrderRecord) error {
	if f := tx.store.insertErr; f != nil {
		if err := f(rec); err != nil {
			return err
		}
	}
	tx.orders = append(tx.orders, rec)
	return nil
}

// stubDecoder returns fixed rows or a fixed error.
type stubDecoder struct {
	rows []Row
	err  error
}

func (d stubDecoder) Decode(string, []byte) ([]Row, error) {
	return d.rows, d.err
}

// countingRecorder tallies pipeline events.
type countingRecorder struct {
	mu       sync.Mutex
	ok       int
	failed   int
	upserted int
	outcomes []Outcome
}

func (r *countingRecorder) RowProcessed(_ ImportType, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ok {
		r.ok++
	} else {
		r.failed++
	}
}

func (r *countingRecorder) ProductCodeUpserted(ImportType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserted++
}

func (r *countingRecorder) BatchFinished(_ ImportType, o Outcome, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, o)
}

var errBoom = errors.New("boom")

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

// sheet builds rows from a header line and positional values.
func sheet(headers []string, values ...[]Cell) []Row {
	rows := make([]Row, len(values))
	for i, v := range values {
		rows[i] = NewRow(headers, v)
	}
	return rows
}
