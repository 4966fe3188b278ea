package importer

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportType identifies which order pipeline a spreadsheet feeds.
type ImportType string

const (
	TypeLive  ImportType = "live"
	TypeOrder ImportType = "order"
)

// ErrUnknownImportType is returned for import types without a schema.
var ErrUnknownImportType = errors.New("unknown import type")

// ParseImportType validates a user-supplied import type.
func ParseImportType(s string) (ImportType, error) {
	switch t := ImportType(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeLive, TypeOrder:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownImportType, s)
	}
}

// Code is the type discriminator stored on each order record.
func (t ImportType) Code() int32 {
	switch t {
	case TypeLive:
		return 1
	case TypeOrder:
		return 2
	default:
		return 0
	}
}

// StatusNew is the status of a freshly imported order ("шинэ үүссэн").
const StatusNew int32 = 1

// Canonical field names shared by every import type.
const (
	FieldPhone        = "phone"
	FieldCode         = "kod"
	FieldPrice        = "price"
	FieldFeature      = "feature"
	FieldComment      = "comment"
	FieldNumber       = "number"
	FieldOrderDate    = "order_date"
	FieldReceivedDate = "received_date"
	FieldPaidDate     = "paid_date"
	FieldWithDelivery = "with_delivery"
	FieldTally        = "toollogo"
)

// Metadata keys written to OrderRecord.Metadata.
const (
	MetaDeliveryCode = "with_delivery_numeric"
	MetaTally        = "toollogo"
)

// Cell is a raw spreadsheet value: nil, string, float64, bool, or time.Time.
type Cell = any

// Row is one spreadsheet data row keyed by its header strings.
// Header order is preserved for matching and diagnostics.
type Row struct {
	headers []string
	cells   map[string]Cell
}

// NewRow pairs headers with values by position. Missing values are nil.
func NewRow(headers []string, values []Cell) Row {
	r := Row{
		headers: make([]string, 0, len(headers)),
		cells:   make(map[string]Cell, len(headers)),
	}
	for i, h := range headers {
		if _, dup := r.cells[h]; dup {
			continue
		}
		var v Cell
		if i < len(values) {
			v = values[i]
		}
		r.headers = append(r.headers, h)
		r.cells[h] = v
	}
	return r
}

// RowFromMap builds a row from a header map. Headers are sorted so that
// matching is deterministic.
func RowFromMap(m map[string]Cell) Row {
	headers := make([]string, 0, len(m))
	for h := range m {
		headers = append(headers, h)
	}
	sort.Strings(headers)

	values := make([]Cell, len(headers))
	for i, h := range headers {
		values[i] = m[h]
	}
	return NewRow(headers, values)
}

// Headers returns the row's header keys in sheet order.
func (r Row) Headers() []string {
	return r.headers
}

// Get returns the cell stored under the exact header key.
func (r Row) Get(header string) (Cell, bool) {
	v, ok := r.cells[header]
	return v, ok
}

// FieldMapping is the resolved alias list for one canonical field.
type FieldMapping struct {
	Field        string   `json:"field"`
	Aliases      []string `json:"aliases"`
	Required     bool     `json:"required"`
	DisplayOrder int      `json:"displayOrder"`
}

// StoredMapping is one persisted mapping row as read from the mapping store.
// ColumnNames holds a JSON-encoded array of header aliases.
type StoredMapping struct {
	ID           int64     `json:"id"`
	ImportType   string    `json:"importType"`
	FieldName    string    `json:"fieldName"`
	ColumnNames  string    `json:"columnNames"`
	IsRequired   *bool     `json:"isRequired"`
	DisplayOrder *int      `json:"displayOrder"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// MappingView is a persisted mapping with its aliases decoded.
type MappingView struct {
	FieldName    string   `json:"fieldName"`
	ColumnNames  []string `json:"columnNames"`
	IsRequired   bool     `json:"isRequired"`
	DisplayOrder *int     `json:"displayOrder"`
}

// MappingInput is one field of a mapping replacement request.
type MappingInput struct {
	FieldName    string   `json:"fieldName"`
	ColumnNames  []string `json:"columnNames"`
	IsRequired   bool     `json:"isRequired"`
	DisplayOrder *int     `json:"displayOrder"`
}

// ProductCode is a row of the product code catalog (baraanii_kod).
type ProductCode struct {
	ID   int64
	Code string
}

// OrderRecord is the coerced, validated record handed to the record store.
// Dates are plain YYYY-MM-DD strings.
type OrderRecord struct {
	Phone         string
	ProductCode   string
	ProductCodeID int64
	Price         *float64
	Feature       *string
	Comment       *string
	Quantity      *int
	OrderDate     *string
	ReceivedDate  *string
	PaidDate      *string
	WithDelivery  bool
	Status        int32
	Type          int32
	Metadata      map[string]float64
	BatchID       uuid.UUID
}

// Batch is the audit record of one import run.
type Batch struct {
	ID             uuid.UUID  `json:"id"`
	ImportType     ImportType `json:"importType"`
	FileName       string     `json:"fileName"`
	TotalRows      int        `json:"totalRows"`
	SuccessfulRows int        `json:"successfulRows"`
	FailedRows     int        `json:"failedRows"`
	ImportedCount  int        `json:"importedCount"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// RevertResult reports what reverting a batch removed.
type RevertResult struct {
	Batch         Batch `json:"batch"`
	DeletedOrders int64 `json:"deletedOrders"`
}

// Sentinel errors callers map to HTTP statuses.
var (
	ErrBatchNotFound  = errors.New("import batch not found")
	ErrDecode         = errors.New("decode spreadsheet")
	ErrInvalidMapping = errors.New("invalid mapping")
)

// MappingStore reads persisted column mappings.
type MappingStore interface {
	ListMappings(ctx context.Context, importType ImportType) ([]StoredMapping, error)
}

// MappingWriter replaces the persisted column mappings of one import type.
type MappingWriter interface {
	ReplaceMappings(ctx context.Context, importType ImportType, mappings []MappingInput) error
}

// ProductCodeStore reads the product code catalog. Upserts go through RowStore.
type ProductCodeStore interface {
	ListProductCodes(ctx context.Context) ([]ProductCode, error)
}

// RowStore is the set of writes performed for one row inside a transaction.
type RowStore interface {
	// UpsertProductCode inserts the code or returns the existing id on conflict.
	UpsertProductCode(ctx context.Context, code string) (int64, error)
	InsertOrder(ctx context.Context, rec OrderRecord) error
}

// UnitOfWork runs fn inside a transaction that commits when fn returns nil.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(RowStore) error) error
}

// BatchStore persists import batch audit records.
type BatchStore interface {
	CreateBatch(ctx context.Context, b Batch) error
	FinalizeBatch(ctx context.Context, id uuid.UUID, total, success, failed int) error
	ListBatches(ctx context.Context, importType ImportType, limit int) ([]Batch, error)
	// GetBatch and RevertBatch return ErrBatchNotFound for unknown ids.
	GetBatch(ctx context.Context, id uuid.UUID) (Batch, error)
	RevertBatch(ctx context.Context, id uuid.UUID) (int64, error)
}

// Decoder turns an uploaded spreadsheet into rows.
type Decoder interface {
	Decode(fileName string, data []byte) ([]Row, error)
}
