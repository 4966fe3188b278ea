// Package store persists import data in PostgreSQL through pgx.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

// Store implements importer.Store on a connection pool.
type Store struct {
	pool *pgxpool.Pool
	q    *Queries
}

var _ importer.Store = (*Store)(nil)

// NewStore wraps a pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, q: New(pool)}
}

// PoolConfig tunes the connection pool opened by Connect.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens and pings a pool.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) ListMappings(ctx context.Context, t importer.ImportType) ([]importer.StoredMapping, error) {
	rows, err := s.q.ListColumnMappings(ctx, string(t))
	if err != nil {
		return nil, fmt.Errorf("list column mappings: %w", err)
	}
	out := make([]importer.StoredMapping, len(rows))
	for i, r := range rows {
		out[i] = importer.StoredMapping{
			ID:           r.ID,
			ImportType:   r.ImportType,
			FieldName:    r.FieldName,
			ColumnNames:  r.ColumnNames,
			IsRequired:   fromPgBool(r.IsRequired),
			DisplayOrder: fromPgInt4(r.DisplayOrder),
			UpdatedAt:    fromPgTimestamptz(r.UpdatedAt),
		}
	}
	return out, nil
}

// ReplaceMappings deletes and re-inserts every mapping of a type in one
// transaction.
func (s *Store) ReplaceMappings(ctx context.Context, t importer.ImportType, in []importer.MappingInput) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		q := s.q.WithTx(tx)
		if err := q.DeleteColumnMappings(ctx, string(t)); err != nil {
			return fmt.Errorf("delete column mappings: %w", err)
		}
		for _, m := range in {
			names, err := json.Marshal(m.ColumnNames)
			if err != nil {
				return fmt.Errorf("encode column names for %s: %w", m.FieldName, err)
			}
			required := m.IsRequired
			if err := q.InsertColumnMapping(ctx, InsertColumnMappingParams{
				ImportType:   string(t),
				FieldName:    m.FieldName,
				ColumnNames:  string(names),
				IsRequired:   toPgBool(&required),
				DisplayOrder: toPgInt4(m.DisplayOrder),
			}); err != nil {
				return fmt.Errorf("insert column mapping %s: %w", m.FieldName, err)
			}
		}
		return nil
	})
}

func (s *Store) ListProductCodes(ctx context.Context) ([]importer.ProductCode, error) {
	rows, err := s.q.ListProductCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("list product codes: %w", err)
	}
	out := make([]importer.ProductCode, len(rows))
	for i, r := range rows {
		out[i] = importer.ProductCode{ID: r.ID, Code: r.Kod}
	}
	return out, nil
}

// WithinTx runs fn in a transaction that commits when fn returns nil.
func (s *Store) WithinTx(ctx context.Context, fn func(importer.RowStore) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&txStore{q: s.q.WithTx(tx)})
	})
}

// txStore performs the per-row writes inside a transaction.
type txStore struct {
	q *Queries
}

func (t *txStore) UpsertProductCode(ctx context.Context, code string) (int64, error) {
	return t.q.UpsertProductCode(ctx, code)
}

func (t *txStore) InsertOrder(ctx context.Context, rec importer.OrderRecord) error {
	metadata := rec.Metadata
	if metadata == nil {
		metadata = map[string]float64{}
	}
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return t.q.InsertOrder(ctx, InsertOrderParams{
		Phone:         toPgTextValue(rec.Phone),
		BaraaniiKodID: rec.ProductCodeID,
		Price:         toPgNumeric(rec.Price),
		Comment:       toPgText(rec.Comment),
		Number:        toPgInt4(rec.Quantity),
		OrderDate:     toPgDate(rec.OrderDate),
		ReceivedDate:  toPgDate(rec.ReceivedDate),
		PaidDate:      toPgDate(rec.PaidDate),
		Feature:       toPgText(rec.Feature),
		WithDelivery:  rec.WithDelivery,
		Status:        rec.Status,
		Type:          rec.Type,
		Metadata:      raw,
		ImportBatchID: toPgUUID(rec.BatchID),
	})
}

func (s *Store) CreateBatch(ctx context.Context, b importer.Batch) error {
	err := s.q.CreateImportBatch(ctx, CreateImportBatchParams{
		ID:         toPgUUID(b.ID),
		ImportType: string(b.ImportType),
		FileName:   b.FileName,
		TotalRows:  int32(b.TotalRows),
		CreatedAt:  pgtype.Timestamptz{Time: b.CreatedAt, Valid: !b.CreatedAt.IsZero()},
	})
	if err != nil {
		return fmt.Errorf("create import batch: %w", err)
	}
	return nil
}

func (s *Store) FinalizeBatch(ctx context.Context, id uuid.UUID, total, success, failed int) error {
	n, err := s.q.FinalizeImportBatch(ctx, FinalizeImportBatchParams{
		ID:             toPgUUID(id),
		TotalRows:      int32(total),
		SuccessfulRows: int32(success),
		FailedRows:     int32(failed),
	})
	if err != nil {
		return fmt.Errorf("finalize import batch: %w", err)
	}
	if n == 0 {
		return importer.ErrBatchNotFound
	}
	return nil
}

func (s *Store) ListBatches(ctx context.Context, t importer.ImportType, limit int) ([]importer.Batch, error) {
	rows, err := s.q.ListImportBatches(ctx, string(t), int32(limit))
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	out := make([]importer.Batch, len(rows))
	for i, r := range rows {
		out[i] = toBatch(r)
	}
	return out, nil
}

func (s *Store) GetBatch(ctx context.Context, id uuid.UUID) (importer.Batch, error) {
	row, err := s.q.GetImportBatch(ctx, toPgUUID(id))
	if errors.Is(err, pgx.ErrNoRows) {
		return importer.Batch{}, importer.ErrBatchNotFound
	}
	if err != nil {
		return importer.Batch{}, fmt.Errorf("get import batch: %w", err)
	}
	return toBatch(row), nil
}

// RevertBatch deletes a batch's orders and then the batch in one transaction.
func (s *Store) RevertBatch(ctx context.Context, id uuid.UUID) (int64, error) {
	var deleted int64
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		q := s.q.WithTx(tx)
		n, err := q.DeleteOrdersByBatch(ctx, toPgUUID(id))
		if err != nil {
			return fmt.Errorf("delete batch orders: %w", err)
		}
		removed, err := q.DeleteImportBatch(ctx, toPgUUID(id))
		if err != nil {
			return fmt.Errorf("delete import batch: %w", err)
		}
		if removed == 0 {
			return importer.ErrBatchNotFound
		}
		deleted = n
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func toBatch(r ImportBatchRow) importer.Batch {
	return importer.Batch{
		ID:             fromPgUUID(r.ID),
		ImportType:     importer.ImportType(r.ImportType),
		FileName:       r.FileName,
		TotalRows:      int(r.TotalRows),
		SuccessfulRows: int(r.SuccessfulRows),
		FailedRows:     int(r.FailedRows),
		ImportedCount:  int(r.ImportedCount),
		CreatedAt:      fromPgTimestamptz(r.CreatedAt),
	}
}
