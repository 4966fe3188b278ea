package store

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const listColumnMappings = `
SELECT id, import_type, field_name, column_names, is_required, display_order, updated_at
FROM import_column_mappings
WHERE import_type = $1
ORDER BY COALESCE(display_order, 999), field_name`

type ColumnMapping struct {
	ID           int64
	ImportType   string
	FieldName    string
	ColumnNames  string
	IsRequired   pgtype.Bool
	DisplayOrder pgtype.Int4
	UpdatedAt    pgtype.Timestamptz
}

func (q *Queries) ListColumnMappings(ctx context.Context, importType string) ([]ColumnMapping, error) {
	rows, err := q.db.Query(ctx, listColumnMappings, importType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ColumnMapping
	for rows.Next() {
		var i ColumnMapping
		if err := rows.Scan(
			&i.ID,
			&i.ImportType,
			&i.FieldName,
			&i.ColumnNames,
			&i.IsRequired,
			&i.DisplayOrder,
			&i.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const deleteColumnMappings = `DELETE FROM import_column_mappings WHERE import_type = $1`

func (q *Queries) DeleteColumnMappings(ctx context.Context, importType string) error {
	_, err := q.db.Exec(ctx, deleteColumnMappings, importType)
	return err
}

const insertColumnMapping = `
INSERT INTO import_column_mappings (import_type, field_name, column_names, is_required, display_order, updated_at)
VALUES ($1, $2, $3, $4, $5, now())`

type InsertColumnMappingParams struct {
	ImportType   string
	FieldName    string
	ColumnNames  string
	IsRequired   pgtype.Bool
	DisplayOrder pgtype.Int4
}

func (q *Queries) InsertColumnMapping(ctx context.Context, arg InsertColumnMappingParams) error {
	_, err := q.db.Exec(ctx, insertColumnMapping,
		arg.ImportType,
		arg.FieldName,
		arg.ColumnNames,
		arg.IsRequired,
		arg.DisplayOrder,
	)
	return err
}

const listProductCodes = `SELECT id, kod FROM baraanii_kod ORDER BY id`

type ProductCodeRow struct {
	ID  int64
	Kod string
}

func (q *Queries) ListProductCodes(ctx context.Context) ([]ProductCodeRow, error) {
	rows, err := q.db.Query(ctx, listProductCodes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ProductCodeRow
	for rows.Next() {
		var i ProductCodeRow
		if err := rows.Scan(&i.ID, &i.Kod); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// The no-op update makes RETURNING yield the id of an existing code too.
const upsertProductCode = `
INSERT INTO baraanii_kod (kod) VALUES ($1)
ON CONFLICT (kod) DO UPDATE SET kod = EXCLUDED.kod
RETURNING id`

func (q *Queries) UpsertProductCode(ctx context.Context, kod string) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx, upsertProductCode, kod).Scan(&id)
	return id, err
}

const insertOrder = `
INSERT INTO order_table (
    phone, baraanii_kod_id, price, comment, number,
    order_date, received_date, paid_date, feature, with_delivery,
    status, type, metadata, import_batch_id
) VALUES (
    $1, $2, $3, $4, $5,
    $6, $7, $8, $9, $10,
    $11, $12, $13::jsonb, $14
)`

type InsertOrderParams struct {
	Phone         pgtype.Text
	BaraaniiKodID int64
	Price         pgtype.Numeric
	Comment       pgtype.Text
	Number        pgtype.Int4
	OrderDate     pgtype.Date
	ReceivedDate  pgtype.Date
	PaidDate      pgtype.Date
	Feature       pgtype.Text
	WithDelivery  bool
	Status        int32
	Type          int32
	Metadata      []byte
	ImportBatchID pgtype.UUID
}

func (q *Queries) InsertOrder(ctx context.Context, arg InsertOrderParams) error {
	_, err := q.db.Exec(ctx, insertOrder,
		arg.Phone,
		arg.BaraaniiKodID,
		arg.Price,
		arg.Comment,
		arg.Number,
		arg.OrderDate,
		arg.ReceivedDate,
		arg.PaidDate,
		arg.Feature,
		arg.WithDelivery,
		arg.Status,
		arg.Type,
		string(arg.Metadata),
		arg.ImportBatchID,
	)
	return err
}

const createImportBatch = `
INSERT INTO import_batches (id, import_type, file_name, total_rows, created_at)
VALUES ($1, $2, $3, $4, COALESCE($5, now()))`

type CreateImportBatchParams struct {
	ID         pgtype.UUID
	ImportType string
	FileName   string
	TotalRows  int32
	CreatedAt  pgtype.Timestamptz
}

func (q *Queries) CreateImportBatch(ctx context.Context, arg CreateImportBatchParams) error {
	_, err := q.db.Exec(ctx, createImportBatch,
		arg.ID,
		arg.ImportType,
		arg.FileName,
		arg.TotalRows,
		arg.CreatedAt,
	)
	return err
}

const finalizeImportBatch = `
UPDATE import_batches
SET total_rows = $2, successful_rows = $3, failed_rows = $4
WHERE id = $1`

type FinalizeImportBatchParams struct {
	ID             pgtype.UUID
	TotalRows      int32
	SuccessfulRows int32
	FailedRows     int32
}

func (q *Queries) FinalizeImportBatch(ctx context.Context, arg FinalizeImportBatchParams) (int64, error) {
	tag, err := q.db.Exec(ctx, finalizeImportBatch,
		arg.ID,
		arg.TotalRows,
		arg.SuccessfulRows,
		arg.FailedRows,
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const importBatchColumns = `
SELECT ib.id, ib.import_type, ib.file_name, ib.total_rows, ib.successful_rows,
       ib.failed_rows, ib.created_at, COUNT(ot.id) AS imported_count
FROM import_batches ib
LEFT JOIN order_table ot ON ot.import_batch_id = ib.id`

const listImportBatches = importBatchColumns + `
WHERE ($1::text = '' OR ib.import_type = $1)
GROUP BY ib.id
ORDER BY ib.created_at DESC
LIMIT $2`

const getImportBatch = importBatchColumns + `
WHERE ib.id = $1
GROUP BY ib.id`

type ImportBatchRow struct {
	ID             pgtype.UUID
	ImportType     string
	FileName       string
	TotalRows      int32
	SuccessfulRows int32
	FailedRows     int32
	CreatedAt      pgtype.Timestamptz
	ImportedCount  int64
}

func scanImportBatch(row interface{ Scan(...any) error }) (ImportBatchRow, error) {
	var i ImportBatchRow
	err := row.Scan(
		&i.ID,
		&i.ImportType,
		&i.FileName,
		&i.TotalRows,
		&i.SuccessfulRows,
		&i.FailedRows,
		&i.CreatedAt,
		&i.ImportedCount,
	)
	return i, err
}

func (q *Queries) ListImportBatches(ctx context.Context, importType string, limit int32) ([]ImportBatchRow, error) {
	rows, err := q.db.Query(ctx, listImportBatches, importType, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ImportBatchRow
	for rows.Next() {
		i, err := scanImportBatch(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) GetImportBatch(ctx context.Context, id pgtype.UUID) (ImportBatchRow, error) {
	return scanImportBatch(q.db.QueryRow(ctx, getImportBatch, id))
}

const deleteOrdersByBatch = `DELETE FROM order_table WHERE import_batch_id = $1`

func (q *Queries) DeleteOrdersByBatch(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteOrdersByBatch, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const deleteImportBatch = `DELETE FROM import_batches WHERE id = $1`

func (q *Queries) DeleteImportBatch(ctx context.Context, id pgtype.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteImportBatch, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
