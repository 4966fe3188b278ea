package store

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/khosimport/internal/importer"
	"github.com/JonMunkholm/khosimport/migrations"
)

// openTestStore migrates the database named by TEST_DATABASE_URL and returns
// a store on it. Tests are skipped when the variable is unset.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", url)
	require.NoError(t, err)
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	require.NoError(t, goose.SetDialect("postgres"))
	require.NoError(t, goose.Up(db, "."))

	ctx := context.Background()
	pool, err := Connect(ctx, PoolConfig{URL: url, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE order_table, import_batches, import_column_mappings, baraanii_kod RESTART IDENTITY`)
	require.NoError(t, err)

	return NewStore(pool)
}

func TestStore_ImportAndRevert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	svc := importer.NewService(s, decoderFunc(func() []importer.Row {
		headers := []string{"Утас", "Код", "Үнэ", "Хүргэлттэй"}
		return []importer.Row{
			importer.NewRow(headers, []importer.Cell{"99009900", "X1", "150k", 7.0}),
			importer.NewRow(headers, []importer.Cell{"", "X1", "200", nil}),
			importer.NewRow(headers, []importer.Cell{"88112233", "x1 ", 0.0, 0.0}),
		}
	}), importer.Config{})

	res, err := svc.Import(ctx, importer.TypeLive, "orders.xlsx", nil)
	require.NoError(t, err)
	assert.Equal(t, importer.OutcomePartial, res.Outcome)
	assert.Equal(t, 2, res.Success)

	codes, err := s.ListProductCodes(ctx)
	require.NoError(t, err)
	assert.Len(t, codes, 1, "X1 and x1 share one catalog row")

	var price *float64
	var meta map[string]float64
	err = s.pool.QueryRow(ctx,
		`SELECT price::float8, metadata FROM order_table WHERE phone = $1`, "88112233",
	).Scan(&price, &meta)
	require.NoError(t, err)
	require.NotNil(t, price)
	assert.Equal(t, 0.0, *price)
	assert.Equal(t, map[string]float64{importer.MetaDeliveryCode: 0}, meta)

	batch, err := s.GetBatch(ctx, res.BatchID)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.TotalRows)
	assert.Equal(t, 2, batch.SuccessfulRows)
	assert.Equal(t, 1, batch.FailedRows)
	assert.Equal(t, 2, batch.ImportedCount)

	batches, err := s.ListBatches(ctx, importer.TypeOrder, 10)
	require.NoError(t, err)
	assert.Empty(t, batches)

	deleted, err := s.RevertBatch(ctx, res.BatchID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = s.GetBatch(ctx, res.BatchID)
	assert.ErrorIs(t, err, importer.ErrBatchNotFound)
	_, err = s.RevertBatch(ctx, res.BatchID)
	assert.ErrorIs(t, err, importer.ErrBatchNotFound)
}

func TestStore_ReplaceMappings(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.ReplaceMappings(ctx, importer.TypeOrder, []importer.MappingInput{
		{FieldName: importer.FieldPhone, ColumnNames: []string{"Mobile"}, IsRequired: true, DisplayOrder: intPtr(2)},
		{FieldName: importer.FieldCode, ColumnNames: []string{"SKU", "Код"}, IsRequired: true, DisplayOrder: intPtr(1)},
	}))
	require.NoError(t, s.ReplaceMappings(ctx, importer.TypeOrder, []importer.MappingInput{
		{FieldName: importer.FieldCode, ColumnNames: []string{"SKU"}},
	}))

	rows, err := s.ListMappings(ctx, importer.TypeOrder)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, importer.FieldCode, rows[0].FieldName)
	assert.JSONEq(t, `["SKU"]`, rows[0].ColumnNames)
	require.NotNil(t, rows[0].IsRequired)
	assert.False(t, *rows[0].IsRequired)
	assert.Nil(t, rows[0].DisplayOrder)
	assert.WithinDuration(t, time.Now(), rows[0].UpdatedAt, time.Minute)

	live, err := s.ListMappings(ctx, importer.TypeLive)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestStore_FinalizeUnknownBatch(t *testing.T) {
	s := openTestStore(t)

	err := s.FinalizeBatch(context.Background(), uuid.New(), 1, 1, 0)
	assert.ErrorIs(t, err, importer.ErrBatchNotFound)
}

type decoderFunc func() []importer.Row

func (f decoderFunc) Decode(string, []byte) ([]importer.Row, error) {
	return f(), nil
}

func intPtr(i int) *int { return &i }
