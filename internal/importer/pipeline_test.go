package importer

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPipeline(t *testing.T, store *memStore, typ ImportType, rows []Row) (BatchResult, *countingRecorder) {
	t.Helper()
	rec := &countingRecorder{}
	p := NewPipeline(store, store, store, rec)
	res, err := p.Run(context.Background(), typ, uuid.New(), rows)
	require.NoError(t, err)
	return res, rec
}

func TestPipeline_MixedSheet(t *testing.T) {
	store := newMemStore()
	rows := sheet([]string{"Утас", "Код", "Үнэ"},
		[]Cell{"99009900", "X1", "150k"},
		[]Cell{"", "X1", "200"},
		[]Cell{"88112233", "X2", 0.0},
	)

	res, rec := runPipeline(t, store, TypeLive, rows)

	assert.Equal(t, OutcomePartial, res.Outcome)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 3")
	assert.Contains(t, res.Errors[0], "phone number is required")
	assert.Contains(t, res.Errors[0], "found columns: Утас, Код, Үнэ")

	require.Len(t, store.orders, 2)
	first, second := store.orders[0], store.orders[1]
	require.NotNil(t, first.Price)
	assert.Equal(t, 150000.0, *first.Price)
	require.NotNil(t, second.Price, "numeric zero price must be stored as 0")
	assert.Equal(t, 0.0, *second.Price)

	assert.Equal(t, 2, rec.ok)
	assert.Equal(t, 1, rec.failed)
	assert.Equal(t, 2, rec.upserted)
	assert.Equal(t, []Outcome{OutcomePartial}, rec.outcomes)
}

func TestPipeline_FirstRowIsLineTwo(t *testing.T) {
	store := newMemStore()
	rows := sheet([]string{"Утас", "Код"}, []Cell{"99009900", ""})

	res, _ := runPipeline(t, store, TypeLive, rows)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "Row 2: product code is required")
}

func TestPipeline_CodeCacheNormalizes(t *testing.T) {
	store := newMemStore()
	rows := sheet([]string{"Утас", "Код"},
		[]Cell{"99009900", "ABC "},
		[]Cell{"88112233", "abc"},
	)

	res, _ := runPipeline(t, store, TypeLive, rows)

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, store.upsertCount())
	require.Len(t, store.orders, 2)
	assert.Equal(t, store.orders[0].ProductCodeID, store.orders[1].ProductCodeID)
}

func TestPipeline_SeededCodesSkipUpsert(t *testing.T) {
	store := newMemStore()
	store.codes["X1"] = 7

	res, rec := runPipeline(t, store, TypeLive, sheet([]string{"Утас", "Код"}, []Cell{"99009900", "x1"}))

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Zero(t, store.upsertCount())
	assert.Zero(t, rec.upserted)
	require.Len(t, store.orders, 1)
	assert.Equal(t, int64(7), store.orders[0].ProductCodeID)
}

func TestPipeline_SeedFailureStillImports(t *testing.T) {
	store := newMemStore()
	store.codesErr = errBoom

	res, _ := runPipeline(t, store, TypeLive, sheet([]string{"Утас", "Код"}, []Cell{"99009900", "X1"}))

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, 1, store.upsertCount())
}

func TestPipeline_RowFailureDoesNotRollBackOthers(t *testing.T) {
	store := newMemStore()
	store.insertErr = func(rec OrderRecord) error {
		if rec.Phone == "88112233" {
			return errBoom
		}
		return nil
	}
	rows := sheet([]string{"Утас", "Код"},
		[]Cell{"99009900", "X1"},
		[]Cell{"88112233", "X2"},
		[]Cell{"99112233", "X3"},
	)

	res, _ := runPipeline(t, store, TypeLive, rows)

	assert.Equal(t, 2, res.Success)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "Row 3: insert order: boom", res.Errors[0])
	require.Len(t, store.orders, 2)
	assert.NotContains(t, store.codes, "X2", "upsert of the failed row is rolled back")
}

func TestPipeline_RolledBackCodeIsNotCached(t *testing.T) {
	store := newMemStore()
	calls := 0
	store.insertErr = func(OrderRecord) error {
		calls++
		if calls == 1 {
			return errBoom
		}
		return nil
	}
	rows := sheet([]string{"Утас", "Код"},
		[]Cell{"99009900", "NEW"},
		[]Cell{"88112233", "NEW"},
	)

	res, _ := runPipeline(t, store, TypeLive, rows)

	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 2, store.upsertCount(), "second row must upsert again")
	require.Len(t, store.orders, 1)
	assert.Equal(t, store.codes["NEW"], store.orders[0].ProductCodeID)
}

func TestPipeline_CodeRequiredEvenWhenNotMapped(t *testing.T) {
	store := newMemStore()
	store.addMapping(TypeLive, FieldCode, `["Код"]`, boolPtr(false), nil)

	res, _ := runPipeline(t, store, TypeLive, sheet([]string{"Утас", "Код"}, []Cell{"99009900", ""}))

	assert.Equal(t, OutcomeFailed, res.Outcome)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "product code is missing")
}

func TestPipeline_NeitherPhoneNorCode(t *testing.T) {
	store := newMemStore()
	store.addMapping(TypeLive, FieldPhone, `["Утас"]`, boolPtr(false), nil)
	store.addMapping(TypeLive, FieldCode, `["Код"]`, boolPtr(false), nil)

	res, _ := runPipeline(t, store, TypeLive, sheet([]string{"Утас", "Код", "Үнэ"}, []Cell{"", "", 100.0}))

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "neither a phone number nor a product code")
}

func TestPipeline_OptionalPhone(t *testing.T) {
	store := newMemStore()
	store.addMapping(TypeLive, FieldPhone, `["Утас"]`, boolPtr(false), nil)

	res, _ := runPipeline(t, store, TypeLive, sheet([]string{"Утас", "Код"}, []Cell{"", "X1"}))

	assert.Equal(t, OutcomeSuccess, res.Outcome)
	require.Len(t, store.orders, 1)
	assert.Empty(t, store.orders[0].Phone)
}

func TestPipeline_RecordFields(t *testing.T) {
	store := newMemStore()
	headers := []string{"Утас", "Код", "Үнэ", "Тайлбар", "Нэмэлт тайлбар", "Тоо",
		"Захиалгын огноо", "Ирж авсан", "Гүйлгээний огноо", "Хүргэлттэй", "Тооллого"}
	rows := sheet(headers,
		[]Cell{99009900.0, "X1", "1,500", "улаан", "хурдан", 2.0, "23-Nov-24", 45000.0, "2024-01-05", 7.0, 3.0},
		[]Cell{"88112233", "X2", nil, nil, nil, nil, nil, nil, nil, 0.0, nil},
	)

	batchID := uuid.New()
	p := NewPipeline(store, store, store, nil)
	res, err := p.Run(context.Background(), TypeOrder, batchID, rows)
	require.NoError(t, err)
	require.Equal(t, OutcomeSuccess, res.Outcome)
	assert.Equal(t, batchID, res.BatchID)
	assert.Equal(t, TypeOrder, res.Type)

	require.Len(t, store.orders, 2)
	full := store.orders[0]
	assert.Equal(t, "99009900", full.Phone)
	assert.Equal(t, "X1", full.ProductCode)
	assert.Equal(t, ptr(1500.0), full.Price)
	assert.Equal(t, ptr("улаан"), full.Feature)
	assert.Equal(t, ptr("хурдан"), full.Comment)
	assert.Equal(t, intPtr(2), full.Quantity)
	assert.Equal(t, ptr("2024-11-23"), full.OrderDate)
	assert.Equal(t, ptr("2023-03-15"), full.ReceivedDate)
	assert.Equal(t, ptr("2024-01-05"), full.PaidDate)
	assert.True(t, full.WithDelivery)
	assert.Equal(t, map[string]float64{MetaDeliveryCode: 7, MetaTally: 3}, full.Metadata)
	assert.Equal(t, StatusNew, full.Status)
	assert.Equal(t, int32(2), full.Type)
	assert.Equal(t, batchID, full.BatchID)

	sparse := store.orders[1]
	assert.Nil(t, sparse.Price)
	assert.Nil(t, sparse.Quantity)
	assert.Nil(t, sparse.OrderDate)
	assert.False(t, sparse.WithDelivery)
	assert.Equal(t, map[string]float64{MetaDeliveryCode: 0}, sparse.Metadata)
}

func TestPipeline_LiveTypeCode(t *testing.T) {
	store := newMemStore()

	_, _ = runPipeline(t, store, TypeLive, sheet([]string{"Утас", "Код", "Тооллого"}, []Cell{"99009900", "X1", 4.0}))

	require.Len(t, store.orders, 1)
	assert.Equal(t, int32(1), store.orders[0].Type)
	assert.NotContains(t, store.orders[0].Metadata, MetaTally, "live sheets have no tally column")
}

func TestPipeline_Empty(t *testing.T) {
	store := newMemStore()

	res, rec := runPipeline(t, store, TypeLive, nil)

	assert.Equal(t, OutcomeEmpty, res.Outcome)
	assert.Zero(t, res.Total)
	assert.NotNil(t, res.Errors)
	assert.Equal(t, []Outcome{OutcomeEmpty}, rec.outcomes)
}

func TestPipeline_AllFailedDistinctFromEmpty(t *testing.T) {
	store := newMemStore()
	rows := sheet([]string{"Other"}, []Cell{"x"}, []Cell{"y"})

	failed, _ := runPipeline(t, store, TypeLive, rows)
	empty, _ := runPipeline(t, store, TypeLive, nil)

	assert.Equal(t, OutcomeFailed, failed.Outcome)
	assert.Equal(t, 2, failed.Failed)
	assert.NotEqual(t, failed.Message(), empty.Message())
	assert.NotEqual(t, failed.Headline(), empty.Headline())
}

func TestPipeline_ErrorsCapped(t *testing.T) {
	store := newMemStore()
	values := make([][]Cell, 60)
	for i := range values {
		values[i] = []Cell{"", fmt.Sprintf("C%d", i)}
	}

	res, _ := runPipeline(t, store, TypeLive, sheet([]string{"Утас", "Код"}, values...))

	assert.Equal(t, 60, res.Failed)
	assert.Len(t, res.Errors, MaxReportedErrors)
	assert.Contains(t, res.Errors[0], "Row 2")
	assert.Contains(t, res.Errors[MaxReportedErrors-1], fmt.Sprintf("Row %d", MaxReportedErrors+1))
}

func TestPipeline_UnknownType(t *testing.T) {
	p := NewPipeline(newMemStore(), nil, newMemStore(), nil)

	_, err := p.Run(context.Background(), ImportType("bogus"), uuid.New(), nil)
	assert.ErrorIs(t, err, ErrUnknownImportType)
}

func TestPipeline_Cancelled(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewPipeline(store, store, store, nil)
	batchID := uuid.New()
	res, err := p.Run(ctx, TypeLive, batchID, sheet([]string{"Утас", "Код"}, []Cell{"99009900", "X1"}))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, store.orders)
	assert.Equal(t, batchID, res.BatchID)
	assert.Equal(t, 1, res.Total)
	assert.Zero(t, res.Success)
}

func TestPipeline_CancelledMidRunKeepsCounts(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inserts := 0
	store.insertErr = func(OrderRecord) error {
		inserts++
		if inserts == 3 {
			cancel()
			return ctx.Err()
		}
		return nil
	}

	values := make([][]Cell, 5)
	for i := range values {
		values[i] = []Cell{"99009900", fmt.Sprintf("C%d", i)}
	}
	values[1][1] = ""

	rec := &countingRecorder{}
	p := NewPipeline(store, store, store, rec)
	batchID := uuid.New()
	res, err := p.Run(ctx, TypeLive, batchID, sheet([]string{"Утас", "Код"}, values...))

	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "import cancelled at row 5")
	assert.Equal(t, batchID, res.BatchID)
	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 1, res.Failed)
	assert.Len(t, store.orders, 2)
	assert.Empty(t, rec.outcomes)
}
