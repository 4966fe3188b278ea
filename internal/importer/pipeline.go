package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/khosimport/internal/logging"
)

// ContextCheckInterval is how many rows are processed between cancellation checks.
const ContextCheckInterval = 100

// Recorder receives pipeline events, typically for metrics.
type Recorder interface {
	RowProcessed(t ImportType, ok bool)
	ProductCodeUpserted(t ImportType)
	BatchFinished(t ImportType, outcome Outcome, d time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RowProcessed(ImportType, bool)                    {}
func (nopRecorder) ProductCodeUpserted(ImportType)                   {}
func (nopRecorder) BatchFinished(ImportType, Outcome, time.Duration) {}

// Pipeline imports decoded rows one by one. Rows fail independently: each
// row's product code upsert and order insert share one transaction, so a bad
// row never rolls back rows stored before it.
type Pipeline struct {
	mappings MappingStore
	codes    ProductCodeStore
	uow      UnitOfWork
	recorder Recorder
}

// NewPipeline wires a pipeline to its stores. A nil recorder disables events.
func NewPipeline(mappings MappingStore, codes ProductCodeStore, uow UnitOfWork, recorder Recorder) *Pipeline {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Pipeline{
		mappings: mappings,
		codes:    codes,
		uow:      uow,
		recorder: recorder,
	}
}

// Run imports rows for the given type and reports the outcome. The returned
// error is non-nil only for unknown types and context cancellation; row
// problems are reported inside the result. On cancellation the result still
// carries the batch id and the counts reached, since rows stored before the
// interruption stay committed.
func (p *Pipeline) Run(ctx context.Context, t ImportType, batchID uuid.UUID, rows []Row) (BatchResult, error) {
	start := time.Now()

	schema, ok := SchemaFor(t)
	if !ok {
		return BatchResult{}, fmt.Errorf("%w: %q", ErrUnknownImportType, t)
	}

	logger := logging.WithFields(ctx, "import_type", string(t), "batch_id", batchID.String())

	if len(rows) == 0 {
		res := Report(0, 0, nil)
		res.Type, res.BatchID, res.Duration = t, batchID, time.Since(start)
		p.recorder.BatchFinished(t, res.Outcome, res.Duration)
		return res, nil
	}

	mappings := LoadMappings(ctx, p.mappings, t)
	cache := p.seedCodes(ctx, logger)

	var (
		success int
		failed  int
		errs    []string
	)

	interrupted := func(err error) (BatchResult, error) {
		res := Report(success, failed, errs)
		res.Type = t
		res.BatchID = batchID
		res.Total = len(rows)
		res.Duration = time.Since(start)
		logger.Warn("import interrupted",
			"rows", res.Total,
			"success", res.Success,
			"failed", res.Failed,
			"error", err,
		)
		return res, err
	}

	for i, row := range rows {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return interrupted(fmt.Errorf("import cancelled after %d rows: %w", i, err))
			}
		}

		lineNum := i + 2 // header occupies line 1
		if err := p.importRow(ctx, t, schema, mappings, cache, batchID, row); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				return interrupted(fmt.Errorf("import cancelled at row %d: %w", lineNum, err))
			}
			failed++
			if len(errs) < MaxReportedErrors {
				errs = append(errs, fmt.Sprintf("Row %d: %s", lineNum, err.Error()))
			}
			logger.Debug("row rejected", "row", lineNum, "error", err)
			p.recorder.RowProcessed(t, false)
			continue
		}
		success++
		p.recorder.RowProcessed(t, true)
	}

	res := Report(success, failed, errs)
	res.Type = t
	res.BatchID = batchID
	res.Total = len(rows)
	res.Duration = time.Since(start)

	p.recorder.BatchFinished(t, res.Outcome, res.Duration)
	logger.Info("import finished",
		"rows", res.Total,
		"success", res.Success,
		"failed", res.Failed,
		"outcome", res.Outcome,
		"duration_ms", res.Duration.Milliseconds(),
	)

	return res, nil
}

// importRow validates a single row and stores it.
func (p *Pipeline) importRow(ctx context.Context, t ImportType, schema Schema, mappings map[string]FieldMapping,
	cache *codeCache, batchID uuid.UUID, row Row) error {

	rec, err := buildRecord(t, schema, mappings, row)
	if err != nil {
		return err
	}
	rec.BatchID = batchID

	key := normalizeCode(rec.ProductCode)
	id, cached := cache.get(key)

	err = p.uow.WithinTx(ctx, func(tx RowStore) error {
		if !cached {
			newID, err := tx.UpsertProductCode(ctx, rec.ProductCode)
			if err != nil {
				return fmt.Errorf("resolve product code %q: %w", rec.ProductCode, err)
			}
			if newID <= 0 {
				return fmt.Errorf("resolve product code %q: no id returned", rec.ProductCode)
			}
			id = newID
		}
		rec.ProductCodeID = id
		if err := tx.InsertOrder(ctx, rec); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Cache only committed ids; a rolled back upsert may have removed the code.
	if !cached {
		cache.put(key, id)
		p.recorder.ProductCodeUpserted(t)
	}
	return nil
}

// buildRecord extracts and coerces every schema field of a row. It fails
// when a required field is empty or the row cannot reference a product code.
func buildRecord(t ImportType, schema Schema, mappings map[string]FieldMapping, row Row) (OrderRecord, error) {
	rec := OrderRecord{
		Status:   StatusNew,
		Type:     t.Code(),
		Metadata: make(map[string]float64),
	}

	for _, fs := range schema.Fields {
		fm, mapped := mappings[fs.Name]
		var raw Cell
		if mapped {
			raw = FindColumnValue(row, fm.Aliases)
		}
		if mapped && fm.Required && CellText(raw) == "" {
			return OrderRecord{}, missingFieldError(fs.Name, row)
		}
		if fs.Assign != nil {
			fs.Assign(&rec, raw)
		}
	}

	if rec.Phone == "" && rec.ProductCode == "" {
		return OrderRecord{}, errors.New("row has neither a phone number nor a product code")
	}
	if rec.ProductCode == "" {
		return OrderRecord{}, errors.New("product code is missing; every order must reference a product code")
	}
	return rec, nil
}

func missingFieldError(field string, row Row) error {
	var what string
	switch field {
	case FieldPhone:
		what = "phone number is required"
	case FieldCode:
		what = "product code is required"
	default:
		what = fmt.Sprintf("%s is required", field)
	}
	if headers := row.Headers(); len(headers) > 0 {
		return fmt.Errorf("%s (found columns: %s)", what, strings.Join(headers, ", "))
	}
	return errors.New(what)
}

// seedCodes loads the existing catalog once per run. A failed scan only costs
// extra upserts, so it is logged rather than returned.
func (p *Pipeline) seedCodes(ctx context.Context, logger *slog.Logger) *codeCache {
	cache := newCodeCache()
	if p.codes == nil {
		return cache
	}
	codes, err := p.codes.ListProductCodes(ctx)
	if err != nil {
		logger.Warn("seed product code cache failed", "error", err)
		return cache
	}
	for _, c := range codes {
		cache.put(normalizeCode(c.Code), c.ID)
	}
	return cache
}

// codeCache maps normalized product codes to ids for a single run.
// It is never shared between runs.
type codeCache struct {
	ids map[string]int64
}

func newCodeCache() *codeCache {
	return &codeCache{ids: make(map[string]int64)}
}

func (c *codeCache) get(key string) (int64, bool) {
	id, ok := c.ids[key]
	return id, ok
}

func (c *codeCache) put(key string, id int64) {
	if _, exists := c.ids[key]; !exists {
		c.ids[key] = id
	}
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
