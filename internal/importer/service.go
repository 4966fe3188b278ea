package importer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/khosimport/internal/logging"
)

// DefaultBatchListLimit is how many batches ListBatches returns by default.
const DefaultBatchListLimit = 100

// Store is everything the service persists through.
type Store interface {
	MappingStore
	MappingWriter
	ProductCodeStore
	UnitOfWork
	BatchStore
}

// Config tunes the service.
type Config struct {
	MaxConcurrent int           // Parallel imports allowed
	MaxWait       time.Duration // Wait for a free import slot
	Timeout       time.Duration // Upper bound for one import run; 0 disables it
	Recorder      Recorder      // Optional pipeline event sink
}

// Service is the entry point for import, preview, mapping, and batch operations.
type Service struct {
	store    Store
	decoder  Decoder
	pipeline *Pipeline
	limiter  *Limiter
	timeout  time.Duration
}

// NewService wires the pipeline to a store and a spreadsheet decoder.
func NewService(store Store, decoder Decoder, cfg Config) *Service {
	return &Service{
		store:    store,
		decoder:  decoder,
		pipeline: NewPipeline(store, store, store, cfg.Recorder),
		limiter:  NewLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		timeout:  cfg.Timeout,
	}
}

// Import decodes an uploaded spreadsheet and imports its rows. Non-empty
// sheets are recorded as an import batch so they can be reverted later.
//
// When the run is cancelled partway through, Import returns the error
// together with a result carrying the batch id and the rows stored so far.
func (s *Service) Import(ctx context.Context, t ImportType, fileName string, data []byte) (BatchResult, error) {
	if _, ok := SchemaFor(t); !ok {
		return BatchResult{}, fmt.Errorf("%w: %q", ErrUnknownImportType, t)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return BatchResult{}, err
	}
	defer s.limiter.Release()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	rows, err := s.decoder.Decode(fileName, data)
	if err != nil {
		return BatchResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	if len(rows) == 0 {
		res, err := s.pipeline.Run(ctx, t, uuid.Nil, nil)
		res.FileName = fileName
		return res, err
	}

	batchID := uuid.New()
	logger := logging.WithFields(ctx, "import_type", string(t), "batch_id", batchID.String(), "file", fileName)

	if err := s.store.CreateBatch(ctx, Batch{
		ID:         batchID,
		ImportType: t,
		FileName:   fileName,
		TotalRows:  len(rows),
		CreatedAt:  time.Now(),
	}); err != nil {
		return BatchResult{}, fmt.Errorf("create import batch: %w", err)
	}

	res, runErr := s.pipeline.Run(ctx, t, batchID, rows)
	if runErr != nil && res.BatchID == uuid.Nil {
		return BatchResult{}, runErr
	}
	res.FileName = fileName

	// Rows are already committed; finalize even if the request was cancelled
	// or its deadline passed, so the batch can still be reverted.
	finalizeCtx := context.WithoutCancel(ctx)
	if err := s.store.FinalizeBatch(finalizeCtx, batchID, res.Total, res.Success, res.Failed); err != nil {
		logger.Warn("finalize import batch failed", "error", err)
	}

	return res, runErr
}

// Preview decodes a spreadsheet and reports how it would import.
func (s *Service) Preview(ctx context.Context, t ImportType, fileName string, data []byte) (PreviewResult, error) {
	if _, ok := SchemaFor(t); !ok {
		return PreviewResult{}, fmt.Errorf("%w: %q", ErrUnknownImportType, t)
	}
	rows, err := s.decoder.Decode(fileName, data)
	if err != nil {
		return PreviewResult{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return BuildPreview(t, LoadMappings(ctx, s.store, t), rows)
}

// ListMappings returns the persisted mappings of a type, skipping rows whose
// column names are not a JSON string array.
func (s *Service) ListMappings(ctx context.Context, t ImportType) ([]MappingView, error) {
	rows, err := s.store.ListMappings(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("list column mappings: %w", err)
	}

	logger := logging.FromContext(ctx)
	out := make([]MappingView, 0, len(rows))
	for _, r := range rows {
		names, err := decodeAliases(r.ColumnNames)
		if err != nil {
			logger.Warn("skipping invalid column mapping", "field", r.FieldName, "error", err)
			continue
		}
		v := MappingView{FieldName: r.FieldName, ColumnNames: names, DisplayOrder: r.DisplayOrder}
		if r.IsRequired != nil {
			v.IsRequired = *r.IsRequired
		}
		out = append(out, v)
	}

	sort.SliceStable(out, func(i, j int) bool {
		oi, oj := displayOrder(out[i].DisplayOrder), displayOrder(out[j].DisplayOrder)
		if oi != oj {
			return oi < oj
		}
		return out[i].FieldName < out[j].FieldName
	})
	return out, nil
}

func displayOrder(p *int) int {
	if p == nil {
		return unorderedDisplay
	}
	return *p
}

// SaveMappings replaces every persisted mapping of a type.
func (s *Service) SaveMappings(ctx context.Context, t ImportType, in []MappingInput) error {
	if err := ValidateMappings(t, in); err != nil {
		return err
	}
	if err := s.store.ReplaceMappings(ctx, t, in); err != nil {
		return fmt.Errorf("save column mappings: %w", err)
	}
	logging.FromContext(ctx).Info("column mappings replaced", "import_type", string(t), "fields", len(in))
	return nil
}

// EffectiveMappings returns the mappings an import would use right now.
func (s *Service) EffectiveMappings(ctx context.Context, t ImportType) ([]FieldMapping, error) {
	if _, ok := SchemaFor(t); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownImportType, t)
	}
	return SortedMappings(LoadMappings(ctx, s.store, t)), nil
}

// ListBatches returns recent import batches, newest first. An empty type
// lists every type.
func (s *Service) ListBatches(ctx context.Context, t ImportType, limit int) ([]Batch, error) {
	if limit <= 0 || limit > DefaultBatchListLimit {
		limit = DefaultBatchListLimit
	}
	batches, err := s.store.ListBatches(ctx, t, limit)
	if err != nil {
		return nil, fmt.Errorf("list import batches: %w", err)
	}
	return batches, nil
}

// GetBatch returns a single import batch.
func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (Batch, error) {
	b, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return Batch{}, fmt.Errorf("get import batch: %w", err)
	}
	return b, nil
}

// RevertBatch deletes every order imported by a batch, then the batch itself.
func (s *Service) RevertBatch(ctx context.Context, id uuid.UUID) (RevertResult, error) {
	b, err := s.store.GetBatch(ctx, id)
	if err != nil {
		return RevertResult{}, fmt.Errorf("get import batch: %w", err)
	}

	n, err := s.store.RevertBatch(ctx, id)
	if err != nil {
		return RevertResult{}, fmt.Errorf("revert import batch: %w", err)
	}

	logging.FromContext(ctx).Info("import batch reverted",
		"batch_id", id.String(),
		"import_type", string(b.ImportType),
		"deleted_orders", n,
	)
	return RevertResult{Batch: b, DeletedOrders: n}, nil
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForImports blocks until running imports finish or ctx ends.
func (s *Service) WaitForImports(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}
