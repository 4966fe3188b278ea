package web

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

// RevertResponse is the body of a successful batch revert.
type RevertResponse struct {
	Message       string      `json:"message"`
	DeletedOrders int64       `json:"deleted_orders"`
	Batch         RevertBatch `json:"batch"`
}

// RevertBatch identifies the reverted batch.
type RevertBatch struct {
	ID         uuid.UUID           `json:"id"`
	ImportType importer.ImportType `json:"import_type"`
	FileName   string              `json:"file_name"`
}

// handleListBatches serves GET /api/imports?type=&limit=. Without a type
// every import type is listed.
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var t importer.ImportType
	if raw := q.Get("type"); raw != "" {
		parsed, err := importer.ParseImportType(raw)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		t = parsed
	}

	limit := s.cfg.Import.HistoryLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.fail(w, r, fmt.Errorf("%w: limit must be a positive integer", errBadRequest))
			return
		}
		limit = n
	}

	batches, err := s.service.ListBatches(r.Context(), t, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if batches == nil {
		batches = []importer.Batch{}
	}
	writeJSON(w, map[string]any{"batches": batches})
}

func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, errBadBatchID)
		return
	}
	b, err := s.service.GetBatch(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, b)
}

// handleRevertBatch serves DELETE /api/imports/{id}: the batch's orders are
// deleted together with the batch record.
func (s *Server) handleRevertBatch(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, errBadBatchID)
		return
	}
	res, err := s.service.RevertBatch(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, RevertResponse{
		Message:       fmt.Sprintf("Import reverted: %d orders deleted", res.DeletedOrders),
		DeletedOrders: res.DeletedOrders,
		Batch: RevertBatch{
			ID:         res.Batch.ID,
			ImportType: res.Batch.ImportType,
			FileName:   res.Batch.FileName,
		},
	})
}
