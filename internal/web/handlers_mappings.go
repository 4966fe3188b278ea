package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/khosimport/internal/importer"
)

// maxMappingBody bounds a mapping replacement request.
const maxMappingBody = 1 << 20

// SaveMappingsRequest replaces every mapping of one import type.
type SaveMappingsRequest struct {
	ImportType string                  `json:"importType"`
	Mappings   []importer.MappingInput `json:"mappings"`
}

// handleListMappings serves GET /api/import-columns?type=live.
func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	t, err := importer.ParseImportType(r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	views, err := s.service.ListMappings(r.Context(), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"importType": t, "mappings": views})
}

// handleSaveMappings serves POST /api/import-columns.
func (s *Server) handleSaveMappings(w http.ResponseWriter, r *http.Request) {
	var req SaveMappingsRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMappingBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %w", errBadRequest, err))
		return
	}

	t, err := importer.ParseImportType(req.ImportType)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.service.SaveMappings(r.Context(), t, req.Mappings); err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{
		"message":    "Column mappings saved",
		"importType": t,
		"fields":     len(req.Mappings),
	})
}

// handleEffectiveMappings serves GET /api/import-columns/effective?type=order.
func (s *Server) handleEffectiveMappings(w http.ResponseWriter, r *http.Request) {
	t, err := importer.ParseImportType(r.URL.Query().Get("type"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	mappings, err := s.service.EffectiveMappings(r.Context(), t)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, map[string]any{"importType": t, "mappings": mappings})
}
