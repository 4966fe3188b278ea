package web

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JonMunkholm/khosimport/internal/importer"
	"github.com/JonMunkholm/khosimport/internal/web/templates"
)

// multipartOverhead is allowed on top of the file size for the form envelope.
const multipartOverhead = 1 << 20

// ImportResponse is the JSON body of a finished import.
type ImportResponse struct {
	Error    string     `json:"error,omitempty"`
	Message  string     `json:"message"`
	Success  int        `json:"success"`
	Failed   int        `json:"failed"`
	Errors   []string   `json:"errors"`
	BatchID  *uuid.UUID `json:"batchId,omitempty"`
	FileName string     `json:"fileName,omitempty"`
}

// importStatus maps an outcome to its HTTP status.
func importStatus(o importer.Outcome) int {
	switch o {
	case importer.OutcomeSuccess:
		return http.StatusOK
	case importer.OutcomePartial:
		return http.StatusMultiStatus
	default:
		return http.StatusBadRequest
	}
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	t, err := importer.ParseImportType(chi.URLParam(r, "importType"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	res, err := s.service.Import(r.Context(), t, name, data)
	if err != nil {
		if res.BatchID != uuid.Nil {
			s.failInterrupted(w, r, res, err)
			return
		}
		s.fail(w, r, err)
		return
	}

	status := importStatus(res.Outcome)
	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = templates.ImportSummary(res).Render(r.Context(), w)
		return
	}

	body := ImportResponse{
		Message:  res.Message(),
		Success:  res.Success,
		Failed:   res.Failed,
		Errors:   res.Errors,
		FileName: res.FileName,
	}
	if res.BatchID != uuid.Nil {
		body.BatchID = &res.BatchID
	}
	if !res.OK() {
		body.Error = res.Headline()
	}
	writeJSONStatus(w, status, body)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	t, err := importer.ParseImportType(chi.URLParam(r, "importType"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	name, data, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	preview, err := s.service.Preview(r.Context(), t, name, data)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_ = templates.PreviewTable(preview).Render(r.Context(), w)
		return
	}
	writeJSON(w, preview)
}

// readUpload returns the name and contents of the multipart "file" field.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	limit := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)

	if err := r.ParseMultipartForm(limit); err != nil {
		return "", nil, fmt.Errorf("%w: %w", errBadRequest, err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errNoFile
	}
	defer file.Close()

	if header.Size > limit {
		return "", nil, fmt.Errorf("%w: %d bytes", errFileTooBig, header.Size)
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return "", nil, errFileTooBig
	}
	return header.Filename, data, nil
}
