package web

// errors.go turns handler errors into responses. The technical error is
// logged with the request id; the client gets the catalog message from
// importer.MapError as JSON, or as an HTML alert for HTMX requests.
// Server errors outside the catalog log at Error level; catalogued ones
// such as exhausted slots or timeouts log at Warn.

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/JonMunkholm/khosimport/internal/importer"
	"github.com/JonMunkholm/khosimport/internal/logging"
	"github.com/JonMunkholm/khosimport/internal/sheet"
	"github.com/JonMunkholm/khosimport/internal/web/templates"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
	errNoFile      = errors.New("no file provided")
	errFileTooBig  = errors.New("file too large")
	errBadRequest  = errors.New("invalid request body")
	errBadBatchID  = fmt.Errorf("%w: invalid id", importer.ErrBatchNotFound)
)

// ErrorResponse is the JSON body of every API error. Error is the one-line
// form "Message (Code: X). Action" for clients that show a single string.
//
// BatchID and Imported are set only when an import stopped after storing
// rows; the batch must be reverted before the file is uploaded again.
type ErrorResponse struct {
	Error    string     `json:"error"`
	Message  string     `json:"message"`
	Action   string     `json:"action,omitempty"`
	Code     string     `json:"code"`
	BatchID  *uuid.UUID `json:"batchId,omitempty"`
	Imported int        `json:"imported,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var tooBig *http.MaxBytesError
	switch {
	case errors.Is(err, importer.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, importer.ErrBatchNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, importer.ErrUnknownImportType),
		errors.Is(err, importer.ErrInvalidMapping),
		errors.Is(err, importer.ErrDecode),
		errors.Is(err, sheet.ErrUnsupportedFile),
		errors.Is(err, sheet.ErrNoSheets),
		errors.Is(err, errNoFile),
		errors.Is(err, errFileTooBig),
		errors.Is(err, errBadRequest),
		errors.As(err, &tooBig):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// fail responds to err with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	s.writeError(w, r, err, status, nil)
}

// failInterrupted responds to an import that stopped after storing rows.
// The client is told which batch to revert instead of simply retrying.
func (s *Server) failInterrupted(w http.ResponseWriter, r *http.Request, res importer.BatchResult, err error) {
	s.writeError(w, r, err, statusFor(err), &res)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, status int, partial *importer.BatchResult) {
	msg := importer.MapError(err)
	body := ErrorResponse{
		Error:   importer.FormatUserError(err),
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if partial != nil && partial.BatchID != uuid.Nil {
		body.BatchID = &partial.BatchID
		body.Imported = partial.Success
		body.Action = fmt.Sprintf("%d rows were stored before the import stopped; revert batch %s before uploading the file again",
			partial.Success, partial.BatchID)
		body.Error = fmt.Sprintf("%s (Code: %s). %s", body.Message, body.Code, body.Action)
	}

	logger := logging.FromContext(r.Context())
	attrs := []any{"path", r.URL.Path, "method", r.Method, "status", status, "code", msg.Code, "error", err.Error()}
	if body.BatchID != nil {
		attrs = append(attrs, "batch_id", body.BatchID.String(), "imported", body.Imported)
	}
	switch {
	case status >= http.StatusInternalServerError && !importer.IsUserFacing(err):
		logger.Error("request failed", attrs...)
	case status >= http.StatusInternalServerError:
		logger.Warn("request failed", attrs...)
	default:
		logger.Info("request rejected", attrs...)
	}

	if isHTMX(r) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		if err := templates.ErrorAlert(body.Message, body.Action, body.Code).Render(r.Context(), w); err != nil {
			logger.Error("render error alert", "error", err)
		}
		return
	}

	writeJSONStatus(w, status, body)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
