package api

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/docservice"
	"github.com/starford/raido/internal/report"
)

// Handler holds API route handlers.
type Handler struct {
	svc *docservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *docservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docID extracts the document id from the URL (everything after
// /api/documents/). Supports encoded segments from OpenAPI clients.
func docID(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Report handles GET /api/report.
//
//	@Summary		Latest validation report
//	@Tags			validation
//	@Produce		json
//	@Success		200	{object}	ReportPayload
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Report(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no validation run recorded")
		} else {
			slog.Error("report failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, report.NewPayload(res))
}

// ListDocuments handles GET /api/documents.
//
//	@Summary		List the latest run's documents
//	@Tags			documents
//	@Produce		json
//	@Success		200	{object}	DocumentListResponse
//	@Security		BearerAuth
//	@Router			/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.Documents(r.Context())
	if err != nil {
		slog.Error("list documents failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     len(docs),
	})
}

// GetDocument handles GET /api/documents/*.
//
//	@Summary		Get a single document by id
//	@Tags			documents
//	@Produce		json
//	@Param			id	path		string	true	"Document id"
//	@Success		200	{object}	DocumentDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/documents/{id} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := docID(r)
	if id == "" {
		writeError(w, http.StatusBadRequest, "document id is required")
		return
	}
	doc, err := h.svc.Document(r.Context(), id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
		} else {
			slog.Error("get document failed", slog.String("id", id), slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the document graph
//	@Tags			graph
//	@Produce		json
//	@Success		200	{object}	GraphResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	g, err := h.svc.Graph(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no validation run recorded")
		} else {
			slog.Error("graph failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, g)
}

// Anomalies handles GET /api/anomalies.
//
//	@Summary		Latest run's anomaly report
//	@Tags			validation
//	@Produce		json
//	@Success		200	{object}	AnomalyResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/anomalies [get]
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Anomalies(r.Context())
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no validation run recorded")
		} else {
			slog.Error("anomalies failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// Validate handles POST /api/validate.
//
//	@Summary		Run a fresh validation pass
//	@Tags			validation
//	@Produce		json
//	@Success		200	{object}	ReportPayload
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Validate(r.Context(), "api")
	if err != nil {
		switch {
		case errors.Is(err, apperr.ErrDuplicateID),
			errors.Is(err, apperr.ErrInvalidDoc),
			errors.Is(err, apperr.ErrEmptyCorpus):
			// The corpus itself is unsound; tell the caller what to fix.
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			slog.Error("validation failed", slog.String("error", err.Error()))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}
	writeJSON(w, http.StatusOK, report.NewPayload(res))
}
