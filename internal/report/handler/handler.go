// Package handler exposes the kilometers report over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"testdrive/internal/report"
	"testdrive/internal/transport/http/shared"
	dErrors "testdrive/pkg/domain-errors"
)

// Service defines the reporting operations the handler exposes.
type Service interface {
	Kilometers(ctx context.Context, plate string, from, to time.Time) (*report.KilometersReport, error)
}

// Handler handles report endpoints.
type Handler struct {
	reports Service
	logger  *slog.Logger
}

// New creates a report Handler.
func New(reports Service, logger *slog.Logger) *Handler {
	return &Handler{reports: reports, logger: logger}
}

// Register registers the report routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/reports/kilometers", h.handleKilometers)
}

func (h *Handler) handleKilometers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	plate := q.Get("plate")
	if plate == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "plate is required"))
		return
	}

	from, err := parseDate(q.Get("from"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "from must be an RFC 3339 timestamp or YYYY-MM-DD date"))
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "to must be an RFC 3339 timestamp or YYYY-MM-DD date"))
		return
	}
	if to.Before(from) {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "to must not precede from"))
		return
	}

	result, err := h.reports.Kilometers(r.Context(), plate, from, to)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, result)
}

func parseDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
