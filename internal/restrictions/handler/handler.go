// Package handler exposes the cached geofencing restrictions for inspection.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"testdrive/internal/restrictions"
	"testdrive/internal/transport/http/shared"
	dErrors "testdrive/pkg/domain-errors"
	"testdrive/pkg/platform/sentinel"
)

// Provider serves the current restrictions snapshot.
type Provider interface {
	Get(ctx context.Context) (*restrictions.Restrictions, error)
}

// Handler handles the restrictions endpoint.
type Handler struct {
	rules  Provider
	logger *slog.Logger
}

// New creates a restrictions Handler.
func New(rules Provider, logger *slog.Logger) *Handler {
	return &Handler{rules: rules, logger: logger}
}

// Register registers the restrictions route with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/restrictions", h.handleGet)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.rules.Get(r.Context())
	if err != nil {
		h.logger.WarnContext(r.Context(), "restrictions unavailable", "error", err.Error())
		if errors.Is(err, sentinel.ErrUnavailable) {
			err = dErrors.Wrap(dErrors.CodeUnavailable, "restrictions service unavailable", err)
		}
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, snapshot)
}
