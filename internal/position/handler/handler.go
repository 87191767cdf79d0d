// Package handler exposes position ingestion and live-position lookup.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"testdrive/internal/platform/middleware"
	"testdrive/internal/position"
	"testdrive/internal/transport/http/shared"
	dErrors "testdrive/pkg/domain-errors"
)

// Service defines the position operations the handler exposes.
type Service interface {
	Process(ctx context.Context, vehicleID int64, lat, lon float64) (*position.Result, error)
	LatestFor(ctx context.Context, vehicleID int64) (*position.Position, error)
}

// Handler handles position endpoints.
type Handler struct {
	positions Service
	logger    *slog.Logger
}

// New creates a position Handler.
func New(positions Service, logger *slog.Logger) *Handler {
	return &Handler{positions: positions, logger: logger}
}

// Register registers the position routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/positions", h.handleIngest)
	r.Get("/vehicles/{id}/position/latest", h.handleLatest)
}

type ingestRequest struct {
	VehicleID int64    `json:"vehicle_id"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.VehicleID <= 0 || req.Latitude == nil || req.Longitude == nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "vehicle_id, latitude and longitude are required"))
		return
	}
	if *req.Latitude < -90 || *req.Latitude > 90 || *req.Longitude < -180 || *req.Longitude > 180 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "coordinates out of range"))
		return
	}

	result, err := h.positions.Process(ctx, req.VehicleID, *req.Latitude, *req.Longitude)
	if err != nil {
		h.logger.WarnContext(ctx, "position rejected",
			"vehicle_id", req.VehicleID,
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, result)
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	vehicleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || vehicleID <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid vehicle id"))
		return
	}

	latest, err := h.positions.LatestFor(r.Context(), vehicleID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, latest)
}
