// Package handler exposes the trial lifecycle over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"testdrive/internal/platform/middleware"
	"testdrive/internal/transport/http/shared"
	"testdrive/internal/trial"
	dErrors "testdrive/pkg/domain-errors"
)

// Service defines the trial operations the handler exposes.
type Service interface {
	Create(ctx context.Context, vehicleID, buyerID, employeeID int64) (*trial.Trial, error)
	Finalize(ctx context.Context, id int64, comment string) (*trial.Trial, error)
	Delete(ctx context.Context, id int64) error
	ListActive(ctx context.Context) ([]trial.Trial, error)
	ListIncidents(ctx context.Context) ([]trial.Trial, error)
}

// Handler handles trial endpoints.
type Handler struct {
	trials Service
	logger *slog.Logger
}

// New creates a trial Handler.
func New(trials Service, logger *slog.Logger) *Handler {
	return &Handler{trials: trials, logger: logger}
}

// Register registers the trial routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/trials", h.handleCreate)
	r.Patch("/trials/{id}/finalize", h.handleFinalize)
	r.Delete("/trials/{id}", h.handleDelete)
	r.Get("/trials/active", h.handleListActive)
	r.Get("/trials/incidents", h.handleListIncidents)
}

type createRequest struct {
	VehicleID  int64 `json:"vehicle_id"`
	BuyerID    int64 `json:"buyer_id"`
	EmployeeID int64 `json:"employee_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.VehicleID <= 0 || req.BuyerID <= 0 || req.EmployeeID <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "vehicle_id, buyer_id and employee_id are required"))
		return
	}

	created, err := h.trials.Create(ctx, req.VehicleID, req.BuyerID, req.EmployeeID)
	if err != nil {
		h.logger.WarnContext(ctx, "trial creation rejected",
			"vehicle_id", req.VehicleID,
			"error", err.Error(),
			"request_id", middleware.GetRequestID(ctx),
		)
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, ok := pathID(w, r)
	if !ok {
		return
	}

	finished, err := h.trials.Finalize(ctx, id, r.URL.Query().Get("comment"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, finished)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.trials.Delete(r.Context(), id); err != nil {
		shared.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request) {
	trials, err := h.trials.ListActive(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list active trials", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list active trials"))
		return
	}
	if trials == nil {
		trials = []trial.Trial{}
	}
	shared.WriteJSON(w, http.StatusOK, trials)
}

func (h *Handler) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	trials, err := h.trials.ListIncidents(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list incident trials", "error", err.Error())
		shared.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to list incident trials"))
		return
	}
	if trials == nil {
		trials = []trial.Trial{}
	}
	shared.WriteJSON(w, http.StatusOK, trials)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid trial id"))
		return 0, false
	}
	return id, true
}
