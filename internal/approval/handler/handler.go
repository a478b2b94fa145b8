package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	approvalservice "kehila/internal/approval/service"
	"kehila/internal/platform/middleware"
	"kehila/internal/transport/http/shared"
	dErrors "kehila/pkg/domain-errors"
)

// Service defines the approval operations the handler exposes.
type Service interface {
	Approve(ctx context.Context, nationalID string) (*approvalservice.Receipt, error)
	Reject(ctx context.Context, nationalID string) error
}

// Handler is the thin HTTP entry point of the approval pipeline. It parses
// the route, delegates to the orchestrator, and maps domain errors to
// statuses; no approval logic lives here.
type Handler struct {
	approvals Service
	logger    *slog.Logger
}

// New creates a new approval Handler.
func New(approvals Service, logger *slog.Logger) *Handler {
	return &Handler{approvals: approvals, logger: logger}
}

// Register mounts the approval routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/approvals/{nationalID}", h.handleApprove)
	r.Delete("/applicants/{nationalID}", h.handleReject)
}

func (h *Handler) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nationalID := chi.URLParam(r, "nationalID")
	if nationalID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "national id is required"))
		return
	}

	receipt, err := h.approvals.Approve(ctx, nationalID)
	if err != nil {
		if code := dErrors.CodeOf(err); code == dErrors.CodeInternal || code == dErrors.CodeUnavailable {
			h.logger.Error("approval failed",
				"request_id", middleware.GetRequestID(ctx),
				"national_id", nationalID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, receipt)
}

func (h *Handler) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nationalID := chi.URLParam(r, "nationalID")
	if nationalID == "" {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "national id is required"))
		return
	}

	if err := h.approvals.Reject(ctx, nationalID); err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.Error("rejection failed",
				"request_id", middleware.GetRequestID(ctx),
				"national_id", nationalID,
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
