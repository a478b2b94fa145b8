package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kehila/internal/area/models"
	"kehila/internal/transport/http/shared"
	dErrors "kehila/pkg/domain-errors"
)

// Service defines the taxonomy operations the handler exposes.
type Service interface {
	Save(ctx context.Context, id string, withKids bool, whatsAppLink string) (*models.Area, error)
	Get(ctx context.Context, id string) (*models.Area, error)
	List(ctx context.Context) ([]*models.Area, error)
	Delete(ctx context.Context, id string) error
}

// Handler serves the volunteer-area taxonomy CRUD.
type Handler struct {
	areas  Service
	logger *slog.Logger
}

// New creates a new area Handler.
func New(areas Service, logger *slog.Logger) *Handler {
	return &Handler{areas: areas, logger: logger}
}

// RegisterPublic mounts the read-only routes the registration form uses.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/areas", h.handleList)
}

// RegisterAdmin mounts the mutating routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/areas", h.handleSave)
	r.Put("/areas/{areaID}", h.handleUpdate)
	r.Delete("/areas/{areaID}", h.handleDelete)
}

type areaRequest struct {
	ID           string `json:"id"`
	WithKids     bool   `json:"withKids"`
	WhatsAppLink string `json:"whatsAppLink"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	areas, err := h.areas.List(r.Context())
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if areas == nil {
		areas = []*models.Area{}
	}
	shared.WriteJSON(w, http.StatusOK, areas)
}

func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	area, err := h.areas.Save(r.Context(), req.ID, req.WithKids, req.WhatsAppLink)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, area)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req areaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	area, err := h.areas.Save(r.Context(), chi.URLParam(r, "areaID"), req.WithKids, req.WhatsAppLink)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, area)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.areas.Delete(r.Context(), chi.URLParam(r, "areaID")); err != nil {
		shared.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
