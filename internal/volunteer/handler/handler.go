package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"kehila/internal/platform/middleware"
	"kehila/internal/transport/http/shared"
	"kehila/internal/volunteer/models"
	volservice "kehila/internal/volunteer/service"
	dErrors "kehila/pkg/domain-errors"
)

// maxPoliceFormSize bounds the uploaded background-check PDF.
const maxPoliceFormSize = 10 << 20

// Service defines the registration operations the handler exposes.
type Service interface {
	Register(ctx context.Context, req volservice.RegisterRequest) (*models.VolunteerRecord, error)
	List(ctx context.Context, status models.Status) ([]*models.VolunteerRecord, error)
	Get(ctx context.Context, nationalID string) (*models.VolunteerRecord, error)
	AreaStatistics(ctx context.Context) (*volservice.Stats, error)
}

// Handler serves the public registration form and the admin read views.
type Handler struct {
	volunteers Service
	logger     *slog.Logger
}

// New creates a new volunteer Handler.
func New(volunteers Service, logger *slog.Logger) *Handler {
	return &Handler{volunteers: volunteers, logger: logger}
}

// RegisterPublic mounts the routes open to applicants.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/applicants", h.handleRegister)
}

// RegisterAdmin mounts the admin-only read views.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/applicants", h.handleList)
	r.Get("/applicants/{nationalID}", h.handleGet)
	r.Get("/stats/volunteers", h.handleStats)
}

// handleRegister accepts the registration form as multipart form data with
// an optional policeForm PDF part.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxPoliceFormSize); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid multipart form"))
		return
	}

	req := volservice.RegisterRequest{
		NationalID: r.FormValue("id"),
		FirstName:  r.FormValue("firstName"),
		LastName:   r.FormValue("lastName"),
		Phone:      r.FormValue("phone"),
		Email:      r.FormValue("email"),
		Gender:     r.FormValue("gender"),
		Area:       r.FormValue("volunteerArea"),
	}

	if file, header, err := r.FormFile("policeForm"); err == nil {
		defer file.Close()
		if !strings.EqualFold(header.Header.Get("Content-Type"), "application/pdf") &&
			!strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "police form must be a PDF"))
			return
		}
		data, err := io.ReadAll(io.LimitReader(file, maxPoliceFormSize))
		if err != nil {
			shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read police form"))
			return
		}
		req.PoliceForm = data
	}

	rec, err := h.volunteers.Register(ctx, req)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.Error("registration failed",
				"request_id", middleware.GetRequestID(ctx),
				"error", err.Error(),
			)
		}
		shared.WriteError(w, err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, rec)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	status := models.StatusPending
	if q := r.URL.Query().Get("status"); q != "" {
		parsed, err := models.ParseStatus(q)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		status = parsed
	}

	records, err := h.volunteers.List(r.Context(), status)
	if err != nil {
		h.logger.Error("list applicants failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	if records == nil {
		records = []*models.VolunteerRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	rec, err := h.volunteers.Get(r.Context(), chi.URLParam(r, "nationalID"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.volunteers.AreaStatistics(r.Context())
	if err != nil {
		h.logger.Error("statistics failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, stats)
}
