package auth

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"kehila/internal/transport/http/shared"
	dErrors "kehila/pkg/domain-errors"
)

// Handler exposes the login endpoint.
type Handler struct {
	auth *Service
}

// NewHandler creates the auth Handler.
func NewHandler(auth *Service) *Handler {
	return &Handler{auth: auth}
}

// Register mounts the login route.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.handleLogin)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, loginResponse{Token: token})
}
