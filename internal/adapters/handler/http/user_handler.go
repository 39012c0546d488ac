package http

import (
	"net/http"

	"github.com/pollsystem/api/internal/core/ports"
)

type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

type updateProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.Profile(r.Context(), *identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, profile)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req updateProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.UpdateProfile(r.Context(), *identityFrom(r), req.Name, req.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.ChangePassword(r.Context(), *identityFrom(r), req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, MessageResponse{Message: "Password changed successfully!"})
}

func (h *UserHandler) VotingHistory(w http.ResponseWriter, r *http.Request) {
	votes, err := h.service.VotingHistory(r.Context(), *identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, votes)
}
