package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type AdminHandler struct {
	service ports.AdminService
}

func NewAdminHandler(service ports.AdminService) *AdminHandler {
	return &AdminHandler{
		service: service,
	}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListUsers(r.Context(), pageRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, page)
}

func (h *AdminHandler) ListPolls(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListPolls(r.Context(), pageRequest(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, page)
}

func (h *AdminHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.Invalid("invalid user id"))
		return
	}

	user, err := h.service.UpdateRole(r.Context(), userID, r.URL.Query().Get("role"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, domain.Invalid("invalid user id"))
		return
	}

	if err := h.service.DeleteUser(r.Context(), userID, *identityFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, MessageResponse{Message: "User deleted successfully!"})
}
