package http

import (
	"net/http"

	"github.com/pollsystem/api/internal/core/ports"
)

type PollHandler struct {
	service ports.PollService
}

func NewPollHandler(service ports.PollService) *PollHandler {
	return &PollHandler{
		service: service,
	}
}

type createPollRequest struct {
	Question string   `json:"question"`
	Options  []string `json:"options"`
	Privacy  string   `json:"privacy"`
}

func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req createPollRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := ports.CreatePollInput{
		Question: req.Question,
		Options:  req.Options,
		Privacy:  req.Privacy,
	}

	poll, err := h.service.Create(r.Context(), input, *identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusCreated, poll)
}

func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	poll, err := h.service.Get(r.Context(), id, identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, poll)
}

func (h *PollHandler) ListPublic(w http.ResponseWriter, r *http.Request) {
	page, err := h.service.ListPublic(r.Context(), pageRequest(r), identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, page)
}

func (h *PollHandler) Search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("keyword")
	page, err := h.service.SearchPublic(r.Context(), keyword, pageRequest(r), identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, page)
}

func (h *PollHandler) MyPolls(w http.ResponseWriter, r *http.Request) {
	polls, err := h.service.ListMine(r.Context(), *identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, polls)
}

// ClosePoll godoc
// @Summary      Closes a poll to further voting
// @Tags         polls
// @Produce      json
// @Param        id   path  string  true  "Poll ID"
// @Success      200  {object}  domain.PollView
// @Failure      403,404  {object}  ErrorResponse
// @Router       /polls/{id}/close [put]
func (h *PollHandler) ClosePoll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	poll, err := h.service.Close(r.Context(), id, *identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, poll)
}

func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id, *identityFrom(r)); err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, MessageResponse{Message: "Poll deleted successfully!"})
}
