package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	OptionID uuid.UUID `json:"option_id"`
}

// VoteOnPoll godoc
// @Summary      Casts or changes the caller's vote
// @Tags         votes
// @Accept       json
// @Produce      json
// @Param        id   path  string       true  "Poll ID"
// @Param        body body  voteRequest  true  "Chosen option"
// @Success      200  {object}  MessageResponse
// @Failure      400,404,409  {object}  ErrorResponse
// @Router       /polls/{id}/vote [post]
func (h *VoteHandler) VoteOnPoll(w http.ResponseWriter, r *http.Request) {
	pollID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil || req.OptionID == uuid.Nil {
		writeErrorMessage(w, http.StatusBadRequest, "option_id is required")
		return
	}

	input := ports.VoteInput{
		PollID:   pollID,
		OptionID: req.OptionID,
		Voter:    *identityFrom(r),
	}

	outcome, err := h.service.CastVote(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, MessageResponse{Message: outcome.Message()})
}

// Unvote godoc
// @Summary      Removes the caller's vote
// @Tags         votes
// @Produce      json
// @Param        id   path  string  true  "Poll ID"
// @Success      200  {object}  MessageResponse
// @Failure      404,409  {object}  ErrorResponse
// @Router       /polls/{id}/vote [delete]
func (h *VoteHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	pollID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	outcome, err := h.service.RemoveVote(r.Context(), pollID, *identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, MessageResponse{Message: outcome.Message()})
}

func (h *VoteHandler) MyVote(w http.ResponseWriter, r *http.Request) {
	pollID, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	vote, err := h.service.MyVote(r.Context(), pollID, *identityFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSONResponse(w, http.StatusOK, vote)
}
