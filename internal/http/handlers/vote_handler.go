package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zamapoll/go-poll-backend/internal/http/middleware"
	"github.com/zamapoll/go-poll-backend/internal/services"
)

// SubmitVoteRequest is the JSON payload for casting a vote.
type SubmitVoteRequest struct {
	// OptionID is the chosen option; it must belong to the poll in the path.
	OptionID uint `json:"option_id" binding:"required"`
	// Email receives the confirmation link. One vote per email per poll.
	Email string `json:"email" binding:"required"`
}

// SubmitVoteResponse acknowledges a pending vote. The vote does not count
// toward the tally until the emailed link is followed.
type SubmitVoteResponse struct {
	Message string `json:"message"`
	PollID  string `json:"poll_id"`
}

// ConfirmVoteResponse acknowledges a counted vote.
type ConfirmVoteResponse struct {
	Message string `json:"message"`
	PollID  string `json:"poll_id"`
}

// SubmitVote handles POST /polls/:id/votes. It records an unconfirmed vote
// and sends the confirmation email. Duplicate emails for the same poll get
// 409 regardless of confirmation state.
func (h *Handlers) SubmitVote(c *gin.Context) {
	var req SubmitVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "option_id and email are required")
		return
	}

	_, err := h.voteSvc.Submit(c.Request.Context(), c.Param("id"), req.OptionID, req.Email, c.ClientIP())
	if err != nil {
		switch err {
		case services.ErrInvalidEmail:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "a valid email address is required")
		case services.ErrOptionNotFound:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "option does not belong to this poll")
		case services.ErrPollNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "poll not found")
		case services.ErrPollClosed:
			fail(c, http.StatusConflict, ErrCodePollClosed, "poll is closed")
		case services.ErrAlreadyVoted:
			fail(c, http.StatusConflict, ErrCodeConflict, "this email has already voted in this poll")
		case services.ErrMailFailure:
			fail(c, http.StatusBadGateway, ErrCodeMailFailed, "could not send confirmation email, please try again")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not record vote")
		}
		return
	}

	middleware.CountVoteSubmitted()
	ok(c, http.StatusAccepted, SubmitVoteResponse{
		Message: "confirmation email sent, please check your inbox",
		PollID:  c.Param("id"),
	})
}

// ConfirmVote handles GET /votes/confirm?token=. Expired tokens get 410 so
// clients can distinguish "vote again" from a malformed link.
func (h *Handlers) ConfirmVote(c *gin.Context) {
	tok := c.Query("token")
	if tok == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "token is required")
		return
	}

	pollID, err := h.voteSvc.Confirm(c.Request.Context(), tok)
	if err != nil {
		switch err {
		case services.ErrTokenExpired:
			fail(c, http.StatusGone, ErrCodeTokenExpired, "confirmation link has expired, please vote again")
		case services.ErrTokenInvalid:
			fail(c, http.StatusBadRequest, ErrCodeTokenInvalid, "confirmation link is invalid")
		case services.ErrVoteNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "vote not found")
		case services.ErrAlreadyConfirmed:
			fail(c, http.StatusConflict, ErrCodeConflict, "this vote has already been confirmed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not confirm vote")
		}
		return
	}

	middleware.CountVoteConfirmed()
	ok(c, http.StatusOK, ConfirmVoteResponse{
		Message: "vote confirmed, thank you",
		PollID:  pollID,
	})
}
