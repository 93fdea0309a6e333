// Poll HTTP handlers.
//
// This file exposes the REST endpoints for poll resources:
//   - POST /polls              (create a poll with its options)
//   - GET  /polls              (list recent polls, paginated)
//   - GET  /polls/{id}         (view a poll and its options)
//   - GET  /polls/{id}/results (tallied results with percentages)
//
// Handlers are transport-thin: they validate input, delegate to application
// services, and translate service errors into HTTP results.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zamapoll/go-poll-backend/internal/domain"
	"github.com/zamapoll/go-poll-backend/internal/http/middleware"
	"github.com/zamapoll/go-poll-backend/internal/services"
	"github.com/zamapoll/go-poll-backend/internal/utils"
)

//
// Service contracts (context-aware)
//

// PollService defines poll lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PollService interface {
	// Create sanitizes, validates, and persists a poll with its options.
	Create(ctx context.Context, question string, options []string) (*domain.Poll, error)
	// Get returns a poll with its options in insertion order.
	Get(ctx context.Context, id string) (*domain.Poll, error)
	// ListPage returns a page of polls, newest first, and the total count.
	ListPage(ctx context.Context, page, pageSize int) ([]domain.Poll, int64, error)
	// Results returns the tallied, read-only view of a poll.
	Results(ctx context.Context, id string) (*services.Results, error)
}

// VoteService defines vote submission and confirmation operations.
type VoteService interface {
	// Submit records an unconfirmed vote and emails the confirmation link.
	Submit(ctx context.Context, pollID string, optionID uint, email, voterIP string) (*domain.Vote, error)
	// Confirm validates a confirmation token and counts the vote, returning
	// the poll ID.
	Confirm(ctx context.Context, token string) (string, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for polls, votes, and results. It
// depends on abstract service interfaces to keep transport concerns
// separate from business logic.
type Handlers struct {
	pollSvc PollService
	voteSvc VoteService

	// ShareBaseURL prefixes poll IDs in the share links returned on
	// creation, e.g. "http://localhost:8080/poll".
	ShareBaseURL string
}

// New constructs a Handlers instance bound to the given services.
func New(pollSvc PollService, voteSvc VoteService, shareBaseURL string) *Handlers {
	return &Handlers{pollSvc: pollSvc, voteSvc: voteSvc, ShareBaseURL: shareBaseURL}
}

//
// DTOs
//

// CreatePollRequest is the JSON payload for creating a poll.
type CreatePollRequest struct {
	// Question is the poll question (10 to 500 characters after sanitization).
	Question string `json:"question" binding:"required"`
	// Options are the selectable answers, 2 to 10 distinct texts.
	Options []string `json:"options" binding:"required,min=2,max=10"`
}

// PollResponse wraps a created poll together with its shareable link.
type PollResponse struct {
	Poll     *domain.Poll `json:"poll"`
	ShareURL string       `json:"share_url"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListPollsResponse wraps a page of polls and pagination information.
type ListPollsResponse struct {
	Polls      []domain.Poll `json:"polls"`
	Pagination Pagination    `json:"pagination"`
}

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

//
// Handlers
//

// CreatePoll handles POST /polls. It returns 201 with the created poll and
// its share URL, 400 for invalid payloads, and 500 when persistence fails.
func (h *Handlers) CreatePoll(c *gin.Context) {
	var req CreatePollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "question and 2 to 10 options are required")
		return
	}

	poll, err := h.pollSvc.Create(c.Request.Context(), req.Question, req.Options)
	if err != nil {
		switch err {
		case services.ErrInvalidQuestion, services.ErrInvalidOptions:
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		default:
			fail(c, http.StatusInternalServerError, ErrCodeCreateFailed, "could not create poll")
		}
		return
	}

	middleware.CountPollCreated()
	ok(c, http.StatusCreated, PollResponse{
		Poll:     poll,
		ShareURL: h.ShareBaseURL + "/" + poll.ID,
	})
}

// GetPoll handles GET /polls/:id. The payload carries is_active and
// expires_at so clients can send voters of a closed poll straight to the
// results.
func (h *Handlers) GetPoll(c *gin.Context) {
	poll, err := h.pollSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case services.ErrPollNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "poll not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load poll")
		}
		return
	}
	ok(c, http.StatusOK, poll)
}

// ListPolls handles GET /polls with page/page_size query parameters.
func (h *Handlers) ListPolls(c *gin.Context) {
	page, pageSize := clampPagination(c)

	items, total, err := h.pollSvc.ListPage(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "could not list polls")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	ok(c, http.StatusOK, ListPollsResponse{
		Polls: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// GetResults handles GET /polls/:id/results. Read-only: options ordered by
// tally descending with percentage shares of the confirmed total.
func (h *Handlers) GetResults(c *gin.Context) {
	res, err := h.pollSvc.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch err {
		case services.ErrPollNotFound:
			fail(c, http.StatusNotFound, ErrCodeNotFound, "poll not found")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, "could not load results")
		}
		return
	}
	ok(c, http.StatusOK, res)
}
