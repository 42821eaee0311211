package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/validator"
	"github.com/rs/zerolog"
)

// AttemptUseCases is the attempt surface used by AttemptHandler.
type AttemptUseCases interface {
	Start(ctx context.Context, subj policy.Subject, examID uuid.UUID) (*model.Attempt, bool, error)
	Get(ctx context.Context, subj policy.Subject, id uuid.UUID) (*model.Attempt, error)
	Update(ctx context.Context, subj policy.Subject, id uuid.UUID, patch model.AttemptPatch) (*model.Attempt, error)
	Grade(ctx context.Context, subj policy.Subject, id uuid.UUID, score float64) (*model.Attempt, error)
	ListMine(ctx context.Context, subj policy.Subject) ([]model.Attempt, error)
	Stats(ctx context.Context, subj policy.Subject) (model.UserStats, error)
	ListByExam(ctx context.Context, subj policy.Subject, examID uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error)
}

// AttemptHandler handles exam attempt endpoints.
type AttemptHandler struct {
	attempts AttemptUseCases
	log      zerolog.Logger
}

// NewAttemptHandler creates a new AttemptHandler.
func NewAttemptHandler(attempts AttemptUseCases, log zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		log:      log.With().Str("component", "attempt_handler").Logger(),
	}
}

// StartAttempt godoc
// POST /api/exams/:id/start
// Returns the caller's in-progress attempt if one exists (200), otherwise creates
// one (201).
func (h *AttemptHandler) StartAttempt(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	attempt, created, err := h.attempts.Start(c.Request.Context(), subj, examID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	response.Success(c, status, gin.H{"attempt": attempt})
}

// GetAttempt godoc
// GET /api/attempts/:id
func (h *AttemptHandler) GetAttempt(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	attempt, err := h.attempts.Get(c.Request.Context(), subj, id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// UpdateAttempt godoc
// PUT /api/attempts/:id
// Merges answers and optionally submits.
func (h *AttemptHandler) UpdateAttempt(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var patch model.AttemptPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attempts.Update(c.Request.Context(), subj, id, patch)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// GradeAttempt godoc
// POST /api/attempts/:id/grade
func (h *AttemptHandler) GradeAttempt(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var req model.GradeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	attempt, err := h.attempts.Grade(c.Request.Context(), subj, id, *req.Score)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempt": attempt})
}

// ListMyAttempts godoc
// GET /api/user/attempts
func (h *AttemptHandler) ListMyAttempts(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}

	attempts, err := h.attempts.ListMine(c.Request.Context(), subj)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attempts": attempts})
}

// MyStats godoc
// GET /api/user/stats
func (h *AttemptHandler) MyStats(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}

	stats, err := h.attempts.Stats(c.Request.Context(), subj)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, stats)
}

// ListExamAttempts godoc
// GET /api/exams/:id/attempts
func (h *AttemptHandler) ListExamAttempts(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	page, perPage := pageParams(c)
	attempts, pagination, err := h.attempts.ListByExam(c.Request.Context(), subj, examID, page, perPage)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"attempts": attempts}, pagination)
}
