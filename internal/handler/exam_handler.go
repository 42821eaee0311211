package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/validator"
	"github.com/rs/zerolog"
)

// ExamUseCases is the exam surface used by ExamHandler.
type ExamUseCases interface {
	List(ctx context.Context, subj policy.Subject, page, perPage int) ([]model.Exam, *response.Pagination, error)
	Get(ctx context.Context, subj policy.Subject, id uuid.UUID) (*model.Exam, error)
	Create(ctx context.Context, subj policy.Subject, req model.CreateExamRequest) (*model.Exam, error)
	Update(ctx context.Context, subj policy.Subject, id uuid.UUID, patch model.ExamPatch) (*model.Exam, error)
}

// ExamHandler handles exam management endpoints.
type ExamHandler struct {
	exams ExamUseCases
	log   zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams ExamUseCases, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		exams: exams,
		log:   log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/exams
// Admins see every exam, instructors their own and students the published ones.
func (h *ExamHandler) ListExams(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}

	page, perPage := pageParams(c)
	exams, pagination, err := h.exams.List(c.Request.Context(), subj, page, perPage)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	exam, err := h.exams.Get(c.Request.Context(), subj, id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/exams
func (h *ExamHandler) CreateExam(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), subj, req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/exams/:id
// Only the fields present in the body change.
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var patch model.ExamPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Update(c.Request.Context(), subj, id, patch)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// pageParams reads page and per_page; the services clamp them.
func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "10"))
	return page, perPage
}
