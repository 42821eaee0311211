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

// QuestionUseCases is the question surface used by QuestionHandler.
type QuestionUseCases interface {
	ListByExam(ctx context.Context, subj policy.Subject, examID uuid.UUID) ([]model.Question, error)
	Get(ctx context.Context, subj policy.Subject, id uuid.UUID) (*model.Question, error)
	Create(ctx context.Context, subj policy.Subject, req model.CreateQuestionRequest) (*model.Question, error)
	Update(ctx context.Context, subj policy.Subject, id uuid.UUID, patch model.QuestionPatch) (*model.Question, error)
}

// QuestionHandler handles question endpoints.
type QuestionHandler struct {
	questions QuestionUseCases
	log       zerolog.Logger
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions QuestionUseCases, log zerolog.Logger) *QuestionHandler {
	return &QuestionHandler{
		questions: questions,
		log:       log.With().Str("component", "question_handler").Logger(),
	}
}

// ListExamQuestions godoc
// GET /api/exams/:id/questions
// Questions come back in display order. Correct answers are stripped for users who
// cannot modify the exam.
func (h *QuestionHandler) ListExamQuestions(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	examID, ok := paramID(c, "id")
	if !ok {
		return
	}

	questions, err := h.questions.ListByExam(c.Request.Context(), subj, examID)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}

// GetQuestion godoc
// GET /api/questions/:id
func (h *QuestionHandler) GetQuestion(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	q, err := h.questions.Get(c.Request.Context(), subj, id)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}

// CreateQuestion godoc
// POST /api/questions
func (h *QuestionHandler) CreateQuestion(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Create(c.Request.Context(), subj, req)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"question": q})
}

// UpdateQuestion godoc
// PUT /api/questions/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	subj, ok := subject(c)
	if !ok {
		return
	}
	id, ok := paramID(c, "id")
	if !ok {
		return
	}

	var patch model.QuestionPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Update(c.Request.Context(), subj, id, patch)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"question": q})
}
