package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/validator"
)

// TextAnalyzer runs the text heuristics. Failures degrade to default results.
type TextAnalyzer interface {
	AnalyzeText(text string) nlp.TextAnalysis
	CheckPlagiarism(text string, references []string) nlp.PlagiarismResult
	GradeEssay(essay, question string, maxScore float64) nlp.EssayGrade
}

// NLPHandler exposes the text analysis endpoints.
type NLPHandler struct {
	analyzer TextAnalyzer
}

// NewNLPHandler creates a new NLPHandler.
func NewNLPHandler(analyzer TextAnalyzer) *NLPHandler {
	return &NLPHandler{analyzer: analyzer}
}

// AnalyzeText godoc
// POST /api/nlp/analyze-text
func (h *NLPHandler) AnalyzeText(c *gin.Context) {
	var req model.AnalyzeTextRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	response.Success(c, http.StatusOK, h.analyzer.AnalyzeText(req.Text))
}

// CheckPlagiarism godoc
// POST /api/nlp/check-plagiarism
func (h *NLPHandler) CheckPlagiarism(c *gin.Context) {
	var req model.PlagiarismRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	response.Success(c, http.StatusOK, h.analyzer.CheckPlagiarism(req.Text, req.ReferenceTexts))
}

// GradeEssay godoc
// POST /api/nlp/grade-essay
// max_score defaults to 10.
func (h *NLPHandler) GradeEssay(c *gin.Context) {
	var req model.GradeEssayRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	response.Success(c, http.StatusOK, h.analyzer.GradeEssay(req.EssayText, req.QuestionText, req.MaxScore))
}
