package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/repository"
)

// ErrInvalidContent is returned when question content is not a JSON object.
var ErrInvalidContent = errors.New("content must be a JSON object")

// QuestionStore is the question persistence used by QuestionService.
type QuestionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
	Create(ctx context.Context, q *model.Question) error
	Update(ctx context.Context, id uuid.UUID, patch model.QuestionPatch, analysis *model.QuestionAnalysis) (*model.Question, error)
}

// QuestionService handles question business logic.
type QuestionService struct {
	questions QuestionStore
	exams     ExamGetter
	audit     Auditor
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, exams ExamGetter, audit Auditor) *QuestionService {
	return &QuestionService{questions: questions, exams: exams, audit: audit}
}

// ListByExam returns an exam's questions in order. Correct answers are removed unless
// subj may modify the exam.
func (s *QuestionService) ListByExam(ctx context.Context, subj policy.Subject, examID uuid.UUID) ([]model.Question, error) {
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadExam(subj, exam); err != nil {
		return nil, err
	}

	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	if !policy.CanSeeAnswers(subj, exam) {
		for i := range questions {
			questions[i].CorrectAnswer = nil
		}
	}
	return questions, nil
}

// Get returns a single question readable by subj.
func (s *QuestionService) Get(ctx context.Context, subj policy.Subject, id uuid.UUID) (*model.Question, error) {
	q, exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadExam(subj, exam); err != nil {
		return nil, err
	}
	if !policy.CanSeeAnswers(subj, exam) {
		q.CorrectAnswer = nil
	}
	return q, nil
}

// Create adds a question to an exam subj may modify. The prompt text, when present,
// is analysed for difficulty, readability and keywords.
func (s *QuestionService) Create(ctx context.Context, subj policy.Subject, req model.CreateQuestionRequest) (*model.Question, error) {
	exam, err := loadExam(ctx, s.exams, req.ExamID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanCreateQuestion(subj, exam); err != nil {
		return nil, err
	}
	if !isJSONObject(req.Content) {
		return nil, ErrInvalidContent
	}

	points := 1
	if req.Points != nil {
		points = *req.Points
	}
	q := &model.Question{
		ExamID:        req.ExamID,
		Type:          req.Type,
		Content:       req.Content,
		CorrectAnswer: req.CorrectAnswer,
		Points:        points,
		Order:         req.Order,
		Keywords:      []string{},
	}
	if a := analyzeQuestionText(model.ContentText(req.Content)); a != nil {
		q.DifficultyScore = &a.DifficultyScore
		q.ReadabilityScore = &a.ReadabilityScore
		q.Keywords = a.Keywords
	}

	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	if err := s.audit.Record(ctx, subj.UserID, model.ActionCreateQuestion, model.EntityQuestion, q.ID.String(),
		map[string]any{"exam_id": q.ExamID.String(), "type": q.Type}); err != nil {
		return nil, err
	}
	return q, nil
}

// Update applies patch to a question of an exam subj may modify. Changed prompt text
// is re-analysed.
func (s *QuestionService) Update(ctx context.Context, subj policy.Subject, id uuid.UUID, patch model.QuestionPatch) (*model.Question, error) {
	_, exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyExam(subj, exam); err != nil {
		return nil, err
	}

	var analysis *model.QuestionAnalysis
	if patch.Content != nil {
		if !isJSONObject(patch.Content) {
			return nil, ErrInvalidContent
		}
		analysis = analyzeQuestionText(model.ContentText(patch.Content))
	}

	updated, err := s.questions.Update(ctx, id, patch, analysis)
	if err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}

	if err := s.audit.Record(ctx, subj.UserID, model.ActionUpdateQuestion, model.EntityQuestion, id.String(),
		map[string]any{"fields": patch.Fields()}); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *QuestionService) load(ctx context.Context, id uuid.UUID) (*model.Question, *model.Exam, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, policy.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get question: %w", err)
	}
	exam, err := loadExam(ctx, s.exams, q.ExamID)
	if err != nil {
		return nil, nil, err
	}
	return q, exam, nil
}

// analyzeQuestionText returns nil for an empty prompt.
func analyzeQuestionText(text string) *model.QuestionAnalysis {
	if text == "" {
		return nil
	}
	return &model.QuestionAnalysis{
		DifficultyScore:  nlp.CalculateDifficulty(text),
		ReadabilityScore: nlp.CalculateReadability(text).FleschScore,
		Keywords:         nlp.ExtractKeywords(text, nlp.DefaultKeywordCount),
	}
}
