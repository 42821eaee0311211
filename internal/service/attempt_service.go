package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/repository"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/rs/zerolog"
)

// ErrTimeOver is returned when answers arrive after the attempt's time limit.
var ErrTimeOver = errors.New("attempt time limit exceeded")

// AttemptStore is the attempt persistence used by AttemptService.
type AttemptStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
	GetActive(ctx context.Context, userID string, examID uuid.UUID) (*model.Attempt, error)
	Create(ctx context.Context, a *model.Attempt) error
	Update(ctx context.Context, id uuid.UUID, upd model.AttemptUpdate) (*model.Attempt, error)
	ListByUser(ctx context.Context, userID string) ([]model.Attempt, error)
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.Attempt, int, error)
	Stats(ctx context.Context, userID string) (model.UserStats, error)
}

// QuestionLister loads an exam's questions.
type QuestionLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error)
}

// AttemptAnalyzer scores the free-text answers of a submitted attempt.
type AttemptAnalyzer interface {
	AnalyzeAttemptOrDefault(ctx context.Context, attempt *model.Attempt, questions []model.Question) nlp.AttemptAnalysis
}

// AttemptService handles the attempt lifecycle: start, answer, submit and grade.
type AttemptService struct {
	attempts  AttemptStore
	exams     ExamGetter
	questions QuestionLister
	analysis  AttemptAnalyzer
	audit     Auditor
	events    EventPublisher
	grace     time.Duration
	log       zerolog.Logger
	now       func() time.Time
}

// NewAttemptService creates a new AttemptService. Answers are accepted until
// started_at + time limit + grace.
func NewAttemptService(
	attempts AttemptStore,
	exams ExamGetter,
	questions QuestionLister,
	analysis AttemptAnalyzer,
	audit Auditor,
	events EventPublisher,
	grace time.Duration,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		attempts:  attempts,
		exams:     exams,
		questions: questions,
		analysis:  analysis,
		audit:     audit,
		events:    events,
		grace:     grace,
		log:       log.With().Str("component", "attempt_service").Logger(),
		now:       time.Now,
	}
}

// Start returns subj's in-progress attempt for the exam, creating it when none exists.
// created reports whether a new attempt was made.
func (s *AttemptService) Start(ctx context.Context, subj policy.Subject, examID uuid.UUID) (attempt *model.Attempt, created bool, err error) {
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, false, err
	}
	if err := policy.CanStartAttempt(subj, exam); err != nil {
		return nil, false, err
	}

	active, err := s.attempts.GetActive(ctx, subj.UserID, examID)
	if err == nil {
		return active, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("get active attempt: %w", err)
	}

	attempt = &model.Attempt{UserID: subj.UserID, ExamID: examID, TimeLimit: exam.TimeLimit}
	if err := s.attempts.Create(ctx, attempt); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A concurrent start won; return its attempt.
			active, err := s.attempts.GetActive(ctx, subj.UserID, examID)
			if err != nil {
				return nil, false, fmt.Errorf("get active attempt: %w", err)
			}
			return active, false, nil
		}
		return nil, false, fmt.Errorf("create attempt: %w", err)
	}

	if err := s.audit.Record(ctx, subj.UserID, model.ActionStartAttempt, model.EntityAttempt, attempt.ID.String(),
		map[string]any{"exam_id": examID.String()}); err != nil {
		return nil, false, err
	}
	s.publishMonitor(ctx, model.EventAttemptStarted, attempt, nil)
	return attempt, true, nil
}

// Get returns an attempt readable by subj.
func (s *AttemptService) Get(ctx context.Context, subj policy.Subject, id uuid.UUID) (*model.Attempt, error) {
	attempt, exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadAttempt(subj, attempt, exam); err != nil {
		return nil, err
	}
	return attempt, nil
}

// Update merges answers into an in-progress attempt and optionally submits it.
// Answers past the deadline are rejected with ErrTimeOver; submitting is always
// accepted. Submission stamps submitted_at and stores the text analysis.
func (s *AttemptService) Update(ctx context.Context, subj policy.Subject, id uuid.UUID, patch model.AttemptPatch) (*model.Attempt, error) {
	attempt, exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyAttempt(subj, attempt, exam); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if len(patch.Answers) > 0 {
		if deadline, ok := attempt.Deadline(s.grace); ok && now.After(deadline) {
			return nil, ErrTimeOver
		}
	}

	upd := model.AttemptUpdate{Answers: patch.Answers}
	status := attempt.Status
	if patch.Submits() {
		status = model.AttemptSubmitted
		upd.Status = &status
		upd.SubmittedAt = &now

		merged := *attempt
		merged.Answers = mergeAnswers(attempt.Answers, patch.Answers)
		analysis := s.analysis.AnalyzeAttemptOrDefault(ctx, &merged, s.questionsFor(ctx, attempt.ExamID))
		upd.Analysis = &analysis
	}

	updated, err := s.attempts.Update(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update attempt: %w", err)
	}

	if err := s.audit.Record(ctx, subj.UserID, model.ActionUpdateAttempt, model.EntityAttempt, id.String(),
		map[string]any{"status": status}); err != nil {
		return nil, err
	}
	if patch.Submits() {
		s.publishMonitor(ctx, model.EventAttemptSubmitted, updated, nil)
	}
	return updated, nil
}

// Grade scores a submitted attempt. Graded attempts are immutable.
func (s *AttemptService) Grade(ctx context.Context, subj policy.Subject, id uuid.UUID, score float64) (*model.Attempt, error) {
	attempt, exam, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanGradeAttempt(subj, attempt, exam); err != nil {
		return nil, err
	}

	status := model.AttemptGraded
	updated, err := s.attempts.Update(ctx, id, model.AttemptUpdate{Status: &status, Score: &score})
	if err != nil {
		return nil, fmt.Errorf("grade attempt: %w", err)
	}

	if err := s.audit.Record(ctx, subj.UserID, model.ActionGradeAttempt, model.EntityAttempt, id.String(),
		map[string]any{"score": score}); err != nil {
		return nil, err
	}
	s.publishMonitor(ctx, model.EventAttemptGraded, updated, map[string]any{"score": score})
	return updated, nil
}

// ListMine returns subj's attempts, newest first.
func (s *AttemptService) ListMine(ctx context.Context, subj policy.Subject) ([]model.Attempt, error) {
	return s.attempts.ListByUser(ctx, subj.UserID)
}

// Stats summarises subj's attempts.
func (s *AttemptService) Stats(ctx context.Context, subj policy.Subject) (model.UserStats, error) {
	return s.attempts.Stats(ctx, subj.UserID)
}

// ListByExam returns the attempts of an exam subj may modify.
func (s *AttemptService) ListByExam(ctx context.Context, subj policy.Subject, examID uuid.UUID, page, perPage int) ([]model.Attempt, *response.Pagination, error) {
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, nil, err
	}
	if err := policy.CanModifyExam(subj, exam); err != nil {
		return nil, nil, err
	}

	page, perPage = response.PageBounds(page, perPage)
	attempts, total, err := s.attempts.ListByExam(ctx, examID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list attempts: %w", err)
	}
	return attempts, response.NewPagination(page, perPage, total), nil
}

// load returns the attempt and, when it still exists, its exam.
func (s *AttemptService) load(ctx context.Context, id uuid.UUID) (*model.Attempt, *model.Exam, error) {
	attempt, err := s.attempts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, policy.ErrNotFound
		}
		return nil, nil, fmt.Errorf("get attempt: %w", err)
	}
	exam, err := loadExam(ctx, s.exams, attempt.ExamID)
	if err != nil && !errors.Is(err, policy.ErrNotFound) {
		return nil, nil, err
	}
	return attempt, exam, nil
}

func (s *AttemptService) questionsFor(ctx context.Context, examID uuid.UUID) []model.Question {
	questions, err := s.questions.ListByExam(ctx, examID)
	if err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("Failed to load questions for analysis")
		return nil
	}
	return questions
}

func (s *AttemptService) publishMonitor(ctx context.Context, typ string, a *model.Attempt, data map[string]any) {
	ev := model.ExamEvent{
		Type:      typ,
		ExamID:    a.ExamID,
		UserID:    a.UserID,
		Timestamp: s.now().UTC(),
	}
	if data == nil {
		data = map[string]any{}
	}
	data["attempt_id"] = a.ID.String()
	data["status"] = a.Status
	ev.Data = data
	if err := s.events.PublishMonitorEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("attempt_id", a.ID.String()).Msg("Failed to publish monitor event")
	}
}

func mergeAnswers(base, patch map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}
