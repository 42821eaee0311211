package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/repository"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/rs/zerolog"
)

// ErrInvalidSettings is returned when exam settings are not a JSON object.
var ErrInvalidSettings = errors.New("settings must be a JSON object")

// ExamGetter loads exams by id.
type ExamGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// ExamStore is the exam persistence used by ExamService.
type ExamStore interface {
	ExamGetter
	List(ctx context.Context, f model.ExamListFilter) ([]model.Exam, int, error)
	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, id uuid.UUID, patch model.ExamPatch) (*model.Exam, error)
}

// EventPublisher fans exam events out to other API processes.
type EventPublisher interface {
	PublishExamEvent(ctx context.Context, ev model.ExamEvent) error
	PublishMonitorEvent(ctx context.Context, ev model.ExamEvent) error
}

// ExamService handles exam business logic.
type ExamService struct {
	exams  ExamStore
	audit  Auditor
	events EventPublisher
	log    zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(exams ExamStore, audit Auditor, events EventPublisher, log zerolog.Logger) *ExamService {
	return &ExamService{
		exams:  exams,
		audit:  audit,
		events: events,
		log:    log.With().Str("component", "exam_service").Logger(),
	}
}

// List returns the exams visible to subj: admins see all, instructors their own and
// students the published ones.
func (s *ExamService) List(ctx context.Context, subj policy.Subject, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	page, perPage = response.PageBounds(page, perPage)

	f := model.ExamListFilter{Limit: perPage, Offset: (page - 1) * perPage}
	switch subj.Role {
	case model.RoleAdmin:
	case model.RoleInstructor:
		f.InstructorID = subj.UserID
	default:
		f.PublishedOnly = true
	}

	exams, total, err := s.exams.List(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list exams: %w", err)
	}
	return exams, response.NewPagination(page, perPage, total), nil
}

// Get returns an exam readable by subj.
func (s *ExamService) Get(ctx context.Context, subj policy.Subject, id uuid.UUID) (*model.Exam, error) {
	exam, err := loadExam(ctx, s.exams, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanReadExam(subj, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Create inserts a new exam owned by subj.
func (s *ExamService) Create(ctx context.Context, subj policy.Subject, req model.CreateExamRequest) (*model.Exam, error) {
	if err := policy.CanCreateExam(subj); err != nil {
		return nil, err
	}
	settings, err := objectOrEmpty(req.Settings)
	if err != nil {
		return nil, ErrInvalidSettings
	}

	exam := &model.Exam{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: subj.UserID,
		TimeLimit:    req.TimeLimit,
		Published:    req.Published,
		Settings:     settings,
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	if err := s.audit.Record(ctx, subj.UserID, model.ActionCreateExam, model.EntityExam, exam.ID.String(),
		map[string]any{"title": exam.Title}); err != nil {
		return nil, err
	}

	s.log.Info().Str("exam_id", exam.ID.String()).Str("instructor_id", subj.UserID).Msg("Exam created")
	return exam, nil
}

// Update applies patch to an exam subj may modify and notifies its realtime room.
func (s *ExamService) Update(ctx context.Context, subj policy.Subject, id uuid.UUID, patch model.ExamPatch) (*model.Exam, error) {
	exam, err := loadExam(ctx, s.exams, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyExam(subj, exam); err != nil {
		return nil, err
	}
	if patch.Settings != nil && !isJSONObject(patch.Settings) {
		return nil, ErrInvalidSettings
	}

	updated, err := s.exams.Update(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	fields := patch.Fields()
	if err := s.audit.Record(ctx, subj.UserID, model.ActionUpdateExam, model.EntityExam, id.String(),
		map[string]any{"fields": fields}); err != nil {
		return nil, err
	}

	ev := model.ExamEvent{
		Type:      model.EventExamUpdated,
		ExamID:    id,
		UserID:    subj.UserID,
		Data:      map[string]any{"fields": fields, "exam": updated},
		Timestamp: time.Now().UTC(),
	}
	if err := s.events.PublishExamEvent(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("Failed to publish exam update")
	}
	return updated, nil
}

// AuthorizeRoom reports whether a user may join the realtime room of examID.
func (s *ExamService) AuthorizeRoom(ctx context.Context, subj policy.Subject, examID string) error {
	id, err := uuid.Parse(examID)
	if err != nil {
		return policy.ErrNotFound
	}
	_, err = s.Get(ctx, subj, id)
	return err
}

// AuthorizeRoomUpdate reports whether a user may push updates and timer syncs to the
// realtime room of examID.
func (s *ExamService) AuthorizeRoomUpdate(ctx context.Context, subj policy.Subject, examID string) error {
	id, err := uuid.Parse(examID)
	if err != nil {
		return policy.ErrNotFound
	}
	exam, err := loadExam(ctx, s.exams, id)
	if err != nil {
		return err
	}
	return policy.CanModifyExam(subj, exam)
}

// loadExam maps a missing exam onto policy.ErrNotFound.
func loadExam(ctx context.Context, exams ExamGetter, id uuid.UUID) (*model.Exam, error) {
	exam, err := exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, policy.ErrNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return exam, nil
}

// objectOrEmpty returns raw when it is a JSON object, {} when it is absent.
func objectOrEmpty(raw json.RawMessage) (json.RawMessage, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return json.RawMessage(`{}`), nil
	}
	if !isJSONObject(raw) {
		return nil, ErrInvalidSettings
	}
	return raw, nil
}
