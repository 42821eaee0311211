package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"golang.org/x/sync/errgroup"
)

// monitorAttemptLimit caps the attempts included in a snapshot.
const monitorAttemptLimit = 500

// AttemptLister pages through an exam's attempts.
type AttemptLister interface {
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.Attempt, int, error)
}

// MonitorSnapshot is the first event of a live monitor stream.
type MonitorSnapshot struct {
	Type           string                      `json:"type"`
	ExamID         uuid.UUID                   `json:"exam_id"`
	Title          string                      `json:"title"`
	TotalQuestions int                         `json:"total_questions"`
	TotalAttempts  int                         `json:"total_attempts"`
	StatusCounts   map[model.AttemptStatus]int `json:"status_counts"`
	Attempts       []MonitorAttempt            `json:"attempts"`
}

// MonitorAttempt is one attempt row of a snapshot.
type MonitorAttempt struct {
	AttemptID     uuid.UUID           `json:"attempt_id"`
	UserID        string              `json:"user_id"`
	Status        model.AttemptStatus `json:"status"`
	AnsweredCount int                 `json:"answered_count"`
	Score         *float64            `json:"score"`
}

// MonitorService builds live monitor snapshots for exam owners.
type MonitorService struct {
	exams     ExamGetter
	questions QuestionLister
	attempts  AttemptLister
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(exams ExamGetter, questions QuestionLister, attempts AttemptLister) *MonitorService {
	return &MonitorService{exams: exams, questions: questions, attempts: attempts}
}

// Authorize checks that subj may watch the exam and returns it.
func (s *MonitorService) Authorize(ctx context.Context, subj policy.Subject, examID uuid.UUID) (*model.Exam, error) {
	exam, err := loadExam(ctx, s.exams, examID)
	if err != nil {
		return nil, err
	}
	if err := policy.CanModifyExam(subj, exam); err != nil {
		return nil, err
	}
	return exam, nil
}

// Snapshot loads questions and attempts concurrently.
func (s *MonitorService) Snapshot(ctx context.Context, exam *model.Exam) (*MonitorSnapshot, error) {
	var (
		questions []model.Question
		attempts  []model.Attempt
		total     int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		questions, err = s.questions.ListByExam(gctx, exam.ID)
		if err != nil {
			return fmt.Errorf("list questions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		attempts, total, err = s.attempts.ListByExam(gctx, exam.ID, monitorAttemptLimit, 0)
		if err != nil {
			return fmt.Errorf("list attempts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snap := &MonitorSnapshot{
		Type:           "snapshot",
		ExamID:         exam.ID,
		Title:          exam.Title,
		TotalQuestions: len(questions),
		TotalAttempts:  total,
		StatusCounts:   map[model.AttemptStatus]int{},
		Attempts:       make([]MonitorAttempt, 0, len(attempts)),
	}
	for _, a := range attempts {
		snap.StatusCounts[a.Status]++
		snap.Attempts = append(snap.Attempts, MonitorAttempt{
			AttemptID:     a.ID,
			UserID:        a.UserID,
			Status:        a.Status,
			AnsweredCount: len(a.Answers),
			Score:         a.Score,
		})
	}
	return snap, nil
}
