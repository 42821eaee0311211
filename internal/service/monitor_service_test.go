package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
)

func TestMonitorAuthorize(t *testing.T) {
	exam := &model.Exam{ID: uuid.New(), Title: "Physics", InstructorID: "owner", Published: true}
	svc := NewMonitorService(newFakeExams(exam), newFakeQuestions(), newFakeAttempts())
	ctx := context.Background()

	tests := []struct {
		name string
		subj policy.Subject
		id   uuid.UUID
		want error
	}{
		{"owner", policy.Subject{UserID: "owner", Role: model.RoleInstructor}, exam.ID, nil},
		{"admin", policy.Subject{UserID: "root", Role: model.RoleAdmin}, exam.ID, nil},
		{"other instructor", policy.Subject{UserID: "other", Role: model.RoleInstructor}, exam.ID, policy.ErrForbidden},
		{"student", policy.Subject{UserID: "s1", Role: model.RoleStudent}, exam.ID, policy.ErrForbidden},
		{"missing exam", policy.Subject{UserID: "owner", Role: model.RoleInstructor}, uuid.New(), policy.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.Authorize(ctx, tt.subj, tt.id)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if tt.want == nil && got.ID != exam.ID {
				t.Errorf("exam = %+v", got)
			}
		})
	}
}

func TestMonitorSnapshot(t *testing.T) {
	exam := &model.Exam{ID: uuid.New(), Title: "Physics", InstructorID: "owner", Published: true}
	questions := newFakeQuestions(
		&model.Question{ID: uuid.New(), ExamID: exam.ID, Type: model.QuestionTypeEssay},
		&model.Question{ID: uuid.New(), ExamID: exam.ID, Type: model.QuestionTypeTrueFalse},
		&model.Question{ID: uuid.New(), ExamID: uuid.New(), Type: model.QuestionTypeEssay},
	)
	attempts := newFakeAttempts()
	score := 8.0
	attempts.put(&model.Attempt{ID: uuid.New(), ExamID: exam.ID, UserID: "s1", Status: model.AttemptInProgress,
		Answers: map[string]json.RawMessage{"q1": json.RawMessage(`"a"`)}})
	attempts.put(&model.Attempt{ID: uuid.New(), ExamID: exam.ID, UserID: "s2", Status: model.AttemptGraded, Score: &score})
	attempts.put(&model.Attempt{ID: uuid.New(), ExamID: uuid.New(), UserID: "s3", Status: model.AttemptSubmitted})

	snap, err := NewMonitorService(newFakeExams(exam), questions, attempts).Snapshot(context.Background(), exam)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Type != "snapshot" || snap.Title != "Physics" || snap.TotalQuestions != 2 || snap.TotalAttempts != 2 {
		t.Fatalf("snapshot = %+v", snap)
	}
	if snap.StatusCounts[model.AttemptInProgress] != 1 || snap.StatusCounts[model.AttemptGraded] != 1 {
		t.Errorf("status counts = %v", snap.StatusCounts)
	}
	for _, a := range snap.Attempts {
		switch a.UserID {
		case "s1":
			if a.AnsweredCount != 1 {
				t.Errorf("s1 answered = %d", a.AnsweredCount)
			}
		case "s2":
			if a.Score == nil || *a.Score != 8 {
				t.Errorf("s2 score = %v", a.Score)
			}
		default:
			t.Errorf("foreign attempt in snapshot: %+v", a)
		}
	}
}
