package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/rs/zerolog"
)

type attemptFixture struct {
	svc      *AttemptService
	exam     *model.Exam
	essay    *model.Question
	attempts *fakeAttempts
	audit    *fakeAudit
	events   *fakeEvents
	analyzer *fakeAnalyzer
}

func newAttemptFixture(t *testing.T, published bool) *attemptFixture {
	t.Helper()
	exam := &model.Exam{ID: uuid.New(), Title: "Biology", InstructorID: "inst-1", Published: published, TimeLimit: intPtr(30)}
	essay := &model.Question{ID: uuid.New(), ExamID: exam.ID, Type: model.QuestionTypeEssay, Points: 10}
	f := &attemptFixture{
		exam:     exam,
		essay:    essay,
		attempts: newFakeAttempts(),
		audit:    &fakeAudit{},
		events:   &fakeEvents{},
		analyzer: &fakeAnalyzer{result: nlp.AttemptAnalysis{PlagiarismScore: 0.1, SentimentAnalysis: nlp.NeutralSentiment()}},
	}
	f.svc = NewAttemptService(f.attempts, newFakeExams(exam), newFakeQuestions(essay), f.analyzer,
		f.audit, f.events, 30*time.Second, zerolog.Nop())
	return f
}

func answers(kv ...string) map[string]json.RawMessage {
	out := map[string]json.RawMessage{}
	for i := 0; i+1 < len(kv); i += 2 {
		b, _ := json.Marshal(kv[i+1])
		out[kv[i]] = b
	}
	return out
}

func submitted() *model.AttemptStatus {
	s := model.AttemptSubmitted
	return &s
}

func TestStartAttemptIsIdempotent(t *testing.T) {
	f := newAttemptFixture(t, true)
	ctx := context.Background()

	first, created, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil || !created {
		t.Fatalf("first start = %v, created %v", err, created)
	}
	if first.Status != model.AttemptInProgress || first.UserID != student.UserID {
		t.Errorf("attempt = %+v", first)
	}

	second, created, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil || created {
		t.Fatalf("second start = %v, created %v", err, created)
	}
	if second.ID != first.ID {
		t.Errorf("second start returned a new attempt %s != %s", second.ID, first.ID)
	}
	if got := f.audit.byAction(model.ActionStartAttempt); len(got) != 1 {
		t.Errorf("start audits = %d, want 1", len(got))
	}
	if len(f.events.monitor) != 1 || f.events.monitor[0].Type != model.EventAttemptStarted {
		t.Errorf("monitor events = %+v", f.events.monitor)
	}
}

func TestStartAttemptConcurrent(t *testing.T) {
	f := newAttemptFixture(t, true)

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, _, err := f.svc.Start(context.Background(), student, f.exam.ID)
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = a.ID
		}()
	}
	wg.Wait()

	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("concurrent starts produced different attempts: %v", ids)
		}
	}
}

func TestStartAttemptUnpublished(t *testing.T) {
	f := newAttemptFixture(t, false)
	ctx := context.Background()

	if _, _, err := f.svc.Start(ctx, student, f.exam.ID); !errors.Is(err, policy.ErrNotFound) {
		t.Errorf("student err = %v", err)
	}
	if _, _, err := f.svc.Start(ctx, instructor, f.exam.ID); !errors.Is(err, policy.ErrNotPublished) {
		t.Errorf("owner err = %v", err)
	}
	if _, _, err := f.svc.Start(ctx, student, uuid.New()); !errors.Is(err, policy.ErrNotFound) {
		t.Errorf("missing exam err = %v", err)
	}
}

func TestSubmitAttempt(t *testing.T) {
	f := newAttemptFixture(t, true)
	ctx := context.Background()
	attempt, _, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil {
		t.Fatal(err)
	}
	qid := f.essay.ID.String()

	saved, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{Answers: answers(qid, "draft")})
	if err != nil {
		t.Fatal(err)
	}
	if saved.SubmittedAt != nil || saved.Status != model.AttemptInProgress {
		t.Errorf("draft save changed status: %+v", saved)
	}

	done, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{
		Answers: answers(qid, "Plants convert light into chemical energy."),
		Status:  submitted(),
	})
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != model.AttemptSubmitted || done.SubmittedAt == nil {
		t.Fatalf("submitted attempt = %+v", done)
	}
	if done.PlagiarismScore == nil || *done.PlagiarismScore != 0.1 {
		t.Errorf("analysis not stored: %+v", done.PlagiarismScore)
	}
	if f.analyzer.calls != 1 {
		t.Errorf("analyzer calls = %d", f.analyzer.calls)
	}

	updates := f.audit.byAction(model.ActionUpdateAttempt)
	if len(updates) != 2 {
		t.Fatalf("update audits = %d, want one per update", len(updates))
	}
	if updates[1].Metadata["status"] != model.AttemptSubmitted {
		t.Errorf("submit audit metadata = %+v", updates[1].Metadata)
	}

	last := f.events.monitor[len(f.events.monitor)-1]
	if last.Type != model.EventAttemptSubmitted {
		t.Errorf("last monitor event = %+v", last)
	}

	if _, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{Answers: answers(qid, "late edit")}); !errors.Is(err, policy.ErrLocked) {
		t.Errorf("edit after submit err = %v", err)
	}
}

func TestUpdateAttemptAccess(t *testing.T) {
	f := newAttemptFixture(t, true)
	ctx := context.Background()
	attempt, _, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil {
		t.Fatal(err)
	}
	patch := model.AttemptPatch{Answers: answers("q", "x")}

	other := policy.Subject{UserID: "stud-2", Role: model.RoleStudent}
	if _, err := f.svc.Update(ctx, other, attempt.ID, patch); !errors.Is(err, policy.ErrNotFound) {
		t.Errorf("other student err = %v", err)
	}
	if _, err := f.svc.Update(ctx, instructor, attempt.ID, patch); !errors.Is(err, policy.ErrForbidden) {
		t.Errorf("exam owner err = %v", err)
	}
	if _, err := f.svc.Get(ctx, instructor, attempt.ID); err != nil {
		t.Errorf("exam owner read err = %v", err)
	}
	if _, err := f.svc.Update(ctx, student, uuid.New(), patch); !errors.Is(err, policy.ErrNotFound) {
		t.Errorf("missing attempt err = %v", err)
	}
}

func TestAnswersAfterDeadline(t *testing.T) {
	f := newAttemptFixture(t, true)
	ctx := context.Background()
	attempt, _, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil {
		t.Fatal(err)
	}

	f.svc.now = func() time.Time { return attempt.StartedAt.Add(30*time.Minute + 20*time.Second) }
	if _, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{Answers: answers("q", "in grace")}); err != nil {
		t.Fatalf("answer within grace err = %v", err)
	}

	f.svc.now = func() time.Time { return attempt.StartedAt.Add(31 * time.Minute) }
	if _, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{Answers: answers("q", "too late")}); !errors.Is(err, ErrTimeOver) {
		t.Fatalf("late answer err = %v", err)
	}

	done, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{Status: submitted()})
	if err != nil {
		t.Fatalf("late submit err = %v", err)
	}
	if done.Status != model.AttemptSubmitted {
		t.Errorf("status = %s", done.Status)
	}
}

func TestGradeAttempt(t *testing.T) {
	f := newAttemptFixture(t, true)
	ctx := context.Background()
	attempt, _, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.Grade(ctx, instructor, attempt.ID, 8); !errors.Is(err, policy.ErrNotSubmitted) {
		t.Fatalf("grade in progress err = %v", err)
	}
	if _, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{Status: submitted()}); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Grade(ctx, student, attempt.ID, 10); !errors.Is(err, policy.ErrForbidden) {
		t.Fatalf("self grade err = %v", err)
	}

	graded, err := f.svc.Grade(ctx, instructor, attempt.ID, 8)
	if err != nil {
		t.Fatal(err)
	}
	if graded.Status != model.AttemptGraded || graded.Score == nil || *graded.Score != 8 {
		t.Errorf("graded = %+v", graded)
	}
	if _, err := f.svc.Grade(ctx, admin, attempt.ID, 9); !errors.Is(err, policy.ErrLocked) {
		t.Errorf("regrade err = %v", err)
	}
	if got := f.audit.byAction(model.ActionGradeAttempt); len(got) != 1 || got[0].Metadata["score"] != 8.0 {
		t.Errorf("grade audits = %+v", got)
	}
}

func TestAttemptAuditFailureSurfaces(t *testing.T) {
	f := newAttemptFixture(t, true)
	f.audit.err = ErrAuditFailed

	if _, _, err := f.svc.Start(context.Background(), student, f.exam.ID); !errors.Is(err, ErrAuditFailed) {
		t.Fatalf("err = %v", err)
	}
	if len(f.attempts.attempts) != 1 {
		t.Errorf("attempt should persist despite audit failure")
	}
}

func TestListAttemptsByExam(t *testing.T) {
	f := newAttemptFixture(t, true)
	ctx := context.Background()
	if _, _, err := f.svc.Start(ctx, student, f.exam.ID); err != nil {
		t.Fatal(err)
	}

	if _, _, err := f.svc.ListByExam(ctx, student, f.exam.ID, 1, 10); !errors.Is(err, policy.ErrForbidden) {
		t.Errorf("student list err = %v", err)
	}
	list, page, err := f.svc.ListByExam(ctx, instructor, f.exam.ID, 1, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || page.TotalItems != 1 {
		t.Errorf("list = %+v page %+v", list, page)
	}
}

func TestAttemptStatsCountGradedOnly(t *testing.T) {
	f := newAttemptFixture(t, true)
	ctx := context.Background()
	attempt, _, err := f.svc.Start(ctx, student, f.exam.ID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Update(ctx, student, attempt.ID, model.AttemptPatch{Status: submitted()}); err != nil {
		t.Fatal(err)
	}

	stats, err := f.svc.Stats(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if stats.CompletedExams != 0 || stats.AverageScore != 0 || stats.TimeSpent != 1800 {
		t.Errorf("ungraded stats = %+v", stats)
	}

	if _, err := f.svc.Grade(ctx, instructor, attempt.ID, 6.666); err != nil {
		t.Fatal(err)
	}
	stats, err = f.svc.Stats(ctx, student)
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAttempts != 1 || stats.CompletedExams != 1 || stats.AverageScore != 6.67 {
		t.Errorf("graded stats = %+v", stats)
	}
}
