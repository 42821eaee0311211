package service

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/nlp"
	"github.com/opsis/opsis-backend/internal/repository"
)

// ─── Sessions ──────────────────────────────────────────────────────────

type fakeSessions struct {
	mu   sync.Mutex
	live map[string]time.Duration
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{live: map[string]time.Duration{}}
}

func (f *fakeSessions) Create(_ context.Context, userID, jti string, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.live[userID+":"+jti] = ttl
	return nil
}

func (f *fakeSessions) Exists(_ context.Context, userID, jti string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.live[userID+":"+jti]
	return ok, nil
}

func (f *fakeSessions) Delete(_ context.Context, userID, jti string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.live, userID+":"+jti)
	return nil
}

// ─── Users ─────────────────────────────────────────────────────────────

type fakeUsers struct {
	users map[string]*model.User
}

func newFakeUsers(users ...*model.User) *fakeUsers {
	f := &fakeUsers{users: map[string]*model.User{}}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUsers) UpsertExternal(_ context.Context, u *model.User) (*model.User, error) {
	for id, other := range f.users {
		if id != u.ID && u.Email != "" && other.Email == u.Email {
			return nil, repository.ErrDuplicate
		}
	}
	if existing, ok := f.users[u.ID]; ok {
		if u.FirstName != "" {
			existing.FirstName = u.FirstName
		}
		if u.LastName != "" {
			existing.LastName = u.LastName
		}
		if u.Email != "" {
			existing.Email = u.Email
		}
		cp := *existing
		return &cp, nil
	}
	cp := *u
	f.users[u.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakeUsers) Update(_ context.Context, id string, p model.UserPatch) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.FirstName != nil {
		u.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		u.LastName = *p.LastName
	}
	if p.ProfileImageURL != nil {
		u.ProfileImageURL = *p.ProfileImageURL
	}
	if p.Preferences != nil {
		u.Preferences = p.Preferences
	}
	cp := *u
	return &cp, nil
}

// ─── Audit ─────────────────────────────────────────────────────────────

type fakeAudit struct {
	mu      sync.Mutex
	entries []model.AuditEntry
	err     error
}

func (f *fakeAudit) Record(_ context.Context, actor, action, entityType, entityID string, metadata map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, model.AuditEntry{
		UserID: actor, Action: action, EntityType: entityType, EntityID: entityID, Metadata: metadata,
	})
	return nil
}

func (f *fakeAudit) byAction(action string) []model.AuditEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.AuditEntry
	for _, e := range f.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type fakeAuditStore struct {
	inserted []model.AuditEntry
	err      error
}

func (f *fakeAuditStore) Insert(_ context.Context, e *model.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	e.ID = int64(len(f.inserted) + 1)
	f.inserted = append(f.inserted, *e)
	return nil
}

func (f *fakeAuditStore) List(_ context.Context, _ model.AuditFilter) ([]model.AuditEntry, int, error) {
	return f.inserted, len(f.inserted), nil
}

type fakeAuditBuffer struct {
	pushed []model.AuditEntry
	err    error
}

func (f *fakeAuditBuffer) Push(_ context.Context, entries ...model.AuditEntry) error {
	if f.err != nil {
		return f.err
	}
	f.pushed = append(f.pushed, entries...)
	return nil
}

// ─── Events ────────────────────────────────────────────────────────────

type fakeEvents struct {
	mu      sync.Mutex
	exam    []model.ExamEvent
	monitor []model.ExamEvent
}

func (f *fakeEvents) PublishExamEvent(_ context.Context, ev model.ExamEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exam = append(f.exam, ev)
	return nil
}

func (f *fakeEvents) PublishMonitorEvent(_ context.Context, ev model.ExamEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.monitor = append(f.monitor, ev)
	return nil
}

// ─── Exams ─────────────────────────────────────────────────────────────

type fakeExams struct {
	exams map[uuid.UUID]*model.Exam
}

func newFakeExams(exams ...*model.Exam) *fakeExams {
	f := &fakeExams{exams: map[uuid.UUID]*model.Exam{}}
	for _, e := range exams {
		f.exams[e.ID] = e
	}
	return f
}

func (f *fakeExams) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f *fakeExams) List(_ context.Context, filter model.ExamListFilter) ([]model.Exam, int, error) {
	out := []model.Exam{}
	for _, e := range f.exams {
		if filter.InstructorID != "" && e.InstructorID != filter.InstructorID {
			continue
		}
		if filter.PublishedOnly && !e.Published {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, len(out), nil
}

func (f *fakeExams) Create(_ context.Context, e *model.Exam) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	f.exams[e.ID] = &cp
	return nil
}

func (f *fakeExams) Update(_ context.Context, id uuid.UUID, p model.ExamPatch) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p.Apply(e)
	e.UpdatedAt = time.Now().UTC()
	cp := *e
	return &cp, nil
}

// ─── Questions ─────────────────────────────────────────────────────────

type fakeQuestions struct {
	questions map[uuid.UUID]*model.Question
	analyses  []*model.QuestionAnalysis
}

func newFakeQuestions(qs ...*model.Question) *fakeQuestions {
	f := &fakeQuestions{questions: map[uuid.UUID]*model.Question{}}
	for _, q := range qs {
		f.questions[q.ID] = q
	}
	return f
}

func (f *fakeQuestions) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeQuestions) ListByExam(_ context.Context, examID uuid.UUID) ([]model.Question, error) {
	out := []model.Question{}
	for _, q := range f.questions {
		if q.ExamID == examID {
			out = append(out, *q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeQuestions) Create(_ context.Context, q *model.Question) error {
	q.ID = uuid.New()
	cp := *q
	f.questions[q.ID] = &cp
	return nil
}

func (f *fakeQuestions) Update(_ context.Context, id uuid.UUID, p model.QuestionPatch, a *model.QuestionAnalysis) (*model.Question, error) {
	q, ok := f.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.Content != nil {
		q.Content = p.Content
	}
	if p.CorrectAnswer != nil {
		q.CorrectAnswer = p.CorrectAnswer
	}
	if p.Points != nil {
		q.Points = *p.Points
	}
	if a != nil {
		q.DifficultyScore = &a.DifficultyScore
		q.ReadabilityScore = &a.ReadabilityScore
		q.Keywords = a.Keywords
	}
	f.analyses = append(f.analyses, a)
	cp := *q
	return &cp, nil
}

// ─── Attempts ──────────────────────────────────────────────────────────

type fakeAttempts struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*model.Attempt
	updates  []model.AttemptUpdate
}

func newFakeAttempts() *fakeAttempts {
	return &fakeAttempts{attempts: map[uuid.UUID]*model.Attempt{}}
}

func (f *fakeAttempts) GetByID(_ context.Context, id uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) GetActive(_ context.Context, userID string, examID uuid.UUID) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.attempts {
		if a.UserID == userID && a.ExamID == examID && a.Status == model.AttemptInProgress {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeAttempts) Create(_ context.Context, a *model.Attempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.attempts {
		if existing.UserID == a.UserID && existing.ExamID == a.ExamID && existing.Status == model.AttemptInProgress {
			return repository.ErrDuplicate
		}
	}
	a.ID = uuid.New()
	a.Status = model.AttemptInProgress
	a.StartedAt = time.Now().UTC()
	a.Answers = map[string]json.RawMessage{}
	cp := *a
	f.attempts[a.ID] = &cp
	return nil
}

func (f *fakeAttempts) Update(_ context.Context, id uuid.UUID, upd model.AttemptUpdate) (*model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.attempts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	f.updates = append(f.updates, upd)
	for k, v := range upd.Answers {
		a.Answers[k] = v
	}
	if upd.Status != nil {
		a.Status = *upd.Status
	}
	if upd.SubmittedAt != nil {
		a.SubmittedAt = upd.SubmittedAt
	}
	if upd.Score != nil {
		a.Score = upd.Score
	}
	if upd.Analysis != nil {
		a.PlagiarismScore = &upd.Analysis.PlagiarismScore
		a.SentimentAnalysis = &upd.Analysis.SentimentAnalysis
		a.WritingQuality = &upd.Analysis.WritingQuality
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAttempts) ListByUser(_ context.Context, userID string) ([]model.Attempt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Attempt{}
	for _, a := range f.attempts {
		if a.UserID == userID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttempts) ListByExam(_ context.Context, examID uuid.UUID, _, _ int) ([]model.Attempt, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Attempt{}
	for _, a := range f.attempts {
		if a.ExamID == examID {
			out = append(out, *a)
		}
	}
	return out, len(out), nil
}

func (f *fakeAttempts) Stats(_ context.Context, userID string) (model.UserStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var mine []model.Attempt
	for _, a := range f.attempts {
		if a.UserID == userID {
			mine = append(mine, *a)
		}
	}
	return model.SummarizeAttempts(mine), nil
}

func (f *fakeAttempts) PeerAnswers(_ context.Context, examID uuid.UUID, questionID string, exclude uuid.UUID) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, a := range f.attempts {
		if a.ExamID != examID || a.ID == exclude || a.Status == model.AttemptInProgress {
			continue
		}
		if s, ok := a.TextAnswer(questionID); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// put stores a prepared attempt.
func (f *fakeAttempts) put(a *model.Attempt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if a.Answers == nil {
		a.Answers = map[string]json.RawMessage{}
	}
	f.attempts[a.ID] = a
}

// ─── Analysis ──────────────────────────────────────────────────────────

type fakeAnalyzer struct {
	calls  int
	result nlp.AttemptAnalysis
}

func (f *fakeAnalyzer) AnalyzeAttemptOrDefault(_ context.Context, _ *model.Attempt, _ []model.Question) nlp.AttemptAnalysis {
	f.calls++
	return f.result
}
