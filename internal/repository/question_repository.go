package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsis/opsis-backend/internal/model"
)

const questionColumns = `id, exam_id, type, content, correct_answer, points, "order",
	difficulty_score, readability_score, keywords, created_at, updated_at`

// QuestionRepository handles question data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

func scanQuestion(row pgx.Row) (*model.Question, error) {
	q := &model.Question{}
	err := row.Scan(&q.ID, &q.ExamID, &q.Type, &q.Content, &q.CorrectAnswer, &q.Points, &q.Order,
		&q.DifficultyScore, &q.ReadabilityScore, &q.Keywords, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return q, nil
}

// GetByID retrieves a question by its UUID.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	return scanQuestion(r.pool.QueryRow(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE id = $1`, id))
}

// ListByExam retrieves all questions for a given exam, ordered by "order".
func (r *QuestionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.Question, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+questionColumns+` FROM questions WHERE exam_id = $1 ORDER BY "order", created_at`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions := []model.Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// Create inserts a new question.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	if q.Keywords == nil {
		q.Keywords = []string{}
	}
	return mapErr(r.pool.QueryRow(ctx,
		`INSERT INTO questions (exam_id, type, content, correct_answer, points, "order",
		                        difficulty_score, readability_score, keywords)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		q.ExamID, q.Type, []byte(q.Content), nullJSON(q.CorrectAnswer), q.Points, q.Order,
		q.DifficultyScore, q.ReadabilityScore, q.Keywords,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt))
}

// Update applies the set fields of patch, plus fresh text analysis when analysis is
// non-nil, and returns the stored question.
func (r *QuestionRepository) Update(ctx context.Context, id uuid.UUID, patch model.QuestionPatch, analysis *model.QuestionAnalysis) (*model.Question, error) {
	var set updateSet
	if patch.Type != nil {
		set.set("type", *patch.Type)
	}
	if patch.Content != nil {
		set.setExpr("content = $%d::jsonb", []byte(patch.Content))
	}
	if patch.CorrectAnswer != nil {
		set.setExpr("correct_answer = $%d::jsonb", nullJSON(patch.CorrectAnswer))
	}
	if patch.Points != nil {
		set.set("points", *patch.Points)
	}
	if patch.Order != nil {
		set.set(`"order"`, *patch.Order)
	}
	if analysis != nil {
		set.set("difficulty_score", analysis.DifficultyScore)
		set.set("readability_score", analysis.ReadabilityScore)
		kw := analysis.Keywords
		if kw == nil {
			kw = []string{}
		}
		set.set("keywords", kw)
	}
	if set.empty() {
		return r.GetByID(ctx, id)
	}
	query, args := set.build("questions", id, questionColumns)
	return scanQuestion(r.pool.QueryRow(ctx, query, args...))
}

// nullJSON maps an absent or JSON null value to SQL NULL.
func nullJSON(raw []byte) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}
