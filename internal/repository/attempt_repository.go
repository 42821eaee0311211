package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsis/opsis-backend/internal/model"
)

const attemptColumns = `id, user_id, exam_id, started_at, submitted_at, time_limit, answers, score, status,
	plagiarism_score, sentiment_analysis, writing_quality, created_at, updated_at`

// AttemptRepository handles attempt data access.
type AttemptRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptRepository creates a new AttemptRepository.
func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{pool: pool}
}

func scanAttempt(row pgx.Row) (*model.Attempt, error) {
	a := &model.Attempt{}
	err := row.Scan(&a.ID, &a.UserID, &a.ExamID, &a.StartedAt, &a.SubmittedAt, &a.TimeLimit,
		&a.Answers, &a.Score, &a.Status, &a.PlagiarismScore, &a.SentimentAnalysis,
		&a.WritingQuality, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	if a.Answers == nil {
		a.Answers = map[string]json.RawMessage{}
	}
	return a, nil
}

func collectAttempts(rows pgx.Rows) ([]model.Attempt, error) {
	defer rows.Close()
	attempts := []model.Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

// GetByID retrieves an attempt by its UUID.
func (r *AttemptRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE id = $1`, id))
}

// GetActive retrieves the in-progress attempt of a user for an exam.
func (r *AttemptRepository) GetActive(ctx context.Context, userID string, examID uuid.UUID) (*model.Attempt, error) {
	return scanAttempt(r.pool.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM attempts
		 WHERE user_id = $1 AND exam_id = $2 AND status = 'in_progress'`, userID, examID))
}

// Create inserts a new in-progress attempt. A concurrent start for the same
// (user, exam) fails with ErrDuplicate.
func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	a.Status = model.AttemptInProgress
	if a.Answers == nil {
		a.Answers = map[string]json.RawMessage{}
	}
	return mapErr(r.pool.QueryRow(ctx,
		`INSERT INTO attempts (user_id, exam_id, time_limit, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, started_at, created_at, updated_at`,
		a.UserID, a.ExamID, a.TimeLimit, a.Status,
	).Scan(&a.ID, &a.StartedAt, &a.CreatedAt, &a.UpdatedAt))
}

// Update applies upd and returns the stored attempt. Answers are merged key by key.
func (r *AttemptRepository) Update(ctx context.Context, id uuid.UUID, upd model.AttemptUpdate) (*model.Attempt, error) {
	var set updateSet
	if len(upd.Answers) > 0 {
		set.setExpr("answers = answers || $%d::jsonb", upd.Answers)
	}
	if upd.Status != nil {
		set.set("status", *upd.Status)
	}
	if upd.SubmittedAt != nil {
		set.set("submitted_at", *upd.SubmittedAt)
	}
	if upd.Score != nil {
		set.set("score", *upd.Score)
	}
	if upd.Analysis != nil {
		set.set("plagiarism_score", upd.Analysis.PlagiarismScore)
		set.setExpr("sentiment_analysis = $%d::jsonb", upd.Analysis.SentimentAnalysis)
		set.setExpr("writing_quality = $%d::jsonb", upd.Analysis.WritingQuality)
	}
	if set.empty() {
		return r.GetByID(ctx, id)
	}
	query, args := set.build("attempts", id, attemptColumns)
	return scanAttempt(r.pool.QueryRow(ctx, query, args...))
}

// ListByUser returns a user's attempts, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID string) ([]model.Attempt, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE user_id = $1 ORDER BY started_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	return collectAttempts(rows)
}

// ListByExam returns one page of an exam's attempts, newest first, plus the total count.
func (r *AttemptRepository) ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.Attempt, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM attempts WHERE exam_id = $1`, examID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE exam_id = $1
		 ORDER BY started_at DESC`+limitOffset(1), examID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	attempts, err := collectAttempts(rows)
	return attempts, total, err
}

// Stats summarises a user's attempts with model.SummarizeAttempts.
func (r *AttemptRepository) Stats(ctx context.Context, userID string) (model.UserStats, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, score, time_limit FROM attempts WHERE user_id = $1`, userID)
	if err != nil {
		return model.UserStats{}, err
	}
	defer rows.Close()

	var attempts []model.Attempt
	for rows.Next() {
		var a model.Attempt
		if err := rows.Scan(&a.Status, &a.Score, &a.TimeLimit); err != nil {
			return model.UserStats{}, err
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return model.UserStats{}, err
	}
	return model.SummarizeAttempts(attempts), nil
}

// PeerAnswers returns the text answers other finished attempts gave to questionID.
func (r *AttemptRepository) PeerAnswers(ctx context.Context, examID uuid.UUID, questionID string, exclude uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT answers->>$2 FROM attempts
		 WHERE exam_id = $1 AND id <> $3
		   AND status IN ('submitted', 'graded')
		   AND jsonb_typeof(answers->$2) = 'string'`,
		examID, questionID, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		if s != "" {
			answers = append(answers, s)
		}
	}
	return answers, rows.Err()
}
