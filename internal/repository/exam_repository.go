package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsis/opsis-backend/internal/model"
)

const examColumns = `id, title, COALESCE(description, ''), instructor_id, time_limit, published, settings, created_at, updated_at`

// ExamRepository handles exam data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

func scanExam(row pgx.Row) (*model.Exam, error) {
	e := &model.Exam{}
	err := row.Scan(&e.ID, &e.Title, &e.Description, &e.InstructorID, &e.TimeLimit,
		&e.Published, &e.Settings, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// GetByID retrieves an exam by its UUID.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	return scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE id = $1`, id))
}

// List returns one page of exams matching f, newest first, plus the total count.
func (r *ExamRepository) List(ctx context.Context, f model.ExamListFilter) ([]model.Exam, int, error) {
	var where whereClause
	if f.InstructorID != "" {
		where.add("instructor_id = $%d", f.InstructorID)
	}
	if f.PublishedOnly {
		where.addRaw("published")
	}

	// 1. Get total count
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM exams`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	// 2. Get paginated data
	args := append(where.args, f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams`+where.String()+
			` ORDER BY created_at DESC`+limitOffset(len(where.args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, 0, err
		}
		exams = append(exams, *e)
	}
	return exams, total, rows.Err()
}

// Create inserts a new exam.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return mapErr(r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, description, instructor_id, time_limit, published, settings)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.Description, e.InstructorID, e.TimeLimit, e.Published, []byte(e.Settings),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt))
}

// Update applies the set fields of patch and returns the stored exam.
func (r *ExamRepository) Update(ctx context.Context, id uuid.UUID, patch model.ExamPatch) (*model.Exam, error) {
	var set updateSet
	if patch.Title != nil {
		set.set("title", *patch.Title)
	}
	if patch.Description != nil {
		set.set("description", *patch.Description)
	}
	if patch.TimeLimit != nil {
		set.set("time_limit", *patch.TimeLimit)
	}
	if patch.Published != nil {
		set.set("published", *patch.Published)
	}
	if patch.Settings != nil {
		set.setExpr("settings = $%d::jsonb", []byte(patch.Settings))
	}
	if set.empty() {
		return r.GetByID(ctx, id)
	}
	query, args := set.build("exams", id, examColumns)
	return scanExam(r.pool.QueryRow(ctx, query, args...))
}
