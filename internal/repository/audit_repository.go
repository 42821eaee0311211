package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsis/opsis-backend/internal/model"
)

// AuditRepository appends and lists audit entries. The table rejects UPDATE and DELETE.
type AuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// Insert appends one entry, filling its id and, when zero, its timestamp.
func (r *AuditRepository) Insert(ctx context.Context, e *model.AuditEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO audit_logs (user_id, action, entity_type, entity_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id`,
		e.UserID, e.Action, e.EntityType, e.EntityID, metadataOf(e), e.CreatedAt,
	).Scan(&e.ID)
}

// BulkInsert appends entries with a single COPY.
func (r *AuditRepository) BulkInsert(ctx context.Context, entries []model.AuditEntry) error {
	_, err := r.pool.CopyFrom(ctx,
		pgx.Identifier{"audit_logs"},
		[]string{"user_id", "action", "entity_type", "entity_id", "metadata", "created_at"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := &entries[i]
			createdAt := e.CreatedAt
			if createdAt.IsZero() {
				createdAt = time.Now().UTC()
			}
			return []any{e.UserID, e.Action, e.EntityType, e.EntityID, metadataOf(e), createdAt}, nil
		}),
	)
	return err
}

// List returns one page of entries matching f, newest first, plus the total count.
func (r *AuditRepository) List(ctx context.Context, f model.AuditFilter) ([]model.AuditEntry, int, error) {
	var where whereClause
	if f.UserID != "" {
		where.add("user_id = $%d", f.UserID)
	}
	if f.Action != "" {
		where.add("action = $%d", f.Action)
	}
	if f.EntityType != "" {
		where.add("entity_type = $%d", f.EntityType)
	}
	if f.EntityID != "" {
		where.add("entity_id = $%d", f.EntityID)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args := append(where.args, f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, action, entity_type, entity_id, metadata, created_at
		 FROM audit_logs`+where.String()+` ORDER BY created_at DESC, id DESC`+limitOffset(len(where.args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.AuditEntry{}
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.EntityType, &e.EntityID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func metadataOf(e *model.AuditEntry) map[string]any {
	if e.Metadata == nil {
		return map[string]any{}
	}
	return e.Metadata
}
