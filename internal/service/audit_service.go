package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/opsis/opsis-backend/internal/metrics"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/rs/zerolog"
)

// ErrAuditFailed is returned when an audit entry could neither be stored nor queued.
var ErrAuditFailed = errors.New("audit entry could not be recorded")

// Auditor records completed state changes.
type Auditor interface {
	Record(ctx context.Context, actor, action, entityType, entityID string, metadata map[string]any) error
}

// AuditStore persists audit entries.
type AuditStore interface {
	Insert(ctx context.Context, e *model.AuditEntry) error
	List(ctx context.Context, f model.AuditFilter) ([]model.AuditEntry, int, error)
}

// AuditBuffer holds entries whose insert failed until a worker stores them.
type AuditBuffer interface {
	Push(ctx context.Context, entries ...model.AuditEntry) error
}

// AuditService is the append-only audit recorder.
type AuditService struct {
	store   AuditStore
	buffer  AuditBuffer
	metrics *metrics.Metrics
	log     zerolog.Logger
	now     func() time.Time
}

// NewAuditService creates a new AuditService.
func NewAuditService(store AuditStore, buffer AuditBuffer, m *metrics.Metrics, log zerolog.Logger) *AuditService {
	return &AuditService{
		store:   store,
		buffer:  buffer,
		metrics: m,
		log:     log.With().Str("component", "audit_service").Logger(),
		now:     time.Now,
	}
}

// Record inserts an entry synchronously. When the insert fails the entry is queued for
// the audit worker; an error is returned only if queueing fails too. The caller's
// state change is not rolled back in that case.
func (s *AuditService) Record(ctx context.Context, actor, action, entityType, entityID string, metadata map[string]any) error {
	if metadata == nil {
		metadata = map[string]any{}
	}
	entry := model.AuditEntry{
		UserID:     actor,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Metadata:   metadata,
		CreatedAt:  s.now().UTC(),
	}

	insertErr := s.store.Insert(ctx, &entry)
	if insertErr == nil {
		return nil
	}

	s.metrics.AuditFallbacks.Inc()
	s.log.Warn().Err(insertErr).
		Str("action", action).
		Str("entity_type", entityType).
		Str("entity_id", entityID).
		Msg("audit insert failed, queueing entry")

	if err := s.buffer.Push(ctx, entry); err != nil {
		s.log.Error().Err(err).
			Str("action", action).
			Str("entity_id", entityID).
			Msg("audit entry lost: queue push failed")
		return fmt.Errorf("%w: insert: %v; queue: %v", ErrAuditFailed, insertErr, err)
	}
	s.metrics.AuditQueued.Inc()
	return nil
}

// List returns one page of audit entries matching f, newest first.
func (s *AuditService) List(ctx context.Context, f model.AuditFilter, page, perPage int) ([]model.AuditEntry, *response.Pagination, error) {
	page, perPage = response.PageBounds(page, perPage)
	f.Limit = perPage
	f.Offset = (page - 1) * perPage

	entries, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, nil, fmt.Errorf("list audit entries: %w", err)
	}
	return entries, response.NewPagination(page, perPage, total), nil
}
