package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/validator"
	"github.com/rs/zerolog"
)

// AuditLister pages through audit entries.
type AuditLister interface {
	List(ctx context.Context, f model.AuditFilter, page, perPage int) ([]model.AuditEntry, *response.Pagination, error)
}

// AuditHandler exposes the audit trail to admins.
type AuditHandler struct {
	audit AuditLister
	log   zerolog.Logger
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(audit AuditLister, log zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		audit: audit,
		log:   log.With().Str("component", "audit_handler").Logger(),
	}
}

// ListAudit godoc
// GET /api/audit
// Filters: user_id, action, entity_type, entity_id. Newest first.
func (h *AuditHandler) ListAudit(c *gin.Context) {
	var f model.AuditFilter
	if fields := validator.BindQuery(c, &f); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	page, perPage := pageParams(c)
	entries, pagination, err := h.audit.List(c.Request.Context(), f, page, perPage)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, gin.H{"entries": entries}, pagination)
}
