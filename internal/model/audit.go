package model

import "time"

// Audited actions.
const (
	ActionCreateExam     = "create_exam"
	ActionUpdateExam     = "update_exam"
	ActionCreateQuestion = "create_question"
	ActionUpdateQuestion = "update_question"
	ActionStartAttempt   = "start_attempt"
	ActionUpdateAttempt  = "update_attempt"
	ActionGradeAttempt   = "grade_attempt"
	ActionUpdateProfile  = "update_profile"
	ActionCreateUser     = "create_user"
)

// Audited entity types.
const (
	EntityUser     = "user"
	EntityExam     = "exam"
	EntityQuestion = "question"
	EntityAttempt  = "attempt"
)

// AuditEntry is an append-only record of a completed state change.
type AuditEntry struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
}

// AuditFilter narrows an audit listing. Empty fields match everything.
type AuditFilter struct {
	UserID     string `form:"user_id"`
	Action     string `form:"action"`
	EntityType string `form:"entity_type"`
	EntityID   string `form:"entity_id"`
	Limit      int    `form:"-"`
	Offset     int    `form:"-"`
}
