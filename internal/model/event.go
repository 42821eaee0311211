package model

import (
	"time"

	"github.com/google/uuid"
)

// Event types published on Redis.
const (
	EventExamUpdated      = "exam_updated"
	EventAttemptStarted   = "attempt_started"
	EventAttemptSubmitted = "attempt_submitted"
	EventAttemptGraded    = "attempt_graded"
)

// ExamEvent is the payload published on an exam's event and monitor channels.
type ExamEvent struct {
	Type      string    `json:"type"`
	ExamID    uuid.UUID `json:"exam_id"`
	UserID    string    `json:"user_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
