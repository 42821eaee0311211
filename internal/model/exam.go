package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Exam is an assessment authored by an instructor.
type Exam struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	InstructorID string          `json:"instructor_id"`
	TimeLimit    *int            `json:"time_limit"` // minutes
	Published    bool            `json:"published"`
	Settings     json.RawMessage `json:"settings"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title       string          `json:"title" binding:"required,min=1,max=255"`
	Description string          `json:"description" binding:"omitempty,max=5000"`
	TimeLimit   *int            `json:"time_limit" binding:"omitempty,min=1,max=1440"`
	Published   bool            `json:"published"`
	Settings    json.RawMessage `json:"settings" binding:"omitempty"`
}

// ExamPatch lists the mutable exam fields. Nil fields are left as is.
type ExamPatch struct {
	Title       *string         `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string         `json:"description" binding:"omitempty,max=5000"`
	TimeLimit   *int            `json:"time_limit" binding:"omitempty,min=1,max=1440"`
	Published   *bool           `json:"published"`
	Settings    json.RawMessage `json:"settings" binding:"omitempty"`
}

// Fields returns the JSON names of the fields set on p.
func (p ExamPatch) Fields() []string {
	var f []string
	if p.Title != nil {
		f = append(f, "title")
	}
	if p.Description != nil {
		f = append(f, "description")
	}
	if p.TimeLimit != nil {
		f = append(f, "time_limit")
	}
	if p.Published != nil {
		f = append(f, "published")
	}
	if p.Settings != nil {
		f = append(f, "settings")
	}
	return f
}

// Apply copies the set fields of p onto e.
func (p ExamPatch) Apply(e *Exam) {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.TimeLimit != nil {
		e.TimeLimit = p.TimeLimit
	}
	if p.Published != nil {
		e.Published = *p.Published
	}
	if p.Settings != nil {
		e.Settings = p.Settings
	}
}

// ExamListFilter scopes an exam listing.
type ExamListFilter struct {
	InstructorID  string // empty = any
	PublishedOnly bool
	Limit         int
	Offset        int
}
