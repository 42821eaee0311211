package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported item formats.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "multiple_choice"
	QuestionTypeTrueFalse      QuestionType = "true_false"
	QuestionTypeShortAnswer    QuestionType = "short_answer"
	QuestionTypeEssay          QuestionType = "essay"
)

// FreeText reports whether answers to this type are analysed as prose.
func (t QuestionType) FreeText() bool {
	return t == QuestionTypeEssay || t == QuestionTypeShortAnswer
}

// Question is a single exam item. Content is a JSON object; its "text" key holds the
// prompt and "options" the choices for multiple choice items.
type Question struct {
	ID               uuid.UUID       `json:"id"`
	ExamID           uuid.UUID       `json:"exam_id"`
	Type             QuestionType    `json:"type"`
	Content          json.RawMessage `json:"content"`
	CorrectAnswer    json.RawMessage `json:"correct_answer,omitempty"`
	Points           int             `json:"points"`
	Order            int             `json:"order"`
	DifficultyScore  *float64        `json:"difficulty_score"`
	ReadabilityScore *float64        `json:"readability_score"`
	Keywords         []string        `json:"keywords"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Text returns the prompt stored under content.text, or "".
func (q *Question) Text() string {
	return ContentText(q.Content)
}

// ContentText extracts the "text" key of a question content object.
func ContentText(content json.RawMessage) string {
	var c struct {
		Text string `json:"text"`
	}
	if len(content) == 0 || json.Unmarshal(content, &c) != nil {
		return ""
	}
	return c.Text
}

// CreateQuestionRequest is the payload for adding a question to an exam.
type CreateQuestionRequest struct {
	ExamID        uuid.UUID       `json:"exam_id" binding:"required"`
	Type          QuestionType    `json:"type" binding:"required,oneof=multiple_choice true_false short_answer essay"`
	Content       json.RawMessage `json:"content" binding:"required"`
	CorrectAnswer json.RawMessage `json:"correct_answer" binding:"omitempty"`
	Points        *int            `json:"points" binding:"omitempty,min=0,max=1000"`
	Order         int             `json:"order" binding:"min=0"`
}

// QuestionPatch lists the mutable question fields. Nil fields are left as is.
type QuestionPatch struct {
	Type          *QuestionType   `json:"type" binding:"omitempty,oneof=multiple_choice true_false short_answer essay"`
	Content       json.RawMessage `json:"content" binding:"omitempty"`
	CorrectAnswer json.RawMessage `json:"correct_answer" binding:"omitempty"`
	Points        *int            `json:"points" binding:"omitempty,min=0,max=1000"`
	Order         *int            `json:"order" binding:"omitempty,min=0"`
}

// Fields returns the JSON names of the fields set on p.
func (p QuestionPatch) Fields() []string {
	var f []string
	if p.Type != nil {
		f = append(f, "type")
	}
	if p.Content != nil {
		f = append(f, "content")
	}
	if p.CorrectAnswer != nil {
		f = append(f, "correct_answer")
	}
	if p.Points != nil {
		f = append(f, "points")
	}
	if p.Order != nil {
		f = append(f, "order")
	}
	return f
}

// QuestionAnalysis holds the derived text metrics stored on a question.
type QuestionAnalysis struct {
	DifficultyScore  float64
	ReadabilityScore float64
	Keywords         []string
}
