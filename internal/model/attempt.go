package model

import (
	"encoding/json"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/nlp"
)

// AttemptStatus enumerates the attempt lifecycle.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptSubmitted  AttemptStatus = "submitted"
	AttemptGraded     AttemptStatus = "graded"
)

// Attempt is one user's run through an exam. Answers maps question ids to the raw
// answer value.
type Attempt struct {
	ID                uuid.UUID                  `json:"id"`
	UserID            string                     `json:"user_id"`
	ExamID            uuid.UUID                  `json:"exam_id"`
	StartedAt         time.Time                  `json:"started_at"`
	SubmittedAt       *time.Time                 `json:"submitted_at"`
	TimeLimit         *int                       `json:"time_limit"`
	Answers           map[string]json.RawMessage `json:"answers"`
	Score             *float64                   `json:"score"`
	Status            AttemptStatus              `json:"status"`
	PlagiarismScore   *float64                   `json:"plagiarism_score"`
	SentimentAnalysis *nlp.Sentiment             `json:"sentiment_analysis"`
	WritingQuality    *nlp.QualitySummary        `json:"writing_quality"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         time.Time                  `json:"updated_at"`
}

// Deadline returns when answer writes stop being accepted, or false when the attempt
// carries no time limit.
func (a *Attempt) Deadline(grace time.Duration) (time.Time, bool) {
	if a.TimeLimit == nil || *a.TimeLimit <= 0 {
		return time.Time{}, false
	}
	return a.StartedAt.Add(time.Duration(*a.TimeLimit)*time.Minute + grace), true
}

// TextAnswer returns the answer for questionID when it is a JSON string.
func (a *Attempt) TextAnswer(questionID string) (string, bool) {
	raw, ok := a.Answers[questionID]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// AttemptPatch lists the fields the attempt owner may change. Answers are merged into
// the stored map key by key.
type AttemptPatch struct {
	Answers map[string]json.RawMessage `json:"answers" binding:"omitempty"`
	Status  *AttemptStatus             `json:"status" binding:"omitempty,oneof=in_progress submitted"`
}

// Submits reports whether p moves the attempt to submitted.
func (p AttemptPatch) Submits() bool {
	return p.Status != nil && *p.Status == AttemptSubmitted
}

// AttemptUpdate is the storage-level change set for an attempt.
type AttemptUpdate struct {
	Answers     map[string]json.RawMessage
	Status      *AttemptStatus
	SubmittedAt *time.Time
	Score       *float64
	Analysis    *nlp.AttemptAnalysis
}

// GradeRequest is the payload for grading a submitted attempt.
type GradeRequest struct {
	Score *float64 `json:"score" binding:"required,min=0"`
}

// UserStats summarises a user's attempts.
type UserStats struct {
	TotalAttempts  int     `json:"totalAttempts"`
	AverageScore   float64 `json:"averageScore"`
	CompletedExams int     `json:"completedExams"`
	TimeSpent      int     `json:"timeSpent"` // seconds
}

// SummarizeAttempts builds UserStats. Completed exams are graded attempts with a score;
// their mean, rounded to two decimals, is the average. Time spent counts every
// submitted or graded attempt, an unlimited one as 60 minutes.
func SummarizeAttempts(attempts []Attempt) UserStats {
	stats := UserStats{TotalAttempts: len(attempts)}
	var total float64
	for _, a := range attempts {
		if a.Status == AttemptGraded && a.Score != nil {
			stats.CompletedExams++
			total += *a.Score
		}
		if a.Status == AttemptSubmitted || a.Status == AttemptGraded {
			limit := 60
			if a.TimeLimit != nil && *a.TimeLimit > 0 {
				limit = *a.TimeLimit
			}
			stats.TimeSpent += 60 * limit
		}
	}
	if stats.CompletedExams > 0 {
		stats.AverageScore = math.Round(total/float64(stats.CompletedExams)*100) / 100
	}
	return stats
}
