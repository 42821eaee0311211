// Package policy decides whether a subject may act on exams, questions and attempts.
//
// Entities the subject may not read are reported as ErrNotFound so that their
// existence is not revealed. Entities the subject may read but not change are
// reported as ErrForbidden.
package policy

import (
	"errors"

	"github.com/opsis/opsis-backend/internal/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrForbidden    = errors.New("forbidden")
	ErrLocked       = errors.New("attempt is no longer editable")
	ErrNotSubmitted = errors.New("attempt has not been submitted")
	ErrNotPublished = errors.New("exam is not published")
)

// Subject is the acting user.
type Subject struct {
	UserID string
	Role   model.Role
}

// SubjectOf builds a Subject from a resolved user.
func SubjectOf(u *model.User) Subject {
	return Subject{UserID: u.ID, Role: u.Role}
}

// IsAdmin reports whether s bypasses ownership checks.
func (s Subject) IsAdmin() bool { return s.Role == model.RoleAdmin }

func (s Subject) owns(e *model.Exam) bool { return e.InstructorID == s.UserID }

// CanCreateExam requires an instructor or admin.
func CanCreateExam(s Subject) error {
	if !s.Role.CanAuthor() {
		return ErrForbidden
	}
	return nil
}

// CanReadExam allows the owner, admins, and anyone once the exam is published.
func CanReadExam(s Subject, e *model.Exam) error {
	if e == nil {
		return ErrNotFound
	}
	if s.IsAdmin() || s.owns(e) || e.Published {
		return nil
	}
	return ErrNotFound
}

// CanModifyExam allows the owner and admins. Questions follow their exam.
func CanModifyExam(s Subject, e *model.Exam) error {
	if err := CanReadExam(s, e); err != nil {
		return err
	}
	if s.IsAdmin() || s.owns(e) {
		return nil
	}
	return ErrForbidden
}

// CanCreateQuestion requires an author who may modify the target exam.
func CanCreateQuestion(s Subject, e *model.Exam) error {
	if err := CanReadExam(s, e); err != nil {
		return err
	}
	if err := CanCreateExam(s); err != nil {
		return err
	}
	return CanModifyExam(s, e)
}

// CanSeeAnswers reports whether correct answers of e's questions are visible to s.
func CanSeeAnswers(s Subject, e *model.Exam) bool {
	return CanModifyExam(s, e) == nil
}

// CanStartAttempt requires a readable, published exam.
func CanStartAttempt(s Subject, e *model.Exam) error {
	if err := CanReadExam(s, e); err != nil {
		return err
	}
	if !e.Published {
		return ErrNotPublished
	}
	return nil
}

// CanReadAttempt allows the attempt owner, admins and the owner of the attempt's exam.
// exam may be nil when it is unknown.
func CanReadAttempt(s Subject, a *model.Attempt, exam *model.Exam) error {
	if a == nil {
		return ErrNotFound
	}
	if s.IsAdmin() || a.UserID == s.UserID {
		return nil
	}
	if exam != nil && exam.ID == a.ExamID && s.owns(exam) {
		return nil
	}
	return ErrNotFound
}

// CanModifyAttempt allows the attempt owner and admins while the attempt is in progress.
func CanModifyAttempt(s Subject, a *model.Attempt, exam *model.Exam) error {
	if err := CanReadAttempt(s, a, exam); err != nil {
		return err
	}
	if !s.IsAdmin() && a.UserID != s.UserID {
		return ErrForbidden
	}
	if a.Status != model.AttemptInProgress {
		return ErrLocked
	}
	return nil
}

// CanGradeAttempt allows the exam owner and admins to grade a submitted attempt.
func CanGradeAttempt(s Subject, a *model.Attempt, exam *model.Exam) error {
	if err := CanReadAttempt(s, a, exam); err != nil {
		return err
	}
	if !s.IsAdmin() && (exam == nil || !s.owns(exam)) {
		return ErrForbidden
	}
	switch a.Status {
	case model.AttemptGraded:
		return ErrLocked
	case model.AttemptInProgress:
		return ErrNotSubmitted
	}
	return nil
}
