package policy

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/model"
)

var (
	admin     = Subject{UserID: "admin-1", Role: model.RoleAdmin}
	owner     = Subject{UserID: "inst-1", Role: model.RoleInstructor}
	otherInst = Subject{UserID: "inst-2", Role: model.RoleInstructor}
	student   = Subject{UserID: "stu-1", Role: model.RoleStudent}
	otherStu  = Subject{UserID: "stu-2", Role: model.RoleStudent}
)

func exam(published bool) *model.Exam {
	return &model.Exam{ID: uuid.New(), InstructorID: owner.UserID, Published: published}
}

func TestExamAccess(t *testing.T) {
	draft, live := exam(false), exam(true)

	tests := []struct {
		name   string
		check  func(Subject, *model.Exam) error
		s      Subject
		e      *model.Exam
		expect error
	}{
		{"owner reads draft", CanReadExam, owner, draft, nil},
		{"admin reads draft", CanReadExam, admin, draft, nil},
		{"student cannot see draft", CanReadExam, student, draft, ErrNotFound},
		{"other instructor cannot see draft", CanReadExam, otherInst, draft, ErrNotFound},
		{"student reads published", CanReadExam, student, live, nil},
		{"missing exam", CanReadExam, owner, nil, ErrNotFound},

		{"owner modifies", CanModifyExam, owner, draft, nil},
		{"admin modifies", CanModifyExam, admin, live, nil},
		{"student modify published is forbidden", CanModifyExam, student, live, ErrForbidden},
		{"other instructor modify published is forbidden", CanModifyExam, otherInst, live, ErrForbidden},
		{"other instructor modify draft is hidden", CanModifyExam, otherInst, draft, ErrNotFound},

		{"owner adds question", CanCreateQuestion, owner, draft, nil},
		{"student adds question to published", CanCreateQuestion, student, live, ErrForbidden},
		{"student adds question to draft", CanCreateQuestion, student, draft, ErrNotFound},

		{"student starts published", CanStartAttempt, student, live, nil},
		{"student starts draft", CanStartAttempt, student, draft, ErrNotFound},
		{"owner starts draft", CanStartAttempt, owner, draft, ErrNotPublished},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.check(tt.s, tt.e); !errors.Is(err, tt.expect) {
				t.Errorf("got %v, want %v", err, tt.expect)
			}
		})
	}
}

func TestCanCreateExam(t *testing.T) {
	for _, s := range []Subject{owner, admin} {
		if err := CanCreateExam(s); err != nil {
			t.Errorf("%s: %v", s.Role, err)
		}
	}
	if err := CanCreateExam(student); !errors.Is(err, ErrForbidden) {
		t.Errorf("student: %v", err)
	}
}

func TestCanSeeAnswers(t *testing.T) {
	live := exam(true)
	if !CanSeeAnswers(owner, live) || !CanSeeAnswers(admin, live) {
		t.Error("authors must see answers")
	}
	if CanSeeAnswers(student, live) {
		t.Error("students must not see answers")
	}
}

func TestAttemptAccess(t *testing.T) {
	e := exam(true)
	attempt := func(status model.AttemptStatus) *model.Attempt {
		return &model.Attempt{ID: uuid.New(), UserID: student.UserID, ExamID: e.ID, Status: status}
	}
	inProgress := attempt(model.AttemptInProgress)
	submitted := attempt(model.AttemptSubmitted)
	graded := attempt(model.AttemptGraded)

	type check func(Subject, *model.Attempt, *model.Exam) error
	tests := []struct {
		name   string
		check  check
		s      Subject
		a      *model.Attempt
		expect error
	}{
		{"owner reads", CanReadAttempt, student, inProgress, nil},
		{"exam owner reads", CanReadAttempt, owner, inProgress, nil},
		{"admin reads", CanReadAttempt, admin, inProgress, nil},
		{"other student hidden", CanReadAttempt, otherStu, inProgress, ErrNotFound},
		{"other instructor hidden", CanReadAttempt, otherInst, inProgress, ErrNotFound},
		{"missing attempt", CanReadAttempt, student, nil, ErrNotFound},

		{"owner modifies in progress", CanModifyAttempt, student, inProgress, nil},
		{"exam owner cannot modify", CanModifyAttempt, owner, inProgress, ErrForbidden},
		{"submitted is locked", CanModifyAttempt, student, submitted, ErrLocked},
		{"graded is locked", CanModifyAttempt, student, graded, ErrLocked},
		{"other student modify hidden", CanModifyAttempt, otherStu, inProgress, ErrNotFound},

		{"exam owner grades submitted", CanGradeAttempt, owner, submitted, nil},
		{"admin grades submitted", CanGradeAttempt, admin, submitted, nil},
		{"student cannot grade", CanGradeAttempt, student, submitted, ErrForbidden},
		{"graded is immutable", CanGradeAttempt, owner, graded, ErrLocked},
		{"in progress not gradable", CanGradeAttempt, owner, inProgress, ErrNotSubmitted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.check(tt.s, tt.a, e); !errors.Is(err, tt.expect) {
				t.Errorf("got %v, want %v", err, tt.expect)
			}
		})
	}
}

func TestCanReadAttemptWithoutExam(t *testing.T) {
	a := &model.Attempt{UserID: student.UserID, ExamID: uuid.New()}
	if err := CanReadAttempt(owner, a, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("instructor without exam context: %v", err)
	}
	mismatched := exam(true)
	if err := CanReadAttempt(owner, a, mismatched); !errors.Is(err, ErrNotFound) {
		t.Errorf("exam of another attempt: %v", err)
	}
}
