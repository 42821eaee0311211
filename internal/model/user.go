package model

import (
	"encoding/json"
	"strings"
	"time"
)

// Role is a user's platform role.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	}
	return false
}

// CanAuthor reports whether r may create exams and questions.
func (r Role) CanAuthor() bool {
	return r == RoleInstructor || r == RoleAdmin
}

// IdentitySource tells which kind of token produced an Identity.
type IdentitySource string

const (
	SourceLocal    IdentitySource = "local"
	SourceExternal IdentitySource = "external"
)

// Identity is the verified subject of a bearer token.
type Identity struct {
	UserID    string
	Email     string
	Role      Role
	Source    IdentitySource
	SessionID string
	ExpiresAt time.Time
	Profile   ExternalProfile
}

// ExternalProfile carries the profile claims of an externally issued token.
type ExternalProfile struct {
	FirstName       string
	LastName        string
	ProfileImageURL string
}

// User is a platform account.
type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	ProfileImageURL string          `json:"profile_image_url"`
	Role            Role            `json:"role"`
	PasswordHash    string          `json:"-"`
	Preferences     json.RawMessage `json:"preferences"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// LoginRequest is the payload for local authentication.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

// LoginResponse is returned after a successful login.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// UserPatch lists the profile fields a user may change. Nil fields are left as is.
type UserPatch struct {
	FirstName       *string         `json:"first_name" binding:"omitempty,max=255"`
	LastName        *string         `json:"last_name" binding:"omitempty,max=255"`
	ProfileImageURL *string         `json:"profile_image_url" binding:"omitempty,max=2048"`
	Preferences     json.RawMessage `json:"preferences" binding:"omitempty"`
}

// Fields returns the JSON names of the fields set on p.
func (p UserPatch) Fields() []string {
	var f []string
	if p.FirstName != nil {
		f = append(f, "first_name")
	}
	if p.LastName != nil {
		f = append(f, "last_name")
	}
	if p.ProfileImageURL != nil {
		f = append(f, "profile_image_url")
	}
	if p.Preferences != nil {
		f = append(f, "preferences")
	}
	return f
}
