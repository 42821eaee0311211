package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/repository"
)

var (
	// ErrInvalidPreferences is returned when preferences are not a JSON object.
	ErrInvalidPreferences = errors.New("preferences must be a JSON object")
	// ErrIdentityConflict is returned when an external identity carries an email that
	// already belongs to another account.
	ErrIdentityConflict = errors.New("email already belongs to another account")
)

// UserService resolves identities to users and manages profiles.
type UserService struct {
	users       UserStore
	audit       Auditor
	defaultRole model.Role
}

// NewUserService creates a new UserService. External users without a role claim are
// created with defaultRole.
func NewUserService(users UserStore, audit Auditor, defaultRole model.Role) *UserService {
	if !defaultRole.Valid() {
		defaultRole = model.RoleStudent
	}
	return &UserService{users: users, audit: audit, defaultRole: defaultRole}
}

// Resolve loads the user behind a verified identity. External identities are created
// on first sight and have their profile refreshed afterwards.
func (s *UserService) Resolve(ctx context.Context, id *model.Identity) (*model.User, error) {
	if id.Source == model.SourceExternal {
		role := id.Role
		if role == "" {
			role = s.defaultRole
		}
		user, err := s.users.UpsertExternal(ctx, &model.User{
			ID:              id.UserID,
			Email:           id.Email,
			FirstName:       id.Profile.FirstName,
			LastName:        id.Profile.LastName,
			ProfileImageURL: id.Profile.ProfileImageURL,
			Role:            role,
		})
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrIdentityConflict, id.Email)
		}
		if err != nil {
			return nil, fmt.Errorf("upsert external user: %w", err)
		}
		return user, nil
	}

	user, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return user, nil
}

// UpdateProfile applies patch to the acting user's profile.
func (s *UserService) UpdateProfile(ctx context.Context, user *model.User, patch model.UserPatch) (*model.User, error) {
	if patch.Preferences != nil && !isJSONObject(patch.Preferences) {
		return nil, ErrInvalidPreferences
	}

	updated, err := s.users.Update(ctx, user.ID, patch)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if err := s.audit.Record(ctx, user.ID, model.ActionUpdateProfile, model.EntityUser, user.ID,
		map[string]any{"fields": patch.Fields()}); err != nil {
		return nil, err
	}
	return updated, nil
}

func isJSONObject(raw json.RawMessage) bool {
	var obj map[string]json.RawMessage
	return json.Unmarshal(raw, &obj) == nil && obj != nil
}
