package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/opsis/opsis-backend/internal/model"
)

const userColumns = `id, COALESCE(email, ''), COALESCE(first_name, ''), COALESCE(last_name, ''),
	COALESCE(profile_image_url, ''), role, COALESCE(password_hash, ''), preferences, created_at, updated_at`

// UserRepository handles user data access.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName,
		&u.ProfileImageURL, &u.Role, &u.PasswordHash, &u.Preferences, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return u, nil
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, email))
}

// Create inserts a new user. The caller assigns the id.
func (r *UserRepository) Create(ctx context.Context, u *model.User) error {
	prefs := u.Preferences
	if len(prefs) == 0 {
		prefs = []byte(`{}`)
	}
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (id, email, first_name, last_name, profile_image_url, role, password_hash, preferences)
		 VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, NULLIF($7, ''), $8)
		 RETURNING preferences, created_at, updated_at`,
		u.ID, u.Email, u.FirstName, u.LastName, u.ProfileImageURL, u.Role, u.PasswordHash, prefs,
	).Scan(&u.Preferences, &u.CreatedAt, &u.UpdatedAt)
	return mapErr(err)
}

// UpsertExternal creates an externally authenticated user on first sight and refreshes
// the profile fields the token carries on later logins. The stored role is kept and an
// unchanged row is read without being written. An email owned by another user yields
// ErrDuplicate.
func (r *UserRepository) UpsertExternal(ctx context.Context, u *model.User) (*model.User, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`WITH upserted AS (
		     INSERT INTO users (id, email, first_name, last_name, profile_image_url, role)
		     VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		     ON CONFLICT (id) DO UPDATE SET
		         email             = COALESCE(EXCLUDED.email, users.email),
		         first_name        = COALESCE(EXCLUDED.first_name, users.first_name),
		         last_name         = COALESCE(EXCLUDED.last_name, users.last_name),
		         profile_image_url = COALESCE(EXCLUDED.profile_image_url, users.profile_image_url),
		         updated_at        = NOW()
		     WHERE (users.email, users.first_name, users.last_name, users.profile_image_url)
		           IS DISTINCT FROM
		           (COALESCE(EXCLUDED.email, users.email),
		            COALESCE(EXCLUDED.first_name, users.first_name),
		            COALESCE(EXCLUDED.last_name, users.last_name),
		            COALESCE(EXCLUDED.profile_image_url, users.profile_image_url))
		     RETURNING *
		 )
		 SELECT `+userColumns+` FROM upserted
		 UNION ALL
		 SELECT `+userColumns+` FROM users
		 WHERE id = $1 AND NOT EXISTS (SELECT 1 FROM upserted)`,
		u.ID, u.Email, u.FirstName, u.LastName, u.ProfileImageURL, u.Role,
	))
}

// Update applies the set fields of patch and returns the stored user.
func (r *UserRepository) Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error) {
	var set updateSet
	if patch.FirstName != nil {
		set.set("first_name", *patch.FirstName)
	}
	if patch.LastName != nil {
		set.set("last_name", *patch.LastName)
	}
	if patch.ProfileImageURL != nil {
		set.set("profile_image_url", *patch.ProfileImageURL)
	}
	if patch.Preferences != nil {
		set.setExpr("preferences = $%d::jsonb", []byte(patch.Preferences))
	}
	if set.empty() {
		return r.GetByID(ctx, id)
	}
	query, args := set.build("users", id, userColumns)
	return scanUser(r.pool.QueryRow(ctx, query, args...))
}

// UpdatePassword replaces a user's password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`,
		passwordHash, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
