package service

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/config"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Common auth errors.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrExternalDisabled   = errors.New("external identity tokens are not accepted")
)

// Claims are carried by both locally issued and external tokens. The profile fields
// are only read from external tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email           string `json:"email,omitempty"`
	Role            string `json:"role,omitempty"`
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	ProfileImageURL string `json:"profile_image_url,omitempty"`
}

// SessionStore tracks live local sessions.
type SessionStore interface {
	Create(ctx context.Context, userID, jti string, ttl time.Duration) error
	Exists(ctx context.Context, userID, jti string) (bool, error)
	Delete(ctx context.Context, userID, jti string) error
}

// UserStore is the user persistence used by authentication and profile handling.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	UpsertExternal(ctx context.Context, u *model.User) (*model.User, error)
	Update(ctx context.Context, id string, patch model.UserPatch) (*model.User, error)
}

// AuthService verifies bearer tokens and issues local ones.
type AuthService struct {
	cfg         *config.Config
	sessions    SessionStore
	users       UserStore
	externalKey *rsa.PublicKey
	now         func() time.Time
}

// NewAuthService creates a new AuthService. It fails when EXTERNAL_JWT_PUBLIC_KEY is
// set but is not an RSA public key in PEM form.
func NewAuthService(cfg *config.Config, sessions SessionStore, users UserStore) (*AuthService, error) {
	s := &AuthService{cfg: cfg, sessions: sessions, users: users, now: time.Now}
	if cfg.ExternalJWTPublicKey != "" {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(cfg.ExternalJWTPublicKey))
		if err != nil {
			return nil, fmt.Errorf("parse external public key: %w", err)
		}
		s.externalKey = key
	}
	return s, nil
}

// HashPassword hashes a password with the configured bcrypt cost.
func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	return string(hash), err
}

// CheckPassword compares a plaintext password against a bcrypt hash.
func (s *AuthService) CheckPassword(hash, password string) error {
	if hash == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// Login checks local credentials and issues a token.
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.LoginResponse, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.CheckPassword(user.PasswordHash, password); err != nil {
		return nil, err
	}

	token, expiresAt, err := s.IssueToken(ctx, user)
	if err != nil {
		return nil, err
	}
	return &model.LoginResponse{Token: token, ExpiresAt: expiresAt, User: *user}, nil
}

// IssueToken signs an HS256 token for user and registers its session.
func (s *AuthService) IssueToken(ctx context.Context, user *model.User) (string, time.Time, error) {
	jti := uuid.New().String()
	now := s.now()
	expiresAt := now.Add(s.cfg.JWTExpiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Role:  string(user.Role),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}

	// Session lives exactly as long as the token.
	if err := s.sessions.Create(ctx, user.ID, jti, s.cfg.JWTExpiry); err != nil {
		return "", time.Time{}, fmt.Errorf("store session: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks a bearer token and returns its identity. Locally issued tokens must
// also have a live session. Verify never creates or changes users.
func (s *AuthService) Verify(ctx context.Context, tokenStr string) (*model.Identity, error) {
	if tokenStr == "" {
		return nil, ErrTokenInvalid
	}
	unverified, _, err := jwt.NewParser().ParseUnverified(tokenStr, &Claims{})
	if err != nil {
		return nil, ErrTokenInvalid
	}

	switch unverified.Method.(type) {
	case *jwt.SigningMethodHMAC:
		return s.verifyLocal(ctx, tokenStr)
	case *jwt.SigningMethodRSA:
		return s.verifyExternal(tokenStr)
	default:
		return nil, ErrTokenInvalid
	}
}

func (s *AuthService) verifyLocal(ctx context.Context, tokenStr string) (*model.Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWTSecret), nil
	}, s.parserOptions(jwt.SigningMethodHS256.Alg())...)
	if err != nil {
		return nil, tokenError(err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrTokenInvalid
	}

	live, err := s.sessions.Exists(ctx, claims.Subject, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check session: %w", err)
	}
	if !live {
		return nil, ErrSessionRevoked
	}

	return &model.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      model.Role(claims.Role),
		Source:    model.SourceLocal,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *AuthService) verifyExternal(tokenStr string) (*model.Identity, error) {
	if s.externalKey == nil {
		return nil, ErrExternalDisabled
	}

	opts := s.parserOptions(jwt.SigningMethodRS256.Alg())
	if s.cfg.ExternalJWTIssuer != "" {
		opts = append(opts, jwt.WithIssuer(s.cfg.ExternalJWTIssuer))
	}
	if s.cfg.ExternalJWTAudience != "" {
		opts = append(opts, jwt.WithAudience(s.cfg.ExternalJWTAudience))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.externalKey, nil
	}, opts...)
	if err != nil {
		return nil, tokenError(err)
	}
	if claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	role := model.Role(claims.Role)
	if !role.Valid() {
		role = ""
	}
	return &model.Identity{
		UserID:    claims.Subject,
		Email:     claims.Email,
		Role:      role,
		Source:    model.SourceExternal,
		SessionID: claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
		Profile: model.ExternalProfile{
			FirstName:       claims.FirstName,
			LastName:        claims.LastName,
			ProfileImageURL: claims.ProfileImageURL,
		},
	}, nil
}

func (s *AuthService) parserOptions(alg string) []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{alg}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
}

func tokenError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return ErrTokenExpired
	}
	return ErrTokenInvalid
}

// Logout revokes the session behind a local identity. It is a no-op for external
// identities and for sessions that are already gone.
func (s *AuthService) Logout(ctx context.Context, id *model.Identity) error {
	if id == nil || id.Source != model.SourceLocal {
		return nil
	}
	return s.sessions.Delete(ctx, id.UserID, id.SessionID)
}
