package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/service"
	"github.com/rs/zerolog"
)

const (
	// ContextKeyIdentity is the Gin context key for the verified token identity.
	ContextKeyIdentity = "identity"
	// ContextKeyUser is the Gin context key for the resolved user.
	ContextKeyUser = "user"
)

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*model.Identity, error)
}

// IdentityResolver loads or provisions the user behind an identity.
type IdentityResolver interface {
	Resolve(ctx context.Context, id *model.Identity) (*model.User, error)
}

// Authenticate verifies the bearer token, resolves its user and stores both in the
// Gin context. The token is read from the Authorization header, or from ?token= for
// EventSource and WebSocket clients that cannot send headers.
func Authenticate(verifier TokenVerifier, resolver IdentityResolver, log zerolog.Logger) gin.HandlerFunc {
	log = log.With().Str("component", "auth_middleware").Logger()

	return func(c *gin.Context) {
		tokenStr := BearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		identity, err := verifier.Verify(c.Request.Context(), tokenStr)
		if err != nil {
			abortAuth(c, log, err)
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), identity)
		if err != nil {
			abortAuth(c, log, err)
			return
		}

		c.Set(ContextKeyIdentity, identity)
		c.Set(ContextKeyUser, user)
		c.Next()
	}
}

func abortAuth(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrTokenExpired):
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenExpired)
	case errors.Is(err, service.ErrSessionRevoked):
		response.AbortFail(c, http.StatusUnauthorized, response.ErrSessionRevoked)
	case errors.Is(err, service.ErrTokenInvalid), errors.Is(err, service.ErrExternalDisabled):
		response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenInvalid)
	case errors.Is(err, service.ErrIdentityConflict):
		log.Warn().Err(err).Msg("External identity collides with an existing account")
		response.AbortFail(c, http.StatusConflict, response.ErrIdentityConflict)
	default:
		log.Error().Err(err).Msg("Authentication failed")
		response.AbortFail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// BearerToken extracts the token from the Authorization header or the token query
// parameter.
func BearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}
	return c.Query("token")
}

// GetIdentity retrieves the verified identity from the Gin context.
func GetIdentity(c *gin.Context) *model.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	id, _ := val.(*model.Identity)
	return id
}

// GetUser retrieves the resolved user from the Gin context.
func GetUser(c *gin.Context) *model.User {
	val, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, _ := val.(*model.User)
	return user
}

// GetSubject returns the policy subject of the authenticated user. ok is false when
// the request was not authenticated.
func GetSubject(c *gin.Context) (policy.Subject, bool) {
	user := GetUser(c)
	if user == nil {
		return policy.Subject{}, false
	}
	return policy.SubjectOf(user), true
}
