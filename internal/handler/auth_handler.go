package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opsis/opsis-backend/internal/middleware"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/validator"
	"github.com/rs/zerolog"
)

// Authenticator issues and revokes local sessions.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*model.LoginResponse, error)
	Logout(ctx context.Context, id *model.Identity) error
}

// ProfileUpdater changes the acting user's profile.
type ProfileUpdater interface {
	UpdateProfile(ctx context.Context, user *model.User, patch model.UserPatch) (*model.User, error)
}

// AuthHandler handles authentication and profile endpoints.
type AuthHandler struct {
	auth  Authenticator
	users ProfileUpdater
	log   zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth Authenticator, users ProfileUpdater, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:  auth,
		users: users,
		log:   log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/auth/login
// Authenticates a local account and returns a bearer token.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.LoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, resp)
}

// Logout godoc
// POST /api/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	id := middleware.GetIdentity(c)
	if id == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	if err := h.auth.Logout(c.Request.Context(), id); err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{})
}

// Me godoc
// GET /api/auth/user
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": user})
}

// UpdateProfile godoc
// PUT /api/auth/user
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	var patch model.UserPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	updated, err := h.users.UpdateProfile(c.Request.Context(), user, patch)
	if err != nil {
		failWith(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"user": updated})
}
