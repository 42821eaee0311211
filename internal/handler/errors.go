package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/opsis/opsis-backend/internal/middleware"
	"github.com/opsis/opsis-backend/internal/model"
	"github.com/opsis/opsis-backend/internal/policy"
	"github.com/opsis/opsis-backend/internal/repository"
	"github.com/opsis/opsis-backend/internal/response"
	"github.com/opsis/opsis-backend/internal/service"
	"github.com/opsis/opsis-backend/internal/speech"
	"github.com/rs/zerolog"
)

// failWith translates a service error into the response envelope. Unexpected errors
// are logged and reported as 500.
func failWith(c *gin.Context, log zerolog.Logger, err error) {
	switch {
	case errors.Is(err, policy.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, policy.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, policy.ErrLocked):
		response.Fail(c, http.StatusConflict, response.ErrAttemptLocked)
	case errors.Is(err, policy.ErrNotSubmitted):
		response.Fail(c, http.StatusConflict, response.ErrAttemptNotSubmitted)
	case errors.Is(err, policy.ErrNotPublished):
		response.Fail(c, http.StatusConflict, response.ErrExamNotPublished)
	case errors.Is(err, service.ErrTimeOver):
		response.Fail(c, http.StatusConflict, response.ErrTimeOver)
	case errors.Is(err, repository.ErrDuplicate):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
	case errors.Is(err, service.ErrInvalidSettings),
		errors.Is(err, service.ErrInvalidContent),
		errors.Is(err, service.ErrInvalidPreferences):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"detail": err.Error()})
	case errors.Is(err, speech.ErrNoSpeech):
		response.Fail(c, http.StatusUnprocessableEntity, response.ErrNoSpeech)
	case errors.Is(err, speech.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, response.ErrSpeechUnavailable)
	case errors.Is(err, speech.ErrEmptyText):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation,
			map[string]string{"text": err.Error()})
	default:
		log.Error().Err(err).Str("path", c.FullPath()).Str("request_id", response.RequestID(c)).Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// subject returns the authenticated subject or writes 401.
func subject(c *gin.Context) (policy.Subject, bool) {
	subj, ok := middleware.GetSubject(c)
	if !ok {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
	}
	return subj, ok
}

// currentUser returns the authenticated user or writes 401.
func currentUser(c *gin.Context) (*model.User, bool) {
	user := middleware.GetUser(c)
	if user == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	return user, true
}

// paramID parses a uuid path parameter or writes 400.
func paramID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
