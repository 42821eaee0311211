package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionRevoked     ErrCode = "SESSION_REVOKED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"
	ErrIdentityConflict   ErrCode = "IDENTITY_CONFLICT"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden            ErrCode = "FORBIDDEN"
	ErrInstructorAccessOnly ErrCode = "INSTRUCTOR_ACCESS_ONLY"
	ErrAdminAccessOnly      ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exams & attempts ──────────────────────────────────────────────
	ErrExamNotPublished    ErrCode = "EXAM_NOT_PUBLISHED"
	ErrAttemptLocked       ErrCode = "ATTEMPT_LOCKED"
	ErrAttemptNotSubmitted ErrCode = "ATTEMPT_NOT_SUBMITTED"
	ErrTimeOver            ErrCode = "TIME_OVER"

	// ─── Speech ────────────────────────────────────────────────────────
	ErrFileRequired      ErrCode = "FILE_REQUIRED"
	ErrFileTooLarge      ErrCode = "FILE_TOO_LARGE"
	ErrNoSpeech          ErrCode = "NO_SPEECH_DETECTED"
	ErrSpeechUnavailable ErrCode = "SPEECH_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionRevoked:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."
	case ErrIdentityConflict:
		return "This email already belongs to another account."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to perform this action."
	case ErrInstructorAccessOnly:
		return "This resource is restricted to instructors."
	case ErrAdminAccessOnly:
		return "This resource is restricted to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exams & attempts ──────────────────────────────────────────────
	case ErrExamNotPublished:
		return "This exam has not been published."
	case ErrAttemptLocked:
		return "This attempt can no longer be changed."
	case ErrAttemptNotSubmitted:
		return "This attempt has not been submitted yet."
	case ErrTimeOver:
		return "The time limit for this attempt has passed."

	// ─── Speech ────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "An audio file upload is required."
	case ErrFileTooLarge:
		return "The uploaded file exceeds the size limit."
	case ErrNoSpeech:
		return "No speech was detected in the audio."
	case ErrSpeechUnavailable:
		return "The speech engine is currently unavailable."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
