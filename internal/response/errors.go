package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrLoginActive        ErrCode = "LOGIN_ALREADY_ACTIVE"
	ErrLoginInvalidated   ErrCode = "LOGIN_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrTokenExpired       ErrCode = "TOKEN_EXPIRED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrConflict        ErrCode = "CONFLICT"
	ErrActionForbidden ErrCode = "ACTION_FORBIDDEN"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamNotAvailable  ErrCode = "EXAM_NOT_AVAILABLE"
	ErrInvalidExamCode   ErrCode = "INVALID_EXAM_CODE"
	ErrNoQuestions       ErrCode = "NO_QUESTIONS"
	ErrNotExamAuthor     ErrCode = "NOT_EXAM_AUTHOR"
	ErrOtherExamActive   ErrCode = "OTHER_EXAM_ACTIVE"
	ErrAlreadySubmitted  ErrCode = "ALREADY_SUBMITTED"
	ErrSessionNotActive  ErrCode = "SESSION_NOT_ACTIVE"
	ErrSessionTerminated ErrCode = "SESSION_TERMINATED"
	ErrDeviceMismatch    ErrCode = "DEVICE_MISMATCH"
	ErrSubmitInFlight    ErrCode = "SUBMIT_IN_FLIGHT"

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
		return "Login ID or password is incorrect."
	case ErrLoginActive:
		return "You are already signed in on another device."
	case ErrLoginInvalidated:
		return "Your login has expired. Please sign in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrTokenExpired:
		return "The authentication token has expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to teachers."

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
	case ErrActionForbidden:
		return "This action is not allowed."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrExamNotAvailable:
		return "This exam is not currently available."
	case ErrInvalidExamCode:
		return "The exam code is not valid."
	case ErrNoQuestions:
		return "This exam has no questions."
	case ErrNotExamAuthor:
		return "You are not the author of this exam."
	case ErrOtherExamActive:
		return "You already have another exam in progress."
	case ErrAlreadySubmitted:
		return "This exam has already been submitted."
	case ErrSessionNotActive:
		return "This exam session is no longer active."
	case ErrSessionTerminated:
		return "This exam session has been terminated."
	case ErrDeviceMismatch:
		return "This exam session belongs to a different device."
	case ErrSubmitInFlight:
		return "A submission is already being processed."

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
