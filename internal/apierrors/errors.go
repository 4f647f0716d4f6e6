package apierrors

import (
	"net/http"
)

// Machine-readable error codes returned in the "code" field
const (
	CodeInvalidInput         = "INVALID_INPUT"
	CodeInvalidSubscription  = "INVALID_SUBSCRIPTION"
	CodeMissingKeys          = "MISSING_KEYS"
	CodeInvalidKeyLength     = "INVALID_KEY_LENGTH"
	CodeMalformedBase64      = "MALFORMED_BASE64"
	CodeMissingContent       = "MISSING_CONTENT"
	CodePayloadTooLarge      = "PAYLOAD_TOO_LARGE"
	CodeNoValidSubscriptions = "NO_VALID_SUBSCRIPTIONS"
	CodeNoClients            = "NO_CLIENTS"
	CodeClientNotFound       = "CLIENT_NOT_FOUND"
	CodeInvalidAccessStatus  = "INVALID_ACCESS_STATUS"
	CodeCampaignNotFound     = "CAMPAIGN_NOT_FOUND"
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeInvalidTransition    = "INVALID_STATUS_TRANSITION"
	CodeCampaignNotSendable  = "CAMPAIGN_NOT_SENDABLE"
	CodeInvalidSchedule      = "INVALID_SCHEDULE"
	CodeInvalidABSplit       = "INVALID_AB_SPLIT"
	CodeInvalidAudience      = "INVALID_AUDIENCE"
	CodeLandingPageNotFound  = "LANDING_PAGE_NOT_FOUND"
	CodeLandingIDExists      = "LANDING_ID_EXISTS"
	CodeSegmentNotFound      = "SEGMENT_NOT_FOUND"
	CodeInvalidTrackingEvent = "INVALID_TRACKING_EVENT"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeSchedulerUnavailable = "SCHEDULER_UNAVAILABLE"
	CodeInternalError        = "INTERNAL_ERROR"
	CodeServiceUnavailable   = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    = "RATE_LIMIT_EXCEEDED"
)

// APIError is an error with the HTTP status and client-facing message it maps to.
// Internal holds the underlying error; it is only exposed outside production.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Internal   error
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

// BadRequest creates a 400 error
func BadRequest(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Code: code, Message: message}
}

// NotFound creates a 404 error
func NotFound(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Code: code, Message: message}
}

// Unauthorized creates a 401 error
func Unauthorized(message string) *APIError {
	return &APIError{StatusCode: http.StatusUnauthorized, Code: CodeUnauthorized, Message: message}
}

// Conflict creates a 409 error
func Conflict(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusConflict, Code: code, Message: message}
}

// ServiceUnavailable creates a 503 error wrapping the internal cause
func ServiceUnavailable(code, message string, internalErr error) *APIError {
	return &APIError{StatusCode: http.StatusServiceUnavailable, Code: code, Message: message, Internal: internalErr}
}

// TooManyRequests creates a 429 error
func TooManyRequests(message string) *APIError {
	return &APIError{StatusCode: http.StatusTooManyRequests, Code: CodeRateLimitExceeded, Message: message}
}

// InternalError creates a sanitized 500 error
func InternalError(internalErr error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "An internal error occurred. Please try again later.",
		Internal:   internalErr,
	}
}
