package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/triviagame/internal/middleware"
	"github.com/mcoot/triviagame/internal/model"
	"github.com/mcoot/triviagame/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError. RequestID matches the X-Request-ID
// response header so a failure can be found in the server logs.
type ErrorResponse struct {
	Error     APIError `json:"error"`
	RequestID string   `json:"request_id,omitempty"`
}

// Common error codes
const (
	CodeInvalidRequest       = "INVALID_REQUEST"
	CodeUnauthorized         = "UNAUTHORIZED"
	CodeNotFound             = "NOT_FOUND"
	CodePlayerNotFound       = "PLAYER_NOT_FOUND"
	CodeGameNotFound         = "GAME_NOT_FOUND"
	CodeCategoryNotFound     = "CATEGORY_NOT_FOUND"
	CodeQuestionNotFound     = "QUESTION_NOT_FOUND"
	CodeNotHost              = "NOT_HOST"
	CodeNotParticipant       = "NOT_PARTICIPANT"
	CodeAlreadyStarted       = "ALREADY_STARTED"
	CodeAlreadyJoined        = "ALREADY_JOINED"
	CodeGameNotStarted       = "GAME_NOT_STARTED"
	CodeQuestionNotStarted   = "QUESTION_NOT_STARTED"
	CodeQuestionClosed       = "QUESTION_CLOSED"
	CodeRoundInProgress      = "ROUND_IN_PROGRESS"
	CodeInvalidAnswer        = "INVALID_ANSWER"
	CodeDuplicateAnswer      = "DUPLICATE_ANSWER"
	CodeInvalidQuestionCount = "INVALID_QUESTION_COUNT"
	CodeProviderUnavailable  = "PROVIDER_UNAVAILABLE"
	CodeInvalidTimingState   = "INVALID_TIMING_STATE"
	CodeUsernameExists       = "USERNAME_EXISTS"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeInvalidDisplayName   = "INVALID_DISPLAY_NAME"
	CodeInvalidUsername      = "INVALID_USERNAME"
	CodeWeakPassword         = "WEAK_PASSWORD"
	CodeInternalError        = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:     he.apiError,
		RequestID: w.Header().Get(middleware.RequestIDHeader),
	})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	// Map model errors
	switch {
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrCategoryNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeCategoryNotFound, "Category not found"}}
	case errors.Is(err, model.ErrQuestionNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeQuestionNotFound, "Question not found"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}
	case errors.Is(err, model.ErrNotHost):
		return &httpError{http.StatusForbidden, APIError{CodeNotHost, "Only the host can perform this action"}}
	case errors.Is(err, model.ErrNotParticipant):
		return &httpError{http.StatusForbidden, APIError{CodeNotParticipant, "Not a player in this game"}}
	case errors.Is(err, model.ErrAlreadyStarted):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyStarted, "Game has already started"}}
	case errors.Is(err, model.ErrAlreadyJoined):
		return &httpError{http.StatusConflict, APIError{CodeAlreadyJoined, "Already joined this game"}}
	case errors.Is(err, model.ErrGameNotStarted):
		return &httpError{http.StatusConflict, APIError{CodeGameNotStarted, "Game has not started"}}
	case errors.Is(err, model.ErrQuestionNotStarted):
		return &httpError{http.StatusConflict, APIError{CodeQuestionNotStarted, "Question is not open yet"}}
	case errors.Is(err, model.ErrQuestionClosed):
		return &httpError{http.StatusConflict, APIError{CodeQuestionClosed, "Question is closed"}}
	case errors.Is(err, model.ErrRoundInProgress):
		return &httpError{http.StatusConflict, APIError{CodeRoundInProgress, "Question is still open"}}
	case errors.Is(err, model.ErrDuplicateAnswer):
		return &httpError{http.StatusConflict, APIError{CodeDuplicateAnswer, "Question already answered"}}
	case errors.Is(err, model.ErrInvalidAnswer):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidAnswer, "Answer is not one of the options"}}
	case errors.Is(err, model.ErrInvalidQuestionCount):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidQuestionCount, "Question count must be between 1 and 20"}}
	case errors.Is(err, model.ErrProviderUnavailable):
		return &httpError{http.StatusBadGateway, APIError{CodeProviderUnavailable, "Question provider unavailable"}}
	case errors.Is(err, model.ErrInvalidTimingState):
		return &httpError{http.StatusInternalServerError, APIError{CodeInvalidTimingState, "Game timing is inconsistent"}}

	// Map auth errors
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid username or password"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}
	case errors.Is(err, auth.ErrUsernameExists):
		return &httpError{http.StatusConflict, APIError{CodeUsernameExists, "Username already exists"}}
	case errors.Is(err, auth.ErrInvalidDisplayName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidDisplayName, "Display name must be 1-32 characters"}}
	case errors.Is(err, auth.ErrInvalidUsername):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidUsername, "Username must be 3-32 characters"}}
	case errors.Is(err, auth.ErrWeakPassword):
		return &httpError{http.StatusBadRequest, APIError{CodeWeakPassword, "Password must be at least 8 characters"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
