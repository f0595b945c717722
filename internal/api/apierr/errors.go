package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/services/auth"
	"github.com/mcoot/roomhub/internal/storage"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeInvalidKick       = "INVALID_KICK"
	CodeInvalidPage       = "INVALID_PAGE"
	CodeForbidden         = "FORBIDDEN"
	CodeNotHost           = "NOT_HOST"
	CodeIncorrectPassword = "INCORRECT_PASSWORD"
	CodePlayerNotFound    = "PLAYER_NOT_FOUND"
	CodeRoomNotFound      = "ROOM_NOT_FOUND"
	CodeGameNotFound      = "GAME_NOT_FOUND"
	CodeGameNotActive     = "GAME_NOT_ACTIVE"
	CodeGameFull          = "GAME_FULL"
	CodeBanned            = "BANNED"
	CodeAlreadyKicked     = "ALREADY_KICKED"
	CodeDuplicateRoomCode = "DUPLICATE_ROOM_CODE"
	CodeRoomCodeExhausted = "ROOM_CODE_EXHAUSTED"
	CodeEmailTaken        = "EMAIL_TAKEN"
	CodeConflict          = "CONFLICT"
	CodeInternalError     = "INTERNAL_ERROR"
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
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status an error maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// Message returns the client-facing message for an error. Known domain errors keep
// their own text; anything unclassified is reported generically.
func Message(err error) string {
	return toHTTPError(err).apiError.Message
}

// classified maps domain errors to their status and code. The sentinel's own text is
// the message, so wrapped detail such as storage keys never reaches clients.
var classified = []struct {
	target error
	status int
	code   string
}{
	{model.ErrMissingPlayerID, http.StatusBadRequest, CodeInvalidRequest},
	{model.ErrMissingRoomID, http.StatusBadRequest, CodeInvalidRequest},
	{model.ErrMissingGameID, http.StatusBadRequest, CodeInvalidRequest},
	{model.ErrMissingRoomCode, http.StatusBadRequest, CodeInvalidRequest},
	{model.ErrMissingTargetPlayerID, http.StatusBadRequest, CodeInvalidRequest},
	{model.ErrMissingNewHostID, http.StatusBadRequest, CodeInvalidRequest},
	{model.ErrInvalidKickDuration, http.StatusBadRequest, CodeInvalidKick},
	{model.ErrInvalidKickTarget, http.StatusBadRequest, CodeInvalidKick},
	{model.ErrInvalidPage, http.StatusBadRequest, CodeInvalidPage},
	{model.ErrGameNotActive, http.StatusBadRequest, CodeGameNotActive},
	{model.ErrGameFull, http.StatusBadRequest, CodeGameFull},
	{auth.ErrMissingName, http.StatusBadRequest, CodeInvalidRequest},
	{auth.ErrInvalidEmail, http.StatusBadRequest, CodeInvalidRequest},

	{model.ErrPlayerNotFound, http.StatusNotFound, CodePlayerNotFound},
	{model.ErrRoomNotFound, http.StatusNotFound, CodeRoomNotFound},
	{model.ErrGameNotFound, http.StatusNotFound, CodeGameNotFound},

	{model.ErrPlayerNotInRoom, http.StatusForbidden, CodeForbidden},
	{model.ErrPlayerNotInGame, http.StatusForbidden, CodeForbidden},
	{model.ErrNotHost, http.StatusForbidden, CodeNotHost},
	{model.ErrIncorrectPassword, http.StatusForbidden, CodeIncorrectPassword},

	{model.ErrBanned, http.StatusConflict, CodeBanned},
	{model.ErrAlreadyKicked, http.StatusConflict, CodeAlreadyKicked},
	{model.ErrDuplicateRoomCode, http.StatusConflict, CodeDuplicateRoomCode},
	{model.ErrEmailTaken, http.StatusConflict, CodeEmailTaken},
	{model.ErrHostChanged, http.StatusConflict, CodeConflict},
	{storage.ErrConflict, http.StatusConflict, CodeConflict},
	{storage.ErrAlreadyExists, http.StatusConflict, CodeConflict},
	{model.ErrRoomCodeExhausted, http.StatusServiceUnavailable, CodeRoomCodeExhausted},
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	var he *httpError
	if errors.As(err, &he) {
		return he
	}
	for _, c := range classified {
		if errors.Is(err, c.target) {
			return &httpError{c.status, APIError{c.code, c.target.Error()}}
		}
	}
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
