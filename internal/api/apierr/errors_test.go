package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/storage"
)

func TestClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{"missing id", model.ErrMissingRoomID, http.StatusBadRequest, CodeInvalidRequest, model.ErrMissingRoomID.Error()},
		{"bad kick", model.ErrInvalidKickDuration, http.StatusBadRequest, CodeInvalidKick, model.ErrInvalidKickDuration.Error()},
		{"game full", model.ErrGameFull, http.StatusBadRequest, CodeGameFull, "game is full"},
		{"not found", model.ErrRoomNotFound, http.StatusNotFound, CodeRoomNotFound, model.ErrRoomNotFound.Error()},
		{"not host", model.ErrNotHost, http.StatusForbidden, CodeNotHost, model.ErrNotHost.Error()},
		{"banned", model.ErrBanned, http.StatusConflict, CodeBanned, model.ErrBanned.Error()},
		{"storage conflict", storage.ErrConflict, http.StatusConflict, CodeConflict, storage.ErrConflict.Error()},
		{"exhausted", model.ErrRoomCodeExhausted, http.StatusServiceUnavailable, CodeRoomCodeExhausted, model.ErrRoomCodeExhausted.Error()},
		{"unknown", errors.New("disk on fire"), http.StatusInternalServerError, CodeInternalError, "Internal server error"},
		{"explicit", NewInvalidRequestError("bad body"), http.StatusBadRequest, CodeInvalidRequest, "bad body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, Status(tt.err))
			assert.Equal(t, tt.message, Message(tt.err))
			assert.Equal(t, tt.code, toHTTPError(tt.err).apiError.Code)
		})
	}
}

func TestWrappedErrorsHideDetail(t *testing.T) {
	err := fmt.Errorf("room:r1:members: %w", model.ErrRoomNotFound)

	assert.Equal(t, http.StatusNotFound, Status(err))
	assert.Equal(t, model.ErrRoomNotFound.Error(), Message(err))
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, model.ErrAlreadyKicked)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, CodeAlreadyKicked, body.Error.Code)
	assert.Equal(t, model.ErrAlreadyKicked.Error(), body.Error.Message)
}
