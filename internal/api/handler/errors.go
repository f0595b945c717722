package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/mcoot/roomhub/internal/api/apierr"
	"github.com/mcoot/roomhub/internal/model"
	"github.com/mcoot/roomhub/internal/storage"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decodeBody decodes a JSON request body. An empty body decodes to the zero value.
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return NewInvalidRequestError("invalid request body")
	}
	return nil
}

// pageFromQuery reads ?page= and ?size=, defaulting to the first page
func pageFromQuery(r *http.Request) (storage.Page, error) {
	page := storage.FirstPage()
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, model.ErrInvalidPage
		}
		page.Number = n
	}
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return page, model.ErrInvalidPage
		}
		page.Size = n
	}
	return page, page.Validate()
}
