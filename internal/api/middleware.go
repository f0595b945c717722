package api

import (
	"log/slog"
	"net/http"

	"github.com/mcoot/roomhub/internal/api/apierr"
	"github.com/mcoot/roomhub/internal/middleware"
)

// recoveryMiddleware turns handler panics into JSON 500 responses
func recoveryMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Logging(logger.With(slog.String("component", "http")))
}
