// internal/middleware/requestlog.go
//
// Request-scoped logging.
//
// Every request gets a UUID request id (reusing an inbound X-Request-ID
// when it looks sane), echoed in the response header.  A child zap logger
// carrying the id is stored in the context, so handlers call
// logger.FromContext and their lines correlate.  One access line is
// written per request.

package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yanizio/adept-signin/internal/logger"
)

// RequestIDHeader is read on the way in and written on the way out.
const RequestIDHeader = "X-Request-ID"

// RequestLogger attaches a request id and child logger, then logs the
// outcome.
func RequestLogger(base *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if _, err := uuid.Parse(id); err != nil {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			l := base.With("request_id", id)
			ctx := logger.WithContext(r.Context(), l)

			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r.WithContext(ctx))

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			l.Infow("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", status,
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
			)
		})
	}
}
